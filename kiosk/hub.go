package kiosk

import (
	"context"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"net/http"
	"sync"
)

// Stats are statistics regarding connected kiosks.
type Stats struct {
	// Kiosks is the number of connected kiosks.
	Kiosks int
	// Sessions is the number of kiosks with a game session.
	Sessions int
}

// Hub creates a Kiosk for each websocket connection and keeps track of them.
type Hub struct {
	logger *zap.Logger
	config Config
	deps   Deps
	// kiosks holds all connected kiosks.
	kiosks map[*Kiosk]struct{}
	// wg waits for all kiosks to finish.
	wg sync.WaitGroup
	m  sync.Mutex
}

// NewHub creates a new Hub. Serve connections with HandleWS.
func NewHub(logger *zap.Logger, config Config, deps Deps) *Hub {
	return &Hub{
		logger: logger,
		config: config,
		deps:   deps,
		kiosks: make(map[*Kiosk]struct{}),
	}
}

func (h *Hub) register(k *Kiosk) {
	h.m.Lock()
	defer h.m.Unlock()
	h.kiosks[k] = struct{}{}
	h.logger.Info("kiosk connected", zap.String("kiosk_id", k.ID()), zap.Int("kiosks", len(h.kiosks)))
}

func (h *Hub) unregister(k *Kiosk) {
	h.m.Lock()
	defer h.m.Unlock()
	delete(h.kiosks, k)
	h.logger.Info("kiosk disconnected", zap.String("kiosk_id", k.ID()), zap.Int("kiosks", len(h.kiosks)))
}

// Stats returns the current Stats.
func (h *Hub) Stats() Stats {
	h.m.Lock()
	defer h.m.Unlock()
	stats := Stats{Kiosks: len(h.kiosks)}
	for k := range h.kiosks {
		if k.HasSession() {
			stats.Sessions++
		}
	}
	return stats
}

// serve runs a Kiosk for the given client until the client stops receiving or
// the context.Context is done.
func (h *Hub) serve(ctx context.Context, c *client) {
	k := New(h.logger, h.config, h.deps, c.send)
	h.register(k)
	defer h.unregister(k)
	err := k.Run(ctx, c.receive)
	if err != nil {
		h.logger.Warn("kiosk failed", zap.String("kiosk_id", k.ID()), zap.Error(err))
	}
	// Nothing sends anymore, so we can close in order to stop the write-pump.
	close(c.send)
}

// Wait until all kiosks are torn down.
func (h *Hub) Wait() {
	h.wg.Wait()
}

// HandleWS handles websocket requests. The passed context is used in order to
// stop all kiosks.
func (h *Hub) HandleWS(ctx context.Context) http.HandlerFunc {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
	}
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			h.logger.Debug("upgrade connection", zap.Error(err))
			return
		}
		c := newClient(h.logger.Named("ws"), conn)
		// Power the pumps.
		go c.writePump()
		go c.readPump(ctx)
		h.wg.Add(1)
		go func() {
			defer h.wg.Done()
			h.serve(ctx, c)
		}()
	}
}
