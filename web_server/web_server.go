package web_server

import (
	"context"
	nativeerrors "errors"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/lefinal/memorama/errors"
	"go.uber.org/zap"
	"net"
	"net/http"
	"time"
)

const (
	// DefaultServeAddr is the default address to serve on.
	DefaultServeAddr = ":8080"
	// DefaultWriteTimeout is the default timeout for writing.
	DefaultWriteTimeout = 15 * time.Second
	// DefaultReadTimeout is the default timeout for reading.
	DefaultReadTimeout = 15 * time.Second
	// shutdownTimeout is the timeout for graceful shutdown.
	shutdownTimeout = 15 * time.Second
)

// WebServer serves the kiosk websocket and the HTTP API.
type WebServer struct {
	logger     *zap.Logger
	config     Config
	httpServer *http.Server
	router     chi.Router
}

// Config is the configuration that is used in order to create and run a web
// server.
type Config struct {
	// Address for the web server to listen to.
	ServeAddr string
	// WriteTimeout is the duration to wait until write fails with a timeout.
	WriteTimeout time.Duration
	// ReadTimeout is the duration to wait until read fails with a timeout.
	ReadTimeout time.Duration
}

// NewWebServer creates a new WebServer and sets up initial stuff. Run it with
// WebServer.Run and do not forget to call WebServer.PopulateRoutes before.
func NewWebServer(logger *zap.Logger, config Config) (*WebServer, error) {
	if config.ServeAddr == "" {
		return nil, errors.NewBadRequestError(errors.KindInvalidConfig, "no addr provided in config", nil)
	}
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(loggingMiddleware(logger))
	router.Use(middleware.Recoverer)
	router.Use(noCacheMiddleware)
	return &WebServer{
		logger: logger,
		config: config,
		router: router,
		httpServer: &http.Server{
			Handler:      router,
			Addr:         config.ServeAddr,
			WriteTimeout: config.WriteTimeout,
			ReadTimeout:  config.ReadTimeout,
		},
	}, nil
}

// Run the web server until the given context.Context is done.
func (server *WebServer) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", server.config.ServeAddr)
	if err != nil {
		return errors.NewInternalErrorFromErr(err, "listen", errors.Details{"addr": server.config.ServeAddr})
	}
	serveErr := make(chan error, 1)
	go func() {
		server.logger.Info("web server running", zap.String("addr", server.config.ServeAddr))
		err := server.httpServer.Serve(listener)
		if err != nil && !nativeerrors.Is(err, http.ErrServerClosed) {
			serveErr <- errors.NewInternalErrorFromErr(err, "serve", nil)
		}
		close(serveErr)
	}()
	select {
	case err, failed := <-serveErr:
		if failed {
			return err
		}
		return nil
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err = server.httpServer.Shutdown(shutdownCtx)
	if err != nil {
		return errors.NewInternalErrorFromErr(err, "shutdown web server", nil)
	}
	return nil
}
