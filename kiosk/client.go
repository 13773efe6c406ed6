package kiosk

import (
	"bytes"
	"context"
	"github.com/gorilla/websocket"
	"github.com/lefinal/memorama/errors"
	"go.uber.org/zap"
	"time"
)

const (
	// writeTimeout is the timeout for writing a message to the peer.
	writeTimeout = 10 * time.Second
	// pingInterval is the interval in which pings are sent to the peer. Must be
	// less than pongTimeout.
	pingInterval = (pongTimeout * 9) / 10
	// pongTimeout is the timeout for waiting for the next pong message from the
	// peer. Must be greater than pingInterval.
	pongTimeout = 60 * time.Second
	// maxMessageSize is the maximum message size allowed from peer.
	maxMessageSize = 16384
	// bufferSize is the size of the send and receive buffers.
	bufferSize = 256
)

var (
	newline = []byte{'\n'}
	space   = []byte{' '}
)

// client holds the websocket connection of a Kiosk.
type client struct {
	logger *zap.Logger
	// connection is the actual websocket connection.
	connection *websocket.Conn
	// send holds outgoing messages. Closing it closes the connection.
	send chan []byte
	// receive holds incoming messages. It is closed when reading stops.
	receive chan []byte
}

func newClient(logger *zap.Logger, connection *websocket.Conn) *client {
	return &client{
		logger:     logger,
		connection: connection,
		send:       make(chan []byte, bufferSize),
		receive:    make(chan []byte, bufferSize),
	}
}

// readPump forwards messages from the websocket connection to receive until
// reading fails.
func (c *client) readPump(ctx context.Context) {
	defer func() {
		close(c.receive)
		err := c.connection.Close()
		if err != nil {
			c.logger.Debug("close connection", zap.Error(err))
		}
	}()
	c.connection.SetReadLimit(maxMessageSize)
	_ = c.connection.SetReadDeadline(time.Now().Add(pongTimeout))
	// Handle received pong.
	c.connection.SetPongHandler(func(string) error {
		_ = c.connection.SetReadDeadline(time.Now().Add(pongTimeout))
		return nil
	})
	for {
		_, message, err := c.connection.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Debug("unexpected close", zap.Error(err))
			}
			return
		}
		message = bytes.TrimSpace(bytes.Replace(message, newline, space, -1))
		select {
		case <-ctx.Done():
			c.logger.Warn("dropping message due to ctx done", zap.ByteString("message", message))
			return
		case c.receive <- message:
		}
	}
}

// writePump forwards outgoing messages from send to the websocket connection.
// It stops when send is closed.
func (c *client) writePump() {
	pingTicker := time.NewTicker(pingInterval)
	defer func() {
		pingTicker.Stop()
		err := c.connection.Close()
		if err != nil {
			c.logger.Debug("close connection", zap.Error(err))
		}
	}()
	for {
		select {
		case message, ok := <-c.send:
			_ = c.connection.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				err := c.connection.WriteMessage(websocket.CloseMessage, []byte{})
				if err != nil {
					c.logger.Debug("write close message", zap.Error(err))
				}
				return
			}
			nextWriter, err := c.connection.NextWriter(websocket.TextMessage)
			if err != nil {
				// We expect the read pump to fail as well.
				errors.Log(c.logger, errors.Wrap(err, "create writer for text message", nil))
				c.drain()
				return
			}
			_, err = nextWriter.Write(message)
			if err != nil {
				errors.Log(c.logger, errors.Wrap(err, "write text message", nil))
			}
			if err := nextWriter.Close(); err != nil {
				errors.Log(c.logger, errors.Wrap(err, "close next writer", nil))
				c.drain()
				return
			}
		case <-pingTicker.C:
			_ = c.connection.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.connection.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Debug("write ping", zap.Error(err))
				c.drain()
				return
			}
		}
	}
}

// drain discards outgoing messages until send is closed so that the Kiosk
// never blocks on a dead connection.
func (c *client) drain() {
	go func() {
		for range c.send {
		}
	}()
}
