// Package ws streams sampling progress to websocket subscribers.
package ws

import (
	"net/http"
	"sync"

	"OilScope/internal/bayes"
	xlogger "OilScope/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

// ProgressHub fans sampler progress updates out to connected websocket
// clients. Slow or dead clients are dropped rather than blocking the sampler.
type ProgressHub struct {
	logger   *xlogger.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

func NewProgressHub(logger *xlogger.Logger) *ProgressHub {
	return &ProgressHub{
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients: make(map[*websocket.Conn]struct{}),
	}
}

func (h *ProgressHub) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws/progress", h.Serve)
}

// Serve upgrades the connection and keeps it registered until the peer
// disconnects.
func (h *ProgressHub) Serve(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Warn("websocket upgrade error", xlogger.Error(err))
		return err
	}

	h.mu.Lock()
	h.clients[conn] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Info("progress subscriber connected", xlogger.Int("subscribers", n))

	// Reads only detect the close; no inbound protocol is defined.
	go func() {
		defer h.drop(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
	return nil
}

// Broadcast sends one progress update to every subscriber. Safe for
// concurrent use by multiple sampler chains.
func (h *ProgressHub) Broadcast(p bayes.Progress) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		if err := conn.WriteJSON(p); err != nil {
			delete(h.clients, conn)
			_ = conn.Close()
		}
	}
}

// SampleOption adapts the hub into a sampler progress callback.
func (h *ProgressHub) SampleOption() bayes.SampleOption {
	return bayes.WithProgress(h.Broadcast)
}

// Close disconnects all subscribers.
func (h *ProgressHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		_ = conn.Close()
		delete(h.clients, conn)
	}
}

func (h *ProgressHub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		_ = conn.Close()
	}
}
