package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"LevRecon/internal/domain/models"
	"LevRecon/internal/domain/repository"
	applogger "LevRecon/pkg/logger"

	"github.com/gorilla/websocket"
)

// LiveEvent is the frame pushed to dashboard clients after each run.
type LiveEvent struct {
	Type    string            `json:"type"`
	Summary models.RunSummary `json:"summary"`
	Symbols []string          `json:"symbols"`
}

type liveClient struct {
	conn *websocket.Conn
	send chan []byte
}

// LiveHub broadcasts run summaries to connected WebSocket clients.
type LiveHub struct {
	upgrader     websocket.Upgrader
	pingInterval time.Duration
	writeTimeout time.Duration
	log          *applogger.Logger

	mu      sync.RWMutex
	clients map[*liveClient]struct{}
	closed  bool
}

// NewLiveHub creates a hub. Origins are not checked; the API sits behind the
// deployment's ingress.
func NewLiveHub(pingInterval time.Duration, log *applogger.Logger) *LiveHub {
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	if log == nil {
		log = applogger.Nop()
	}
	return &LiveHub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		pingInterval: pingInterval,
		writeTimeout: 10 * time.Second,
		log:          log,
		clients:      make(map[*liveClient]struct{}),
	}
}

var _ repository.ResultSink = (*LiveHub)(nil)

func (h *LiveHub) Name() string { return "live" }

// ServeWS upgrades the request and streams events until the client leaves.
func (h *LiveHub) ServeWS(w http.ResponseWriter, r *http.Request) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("websocket upgrade: %w", err)
	}
	c := &liveClient{conn: conn, send: make(chan []byte, 16)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close()
		return fmt.Errorf("live hub closed")
	}
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.log.Debug("live client connected", applogger.String("remote", r.RemoteAddr))

	go h.writeLoop(c)
	h.readLoop(c)
	return nil
}

// readLoop discards client frames; it only exists to notice disconnects.
func (h *LiveHub) readLoop(c *liveClient) {
	defer h.remove(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *LiveHub) writeLoop(c *liveClient) {
	ticker := time.NewTicker(h.pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case b, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *LiveHub) remove(c *liveClient) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// Publish broadcasts the run summary. Slow clients miss the frame.
func (h *LiveHub) Publish(_ context.Context, summary models.RunSummary, reports []models.SymbolReport) error {
	ev := LiveEvent{Type: "run", Summary: summary, Symbols: make([]string, 0, len(reports))}
	for i := range reports {
		ev.Symbols = append(ev.Symbols, reports[i].Symbol)
	}
	b, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal live event: %w", err)
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- b:
		default:
			// drop on backpressure
		}
	}
	return nil
}

// Clients returns the number of connected clients.
func (h *LiveHub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *LiveHub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
	return nil
}
