package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"GlucoPlot/internal/domain/models"
	xlogger "GlucoPlot/pkg/logger"
)

const (
	liveWriteWait  = 10 * time.Second
	livePongWait   = 60 * time.Second
	livePingPeriod = livePongWait * 9 / 10
	liveSendBuffer = 16
)

// LiveMessage is one frame on the live feed.
type LiveMessage struct {
	Type string                  `json:"type"`
	Data []models.GlucoseReading `json:"data"`
}

// LatestFunc loads the backlog sent to new subscribers.
type LatestFunc func(ctx context.Context, n int) ([]models.GlucoseReading, error)

type liveClient struct {
	conn *websocket.Conn
	send chan []byte
}

// LiveHub fans glucose readings out to websocket subscribers on /api/live.
// Slow subscribers are disconnected rather than allowed to block ingestion.
type LiveHub struct {
	logger   *xlogger.Logger
	upgrader websocket.Upgrader
	latest   LatestFunc
	backlog  int

	mu      sync.RWMutex
	clients map[*liveClient]struct{}
}

func NewLiveHub(logger *xlogger.Logger, latest LatestFunc, backlog int) *LiveHub {
	if logger == nil {
		logger = xlogger.NewNop()
	}
	return &LiveHub{
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		latest:  latest,
		backlog: backlog,
		clients: make(map[*liveClient]struct{}),
	}
}

func (h *LiveHub) RegisterRoutes(e *echo.Echo) {
	e.GET("/api/live", h.Serve)
}

// Serve upgrades the request and streams readings until the client leaves.
func (h *LiveHub) Serve(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// the upgrader already wrote the error response
		h.logger.Warn("live upgrade failed", xlogger.Error(err))
		return nil
	}
	client := &liveClient{conn: conn, send: make(chan []byte, liveSendBuffer)}

	if h.latest != nil && h.backlog > 0 {
		readings, err := h.latest(c.Request().Context(), h.backlog)
		if err != nil {
			h.logger.Warn("live backlog failed", xlogger.Error(err))
		} else if b, err := json.Marshal(LiveMessage{Type: "backlog", Data: readings}); err == nil {
			client.send <- b
		}
	}

	h.add(client)
	go h.writePump(client)
	h.readPump(client)
	return nil
}

// Broadcast implements the live pipeline's Broadcaster.
func (h *LiveHub) Broadcast(_ context.Context, r models.GlucoseReading) error {
	b, err := json.Marshal(LiveMessage{Type: "glucose", Data: []models.GlucoseReading{r}})
	if err != nil {
		return fmt.Errorf("encode live reading: %w", err)
	}

	var slow []*liveClient
	h.mu.RLock()
	for cl := range h.clients {
		select {
		case cl.send <- b:
		default:
			slow = append(slow, cl)
		}
	}
	h.mu.RUnlock()

	for _, cl := range slow {
		h.logger.Warn("live client too slow, disconnecting", xlogger.String("remote", cl.conn.RemoteAddr().String()))
		h.remove(cl)
	}
	return nil
}

// Clients returns the number of connected subscribers.
func (h *LiveHub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every subscriber.
func (h *LiveHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for cl := range h.clients {
		delete(h.clients, cl)
		close(cl.send)
	}
}

func (h *LiveHub) add(cl *liveClient) {
	h.mu.Lock()
	h.clients[cl] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("live client connected",
		xlogger.String("remote", cl.conn.RemoteAddr().String()),
		xlogger.Int("clients", n))
}

func (h *LiveHub) remove(cl *liveClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[cl]; ok {
		delete(h.clients, cl)
		close(cl.send)
	}
}

// readPump only services control frames; subscribers do not send data.
func (h *LiveHub) readPump(cl *liveClient) {
	defer func() {
		h.remove(cl)
		_ = cl.conn.Close()
	}()
	cl.conn.SetReadLimit(512)
	_ = cl.conn.SetReadDeadline(time.Now().Add(livePongWait))
	cl.conn.SetPongHandler(func(string) error {
		return cl.conn.SetReadDeadline(time.Now().Add(livePongWait))
	})
	for {
		if _, _, err := cl.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *LiveHub) writePump(cl *liveClient) {
	ticker := time.NewTicker(livePingPeriod)
	defer func() {
		ticker.Stop()
		_ = cl.conn.Close()
	}()
	for {
		select {
		case b, ok := <-cl.send:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
			if !ok {
				_ = cl.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := cl.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				return
			}
		case <-ticker.C:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
