package restapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"farm_poller/internal/app/port"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// CommitSubscriber publishes accepted cache writes.
type CommitSubscriber interface {
	Subscribe() (<-chan port.CommitEvent, func())
}

// StreamHandler pushes cache commit events to WebSocket clients.
type StreamHandler struct {
	subs     CommitSubscriber
	upgrader websocket.Upgrader
	logger   port.Logger
}

// NewStreamHandler creates a new StreamHandler.
func NewStreamHandler(subs CommitSubscriber, logger port.Logger) *StreamHandler {
	return &StreamHandler{
		subs: subs,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger: logger.With("component", "stream"),
	}
}

// ServeStream upgrades the request and writes one JSON message per commit
// until the client goes away.
func (h *StreamHandler) ServeStream(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	events, unsubscribe := h.subs.Subscribe()
	defer unsubscribe()

	// The read side only handles control frames and detects closure.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	h.logger.Debug("Stream client connected", "remote", c.Request.RemoteAddr)
	for {
		select {
		case <-closed:
			h.logger.Debug("Stream client disconnected", "remote", c.Request.RemoteAddr)
			return
		case <-c.Request.Context().Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(ev); err != nil {
				h.logger.Debug("Stream write failed", "error", err)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
