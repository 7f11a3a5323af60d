package ws

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/memsweep/memsweep/internal/infrastructure/logging"
	"github.com/memsweep/memsweep/internal/infrastructure/monitoring"
	"github.com/memsweep/memsweep/internal/trim"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Local UI clients only; the listener binds loopback by default.
		return true
	},
}

// Message is an inbound client message.
type Message struct {
	Type string `json:"type"`
}

// Handler serves the notification socket. Clients receive the one-shot
// trim completion and may trigger a run themselves, mirroring the
// tray-menu trigger.
type Handler struct {
	hub     *Hub
	runner  *trim.Runner
	logger  *logging.Logger
	metrics *monitoring.Metrics
}

// NewHandler creates a WebSocket handler.
func NewHandler(hub *Hub, runner *trim.Runner, logger *logging.Logger, metrics *monitoring.Metrics) *Handler {
	return &Handler{hub: hub, runner: runner, logger: logger, metrics: metrics}
}

// HandleConnection upgrades the request and serves the session.
func (h *Handler) HandleConnection(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	h.metrics.WSConnect()
	defer h.metrics.WSDisconnect()

	client := h.hub.Register()

	// Single writer: everything the peer sees goes through the client
	// outbox, so broadcasts and replies never interleave on the wire.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for payload := range client.Outbox() {
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		}
	}()

	client.Send(map[string]interface{}{
		"type":    "system",
		"message": "connected to memsweep",
	})

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}

		switch msg.Type {
		case "trim":
			h.startTrim(client)
		case "ping":
			client.Send(map[string]interface{}{"type": "pong"})
		default:
			client.Send(map[string]interface{}{
				"type":  "error",
				"error": "unknown message type",
			})
		}
	}

	h.hub.Unregister(client)
	<-done
}

func (h *Handler) startTrim(client *Client) {
	runID, ch, err := h.runner.Start()
	if errors.Is(err, trim.ErrBusy) {
		client.Send(map[string]interface{}{
			"type":  "trim_busy",
			"error": "a trim run is already in flight",
		})
		return
	}

	go h.hub.WatchRun(ch)
	client.Send(map[string]interface{}{
		"type":      "trim_started",
		"run_id":    runID,
		"timestamp": time.Now().Unix(),
	})
}
