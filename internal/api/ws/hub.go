package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/memsweep/memsweep/internal/infrastructure/logging"
	"github.com/memsweep/memsweep/internal/trim"
)

const clientBuffer = 8

// Client is one connected notification subscriber. Messages are
// enqueued without blocking; a client that cannot drain its buffer
// misses the overflowing message rather than stalling the hub.
type Client struct {
	ch chan []byte
}

// Outbox returns the channel of encoded messages to write to the peer.
func (c *Client) Outbox() <-chan []byte {
	return c.ch
}

// Send encodes and enqueues a message for this client only.
func (c *Client) Send(v interface{}) {
	payload, err := json.Marshal(v)
	if err != nil {
		return
	}
	select {
	case c.ch <- payload:
	default:
	}
}

// Hub fans trim completion notifications out to every connected client.
type Hub struct {
	logger *logging.Logger

	mu      sync.Mutex
	clients map[*Client]struct{}
}

// NewHub creates an empty hub.
func NewHub(logger *logging.Logger) *Hub {
	return &Hub{
		logger:  logger,
		clients: make(map[*Client]struct{}),
	}
}

// Register adds a subscriber.
func (h *Hub) Register() *Client {
	client := &Client{ch: make(chan []byte, clientBuffer)}
	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.mu.Unlock()
	return client
}

// Unregister removes a subscriber and closes its outbox.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.ch)
	}
	h.mu.Unlock()
}

// Broadcast enqueues a message for every connected client.
func (h *Hub) Broadcast(v interface{}) {
	payload, err := json.Marshal(v)
	if err != nil {
		h.logger.Warn("broadcast encode failed", zap.Error(err))
		return
	}

	h.mu.Lock()
	for client := range h.clients {
		select {
		case client.ch <- payload:
		default:
		}
	}
	h.mu.Unlock()
}

// WatchRun blocks until the run delivers its one-shot completion, then
// broadcasts it. Callers start it on its own goroutine.
func (h *Hub) WatchRun(ch <-chan trim.Completion) {
	completion := <-ch
	h.logger.Info("trim run delivered",
		zap.String("run_id", completion.RunID),
		zap.Uint64("freed_bytes", completion.Result.FreedBytes),
	)
	h.Broadcast(completionMessage(completion))
}

func completionMessage(completion trim.Completion) map[string]interface{} {
	return map[string]interface{}{
		"type":        "trim_complete",
		"run_id":      completion.RunID,
		"freed_bytes": completion.Result.FreedBytes,
		"freed_human": humanize.IBytes(completion.Result.FreedBytes),
		"timestamp":   time.Now().Unix(),
	}
}
