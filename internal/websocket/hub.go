package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"ghost-crew/internal/metrics"
	"ghost-crew/internal/models"
	"ghost-crew/pkg/logger"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
)

const (
	EventTaskCompleted = "task_completed"
	EventIssueReported = "issue_reported"
	EventJobStatus     = "job_status"
	EventJobReviewed   = "job_reviewed"
)

// Event is pushed to every connected supervisor feed.
type Event struct {
	Type   string           `json:"type"`
	JobID  int              `json:"job_id"`
	UserID int              `json:"user_id"`
	TaskID string           `json:"task_id,omitempty"`
	Status models.JobStatus `json:"status,omitempty"`
	At     time.Time        `json:"at"`
}

// Conn is the part of a websocket connection the hub writes to.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Client is one connected live-feed subscriber.
type Client struct {
	Conn   Conn
	UserID int
	Mu     sync.Mutex
}

// Hub fans job events out to connected clients.
type Hub struct {
	Clients    map[*Client]bool
	Broadcast  chan []byte
	Register   chan *Client
	Unregister chan *Client

	done chan struct{}
}

func NewHub() *Hub {
	return &Hub{
		Clients:    make(map[*Client]bool),
		Broadcast:  make(chan []byte, 64),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run handles register, unregister and broadcast until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for client := range h.Clients {
				h.drop(client)
			}
			return
		case client := <-h.Register:
			h.Clients[client] = true
			metrics.WebsocketClients.Set(float64(len(h.Clients)))
		case client := <-h.Unregister:
			h.drop(client)
		case message := <-h.Broadcast:
			for client := range h.Clients {
				client.Mu.Lock()
				err := client.Conn.WriteMessage(websocket.TextMessage, message)
				client.Mu.Unlock()
				if err != nil {
					logger.ErrorLogger.Warn("Dropping websocket client", zap.Int("user_id", client.UserID), zap.Error(err))
					h.drop(client)
				}
			}
		}
	}
}

// Add registers a client unless the hub has stopped.
func (h *Hub) Add(client *Client) bool {
	select {
	case h.Register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Remove unregisters a client; it returns immediately once the hub has stopped.
func (h *Hub) Remove(client *Client) {
	select {
	case h.Unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) drop(client *Client) {
	if _, ok := h.Clients[client]; ok {
		delete(h.Clients, client)
		_ = client.Conn.Close()
		metrics.WebsocketClients.Set(float64(len(h.Clients)))
	}
}

// Publish queues an event for broadcast. When the buffer is full the event
// is dropped rather than blocking the request that produced it.
func (h *Hub) Publish(e Event) {
	if h == nil {
		return
	}
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	message, err := json.Marshal(e)
	if err != nil {
		logger.ErrorLogger.Error("Error encoding event", zap.Error(err))
		return
	}
	select {
	case h.Broadcast <- message:
	default:
		logger.SystemLogger.Warn("Event buffer full, dropping event", zap.String("type", e.Type), zap.Int("job_id", e.JobID))
	}
}
