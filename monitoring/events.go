// Package monitoring streams service events to websocket subscribers.
package monitoring

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// MessageType identifies an event stream message.
type MessageType string

const (
	TrainingCompleted MessageType = "training_completed"
	PredictionServed  MessageType = "prediction_served"
	SystemStatus      MessageType = "system_status"
	Heartbeat         MessageType = "heartbeat"
)

// Message is the envelope sent to subscribers.
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// TrainingEvent reports a completed model fit.
type TrainingEvent struct {
	ModelName string  `json:"model_name"`
	Schema    string  `json:"schema"`
	Score     float64 `json:"score"`
	Rows      int     `json:"rows"`
}

// PredictionEvent reports a served prediction batch.
type PredictionEvent struct {
	ModelName string         `json:"model_name"`
	BatchSize int            `json:"batch_size"`
	Sources   map[string]int `json:"sources"`
}

// StatusEvent reports component state changes.
type StatusEvent struct {
	Component string `json:"component"`
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	id   string
}

// Hub fans event messages out to connected websocket clients.
type Hub struct {
	clients    map[*client]bool
	broadcast  chan []byte
	register   chan *client
	unregister chan *client
	upgrader   websocket.Upgrader
	log        *zap.Logger
	ctx        context.Context
	cancel     context.CancelFunc
	mu         sync.RWMutex
}

// NewHub creates an event hub. Run must be called before serving.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:    make(map[*client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		log:    logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Run processes client registration and broadcasts until Stop.
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()
			h.log.Info("event client connected", zap.String("client", c.id))

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
			h.log.Info("event client disconnected", zap.String("client", c.id))

		case message := <-h.broadcast:
			h.mu.Lock()
			for c := range h.clients {
				select {
				case c.send <- message:
				default:
					close(c.send)
					delete(h.clients, c)
				}
			}
			h.mu.Unlock()

		case <-h.ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			h.mu.Unlock()
			return
		}
	}
}

// Stop shuts the hub down and drops all clients.
func (h *Hub) Stop() {
	h.cancel()
}

// HandleWebSocket upgrades an HTTP request into an event subscription.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{
		conn: conn,
		send: make(chan []byte, 256),
		id:   fmt.Sprintf("client_%d", time.Now().UnixNano()),
	}
	h.register <- c

	go c.writePump(h.log)
	go c.readPump(h)
}

// Publish broadcasts one event to all subscribers. Messages are dropped
// when the queue is full rather than blocking callers.
func (h *Hub) Publish(msgType MessageType, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.log.Warn("event payload marshal failed", zap.Error(err))
		return
	}
	message, err := json.Marshal(Message{Type: msgType, Timestamp: time.Now(), Data: data})
	if err != nil {
		return
	}
	select {
	case h.broadcast <- message:
	default:
		h.log.Warn("event queue full, dropping message", zap.String("type", string(msgType)))
	}
}

// PublishTraining broadcasts a training-completed event.
func (h *Hub) PublishTraining(event TrainingEvent) {
	h.Publish(TrainingCompleted, event)
}

// PublishPrediction broadcasts a prediction-served event.
func (h *Hub) PublishPrediction(event PredictionEvent) {
	h.Publish(PredictionServed, event)
}

// PublishStatus broadcasts a component status event.
func (h *Hub) PublishStatus(event StatusEvent) {
	h.Publish(SystemStatus, event)
}

// StartHeartbeat emits a heartbeat on the given interval until Stop.
func (h *Hub) StartHeartbeat(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				h.Publish(Heartbeat, map[string]string{"status": "alive"})
			case <-h.ctx.Done():
				return
			}
		}
	}()
}

func (c *client) writePump(log *zap.Logger) {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(30 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Debug("websocket write error", zap.Error(err))
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(30 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *client) readPump(h *Hub) {
	defer func() {
		h.unregister <- c
		c.conn.Close()
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.log.Debug("websocket read error", zap.Error(err))
			}
			return
		}
	}
}
