package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/catenahq/bridge-backend/internal/bridge"
	"github.com/catenahq/bridge-backend/internal/metrics"
)

// Topics pushed to clients. Transfer updates additionally go out on a
// per-wallet topic so a wallet UI only sees its own transfers.
const (
	TopicTransfers = "bridge:transfers"
	TopicHealth    = "bridge:health"
)

// WalletTopic is the per-wallet transfer update topic.
func WalletTopic(address string) string {
	return fmt.Sprintf("bridge:wallet:%s", strings.ToLower(address))
}

// Hub fans transfer status updates out to subscribed WebSocket clients.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	publish    chan outbound
	logger     *zap.SugaredLogger
	metrics    *metrics.Metrics
	upgrader   websocket.Upgrader
	mu         sync.RWMutex
}

type outbound struct {
	topics  []string
	payload []byte
}

type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	send       chan []byte
	topics     map[string]bool
	address    string // wallet address for per-wallet updates
	lastActive time.Time
	mu         sync.Mutex
}

type Message struct {
	Type      string          `json:"type"`
	Topic     string          `json:"topic"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

type WSSubscriptionRequest struct {
	Type    string   `json:"type"`
	Topics  []string `json:"topics"`
	Address string   `json:"address,omitempty"`
}

func NewHub(allowedOrigins []string, logger *zap.SugaredLogger, metrics *metrics.Metrics) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		publish:    make(chan outbound, 64),
		logger:     logger,
		metrics:    metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					// Allow same-origin requests (when Origin header is empty)
					return true
				}
				for _, allowed := range allowedOrigins {
					if origin == allowed {
						return true
					}
				}
				return false
			},
		},
	}
}

func (h *Hub) Run(ctx context.Context) {
	// Start client cleanup routine
	go h.startClientCleanup(ctx)

	for {
		select {
		case <-ctx.Done():
			h.logger.Infow("WebSocket hub shutting down")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.metrics.IncrementConnections(ctx)
			h.logger.Debugw("Client registered", "address", client.address)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			h.metrics.DecrementConnections(ctx)
			h.logger.Debugw("Client unregistered", "address", client.address)

		case msg := <-h.publish:
			h.broadcastToClients(msg.payload, msg.topics)
		}
	}
}

// PublishTransaction pushes a transfer snapshot to transfer subscribers and to
// the owning wallet's topic. Non-blocking; updates are dropped when the hub's
// buffer is full since the next poll re-publishes current state anyway.
func (h *Hub) PublishTransaction(tx bridge.Transaction) {
	data, err := json.Marshal(tx)
	if err != nil {
		h.logger.Errorw("Failed to marshal transfer update", "id", tx.ID, "error", err)
		return
	}
	msg := Message{
		Type:      "transfer_update",
		Topic:     TopicTransfers,
		Data:      data,
		Timestamp: time.Now().Unix(),
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.Errorw("Failed to marshal WebSocket message", "error", err)
		return
	}

	topics := []string{TopicTransfers}
	if tx.Recipient != "" {
		topics = append(topics, WalletTopic(tx.Recipient))
	}

	select {
	case h.publish <- outbound{topics: topics, payload: payload}:
	default:
		h.logger.Warnw("WebSocket publish buffer full; dropping update", "id", tx.ID)
	}
}

func (h *Hub) broadcastToClients(message []byte, topics []string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		if !client.isSubscribedAny(topics) {
			continue
		}
		select {
		case client.send <- message:
		default:
			// Client is slow or disconnected
			delete(h.clients, client)
			close(client.send)
		}
	}
}

func (h *Hub) startClientCleanup(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.cleanupInactiveClients()
		}
	}
}

func (h *Hub) cleanupInactiveClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	cutoff := time.Now().Add(-60 * time.Second) // 1 minute timeout

	for client := range h.clients {
		client.mu.Lock()
		inactive := client.lastActive.Before(cutoff)
		client.mu.Unlock()
		if inactive {
			delete(h.clients, client)
			close(client.send)
			h.logger.Debugw("Cleaned up inactive client", "address", client.address)
		}
	}
}

// WebSocket endpoint handler
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Errorw("WebSocket upgrade failed", "error", err)
		return
	}

	client := &Client{
		hub:        h,
		conn:       conn,
		send:       make(chan []byte, 256),
		topics:     make(map[string]bool),
		lastActive: time.Now(),
	}

	client.hub.register <- client

	// Start goroutines for reading and writing
	go client.writePump()
	go client.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Errorw("WebSocket error", "error", err)
			}
			break
		}

		c.mu.Lock()
		c.lastActive = time.Now()
		c.mu.Unlock()
		c.handleMessage(message)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Add queued messages to the current message
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleMessage(message []byte) {
	var sub WSSubscriptionRequest
	if err := json.Unmarshal(message, &sub); err != nil {
		c.hub.logger.Warnw("Invalid subscription message", "error", err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	switch sub.Type {
	case "subscribe":
		for _, topic := range sub.Topics {
			c.topics[topic] = true
		}
		if sub.Address != "" {
			c.address = sub.Address
			c.topics[WalletTopic(sub.Address)] = true
		}
		c.hub.logger.Debugw("Client subscribed to topics", "topics", sub.Topics, "address", sub.Address)

	case "unsubscribe":
		for _, topic := range sub.Topics {
			delete(c.topics, topic)
		}
		c.hub.logger.Debugw("Client unsubscribed from topics", "topics", sub.Topics)
	}
}

func (c *Client) isSubscribedAny(topics []string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, topic := range topics {
		if c.topics[topic] {
			return true
		}
	}
	return false
}
