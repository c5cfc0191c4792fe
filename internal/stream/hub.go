package stream

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const alertChannel = "alerts:events"

// envelope wraps payloads on the redis channel so an instance can drop
// the echo of its own publishes; local clients already got them directly.
type envelope struct {
	Source  string `json:"source"`
	Payload []byte `json:"payload"`
}

// Hub fans dispatched alert events out to in-app observers. One trip per
// installation means a single broadcast topic; redis pub/sub carries events
// across instances when configured.
type Hub struct {
	id      string
	redis   *redis.Client
	clients map[*Client]struct{}
	mu      sync.RWMutex
}

type Client struct {
	Send chan []byte
}

func NewHub(redisClient *redis.Client) *Hub {
	h := &Hub{
		id:      uuid.NewString(),
		redis:   redisClient,
		clients: map[*Client]struct{}{},
	}

	if redisClient != nil {
		go h.subscribeRedis()
	}
	return h
}

func (h *Hub) Register() *Client {
	client := &Client{
		Send: make(chan []byte, 64),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client] = struct{}{}
	return client
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.Send)
	}
}

func (h *Hub) Broadcast(payload []byte) {
	h.fanOut(payload)

	if h.redis != nil {
		wrapped, err := json.Marshal(envelope{Source: h.id, Payload: payload})
		if err != nil {
			return
		}
		if err := h.redis.Publish(context.Background(), alertChannel, wrapped).Err(); err != nil {
			log.Printf("redis publish error: %v", err)
		}
	}
}

func (h *Hub) fanOut(payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		select {
		case client.Send <- payload:
		default:
		}
	}
}

func (h *Hub) subscribeRedis() {
	ctx := context.Background()
	pubsub := h.redis.Subscribe(ctx, alertChannel)
	defer pubsub.Close()

	for msg := range pubsub.Channel() {
		var env envelope
		if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
			continue
		}
		if env.Source == h.id {
			continue
		}
		h.fanOut(env.Payload)
	}
}
