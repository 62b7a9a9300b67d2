package ws

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/skillswap/skillswap-backend/internal/realtime"
	"github.com/skillswap/skillswap-backend/internal/service"
	"github.com/skillswap/skillswap-backend/pkg/logger"
)

// Config tunes gateway connections
type Config struct {
	RequestTimeout  time.Duration // bound on each frame's service calls
	FramesPerSecond int           // inbound frame rate per socket
	Feed            realtime.Options
}

func (c Config) withDefaults() Config {
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 10 * time.Second
	}
	if c.FramesPerSecond <= 0 {
		c.FramesPerSecond = 5
	}
	return c
}

// Hub tracks the messaging gateway's connections and their dependencies
type Hub struct {
	// Registered clients grouped by user ID
	clients map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client

	broker        *realtime.Broker
	conversations service.ConversationService
	messages      service.MessageService
	cfg           Config

	mu     sync.RWMutex
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	log    zerolog.Logger
}

// NewHub creates a new Hub
func NewHub(broker *realtime.Broker, conversations service.ConversationService, messages service.MessageService, cfg Config) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:       make(map[string]map[*Client]bool),
		register:      make(chan *Client),
		unregister:    make(chan *Client),
		broker:        broker,
		conversations: conversations,
		messages:      messages,
		cfg:           cfg.withDefaults(),
		ctx:           ctx,
		cancel:        cancel,
		done:          make(chan struct{}),
		log:           logger.WithComponent("ws_hub"),
	}
}

// Register adds a client to the hub; after Stop the client is shut down instead
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.ctx.Done():
		client.shutdown()
	}
}

// Unregister removes a client; safe after Stop
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.userID] == nil {
				h.clients[client.userID] = make(map[*Client]bool)
			}
			h.clients[client.userID][client] = true
			h.mu.Unlock()
			connectionsActive.Inc()

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.clients[client.userID]; ok {
				if _, ok := clients[client]; ok {
					delete(clients, client)
					connectionsActive.Dec()
					if len(clients) == 0 {
						delete(h.clients, client.userID)
					}
				}
			}
			h.mu.Unlock()

		case <-h.ctx.Done():
			h.mu.Lock()
			for _, clients := range h.clients {
				for client := range clients {
					client.shutdown()
					connectionsActive.Dec()
				}
			}
			h.clients = make(map[string]map[*Client]bool)
			h.mu.Unlock()
			h.log.Info().Msg("hub stopped")
			return
		}
	}
}

// ClientCount returns the number of open connections for userID
func (h *Hub) ClientCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// Stop closes every connection and ends Run
func (h *Hub) Stop() {
	h.cancel()
}
