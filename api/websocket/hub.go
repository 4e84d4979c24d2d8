package websocket

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"sync"

	"cosmossdk.io/log"
	"github.com/google/btree"

	apitypes "github.com/vaultshield/pools/api/types"
	"github.com/vaultshield/pools/metrics"
)

// Channel names. ChannelAll carries every ledger event; pool channels carry
// the events of a single pool.
const (
	ChannelAll        = "events"
	poolChannelPrefix = "pool:"
)

// PoolChannel returns the channel name for a pool's events
func PoolChannel(poolID uint64) string {
	return poolChannelPrefix + strconv.FormatUint(poolID, 10)
}

// validChannel reports whether a client may subscribe to channel
func validChannel(channel string) bool {
	if channel == ChannelAll {
		return true
	}
	if !strings.HasPrefix(channel, poolChannelPrefix) {
		return false
	}
	id, err := strconv.ParseUint(strings.TrimPrefix(channel, poolChannelPrefix), 10, 64)
	return err == nil && id > 0
}

// channelMatches reports whether ev is delivered on channel
func channelMatches(channel string, ev apitypes.LedgerEvent) bool {
	if channel == ChannelAll {
		return true
	}
	return ev.PoolID != 0 && channel == PoolChannel(ev.PoolID)
}

// Hub maintains the set of active clients and fans ledger events out to
// their channels. Recent events are kept in an ordered replay buffer so a
// client that reconnects can resume from the last sequence it saw.
type Hub struct {
	clients  map[*Client]bool
	channels map[string]map[*Client]bool // channel -> clients

	register    chan *Client
	unregister  chan *Client
	subscribe   chan *SubscriptionRequest
	unsubscribe chan *SubscriptionRequest

	// Replay buffer ordered by event sequence
	replay *btree.BTreeG[apitypes.LedgerEvent]

	mu      sync.RWMutex
	config  *HubConfig
	metrics *metrics.Collector
	logger  log.Logger
}

// HubConfig contains hub configuration
type HubConfig struct {
	ReplaySize       int `mapstructure:"replay-size"`
	MaxSubscriptions int `mapstructure:"max-subscriptions"`
	MessageRateLimit int `mapstructure:"message-rate-limit"` // Messages per second per client
}

// DefaultHubConfig returns default hub configuration
func DefaultHubConfig() *HubConfig {
	return &HubConfig{
		ReplaySize:       1024,
		MaxSubscriptions: 50,
		MessageRateLimit: 100,
	}
}

// SubscriptionRequest represents a subscription request. When Replay is
// set the buffered events after Since are sent before live ones.
type SubscriptionRequest struct {
	Client  *Client
	Channel string
	Since   uint64
	Replay  bool
}

// NewHub creates a new Hub
func NewHub(config *HubConfig, collector *metrics.Collector, logger log.Logger) *Hub {
	if config == nil {
		config = DefaultHubConfig()
	}

	return &Hub{
		clients:     make(map[*Client]bool),
		channels:    make(map[string]map[*Client]bool),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		subscribe:   make(chan *SubscriptionRequest, 256),
		unsubscribe: make(chan *SubscriptionRequest, 256),
		replay: btree.NewG(32, func(a, b apitypes.LedgerEvent) bool {
			return a.Sequence < b.Sequence
		}),
		config:  config,
		metrics: collector,
		logger:  logger.With("component", "ws-hub"),
	}
}

// Run starts the hub's main loop
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case req := <-h.subscribe:
			h.handleSubscription(req)

		case req := <-h.unsubscribe:
			h.handleUnsubscription(req)
		}
	}
}

// registerClient adds a new client
func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client] = true
	h.metrics.RecordWSConnection(1)
}

// unregisterClient removes a client
func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)

		for channel, clients := range h.channels {
			delete(clients, client)
			if len(clients) == 0 {
				delete(h.channels, channel)
			}
		}

		client.closeSend()
		h.metrics.RecordWSConnection(-1)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		client.closeSend()
		h.metrics.RecordWSConnection(-1)
	}
	h.clients = make(map[*Client]bool)
	h.channels = make(map[string]map[*Client]bool)
}

// handleSubscription adds the client to a channel and optionally replays
// buffered events. Events carry their sequence so a client drops any it
// receives twice around the subscription point.
func (h *Hub) handleSubscription(req *SubscriptionRequest) {
	h.mu.Lock()
	defer h.mu.Unlock()

	channel := req.Channel
	client := req.Client
	if _, ok := h.clients[client]; !ok {
		return
	}

	if _, ok := h.channels[channel]; !ok {
		h.channels[channel] = make(map[*Client]bool)
	}
	h.channels[channel][client] = true

	client.Send(encode(&WSMessage{Type: "subscribed", Channel: channel}))

	if !req.Replay {
		return
	}
	for _, ev := range h.replayLocked(channel, req.Since) {
		client.Send(encode(&WSMessage{Type: "event", Channel: channel, Data: ev}))
	}
}

// handleUnsubscription removes the client from a channel
func (h *Hub) handleUnsubscription(req *SubscriptionRequest) {
	h.mu.Lock()
	defer h.mu.Unlock()

	channel := req.Channel
	client := req.Client

	if clients, ok := h.channels[channel]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.channels, channel)
		}
	}

	if _, ok := h.clients[client]; ok {
		client.Send(encode(&WSMessage{Type: "unsubscribed", Channel: channel}))
	}
}

// Publish records committed ledger events in the replay buffer and
// delivers them to subscribers. It never blocks on slow clients.
func (h *Hub) Publish(events []apitypes.LedgerEvent) {
	h.mu.Lock()
	for _, ev := range events {
		h.replay.ReplaceOrInsert(ev)
	}
	for h.replay.Len() > h.config.ReplaySize {
		h.replay.DeleteMin()
	}
	h.mu.Unlock()

	for _, ev := range events {
		h.BroadcastToChannel(ChannelAll, ev)
		if ev.PoolID != 0 {
			h.BroadcastToChannel(PoolChannel(ev.PoolID), ev)
		}
		h.metrics.RecordWSMessage(ev.Type)
	}
}

// Replay returns buffered events on channel with a sequence above since
func (h *Hub) Replay(channel string, since uint64) []apitypes.LedgerEvent {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.replayLocked(channel, since)
}

func (h *Hub) replayLocked(channel string, since uint64) []apitypes.LedgerEvent {
	var out []apitypes.LedgerEvent
	h.replay.AscendGreaterOrEqual(apitypes.LedgerEvent{Sequence: since + 1}, func(ev apitypes.LedgerEvent) bool {
		if channelMatches(channel, ev) {
			out = append(out, ev)
		}
		return true
	})
	return out
}

// BroadcastToChannel sends an event to all clients subscribed to a channel
func (h *Hub) BroadcastToChannel(channel string, ev apitypes.LedgerEvent) {
	h.mu.RLock()
	clients, ok := h.channels[channel]
	if !ok {
		h.mu.RUnlock()
		return
	}

	// Copy so the lock is not held while sending
	clientList := make([]*Client, 0, len(clients))
	for client := range clients {
		clientList = append(clientList, client)
	}
	h.mu.RUnlock()

	data := encode(&WSMessage{Type: "event", Channel: channel, Data: ev})
	for _, client := range clientList {
		client.Send(data)
	}
}

// ============ Message Types ============

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type    string      `json:"type"`
	Channel string      `json:"channel,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func encode(msg *WSMessage) []byte {
	data, _ := json.Marshal(msg)
	return data
}

// GetClientCount returns the number of connected clients
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// GetChannelClientCount returns the number of clients in a channel
func (h *Hub) GetChannelClientCount(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if clients, ok := h.channels[channel]; ok {
		return len(clients)
	}
	return 0
}
