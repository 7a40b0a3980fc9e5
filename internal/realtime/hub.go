package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/comunidad-app/backend/internal/analytics"
	"github.com/comunidad-app/backend/internal/metrics"
	"github.com/comunidad-app/backend/internal/models"
)

const (
	// AllRoom receives every change to the collection.
	AllRoom = "*"

	outboxSize = 256
)

// Event names pushed to clients.
const (
	EventCreated      = "event_created"
	EventUpdated      = "event_updated"
	EventDeleted      = "event_deleted"
	CollectionCleared = "collection_cleared"
	CollectionReplace = "collection_replaced"
	ViewerCount       = "viewer_count"
	Pong              = "pong"
)

// EventPayload is sent with event_created and event_updated.
type EventPayload struct {
	Event *models.Event     `json:"event"`
	Stats models.EventStats `json:"stats"`
}

// Hub maintains room -> set of connections and broadcasts messages. A room is an event id, or
// AllRoom. With Redis configured, changes are published and the subscriber callback does the
// local broadcast, so every instance delivers exactly once.
type Hub struct {
	rooms    map[string]map[string]*Client
	subs     map[string]func()
	mu       sync.RWMutex
	logger   *zap.Logger
	redis    RedisPublisher
	redisSub RedisSubscriber
	outbox   chan outMsg
}

type outMsg struct {
	room    string
	event   string
	payload []byte
}

// RedisPublisher is the interface for publishing to Redis (for cross-instance broadcast).
type RedisPublisher interface {
	PublishRoom(ctx context.Context, room, event string, payload []byte) error
}

// RedisSubscriber subscribes to room channels and invokes handler for incoming events.
type RedisSubscriber interface {
	SubscribeRoom(room string, handler func(event string, payload []byte)) (cancel func(), err error)
}

// NewHub creates a new WebSocket hub. redisPub and redisSub may be nil for a single instance.
func NewHub(logger *zap.Logger, redisPub RedisPublisher, redisSub RedisSubscriber) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		rooms:    make(map[string]map[string]*Client),
		subs:     make(map[string]func()),
		logger:   logger,
		redis:    redisPub,
		redisSub: redisSub,
		outbox:   make(chan outMsg, outboxSize),
	}
}

// Run delivers queued change notifications until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case m := <-h.outbox:
			h.deliver(ctx, m)
		}
	}
}

// OnEventChange implements events.Listener. It only queues; Run does the delivery.
func (h *Hub) OnEventChange(_ context.Context, ch models.EventChange) {
	switch ch.Op {
	case models.ChangeCreated, models.ChangeUpdated:
		name := EventUpdated
		if ch.Op == models.ChangeCreated {
			name = EventCreated
		}
		data, err := json.Marshal(EventPayload{Event: ch.Event, Stats: analytics.Compute(ch.Event)})
		if err != nil {
			h.logger.Error("marshal event change", zap.Error(err))
			return
		}
		h.enqueue(ch.EventID, name, data)
		h.enqueue(AllRoom, name, data)
	case models.ChangeDeleted:
		data, _ := json.Marshal(map[string]string{"eventId": ch.EventID})
		h.enqueue(ch.EventID, EventDeleted, data)
		h.enqueue(AllRoom, EventDeleted, data)
	case models.ChangeCleared:
		h.enqueue(AllRoom, CollectionCleared, nil)
	case models.ChangeReplaced:
		h.enqueue(AllRoom, CollectionReplace, nil)
	}
}

func (h *Hub) enqueue(room, event string, payload []byte) {
	select {
	case h.outbox <- outMsg{room: room, event: event, payload: payload}:
	default:
		h.logger.Warn("realtime outbox full, dropping change", zap.String("room", room), zap.String("event", event))
	}
}

func (h *Hub) deliver(ctx context.Context, m outMsg) {
	if h.redis != nil {
		if err := h.redis.PublishRoom(ctx, m.room, m.event, m.payload); err != nil {
			h.logger.Warn("redis publish failed, delivering locally", zap.Error(err), zap.String("room", m.room))
		} else {
			return
		}
	}
	h.Broadcast(m.room, m.event, json.RawMessage(m.payload))
}

// Register adds a client to its room. Starts the Redis subscription for the room if first client.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	if h.rooms[c.Room] == nil {
		h.rooms[c.Room] = make(map[string]*Client)
		if h.redisSub != nil {
			room := c.Room
			cancel, err := h.redisSub.SubscribeRoom(room, func(event string, payload []byte) {
				h.Broadcast(room, event, json.RawMessage(payload))
			})
			if err != nil {
				h.logger.Warn("redis subscribe failed", zap.Error(err), zap.String("room", room))
			} else {
				h.subs[room] = cancel
			}
		}
	}
	h.rooms[c.Room][c.ID] = c
	count := len(h.rooms[c.Room])
	h.mu.Unlock()

	metrics.ViewerJoined()
	h.Broadcast(c.Room, ViewerCount, map[string]int{"count": count})
	h.logger.Debug("client joined room", zap.String("client_id", c.ID), zap.String("room", c.Room))
}

// Unregister removes a client from its room and closes its send channel. Cancels the Redis subscription when the last client leaves.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	m, ok := h.rooms[c.Room]
	if !ok {
		h.mu.Unlock()
		return
	}
	if _, ok := m[c.ID]; !ok {
		h.mu.Unlock()
		return
	}
	delete(m, c.ID)
	close(c.send)
	count := len(m)
	if count == 0 {
		delete(h.rooms, c.Room)
		if cancel, ok := h.subs[c.Room]; ok {
			cancel()
			delete(h.subs, c.Room)
		}
	}
	h.mu.Unlock()

	metrics.ViewerLeft()
	if count > 0 {
		h.Broadcast(c.Room, ViewerCount, map[string]int{"count": count})
	}
	h.logger.Debug("client left room", zap.String("client_id", c.ID), zap.String("room", c.Room))
}

// Broadcast sends a message to all local clients in room.
func (h *Hub) Broadcast(room, event string, payload any) {
	msg, ok := envelope(event, payload)
	if !ok {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.rooms[room] {
		select {
		case c.send <- msg:
		default:
			// buffer full, skip
		}
	}
}

// Viewers returns the number of local clients in room.
func (h *Hub) Viewers(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

func envelope(event string, payload any) (WSMessage, bool) {
	var data []byte
	switch v := payload.(type) {
	case nil:
	case []byte:
		data = v
	case json.RawMessage:
		data = v
	default:
		var err error
		if data, err = json.Marshal(payload); err != nil {
			return WSMessage{}, false
		}
	}
	if len(data) == 0 {
		data = nil
	}
	return WSMessage{Event: event, Data: data}, true
}
