package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/skillswap/skillswap-backend/internal/domain"
	"github.com/skillswap/skillswap-backend/pkg/logger"
)

const redisInsertChannel = "messages:inserts"

const defaultSubscriptionBuffer = 64

// ChangeEvent insert notification for the messages table.
// Carries identifiers only; subscribers resolve the full record themselves.
type ChangeEvent struct {
	ConversationID string `json:"conversation_id"`
	MessageID      string `json:"message_id"`
	SenderID       string `json:"sender_id"`
	Origin         string `json:"origin,omitempty"`
}

// Subscription a live stream of change events for one conversation
type Subscription struct {
	conversationID string
	events         chan ChangeEvent
	lost           chan struct{}
	broker         *Broker
	closed         bool // guarded by broker.mu
}

// Events returns the event stream; it is closed by Close
func (s *Subscription) Events() <-chan ChangeEvent {
	return s.events
}

// Lost signals that at least one event was dropped because the buffer was full
func (s *Subscription) Lost() <-chan struct{} {
	return s.lost
}

// ConversationID the conversation this subscription is scoped to
func (s *Subscription) ConversationID() string {
	return s.conversationID
}

// Close unsubscribes; safe to call more than once
func (s *Subscription) Close() {
	s.broker.unsubscribe(s)
}

// Broker fans out change events to subscriptions keyed by conversation id.
// With a redis client, events are also relayed across instances.
type Broker struct {
	subs   map[string]map[*Subscription]struct{}
	buffer int

	mu          sync.RWMutex
	redisClient *redis.Client
	instanceID  string
	ctx         context.Context
	cancel      context.CancelFunc
}

// NewBroker creates a Broker; redisClient may be nil
func NewBroker(redisClient *redis.Client, buffer int) *Broker {
	if buffer <= 0 {
		buffer = defaultSubscriptionBuffer
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Broker{
		subs:        make(map[string]map[*Subscription]struct{}),
		buffer:      buffer,
		redisClient: redisClient,
		instanceID:  domain.NewID(),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Run relays events published by other instances until Stop is called
func (b *Broker) Run() {
	if b.redisClient == nil {
		<-b.ctx.Done()
		return
	}
	b.subscribeRedis()
}

// Stop shuts down the redis relay
func (b *Broker) Stop() {
	b.cancel()
}

// Subscribe opens a subscription scoped to conversationID
func (b *Broker) Subscribe(conversationID string) *Subscription {
	sub := &Subscription{
		conversationID: conversationID,
		events:         make(chan ChangeEvent, b.buffer),
		lost:           make(chan struct{}, 1),
		broker:         b,
	}

	b.mu.Lock()
	if b.subs[conversationID] == nil {
		b.subs[conversationID] = make(map[*Subscription]struct{})
	}
	b.subs[conversationID][sub] = struct{}{}
	b.mu.Unlock()

	return sub
}

func (b *Broker) unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if sub.closed {
		return
	}
	sub.closed = true
	if subs, ok := b.subs[sub.conversationID]; ok {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(b.subs, sub.conversationID)
		}
	}
	close(sub.events)
}

// Publish delivers ev to local subscribers and relays it to other instances
func (b *Broker) Publish(ctx context.Context, ev ChangeEvent) {
	b.dispatch(ev)

	if b.redisClient != nil {
		ev.Origin = b.instanceID
		data, err := json.Marshal(ev)
		if err != nil {
			return
		}
		if err := b.redisClient.Publish(ctx, redisInsertChannel, data).Err(); err != nil {
			log := logger.WithComponent("broker")
			log.Warn().Err(err).Str("conversation_id", ev.ConversationID).Msg("redis relay publish failed")
		}
	}
}

// dispatch never blocks: a full subscriber buffer drops the event and raises Lost
func (b *Broker) dispatch(ev ChangeEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subs[ev.ConversationID] {
		select {
		case sub.events <- ev:
		default:
			eventsDropped.WithLabelValues("overflow").Inc()
			select {
			case sub.lost <- struct{}{}:
			default:
			}
		}
	}
}

// subscribeRedis listens for inserts relayed by other instances
func (b *Broker) subscribeRedis() {
	pubsub := b.redisClient.Subscribe(b.ctx, redisInsertChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var ev ChangeEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				continue
			}
			// own publishes were already dispatched locally
			if ev.Origin == b.instanceID {
				continue
			}
			b.dispatch(ev)
		case <-b.ctx.Done():
			return
		}
	}
}

// SubscriberCount number of live subscriptions for conversationID
func (b *Broker) SubscriberCount(conversationID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[conversationID])
}
