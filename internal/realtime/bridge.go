package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/skillswap/skillswap-backend/internal/common"
	"github.com/skillswap/skillswap-backend/internal/domain"
	"github.com/skillswap/skillswap-backend/pkg/logger"
)

// State of a bridge view
type State int

const (
	Detached State = iota
	Attached
)

func (s State) String() string {
	if s == Attached {
		return "ATTACHED"
	}
	return "DETACHED"
}

// DeliveryKind discriminates Delivery
type DeliveryKind string

const (
	DeliveryMessage   DeliveryKind = "message"
	DeliveryOutOfSync DeliveryKind = "out_of_sync"
)

// Delivery one item pushed to the view
type Delivery struct {
	Kind           DeliveryKind
	ConversationID string
	Message        *domain.Message // DeliveryMessage only
	Reason         string          // DeliveryOutOfSync only
}

// MessageSource resolves change events and clears unread state
type MessageSource interface {
	GetMessage(ctx context.Context, messageID string) (*domain.Message, error)
	MarkMessagesAsRead(ctx context.Context, viewer domain.Viewer, conversationID string) (int64, error)
}

// Options tunes feeds created by a Bridge
type Options struct {
	Buffer         int           // delivery channel capacity
	ResolveRetries int           // retries after the first resolve attempt
	RetryInterval  time.Duration // initial backoff interval
}

func (o Options) withDefaults() Options {
	if o.Buffer <= 0 {
		o.Buffer = defaultSubscriptionBuffer
	}
	if o.ResolveRetries < 0 {
		o.ResolveRetries = 0
	}
	if o.RetryInterval <= 0 {
		o.RetryInterval = 100 * time.Millisecond
	}
	return o
}

// Bridge owns at most one live feed for one viewer's open conversation view
type Bridge struct {
	broker *Broker
	source MessageSource
	viewer domain.Viewer
	opts   Options

	mu   sync.Mutex
	feed *Feed
}

// NewBridge creates a detached bridge for viewer
func NewBridge(broker *Broker, source MessageSource, viewer domain.Viewer, opts Options) *Bridge {
	return &Bridge{
		broker: broker,
		source: source,
		viewer: viewer,
		opts:   opts.withDefaults(),
	}
}

// State reports whether a feed is attached
func (b *Bridge) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.feed != nil {
		return Attached
	}
	return Detached
}

// Current returns the attached feed or nil
func (b *Bridge) Current() *Feed {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.feed
}

// Attach detaches any current feed, then subscribes to conversationID.
// The feed buffers events until Prime is called with the loaded history,
// so callers attach first and load history second.
func (b *Bridge) Attach(conversationID string) (*Feed, error) {
	viewerID, ok := domain.UserID(b.viewer)
	if !ok {
		return nil, common.ErrUnauthenticated
	}
	if conversationID == "" {
		return nil, common.ErrInvalidInput
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.detachLocked()

	ctx, cancel := context.WithCancel(context.Background())
	f := &Feed{
		conversationID: conversationID,
		viewerID:       viewerID,
		viewer:         b.viewer,
		source:         b.source,
		opts:           b.opts,
		sub:            b.broker.Subscribe(conversationID),
		out:            make(chan Delivery, b.opts.Buffer),
		prime:          make(chan []string, 1),
		cancel:         cancel,
		done:           make(chan struct{}),
		log: logger.WithComponent("bridge").With().
			Str("conversation_id", conversationID).
			Str("user_id", viewerID).
			Logger(),
	}
	b.feed = f
	feedsAttached.Inc()

	go f.run(ctx)
	return f, nil
}

// Detach tears down the current feed. When it returns no further deliveries
// happen and the feed's delivery channel is closed. Idempotent.
func (b *Bridge) Detach() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.detachLocked()
}

func (b *Bridge) detachLocked() {
	f := b.feed
	if f == nil {
		return
	}
	b.feed = nil
	f.stop()
	feedsAttached.Dec()
}

// Feed a live delivery stream for one conversation
type Feed struct {
	conversationID string
	viewerID       string
	viewer         domain.Viewer
	source         MessageSource
	opts           Options
	sub            *Subscription

	out       chan Delivery
	prime     chan []string
	primeOnce sync.Once
	cancel    context.CancelFunc
	done      chan struct{}
	log       zerolog.Logger
}

// ConversationID the conversation this feed is scoped to
func (f *Feed) ConversationID() string {
	return f.conversationID
}

// Deliveries returns the delivery stream, closed on detach
func (f *Feed) Deliveries() <-chan Delivery {
	return f.out
}

// Prime seeds de-duplication with already loaded history and releases
// buffered events. Only the first call has effect.
func (f *Feed) Prime(history []*domain.Message) {
	f.primeOnce.Do(func() {
		ids := make([]string, 0, len(history))
		for _, m := range history {
			if m != nil {
				ids = append(ids, m.ID)
			}
		}
		f.prime <- ids
	})
}

// stop cancels the feed and discards anything still buffered, so a reader
// sees a closed, empty channel after detach
func (f *Feed) stop() {
	f.cancel()
	f.sub.Close()
	<-f.done
	for range f.out {
	}
}

func (f *Feed) run(ctx context.Context) {
	defer close(f.done)
	defer close(f.out)

	seen := make(map[string]struct{})
	var pending []ChangeEvent
	primed := false

	for {
		select {
		case <-ctx.Done():
			return

		case ids := <-f.prime:
			for _, id := range ids {
				seen[id] = struct{}{}
			}
			primed = true
			for _, ev := range pending {
				if !f.handle(ctx, ev, seen) {
					return
				}
			}
			pending = nil

		case ev, ok := <-f.sub.Events():
			if !ok {
				return
			}
			if !primed {
				if len(pending) >= f.opts.Buffer {
					eventsDropped.WithLabelValues("overflow").Inc()
					if !f.outOfSync(ctx, "buffer overflow before history load") {
						return
					}
					continue
				}
				pending = append(pending, ev)
				continue
			}
			if !f.handle(ctx, ev, seen) {
				return
			}

		case <-f.sub.Lost():
			if !f.outOfSync(ctx, "feed overflow") {
				return
			}
		}
	}
}

// handle resolves and delivers one event; false means the feed is stopping
func (f *Feed) handle(ctx context.Context, ev ChangeEvent, seen map[string]struct{}) bool {
	if ev.ConversationID != f.conversationID {
		eventsDropped.WithLabelValues("foreign").Inc()
		return true
	}
	if _, dup := seen[ev.MessageID]; dup {
		eventsDropped.WithLabelValues("duplicate").Inc()
		return true
	}

	msg, err := f.resolve(ctx, ev.MessageID)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		eventsDropped.WithLabelValues("resolve_failed").Inc()
		f.log.Error().Err(err).Str("message_id", ev.MessageID).Msg("resolve change event failed")
		return f.outOfSync(ctx, "message could not be loaded")
	}
	if msg.ConversationID != f.conversationID {
		eventsDropped.WithLabelValues("foreign").Inc()
		return true
	}

	seen[msg.ID] = struct{}{}
	if !f.emit(ctx, Delivery{Kind: DeliveryMessage, ConversationID: f.conversationID, Message: msg}) {
		return false
	}
	eventsDelivered.Inc()

	if msg.SenderID != f.viewerID {
		if _, err := f.source.MarkMessagesAsRead(ctx, f.viewer, f.conversationID); err != nil && ctx.Err() == nil {
			f.log.Warn().Err(err).Msg("mark read on live message failed")
		}
	}
	return true
}

// resolve loads the full record, retrying with exponential backoff
func (f *Feed) resolve(ctx context.Context, messageID string) (*domain.Message, error) {
	var msg *domain.Message
	operation := func() error {
		m, err := f.source.GetMessage(ctx, messageID)
		if err != nil {
			return err
		}
		msg = m
		return nil
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = f.opts.RetryInterval
	eb.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(f.opts.ResolveRetries)), ctx)

	if err := backoff.Retry(operation, policy); err != nil {
		return nil, err
	}
	return msg, nil
}

func (f *Feed) outOfSync(ctx context.Context, reason string) bool {
	return f.emit(ctx, Delivery{Kind: DeliveryOutOfSync, ConversationID: f.conversationID, Reason: reason})
}

func (f *Feed) emit(ctx context.Context, d Delivery) bool {
	select {
	case f.out <- d:
		return true
	case <-ctx.Done():
		return false
	}
}
