package realtime

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/skillswap/skillswap-backend/internal/common"
	"github.com/skillswap/skillswap-backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	mu           sync.Mutex
	messages     map[string]*domain.Message
	failures     map[string]int
	resolveCalls map[string]int
	readCalls    []string
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		messages:     make(map[string]*domain.Message),
		failures:     make(map[string]int),
		resolveCalls: make(map[string]int),
	}
}

func (s *fakeSource) add(id, convID, sender string) *domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := &domain.Message{ID: id, ConversationID: convID, SenderID: sender, Content: "content " + id}
	s.messages[id] = m
	return m
}

func (s *fakeSource) GetMessage(_ context.Context, id string) (*domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resolveCalls[id]++
	if s.failures[id] > 0 {
		s.failures[id]--
		return nil, common.ErrPersistence
	}
	m, ok := s.messages[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return m, nil
}

func (s *fakeSource) MarkMessagesAsRead(_ context.Context, _ domain.Viewer, conversationID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readCalls = append(s.readCalls, conversationID)
	return 1, nil
}

func (s *fakeSource) reads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.readCalls)
}

func (s *fakeSource) resolves(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolveCalls[id]
}

func testOptions() Options {
	return Options{Buffer: 8, ResolveRetries: 2, RetryInterval: time.Millisecond}
}

func next(t *testing.T, ch <-chan Delivery) Delivery {
	t.Helper()
	select {
	case d, ok := <-ch:
		require.True(t, ok, "delivery channel closed")
		return d
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for delivery")
		return Delivery{}
	}
}

func expectNone(t *testing.T, ch <-chan Delivery) {
	t.Helper()
	select {
	case d, ok := <-ch:
		if ok {
			t.Fatalf("unexpected delivery: %+v", d)
		}
	case <-time.After(50 * time.Millisecond):
	}
}

func publish(b *Broker, m *domain.Message) {
	b.Publish(context.Background(), ChangeEvent{ConversationID: m.ConversationID, MessageID: m.ID, SenderID: m.SenderID})
}

func TestBridge_AttachRequiresAuthenticatedViewer(t *testing.T) {
	bridge := NewBridge(NewBroker(nil, 8), newFakeSource(), domain.Anonymous{}, testOptions())

	feed, err := bridge.Attach("c1")
	assert.Nil(t, feed)
	assert.ErrorIs(t, err, common.ErrUnauthenticated)
	assert.Equal(t, Detached, bridge.State())
}

func TestBridge_ScopedToConversation(t *testing.T) {
	broker := NewBroker(nil, 8)
	source := newFakeSource()
	bridge := NewBridge(broker, source, domain.Authenticated{ID: "u1"}, testOptions())
	defer bridge.Detach()

	feed, err := bridge.Attach("c1")
	require.NoError(t, err)
	feed.Prime(nil)
	assert.Equal(t, Attached, bridge.State())

	other := source.add("m-c2", "c2", "u2")
	mine := source.add("m-c1", "c1", "u2")
	publish(broker, other)
	publish(broker, mine)

	d := next(t, feed.Deliveries())
	assert.Equal(t, DeliveryMessage, d.Kind)
	assert.Equal(t, "m-c1", d.Message.ID)
	expectNone(t, feed.Deliveries())
	assert.Zero(t, source.resolves("m-c2"))
}

func TestBridge_DedupAgainstHistoryAndRepeats(t *testing.T) {
	broker := NewBroker(nil, 8)
	source := newFakeSource()
	bridge := NewBridge(broker, source, domain.Authenticated{ID: "u1"}, testOptions())
	defer bridge.Detach()

	loaded := source.add("m1", "c1", "u2")
	fresh := source.add("m2", "c1", "u2")

	feed, err := bridge.Attach("c1")
	require.NoError(t, err)

	// the history race: m1 arrives on the feed and in the loaded history
	publish(broker, loaded)
	feed.Prime([]*domain.Message{loaded})

	publish(broker, fresh)
	publish(broker, fresh)

	d := next(t, feed.Deliveries())
	assert.Equal(t, "m2", d.Message.ID)
	expectNone(t, feed.Deliveries())
}

func TestBridge_BuffersUntilPrimed(t *testing.T) {
	broker := NewBroker(nil, 8)
	source := newFakeSource()
	bridge := NewBridge(broker, source, domain.Authenticated{ID: "u1"}, testOptions())
	defer bridge.Detach()

	feed, err := bridge.Attach("c1")
	require.NoError(t, err)

	first := source.add("m1", "c1", "u2")
	second := source.add("m2", "c1", "u1")
	publish(broker, first)
	publish(broker, second)
	expectNone(t, feed.Deliveries())

	feed.Prime(nil)
	assert.Equal(t, "m1", next(t, feed.Deliveries()).Message.ID)
	assert.Equal(t, "m2", next(t, feed.Deliveries()).Message.ID)
}

func TestBridge_MarksReadOnlyForForeignSenders(t *testing.T) {
	broker := NewBroker(nil, 8)
	source := newFakeSource()
	bridge := NewBridge(broker, source, domain.Authenticated{ID: "u1"}, testOptions())
	defer bridge.Detach()

	feed, err := bridge.Attach("c1")
	require.NoError(t, err)
	feed.Prime(nil)

	publish(broker, source.add("own", "c1", "u1"))
	next(t, feed.Deliveries())
	assert.Zero(t, source.reads())

	publish(broker, source.add("theirs", "c1", "u2"))
	next(t, feed.Deliveries())
	require.Eventually(t, func() bool { return source.reads() == 1 }, time.Second, 5*time.Millisecond)
}

func TestBridge_DetachStopsDelivery(t *testing.T) {
	broker := NewBroker(nil, 8)
	source := newFakeSource()
	bridge := NewBridge(broker, source, domain.Authenticated{ID: "u1"}, testOptions())

	feed, err := bridge.Attach("c1")
	require.NoError(t, err)
	feed.Prime(nil)
	assert.Equal(t, 1, broker.SubscriberCount("c1"))

	bridge.Detach()
	bridge.Detach()

	assert.Equal(t, Detached, bridge.State())
	assert.Nil(t, bridge.Current())
	assert.Zero(t, broker.SubscriberCount("c1"))

	publish(broker, source.add("late", "c1", "u2"))
	_, ok := <-feed.Deliveries()
	assert.False(t, ok)
	assert.Zero(t, source.resolves("late"))
}

func TestBridge_AttachSwitchesFeeds(t *testing.T) {
	broker := NewBroker(nil, 8)
	source := newFakeSource()
	bridge := NewBridge(broker, source, domain.Authenticated{ID: "u1"}, testOptions())
	defer bridge.Detach()

	first, err := bridge.Attach("c1")
	require.NoError(t, err)
	first.Prime(nil)

	second, err := bridge.Attach("c2")
	require.NoError(t, err)
	second.Prime(nil)

	_, ok := <-first.Deliveries()
	assert.False(t, ok)
	assert.Zero(t, broker.SubscriberCount("c1"))
	assert.Equal(t, 1, broker.SubscriberCount("c2"))
	assert.Equal(t, "c2", bridge.Current().ConversationID())

	publish(broker, source.add("m1", "c1", "u2"))
	publish(broker, source.add("m2", "c2", "u2"))
	assert.Equal(t, "m2", next(t, second.Deliveries()).Message.ID)
}

func TestBridge_ResolveRetriesThenSucceeds(t *testing.T) {
	broker := NewBroker(nil, 8)
	source := newFakeSource()
	bridge := NewBridge(broker, source, domain.Authenticated{ID: "u1"}, testOptions())
	defer bridge.Detach()

	feed, err := bridge.Attach("c1")
	require.NoError(t, err)
	feed.Prime(nil)

	m := source.add("m1", "c1", "u1")
	source.mu.Lock()
	source.failures["m1"] = 2
	source.mu.Unlock()

	publish(broker, m)
	d := next(t, feed.Deliveries())
	assert.Equal(t, DeliveryMessage, d.Kind)
	assert.Equal(t, 3, source.resolves("m1"))
}

func TestBridge_ResolveFailureSignalsOutOfSync(t *testing.T) {
	broker := NewBroker(nil, 8)
	source := newFakeSource()
	bridge := NewBridge(broker, source, domain.Authenticated{ID: "u1"}, testOptions())
	defer bridge.Detach()

	feed, err := bridge.Attach("c1")
	require.NoError(t, err)
	feed.Prime(nil)

	broker.Publish(context.Background(), ChangeEvent{ConversationID: "c1", MessageID: "ghost", SenderID: "u2"})

	d := next(t, feed.Deliveries())
	assert.Equal(t, DeliveryOutOfSync, d.Kind)
	assert.Equal(t, "c1", d.ConversationID)
	assert.NotEmpty(t, d.Reason)
	assert.Equal(t, 3, source.resolves("ghost"))

	// the feed survives and keeps delivering
	publish(broker, source.add("m1", "c1", "u2"))
	assert.Equal(t, "m1", next(t, feed.Deliveries()).Message.ID)
}

func TestBroker_OverflowRaisesLost(t *testing.T) {
	broker := NewBroker(nil, 1)
	sub := broker.Subscribe("c1")
	defer sub.Close()

	broker.Publish(context.Background(), ChangeEvent{ConversationID: "c1", MessageID: "a"})
	broker.Publish(context.Background(), ChangeEvent{ConversationID: "c1", MessageID: "b"})

	select {
	case <-sub.Lost():
	default:
		t.Fatal("expected lost signal")
	}
	ev := <-sub.Events()
	assert.Equal(t, "a", ev.MessageID)
}

func TestBroker_CloseIsIdempotent(t *testing.T) {
	broker := NewBroker(nil, 4)
	sub := broker.Subscribe("c1")
	sub.Close()
	sub.Close()

	_, ok := <-sub.Events()
	assert.False(t, ok)
	assert.Zero(t, broker.SubscriberCount("c1"))

	// publishing to a conversation with no subscribers is a no-op
	broker.Publish(context.Background(), ChangeEvent{ConversationID: "c1", MessageID: "x"})
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "ATTACHED", Attached.String())
	assert.Equal(t, "DETACHED", Detached.String())
}
