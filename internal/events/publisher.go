package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/skillswap/skillswap-backend/internal/domain"
	"github.com/skillswap/skillswap-backend/pkg/logger"
)

// Event types
const (
	TypeMessageSent         = "message.sent"
	TypeConversationCreated = "conversation.created"
)

// Event integration event envelope written to the outbox topic
type Event struct {
	ID             string      `json:"id"`
	Type           string      `json:"type"`
	ConversationID string      `json:"conversation_id"`
	OccurredAt     time.Time   `json:"occurred_at"`
	Payload        interface{} `json:"payload"`
}

// MessageSentPayload body of message.sent
type MessageSentPayload struct {
	MessageID string  `json:"message_id"`
	SenderID  string  `json:"sender_id"`
	ReplyTo   *string `json:"reply_to,omitempty"`
	Length    int     `json:"length"`
}

// ConversationCreatedPayload body of conversation.created
type ConversationCreatedPayload struct {
	Participant1 string `json:"participant_1"`
	Participant2 string `json:"participant_2"`
}

// NewMessageSent builds a message.sent event; content is not exported
func NewMessageSent(msg *domain.Message) Event {
	return Event{
		ID:             domain.NewID(),
		Type:           TypeMessageSent,
		ConversationID: msg.ConversationID,
		OccurredAt:     msg.CreatedAt,
		Payload: MessageSentPayload{
			MessageID: msg.ID,
			SenderID:  msg.SenderID,
			ReplyTo:   msg.ReplyTo,
			Length:    len([]rune(msg.Content)),
		},
	}
}

// NewConversationCreated builds a conversation.created event
func NewConversationCreated(conv *domain.Conversation) Event {
	return Event{
		ID:             domain.NewID(),
		Type:           TypeConversationCreated,
		ConversationID: conv.ID,
		OccurredAt:     conv.CreatedAt,
		Payload: ConversationCreatedPayload{
			Participant1: conv.Participant1,
			Participant2: conv.Participant2,
		},
	}
}

// Publisher writes integration events
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// KafkaPublisher async writer keyed by conversation id, so events of one
// conversation stay on one partition in order
type KafkaPublisher struct {
	writer *kafka.Writer
	topic  string
}

// NewKafkaPublisher creates a publisher for topic
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	log := logger.WithComponent("events")
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
		Async:        true,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				log.Error().Err(err).Int("count", len(messages)).Msg("kafka write failed")
			}
		},
	}
	return &KafkaPublisher{writer: w, topic: topic}
}

// Publish encodes ev and hands it to the async writer
func (p *KafkaPublisher) Publish(ctx context.Context, ev Event) error {
	msg, err := encode(ev)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, msg)
}

// Close flushes pending writes
func (p *KafkaPublisher) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}

func encode(ev Event) (kafka.Message, error) {
	b, err := json.Marshal(ev)
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{
		Key:   []byte(ev.ConversationID),
		Value: b,
		Time:  ev.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(ev.Type)},
		},
	}, nil
}

// NoopPublisher used when kafka is disabled
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, Event) error { return nil }
func (NoopPublisher) Close() error                         { return nil }
