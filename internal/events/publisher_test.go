package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/skillswap/skillswap-backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode_MessageSent(t *testing.T) {
	at := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	reply := "m0"
	msg := &domain.Message{
		ID:             "m1",
		ConversationID: "c1",
		SenderID:       "u1",
		Content:        "héllo",
		CreatedAt:      at,
		ReplyTo:        &reply,
	}

	km, err := encode(NewMessageSent(msg))
	require.NoError(t, err)

	assert.Equal(t, []byte("c1"), km.Key)
	assert.Equal(t, at, km.Time)
	require.Len(t, km.Headers, 1)
	assert.Equal(t, "event_type", km.Headers[0].Key)
	assert.Equal(t, TypeMessageSent, string(km.Headers[0].Value))

	var decoded struct {
		Type           string `json:"type"`
		ConversationID string `json:"conversation_id"`
		Payload        struct {
			MessageID string `json:"message_id"`
			SenderID  string `json:"sender_id"`
			ReplyTo   string `json:"reply_to"`
			Length    int    `json:"length"`
			Content   string `json:"content"`
		} `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(km.Value, &decoded))
	assert.Equal(t, TypeMessageSent, decoded.Type)
	assert.Equal(t, "c1", decoded.ConversationID)
	assert.Equal(t, "m1", decoded.Payload.MessageID)
	assert.Equal(t, "u1", decoded.Payload.SenderID)
	assert.Equal(t, "m0", decoded.Payload.ReplyTo)
	assert.Equal(t, 5, decoded.Payload.Length)
	assert.Empty(t, decoded.Payload.Content)
}

func TestEncode_ConversationCreated(t *testing.T) {
	conv := &domain.Conversation{ID: "c1", Participant1: "u1", Participant2: "u2"}

	ev := NewConversationCreated(conv)
	assert.Equal(t, TypeConversationCreated, ev.Type)
	assert.NotEmpty(t, ev.ID)

	km, err := encode(ev)
	require.NoError(t, err)
	assert.Contains(t, string(km.Value), `"participant_2":"u2"`)
}

func TestNoopPublisher(t *testing.T) {
	var p Publisher = NoopPublisher{}
	assert.NoError(t, p.Publish(context.Background(), Event{}))
	assert.NoError(t, p.Close())
}
