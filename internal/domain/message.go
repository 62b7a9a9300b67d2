package domain

import (
	"time"

	"gorm.io/gorm"
)

// MaxContentLength upper bound on message text, in characters
const MaxContentLength = 1000

// Message a single chat message owned by a conversation
type Message struct {
	ID             string    `gorm:"column:id;primaryKey;size:36" json:"id"`
	ConversationID string    `gorm:"column:conversation_id;size:36;index:idx_messages_conv_created,priority:1" json:"conversation_id"`
	SenderID       string    `gorm:"column:sender_id;size:64;index" json:"sender_id"`
	Content        string    `gorm:"column:content;type:text" json:"content"`
	CreatedAt      time.Time `gorm:"column:created_at;index:idx_messages_conv_created,priority:2" json:"created_at"`
	IsRead         bool      `gorm:"column:is_read;default:false" json:"is_read"`
	ReplyTo        *string   `gorm:"column:reply_to;size:36" json:"reply_to,omitempty"`

	Sender *ProfileSummary `gorm:"-" json:"sender,omitempty"`
}

func (Message) TableName() string { return "messages" }

// BeforeCreate assigns a time-ordered id
func (m *Message) BeforeCreate(_ *gorm.DB) error {
	if m.ID == "" {
		m.ID = NewID()
	}
	return nil
}

// SendMessageRequest body of POST /conversations/:id/messages
type SendMessageRequest struct {
	Content string  `json:"content" binding:"required"`
	ReplyTo *string `json:"reply_to,omitempty"`
}

// StartConversationRequest body of POST /conversations
type StartConversationRequest struct {
	OtherUserID string `json:"other_user_id" binding:"required"`
}
