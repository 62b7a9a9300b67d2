package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Conversation a persistent pairing of exactly two users
type Conversation struct {
	ID           string    `gorm:"column:id;primaryKey;size:36" json:"id"`
	Participant1 string    `gorm:"column:participant_1;size:64;index" json:"participant_1"`
	Participant2 string    `gorm:"column:participant_2;size:64;index" json:"participant_2"`
	PairKey      string    `gorm:"column:pair_key;size:130;uniqueIndex" json:"-"`
	CreatedAt    time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at;index" json:"updated_at"`
}

func (Conversation) TableName() string { return "conversations" }

// BeforeCreate assigns a time-ordered id and the normalized pair key
func (c *Conversation) BeforeCreate(_ *gorm.DB) error {
	if c.ID == "" {
		c.ID = NewID()
	}
	if c.PairKey == "" {
		c.PairKey = PairKey(c.Participant1, c.Participant2)
	}
	return nil
}

// HasParticipant reports whether userID belongs to the conversation
func (c *Conversation) HasParticipant(userID string) bool {
	return userID != "" && (c.Participant1 == userID || c.Participant2 == userID)
}

// Counterpart returns the participant that is not userID
func (c *Conversation) Counterpart(userID string) string {
	if c.Participant1 == userID {
		return c.Participant2
	}
	return c.Participant1
}

// PairKey normalizes an unordered participant pair
func PairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + ":" + b
}

// LastMessage preview shown in the directory
type LastMessage struct {
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// ConversationSummary a directory row enriched for one viewer
type ConversationSummary struct {
	Conversation
	OtherUser   *ProfileSummary `json:"other_user,omitempty"`
	LastMessage *LastMessage    `json:"last_message,omitempty"`
	UnreadCount int64           `json:"unread_count"`
}

// NewID returns a time-ordered UUID (v7), falling back to v4
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
