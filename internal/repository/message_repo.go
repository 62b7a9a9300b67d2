package repository

import (
	"context"
	"time"

	"github.com/skillswap/skillswap-backend/internal/domain"
	"gorm.io/gorm"
)

// MessageRepository message data access interface
type MessageRepository interface {
	Create(ctx context.Context, msg *domain.Message) error
	FindByID(ctx context.Context, id string) (*domain.Message, error)
	FindByConversation(ctx context.Context, conversationID string, since *time.Time) ([]*domain.Message, error)
	MarkAsRead(ctx context.Context, conversationID, viewerID string) (int64, error)
	LastMessages(ctx context.Context, conversationIDs []string) (map[string]*domain.Message, error)
	CountUnread(ctx context.Context, conversationIDs []string, viewerID string) (map[string]int64, error)
}

type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository creates a new MessageRepository
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

// Create inserts the message and bumps the parent conversation's updated_at.
// Returns gorm.ErrRecordNotFound when the conversation does not exist.
func (r *messageRepository) Create(ctx context.Context, msg *domain.Message) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&domain.Conversation{}).Where("id = ?", msg.ConversationID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return gorm.ErrRecordNotFound
		}
		if err := tx.Create(msg).Error; err != nil {
			return err
		}
		return tx.Model(&domain.Conversation{}).
			Where("id = ?", msg.ConversationID).
			UpdateColumn("updated_at", msg.CreatedAt).Error
	})
}

// FindByID finds a message by ID
func (r *messageRepository) FindByID(ctx context.Context, id string) (*domain.Message, error) {
	var msg domain.Message
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&msg).Error; err != nil {
		return nil, err
	}
	return &msg, nil
}

// FindByConversation returns messages in display order, optionally only those after since
func (r *messageRepository) FindByConversation(ctx context.Context, conversationID string, since *time.Time) ([]*domain.Message, error) {
	var messages []*domain.Message
	query := r.db.WithContext(ctx).Where("conversation_id = ?", conversationID)
	if since != nil {
		query = query.Where("created_at > ?", *since)
	}
	err := query.
		Order("created_at ASC").
		Order("id ASC").
		Find(&messages).Error
	return messages, err
}

// MarkAsRead flips is_read for the counterpart's unread messages; never reverts
func (r *messageRepository) MarkAsRead(ctx context.Context, conversationID, viewerID string) (int64, error) {
	result := r.db.WithContext(ctx).Model(&domain.Message{}).
		Where("conversation_id = ? AND sender_id <> ? AND is_read = ?", conversationID, viewerID, false).
		UpdateColumn("is_read", true)
	return result.RowsAffected, result.Error
}

// LastMessages returns the newest message per conversation in one pass
func (r *messageRepository) LastMessages(ctx context.Context, conversationIDs []string) (map[string]*domain.Message, error) {
	result := make(map[string]*domain.Message, len(conversationIDs))
	if len(conversationIDs) == 0 {
		return result, nil
	}

	latest := r.db.Model(&domain.Message{}).
		Select("conversation_id, MAX(created_at) AS max_created").
		Where("conversation_id IN ?", conversationIDs).
		Group("conversation_id")

	var messages []*domain.Message
	err := r.db.WithContext(ctx).
		Table("messages AS m").
		Select("m.*").
		Joins("JOIN (?) AS latest ON latest.conversation_id = m.conversation_id AND latest.max_created = m.created_at", latest).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}

	// identical timestamps: the larger (later v7) id wins
	for _, m := range messages {
		if cur, ok := result[m.ConversationID]; !ok || m.ID > cur.ID {
			result[m.ConversationID] = m
		}
	}
	return result, nil
}

// CountUnread returns per-conversation counts of messages not sent by viewer and not read
func (r *messageRepository) CountUnread(ctx context.Context, conversationIDs []string, viewerID string) (map[string]int64, error) {
	result := make(map[string]int64, len(conversationIDs))
	if len(conversationIDs) == 0 {
		return result, nil
	}

	var rows []struct {
		ConversationID string
		Unread         int64
	}
	err := r.db.WithContext(ctx).Model(&domain.Message{}).
		Select("conversation_id, COUNT(*) AS unread").
		Where("conversation_id IN ? AND sender_id <> ? AND is_read = ?", conversationIDs, viewerID, false).
		Group("conversation_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		result[row.ConversationID] = row.Unread
	}
	return result, nil
}
