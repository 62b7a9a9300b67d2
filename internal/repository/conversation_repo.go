package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/skillswap/skillswap-backend/internal/domain"
	"gorm.io/gorm"
)

// ErrDuplicatePair is returned when a conversation already exists for the participant pair
var ErrDuplicatePair = errors.New("conversation already exists for pair")

// ConversationRepository conversation data access interface
type ConversationRepository interface {
	Create(ctx context.Context, conv *domain.Conversation) error
	FindByID(ctx context.Context, id string) (*domain.Conversation, error)
	FindByPair(ctx context.Context, userA, userB string) (*domain.Conversation, error)
	FindByParticipant(ctx context.Context, userID string) ([]*domain.Conversation, error)
}

type conversationRepository struct {
	db *gorm.DB
}

// NewConversationRepository creates a new ConversationRepository
func NewConversationRepository(db *gorm.DB) ConversationRepository {
	return &conversationRepository{db: db}
}

// Create inserts a conversation; a unique pair_key violation maps to ErrDuplicatePair
func (r *conversationRepository) Create(ctx context.Context, conv *domain.Conversation) error {
	err := r.db.WithContext(ctx).Create(conv).Error
	if err != nil && isDuplicateKey(err) {
		return ErrDuplicatePair
	}
	return err
}

// FindByID finds a conversation by ID
func (r *conversationRepository) FindByID(ctx context.Context, id string) (*domain.Conversation, error) {
	var conv domain.Conversation
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&conv).Error; err != nil {
		return nil, err
	}
	return &conv, nil
}

// FindByPair finds the conversation for the unordered pair {userA, userB}
func (r *conversationRepository) FindByPair(ctx context.Context, userA, userB string) (*domain.Conversation, error) {
	var conv domain.Conversation
	err := r.db.WithContext(ctx).
		Where("(participant_1 = ? AND participant_2 = ?) OR (participant_1 = ? AND participant_2 = ?)",
			userA, userB, userB, userA).
		Order("created_at ASC").
		First(&conv).Error
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// FindByParticipant returns the user's conversations, most recently updated first
func (r *conversationRepository) FindByParticipant(ctx context.Context, userID string) ([]*domain.Conversation, error) {
	var convs []*domain.Conversation
	err := r.db.WithContext(ctx).
		Where("participant_1 = ? OR participant_2 = ?", userID, userID).
		Order("updated_at DESC").
		Order("id DESC").
		Find(&convs).Error
	return convs, err
}

// isDuplicateKey detects unique constraint violations across the supported drivers
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}
	// sqlite reports "UNIQUE constraint failed: conversations.pair_key"
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
