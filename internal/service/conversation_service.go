package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/skillswap/skillswap-backend/internal/common"
	"github.com/skillswap/skillswap-backend/internal/domain"
	"github.com/skillswap/skillswap-backend/internal/events"
	"github.com/skillswap/skillswap-backend/internal/repository"
	"github.com/skillswap/skillswap-backend/pkg/logger"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// ConversationService the conversation directory
type ConversationService interface {
	GetOrCreateConversation(ctx context.Context, viewer domain.Viewer, otherUserID string) (*domain.Conversation, error)
	GetUserConversations(ctx context.Context, viewer domain.Viewer) ([]domain.ConversationSummary, error)
	GetConversation(ctx context.Context, viewer domain.Viewer, conversationID string) (*domain.Conversation, error)
}

type conversationService struct {
	convRepo  repository.ConversationRepository
	msgRepo   repository.MessageRepository
	profiles  ProfileResolver
	publisher events.Publisher
	log       zerolog.Logger
	now       func() time.Time
}

// NewConversationService creates a new ConversationService; publisher may be nil
func NewConversationService(
	convRepo repository.ConversationRepository,
	msgRepo repository.MessageRepository,
	profiles ProfileResolver,
	publisher events.Publisher,
) ConversationService {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &conversationService{
		convRepo:  convRepo,
		msgRepo:   msgRepo,
		profiles:  profiles,
		publisher: publisher,
		log:       logger.WithComponent("conversation_service"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// GetOrCreateConversation returns the conversation for {viewer, other}, creating it when absent
func (s *conversationService) GetOrCreateConversation(ctx context.Context, viewer domain.Viewer, otherUserID string) (*domain.Conversation, error) {
	viewerID, ok := domain.UserID(viewer)
	if !ok {
		return nil, common.ErrUnauthenticated
	}
	otherUserID = strings.TrimSpace(otherUserID)
	if otherUserID == "" || otherUserID == viewerID {
		return nil, fmt.Errorf("%w: other user must be a different, non-empty id", common.ErrInvalidInput)
	}

	conv, err := s.convRepo.FindByPair(ctx, viewerID, otherUserID)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.log.Error().Err(err).Str("user_id", viewerID).Str("other_user_id", otherUserID).Msg("find conversation failed")
		return nil, persistenceError("find conversation", err)
	}

	now := s.now()
	conv = &domain.Conversation{
		Participant1: viewerID,
		Participant2: otherUserID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.convRepo.Create(ctx, conv); err != nil {
		if errors.Is(err, repository.ErrDuplicatePair) {
			// a concurrent caller created the pair first
			existing, findErr := s.convRepo.FindByPair(ctx, viewerID, otherUserID)
			if findErr == nil {
				return existing, nil
			}
			err = findErr
		}
		s.log.Error().Err(err).Str("user_id", viewerID).Str("other_user_id", otherUserID).Msg("create conversation failed")
		return nil, persistenceError("create conversation", err)
	}

	conversationsCreated.Inc()
	if err := s.publisher.Publish(ctx, events.NewConversationCreated(conv)); err != nil {
		s.log.Warn().Err(err).Str("conversation_id", conv.ID).Msg("outbox publish failed")
	}
	return conv, nil
}

// GetUserConversations lists the viewer's conversations, newest activity first,
// enriched with counterpart profile, last message and unread count
func (s *conversationService) GetUserConversations(ctx context.Context, viewer domain.Viewer) ([]domain.ConversationSummary, error) {
	viewerID, ok := domain.UserID(viewer)
	if !ok {
		return nil, common.ErrUnauthenticated
	}

	convs, err := s.convRepo.FindByParticipant(ctx, viewerID)
	if err != nil {
		s.log.Error().Err(err).Str("user_id", viewerID).Msg("list conversations failed")
		return nil, persistenceError("list conversations", err)
	}
	if len(convs) == 0 {
		return []domain.ConversationSummary{}, nil
	}

	ids := make([]string, len(convs))
	counterparts := make([]string, len(convs))
	for i, c := range convs {
		ids[i] = c.ID
		counterparts[i] = c.Counterpart(viewerID)
	}

	var (
		profiles map[string]*domain.ProfileSummary
		last     map[string]*domain.Message
		unread   map[string]int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		profiles, err = s.profiles.Resolve(gctx, counterparts)
		if err != nil {
			// counterpart display is best-effort
			s.log.Warn().Err(err).Str("user_id", viewerID).Msg("resolve counterpart profiles failed")
		}
		return nil
	})
	g.Go(func() error {
		var err error
		last, err = s.msgRepo.LastMessages(gctx, ids)
		return err
	})
	g.Go(func() error {
		var err error
		unread, err = s.msgRepo.CountUnread(gctx, ids, viewerID)
		return err
	})
	if err := g.Wait(); err != nil {
		s.log.Error().Err(err).Str("user_id", viewerID).Msg("enrich conversations failed")
		return nil, persistenceError("enrich conversations", err)
	}

	summaries := make([]domain.ConversationSummary, len(convs))
	for i, c := range convs {
		summary := domain.ConversationSummary{
			Conversation: *c,
			UnreadCount:  unread[c.ID],
		}
		if p, ok := profiles[counterparts[i]]; ok {
			summary.OtherUser = p
		} else {
			summary.OtherUser = &domain.ProfileSummary{ID: counterparts[i]}
		}
		if m, ok := last[c.ID]; ok {
			summary.LastMessage = &domain.LastMessage{Content: m.Content, CreatedAt: m.CreatedAt}
		}
		summaries[i] = summary
	}
	return summaries, nil
}

// GetConversation returns the conversation when the viewer participates in it
func (s *conversationService) GetConversation(ctx context.Context, viewer domain.Viewer, conversationID string) (*domain.Conversation, error) {
	viewerID, ok := domain.UserID(viewer)
	if !ok {
		return nil, common.ErrUnauthenticated
	}

	conv, err := s.convRepo.FindByID(ctx, conversationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound
		}
		s.log.Error().Err(err).Str("conversation_id", conversationID).Msg("get conversation failed")
		return nil, persistenceError("get conversation", err)
	}
	// non-participants cannot learn the conversation exists
	if !conv.HasParticipant(viewerID) {
		return nil, common.ErrNotFound
	}
	return conv, nil
}

func persistenceError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, common.ErrPersistence, err)
}
