package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/skillswap/skillswap-backend/internal/common"
	"github.com/skillswap/skillswap-backend/internal/domain"
	"github.com/skillswap/skillswap-backend/internal/events"
	"github.com/skillswap/skillswap-backend/internal/realtime"
	"github.com/skillswap/skillswap-backend/internal/repository"
	"github.com/skillswap/skillswap-backend/pkg/logger"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// ChangeNotifier receives insert notifications for the realtime feeds
type ChangeNotifier interface {
	Publish(ctx context.Context, ev realtime.ChangeEvent)
}

// MessageService message store and delivery
type MessageService interface {
	GetConversationMessages(ctx context.Context, conversationID string) ([]*domain.Message, error)
	GetConversationMessagesSince(ctx context.Context, conversationID string, since time.Time) ([]*domain.Message, error)
	GetMessage(ctx context.Context, messageID string) (*domain.Message, error)
	SendMessage(ctx context.Context, viewer domain.Viewer, conversationID, content string, replyTo *string) (*domain.Message, error)
	MarkMessagesAsRead(ctx context.Context, viewer domain.Viewer, conversationID string) (int64, error)
	OpenConversation(ctx context.Context, viewer domain.Viewer, conversationID string) ([]*domain.Message, error)
}

type messageService struct {
	repo       repository.MessageRepository
	profiles   ProfileResolver
	notifier   ChangeNotifier
	publisher  events.Publisher
	maxContent int
	log        zerolog.Logger
	now        func() time.Time
}

// NewMessageService creates a new MessageService.
// notifier and publisher may be nil; maxContent <= 0 uses domain.MaxContentLength.
func NewMessageService(
	repo repository.MessageRepository,
	profiles ProfileResolver,
	notifier ChangeNotifier,
	publisher events.Publisher,
	maxContent int,
) MessageService {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	if maxContent <= 0 {
		maxContent = domain.MaxContentLength
	}
	return &messageService{
		repo:       repo,
		profiles:   profiles,
		notifier:   notifier,
		publisher:  publisher,
		maxContent: maxContent,
		log:        logger.WithComponent("message_service"),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// GetConversationMessages returns the full history in display order with sender profiles
func (s *messageService) GetConversationMessages(ctx context.Context, conversationID string) ([]*domain.Message, error) {
	return s.load(ctx, conversationID, nil)
}

// GetConversationMessagesSince returns only messages created after since
func (s *messageService) GetConversationMessagesSince(ctx context.Context, conversationID string, since time.Time) ([]*domain.Message, error) {
	return s.load(ctx, conversationID, &since)
}

func (s *messageService) load(ctx context.Context, conversationID string, since *time.Time) ([]*domain.Message, error) {
	messages, err := s.repo.FindByConversation(ctx, conversationID, since)
	if err != nil {
		s.log.Error().Err(err).Str("conversation_id", conversationID).Msg("load messages failed")
		return nil, persistenceError("load messages", err)
	}
	if messages == nil {
		messages = []*domain.Message{}
	}
	s.attachSenders(ctx, messages)
	return messages, nil
}

// GetMessage resolves one message with its sender profile
func (s *messageService) GetMessage(ctx context.Context, messageID string) (*domain.Message, error) {
	msg, err := s.repo.FindByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound
		}
		return nil, persistenceError("get message", err)
	}
	s.attachSenders(ctx, []*domain.Message{msg})
	return msg, nil
}

// SendMessage persists a message from viewer and notifies live feeds
func (s *messageService) SendMessage(ctx context.Context, viewer domain.Viewer, conversationID, content string, replyTo *string) (*domain.Message, error) {
	senderID, ok := domain.UserID(viewer)
	if !ok {
		return nil, common.ErrUnauthenticated
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, common.ErrEmptyContent
	}
	if utf8.RuneCountInString(content) > s.maxContent {
		return nil, fmt.Errorf("%w: limit is %d characters", common.ErrContentTooLong, s.maxContent)
	}

	if replyTo != nil && *replyTo == "" {
		replyTo = nil
	}
	if replyTo != nil {
		target, err := s.repo.FindByID(ctx, *replyTo)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			s.log.Error().Err(err).Str("conversation_id", conversationID).Msg("load reply target failed")
			return nil, persistenceError("load reply target", err)
		}
		if target == nil || target.ConversationID != conversationID {
			return nil, common.ErrInvalidReply
		}
	}

	msg := &domain.Message{
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
		CreatedAt:      s.now(),
		ReplyTo:        replyTo,
	}
	if err := s.repo.Create(ctx, msg); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound
		}
		s.log.Error().Err(err).Str("conversation_id", conversationID).Str("user_id", senderID).Msg("send message failed")
		return nil, persistenceError("send message", err)
	}
	messagesSent.Inc()

	s.attachSenders(ctx, []*domain.Message{msg})

	if s.notifier != nil {
		s.notifier.Publish(ctx, realtime.ChangeEvent{
			ConversationID: msg.ConversationID,
			MessageID:      msg.ID,
			SenderID:       msg.SenderID,
		})
	}
	if err := s.publisher.Publish(ctx, events.NewMessageSent(msg)); err != nil {
		s.log.Warn().Err(err).Str("message_id", msg.ID).Msg("outbox publish failed")
	}
	return msg, nil
}

// MarkMessagesAsRead flips the counterpart's unread messages; idempotent
func (s *messageService) MarkMessagesAsRead(ctx context.Context, viewer domain.Viewer, conversationID string) (int64, error) {
	viewerID, ok := domain.UserID(viewer)
	if !ok {
		return 0, common.ErrUnauthenticated
	}

	n, err := s.repo.MarkAsRead(ctx, conversationID, viewerID)
	if err != nil {
		s.log.Error().Err(err).Str("conversation_id", conversationID).Str("user_id", viewerID).Msg("mark read failed")
		return 0, persistenceError("mark read", err)
	}
	if n > 0 {
		messagesMarkedRead.Add(float64(n))
	}
	return n, nil
}

// OpenConversation loads history and marks it read concurrently
func (s *messageService) OpenConversation(ctx context.Context, viewer domain.Viewer, conversationID string) ([]*domain.Message, error) {
	if _, ok := domain.UserID(viewer); !ok {
		return nil, common.ErrUnauthenticated
	}

	var history []*domain.Message
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		history, err = s.GetConversationMessages(gctx, conversationID)
		return err
	})
	g.Go(func() error {
		_, err := s.MarkMessagesAsRead(gctx, viewer, conversationID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return history, nil
}

// attachSenders annotates messages with sender display fields; best-effort
func (s *messageService) attachSenders(ctx context.Context, messages []*domain.Message) {
	if len(messages) == 0 || s.profiles == nil {
		return
	}
	ids := make([]string, len(messages))
	for i, m := range messages {
		ids[i] = m.SenderID
	}
	profiles, err := s.profiles.Resolve(ctx, ids)
	if err != nil {
		s.log.Warn().Err(err).Msg("resolve sender profiles failed")
	}
	for _, m := range messages {
		if p, ok := profiles[m.SenderID]; ok {
			m.Sender = p
		}
	}
}
