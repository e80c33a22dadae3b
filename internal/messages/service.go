// Package messages implements direct messaging between profiles.
package messages

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/skillsvault/backend/internal/ledger"
	"github.com/skillsvault/backend/internal/models"
	"github.com/skillsvault/backend/internal/notify"
	"github.com/skillsvault/backend/internal/repository"
)

const maxContentLen = 5000

// EventDirectMessage is the published event type for user-sent messages.
const EventDirectMessage = "direct_message"

type Store interface {
	Create(ctx context.Context, m *models.Message) error
	ListForUser(ctx context.Context, userID, otherID uuid.UUID) ([]*models.Message, error)
	ListConversations(ctx context.Context, userID uuid.UUID) ([]*models.Conversation, error)
}

// ProfileLookup confirms the recipient exists.
type ProfileLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)
}

type Service interface {
	Send(ctx context.Context, senderID, recipientID uuid.UUID, content string, requestID *uuid.UUID) (*models.Message, error)
	// List returns userID's messages; only the thread with otherID when it is set.
	List(ctx context.Context, userID, otherID uuid.UUID) ([]*models.Message, error)
	Conversations(ctx context.Context, userID uuid.UUID) ([]*models.Conversation, error)
}

type service struct {
	store     Store
	profiles  ProfileLookup
	publisher notify.Publisher
	log       *slog.Logger
}

// NewService builds the messaging service. publisher may be nil.
func NewService(store Store, profiles ProfileLookup, publisher notify.Publisher, log *slog.Logger) *service {
	if log == nil {
		log = slog.Default()
	}
	return &service{store: store, profiles: profiles, publisher: publisher, log: log}
}

var _ Service = (*service)(nil)

func (s *service) Send(ctx context.Context, senderID, recipientID uuid.UUID, content string, requestID *uuid.UUID) (*models.Message, error) {
	content = strings.TrimSpace(content)
	switch {
	case recipientID == uuid.Nil:
		return nil, fmt.Errorf("%w: recipient_id is required", ledger.ErrValidation)
	case recipientID == senderID:
		return nil, fmt.Errorf("%w: cannot message yourself", ledger.ErrValidation)
	case content == "":
		return nil, fmt.Errorf("%w: content is required", ledger.ErrValidation)
	case utf8.RuneCountInString(content) > maxContentLen:
		return nil, fmt.Errorf("%w: content exceeds %d characters", ledger.ErrValidation, maxContentLen)
	}
	if _, err := s.profiles.GetByID(ctx, recipientID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: recipient %s", ledger.ErrNotFound, recipientID)
		}
		return nil, fmt.Errorf("%w: load recipient: %w", ledger.ErrDependency, err)
	}
	if requestID != nil && *requestID == uuid.Nil {
		requestID = nil
	}

	m := &models.Message{SenderID: senderID, RecipientID: recipientID, Content: content, RequestID: requestID}
	if err := s.store.Create(ctx, m); err != nil {
		return nil, fmt.Errorf("%w: store message: %w", ledger.ErrDependency, err)
	}

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, recipientID, notify.Event{Type: EventDirectMessage, Message: m}); err != nil {
			s.log.Warn("publish message failed (non-blocking)", "message_id", m.ID, "error", err)
		}
	}
	return m, nil
}

func (s *service) List(ctx context.Context, userID, otherID uuid.UUID) ([]*models.Message, error) {
	list, err := s.store.ListForUser(ctx, userID, otherID)
	if err != nil {
		return nil, fmt.Errorf("%w: list messages: %w", ledger.ErrDependency, err)
	}
	return list, nil
}

func (s *service) Conversations(ctx context.Context, userID uuid.UUID) ([]*models.Conversation, error) {
	list, err := s.store.ListConversations(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: list conversations: %w", ledger.ErrDependency, err)
	}
	return list, nil
}
