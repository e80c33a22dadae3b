// Package requests manages the lifecycle of skill requests up to the point
// where the provider resolves them through the ledger.
package requests

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
	"github.com/skillsvault/backend/internal/repository"
)

// Store is the subset of the request repository this service needs.
type Store interface {
	Create(ctx context.Context, sr *models.SkillRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.SkillRequest, error)
	ListForUser(ctx context.Context, userID uuid.UUID, direction string) ([]*models.SkillRequest, error)
	DeletePending(ctx context.Context, id uuid.UUID) error
}

// SkillLookup resolves a skill's owner for requests that omit the provider.
type SkillLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Skill, error)
}

// CreationNotifier is told about new requests. Errors are logged and never
// fail the creation.
type CreationNotifier interface {
	RequestCreated(ctx context.Context, req *models.SkillRequest) error
}

type Service interface {
	CreateRequest(ctx context.Context, skillID, requesterID, providerID uuid.UUID, hours int64, note *string) (*models.SkillRequest, error)
	GetRequest(ctx context.Context, id, actorID uuid.UUID) (*models.SkillRequest, error)
	ListRequests(ctx context.Context, userID uuid.UUID, direction string) ([]*models.SkillRequest, error)
	DeleteRequest(ctx context.Context, id, actorID uuid.UUID) error
	ResolveRequest(ctx context.Context, id, actorID uuid.UUID, decision ledger.Decision) (*models.SkillRequest, error)
}

type service struct {
	store    Store
	ledger   ledger.Service
	notifier CreationNotifier
	log      *slog.Logger
}

// NewService wires the request service. notifier may be nil.
func NewService(store Store, ledgerSvc ledger.Service, notifier CreationNotifier, log *slog.Logger) *service {
	if log == nil {
		log = slog.Default()
	}
	return &service{store: store, ledger: ledgerSvc, notifier: notifier, log: log}
}

var _ Service = (*service)(nil)

const maxNoteLength = 2000

// CreateRequest records a pending request from requesterID to providerID.
// The skill id only has to be present; the catalog is not consulted.
// Balances are not checked: a requester may go negative when the request is
// accepted.
func (s *service) CreateRequest(ctx context.Context, skillID, requesterID, providerID uuid.UUID, hours int64, note *string) (*models.SkillRequest, error) {
	if skillID == uuid.Nil {
		return nil, fmt.Errorf("%w: skill_id is required", ledger.ErrValidation)
	}
	if providerID == uuid.Nil {
		return nil, fmt.Errorf("%w: provider_id is required", ledger.ErrValidation)
	}
	if hours < models.MinRequestHours || hours > models.MaxRequestHours {
		return nil, ledger.ErrHoursOutOfRange
	}
	if providerID == requesterID {
		return nil, ledger.ErrSelfRequest
	}
	if note != nil {
		trimmed := strings.TrimSpace(*note)
		if utf8.RuneCountInString(trimmed) > maxNoteLength {
			return nil, fmt.Errorf("%w: notes must be at most %d characters", ledger.ErrValidation, maxNoteLength)
		}
		if trimmed == "" {
			note = nil
		} else {
			note = &trimmed
		}
	}
	req := &models.SkillRequest{
		SkillID:        skillID,
		RequesterID:    requesterID,
		ProviderID:     providerID,
		HoursRequested: hours,
		Note:           note,
	}
	if err := s.store.Create(ctx, req); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: requester or provider profile", ledger.ErrNotFound)
		}
		return nil, fmt.Errorf("%w: create request: %w", ledger.ErrDependency, err)
	}
	s.log.Info("skill request created",
		"request_id", req.ID,
		"requester_id", requesterID,
		"provider_id", providerID,
		"hours", hours,
	)

	if s.notifier != nil {
		if err := s.notifier.RequestCreated(ctx, req); err != nil {
			s.log.Warn("request notification failed (non-blocking)", "request_id", req.ID, "error", err)
		}
	}
	return req, nil
}

// GetRequest returns a request visible to actorID (requester or provider).
func (s *service) GetRequest(ctx context.Context, id, actorID uuid.UUID) (*models.SkillRequest, error) {
	req, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.RequesterID != actorID && req.ProviderID != actorID {
		return nil, fmt.Errorf("%w: not a party to this request", ledger.ErrForbidden)
	}
	return req, nil
}

func (s *service) ListRequests(ctx context.Context, userID uuid.UUID, direction string) ([]*models.SkillRequest, error) {
	switch direction {
	case "":
		direction = repository.DirectionAll
	case repository.DirectionReceived, repository.DirectionSent, repository.DirectionAll:
	default:
		return nil, fmt.Errorf("%w: type must be received, sent or all", ledger.ErrValidation)
	}
	list, err := s.store.ListForUser(ctx, userID, direction)
	if err != nil {
		return nil, fmt.Errorf("%w: list requests: %w", ledger.ErrDependency, err)
	}
	return list, nil
}

// DeleteRequest withdraws a pending request. Either party may do it; resolved
// requests are kept.
func (s *service) DeleteRequest(ctx context.Context, id, actorID uuid.UUID) error {
	req, err := s.GetRequest(ctx, id, actorID)
	if err != nil {
		return err
	}
	if req.IsResolved() {
		return ledger.ErrAlreadyResolved
	}
	if err := s.store.DeletePending(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotPending) {
			return ledger.ErrAlreadyResolved
		}
		return fmt.Errorf("%w: delete request: %w", ledger.ErrDependency, err)
	}
	s.log.Info("skill request deleted", "request_id", id, "actor_id", actorID)
	return nil
}

func (s *service) ResolveRequest(ctx context.Context, id, actorID uuid.UUID, decision ledger.Decision) (*models.SkillRequest, error) {
	return s.ledger.ResolveRequest(ctx, id, actorID, decision)
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.SkillRequest, error) {
	req, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: request %s", ledger.ErrNotFound, id)
		}
		return nil, fmt.Errorf("%w: load request: %w", ledger.ErrDependency, err)
	}
	return req, nil
}
