package skills

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/skillsvault/backend/internal/ledger"
	"github.com/skillsvault/backend/internal/models"
	"github.com/skillsvault/backend/internal/repository"
)

// Store is the subset of the skill repository the catalog needs.
type Store interface {
	Create(ctx context.Context, s *models.Skill) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Skill, error)
	List(ctx context.Context, ownerID uuid.UUID) ([]*models.Skill, error)
	Update(ctx context.Context, s *models.Skill) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// SkillPatch holds the fields of an update; nil leaves a field unchanged.
type SkillPatch struct {
	Title       *string
	Description *string
	Category    *string
}

type Service interface {
	CreateSkill(ctx context.Context, ownerID uuid.UUID, title, description, category string) (*models.Skill, error)
	GetSkill(ctx context.Context, id uuid.UUID) (*models.Skill, error)
	// ListSkills lists every skill when ownerID is uuid.Nil.
	ListSkills(ctx context.Context, ownerID uuid.UUID) ([]*models.Skill, error)
	// UpdateSkill and DeleteSkill are restricted to the skill's owner.
	UpdateSkill(ctx context.Context, actorID, id uuid.UUID, patch SkillPatch) (*models.Skill, error)
	DeleteSkill(ctx context.Context, actorID, id uuid.UUID) error
}

type service struct {
	store Store
}

func NewService(store Store) *service {
	return &service{store: store}
}

var _ Service = (*service)(nil)

// normalizeCategory lowercases the category so listing by category is
// case-insensitive.
func normalizeCategory(c string) string {
	c = strings.ToLower(strings.TrimSpace(c))
	if c == "" {
		return "general"
	}
	return c
}

func (s *service) CreateSkill(ctx context.Context, ownerID uuid.UUID, title, description, category string) (*models.Skill, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ledger.ErrValidation)
	}
	sk := &models.Skill{
		UserID:      ownerID,
		Title:       title,
		Description: strings.TrimSpace(description),
		Category:    normalizeCategory(category),
	}
	if err := s.store.Create(ctx, sk); err != nil {
		return nil, fmt.Errorf("%w: create skill: %w", ledger.ErrDependency, err)
	}
	return sk, nil
}

func (s *service) GetSkill(ctx context.Context, id uuid.UUID) (*models.Skill, error) {
	sk, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: skill %s", ledger.ErrNotFound, id)
		}
		return nil, fmt.Errorf("%w: load skill: %w", ledger.ErrDependency, err)
	}
	return sk, nil
}

func (s *service) ListSkills(ctx context.Context, ownerID uuid.UUID) ([]*models.Skill, error) {
	list, err := s.store.List(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("%w: list skills: %w", ledger.ErrDependency, err)
	}
	return list, nil
}

func (s *service) owned(ctx context.Context, actorID, id uuid.UUID) (*models.Skill, error) {
	sk, err := s.GetSkill(ctx, id)
	if err != nil {
		return nil, err
	}
	if sk.UserID != actorID {
		return nil, fmt.Errorf("%w: only the owner may change this skill", ledger.ErrForbidden)
	}
	return sk, nil
}

func (s *service) UpdateSkill(ctx context.Context, actorID, id uuid.UUID, patch SkillPatch) (*models.Skill, error) {
	sk, err := s.owned(ctx, actorID, id)
	if err != nil {
		return nil, err
	}
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return nil, fmt.Errorf("%w: title must not be blank", ledger.ErrValidation)
		}
		sk.Title = title
	}
	if patch.Description != nil {
		sk.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.Category != nil {
		sk.Category = normalizeCategory(*patch.Category)
	}
	if err := s.store.Update(ctx, sk); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: skill %s", ledger.ErrNotFound, id)
		}
		return nil, fmt.Errorf("%w: update skill: %w", ledger.ErrDependency, err)
	}
	return sk, nil
}

func (s *service) DeleteSkill(ctx context.Context, actorID, id uuid.UUID) error {
	if _, err := s.owned(ctx, actorID, id); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: skill %s", ledger.ErrNotFound, id)
		}
		return fmt.Errorf("%w: delete skill: %w", ledger.ErrDependency, err)
	}
	return nil
}
