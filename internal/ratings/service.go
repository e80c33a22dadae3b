// Package ratings lets the parties of a completed transaction rate each other.
package ratings

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/skillsvault/backend/internal/ledger"
	"github.com/skillsvault/backend/internal/models"
	"github.com/skillsvault/backend/internal/repository"
)

const maxReviewLen = 2000

type Store interface {
	Create(ctx context.Context, rt *models.Rating) error
	ListByRatedUser(ctx context.Context, userID uuid.UUID) ([]*models.Rating, error)
}

// TransactionLookup loads the transaction being rated.
type TransactionLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
}

// Summary is a user's received ratings with their average.
type Summary struct {
	UserID  uuid.UUID        `json:"user_id"`
	Average float64          `json:"average"`
	Count   int              `json:"count"`
	Ratings []*models.Rating `json:"ratings"`
}

type Service interface {
	Rate(ctx context.Context, raterID, transactionID uuid.UUID, rating int, review string) (*models.Rating, error)
	ForUser(ctx context.Context, userID uuid.UUID) (*Summary, error)
}

type service struct {
	store Store
	txs   TransactionLookup
}

func NewService(store Store, txs TransactionLookup) *service {
	return &service{store: store, txs: txs}
}

var _ Service = (*service)(nil)

func (s *service) Rate(ctx context.Context, raterID, transactionID uuid.UUID, rating int, review string) (*models.Rating, error) {
	if rating < models.MinRating || rating > models.MaxRating {
		return nil, fmt.Errorf("%w: rating must be between %d and %d", ledger.ErrValidation, models.MinRating, models.MaxRating)
	}
	review = strings.TrimSpace(review)
	if utf8.RuneCountInString(review) > maxReviewLen {
		return nil, fmt.Errorf("%w: review exceeds %d characters", ledger.ErrValidation, maxReviewLen)
	}

	tx, err := s.txs.GetByID(ctx, transactionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: transaction %s", ledger.ErrNotFound, transactionID)
		}
		return nil, fmt.Errorf("%w: load transaction: %w", ledger.ErrDependency, err)
	}
	if !tx.Involves(raterID) {
		return nil, fmt.Errorf("%w: only a party of the transaction may rate it", ledger.ErrForbidden)
	}
	if tx.Status != models.TransactionStatusCompleted {
		return nil, fmt.Errorf("%w: transaction is not completed", ledger.ErrConflict)
	}

	rated := tx.ToUserID
	if raterID == tx.ToUserID {
		rated = tx.FromUserID
	}
	rt := &models.Rating{
		TransactionID: tx.ID,
		RaterID:       raterID,
		RatedUserID:   rated,
		Rating:        rating,
		Review:        review,
	}
	if err := s.store.Create(ctx, rt); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("%w: transaction already rated", ledger.ErrConflict)
		}
		return nil, fmt.Errorf("%w: store rating: %w", ledger.ErrDependency, err)
	}
	return rt, nil
}

func (s *service) ForUser(ctx context.Context, userID uuid.UUID) (*Summary, error) {
	list, err := s.store.ListByRatedUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: list ratings: %w", ledger.ErrDependency, err)
	}
	sum := &Summary{UserID: userID, Count: len(list), Ratings: list}
	if sum.Ratings == nil {
		sum.Ratings = []*models.Rating{}
	}
	if len(list) > 0 {
		total := 0
		for _, rt := range list {
			total += rt.Rating
		}
		sum.Average = math.Round(float64(total)/float64(len(list))*10) / 10
	}
	return sum, nil
}
