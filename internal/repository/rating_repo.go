package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skillsvault/backend/internal/models"
)

type RatingRepo struct {
	pool *pgxpool.Pool
}

func NewRatingRepo(pool *pgxpool.Pool) *RatingRepo {
	return &RatingRepo{pool: pool}
}

// Create inserts a rating. One rating per (transaction, rater); a repeat
// fails with ErrDuplicate.
func (r *RatingRepo) Create(ctx context.Context, rt *models.Rating) error {
	if rt.ID == uuid.Nil {
		rt.ID = uuid.New()
	}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO ratings (id, transaction_id, rater_id, rated_user_id, rating, review)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, rt.ID, rt.TransactionID, rt.RaterID, rt.RatedUserID, rt.Rating, rt.Review).Scan(&rt.CreatedAt)
	return translate(err)
}

func (r *RatingRepo) ListByRatedUser(ctx context.Context, userID uuid.UUID) ([]*models.Rating, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, transaction_id, rater_id, rated_user_id, rating, review, created_at
		FROM ratings WHERE rated_user_id = $1 ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Rating
	for rows.Next() {
		var rt models.Rating
		if err := rows.Scan(&rt.ID, &rt.TransactionID, &rt.RaterID, &rt.RatedUserID, &rt.Rating, &rt.Review, &rt.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &rt)
	}
	return list, rows.Err()
}
