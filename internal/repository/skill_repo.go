package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skillsvault/backend/internal/models"
)

const skillColumns = `id, user_id, title, description, category, is_verified, verification_status, created_at, updated_at`

type SkillRepo struct {
	pool *pgxpool.Pool
}

func NewSkillRepo(pool *pgxpool.Pool) *SkillRepo {
	return &SkillRepo{pool: pool}
}

func scanSkill(row pgx.Row) (*models.Skill, error) {
	var s models.Skill
	if err := row.Scan(&s.ID, &s.UserID, &s.Title, &s.Description, &s.Category, &s.IsVerified, &s.VerificationStatus, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

func (r *SkillRepo) Create(ctx context.Context, s *models.Skill) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO skills (id, user_id, title, description, category)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING is_verified, verification_status, created_at, updated_at
	`, s.ID, s.UserID, s.Title, s.Description, s.Category).Scan(&s.IsVerified, &s.VerificationStatus, &s.CreatedAt, &s.UpdatedAt)
	return translate(err)
}

// Update writes the editable fields of s. An edited skill goes back to
// pending review.
func (r *SkillRepo) Update(ctx context.Context, s *models.Skill) error {
	err := r.pool.QueryRow(ctx, `
		UPDATE skills
		SET title = $2, description = $3, category = $4,
		    is_verified = FALSE, verification_status = 'pending', updated_at = now()
		WHERE id = $1
		RETURNING is_verified, verification_status, updated_at
	`, s.ID, s.Title, s.Description, s.Category).Scan(&s.IsVerified, &s.VerificationStatus, &s.UpdatedAt)
	return translate(err)
}

func (r *SkillRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM skills WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetVerified records an admin review decision.
func (r *SkillRepo) SetVerified(ctx context.Context, id uuid.UUID, verified bool) (*models.Skill, error) {
	status := models.VerificationRejected
	if verified {
		status = models.VerificationVerified
	}
	return scanSkill(r.pool.QueryRow(ctx, `
		UPDATE skills SET is_verified = $2, verification_status = $3, updated_at = now()
		WHERE id = $1
		RETURNING `+skillColumns, id, verified, status))
}

// ListPending returns up to limit skills awaiting review, newest first.
func (r *SkillRepo) ListPending(ctx context.Context, limit int) ([]*models.Skill, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+skillColumns+` FROM skills
		WHERE verification_status = 'pending'
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Skill
	for rows.Next() {
		s, err := scanSkill(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

func (r *SkillRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Skill, error) {
	return scanSkill(r.pool.QueryRow(ctx, `SELECT `+skillColumns+` FROM skills WHERE id = $1`, id))
}

// List returns all skills, or only those of ownerID when it is not uuid.Nil.
func (r *SkillRepo) List(ctx context.Context, ownerID uuid.UUID) ([]*models.Skill, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+skillColumns+` FROM skills
		WHERE $1::uuid IS NULL OR user_id = $1
		ORDER BY created_at DESC
	`, nullableUUID(ownerID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Skill
	for rows.Next() {
		s, err := scanSkill(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

func (r *SkillRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM skills`).Scan(&n)
	return n, err
}

func nullableUUID(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}
