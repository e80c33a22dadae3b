package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skillsvault/backend/internal/models"
)

const profileColumns = `id, email, full_name, bio, password_hash, time_balance, is_admin, created_at, updated_at`

type ProfileRepo struct {
	pool *pgxpool.Pool
}

func NewProfileRepo(pool *pgxpool.Pool) *ProfileRepo {
	return &ProfileRepo{pool: pool}
}

func scanProfile(row pgx.Row) (*models.Profile, error) {
	var p models.Profile
	err := row.Scan(&p.ID, &p.Email, &p.FullName, &p.Bio, &p.PasswordHash, &p.TimeBalance, &p.IsAdmin, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

// Create inserts a profile with the balance the caller set. Registration sets
// the signup grant explicitly.
func (r *ProfileRepo) Create(ctx context.Context, p *models.Profile) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO profiles (id, email, full_name, bio, password_hash, time_balance, is_admin)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`, p.ID, p.Email, p.FullName, p.Bio, p.PasswordHash, p.TimeBalance, p.IsAdmin).Scan(&p.CreatedAt, &p.UpdatedAt)
	return translate(err)
}

func (r *ProfileRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	return scanProfile(r.pool.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id))
}

// UpdateDetails sets the self-editable profile fields and returns the row.
func (r *ProfileRepo) UpdateDetails(ctx context.Context, id uuid.UUID, fullName, bio string) (*models.Profile, error) {
	return scanProfile(r.pool.QueryRow(ctx, `
		UPDATE profiles SET full_name = $2, bio = $3, updated_at = now()
		WHERE id = $1
		RETURNING `+profileColumns, id, fullName, bio))
}

func (r *ProfileRepo) GetByEmail(ctx context.Context, email string) (*models.Profile, error) {
	return scanProfile(r.pool.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE email = $1`, email))
}

func (r *ProfileRepo) List(ctx context.Context) ([]*models.Profile, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+profileColumns+` FROM profiles ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

func (r *ProfileRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM profiles`).Scan(&n)
	return n, err
}

// ApplyDelta adds delta to the profile's time balance in a single UPDATE and
// returns the new balance. Call within a transaction.
func (r *ProfileRepo) ApplyDelta(ctx context.Context, tx pgx.Tx, id uuid.UUID, delta int64) (newBalance int64, err error) {
	err = tx.QueryRow(ctx, `
		UPDATE profiles SET time_balance = time_balance + $1, updated_at = now()
		WHERE id = $2
		RETURNING time_balance
	`, delta, id).Scan(&newBalance)
	return newBalance, translate(err)
}
