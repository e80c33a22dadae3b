package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skillsvault/backend/internal/models"
)

const requestColumns = `id, skill_id, requester_id, provider_id, hours_requested, notes, status, created_at, updated_at`

// Directions accepted by ListForUser.
const (
	DirectionReceived = "received"
	DirectionSent     = "sent"
	DirectionAll      = "all"
)

type RequestRepo struct {
	pool *pgxpool.Pool
}

func NewRequestRepo(pool *pgxpool.Pool) *RequestRepo {
	return &RequestRepo{pool: pool}
}

func scanRequest(row pgx.Row) (*models.SkillRequest, error) {
	var sr models.SkillRequest
	err := row.Scan(&sr.ID, &sr.SkillID, &sr.RequesterID, &sr.ProviderID, &sr.HoursRequested, &sr.Note, &sr.Status, &sr.CreatedAt, &sr.UpdatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return &sr, nil
}

func (r *RequestRepo) Create(ctx context.Context, sr *models.SkillRequest) error {
	if sr.ID == uuid.Nil {
		sr.ID = uuid.New()
	}
	sr.Status = models.RequestStatusPending
	err := r.pool.QueryRow(ctx, `
		INSERT INTO skill_requests (id, skill_id, requester_id, provider_id, hours_requested, notes, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`, sr.ID, sr.SkillID, sr.RequesterID, sr.ProviderID, sr.HoursRequested, sr.Note, sr.Status).Scan(&sr.CreatedAt, &sr.UpdatedAt)
	return translate(err)
}

func (r *RequestRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.SkillRequest, error) {
	return scanRequest(r.pool.QueryRow(ctx, `SELECT `+requestColumns+` FROM skill_requests WHERE id = $1`, id))
}

// TransitionFromPending moves a pending request to status as one conditional
// write. It returns ErrNotPending when no pending row matched.
func (r *RequestRepo) TransitionFromPending(ctx context.Context, tx pgx.Tx, id uuid.UUID, status string) (*models.SkillRequest, error) {
	sr, err := scanRequest(tx.QueryRow(ctx, `
		UPDATE skill_requests SET status = $1, updated_at = now()
		WHERE id = $2 AND status = 'pending'
		RETURNING `+requestColumns, status, id))
	if errors.Is(err, ErrNotFound) {
		return nil, ErrNotPending
	}
	return sr, err
}

func (r *RequestRepo) ListForUser(ctx context.Context, userID uuid.UUID, direction string) ([]*models.SkillRequest, error) {
	var where string
	switch direction {
	case DirectionReceived:
		where = `provider_id = $1`
	case DirectionSent:
		where = `requester_id = $1`
	default:
		where = `(provider_id = $1 OR requester_id = $1)`
	}
	rows, err := r.pool.Query(ctx, `SELECT `+requestColumns+` FROM skill_requests WHERE `+where+` ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.SkillRequest
	for rows.Next() {
		sr, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, sr)
	}
	return list, rows.Err()
}

// DeletePending removes a request only while it is still pending.
func (r *RequestRepo) DeletePending(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM skill_requests WHERE id = $1 AND status = 'pending'`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotPending
	}
	return nil
}

func (r *RequestRepo) CountByStatus(ctx context.Context) (map[string]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT status, count(*) FROM skill_requests GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]int64{}
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		out[status] = n
	}
	return out, rows.Err()
}
