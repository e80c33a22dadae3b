package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skillsvault/backend/internal/models"
)

const messageColumns = `id, sender_id, recipient_id, content, request_id, created_at`

type MessageRepo struct {
	pool *pgxpool.Pool
}

func NewMessageRepo(pool *pgxpool.Pool) *MessageRepo {
	return &MessageRepo{pool: pool}
}

func scanMessage(row pgx.Row) (*models.Message, error) {
	var m models.Message
	if err := row.Scan(&m.ID, &m.SenderID, &m.RecipientID, &m.Content, &m.RequestID, &m.CreatedAt); err != nil {
		return nil, translate(err)
	}
	return &m, nil
}

func (r *MessageRepo) Create(ctx context.Context, m *models.Message) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO messages (id, sender_id, recipient_id, content, request_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, m.ID, m.SenderID, m.RecipientID, m.Content, m.RequestID).Scan(&m.CreatedAt)
	return translate(err)
}

// ListForUser returns userID's messages oldest first. When otherID is not
// uuid.Nil only the thread between the two users is returned.
func (r *MessageRepo) ListForUser(ctx context.Context, userID, otherID uuid.UUID) ([]*models.Message, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+messageColumns+` FROM messages
		WHERE ($2::uuid IS NULL AND (sender_id = $1 OR recipient_id = $1))
		   OR (sender_id = $1 AND recipient_id = $2)
		   OR (sender_id = $2 AND recipient_id = $1)
		ORDER BY created_at ASC
	`, userID, nullableUUID(otherID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

// ListConversations returns the latest message per counterpart, newest first.
func (r *MessageRepo) ListConversations(ctx context.Context, userID uuid.UUID) ([]*models.Conversation, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT other_id, `+messageColumns+` FROM (
			SELECT DISTINCT ON (other_id) *
			FROM (
				SELECT CASE WHEN sender_id = $1 THEN recipient_id ELSE sender_id END AS other_id, m.*
				FROM messages m
				WHERE sender_id = $1 OR recipient_id = $1
			) t
			ORDER BY other_id, created_at DESC
		) latest
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Conversation
	for rows.Next() {
		var c models.Conversation
		m := &c.LastMessage
		if err := rows.Scan(&c.OtherUserID, &m.ID, &m.SenderID, &m.RecipientID, &m.Content, &m.RequestID, &m.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &c)
	}
	return list, rows.Err()
}
