package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skillsvault/backend/internal/models"
)

const transactionColumns = `id, request_id, from_user_id, to_user_id, hours_exchanged, transaction_type, status, created_at`

// TransactionRepo is the append-only transaction log. There is no update or
// delete path.
type TransactionRepo struct {
	pool *pgxpool.Pool
}

func NewTransactionRepo(pool *pgxpool.Pool) *TransactionRepo {
	return &TransactionRepo{pool: pool}
}

func scanTransaction(row pgx.Row) (*models.Transaction, error) {
	var t models.Transaction
	err := row.Scan(&t.ID, &t.RequestID, &t.FromUserID, &t.ToUserID, &t.HoursExchanged, &t.Type, &t.Status, &t.CreatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

// CreateTx inserts a transaction inside the given transaction. A second
// insert for the same request fails with ErrDuplicate (unique request_id).
func (r *TransactionRepo) CreateTx(ctx context.Context, tx pgx.Tx, t *models.Transaction) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	err := tx.QueryRow(ctx, `
		INSERT INTO transactions (id, request_id, from_user_id, to_user_id, hours_exchanged, transaction_type, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`, t.ID, t.RequestID, t.FromUserID, t.ToUserID, t.HoursExchanged, t.Type, t.Status).Scan(&t.CreatedAt)
	return translate(err)
}

func (r *TransactionRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	return scanTransaction(r.pool.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id))
}

func (r *TransactionRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Transaction, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+transactionColumns+` FROM transactions
		WHERE from_user_id = $1 OR to_user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

// Totals returns the number of transactions and the sum of hours exchanged.
func (r *TransactionRepo) Totals(ctx context.Context) (count, hours int64, err error) {
	err = r.pool.QueryRow(ctx, `SELECT count(*), COALESCE(SUM(hours_exchanged), 0) FROM transactions`).Scan(&count, &hours)
	return count, hours, err
}
