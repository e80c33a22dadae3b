package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	TransactionTypeSkillExchange = "skill_exchange"
	TransactionStatusCompleted   = "completed"
)

// Transaction is an append-only record of a completed exchange. FromUserID pays
// the hours (the requester), ToUserID receives them (the provider).
type Transaction struct {
	ID             uuid.UUID `json:"id"`
	RequestID      uuid.UUID `json:"request_id"`
	FromUserID     uuid.UUID `json:"from_user_id"`
	ToUserID       uuid.UUID `json:"to_user_id"`
	HoursExchanged int64     `json:"hours_exchanged"`
	Type           string    `json:"transaction_type"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
}

// Involves reports whether userID is one of the two parties.
func (t *Transaction) Involves(userID uuid.UUID) bool {
	return t.FromUserID == userID || t.ToUserID == userID
}
