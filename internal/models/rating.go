package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	MinRating = 1
	MaxRating = 5
)

type Rating struct {
	ID            uuid.UUID `json:"id"`
	TransactionID uuid.UUID `json:"transaction_id"`
	RaterID       uuid.UUID `json:"rater_id"`
	RatedUserID   uuid.UUID `json:"rated_user_id"`
	Rating        int       `json:"rating"`
	Review        string    `json:"review,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}
