package models

import (
	"time"

	"github.com/google/uuid"
)

// SignupGrantHours is the time balance every new profile starts with.
const SignupGrantHours = 10

type Profile struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	FullName     string    `json:"full_name"`
	Bio          string    `json:"bio,omitempty"`
	PasswordHash string    `json:"-"`
	TimeBalance  int64     `json:"time_balance"`
	IsAdmin      bool      `json:"is_admin"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
