package models

import (
	"time"

	"github.com/google/uuid"
)

// Skill request status enums. pending is the only non-terminal state.
const (
	RequestStatusPending  = "pending"
	RequestStatusAccepted = "accepted"
	RequestStatusRejected = "rejected"
)

// Bounds for SkillRequest.HoursRequested (one week).
const (
	MinRequestHours = 1
	MaxRequestHours = 168
)

type SkillRequest struct {
	ID             uuid.UUID `json:"id"`
	SkillID        uuid.UUID `json:"skill_id"`
	RequesterID    uuid.UUID `json:"requester_id"`
	ProviderID     uuid.UUID `json:"provider_id"`
	HoursRequested int64     `json:"hours_requested"`
	Note           *string   `json:"notes,omitempty"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// IsResolved reports whether the request has left the pending state.
func (r *SkillRequest) IsResolved() bool {
	return r.Status != RequestStatusPending
}
