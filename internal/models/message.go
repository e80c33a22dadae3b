package models

import (
	"time"

	"github.com/google/uuid"
)

type Message struct {
	ID          uuid.UUID  `json:"id"`
	SenderID    uuid.UUID  `json:"sender_id"`
	RecipientID uuid.UUID  `json:"recipient_id"`
	Content     string     `json:"content"`
	RequestID   *uuid.UUID `json:"request_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Conversation summarizes the latest message exchanged with one counterpart.
type Conversation struct {
	OtherUserID uuid.UUID `json:"other_user_id"`
	LastMessage Message   `json:"last_message"`
}
