package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/riverqueue/river"

	"github.com/skillsvault/backend/internal/models"
)

// MessageStore persists notification messages.
type MessageStore interface {
	Create(ctx context.Context, m *models.Message) error
}

// Publisher fans a stored message out to a user's live sessions.
type Publisher interface {
	Publish(ctx context.Context, userID uuid.UUID, ev Event) error
}

// MessageWorker stores a notification message and publishes it. A store
// failure is returned so River retries the job; a publish failure is only
// logged because the message is already persisted.
type MessageWorker struct {
	river.WorkerDefaults[MessageArgs]
	messages  MessageStore
	publisher Publisher
	rec       Recorder
	log       *slog.Logger
}

// NewMessageWorker builds the worker. publisher may be nil when Redis is not
// configured.
func NewMessageWorker(messages MessageStore, publisher Publisher, rec Recorder, log *slog.Logger) *MessageWorker {
	if log == nil {
		log = slog.Default()
	}
	if rec == nil {
		rec = nopRecorder{}
	}
	return &MessageWorker{messages: messages, publisher: publisher, rec: rec, log: log}
}

func (w *MessageWorker) Timeout(*river.Job[MessageArgs]) time.Duration {
	return 15 * time.Second
}

func (w *MessageWorker) Work(ctx context.Context, job *river.Job[MessageArgs]) error {
	args := job.Args
	requestID := args.RequestID
	msg := &models.Message{
		SenderID:    args.SenderID,
		RecipientID: args.RecipientID,
		Content:     args.Content,
		RequestID:   &requestID,
	}
	if err := w.messages.Create(ctx, msg); err != nil {
		w.rec.ObserveNotification(args.Event, "failed")
		return fmt.Errorf("store notification message: %w", err)
	}
	w.rec.ObserveNotification(args.Event, "delivered")

	if w.publisher == nil {
		return nil
	}
	if err := w.publisher.Publish(ctx, args.RecipientID, Event{Type: args.Event, Message: msg}); err != nil {
		w.log.Warn("publish notification failed (non-blocking)", "message_id", msg.ID, "recipient_id", args.RecipientID, "error", err)
		return nil
	}
	w.rec.ObserveNotification(args.Event, "published")
	return nil
}
