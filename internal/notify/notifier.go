// Package notify turns request lifecycle events into in-app messages. Events
// are enqueued as River jobs after the triggering write commits; the worker
// stores the message and fans it out over Redis.
package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/skillsvault/backend/internal/models"
)

// Event names carried in MessageArgs.Event.
const (
	EventRequestCreated  = "request_created"
	EventRequestResolved = "request_resolved"
)

// MessageArgs is the River job payload for one notification message.
type MessageArgs struct {
	Event       string    `json:"event"`
	SenderID    uuid.UUID `json:"sender_id"`
	RecipientID uuid.UUID `json:"recipient_id"`
	RequestID   uuid.UUID `json:"request_id"`
	Content     string    `json:"content"`
}

func (MessageArgs) Kind() string { return "notify_message" }

// EnqueueFunc inserts a notification job. Provided by main using river.Client.Insert.
type EnqueueFunc func(ctx context.Context, args MessageArgs) error

// SkillLookup resolves skill titles for message text.
type SkillLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Skill, error)
}

// Recorder counts notification outcomes.
type Recorder interface {
	ObserveNotification(event, result string)
}

// Notifier implements requests.CreationNotifier and ledger.ResolutionNotifier.
type Notifier struct {
	enqueue EnqueueFunc
	skills  SkillLookup
	rec     Recorder
	log     *slog.Logger
}

func NewNotifier(enqueue EnqueueFunc, skills SkillLookup, rec Recorder, log *slog.Logger) *Notifier {
	if log == nil {
		log = slog.Default()
	}
	if rec == nil {
		rec = nopRecorder{}
	}
	return &Notifier{enqueue: enqueue, skills: skills, rec: rec, log: log}
}

// RequestCreated tells the provider about a new request.
func (n *Notifier) RequestCreated(ctx context.Context, req *models.SkillRequest) error {
	content := fmt.Sprintf("New request for %s: %s requested.", n.skillTitle(ctx, req.SkillID), hoursText(req.HoursRequested))
	if req.Note != nil {
		content += " Note: " + *req.Note
	}
	return n.send(ctx, MessageArgs{
		Event:       EventRequestCreated,
		SenderID:    req.RequesterID,
		RecipientID: req.ProviderID,
		RequestID:   req.ID,
		Content:     content,
	})
}

// RequestResolved tells the requester how the provider decided.
func (n *Notifier) RequestResolved(ctx context.Context, req *models.SkillRequest) error {
	content := fmt.Sprintf("Your request for %s was %s.", n.skillTitle(ctx, req.SkillID), req.Status)
	if req.Status == models.RequestStatusAccepted {
		content += fmt.Sprintf(" %s moved from your balance.", hoursText(req.HoursRequested))
	}
	return n.send(ctx, MessageArgs{
		Event:       EventRequestResolved,
		SenderID:    req.ProviderID,
		RecipientID: req.RequesterID,
		RequestID:   req.ID,
		Content:     content,
	})
}

func (n *Notifier) send(ctx context.Context, args MessageArgs) error {
	if err := n.enqueue(ctx, args); err != nil {
		n.rec.ObserveNotification(args.Event, "failed")
		return fmt.Errorf("enqueue %s notification: %w", args.Event, err)
	}
	n.rec.ObserveNotification(args.Event, "enqueued")
	return nil
}

// skillTitle falls back to a generic name when the lookup fails; the message
// is still worth sending.
func (n *Notifier) skillTitle(ctx context.Context, id uuid.UUID) string {
	if n.skills != nil {
		if sk, err := n.skills.GetByID(ctx, id); err == nil {
			return fmt.Sprintf("%q", sk.Title)
		}
	}
	return "your skill"
}

func hoursText(h int64) string {
	if h == 1 {
		return "1 hour"
	}
	return fmt.Sprintf("%d hours", h)
}

type nopRecorder struct{}

func (nopRecorder) ObserveNotification(string, string) {}
