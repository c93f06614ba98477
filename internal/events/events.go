// Package events publishes submission lifecycle events after commit.
package events

import (
	"context"
	"errors"
	"time"

	"github.com/R3E-Network/submission_review/internal/domain/submission"
)

// Type names a lifecycle event.
type Type string

const (
	SubmissionCreated  Type = "submission.created"
	SubmissionReviewed Type = "submission.reviewed"
	SubmissionUpdated  Type = "submission.updated"
	SubmissionDeleted  Type = "submission.deleted"
)

// Event is the payload emitted to subscribers.
type Event struct {
	Type         Type              `json:"type"`
	SubmissionID string            `json:"submissionId"`
	CreatorID    string            `json:"creatorId"`
	Status       submission.Status `json:"status"`
	Action       submission.Action `json:"action,omitempty"`
	ActorID      string            `json:"actorId,omitempty"`
	OccurredAt   time.Time         `json:"occurredAt"`
}

// Publisher delivers events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Noop discards events.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }

// Multi fans an event out to every publisher and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, e Event) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
