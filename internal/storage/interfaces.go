// Package storage defines the persistence contracts used by the review
// engine. Implementations live in the memory and postgres subpackages.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/R3E-Network/submission_review/internal/domain/account"
	"github.com/R3E-Network/submission_review/internal/domain/engagement"
	"github.com/R3E-Network/submission_review/internal/domain/submission"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("storage: not found")
	// ErrDuplicate is returned when a uniqueness constraint rejects a write.
	ErrDuplicate = errors.New("storage: duplicate")
	// ErrStaleState is returned when a conditional write matched no row
	// because the expected prior state no longer holds.
	ErrStaleState = errors.New("storage: stale state")
)

// SubmissionReader serves submission lookups and aggregates.
type SubmissionReader interface {
	GetSubmission(ctx context.Context, id string) (submission.Submission, error)
	FindSubmissionByURL(ctx context.Context, videoURL string) (submission.Submission, error)
	ListSubmissions(ctx context.Context, f submission.Filter, limit, offset int) ([]submission.Submission, error)
	CountSubmissions(ctx context.Context, f submission.Filter) (int, error)
	CountByStatus(ctx context.Context) (map[submission.Status]int, error)
	CountSubmittedSince(ctx context.Context, since time.Time) (int, error)
	// MostActiveCreator returns nil when there are no submissions.
	MostActiveCreator(ctx context.Context) (*submission.CreatorActivity, error)
}

// AccountStore persists users.
type AccountStore interface {
	CreateUser(ctx context.Context, u account.NewUser) (account.User, error)
	GetUser(ctx context.Context, id string) (account.User, error)
	GetCredentials(ctx context.Context, email string) (account.Credentials, error)
	SetCreatorActive(ctx context.Context, id string, active bool) error
}

// EngagementStore persists video metrics snapshots.
type EngagementStore interface {
	UpsertEngagement(ctx context.Context, snap engagement.Snapshot) error
	GetEngagement(ctx context.Context, submissionID string) (engagement.Snapshot, error)
}

// Tx is the write side of a unit of work. Every method runs inside the
// enclosing transaction; conditional writes return ErrStaleState when the
// guarded prior state does not hold.
type Tx interface {
	InsertSubmission(ctx context.Context, s submission.Submission) error
	// TransitionSubmission persists review fields only if the row is still in from.
	TransitionSubmission(ctx context.Context, s submission.Submission, from submission.Status) error
	// UpdateSubmissionContent persists caption, hashtags and notes only while pending.
	UpdateSubmissionContent(ctx context.Context, s submission.Submission) error
	// DeleteSubmission removes a pending submission.
	DeleteSubmission(ctx context.Context, id string) error
	IncrementCreatorCounters(ctx context.Context, creatorID string, d account.CounterDelta) error
}

// Store is the full persistence surface consumed by the application.
type Store interface {
	SubmissionReader
	AccountStore
	EngagementStore
	// WithTx runs fn in a transaction, committing when fn returns nil and
	// rolling back on error, panic or context cancellation.
	WithTx(ctx context.Context, fn func(tx Tx) error) error
	Ping(ctx context.Context) error
}
