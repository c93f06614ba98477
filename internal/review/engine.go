// Package review implements the submission lifecycle: creation, admin
// review, creator edits and the filtered listings built on top of storage.
package review

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/R3E-Network/submission_review/internal/domain/account"
	"github.com/R3E-Network/submission_review/internal/domain/submission"
	svcerrors "github.com/R3E-Network/submission_review/internal/errors"
	"github.com/R3E-Network/submission_review/internal/events"
	"github.com/R3E-Network/submission_review/internal/logging"
	"github.com/R3E-Network/submission_review/internal/storage"
)

const publishTimeout = 5 * time.Second

// Recorder receives business counters.
type Recorder interface {
	SubmissionCreated(platform string)
	SubmissionReviewed(action string)
}

type noopRecorder struct{}

func (noopRecorder) SubmissionCreated(string)  {}
func (noopRecorder) SubmissionReviewed(string) {}

// Options carries the optional collaborators of an Engine.
type Options struct {
	Clock     func() time.Time
	Location  *time.Location
	Publisher events.Publisher
	Recorder  Recorder
	Tracer    trace.Tracer
	NewID     func() string
}

// Engine coordinates submission workflows against a Store.
type Engine struct {
	store     storage.Store
	log       *logging.Logger
	now       func() time.Time
	loc       *time.Location
	publisher events.Publisher
	recorder  Recorder
	tracer    trace.Tracer
	newID     func() string
}

// New constructs an engine. Zero-valued options fall back to the system
// clock, UTC, no-op publishing and the global tracer.
func New(store storage.Store, log *logging.Logger, opts Options) *Engine {
	if log == nil {
		log = logging.NewDefault("review")
	}
	e := &Engine{
		store:     store,
		log:       log,
		now:       opts.Clock,
		loc:       opts.Location,
		publisher: opts.Publisher,
		recorder:  opts.Recorder,
		tracer:    opts.Tracer,
		newID:     opts.NewID,
	}
	if e.now == nil {
		e.now = func() time.Time { return time.Now().UTC() }
	}
	if e.loc == nil {
		e.loc = time.UTC
	}
	if e.publisher == nil {
		e.publisher = events.Noop{}
	}
	if e.recorder == nil {
		e.recorder = noopRecorder{}
	}
	if e.tracer == nil {
		e.tracer = otel.Tracer("github.com/R3E-Network/submission_review/internal/review")
	}
	if e.newID == nil {
		e.newID = uuid.NewString
	}
	return e
}

// CreateSubmission stores a new pending submission for creatorID and
// increments the creator's total in the same transaction.
func (e *Engine) CreateSubmission(ctx context.Context, creatorID string, d submission.Draft) (sub submission.Submission, err error) {
	ctx, span := e.tracer.Start(ctx, "review.CreateSubmission", trace.WithAttributes(attribute.String("creator.id", creatorID)))
	defer func() { endSpan(span, err) }()

	user, err := e.store.GetUser(ctx, creatorID)
	if err != nil {
		return submission.Submission{}, storeError(err, "creator", creatorID)
	}
	creator, ok := user.(account.Creator)
	if !ok {
		return submission.Submission{}, svcerrors.Forbidden("only creators can submit videos")
	}
	if !creator.Active {
		return submission.Submission{}, svcerrors.InactiveAccount("creator account is inactive")
	}

	sub, err = submission.New(e.newID(), creator.ID, creator.Username, d, e.now())
	if err != nil {
		return submission.Submission{}, err
	}

	if _, err := e.store.FindSubmissionByURL(ctx, sub.VideoURL); err == nil {
		return submission.Submission{}, duplicateURL(sub.VideoURL)
	} else if !errors.Is(err, storage.ErrNotFound) {
		return submission.Submission{}, storeError(err, "submission", "")
	}

	err = e.store.WithTx(ctx, func(tx storage.Tx) error {
		if err := tx.InsertSubmission(ctx, sub); err != nil {
			return err
		}
		return tx.IncrementCreatorCounters(ctx, creator.ID, account.SubmissionCreated())
	})
	if errors.Is(err, storage.ErrDuplicate) {
		return submission.Submission{}, duplicateURL(sub.VideoURL)
	}
	if err != nil {
		return submission.Submission{}, storeError(err, "creator", creator.ID)
	}

	e.recorder.SubmissionCreated(string(sub.Platform))
	e.log.WithContext(ctx).
		WithField("submission_id", sub.ID).
		WithField("creator_id", creator.ID).
		WithField("platform", sub.Platform).
		Info("submission created")
	e.publish(ctx, events.Event{
		Type:         events.SubmissionCreated,
		SubmissionID: sub.ID,
		CreatorID:    sub.CreatorID,
		Status:       sub.Status,
		ActorID:      creator.ID,
		OccurredAt:   sub.SubmittedAt,
	})
	return sub, nil
}

// ReviewSubmission applies an admin decision to a pending submission. The
// status change and the creator's approved counter commit together.
func (e *Engine) ReviewSubmission(ctx context.Context, id, adminID string, action submission.Action, feedback *string) (sub submission.Submission, err error) {
	ctx, span := e.tracer.Start(ctx, "review.ReviewSubmission", trace.WithAttributes(
		attribute.String("submission.id", id),
		attribute.String("review.action", string(action)),
	))
	defer func() { endSpan(span, err) }()

	sub, err = e.store.GetSubmission(ctx, id)
	if err != nil {
		return submission.Submission{}, storeError(err, "submission", id)
	}
	if !sub.IsPending() {
		return submission.Submission{}, alreadyReviewed(sub.Status)
	}

	user, err := e.store.GetUser(ctx, adminID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return submission.Submission{}, storeError(err, "admin", adminID)
	}
	if _, ok := user.(account.Admin); !ok {
		return submission.Submission{}, svcerrors.Forbidden("only admins can review submissions")
	}

	if _, err := e.store.GetUser(ctx, sub.CreatorID); err != nil {
		return submission.Submission{}, storeError(err, "creator", sub.CreatorID)
	}

	if err := sub.Apply(action, adminID, feedback, e.now()); err != nil {
		return submission.Submission{}, err
	}

	err = e.store.WithTx(ctx, func(tx storage.Tx) error {
		if err := tx.TransitionSubmission(ctx, sub, submission.StatusPending); err != nil {
			return err
		}
		if action == submission.ActionApprove {
			return tx.IncrementCreatorCounters(ctx, sub.CreatorID, account.SubmissionApproved())
		}
		return nil
	})
	if errors.Is(err, storage.ErrStaleState) {
		return submission.Submission{}, alreadyReviewed("")
	}
	if err != nil {
		return submission.Submission{}, storeError(err, "submission", id)
	}

	e.recorder.SubmissionReviewed(string(action))
	e.log.WithContext(ctx).
		WithField("submission_id", sub.ID).
		WithField("admin_id", adminID).
		WithField("action", action).
		Info("submission reviewed")
	e.publish(ctx, events.Event{
		Type:         events.SubmissionReviewed,
		SubmissionID: sub.ID,
		CreatorID:    sub.CreatorID,
		Status:       sub.Status,
		Action:       action,
		ActorID:      adminID,
		OccurredAt:   *sub.ReviewedAt,
	})
	return sub, nil
}

// GetSubmission returns a submission visible to p: its owner or any admin.
func (e *Engine) GetSubmission(ctx context.Context, p account.Principal, id string) (submission.Submission, error) {
	sub, err := e.store.GetSubmission(ctx, id)
	if err != nil {
		return submission.Submission{}, storeError(err, "submission", id)
	}
	if !p.IsAdmin() && sub.CreatorID != p.ID {
		return submission.Submission{}, svcerrors.Forbidden("submission belongs to another creator")
	}
	return sub, nil
}

// UpdateSubmission edits caption, hashtags or notes of the caller's own
// pending submission.
func (e *Engine) UpdateSubmission(ctx context.Context, p account.Principal, id string, u submission.ContentUpdate) (sub submission.Submission, err error) {
	ctx, span := e.tracer.Start(ctx, "review.UpdateSubmission", trace.WithAttributes(attribute.String("submission.id", id)))
	defer func() { endSpan(span, err) }()

	sub, err = e.ownedPending(ctx, p, id, "edited")
	if err != nil {
		return submission.Submission{}, err
	}
	if err := sub.UpdateContent(u, e.now()); err != nil {
		return submission.Submission{}, err
	}

	err = e.store.WithTx(ctx, func(tx storage.Tx) error {
		return tx.UpdateSubmissionContent(ctx, sub)
	})
	if errors.Is(err, storage.ErrStaleState) {
		return submission.Submission{}, alreadyReviewed("")
	}
	if err != nil {
		return submission.Submission{}, storeError(err, "submission", id)
	}

	e.log.WithContext(ctx).WithField("submission_id", id).Info("submission updated")
	e.publish(ctx, events.Event{
		Type:         events.SubmissionUpdated,
		SubmissionID: sub.ID,
		CreatorID:    sub.CreatorID,
		Status:       sub.Status,
		ActorID:      p.ID,
		OccurredAt:   sub.UpdatedAt,
	})
	return sub, nil
}

// DeleteSubmission removes the caller's own pending submission. Creator
// counters are not decremented.
func (e *Engine) DeleteSubmission(ctx context.Context, p account.Principal, id string) (err error) {
	ctx, span := e.tracer.Start(ctx, "review.DeleteSubmission", trace.WithAttributes(attribute.String("submission.id", id)))
	defer func() { endSpan(span, err) }()

	sub, err := e.ownedPending(ctx, p, id, "deleted")
	if err != nil {
		return err
	}

	err = e.store.WithTx(ctx, func(tx storage.Tx) error {
		return tx.DeleteSubmission(ctx, id)
	})
	if errors.Is(err, storage.ErrStaleState) {
		return alreadyReviewed("")
	}
	if err != nil {
		return storeError(err, "submission", id)
	}

	e.log.WithContext(ctx).WithField("submission_id", id).Info("submission deleted")
	e.publish(ctx, events.Event{
		Type:         events.SubmissionDeleted,
		SubmissionID: sub.ID,
		CreatorID:    sub.CreatorID,
		Status:       sub.Status,
		ActorID:      p.ID,
		OccurredAt:   e.now(),
	})
	return nil
}

func (e *Engine) ownedPending(ctx context.Context, p account.Principal, id, verb string) (submission.Submission, error) {
	sub, err := e.store.GetSubmission(ctx, id)
	if err != nil {
		return submission.Submission{}, storeError(err, "submission", id)
	}
	if !p.IsCreator() || sub.CreatorID != p.ID {
		return submission.Submission{}, svcerrors.Forbidden("only the owning creator can modify a submission")
	}
	if !sub.CanBeModified() {
		return submission.Submission{}, svcerrors.InvalidTransition("submission can only be "+verb+" while pending").
			WithDetails("status", string(sub.Status))
	}
	return sub, nil
}

func (e *Engine) publish(ctx context.Context, ev events.Event) {
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := e.publisher.Publish(pubCtx, ev); err != nil {
		e.log.WithContext(ctx).
			WithError(err).
			WithField("event", ev.Type).
			WithField("submission_id", ev.SubmissionID).
			Warn("publish event failed")
	}
}

func duplicateURL(videoURL string) error {
	return svcerrors.Conflict("a submission for this video URL already exists").
		WithDetails("videoUrl", videoURL)
}

func alreadyReviewed(status submission.Status) error {
	err := svcerrors.InvalidTransition("submission has already been reviewed")
	if status != "" {
		return err.WithDetails("status", string(status))
	}
	return err
}

// storeError maps storage sentinels onto service errors. Service errors
// raised inside a storage call pass through unchanged.
func storeError(err error, resource, id string) error {
	if svcerrors.GetServiceError(err) != nil {
		return err
	}
	if errors.Is(err, storage.ErrNotFound) {
		return svcerrors.NotFound(resource, id)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return svcerrors.Internal("storage operation failed", err)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
