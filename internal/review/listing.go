package review

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/R3E-Network/submission_review/internal/domain/account"
	"github.com/R3E-Network/submission_review/internal/domain/engagement"
	"github.com/R3E-Network/submission_review/internal/domain/submission"
	svcerrors "github.com/R3E-Network/submission_review/internal/errors"
)

// GetSubmissions returns one page of submissions matching f plus the
// unpaginated total. Both queries use the same filter and run concurrently.
func (e *Engine) GetSubmissions(ctx context.Context, f submission.Filter, limit, offset int) (submission.Page, error) {
	if limit < 0 || offset < 0 {
		return submission.Page{}, svcerrors.Validation("limit and offset must not be negative")
	}
	ctx, span := e.tracer.Start(ctx, "review.GetSubmissions")
	var err error
	defer func() { endSpan(span, err) }()

	var (
		items []submission.Submission
		total int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := e.store.CountSubmissions(gctx, f)
		total = n
		return err
	})
	g.Go(func() error {
		rows, err := e.store.ListSubmissions(gctx, f, limit, offset)
		items = rows
		return err
	})
	if err = g.Wait(); err != nil {
		return submission.Page{}, storeError(err, "submission", "")
	}
	if items == nil {
		items = []submission.Submission{}
	}
	return submission.Page{Items: items, Total: total}, nil
}

// ListForPrincipal restricts creators to their own submissions regardless
// of any creator filter they supplied.
func (e *Engine) ListForPrincipal(ctx context.Context, p account.Principal, f submission.Filter, limit, offset int) (submission.Page, error) {
	switch {
	case p.IsCreator():
		f.CreatorID = p.ID
	case p.IsAdmin():
	default:
		return submission.Page{}, svcerrors.Forbidden("unknown role")
	}
	return e.GetSubmissions(ctx, f, limit, offset)
}

// GetSubmissionStats computes the admin dashboard aggregates. "Today"
// starts at local midnight in the configured location.
func (e *Engine) GetSubmissionStats(ctx context.Context) (submission.Stats, error) {
	ctx, span := e.tracer.Start(ctx, "review.GetSubmissionStats")
	var err error
	defer func() { endSpan(span, err) }()

	midnight := startOfDay(e.now(), e.loc)

	var (
		byStatus map[submission.Status]int
		today    int
		top      *submission.CreatorActivity
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		counts, err := e.store.CountByStatus(gctx)
		byStatus = counts
		return err
	})
	g.Go(func() error {
		n, err := e.store.CountSubmittedSince(gctx, midnight)
		today = n
		return err
	})
	g.Go(func() error {
		a, err := e.store.MostActiveCreator(gctx)
		top = a
		return err
	})
	if err = g.Wait(); err != nil {
		return submission.Stats{}, storeError(err, "submission", "")
	}

	stats := submission.Stats{
		Pending:           byStatus[submission.StatusPending],
		Approved:          byStatus[submission.StatusApproved],
		Rejected:          byStatus[submission.StatusRejected],
		SubmittedToday:    today,
		MostActiveCreator: top,
	}
	stats.Total = stats.Pending + stats.Approved + stats.Rejected
	return stats, nil
}

// GetEngagement returns the stored video metrics for a submission visible to p.
func (e *Engine) GetEngagement(ctx context.Context, p account.Principal, id string) (engagement.Snapshot, error) {
	if _, err := e.GetSubmission(ctx, p, id); err != nil {
		return engagement.Snapshot{}, err
	}
	snap, err := e.store.GetEngagement(ctx, id)
	if err != nil {
		return engagement.Snapshot{}, storeError(err, "video metrics", id)
	}
	return snap, nil
}

func startOfDay(now time.Time, loc *time.Location) time.Time {
	y, m, d := now.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
