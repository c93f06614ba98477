package videometrics

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/R3E-Network/submission_review/internal/app/system"
	"github.com/R3E-Network/submission_review/internal/domain/engagement"
	"github.com/R3E-Network/submission_review/internal/domain/submission"
	"github.com/R3E-Network/submission_review/internal/logging"
	"github.com/R3E-Network/submission_review/internal/storage"
)

var _ system.Service = (*Refresher)(nil)

// Recorder receives refresh outcomes.
type Recorder interface {
	RecordRefresh(outcome string)
	ObserveRefreshRun(d time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) RecordRefresh(string)            {}
func (nopRecorder) ObserveRefreshRun(time.Duration) {}

// Refresh outcomes.
const (
	OutcomeOK       = "ok"
	OutcomeNotFound = "not_found"
	OutcomeError    = "error"
	OutcomeSkipped  = "skipped"
)

// RefresherConfig controls scheduling.
type RefresherConfig struct {
	// Schedule is a cron spec or descriptor; defaults to "@every 30m".
	Schedule string
	PageSize int
	// VideoTimeout bounds a single provider call.
	VideoTimeout time.Duration
}

// RefreshResult summarises one run.
type RefreshResult struct {
	Refreshed int
	NotFound  int
	Failed    int
	Skipped   int
}

// Refresher periodically stores fresh metrics for every approved TikTok
// submission.
type Refresher struct {
	source   storage.SubmissionReader
	sink     storage.EngagementStore
	provider Provider
	recorder Recorder
	log      *logging.Logger
	schedule cron.Schedule
	pageSize int
	timeout  time.Duration
	now      func() time.Time

	mu      sync.Mutex
	cron    *cron.Cron
	cancel  context.CancelFunc
	running bool
}

// NewRefresher validates cfg and builds a stopped refresher.
func NewRefresher(source storage.SubmissionReader, sink storage.EngagementStore, provider Provider, recorder Recorder, cfg RefresherConfig, log *logging.Logger) (*Refresher, error) {
	if source == nil || sink == nil || provider == nil {
		return nil, fmt.Errorf("refresher requires a source, sink and provider")
	}
	if log == nil {
		log = logging.NewDefault("videometrics-refresher")
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	spec := cfg.Schedule
	if spec == "" {
		spec = "@every 30m"
	}
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("parse refresh schedule %q: %w", spec, err)
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 100
	}
	timeout := cfg.VideoTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Refresher{
		source:   source,
		sink:     sink,
		provider: provider,
		recorder: recorder,
		log:      log,
		schedule: schedule,
		pageSize: pageSize,
		timeout:  timeout,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

func (r *Refresher) Name() string { return "videometrics-refresher" }

func (r *Refresher) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return nil
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.PrintfLogger(r.log))))
	c.Schedule(r.schedule, cron.FuncJob(func() {
		if _, err := r.RunOnce(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			r.log.WithError(err).Warn("video metrics refresh run failed")
		}
	}))
	c.Start()

	r.cron = c
	r.cancel = cancel
	r.running = true
	r.log.Info("video metrics refresher started")
	return nil
}

func (r *Refresher) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	c, cancel := r.cron, r.cancel
	r.cron, r.cancel, r.running = nil, nil, false
	r.mu.Unlock()

	cancel()
	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	r.log.Info("video metrics refresher stopped")
	return nil
}

// RunOnce refreshes every approved TikTok submission. Per-video failures are
// logged and counted; only listing failures abort the run.
func (r *Refresher) RunOnce(ctx context.Context) (RefreshResult, error) {
	start := time.Now()
	defer func() { r.recorder.ObserveRefreshRun(time.Since(start)) }()

	var res RefreshResult
	filter := submission.Filter{Status: submission.StatusApproved, Platform: submission.PlatformTikTok}
	for offset := 0; ; offset += r.pageSize {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		page, err := r.source.ListSubmissions(ctx, filter, r.pageSize, offset)
		if err != nil {
			return res, fmt.Errorf("list approved submissions: %w", err)
		}
		for _, s := range page {
			r.record(&res, r.refreshOne(ctx, s))
		}
		if len(page) < r.pageSize {
			break
		}
	}

	r.log.WithFields(map[string]interface{}{
		"refreshed": res.Refreshed,
		"not_found": res.NotFound,
		"failed":    res.Failed,
		"skipped":   res.Skipped,
	}).Info("video metrics refresh complete")
	return res, nil
}

func (r *Refresher) record(res *RefreshResult, outcome string) {
	switch outcome {
	case OutcomeOK:
		res.Refreshed++
	case OutcomeNotFound:
		res.NotFound++
	case OutcomeSkipped:
		res.Skipped++
	default:
		res.Failed++
	}
	r.recorder.RecordRefresh(outcome)
}

func (r *Refresher) refreshOne(ctx context.Context, s submission.Submission) string {
	entry := r.log.WithContext(ctx).WithField("submission_id", s.ID)

	videoID, ok := VideoIDFromURL(s.VideoURL)
	if !ok {
		entry.WithField("video_url", s.VideoURL).Debug("no video id in url")
		return OutcomeSkipped
	}

	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	m, err := r.provider.FetchVideoMetrics(callCtx, videoID)
	if errors.Is(err, ErrVideoNotFound) {
		entry.WithField("video_id", videoID).Info("video no longer available")
		return OutcomeNotFound
	}
	if err != nil {
		entry.WithError(err).WithField("video_id", videoID).Warn("fetch video metrics failed")
		return OutcomeError
	}

	snap := engagement.Snapshot{SubmissionID: s.ID, VideoID: videoID, Metrics: m, FetchedAt: r.now()}
	if err := r.sink.UpsertEngagement(ctx, snap); err != nil {
		entry.WithError(err).Warn("store video metrics failed")
		return OutcomeError
	}
	return OutcomeOK
}
