// Package postgres implements storage.Store on the database gateway.
package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/R3E-Network/submission_review/internal/database"
	"github.com/R3E-Network/submission_review/internal/domain/account"
	"github.com/R3E-Network/submission_review/internal/domain/engagement"
	"github.com/R3E-Network/submission_review/internal/domain/submission"
	svcerrors "github.com/R3E-Network/submission_review/internal/errors"
	"github.com/R3E-Network/submission_review/internal/query"
	"github.com/R3E-Network/submission_review/internal/storage"
)

// Store implements the storage interfaces backed by PostgreSQL.
type Store struct {
	gw  *database.Gateway
	now func() time.Time
}

var _ storage.Store = (*Store)(nil)

// New creates a Store using the provided gateway.
func New(gw *database.Gateway) *Store {
	return &Store{gw: gw, now: func() time.Time { return time.Now().UTC() }}
}

func (s *Store) Ping(ctx context.Context) error { return s.gw.Ping(ctx) }

func (s *Store) WithTx(ctx context.Context, fn func(tx storage.Tx) error) error {
	return s.gw.Transaction(ctx, func(q database.Querier) error {
		return fn(&tx{q: q, now: s.now})
	})
}

// --- AccountStore -----------------------------------------------------------

func (s *Store) CreateUser(ctx context.Context, u account.NewUser) (account.User, error) {
	now := s.now()
	row := userRow{
		ID:           uuid.NewString(),
		Email:        strings.ToLower(strings.TrimSpace(u.Email)),
		Username:     strings.TrimSpace(u.Username),
		Role:         string(u.Role),
		PasswordHash: u.PasswordHash,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	_, err := s.gw.Execute(ctx, `
		INSERT INTO users (id, email, username, role, password_hash, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, row.ID, row.Email, row.Username, row.Role, row.PasswordHash, row.Active, row.CreatedAt, row.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return row.toUser(), nil
}

func (s *Store) GetUser(ctx context.Context, id string) (account.User, error) {
	var row userRow
	if err := s.gw.QueryOne(ctx, &row, "SELECT "+userColumns+" FROM users WHERE id = $1", id); err != nil {
		return nil, err
	}
	return row.toUser(), nil
}

func (s *Store) GetCredentials(ctx context.Context, email string) (account.Credentials, error) {
	var row userRow
	err := s.gw.QueryOne(ctx, &row, "SELECT "+userColumns+" FROM users WHERE email = $1",
		strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return account.Credentials{}, err
	}
	role := account.Role(row.Role)
	return account.Credentials{
		UserID:       row.ID,
		Email:        row.Email,
		Role:         role,
		PasswordHash: row.PasswordHash,
		Active:       role == account.RoleAdmin || row.Active,
	}, nil
}

func (s *Store) SetCreatorActive(ctx context.Context, id string, active bool) error {
	n, err := s.gw.Execute(ctx, `
		UPDATE users SET active = $2, updated_at = $3
		WHERE id = $1 AND role = 'creator'
	`, id, active, s.now())
	if err != nil {
		return err
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// --- SubmissionReader -------------------------------------------------------

func (s *Store) GetSubmission(ctx context.Context, id string) (submission.Submission, error) {
	var row submissionRow
	if err := s.gw.QueryOne(ctx, &row, "SELECT "+query.SubmissionColumns+" FROM submissions WHERE id = $1", id); err != nil {
		return submission.Submission{}, err
	}
	return row.toSubmission(), nil
}

func (s *Store) FindSubmissionByURL(ctx context.Context, videoURL string) (submission.Submission, error) {
	var row submissionRow
	if err := s.gw.QueryOne(ctx, &row, "SELECT "+query.SubmissionColumns+" FROM submissions WHERE video_url = $1", videoURL); err != nil {
		return submission.Submission{}, err
	}
	return row.toSubmission(), nil
}

func (s *Store) ListSubmissions(ctx context.Context, f submission.Filter, limit, offset int) ([]submission.Submission, error) {
	plan := query.Submissions(f, limit, offset)
	var rows []submissionRow
	if err := s.gw.QueryMany(ctx, &rows, plan.SelectSQL, plan.SelectArgs...); err != nil {
		return nil, err
	}
	out := make([]submission.Submission, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toSubmission())
	}
	return out, nil
}

func (s *Store) CountSubmissions(ctx context.Context, f submission.Filter) (int, error) {
	plan := query.Submissions(f, 0, 0)
	var n int
	if err := s.gw.QueryOne(ctx, &n, plan.CountSQL, plan.CountArgs...); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *Store) CountByStatus(ctx context.Context) (map[submission.Status]int, error) {
	var rows []struct {
		Status string `db:"status"`
		N      int    `db:"n"`
	}
	if err := s.gw.QueryMany(ctx, &rows, "SELECT status, COUNT(*) AS n FROM submissions GROUP BY status"); err != nil {
		return nil, err
	}
	counts := make(map[submission.Status]int, len(rows))
	for _, r := range rows {
		counts[submission.Status(r.Status)] = r.N
	}
	return counts, nil
}

func (s *Store) CountSubmittedSince(ctx context.Context, since time.Time) (int, error) {
	var n int
	if err := s.gw.QueryOne(ctx, &n, "SELECT COUNT(*) FROM submissions WHERE submitted_at >= $1", since); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *Store) MostActiveCreator(ctx context.Context) (*submission.CreatorActivity, error) {
	var row struct {
		CreatorID       string `db:"creator_id"`
		CreatorUsername string `db:"creator_username"`
		Submissions     int    `db:"submissions"`
	}
	err := s.gw.QueryOne(ctx, &row, `
		SELECT s.creator_id,
			(ARRAY_AGG(s.creator_username ORDER BY s.submitted_at DESC, s.id))[1] AS creator_username,
			COUNT(*) AS submissions
		FROM submissions s
		GROUP BY s.creator_id
		ORDER BY submissions DESC, s.creator_id
		LIMIT 1
	`)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &submission.CreatorActivity{
		CreatorID:       row.CreatorID,
		CreatorUsername: row.CreatorUsername,
		Submissions:     row.Submissions,
	}, nil
}

// --- EngagementStore --------------------------------------------------------

func (s *Store) UpsertEngagement(ctx context.Context, snap engagement.Snapshot) error {
	_, err := s.gw.Execute(ctx, `
		INSERT INTO video_metrics (submission_id, video_id, views, likes, shares, comments, fetched_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (submission_id) DO UPDATE
		SET video_id = EXCLUDED.video_id, views = EXCLUDED.views, likes = EXCLUDED.likes,
		    shares = EXCLUDED.shares, comments = EXCLUDED.comments, fetched_at = EXCLUDED.fetched_at
	`, snap.SubmissionID, snap.VideoID, snap.Views, snap.Likes, snap.Shares, snap.Comments, snap.FetchedAt)
	return err
}

func (s *Store) GetEngagement(ctx context.Context, submissionID string) (engagement.Snapshot, error) {
	var row engagementRow
	err := s.gw.QueryOne(ctx, &row, `
		SELECT submission_id, video_id, views, likes, shares, comments, fetched_at
		FROM video_metrics WHERE submission_id = $1
	`, submissionID)
	if err != nil {
		return engagement.Snapshot{}, err
	}
	return row.toSnapshot(), nil
}

// --- Tx ---------------------------------------------------------------------

type tx struct {
	q   database.Querier
	now func() time.Time
}

func (t *tx) InsertSubmission(ctx context.Context, s submission.Submission) error {
	_, err := t.q.Execute(ctx, `
		INSERT INTO submissions (id, creator_id, creator_username, video_url, platform, caption, hashtags, notes, status, submitted_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, s.ID, s.CreatorID, s.CreatorUsername, s.VideoURL, string(s.Platform), toNullString(s.Caption),
		submission.JoinHashtags(s.Hashtags), toNullString(s.Notes), string(s.Status), s.SubmittedAt, s.UpdatedAt)
	return err
}

// TransitionSubmission reports ErrStaleState when no row in from matched.
func (t *tx) TransitionSubmission(ctx context.Context, s submission.Submission, from submission.Status) error {
	n, err := t.q.Execute(ctx, `
		UPDATE submissions
		SET status = $2, admin_id = $3, admin_feedback = $4, reviewed_at = $5, updated_at = $6
		WHERE id = $1 AND status = $7
	`, s.ID, string(s.Status), toNullString(s.AdminID), toNullString(s.AdminFeedback),
		toNullTime(s.ReviewedAt), s.UpdatedAt, string(from))
	return expectOne(n, err)
}

func (t *tx) UpdateSubmissionContent(ctx context.Context, s submission.Submission) error {
	n, err := t.q.Execute(ctx, `
		UPDATE submissions
		SET caption = $2, hashtags = $3, notes = $4, updated_at = $5
		WHERE id = $1 AND status = 'pending'
	`, s.ID, toNullString(s.Caption), submission.JoinHashtags(s.Hashtags), toNullString(s.Notes), s.UpdatedAt)
	return expectOne(n, err)
}

func (t *tx) DeleteSubmission(ctx context.Context, id string) error {
	n, err := t.q.Execute(ctx, "DELETE FROM submissions WHERE id = $1 AND status = 'pending'", id)
	return expectOne(n, err)
}

// IncrementCreatorCounters relies on the users_approved_le_total check
// constraint to reject increments that would break approved <= total.
func (t *tx) IncrementCreatorCounters(ctx context.Context, creatorID string, d account.CounterDelta) error {
	if d.Total < 0 || d.Approved < 0 {
		return svcerrors.Internal("creator counters are monotonic", nil).
			WithDetails("total_delta", d.Total).
			WithDetails("approved_delta", d.Approved)
	}
	n, err := t.q.Execute(ctx, `
		UPDATE users
		SET total_submissions = total_submissions + $2,
		    approved_submissions = approved_submissions + $3,
		    updated_at = $4
		WHERE id = $1 AND role = 'creator'
	`, creatorID, d.Total, d.Approved, t.now())
	if err != nil {
		return err
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func expectOne(n int64, err error) error {
	if err != nil {
		return err
	}
	if n == 0 {
		return storage.ErrStaleState
	}
	return nil
}
