// Package memory is a thread-safe in-memory implementation of storage.Store
// for tests and local runs. Transactions are applied to a private copy of the
// state and swapped in on commit.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/R3E-Network/submission_review/internal/domain/account"
	"github.com/R3E-Network/submission_review/internal/domain/engagement"
	"github.com/R3E-Network/submission_review/internal/domain/submission"
	"github.com/R3E-Network/submission_review/internal/storage"
)

var _ storage.Store = (*Store)(nil)

type userRecord struct {
	profile      account.Profile
	role         account.Role
	total        int
	approved     int
	active       bool
	passwordHash string
}

func (r userRecord) toUser() account.User {
	if r.role == account.RoleAdmin {
		return account.Admin{Profile: r.profile}
	}
	return account.Creator{
		Profile:             r.profile,
		TotalSubmissions:    r.total,
		ApprovedSubmissions: r.approved,
		Active:              r.active,
	}
}

type state struct {
	users       map[string]userRecord
	emails      map[string]string
	submissions map[string]submission.Submission
	urls        map[string]string
	engagement  map[string]engagement.Snapshot
}

func (s *state) clone() *state {
	out := &state{
		users:       make(map[string]userRecord, len(s.users)),
		emails:      make(map[string]string, len(s.emails)),
		submissions: make(map[string]submission.Submission, len(s.submissions)),
		urls:        make(map[string]string, len(s.urls)),
		engagement:  make(map[string]engagement.Snapshot, len(s.engagement)),
	}
	for k, v := range s.users {
		out.users[k] = v
	}
	for k, v := range s.emails {
		out.emails[k] = v
	}
	for k, v := range s.submissions {
		out.submissions[k] = cloneSubmission(v)
	}
	for k, v := range s.urls {
		out.urls[k] = v
	}
	for k, v := range s.engagement {
		out.engagement[k] = v
	}
	return out
}

// Store keeps all state behind a single RWMutex.
type Store struct {
	mu    sync.RWMutex
	state *state
	now   func() time.Time
}

// New creates an empty store.
func New() *Store {
	return &Store{
		state: &state{
			users:       make(map[string]userRecord),
			emails:      make(map[string]string),
			submissions: make(map[string]submission.Submission),
			urls:        make(map[string]string),
			engagement:  make(map[string]engagement.Snapshot),
		},
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (m *Store) Ping(context.Context) error { return nil }

// WithTx serializes transactions. fn must only use tx; calling read methods
// on the Store from inside fn deadlocks.
func (m *Store) WithTx(ctx context.Context, fn func(tx storage.Tx) error) (err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	work := &tx{state: m.state.clone(), now: m.now}
	if err := fn(work); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.state = work.state
	return nil
}

// --- AccountStore -----------------------------------------------------------

func (m *Store) CreateUser(_ context.Context, u account.NewUser) (account.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	email := strings.ToLower(strings.TrimSpace(u.Email))
	if _, exists := m.state.emails[email]; exists {
		return nil, storage.ErrDuplicate
	}
	now := m.now()
	rec := userRecord{
		profile: account.Profile{
			ID:        uuid.NewString(),
			Email:     email,
			Username:  strings.TrimSpace(u.Username),
			CreatedAt: now,
			UpdatedAt: now,
		},
		role:         u.Role,
		active:       true,
		passwordHash: u.PasswordHash,
	}
	m.state.users[rec.profile.ID] = rec
	m.state.emails[email] = rec.profile.ID
	return rec.toUser(), nil
}

func (m *Store) GetUser(_ context.Context, id string) (account.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.state.users[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return rec.toUser(), nil
}

func (m *Store) GetCredentials(_ context.Context, email string) (account.Credentials, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.state.emails[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return account.Credentials{}, storage.ErrNotFound
	}
	rec := m.state.users[id]
	return account.Credentials{
		UserID:       rec.profile.ID,
		Email:        rec.profile.Email,
		Role:         rec.role,
		PasswordHash: rec.passwordHash,
		Active:       rec.role == account.RoleAdmin || rec.active,
	}, nil
}

func (m *Store) SetCreatorActive(_ context.Context, id string, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.state.users[id]
	if !ok || rec.role != account.RoleCreator {
		return storage.ErrNotFound
	}
	rec.active = active
	rec.profile.UpdatedAt = m.now()
	m.state.users[id] = rec
	return nil
}

// --- SubmissionReader -------------------------------------------------------

func (m *Store) GetSubmission(_ context.Context, id string) (submission.Submission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.state.submissions[id]
	if !ok {
		return submission.Submission{}, storage.ErrNotFound
	}
	return cloneSubmission(s), nil
}

func (m *Store) FindSubmissionByURL(_ context.Context, videoURL string) (submission.Submission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.state.urls[videoURL]
	if !ok {
		return submission.Submission{}, storage.ErrNotFound
	}
	return cloneSubmission(m.state.submissions[id]), nil
}

func (m *Store) ListSubmissions(_ context.Context, f submission.Filter, limit, offset int) ([]submission.Submission, error) {
	m.mu.RLock()
	matched := m.matchLocked(f)
	m.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].SubmittedAt.Equal(matched[j].SubmittedAt) {
			return matched[i].SubmittedAt.After(matched[j].SubmittedAt)
		}
		return matched[i].ID < matched[j].ID
	})

	if offset < 0 {
		offset = 0
	}
	if offset >= len(matched) {
		return []submission.Submission{}, nil
	}
	matched = matched[offset:]
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, nil
}

func (m *Store) CountSubmissions(_ context.Context, f submission.Filter) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.matchLocked(f)), nil
}

func (m *Store) matchLocked(f submission.Filter) []submission.Submission {
	out := make([]submission.Submission, 0)
	for _, s := range m.state.submissions {
		if f.Matches(s) {
			out = append(out, cloneSubmission(s))
		}
	}
	return out
}

func (m *Store) CountByStatus(_ context.Context) (map[submission.Status]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	counts := map[submission.Status]int{}
	for _, s := range m.state.submissions {
		counts[s.Status]++
	}
	return counts, nil
}

func (m *Store) CountSubmittedSince(_ context.Context, since time.Time) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, s := range m.state.submissions {
		if !s.SubmittedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

// MostActiveCreator breaks ties by lowest creator id. The username is the
// snapshot on the creator's most recent submission.
func (m *Store) MostActiveCreator(_ context.Context) (*submission.CreatorActivity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	counts := map[string]*submission.CreatorActivity{}
	latest := map[string]submission.Submission{}
	for _, s := range m.state.submissions {
		a, ok := counts[s.CreatorID]
		if !ok {
			a = &submission.CreatorActivity{CreatorID: s.CreatorID}
			counts[s.CreatorID] = a
		}
		a.Submissions++
		if l, ok := latest[s.CreatorID]; !ok || s.SubmittedAt.After(l.SubmittedAt) ||
			(s.SubmittedAt.Equal(l.SubmittedAt) && s.ID < l.ID) {
			latest[s.CreatorID] = s
		}
	}
	for id, a := range counts {
		a.CreatorUsername = latest[id].CreatorUsername
	}

	var best *submission.CreatorActivity
	for _, a := range counts {
		if best == nil || a.Submissions > best.Submissions ||
			(a.Submissions == best.Submissions && a.CreatorID < best.CreatorID) {
			best = a
		}
	}
	return best, nil
}

// --- EngagementStore --------------------------------------------------------

func (m *Store) UpsertEngagement(_ context.Context, snap engagement.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.state.submissions[snap.SubmissionID]; !ok {
		return storage.ErrNotFound
	}
	m.state.engagement[snap.SubmissionID] = snap
	return nil
}

func (m *Store) GetEngagement(_ context.Context, submissionID string) (engagement.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap, ok := m.state.engagement[submissionID]
	if !ok {
		return engagement.Snapshot{}, storage.ErrNotFound
	}
	return snap, nil
}

// --- Tx ---------------------------------------------------------------------

type tx struct {
	state *state
	now   func() time.Time
}

func (t *tx) InsertSubmission(_ context.Context, s submission.Submission) error {
	if _, exists := t.state.urls[s.VideoURL]; exists {
		return storage.ErrDuplicate
	}
	if _, exists := t.state.submissions[s.ID]; exists {
		return storage.ErrDuplicate
	}
	t.state.submissions[s.ID] = cloneSubmission(s)
	t.state.urls[s.VideoURL] = s.ID
	return nil
}

func (t *tx) TransitionSubmission(_ context.Context, s submission.Submission, from submission.Status) error {
	current, ok := t.state.submissions[s.ID]
	if !ok {
		return storage.ErrNotFound
	}
	if current.Status != from {
		return storage.ErrStaleState
	}
	current.Status = s.Status
	current.AdminID = s.AdminID
	current.AdminFeedback = s.AdminFeedback
	current.ReviewedAt = s.ReviewedAt
	current.UpdatedAt = s.UpdatedAt
	t.state.submissions[s.ID] = current
	return nil
}

func (t *tx) UpdateSubmissionContent(_ context.Context, s submission.Submission) error {
	current, ok := t.state.submissions[s.ID]
	if !ok {
		return storage.ErrNotFound
	}
	if current.Status != submission.StatusPending {
		return storage.ErrStaleState
	}
	current.Caption = s.Caption
	current.Hashtags = append([]string(nil), s.Hashtags...)
	current.Notes = s.Notes
	current.UpdatedAt = s.UpdatedAt
	t.state.submissions[s.ID] = current
	return nil
}

func (t *tx) DeleteSubmission(_ context.Context, id string) error {
	current, ok := t.state.submissions[id]
	if !ok {
		return storage.ErrNotFound
	}
	if current.Status != submission.StatusPending {
		return storage.ErrStaleState
	}
	delete(t.state.submissions, id)
	delete(t.state.urls, current.VideoURL)
	delete(t.state.engagement, id)
	return nil
}

func (t *tx) IncrementCreatorCounters(_ context.Context, creatorID string, d account.CounterDelta) error {
	rec, ok := t.state.users[creatorID]
	if !ok || rec.role != account.RoleCreator {
		return storage.ErrNotFound
	}
	creator := rec.toUser().(account.Creator)
	if err := creator.ApplyCounters(d); err != nil {
		return err
	}
	rec.total = creator.TotalSubmissions
	rec.approved = creator.ApprovedSubmissions
	rec.profile.UpdatedAt = t.now()
	t.state.users[creatorID] = rec
	return nil
}

func cloneSubmission(s submission.Submission) submission.Submission {
	s.Hashtags = append(make([]string, 0, len(s.Hashtags)), s.Hashtags...)
	return s
}
