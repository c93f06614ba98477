package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/submission_review/internal/database"
	"github.com/R3E-Network/submission_review/internal/domain/account"
	"github.com/R3E-Network/submission_review/internal/domain/submission"
	svcerrors "github.com/R3E-Network/submission_review/internal/errors"
	"github.com/R3E-Network/submission_review/internal/query"
	"github.com/R3E-Network/submission_review/internal/review"
	"github.com/R3E-Network/submission_review/internal/storage"
)

var (
	fixedNow  = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	submCols  = []string{"id", "creator_id", "creator_username", "video_url", "platform", "caption", "hashtags", "notes", "status", "admin_feedback", "admin_id", "submitted_at", "reviewed_at", "updated_at"}
	countCols = []string{"count"}
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	store := New(database.New(sqlx.NewDb(db, "postgres"), nil))
	store.now = func() time.Time { return fixedNow }
	return store, mock
}

func TestListSubmissionsMapsRows(t *testing.T) {
	store, mock := newMockStore(t)
	plan := query.Submissions(submission.Filter{Status: submission.StatusApproved}, 10, 0)

	reviewed := fixedNow.Add(time.Hour)
	mock.ExpectQuery(regexp.QuoteMeta(plan.SelectSQL)).
		WithArgs("approved", 10).
		WillReturnRows(sqlmock.NewRows(submCols).AddRow(
			"s1", "c1", "alice", "https://tiktok.com/@a/video/1", "tiktok", "hello", "#a,#b", nil,
			"approved", "nice", "a1", fixedNow, reviewed, reviewed,
		))

	items, err := store.ListSubmissions(context.Background(), submission.Filter{Status: submission.StatusApproved}, 10, 0)
	require.NoError(t, err)
	require.Len(t, items, 1)

	got := items[0]
	assert.Equal(t, []string{"#a", "#b"}, got.Hashtags)
	assert.Nil(t, got.Notes)
	require.NotNil(t, got.Caption)
	assert.Equal(t, "hello", *got.Caption)
	require.NotNil(t, got.ReviewedAt)
	assert.True(t, got.IsReviewed())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountSubmissionsUsesSamePredicate(t *testing.T) {
	store, mock := newMockStore(t)
	f := submission.Filter{CreatorID: "c1", Search: "dance"}
	plan := query.Submissions(f, 0, 0)

	mock.ExpectQuery(regexp.QuoteMeta(plan.CountSQL)).
		WithArgs("c1", "%dance%").
		WillReturnRows(sqlmock.NewRows(countCols).AddRow(7))

	n, err := store.CountSubmissions(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, 7, n)
}

func TestInsertDuplicateURL(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO submissions")).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "submissions_video_url_key"})
	mock.ExpectRollback()

	err := store.WithTx(context.Background(), func(tx storage.Tx) error {
		return tx.InsertSubmission(context.Background(), submission.Submission{
			ID: "s1", CreatorID: "c1", VideoURL: "https://x", Platform: submission.PlatformTikTok,
			Status: submission.StatusPending, SubmittedAt: fixedNow, UpdatedAt: fixedNow,
		})
	})
	assert.ErrorIs(t, err, storage.ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAndCountInOneTransaction(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO submissions")).
		WithArgs("s1", "c1", "alice", "https://x", "tiktok", nil, "#a", nil, "pending", fixedNow, fixedNow).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users")).
		WithArgs("c1", 1, 0, fixedNow).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.WithTx(context.Background(), func(tx storage.Tx) error {
		err := tx.InsertSubmission(context.Background(), submission.Submission{
			ID: "s1", CreatorID: "c1", CreatorUsername: "alice", VideoURL: "https://x",
			Platform: submission.PlatformTikTok, Hashtags: []string{"#a"},
			Status: submission.StatusPending, SubmittedAt: fixedNow, UpdatedAt: fixedNow,
		})
		if err != nil {
			return err
		}
		return tx.IncrementCreatorCounters(context.Background(), "c1", account.SubmissionCreated())
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransitionZeroRowsIsStale(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE submissions")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	admin := "a1"
	err := store.WithTx(context.Background(), func(tx storage.Tx) error {
		return tx.TransitionSubmission(context.Background(), submission.Submission{
			ID: "s1", Status: submission.StatusApproved, AdminID: &admin, ReviewedAt: &fixedNow, UpdatedAt: fixedNow,
		}, submission.StatusPending)
	})
	assert.True(t, errors.Is(err, storage.ErrStaleState))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNegativeCounterDeltaRejected(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	err := store.WithTx(context.Background(), func(tx storage.Tx) error {
		return tx.IncrementCreatorCounters(context.Background(), "c1", account.CounterDelta{Total: -1})
	})
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMostActiveCreatorEmpty(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery("SELECT s.creator_id").
		WillReturnRows(sqlmock.NewRows([]string{"creator_id", "creator_username", "submissions"}))

	top, err := store.MostActiveCreator(context.Background())
	require.NoError(t, err)
	assert.Nil(t, top)
}

func TestMostActiveCreatorReportsUsernameSnapshot(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta("(ARRAY_AGG(s.creator_username ORDER BY s.submitted_at DESC, s.id))[1] AS creator_username")).
		WillReturnRows(sqlmock.NewRows([]string{"creator_id", "creator_username", "submissions"}).AddRow("c1", "alice_then", 4))

	top, err := store.MostActiveCreator(context.Background())
	require.NoError(t, err)
	require.NotNil(t, top)
	assert.Equal(t, submission.CreatorActivity{CreatorID: "c1", CreatorUsername: "alice_then", Submissions: 4}, *top)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetUserMapsAdminVariant(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + userColumns + " FROM users WHERE id = $1")).
		WithArgs("a1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "username", "role", "password_hash", "total_submissions", "approved_submissions", "active", "created_at", "updated_at"}).
			AddRow("a1", "root@example.com", "root", "admin", "", 0, 0, true, fixedNow, fixedNow))

	u, err := store.GetUser(context.Background(), "a1")
	require.NoError(t, err)
	_, isAdmin := u.(account.Admin)
	assert.True(t, isAdmin)
}

func TestCountByStatus(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT status, COUNT(*) AS n FROM submissions GROUP BY status")).
		WillReturnRows(sqlmock.NewRows([]string{"status", "n"}).AddRow("pending", 3).AddRow("approved", 2))

	counts, err := store.CountByStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, counts[submission.StatusPending])
	assert.Equal(t, 2, counts[submission.StatusApproved])
	assert.Equal(t, 0, counts[submission.StatusRejected])
}

func TestMalformedSubmissionIDIsNotFound(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM submissions WHERE id = $1")).
		WithArgs("not-a-uuid").
		WillReturnError(&pq.Error{Code: "22P02", Message: `invalid input syntax for type uuid: "not-a-uuid"`})

	engine := review.New(store, nil, review.Options{})
	admin := account.Principal{ID: "3f2504e0-4f89-11d3-9a0c-0305e82c3301", Role: account.RoleAdmin}
	_, err := engine.GetSubmission(context.Background(), admin, "not-a-uuid")
	require.Error(t, err)
	assert.True(t, svcerrors.HasCode(err, svcerrors.CodeNotFound), "got %v", err)
	assert.Equal(t, 404, svcerrors.GetServiceError(err).HTTPStatus)
	assert.NoError(t, mock.ExpectationsWereMet())
}
