package review

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/submission_review/internal/domain/account"
	"github.com/R3E-Network/submission_review/internal/domain/engagement"
	"github.com/R3E-Network/submission_review/internal/domain/submission"
	svcerrors "github.com/R3E-Network/submission_review/internal/errors"
)

func seedPendingAndApproved(t *testing.T, f *fixture, c account.Creator, admin account.Admin, pending, approved int) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < pending+approved; i++ {
		sub, err := f.engine.CreateSubmission(ctx, c.ID, draft(fmt.Sprintf("https://tiktok.com/@%s/video/%d", c.Username, i)))
		require.NoError(t, err)
		if i >= pending {
			_, err = f.engine.ReviewSubmission(ctx, sub.ID, admin.ID, submission.ActionApprove, nil)
			require.NoError(t, err)
		}
	}
}

func TestGetSubmissionsPendingPage(t *testing.T) {
	f := newFixture(t)
	c := f.creator(t, "alice")
	admin := f.admin(t)
	seedPendingAndApproved(t, f, c, admin, 15, 5)

	page, err := f.engine.GetSubmissions(context.Background(), submission.Filter{Status: submission.StatusPending}, 10, 0)
	require.NoError(t, err)
	assert.Len(t, page.Items, 10)
	assert.Equal(t, 15, page.Total)
	for i := 1; i < len(page.Items); i++ {
		assert.False(t, page.Items[i].SubmittedAt.After(page.Items[i-1].SubmittedAt), "newest first")
	}
}

func TestPagesSumToTotal(t *testing.T) {
	f := newFixture(t)
	c := f.creator(t, "alice")
	admin := f.admin(t)
	seedPendingAndApproved(t, f, c, admin, 13, 4)

	for _, limit := range []int{1, 3, 5, 7, 17, 50} {
		seen := map[string]bool{}
		total := -1
		for offset := 0; ; offset += limit {
			page, err := f.engine.GetSubmissions(context.Background(), submission.Filter{}, limit, offset)
			require.NoError(t, err)
			if total == -1 {
				total = page.Total
			}
			assert.Equal(t, total, page.Total, "total is independent of paging")
			if len(page.Items) == 0 {
				break
			}
			for _, s := range page.Items {
				assert.False(t, seen[s.ID], "item %s repeated at limit %d", s.ID, limit)
				seen[s.ID] = true
			}
		}
		assert.Equal(t, 17, total)
		assert.Len(t, seen, total, "limit %d", limit)
	}
}

func TestNegativePagingRejected(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.GetSubmissions(context.Background(), submission.Filter{}, -1, 0)
	assert.True(t, svcerrors.HasCode(err, svcerrors.CodeValidation))
}

func TestCreatorFilterIsOverridden(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.creator(t, "alice")
	b := f.creator(t, "bob")
	admin := f.admin(t)
	seedPendingAndApproved(t, f, a, admin, 3, 0)
	seedPendingAndApproved(t, f, b, admin, 2, 0)

	page, err := f.engine.ListForPrincipal(ctx, principal(b), submission.Filter{CreatorID: a.ID}, 50, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	for _, s := range page.Items {
		assert.Equal(t, b.ID, s.CreatorID)
	}

	page, err = f.engine.ListForPrincipal(ctx, principal(admin), submission.Filter{CreatorID: a.ID}, 50, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)

	page, err = f.engine.ListForPrincipal(ctx, principal(admin), submission.Filter{}, 50, 0)
	require.NoError(t, err)
	assert.Equal(t, 5, page.Total)

	_, err = f.engine.ListForPrincipal(ctx, account.Principal{ID: "x", Role: "guest"}, submission.Filter{}, 50, 0)
	assert.True(t, svcerrors.HasCode(err, svcerrors.CodeForbidden))
}

func TestSearchAndAdminFilter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.creator(t, "DanceQueen")
	admin := f.admin(t)
	caption := "100% pure_fun"
	sub, err := f.engine.CreateSubmission(ctx, c.ID, submission.Draft{VideoURL: "https://tiktok.com/@q/video/1", Platform: submission.PlatformTikTok, Caption: &caption})
	require.NoError(t, err)
	_, err = f.engine.CreateSubmission(ctx, c.ID, draft("https://tiktok.com/@q/video/2"))
	require.NoError(t, err)

	page, err := f.engine.GetSubmissions(ctx, submission.Filter{Search: "dancequeen"}, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)

	page, err = f.engine.GetSubmissions(ctx, submission.Filter{Search: "% PURE"}, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)

	_, err = f.engine.ReviewSubmission(ctx, sub.ID, admin.ID, submission.ActionReject, nil)
	require.NoError(t, err)
	page, err = f.engine.GetSubmissions(ctx, submission.Filter{AdminID: admin.ID}, 10, 0)
	require.NoError(t, err)
	require.Equal(t, 1, page.Total)
	assert.Equal(t, sub.ID, page.Items[0].ID)
}

func TestStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.creator(t, "alice")
	bob := f.creator(t, "bob")
	admin := f.admin(t)

	empty, err := f.engine.GetSubmissionStats(ctx)
	require.NoError(t, err)
	assert.Nil(t, empty.MostActiveCreator)
	assert.Zero(t, empty.Total)

	seedPendingAndApproved(t, f, alice, admin, 2, 2)
	sub, err := f.engine.CreateSubmission(ctx, bob.ID, draft("https://tiktok.com/@b/video/1"))
	require.NoError(t, err)
	_, err = f.engine.ReviewSubmission(ctx, sub.ID, admin.ID, submission.ActionReject, nil)
	require.NoError(t, err)

	stats, err := f.engine.GetSubmissionStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, stats.Total)
	assert.Equal(t, 2, stats.Pending)
	assert.Equal(t, 2, stats.Approved)
	assert.Equal(t, 1, stats.Rejected)
	assert.Equal(t, 5, stats.SubmittedToday)
	require.NotNil(t, stats.MostActiveCreator)
	assert.Equal(t, alice.ID, stats.MostActiveCreator.CreatorID)
	assert.Equal(t, 4, stats.MostActiveCreator.Submissions)
}

func TestStartOfDayUsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*3600)
	// 20:00 UTC on Mar 1 is 05:00 on Mar 2 at UTC+9.
	now := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	got := startOfDay(now, loc)
	assert.True(t, got.Equal(time.Date(2026, 3, 1, 15, 0, 0, 0, time.UTC)), "got %s", got.UTC())
}

func TestEngagementVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.creator(t, "alice")
	bob := f.creator(t, "bob")
	sub, err := f.engine.CreateSubmission(ctx, alice.ID, draft("https://tiktok.com/@a/video/1"))
	require.NoError(t, err)

	_, err = f.engine.GetEngagement(ctx, principal(alice), sub.ID)
	assert.True(t, svcerrors.HasCode(err, svcerrors.CodeNotFound))

	require.NoError(t, f.store.UpsertEngagement(ctx, engagement.Snapshot{SubmissionID: sub.ID, VideoID: "1", Metrics: engagement.Metrics{Views: 10}}))
	snap, err := f.engine.GetEngagement(ctx, principal(alice), sub.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 10, snap.Views)

	_, err = f.engine.GetEngagement(ctx, principal(bob), sub.ID)
	assert.True(t, svcerrors.HasCode(err, svcerrors.CodeForbidden))
}

func TestSetCreatorActive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.creator(t, "alice")
	admin := f.admin(t)

	_, err := f.engine.SetCreatorActive(ctx, principal(c), c.ID, false)
	assert.True(t, svcerrors.HasCode(err, svcerrors.CodeForbidden))

	got, err := f.engine.SetCreatorActive(ctx, principal(admin), c.ID, false)
	require.NoError(t, err)
	assert.False(t, got.Active)

	_, err = f.engine.SetCreatorActive(ctx, principal(admin), admin.ID, false)
	assert.True(t, svcerrors.HasCode(err, svcerrors.CodeNotFound))
}
