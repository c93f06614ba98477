package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/R3E-Network/submission_review/internal/domain/account"
	"github.com/R3E-Network/submission_review/internal/domain/engagement"
	"github.com/R3E-Network/submission_review/internal/domain/submission"
	"github.com/R3E-Network/submission_review/internal/storage"
)

func seedCreator(t *testing.T, store *Store) account.Creator {
	t.Helper()
	u, err := store.CreateUser(context.Background(), account.NewUser{Email: "Alice@Example.com", Username: "alice", Role: account.RoleCreator})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u.(account.Creator)
}

func pendingSubmission(id, creatorID, url string, at time.Time) submission.Submission {
	return submission.Submission{
		ID:          id,
		CreatorID:   creatorID,
		VideoURL:    url,
		Platform:    submission.PlatformTikTok,
		Hashtags:    []string{},
		Status:      submission.StatusPending,
		SubmittedAt: at,
		UpdatedAt:   at,
	}
}

func TestWithTxRollsBackOnError(t *testing.T) {
	store := New()
	creator := seedCreator(t, store)
	ctx := context.Background()
	boom := errors.New("boom")

	err := store.WithTx(ctx, func(tx storage.Tx) error {
		if err := tx.InsertSubmission(ctx, pendingSubmission("s1", creator.ID, "https://tiktok.com/v/1", time.Now())); err != nil {
			return err
		}
		if err := tx.IncrementCreatorCounters(ctx, creator.ID, account.SubmissionCreated()); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	if _, err := store.GetSubmission(ctx, "s1"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("submission should have been rolled back, got %v", err)
	}
	u, _ := store.GetUser(ctx, creator.ID)
	if u.(account.Creator).TotalSubmissions != 0 {
		t.Fatalf("counter should have been rolled back")
	}
}

func TestWithTxCommits(t *testing.T) {
	store := New()
	creator := seedCreator(t, store)
	ctx := context.Background()

	err := store.WithTx(ctx, func(tx storage.Tx) error {
		if err := tx.InsertSubmission(ctx, pendingSubmission("s1", creator.ID, "https://tiktok.com/v/1", time.Now())); err != nil {
			return err
		}
		return tx.IncrementCreatorCounters(ctx, creator.ID, account.SubmissionCreated())
	})
	if err != nil {
		t.Fatalf("tx: %v", err)
	}

	got, err := store.FindSubmissionByURL(ctx, "https://tiktok.com/v/1")
	if err != nil || got.ID != "s1" {
		t.Fatalf("find by url: %v %v", got, err)
	}
	u, _ := store.GetUser(ctx, creator.ID)
	if u.(account.Creator).TotalSubmissions != 1 {
		t.Fatalf("counter not committed")
	}
}

func TestConditionalWrites(t *testing.T) {
	store := New()
	creator := seedCreator(t, store)
	ctx := context.Background()
	sub := pendingSubmission("s1", creator.ID, "https://tiktok.com/v/1", time.Now())

	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	must(store.WithTx(ctx, func(tx storage.Tx) error { return tx.InsertSubmission(ctx, sub) }))

	dup := pendingSubmission("s2", creator.ID, sub.VideoURL, time.Now())
	if err := store.WithTx(ctx, func(tx storage.Tx) error { return tx.InsertSubmission(ctx, dup) }); !errors.Is(err, storage.ErrDuplicate) {
		t.Fatalf("expected duplicate, got %v", err)
	}

	reviewed := sub
	now := time.Now()
	admin := "admin-1"
	reviewed.Status = submission.StatusApproved
	reviewed.AdminID = &admin
	reviewed.ReviewedAt = &now
	must(store.WithTx(ctx, func(tx storage.Tx) error {
		return tx.TransitionSubmission(ctx, reviewed, submission.StatusPending)
	}))

	err := store.WithTx(ctx, func(tx storage.Tx) error {
		return tx.TransitionSubmission(ctx, reviewed, submission.StatusPending)
	})
	if !errors.Is(err, storage.ErrStaleState) {
		t.Fatalf("second transition should be stale, got %v", err)
	}
	if err := store.WithTx(ctx, func(tx storage.Tx) error { return tx.UpdateSubmissionContent(ctx, reviewed) }); !errors.Is(err, storage.ErrStaleState) {
		t.Fatalf("content update after review should be stale, got %v", err)
	}
	if err := store.WithTx(ctx, func(tx storage.Tx) error { return tx.DeleteSubmission(ctx, reviewed.ID) }); !errors.Is(err, storage.ErrStaleState) {
		t.Fatalf("delete after review should be stale, got %v", err)
	}
}

func TestListOrderingAndPaging(t *testing.T) {
	store := New()
	creator := seedCreator(t, store)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	err := store.WithTx(ctx, func(tx storage.Tx) error {
		for i, id := range []string{"a", "b", "c", "d"} {
			s := pendingSubmission(id, creator.ID, "https://tiktok.com/v/"+id, base.Add(time.Duration(i)*time.Hour))
			if err := tx.InsertSubmission(ctx, s); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	page, err := store.ListSubmissions(ctx, submission.Filter{}, 2, 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page) != 2 || page[0].ID != "c" || page[1].ID != "b" {
		t.Fatalf("unexpected page %v", ids(page))
	}
	empty, _ := store.ListSubmissions(ctx, submission.Filter{}, 2, 10)
	if len(empty) != 0 {
		t.Fatalf("offset past end should be empty")
	}

	since, _ := store.CountSubmittedSince(ctx, base.Add(2*time.Hour))
	if since != 2 {
		t.Fatalf("since = %d, want 2", since)
	}
	top, _ := store.MostActiveCreator(ctx)
	if top == nil || top.CreatorID != creator.ID || top.Submissions != 4 {
		t.Fatalf("unexpected most active %+v", top)
	}
}

func TestCredentialsLookupIsCaseInsensitive(t *testing.T) {
	store := New()
	creator := seedCreator(t, store)

	creds, err := store.GetCredentials(context.Background(), " alice@example.COM ")
	if err != nil {
		t.Fatalf("credentials: %v", err)
	}
	if creds.UserID != creator.ID || !creds.Active {
		t.Fatalf("unexpected credentials %+v", creds)
	}
	if _, err := store.CreateUser(context.Background(), account.NewUser{Email: "alice@example.com"}); !errors.Is(err, storage.ErrDuplicate) {
		t.Fatalf("expected duplicate email, got %v", err)
	}
}

func TestMostActiveCreatorUsesLatestUsernameSnapshot(t *testing.T) {
	store := New()
	creator := seedCreator(t, store)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	err := store.WithTx(ctx, func(tx storage.Tx) error {
		for i, name := range []string{"alice_old", "alice_new", "alice_mid"} {
			s := pendingSubmission(name, creator.ID, "https://tiktok.com/v/"+name, base)
			s.CreatorUsername = name
			switch i {
			case 1:
				s.SubmittedAt = base.Add(2 * time.Hour)
			case 2:
				s.SubmittedAt = base.Add(time.Hour)
			}
			if err := tx.InsertSubmission(ctx, s); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	top, err := store.MostActiveCreator(ctx)
	if err != nil || top == nil {
		t.Fatalf("most active: %+v %v", top, err)
	}
	if top.CreatorUsername != "alice_new" || top.Submissions != 3 {
		t.Fatalf("unexpected most active %+v", top)
	}
}

func TestDeleteSubmissionDropsEngagement(t *testing.T) {
	store := New()
	creator := seedCreator(t, store)
	ctx := context.Background()
	sub := pendingSubmission("s1", creator.ID, "https://tiktok.com/v/1", time.Now())

	if err := store.WithTx(ctx, func(tx storage.Tx) error { return tx.InsertSubmission(ctx, sub) }); err != nil {
		t.Fatalf("insert: %v", err)
	}
	snap := engagement.Snapshot{SubmissionID: "s1", VideoID: "1", Metrics: engagement.Metrics{Views: 10}, FetchedAt: time.Now()}
	if err := store.UpsertEngagement(ctx, snap); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	boom := errors.New("boom")
	err := store.WithTx(ctx, func(tx storage.Tx) error {
		if err := tx.DeleteSubmission(ctx, "s1"); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if _, err := store.GetEngagement(ctx, "s1"); err != nil {
		t.Fatalf("rolled back delete should keep engagement, got %v", err)
	}

	if err := store.WithTx(ctx, func(tx storage.Tx) error { return tx.DeleteSubmission(ctx, "s1") }); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.GetEngagement(ctx, "s1"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("engagement should be removed with its submission, got %v", err)
	}
	if err := store.UpsertEngagement(ctx, snap); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("upsert for deleted submission should fail, got %v", err)
	}
}

func ids(subs []submission.Submission) []string {
	out := make([]string, len(subs))
	for i, s := range subs {
		out[i] = s.ID
	}
	return out
}
