package postgres

import (
	"database/sql"
	"time"

	"github.com/R3E-Network/submission_review/internal/domain/account"
	"github.com/R3E-Network/submission_review/internal/domain/engagement"
	"github.com/R3E-Network/submission_review/internal/domain/submission"
)

type userRow struct {
	ID                  string    `db:"id"`
	Email               string    `db:"email"`
	Username            string    `db:"username"`
	Role                string    `db:"role"`
	PasswordHash        string    `db:"password_hash"`
	TotalSubmissions    int       `db:"total_submissions"`
	ApprovedSubmissions int       `db:"approved_submissions"`
	Active              bool      `db:"active"`
	CreatedAt           time.Time `db:"created_at"`
	UpdatedAt           time.Time `db:"updated_at"`
}

const userColumns = "id, email, username, role, password_hash, total_submissions, approved_submissions, active, created_at, updated_at"

func (r userRow) toUser() account.User {
	profile := account.Profile{
		ID:        r.ID,
		Email:     r.Email,
		Username:  r.Username,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
	if account.Role(r.Role) == account.RoleAdmin {
		return account.Admin{Profile: profile}
	}
	return account.Creator{
		Profile:             profile,
		TotalSubmissions:    r.TotalSubmissions,
		ApprovedSubmissions: r.ApprovedSubmissions,
		Active:              r.Active,
	}
}

type submissionRow struct {
	ID              string         `db:"id"`
	CreatorID       string         `db:"creator_id"`
	CreatorUsername string         `db:"creator_username"`
	VideoURL        string         `db:"video_url"`
	Platform        string         `db:"platform"`
	Caption         sql.NullString `db:"caption"`
	Hashtags        string         `db:"hashtags"`
	Notes           sql.NullString `db:"notes"`
	Status          string         `db:"status"`
	AdminFeedback   sql.NullString `db:"admin_feedback"`
	AdminID         sql.NullString `db:"admin_id"`
	SubmittedAt     time.Time      `db:"submitted_at"`
	ReviewedAt      sql.NullTime   `db:"reviewed_at"`
	UpdatedAt       time.Time      `db:"updated_at"`
}

func (r submissionRow) toSubmission() submission.Submission {
	s := submission.Submission{
		ID:              r.ID,
		CreatorID:       r.CreatorID,
		CreatorUsername: r.CreatorUsername,
		VideoURL:        r.VideoURL,
		Platform:        submission.Platform(r.Platform),
		Caption:         fromNullString(r.Caption),
		Hashtags:        submission.SplitHashtags(r.Hashtags),
		Notes:           fromNullString(r.Notes),
		Status:          submission.Status(r.Status),
		AdminFeedback:   fromNullString(r.AdminFeedback),
		AdminID:         fromNullString(r.AdminID),
		SubmittedAt:     r.SubmittedAt.UTC(),
		UpdatedAt:       r.UpdatedAt.UTC(),
	}
	if r.ReviewedAt.Valid {
		t := r.ReviewedAt.Time.UTC()
		s.ReviewedAt = &t
	}
	return s
}

type engagementRow struct {
	SubmissionID string    `db:"submission_id"`
	VideoID      string    `db:"video_id"`
	Views        int64     `db:"views"`
	Likes        int64     `db:"likes"`
	Shares       int64     `db:"shares"`
	Comments     int64     `db:"comments"`
	FetchedAt    time.Time `db:"fetched_at"`
}

func (r engagementRow) toSnapshot() engagement.Snapshot {
	return engagement.Snapshot{
		SubmissionID: r.SubmissionID,
		VideoID:      r.VideoID,
		Metrics: engagement.Metrics{
			Views:    r.Views,
			Likes:    r.Likes,
			Shares:   r.Shares,
			Comments: r.Comments,
		},
		FetchedAt: r.FetchedAt.UTC(),
	}
}

func fromNullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func toNullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

func toNullTime(v *time.Time) sql.NullTime {
	if v == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *v, Valid: true}
}
