// Package submission models a creator's video submission and its review
// state machine.
package submission

import (
	"net/url"
	"strings"
	"time"

	"github.com/R3E-Network/submission_review/internal/errors"
)

// Status is the review state of a submission.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// ParseStatus validates a status string.
func ParseStatus(raw string) (Status, error) {
	switch s := Status(strings.ToLower(strings.TrimSpace(raw))); s {
	case StatusPending, StatusApproved, StatusRejected:
		return s, nil
	default:
		return "", errors.Validationf("unsupported status %q", raw)
	}
}

// Platform is the social network hosting the video.
type Platform string

const (
	PlatformTikTok    Platform = "tiktok"
	PlatformInstagram Platform = "instagram"
)

// ParsePlatform validates a platform string.
func ParsePlatform(raw string) (Platform, error) {
	switch p := Platform(strings.ToLower(strings.TrimSpace(raw))); p {
	case PlatformTikTok, PlatformInstagram:
		return p, nil
	default:
		return "", errors.Validationf("unsupported platform %q", raw)
	}
}

// Action is an admin review decision.
type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
)

// ParseAction validates a review action.
func ParseAction(raw string) (Action, error) {
	switch a := Action(strings.ToLower(strings.TrimSpace(raw))); a {
	case ActionApprove, ActionReject:
		return a, nil
	default:
		return "", errors.Validationf("action must be %q or %q", ActionApprove, ActionReject)
	}
}

// Submission is a video link proposed by a creator for review.
type Submission struct {
	ID              string     `json:"id"`
	CreatorID       string     `json:"creatorId"`
	CreatorUsername string     `json:"creatorUsername"`
	VideoURL        string     `json:"videoUrl"`
	Platform        Platform   `json:"platform"`
	Caption         *string    `json:"caption,omitempty"`
	Hashtags        []string   `json:"hashtags"`
	Notes           *string    `json:"notes,omitempty"`
	Status          Status     `json:"status"`
	AdminFeedback   *string    `json:"adminFeedback,omitempty"`
	AdminID         *string    `json:"adminId,omitempty"`
	SubmittedAt     time.Time  `json:"submittedAt"`
	ReviewedAt      *time.Time `json:"reviewedAt,omitempty"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// Draft carries the creator-supplied fields of a new submission.
type Draft struct {
	VideoURL string
	Platform Platform
	Caption  *string
	Hashtags []string
	Notes    *string
}

// New builds a pending submission. creatorUsername is captured as a
// point-in-time snapshot.
func New(id, creatorID, creatorUsername string, d Draft, now time.Time) (Submission, error) {
	videoURL, err := ValidateVideoURL(d.VideoURL)
	if err != nil {
		return Submission{}, err
	}
	platform, err := ParsePlatform(string(d.Platform))
	if err != nil {
		return Submission{}, err
	}
	return Submission{
		ID:              id,
		CreatorID:       creatorID,
		CreatorUsername: creatorUsername,
		VideoURL:        videoURL,
		Platform:        platform,
		Caption:         trimmedOrNil(d.Caption),
		Hashtags:        NormalizeHashtags(d.Hashtags),
		Notes:           trimmedOrNil(d.Notes),
		Status:          StatusPending,
		SubmittedAt:     now,
		UpdatedAt:       now,
	}, nil
}

// ValidateVideoURL trims raw and requires an absolute http(s) URL.
func ValidateVideoURL(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", errors.Validation("videoUrl is required")
	}
	u, err := url.Parse(trimmed)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return "", errors.Validationf("videoUrl %q is not a valid http(s) URL", raw)
	}
	return trimmed, nil
}

// ContentUpdate is a partial edit; nil fields are left unchanged.
type ContentUpdate struct {
	Caption  *string
	Hashtags *[]string
	Notes    *string
}

// Empty reports whether the update changes nothing.
func (u ContentUpdate) Empty() bool {
	return u.Caption == nil && u.Hashtags == nil && u.Notes == nil
}

func (s *Submission) IsPending() bool {
	return s.Status == StatusPending
}

// IsReviewed requires both a terminal status and a review timestamp.
func (s *Submission) IsReviewed() bool {
	return s.Status != StatusPending && s.ReviewedAt != nil
}

// CanBeModified reports whether the creator may still edit or delete.
func (s *Submission) CanBeModified() bool {
	return s.IsPending()
}

// AgeInHours returns whole hours elapsed since submission.
func (s *Submission) AgeInHours(now time.Time) int {
	age := now.Sub(s.SubmittedAt)
	if age < 0 {
		return 0
	}
	return int(age / time.Hour)
}

// Approve marks a pending submission approved.
func (s *Submission) Approve(adminID string, feedback *string, now time.Time) error {
	return s.review(StatusApproved, adminID, feedback, now)
}

// Reject marks a pending submission rejected.
func (s *Submission) Reject(adminID string, feedback *string, now time.Time) error {
	return s.review(StatusRejected, adminID, feedback, now)
}

// Apply dispatches to Approve or Reject.
func (s *Submission) Apply(action Action, adminID string, feedback *string, now time.Time) error {
	switch action {
	case ActionApprove:
		return s.Approve(adminID, feedback, now)
	case ActionReject:
		return s.Reject(adminID, feedback, now)
	default:
		return errors.Validationf("unsupported action %q", action)
	}
}

func (s *Submission) review(to Status, adminID string, feedback *string, now time.Time) error {
	if !s.IsPending() {
		return errors.InvalidTransition("submission has already been reviewed").
			WithDetails("status", string(s.Status))
	}
	admin := adminID
	reviewed := now
	s.Status = to
	s.AdminID = &admin
	s.AdminFeedback = trimmedOrNil(feedback)
	s.ReviewedAt = &reviewed
	s.UpdatedAt = now
	return nil
}

// UpdateContent applies a partial edit while the submission is pending.
func (s *Submission) UpdateContent(u ContentUpdate, now time.Time) error {
	if !s.CanBeModified() {
		return errors.InvalidTransition("submission can only be edited while pending").
			WithDetails("status", string(s.Status))
	}
	if u.Caption != nil {
		s.Caption = trimmedOrNil(u.Caption)
	}
	if u.Hashtags != nil {
		s.Hashtags = NormalizeHashtags(*u.Hashtags)
	}
	if u.Notes != nil {
		s.Notes = trimmedOrNil(u.Notes)
	}
	s.UpdatedAt = now
	return nil
}

func trimmedOrNil(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	if t == "" {
		return nil
	}
	return &t
}
