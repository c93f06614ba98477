package submission

import (
	"strings"
	"time"
)

// Filter narrows a submissions listing. Zero values mean "no constraint".
type Filter struct {
	Status    Status
	Platform  Platform
	CreatorID string
	AdminID   string
	DateFrom  *time.Time
	DateTo    *time.Time
	Search    string
}

// Matches evaluates the filter in memory with the same semantics as the SQL
// predicate: all present rules must hold; search is a case-insensitive
// substring match on creator username, caption or notes, ignoring
// surrounding whitespace in the term.
func (f Filter) Matches(s Submission) bool {
	if f.Status != "" && s.Status != f.Status {
		return false
	}
	if f.Platform != "" && s.Platform != f.Platform {
		return false
	}
	if f.CreatorID != "" && s.CreatorID != f.CreatorID {
		return false
	}
	if f.AdminID != "" && (s.AdminID == nil || *s.AdminID != f.AdminID) {
		return false
	}
	if f.DateFrom != nil && s.SubmittedAt.Before(*f.DateFrom) {
		return false
	}
	if f.DateTo != nil && s.SubmittedAt.After(*f.DateTo) {
		return false
	}
	if term := strings.ToLower(strings.TrimSpace(f.Search)); term != "" {
		if !containsFold(s.CreatorUsername, term) &&
			!containsFold(deref(s.Caption), term) &&
			!containsFold(deref(s.Notes), term) {
			return false
		}
	}
	return true
}

func containsFold(haystack, lowerNeedle string) bool {
	return strings.Contains(strings.ToLower(haystack), lowerNeedle)
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

// Page is one slice of a filtered listing plus the unpaginated total.
type Page struct {
	Items []Submission `json:"items"`
	Total int          `json:"total"`
}

// CreatorActivity is a creator ranked by submission volume.
type CreatorActivity struct {
	CreatorID       string `json:"creatorId"`
	CreatorUsername string `json:"creatorUsername"`
	Submissions     int    `json:"submissions"`
}

// Stats summarizes the submission store for admin dashboards.
type Stats struct {
	Total             int              `json:"total"`
	Pending           int              `json:"pending"`
	Approved          int              `json:"approved"`
	Rejected          int              `json:"rejected"`
	SubmittedToday    int              `json:"submittedToday"`
	MostActiveCreator *CreatorActivity `json:"mostActiveCreator"`
}
