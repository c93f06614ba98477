// Package account models platform users as a closed set of role variants.
package account

import (
	"strings"
	"time"

	"github.com/R3E-Network/submission_review/internal/errors"
)

// Role distinguishes creators from admins.
type Role string

const (
	RoleCreator Role = "creator"
	RoleAdmin   Role = "admin"
)

// ParseRole validates a role string.
func ParseRole(raw string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(raw))); r {
	case RoleCreator, RoleAdmin:
		return r, nil
	default:
		return "", errors.Validationf("unsupported role %q", raw)
	}
}

// User is implemented only by Creator and Admin.
type User interface {
	UserID() string
	UserRole() Role
	ProfileInfo() Profile
	isUser()
}

// Profile holds fields common to every user.
type Profile struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Creator is a content creator with submission counters.
type Creator struct {
	Profile
	TotalSubmissions    int  `json:"totalSubmissions"`
	ApprovedSubmissions int  `json:"approvedSubmissions"`
	Active              bool `json:"active"`
}

// Admin reviews submissions. Admins carry no counters.
type Admin struct {
	Profile
}

func (c Creator) UserID() string       { return c.ID }
func (c Creator) UserRole() Role       { return RoleCreator }
func (c Creator) ProfileInfo() Profile { return c.Profile }
func (Creator) isUser()                {}

func (a Admin) UserID() string       { return a.ID }
func (a Admin) UserRole() Role       { return RoleAdmin }
func (a Admin) ProfileInfo() Profile { return a.Profile }
func (Admin) isUser()                {}

// CounterDelta is an increment to a creator's monotonic counters.
type CounterDelta struct {
	Total    int
	Approved int
}

// SubmissionCreated is the delta for a newly stored submission.
func SubmissionCreated() CounterDelta { return CounterDelta{Total: 1} }

// SubmissionApproved is the delta for a submission transitioning to approved.
func SubmissionApproved() CounterDelta { return CounterDelta{Approved: 1} }

// ApplyCounters increments both counters. Negative deltas and results that
// would break approved <= total are rejected without mutation.
func (c *Creator) ApplyCounters(d CounterDelta) error {
	if d.Total < 0 || d.Approved < 0 {
		return errors.Internal("creator counters are monotonic", nil).
			WithDetails("total_delta", d.Total).
			WithDetails("approved_delta", d.Approved)
	}
	total := c.TotalSubmissions + d.Total
	approved := c.ApprovedSubmissions + d.Approved
	if approved > total {
		return errors.Internal("approved submissions would exceed total", nil).
			WithDetails("creator_id", c.ID)
	}
	c.TotalSubmissions = total
	c.ApprovedSubmissions = approved
	return nil
}

// Principal is an authenticated caller as resolved by the identity service.
type Principal struct {
	ID   string
	Role Role
}

func (p Principal) IsAdmin() bool   { return p.Role == RoleAdmin }
func (p Principal) IsCreator() bool { return p.Role == RoleCreator }

// Credentials is what the identity service needs to authenticate a login.
type Credentials struct {
	UserID       string
	Email        string
	Role         Role
	PasswordHash string
	Active       bool
}

// NewUser is the input for account creation.
type NewUser struct {
	Email        string
	Username     string
	Role         Role
	PasswordHash string
}
