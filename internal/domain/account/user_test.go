package account

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyCounters(t *testing.T) {
	c := Creator{Profile: Profile{ID: "c1"}, Active: true}

	require.NoError(t, c.ApplyCounters(SubmissionCreated()))
	require.NoError(t, c.ApplyCounters(SubmissionApproved()))
	assert.Equal(t, 1, c.TotalSubmissions)
	assert.Equal(t, 1, c.ApprovedSubmissions)

	err := c.ApplyCounters(SubmissionApproved())
	require.Error(t, err, "approved must never exceed total")
	assert.Equal(t, 1, c.ApprovedSubmissions, "failed delta must not mutate")

	require.Error(t, c.ApplyCounters(CounterDelta{Total: -1}))
	assert.Equal(t, 1, c.TotalSubmissions)
}

func TestUserVariants(t *testing.T) {
	users := []User{
		Creator{Profile: Profile{ID: "c1", Username: "alice"}},
		Admin{Profile: Profile{ID: "a1", Username: "root"}},
	}
	roles := map[string]Role{}
	for _, u := range users {
		roles[u.UserID()] = u.UserRole()
	}
	assert.Equal(t, RoleCreator, roles["c1"])
	assert.Equal(t, RoleAdmin, roles["a1"])
	assert.Equal(t, "root", users[1].ProfileInfo().Username)
}

func TestParseRole(t *testing.T) {
	r, err := ParseRole(" ADMIN ")
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, r)

	_, err = ParseRole("moderator")
	assert.Error(t, err)

	assert.True(t, Principal{ID: "x", Role: RoleAdmin}.IsAdmin())
	assert.False(t, Principal{ID: "x", Role: RoleCreator}.IsAdmin())
}
