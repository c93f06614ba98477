package identity

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/submission_review/internal/domain/account"
	"github.com/R3E-Network/submission_review/internal/errors"
	"github.com/R3E-Network/submission_review/internal/storage/memory"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newService(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	store := memory.New()
	svc, err := New(Config{Secret: testSecret, Issuer: "submission-review", TokenTTL: time.Hour}, store, nil)
	require.NoError(t, err)
	return svc, store
}

func TestNewRejectsShortSecret(t *testing.T) {
	_, err := New(Config{Secret: "short"}, memory.New(), nil)
	assert.Error(t, err)
}

func TestAuthenticateAndVerify(t *testing.T) {
	svc, store := newService(t)
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	u, err := store.CreateUser(context.Background(), account.NewUser{Email: "alice@example.com", Username: "alice", Role: account.RoleCreator, PasswordHash: hash})
	require.NoError(t, err)

	sess, err := svc.Authenticate(context.Background(), "ALICE@example.com", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, u.UserID(), sess.UserID)
	assert.Equal(t, "creator", sess.Role)

	p, err := svc.Verify(sess.Token)
	require.NoError(t, err)
	assert.Equal(t, account.Principal{ID: u.UserID(), Role: account.RoleCreator}, p)
}

func TestAuthenticateFailures(t *testing.T) {
	svc, store := newService(t)
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	u, err := store.CreateUser(context.Background(), account.NewUser{Email: "alice@example.com", Role: account.RoleCreator, PasswordHash: hash})
	require.NoError(t, err)

	_, err = svc.Authenticate(context.Background(), "alice@example.com", "wrong password")
	assert.True(t, errors.HasCode(err, errors.CodeUnauthorized))

	_, err = svc.Authenticate(context.Background(), "nobody@example.com", "whatever1")
	assert.True(t, errors.HasCode(err, errors.CodeUnauthorized))

	_, err = svc.Authenticate(context.Background(), "", "")
	assert.True(t, errors.HasCode(err, errors.CodeValidation))

	require.NoError(t, store.SetCreatorActive(context.Background(), u.UserID(), false))
	_, err = svc.Authenticate(context.Background(), "alice@example.com", "correct horse")
	assert.True(t, errors.HasCode(err, errors.CodeInactiveAccount))
}

func TestVerifyRejectsExpiredAndForeignTokens(t *testing.T) {
	svc, _ := newService(t)
	sess, err := svc.Issue("u1", "", account.RoleAdmin)
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = svc.Verify(sess.Token)
	assert.True(t, errors.HasCode(err, errors.CodeInvalidToken))
	svc.now = time.Now

	other, err := New(Config{Secret: strings.Repeat("x", 32), Issuer: "submission-review"}, nil, nil)
	require.NoError(t, err)
	foreign, err := other.Issue("u1", "", account.RoleAdmin)
	require.NoError(t, err)
	_, err = svc.Verify(foreign.Token)
	assert.True(t, errors.HasCode(err, errors.CodeInvalidToken))

	none := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{UserID: "u1", Role: "admin"})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = svc.Verify(unsigned)
	assert.True(t, errors.HasCode(err, errors.CodeInvalidToken))
}

func TestVerifyRejectsUnknownRole(t *testing.T) {
	svc, _ := newService(t)
	sess, err := svc.Issue("u1", "", account.Role("superuser"))
	require.NoError(t, err)
	_, err = svc.Verify(sess.Token)
	assert.True(t, errors.HasCode(err, errors.CodeInvalidToken))
}

func TestHashPasswordMinimumLength(t *testing.T) {
	_, err := HashPassword("short")
	assert.True(t, errors.HasCode(err, errors.CodeValidation))
}
