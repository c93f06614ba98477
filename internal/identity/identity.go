// Package identity authenticates users and issues and verifies HS256
// session tokens.
package identity

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/R3E-Network/submission_review/internal/domain/account"
	"github.com/R3E-Network/submission_review/internal/errors"
	"github.com/R3E-Network/submission_review/internal/logging"
	"github.com/R3E-Network/submission_review/internal/storage"
)

const minSecretLength = 32

// Claims represents JWT claims
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Session is the result of a successful login.
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	UserID    string    `json:"userId"`
	Role      string    `json:"role"`
}

// CredentialStore resolves login credentials by email.
type CredentialStore interface {
	GetCredentials(ctx context.Context, email string) (account.Credentials, error)
}

// Config configures token issuance.
type Config struct {
	Secret   string
	Issuer   string
	TokenTTL time.Duration
}

// Service implements login and token verification.
type Service struct {
	secret []byte
	issuer string
	ttl    time.Duration
	creds  CredentialStore
	log    *logging.Logger
	now    func() time.Time
}

// New validates cfg and constructs the service.
func New(cfg Config, creds CredentialStore, log *logging.Logger) (*Service, error) {
	if len(cfg.Secret) < minSecretLength {
		return nil, fmt.Errorf("jwt secret must be at least %d bytes", minSecretLength)
	}
	if log == nil {
		log = logging.NewDefault("identity")
	}
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Service{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
		ttl:    ttl,
		creds:  creds,
		log:    log,
		now:    time.Now,
	}, nil
}

// Authenticate checks email and password and issues a session token.
// Unknown emails and wrong passwords are indistinguishable to the caller.
func (s *Service) Authenticate(ctx context.Context, email, password string) (Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return Session{}, errors.Validation("email and password are required")
	}

	creds, err := s.creds.GetCredentials(ctx, email)
	if stderrors.Is(err, storage.ErrNotFound) {
		s.log.LogSecurityEvent(ctx, "login_unknown_email", map[string]interface{}{"email": email})
		return Session{}, errors.Unauthorized("invalid email or password")
	}
	if err != nil {
		return Session{}, errors.Internal("credential lookup failed", err)
	}
	if creds.PasswordHash == "" || bcrypt.CompareHashAndPassword([]byte(creds.PasswordHash), []byte(password)) != nil {
		s.log.LogSecurityEvent(ctx, "login_bad_password", map[string]interface{}{"user_id": creds.UserID})
		return Session{}, errors.Unauthorized("invalid email or password")
	}
	if !creds.Active {
		return Session{}, errors.InactiveAccount("account is inactive")
	}
	return s.Issue(creds.UserID, creds.Email, creds.Role)
}

// Issue signs a token for the given identity.
func (s *Service) Issue(userID, email string, role account.Role) (Session, error) {
	now := s.now()
	expires := now.Add(s.ttl)
	claims := &Claims{
		UserID: userID,
		Email:  email,
		Role:   string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return Session{}, errors.Internal("sign token", err)
	}
	return Session{Token: signed, ExpiresAt: expires, UserID: userID, Role: string(role)}, nil
}

// Verify validates a token and returns the principal it names.
func (s *Service) Verify(tokenString string) (account.Principal, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		return account.Principal{}, errors.InvalidToken(err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return account.Principal{}, errors.InvalidToken(nil).WithDetails("reason", "invalid claims")
	}
	if claims.UserID == "" {
		return account.Principal{}, errors.InvalidToken(nil).WithDetails("reason", "missing user id")
	}
	role, err := account.ParseRole(claims.Role)
	if err != nil {
		return account.Principal{}, errors.InvalidToken(err).WithDetails("reason", "unknown role")
	}
	return account.Principal{ID: claims.UserID, Role: role}, nil
}

// HashPassword returns a bcrypt hash suitable for account.NewUser.
func HashPassword(password string) (string, error) {
	if len(password) < 8 {
		return "", errors.Validation("password must be at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
