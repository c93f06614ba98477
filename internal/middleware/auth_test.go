package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/R3E-Network/submission_review/internal/domain/account"
	"github.com/R3E-Network/submission_review/internal/identity"
	"github.com/R3E-Network/submission_review/internal/logging"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestIdentity(t *testing.T, ttl time.Duration) *identity.Service {
	t.Helper()
	svc, err := identity.New(identity.Config{Secret: testSecret, TokenTTL: ttl}, nil, nil)
	if err != nil {
		t.Fatalf("identity.New() error = %v", err)
	}
	return svc
}

func generateTestToken(t *testing.T, svc *identity.Service, userID string, role account.Role) string {
	t.Helper()
	sess, err := svc.Issue(userID, "test@example.com", role)
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}
	return sess.Token
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestNewAuthMiddleware(t *testing.T) {
	logger := logging.New("test", "info", "json")
	middleware := NewAuthMiddleware(newTestIdentity(t, time.Hour), logger, []string{"/healthz", "/metrics"})

	if middleware.logger != logger {
		t.Error("logger not set correctly")
	}
	if len(middleware.skipPaths) != 2 {
		t.Errorf("skipPaths length = %d, want 2", len(middleware.skipPaths))
	}
	if !middleware.skipPaths["/healthz"] {
		t.Error("skipPaths does not contain /healthz")
	}
}

func TestAuthMiddleware_Handler_SkipPaths(t *testing.T) {
	middleware := NewAuthMiddleware(newTestIdentity(t, time.Hour), logging.New("test", "info", "json"), []string{"/healthz"})
	handler := middleware.Handler(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("Status code = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestAuthMiddleware_Handler_MissingAuthHeader(t *testing.T) {
	middleware := NewAuthMiddleware(newTestIdentity(t, time.Hour), nil, nil)
	handler := middleware.Handler(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/submissions", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Status code = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestAuthMiddleware_Handler_InvalidAuthHeaderFormat(t *testing.T) {
	middleware := NewAuthMiddleware(newTestIdentity(t, time.Hour), nil, nil)
	handler := middleware.Handler(okHandler())

	tests := []struct {
		name   string
		header string
	}{
		{"no bearer prefix", "token123"},
		{"wrong prefix", "Basic token123"},
		{"empty token", "Bearer "},
		{"garbage token", "Bearer not.a.jwt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/submissions", nil)
			req.Header.Set("Authorization", tt.header)
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("Status code = %d, want %d", rec.Code, http.StatusUnauthorized)
			}
		})
	}
}

func TestAuthMiddleware_Handler_ValidToken(t *testing.T) {
	svc := newTestIdentity(t, time.Hour)
	middleware := NewAuthMiddleware(svc, nil, nil)

	var captured account.Principal
	handler := middleware.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured, _ = PrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/submissions", nil)
	req.Header.Set("Authorization", "Bearer "+generateTestToken(t, svc, "user-123", account.RoleAdmin))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("Status code = %d, want %d", rec.Code, http.StatusOK)
	}
	if captured.ID != "user-123" || captured.Role != account.RoleAdmin {
		t.Errorf("principal = %+v, want user-123/admin", captured)
	}
}

func TestAuthMiddleware_Handler_ForeignSignature(t *testing.T) {
	svc := newTestIdentity(t, time.Hour)
	other, err := identity.New(identity.Config{Secret: "ffffffffffffffffffffffffffffffff"}, nil, nil)
	if err != nil {
		t.Fatalf("identity.New() error = %v", err)
	}
	middleware := NewAuthMiddleware(svc, nil, nil)
	handler := middleware.Handler(okHandler())

	req := httptest.NewRequest("GET", "/submissions", nil)
	req.Header.Set("Authorization", "Bearer "+generateTestToken(t, other, "user-123", account.RoleCreator))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Status code = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestAuthMiddleware_QueryTokenOnlyForWebsocket(t *testing.T) {
	svc := newTestIdentity(t, time.Hour)
	handler := NewAuthMiddleware(svc, nil, nil).Handler(okHandler())
	token := generateTestToken(t, svc, "admin-1", account.RoleAdmin)

	req := httptest.NewRequest("GET", "/ws/submissions?access_token="+token, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("plain request with query token: status = %d, want 401", rec.Code)
	}

	req = httptest.NewRequest("GET", "/ws/submissions?access_token="+token, nil)
	req.Header.Set("Upgrade", "websocket")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("websocket request with query token: status = %d, want 200", rec.Code)
	}
}

func TestRequireRole(t *testing.T) {
	handler := RequireRole(account.RoleAdmin)(okHandler())

	tests := []struct {
		name      string
		principal *account.Principal
		want      int
	}{
		{"anonymous", nil, http.StatusUnauthorized},
		{"creator", &account.Principal{ID: "c1", Role: account.RoleCreator}, http.StatusForbidden},
		{"admin", &account.Principal{ID: "a1", Role: account.RoleAdmin}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/submissions/stats", nil)
			if tt.principal != nil {
				req = req.WithContext(WithPrincipal(req.Context(), *tt.principal))
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("Status code = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}
