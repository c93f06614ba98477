// Package httpapi exposes the review engine over JSON HTTP.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/R3E-Network/submission_review/internal/domain/account"
	"github.com/R3E-Network/submission_review/internal/identity"
	"github.com/R3E-Network/submission_review/internal/logging"
	"github.com/R3E-Network/submission_review/internal/metrics"
	"github.com/R3E-Network/submission_review/internal/middleware"
	"github.com/R3E-Network/submission_review/internal/review"
	"github.com/R3E-Network/submission_review/internal/storage"
)

const serviceName = "submission-review"

// Pinger reports backing store reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators served by the router. Hub, RateLimiter and
// Audit are optional.
type Deps struct {
	Engine         *review.Engine
	Identity       *identity.Service
	Accounts       storage.AccountStore
	Pinger         Pinger
	Metrics        *metrics.Metrics
	Hub            http.Handler
	RateLimiter    *middleware.RateLimiter
	Audit          *AuditLog
	AllowedOrigins []string
	// Location interprets bare YYYY-MM-DD dates in listing filters.
	Location *time.Location
	Log      *logging.Logger
}

type handler struct {
	engine   *review.Engine
	identity *identity.Service
	accounts storage.AccountStore
	pinger   Pinger
	audit    *AuditLog
	loc      *time.Location
	log      *logging.Logger
	memory   memoryProbe
}

// NewRouter returns the full handler chain: CORS, OpenTelemetry, request
// tracing, logging and metrics on every route; authentication, rate
// limiting and auditing on the authenticated API.
func NewRouter(d Deps) http.Handler {
	if d.Log == nil {
		d.Log = logging.NewDefault("httpapi")
	}
	if d.Metrics == nil {
		d.Metrics = metrics.New()
	}
	if d.Location == nil {
		d.Location = time.UTC
	}
	if d.Audit == nil {
		d.Audit = NewAuditLog(0, nil)
	}
	h := &handler{
		engine:   d.Engine,
		identity: d.Identity,
		accounts: d.Accounts,
		pinger:   d.Pinger,
		audit:    d.Audit,
		loc:      d.Location,
		log:      d.Log,
		memory:   hostMemory,
	}

	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(h.notFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(h.methodNotAllowed)
	r.Use(
		middleware.NewTracingMiddleware(d.Log).Handler,
		middleware.LoggingMiddleware(d.Log),
		middleware.MetricsMiddleware("api", d.Metrics),
	)

	r.HandleFunc("/healthz", h.health).Methods(http.MethodGet)
	r.Handle("/metrics", d.Metrics.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/auth/login", h.login).Methods(http.MethodPost)

	api := r.NewRoute().Subrouter()
	api.Use(middleware.NewAuthMiddleware(d.Identity, d.Log, nil).Handler)
	if d.RateLimiter != nil {
		api.Use(d.RateLimiter.Handler)
	}
	api.Use(d.Audit.Middleware)

	admin := middleware.RequireRole(account.RoleAdmin)
	creator := middleware.RequireRole(account.RoleCreator)

	if d.Hub != nil {
		api.Handle("/ws/submissions", admin(d.Hub)).Methods(http.MethodGet)
	}
	api.Handle("/submissions", creator(http.HandlerFunc(h.createSubmission))).Methods(http.MethodPost)
	api.HandleFunc("/submissions", h.listSubmissions).Methods(http.MethodGet)
	api.Handle("/submissions/stats", admin(http.HandlerFunc(h.stats))).Methods(http.MethodGet)
	api.HandleFunc("/submissions/{id}", h.getSubmission).Methods(http.MethodGet)
	api.Handle("/submissions/{id}", creator(http.HandlerFunc(h.updateSubmission))).Methods(http.MethodPut)
	api.Handle("/submissions/{id}", creator(http.HandlerFunc(h.deleteSubmission))).Methods(http.MethodDelete)
	api.HandleFunc("/submissions/{id}/metrics", h.submissionMetrics).Methods(http.MethodGet)
	api.Handle("/submissions/{id}/review", admin(http.HandlerFunc(h.reviewSubmission))).Methods(http.MethodPut)
	api.Handle("/creators/{id}/status", admin(http.HandlerFunc(h.setCreatorStatus))).Methods(http.MethodPut)
	api.Handle("/audit", admin(http.HandlerFunc(h.auditEntries))).Methods(http.MethodGet)

	cors := middleware.NewCORSMiddleware(d.AllowedOrigins)
	return otelhttp.NewHandler(cors.Handler(r), serviceName)
}
