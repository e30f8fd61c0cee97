package http

import (
	"context"
	"log/slog"
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/Flarenzy/trials-authorizer/internal/auth"
	"github.com/Flarenzy/trials-authorizer/internal/db"
)

type HealthChecker interface {
	Ping(ctx context.Context) error
}

// DecisionLister reads back the audit trail.
type DecisionLister interface {
	ListRecent(ctx context.Context, limit int) ([]db.AuditRecord, error)
}

type API struct {
	Logger     *slog.Logger
	Health     HealthChecker
	Authorizer auth.Authorizer
	Webhook    *auth.WebhookAuthorizer
	Decisions  DecisionLister
	Metrics    http.Handler
}

func NewAPI(logger *slog.Logger, health HealthChecker, authorizer auth.Authorizer, webhook *auth.WebhookAuthorizer) *API {
	if logger == nil {
		logger = slog.Default()
	}
	return &API{
		Logger:     logger,
		Health:     health,
		Authorizer: authorizer,
		Webhook:    webhook,
	}
}

func (a *API) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", a.handleHealthz)
	mux.HandleFunc("/readyz", a.handleReadyz)
	mux.HandleFunc("POST /v1/authorize", a.handleAuthorize)
	mux.HandleFunc("POST /v1/authorize/decision", a.handleAuthorizeDecision)
	mux.HandleFunc("POST /v1/webhooks/authorize", a.handleWebhookAuthorize)
	if a.Decisions != nil {
		mux.Handle("GET /v1/decisions", a.RequireDecision(http.HandlerFunc(a.handleListDecisions)))
	}
	if a.Metrics != nil {
		mux.Handle("GET /metrics", a.Metrics)
	}
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	return mux
}
