package http

import (
	"net/http"

	"github.com/Flarenzy/trials-authorizer/internal/auth"
)

// @Summary Health check
// @Tags health
// @Success 200 {string} string "ok"
// @Router /healthz [get]
func (a *API) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// @Summary Readiness check
// @Tags health
// @Success 200 {string} string "ready"
// @Failure 503 {string} string "db unavailable"
// @Router /readyz [get]
func (a *API) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if a.Health != nil {
		if err := a.Health.Ping(ctx); err != nil {
			a.Logger.ErrorContext(ctx, "db ping failed", "err", err.Error())
			http.Error(w, "db unavailable", http.StatusServiceUnavailable)
			return
		}
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// @Summary Authorize a bearer token
// @Description Verifies the token and returns an API Gateway policy scoped to the resource group.
// @Tags authorize
// @Accept json
// @Produce json
// @Param event body AuthorizeRequest true "TOKEN authorizer event"
// @Success 200 {object} PolicyResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /v1/authorize [post]
func (a *API) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	decision, ok := a.authorizeEvent(w, r)
	if !ok {
		return
	}
	if !decision.Allowed() {
		a.unauthorized(w, r)
		return
	}

	if err := encode(w, r, http.StatusOK, policyFromDecision(decision)); err != nil {
		a.Logger.ErrorContext(ctx, "responding to client with policy", "err", err.Error())
	}
}

// @Summary Authorize a bearer token and return the decision
// @Tags authorize
// @Accept json
// @Produce json
// @Param event body AuthorizeRequest true "TOKEN authorizer event"
// @Success 200 {object} DecisionResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} DecisionResponse
// @Router /v1/authorize/decision [post]
func (a *API) handleAuthorizeDecision(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	decision, ok := a.authorizeEvent(w, r)
	if !ok {
		return
	}

	status := http.StatusOK
	if !decision.Allowed() {
		status = http.StatusForbidden
	}
	if err := encode(w, r, status, decisionToResponse(decision)); err != nil {
		a.Logger.ErrorContext(ctx, "responding to client with decision", "err", err.Error())
	}
}

func (a *API) authorizeEvent(w http.ResponseWriter, r *http.Request) (auth.Decision, bool) {
	ctx := r.Context()
	req, err := decode[AuthorizeRequest](r)
	defer r.Body.Close()
	if err != nil {
		a.Logger.ErrorContext(ctx, "unmarshaling authorizer event", "err", err.Error())
		a.badRequest(w, r)
		return auth.Decision{}, false
	}
	if err := validateAuthorizeRequest(req); err != nil {
		a.Logger.ErrorContext(ctx, "invalid authorizer event", "err", err.Error())
		a.badRequest(w, r)
		return auth.Decision{}, false
	}
	if a.Authorizer == nil {
		return auth.Deny(auth.ReasonUnauthorized), true
	}

	decision, _ := a.Authorizer.Authorize(ctx, req.AuthorizationToken, req.MethodArn)
	return decision, true
}

// @Summary Authorize a webhook caller
// @Description Compares the x-webhook-secret header with the configured secret.
// @Tags authorize
// @Accept json
// @Produce json
// @Param x-webhook-secret header string true "Shared secret"
// @Param event body WebhookAuthorizeRequest true "Invoked resource"
// @Success 200 {object} PolicyResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /v1/webhooks/authorize [post]
func (a *API) handleWebhookAuthorize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, err := decode[WebhookAuthorizeRequest](r)
	defer r.Body.Close()
	if err != nil || req.MethodArn == "" {
		a.Logger.ErrorContext(ctx, "unmarshaling webhook authorizer event")
		a.badRequest(w, r)
		return
	}

	decision, err := a.Webhook.Authorize(r.Header.Get(webhookSecretHeader), req.MethodArn)
	if !decision.Allowed() {
		attrs := []any{"resource", req.MethodArn, "reason", string(decision.Reason)}
		if err != nil {
			attrs = append(attrs, "err", err.Error())
		}
		a.Logger.WarnContext(ctx, "webhook authorization denied", attrs...)
		a.unauthorized(w, r)
		return
	}

	if err := encode(w, r, http.StatusOK, policyFromDecision(decision)); err != nil {
		a.Logger.ErrorContext(ctx, "responding to client with policy", "err", err.Error())
	}
}

// @Summary List recent decisions
// @Tags decisions
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Maximum number of decisions" default(50)
// @Success 200 {array} DecisionRecordResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /v1/decisions [get]
func (a *API) handleListDecisions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		a.badRequest(w, r)
		return
	}

	records, err := a.Decisions.ListRecent(ctx, limit)
	if err != nil {
		a.Logger.ErrorContext(ctx, "reading decisions from db", "err", err.Error())
		err = encode(w, r, http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		if err != nil {
			a.Logger.ErrorContext(ctx, "couldn't encode response", "err", err)
		}
		return
	}

	if decision, ok := auth.DecisionFromContext(ctx); ok {
		a.Logger.DebugContext(ctx, "listing decisions", "principal", decision.PrincipalID, "count", len(records))
	}
	if err := encode(w, r, http.StatusOK, recordsToResponse(records)); err != nil {
		a.Logger.ErrorContext(ctx, "responding to client with decision list", "err", err.Error())
	}
}

func (a *API) badRequest(w http.ResponseWriter, r *http.Request) {
	if err := encode(w, r, http.StatusBadRequest, ErrorResponse{Error: "bad request"}); err != nil {
		a.Logger.ErrorContext(r.Context(), "responding to client", "err", err.Error())
	}
}
