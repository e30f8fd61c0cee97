package http

import (
	"net/http"

	"github.com/Flarenzy/trials-authorizer/internal/auth"
)

const webhookSecretHeader = "X-Webhook-Secret"

// RequireDecision authorizes the request's bearer token against
// "METHOD /path" and stores the allow decision in the request context.
func (a *API) RequireDecision(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if a.Authorizer == nil {
			a.unauthorized(w, r)
			return
		}

		decision, _ := a.Authorizer.Authorize(ctx, r.Header.Get("Authorization"), r.Method+" "+r.URL.Path)
		if !decision.Allowed() {
			a.unauthorized(w, r)
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.WithDecision(ctx, decision)))
	})
}

func (a *API) unauthorized(w http.ResponseWriter, r *http.Request) {
	if err := encode(w, r, http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"}); err != nil {
		a.Logger.ErrorContext(r.Context(), "responding to client", "err", err.Error())
	}
}
