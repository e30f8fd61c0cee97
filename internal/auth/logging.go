package auth

import (
	"context"
	"log/slog"
	"time"
)

type loggingAuthorizer struct {
	logger *slog.Logger
	next   Authorizer
}

func NewLoggingAuthorizer(logger *slog.Logger, next Authorizer) Authorizer {
	if logger == nil || next == nil {
		return next
	}

	return &loggingAuthorizer{
		logger: logger,
		next:   next,
	}
}

func (a *loggingAuthorizer) Authorize(ctx context.Context, credential, resource string) (Decision, error) {
	decision, err := a.next.Authorize(ctx, credential, resource)

	attrs := append([]any{"resource", resource}, credentialAttrs(credential)...)
	if err != nil || !decision.Allowed() {
		attrs = append(attrs, "reason", string(decision.Reason))
		if err != nil {
			attrs = append(attrs, "err", err.Error())
		}
		a.logger.WarnContext(ctx, "authorization denied", attrs...)
		return decision, err
	}

	attrs = append(attrs, "principal", decision.PrincipalID, "pattern", decision.ResourcePattern)
	a.logger.DebugContext(ctx, "authorization allowed", attrs...)
	return decision, nil
}

// credentialAttrs exposes the kid and exp of a credential, the only parts of
// it that may be logged.
func credentialAttrs(credential string) []any {
	token, err := DecodeToken(credential)
	if err != nil {
		return nil
	}

	attrs := []any{"kid", token.Header.KeyID}
	if exp, ok := token.ExpiresAt(); ok {
		attrs = append(attrs, "exp", exp.UTC().Format(time.RFC3339))
	}
	return attrs
}
