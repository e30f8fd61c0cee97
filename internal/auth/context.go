package auth

import "context"

type decisionContextKey struct{}

func WithDecision(ctx context.Context, decision Decision) context.Context {
	return context.WithValue(ctx, decisionContextKey{}, decision)
}

// DecisionFromContext only reports allow decisions; a denial never reaches a
// handler that reads the context.
func DecisionFromContext(ctx context.Context) (Decision, bool) {
	decision, ok := ctx.Value(decisionContextKey{}).(Decision)
	if !ok || !decision.Allowed() {
		return Decision{}, false
	}
	return decision, true
}
