package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"errors"
)

const WebhookPrincipal = "webhook"

var (
	ErrWebhookNotConfigured = errors.New("webhook secret not configured")
	ErrSecretMismatch       = errors.New("webhook secret mismatch")
)

// WebhookAuthorizer admits callers that present a shared secret, such as an
// identity provider's post-registration hook.
type WebhookAuthorizer struct {
	secret [sha256.Size]byte
	set    bool
}

func NewWebhookAuthorizer(secret string) *WebhookAuthorizer {
	if secret == "" {
		return &WebhookAuthorizer{}
	}
	return &WebhookAuthorizer{
		secret: sha256.Sum256([]byte(secret)),
		set:    true,
	}
}

// Authorize compares provided with the configured secret in constant time.
// An allow is scoped to exactly the invoked resource.
func (w *WebhookAuthorizer) Authorize(provided, resource string) (Decision, error) {
	if w == nil || !w.set {
		return Deny(ReasonUnauthorized), ErrWebhookNotConfigured
	}
	if provided == "" {
		return Deny(ReasonInvalidToken), ErrMissingCredential
	}

	sum := sha256.Sum256([]byte(provided))
	if subtle.ConstantTimeCompare(sum[:], w.secret[:]) != 1 {
		return Deny(ReasonUnauthorized), ErrSecretMismatch
	}

	return Decision{
		PrincipalID:     WebhookPrincipal,
		Effect:          EffectAllow,
		ResourcePattern: resource,
	}, nil
}
