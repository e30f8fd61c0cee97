package http

import (
	"time"

	"github.com/Flarenzy/trials-authorizer/internal/auth"
	"github.com/Flarenzy/trials-authorizer/internal/db"
)

const (
	policyVersion = "2012-10-17"
	invokeAction  = "execute-api:Invoke"
	tokenType     = "TOKEN"
)

// AuthorizeRequest is the TOKEN authorizer event sent by API Gateway.
type AuthorizeRequest struct {
	Type               string `json:"type" example:"TOKEN"`
	AuthorizationToken string `json:"authorizationToken" example:"Bearer eyJhbGciOiJSUzI1NiIsImtpZCI6ImtleS0xIn0..."`
	MethodArn          string `json:"methodArn" example:"arn:aws:execute-api:eu-west-1:123456789012:abc123/prod/GET/trials/42"`
}

// WebhookAuthorizeRequest carries the invoked resource; the secret travels in
// the x-webhook-secret header.
type WebhookAuthorizeRequest struct {
	MethodArn string `json:"methodArn" example:"arn:aws:execute-api:eu-west-1:123456789012:abc123/prod/POST/webhooks/post-registration"`
}

// PolicyResponse is the IAM policy API Gateway expects back from an authorizer.
type PolicyResponse struct {
	PrincipalID    string            `json:"principalId" example:"auth0|5f7c8ec7c33c6c004bbafe82"`
	PolicyDocument PolicyDocument    `json:"policyDocument"`
	Context        map[string]string `json:"context,omitempty"`
}

type PolicyDocument struct {
	Version   string      `json:"Version" example:"2012-10-17"`
	Statement []Statement `json:"Statement"`
}

type Statement struct {
	Action   string `json:"Action" example:"execute-api:Invoke"`
	Effect   string `json:"Effect" example:"Allow"`
	Resource string `json:"Resource" example:"arn:aws:execute-api:eu-west-1:123456789012:abc123/prod/*/*"`
}

// DecisionResponse mirrors auth.Decision for API docs.
type DecisionResponse struct {
	PrincipalID     string            `json:"principalId" example:"auth0|5f7c8ec7c33c6c004bbafe82"`
	Effect          string            `json:"effect" example:"Allow"`
	ResourcePattern string            `json:"resourcePattern,omitempty" example:"arn:aws:execute-api:eu-west-1:123456789012:abc123/prod/*/*"`
	Context         map[string]string `json:"context,omitempty"`
}

// DecisionRecordResponse is one entry of the audit trail.
type DecisionRecordResponse struct {
	ID          string    `json:"id" example:"6f1c2f9e-8f4e-4a57-9a43-1f0b4f2f7d10"`
	PrincipalID string    `json:"principal_id" example:"auth0|5f7c8ec7c33c6c004bbafe82"`
	Effect      string    `json:"effect" example:"Deny"`
	Reason      string    `json:"reason,omitempty" example:"expired"`
	Resource    string    `json:"resource" example:"arn:aws:execute-api:eu-west-1:123456789012:abc123/prod/GET/trials/42"`
	KeyID       string    `json:"key_id,omitempty" example:"key-1"`
	DecidedAt   time.Time `json:"decided_at" example:"2024-05-10T15:04:05Z"`
}

// ErrorResponse is a simple envelope for error messages.
type ErrorResponse struct {
	Error string `json:"error" example:"Unauthorized"`
}

func policyFromDecision(d auth.Decision) PolicyResponse {
	return PolicyResponse{
		PrincipalID: d.PrincipalID,
		PolicyDocument: PolicyDocument{
			Version: policyVersion,
			Statement: []Statement{{
				Action:   invokeAction,
				Effect:   string(d.Effect),
				Resource: d.ResourcePattern,
			}},
		},
		Context: d.Context,
	}
}

func decisionToResponse(d auth.Decision) DecisionResponse {
	return DecisionResponse{
		PrincipalID:     d.PrincipalID,
		Effect:          string(d.Effect),
		ResourcePattern: d.ResourcePattern,
		Context:         d.Context,
	}
}

func recordsToResponse(records []db.AuditRecord) []DecisionRecordResponse {
	out := make([]DecisionRecordResponse, 0, len(records))
	for _, r := range records {
		out = append(out, DecisionRecordResponse{
			ID:          r.ID.String(),
			PrincipalID: r.PrincipalID,
			Effect:      string(r.Effect),
			Reason:      string(r.Reason),
			Resource:    r.Resource,
			KeyID:       r.KeyID,
			DecidedAt:   r.DecidedAt,
		})
	}
	return out
}
