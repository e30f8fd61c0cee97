package auth

import "strings"

type Effect string

const (
	EffectAllow Effect = "Allow"
	EffectDeny  Effect = "Deny"
)

// Decision is the outcome handed to the gateway. Reason stays in process.
type Decision struct {
	PrincipalID     string            `json:"principalId"`
	Effect          Effect            `json:"effect"`
	ResourcePattern string            `json:"resourcePattern,omitempty"`
	Context         map[string]string `json:"context,omitempty"`
	Reason          Reason            `json:"-"`
}

func (d Decision) Allowed() bool {
	return d.Effect == EffectAllow
}

// Allow builds an allow decision for claims, scoped to the resource group of
// the requested resource.
func Allow(claims VerifiedClaims, resource string) Decision {
	return Decision{
		PrincipalID:     claims.Subject,
		Effect:          EffectAllow,
		ResourcePattern: ScopeResource(resource),
		Context: map[string]string{
			"userId": claims.Subject,
			"email":  claims.Email,
			"scope":  claims.Scope,
		},
	}
}

func Deny(reason Reason) Decision {
	if reason == ReasonNone {
		reason = ReasonUnauthorized
	}
	return Decision{
		Effect: EffectDeny,
		Reason: reason,
	}
}

// ScopeResource widens a resource to every operation in its group.
//
// An execute-api method ARN (arn:...:api-id/stage/METHOD/path) keeps the api
// id and stage: arn:...:api-id/stage/*/*. A "METHOD /group/..." resource keeps
// the first path segment: "* /group/*". Anything without a group is returned
// unchanged, so the pattern is never wider than one group.
func ScopeResource(resource string) string {
	if strings.HasPrefix(resource, "arn:") {
		parts := strings.Split(resource, "/")
		if len(parts) < 2 || parts[1] == "" || parts[1] == "*" || strings.Contains(parts[0], "*") {
			return resource
		}
		return parts[0] + "/" + parts[1] + "/*/*"
	}

	_, path, ok := strings.Cut(resource, " ")
	if !ok {
		path = resource
	}
	group, _, _ := strings.Cut(strings.TrimPrefix(path, "/"), "/")
	if !strings.HasPrefix(path, "/") || group == "" || group == "*" {
		return resource
	}
	return "* /" + group + "/*"
}
