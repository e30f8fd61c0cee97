package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type stubKeyResolver struct {
	calls     int
	resolveFn func(ctx context.Context, kid string) (SigningKey, error)
}

func (s *stubKeyResolver) Resolve(ctx context.Context, kid string) (SigningKey, error) {
	s.calls++
	return s.resolveFn(ctx, kid)
}

func keyResolverFor(t *testing.T, kid string) *stubKeyResolver {
	t.Helper()

	signer, _ := testKeys(t)
	return &stubKeyResolver{
		resolveFn: func(_ context.Context, requested string) (SigningKey, error) {
			if requested != kid {
				return SigningKey{}, ErrUnknownKey
			}
			return SigningKey{
				KeyID:     kid,
				Algorithm: "RS256",
				Key:       &signer.PublicKey,
				FetchedAt: time.Now(),
			}, nil
		},
	}
}

func newTestAuthorizer(t *testing.T, keys KeyResolver) Authorizer {
	t.Helper()

	authorizer, err := NewTokenAuthorizer(keys, newTestVerifier(t, VerifierConfig{}))
	if err != nil {
		t.Fatalf("new authorizer: %v", err)
	}
	return authorizer
}

func TestNewTokenAuthorizerRequiresDependencies(t *testing.T) {
	if _, err := NewTokenAuthorizer(nil, newTestVerifier(t, VerifierConfig{})); err == nil {
		t.Fatal("expected error for missing key resolver")
	}
	if _, err := NewTokenAuthorizer(keyResolverFor(t, testKeyID), nil); err == nil {
		t.Fatal("expected error for missing verifier")
	}
}

func TestAuthorizerAllowsValidToken(t *testing.T) {
	signer, _ := testKeys(t)
	authorizer := newTestAuthorizer(t, keyResolverFor(t, testKeyID))

	token := signToken(t, signer, testKeyID, makeClaims(time.Now()))
	decision, err := authorizer.Authorize(context.Background(), "Bearer "+token, testResource)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !decision.Allowed() {
		t.Fatalf("expected allow, got %+v", decision)
	}
	if decision.PrincipalID != "auth0|user-1" {
		t.Fatalf("unexpected principal %q", decision.PrincipalID)
	}
	if decision.ResourcePattern != "arn:aws:execute-api:eu-west-1:123456789012:abc123/prod/*/*" {
		t.Fatalf("unexpected resource pattern %q", decision.ResourcePattern)
	}
	if decision.Context["email"] != "user-1@example.com" || decision.Context["scope"] != "openid profile" {
		t.Fatalf("unexpected context %+v", decision.Context)
	}
	if decision.Reason != ReasonNone {
		t.Fatalf("expected no reason on allow, got %q", decision.Reason)
	}
}

func TestAuthorizerAcceptsTokenWithoutBearerPrefix(t *testing.T) {
	signer, _ := testKeys(t)
	authorizer := newTestAuthorizer(t, keyResolverFor(t, testKeyID))

	token := signToken(t, signer, testKeyID, makeClaims(time.Now()))
	decision, err := authorizer.Authorize(context.Background(), token, testResource)
	if err != nil || !decision.Allowed() {
		t.Fatalf("expected allow, got %+v (%v)", decision, err)
	}
}

func TestAuthorizerRejectsSymmetricAlgorithmBeforeResolvingKey(t *testing.T) {
	resolver := keyResolverFor(t, testKeyID)
	authorizer := newTestAuthorizer(t, resolver)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, makeClaims(time.Now()))
	token.Header["kid"] = testKeyID
	signed, err := token.SignedString([]byte("shared-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	decision, err := authorizer.Authorize(context.Background(), "Bearer "+signed, testResource)
	if !errors.Is(err, ErrAlgorithmRejected) {
		t.Fatalf("expected ErrAlgorithmRejected, got %v", err)
	}
	if decision.Allowed() || decision.Reason != ReasonAlgorithmRejected {
		t.Fatalf("unexpected decision %+v", decision)
	}
	if resolver.calls != 0 {
		t.Fatalf("expected no key resolution, got %d calls", resolver.calls)
	}
}

func TestAuthorizerRejectsUnsignedToken(t *testing.T) {
	authorizer := newTestAuthorizer(t, keyResolverFor(t, testKeyID))

	token := rawToken(`{"alg":"none","kid":"key-1"}`, `{"sub":"auth0|user-1","iss":"https://issuer.example/","aud":"api://trials","exp":9999999999}`, "")
	decision, err := authorizer.Authorize(context.Background(), "Bearer "+token, testResource)
	if !errors.Is(err, ErrAlgorithmRejected) {
		t.Fatalf("expected ErrAlgorithmRejected, got %v", err)
	}
	if decision.Allowed() {
		t.Fatal("expected deny")
	}
}

func TestAuthorizerRejectsTokenSignedByAnotherKey(t *testing.T) {
	_, attacker := testKeys(t)
	authorizer := newTestAuthorizer(t, keyResolverFor(t, testKeyID))

	token := signToken(t, attacker, testKeyID, makeClaims(time.Now()))
	decision, err := authorizer.Authorize(context.Background(), "Bearer "+token, testResource)
	if !errors.Is(err, ErrSignatureInvalid) {
		t.Fatalf("expected ErrSignatureInvalid, got %v", err)
	}
	if decision.Reason != ReasonSignatureInvalid {
		t.Fatalf("unexpected reason %q", decision.Reason)
	}
}

func TestAuthorizerRejectsTamperedClaims(t *testing.T) {
	signer, _ := testKeys(t)
	authorizer := newTestAuthorizer(t, keyResolverFor(t, testKeyID))

	token := signToken(t, signer, testKeyID, makeClaims(time.Now()))
	forged := signToken(t, signer, testKeyID, jwt.MapClaims{"sub": "someone-else"})

	// Original header and signature around a different payload.
	parts := splitToken(t, token)
	forgedParts := splitToken(t, forged)
	tampered := parts[0] + "." + forgedParts[1] + "." + parts[2]

	decision, err := authorizer.Authorize(context.Background(), "Bearer "+tampered, testResource)
	if !errors.Is(err, ErrSignatureInvalid) {
		t.Fatalf("expected ErrSignatureInvalid, got %v", err)
	}
	if decision.Allowed() {
		t.Fatal("expected deny")
	}
}

func TestAuthorizerRejectsExpiredToken(t *testing.T) {
	signer, _ := testKeys(t)
	authorizer := newTestAuthorizer(t, keyResolverFor(t, testKeyID))

	claims := makeClaims(time.Now().Add(-2 * time.Hour))
	token := signToken(t, signer, testKeyID, claims)
	decision, err := authorizer.Authorize(context.Background(), "Bearer "+token, testResource)
	if !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
	if decision.Reason != ReasonExpired {
		t.Fatalf("unexpected reason %q", decision.Reason)
	}
}

func TestAuthorizerRejectsUnknownKey(t *testing.T) {
	signer, _ := testKeys(t)
	authorizer := newTestAuthorizer(t, keyResolverFor(t, testKeyID))

	token := signToken(t, signer, "rotated-away", makeClaims(time.Now()))
	decision, err := authorizer.Authorize(context.Background(), "Bearer "+token, testResource)
	if !errors.Is(err, ErrUnknownKey) {
		t.Fatalf("expected ErrUnknownKey, got %v", err)
	}
	if decision.Reason != ReasonUnknownKey {
		t.Fatalf("unexpected reason %q", decision.Reason)
	}
}

func TestAuthorizerWrapsResolverFailures(t *testing.T) {
	signer, _ := testKeys(t)
	resolver := &stubKeyResolver{
		resolveFn: func(context.Context, string) (SigningKey, error) {
			return SigningKey{}, errors.New("connection refused")
		},
	}
	authorizer := newTestAuthorizer(t, resolver)

	token := signToken(t, signer, testKeyID, makeClaims(time.Now()))
	decision, err := authorizer.Authorize(context.Background(), "Bearer "+token, testResource)
	if !errors.Is(err, ErrKeyResolution) {
		t.Fatalf("expected ErrKeyResolution, got %v", err)
	}
	if decision.Reason != ReasonKeyUnavailable {
		t.Fatalf("unexpected reason %q", decision.Reason)
	}
}

func TestAuthorizerRejectsMalformedCredentials(t *testing.T) {
	resolver := keyResolverFor(t, testKeyID)
	authorizer := newTestAuthorizer(t, resolver)

	tests := []struct {
		name       string
		credential string
		want       error
	}{
		{name: "empty", credential: "", want: ErrMissingCredential},
		{name: "bare prefix", credential: "Bearer ", want: ErrMissingCredential},
		{name: "two segments", credential: "Bearer abc.def", want: ErrMalformedToken},
		{name: "not base64", credential: "Bearer !!!.???.***", want: ErrMalformedToken},
		{name: "lower case scheme", credential: "bearer abc.def.ghi", want: ErrMalformedToken},
		{name: "missing kid", credential: "Bearer " + rawToken(`{"alg":"RS256"}`, `{"sub":"x"}`, "sig"), want: ErrMalformedToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision, err := authorizer.Authorize(context.Background(), tt.credential, testResource)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if decision.Allowed() || decision.Reason != ReasonInvalidToken {
				t.Fatalf("unexpected decision %+v", decision)
			}
		})
	}

	if resolver.calls != 0 {
		t.Fatalf("expected no key resolution, got %d calls", resolver.calls)
	}
}

func TestAuthorizerRejectsWildcardResource(t *testing.T) {
	signer, _ := testKeys(t)
	authorizer := newTestAuthorizer(t, keyResolverFor(t, testKeyID))

	token := signToken(t, signer, testKeyID, makeClaims(time.Now()))
	for _, resource := range []string{"", "*", "arn:aws:execute-api:eu-west-1:123456789012:*/prod/GET/x"} {
		decision, err := authorizer.Authorize(context.Background(), "Bearer "+token, resource)
		if !errors.Is(err, ErrInvalidResource) {
			t.Fatalf("resource %q: expected ErrInvalidResource, got %v", resource, err)
		}
		if decision.Allowed() {
			t.Fatalf("resource %q: expected deny", resource)
		}
	}
}

func TestAuthorizerDeniesOnPanic(t *testing.T) {
	signer, _ := testKeys(t)
	resolver := &stubKeyResolver{
		resolveFn: func(context.Context, string) (SigningKey, error) {
			panic("boom")
		},
	}
	authorizer := newTestAuthorizer(t, resolver)

	token := signToken(t, signer, testKeyID, makeClaims(time.Now()))
	decision, err := authorizer.Authorize(context.Background(), "Bearer "+token, testResource)
	if err == nil {
		t.Fatal("expected error")
	}
	if decision.Allowed() || decision.Reason != ReasonUnauthorized {
		t.Fatalf("unexpected decision %+v", decision)
	}
}

func TestAuthorizerEndToEndWithPublishedKeys(t *testing.T) {
	signer, _ := testKeys(t)
	server, hits := newJWKSServer(t, keySet(publicJWK(t, signer, testKeyID, "RS256")))

	store := newTestKeyStore(t, NewHTTPKeySource(server.URL+"/.well-known/jwks.json", server.Client()), KeyStoreConfig{})
	authorizer := newTestAuthorizer(t, store)

	token := signToken(t, signer, testKeyID, makeClaims(time.Now()))
	for i := 0; i < 3; i++ {
		decision, err := authorizer.Authorize(context.Background(), "Bearer "+token, testResource)
		if err != nil || !decision.Allowed() {
			t.Fatalf("call %d: expected allow, got %+v (%v)", i, decision, err)
		}
	}
	if got := hits.Load(); got != 1 {
		t.Fatalf("expected one jwks fetch, got %d", got)
	}
}

func splitToken(t *testing.T, token string) []string {
	t.Helper()

	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		t.Fatalf("token %q has %d segments", token, len(parts))
	}
	return parts
}
