package auth

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/juju/clock"
)

// asymmetricAlgorithms are the only algorithms a Verifier can be pinned to.
var asymmetricAlgorithms = []string{
	"RS256", "RS384", "RS512",
	"PS256", "PS384", "PS512",
	"ES256", "ES384", "ES512",
	"EdDSA",
}

// VerifiedClaims is the projection of a verified payload. Claims outside this
// set never leave the verifier.
type VerifiedClaims struct {
	Subject   string
	Email     string
	Scope     string
	Issuer    string
	Audience  []string
	ExpiresAt time.Time
}

type VerifierConfig struct {
	Issuer    string
	Audience  string
	Algorithm string
	Leeway    time.Duration
	Clock     clock.Clock
}

type Verifier struct {
	issuer   string
	audience string
	method   jwt.SigningMethod
	leeway   time.Duration
	clock    clock.Clock
}

func NewVerifier(cfg VerifierConfig) (*Verifier, error) {
	if cfg.Issuer == "" {
		return nil, errors.New("verifier requires an issuer")
	}
	if cfg.Audience == "" {
		return nil, errors.New("verifier requires an audience")
	}
	if !slices.Contains(asymmetricAlgorithms, cfg.Algorithm) {
		return nil, fmt.Errorf("algorithm %q is not an asymmetric signing algorithm", cfg.Algorithm)
	}
	method := jwt.GetSigningMethod(cfg.Algorithm)
	if method == nil {
		return nil, fmt.Errorf("algorithm %q is not available", cfg.Algorithm)
	}
	if cfg.Leeway < 0 {
		return nil, errors.New("verifier leeway must not be negative")
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.WallClock
	}

	return &Verifier{
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		method:   method,
		leeway:   cfg.Leeway,
		clock:    cfg.Clock,
	}, nil
}

// Algorithm returns the pinned algorithm name.
func (v *Verifier) Algorithm() string {
	return v.method.Alg()
}

// CheckAlgorithm rejects a token whose header names anything but the pinned
// algorithm. It needs no key, so callers run it before resolving one.
func (v *Verifier) CheckAlgorithm(token DecodedToken) error {
	if token.Header.Algorithm != v.method.Alg() {
		return fmt.Errorf("%w: %q", ErrAlgorithmRejected, token.Header.Algorithm)
	}
	return nil
}

// Verify checks the signature of token under key and then its claims.
func (v *Verifier) Verify(token DecodedToken, key SigningKey) (VerifiedClaims, error) {
	if err := v.CheckAlgorithm(token); err != nil {
		return VerifiedClaims{}, err
	}
	if key.Algorithm != "" && key.Algorithm != v.method.Alg() {
		return VerifiedClaims{}, fmt.Errorf("%w: key %q is published for %q", ErrAlgorithmRejected, key.KeyID, key.Algorithm)
	}
	if key.KeyID != token.Header.KeyID {
		return VerifiedClaims{}, fmt.Errorf("%w: key %q does not match kid %q", ErrSignatureInvalid, key.KeyID, token.Header.KeyID)
	}
	if err := v.method.Verify(token.SigningInput, token.Signature, key.Key); err != nil {
		return VerifiedClaims{}, fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	}

	return v.checkClaims(token)
}

func (v *Verifier) checkClaims(token DecodedToken) (VerifiedClaims, error) {
	claims := token.Claims

	if token.Header.Algorithm != v.method.Alg() {
		return VerifiedClaims{}, ErrAlgorithmRejected
	}

	issuer, err := claims.GetIssuer()
	if err != nil || issuer != v.issuer {
		return VerifiedClaims{}, fmt.Errorf("%w: got %q", ErrIssuerMismatch, issuer)
	}

	audience, err := claims.GetAudience()
	if err != nil || !slices.Contains(audience, v.audience) {
		return VerifiedClaims{}, ErrAudienceMismatch
	}

	exp, err := expirationTime(claims)
	if err != nil {
		return VerifiedClaims{}, fmt.Errorf("%w: %v", ErrExpired, err)
	}
	if !v.clock.Now().Before(exp.Add(v.leeway)) {
		return VerifiedClaims{}, fmt.Errorf("%w: at %s", ErrExpired, exp.UTC().Format(time.RFC3339))
	}

	subject, err := claims.GetSubject()
	if err != nil || subject == "" {
		return VerifiedClaims{}, fmt.Errorf("%w: missing sub", ErrMalformedToken)
	}

	return VerifiedClaims{
		Subject:   subject,
		Email:     stringClaim(claims, "email"),
		Scope:     stringClaim(claims, "scope"),
		Issuer:    issuer,
		Audience:  audience,
		ExpiresAt: exp,
	}, nil
}

// expirationTime reads exp without the whole-second truncation of
// jwt.NumericDate, so a fractional exp is honoured to the nanosecond.
func expirationTime(claims jwt.MapClaims) (time.Time, error) {
	if seconds, ok := claims["exp"].(float64); ok && math.Abs(seconds) < 1<<53 {
		whole, frac := math.Modf(seconds)
		return time.Unix(int64(whole), int64(frac*1e9)), nil
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, errors.New("missing or invalid exp")
	}
	return exp.Time, nil
}

func stringClaim(claims jwt.MapClaims, key string) string {
	value, ok := claims[key].(string)
	if !ok {
		return ""
	}
	return value
}
