package auth

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const bearerPrefix = "Bearer "

// Header holds the two header fields needed to pick a verification key.
type Header struct {
	Algorithm string
	KeyID     string
}

// DecodedToken is the structural view of a bearer token. Nothing in it is
// trustworthy until Verifier.Verify succeeds.
type DecodedToken struct {
	Header       Header
	Claims       jwt.MapClaims
	Signature    []byte
	SigningInput string
}

// ExpiresAt reports the unverified exp claim. It is only meant for log lines.
func (t DecodedToken) ExpiresAt() (time.Time, bool) {
	exp, err := t.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// DecodeToken splits a raw credential into header, claims and signature
// without verifying anything.
func DecodeToken(raw string) (DecodedToken, error) {
	tokenStr := strings.TrimPrefix(raw, bearerPrefix)
	if tokenStr == "" {
		return DecodedToken{}, ErrMissingCredential
	}

	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	token, parts, err := parser.ParseUnverified(tokenStr, claims)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenUnverifiable) {
			return DecodedToken{}, fmt.Errorf("%w: unrecognized algorithm", ErrMalformedToken)
		}
		return DecodedToken{}, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}

	for i, name := range []string{"header", "payload"} {
		segment, err := parser.DecodeSegment(parts[i])
		if err != nil {
			return DecodedToken{}, fmt.Errorf("%w: %s: %v", ErrMalformedToken, name, err)
		}
		if hasDuplicateMembers(segment) {
			return DecodedToken{}, fmt.Errorf("%w: duplicate %s member", ErrMalformedToken, name)
		}
	}

	signature, err := parser.DecodeSegment(parts[2])
	if err != nil {
		return DecodedToken{}, fmt.Errorf("%w: signature: %v", ErrMalformedToken, err)
	}

	kid, _ := token.Header["kid"].(string)
	if kid == "" {
		return DecodedToken{}, fmt.Errorf("%w: missing kid", ErrMalformedToken)
	}

	return DecodedToken{
		Header: Header{
			Algorithm: token.Method.Alg(),
			KeyID:     kid,
		},
		Claims:       claims,
		Signature:    signature,
		SigningInput: parts[0] + "." + parts[1],
	}, nil
}

// hasDuplicateMembers reports whether the top-level JSON object repeats a
// member name. Anything that is not an object is left for the claims decoder.
func hasDuplicateMembers(segment []byte) bool {
	dec := json.NewDecoder(bytes.NewReader(segment))
	tok, err := dec.Token()
	if err != nil {
		return false
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return false
	}

	seen := make(map[string]struct{})
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return false
		}
		name, _ := tok.(string)
		if _, dup := seen[name]; dup {
			return true
		}
		seen[name] = struct{}{}

		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return false
		}
	}
	return false
}
