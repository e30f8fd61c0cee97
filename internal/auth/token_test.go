package auth

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestDecodeTokenExposesHeaderAndSigningInput(t *testing.T) {
	signer, _ := testKeys(t)
	now := time.Unix(1_700_000_000, 0)
	token := signToken(t, signer, testKeyID, makeClaims(now))

	decoded, err := DecodeToken("Bearer " + token)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Header.Algorithm != "RS256" || decoded.Header.KeyID != testKeyID {
		t.Fatalf("unexpected header %+v", decoded.Header)
	}
	if decoded.SigningInput != token[:strings.LastIndex(token, ".")] {
		t.Fatalf("unexpected signing input %q", decoded.SigningInput)
	}
	if len(decoded.Signature) != 256 {
		t.Fatalf("expected 256 byte signature, got %d", len(decoded.Signature))
	}

	exp, ok := decoded.ExpiresAt()
	if !ok || !exp.Equal(now.Add(time.Hour)) {
		t.Fatalf("unexpected exp %v (%v)", exp, ok)
	}
}

func TestDecodeTokenAcceptsAnyKnownAlgorithmStructurally(t *testing.T) {
	decoded, err := DecodeToken(rawToken(`{"alg":"HS256","kid":"k"}`, `{"sub":"x"}`, "sig"))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Header.Algorithm != "HS256" {
		t.Fatalf("unexpected algorithm %q", decoded.Header.Algorithm)
	}
}

func TestDecodeTokenRejectsMalformedInput(t *testing.T) {
	tests := []struct {
		name  string
		token string
		want  error
	}{
		{name: "empty", token: "", want: ErrMissingCredential},
		{name: "one segment", token: "abc", want: ErrMalformedToken},
		{name: "four segments", token: "a.b.c.d", want: ErrMalformedToken},
		{name: "header not json", token: rawToken(`not-json`, `{"sub":"x"}`, "sig"), want: ErrMalformedToken},
		{name: "payload not object", token: rawToken(`{"alg":"RS256","kid":"k"}`, `[1,2]`, "sig"), want: ErrMalformedToken},
		{name: "unknown algorithm", token: rawToken(`{"alg":"XS999","kid":"k"}`, `{"sub":"x"}`, "sig"), want: ErrMalformedToken},
		{name: "duplicate header member", token: rawToken(`{"alg":"RS256","kid":"k","kid":"other"}`, `{"sub":"x"}`, "sig"), want: ErrMalformedToken},
		{name: "duplicate payload member", token: rawToken(`{"alg":"RS256","kid":"k"}`, `{"sub":"x","sub":"y"}`, "sig"), want: ErrMalformedToken},
		{name: "numeric kid", token: rawToken(`{"alg":"RS256","kid":7}`, `{"sub":"x"}`, "sig"), want: ErrMalformedToken},
		{name: "empty kid", token: rawToken(`{"alg":"RS256","kid":""}`, `{"sub":"x"}`, "sig"), want: ErrMalformedToken},
		{name: "bad signature encoding", token: "eyJhbGciOiJSUzI1NiIsImtpZCI6ImsifQ.eyJzdWIiOiJ4In0.@@@", want: ErrMalformedToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeToken(tt.token)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestHasDuplicateMembersIgnoresNestedObjects(t *testing.T) {
	if hasDuplicateMembers([]byte(`{"a":{"x":1},"b":{"x":2}}`)) {
		t.Fatal("nested members with the same name are not duplicates")
	}
	if !hasDuplicateMembers([]byte(`{"a":1,"b":2,"a":3}`)) {
		t.Fatal("expected duplicate top-level member to be detected")
	}
}
