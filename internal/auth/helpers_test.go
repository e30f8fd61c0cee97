package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MicahParks/jwkset"
	"github.com/golang-jwt/jwt/v5"
)

const (
	testIssuer   = "https://issuer.example/"
	testAudience = "api://trials"
	testKeyID    = "key-1"
	testResource = "arn:aws:execute-api:eu-west-1:123456789012:abc123/prod/GET/trials/42"
)

var (
	rsaKeysOnce sync.Once
	rsaKeys     [2]*rsa.PrivateKey
)

// testKeys returns two RSA keys shared by the package tests.
func testKeys(t *testing.T) (*rsa.PrivateKey, *rsa.PrivateKey) {
	t.Helper()

	rsaKeysOnce.Do(func() {
		for i := range rsaKeys {
			key, err := rsa.GenerateKey(rand.Reader, 2048)
			if err != nil {
				panic(err)
			}
			rsaKeys[i] = key
		}
	})
	return rsaKeys[0], rsaKeys[1]
}

func publicJWK(t *testing.T, key *rsa.PrivateKey, kid string, alg jwkset.ALG) jwkset.JWKMarshal {
	t.Helper()

	jwk, err := jwkset.NewJWKFromKey(&key.PublicKey, jwkset.JWKOptions{
		Metadata: jwkset.JWKMetadataOptions{
			ALG: alg,
			KID: kid,
			USE: jwkset.UseSig,
		},
	})
	if err != nil {
		t.Fatalf("build jwk: %v", err)
	}
	return jwk.Marshal()
}

func keySet(keys ...jwkset.JWKMarshal) jwkset.JWKSMarshal {
	return jwkset.JWKSMarshal{Keys: keys}
}

func signToken(t *testing.T, key *rsa.PrivateKey, kid string, claims jwt.MapClaims) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = kid
	signed, err := token.SignedString(key)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func makeClaims(now time.Time) jwt.MapClaims {
	return jwt.MapClaims{
		"iss":   testIssuer,
		"sub":   "auth0|user-1",
		"aud":   []string{testAudience, "https://issuer.example/userinfo"},
		"email": "user-1@example.com",
		"scope": "openid profile",
		"iat":   now.Unix(),
		"exp":   now.Add(time.Hour).Unix(),
	}
}

// rawToken assembles a token from literal JSON segments.
func rawToken(header, payload, signature string) string {
	enc := base64.RawURLEncoding
	return enc.EncodeToString([]byte(header)) + "." + enc.EncodeToString([]byte(payload)) + "." + enc.EncodeToString([]byte(signature))
}

type stubKeySource struct {
	fetches atomic.Int64
	fetchFn func(context.Context) (jwkset.JWKSMarshal, error)
}

func (s *stubKeySource) FetchKeySet(ctx context.Context) (jwkset.JWKSMarshal, error) {
	s.fetches.Add(1)
	if s.fetchFn == nil {
		return jwkset.JWKSMarshal{Keys: []jwkset.JWKMarshal{}}, nil
	}
	return s.fetchFn(ctx)
}

func staticSource(set jwkset.JWKSMarshal) *stubKeySource {
	return &stubKeySource{
		fetchFn: func(context.Context) (jwkset.JWKSMarshal, error) {
			return set, nil
		},
	}
}

// newJWKSServer publishes set at /.well-known/jwks.json and counts requests.
func newJWKSServer(t *testing.T, set jwkset.JWKSMarshal) (*httptest.Server, *atomic.Int64) {
	t.Helper()

	body, err := json.Marshal(set)
	if err != nil {
		t.Fatalf("marshal jwks: %v", err)
	}

	hits := &atomic.Int64{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/.well-known/jwks.json" {
			http.NotFound(w, r)
			return
		}
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	}))
	t.Cleanup(server.Close)

	return server, hits
}

func newTestKeyStore(t *testing.T, source KeySource, cfg KeyStoreConfig) *KeyStore {
	t.Helper()

	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = 10 * time.Minute
	}
	if cfg.FetchesPerMinute == 0 {
		cfg.FetchesPerMinute = 10
	}
	if cfg.FetchTimeout == 0 {
		cfg.FetchTimeout = 2 * time.Second
	}

	store, err := NewKeyStore(source, cfg)
	if err != nil {
		t.Fatalf("new key store: %v", err)
	}
	return store
}

func newTestVerifier(t *testing.T, cfg VerifierConfig) *Verifier {
	t.Helper()

	if cfg.Issuer == "" {
		cfg.Issuer = testIssuer
	}
	if cfg.Audience == "" {
		cfg.Audience = testAudience
	}

	verifier, err := NewVerifier(cfg)
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	return verifier
}
