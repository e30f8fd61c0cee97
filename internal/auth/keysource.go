package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/MicahParks/jwkset"
)

const maxKeySetBytes = 1 << 20

// KeySource fetches the published key set.
type KeySource interface {
	FetchKeySet(ctx context.Context) (jwkset.JWKSMarshal, error)
}

type httpKeySource struct {
	url    string
	client *http.Client
}

// NewHTTPKeySource returns a KeySource that GETs a JWKS document from url.
func NewHTTPKeySource(url string, client *http.Client) KeySource {
	if client == nil {
		client = http.DefaultClient
	}
	return &httpKeySource{
		url:    url,
		client: client,
	}
}

func (s *httpKeySource) FetchKeySet(ctx context.Context) (jwkset.JWKSMarshal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return jwkset.JWKSMarshal{}, fmt.Errorf("build jwks request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return jwkset.JWKSMarshal{}, fmt.Errorf("fetch jwks from %s: %w", s.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return jwkset.JWKSMarshal{}, fmt.Errorf("jwks endpoint returned %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxKeySetBytes+1))
	if err != nil {
		return jwkset.JWKSMarshal{}, fmt.Errorf("read jwks body: %w", err)
	}
	if len(body) > maxKeySetBytes {
		return jwkset.JWKSMarshal{}, errors.New("jwks document too large")
	}

	var set jwkset.JWKSMarshal
	if err := json.Unmarshal(body, &set); err != nil {
		return jwkset.JWKSMarshal{}, fmt.Errorf("decode jwks: %w", err)
	}
	if set.Keys == nil {
		return jwkset.JWKSMarshal{}, errors.New("jwks document has no keys member")
	}
	return set, nil
}
