package auth

import (
	"context"
	"crypto"
	"crypto/rsa"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/MicahParks/jwkset"
	"github.com/juju/clock"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

const minRSAKeyBits = 2048

// SigningKey is a published verification key as of FetchedAt.
type SigningKey struct {
	KeyID     string
	Algorithm string
	Key       crypto.PublicKey
	FetchedAt time.Time
}

type KeyStoreConfig struct {
	CacheTTL         time.Duration
	FetchesPerMinute int
	FetchTimeout     time.Duration
	Clock            clock.Clock
}

// KeyStore resolves signing keys by kid, caching them for CacheTTL. Concurrent
// misses for the same kid share one fetch and fetches are rate limited.
type KeyStore struct {
	source       KeySource
	ttl          time.Duration
	fetchTimeout time.Duration
	clock        clock.Clock
	limiter      *rate.Limiter
	flights      singleflight.Group

	mu   sync.RWMutex
	keys map[string]SigningKey
}

func NewKeyStore(source KeySource, cfg KeyStoreConfig) (*KeyStore, error) {
	if source == nil {
		return nil, errors.New("key store requires a key source")
	}
	if cfg.CacheTTL <= 0 {
		return nil, errors.New("key store cache ttl must be positive")
	}
	if cfg.FetchesPerMinute <= 0 {
		return nil, errors.New("key store fetch rate must be positive")
	}
	if cfg.FetchTimeout <= 0 {
		return nil, errors.New("key store fetch timeout must be positive")
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.WallClock
	}

	perFetch := time.Minute / time.Duration(cfg.FetchesPerMinute)
	return &KeyStore{
		source:       source,
		ttl:          cfg.CacheTTL,
		fetchTimeout: cfg.FetchTimeout,
		clock:        cfg.Clock,
		limiter:      rate.NewLimiter(rate.Every(perFetch), cfg.FetchesPerMinute),
		keys:         make(map[string]SigningKey),
	}, nil
}

// Resolve returns the key published under kid. An unknown kid fails with
// ErrUnknownKey after exactly one fetch; every other failure is ErrKeyResolution.
func (s *KeyStore) Resolve(ctx context.Context, kid string) (SigningKey, error) {
	if key, ok := s.lookup(kid); ok {
		return key, nil
	}

	// The fetch outlives any single caller; each caller waits on its own ctx.
	fetchCtx := context.WithoutCancel(ctx)
	ch := s.flights.DoChan(kid, func() (any, error) {
		return s.refresh(fetchCtx, kid)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return SigningKey{}, res.Err
		}
		return res.Val.(SigningKey), nil
	case <-ctx.Done():
		return SigningKey{}, fmt.Errorf("%w: %v", ErrKeyResolution, ctx.Err())
	}
}

func (s *KeyStore) lookup(kid string) (SigningKey, bool) {
	s.mu.RLock()
	key, ok := s.keys[kid]
	s.mu.RUnlock()
	if !ok || !s.fresh(key) {
		return SigningKey{}, false
	}
	return key, true
}

func (s *KeyStore) fresh(key SigningKey) bool {
	return s.clock.Now().Before(key.FetchedAt.Add(s.ttl))
}

func (s *KeyStore) refresh(ctx context.Context, kid string) (SigningKey, error) {
	// A flight for this kid may have completed between our miss and this call.
	if key, ok := s.lookup(kid); ok {
		return key, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	if err := s.limiter.Wait(ctx); err != nil {
		return SigningKey{}, fmt.Errorf("%w: fetch budget exhausted: %v", ErrKeyResolution, err)
	}

	set, err := s.source.FetchKeySet(ctx)
	if err != nil {
		return SigningKey{}, fmt.Errorf("%w: %v", ErrKeyResolution, err)
	}

	fetched := parseKeySet(set, s.clock.Now())

	s.mu.Lock()
	for id, key := range fetched.keys {
		s.keys[id] = key
	}
	for id := range fetched.rejected {
		delete(s.keys, id)
	}
	s.mu.Unlock()

	if key, ok := fetched.keys[kid]; ok {
		return key, nil
	}
	if reason, ok := fetched.rejected[kid]; ok {
		return SigningKey{}, fmt.Errorf("%w: key %q: %v", ErrKeyResolution, kid, reason)
	}
	return SigningKey{}, fmt.Errorf("%w: %q", ErrUnknownKey, kid)
}

type parsedKeySet struct {
	keys     map[string]SigningKey
	rejected map[string]error
}

func parseKeySet(set jwkset.JWKSMarshal, fetchedAt time.Time) parsedKeySet {
	out := parsedKeySet{
		keys:     make(map[string]SigningKey, len(set.Keys)),
		rejected: make(map[string]error),
	}

	seen := make(map[string]int, len(set.Keys))
	for _, m := range set.Keys {
		seen[m.KID]++
	}

	for _, m := range set.Keys {
		if m.KID == "" {
			continue
		}
		if seen[m.KID] > 1 {
			out.rejected[m.KID] = errors.New("kid published more than once")
			continue
		}
		key, err := newSigningKey(m, fetchedAt)
		if err != nil {
			out.rejected[m.KID] = err
			continue
		}
		out.keys[m.KID] = key
	}
	return out
}

func newSigningKey(m jwkset.JWKMarshal, fetchedAt time.Time) (SigningKey, error) {
	if m.USE != "" && m.USE != jwkset.UseSig {
		return SigningKey{}, fmt.Errorf("key use %q is not sig", m.USE)
	}
	switch m.KTY {
	case jwkset.KtyRSA, jwkset.KtyEC, jwkset.KtyOKP:
	default:
		return SigningKey{}, fmt.Errorf("unsupported key type %q", m.KTY)
	}

	jwk, err := jwkset.NewJWKFromMarshal(m, jwkset.JWKMarshalOptions{}, jwkset.JWKValidateOptions{})
	if err != nil {
		return SigningKey{}, fmt.Errorf("invalid key material: %w", err)
	}

	key := jwk.Key()
	if signer, ok := key.(crypto.Signer); ok {
		key = signer.Public()
	}
	if rsaKey, ok := key.(*rsa.PublicKey); ok && rsaKey.N.BitLen() < minRSAKeyBits {
		return SigningKey{}, fmt.Errorf("rsa key is %d bits", rsaKey.N.BitLen())
	}

	return SigningKey{
		KeyID:     m.KID,
		Algorithm: string(m.ALG),
		Key:       key,
		FetchedAt: fetchedAt,
	}, nil
}
