package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Authorizer turns a bearer credential and the resource it was presented for
// into a Decision. The decision is always usable; a non-nil error explains a
// denial and is meant for logs only.
type Authorizer interface {
	Authorize(ctx context.Context, credential, resource string) (Decision, error)
}

// KeyResolver is the part of KeyStore the authorizer depends on.
type KeyResolver interface {
	Resolve(ctx context.Context, kid string) (SigningKey, error)
}

type tokenAuthorizer struct {
	keys     KeyResolver
	verifier *Verifier
}

func NewTokenAuthorizer(keys KeyResolver, verifier *Verifier) (Authorizer, error) {
	if keys == nil {
		return nil, errors.New("authorizer requires a key resolver")
	}
	if verifier == nil {
		return nil, errors.New("authorizer requires a verifier")
	}
	return &tokenAuthorizer{
		keys:     keys,
		verifier: verifier,
	}, nil
}

func (a *tokenAuthorizer) Authorize(ctx context.Context, credential, resource string) (decision Decision, err error) {
	defer func() {
		if r := recover(); r != nil {
			decision = Deny(ReasonUnauthorized)
			err = fmt.Errorf("authorizer panic: %v", r)
		}
	}()

	if resource == "" || strings.Contains(resource, "*") {
		return Deny(ReasonInvalidResource), fmt.Errorf("%w: %q", ErrInvalidResource, resource)
	}

	token, err := DecodeToken(credential)
	if err != nil {
		return Deny(ReasonInvalidToken), err
	}

	if err := a.verifier.CheckAlgorithm(token); err != nil {
		return Deny(ReasonAlgorithmRejected), err
	}

	key, err := a.keys.Resolve(ctx, token.Header.KeyID)
	if err != nil {
		if !errors.Is(err, ErrUnknownKey) && !errors.Is(err, ErrKeyResolution) {
			err = fmt.Errorf("%w: %v", ErrKeyResolution, err)
		}
		return Deny(ReasonFor(err)), fmt.Errorf("resolve key %q: %w", token.Header.KeyID, err)
	}

	claims, err := a.verifier.Verify(token, key)
	if err != nil {
		return Deny(ReasonFor(err)), fmt.Errorf("verify token with key %q: %w", key.KeyID, err)
	}

	return Allow(claims, resource), nil
}
