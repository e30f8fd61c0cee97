package auth

import "errors"

var (
	ErrMissingCredential = errors.New("missing credential")
	ErrMalformedToken    = errors.New("malformed token")
	ErrUnknownKey        = errors.New("unknown signing key")
	ErrKeyResolution     = errors.New("signing key unavailable")
	ErrAlgorithmRejected = errors.New("algorithm rejected")
	ErrSignatureInvalid  = errors.New("signature invalid")
	ErrIssuerMismatch    = errors.New("issuer mismatch")
	ErrAudienceMismatch  = errors.New("audience mismatch")
	ErrExpired           = errors.New("token expired")
	ErrInvalidResource   = errors.New("invalid resource")
)

// Reason is the non-sensitive code attached to a denial.
type Reason string

const (
	ReasonNone              Reason = ""
	ReasonInvalidToken      Reason = "invalid_token"
	ReasonUnknownKey        Reason = "unknown_key"
	ReasonKeyUnavailable    Reason = "key_unavailable"
	ReasonAlgorithmRejected Reason = "algorithm_rejected"
	ReasonSignatureInvalid  Reason = "signature_invalid"
	ReasonIssuerMismatch    Reason = "issuer_mismatch"
	ReasonAudienceMismatch  Reason = "audience_mismatch"
	ReasonExpired           Reason = "expired"
	ReasonInvalidResource   Reason = "invalid_resource"
	ReasonUnauthorized      Reason = "unauthorized"
)

// ReasonFor maps a pipeline error to its denial reason. Unrecognised errors
// map to ReasonUnauthorized so nothing falls through as an allow.
func ReasonFor(err error) Reason {
	switch {
	case err == nil:
		return ReasonNone
	case errors.Is(err, ErrMissingCredential), errors.Is(err, ErrMalformedToken):
		return ReasonInvalidToken
	case errors.Is(err, ErrUnknownKey):
		return ReasonUnknownKey
	case errors.Is(err, ErrKeyResolution):
		return ReasonKeyUnavailable
	case errors.Is(err, ErrAlgorithmRejected):
		return ReasonAlgorithmRejected
	case errors.Is(err, ErrSignatureInvalid):
		return ReasonSignatureInvalid
	case errors.Is(err, ErrIssuerMismatch):
		return ReasonIssuerMismatch
	case errors.Is(err, ErrAudienceMismatch):
		return ReasonAudienceMismatch
	case errors.Is(err, ErrExpired):
		return ReasonExpired
	case errors.Is(err, ErrInvalidResource):
		return ReasonInvalidResource
	default:
		return ReasonUnauthorized
	}
}
