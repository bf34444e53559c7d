package domain

import (
	"github.com/allisson/sessions/internal/errors"
)

// Error categories. Every specific error below wraps exactly one of them.
var (
	// ErrEncoding indicates a token could not be built (configuration or programming error).
	ErrEncoding = errors.New("token encoding failed")

	// ErrTokenValidation indicates a presented token is malformed or was tampered with.
	ErrTokenValidation = errors.Wrap(errors.ErrUnauthorized, "token validation failed")

	// ErrIssuance indicates a token pair could not be minted.
	ErrIssuance = errors.New("token issuance failed")

	// ErrNoPrincipal is the single opaque authentication failure returned to callers.
	ErrNoPrincipal = errors.Wrap(errors.ErrUnauthorized, "no principal")
)

// Encoding errors.
var (
	ErrSigningKeyMissing = errors.Wrap(ErrEncoding, "signing key missing")
	ErrInvalidSubject    = errors.Wrap(ErrEncoding, "invalid subject")
	ErrInvalidExpiry     = errors.Wrap(ErrEncoding, "invalid expiry")
)

// Validation errors.
var (
	ErrEmptyToken         = errors.Wrap(ErrTokenValidation, "empty token")
	ErrMalformedStructure = errors.Wrap(ErrTokenValidation, "malformed token structure")
	ErrHeaderMismatch     = errors.Wrap(ErrTokenValidation, "header mismatch")
	ErrSignatureMismatch  = errors.Wrap(ErrTokenValidation, "signature mismatch")
	ErrPayloadInvalid     = errors.Wrap(ErrTokenValidation, "invalid payload")
)

// Issuance errors.
var (
	ErrInvalidTTLConfig    = errors.Wrap(ErrIssuance, "invalid ttl configuration")
	ErrTokenIssuanceFailed = errors.Wrap(ErrIssuance, "could not mint token pair")
)

// Token store errors.
var (
	// ErrTokenNotFound indicates no record matched the lookup.
	ErrTokenNotFound = errors.Wrap(errors.ErrNotFound, "token not found")

	// ErrTokenAlreadyRevoked indicates a conditional revoke lost against an earlier one.
	ErrTokenAlreadyRevoked = errors.Wrap(errors.ErrConflict, "token already revoked")
)
