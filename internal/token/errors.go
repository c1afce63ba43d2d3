// Package token implements issuance and verification of signed, time-limited
// identity tokens, plus the client used by the chat API to delegate
// verification to the auth service. This file centralizes the package's
// sentinel errors so callers can branch with errors.Is and handlers can map
// each case to a stable HTTP status.
package token

import "errors"

var (
	// ErrInvalidCredentials is returned by Issue when the username or
	// password does not match the credential store.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrMissingToken is returned by Verify when no Authorization value
	// was supplied at all.
	ErrMissingToken = errors.New("missing authorization header")

	// ErrMalformedHeader is returned by Verify when the Authorization value
	// is not in the expected "Bearer <token>" shape.
	ErrMalformedHeader = errors.New("malformed authorization header")

	// ErrInvalidSignature is returned by Verify when the token signature
	// does not match the signing secret, the payload was tampered with, or
	// the algorithm is not the expected HMAC family.
	ErrInvalidSignature = errors.New("invalid token signature")

	// ErrTokenExpired is returned by Verify when the token's expiry claim
	// has passed.
	ErrTokenExpired = errors.New("token expired")

	// ErrUnauthorized is returned by the remote verifier when the auth
	// service rejected the token (any 4xx response).
	ErrUnauthorized = errors.New("token rejected by auth service")

	// ErrVerifierUnavailable is returned by the remote verifier when the
	// auth service cannot be reached at all (timeout, connection failure).
	// It is a distinct failure class: the caller sees a 503, never a 401.
	ErrVerifierUnavailable = errors.New("auth service unavailable")
)
