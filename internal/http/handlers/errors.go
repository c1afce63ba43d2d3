// Package handlers defines HTTP-layer error codes used across all API
// endpoints.
//
// These symbolic constants supplement HTTP status codes with a stable,
// machine-readable taxonomy that clients can branch on. Codes are lowercase
// snake_case; generic codes mirror common HTTP semantics, domain-specific
// ones cover failures a status alone cannot convey.
package handlers

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeUnauthorized     = "unauthorized"
	ErrCodeNotFound         = "not_found"
	ErrCodeRateLimited      = "too_many_requests"
	ErrCodeInternal         = "internal_error"
	ErrCodeMethodNotAllowed = "method_not_allowed"

	// Domain-specific:
	ErrCodeAuthUnavailable = "auth_unavailable"
	ErrCodeAnswerFailed    = "answer_failed"
	ErrCodeEmptyAnswer     = "empty_answer"
	ErrCodeListFailed      = "list_failed"
)
