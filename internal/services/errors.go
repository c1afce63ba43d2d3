// Package services defines the business logic for authenticated,
// retrieval-grounded chat. This file centralizes common service-level error
// values so that they can be consistently returned by service methods and
// checked by callers.
//
// These errors are intended for internal use by the service layer; the
// translation into user-facing messages or HTTP status codes is performed at
// the handler layer. Auth failures are not listed here: they surface as the
// token package's sentinel errors, which handlers map directly.
package services

import "errors"

var (
	// ErrEmptyQuestion is returned when a chat request carries an empty or
	// whitespace-only question.
	ErrEmptyQuestion = errors.New("question is empty")

	// ErrQuestionTooLong is returned when a question exceeds the configured
	// maximum length.
	ErrQuestionTooLong = errors.New("question too long")

	// ErrRetrieval is returned when the question cannot be embedded or the
	// vector index cannot be consulted. It aborts the request; retrieval is
	// never retried inside the core.
	ErrRetrieval = errors.New("retrieval failed")

	// ErrGeneration is returned when the generation capability fails
	// upstream. It aborts the request without retry.
	ErrGeneration = errors.New("generation failed")

	// ErrEmptyAnswer is returned when the generation capability succeeds but
	// produces an empty answer string.
	ErrEmptyAnswer = errors.New("generation produced no answer")
)
