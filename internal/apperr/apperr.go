// Package apperr defines the error taxonomy shared across the Autonomy
// Core: every error that crosses a component boundary is classified into
// one of a small set of kinds so callers can decide, mechanically,
// whether to retry, surface a refusal, or page an operator.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for retry and presentation purposes.
type Kind string

const (
	// KindTransient covers network timeouts, 5xx responses, and
	// connection loss to Postgres/Redis. Callers may retry with backoff.
	KindTransient Kind = "transient"
	// KindDomain covers invalid task specs, unknown tools, schema
	// mismatches, and expressions outside the closed grammar.
	KindDomain Kind = "domain"
	// KindSafety covers verifier rejections, deny-listed commands, and
	// quota violations.
	KindSafety Kind = "safety"
	// KindResource covers step-budget exhaustion and sandbox CPU/memory
	// ceilings.
	KindResource Kind = "resource"
	// KindFatal covers corrupted persistent state and missing schema;
	// writes should be refused rather than retried.
	KindFatal Kind = "fatal"
)

// Error is the error type surfaced across component boundaries. It
// always carries enough context to render a user-facing apology and an
// operator-facing detail line without re-deriving either from the
// wrapped cause.
type Error struct {
	Kind             Kind
	UserMessage      string
	OperatorMessage  string
	CorrelationID    string
	Cause            error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (%s)", e.Kind, e.OperatorMessage, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.OperatorMessage)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds an Error of the given kind.
func New(kind Kind, correlationID, userMessage, operatorMessage string, cause error) *Error {
	return &Error{
		Kind:            kind,
		UserMessage:     userMessage,
		OperatorMessage: operatorMessage,
		CorrelationID:   correlationID,
		Cause:           cause,
	}
}

// Transient wraps cause as a retryable error.
func Transient(correlationID, operatorMessage string, cause error) *Error {
	return New(KindTransient, correlationID, "That took a bit too long. I'll try again.", operatorMessage, cause)
}

// Domain wraps cause as a non-retryable domain error.
func Domain(correlationID, userMessage, operatorMessage string, cause error) *Error {
	return New(KindDomain, correlationID, userMessage, operatorMessage, cause)
}

// Safety wraps cause as a refusal.
func Safety(correlationID, reason string) *Error {
	return New(KindSafety, correlationID, "I can't do that.", reason, nil)
}

// Resource wraps cause as a resource-ceiling error.
func Resource(correlationID, operatorMessage string, cause error) *Error {
	return New(KindResource, correlationID, "That ran into a resource limit, so I stopped early.", operatorMessage, cause)
}

// Fatal wraps cause as a fatal error that must not be retried.
func Fatal(correlationID, operatorMessage string, cause error) *Error {
	return New(KindFatal, correlationID, "Something is wrong on my end and I've stopped to avoid making it worse.", operatorMessage, cause)
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind == kind
	}
	return false
}

// KindOf returns the Kind of err, or "" if err is not an *Error.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}
