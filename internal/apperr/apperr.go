// Package apperr defines the error taxonomy shared by the checkout core:
// every failure a handler can surface maps to exactly one Kind, and the
// HTTP layer translates kinds to status codes in a single place.
package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindUnknown Kind = iota
	// KindValidation: client input malformed or inconsistent. No side effects.
	KindValidation
	// KindAmountMismatch: client-declared total deviates from the recomputed
	// total by more than the tolerated epsilon. Subtype of validation.
	KindAmountMismatch
	// KindProcessor: remote payment gateway unreachable, rejected credentials
	// or returned a malformed response.
	KindProcessor
	// KindNotFound: unknown order or remote checkout session.
	KindNotFound
	// KindStateConflict: capture attempted on a session not in an approvable
	// state.
	KindStateConflict
	// KindSignature: webhook authenticity check failed.
	KindSignature
)

type Error struct {
	Kind   Kind
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, reason string) *Error {
	return &Error{Kind: kind, Reason: reason}
}

func Wrap(kind Kind, reason string, err error) *Error {
	return &Error{Kind: kind, Reason: reason, Err: err}
}

func Validation(reason string) *Error     { return New(KindValidation, reason) }
func AmountMismatch(reason string) *Error { return New(KindAmountMismatch, reason) }
func NotFound(reason string) *Error       { return New(KindNotFound, reason) }
func StateConflict(reason string) *Error  { return New(KindStateConflict, reason) }
func Signature(reason string) *Error      { return New(KindSignature, reason) }

func Processor(reason string, err error) *Error {
	return Wrap(KindProcessor, reason, err)
}

// KindOf extracts the Kind of err, or KindUnknown for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// ReasonOf extracts the machine-readable reason of err, empty for foreign errors.
func ReasonOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return ""
}
