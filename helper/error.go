package helper

import (
	"errors"
	"fmt"
)

// ErrorKind classifies an error so callers can decide between retrying a
// dependency failure and fixing their input.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	// KindInvalidRequest marks client-input faults (empty query, bad top k).
	KindInvalidRequest
	// KindEmbedding marks failures of the embedding service.
	KindEmbedding
	// KindIndex marks failures of the document index.
	KindIndex
	// KindCanceled marks caller-initiated cancellation or deadline expiry.
	KindCanceled
)

// String returns a human readable name for the kind.
func (k ErrorKind) String() string {
	switch k {
	case KindInvalidRequest:
		return "invalid request"
	case KindEmbedding:
		return "embedding"
	case KindIndex:
		return "index"
	case KindCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Error wraps an underlying error with the operation that failed and a kind.
type Error struct {
	Context string
	Kind    ErrorKind
	Err     error
}

// NewError creates an Error without a specific kind.
func NewError(context string, err error) *Error {
	return &Error{Context: context, Err: err}
}

// NewKindError creates an Error tagged with the given kind.
func NewKindError(kind ErrorKind, context string, err error) *Error {
	return &Error{Context: context, Kind: kind, Err: err}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("error in %v", e.Context)
	}
	return fmt.Sprintf("error in %v: %v", e.Context, e.Err)
}

// Unwrap returns the wrapped error for errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

// IsKind reports whether err or any error in its chain carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	for errors.As(err, &e) {
		if e.Kind == kind {
			return true
		}
		err = e.Err
		e = nil
	}
	return false
}

// KindOf returns the kind of the outermost Error in the chain, or KindUnknown.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
