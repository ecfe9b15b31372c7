package domain

import (
	"errors"
	"fmt"
)

// Kind classifies an error for machine-readable propagation to callers
type Kind string

const (
	KindValidation           Kind = "validation"
	KindNotFound             Kind = "not_found"
	KindInsufficientFunds    Kind = "insufficient_funds"
	KindInsufficientQuantity Kind = "insufficient_quantity"
	KindCollaborator         Kind = "collaborator_unavailable"
	KindPartialUpdate        Kind = "partial_update"
	KindInternal             Kind = "internal"
)

// ErrPriceUnavailable signals that the price source has no usable price
// for a symbol. Valuation treats it as "skip and flag", never as zero.
var ErrPriceUnavailable = errors.New("price unavailable")

// Error carries a kind alongside the human-readable message
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// E creates a new kinded error
func E(kind Kind, message string) error {
	return &Error{Kind: kind, Message: message}
}

// Ef creates a new kinded error with a formatted message
func Ef(kind Kind, format string, args ...interface{}) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to an underlying error
func Wrap(kind Kind, message string, err error) error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the kind from an error chain; unclassified errors
// report KindInternal.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}
