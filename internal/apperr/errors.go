package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an application error for the HTTP boundary
type Kind int

const (
	KindValidation Kind = iota + 1
	KindNotFound
	KindStore
	KindConfig
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindStore:
		return "store"
	case KindConfig:
		return "config"
	default:
		return "unknown"
	}
}

// Error is the single error type shared by the service layers.
// Message is safe to show to a client except for KindStore, whose
// cause is only logged.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Validation reports malformed or missing client input
func Validation(format string, args ...interface{}) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// NotFound reports an absent key or sub-resource
func NotFound(format string, args ...interface{}) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// Store wraps a persistence failure
func Store(op string, err error) error {
	if err == nil {
		return nil
	}
	var existing *Error
	if errors.As(err, &existing) {
		return err
	}
	return &Error{Kind: KindStore, Message: op, Err: err}
}

// Config reports missing or invalid deployment configuration
func Config(format string, args ...interface{}) error {
	return &Error{Kind: KindConfig, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of err, or 0 when err is not an *Error
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// IsValidation reports whether err is a client input error
func IsValidation(err error) bool { return KindOf(err) == KindValidation }

// IsNotFound reports whether err names a missing resource
func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }

// IsStore reports whether err is a persistence failure
func IsStore(err error) bool { return KindOf(err) == KindStore }

// IsConfig reports whether err is an invalid setting
func IsConfig(err error) bool { return KindOf(err) == KindConfig }

// Message returns the client-facing message of err
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
