package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind classifies a failure into the categories the rest of the
// system makes decisions on. ConfigurationMissing is the only kind
// with control-flow significance: it trips the backend fallback latch.
type Kind string

const (
	KindDuplicateEmail       Kind = "duplicate_email"
	KindNotFound             Kind = "not_found"
	KindInvalidCredentials   Kind = "invalid_credentials"
	KindConfigurationMissing Kind = "configuration_missing"
	KindNoActiveSession      Kind = "no_active_session"
	KindOther                Kind = "other"
)

// Error is a classified failure. Message is safe to show to users.
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

// creates a classified error with a user-facing message
func E(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// wraps an underlying error with a classification and message
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// returns the classification of err, KindOther for unclassified errors
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return KindOther
}

// reports whether err is classified as a backend configuration failure.
// This is the pure predicate that guards the one-way fallback latch.
func IsConfigurationMissing(err error) bool {
	return KindOf(err) == KindConfigurationMissing
}

// returns a display-ready message for err. Classified errors carry
// their own message; anything else gets a generic fallback so raw
// backend errors never leak to the presentation layer.
func Display(err error) string {
	if err == nil {
		return ""
	}

	var e *Error
	if stderrors.As(err, &e) && e.Message != "" {
		return e.Message
	}

	return "something went wrong, please try again"
}
