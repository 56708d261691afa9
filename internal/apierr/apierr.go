// Package apierr defines the error taxonomy shared by every remote
// operation. A failure is one of four kinds; callers branch on the kind
// with errors.Is against the package sentinels and read the server's
// message verbatim from the error itself.
package apierr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	// KindTransport covers network failures and responses the client
	// cannot decode. Prior local state is always left intact.
	KindTransport Kind = iota
	// KindSessionInvalid means the token is missing, malformed, or was
	// rejected by the server. Never retried automatically.
	KindSessionInvalid
	// KindValidation is a 4xx rejection carrying the server's message.
	KindValidation
	// KindStale means the target id is no longer known server-side.
	KindStale
)

func (k Kind) String() string {
	switch k {
	case KindSessionInvalid:
		return "session_invalid"
	case KindValidation:
		return "validation"
	case KindStale:
		return "stale"
	default:
		return "transport"
	}
}

// Sentinels for errors.Is matching by kind.
var (
	SessionInvalid = &Error{Kind: KindSessionInvalid}
	Validation     = &Error{Kind: KindValidation}
	Stale          = &Error{Kind: KindStale}
	Transport      = &Error{Kind: KindTransport}
)

// Error is a typed remote-operation failure. Message holds the server's
// {message} string unmodified when one was present.
type Error struct {
	Kind    Kind
	Message string
	Status  int
	cause   error
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func WithStatus(kind Kind, status int, message string) *Error {
	return &Error{Kind: kind, Status: status, Message: message}
}

// Wrap builds a transport-class error around an underlying cause.
func Wrap(err error, message string) *Error {
	return &Error{Kind: KindTransport, Message: message, cause: err}
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s error", e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches any *Error of the same kind, so
// errors.Is(err, apierr.Stale) works regardless of message.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == other.Kind
}

// KindOf extracts the kind from an error chain. Errors that do not
// carry a kind are reported as transport failures.
func KindOf(err error) Kind {
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Kind
	}
	return KindTransport
}

// MessageOf returns the server-provided message from the chain, or the
// plain error text when none was attached.
func MessageOf(err error) string {
	var typed *Error
	if errors.As(err, &typed) && typed.Message != "" {
		return typed.Message
	}
	if err != nil {
		return err.Error()
	}
	return ""
}
