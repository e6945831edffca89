// Package apperr classifies domain failures so transports can map them to
// status codes without inspecting messages.
package apperr

import (
	"errors"
	"fmt"

	"gitea.jw6.us/james/shalendar/internal/store"
)

// Kind is the class of a failure.
type Kind int

const (
	KindInternal Kind = iota
	KindBadRequest
	KindUnauthorized
	KindForbidden
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindBadRequest:
		return "bad_request"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	default:
		return "internal"
	}
}

// Error is a classified failure. Required and Subject are only set for
// permission failures.
type Error struct {
	Kind     Kind
	Message  string
	Required store.PermissionType
	Subject  string
	Err      error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Message
	}
	if e.Message == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// BadRequest reports invalid input.
func BadRequest(format string, args ...any) error {
	return &Error{Kind: KindBadRequest, Message: fmt.Sprintf(format, args...)}
}

// NotFound reports a missing resource.
func NotFound(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// Unauthorized reports a missing or invalid identity.
func Unauthorized(format string, args ...any) error {
	return &Error{Kind: KindUnauthorized, Message: fmt.Sprintf(format, args...)}
}

// Forbidden reports that the caller lacks the required level. subject is the
// calendar name when known and may be empty.
func Forbidden(required store.PermissionType, subject string) error {
	msg := "Required permission: " + string(required)
	if subject != "" {
		msg += fmt.Sprintf(" for calendar: '%s'", subject)
	}
	return &Error{Kind: KindForbidden, Message: msg, Required: required, Subject: subject}
}

// Internal wraps an unexpected failure.
func Internal(err error, format string, args ...any) error {
	return &Error{Kind: KindInternal, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf classifies err. store.ErrNotFound counts as NotFound; anything
// unclassified is Internal.
func KindOf(err error) Kind {
	if err == nil {
		return KindInternal
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, store.ErrNotFound) {
		return KindNotFound
	}
	return KindInternal
}

// Is reports whether err is classified as kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// PublicMessage is the text safe to show a client. Internal failures get a
// generic message.
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindInternal && e.Message != "" {
		return e.Message
	}
	if errors.Is(err, store.ErrNotFound) {
		return "Not found"
	}
	return "Internal server error"
}
