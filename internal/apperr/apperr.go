// Package apperr carries the error taxonomy shared by the assessment services
// and mapped to transport status codes by the HTTP layer.
package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindInternal Kind = iota
	KindUnauthenticated
	KindForbidden
	KindNotFound
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindUnauthenticated:
		return "unauthenticated"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	default:
		return "internal"
	}
}

// Reason distinguishes why a Forbidden error was raised. It is logged and
// inspected in tests but never changes what the caller sees.
type Reason string

const (
	ReasonNone                Reason = ""
	ReasonRole                Reason = "role"
	ReasonNotOwner            Reason = "not_owner"
	ReasonNotEnrolled         Reason = "not_enrolled"
	ReasonQuizNotPublished    Reason = "quiz_not_published"
	ReasonResultsNotPublished Reason = "results_not_published"
	ReasonAnonymous           Reason = "anonymous"
)

type Error struct {
	Kind    Kind
	Reason  Reason
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Reason != ReasonNone {
		msg = fmt.Sprintf("%s (%s)", msg, e.Reason)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches two *Error values on Kind and, when the target sets one, Reason.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Reason == ReasonNone || t.Reason == e.Reason
}

// sentinels for errors.Is
var (
	ErrUnauthenticated = &Error{Kind: KindUnauthenticated}
	ErrForbidden       = &Error{Kind: KindForbidden}
	ErrNotFound        = &Error{Kind: KindNotFound}
	ErrValidation      = &Error{Kind: KindValidation}
)

func Unauthenticated(msg string) error {
	return &Error{Kind: KindUnauthenticated, Message: msg}
}

func Forbidden(reason Reason, msg string) error {
	return &Error{Kind: KindForbidden, Reason: reason, Message: msg}
}

func NotFound(what string) error {
	return &Error{Kind: KindNotFound, Message: what + " not found"}
}

func Validation(msg string) error {
	return &Error{Kind: KindValidation, Message: msg}
}

func Internal(err error) error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return err
	}
	return &Error{Kind: KindInternal, Message: "internal error", Err: err}
}

// KindOf reports the Kind of err; errors outside the taxonomy are Internal.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// ReasonOf returns the Forbidden reason carried by err, if any.
func ReasonOf(err error) Reason {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Reason
	}
	return ReasonNone
}

// PublicMessage is the text safe to hand to a caller. Forbidden and
// Internal errors collapse to a uniform message.
func PublicMessage(err error) string {
	var ae *Error
	if !errors.As(err, &ae) {
		return "server error"
	}
	switch ae.Kind {
	case KindInternal:
		return "server error"
	case KindForbidden:
		return "not authorized to access this resource"
	case KindUnauthenticated:
		return "not authorized to access this route"
	}
	if ae.Message != "" {
		return ae.Message
	}
	return ae.Kind.String()
}
