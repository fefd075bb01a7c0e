// Package apperr defines the typed errors returned by the review workflow.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies an error for callers
type Kind string

const (
	KindNotFound           Kind = "not_found"
	KindForbidden          Kind = "forbidden"
	KindPreconditionFailed Kind = "precondition_failed"
	KindConflict           Kind = "conflict"
	KindInvalidState       Kind = "invalid_state"
	KindInvalidInput       Kind = "invalid_input"
	KindInternal           Kind = "internal"
)

// Forbidden reasons
const (
	ReasonViewOnly = "view-only"
	ReasonNoAccess = "no-access"
)

// Approval preconditions, in reporting order
const (
	MissingSubtasks      = "subtasks"
	MissingDocuments     = "documents"
	MissingRating        = "rating"
	MissingJustification = "justification"
)

var missingText = map[string]string{
	MissingSubtasks:      "subtasks incomplete",
	MissingDocuments:     "documents not approved",
	MissingRating:        "rating must be between 1 and 5",
	MissingJustification: "justification required",
}

// Error is a workflow error with a kind
type Error struct {
	Kind    Kind
	Reason  string
	Message string
	Missing []string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error of the same kind, so errors.Is(err, apperr.ErrNotFound) works
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Reason == "" || t.Reason == e.Reason)
}

// Sentinels for errors.Is
var (
	ErrNotFound           = &Error{Kind: KindNotFound}
	ErrForbidden          = &Error{Kind: KindForbidden}
	ErrPreconditionFailed = &Error{Kind: KindPreconditionFailed}
	ErrConflict           = &Error{Kind: KindConflict}
	ErrInvalidState       = &Error{Kind: KindInvalidState}
	ErrInvalidInput       = &Error{Kind: KindInvalidInput}
)

func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// Forbidden builds a forbidden error; reason is ReasonViewOnly or ReasonNoAccess
func Forbidden(reason, format string, args ...any) *Error {
	return &Error{Kind: KindForbidden, Reason: reason, Message: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

func InvalidState(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidState, Message: fmt.Sprintf(format, args...)}
}

func InvalidInput(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidInput, Message: fmt.Sprintf(format, args...)}
}

// PreconditionFailed lists the unmet approval conditions
func PreconditionFailed(missing ...string) *Error {
	parts := make([]string, 0, len(missing))
	for _, m := range missing {
		if text, ok := missingText[m]; ok {
			parts = append(parts, text)
		} else {
			parts = append(parts, m)
		}
	}
	return &Error{
		Kind:    KindPreconditionFailed,
		Message: "precondition failed: " + strings.Join(parts, ", "),
		Missing: missing,
	}
}

// KindOf returns the kind of err, or KindInternal for untyped errors
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// HTTPStatus maps an error kind to a response code
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindPreconditionFailed:
		return http.StatusPreconditionFailed
	case KindConflict, KindInvalidState:
		return http.StatusConflict
	case KindInvalidInput:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
