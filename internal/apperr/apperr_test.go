package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestPreconditionFailedMessage(t *testing.T) {
	err := PreconditionFailed(MissingSubtasks, MissingJustification)

	want := "precondition failed: subtasks incomplete, justification required"
	if err.Error() != want {
		t.Errorf("Expected message %q, got %q", want, err.Error())
	}
	if len(err.Missing) != 2 || err.Missing[0] != MissingSubtasks {
		t.Errorf("Expected missing [subtasks justification], got %v", err.Missing)
	}
}

func TestKindOfWrapped(t *testing.T) {
	wrapped := fmt.Errorf("load assignment: %w", NotFound("assignment %d not found", 7))

	if KindOf(wrapped) != KindNotFound {
		t.Errorf("Expected kind %s, got %s", KindNotFound, KindOf(wrapped))
	}
	if !errors.Is(wrapped, ErrNotFound) {
		t.Error("errors.Is should match the not found sentinel")
	}
	if errors.Is(wrapped, ErrConflict) {
		t.Error("errors.Is should not match a different kind")
	}
	if KindOf(errors.New("boom")) != KindInternal {
		t.Error("Untyped errors should be internal")
	}
}

func TestForbiddenReasonMatching(t *testing.T) {
	err := Forbidden(ReasonViewOnly, "admins may only view this checklist")

	if !errors.Is(err, ErrForbidden) {
		t.Error("Any forbidden error should match the sentinel")
	}
	if !errors.Is(err, &Error{Kind: KindForbidden, Reason: ReasonViewOnly}) {
		t.Error("Expected view-only reason to match")
	}
	if errors.Is(err, &Error{Kind: KindForbidden, Reason: ReasonNoAccess}) {
		t.Error("view-only must not match no-access")
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		kind Kind
		want int
	}{
		{KindNotFound, http.StatusNotFound},
		{KindForbidden, http.StatusForbidden},
		{KindPreconditionFailed, http.StatusPreconditionFailed},
		{KindConflict, http.StatusConflict},
		{KindInvalidState, http.StatusConflict},
		{KindInvalidInput, http.StatusBadRequest},
		{KindInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			if got := HTTPStatus(tt.kind); got != tt.want {
				t.Errorf("Expected %d, got %d", tt.want, got)
			}
		})
	}
}
