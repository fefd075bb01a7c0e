package validator

import (
	"errors"
	"testing"
)

func TestValidateStruct(t *testing.T) {
	type request struct {
		Role       string `json:"role" validate:"required,slug"`
		ReviewerID string `json:"reviewer_id" validate:"notblank,max=255"`
		Rating     *int   `json:"rating" validate:"omitempty,min=1,max=5"`
		Status     string `json:"status" validate:"omitempty,oneof=pending completed"`
	}
	rating := func(v int) *int { return &v }

	tests := []struct {
		name      string
		input     request
		wantField string
	}{
		{"valid", request{Role: "sales", ReviewerID: "rev-1", Rating: rating(4), Status: "completed"}, ""},
		{"missing role", request{ReviewerID: "rev-1"}, "role"},
		{"bad role", request{Role: "Sales Team", ReviewerID: "rev-1"}, "role"},
		{"blank reviewer", request{Role: "sales", ReviewerID: "   "}, "reviewer_id"},
		{"rating out of range", request{Role: "sales", ReviewerID: "rev-1", Rating: rating(6)}, "rating"},
		{"bad status", request{Role: "sales", ReviewerID: "rev-1", Status: "done"}, "status"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(&tt.input)
			if tt.wantField == "" {
				if err != nil {
					t.Errorf("Expected valid, got %v", err)
				}
				return
			}

			var verrs Errors
			if !errors.As(err, &verrs) {
				t.Fatalf("Expected validation errors, got %v", err)
			}
			if verrs[0].Field != tt.wantField {
				t.Errorf("Expected field %s, got %+v", tt.wantField, verrs)
			}
			if verrs.Error() == "" {
				t.Error("Expected a message")
			}
		})
	}
}

func TestValidateStructNotAStruct(t *testing.T) {
	if err := ValidateStruct("text"); err == nil {
		t.Error("Expected error for non-struct input")
	}
}

func TestValidateRequired(t *testing.T) {
	if err := ValidateRequired("justification", " \t"); err == nil {
		t.Error("Blank value should fail")
	}
	if err := ValidateRequired("justification", "ok"); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestIsSlug(t *testing.T) {
	for s, want := range map[string]bool{
		"title_deed": true,
		"primary":    true,
		"lot2":       true,
		"2lot":       false,
		"Title":      false,
		"a-b":        false,
		"":           false,
	} {
		if got := IsSlug(s); got != want {
			t.Errorf("IsSlug(%q) = %v, want %v", s, got, want)
		}
	}
}

func TestSanitizeString(t *testing.T) {
	if got := SanitizeString("  deed\x00.pdf \n"); got != "deed.pdf" {
		t.Errorf("Unexpected sanitized value %q", got)
	}
}
