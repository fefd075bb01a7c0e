package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"

	"land-review/internal/apperr"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want apperr.Kind
	}{
		{"unique violation", &pq.Error{Code: pqUniqueViolation, Constraint: "uq_review_documents_under_review"}, apperr.KindConflict},
		{"wrapped unique violation", fmt.Errorf("insert: %w", &pq.Error{Code: pqUniqueViolation}), apperr.KindConflict},
		{"check violation", &pq.Error{Code: pqCheckViolation}, apperr.KindInvalidInput},
		{"other pq error", &pq.Error{Code: "40001"}, apperr.KindInternal},
		{"plain error", errors.New("boom"), apperr.KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := apperr.KindOf(mapError(tt.err)); got != tt.want {
				t.Errorf("mapError() kind = %s, want %s", got, tt.want)
			}
		})
	}

	if mapError(nil) != nil {
		t.Error("nil should stay nil")
	}

	var pqErr *pq.Error
	if !errors.As(mapError(&pq.Error{Code: pqUniqueViolation}), &pqErr) {
		t.Error("Mapped error should keep the driver error")
	}
}

func TestLockKeys(t *testing.T) {
	if got := SlotLockKey("p1", "title_deed", "primary"); got != "slot:p1:title_deed:primary" {
		t.Errorf("Unexpected slot key %q", got)
	}
	if got := RoleLockKey("p1", "sales"); got != "role:p1:sales" {
		t.Errorf("Unexpected role key %q", got)
	}
	if forUpdateClause(false) != "" || forUpdateClause(true) != " FOR UPDATE" {
		t.Error("Unexpected row lock clause")
	}
}
