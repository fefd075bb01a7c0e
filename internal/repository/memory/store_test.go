package memory

import (
	"context"
	"errors"
	"testing"

	"land-review/internal/apperr"
	"land-review/internal/models"
	"land-review/internal/repository"
)

func TestFailedTransactionRollsBack(t *testing.T) {
	ctx := context.Background()
	store := New()

	boom := errors.New("boom")
	err := store.InTx(ctx, func(tx repository.Tx) error {
		a := &models.Assignment{ProjectID: "p-1", Role: models.RoleSales, ReviewerID: "rev-1", Cycle: 1, State: models.StateNotStarted}
		if err := tx.CreateAssignment(ctx, a); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Expected boom, got %v", err)
	}

	_ = store.InTx(ctx, func(tx repository.Tx) error {
		list, err := tx.ListAssignmentsByProject(ctx, "p-1")
		if err != nil {
			t.Fatalf("Failed to list assignments: %v", err)
		}
		if len(list) != 0 {
			t.Errorf("Expected rolled back transaction to leave no assignment, got %d", len(list))
		}
		return nil
	})
}

func TestCancelledTransactionDoesNotCommit(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	store := New()

	err := store.InTx(ctx, func(tx repository.Tx) error {
		a := &models.Assignment{ProjectID: "p-1", Role: models.RoleSales, ReviewerID: "rev-1", Cycle: 1, State: models.StateNotStarted}
		if err := tx.CreateAssignment(ctx, a); err != nil {
			return err
		}
		cancel()
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}

	_ = store.InTx(context.Background(), func(tx repository.Tx) error {
		if a, _ := tx.GetAssignment(context.Background(), 1, false); a != nil {
			t.Error("Cancelled transaction must not be visible")
		}
		return nil
	})
}

func TestOpenAssignmentIsUnique(t *testing.T) {
	ctx := context.Background()
	store := New()

	create := func(state models.AssignmentState) error {
		return store.InTx(ctx, func(tx repository.Tx) error {
			return tx.CreateAssignment(ctx, &models.Assignment{ProjectID: "p-1", Role: models.RoleSales, ReviewerID: "rev-1", State: state})
		})
	}

	if err := create(models.StateRejected); err != nil {
		t.Fatalf("Failed to create rejected assignment: %v", err)
	}
	if err := create(models.StateNotStarted); err != nil {
		t.Fatalf("A rejected cycle must not block a new one: %v", err)
	}
	if err := create(models.StateNotStarted); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("Expected conflict for second open assignment, got %v", err)
	}
}

func TestSingleUnderReviewPerSlot(t *testing.T) {
	ctx := context.Background()
	store := New()

	err := store.InTx(ctx, func(tx repository.Tx) error {
		for v := 1; v <= 2; v++ {
			d := &models.Document{ProjectID: "p-1", DocumentType: "title_deed", Slot: "primary", Version: v, Status: models.DocPending}
			if err := tx.CreateDocument(ctx, d); err != nil {
				return err
			}
		}
		first := &models.Document{ID: 1, Status: models.DocUnderReview, PriorStatus: models.DocPending}
		if err := tx.UpdateDocumentStatus(ctx, first); err != nil {
			return err
		}
		second := &models.Document{ID: 2, Status: models.DocUnderReview, PriorStatus: models.DocPending}
		return tx.UpdateDocumentStatus(ctx, second)
	})
	if !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("Expected conflict for second under_review document, got %v", err)
	}
}

func TestChecklistOrdering(t *testing.T) {
	ctx := context.Background()
	store := New()

	err := store.InTx(ctx, func(tx repository.Tx) error {
		a := &models.Assignment{ProjectID: "p-1", Role: models.RoleSales, ReviewerID: "rev-1", State: models.StateNotStarted}
		if err := tx.CreateAssignment(ctx, a); err != nil {
			return err
		}
		for _, section := range []string{"title", "legal", "title", "legal"} {
			if err := tx.CreateItem(ctx, &models.ChecklistItem{AssignmentID: a.ID, Section: section, Title: "check", Status: models.ItemPending}); err != nil {
				return err
			}
		}

		items, err := tx.ListItems(ctx, a.ID)
		if err != nil {
			return err
		}
		want := []uint{2, 4, 1, 3}
		for i, item := range items {
			if item.ID != want[i] {
				t.Errorf("Position %d: expected item %d, got %d", i, want[i], item.ID)
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Transaction failed: %v", err)
	}
}
