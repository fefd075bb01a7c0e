package service

import (
	"context"
	"fmt"
	"strings"

	"land-review/internal/apperr"
	"land-review/internal/models"
	"land-review/internal/permission"
)

// AddItem appends a pending checklist item to an open assignment
func (s *ReviewService) AddItem(ctx context.Context, actor models.Actor, assignmentID uint, section, title string) (*models.ChecklistResult, error) {
	section = strings.TrimSpace(section)
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, apperr.InvalidInput("title is required")
	}

	var result models.ChecklistResult
	err := s.run(ctx, actor, func(o *op) error {
		a, err := o.assignment(assignmentID, true)
		if err != nil {
			return err
		}
		if err := permission.CanAddChecklistItem(actor, a); err != nil {
			return err
		}
		if a.State.Closed() {
			return apperr.InvalidState("review is %s, checklist is closed", a.State)
		}

		item := &models.ChecklistItem{
			AssignmentID: a.ID,
			Section:      section,
			Title:        title,
			Status:       models.ItemPending,
			CreatedBy:    actor.ID,
		}
		if err := o.tx.CreateItem(o.ctx, item); err != nil {
			return fmt.Errorf("failed to create checklist item: %w", err)
		}
		if err := o.audit("checklist.item_added", "checklist_item", item.ID, a.ProjectID, title); err != nil {
			return err
		}

		st, err := o.status(a)
		if err != nil {
			return err
		}
		result = models.ChecklistResult{Item: *item, Status: st}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// SetItemStatus completes or reopens a checklist item. Only the assigned
// reviewer may do this; setting the current status again changes nothing.
func (s *ReviewService) SetItemStatus(ctx context.Context, actor models.Actor, itemID uint, status models.ItemStatus) (*models.ChecklistResult, error) {
	if !status.Valid() {
		return nil, apperr.InvalidInput("invalid checklist status %q", status)
	}

	var result models.ChecklistResult
	err := s.run(ctx, actor, func(o *op) error {
		item, err := o.tx.GetItem(o.ctx, itemID)
		if err != nil {
			return fmt.Errorf("failed to get checklist item: %w", err)
		}
		if item == nil {
			return apperr.NotFound("checklist item %d not found", itemID)
		}

		a, err := o.assignment(item.AssignmentID, true)
		if err != nil {
			return err
		}
		if err := permission.CanMutateChecklist(actor, a); err != nil {
			return err
		}
		if a.State.Closed() {
			return apperr.InvalidState("review is %s, checklist is closed", a.State)
		}

		// re-read under the assignment lock
		if item, err = o.tx.GetItem(o.ctx, itemID); err != nil {
			return fmt.Errorf("failed to get checklist item: %w", err)
		}

		if item.Status != status {
			item.Status = status
			item.CompletedAt = nil
			if status == models.ItemCompleted {
				completedAt := o.now
				item.CompletedAt = &completedAt
			}
			if err := o.tx.UpdateItemStatus(o.ctx, item); err != nil {
				return fmt.Errorf("failed to update checklist item: %w", err)
			}
			if err := o.audit("checklist.item_"+string(status), "checklist_item", item.ID, a.ProjectID, item.Title); err != nil {
				return err
			}
			if err := o.touch(a); err != nil {
				return err
			}
		}

		st, err := o.status(a)
		if err != nil {
			return err
		}
		result = models.ChecklistResult{Item: *item, Status: st}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// ListItems returns an assignment's checklist ordered by section, then creation
func (s *ReviewService) ListItems(ctx context.Context, actor models.Actor, assignmentID uint) ([]models.ChecklistItem, error) {
	var items []models.ChecklistItem
	err := s.run(ctx, actor, func(o *op) error {
		if _, err := o.assignment(assignmentID, false); err != nil {
			return err
		}
		var err error
		items, err = o.tx.ListItems(o.ctx, assignmentID)
		if err != nil {
			return fmt.Errorf("failed to list checklist items: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}
