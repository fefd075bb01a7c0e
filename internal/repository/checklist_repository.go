package repository

import (
	"context"
	"database/sql"
	"fmt"

	"land-review/internal/apperr"
	"land-review/internal/models"
)

// ChecklistRepository handles checklist item database operations
type ChecklistRepository struct {
	db DBTX
}

// NewChecklistRepository creates a new checklist repository
func NewChecklistRepository(db DBTX) *ChecklistRepository {
	return &ChecklistRepository{db: db}
}

// CreateItem appends an item to an assignment's checklist
func (r *ChecklistRepository) CreateItem(ctx context.Context, item *models.ChecklistItem) error {
	query := `
		INSERT INTO checklist_items (assignment_id, section, title, status, completed_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		item.AssignmentID,
		item.Section,
		item.Title,
		item.Status,
		item.CompletedAt,
		item.CreatedBy,
	).Scan(&item.ID, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return mapError(fmt.Errorf("failed to create checklist item: %w", err))
	}
	return nil
}

// GetItem retrieves a checklist item by ID
func (r *ChecklistRepository) GetItem(ctx context.Context, id uint) (*models.ChecklistItem, error) {
	query := `
		SELECT id, assignment_id, section, title, status, completed_at, created_by, created_at, updated_at
		FROM checklist_items
		WHERE id = $1
	`
	var item models.ChecklistItem
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&item.ID,
		&item.AssignmentID,
		&item.Section,
		&item.Title,
		&item.Status,
		&item.CompletedAt,
		&item.CreatedBy,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get checklist item: %w", err)
	}
	return &item, nil
}

// UpdateItemStatus stores an item's status and completion time
func (r *ChecklistRepository) UpdateItemStatus(ctx context.Context, item *models.ChecklistItem) error {
	query := `
		UPDATE checklist_items
		SET status = $2, completed_at = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING assignment_id, section, title, created_by, created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query, item.ID, item.Status, item.CompletedAt).Scan(
		&item.AssignmentID,
		&item.Section,
		&item.Title,
		&item.CreatedBy,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return apperr.NotFound("checklist item %d not found", item.ID)
	}
	if err != nil {
		return mapError(fmt.Errorf("failed to update checklist item: %w", err))
	}
	return nil
}

// ListItems returns an assignment's checklist ordered by section, then creation order
func (r *ChecklistRepository) ListItems(ctx context.Context, assignmentID uint) ([]models.ChecklistItem, error) {
	query := `
		SELECT id, assignment_id, section, title, status, completed_at, created_by, created_at, updated_at
		FROM checklist_items
		WHERE assignment_id = $1
		ORDER BY section, id
	`
	rows, err := r.db.QueryContext(ctx, query, assignmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list checklist items: %w", err)
	}
	defer closeRows(rows)

	items := []models.ChecklistItem{}
	for rows.Next() {
		var item models.ChecklistItem
		if err := rows.Scan(
			&item.ID,
			&item.AssignmentID,
			&item.Section,
			&item.Title,
			&item.Status,
			&item.CompletedAt,
			&item.CreatedBy,
			&item.CreatedAt,
			&item.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan checklist item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
