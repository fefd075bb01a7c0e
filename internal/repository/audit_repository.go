package repository

import (
	"context"
	"fmt"

	"land-review/internal/models"
)

// AuditRepository handles audit log database operations
type AuditRepository struct {
	db DBTX
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db DBTX) *AuditRepository {
	return &AuditRepository{db: db}
}

// CreateAuditEntry appends an entry to the audit trail
func (r *AuditRepository) CreateAuditEntry(ctx context.Context, e *models.AuditEntry) error {
	query := `
		INSERT INTO review_audit_log (actor_id, action, resource, resource_id, project_id, details)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`

	err := r.db.QueryRowContext(ctx, query,
		e.ActorID,
		e.Action,
		e.Resource,
		e.ResourceID,
		e.ProjectID,
		e.Details,
	).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}

	return nil
}

// ListAuditEntries retrieves a project's audit trail, newest first
func (r *AuditRepository) ListAuditEntries(ctx context.Context, projectID string, limit, offset int) ([]models.AuditEntry, error) {
	query := `
		SELECT id, actor_id, action, resource, resource_id, project_id, details, created_at
		FROM review_audit_log
		WHERE project_id = $1
		ORDER BY id DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.QueryContext(ctx, query, projectID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get audit logs: %w", err)
	}
	defer closeRows(rows)

	logs := []models.AuditEntry{}
	for rows.Next() {
		var e models.AuditEntry
		if err := rows.Scan(
			&e.ID,
			&e.ActorID,
			&e.Action,
			&e.Resource,
			&e.ResourceID,
			&e.ProjectID,
			&e.Details,
			&e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan audit log: %w", err)
		}
		logs = append(logs, e)
	}

	return logs, rows.Err()
}
