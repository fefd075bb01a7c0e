package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"land-review/internal/apperr"
	"land-review/internal/models"
)

// AssignmentRepository handles review assignment database operations
type AssignmentRepository struct {
	db DBTX
}

// NewAssignmentRepository creates a new assignment repository
func NewAssignmentRepository(db DBTX) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

const assignmentColumns = `
	id, project_id, role, reviewer_id, cycle, state, rating, justification, comments,
	assigned_by, started_at, approved_at, published_at, last_activity_at, created_at, updated_at`

func scanAssignment(row interface{ Scan(dest ...any) error }, a *models.Assignment) error {
	var rating sql.NullInt64
	if err := row.Scan(
		&a.ID,
		&a.ProjectID,
		&a.Role,
		&a.ReviewerID,
		&a.Cycle,
		&a.State,
		&rating,
		&a.Justification,
		&a.Comments,
		&a.AssignedBy,
		&a.StartedAt,
		&a.ApprovedAt,
		&a.PublishedAt,
		&a.LastActivity,
		&a.CreatedAt,
		&a.UpdatedAt,
	); err != nil {
		return err
	}
	a.Rating = nil
	if rating.Valid {
		v := int(rating.Int64)
		a.Rating = &v
	}
	return nil
}

// CreateAssignment inserts a new review cycle
func (r *AssignmentRepository) CreateAssignment(ctx context.Context, a *models.Assignment) error {
	if a.LastActivity.IsZero() {
		a.LastActivity = time.Now()
	}
	query := `
		INSERT INTO review_assignments (
			project_id, role, reviewer_id, cycle, state, assigned_by, last_activity_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		a.ProjectID,
		a.Role,
		a.ReviewerID,
		a.Cycle,
		a.State,
		a.AssignedBy,
		a.LastActivity,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return mapError(fmt.Errorf("failed to create assignment: %w", err))
	}
	return nil
}

// GetAssignment retrieves an assignment by ID, optionally locking the row
func (r *AssignmentRepository) GetAssignment(ctx context.Context, id uint, forUpdate bool) (*models.Assignment, error) {
	query := `SELECT` + assignmentColumns + ` FROM review_assignments WHERE id = $1` + forUpdateClause(forUpdate)

	var a models.Assignment
	err := scanAssignment(r.db.QueryRowContext(ctx, query, id), &a)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}
	return &a, nil
}

// UpdateAssignment stores the mutable fields of an assignment
func (r *AssignmentRepository) UpdateAssignment(ctx context.Context, a *models.Assignment) error {
	query := `
		UPDATE review_assignments
		SET state = $2, rating = $3, justification = $4, comments = $5,
		    started_at = $6, approved_at = $7, published_at = $8,
		    last_activity_at = $9, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	var rating sql.NullInt64
	if a.Rating != nil {
		rating = sql.NullInt64{Int64: int64(*a.Rating), Valid: true}
	}
	err := r.db.QueryRowContext(ctx, query,
		a.ID,
		a.State,
		rating,
		a.Justification,
		a.Comments,
		a.StartedAt,
		a.ApprovedAt,
		a.PublishedAt,
		a.LastActivity,
	).Scan(&a.UpdatedAt)
	if err == sql.ErrNoRows {
		return apperr.NotFound("assignment %d not found", a.ID)
	}
	if err != nil {
		return mapError(fmt.Errorf("failed to update assignment: %w", err))
	}
	return nil
}

func (r *AssignmentRepository) queryAssignments(ctx context.Context, query string, args ...any) ([]models.Assignment, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	defer closeRows(rows)

	// Initialize with empty slice instead of nil to avoid JSON null
	assignments := []models.Assignment{}
	for rows.Next() {
		var a models.Assignment
		if err := scanAssignment(rows, &a); err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		assignments = append(assignments, a)
	}
	return assignments, rows.Err()
}

// ListAssignmentsByProject returns every cycle of every assignment on a project
func (r *AssignmentRepository) ListAssignmentsByProject(ctx context.Context, projectID string) ([]models.Assignment, error) {
	query := `SELECT` + assignmentColumns + `
		FROM review_assignments
		WHERE project_id = $1
		ORDER BY role, reviewer_id, cycle`
	return r.queryAssignments(ctx, query, projectID)
}

// LatestAssignment returns the highest cycle of (project, role, reviewer)
func (r *AssignmentRepository) LatestAssignment(ctx context.Context, projectID string, role models.ReviewRole, reviewerID string) (*models.Assignment, error) {
	query := `SELECT` + assignmentColumns + `
		FROM review_assignments
		WHERE project_id = $1 AND role = $2 AND reviewer_id = $3
		ORDER BY cycle DESC
		LIMIT 1`

	var a models.Assignment
	err := scanAssignment(r.db.QueryRowContext(ctx, query, projectID, role, reviewerID), &a)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest assignment: %w", err)
	}
	return &a, nil
}

// CountActiveAssignments counts non-rejected assignments of (project, role)
func (r *AssignmentRepository) CountActiveAssignments(ctx context.Context, projectID string, role models.ReviewRole) (int, error) {
	var n int
	query := `SELECT COUNT(*) FROM review_assignments WHERE project_id = $1 AND role = $2 AND state <> 'rejected'`
	if err := r.db.QueryRowContext(ctx, query, projectID, role).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count assignments: %w", err)
	}
	return n, nil
}

// ListIdleAssignments returns assignments in one of states with no activity since before
func (r *AssignmentRepository) ListIdleAssignments(ctx context.Context, states []models.AssignmentState, before time.Time) ([]models.Assignment, error) {
	names := make([]string, len(states))
	for i, s := range states {
		names[i] = string(s)
	}
	query := `SELECT` + assignmentColumns + `
		FROM review_assignments
		WHERE state = ANY($1) AND last_activity_at < $2
		ORDER BY id`
	return r.queryAssignments(ctx, query, pq.Array(names), before)
}
