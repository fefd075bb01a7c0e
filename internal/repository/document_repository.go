package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"land-review/internal/apperr"
	"land-review/internal/models"
)

// DocumentRepository handles document version database operations
type DocumentRepository struct {
	db DBTX
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(db DBTX) *DocumentRepository {
	return &DocumentRepository{db: db}
}

const documentColumns = `
	id, project_id, document_type, slot, version, status, prior_status, rejection_reason,
	decision_note, storage_ref, file_name, checklist_item_id, uploaded_by, decided_by,
	decided_at, created_at, updated_at`

func scanDocument(row interface{ Scan(dest ...any) error }, d *models.Document) error {
	var itemID sql.NullInt64
	if err := row.Scan(
		&d.ID,
		&d.ProjectID,
		&d.DocumentType,
		&d.Slot,
		&d.Version,
		&d.Status,
		&d.PriorStatus,
		&d.RejectionReason,
		&d.DecisionNote,
		&d.StorageRef,
		&d.FileName,
		&itemID,
		&d.UploadedBy,
		&d.DecidedBy,
		&d.DecidedAt,
		&d.CreatedAt,
		&d.UpdatedAt,
	); err != nil {
		return err
	}
	d.ChecklistItemID = nil
	if itemID.Valid {
		id := uint(itemID.Int64)
		d.ChecklistItemID = &id
	}
	return nil
}

// NextDocumentVersion returns the version number the next upload to a slot receives
func (r *DocumentRepository) NextDocumentVersion(ctx context.Context, projectID, documentType, slot string) (int, error) {
	var version int
	query := `
		SELECT COALESCE(MAX(version), 0) + 1
		FROM review_documents
		WHERE project_id = $1 AND document_type = $2 AND slot = $3
	`
	if err := r.db.QueryRowContext(ctx, query, projectID, documentType, slot).Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get next document version: %w", err)
	}
	return version, nil
}

// CreateDocument inserts a new document version
func (r *DocumentRepository) CreateDocument(ctx context.Context, d *models.Document) error {
	var itemID sql.NullInt64
	if d.ChecklistItemID != nil {
		itemID = sql.NullInt64{Int64: int64(*d.ChecklistItemID), Valid: true}
	}
	query := `
		INSERT INTO review_documents (
			project_id, document_type, slot, version, status, storage_ref, file_name,
			checklist_item_id, uploaded_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		d.ProjectID,
		d.DocumentType,
		d.Slot,
		d.Version,
		d.Status,
		d.StorageRef,
		d.FileName,
		itemID,
		d.UploadedBy,
	).Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return mapError(fmt.Errorf("failed to create document: %w", err))
	}
	return nil
}

// GetDocument retrieves a document version by ID, optionally locking the row
func (r *DocumentRepository) GetDocument(ctx context.Context, id uint, forUpdate bool) (*models.Document, error) {
	query := `SELECT` + documentColumns + ` FROM review_documents WHERE id = $1` + forUpdateClause(forUpdate)

	var d models.Document
	err := scanDocument(r.db.QueryRowContext(ctx, query, id), &d)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return &d, nil
}

// UpdateDocumentStatus stores the review fields of a document and reloads the row
func (r *DocumentRepository) UpdateDocumentStatus(ctx context.Context, d *models.Document) error {
	query := `
		UPDATE review_documents
		SET status = $2, prior_status = $3, rejection_reason = $4, decision_note = $5,
		    decided_by = $6, decided_at = $7, updated_at = NOW()
		WHERE id = $1
		RETURNING` + documentColumns

	err := scanDocument(r.db.QueryRowContext(ctx, query,
		d.ID,
		d.Status,
		d.PriorStatus,
		d.RejectionReason,
		d.DecisionNote,
		d.DecidedBy,
		d.DecidedAt,
	), d)
	if err == sql.ErrNoRows {
		return apperr.NotFound("document %d not found", d.ID)
	}
	if err != nil {
		return mapError(fmt.Errorf("failed to update document: %w", err))
	}
	return nil
}

// ListDocuments returns every version of the project's documents of the given types,
// or of all types when documentTypes is empty
func (r *DocumentRepository) ListDocuments(ctx context.Context, projectID string, documentTypes []string) ([]models.Document, error) {
	query := `SELECT` + documentColumns + `
		FROM review_documents
		WHERE project_id = $1`
	args := []any{projectID}
	if len(documentTypes) > 0 {
		query += ` AND document_type = ANY($2)`
		args = append(args, pq.Array(documentTypes))
	}
	query += ` ORDER BY document_type, slot, version`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer closeRows(rows)

	documents := []models.Document{}
	for rows.Next() {
		var d models.Document
		if err := scanDocument(rows, &d); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		documents = append(documents, d)
	}
	return documents, rows.Err()
}

// SlotHolder returns the document currently under review in a slot
func (r *DocumentRepository) SlotHolder(ctx context.Context, projectID, documentType, slot string) (*models.Document, error) {
	query := `SELECT` + documentColumns + `
		FROM review_documents
		WHERE project_id = $1 AND document_type = $2 AND slot = $3 AND status = 'under_review'`

	var d models.Document
	err := scanDocument(r.db.QueryRowContext(ctx, query, projectID, documentType, slot), &d)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get slot holder: %w", err)
	}
	return &d, nil
}
