package repository

import (
	"context"
	"time"

	"land-review/internal/models"
)

// Store runs review operations inside a single transaction.
// fn's changes are committed when it returns nil and rolled back otherwise.
type Store interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error
	Ping(ctx context.Context) error
}

// Tx is the view of the review tables inside one transaction
type Tx interface {
	AssignmentStore
	ChecklistStore
	DocumentStore
	AuditStore

	// Lock serializes transactions on key until the transaction ends
	Lock(ctx context.Context, key string) error
}

// AssignmentStore persists assignments. Getters return nil, nil when the row does not exist.
type AssignmentStore interface {
	CreateAssignment(ctx context.Context, a *models.Assignment) error
	GetAssignment(ctx context.Context, id uint, forUpdate bool) (*models.Assignment, error)
	UpdateAssignment(ctx context.Context, a *models.Assignment) error
	ListAssignmentsByProject(ctx context.Context, projectID string) ([]models.Assignment, error)
	// LatestAssignment returns the highest cycle of (project, role, reviewer)
	LatestAssignment(ctx context.Context, projectID string, role models.ReviewRole, reviewerID string) (*models.Assignment, error)
	// CountActiveAssignments counts non-rejected assignments of (project, role)
	CountActiveAssignments(ctx context.Context, projectID string, role models.ReviewRole) (int, error)
	ListIdleAssignments(ctx context.Context, states []models.AssignmentState, before time.Time) ([]models.Assignment, error)
}

// ChecklistStore persists checklist items. Items are never deleted.
type ChecklistStore interface {
	CreateItem(ctx context.Context, item *models.ChecklistItem) error
	GetItem(ctx context.Context, id uint) (*models.ChecklistItem, error)
	UpdateItemStatus(ctx context.Context, item *models.ChecklistItem) error
	// ListItems orders by section, then creation order
	ListItems(ctx context.Context, assignmentID uint) ([]models.ChecklistItem, error)
}

// DocumentStore persists document versions
type DocumentStore interface {
	NextDocumentVersion(ctx context.Context, projectID, documentType, slot string) (int, error)
	CreateDocument(ctx context.Context, d *models.Document) error
	GetDocument(ctx context.Context, id uint, forUpdate bool) (*models.Document, error)
	UpdateDocumentStatus(ctx context.Context, d *models.Document) error
	// ListDocuments returns every version of the project's documents of the given types,
	// or of all types when documentTypes is empty
	ListDocuments(ctx context.Context, projectID string, documentTypes []string) ([]models.Document, error)
	// SlotHolder returns the document currently under review in a slot
	SlotHolder(ctx context.Context, projectID, documentType, slot string) (*models.Document, error)
}

// AuditStore appends to the audit trail
type AuditStore interface {
	CreateAuditEntry(ctx context.Context, e *models.AuditEntry) error
	ListAuditEntries(ctx context.Context, projectID string, limit, offset int) ([]models.AuditEntry, error)
}

// SlotLockKey names the lock guarding one (project, document_type, slot)
func SlotLockKey(projectID, documentType, slot string) string {
	return "slot:" + projectID + ":" + documentType + ":" + slot
}

// RoleLockKey names the lock guarding assignment creation for one (project, role)
func RoleLockKey(projectID string, role models.ReviewRole) string {
	return "role:" + projectID + ":" + string(role)
}
