package memory

import (
	"context"
	"sort"

	"land-review/internal/apperr"
	"land-review/internal/models"
)

func (t *tx) CreateItem(ctx context.Context, item *models.ChecklistItem) error {
	if _, ok := t.data.assignments[item.AssignmentID]; !ok {
		return apperr.NotFound("assignment %d not found", item.AssignmentID)
	}
	now := t.now()
	t.data.lastItemID++
	item.ID = t.data.lastItemID
	item.CreatedAt = now
	item.UpdatedAt = now
	t.data.items[item.ID] = *item
	return nil
}

func (t *tx) GetItem(ctx context.Context, id uint) (*models.ChecklistItem, error) {
	item, ok := t.data.items[id]
	if !ok {
		return nil, nil
	}
	return &item, nil
}

func (t *tx) UpdateItemStatus(ctx context.Context, item *models.ChecklistItem) error {
	stored, ok := t.data.items[item.ID]
	if !ok {
		return apperr.NotFound("checklist item %d not found", item.ID)
	}
	stored.Status = item.Status
	stored.CompletedAt = item.CompletedAt
	stored.UpdatedAt = t.now()
	t.data.items[item.ID] = stored
	*item = stored
	return nil
}

func (t *tx) ListItems(ctx context.Context, assignmentID uint) ([]models.ChecklistItem, error) {
	result := []models.ChecklistItem{}
	for _, item := range t.data.items {
		if item.AssignmentID == assignmentID {
			result = append(result, item)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Section != result[j].Section {
			return result[i].Section < result[j].Section
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (t *tx) NextDocumentVersion(ctx context.Context, projectID, documentType, slot string) (int, error) {
	latest := 0
	for _, d := range t.data.documents {
		if d.ProjectID == projectID && d.DocumentType == documentType && d.Slot == slot && d.Version > latest {
			latest = d.Version
		}
	}
	return latest + 1, nil
}

func (t *tx) CreateDocument(ctx context.Context, d *models.Document) error {
	for _, existing := range t.data.documents {
		if sameSlot(existing, *d) && existing.Version == d.Version {
			return apperr.Conflict("version %d of %s/%s already exists", d.Version, d.DocumentType, d.Slot)
		}
	}
	now := t.now()
	t.data.lastDocumentID++
	d.ID = t.data.lastDocumentID
	d.CreatedAt = now
	d.UpdatedAt = now
	t.data.documents[d.ID] = *d
	return nil
}

func (t *tx) GetDocument(ctx context.Context, id uint, forUpdate bool) (*models.Document, error) {
	d, ok := t.data.documents[id]
	if !ok {
		return nil, nil
	}
	return &d, nil
}

func (t *tx) UpdateDocumentStatus(ctx context.Context, d *models.Document) error {
	stored, ok := t.data.documents[d.ID]
	if !ok {
		return apperr.NotFound("document %d not found", d.ID)
	}
	if d.Status == models.DocUnderReview {
		for id, other := range t.data.documents {
			if id != d.ID && sameSlot(other, stored) && other.Status == models.DocUnderReview {
				return apperr.Conflict("slot %s/%s already has a document under review", stored.DocumentType, stored.Slot)
			}
		}
	}

	stored.Status = d.Status
	stored.PriorStatus = d.PriorStatus
	stored.RejectionReason = d.RejectionReason
	stored.DecisionNote = d.DecisionNote
	stored.DecidedBy = d.DecidedBy
	stored.DecidedAt = d.DecidedAt
	stored.UpdatedAt = t.now()
	t.data.documents[d.ID] = stored
	*d = stored
	return nil
}

func (t *tx) ListDocuments(ctx context.Context, projectID string, documentTypes []string) ([]models.Document, error) {
	wanted := make(map[string]bool, len(documentTypes))
	for _, dt := range documentTypes {
		wanted[dt] = true
	}
	result := []models.Document{}
	for _, d := range t.data.documents {
		if d.ProjectID != projectID {
			continue
		}
		if len(wanted) > 0 && !wanted[d.DocumentType] {
			continue
		}
		result = append(result, d)
	}
	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if a.DocumentType != b.DocumentType {
			return a.DocumentType < b.DocumentType
		}
		if a.Slot != b.Slot {
			return a.Slot < b.Slot
		}
		return a.Version < b.Version
	})
	return result, nil
}

func (t *tx) SlotHolder(ctx context.Context, projectID, documentType, slot string) (*models.Document, error) {
	for _, d := range t.data.documents {
		if d.ProjectID == projectID && d.DocumentType == documentType && d.Slot == slot && d.Status == models.DocUnderReview {
			return &d, nil
		}
	}
	return nil, nil
}

func (t *tx) CreateAuditEntry(ctx context.Context, e *models.AuditEntry) error {
	t.data.lastAuditID++
	e.ID = t.data.lastAuditID
	e.CreatedAt = t.now()
	t.data.audit = append(t.data.audit, *e)
	return nil
}

func (t *tx) ListAuditEntries(ctx context.Context, projectID string, limit, offset int) ([]models.AuditEntry, error) {
	result := []models.AuditEntry{}
	skipped := 0
	for i := len(t.data.audit) - 1; i >= 0; i-- {
		e := t.data.audit[i]
		if e.ProjectID != projectID {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		if limit > 0 && len(result) >= limit {
			break
		}
		result = append(result, e)
	}
	return result, nil
}

func sameSlot(a, b models.Document) bool {
	return a.ProjectID == b.ProjectID && a.DocumentType == b.DocumentType && a.Slot == b.Slot
}
