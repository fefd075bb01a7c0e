package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"land-review/internal/apperr"
	"land-review/internal/models"
	"land-review/internal/notify"
	"land-review/internal/permission"
	"land-review/internal/repository"
)

// Upload describes a new document version
type Upload struct {
	ProjectID       string
	DocumentType    string
	Slot            string
	StorageRef      string
	FileName        string
	ChecklistItemID *uint
}

// CheckDocumentType rejects a document type the role mapping does not know
func (s *ReviewService) CheckDocumentType(docType string) error {
	if !s.roles.Current().KnownDocumentType(strings.TrimSpace(docType)) {
		return apperr.InvalidInput("unknown document type %q", docType)
	}
	return nil
}

// UploadDocument records the next version of a (document_type, slot) as pending
func (s *ReviewService) UploadDocument(ctx context.Context, actor models.Actor, in Upload) (*models.DocumentResult, error) {
	if err := permission.CanUpload(actor); err != nil {
		return nil, err
	}

	in.ProjectID = strings.TrimSpace(in.ProjectID)
	in.DocumentType = strings.TrimSpace(in.DocumentType)
	in.Slot = strings.TrimSpace(in.Slot)
	if in.Slot == "" {
		in.Slot = models.DefaultSlot
	}
	if in.ProjectID == "" || in.StorageRef == "" {
		return nil, apperr.InvalidInput("project_id and storage_ref are required")
	}
	if err := s.CheckDocumentType(in.DocumentType); err != nil {
		return nil, err
	}

	var result *models.DocumentResult
	err := s.run(ctx, actor, func(o *op) error {
		if in.ChecklistItemID != nil {
			item, err := o.tx.GetItem(o.ctx, *in.ChecklistItemID)
			if err != nil {
				return fmt.Errorf("failed to get checklist item: %w", err)
			}
			if item == nil {
				return apperr.InvalidInput("checklist item %d not found", *in.ChecklistItemID)
			}
			a, err := o.assignment(item.AssignmentID, false)
			if err != nil {
				return err
			}
			if a.ProjectID != in.ProjectID {
				return apperr.InvalidInput("checklist item %d belongs to another project", item.ID)
			}
		}

		if err := o.lockSlot(in.ProjectID, in.DocumentType, in.Slot); err != nil {
			return err
		}
		version, err := o.tx.NextDocumentVersion(o.ctx, in.ProjectID, in.DocumentType, in.Slot)
		if err != nil {
			return fmt.Errorf("failed to get next version: %w", err)
		}

		d := &models.Document{
			ProjectID:       in.ProjectID,
			DocumentType:    in.DocumentType,
			Slot:            in.Slot,
			Version:         version,
			Status:          models.DocPending,
			StorageRef:      in.StorageRef,
			FileName:        in.FileName,
			ChecklistItemID: in.ChecklistItemID,
			UploadedBy:      actor.ID,
		}
		affected, err := o.lockAffected(d)
		if err != nil {
			return err
		}
		if err := o.tx.CreateDocument(o.ctx, d); err != nil {
			return fmt.Errorf("failed to create document: %w", err)
		}
		if err := o.audit("document.uploaded", "document", d.ID, d.ProjectID,
			fmt.Sprintf("%s/%s v%d", d.DocumentType, d.Slot, d.Version)); err != nil {
			return err
		}
		if err := o.documentActivity(affected); err != nil {
			return err
		}

		result, err = o.documentResult(d, affected)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// MarkUnderReview makes a document the single one under review in its slot.
// The previous holder returns to the status it had before it was marked.
func (s *ReviewService) MarkUnderReview(ctx context.Context, actor models.Actor, documentID uint) (*models.DocumentResult, error) {
	var result *models.DocumentResult
	err := s.run(ctx, actor, func(o *op) error {
		d, err := o.lockDocument(documentID, func(d *models.Document) error {
			return permission.CanReviewDocument(actor, o.mapping.RolesFor(d.DocumentType))
		})
		if err != nil {
			return err
		}
		if d.Status.Terminal() {
			return apperr.Conflict("document %d is %s and cannot be put under review", d.ID, d.Status)
		}

		affected, err := o.lockAffected(d)
		if err != nil {
			return err
		}

		if d.Status != models.DocUnderReview {
			holder, err := o.tx.SlotHolder(o.ctx, d.ProjectID, d.DocumentType, d.Slot)
			if err != nil {
				return fmt.Errorf("failed to get slot holder: %w", err)
			}
			if holder != nil && holder.ID != d.ID {
				holder.Status = restingStatus(holder.PriorStatus)
				holder.PriorStatus = ""
				if err := o.tx.UpdateDocumentStatus(o.ctx, holder); err != nil {
					return fmt.Errorf("failed to release previous document: %w", err)
				}
				if err := o.audit("document.review_released", "document", holder.ID, holder.ProjectID,
					fmt.Sprintf("superseded by document %d", d.ID)); err != nil {
					return err
				}
			}

			d.PriorStatus = d.Status
			d.Status = models.DocUnderReview
			if err := o.tx.UpdateDocumentStatus(o.ctx, d); err != nil {
				return fmt.Errorf("failed to mark document under review: %w", err)
			}
			if err := o.audit("document.under_review", "document", d.ID, d.ProjectID, ""); err != nil {
				return err
			}
			if err := o.documentActivity(affected); err != nil {
				return err
			}
		}

		result, err = o.documentResult(d, affected)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ReleaseFromReview returns a document under review to pending
func (s *ReviewService) ReleaseFromReview(ctx context.Context, actor models.Actor, documentID uint) (*models.DocumentResult, error) {
	var result *models.DocumentResult
	err := s.run(ctx, actor, func(o *op) error {
		d, err := o.lockDocument(documentID, func(d *models.Document) error {
			return permission.CanReviewDocument(actor, o.mapping.RolesFor(d.DocumentType))
		})
		if err != nil {
			return err
		}
		if d.Status != models.DocUnderReview {
			return apperr.InvalidState("document %d is %s, not under review", d.ID, d.Status)
		}

		affected, err := o.lockAffected(d)
		if err != nil {
			return err
		}

		d.Status = models.DocPending
		d.PriorStatus = ""
		if err := o.tx.UpdateDocumentStatus(o.ctx, d); err != nil {
			return fmt.Errorf("failed to release document: %w", err)
		}
		if err := o.audit("document.review_released", "document", d.ID, d.ProjectID, ""); err != nil {
			return err
		}
		if err := o.documentActivity(affected); err != nil {
			return err
		}

		result, err = o.documentResult(d, affected)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ApproveDocument approves a pending or under-review version; note is optional
func (s *ReviewService) ApproveDocument(ctx context.Context, actor models.Actor, documentID uint, note string) (*models.DocumentResult, error) {
	return s.decideDocument(ctx, actor, documentID, models.DocApproved, strings.TrimSpace(note))
}

// RejectDocument rejects a pending or under-review version with a reason
func (s *ReviewService) RejectDocument(ctx context.Context, actor models.Actor, documentID uint, reason string) (*models.DocumentResult, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperr.InvalidInput("rejection reason is required")
	}
	return s.decideDocument(ctx, actor, documentID, models.DocRejected, reason)
}

func (s *ReviewService) decideDocument(ctx context.Context, actor models.Actor, documentID uint, to models.DocumentStatus, reason string) (*models.DocumentResult, error) {
	if err := permission.CanDecideDocument(actor); err != nil {
		return nil, err
	}

	var result *models.DocumentResult
	err := s.run(ctx, actor, func(o *op) error {
		d, err := o.lockDocument(documentID, nil)
		if err != nil {
			return err
		}
		if d.Status.Terminal() {
			return apperr.Conflict("document %d is already %s", d.ID, d.Status)
		}

		affected, err := o.lockAffected(d)
		if err != nil {
			return err
		}

		decidedAt := o.now
		d.Status = to
		d.PriorStatus = ""
		d.DecidedBy = actor.ID
		d.DecidedAt = &decidedAt
		if to == models.DocRejected {
			d.RejectionReason = reason
		} else {
			d.DecisionNote = reason
		}
		if err := o.tx.UpdateDocumentStatus(o.ctx, d); err != nil {
			return fmt.Errorf("failed to update document: %w", err)
		}
		if err := o.audit("document."+string(to), "document", d.ID, d.ProjectID, reason); err != nil {
			return err
		}
		if to == models.DocRejected {
			e := notify.NewEvent(notify.DocumentRejected, d.ProjectID)
			e.DocumentID = d.ID
			e.ActorID = actor.ID
			e.Data = map[string]string{
				"document_type": d.DocumentType,
				"slot":          d.Slot,
				"version":       fmt.Sprint(d.Version),
				"reason":        reason,
			}
			o.events = append(o.events, e)
		}
		if err := o.documentActivity(affected); err != nil {
			return err
		}

		result, err = o.documentResult(d, affected)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// SlotStatusSummary counts document statuses per slot of one document type
func (s *ReviewService) SlotStatusSummary(ctx context.Context, actor models.Actor, projectID, documentType string) ([]models.SlotSummary, error) {
	result := []models.SlotSummary{}
	err := s.run(ctx, actor, func(o *op) error {
		docs, err := o.tx.ListDocuments(o.ctx, projectID, []string{documentType})
		if err != nil {
			return fmt.Errorf("failed to list documents: %w", err)
		}
		result = summarizeSlots(docs)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func summarizeSlots(docs []models.Document) []models.SlotSummary {
	bySlot := make(map[string]*models.SlotSummary)
	for _, d := range docs {
		sum, ok := bySlot[d.Slot]
		if !ok {
			sum = &models.SlotSummary{Slot: d.Slot}
			bySlot[d.Slot] = sum
		}
		switch d.Status {
		case models.DocPending:
			sum.Pending++
		case models.DocUnderReview:
			sum.UnderReview++
		case models.DocApproved:
			sum.Approved++
		case models.DocRejected:
			sum.Rejected++
		}
		if d.Version > sum.LatestVersion {
			sum.LatestVersion = d.Version
		}
	}

	result := make([]models.SlotSummary, 0, len(bySlot))
	for _, sum := range bySlot {
		result = append(result, *sum)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Slot < result[j].Slot })
	return result
}

// restingStatus is where a document goes when another takes over its slot
func restingStatus(prior models.DocumentStatus) models.DocumentStatus {
	if prior == "" || prior == models.DocUnderReview {
		return models.DocPending
	}
	return prior
}

func (o *op) lockSlot(projectID, documentType, slot string) error {
	if err := o.tx.Lock(o.ctx, repository.SlotLockKey(projectID, documentType, slot)); err != nil {
		return fmt.Errorf("failed to lock slot: %w", err)
	}
	return nil
}

// lockDocument takes the slot lock and returns the document read under it.
// check runs before the lock is taken.
func (o *op) lockDocument(id uint, check func(d *models.Document) error) (*models.Document, error) {
	d, err := o.document(id, false)
	if err != nil {
		return nil, err
	}
	if check != nil {
		if err := check(d); err != nil {
			return nil, err
		}
	}
	if err := o.lockSlot(d.ProjectID, d.DocumentType, d.Slot); err != nil {
		return nil, err
	}
	return o.document(id, true)
}

// lockAffected locks every assignment whose progress the document can change:
// those whose role maps its type and the one owning its linked checklist item.
func (o *op) lockAffected(d *models.Document) ([]*models.Assignment, error) {
	var linked uint
	if d.ChecklistItemID != nil {
		item, err := o.tx.GetItem(o.ctx, *d.ChecklistItemID)
		if err != nil {
			return nil, fmt.Errorf("failed to get checklist item: %w", err)
		}
		if item != nil {
			linked = item.AssignmentID
		}
	}

	list, err := o.tx.ListAssignmentsByProject(o.ctx, d.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}

	var ids []uint
	for _, a := range list {
		if a.ID == linked || o.gates(a.Role, d.DocumentType) {
			ids = append(ids, a.ID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	locked := make([]*models.Assignment, 0, len(ids))
	for _, id := range ids {
		a, err := o.assignment(id, true)
		if err != nil {
			return nil, err
		}
		locked = append(locked, a)
	}
	return locked, nil
}

// documentActivity counts a document action as activity on the actor's own open reviews
func (o *op) documentActivity(affected []*models.Assignment) error {
	for _, a := range affected {
		if a.ReviewerID != o.actor.ID || a.State.Closed() {
			continue
		}
		if err := o.touch(a); err != nil {
			return err
		}
	}
	return nil
}

func (o *op) documentResult(d *models.Document, affected []*models.Assignment) (*models.DocumentResult, error) {
	result := &models.DocumentResult{Document: *d, Assignments: []models.AssignmentStatus{}}

	holder, err := o.tx.SlotHolder(o.ctx, d.ProjectID, d.DocumentType, d.Slot)
	if err != nil {
		return nil, fmt.Errorf("failed to get slot holder: %w", err)
	}
	if holder != nil {
		id := holder.ID
		result.SlotHolder = &id
	}

	gated := make([]models.Assignment, 0, len(affected))
	for _, a := range affected {
		if o.gates(a.Role, d.DocumentType) {
			gated = append(gated, *a)
		}
	}
	for _, a := range currentCycles(gated) {
		st, err := o.status(&a)
		if err != nil {
			return nil, err
		}
		result.Assignments = append(result.Assignments, st)
	}
	return result, nil
}

func (o *op) gates(role models.ReviewRole, documentType string) bool {
	return containsString(o.mapping.DocumentTypes(role), documentType)
}
