// Package completion derives review progress from checklist items and documents.
//
// Everything here is a pure function of its inputs: the same items and documents
// always produce the same snapshot.
package completion

import (
	"math"
	"sort"

	"land-review/internal/models"
)

// Progress labels
const (
	ProgressNotStarted = "not_started"
	ProgressInProgress = "in_progress"
	ProgressComplete   = "complete"
)

// Calculate computes the completion snapshot for one assignment.
// docs must already be restricted to the documents relevant to the assignment's role.
func Calculate(items []models.ChecklistItem, docs []models.Document) models.CompletionSnapshot {
	var s models.CompletionSnapshot

	s.SubtasksTotal = len(items)
	for _, item := range items {
		if item.Status == models.ItemCompleted {
			s.SubtasksCompleted++
		}
	}

	blocking := false
	s.DocumentsTotal = len(docs)
	for _, doc := range docs {
		switch doc.Status {
		case models.DocApproved:
			s.DocumentsApproved++
		case models.DocPending, models.DocUnderReview, models.DocRejected:
			blocking = true
		}
	}

	subtaskPct := 0
	if s.SubtasksTotal > 0 {
		subtaskPct = ratio(s.SubtasksCompleted, s.SubtasksTotal)
	}
	docPct := 100
	if s.DocumentsTotal > 0 {
		docPct = ratio(s.DocumentsApproved, s.DocumentsTotal)
	}

	switch {
	case s.SubtasksTotal == 0 && s.DocumentsTotal == 0:
		s.Percentage = 0
	case s.SubtasksTotal > 0 && s.DocumentsTotal > 0:
		s.Percentage = round(float64(subtaskPct+docPct) / 2)
	case s.SubtasksTotal > 0:
		s.Percentage = subtaskPct
	default:
		s.Percentage = docPct
	}

	s.AllDocumentsApproved = s.DocumentsTotal > 0 &&
		s.DocumentsApproved == s.DocumentsTotal &&
		!blocking

	return s
}

// SubtasksDone reports whether every checklist item is completed (vacuously true without items)
func SubtasksDone(s models.CompletionSnapshot) bool {
	return s.SubtasksCompleted == s.SubtasksTotal
}

// Progress maps a snapshot to a coarse status label
func Progress(s models.CompletionSnapshot) string {
	switch {
	case s.Percentage >= 100 && s.AllDocumentsApproved:
		return ProgressComplete
	case s.SubtasksCompleted == 0 && s.DocumentsApproved == 0:
		return ProgressNotStarted
	default:
		return ProgressInProgress
	}
}

// Relevant keeps the latest version of every (document_type, slot) whose type is in
// docTypes. Superseded versions are history and never gate a review.
func Relevant(docs []models.Document, docTypes []string) []models.Document {
	allowed := make(map[string]bool, len(docTypes))
	for _, t := range docTypes {
		allowed[t] = true
	}

	type slotKey struct{ docType, slot string }
	latest := make(map[slotKey]models.Document)
	for _, doc := range docs {
		if !allowed[doc.DocumentType] {
			continue
		}
		k := slotKey{doc.DocumentType, doc.Slot}
		if cur, ok := latest[k]; !ok || doc.Version > cur.Version {
			latest[k] = doc
		}
	}

	result := make([]models.Document, 0, len(latest))
	for _, doc := range latest {
		result = append(result, doc)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].DocumentType != result[j].DocumentType {
			return result[i].DocumentType < result[j].DocumentType
		}
		return result[i].Slot < result[j].Slot
	})
	return result
}

func ratio(part, total int) int {
	return round(100 * float64(part) / float64(total))
}

// round rounds half away from zero; inputs are never negative
func round(v float64) int {
	return int(math.Floor(v + 0.5))
}
