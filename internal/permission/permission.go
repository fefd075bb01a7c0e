// Package permission decides who may mutate review state.
//
// Every check is a pure function of the actor and the resource it targets and
// returns nil or an *apperr.Error of kind forbidden. Visibility is not mutation
// rights: an admin can see any checklist but can only tick items on
// assignments where they are the reviewer.
package permission

import (
	"land-review/internal/apperr"
	"land-review/internal/models"
)

func isReviewer(actor models.Actor, a *models.Assignment) bool {
	return actor.ID != "" && actor.ID == a.ReviewerID
}

// CanCreateAssignment allows admins to bind reviewers to projects
func CanCreateAssignment(actor models.Actor) error {
	if !actor.IsAdmin() {
		return apperr.Forbidden(apperr.ReasonNoAccess, "only admins can assign reviewers")
	}
	return nil
}

// CanAddChecklistItem allows the assignment's reviewer or any admin
func CanAddChecklistItem(actor models.Actor, a *models.Assignment) error {
	if isReviewer(actor, a) || actor.IsAdmin() {
		return nil
	}
	return apperr.Forbidden(apperr.ReasonNoAccess, "only the assigned reviewer or an admin can add checklist items")
}

// CanMutateChecklist allows only the assigned reviewer to change item status
func CanMutateChecklist(actor models.Actor, a *models.Assignment) error {
	if isReviewer(actor, a) {
		return nil
	}
	if actor.IsAdmin() {
		return apperr.Forbidden(apperr.ReasonViewOnly, "checklist is view-only for admins who are not the assigned reviewer")
	}
	return apperr.Forbidden(apperr.ReasonNoAccess, "only the assigned reviewer can change checklist items")
}

// CanReviewDocument allows admins and holders of a role gated by the document type.
// rolesForType is the role mapping lookup for the document's type.
func CanReviewDocument(actor models.Actor, rolesForType []models.ReviewRole) error {
	if actor.IsAdmin() {
		return nil
	}
	for _, role := range rolesForType {
		if actor.HasRole(string(role)) {
			return nil
		}
	}
	return apperr.Forbidden(apperr.ReasonNoAccess, "not entitled to review this document type")
}

// CanUpload allows any authenticated actor to add a document version
func CanUpload(actor models.Actor) error {
	if actor.ID == "" {
		return apperr.Forbidden(apperr.ReasonNoAccess, "uploading documents requires an authenticated user")
	}
	return nil
}

// CanDecideDocument allows admins to approve or reject a document version
func CanDecideDocument(actor models.Actor) error {
	if !actor.IsAdmin() {
		return apperr.Forbidden(apperr.ReasonNoAccess, "only admins can approve or reject documents")
	}
	return nil
}

// CanApproveAssignment allows the assigned reviewer to approve, reject or ask for clarification
func CanApproveAssignment(actor models.Actor, a *models.Assignment) error {
	if isReviewer(actor, a) {
		return nil
	}
	if actor.IsAdmin() {
		return apperr.Forbidden(apperr.ReasonViewOnly, "only the assigned reviewer can decide this review")
	}
	return apperr.Forbidden(apperr.ReasonNoAccess, "only the assigned reviewer can decide this review")
}

// CanResume allows the reviewer or an admin to reopen a review after clarification
func CanResume(actor models.Actor, a *models.Assignment) error {
	if isReviewer(actor, a) || actor.IsAdmin() {
		return nil
	}
	return apperr.Forbidden(apperr.ReasonNoAccess, "only the assigned reviewer or an admin can resume this review")
}

// CanPublish allows admins to publish approved reviews
func CanPublish(actor models.Actor) error {
	if !actor.IsAdmin() {
		return apperr.Forbidden(apperr.ReasonNoAccess, "only admins can publish reviews")
	}
	return nil
}

// CanViewAudit allows admins to read the audit trail
func CanViewAudit(actor models.Actor) error {
	if !actor.IsAdmin() {
		return apperr.Forbidden(apperr.ReasonNoAccess, "only admins can read the audit trail")
	}
	return nil
}
