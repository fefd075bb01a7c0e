package permission

import (
	"errors"
	"testing"

	"land-review/internal/apperr"
	"land-review/internal/models"
)

var (
	reviewer      = models.Actor{ID: "rev-1", Roles: []string{"sales"}}
	otherReviewer = models.Actor{ID: "rev-2", Roles: []string{"sales"}}
	admin         = models.Actor{ID: "adm-1", Roles: []string{models.AdminRole}}
	adminReviewer = models.Actor{ID: "rev-1", Roles: []string{models.AdminRole, "sales"}}
	landowner     = models.Actor{ID: "owner-1", Roles: []string{"landowner"}}
)

func assignment() *models.Assignment {
	return &models.Assignment{ID: 1, ProjectID: "p-1", Role: models.RoleSales, ReviewerID: "rev-1"}
}

func isReason(err error, reason string) bool {
	return errors.Is(err, &apperr.Error{Kind: apperr.KindForbidden, Reason: reason})
}

func TestCanMutateChecklist(t *testing.T) {
	tests := []struct {
		name   string
		actor  models.Actor
		reason string
	}{
		{"assigned reviewer", reviewer, ""},
		{"admin who is the reviewer", adminReviewer, ""},
		{"admin who is not the reviewer", admin, apperr.ReasonViewOnly},
		{"another reviewer", otherReviewer, apperr.ReasonNoAccess},
		{"landowner", landowner, apperr.ReasonNoAccess},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CanMutateChecklist(tt.actor, assignment())
			if tt.reason == "" {
				if err != nil {
					t.Errorf("Expected access, got %v", err)
				}
				return
			}
			if !isReason(err, tt.reason) {
				t.Errorf("Expected forbidden %s, got %v", tt.reason, err)
			}
		})
	}
}

func TestCanAddChecklistItem(t *testing.T) {
	if err := CanAddChecklistItem(admin, assignment()); err != nil {
		t.Errorf("Any admin may add items, got %v", err)
	}
	if err := CanAddChecklistItem(reviewer, assignment()); err != nil {
		t.Errorf("Reviewer may add items, got %v", err)
	}
	if err := CanAddChecklistItem(otherReviewer, assignment()); !isReason(err, apperr.ReasonNoAccess) {
		t.Errorf("Expected no-access, got %v", err)
	}
}

func TestCanReviewDocument(t *testing.T) {
	sales := []models.ReviewRole{models.RoleSales}

	if err := CanReviewDocument(reviewer, sales); err != nil {
		t.Errorf("Sales reviewer should review sales documents, got %v", err)
	}
	if err := CanReviewDocument(admin, nil); err != nil {
		t.Errorf("Admin should review any document, got %v", err)
	}
	if err := CanReviewDocument(reviewer, []models.ReviewRole{models.RoleGovernance}); err == nil {
		t.Error("Sales reviewer must not review governance documents")
	}
	if err := CanReviewDocument(landowner, sales); err == nil {
		t.Error("Landowner must not review documents")
	}
}

func TestCanUpload(t *testing.T) {
	for _, actor := range []models.Actor{landowner, reviewer, admin} {
		if err := CanUpload(actor); err != nil {
			t.Errorf("%s should upload, got %v", actor.ID, err)
		}
	}
	if err := CanUpload(models.Actor{Roles: []string{"landowner"}}); !isReason(err, apperr.ReasonNoAccess) {
		t.Errorf("Expected no-access for anonymous actor, got %v", err)
	}
}

func TestAdminOnlyChecks(t *testing.T) {
	checks := map[string]func(models.Actor) error{
		"create assignment": CanCreateAssignment,
		"decide document":   CanDecideDocument,
		"publish":           CanPublish,
		"view audit":        CanViewAudit,
	}

	for name, check := range checks {
		t.Run(name, func(t *testing.T) {
			if err := check(admin); err != nil {
				t.Errorf("Admin should pass, got %v", err)
			}
			if err := check(reviewer); !isReason(err, apperr.ReasonNoAccess) {
				t.Errorf("Reviewer should be rejected with no-access, got %v", err)
			}
		})
	}
}

func TestCanApproveAssignment(t *testing.T) {
	if err := CanApproveAssignment(reviewer, assignment()); err != nil {
		t.Errorf("Reviewer should approve, got %v", err)
	}
	if err := CanApproveAssignment(admin, assignment()); !isReason(err, apperr.ReasonViewOnly) {
		t.Errorf("Admin who is not the reviewer should get view-only, got %v", err)
	}
	if err := CanApproveAssignment(otherReviewer, assignment()); !isReason(err, apperr.ReasonNoAccess) {
		t.Errorf("Other reviewer should get no-access, got %v", err)
	}
}

func TestCanResume(t *testing.T) {
	if err := CanResume(admin, assignment()); err != nil {
		t.Errorf("Admin should resume, got %v", err)
	}
	if err := CanResume(landowner, assignment()); err == nil {
		t.Error("Landowner must not resume")
	}
}
