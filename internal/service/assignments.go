package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"land-review/internal/apperr"
	"land-review/internal/completion"
	"land-review/internal/models"
	"land-review/internal/notify"
	"land-review/internal/permission"
	"land-review/internal/repository"
)

// Decision is the reviewer's verdict on an assignment
type Decision struct {
	Rating        *int
	Justification string
	Comments      string
}

// CreateAssignment binds a reviewer to a role on a project. A reviewer whose
// previous cycle was rejected starts a new cycle.
func (s *ReviewService) CreateAssignment(ctx context.Context, actor models.Actor, projectID string, role models.ReviewRole, reviewerID string) (*models.AssignmentStatus, error) {
	if err := permission.CanCreateAssignment(actor); err != nil {
		return nil, err
	}

	projectID = strings.TrimSpace(projectID)
	reviewerID = strings.TrimSpace(reviewerID)
	if projectID == "" || reviewerID == "" {
		return nil, apperr.InvalidInput("project_id and reviewer_id are required")
	}
	if !s.roles.Current().KnownRole(role) {
		return nil, apperr.InvalidInput("unknown review role %q", role)
	}

	var result models.AssignmentStatus
	err := s.run(ctx, actor, func(o *op) error {
		if err := o.tx.Lock(o.ctx, repository.RoleLockKey(projectID, role)); err != nil {
			return fmt.Errorf("failed to lock role: %w", err)
		}

		latest, err := o.tx.LatestAssignment(o.ctx, projectID, role, reviewerID)
		if err != nil {
			return fmt.Errorf("failed to get assignment: %w", err)
		}
		cycle := 1
		if latest != nil {
			if latest.State != models.StateRejected {
				return apperr.Conflict("reviewer %s already holds an open %s review on project %s", reviewerID, role, projectID)
			}
			cycle = latest.Cycle + 1
		}

		if s.exclusiveRoles {
			n, err := o.tx.CountActiveAssignments(o.ctx, projectID, role)
			if err != nil {
				return fmt.Errorf("failed to count assignments: %w", err)
			}
			if n > 0 {
				return apperr.Conflict("role %s on project %s already has a reviewer", role, projectID)
			}
		}

		a := &models.Assignment{
			ProjectID:    projectID,
			Role:         role,
			ReviewerID:   reviewerID,
			Cycle:        cycle,
			State:        models.StateNotStarted,
			AssignedBy:   actor.ID,
			LastActivity: o.now,
		}
		if err := o.tx.CreateAssignment(o.ctx, a); err != nil {
			return err
		}
		if err := o.audit("assignment.created", "assignment", a.ID, projectID,
			fmt.Sprintf("role=%s reviewer=%s cycle=%d", role, reviewerID, cycle)); err != nil {
			return err
		}

		result, err = o.status(a)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// GetAssignment returns an assignment with its completion
func (s *ReviewService) GetAssignment(ctx context.Context, actor models.Actor, id uint) (*models.AssignmentStatus, error) {
	var result models.AssignmentStatus
	err := s.run(ctx, actor, func(o *op) error {
		a, err := o.assignment(id, false)
		if err != nil {
			return err
		}
		result, err = o.status(a)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// ListAssignments returns every assignment of a project, each with its own completion
func (s *ReviewService) ListAssignments(ctx context.Context, actor models.Actor, projectID string) ([]models.AssignmentStatus, error) {
	result := []models.AssignmentStatus{}
	err := s.run(ctx, actor, func(o *op) error {
		list, err := o.tx.ListAssignmentsByProject(o.ctx, projectID)
		if err != nil {
			return fmt.Errorf("failed to list assignments: %w", err)
		}
		for i := range list {
			st, err := o.status(&list[i])
			if err != nil {
				return err
			}
			result = append(result, st)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GetAssignmentStatus returns the current cycle of (project, role, reviewer)
func (s *ReviewService) GetAssignmentStatus(ctx context.Context, actor models.Actor, projectID string, role models.ReviewRole, reviewerID string) (*models.AssignmentStatus, error) {
	var result models.AssignmentStatus
	err := s.run(ctx, actor, func(o *op) error {
		a, err := o.tx.LatestAssignment(o.ctx, projectID, role, reviewerID)
		if err != nil {
			return fmt.Errorf("failed to get assignment: %w", err)
		}
		if a == nil {
			return apperr.NotFound("no %s review by %s on project %s", role, reviewerID, projectID)
		}
		result, err = o.status(a)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Approve closes the review as approved. Retrying an approval that already
// succeeded returns the current state without changes.
func (s *ReviewService) Approve(ctx context.Context, actor models.Actor, id uint, d Decision) (*models.AssignmentStatus, error) {
	var result models.AssignmentStatus
	err := s.run(ctx, actor, func(o *op) error {
		a, err := o.assignment(id, true)
		if err != nil {
			return err
		}
		if err := permission.CanApproveAssignment(actor, a); err != nil {
			return err
		}

		if a.State == models.StateApproved || a.State == models.StatePublished {
			result, err = o.status(a)
			return err
		}
		if a.State != models.StateNotStarted && a.State != models.StateInProgress {
			return apperr.InvalidState("cannot approve a review in state %s", a.State)
		}

		st, err := o.status(a)
		if err != nil {
			return err
		}

		justification := strings.TrimSpace(d.Justification)
		var missing []string
		c := st.Completion
		// an empty review has nothing to approve
		if !completion.SubtasksDone(c) || c.SubtasksTotal == 0 && c.DocumentsTotal == 0 {
			missing = append(missing, apperr.MissingSubtasks)
		}
		if !c.AllDocumentsApproved {
			missing = append(missing, apperr.MissingDocuments)
		}
		if d.Rating == nil || *d.Rating < 1 || *d.Rating > 5 {
			missing = append(missing, apperr.MissingRating)
		}
		if justification == "" {
			missing = append(missing, apperr.MissingJustification)
		}
		if len(missing) > 0 {
			return apperr.PreconditionFailed(missing...)
		}
		if err := o.start(a); err != nil {
			return err
		}

		rating := *d.Rating
		approvedAt := o.now
		a.Rating = &rating
		a.Justification = justification
		a.Comments = d.Comments
		a.ApprovedAt = &approvedAt
		a.LastActivity = o.now
		o.setState(a, models.StateApproved)
		if err := o.tx.UpdateAssignment(o.ctx, a); err != nil {
			return fmt.Errorf("failed to update assignment: %w", err)
		}
		if err := o.audit("assignment.approved", "assignment", a.ID, a.ProjectID, fmt.Sprintf("rating=%d", rating)); err != nil {
			return err
		}
		o.emit(notify.AssignmentApproved, a, map[string]string{
			"role":        string(a.Role),
			"reviewer_id": a.ReviewerID,
			"rating":      fmt.Sprint(rating),
		})

		st.Assignment = *a
		result = st
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Reject closes the review cycle as rejected
func (s *ReviewService) Reject(ctx context.Context, actor models.Actor, id uint, d Decision) (*models.AssignmentStatus, error) {
	return s.closeWith(ctx, actor, id, d, models.StateRejected, notify.AssignmentRejected)
}

// RequestClarification pauses the review until the reviewer resumes it
func (s *ReviewService) RequestClarification(ctx context.Context, actor models.Actor, id uint, d Decision) (*models.AssignmentStatus, error) {
	return s.closeWith(ctx, actor, id, d, models.StateClarificationRequested, notify.AssignmentClarificationRequested)
}

func (s *ReviewService) closeWith(ctx context.Context, actor models.Actor, id uint, d Decision, to models.AssignmentState, eventType notify.EventType) (*models.AssignmentStatus, error) {
	var result models.AssignmentStatus
	err := s.run(ctx, actor, func(o *op) error {
		a, err := o.assignment(id, true)
		if err != nil {
			return err
		}
		if err := permission.CanApproveAssignment(actor, a); err != nil {
			return err
		}

		if a.State == to {
			result, err = o.status(a)
			return err
		}
		if a.State != models.StateNotStarted && a.State != models.StateInProgress {
			return apperr.InvalidState("cannot move a review from %s to %s", a.State, to)
		}

		justification := strings.TrimSpace(d.Justification)
		if justification == "" {
			return apperr.PreconditionFailed(apperr.MissingJustification)
		}

		if err := o.start(a); err != nil {
			return err
		}

		a.Justification = justification
		a.Comments = d.Comments
		a.LastActivity = o.now
		o.setState(a, to)
		if err := o.tx.UpdateAssignment(o.ctx, a); err != nil {
			return fmt.Errorf("failed to update assignment: %w", err)
		}
		if err := o.audit(string(eventType), "assignment", a.ID, a.ProjectID, justification); err != nil {
			return err
		}
		o.emit(eventType, a, map[string]string{
			"role":          string(a.Role),
			"reviewer_id":   a.ReviewerID,
			"justification": justification,
		})

		result, err = o.status(a)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Resume reopens a review after a clarification request
func (s *ReviewService) Resume(ctx context.Context, actor models.Actor, id uint) (*models.AssignmentStatus, error) {
	var result models.AssignmentStatus
	err := s.run(ctx, actor, func(o *op) error {
		a, err := o.assignment(id, true)
		if err != nil {
			return err
		}
		if err := permission.CanResume(actor, a); err != nil {
			return err
		}

		switch a.State {
		case models.StateInProgress:
		case models.StateClarificationRequested:
			a.LastActivity = o.now
			o.setState(a, models.StateInProgress)
			if err := o.tx.UpdateAssignment(o.ctx, a); err != nil {
				return fmt.Errorf("failed to update assignment: %w", err)
			}
			if err := o.audit("assignment.resumed", "assignment", a.ID, a.ProjectID, ""); err != nil {
				return err
			}
		default:
			return apperr.InvalidState("cannot resume a review in state %s", a.State)
		}

		result, err = o.status(a)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Publish releases an approved review. Publishing twice is a no-op.
func (s *ReviewService) Publish(ctx context.Context, actor models.Actor, id uint) (*models.AssignmentStatus, error) {
	if err := permission.CanPublish(actor); err != nil {
		return nil, err
	}

	var result models.AssignmentStatus
	err := s.run(ctx, actor, func(o *op) error {
		a, err := o.assignment(id, true)
		if err != nil {
			return err
		}

		switch a.State {
		case models.StatePublished:
		case models.StateApproved:
			publishedAt := o.now
			a.PublishedAt = &publishedAt
			o.setState(a, models.StatePublished)
			if err := o.tx.UpdateAssignment(o.ctx, a); err != nil {
				return fmt.Errorf("failed to update assignment: %w", err)
			}
			if err := o.audit("assignment.published", "assignment", a.ID, a.ProjectID, ""); err != nil {
				return err
			}
			o.emit(notify.AssignmentPublished, a, map[string]string{
				"role":        string(a.Role),
				"reviewer_id": a.ReviewerID,
			})
		default:
			return apperr.InvalidState("only approved reviews can be published, state is %s", a.State)
		}

		result, err = o.status(a)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// RemindStale emits assignment.stale for open reviews idle for longer than idle
func (s *ReviewService) RemindStale(ctx context.Context, idle time.Duration) (int, error) {
	var stale []models.Assignment
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		var err error
		stale, err = tx.ListIdleAssignments(ctx,
			[]models.AssignmentState{models.StateInProgress, models.StateClarificationRequested},
			s.now().UTC().Add(-idle))
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to list idle assignments: %w", err)
	}

	for _, a := range stale {
		e := notify.NewEvent(notify.AssignmentStale, a.ProjectID)
		e.AssignmentID = a.ID
		e.Data = map[string]string{
			"role":             string(a.Role),
			"reviewer_id":      a.ReviewerID,
			"state":            string(a.State),
			"last_activity_at": a.LastActivity.Format(time.RFC3339),
		}
		s.events.Emit(e)
	}
	return len(stale), nil
}
