// Package service implements the review assignment and approval workflow.
//
// Every operation runs in exactly one store transaction. Locks are always taken
// in the same order (document slot, then assignments by ascending id) so
// concurrent operations serialize instead of deadlocking. Events and state
// transition logs are released only after the transaction commits.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"land-review/internal/apperr"
	"land-review/internal/completion"
	"land-review/internal/models"
	"land-review/internal/notify"
	"land-review/internal/repository"
	"land-review/internal/rolemap"
)

// Emitter receives events after a transaction commits
type Emitter interface {
	Emit(e notify.Event)
}

// Options tune the workflow
type Options struct {
	// ExclusiveRoles allows a single open assignment per (project, role)
	ExclusiveRoles bool
	Now            func() time.Time
}

// ReviewService is the workflow engine
type ReviewService struct {
	store          repository.Store
	roles          *rolemap.Registry
	events         Emitter
	exclusiveRoles bool
	now            func() time.Time
}

// NewReviewService creates a new review service
func NewReviewService(store repository.Store, roles *rolemap.Registry, events Emitter, opts Options) *ReviewService {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &ReviewService{
		store:          store,
		roles:          roles,
		events:         events,
		exclusiveRoles: opts.ExclusiveRoles,
		now:            now,
	}
}

type transition struct {
	assignment models.Assignment
	from       models.AssignmentState
}

// op carries one transaction and the side effects to release after commit
type op struct {
	ctx     context.Context
	tx      repository.Tx
	actor   models.Actor
	mapping *rolemap.Mapping
	now     time.Time

	events      []notify.Event
	transitions []transition
}

func (s *ReviewService) run(ctx context.Context, actor models.Actor, fn func(o *op) error) error {
	if actor.ID == "" {
		return apperr.Forbidden(apperr.ReasonNoAccess, "unauthenticated")
	}

	mapping := s.roles.Current()
	var committed *op
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		o := &op{ctx: ctx, tx: tx, actor: actor, mapping: mapping, now: s.now().UTC()}
		if err := fn(o); err != nil {
			return err
		}
		committed = o
		return nil
	})
	if err != nil {
		return err
	}

	for _, t := range committed.transitions {
		slog.Info("Assignment state changed",
			"assignment_id", t.assignment.ID,
			"project_id", t.assignment.ProjectID,
			"role", t.assignment.Role,
			"reviewer_id", t.assignment.ReviewerID,
			"from", t.from,
			"to", t.assignment.State,
			"actor_id", actor.ID,
		)
	}
	for _, e := range committed.events {
		s.events.Emit(e)
	}
	return nil
}

func (o *op) assignment(id uint, forUpdate bool) (*models.Assignment, error) {
	a, err := o.tx.GetAssignment(o.ctx, id, forUpdate)
	if err != nil {
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}
	if a == nil {
		return nil, apperr.NotFound("assignment %d not found", id)
	}
	return a, nil
}

func (o *op) document(id uint, forUpdate bool) (*models.Document, error) {
	d, err := o.tx.GetDocument(o.ctx, id, forUpdate)
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	if d == nil {
		return nil, apperr.NotFound("document %d not found", id)
	}
	return d, nil
}

// status derives the canonical (project, role, reviewer) view of one assignment
func (o *op) status(a *models.Assignment) (models.AssignmentStatus, error) {
	items, err := o.tx.ListItems(o.ctx, a.ID)
	if err != nil {
		return models.AssignmentStatus{}, fmt.Errorf("failed to list checklist items: %w", err)
	}

	var docs []models.Document
	docTypes := o.mapping.DocumentTypes(a.Role)
	if len(docTypes) > 0 {
		all, err := o.tx.ListDocuments(o.ctx, a.ProjectID, docTypes)
		if err != nil {
			return models.AssignmentStatus{}, fmt.Errorf("failed to list documents: %w", err)
		}
		docs = completion.Relevant(all, docTypes)
	}

	snap := completion.Calculate(items, docs)
	return models.AssignmentStatus{
		Assignment: *a,
		Completion: snap,
		Progress:   completion.Progress(snap),
	}, nil
}

func (o *op) setState(a *models.Assignment, to models.AssignmentState) {
	o.transitions = append(o.transitions, transition{assignment: *a, from: a.State})
	a.State = to
	o.transitions[len(o.transitions)-1].assignment.State = to
}

// touch records reviewer activity. The first activity starts the review and
// activity after a clarification request resumes it.
func (o *op) touch(a *models.Assignment) error {
	switch a.State {
	case models.StateNotStarted:
		started := o.now
		a.StartedAt = &started
		o.setState(a, models.StateInProgress)
		if err := o.audit("assignment.started", "assignment", a.ID, a.ProjectID, ""); err != nil {
			return err
		}
	case models.StateClarificationRequested:
		o.setState(a, models.StateInProgress)
		if err := o.audit("assignment.resumed", "assignment", a.ID, a.ProjectID, "resumed by reviewer activity"); err != nil {
			return err
		}
	}
	a.LastActivity = o.now
	if err := o.tx.UpdateAssignment(o.ctx, a); err != nil {
		return fmt.Errorf("failed to update assignment: %w", err)
	}
	return nil
}

// start moves a review that was never touched to in-progress before a decision
func (o *op) start(a *models.Assignment) error {
	if a.State != models.StateNotStarted {
		return nil
	}
	return o.touch(a)
}

func (o *op) audit(action, resource string, resourceID uint, projectID, details string) error {
	entry := &models.AuditEntry{
		ActorID:    o.actor.ID,
		Action:     action,
		Resource:   resource,
		ResourceID: resourceID,
		ProjectID:  projectID,
		Details:    details,
	}
	if err := o.tx.CreateAuditEntry(o.ctx, entry); err != nil {
		return fmt.Errorf("failed to write audit entry: %w", err)
	}
	return nil
}

func (o *op) emit(eventType notify.EventType, a *models.Assignment, data map[string]string) {
	e := notify.NewEvent(eventType, a.ProjectID)
	e.AssignmentID = a.ID
	e.ActorID = o.actor.ID
	e.Data = data
	o.events = append(o.events, e)
}

// currentCycles keeps the latest cycle of every (role, reviewer)
func currentCycles(list []models.Assignment) []models.Assignment {
	type key struct {
		role     models.ReviewRole
		reviewer string
	}
	latest := make(map[key]models.Assignment, len(list))
	for _, a := range list {
		k := key{a.Role, a.ReviewerID}
		if cur, ok := latest[k]; !ok || a.Cycle > cur.Cycle {
			latest[k] = a
		}
	}

	result := make([]models.Assignment, 0, len(latest))
	for _, a := range latest {
		result = append(result, a)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Role != result[j].Role {
			return result[i].Role < result[j].Role
		}
		return result[i].ReviewerID < result[j].ReviewerID
	})
	return result
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
