// Package memory is an in-process review store.
//
// Transactions are fully serialized and work on a copy of the data that
// replaces the committed state only when the transaction function succeeds,
// so a failed or cancelled operation never leaves partial writes behind. The
// constraints enforced by the PostgreSQL schema are enforced here too.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"land-review/internal/apperr"
	"land-review/internal/models"
	"land-review/internal/repository"
)

type data struct {
	assignments map[uint]models.Assignment
	items       map[uint]models.ChecklistItem
	documents   map[uint]models.Document
	audit       []models.AuditEntry

	lastAssignmentID uint
	lastItemID       uint
	lastDocumentID   uint
	lastAuditID      uint
}

func newData() *data {
	return &data{
		assignments: make(map[uint]models.Assignment),
		items:       make(map[uint]models.ChecklistItem),
		documents:   make(map[uint]models.Document),
	}
}

func (d *data) clone() *data {
	c := *d
	c.assignments = make(map[uint]models.Assignment, len(d.assignments))
	for k, v := range d.assignments {
		c.assignments[k] = v
	}
	c.items = make(map[uint]models.ChecklistItem, len(d.items))
	for k, v := range d.items {
		c.items[k] = v
	}
	c.documents = make(map[uint]models.Document, len(d.documents))
	for k, v := range d.documents {
		c.documents[k] = v
	}
	c.audit = append([]models.AuditEntry(nil), d.audit...)
	return &c
}

// Store keeps review data in memory
type Store struct {
	mu   sync.Mutex
	data *data
	now  func() time.Time
}

// New creates an empty store
func New() *Store {
	return &Store{data: newData(), now: time.Now}
}

// InTx runs fn on a private copy and publishes it on success
func (s *Store) InTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.data.clone()
	if err := fn(&tx{data: work, now: s.now}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.data = work
	return nil
}

// Ping always succeeds
func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

type tx struct {
	data *data
	now  func() time.Time
}

// Lock is a no-op: transactions already run one at a time
func (t *tx) Lock(ctx context.Context, key string) error {
	return ctx.Err()
}

func (t *tx) CreateAssignment(ctx context.Context, a *models.Assignment) error {
	for _, existing := range t.data.assignments {
		if existing.ProjectID == a.ProjectID && existing.Role == a.Role &&
			existing.ReviewerID == a.ReviewerID && existing.State != models.StateRejected {
			return apperr.Conflict("reviewer %s already holds an open %s review on project %s", a.ReviewerID, a.Role, a.ProjectID)
		}
	}

	now := t.now()
	t.data.lastAssignmentID++
	a.ID = t.data.lastAssignmentID
	a.CreatedAt = now
	a.UpdatedAt = now
	if a.LastActivity.IsZero() {
		a.LastActivity = now
	}
	t.data.assignments[a.ID] = *a
	return nil
}

func (t *tx) GetAssignment(ctx context.Context, id uint, forUpdate bool) (*models.Assignment, error) {
	a, ok := t.data.assignments[id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (t *tx) UpdateAssignment(ctx context.Context, a *models.Assignment) error {
	if _, ok := t.data.assignments[a.ID]; !ok {
		return apperr.NotFound("assignment %d not found", a.ID)
	}
	a.UpdatedAt = t.now()
	t.data.assignments[a.ID] = *a
	return nil
}

func (t *tx) ListAssignmentsByProject(ctx context.Context, projectID string) ([]models.Assignment, error) {
	result := []models.Assignment{}
	for _, a := range t.data.assignments {
		if a.ProjectID == projectID {
			result = append(result, a)
		}
	}
	sortAssignments(result)
	return result, nil
}

func (t *tx) LatestAssignment(ctx context.Context, projectID string, role models.ReviewRole, reviewerID string) (*models.Assignment, error) {
	var latest *models.Assignment
	for _, a := range t.data.assignments {
		if a.ProjectID != projectID || a.Role != role || a.ReviewerID != reviewerID {
			continue
		}
		if latest == nil || a.Cycle > latest.Cycle {
			a := a
			latest = &a
		}
	}
	return latest, nil
}

func (t *tx) CountActiveAssignments(ctx context.Context, projectID string, role models.ReviewRole) (int, error) {
	n := 0
	for _, a := range t.data.assignments {
		if a.ProjectID == projectID && a.Role == role && a.State != models.StateRejected {
			n++
		}
	}
	return n, nil
}

func (t *tx) ListIdleAssignments(ctx context.Context, states []models.AssignmentState, before time.Time) ([]models.Assignment, error) {
	wanted := make(map[models.AssignmentState]bool, len(states))
	for _, s := range states {
		wanted[s] = true
	}
	result := []models.Assignment{}
	for _, a := range t.data.assignments {
		if wanted[a.State] && a.LastActivity.Before(before) {
			result = append(result, a)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func sortAssignments(list []models.Assignment) {
	sort.Slice(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if a.Role != b.Role {
			return a.Role < b.Role
		}
		if a.ReviewerID != b.ReviewerID {
			return a.ReviewerID < b.ReviewerID
		}
		return a.Cycle < b.Cycle
	})
}
