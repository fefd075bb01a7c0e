package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"land-review/internal/models"
	"land-review/internal/notify"
	"land-review/internal/repository/memory"
	"land-review/internal/rolemap"
)

var (
	admin        = models.Actor{ID: "admin-1", Roles: []string{models.AdminRole}}
	salesRev     = models.Actor{ID: "rev-sales", Roles: []string{"sales"}}
	salesRev2    = models.Actor{ID: "rev-sales-2", Roles: []string{"sales"}}
	analystRev   = models.Actor{ID: "rev-analyst", Roles: []string{"analyst"}}
	landowner    = models.Actor{ID: "owner-1", Roles: []string{"landowner"}}
	adminAsSales = models.Actor{ID: "rev-sales", Roles: []string{models.AdminRole, "sales"}}
)

const project = "project-1"

type recorder struct {
	mu     sync.Mutex
	events []notify.Event
}

func (r *recorder) Emit(e notify.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) count(eventType notify.EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Type == eventType {
			n++
		}
	}
	return n
}

func newTestService(t *testing.T, opts Options) (*ReviewService, *recorder) {
	t.Helper()
	rec := &recorder{}
	return NewReviewService(memory.New(), rolemap.NewStaticRegistry(rolemap.Default()), rec, opts), rec
}

func assign(t *testing.T, svc *ReviewService, role models.ReviewRole, reviewer models.Actor) models.Assignment {
	t.Helper()
	st, err := svc.CreateAssignment(context.Background(), admin, project, role, reviewer.ID)
	if err != nil {
		t.Fatalf("Failed to create assignment: %v", err)
	}
	return st.Assignment
}

func addItems(t *testing.T, svc *ReviewService, assignmentID uint, n int) []models.ChecklistItem {
	t.Helper()
	items := make([]models.ChecklistItem, 0, n)
	for i := 0; i < n; i++ {
		res, err := svc.AddItem(context.Background(), admin, assignmentID, "due diligence", "check "+string(rune('A'+i)))
		if err != nil {
			t.Fatalf("Failed to add item: %v", err)
		}
		items = append(items, res.Item)
	}
	return items
}

func complete(t *testing.T, svc *ReviewService, actor models.Actor, items ...models.ChecklistItem) *models.ChecklistResult {
	t.Helper()
	var res *models.ChecklistResult
	for _, item := range items {
		var err error
		res, err = svc.SetItemStatus(context.Background(), actor, item.ID, models.ItemCompleted)
		if err != nil {
			t.Fatalf("Failed to complete item %d: %v", item.ID, err)
		}
	}
	return res
}

func upload(t *testing.T, svc *ReviewService, actor models.Actor, docType, slot string) models.Document {
	t.Helper()
	res, err := svc.UploadDocument(context.Background(), actor, Upload{
		ProjectID:    project,
		DocumentType: docType,
		Slot:         slot,
		StorageRef:   "blob://" + docType,
	})
	if err != nil {
		t.Fatalf("Failed to upload document: %v", err)
	}
	return res.Document
}

func approveDoc(t *testing.T, svc *ReviewService, docs ...models.Document) {
	t.Helper()
	for _, d := range docs {
		if _, err := svc.ApproveDocument(context.Background(), admin, d.ID, ""); err != nil {
			t.Fatalf("Failed to approve document %d: %v", d.ID, err)
		}
	}
}

func rating(v int) *int { return &v }

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
