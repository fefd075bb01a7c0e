// Package notify delivers workflow events to the notification service.
//
// Delivery is fire-and-forget: the workflow hands events to a Dispatcher after
// its transaction commits and never waits for a publisher.
package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventType names a workflow event
type EventType string

const (
	AssignmentApproved               EventType = "assignment.approved"
	AssignmentPublished              EventType = "assignment.published"
	AssignmentRejected               EventType = "assignment.rejected"
	AssignmentClarificationRequested EventType = "assignment.clarification_requested"
	AssignmentStale                  EventType = "assignment.stale"
	DocumentRejected                 EventType = "document.rejected"
)

// Event is one notification payload
type Event struct {
	ID           string            `json:"id"`
	Type         EventType         `json:"type"`
	OccurredAt   time.Time         `json:"occurred_at"`
	ProjectID    string            `json:"project_id"`
	AssignmentID uint              `json:"assignment_id,omitempty"`
	DocumentID   uint              `json:"document_id,omitempty"`
	ActorID      string            `json:"actor_id,omitempty"`
	Data         map[string]string `json:"data,omitempty"`
}

// NewEvent stamps a new event with an id and the current time
func NewEvent(eventType EventType, projectID string) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		ProjectID:  projectID,
	}
}

// Publisher hands events to the notification service
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}
