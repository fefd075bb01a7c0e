package models

import (
	"time"
)

// ReviewRole identifies the reviewer category an assignment belongs to
type ReviewRole string

const (
	RoleSales      ReviewRole = "sales"
	RoleAnalyst    ReviewRole = "analyst"
	RoleGovernance ReviewRole = "governance"
)

// AdminRole is the identity role that grants administrative rights
const AdminRole = "admin"

// AssignmentState is the lifecycle state of a review assignment
type AssignmentState string

const (
	StateNotStarted             AssignmentState = "not_started"
	StateInProgress             AssignmentState = "in_progress"
	StateClarificationRequested AssignmentState = "clarification_requested"
	StateApproved               AssignmentState = "approved"
	StateRejected               AssignmentState = "rejected"
	StatePublished              AssignmentState = "published"
)

// Closed reports whether the review cycle no longer accepts checklist changes
func (s AssignmentState) Closed() bool {
	return s == StateApproved || s == StatePublished || s == StateRejected
}

// Valid reports whether s is a known state
func (s AssignmentState) Valid() bool {
	switch s {
	case StateNotStarted, StateInProgress, StateClarificationRequested,
		StateApproved, StateRejected, StatePublished:
		return true
	}
	return false
}

// ItemStatus is the status of a checklist item
type ItemStatus string

const (
	ItemPending   ItemStatus = "pending"
	ItemCompleted ItemStatus = "completed"
)

// Valid reports whether s is a known item status
func (s ItemStatus) Valid() bool {
	return s == ItemPending || s == ItemCompleted
}

// DocumentStatus is the review status of one document version
type DocumentStatus string

const (
	DocPending     DocumentStatus = "pending"
	DocUnderReview DocumentStatus = "under_review"
	DocApproved    DocumentStatus = "approved"
	DocRejected    DocumentStatus = "rejected"
)

// Terminal reports whether the status can no longer change
func (s DocumentStatus) Terminal() bool {
	return s == DocApproved || s == DocRejected
}

// DefaultSlot is used when an upload does not name a slot
const DefaultSlot = "primary"

// Actor is the authenticated caller as supplied by the identity service
type Actor struct {
	ID    string   `json:"id"`
	Roles []string `json:"roles"`
}

// HasRole reports whether the actor holds the given identity role
func (a Actor) HasRole(role string) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the actor is an administrator
func (a Actor) IsAdmin() bool {
	return a.HasRole(AdminRole)
}

// Assignment binds one reviewer to one role on one project
type Assignment struct {
	ID            uint            `json:"id" db:"id"`
	ProjectID     string          `json:"project_id" db:"project_id"`
	Role          ReviewRole      `json:"role" db:"role"`
	ReviewerID    string          `json:"reviewer_id" db:"reviewer_id"`
	Cycle         int             `json:"cycle" db:"cycle"`
	State         AssignmentState `json:"state" db:"state"`
	Rating        *int            `json:"rating,omitempty" db:"rating"`
	Justification string          `json:"justification,omitempty" db:"justification"`
	Comments      string          `json:"comments,omitempty" db:"comments"`
	AssignedBy    string          `json:"assigned_by" db:"assigned_by"`
	StartedAt     *time.Time      `json:"started_at,omitempty" db:"started_at"`
	ApprovedAt    *time.Time      `json:"approved_at,omitempty" db:"approved_at"`
	PublishedAt   *time.Time      `json:"published_at,omitempty" db:"published_at"`
	LastActivity  time.Time       `json:"last_activity_at" db:"last_activity_at"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at" db:"updated_at"`
}

// ChecklistItem is one review subtask of an assignment
type ChecklistItem struct {
	ID           uint       `json:"id" db:"id"`
	AssignmentID uint       `json:"assignment_id" db:"assignment_id"`
	Section      string     `json:"section" db:"section"`
	Title        string     `json:"title" db:"title"`
	Status       ItemStatus `json:"status" db:"status"`
	CompletedAt  *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	CreatedBy    string     `json:"created_by" db:"created_by"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}

// Document is one immutable version of a gated project document
type Document struct {
	ID              uint           `json:"id" db:"id"`
	ProjectID       string         `json:"project_id" db:"project_id"`
	DocumentType    string         `json:"document_type" db:"document_type"`
	Slot            string         `json:"slot" db:"slot"`
	Version         int            `json:"version" db:"version"`
	Status          DocumentStatus `json:"status" db:"status"`
	PriorStatus     DocumentStatus `json:"-" db:"prior_status"`
	RejectionReason string         `json:"rejection_reason,omitempty" db:"rejection_reason"`
	DecisionNote    string         `json:"decision_note,omitempty" db:"decision_note"`
	StorageRef      string         `json:"storage_ref" db:"storage_ref"`
	FileName        string         `json:"file_name,omitempty" db:"file_name"`
	ChecklistItemID *uint          `json:"checklist_item_id,omitempty" db:"checklist_item_id"`
	UploadedBy      string         `json:"uploaded_by" db:"uploaded_by"`
	DecidedBy       string         `json:"decided_by,omitempty" db:"decided_by"`
	DecidedAt       *time.Time     `json:"decided_at,omitempty" db:"decided_at"`
	CreatedAt       time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at" db:"updated_at"`
}

// CompletionSnapshot is the derived progress of one assignment. Never stored.
type CompletionSnapshot struct {
	SubtasksCompleted    int  `json:"subtasks_completed"`
	SubtasksTotal        int  `json:"subtasks_total"`
	DocumentsApproved    int  `json:"documents_approved"`
	DocumentsTotal       int  `json:"documents_total"`
	Percentage           int  `json:"percentage"`
	AllDocumentsApproved bool `json:"all_documents_approved"`
}

// AssignmentStatus is the canonical view of one (project, role, reviewer) review
type AssignmentStatus struct {
	Assignment Assignment         `json:"assignment"`
	Completion CompletionSnapshot `json:"completion"`
	Progress   string             `json:"progress"`
}

// SlotSummary aggregates document statuses of one (document_type, slot)
type SlotSummary struct {
	Slot          string `json:"slot"`
	Pending       int    `json:"pending"`
	UnderReview   int    `json:"under_review"`
	Approved      int    `json:"approved"`
	Rejected      int    `json:"rejected"`
	LatestVersion int    `json:"latest_version"`
}

// DocumentResult is returned by every document mutation
type DocumentResult struct {
	Document    Document           `json:"document"`
	SlotHolder  *uint              `json:"slot_under_review_id,omitempty"`
	Assignments []AssignmentStatus `json:"assignments"`
}

// ChecklistResult is returned by checklist mutations
type ChecklistResult struct {
	Item   ChecklistItem    `json:"item"`
	Status AssignmentStatus `json:"status"`
}

// AuditEntry records one workflow mutation
type AuditEntry struct {
	ID         uint      `json:"id" db:"id"`
	ActorID    string    `json:"actor_id" db:"actor_id"`
	Action     string    `json:"action" db:"action"`
	Resource   string    `json:"resource" db:"resource"`
	ResourceID uint      `json:"resource_id" db:"resource_id"`
	ProjectID  string    `json:"project_id" db:"project_id"`
	Details    string    `json:"details,omitempty" db:"details"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}
