package handlers

import (
	"context"
	"net/http"

	"land-review/internal/models"
	"land-review/internal/service"
)

// ReviewHandler serves assignments, checklists and approval decisions
type ReviewHandler struct {
	reviews *service.ReviewService
}

// NewReviewHandler creates a new review handler
func NewReviewHandler(reviews *service.ReviewService) *ReviewHandler {
	return &ReviewHandler{reviews: reviews}
}

// CreateAssignmentRequest assigns a reviewer to a role
type CreateAssignmentRequest struct {
	Role       string `json:"role" validate:"required,slug"`
	ReviewerID string `json:"reviewer_id" validate:"notblank,max=255"`
}

// AddItemRequest appends a checklist item
type AddItemRequest struct {
	Section string `json:"section" validate:"max=255"`
	Title   string `json:"title" validate:"notblank,max=2000"`
}

// SetItemStatusRequest completes or reopens a checklist item
type SetItemStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending completed"`
}

// DecisionRequest carries a reviewer verdict
type DecisionRequest struct {
	Rating        *int   `json:"rating"`
	Justification string `json:"justification" validate:"max=10000"`
	Comments      string `json:"comments" validate:"max=10000"`
}

func (d DecisionRequest) decision() service.Decision {
	return service.Decision{Rating: d.Rating, Justification: d.Justification, Comments: d.Comments}
}

// CreateAssignment assigns a reviewer to a role on a project (admin only)
// @Summary Create assignment
// @Description Bind a reviewer to a review role on a project. A reviewer whose last cycle was rejected starts a new cycle.
// @Tags Assignments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param projectID path string true "Project ID"
// @Param request body CreateAssignmentRequest true "Role and reviewer"
// @Success 201 {object} models.AssignmentStatus
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse "Reviewer already holds an open review"
// @Router /projects/{projectID}/assignments [post]
func (h *ReviewHandler) CreateAssignment(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	var req CreateAssignmentRequest
	if err := decodeJSON(r, &req, false); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	status, err := h.reviews.CreateAssignment(r.Context(), actor, r.PathValue("projectID"), models.ReviewRole(req.Role), req.ReviewerID)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, status)
}

// ListAssignments lists a project's current review cycles
// @Summary List assignments
// @Description Every (role, reviewer) assignment of the project with its own completion snapshot
// @Tags Assignments
// @Produce json
// @Security BearerAuth
// @Param projectID path string true "Project ID"
// @Success 200 {array} models.AssignmentStatus
// @Router /projects/{projectID}/assignments [get]
func (h *ReviewHandler) ListAssignments(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	list, err := h.reviews.ListAssignments(r.Context(), actor, r.PathValue("projectID"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, list)
}

// GetAssignmentStatus returns the canonical status of one reviewer's review
// @Summary Assignment status
// @Tags Assignments
// @Produce json
// @Security BearerAuth
// @Param projectID path string true "Project ID"
// @Param role path string true "Review role"
// @Param reviewerID path string true "Reviewer ID"
// @Success 200 {object} models.AssignmentStatus
// @Failure 404 {object} ErrorResponse
// @Router /projects/{projectID}/roles/{role}/reviewers/{reviewerID}/status [get]
func (h *ReviewHandler) GetAssignmentStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	status, err := h.reviews.GetAssignmentStatus(r.Context(), actor,
		r.PathValue("projectID"), models.ReviewRole(r.PathValue("role")), r.PathValue("reviewerID"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, status)
}

// GetAssignment returns one assignment with its completion
// @Summary Get assignment
// @Tags Assignments
// @Produce json
// @Security BearerAuth
// @Param id path int true "Assignment ID"
// @Success 200 {object} models.AssignmentStatus
// @Failure 404 {object} ErrorResponse
// @Router /assignments/{id} [get]
func (h *ReviewHandler) GetAssignment(w http.ResponseWriter, r *http.Request) {
	h.withAssignment(w, r, func(actor models.Actor, id uint) (interface{}, error) {
		return h.reviews.GetAssignment(r.Context(), actor, id)
	})
}

// AddItem appends a checklist item to an assignment
// @Summary Add checklist item
// @Tags Checklist
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Assignment ID"
// @Param request body AddItemRequest true "Item"
// @Success 201 {object} models.ChecklistResult
// @Failure 409 {object} ErrorResponse "Review cycle is closed"
// @Router /assignments/{id}/items [post]
func (h *ReviewHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	var req AddItemRequest
	if err := decodeJSON(r, &req, false); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	res, err := h.reviews.AddItem(r.Context(), actor, id, req.Section, req.Title)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, res)
}

// ListItems lists an assignment's checklist
// @Summary List checklist items
// @Tags Checklist
// @Produce json
// @Security BearerAuth
// @Param id path int true "Assignment ID"
// @Success 200 {array} models.ChecklistItem
// @Router /assignments/{id}/items [get]
func (h *ReviewHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	h.withAssignment(w, r, func(actor models.Actor, id uint) (interface{}, error) {
		return h.reviews.ListItems(r.Context(), actor, id)
	})
}

// SetItemStatus completes or reopens a checklist item (reviewer only)
// @Summary Set checklist item status
// @Tags Checklist
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Checklist item ID"
// @Param request body SetItemStatusRequest true "Status"
// @Success 200 {object} models.ChecklistResult
// @Failure 403 {object} ErrorResponse "view-only or no-access"
// @Router /checklist-items/{id} [patch]
func (h *ReviewHandler) SetItemStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	var req SetItemStatusRequest
	if err := decodeJSON(r, &req, false); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	res, err := h.reviews.SetItemStatus(r.Context(), actor, id, models.ItemStatus(req.Status))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, res)
}

// Approve approves an assignment (reviewer only)
// @Summary Approve assignment
// @Description Requires every subtask completed, every gating document approved, a rating 1-5 and a justification.
// @Tags Decisions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Assignment ID"
// @Param request body DecisionRequest true "Verdict"
// @Success 200 {object} models.AssignmentStatus
// @Failure 412 {object} ErrorResponse "Lists the missing preconditions"
// @Router /assignments/{id}/approve [post]
func (h *ReviewHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.withDecision(w, r, h.reviews.Approve)
}

// Reject closes the review cycle as rejected (reviewer only)
// @Summary Reject assignment
// @Tags Decisions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Assignment ID"
// @Param request body DecisionRequest true "Justification"
// @Success 200 {object} models.AssignmentStatus
// @Router /assignments/{id}/reject [post]
func (h *ReviewHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.withDecision(w, r, h.reviews.Reject)
}

// RequestClarification pauses the review until the landowner responds (reviewer only)
// @Summary Request clarification
// @Tags Decisions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Assignment ID"
// @Param request body DecisionRequest true "Justification"
// @Success 200 {object} models.AssignmentStatus
// @Router /assignments/{id}/clarification [post]
func (h *ReviewHandler) RequestClarification(w http.ResponseWriter, r *http.Request) {
	h.withDecision(w, r, h.reviews.RequestClarification)
}

// Resume returns a clarification request to in progress
// @Summary Resume review
// @Tags Decisions
// @Produce json
// @Security BearerAuth
// @Param id path int true "Assignment ID"
// @Success 200 {object} models.AssignmentStatus
// @Router /assignments/{id}/resume [post]
func (h *ReviewHandler) Resume(w http.ResponseWriter, r *http.Request) {
	h.withAssignment(w, r, func(actor models.Actor, id uint) (interface{}, error) {
		return h.reviews.Resume(r.Context(), actor, id)
	})
}

// Publish publishes an approved assignment (admin only)
// @Summary Publish assignment
// @Tags Decisions
// @Produce json
// @Security BearerAuth
// @Param id path int true "Assignment ID"
// @Success 200 {object} models.AssignmentStatus
// @Failure 409 {object} ErrorResponse "Assignment is not approved"
// @Router /assignments/{id}/publish [post]
func (h *ReviewHandler) Publish(w http.ResponseWriter, r *http.Request) {
	h.withAssignment(w, r, func(actor models.Actor, id uint) (interface{}, error) {
		return h.reviews.Publish(r.Context(), actor, id)
	})
}

func (h *ReviewHandler) withAssignment(w http.ResponseWriter, r *http.Request, fn func(actor models.Actor, id uint) (interface{}, error)) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	res, err := fn(actor, id)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, res)
}

type decideFunc func(ctx context.Context, actor models.Actor, id uint, d service.Decision) (*models.AssignmentStatus, error)

func (h *ReviewHandler) withDecision(w http.ResponseWriter, r *http.Request, decide decideFunc) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	var req DecisionRequest
	if err := decodeJSON(r, &req, true); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	status, err := decide(r.Context(), actor, id, req.decision())
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, status)
}
