package handlers

import (
	"net/http"

	"land-review/internal/middleware"
)

// Handlers groups every HTTP handler of the service
type Handlers struct {
	Review    *ReviewHandler
	Documents *DocumentHandler
	Audit     *AuditHandler
	Health    *HealthHandler
}

// RegisterRoutes mounts the API on mux. Everything except /health requires a token.
func RegisterRoutes(mux *http.ServeMux, h *Handlers, authMw *middleware.AuthMiddleware) {
	mux.HandleFunc("GET /health", h.Health.Health)

	protected := func(pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, authMw.Authenticate(fn))
	}

	// Assignments
	protected("POST /api/v1/projects/{projectID}/assignments", h.Review.CreateAssignment)
	protected("GET /api/v1/projects/{projectID}/assignments", h.Review.ListAssignments)
	protected("GET /api/v1/projects/{projectID}/roles/{role}/reviewers/{reviewerID}/status", h.Review.GetAssignmentStatus)
	protected("GET /api/v1/assignments/{id}", h.Review.GetAssignment)

	// Checklist
	protected("POST /api/v1/assignments/{id}/items", h.Review.AddItem)
	protected("GET /api/v1/assignments/{id}/items", h.Review.ListItems)
	protected("PATCH /api/v1/checklist-items/{id}", h.Review.SetItemStatus)

	// Decisions
	protected("POST /api/v1/assignments/{id}/approve", h.Review.Approve)
	protected("POST /api/v1/assignments/{id}/reject", h.Review.Reject)
	protected("POST /api/v1/assignments/{id}/clarification", h.Review.RequestClarification)
	protected("POST /api/v1/assignments/{id}/resume", h.Review.Resume)
	protected("POST /api/v1/assignments/{id}/publish", h.Review.Publish)

	// Documents
	protected("POST /api/v1/projects/{projectID}/documents", h.Documents.UploadDocument)
	protected("POST /api/v1/documents/{id}/review", h.Documents.MarkUnderReview)
	protected("DELETE /api/v1/documents/{id}/review", h.Documents.ReleaseFromReview)
	protected("POST /api/v1/documents/{id}/approve", h.Documents.ApproveDocument)
	protected("POST /api/v1/documents/{id}/reject", h.Documents.RejectDocument)
	protected("GET /api/v1/projects/{projectID}/documents/{documentType}/slots", h.Documents.SlotStatusSummary)

	// Admin
	protected("GET /api/v1/projects/{projectID}/audit", h.Audit.ListAudit)
}
