package handlers

import (
	"net/http"

	"land-review/internal/service"
)

// AuditHandler handles audit log requests
type AuditHandler struct {
	reviews *service.ReviewService
}

// NewAuditHandler creates a new audit handler
func NewAuditHandler(reviews *service.ReviewService) *AuditHandler {
	return &AuditHandler{reviews: reviews}
}

// ListAudit lists a project's audit trail, newest first (admin only)
// @Summary List audit entries
// @Description Get a paginated list of a project's workflow mutations (admin only)
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param projectID path string true "Project ID"
// @Param limit query int false "Items per page (max 500)" default(100)
// @Param offset query int false "Items to skip" default(0)
// @Success 200 {array} models.AuditEntry
// @Failure 400 {object} ErrorResponse "Invalid parameters"
// @Failure 403 {object} ErrorResponse "Forbidden - admin only"
// @Router /projects/{projectID}/audit [get]
func (h *AuditHandler) ListAudit(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	limit, err := queryInt(r, "limit", 100)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	entries, err := h.reviews.ListAudit(r.Context(), actor, r.PathValue("projectID"), limit, offset)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, entries)
}
