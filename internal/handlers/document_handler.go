package handlers

import (
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"land-review/internal/apperr"
	"land-review/internal/blob"
	"land-review/internal/models"
	"land-review/internal/service"
	"land-review/pkg/validator"
)

// DocumentHandler serves document uploads and document review
type DocumentHandler struct {
	reviews   *service.ReviewService
	blobs     blob.Store
	maxUpload int64
}

// NewDocumentHandler creates a new document handler. blobs may be nil, in
// which case only uploads referencing an existing storage_ref are accepted.
func NewDocumentHandler(reviews *service.ReviewService, blobs blob.Store, maxUpload int64) *DocumentHandler {
	return &DocumentHandler{reviews: reviews, blobs: blobs, maxUpload: maxUpload}
}

// UploadDocumentRequest registers a payload already held by the storage service
type UploadDocumentRequest struct {
	DocumentType    string `json:"document_type" validate:"required,slug"`
	Slot            string `json:"slot" validate:"omitempty,slug,max=64"`
	StorageRef      string `json:"storage_ref" validate:"notblank,max=2048"`
	FileName        string `json:"file_name" validate:"max=255"`
	ChecklistItemID *uint  `json:"checklist_item_id"`
}

// DocumentDecisionRequest carries an optional approval note or a rejection reason
type DocumentDecisionRequest struct {
	Note   string `json:"note" validate:"max=10000"`
	Reason string `json:"reason" validate:"max=10000"`
}

// UploadDocument records a new document version
// @Summary Upload document
// @Description Accepts JSON with an existing storage_ref, or multipart/form-data with a "file" part stored in blob storage.
// @Tags Documents
// @Accept json,mpfd
// @Produce json
// @Security BearerAuth
// @Param projectID path string true "Project ID"
// @Param request body UploadDocumentRequest false "Document metadata"
// @Success 201 {object} models.DocumentResult
// @Failure 400 {object} ErrorResponse
// @Router /projects/{projectID}/documents [post]
func (h *DocumentHandler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	var in service.Upload
	var err error
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		in, err = h.storeMultipart(w, r)
	} else {
		var req UploadDocumentRequest
		err = decodeJSON(r, &req, false)
		in = service.Upload{
			DocumentType:    req.DocumentType,
			Slot:            req.Slot,
			StorageRef:      req.StorageRef,
			FileName:        req.FileName,
			ChecklistItemID: req.ChecklistItemID,
		}
	}
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	in.ProjectID = r.PathValue("projectID")

	res, err := h.reviews.UploadDocument(r.Context(), actor, in)
	if err != nil {
		if in.StorageRef != "" && mediaType == "multipart/form-data" {
			slog.Warn("Stored payload not registered", "storage_ref", in.StorageRef, "error", err)
		}
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, res)
}

// storeMultipart streams the "file" part to blob storage and returns the upload metadata
func (h *DocumentHandler) storeMultipart(w http.ResponseWriter, r *http.Request) (service.Upload, error) {
	if h.blobs == nil {
		return service.Upload{}, apperr.InvalidInput("file uploads are not enabled; send a storage_ref instead")
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return service.Upload{}, apperr.InvalidInput("file exceeds %d bytes", h.maxUpload)
		}
		return service.Upload{}, apperr.InvalidInput("%s: %v", ErrMsgInvalidRequestBody, err)
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			slog.Warn("Failed to remove multipart temp files", "error", err)
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		return service.Upload{}, apperr.InvalidInput("missing file part")
	}
	defer file.Close()

	documentType := strings.TrimSpace(r.FormValue("document_type"))
	slot := strings.TrimSpace(r.FormValue("slot"))
	if !validator.IsSlug(documentType) {
		return service.Upload{}, apperr.InvalidInput("invalid document_type %q", documentType)
	}
	if err := h.reviews.CheckDocumentType(documentType); err != nil {
		return service.Upload{}, err
	}
	if slot != "" && !validator.IsSlug(slot) {
		return service.Upload{}, apperr.InvalidInput("invalid slot %q", slot)
	}
	itemID, err := optionalUint(r.FormValue("checklist_item_id"))
	if err != nil {
		return service.Upload{}, apperr.InvalidInput("invalid checklist_item_id")
	}

	fileName := validator.SanitizeString(filepath.Base(header.Filename))
	ref, err := h.blobs.Put(r.Context(), r.PathValue("projectID"), fileName, file, header.Size, header.Header.Get("Content-Type"))
	if err != nil {
		return service.Upload{}, err
	}

	return service.Upload{
		DocumentType:    documentType,
		Slot:            slot,
		StorageRef:      ref,
		FileName:        fileName,
		ChecklistItemID: itemID,
	}, nil
}

// MarkUnderReview takes the slot's single under-review position
// @Summary Mark document under review
// @Tags Documents
// @Produce json
// @Security BearerAuth
// @Param id path int true "Document ID"
// @Success 200 {object} models.DocumentResult
// @Failure 409 {object} ErrorResponse "Document already decided"
// @Router /documents/{id}/review [post]
func (h *DocumentHandler) MarkUnderReview(w http.ResponseWriter, r *http.Request) {
	h.withDocument(w, r, func(actor models.Actor, id uint) (*models.DocumentResult, error) {
		return h.reviews.MarkUnderReview(r.Context(), actor, id)
	})
}

// ReleaseFromReview gives up the under-review position
// @Summary Release document from review
// @Tags Documents
// @Produce json
// @Security BearerAuth
// @Param id path int true "Document ID"
// @Success 200 {object} models.DocumentResult
// @Router /documents/{id}/review [delete]
func (h *DocumentHandler) ReleaseFromReview(w http.ResponseWriter, r *http.Request) {
	h.withDocument(w, r, func(actor models.Actor, id uint) (*models.DocumentResult, error) {
		return h.reviews.ReleaseFromReview(r.Context(), actor, id)
	})
}

// ApproveDocument approves a document version
// @Summary Approve document
// @Tags Documents
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Document ID"
// @Param request body DocumentDecisionRequest false "Optional note"
// @Success 200 {object} models.DocumentResult
// @Router /documents/{id}/approve [post]
func (h *DocumentHandler) ApproveDocument(w http.ResponseWriter, r *http.Request) {
	h.withDocumentDecision(w, r, func(actor models.Actor, id uint, req DocumentDecisionRequest) (*models.DocumentResult, error) {
		return h.reviews.ApproveDocument(r.Context(), actor, id, req.Note)
	})
}

// RejectDocument rejects a document version with a reason
// @Summary Reject document
// @Tags Documents
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Document ID"
// @Param request body DocumentDecisionRequest true "Reason"
// @Success 200 {object} models.DocumentResult
// @Router /documents/{id}/reject [post]
func (h *DocumentHandler) RejectDocument(w http.ResponseWriter, r *http.Request) {
	h.withDocumentDecision(w, r, func(actor models.Actor, id uint, req DocumentDecisionRequest) (*models.DocumentResult, error) {
		return h.reviews.RejectDocument(r.Context(), actor, id, req.Reason)
	})
}

// SlotStatusSummary aggregates every slot of a document type
// @Summary Slot status summary
// @Tags Documents
// @Produce json
// @Security BearerAuth
// @Param projectID path string true "Project ID"
// @Param documentType path string true "Document type"
// @Success 200 {array} models.SlotSummary
// @Router /projects/{projectID}/documents/{documentType}/slots [get]
func (h *DocumentHandler) SlotStatusSummary(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	summary, err := h.reviews.SlotStatusSummary(r.Context(), actor, r.PathValue("projectID"), r.PathValue("documentType"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, summary)
}

func (h *DocumentHandler) withDocument(w http.ResponseWriter, r *http.Request, fn func(actor models.Actor, id uint) (*models.DocumentResult, error)) {
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

func (h *DocumentHandler) withDocumentDecision(w http.ResponseWriter, r *http.Request, fn func(actor models.Actor, id uint, req DocumentDecisionRequest) (*models.DocumentResult, error)) {
	h.withDocument(w, r, func(actor models.Actor, id uint) (*models.DocumentResult, error) {
		var req DocumentDecisionRequest
		if err := decodeJSON(r, &req, true); err != nil {
			return nil, err
		}
		return fn(actor, id, req)
	})
}
