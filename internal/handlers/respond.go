package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"land-review/internal/apperr"
	"land-review/internal/middleware"
	"land-review/internal/models"
	"land-review/pkg/validator"
)

// maxJSONBody limits JSON request bodies
const maxJSONBody = 1 << 20

// Common error message constants shared across handlers
const (
	ErrMsgInvalidRequestBody = "Invalid request body"
	ErrMsgUnauthorized       = "Unauthorized"
	ErrMsgInternal           = "Internal server error"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error   string                `json:"error"`
	Kind    apperr.Kind           `json:"kind"`
	Reason  string                `json:"reason,omitempty"`
	Missing []string              `json:"missing,omitempty"`
	Fields  []validator.FieldError `json:"fields,omitempty"`
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func respondWithError(w http.ResponseWriter, code int, kind apperr.Kind, message string) {
	respondWithJSON(w, code, ErrorResponse{Error: message, Kind: kind})
}

// respondWithAppError maps workflow errors to status codes. Untyped errors
// are logged and hidden from the caller.
func respondWithAppError(w http.ResponseWriter, r *http.Request, err error) {
	var verrs validator.Errors
	if errors.As(err, &verrs) {
		respondWithJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:  verrs.Error(),
			Kind:   apperr.KindInvalidInput,
			Fields: verrs,
		})
		return
	}

	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		slog.Error("Request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.GetRequestID(r),
			"error", err,
		)
		respondWithError(w, http.StatusInternalServerError, apperr.KindInternal, ErrMsgInternal)
		return
	}

	respondWithJSON(w, apperr.HTTPStatus(appErr.Kind), ErrorResponse{
		Error:   appErr.Error(),
		Kind:    appErr.Kind,
		Reason:  appErr.Reason,
		Missing: appErr.Missing,
	})
}

// actorFrom returns the authenticated actor or writes 401
func actorFrom(w http.ResponseWriter, r *http.Request) (models.Actor, bool) {
	actor, ok := middleware.GetActor(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthenticated", ErrMsgUnauthorized)
	}
	return actor, ok
}

// pathID parses a numeric path parameter
func pathID(r *http.Request, name string) (uint, error) {
	id, err := strconv.ParseUint(r.PathValue(name), 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.InvalidInput("invalid %s %q", name, r.PathValue(name))
	}
	return uint(id), nil
}

// decodeJSON decodes and validates a JSON body. An empty body is accepted when
// optional is true.
func decodeJSON(r *http.Request, dst interface{}, optional bool) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) && optional {
			return validator.ValidateStruct(dst)
		}
		return apperr.InvalidInput("%s: %v", ErrMsgInvalidRequestBody, err)
	}
	if dec.More() {
		return apperr.InvalidInput("%s: trailing data", ErrMsgInvalidRequestBody)
	}
	return validator.ValidateStruct(dst)
}

// queryInt reads a non-negative integer query parameter
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, apperr.InvalidInput("invalid %s %q", name, raw)
	}
	return v, nil
}

func optionalUint(raw string) (*uint, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || v == 0 {
		return nil, fmt.Errorf("invalid id %q", raw)
	}
	id := uint(v)
	return &id, nil
}
