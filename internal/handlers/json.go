package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/goccy/go-json"
	"gorm.io/gorm"

	applog "foodgram/internal/log"
)

const maxRequestBody = 10 << 20

type errorResponse struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		applog.Error(context.Background(), "failed to encode json response", "error", err)
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Detail: message})
}

func writeNotFound(w http.ResponseWriter) {
	writeJSONError(w, http.StatusNotFound, "Not found.")
}

// writeStoreError maps database failures onto responses: missing rows are
// 404, a missing connection is 503 and anything else is logged as a 500.
func writeStoreError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		writeNotFound(w)
	case errors.Is(err, gorm.ErrInvalidDB):
		writeJSONError(w, http.StatusServiceUnavailable, "The service is unavailable because no database connection is configured.")
	default:
		applog.Error(r.Context(), msg, "error", err)
		writeJSONError(w, http.StatusInternalServerError, "An unexpected error occurred.")
	}
}

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody))
	if err := decoder.Decode(dst); err != nil {
		return err
	}
	return nil
}

// decodeAndValidate writes a 400 and returns false when the body is not
// valid JSON or fails validation.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := decodeJSON(r, dst); err != nil {
		applog.Debug(r.Context(), "malformed json payload", "error", err, "path", r.URL.Path)
		writeJSONError(w, http.StatusBadRequest, "Malformed JSON payload.")
		return false
	}
	if errs := validatePayload(dst); len(errs) > 0 {
		applog.Debug(r.Context(), "payload failed validation", "fields", len(errs), "path", r.URL.Path)
		writeValidationErrors(w, errs)
		return false
	}
	return true
}

func pathID(r *http.Request) (uint, bool) {
	value, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil || value == 0 {
		return 0, false
	}
	return uint(value), true
}
