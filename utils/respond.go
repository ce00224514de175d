package utils

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"string_server/models"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// WriteJSONResponse writes data as JSON with the given status.
func WriteJSONResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("❌ failed to encode response")
	}
}

// StatusFor maps a business error kind to its HTTP status.
func StatusFor(kind models.ErrorKind) int {
	switch kind {
	case models.KindNotFound:
		return http.StatusNotFound
	case models.KindValidation, models.KindQuotaExceeded, models.KindInsufficientFunds,
		models.KindDuplicate, models.KindArchived, models.KindConflict:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// WriteError writes err as an ErrorResponse. Errors that are not business errors
// are logged and reported with an opaque message.
func WriteError(w http.ResponseWriter, err error) {
	var e *models.Error
	if errors.As(err, &e) {
		status := StatusFor(e.Kind)
		WriteJSONResponse(w, status, ErrorResponse{Error: string(e.Kind), Code: status, Message: e.Message})
		return
	}
	log.Error().Err(err).Msg("❌ internal error")
	WriteInternalError(w)
}

// WriteInternalError writes the opaque 500 body.
func WriteInternalError(w http.ResponseWriter) {
	WriteJSONResponse(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "InternalError",
		Code:    http.StatusInternalServerError,
		Message: "Something went wrong, please try again later",
	})
}

// DecodeJSON strictly decodes a request body into dst. Unknown fields and trailing data are rejected.
func DecodeJSON(r *http.Request, dst interface{}) error {
	if r.Body == nil {
		return models.NewValidationError("request body is required")
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return models.NewValidationError("invalid request body: %s", strings.TrimPrefix(err.Error(), "json: "))
	}
	if dec.More() {
		return models.NewValidationError("invalid request body: unexpected trailing data")
	}
	return nil
}
