package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/media-coordinator/internal/command"
	"github.com/nerrad567/media-coordinator/internal/dispatch"
	"github.com/nerrad567/media-coordinator/internal/session"
)

// Error is the body of every error response.
type Error struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}

// Error codes.
const (
	ErrCodeBadRequest      = "bad_request"
	ErrCodeValidation      = "validation_error"
	ErrCodeUnknownTarget   = "unknown_target"
	ErrCodeNotFound        = "not_found"
	ErrCodeConflict        = "conflict"
	ErrCodeTooLarge        = "payload_too_large"
	ErrCodeDownstream      = "downstream_error"
	ErrCodeInternal        = "internal_error"
	ErrCodeMethodNotAllow  = "method_not_allowed"
	ErrCodeUnsupportedType = "unsupported_media_type"
)

// writeJSON writes v as JSON with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{Error: message, Code: code})
}

// writeErrorDetails writes a structured error response with details.
func writeErrorDetails(w http.ResponseWriter, status int, code, message string, details any) {
	writeJSON(w, status, Error{Error: message, Code: code, Details: details})
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// writeNotFound writes a 404 error response.
func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// writeCommandError maps a dispatch error to its HTTP response.
// res is whatever the dispatcher returned next to err; a downstream failure
// after a committed session carries that session in details.
func writeCommandError(w http.ResponseWriter, err error, res dispatch.Result) {
	var verr *command.ValidationError
	switch {
	case errors.As(err, &verr):
		writeErrorDetails(w, http.StatusBadRequest, ErrCodeValidation, "Invalid command", verr.Violations)
	case errors.Is(err, command.ErrMalformed):
		writeErrorDetails(w, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON body", err.Error())
	case errors.Is(err, dispatch.ErrUnknownTarget):
		writeError(w, http.StatusBadRequest, ErrCodeUnknownTarget, dispatch.Message(err))
	case errors.Is(err, dispatch.ErrMissingField),
		errors.Is(err, dispatch.ErrNotPaired),
		errors.Is(err, dispatch.ErrUnsupportedAction):
		writeBadRequest(w, dispatch.Message(err))
	case errors.Is(err, session.ErrSessionNotFound):
		writeNotFound(w, dispatch.Message(err))
	case errors.Is(err, dispatch.ErrSessionBusy):
		writeError(w, http.StatusConflict, ErrCodeConflict, dispatch.Message(err))
	case errors.Is(err, dispatch.ErrDownstream):
		if res.Session != nil {
			writeErrorDetails(w, http.StatusBadGateway, ErrCodeDownstream, dispatch.Message(err),
				map[string]any{"session": res.Session})
			return
		}
		writeError(w, http.StatusBadGateway, ErrCodeDownstream, dispatch.Message(err))
	default:
		writeInternalError(w, "internal server error")
	}
}
