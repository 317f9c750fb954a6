package api

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/media-coordinator/internal/audit"
	"github.com/nerrad567/media-coordinator/internal/command"
	"github.com/nerrad567/media-coordinator/internal/session"
)

// handleHealth reports liveness. It does not check the optional sinks;
// the coordinator runs those checks once at startup.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": s.version,
	})
}

// handleCommand runs one command. The body is passed through untouched so
// the validator sees exactly what the caller sent.
//
// A missing Content-Type is accepted; anything other than application/json
// is 415. Bodies over 1 MB are 413. Every other failure is mapped by
// writeCommandError.
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	if ct := r.Header.Get("Content-Type"); ct != "" {
		if mt, _, err := mime.ParseMediaType(ct); err != nil || mt != "application/json" {
			writeError(w, http.StatusUnsupportedMediaType, ErrCodeUnsupportedType, "Content-Type must be application/json")
			return
		}
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, ErrCodeTooLarge, "request body too large")
			return
		}
		writeBadRequest(w, "failed to read request body")
		return
	}

	res, err := s.commands.Execute(r.Context(), body)
	if err != nil {
		s.logger.Debug("command rejected", "error", err, "request_id", RequestID(r.Context()))
		writeCommandError(w, err, res)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleListSessions returns every session in creation order. Stopped
// sessions are included.
func (s *Server) handleListSessions(w http.ResponseWriter, _ *http.Request) {
	sessions := s.sessions.List()
	if sessions == nil {
		sessions = []session.Session{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"sessions": sessions,
		"count":    len(sessions),
	})
}

// handleGetSession returns one session, or 404 when the id is unknown.
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Get(chi.URLParam(r, "id"))
	if errors.Is(err, session.ErrSessionNotFound) {
		writeNotFound(w, "Session not found")
		return
	}
	if err != nil {
		writeInternalError(w, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// handleCommandSchema serves the JSON Schema of the command envelope.
func (s *Server) handleCommandSchema(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, command.Schema())
}

// handleListCommands pages through the command log, newest first.
//
// Query parameters (all optional):
//   - action, outcome, sessionId: exact-match filters
//   - limit: page size, default 50, capped at 200
//   - offset: entries to skip
//
// Returns 404 when the database sink is disabled and 400 when limit or
// offset is not an integer.
func (s *Server) handleListCommands(w http.ResponseWriter, r *http.Request) {
	if s.auditLog == nil {
		writeNotFound(w, "command log is disabled")
		return
	}

	q := r.URL.Query()
	filter := audit.Filter{
		Action:    q.Get("action"),
		Outcome:   q.Get("outcome"),
		SessionID: q.Get("sessionId"),
	}
	for name, dst := range map[string]*int{"limit": &filter.Limit, "offset": &filter.Offset} {
		if v := q.Get(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				writeBadRequest(w, name+" must be an integer")
				return
			}
			*dst = n
		}
	}

	res, err := s.auditLog.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("listing command log failed", "error", err)
		writeInternalError(w, "failed to list commands")
		return
	}
	writeJSON(w, http.StatusOK, res)
}
