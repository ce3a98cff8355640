package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/kozaktomas/fieldreport/internal/database"
	"github.com/kozaktomas/fieldreport/internal/export"
	"github.com/kozaktomas/fieldreport/internal/imaging"
	"github.com/kozaktomas/fieldreport/internal/report"
	"github.com/kozaktomas/fieldreport/internal/session"
	"github.com/kozaktomas/fieldreport/internal/web/middleware"
)

// errInvalidRequestBody is a shared error message for invalid JSON request bodies.
const errInvalidRequestBody = "invalid request body"

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondFailure maps an error of a session, draft or export operation to
// a status code. Unexpected errors are logged and reported as "failed to <op>".
func respondFailure(w http.ResponseWriter, op string, err error) {
	var validation *report.ValidationError
	var sinkErr *export.SinkError
	var decodeErr *imaging.ImageDecodeError
	switch {
	case errors.As(err, &validation):
		respondJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":  validation.Error(),
			"fields": validation.Fields,
		})
	case errors.Is(err, database.ErrNotFound):
		respondError(w, http.StatusNotFound, "draft not found")
	case errors.Is(err, export.ErrNoDocument):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, session.ErrNoStore):
		respondError(w, http.StatusServiceUnavailable, "draft storage is not available")
	case errors.As(err, &sinkErr):
		log.Printf("WARNING: %s: %v", op, err)
		respondError(w, http.StatusBadGateway, sinkErr.Error())
	case errors.As(err, &decodeErr):
		respondError(w, http.StatusBadRequest, decodeErr.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		respondError(w, http.StatusServiceUnavailable, op+" was cancelled")
	default:
		log.Printf("ERROR: %s: %v", op, err)
		respondError(w, http.StatusInternalServerError, "failed to "+op)
	}
}

// mustGetSession returns the session injected by RequireSession, writing a
// 401 response when there is none.
func mustGetSession(w http.ResponseWriter, r *http.Request) *session.Session {
	s := middleware.GetSessionFromContext(r.Context())
	if s == nil {
		respondError(w, http.StatusUnauthorized, "no active session")
	}
	return s
}

// decodeJSON reads a size-limited JSON body into target.
func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, target any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return false
	}
	return true
}

// HealthCheck handles the health check endpoint.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}
