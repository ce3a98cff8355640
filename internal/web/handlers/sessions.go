package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/kozaktomas/fieldreport/internal/constants"
	"github.com/kozaktomas/fieldreport/internal/report"
	"github.com/kozaktomas/fieldreport/internal/session"
	"github.com/kozaktomas/fieldreport/internal/slots"
	"github.com/kozaktomas/fieldreport/internal/web/middleware"
)

// SessionsHandler handles the lifecycle and form state of editing sessions.
type SessionsHandler struct {
	sessionManager *middleware.SessionManager
	now            func() time.Time
}

// NewSessionsHandler creates a new sessions handler.
func NewSessionsHandler(sm *middleware.SessionManager) *SessionsHandler {
	return &SessionsHandler{
		sessionManager: sm,
		now:            time.Now,
	}
}

// SlotView is one position of the slot sequence as shown to clients.
type SlotView struct {
	Position   int        `json:"position"`
	Empty      bool       `json:"empty"`
	ID         string     `json:"id,omitempty"`
	Role       slots.Role `json:"role,omitempty"`
	Caption    string     `json:"caption,omitempty"`
	PreviewURL string     `json:"previewUrl,omitempty"`
}

// StateResponse is the full editing state of a session.
type StateResponse struct {
	Session   middleware.SessionData `json:"session"`
	Record    report.Record          `json:"formData"`
	DraftID   string                 `json:"draftId,omitempty"`
	Slots     []SlotView             `json:"slots"`
	Pairs     []string               `json:"pairs"`
	Counts    slots.Counts           `json:"counts"`
	Rejection string                 `json:"rejection,omitempty"`
}

// NameResponse is the derived name of the report being edited.
type NameResponse struct {
	Name     string `json:"name"`
	Filename string `json:"filename"`
	Title    string `json:"title"`
}

func previewURL(id string) string {
	return "/api/v1/session/images/" + id
}

func slotViews(seq []*slots.Image) []SlotView {
	views := make([]SlotView, len(seq))
	for i, img := range seq {
		views[i] = SlotView{Position: i, Empty: img == nil}
		if img != nil {
			views[i].ID = img.ID
			views[i].Role = img.Role
			views[i].Caption = img.Caption
			views[i].PreviewURL = previewURL(img.ID)
		}
	}
	return views
}

func stateOf(s *session.Session) StateResponse {
	rec, seq := s.Snapshot()
	states := s.PairStates()
	pairs := make([]string, len(states))
	for i, st := range states {
		pairs[i] = st.String()
	}
	return StateResponse{
		Session:   middleware.NewSessionData(s),
		Record:    rec,
		DraftID:   s.DraftID(),
		Slots:     slotViews(seq),
		Pairs:     pairs,
		Counts:    s.Counts(),
		Rejection: s.LastRejection().Message(),
	}
}

// Create starts a new session and sets its cookie.
func (h *SessionsHandler) Create(w http.ResponseWriter, r *http.Request) {
	s, err := h.sessionManager.CreateSession()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to create session")
		return
	}
	h.sessionManager.SetSessionCookie(w, s)
	respondJSON(w, http.StatusCreated, middleware.NewSessionData(s))
}

// Get returns the editing state of the current session.
func (h *SessionsHandler) Get(w http.ResponseWriter, r *http.Request) {
	s := mustGetSession(w, r)
	if s == nil {
		return
	}
	respondJSON(w, http.StatusOK, stateOf(s))
}

// Delete discards the current session and its unsaved edits.
func (h *SessionsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	s := mustGetSession(w, r)
	if s == nil {
		return
	}
	h.sessionManager.DeleteSession(s.ID)
	h.sessionManager.ClearSessionCookie(w)
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Reset empties the form and the slots, keeping the session.
func (h *SessionsHandler) Reset(w http.ResponseWriter, r *http.Request) {
	s := mustGetSession(w, r)
	if s == nil {
		return
	}
	s.Clear()
	respondJSON(w, http.StatusOK, stateOf(s))
}

// UpdateRecord replaces the form record. Incomplete records are accepted;
// the missing fields are listed in the response.
func (h *SessionsHandler) UpdateRecord(w http.ResponseWriter, r *http.Request) {
	s := mustGetSession(w, r)
	if s == nil {
		return
	}
	var rec report.Record
	if !decodeJSON(w, r, constants.MaxRecordBodySize, &rec) {
		return
	}
	s.SetRecord(rec)

	resp := map[string]any{"formData": rec, "missing": []string{}}
	var verr *report.ValidationError
	if errors.As(rec.Validate(), &verr) {
		resp["missing"] = verr.Fields
	}
	respondJSON(w, http.StatusOK, resp)
}

// Name returns the file name the report would be exported under today.
func (h *SessionsHandler) Name(w http.ResponseWriter, r *http.Request) {
	s := mustGetSession(w, r)
	if s == nil {
		return
	}
	rec := s.Record()
	now := h.now()
	respondJSON(w, http.StatusOK, NameResponse{
		Name:     report.Name(rec, now),
		Filename: report.FileName(rec, now),
		Title:    rec.ShareTitle(),
	})
}
