package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/fieldreport/internal/database"
	"github.com/kozaktomas/fieldreport/internal/draft"
	"github.com/kozaktomas/fieldreport/internal/report"
	"github.com/kozaktomas/fieldreport/internal/slots"
)

// DraftsHandler handles stored drafts and saving/loading the session.
type DraftsHandler struct {
	store draft.Store
}

// NewDraftsHandler creates a new drafts handler.
func NewDraftsHandler(store draft.Store) *DraftsHandler {
	return &DraftsHandler{store: store}
}

// DraftImageView describes a stored image without its bytes.
type DraftImageView struct {
	ID       string     `json:"id"`
	Role     slots.Role `json:"type"`
	Caption  string     `json:"text,omitempty"`
	Position int        `json:"position"`
	Size     int        `json:"size"`
}

// DraftSummary is a stored draft as listed to clients.
type DraftSummary struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Record    report.Record    `json:"formData"`
	Counts    slots.Counts     `json:"counts"`
	PairCount int              `json:"pairCount"`
	Images    []DraftImageView `json:"images,omitempty"`
	CreatedAt time.Time        `json:"createdAt"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

func summarize(d *database.Draft, withImages bool) DraftSummary {
	sum := DraftSummary{
		ID:        d.ID,
		Name:      report.Name(d.Record, d.UpdatedAt),
		Record:    d.Record,
		Counts:    d.Counts(),
		PairCount: d.PairCount,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
	if withImages {
		for _, img := range d.All() {
			sum.Images = append(sum.Images, DraftImageView{
				ID:       img.ID,
				Role:     img.Role,
				Caption:  img.Caption,
				Position: img.Position,
				Size:     len(img.Data),
			})
		}
	}
	return sum
}

// List returns all drafts, most recently updated first.
func (h *DraftsHandler) List(w http.ResponseWriter, r *http.Request) {
	drafts, err := h.store.ListDrafts(r.Context())
	if err != nil {
		respondFailure(w, "list drafts", err)
		return
	}
	result := make([]DraftSummary, len(drafts))
	for i := range drafts {
		result[i] = summarize(&drafts[i], false)
	}
	respondJSON(w, http.StatusOK, result)
}

// Get returns a single draft with its image metadata.
func (h *DraftsHandler) Get(w http.ResponseWriter, r *http.Request) {
	d, err := h.store.GetDraft(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondFailure(w, "get draft", err)
		return
	}
	respondJSON(w, http.StatusOK, summarize(d, true))
}

// Delete removes a stored draft.
func (h *DraftsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := draft.Delete(r.Context(), h.store, chi.URLParam(r, "id")); err != nil {
		respondFailure(w, "delete draft", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Save writes the current session to its draft, creating it on first save.
func (h *DraftsHandler) Save(w http.ResponseWriter, r *http.Request) {
	s := mustGetSession(w, r)
	if s == nil {
		return
	}
	d, err := s.Commit(r.Context())
	if err != nil {
		respondFailure(w, "save draft", err)
		return
	}
	respondJSON(w, http.StatusOK, summarize(d, true))
}

// Load replaces the current session with a stored draft.
func (h *DraftsHandler) Load(w http.ResponseWriter, r *http.Request) {
	s := mustGetSession(w, r)
	if s == nil {
		return
	}
	if err := s.Load(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondFailure(w, "load draft", err)
		return
	}
	respondJSON(w, http.StatusOK, stateOf(s))
}
