package handlers

import (
	"net/http"
	"strconv"

	"github.com/kozaktomas/fieldreport/internal/constants"
	"github.com/kozaktomas/fieldreport/internal/database"
)

// StatsHandler serves the report counters and the activity feed.
type StatsHandler struct {
	store database.Store
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(store database.Store) *StatsHandler {
	return &StatsHandler{store: store}
}

// StatsResponse represents the dashboard statistics.
type StatsResponse struct {
	Metrics    *database.Metrics   `json:"metrics"`
	DraftCount int                 `json:"draftCount"`
	Activities []database.Activity `json:"activities"`
}

// Get returns counters, the number of drafts and the newest activity.
// The limit query parameter bounds the activity list.
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	limit := constants.DefaultActivityLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	ctx := r.Context()
	metrics, err := h.store.GetMetrics(ctx)
	if err != nil {
		respondFailure(w, "get metrics", err)
		return
	}
	drafts, err := h.store.ListDrafts(ctx)
	if err != nil {
		respondFailure(w, "list drafts", err)
		return
	}
	activities, err := h.store.ListActivities(ctx, limit)
	if err != nil {
		respondFailure(w, "list activities", err)
		return
	}
	if activities == nil {
		activities = []database.Activity{}
	}

	respondJSON(w, http.StatusOK, StatsResponse{
		Metrics:    metrics,
		DraftCount: len(drafts),
		Activities: activities,
	})
}
