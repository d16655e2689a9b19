package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// Campaigns summarizes the most recently active campaigns from the
// send-history archive.
func (h *Handlers) Campaigns(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		respondError(w, http.StatusConflict, "send-history archive not configured")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	summaries, err := h.history.RecentCampaigns(r.Context(), limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "loading campaigns: "+err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"campaigns": summaries,
	})
}

// CampaignSendHistory lists every archived attempt for one campaign,
// newest first.
func (h *Handlers) CampaignSendHistory(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		respondError(w, http.StatusConflict, "send-history archive not configured")
		return
	}
	name := chi.URLParam(r, "name")
	if name == "" {
		respondError(w, http.StatusBadRequest, "campaign name is required")
		return
	}
	records, err := h.history.CampaignHistory(r.Context(), name)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "loading campaign history: "+err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"campaign": name,
		"attempts": records,
	})
}
