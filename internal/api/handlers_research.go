package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/timberwood/outreach/internal/pkg/logger"
)

type researchStartRequest struct {
	// Keys limits the batch; empty means every pending row.
	Keys []string `json:"keys,omitempty"`
}

// StartResearch launches a sequential research batch in the background.
// The table belongs to the runner until the batch finishes.
func (h *Handlers) StartResearch(w http.ResponseWriter, r *http.Request) {
	var req researchStartRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "decoding request: "+err.Error())
			return
		}
	}

	h.mu.Lock()
	if h.table == nil {
		h.mu.Unlock()
		respondError(w, http.StatusConflict, "no dataset uploaded")
		return
	}
	if h.busy != "" {
		h.mu.Unlock()
		respondError(w, http.StatusConflict, fmt.Sprintf("%s in progress", h.busy))
		return
	}

	keys := req.Keys
	if len(keys) == 0 {
		keys = h.table.PendingKeys()
	}
	if len(keys) == 0 {
		h.mu.Unlock()
		respondError(w, http.StatusConflict, "no pending rows to research")
		return
	}

	h.busy = "research"
	table := h.table
	persist := h.persistFunc()
	h.mu.Unlock()

	go func() {
		stats := h.researchRunner.Run(context.Background(), table, keys, persist)
		h.mu.Lock()
		h.busy = ""
		h.persist(context.Background())
		h.mu.Unlock()
		logger.Info("research batch finished",
			"processed", stats.Processed,
			"found", stats.Found,
			"errors", stats.Errors,
			"stopped", stats.Stopped)
	}()

	respondJSON(w, http.StatusAccepted, map[string]interface{}{
		"started": true,
		"batch":   len(keys),
	})
}

// StopResearch requests that no further batch items start.
func (h *Handlers) StopResearch(w http.ResponseWriter, r *http.Request) {
	h.researchRunner.Stop()
	respondJSON(w, http.StatusOK, map[string]bool{"stopping": true})
}

// ResearchStatus reports batch progress.
func (h *Handlers) ResearchStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.researchRunner.Progress())
}
