package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/timberwood/outreach/internal/dataset"
	"github.com/timberwood/outreach/internal/pkg/logger"
)

const maxUploadBytes = 32 << 20

// Upload ingests a CSV of business records and replaces the session
// table. Structural errors abort with no partial state.
func (h *Handlers) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		respondError(w, http.StatusBadRequest, "parsing upload: "+err.Error())
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	table, stats, err := dataset.ReadCSV(file)
	if err != nil {
		respondError(w, http.StatusBadRequest, "reading CSV: "+err.Error())
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.busy != "" {
		respondError(w, http.StatusConflict, fmt.Sprintf("%s in progress", h.busy))
		return
	}
	if h.sessions != nil && h.sessionID != "" {
		if derr := h.sessions.Delete(r.Context(), h.sessionID); derr != nil {
			logger.Warn("deleting replaced session", "session", h.sessionID, "error", derr.Error())
		}
	}
	h.table = table
	h.recipients = nil
	h.filters = make(map[string]dataset.FilterSpec)
	h.newSession()
	h.persist(r.Context())

	logger.Info("uploaded dataset",
		"file", header.Filename,
		"rows", stats.RowsKept,
		"duplicates", stats.Duplicates,
		"business_column", stats.BusinessColumn)

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"session_id": h.sessionID,
		"stats":      stats,
		"columns":    table.Columns(),
	})
}

// ApplyFilters evaluates a filter set against the table and commits the
// filtered copy as the working table.
func (h *Handlers) ApplyFilters(w http.ResponseWriter, r *http.Request) {
	var filters map[string]dataset.FilterSpec
	if err := json.NewDecoder(r.Body).Decode(&filters); err != nil {
		respondError(w, http.StatusBadRequest, "decoding filters: "+err.Error())
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.table == nil {
		respondError(w, http.StatusConflict, "no dataset uploaded")
		return
	}
	if h.busy != "" {
		respondError(w, http.StatusConflict, fmt.Sprintf("%s in progress", h.busy))
		return
	}

	filtered, report := dataset.ApplyFilters(h.table, filters)
	h.table = filtered
	h.filters = filters
	h.persist(r.Context())

	respondJSON(w, http.StatusOK, report)
}

// Export streams the canonical CSV. With ?store=1 it writes through the
// configured exporter instead and returns the destination.
func (h *Handlers) Export(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.table == nil {
		respondError(w, http.StatusConflict, "no dataset uploaded")
		return
	}
	if h.busy != "" {
		respondError(w, http.StatusConflict, fmt.Sprintf("%s in progress", h.busy))
		return
	}

	if r.URL.Query().Get("store") != "" {
		if h.exporter == nil {
			respondError(w, http.StatusConflict, "no export storage configured")
			return
		}
		dest, err := h.exporter.Export(r.Context(), h.table, h.sessionID)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "exporting: "+err.Error())
			return
		}
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"destination": dest,
			"rows":        len(h.table.Rows),
		})
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="outreach.csv"`)
	if err := h.table.WriteCSV(w); err != nil {
		logger.Error("streaming export", "error", err.Error())
	}
}
