// Package api exposes the outreach workflow over HTTP: upload,
// filters, research, recipients, campaign, export.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/google/uuid"

	"github.com/timberwood/outreach/internal/archive"
	"github.com/timberwood/outreach/internal/config"
	"github.com/timberwood/outreach/internal/dataset"
	"github.com/timberwood/outreach/internal/domain"
	"github.com/timberwood/outreach/internal/mailer"
	"github.com/timberwood/outreach/internal/outreach"
	"github.com/timberwood/outreach/internal/pkg/logger"
	"github.com/timberwood/outreach/internal/research"
	"github.com/timberwood/outreach/internal/session"
	"github.com/timberwood/outreach/internal/storage"
)

// Handlers holds the single operator session and its collaborators.
// The mutex serializes every reconciliation operation; batch runners
// own the table exclusively while running (guarded by the busy flag),
// which preserves the lock-free sequential model inside the loops.
type Handlers struct {
	cfg        *config.Config
	templates  *mailer.TemplateService
	sender     mailer.Sender
	researcher research.Researcher
	sessions   *session.Store // nil when Redis is not configured
	exporter   storage.Exporter
	history    *archive.Store // nil when the archive is not configured
	onOutcome  func(outreach.SendOutcome)

	mu         sync.Mutex
	sessionID  string
	table      *dataset.Table
	recipients []domain.Recipient
	filters    map[string]dataset.FilterSpec
	busy       string // "", "research", "campaign"

	researchRunner *research.BatchRunner
	campaignRunner *outreach.CampaignRunner
}

// NewHandlers wires the handler set. sessions, history, and onOutcome
// may be nil.
func NewHandlers(cfg *config.Config, sender mailer.Sender, researcher research.Researcher, sessions *session.Store, exporter storage.Exporter, history *archive.Store, onOutcome func(outreach.SendOutcome)) *Handlers {
	templates := mailer.NewTemplateService()
	runner := outreach.NewCampaignRunner(sender, templates)
	runner.OnOutcome = onOutcome

	return &Handlers{
		cfg:            cfg,
		templates:      templates,
		sender:         sender,
		researcher:     researcher,
		sessions:       sessions,
		exporter:       exporter,
		history:        history,
		onOutcome:      onOutcome,
		filters:        make(map[string]dataset.FilterSpec),
		researchRunner: research.NewBatchRunner(researcher, cfg.Research.Delay()),
		campaignRunner: runner,
	}
}

var errBusy = errors.New("operation in progress")

// RestoreSession loads a saved snapshot so a restart resumes where the
// operator left off. Interrupted sends come back swept to Failed by the
// session store. The snapshot's TTL slides on restore.
func (h *Handlers) RestoreSession(ctx context.Context, id string) error {
	if h.sessions == nil {
		return nil
	}
	snap, err := h.sessions.Load(ctx, id)
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.busy != "" {
		return errBusy
	}
	h.sessionID = id
	h.table = snap.Table
	h.recipients = snap.Recipients
	if snap.Filters != nil {
		h.filters = snap.Filters
	}
	if err := h.sessions.Touch(ctx, id); err != nil {
		logger.Warn("touching restored session", "session", id, "error", err.Error())
	}
	return nil
}

// Restore loads a saved session snapshot over HTTP.
func (h *Handlers) Restore(w http.ResponseWriter, r *http.Request) {
	if h.sessions == nil {
		respondError(w, http.StatusConflict, "session persistence not configured")
		return
	}
	var req struct {
		SessionID string `json:"session_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "decoding request: "+err.Error())
		return
	}
	if req.SessionID == "" {
		respondError(w, http.StatusBadRequest, "session_id is required")
		return
	}

	switch err := h.RestoreSession(r.Context(), req.SessionID); {
	case errors.Is(err, session.ErrNotFound):
		respondError(w, http.StatusNotFound, "session not found")
		return
	case errors.Is(err, errBusy):
		respondError(w, http.StatusConflict, "operation in progress")
		return
	case err != nil:
		respondError(w, http.StatusInternalServerError, "restoring session: "+err.Error())
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"session_id": h.sessionID,
		"rows":       len(h.table.Rows),
		"recipients": len(h.recipients),
	})
}

// persist snapshots the current state. Persistence failures are logged,
// never surfaced: the in-memory table stays authoritative.
func (h *Handlers) persist(ctx context.Context) {
	if h.sessions == nil || h.sessionID == "" || h.table == nil {
		return
	}
	snap := &session.Snapshot{
		Table:      h.table,
		Recipients: h.recipients,
		Filters:    h.filters,
	}
	if err := h.sessions.Save(ctx, h.sessionID, snap); err != nil {
		logger.Error("saving session", "session", h.sessionID, "error", err.Error())
	}
}

// persistFunc returns the per-item persistence callback handed to batch
// runners. It snapshots without taking the handler lock; the runner
// owns the table while busy.
func (h *Handlers) persistFunc() func(*dataset.Table) error {
	if h.sessions == nil || h.sessionID == "" {
		return nil
	}
	id := h.sessionID
	recipients := h.recipients
	filters := h.filters
	return func(t *dataset.Table) error {
		return h.sessions.Save(context.Background(), id, &session.Snapshot{
			Table:      t,
			Recipients: recipients,
			Filters:    filters,
		})
	}
}

func (h *Handlers) newSession() {
	h.sessionID = uuid.New().String()
}

// HealthCheck reports liveness.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("encoding response", "error", err.Error())
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}
