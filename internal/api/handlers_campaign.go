package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/timberwood/outreach/internal/domain"
	"github.com/timberwood/outreach/internal/outreach"
	"github.com/timberwood/outreach/internal/pkg/logger"
)

// Recipients builds (or rebuilds) the campaign view. Prior edits carry
// forward by business key.
func (h *Handlers) Recipients(w http.ResponseWriter, r *http.Request) {
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

	opts := outreach.BuildOptions{
		AllowPlaceholder: r.URL.Query().Get("allow_placeholder") != "",
	}
	recipients, info := outreach.BuildRecipients(h.table, h.recipients, opts)
	h.recipients = recipients
	h.persist(r.Context())

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"recipients": recipients,
		"info":       info,
	})
}

// SyncRecipients writes recipient-view edits back into the table.
func (h *Handlers) SyncRecipients(w http.ResponseWriter, r *http.Request) {
	var recipients []domain.Recipient
	if err := json.NewDecoder(r.Body).Decode(&recipients); err != nil {
		respondError(w, http.StatusBadRequest, "decoding recipients: "+err.Error())
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

	stats := outreach.SyncToStore(h.table, recipients)
	h.recipients = recipients
	h.persist(r.Context())

	respondJSON(w, http.StatusOK, stats)
}

type campaignStartRequest struct {
	CampaignName  string                 `json:"campaign_name"`
	Template      string                 `json:"template"`
	SenderName    string                 `json:"sender_name"`
	SenderCompany string                 `json:"sender_company"`
	SenderEmail   string                 `json:"sender_email"`
	CustomVars    map[string]interface{} `json:"custom_vars,omitempty"`
}

// StartCampaign launches the sequential send loop in the background.
func (h *Handlers) StartCampaign(w http.ResponseWriter, r *http.Request) {
	var req campaignStartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "decoding request: "+err.Error())
		return
	}
	if req.CampaignName == "" {
		respondError(w, http.StatusBadRequest, "campaign_name is required")
		return
	}
	if req.Template == "" {
		req.Template = "business_intro"
	}
	if _, ok := h.templates.Get(req.Template); !ok {
		respondError(w, http.StatusBadRequest, "unknown template "+req.Template)
		return
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

	sendable := 0
	for i := range h.recipients {
		if h.recipients[i].Sendable() {
			sendable++
		}
	}
	if sendable == 0 {
		h.mu.Unlock()
		respondError(w, http.StatusConflict, "no sendable recipients selected")
		return
	}

	h.busy = "campaign"
	table := h.table
	recipients := h.recipients
	persist := h.persistFunc()
	opts := outreach.CampaignOptions{
		CampaignName:  req.CampaignName,
		Template:      req.Template,
		SenderName:    req.SenderName,
		SenderCompany: req.SenderCompany,
		SenderEmail:   req.SenderEmail,
		CustomVars:    req.CustomVars,
		Delay:         h.cfg.Campaign.Delay(),
	}
	h.mu.Unlock()

	go func() {
		stats := h.campaignRunner.Run(context.Background(), table, recipients, opts, persist)
		h.mu.Lock()
		h.busy = ""
		h.persist(context.Background())
		h.mu.Unlock()
		logger.Info("campaign finished",
			"campaign", opts.CampaignName,
			"sent", stats.Sent,
			"failed", stats.Failed,
			"stopped", stats.Stopped)
	}()

	respondJSON(w, http.StatusAccepted, map[string]interface{}{
		"started": true,
		"batch":   sendable,
	})
}

// StopCampaign requests that no further sends start.
func (h *Handlers) StopCampaign(w http.ResponseWriter, r *http.Request) {
	h.campaignRunner.Stop()
	respondJSON(w, http.StatusOK, map[string]bool{"stopping": true})
}

// CampaignStatus reports send-loop progress.
func (h *Handlers) CampaignStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.campaignRunner.Progress())
}

// Templates lists the available campaign templates.
func (h *Handlers) Templates(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"templates": h.templates.Templates(),
	})
}
