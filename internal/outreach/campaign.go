package outreach

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/timberwood/outreach/internal/dataset"
	"github.com/timberwood/outreach/internal/domain"
	"github.com/timberwood/outreach/internal/mailer"
	"github.com/timberwood/outreach/internal/pkg/logger"
)

// CampaignOptions configures one send run.
type CampaignOptions struct {
	CampaignName  string                 `json:"campaign_name"`
	Template      string                 `json:"template"`
	SenderName    string                 `json:"sender_name"`
	SenderCompany string                 `json:"sender_company"`
	SenderEmail   string                 `json:"sender_email"`
	CustomVars    map[string]interface{} `json:"custom_vars,omitempty"`
	Delay         time.Duration          `json:"-"`
}

// CampaignStats summarizes a finished (or stopped) send run.
type CampaignStats struct {
	Batch   int  `json:"batch"`
	Sent    int  `json:"sent"`
	Failed  int  `json:"failed"`
	Stopped bool `json:"stopped"`
}

// CampaignProgress is a point-in-time snapshot for the status endpoint.
type CampaignProgress struct {
	Running   bool   `json:"running"`
	Total     int    `json:"total"`
	Completed int    `json:"completed"`
	Sent      int    `json:"sent"`
	Failed    int    `json:"failed"`
	Current   string `json:"current,omitempty"`
}

// SendOutcome is reported to the archive after every attempt.
type SendOutcome struct {
	CampaignName string
	BusinessKey  string
	Email        string
	Status       domain.EmailStatus
	Message      string
	SentAt       time.Time
}

// CampaignRunner drives the sequential send loop: render, send, record,
// sync to the table, repeat. Like the research runner it owns the table
// for the duration of the run.
type CampaignRunner struct {
	sender    mailer.Sender
	templates *mailer.TemplateService

	stop     atomic.Bool
	mu       sync.Mutex
	progress CampaignProgress

	// OnOutcome, when set, receives every send attempt. Used to feed
	// the send-history archive.
	OnOutcome func(SendOutcome)
}

// NewCampaignRunner creates a runner over the given transport.
func NewCampaignRunner(sender mailer.Sender, templates *mailer.TemplateService) *CampaignRunner {
	return &CampaignRunner{sender: sender, templates: templates}
}

// Stop requests that no further sends start. The in-flight send runs to
// completion and its outcome is still recorded.
func (c *CampaignRunner) Stop() {
	c.stop.Store(true)
}

// Progress returns a snapshot of the current run state.
func (c *CampaignRunner) Progress() CampaignProgress {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.progress
}

// Run sends to every sendable recipient (selected and not already
// sent), updating the recipient slice and the table after each attempt
// so a stop or crash loses at most the in-flight item's status flip.
func (c *CampaignRunner) Run(ctx context.Context, t *dataset.Table, recipients []domain.Recipient, opts CampaignOptions, persist func(*dataset.Table) error) CampaignStats {
	c.stop.Store(false)

	batch := make([]int, 0, len(recipients))
	for i := range recipients {
		if recipients[i].Sendable() {
			batch = append(batch, i)
		}
	}
	stats := CampaignStats{Batch: len(batch)}
	c.setProgress(CampaignProgress{Running: true, Total: len(batch)})
	defer c.finish()

	for n, i := range batch {
		if c.stop.Load() || ctx.Err() != nil {
			stats.Stopped = true
			logger.Info("campaign stopped", "sent", stats.Sent, "remaining", len(batch)-n)
			break
		}
		rec := &recipients[i]
		c.updateCurrent(rec.BusinessKey)

		rec.Status = domain.EmailSending
		SyncToStore(t, []domain.Recipient{*rec})

		err := c.sendOne(ctx, rec, opts)
		now := time.Now().UTC()
		if err != nil {
			rec.Status = domain.EmailFailed
			stats.Failed++
			logger.Warn("send failed", "recipient", rec.EmailAddress, "error", err.Error())
		} else {
			rec.Status = domain.EmailSent
			rec.SentDate = now.Format(time.RFC3339)
			rec.CampaignName = opts.CampaignName
			stats.Sent++
		}

		SyncToStore(t, []domain.Recipient{*rec})
		if persist != nil {
			if perr := persist(t); perr != nil {
				logger.Error("persisting after send", "recipient", rec.BusinessKey, "error", perr.Error())
			}
		}
		c.reportOutcome(rec, opts, err, now)
		c.recordProgress(err == nil)

		if opts.Delay > 0 && n < len(batch)-1 {
			time.Sleep(opts.Delay)
		}
	}
	return stats
}

func (c *CampaignRunner) sendOne(ctx context.Context, rec *domain.Recipient, opts CampaignOptions) error {
	subject, html, err := c.templates.Render(opts.Template, mailer.RecipientBindings(
		rec.BusinessKey, rec.EmailAddress,
		opts.SenderName, opts.SenderCompany, opts.SenderEmail,
		opts.CustomVars,
	))
	if err != nil {
		return err
	}
	return c.sender.Send(ctx, mailer.Message{
		To:        rec.EmailAddress,
		Subject:   subject,
		HTMLBody:  html,
		FromName:  opts.SenderName,
		FromEmail: opts.SenderEmail,
	})
}

func (c *CampaignRunner) reportOutcome(rec *domain.Recipient, opts CampaignOptions, err error, at time.Time) {
	if c.OnOutcome == nil {
		return
	}
	out := SendOutcome{
		CampaignName: opts.CampaignName,
		BusinessKey:  rec.BusinessKey,
		Email:        rec.EmailAddress,
		Status:       rec.Status,
		SentAt:       at,
	}
	if err != nil {
		out.Message = err.Error()
	}
	c.OnOutcome(out)
}

func (c *CampaignRunner) setProgress(p CampaignProgress) {
	c.mu.Lock()
	c.progress = p
	c.mu.Unlock()
}

func (c *CampaignRunner) updateCurrent(key string) {
	c.mu.Lock()
	c.progress.Current = key
	c.mu.Unlock()
}

func (c *CampaignRunner) recordProgress(sent bool) {
	c.mu.Lock()
	c.progress.Completed++
	if sent {
		c.progress.Sent++
	} else {
		c.progress.Failed++
	}
	c.mu.Unlock()
}

func (c *CampaignRunner) finish() {
	c.mu.Lock()
	c.progress.Running = false
	c.progress.Current = ""
	c.mu.Unlock()
}
