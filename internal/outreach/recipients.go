// Package outreach derives the editable recipient view from the
// canonical table, writes edits back, and runs the send loop.
package outreach

import (
	"strings"

	"github.com/timberwood/outreach/internal/dataset"
	"github.com/timberwood/outreach/internal/domain"
	"github.com/timberwood/outreach/internal/pkg/logger"
)

// Reason codes for an empty projection.
const (
	ReasonNoEmailColumn = "no_email_column"
	ReasonNoValidEmails = "no_valid_emails"
)

// BuildOptions tunes a projection build.
type BuildOptions struct {
	// AllowPlaceholder projects every row with a placeholder address
	// when no usable email column exists. Debug escape hatch, never a
	// default.
	AllowPlaceholder bool
}

// BuildInfo describes how a projection was built.
type BuildInfo struct {
	EmailColumn  string `json:"email_column"`
	ReasonCode   string `json:"reason_code,omitempty"`
	TotalRows    int    `json:"total_rows"`
	Projected    int    `json:"projected"`
	CarriedOver  int    `json:"carried_over"`
	Placeholders bool   `json:"placeholders,omitempty"`
}

// BuildRecipients produces the campaign view from the table. When
// previous is non-nil this is a rebuild: email-management fields and
// manually edited addresses carry forward by business key, so operator
// work survives any number of rebuilds. Never errors; an impossible
// projection comes back empty with a reason code.
func BuildRecipients(t *dataset.Table, previous []domain.Recipient, opts BuildOptions) ([]domain.Recipient, BuildInfo) {
	info := BuildInfo{TotalRows: len(t.Rows)}

	col, _ := dataset.SelectEmailColumn(t)
	if col == "" {
		if opts.AllowPlaceholder {
			return buildPlaceholders(t, &info)
		}
		info.ReasonCode = ReasonNoEmailColumn
		return nil, info
	}
	info.EmailColumn = col

	prevByKey := indexPrevious(previous)
	colValues := t.ColumnValues(col)
	var out []domain.Recipient
	for i, r := range t.Rows {
		addr := strings.TrimSpace(colValues[i])
		if !dataset.ValidEmailValue(addr) {
			continue
		}
		rec := domain.Recipient{
			BusinessKey:  t.Key(r),
			EmailAddress: addr,
			Status:       domain.EmailNotSent,
			SourceColumn: col,
			SourceRow:    i,
		}
		// A table that already carries workflow state (a re-uploaded
		// export, or a post-sync rebuild) seeds the view from it.
		if r.HasMeaningfulEmailState() {
			rec.Selected = r.EmailSelected
			if r.EmailStatus != "" {
				rec.Status = r.EmailStatus
			}
			rec.SentDate = r.SentDate
			rec.CampaignName = r.CampaignName
		}
		if prev, ok := prevByKey[rec.BusinessKey]; ok {
			rec.Selected = prev.Selected
			rec.Status = prev.Status
			rec.SentDate = prev.SentDate
			rec.CampaignName = prev.CampaignName
			// A previous address differing from the source column is a
			// manual edit and must survive the rebuild.
			if prev.EmailAddress != "" && prev.EmailAddress != addr {
				rec.EmailAddress = prev.EmailAddress
			}
			info.CarriedOver++
		}
		out = append(out, rec)
	}

	info.Projected = len(out)
	if len(out) == 0 {
		info.ReasonCode = ReasonNoValidEmails
		if opts.AllowPlaceholder {
			return buildPlaceholders(t, &info)
		}
	}
	return out, info
}

func indexPrevious(previous []domain.Recipient) map[string]domain.Recipient {
	m := make(map[string]domain.Recipient, len(previous))
	for _, p := range previous {
		if _, exists := m[p.BusinessKey]; !exists {
			m[p.BusinessKey] = p
		}
	}
	return m
}

func buildPlaceholders(t *dataset.Table, info *BuildInfo) ([]domain.Recipient, BuildInfo) {
	logger.Warn("projecting placeholder recipients", "rows", len(t.Rows))
	out := make([]domain.Recipient, 0, len(t.Rows))
	for i, r := range t.Rows {
		out = append(out, domain.Recipient{
			BusinessKey:  t.Key(r),
			EmailAddress: "placeholder@example.com",
			Status:       domain.EmailNotSent,
			SourceRow:    i,
		})
	}
	info.Projected = len(out)
	info.Placeholders = true
	return out, *info
}
