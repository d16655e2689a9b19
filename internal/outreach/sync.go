package outreach

import (
	"github.com/timberwood/outreach/internal/dataset"
	"github.com/timberwood/outreach/internal/domain"
	"github.com/timberwood/outreach/internal/pkg/logger"
)

// SyncStats reports a writeback pass: "synced N of M".
type SyncStats struct {
	Synced    int `json:"synced"`
	Unmatched int `json:"unmatched"`
}

// SyncToStore writes recipient-view edits back into the table. Each
// recipient updates the first row whose business key matches; rows with
// no matching recipient keep every field. Unmatched recipients are
// counted and logged, never an error, so a partial or stale view can
// always be saved.
func SyncToStore(t *dataset.Table, recipients []domain.Recipient) SyncStats {
	t.EnsureManagementColumns()

	var stats SyncStats
	for _, rec := range recipients {
		row := t.Find(rec.BusinessKey)
		if row == nil {
			stats.Unmatched++
			logger.Warn("recipient has no matching row", "key", rec.BusinessKey)
			continue
		}
		row.PrimaryEmail = rec.EmailAddress
		row.EmailSelected = rec.Selected
		row.EmailStatus = rec.Status
		row.SentDate = rec.SentDate
		row.CampaignName = rec.CampaignName
		stats.Synced++
	}

	if stats.Unmatched > 0 {
		logger.Info("recipient sync partial", "synced", stats.Synced, "unmatched", stats.Unmatched)
	}
	return stats
}
