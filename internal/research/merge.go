// Package research folds contact-research results into the canonical
// table and hosts the Tavily/Groq research pipeline that produces them.
package research

import (
	"github.com/timberwood/outreach/internal/dataset"
	"github.com/timberwood/outreach/internal/domain"
	"github.com/timberwood/outreach/internal/pkg/logger"
)

// MergeStats reports what a merge pass touched so callers can surface
// "updated X, preserved Y" to the operator.
type MergeStats struct {
	Updated   int `json:"updated"`
	Preserved int `json:"preserved"`
	Ignored   int `json:"ignored"`
}

// Merge folds a keyed batch of research results into the table in place.
// Rows whose key is absent from the batch are not touched in any way.
// Keys in the batch with no matching row are ignored; research never
// creates rows. Contact fields are only written for found results, so a
// not_found or error pass never clears a previously discovered email.
func Merge(t *dataset.Table, results map[string]domain.ResearchResult) MergeStats {
	var stats MergeStats
	seen := make(map[string]bool, len(results))

	for _, r := range t.Rows {
		key := t.Key(r)
		res, ok := results[key]
		if !ok {
			stats.Preserved++
			continue
		}
		seen[key] = true
		applyResult(r, res)
		stats.Updated++
	}

	for key := range results {
		if !seen[key] {
			stats.Ignored++
			logger.Warn("research result has no matching row", "key", key)
		}
	}
	return stats
}

func applyResult(r *domain.Record, res domain.ResearchResult) {
	r.ResearchStatus = res.Status
	r.ResearchTimestamp = res.Timestamp
	r.ResearchConfidence = res.Confidence
	r.BusinessDescription = res.Description
	r.ResearchErr = res.ErrorMsg

	if res.Status != domain.ResearchFound {
		return
	}
	if len(res.Contacts) > 0 {
		first := res.Contacts[0]
		r.PrimaryEmail = first.Email
		if first.Phone != "" {
			r.PhoneNumber = first.Phone
		}
	}
	if res.Website != "" {
		r.Website = res.Website
	}
}
