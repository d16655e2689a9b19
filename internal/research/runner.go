package research

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/timberwood/outreach/internal/dataset"
	"github.com/timberwood/outreach/internal/domain"
	"github.com/timberwood/outreach/internal/pkg/logger"
)

// Progress is a point-in-time snapshot of a running batch for the
// status endpoint.
type Progress struct {
	Running   bool   `json:"running"`
	Total     int    `json:"total"`
	Completed int    `json:"completed"`
	Found     int    `json:"found"`
	NotFound  int    `json:"not_found"`
	Errors    int    `json:"errors"`
	Current   string `json:"current,omitempty"`
}

// BatchStats summarizes a finished (or stopped) batch run.
type BatchStats struct {
	Processed int  `json:"processed"`
	Found     int  `json:"found"`
	NotFound  int  `json:"not_found"`
	Errors    int  `json:"errors"`
	Stopped   bool `json:"stopped"`
}

// PersistFunc saves the table after each processed key so a stopped or
// crashed batch leaves every completed key durable.
type PersistFunc func(*dataset.Table) error

// BatchRunner processes a key list strictly sequentially: one research
// call, one single-key merge, one persist, repeat. The table is mutated
// without a lock, which is safe only because nothing else touches it
// while a batch runs.
type BatchRunner struct {
	researcher Researcher
	delay      time.Duration

	stop     atomic.Bool
	mu       sync.Mutex
	progress Progress
}

// NewBatchRunner creates a runner with the given inter-item delay.
func NewBatchRunner(r Researcher, delay time.Duration) *BatchRunner {
	return &BatchRunner{researcher: r, delay: delay}
}

// Stop requests that no further items start. The in-flight research
// call runs to completion and its result is still merged and persisted.
func (b *BatchRunner) Stop() {
	b.stop.Store(true)
}

// Progress returns a snapshot of the current batch state.
func (b *BatchRunner) Progress() Progress {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.progress
}

// Run researches each key in order, merging every outcome into the
// table immediately. A failed lookup records an error-status result for
// that key only; the batch continues. Returns once every key is
// processed or a stop request takes effect.
func (b *BatchRunner) Run(ctx context.Context, t *dataset.Table, keys []string, persist PersistFunc) BatchStats {
	b.stop.Store(false)
	b.setProgress(Progress{Running: true, Total: len(keys)})
	defer b.finish()

	city := cityColumn(t)
	var stats BatchStats
	for i, key := range keys {
		if b.stop.Load() || ctx.Err() != nil {
			stats.Stopped = true
			logger.Info("research batch stopped", "processed", stats.Processed, "remaining", len(keys)-i)
			break
		}
		b.updateCurrent(key)

		res, err := b.researcher.Research(ctx, key, b.expectedCity(t, key, city))
		if err != nil {
			logger.Warn("research failed", "company", key, "error", err.Error())
			res = domain.FallbackResult(key, err.Error())
		}

		Merge(t, map[string]domain.ResearchResult{key: res})
		if persist != nil {
			if perr := persist(t); perr != nil {
				logger.Error("persisting after research", "company", key, "error", perr.Error())
			}
		}

		stats.Processed++
		switch res.Status {
		case domain.ResearchFound:
			stats.Found++
		case domain.ResearchError:
			stats.Errors++
		default:
			stats.NotFound++
		}
		b.recordOutcome(res.Status)

		if b.delay > 0 && i < len(keys)-1 {
			time.Sleep(b.delay)
		}
	}
	return stats
}

// cityColumn finds a user column that carries location hints, if any.
func cityColumn(t *dataset.Table) string {
	for _, c := range t.UserColumns {
		if strings.Contains(strings.ToLower(c), "city") {
			return c
		}
	}
	return ""
}

func (b *BatchRunner) expectedCity(t *dataset.Table, key, cityCol string) string {
	if cityCol == "" {
		return ""
	}
	if r := t.Find(key); r != nil {
		return strings.TrimSpace(r.Fields[cityCol])
	}
	return ""
}

func (b *BatchRunner) setProgress(p Progress) {
	b.mu.Lock()
	b.progress = p
	b.mu.Unlock()
}

func (b *BatchRunner) updateCurrent(key string) {
	b.mu.Lock()
	b.progress.Current = key
	b.mu.Unlock()
}

func (b *BatchRunner) recordOutcome(status domain.ResearchStatus) {
	b.mu.Lock()
	b.progress.Completed++
	switch status {
	case domain.ResearchFound:
		b.progress.Found++
	case domain.ResearchError:
		b.progress.Errors++
	default:
		b.progress.NotFound++
	}
	b.mu.Unlock()
}

func (b *BatchRunner) finish() {
	b.mu.Lock()
	b.progress.Running = false
	b.progress.Current = ""
	b.mu.Unlock()
}
