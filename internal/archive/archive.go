// Package archive keeps an append-only Postgres history of every send
// attempt. The in-memory table remains the source of truth; the archive
// exists so campaign history survives session expiry.
package archive

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/timberwood/outreach/internal/config"
)

// SendRecord is one archived send attempt.
type SendRecord struct {
	ID           uuid.UUID `json:"id"`
	CampaignName string    `json:"campaign_name"`
	BusinessKey  string    `json:"business_key"`
	Email        string    `json:"email"`
	Status       string    `json:"status"`
	Message      string    `json:"message,omitempty"`
	SentAt       time.Time `json:"sent_at"`
}

// CampaignSummary aggregates one campaign's archived attempts.
type CampaignSummary struct {
	CampaignName string    `json:"campaign_name"`
	Attempts     int       `json:"attempts"`
	Sent         int       `json:"sent"`
	Failed       int       `json:"failed"`
	FirstSend    time.Time `json:"first_send"`
	LastSend     time.Time `json:"last_send"`
}

// Store provides database operations for the send-history archive.
type Store struct {
	db *sql.DB
}

// NewStore opens a Postgres connection from config.
func NewStore(cfg config.DatabaseConfig) (*Store, error) {
	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return &Store{db: db}, nil
}

// NewStoreWithDB wires an existing handle. Used by tests.
func NewStoreWithDB(db *sql.DB) *Store {
	return &Store{db: db}
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate creates the archive schema if missing.
func (s *Store) Migrate(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS send_history (
			id UUID PRIMARY KEY,
			campaign_name TEXT NOT NULL,
			business_key TEXT NOT NULL,
			email TEXT NOT NULL,
			status TEXT NOT NULL,
			message TEXT NOT NULL DEFAULT '',
			sent_at TIMESTAMPTZ NOT NULL
		)
	`
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("creating send_history: %w", err)
	}
	return nil
}

// RecordSend appends one attempt to the archive.
func (s *Store) RecordSend(ctx context.Context, rec *SendRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.SentAt.IsZero() {
		rec.SentAt = time.Now().UTC()
	}

	query := `
		INSERT INTO send_history (id, campaign_name, business_key, email, status, message, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.db.ExecContext(ctx, query,
		rec.ID, rec.CampaignName, rec.BusinessKey, rec.Email, rec.Status, rec.Message, rec.SentAt)
	if err != nil {
		return fmt.Errorf("insert send record: %w", err)
	}
	return nil
}

// CampaignHistory returns every archived attempt for one campaign,
// newest first.
func (s *Store) CampaignHistory(ctx context.Context, campaignName string) ([]SendRecord, error) {
	query := `
		SELECT id, campaign_name, business_key, email, status, message, sent_at
		FROM send_history
		WHERE campaign_name = $1
		ORDER BY sent_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, campaignName)
	if err != nil {
		return nil, fmt.Errorf("query campaign history: %w", err)
	}
	defer rows.Close()

	var out []SendRecord
	for rows.Next() {
		var r SendRecord
		if err := rows.Scan(&r.ID, &r.CampaignName, &r.BusinessKey, &r.Email, &r.Status, &r.Message, &r.SentAt); err != nil {
			return nil, fmt.Errorf("scan send record: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// RecentCampaigns summarizes the most recently active campaigns.
func (s *Store) RecentCampaigns(ctx context.Context, limit int) ([]CampaignSummary, error) {
	if limit <= 0 {
		limit = 10
	}
	query := `
		SELECT campaign_name,
		       COUNT(*) AS attempts,
		       COUNT(*) FILTER (WHERE status = 'Sent') AS sent,
		       COUNT(*) FILTER (WHERE status = 'Failed') AS failed,
		       MIN(sent_at) AS first_send,
		       MAX(sent_at) AS last_send
		FROM send_history
		GROUP BY campaign_name
		ORDER BY MAX(sent_at) DESC
		LIMIT $1
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent campaigns: %w", err)
	}
	defer rows.Close()

	var out []CampaignSummary
	for rows.Next() {
		var c CampaignSummary
		if err := rows.Scan(&c.CampaignName, &c.Attempts, &c.Sent, &c.Failed, &c.FirstSend, &c.LastSend); err != nil {
			return nil, fmt.Errorf("scan campaign summary: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
