// Package session persists the working state of one operator session
// (table, recipients, research results) as a JSON snapshot in Redis.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/timberwood/outreach/internal/config"
	"github.com/timberwood/outreach/internal/dataset"
	"github.com/timberwood/outreach/internal/domain"
	"github.com/timberwood/outreach/internal/pkg/logger"
)

// ErrNotFound is returned when no snapshot exists for a session ID.
var ErrNotFound = errors.New("session not found")

const (
	keyPrefix      = "outreach:session:"
	lastSessionKey = keyPrefix + "last"
)

// Snapshot is everything a session needs to resume after a restart.
type Snapshot struct {
	Table      *dataset.Table                   `json:"table"`
	Recipients []domain.Recipient               `json:"recipients,omitempty"`
	Results    map[string]domain.ResearchResult `json:"results,omitempty"`
	Filters    map[string]dataset.FilterSpec    `json:"filters,omitempty"`
	SavedAt    time.Time                        `json:"saved_at"`
}

// Store saves and restores session snapshots with a sliding TTL.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStore creates a session store over Redis.
func NewStore(redisCfg config.RedisConfig, sessionCfg config.SessionConfig) *Store {
	client := redis.NewClient(&redis.Options{
		Addr:     redisCfg.Addr,
		Password: redisCfg.Password,
		DB:       redisCfg.DB,
	})
	return &Store{client: client, ttl: sessionCfg.TTL()}
}

// NewStoreWithClient wires an existing client. Used by tests.
func NewStoreWithClient(client *redis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

// Ping verifies the Redis connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

func sessionKey(id string) string {
	return keyPrefix + id
}

// Save writes the snapshot, resets the TTL, and marks the session as the
// most recent one so a restart can find it without knowing the id.
func (s *Store) Save(ctx context.Context, id string, snap *Snapshot) error {
	snap.SavedAt = time.Now().UTC()
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	if err := s.client.Set(ctx, sessionKey(id), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("saving session %s: %w", id, err)
	}
	if err := s.client.Set(ctx, lastSessionKey, id, s.ttl).Err(); err != nil {
		return fmt.Errorf("recording last session: %w", err)
	}
	return nil
}

// Last returns the id of the most recently saved session.
func (s *Store) Last(ctx context.Context) (string, error) {
	id, err := s.client.Get(ctx, lastSessionKey).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("loading last session id: %w", err)
	}
	return id, nil
}

// Load restores a snapshot. Any record left in the transient sending
// state is swept to failed: a send that was in flight when the previous
// process died never reported an outcome, and failed is retryable.
func (s *Store) Load(ctx context.Context, id string) (*Snapshot, error) {
	data, err := s.client.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading session %s: %w", id, err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decoding session %s: %w", id, err)
	}
	swept := sweepSending(&snap)
	if swept > 0 {
		logger.Warn("reconciled in-flight sends to failed", "session", id, "count", swept)
	}
	return &snap, nil
}

// Touch extends the TTL without rewriting the snapshot.
func (s *Store) Touch(ctx context.Context, id string) error {
	ok, err := s.client.Expire(ctx, sessionKey(id), s.ttl).Result()
	if err != nil {
		return fmt.Errorf("touching session %s: %w", id, err)
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

// Delete removes a session snapshot.
func (s *Store) Delete(ctx context.Context, id string) error {
	return s.client.Del(ctx, sessionKey(id)).Err()
}

func sweepSending(snap *Snapshot) int {
	swept := 0
	if snap.Table != nil {
		for _, r := range snap.Table.Rows {
			if r.EmailStatus == domain.EmailSending {
				r.EmailStatus = domain.EmailFailed
				swept++
			}
		}
	}
	for i := range snap.Recipients {
		if snap.Recipients[i].Status == domain.EmailSending {
			snap.Recipients[i].Status = domain.EmailFailed
			swept++
		}
	}
	return swept
}
