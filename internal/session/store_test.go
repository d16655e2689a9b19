package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/timberwood/outreach/internal/dataset"
	"github.com/timberwood/outreach/internal/domain"
)

func setupTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewStoreWithClient(client, time.Hour)
	t.Cleanup(func() { store.Close() })
	return store, mr
}

func sampleSnapshot() *Snapshot {
	tbl := &dataset.Table{
		UserColumns:    []string{"business_name", "email"},
		BusinessColumn: "business_name",
		Rows: []*domain.Record{
			domain.NewRecord(map[string]string{"business_name": "Acme Co", "email": "a@acme.com"}),
		},
	}
	return &Snapshot{
		Table: tbl,
		Recipients: []domain.Recipient{
			{BusinessKey: "Acme Co", EmailAddress: "a@acme.com", Selected: true, Status: domain.EmailNotSent},
		},
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, "sess-1", sampleSnapshot()); err != nil {
		t.Fatalf("Save: %v", err)
	}

	snap, err := store.Load(ctx, "sess-1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(snap.Table.Rows) != 1 || snap.Table.Key(snap.Table.Rows[0]) != "Acme Co" {
		t.Errorf("table did not round-trip: %+v", snap.Table)
	}
	if len(snap.Recipients) != 1 || !snap.Recipients[0].Selected {
		t.Errorf("recipients did not round-trip: %+v", snap.Recipients)
	}
	if snap.SavedAt.IsZero() {
		t.Error("SavedAt not stamped")
	}
}

func TestLoadMissingSession(t *testing.T) {
	store, _ := setupTestStore(t)
	if _, err := store.Load(context.Background(), "nope"); err != ErrNotFound {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestLoadSweepsSendingToFailed(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	snap := sampleSnapshot()
	snap.Table.Rows[0].EmailStatus = domain.EmailSending
	snap.Recipients[0].Status = domain.EmailSending
	if err := store.Save(ctx, "sess-1", snap); err != nil {
		t.Fatalf("Save: %v", err)
	}

	restored, err := store.Load(ctx, "sess-1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if restored.Table.Rows[0].EmailStatus != domain.EmailFailed {
		t.Errorf("table status = %q, want Failed", restored.Table.Rows[0].EmailStatus)
	}
	if restored.Recipients[0].Status != domain.EmailFailed {
		t.Errorf("recipient status = %q, want Failed", restored.Recipients[0].Status)
	}
}

func TestLoadKeepsTerminalStatuses(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	snap := sampleSnapshot()
	snap.Table.Rows[0].EmailStatus = domain.EmailSent
	if err := store.Save(ctx, "sess-1", snap); err != nil {
		t.Fatalf("Save: %v", err)
	}

	restored, _ := store.Load(ctx, "sess-1")
	if restored.Table.Rows[0].EmailStatus != domain.EmailSent {
		t.Errorf("sweep must not touch sent rows: %q", restored.Table.Rows[0].EmailStatus)
	}
}

func TestLastSession(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	if _, err := store.Last(ctx); err != ErrNotFound {
		t.Errorf("err = %v, want ErrNotFound before any save", err)
	}

	store.Save(ctx, "sess-1", sampleSnapshot())
	store.Save(ctx, "sess-2", sampleSnapshot())

	id, err := store.Last(ctx)
	if err != nil {
		t.Fatalf("Last: %v", err)
	}
	if id != "sess-2" {
		t.Errorf("Last = %q, want the most recent save", id)
	}
}

func TestTouchExtendsTTL(t *testing.T) {
	store, mr := setupTestStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, "sess-1", sampleSnapshot()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	mr.FastForward(30 * time.Minute)

	if err := store.Touch(ctx, "sess-1"); err != nil {
		t.Fatalf("Touch: %v", err)
	}
	mr.FastForward(45 * time.Minute)

	if _, err := store.Load(ctx, "sess-1"); err != nil {
		t.Errorf("session expired despite touch: %v", err)
	}
}

func TestTouchMissingSession(t *testing.T) {
	store, _ := setupTestStore(t)
	if err := store.Touch(context.Background(), "nope"); err != ErrNotFound {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestDelete(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	store.Save(ctx, "sess-1", sampleSnapshot())
	if err := store.Delete(ctx, "sess-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Load(ctx, "sess-1"); err != ErrNotFound {
		t.Errorf("session still present after delete")
	}
}
