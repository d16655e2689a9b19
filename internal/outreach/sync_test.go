package outreach

import (
	"testing"

	"github.com/timberwood/outreach/internal/domain"
)

func TestSyncToStoreWritesFields(t *testing.T) {
	tbl := tableWithEmails(map[string]string{"Acme Co": "a@acme.com"})
	stats := SyncToStore(tbl, []domain.Recipient{{
		BusinessKey:  "Acme Co",
		EmailAddress: "edited@acme.com",
		Selected:     true,
		Status:       domain.EmailSent,
		SentDate:     "2024-02-01T10:00:00Z",
		CampaignName: "spring",
	}})

	if stats.Synced != 1 || stats.Unmatched != 0 {
		t.Fatalf("stats = %+v", stats)
	}
	r := tbl.Rows[0]
	if r.PrimaryEmail != "edited@acme.com" || !r.EmailSelected || r.EmailStatus != domain.EmailSent {
		t.Errorf("fields not written: %+v", r)
	}
	if r.SentDate != "2024-02-01T10:00:00Z" || r.CampaignName != "spring" {
		t.Errorf("dates not written: %+v", r)
	}
}

func TestSyncToStoreUnmatchedCounted(t *testing.T) {
	tbl := tableWithEmails(map[string]string{"Acme Co": "a@acme.com"})
	stats := SyncToStore(tbl, []domain.Recipient{
		{BusinessKey: "Acme Co", EmailAddress: "a@acme.com"},
		{BusinessKey: "Gone Inc", EmailAddress: "g@gone.com"},
	})

	if stats.Synced != 1 || stats.Unmatched != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestSyncToStoreEmptySetIsNoop(t *testing.T) {
	tbl := tableWithEmails(map[string]string{"Acme Co": "a@acme.com"})
	before := tbl.Clone()

	stats := SyncToStore(tbl, nil)
	if stats.Synced != 0 {
		t.Errorf("stats = %+v", stats)
	}
	if !tbl.Rows[0].Equal(before.Rows[0]) {
		t.Error("empty sync modified the table")
	}
}

func TestSyncToStoreUntouchedRowsKeepFields(t *testing.T) {
	tbl := tableWithEmails(map[string]string{"Acme Co": "a@acme.com", "Beta Ltd": "b@beta.com"})
	beta := tbl.Find("Beta Ltd")
	beta.EmailSelected = true
	beta.EmailStatus = domain.EmailFailed
	before := beta.Clone()

	SyncToStore(tbl, []domain.Recipient{{BusinessKey: "Acme Co", EmailAddress: "a@acme.com", Selected: true}})

	if !tbl.Find("Beta Ltd").Equal(before) {
		t.Error("sync touched a row with no matching recipient")
	}
}

func TestSyncToStoreFirstMatchOnDuplicates(t *testing.T) {
	tbl := tableWithEmails(map[string]string{"Acme Co": "a@acme.com"})
	dup := domain.NewRecord(map[string]string{"business_name": "Acme Co", "email": "dup@acme.com"})
	tbl.Rows = append(tbl.Rows, dup)

	SyncToStore(tbl, []domain.Recipient{{BusinessKey: "Acme Co", EmailAddress: "x@acme.com", Selected: true}})

	if !tbl.Rows[0].EmailSelected {
		t.Error("first matching row not updated")
	}
	if dup.EmailSelected {
		t.Error("duplicate row updated; only the first match should be")
	}
}
