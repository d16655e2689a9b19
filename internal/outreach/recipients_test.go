package outreach

import (
	"testing"

	"github.com/timberwood/outreach/internal/dataset"
	"github.com/timberwood/outreach/internal/domain"
)

func tableWithEmails(entries map[string]string) *dataset.Table {
	t := &dataset.Table{
		UserColumns:    []string{"business_name", "email"},
		BusinessColumn: "business_name",
	}
	for name, email := range entries {
		t.Rows = append(t.Rows, domain.NewRecord(map[string]string{
			"business_name": name,
			"email":         email,
		}))
	}
	return t
}

func TestBuildRecipientsFiltersInvalid(t *testing.T) {
	tbl := &dataset.Table{
		UserColumns:    []string{"business_name", "email"},
		BusinessColumn: "business_name",
		Rows: []*domain.Record{
			domain.NewRecord(map[string]string{"business_name": "Acme Co", "email": "a@acme.com"}),
			domain.NewRecord(map[string]string{"business_name": "Beta Ltd", "email": ""}),
			domain.NewRecord(map[string]string{"business_name": "Gamma Inc", "email": "Not found"}),
			domain.NewRecord(map[string]string{"business_name": "Delta LLC", "email": "nan"}),
		},
	}

	recs, info := BuildRecipients(tbl, nil, BuildOptions{})
	if len(recs) != 1 || recs[0].BusinessKey != "Acme Co" {
		t.Fatalf("recipients = %+v", recs)
	}
	if info.EmailColumn != "email" || info.ReasonCode != "" {
		t.Errorf("info = %+v", info)
	}
}

func TestBuildRecipientsNoEmailColumn(t *testing.T) {
	tbl := &dataset.Table{
		UserColumns:    []string{"business_name", "city"},
		BusinessColumn: "business_name",
		Rows: []*domain.Record{
			domain.NewRecord(map[string]string{"business_name": "Acme Co", "city": "Portland"}),
		},
	}

	recs, info := BuildRecipients(tbl, nil, BuildOptions{})
	if recs != nil {
		t.Fatalf("recipients = %+v, want none", recs)
	}
	if info.ReasonCode != ReasonNoEmailColumn {
		t.Errorf("reason = %q", info.ReasonCode)
	}
}

func TestBuildRecipientsNoValidEmails(t *testing.T) {
	tbl := tableWithEmails(map[string]string{"Acme Co": "Not found"})

	recs, info := BuildRecipients(tbl, nil, BuildOptions{})
	if len(recs) != 0 || info.ReasonCode != ReasonNoValidEmails {
		t.Errorf("recs = %v, info = %+v", recs, info)
	}
}

func TestBuildRecipientsPlaceholderOverride(t *testing.T) {
	tbl := &dataset.Table{
		UserColumns:    []string{"business_name"},
		BusinessColumn: "business_name",
		Rows: []*domain.Record{
			domain.NewRecord(map[string]string{"business_name": "Acme Co"}),
			domain.NewRecord(map[string]string{"business_name": "Beta Ltd"}),
		},
	}

	recs, info := BuildRecipients(tbl, nil, BuildOptions{AllowPlaceholder: true})
	if len(recs) != 2 || !info.Placeholders {
		t.Fatalf("recs = %d, info = %+v", len(recs), info)
	}
	if recs[0].EmailAddress != "placeholder@example.com" {
		t.Errorf("address = %q", recs[0].EmailAddress)
	}
}

func TestBuildRecipientsSeedsFromMeaningfulState(t *testing.T) {
	tbl := tableWithEmails(map[string]string{"Acme Co": "a@acme.com"})
	tbl.Rows[0].EmailSelected = true
	tbl.Rows[0].EmailStatus = domain.EmailSent
	tbl.Rows[0].SentDate = "2024-02-01T10:00:00Z"
	tbl.Rows[0].CampaignName = "spring"

	recs, _ := BuildRecipients(tbl, nil, BuildOptions{})
	if len(recs) != 1 {
		t.Fatalf("recs = %+v", recs)
	}
	r := recs[0]
	if !r.Selected || r.Status != domain.EmailSent || r.SentDate != "2024-02-01T10:00:00Z" || r.CampaignName != "spring" {
		t.Errorf("state not seeded: %+v", r)
	}
}

func TestBuildRecipientsDefaultsWithoutMeaningfulState(t *testing.T) {
	tbl := tableWithEmails(map[string]string{"Acme Co": "a@acme.com"})

	recs, _ := BuildRecipients(tbl, nil, BuildOptions{})
	r := recs[0]
	if r.Selected || r.Status != domain.EmailNotSent || r.SentDate != "" {
		t.Errorf("fresh row should project defaults: %+v", r)
	}
}

// Rebuild-stability: edits survive any number of projection rebuilds.
func TestBuildRecipientsCarryForward(t *testing.T) {
	tbl := tableWithEmails(map[string]string{"Acme Co": "a@acme.com", "Beta Ltd": "b@beta.com"})

	first, _ := BuildRecipients(tbl, nil, BuildOptions{})
	for i := range first {
		if first[i].BusinessKey == "Acme Co" {
			first[i].Selected = true
			first[i].Status = domain.EmailFailed
			first[i].EmailAddress = "edited@acme.com"
		}
	}

	second, info := BuildRecipients(tbl, first, BuildOptions{})
	if info.CarriedOver != 2 {
		t.Errorf("CarriedOver = %d", info.CarriedOver)
	}
	var acme *domain.Recipient
	for i := range second {
		if second[i].BusinessKey == "Acme Co" {
			acme = &second[i]
		}
	}
	if acme == nil {
		t.Fatal("Acme dropped on rebuild")
	}
	if !acme.Selected || acme.Status != domain.EmailFailed {
		t.Errorf("management fields not carried: %+v", acme)
	}
	if acme.EmailAddress != "edited@acme.com" {
		t.Errorf("manual address edit lost: %q", acme.EmailAddress)
	}
}

func TestBuildRecipientsDropsVanishedKeys(t *testing.T) {
	tbl := tableWithEmails(map[string]string{"Acme Co": "a@acme.com"})
	previous := []domain.Recipient{
		{BusinessKey: "Acme Co", EmailAddress: "a@acme.com", Selected: true},
		{BusinessKey: "Gone Inc", EmailAddress: "g@gone.com", Selected: true},
	}

	recs, _ := BuildRecipients(tbl, previous, BuildOptions{})
	if len(recs) != 1 || recs[0].BusinessKey != "Acme Co" {
		t.Errorf("vanished key not dropped: %+v", recs)
	}
}

// Sync round-trip: project, edit, sync, rebuild - the edit sticks.
func TestProjectionSyncRoundTrip(t *testing.T) {
	tbl := tableWithEmails(map[string]string{"Acme Co": "a@acme.com"})

	recs, _ := BuildRecipients(tbl, nil, BuildOptions{})
	recs[0].Selected = true
	SyncToStore(tbl, recs)

	if !tbl.Rows[0].EmailSelected {
		t.Fatal("sync did not reach the table")
	}

	rebuilt, _ := BuildRecipients(tbl, nil, BuildOptions{})
	if !rebuilt[0].Selected {
		t.Error("selection lost after sync and rebuild")
	}
}
