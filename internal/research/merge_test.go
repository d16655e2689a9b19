package research

import (
	"testing"

	"github.com/timberwood/outreach/internal/dataset"
	"github.com/timberwood/outreach/internal/domain"
)

func uploadTable(names ...string) *dataset.Table {
	t := &dataset.Table{
		UserColumns:    []string{"business_name", "email"},
		BusinessColumn: "business_name",
	}
	for _, n := range names {
		t.Rows = append(t.Rows, domain.NewRecord(map[string]string{
			"business_name": n,
			"email":         "",
		}))
	}
	return t
}

func foundResult(company, email string, confidence float64) domain.ResearchResult {
	return domain.ResearchResult{
		CompanyName: company,
		Status:      domain.ResearchFound,
		Confidence:  confidence,
		Contacts:    []domain.Contact{{Email: email, Phone: "555-0100"}},
		Website:     "https://example.com",
		Timestamp:   "2024-02-01T10:00:00Z",
	}
}

func TestMergeUpdatesMatchedRows(t *testing.T) {
	tbl := uploadTable("Acme Co", "Beta Ltd")
	stats := Merge(tbl, map[string]domain.ResearchResult{
		"Acme Co": foundResult("Acme Co", "a@acme.com", 0.9),
	})

	if stats.Updated != 1 || stats.Preserved != 1 {
		t.Fatalf("stats = %+v", stats)
	}
	acme := tbl.Find("Acme Co")
	if acme.ResearchStatus != domain.ResearchFound {
		t.Errorf("status = %q", acme.ResearchStatus)
	}
	if acme.PrimaryEmail != "a@acme.com" || acme.PhoneNumber != "555-0100" {
		t.Errorf("contacts not copied: %+v", acme)
	}
	if acme.ResearchConfidence != 0.9 {
		t.Errorf("confidence = %v", acme.ResearchConfidence)
	}
}

func TestMergeNonInterference(t *testing.T) {
	tbl := uploadTable("Acme Co", "Beta Ltd", "Gamma Inc")
	tbl.Rows[1].PrimaryEmail = "kept@beta.com"
	tbl.Rows[1].ResearchStatus = domain.ResearchFound
	before := tbl.Clone()

	Merge(tbl, map[string]domain.ResearchResult{
		"Acme Co": foundResult("Acme Co", "a@acme.com", 0.9),
	})

	// Every row outside the batch must be byte-for-byte unchanged.
	for i, r := range tbl.Rows {
		if tbl.Key(r) == "Acme Co" {
			continue
		}
		if !r.Equal(before.Rows[i]) {
			t.Errorf("row %q modified by unrelated merge", tbl.Key(r))
		}
	}
}

func TestMergeNotFoundPreservesContacts(t *testing.T) {
	tbl := uploadTable("Acme Co")
	tbl.Rows[0].PrimaryEmail = "earlier@acme.com"
	tbl.Rows[0].PhoneNumber = "555-0199"
	tbl.Rows[0].Website = "https://acme.com"

	Merge(tbl, map[string]domain.ResearchResult{
		"Acme Co": {
			CompanyName: "Acme Co",
			Status:      domain.ResearchNotFound,
			Confidence:  0.2,
			Timestamp:   "2024-02-01T10:00:00Z",
		},
	})

	r := tbl.Rows[0]
	if r.ResearchStatus != domain.ResearchNotFound {
		t.Errorf("status = %q", r.ResearchStatus)
	}
	if r.PrimaryEmail != "earlier@acme.com" || r.PhoneNumber != "555-0199" || r.Website != "https://acme.com" {
		t.Errorf("not_found cleared contact fields: %+v", r)
	}
}

func TestMergeErrorResultRetainsMessage(t *testing.T) {
	tbl := uploadTable("Acme Co")
	Merge(tbl, map[string]domain.ResearchResult{
		"Acme Co": domain.FallbackResult("Acme Co", "timeout contacting search API"),
	})

	r := tbl.Rows[0]
	if r.ResearchStatus != domain.ResearchError {
		t.Errorf("status = %q", r.ResearchStatus)
	}
	if r.ResearchErr != "timeout contacting search API" {
		t.Errorf("error message not retained: %q", r.ResearchErr)
	}
}

func TestMergeIgnoresUnknownKeys(t *testing.T) {
	tbl := uploadTable("Acme Co")
	stats := Merge(tbl, map[string]domain.ResearchResult{
		"Acme Co":     foundResult("Acme Co", "a@acme.com", 0.9),
		"Missing Inc": foundResult("Missing Inc", "m@missing.com", 0.5),
	})

	if stats.Ignored != 1 {
		t.Errorf("Ignored = %d, want 1", stats.Ignored)
	}
	if len(tbl.Rows) != 1 {
		t.Errorf("merge created a row: %d rows", len(tbl.Rows))
	}
}

func TestMergePreservesKeyUniqueness(t *testing.T) {
	tbl := uploadTable("Acme Co", "Beta Ltd")
	Merge(tbl, map[string]domain.ResearchResult{
		"Acme Co": foundResult("Acme Co", "a@acme.com", 0.9),
		"Beta Ltd": {
			CompanyName: "Beta Ltd",
			Status:      domain.ResearchNotFound,
			Timestamp:   "2024-02-01T10:00:00Z",
		},
	})

	seen := make(map[string]bool)
	for _, k := range tbl.Keys() {
		if seen[k] {
			t.Fatalf("duplicate key %q after merge", k)
		}
		seen[k] = true
	}
}

func TestMergeConcreteScenario(t *testing.T) {
	tbl := uploadTable("Acme Co", "Beta Ltd")
	Merge(tbl, map[string]domain.ResearchResult{
		"Acme Co": {
			CompanyName: "Acme Co",
			Status:      domain.ResearchFound,
			Confidence:  0.9,
			Contacts:    []domain.Contact{{Email: "a@acme.com"}},
			Timestamp:   "2024-02-01T10:00:00Z",
		},
	})

	acme := tbl.Find("Acme Co")
	if acme.ResearchStatus != domain.ResearchFound || acme.PrimaryEmail != "a@acme.com" || acme.ResearchConfidence != 0.9 {
		t.Errorf("Acme row: %+v", acme)
	}
	beta := tbl.Find("Beta Ltd")
	if beta.ResearchStatus != domain.ResearchPending || beta.PrimaryEmail != "" {
		t.Errorf("Beta row changed: %+v", beta)
	}
}
