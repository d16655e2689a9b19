package dataset

import (
	"bytes"
	"strings"
	"testing"

	"github.com/timberwood/outreach/internal/domain"
)

func TestReadCSVBasic(t *testing.T) {
	input := "business_name,city,email\nAcme Co,Portland,a@acme.com\nBeta Ltd,Salem,\n"

	tbl, stats, err := ReadCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if stats.RowsKept != 2 || stats.Duplicates != 0 {
		t.Errorf("stats = %+v", stats)
	}
	if tbl.BusinessColumn != "business_name" {
		t.Errorf("BusinessColumn = %q", tbl.BusinessColumn)
	}
	if tbl.Rows[0].Fields["email"] != "a@acme.com" {
		t.Errorf("email = %q", tbl.Rows[0].Fields["email"])
	}
	if tbl.Rows[0].ResearchStatus != domain.ResearchPending {
		t.Errorf("ResearchStatus = %q, want pending", tbl.Rows[0].ResearchStatus)
	}
}

func TestReadCSVDedupKeepsFirst(t *testing.T) {
	input := "business_name,city\nAcme Co,Portland\nAcme Co,Salem\nBeta Ltd,Eugene\n"

	tbl, stats, err := ReadCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if stats.Duplicates != 1 || stats.RowsKept != 2 {
		t.Errorf("stats = %+v", stats)
	}
	if tbl.Rows[0].Fields["city"] != "Portland" {
		t.Errorf("first occurrence should win, got city=%q", tbl.Rows[0].Fields["city"])
	}
}

func TestReadCSVStripsBOM(t *testing.T) {
	input := "\xEF\xBB\xBFbusiness_name,city\nAcme Co,Portland\n"

	tbl, _, err := ReadCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if tbl.UserColumns[0] != "business_name" {
		t.Errorf("BOM not stripped: first column %q", tbl.UserColumns[0])
	}
}

func TestReadCSVEmptyFile(t *testing.T) {
	if _, _, err := ReadCSV(strings.NewReader("")); err != ErrEmptyFile {
		t.Errorf("empty input: err = %v, want ErrEmptyFile", err)
	}
	if _, _, err := ReadCSV(strings.NewReader("business_name,city\n")); err != ErrEmptyFile {
		t.Errorf("header only: err = %v, want ErrEmptyFile", err)
	}
}

func TestReadCSVLiftsManagementColumns(t *testing.T) {
	input := "business_name,email_status,sent_date,Research_Status,Primary_Email\n" +
		"Acme Co,Sent,2024-02-01T10:00:00Z,found,a@acme.com\n"

	tbl, _, err := ReadCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if len(tbl.UserColumns) != 1 || tbl.UserColumns[0] != "business_name" {
		t.Fatalf("management columns leaked into user columns: %v", tbl.UserColumns)
	}
	r := tbl.Rows[0]
	if r.EmailStatus != domain.EmailSent {
		t.Errorf("EmailStatus = %q", r.EmailStatus)
	}
	if r.SentDate != "2024-02-01T10:00:00Z" {
		t.Errorf("SentDate = %q", r.SentDate)
	}
	if r.ResearchStatus != domain.ResearchFound || r.PrimaryEmail != "a@acme.com" {
		t.Errorf("research fields not lifted: %+v", r)
	}
}

func TestCSVRoundTrip(t *testing.T) {
	input := "business_name,city\nAcme Co,Portland\n"
	tbl, _, err := ReadCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	tbl.Rows[0].ResearchStatus = domain.ResearchFound
	tbl.Rows[0].PrimaryEmail = "a@acme.com"
	tbl.Rows[0].ResearchConfidence = 0.9
	tbl.Rows[0].EmailSelected = true
	tbl.Rows[0].EmailStatus = domain.EmailSent
	tbl.Rows[0].SentDate = "2024-02-01T10:00:00Z"
	tbl.Rows[0].CampaignName = "spring"

	var buf bytes.Buffer
	if err := tbl.WriteCSV(&buf); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}

	back, _, err := ReadCSV(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("re-read: %v", err)
	}
	if len(back.Rows) != 1 {
		t.Fatalf("rows = %d", len(back.Rows))
	}
	if !back.Rows[0].Equal(tbl.Rows[0]) {
		t.Errorf("round trip changed record:\n got %+v\nwant %+v", back.Rows[0], tbl.Rows[0])
	}
	if back.UserColumns[0] != "business_name" || back.UserColumns[1] != "city" {
		t.Errorf("user columns = %v", back.UserColumns)
	}
}

func TestWriteCSVColumnOrder(t *testing.T) {
	tbl := makeTable([]string{"zeta", "alpha"},
		map[string]string{"zeta": "1", "alpha": "2"},
	)
	var buf bytes.Buffer
	if err := tbl.WriteCSV(&buf); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	header := strings.Split(strings.SplitN(buf.String(), "\n", 2)[0], ",")
	if header[0] != "zeta" || header[1] != "alpha" {
		t.Errorf("user column order not preserved: %v", header[:2])
	}
	if header[2] != "Research_Status" {
		t.Errorf("management columns must follow user columns, got %q", header[2])
	}
	last := header[len(header)-1]
	if last != "campaign_name" {
		t.Errorf("last column = %q, want campaign_name", last)
	}
}
