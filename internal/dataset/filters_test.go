package dataset

import "testing"

func filterFixture() *Table {
	return makeTable([]string{"business_name", "state", "weight"},
		map[string]string{"business_name": "Acme Co", "state": "OR", "weight": "10"},
		map[string]string{"business_name": "Beta Ltd", "state": "WA", "weight": "25"},
		map[string]string{"business_name": "Gamma Inc", "state": "or", "weight": "40"},
	)
}

func TestApplyFiltersIn(t *testing.T) {
	tbl := filterFixture()
	out, report := ApplyFilters(tbl, map[string]FilterSpec{
		"state": {Column: "state", Operation: "in", Values: []string{"OR"}, Enabled: true},
	})
	if len(out.Rows) != 2 {
		t.Fatalf("rows = %d, want 2 (case-insensitive match)", len(out.Rows))
	}
	if report.Applied[0].RowsRemoved != 1 {
		t.Errorf("RowsRemoved = %d", report.Applied[0].RowsRemoved)
	}
}

func TestApplyFiltersNotIn(t *testing.T) {
	tbl := filterFixture()
	out, _ := ApplyFilters(tbl, map[string]FilterSpec{
		"state": {Column: "state", Operation: "not_in", Values: []string{"WA"}, Enabled: true},
	})
	if len(out.Rows) != 2 {
		t.Errorf("rows = %d, want 2", len(out.Rows))
	}
}

func TestApplyFiltersContains(t *testing.T) {
	tbl := filterFixture()
	out, _ := ApplyFilters(tbl, map[string]FilterSpec{
		"name": {Column: "business_name", Operation: "contains", Values: []string{"acme"}, Enabled: true},
	})
	if len(out.Rows) != 1 || out.Rows[0].Fields["business_name"] != "Acme Co" {
		t.Errorf("contains filter kept %d rows", len(out.Rows))
	}
}

func TestApplyFiltersRange(t *testing.T) {
	tbl := filterFixture()
	out, _ := ApplyFilters(tbl, map[string]FilterSpec{
		"weight": {Column: "weight", Operation: "range", Values: []string{"20", "50"}, Enabled: true},
	})
	if len(out.Rows) != 2 {
		t.Errorf("range filter kept %d rows, want 2", len(out.Rows))
	}
}

func TestApplyFiltersUnknownColumnWarns(t *testing.T) {
	tbl := filterFixture()
	out, report := ApplyFilters(tbl, map[string]FilterSpec{
		"bogus": {Column: "no_such_col", Operation: "in", Values: []string{"x"}, Enabled: true},
	})
	if len(out.Rows) != 3 {
		t.Errorf("unknown column must not remove rows, got %d", len(out.Rows))
	}
	if len(report.Warnings) != 1 {
		t.Errorf("warnings = %v", report.Warnings)
	}
	if len(report.Applied) != 0 {
		t.Errorf("unknown column should not count as applied")
	}
}

func TestApplyFiltersDisabledSkipped(t *testing.T) {
	tbl := filterFixture()
	out, report := ApplyFilters(tbl, map[string]FilterSpec{
		"state": {Column: "state", Operation: "in", Values: []string{"WA"}, Enabled: false},
	})
	if len(out.Rows) != 3 || len(report.Applied) != 0 {
		t.Errorf("disabled filter ran: rows=%d applied=%d", len(out.Rows), len(report.Applied))
	}
}

func TestApplyFiltersOriginalUntouched(t *testing.T) {
	tbl := filterFixture()
	ApplyFilters(tbl, map[string]FilterSpec{
		"state": {Column: "state", Operation: "in", Values: []string{"WA"}, Enabled: true},
	})
	if len(tbl.Rows) != 3 {
		t.Errorf("original table modified: rows = %d", len(tbl.Rows))
	}
}

func TestApplyFiltersManagementColumn(t *testing.T) {
	tbl := filterFixture()
	tbl.Rows[0].ResearchStatus = "found"
	out, _ := ApplyFilters(tbl, map[string]FilterSpec{
		"status": {Column: "Research_Status", Operation: "in", Values: []string{"found"}, Enabled: true},
	})
	if len(out.Rows) != 1 {
		t.Errorf("management-column filter kept %d rows, want 1", len(out.Rows))
	}
}
