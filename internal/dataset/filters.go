package dataset

import (
	"strconv"
	"strings"

	"github.com/timberwood/outreach/internal/domain"
)

// FilterSpec is one column filter from the operator's filter panel.
type FilterSpec struct {
	Column    string   `json:"column"`
	Operation string   `json:"operation"` // in, not_in, contains, not_contains, range
	Values    []string `json:"values"`
	Enabled   bool     `json:"enabled"`
}

// FilterResult records what a single filter did.
type FilterResult struct {
	Name        string `json:"filter_name"`
	Column      string `json:"column"`
	Operation   string `json:"operation"`
	RowsBefore  int    `json:"rows_before"`
	RowsAfter   int    `json:"rows_after"`
	RowsRemoved int    `json:"rows_removed"`
}

// FilterReport summarizes a full ApplyFilters pass.
type FilterReport struct {
	OriginalRows int            `json:"original_rows"`
	FilteredRows int            `json:"filtered_rows"`
	Applied      []FilterResult `json:"filters_applied"`
	Warnings     []string       `json:"warnings"`
}

// ApplyFilters evaluates the filter set against a copy of the table and
// returns the filtered copy plus a per-filter report. Unknown columns
// produce warnings, never errors; the original table is untouched.
func ApplyFilters(t *Table, filters map[string]FilterSpec) (*Table, FilterReport) {
	report := FilterReport{OriginalRows: len(t.Rows)}
	filtered := t.Clone()

	for name, spec := range filters {
		if !spec.Enabled {
			continue
		}
		if spec.Column == "" || len(spec.Values) == 0 {
			continue
		}
		if !filtered.HasUserColumn(spec.Column) && !IsManagementColumn(spec.Column) {
			report.Warnings = append(report.Warnings,
				"column '"+spec.Column+"' not found for filter '"+name+"'")
			continue
		}

		before := len(filtered.Rows)
		filtered.Rows = filterRows(filtered, spec)
		report.Applied = append(report.Applied, FilterResult{
			Name:        name,
			Column:      spec.Column,
			Operation:   spec.Operation,
			RowsBefore:  before,
			RowsAfter:   len(filtered.Rows),
			RowsRemoved: before - len(filtered.Rows),
		})
	}

	report.FilteredRows = len(filtered.Rows)
	return filtered, report
}

func filterRows(t *Table, spec FilterSpec) []*domain.Record {
	kept := make([]*domain.Record, 0, len(t.Rows))
	for i, r := range t.Rows {
		val := cellValue(t, r, spec.Column)
		if matchFilter(val, spec) {
			kept = append(kept, t.Rows[i])
		}
	}
	return kept
}

func cellValue(t *Table, r *domain.Record, column string) string {
	if t.HasUserColumn(column) {
		return r.Fields[column]
	}
	return managementValue(r, column)
}

func matchFilter(val string, spec FilterSpec) bool {
	switch spec.Operation {
	case "in":
		for _, v := range spec.Values {
			if strings.EqualFold(strings.TrimSpace(val), strings.TrimSpace(v)) {
				return true
			}
		}
		return false
	case "not_in":
		for _, v := range spec.Values {
			if strings.EqualFold(strings.TrimSpace(val), strings.TrimSpace(v)) {
				return false
			}
		}
		return true
	case "contains":
		lower := strings.ToLower(val)
		for _, v := range spec.Values {
			if strings.Contains(lower, strings.ToLower(v)) {
				return true
			}
		}
		return false
	case "not_contains":
		lower := strings.ToLower(val)
		for _, v := range spec.Values {
			if strings.Contains(lower, strings.ToLower(v)) {
				return false
			}
		}
		return true
	case "range":
		if len(spec.Values) != 2 {
			return true
		}
		n, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return false
		}
		min, err1 := strconv.ParseFloat(spec.Values[0], 64)
		max, err2 := strconv.ParseFloat(spec.Values[1], 64)
		if err1 != nil || err2 != nil {
			return true
		}
		return n >= min && n <= max
	}
	// Unknown operations keep the row; filters degrade, never destroy.
	return true
}
