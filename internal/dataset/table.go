// Package dataset implements the canonical in-memory table of business
// records: the management-column schema, business/email column detection,
// row filters, and CSV import/export.
package dataset

import (
	"strconv"
	"strings"

	"github.com/timberwood/outreach/internal/domain"
)

// Management column names in their fixed export order. They are always
// appended after the user-supplied columns so a raw export reads
// naturally: original data first, workflow state last.
var (
	ResearchColumns = []string{
		"Research_Status",
		"Primary_Email",
		"Phone_Number",
		"Website",
		"Business_Description",
		"Research_Confidence",
		"Research_Timestamp",
		"Research_Error",
	}
	EmailColumns = []string{
		"email_selected",
		"email_status",
		"sent_date",
		"campaign_name",
	}
)

// ManagementColumns returns the full trailing column set in export order.
func ManagementColumns() []string {
	out := make([]string, 0, len(ResearchColumns)+len(EmailColumns))
	out = append(out, ResearchColumns...)
	out = append(out, EmailColumns...)
	return out
}

var managementSet = func() map[string]bool {
	m := make(map[string]bool)
	for _, c := range ManagementColumns() {
		m[strings.ToLower(c)] = true
	}
	return m
}()

// IsManagementColumn reports whether a header name (case-insensitive)
// belongs to the management schema.
func IsManagementColumn(name string) bool {
	return managementSet[strings.ToLower(strings.TrimSpace(name))]
}

// Table is the canonical record store for one session: an ordered set of
// user columns plus typed management fields on every row. It is owned by
// the active session and mutated only from the single request loop; no
// lock is needed by construction.
type Table struct {
	UserColumns []string         `json:"user_columns"`
	Rows        []*domain.Record `json:"rows"`

	// BusinessColumn is the detected key column. Set at import; callers
	// may override it when detection guessed wrong.
	BusinessColumn string `json:"business_column"`
}

// EnsureManagementColumns guarantees every row carries the management
// schema with documented defaults. Existing non-default values are left
// untouched, so the operation is idempotent.
func (t *Table) EnsureManagementColumns() {
	for _, r := range t.Rows {
		if r.Fields == nil {
			r.Fields = make(map[string]string)
		}
		if r.ResearchStatus == "" {
			r.ResearchStatus = domain.ResearchPending
		}
		if r.EmailStatus == "" {
			r.EmailStatus = domain.EmailNotSent
		}
	}
}

// Columns returns the full export column order: user columns first, then
// the management columns.
func (t *Table) Columns() []string {
	out := make([]string, 0, len(t.UserColumns)+len(ResearchColumns)+len(EmailColumns))
	out = append(out, t.UserColumns...)
	out = append(out, ManagementColumns()...)
	return out
}

// Key returns the business key of a row: the trimmed value of the
// detected business column.
func (t *Table) Key(r *domain.Record) string {
	return strings.TrimSpace(r.Fields[t.BusinessColumn])
}

// Find returns the first row whose business key equals key, or nil.
// Duplicates should not exist after upload dedup, but first-match keeps
// the lookup well defined if they do.
func (t *Table) Find(key string) *domain.Record {
	for _, r := range t.Rows {
		if t.Key(r) == key {
			return r
		}
	}
	return nil
}

// Keys returns every row's business key in row order.
func (t *Table) Keys() []string {
	out := make([]string, 0, len(t.Rows))
	for _, r := range t.Rows {
		out = append(out, t.Key(r))
	}
	return out
}

// PendingKeys returns the keys of rows that have not been researched yet.
// The research UI only submits these, which keeps merge batches disjoint.
func (t *Table) PendingKeys() []string {
	var out []string
	for _, r := range t.Rows {
		if r.ResearchStatus == domain.ResearchPending || r.ResearchStatus == "" {
			out = append(out, t.Key(r))
		}
	}
	return out
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	c := &Table{
		UserColumns:    append([]string(nil), t.UserColumns...),
		BusinessColumn: t.BusinessColumn,
		Rows:           make([]*domain.Record, 0, len(t.Rows)),
	}
	for _, r := range t.Rows {
		c.Rows = append(c.Rows, r.Clone())
	}
	return c
}

// HasUserColumn reports whether the table carries the named user column.
func (t *Table) HasUserColumn(name string) bool {
	for _, c := range t.UserColumns {
		if c == name {
			return true
		}
	}
	return false
}

// ColumnValues returns the values of a column across all rows. Both user
// columns and management columns resolve, so column scoring can treat
// Primary_Email and email_status like any uploaded column.
func (t *Table) ColumnValues(name string) []string {
	out := make([]string, len(t.Rows))
	if t.HasUserColumn(name) {
		for i, r := range t.Rows {
			out[i] = r.Fields[name]
		}
		return out
	}
	for i, r := range t.Rows {
		out[i] = managementValue(r, name)
	}
	return out
}

func managementValue(r *domain.Record, name string) string {
	switch strings.ToLower(name) {
	case "research_status":
		return string(r.ResearchStatus)
	case "primary_email":
		return r.PrimaryEmail
	case "phone_number":
		return r.PhoneNumber
	case "website":
		return r.Website
	case "business_description":
		return r.BusinessDescription
	case "research_confidence":
		return strconv.FormatFloat(r.ResearchConfidence, 'f', -1, 64)
	case "research_timestamp":
		return r.ResearchTimestamp
	case "research_error":
		return r.ResearchErr
	case "email_selected":
		return strconv.FormatBool(r.EmailSelected)
	case "email_status":
		return string(r.EmailStatus)
	case "sent_date":
		return r.SentDate
	case "campaign_name":
		return r.CampaignName
	}
	return ""
}

// setManagementValue lifts a raw CSV value into the typed management
// field it belongs to. Used at import when an uploaded file already
// carries workflow state from a previous export.
func setManagementValue(r *domain.Record, name, raw string) {
	raw = strings.TrimSpace(raw)
	switch strings.ToLower(name) {
	case "research_status":
		switch strings.ToLower(raw) {
		case "found":
			r.ResearchStatus = domain.ResearchFound
		case "not_found":
			r.ResearchStatus = domain.ResearchNotFound
		case "error":
			r.ResearchStatus = domain.ResearchError
		default:
			r.ResearchStatus = domain.ResearchPending
		}
	case "primary_email":
		r.PrimaryEmail = raw
	case "phone_number":
		r.PhoneNumber = raw
	case "website":
		r.Website = raw
	case "business_description":
		r.BusinessDescription = raw
	case "research_confidence":
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			r.ResearchConfidence = f
		}
	case "research_timestamp":
		r.ResearchTimestamp = raw
	case "research_error":
		r.ResearchErr = raw
	case "email_selected":
		r.EmailSelected = strings.EqualFold(raw, "true") || raw == "1"
	case "email_status":
		r.EmailStatus = domain.ParseEmailStatus(raw)
	case "sent_date":
		r.SentDate = raw
	case "campaign_name":
		r.CampaignName = raw
	}
}
