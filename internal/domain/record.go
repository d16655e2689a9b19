package domain

import "strings"

// ResearchStatus enumerates the research lifecycle of a business record.
type ResearchStatus string

const (
	ResearchPending  ResearchStatus = "pending"
	ResearchFound    ResearchStatus = "found"
	ResearchNotFound ResearchStatus = "not_found"
	ResearchError    ResearchStatus = "error"
)

// EmailStatus enumerates the send lifecycle of a business record.
// The string values match what operators see in exported CSVs, so
// re-uploading an export round-trips cleanly.
type EmailStatus string

const (
	EmailNotSent EmailStatus = "Not Sent"
	EmailSending EmailStatus = "Sending"
	EmailSent    EmailStatus = "Sent"
	EmailFailed  EmailStatus = "Failed"
	EmailBounced EmailStatus = "Bounced"
)

// ParseEmailStatus normalizes a raw CSV value to an EmailStatus.
// Unknown or empty values map to EmailNotSent.
func ParseEmailStatus(raw string) EmailStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "sending":
		return EmailSending
	case "sent":
		return EmailSent
	case "failed":
		return EmailFailed
	case "bounced":
		return EmailBounced
	default:
		return EmailNotSent
	}
}

// CanTransition reports whether an email status change is legal:
//
//	Not Sent -> Sending            (selected, campaign start)
//	Sending  -> Sent | Failed      (transport outcome)
//	Failed   -> Sending            (operator retry)
//	Sent     -> Bounced            (delivery feedback)
//
// Sent and Bounced are terminal for a campaign attempt.
func CanTransition(from, to EmailStatus) bool {
	switch from {
	case EmailNotSent:
		return to == EmailSending
	case EmailSending:
		return to == EmailSent || to == EmailFailed
	case EmailFailed:
		return to == EmailSending
	case EmailSent:
		return to == EmailBounced
	}
	return false
}

// Record is one business's row in the canonical table. User-supplied
// columns are carried as an opaque ordered payload on the owning table;
// the management fields below are typed and appended to exports in a
// fixed trailing order.
type Record struct {
	// Fields holds the user-supplied column values keyed by column name.
	// Column order lives on the owning Table.
	Fields map[string]string `json:"fields"`

	ResearchStatus      ResearchStatus `json:"research_status"`
	PrimaryEmail        string         `json:"primary_email"`
	PhoneNumber         string         `json:"phone_number"`
	Website             string         `json:"website"`
	BusinessDescription string         `json:"business_description"`
	ResearchConfidence  float64        `json:"research_confidence"`
	ResearchTimestamp   string         `json:"research_timestamp"`
	ResearchErr         string         `json:"research_error"`

	EmailSelected bool        `json:"email_selected"`
	EmailStatus   EmailStatus `json:"email_status"`
	SentDate      string      `json:"sent_date"`
	CampaignName  string      `json:"campaign_name"`
}

// NewRecord returns a Record with default management fields.
func NewRecord(fields map[string]string) *Record {
	if fields == nil {
		fields = make(map[string]string)
	}
	return &Record{
		Fields:         fields,
		ResearchStatus: ResearchPending,
		EmailStatus:    EmailNotSent,
	}
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	c := *r
	c.Fields = make(map[string]string, len(r.Fields))
	for k, v := range r.Fields {
		c.Fields[k] = v
	}
	return &c
}

// Equal reports whether two records carry identical user fields and
// management fields. Used by tests to assert merge non-interference.
func (r *Record) Equal(other *Record) bool {
	if other == nil {
		return false
	}
	if len(r.Fields) != len(other.Fields) {
		return false
	}
	for k, v := range r.Fields {
		if other.Fields[k] != v {
			return false
		}
	}
	return r.ResearchStatus == other.ResearchStatus &&
		r.PrimaryEmail == other.PrimaryEmail &&
		r.PhoneNumber == other.PhoneNumber &&
		r.Website == other.Website &&
		r.BusinessDescription == other.BusinessDescription &&
		r.ResearchConfidence == other.ResearchConfidence &&
		r.ResearchTimestamp == other.ResearchTimestamp &&
		r.ResearchErr == other.ResearchErr &&
		r.EmailSelected == other.EmailSelected &&
		r.EmailStatus == other.EmailStatus &&
		r.SentDate == other.SentDate &&
		r.CampaignName == other.CampaignName
}

// HasMeaningfulEmailState reports whether any email-management field has
// been moved off its default. Projections use this to decide whether the
// record's state should seed a fresh recipient row.
func (r *Record) HasMeaningfulEmailState() bool {
	return r.EmailSelected ||
		(r.EmailStatus != "" && r.EmailStatus != EmailNotSent) ||
		r.SentDate != "" ||
		r.CampaignName != ""
}
