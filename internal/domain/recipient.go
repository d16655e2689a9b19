package domain

// Recipient is one editable row of the email-campaign view, derived from
// a Record. It lives independently of its source row until synced back;
// matching is always by BusinessKey value, never by position, because row
// order can change between rebuilds.
type Recipient struct {
	BusinessKey  string      `json:"business_key"`
	EmailAddress string      `json:"email_address"`
	Selected     bool        `json:"selected"`
	Status       EmailStatus `json:"status"`
	SentDate     string      `json:"sent_date"`
	CampaignName string      `json:"campaign_name"`

	// SourceColumn records which table column supplied EmailAddress,
	// so manual address edits can be distinguished from column data.
	SourceColumn string `json:"source_column"`
	// SourceRow is the row index at build time. Informational only.
	SourceRow int `json:"source_row"`
}

// Sendable reports whether the recipient belongs in a new send batch:
// selected by the operator and in a state that may legally move to
// Sending. Sent and Bounced rows never re-enter a batch, which is the
// duplicate-send guard; a row stuck in Sending is excluded until the
// session sweep resolves it.
func (r *Recipient) Sendable() bool {
	status := r.Status
	if status == "" {
		status = EmailNotSent
	}
	return r.Selected && CanTransition(status, EmailSending)
}
