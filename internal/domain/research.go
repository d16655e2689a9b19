package domain

import "time"

// Contact is a single contact point surfaced by research.
type Contact struct {
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

// ResearchResult is the outcome of researching one company.
type ResearchResult struct {
	CompanyName string         `json:"company_name"`
	Status      ResearchStatus `json:"status"`
	Confidence  float64        `json:"confidence_score"`
	Description string         `json:"description"`
	Contacts    []Contact      `json:"contacts"`
	Website     string         `json:"website,omitempty"`
	Timestamp   string         `json:"search_timestamp"`
	ErrorMsg    string         `json:"error_message,omitempty"`
}

// FallbackResult builds the error-shaped result recorded when a research
// call fails. The batch loop continues; only this company's row reflects
// the failure.
func FallbackResult(company, errMsg string) ResearchResult {
	return ResearchResult{
		CompanyName: company,
		Status:      ResearchError,
		Description: "Research failed: " + errMsg,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		ErrorMsg:    errMsg,
	}
}
