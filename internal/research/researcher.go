package research

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/timberwood/outreach/internal/config"
	"github.com/timberwood/outreach/internal/domain"
	"github.com/timberwood/outreach/internal/pkg/logger"
)

// Researcher looks up contact details for one company. Implementations
// return an error for infrastructure failures; the batch runner converts
// those into error-status results so a batch never aborts.
type Researcher interface {
	Research(ctx context.Context, company, expectedCity string) (domain.ResearchResult, error)
}

// WebResearcher combines Tavily web search with Groq extraction.
type WebResearcher struct {
	search *TavilyClient
	llm    *GroqClient
}

// NewWebResearcher creates the production research pipeline.
func NewWebResearcher(tavilyCfg config.TavilyConfig, groqCfg config.GroqConfig) *WebResearcher {
	return &WebResearcher{
		search: NewTavilyClient(tavilyCfg),
		llm:    NewGroqClient(groqCfg),
	}
}

// searchQueries returns the query set for one company. Several phrasings
// of the same intent surface different directory and registry pages.
func searchQueries(company, expectedCity string) []string {
	queries := []string{
		fmt.Sprintf("%s contact information phone email", company),
		fmt.Sprintf("%s business address website", company),
		fmt.Sprintf("%q company contact details", company),
	}
	if expectedCity != "" {
		queries[0] = fmt.Sprintf("%s %s contact information phone email", company, expectedCity)
	}
	return queries
}

// Research runs the full pipeline for one company: search, extract,
// parse. Returns an error only when no usable search or extraction
// output could be obtained at all.
func (w *WebResearcher) Research(ctx context.Context, company, expectedCity string) (domain.ResearchResult, error) {
	var hits []SearchResult
	for _, q := range searchQueries(company, expectedCity) {
		results, err := w.search.Search(ctx, q)
		if err != nil {
			logger.Warn("search query failed", "company", company, "error", err.Error())
			continue
		}
		hits = append(hits, results...)
	}
	if len(hits) == 0 {
		return domain.ResearchResult{}, fmt.Errorf("no search results for %q", company)
	}

	reply, err := w.llm.Complete(ctx, extractionPrompt(company, expectedCity, hits))
	if err != nil {
		return domain.ResearchResult{}, fmt.Errorf("extraction: %w", err)
	}
	return parseExtraction(company, reply), nil
}

func extractionPrompt(company, expectedCity string, hits []SearchResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are analyzing web search results to find contact details for a business.\n\n")
	fmt.Fprintf(&b, "BUSINESS TO RESEARCH: %q\n", company)
	if expectedCity != "" {
		fmt.Fprintf(&b, "EXPECTED LOCATION: %s\n", expectedCity)
	}
	b.WriteString("\nSEARCH RESULTS:\n")
	for i, h := range hits {
		fmt.Fprintf(&b, "[%d] %s\n%s\n%s\n\n", i+1, h.Title, h.URL, h.Content)
	}
	b.WriteString(`EXTRACT AND FORMAT:
EMAIL: [extract email address or "Not found"]
PHONE: [extract phone number or "Not found"]
WEBSITE: [extract website URL or "Not found"]
DESCRIPTION: [brief business description based on the results]
CONFIDENCE: [rate 1-10 based on quality and number of sources]

Format your response exactly as shown above with the field names.
`)
	return b.String()
}

// Sentinel values the extraction model emits for missing fields.
func isSentinel(v string) bool {
	switch strings.ToLower(v) {
	case "", "not found", "research required", "not relevant", "unknown", "n/a":
		return true
	}
	return false
}

// extractField pulls one "LABEL: value" line out of the model reply.
func extractField(text, label string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, label) {
			v := strings.TrimSpace(strings.TrimPrefix(line, label))
			if isSentinel(v) {
				return ""
			}
			return v
		}
	}
	return ""
}

// parseExtraction converts the model's field-format reply into a result.
// A company is found only when a plausible email came back.
func parseExtraction(company, reply string) domain.ResearchResult {
	email := extractField(reply, "EMAIL:")
	phone := extractField(reply, "PHONE:")
	website := extractField(reply, "WEBSITE:")
	description := extractField(reply, "DESCRIPTION:")

	res := domain.ResearchResult{
		CompanyName: company,
		Status:      domain.ResearchNotFound,
		Description: description,
		Website:     website,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}
	if email != "" && strings.Contains(email, "@") {
		res.Status = domain.ResearchFound
		res.Contacts = []domain.Contact{{Email: email, Phone: phone}}
	}
	res.Confidence = parseConfidence(reply, res.Status == domain.ResearchFound)
	return res
}

// parseConfidence reads the model's 1-10 self-rating and scales it to
// 0-1. Falls back to fixed scores when the rating is missing or junk.
func parseConfidence(reply string, found bool) float64 {
	raw := extractField(reply, "CONFIDENCE:")
	if fields := strings.Fields(raw); len(fields) > 0 {
		if n, err := strconv.ParseFloat(strings.TrimSuffix(fields[0], "/10"), 64); err == nil && n >= 0 && n <= 10 {
			return n / 10
		}
	}
	if found {
		return 0.8
	}
	return 0.2
}
