package dataset

import (
	"sort"
	"strings"
	"unicode"
)

// ColumnCandidate is one scored column from a detection pass. Detection
// never errors: the ranked list is returned alongside the pick so the UI
// can offer a manual override.
type ColumnCandidate struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
	Rule  string `json:"rule"`
}

// Known business-name header variants, highest priority first.
var businessNamePatterns = []string{
	"Consignee Name", // import/export trade data
	"Company Name",
	"Business Name",
	"Organization Name",
	"Firm Name",
	"Entity Name",
	"Client Name",
	"Customer Name",
}

// Headers containing these fragments are never business names even when
// they contain "name".
var nameSkipPatterns = []string{"file", "user", "contact", "person", "individual"}

// Headers containing these fragments are excluded from content sniffing.
var sniffExcludePatterns = []string{
	"date", "time", "id", "index", "code", "number",
	"qty", "quantity", "price", "rate", "value", "amount",
}

// DetectBusinessColumn scans the table's user columns for the most likely
// business-name column. It returns the winner, the full ranked candidate
// list, and whether detection had to fall back to the first column
// (degraded but never fatal).
func DetectBusinessColumn(t *Table) (string, []ColumnCandidate, bool) {
	if len(t.UserColumns) == 0 {
		return "", nil, true
	}

	candidates := RankBusinessColumns(t)
	best := candidates[0]
	return best.Name, candidates, best.Rule == "fallback_first_column"
}

// RankBusinessColumns scores every user column against the business-name
// heuristics and returns them ordered best first. Pure function so the
// tie-breaks are testable in isolation.
func RankBusinessColumns(t *Table) []ColumnCandidate {
	candidates := make([]ColumnCandidate, 0, len(t.UserColumns))
	for i, col := range t.UserColumns {
		score, rule := scoreBusinessColumn(t, col, i)
		candidates = append(candidates, ColumnCandidate{Name: col, Score: score, Rule: rule})
	}
	// Stable sort keeps original column order as the tie-break.
	sort.SliceStable(candidates, func(a, b int) bool {
		return candidates[a].Score > candidates[b].Score
	})
	if candidates[0].Score == 0 {
		candidates[0].Rule = "fallback_first_column"
	}
	return candidates
}

func scoreBusinessColumn(t *Table, col string, pos int) (int, string) {
	lower := strings.ToLower(strings.TrimSpace(col))

	if lower == "business_name" {
		return 1000, "exact_business_name"
	}

	for i, pattern := range businessNamePatterns {
		if strings.EqualFold(col, pattern) {
			return 900 - i, "known_pattern"
		}
	}

	if strings.Contains(lower, "name") {
		skip := false
		for _, s := range nameSkipPatterns {
			if strings.Contains(lower, s) {
				skip = true
				break
			}
		}
		if !skip {
			return 500, "contains_name"
		}
	}

	// Content sniff on the first few columns only: the key column sits
	// near the front of real-world exports.
	if pos < 5 {
		for _, ex := range sniffExcludePatterns {
			if strings.Contains(lower, ex) {
				return 0, "none"
			}
		}
		if sampleLooksLikeName(t.ColumnValues(col)) {
			return 200, "content_sniff"
		}
	}

	return 0, "none"
}

// sampleLooksLikeName checks the first non-empty value: alphabetic,
// longer than 3 chars, and not a bare number or date once separators
// are removed.
func sampleLooksLikeName(values []string) bool {
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if len(v) <= 3 {
			return false
		}
		hasAlpha := false
		for _, c := range v {
			if unicode.IsLetter(c) {
				hasAlpha = true
				break
			}
		}
		if !hasAlpha {
			return false
		}
		stripped := strings.NewReplacer("-", "", "/", "", " ", "").Replace(v)
		if stripped != "" && allDigits(stripped) {
			return false
		}
		return true
	}
	return false
}

func allDigits(s string) bool {
	for _, c := range s {
		if !unicode.IsDigit(c) {
			return false
		}
	}
	return true
}

// Email column priority table. Status and selection-flag columns rank at
// the bottom so they never shadow a real address column.
var emailPriorityPatterns = []struct {
	pattern string
	score   int
}{
	{"primary_email", 100},
	{"email_address", 90},
	{"business_email", 70},
	{"contact_email", 60},
	{"company_email", 50},
	{"email_status", 10},
	{"email_selected", 5},
	{"email_sent", 5},
	{"email", 80}, // generic match last so specific patterns win
}

const emailDefaultPriority = 30

// SelectEmailColumn picks the best address-bearing column: every column
// whose name contains "email" (management columns included) is scored by
// the priority table plus 10 points per value that looks like a real
// address. Returns "" when no email column exists.
func SelectEmailColumn(t *Table) (string, []ColumnCandidate) {
	var names []string
	for _, c := range t.UserColumns {
		if strings.Contains(strings.ToLower(c), "email") {
			names = append(names, c)
		}
	}
	// Management columns become candidates only once they actually hold
	// addresses; otherwise an always-present empty Primary_Email would
	// shadow a populated user column.
	for _, c := range ManagementColumns() {
		if !strings.Contains(strings.ToLower(c), "email") {
			continue
		}
		for _, v := range t.ColumnValues(c) {
			if strings.Contains(v, "@") {
				names = append(names, c)
				break
			}
		}
	}
	if len(names) == 0 {
		return "", nil
	}

	candidates := make([]ColumnCandidate, 0, len(names))
	for _, col := range names {
		priority := emailDefaultPriority
		lower := strings.ToLower(col)
		for _, p := range emailPriorityPatterns {
			if strings.Contains(lower, p.pattern) {
				priority = p.score
				break
			}
		}
		dataCount := 0
		for _, v := range t.ColumnValues(col) {
			if strings.Contains(v, "@") {
				dataCount++
			}
		}
		candidates = append(candidates, ColumnCandidate{
			Name:  col,
			Score: priority + dataCount*10,
			Rule:  "email_priority",
		})
	}

	sort.SliceStable(candidates, func(a, b int) bool {
		return candidates[a].Score > candidates[b].Score
	})
	return candidates[0].Name, candidates
}

// ValidEmailValue reports whether a cell value is a usable address:
// non-empty, not a research sentinel, and shaped like an email.
func ValidEmailValue(v string) bool {
	v = strings.TrimSpace(v)
	if v == "" || strings.EqualFold(v, "not found") || strings.EqualFold(v, "nan") {
		return false
	}
	at := strings.LastIndex(v, "@")
	if at < 1 || at >= len(v)-1 {
		return false
	}
	domain := v[at+1:]
	return strings.Contains(domain, ".") && len(domain) >= 3
}
