package translation

import (
	"context"
	"fmt"
	"strings"

	"github.com/leadflowhq/leadflow/pkg/models"
)

// Keyword tables for the deterministic free-text interpreter. Loaded
// once; matching is case-insensitive substring search.
var (
	knownJobTitles = []string{
		"CEO", "CTO", "CFO", "CMO", "COO",
		"VP of Sales", "VP of Marketing", "VP of Engineering",
		"Head of Growth", "Head of Sales", "Head of Marketing",
		"Founder", "Engineering Manager", "Product Manager",
		"Sales Director", "Marketing Director", "Recruiter",
	}

	knownIndustries = []string{
		"SaaS", "Fintech", "Healthcare", "E-commerce", "Cybersecurity",
		"Logistics", "Real Estate", "Education", "Manufacturing",
		"Biotech", "Insurance", "Retail", "Gaming", "Media",
	}

	knownLocations = []string{
		"San Francisco", "New York", "London", "Berlin", "Paris",
		"Amsterdam", "Toronto", "Austin", "Boston", "Singapore",
		"United States", "Europe", "Germany", "France", "United Kingdom",
	}

	// Matched in table order, most specific first, so "pre-seed" never
	// resolves as "seed".
	fundingKeywords = []keywordMapping{
		{"pre-seed", "pre_seed"},
		{"seed", "seed"},
		{"series a", "series_a"},
		{"series b", "series_b"},
		{"series c", "series_c"},
		{"bootstrap", "bootstrapped"},
		{"ipo", "public"},
		{"public", "public"},
		{"funded", "funded"},
	}

	companySizeKeywords = []keywordMapping{
		{"fortune 500", "500+"},
		{"enterprise", "500+"},
		{"large", "500+"},
		{"mid-size", "51-500"},
		{"medium", "51-500"},
		{"startup", "1-50"},
		{"small", "1-50"},
	}
)

type keywordMapping struct {
	keyword string
	value   string
}

// KeywordInterpreter is the deterministic FREE_TEXT fallback used when no
// language model is configured. It scans the text against fixed keyword
// tables.
type KeywordInterpreter struct{}

// NewKeywordInterpreter creates the keyword-table interpreter.
func NewKeywordInterpreter() *KeywordInterpreter {
	return &KeywordInterpreter{}
}

func (i *KeywordInterpreter) Interpret(_ context.Context, text string) (*Interpretation, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: empty audience description", ErrInvalidInput)
	}

	lowered := strings.ToLower(text)

	criteria := &models.AudienceCriteria{}

	for _, title := range knownJobTitles {
		if strings.Contains(lowered, strings.ToLower(title)) {
			criteria.JobTitles = append(criteria.JobTitles, title)
		}
	}

	for _, industry := range knownIndustries {
		if strings.Contains(lowered, strings.ToLower(industry)) {
			criteria.Industries = append(criteria.Industries, industry)
		}
	}

	for _, location := range knownLocations {
		if strings.Contains(lowered, strings.ToLower(location)) {
			criteria.Location = location

			break
		}
	}

	for _, entry := range fundingKeywords {
		if strings.Contains(lowered, entry.keyword) {
			criteria.FundingStatus = entry.value

			break
		}
	}

	for _, entry := range companySizeKeywords {
		if strings.Contains(lowered, entry.keyword) {
			criteria.CompanySize = entry.value

			break
		}
	}

	return &Interpretation{
		Criteria: criteria,
		Reasoning: fmt.Sprintf("Keyword scan matched %d job titles and %d industries.",
			len(criteria.JobTitles), len(criteria.Industries)),
	}, nil
}
