package translation

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/leadflowhq/leadflow/pkg/models"
)

// criteriaKeys maps criteria dimensions to the input key variants we
// accept, camelCase first since that is what the frontend sends.
var criteriaKeys = map[string][]string{
	"job_titles":     {"jobTitles", "job_titles"},
	"industries":     {"industries"},
	"location":       {"location"},
	"company_size":   {"companySize", "company_size"},
	"funding_status": {"fundingStatus", "funding_status"},
}

func lookup(data map[string]any, dimension string) (any, bool) {
	for _, key := range criteriaKeys[dimension] {
		if value, ok := data[key]; ok {
			return value, true
		}
	}

	return nil, false
}

func stringValue(data map[string]any, dimension string) string {
	value, ok := lookup(data, dimension)
	if !ok {
		return ""
	}

	s, _ := value.(string)

	return s
}

func stringSlice(data map[string]any, dimension string) []string {
	value, ok := lookup(data, dimension)
	if !ok {
		return nil
	}

	switch v := value.(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))

		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}

		return out
	case string:
		if v == "" {
			return nil
		}

		return []string{v}
	default:
		return nil
	}
}

// criteriaFromMap builds AudienceCriteria from a decoded object. Keys
// that are not criteria dimensions are preserved as additional criteria.
func criteriaFromMap(data map[string]any) *models.AudienceCriteria {
	criteria := &models.AudienceCriteria{
		JobTitles:     stringSlice(data, "job_titles"),
		Industries:    stringSlice(data, "industries"),
		Location:      stringValue(data, "location"),
		CompanySize:   stringValue(data, "company_size"),
		FundingStatus: stringValue(data, "funding_status"),
	}

	claimed := make(map[string]bool)
	for _, variants := range criteriaKeys {
		for _, key := range variants {
			claimed[key] = true
		}
	}

	for key, value := range data {
		if claimed[key] {
			continue
		}

		if criteria.AdditionalCriteria == nil {
			criteria.AdditionalCriteria = make(map[string]any)
		}

		criteria.AdditionalCriteria[key] = value
	}

	return criteria
}

// interpretStructuredJSON parses the raw document and shallow-merges the
// caller-supplied structured data over it, caller winning on conflicts.
func interpretStructuredJSON(_ context.Context, rawInput string, structuredData map[string]any) (*Interpretation, error) {
	parsed := make(map[string]any)

	if rawInput != "" {
		if err := json.Unmarshal([]byte(rawInput), &parsed); err != nil {
			return nil, fmt.Errorf("%w: malformed JSON document: %v", ErrInvalidInput, err)
		}
	}

	for key, value := range structuredData {
		parsed[key] = value
	}

	if len(parsed) == 0 {
		return nil, fmt.Errorf("%w: empty JSON document", ErrInvalidInput)
	}

	return &Interpretation{
		Criteria:  criteriaFromMap(parsed),
		Reasoning: "Criteria taken from the structured JSON document.",
	}, nil
}

// interpretForm parses a JSON object of form fields directly into
// criteria.
func interpretForm(rawInput string) (*Interpretation, error) {
	fields := make(map[string]any)
	if err := json.Unmarshal([]byte(rawInput), &fields); err != nil {
		return nil, fmt.Errorf("%w: malformed form payload: %v", ErrInvalidInput, err)
	}

	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: empty form payload", ErrInvalidInput)
	}

	return &Interpretation{
		Criteria:  criteriaFromMap(fields),
		Reasoning: "Criteria taken directly from the submitted form fields.",
	}, nil
}
