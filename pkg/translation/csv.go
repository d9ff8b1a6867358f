package translation

import (
	"encoding/csv"
	"fmt"
	"strings"
)

// csvColumns maps criteria dimensions to the header synonyms we resolve,
// in precedence order. The first matching header wins per dimension.
var csvColumns = map[string][]string{
	"job_title": {"jobtitle", "title", "role"},
	"industry":  {"industry", "sector"},
	"location":  {"location", "city", "country"},
}

// interpretCSV derives criteria from an uploaded CSV: distinct non-empty
// values of the job title, industry and location columns.
func interpretCSV(rawInput string) (*Interpretation, error) {
	reader := csv.NewReader(strings.NewReader(rawInput))
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: malformed CSV: %v", ErrInvalidInput, err)
	}

	if len(rows) < 2 {
		return nil, fmt.Errorf("%w: CSV needs a header row and at least one data row", ErrInvalidInput)
	}

	header := rows[0]
	columns := make(map[string]int)

	for dimension, synonyms := range csvColumns {
		for _, synonym := range synonyms {
			index := headerIndex(header, synonym)
			if index >= 0 {
				columns[dimension] = index

				break
			}
		}
	}

	jobTitles := distinctColumn(rows[1:], columns, "job_title")
	industries := distinctColumn(rows[1:], columns, "industry")
	locations := distinctColumn(rows[1:], columns, "location")

	criteria := criteriaFromMap(map[string]any{
		"jobTitles":   jobTitles,
		"industries":  industries,
		"location":    strings.Join(locations, ", "),
		"csvRowCount": len(rows) - 1,
	})

	return &Interpretation{
		Criteria: criteria,
		Reasoning: fmt.Sprintf("Derived from %d CSV rows: %d job titles, %d industries, %d locations.",
			len(rows)-1, len(jobTitles), len(industries), len(locations)),
	}, nil
}

func headerIndex(header []string, name string) int {
	for i, column := range header {
		normalized := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(column), "_", ""))
		if normalized == name {
			return i
		}
	}

	return -1
}

// distinctColumn collects the distinct non-empty values of one resolved
// column, preserving first-seen order.
func distinctColumn(rows [][]string, columns map[string]int, dimension string) []string {
	index, ok := columns[dimension]
	if !ok {
		return nil
	}

	seen := make(map[string]bool)
	out := make([]string, 0)

	for _, row := range rows {
		if index >= len(row) {
			continue
		}

		value := strings.TrimSpace(row[index])
		if value == "" || seen[value] {
			continue
		}

		seen[value] = true
		out = append(out, value)
	}

	return out
}
