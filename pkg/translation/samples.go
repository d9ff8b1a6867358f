package translation

import (
	"fmt"

	"github.com/leadflowhq/leadflow/pkg/models"
)

const (
	defaultJobTitle = "Professional"
	defaultIndustry = "Technology"
)

// GenerateSampleLeads produces synthetic preview leads cycling through
// the criteria's job titles and industries by index.
func GenerateSampleLeads(criteria *models.AudienceCriteria, count int) []models.SampleLead {
	if count <= 0 {
		count = 5
	}

	leads := make([]models.SampleLead, 0, count)

	for i := range count {
		leads = append(leads, models.SampleLead{
			FullName:    fmt.Sprintf("Sample Lead %d", i+1),
			Email:       fmt.Sprintf("sample.lead%d@example.com", i+1),
			JobTitle:    pick(criteria.JobTitles, i, defaultJobTitle),
			Industry:    pick(criteria.Industries, i, defaultIndustry),
			CompanyName: fmt.Sprintf("Sample Company %d", i+1),
		})
	}

	return leads
}

func pick(values []string, index int, fallback string) string {
	if len(values) == 0 {
		return fallback
	}

	return values[index%len(values)]
}
