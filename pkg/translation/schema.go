package translation

import "github.com/leadflowhq/leadflow/pkg/models"

// GenerateEnrichmentSchema derives which fields enrichment should collect
// for the audience. Required and optional fields are fixed; conditional
// fields are added only for criteria dimensions actually present.
func GenerateEnrichmentSchema(criteria *models.AudienceCriteria) *models.EnrichmentSchema {
	schema := &models.EnrichmentSchema{
		RequiredFields: []string{"fullName", "email"},
		OptionalFields: []string{"linkedinUrl", "jobTitle", "companyName", "location"},
	}

	if len(criteria.JobTitles) > 0 {
		schema.ConditionalFields = append(schema.ConditionalFields, "jobTitle")
	}

	if len(criteria.Industries) > 0 {
		schema.ConditionalFields = append(schema.ConditionalFields, "companyIndustry")
	}

	if criteria.Location != "" {
		schema.ConditionalFields = append(schema.ConditionalFields, "location")
	}

	return schema
}
