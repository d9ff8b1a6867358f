package translation

import "github.com/leadflowhq/leadflow/pkg/models"

// Confidence scoring weights. The score starts at the base and grows with
// how specific the interpreted audience is.
const (
	confidenceBase = 0.5

	criteriaDimensionBonus = 0.1  // jobTitles, industries, location
	secondaryCriteriaBonus = 0.05 // companySize, fundingStatus

	perSchemaFieldBonus = 0.02
	schemaBonusCap      = 0.1

	perSampleLeadBonus = 0.02
	sampleLeadBonusCap = 0.1
)

// CalculateConfidence scores how confidently the pipeline interpreted the
// input, clamped to [0, 1].
func CalculateConfidence(criteria *models.AudienceCriteria, schema *models.EnrichmentSchema, leads []models.SampleLead) float64 {
	score := confidenceBase

	if len(criteria.JobTitles) > 0 {
		score += criteriaDimensionBonus
	}

	if len(criteria.Industries) > 0 {
		score += criteriaDimensionBonus
	}

	if criteria.Location != "" {
		score += criteriaDimensionBonus
	}

	if criteria.CompanySize != "" {
		score += secondaryCriteriaBonus
	}

	if criteria.FundingStatus != "" {
		score += secondaryCriteriaBonus
	}

	score += capped(float64(schema.FieldCount())*perSchemaFieldBonus, schemaBonusCap)
	score += capped(float64(len(leads))*perSampleLeadBonus, sampleLeadBonusCap)

	if score < 0 {
		return 0
	}

	if score > 1 {
		return 1
	}

	return score
}

func capped(value, limit float64) float64 {
	if value > limit {
		return limit
	}

	return value
}
