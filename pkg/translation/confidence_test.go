package translation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/leadflowhq/leadflow/pkg/models"
)

func TestCalculateConfidence_Base(t *testing.T) {
	score := CalculateConfidence(&models.AudienceCriteria{}, &models.EnrichmentSchema{}, nil)
	assert.InDelta(t, 0.5, score, 0.0001)
}

func TestCalculateConfidence_FullyDetailed(t *testing.T) {
	criteria := &models.AudienceCriteria{
		JobTitles:     []string{"CTO"},
		Industries:    []string{"SaaS"},
		Location:      "Berlin",
		CompanySize:   "1-50",
		FundingStatus: "seed",
	}
	schema := GenerateEnrichmentSchema(criteria)
	leads := GenerateSampleLeads(criteria, 5)

	// 0.5 + 3*0.1 + 2*0.05 + min(9*0.02, 0.1) + min(5*0.02, 0.1) = 1.1,
	// clamped to 1.
	score := CalculateConfidence(criteria, schema, leads)
	assert.InDelta(t, 1.0, score, 0.0001)
}

func TestCalculateConfidence_SchemaAndLeadBonusesAreCapped(t *testing.T) {
	schema := &models.EnrichmentSchema{
		RequiredFields: []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k", "l"},
	}
	leads := GenerateSampleLeads(&models.AudienceCriteria{}, 20)

	score := CalculateConfidence(&models.AudienceCriteria{}, schema, leads)
	assert.InDelta(t, 0.5+0.1+0.1, score, 0.0001)
}

func TestCalculateConfidence_MoreCriteriaNeverLowersScore(t *testing.T) {
	base := &models.AudienceCriteria{JobTitles: []string{"CTO"}}
	richer := &models.AudienceCriteria{
		JobTitles:  []string{"CTO"},
		Industries: []string{"SaaS"},
		Location:   "Berlin",
	}

	baseScore := CalculateConfidence(base, GenerateEnrichmentSchema(base), nil)
	richerScore := CalculateConfidence(richer, GenerateEnrichmentSchema(richer), nil)

	assert.Greater(t, richerScore, baseScore)
}
