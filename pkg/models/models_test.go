package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnrichmentStatus_IsTerminal(t *testing.T) {
	tests := []struct {
		status   EnrichmentStatus
		terminal bool
	}{
		{EnrichmentStatusPending, false},
		{EnrichmentStatusInProgress, false},
		{EnrichmentStatusSuccess, true},
		{EnrichmentStatusFailed, true},
		{EnrichmentStatusTimeout, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.terminal, tt.status.IsTerminal())
			assert.Equal(t, !tt.terminal, tt.status.IsActive())
		})
	}
}

func TestEnrichmentRequest_WithStatusDoesNotMutate(t *testing.T) {
	original := NewEnrichmentRequest("lead-1", "company-1", "apollo", map[string]any{"email": "a@b.co"})

	updated := original.WithStatus(EnrichmentStatusInProgress)

	assert.Equal(t, EnrichmentStatusPending, original.Status)
	assert.Equal(t, EnrichmentStatusInProgress, updated.Status)
	assert.Equal(t, original.ID, updated.ID)
}

func TestEnrichmentRequest_NextAttempt(t *testing.T) {
	original := NewEnrichmentRequest("lead-1", "company-1", "apollo", map[string]any{
		"email": "a@b.co",
		"name":  "Ada",
	})
	failed := original.WithFailure(EnrichmentStatusFailed, "rate limited", 120)

	retry := failed.NextAttempt(map[string]any{"name": "Ada Lovelace"}, "")

	assert.NotEqual(t, failed.ID, retry.ID)
	assert.Equal(t, failed.ID, retry.PreviousRequestID)
	assert.Equal(t, EnrichmentStatusPending, retry.Status)
	assert.Equal(t, 1, retry.RetryCount)
	assert.Equal(t, "apollo", retry.Provider)
	assert.Equal(t, "a@b.co", retry.RequestData["email"])
	assert.Equal(t, "Ada Lovelace", retry.RequestData["name"], "overrides win on key conflicts")
	assert.Empty(t, retry.ErrorMessage)
}

func TestEnrichmentRequest_NextAttemptWithAlternateProvider(t *testing.T) {
	original := NewEnrichmentRequest("lead-1", "company-1", "apollo", nil)

	retry := original.NextAttempt(nil, "clearbit")

	assert.Equal(t, "clearbit", retry.Provider)
}

func TestWorkflowExecution_WithStatusStampsTimes(t *testing.T) {
	execution := NewWorkflowExecution("wf-1", "enrichment", "company-1", nil)
	require.Nil(t, execution.StartedAt)

	started := execution.WithStatus(ExecutionStatusInProgress)
	require.NotNil(t, started.StartedAt)
	assert.Nil(t, started.CompletedAt)

	failed := started.WithError("provider unavailable")
	require.NotNil(t, failed.CompletedAt)
	assert.Equal(t, ExecutionStatusFailed, failed.Status)
	assert.Equal(t, "provider unavailable", failed.ErrorMessage)
}

func TestWorkflowExecution_WithSkippedStepIsIdempotent(t *testing.T) {
	execution := NewWorkflowExecution("wf-1", "enrichment", "company-1", nil)

	once := execution.WithSkippedStep("validate")
	twice := once.WithSkippedStep("validate")

	assert.Equal(t, []string{"validate"}, twice.SkippedSteps)
}

func TestLead_ApplyEnrichmentDoesNotClearFields(t *testing.T) {
	lead := &Lead{
		ID:        "lead-1",
		CompanyID: "company-1",
		Email:     "a@b.co",
		FullName:  "Ada Lovelace",
	}

	enriched := lead.ApplyEnrichment(map[string]any{
		"job_title":    "CTO",
		"company_name": "Analytical Engines",
		"full_name":    "",
	})

	assert.Equal(t, "Ada Lovelace", enriched.FullName, "empty values never overwrite")
	assert.Equal(t, "CTO", enriched.JobTitle)
	assert.Equal(t, "Analytical Engines", enriched.CompanyName)
	require.NotNil(t, enriched.EnrichedAt)
	assert.Nil(t, lead.EnrichedAt, "original is untouched")
}

func TestTranslationRequest_NextAttemptKeepsOriginalInputs(t *testing.T) {
	original := NewTranslationRequest("company-1", "user-1", InputFormatCSVUpload, "title,industry\nCTO,SaaS", nil)
	failed := original.WithError("malformed CSV")

	retry := failed.NextAttempt()

	assert.NotEqual(t, failed.ID, retry.ID)
	assert.Equal(t, TranslationStatusPending, retry.Status)
	assert.Equal(t, failed.RawInput, retry.RawInput)
	assert.Equal(t, failed.InputFormat, retry.InputFormat)
	assert.Empty(t, retry.ErrorMessage)
	assert.Equal(t, TranslationStatusFailed, failed.Status, "failed record is retained")
}
