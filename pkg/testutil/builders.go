// Package testutil provides test data builders shared across package
// tests.
package testutil

import (
	"time"

	"github.com/google/uuid"

	"github.com/leadflowhq/leadflow/pkg/models"
)

// CreateTestLead creates a lead with default values that can be
// overridden.
func CreateTestLead(overrides ...func(*models.Lead)) *models.Lead {
	now := time.Now().UTC()

	lead := &models.Lead{
		ID:        uuid.New().String(),
		CompanyID: "company-1",
		Email:     "ada@example.com",
		FullName:  "Ada Lovelace",
		CreatedAt: now,
		UpdatedAt: now,
	}

	for _, override := range overrides {
		override(lead)
	}

	return lead
}

// WithCompany places the lead in another tenant.
func WithCompany(companyID string) func(*models.Lead) {
	return func(l *models.Lead) {
		l.CompanyID = companyID
	}
}

// CreateTestErrorContext creates a failed-execution error context with
// default values that can be overridden.
func CreateTestErrorContext(overrides ...func(*models.ErrorContext)) *models.ErrorContext {
	errorContext := &models.ErrorContext{
		ExecutionID:  uuid.New().String(),
		WorkflowID:   "workflow-1",
		WorkflowType: "enrichment",
		CompanyID:    "company-1",
		ErrorMessage: "provider timeout",
		ErrorType:    "provider_error",
		Timestamp:    time.Now().UTC(),
	}

	for _, override := range overrides {
		override(errorContext)
	}

	return errorContext
}
