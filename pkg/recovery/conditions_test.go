package recovery

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/leadflowhq/leadflow/pkg/models"
)

func TestMatches(t *testing.T) {
	errorContext := &models.ErrorContext{
		ErrorMessage: "apollo rate limit exceeded",
		ErrorType:    "provider_error",
		RetryCount:   2,
		WorkflowType: "enrichment",
	}

	noon := time.Date(2026, 3, 14, 12, 30, 0, 0, time.UTC)

	tests := []struct {
		name      string
		condition models.RecoveryCondition
		expected  bool
	}{
		{
			name:      "error_message contains",
			condition: models.RecoveryCondition{Type: models.ConditionErrorMessage, Operator: models.OperatorContains, Value: "rate limit"},
			expected:  true,
		},
		{
			name:      "error_message contains mismatch",
			condition: models.RecoveryCondition{Type: models.ConditionErrorMessage, Operator: models.OperatorContains, Value: "not found"},
			expected:  false,
		},
		{
			name:      "error_type equals",
			condition: models.RecoveryCondition{Type: models.ConditionErrorType, Operator: models.OperatorEquals, Value: "provider_error"},
			expected:  true,
		},
		{
			name:      "error_message matches regex",
			condition: models.RecoveryCondition{Type: models.ConditionErrorMessage, Operator: models.OperatorMatches, Value: `^apollo .*exceeded$`},
			expected:  true,
		},
		{
			name:      "invalid regex never matches",
			condition: models.RecoveryCondition{Type: models.ConditionErrorMessage, Operator: models.OperatorMatches, Value: `([`},
			expected:  false,
		},
		{
			name:      "retry_count greater_than",
			condition: models.RecoveryCondition{Type: models.ConditionRetryCount, Operator: models.OperatorGreaterThan, Value: "1"},
			expected:  true,
		},
		{
			name:      "retry_count less_than at boundary",
			condition: models.RecoveryCondition{Type: models.ConditionRetryCount, Operator: models.OperatorLessThan, Value: "2"},
			expected:  false,
		},
		{
			name:      "workflow_type equals",
			condition: models.RecoveryCondition{Type: models.ConditionWorkflowType, Operator: models.OperatorEquals, Value: "enrichment"},
			expected:  true,
		},
		{
			name:      "time_of_day greater_than",
			condition: models.RecoveryCondition{Type: models.ConditionTimeOfDay, Operator: models.OperatorGreaterThan, Value: "09:00"},
			expected:  true,
		},
		{
			name:      "time_of_day less_than",
			condition: models.RecoveryCondition{Type: models.ConditionTimeOfDay, Operator: models.OperatorLessThan, Value: "09:00"},
			expected:  false,
		},
		{
			name:      "non-numeric greater_than is false",
			condition: models.RecoveryCondition{Type: models.ConditionErrorMessage, Operator: models.OperatorGreaterThan, Value: "zzz"},
			expected:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Matches(errorContext, tt.condition, noon))
		})
	}
}

func TestStrategyMatches_AllConditionsMustHold(t *testing.T) {
	errorContext := &models.ErrorContext{
		ErrorMessage: "rate limit",
		RetryCount:   5,
	}

	strategy := models.RecoveryStrategy{
		Conditions: []models.RecoveryCondition{
			{Type: models.ConditionErrorMessage, Operator: models.OperatorContains, Value: "rate limit"},
			{Type: models.ConditionRetryCount, Operator: models.OperatorLessThan, Value: "3"},
		},
	}

	assert.False(t, strategyMatches(errorContext, strategy, time.Now()))

	errorContext.RetryCount = 1
	assert.True(t, strategyMatches(errorContext, strategy, time.Now()))
}
