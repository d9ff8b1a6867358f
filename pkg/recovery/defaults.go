package recovery

import "github.com/leadflowhq/leadflow/pkg/models"

// DefaultStrategies is the standard rule set installed at startup. It
// covers the failure classes the platform sees most: transient provider
// errors, rate limits, and validation dead-ends that need a human.
func DefaultStrategies() []models.RecoveryStrategy {
	return []models.RecoveryStrategy{
		{
			ID:          "retry-transient-provider-errors",
			Name:        "Retry transient provider errors",
			Description: "Network and 5xx provider failures usually clear on a retry.",
			Priority:    10,
			Conditions: []models.RecoveryCondition{
				{Type: models.ConditionErrorType, Operator: models.OperatorEquals, Value: "provider_error"},
				{Type: models.ConditionRetryCount, Operator: models.OperatorLessThan, Value: "3"},
			},
			Actions: []models.RecoveryAction{
				{Type: models.ActionRetry},
			},
		},
		{
			ID:          "retry-timeouts",
			Name:        "Retry timed out executions",
			Description: "Timeouts are retried while the retry budget lasts.",
			Priority:    10,
			Conditions: []models.RecoveryCondition{
				{Type: models.ConditionErrorMessage, Operator: models.OperatorContains, Value: "timeout"},
				{Type: models.ConditionRetryCount, Operator: models.OperatorLessThan, Value: "3"},
			},
			Actions: []models.RecoveryAction{
				{Type: models.ActionRetry},
			},
		},
		{
			ID:          "rate-limit-fallback",
			Name:        "Fall back on provider rate limits",
			Description: "Rate limited enrichments switch to the secondary provider.",
			Priority:    20,
			Conditions: []models.RecoveryCondition{
				{Type: models.ConditionErrorMessage, Operator: models.OperatorContains, Value: "rate limit"},
				{Type: models.ConditionWorkflowType, Operator: models.OperatorEquals, Value: "enrichment"},
			},
			Actions: []models.RecoveryAction{
				{Type: models.ActionFallbackProvider, Config: map[string]any{"provider": "clearbit"}},
			},
		},
		{
			ID:          "escalate-exhausted-retries",
			Name:        "Escalate executions out of retries",
			Description: "After the retry budget is spent a human decides.",
			Priority:    90,
			Conditions: []models.RecoveryCondition{
				{Type: models.ConditionRetryCount, Operator: models.OperatorGreaterThan, Value: "2"},
			},
			Actions: []models.RecoveryAction{
				{Type: models.ActionManualIntervention},
				{Type: models.ActionNotifyAdmin, Config: map[string]any{"severity": "critical"}},
			},
		},
	}
}
