package models

// ConditionType identifies the ErrorContext dimension a recovery
// condition inspects.
type ConditionType string

const (
	ConditionErrorMessage ConditionType = "error_message"
	ConditionErrorType    ConditionType = "error_type"
	ConditionRetryCount   ConditionType = "retry_count"
	ConditionWorkflowType ConditionType = "workflow_type"
	ConditionTimeOfDay    ConditionType = "time_of_day"
)

// ConditionOperator is the comparison applied to the condition value.
type ConditionOperator string

const (
	OperatorEquals      ConditionOperator = "equals"
	OperatorContains    ConditionOperator = "contains"
	OperatorMatches     ConditionOperator = "matches"
	OperatorGreaterThan ConditionOperator = "greater_than"
	OperatorLessThan    ConditionOperator = "less_than"
)

// ActionType identifies a recovery action.
type ActionType string

const (
	ActionRetry              ActionType = "retry"
	ActionFallbackProvider   ActionType = "fallback_provider"
	ActionSkipStep           ActionType = "skip_step"
	ActionManualIntervention ActionType = "manual_intervention"
	ActionNotifyAdmin        ActionType = "notify_admin"
)

// RecoveryCondition is one predicate over an ErrorContext. All conditions
// within a strategy must hold for the strategy to match.
type RecoveryCondition struct {
	Type     ConditionType     `json:"type"     validate:"required,oneof=error_message error_type retry_count workflow_type time_of_day"`
	Operator ConditionOperator `json:"operator" validate:"required,oneof=equals contains matches greater_than less_than"`
	Value    string            `json:"value"    validate:"required"`
}

// RecoveryAction is one step executed when a strategy matches. Actions run
// in declared order and are best-effort independent of each other.
type RecoveryAction struct {
	Type   ActionType     `json:"type" validate:"required,oneof=retry fallback_provider skip_step manual_intervention notify_admin"`
	Config map[string]any `json:"config,omitempty"`
}

// RecoveryStrategy is a named conditions-plus-actions rule. Lower priority
// values are evaluated first; ties break by registration order.
type RecoveryStrategy struct {
	ID          string              `json:"id"          validate:"required"`
	Name        string              `json:"name"        validate:"required,min=3"`
	Description string              `json:"description"`
	Conditions  []RecoveryCondition `json:"conditions"  validate:"required,min=1,dive"`
	Actions     []RecoveryAction    `json:"actions"     validate:"required,min=1,dive"`
	Priority    int                 `json:"priority"`
}
