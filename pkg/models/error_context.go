package models

import "time"

// ErrorContext is the ephemeral failure descriptor handed to the recovery
// engine when a workflow execution fails. It is never persisted as its
// own entity; the engine appends it to the per-execution error history.
type ErrorContext struct {
	ExecutionID  string         `json:"execution_id"`
	WorkflowID   string         `json:"workflow_id"`
	WorkflowType string         `json:"workflow_type"`
	CompanyID    string         `json:"company_id"`
	ErrorMessage string         `json:"error_message"`
	ErrorType    string         `json:"error_type,omitempty"`
	Timestamp    time.Time      `json:"timestamp"`
	RetryCount   int            `json:"retry_count"`
	InputData    map[string]any `json:"input_data,omitempty"`
}

// NewErrorContext builds an ErrorContext from a failed execution.
func NewErrorContext(execution *WorkflowExecution, errorType string) *ErrorContext {
	return &ErrorContext{
		ExecutionID:  execution.ID,
		WorkflowID:   execution.WorkflowID,
		WorkflowType: execution.WorkflowType,
		CompanyID:    execution.CompanyID,
		ErrorMessage: execution.ErrorMessage,
		ErrorType:    errorType,
		Timestamp:    time.Now().UTC(),
		RetryCount:   execution.RetryCount,
		InputData:    execution.InputData,
	}
}
