package models

import (
	"time"

	"github.com/google/uuid"
)

// ExecutionStatus represents the lifecycle state of a workflow execution.
type ExecutionStatus string

const (
	ExecutionStatusPending    ExecutionStatus = "PENDING"
	ExecutionStatusInProgress ExecutionStatus = "IN_PROGRESS"
	ExecutionStatusSuccess    ExecutionStatus = "SUCCESS"
	ExecutionStatusFailed     ExecutionStatus = "FAILED"
	ExecutionStatusCancelled  ExecutionStatus = "CANCELLED"
)

// IsTerminal reports whether the status is final for the execution record.
// FAILED is terminal for the record itself; the recovery engine may spawn
// a resubmission, which increments RetryCount on a fresh transition.
func (s ExecutionStatus) IsTerminal() bool {
	return s == ExecutionStatusSuccess || s == ExecutionStatusFailed || s == ExecutionStatusCancelled
}

// WorkflowExecution records one run of an externally-executed workflow.
type WorkflowExecution struct {
	ID             string          `json:"id"`
	WorkflowID     string          `json:"workflow_id"   validate:"required"`
	WorkflowType   string          `json:"workflow_type" validate:"required"`
	CompanyID      string          `json:"company_id"    validate:"required"`
	Status         ExecutionStatus `json:"status"`
	InputData      map[string]any  `json:"input_data,omitempty"`
	OutputData     map[string]any  `json:"output_data,omitempty"`
	ErrorMessage   string          `json:"error_message,omitempty"`
	RetryCount     int             `json:"retry_count"`
	RequiresReview bool            `json:"requires_review,omitempty"`
	SkippedSteps   []string        `json:"skipped_steps,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	StartedAt      *time.Time      `json:"started_at,omitempty"`
	CompletedAt    *time.Time      `json:"completed_at,omitempty"`
}

// NewWorkflowExecution creates a PENDING execution record.
func NewWorkflowExecution(workflowID, workflowType, companyID string, inputData map[string]any) *WorkflowExecution {
	now := time.Now().UTC()

	return &WorkflowExecution{
		ID:           uuid.New().String(),
		WorkflowID:   workflowID,
		WorkflowType: workflowType,
		CompanyID:    companyID,
		Status:       ExecutionStatusPending,
		InputData:    inputData,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// WithStatus returns a copy of the execution in the given status, stamping
// start/completion times on the relevant transitions.
func (e *WorkflowExecution) WithStatus(status ExecutionStatus) *WorkflowExecution {
	next := *e
	next.Status = status

	now := time.Now().UTC()
	next.UpdatedAt = now

	switch status {
	case ExecutionStatusInProgress:
		next.StartedAt = &now
	case ExecutionStatusSuccess, ExecutionStatusFailed, ExecutionStatusCancelled:
		next.CompletedAt = &now
	case ExecutionStatusPending:
	}

	return &next
}

// WithOutput returns a SUCCESS copy carrying the workflow output.
func (e *WorkflowExecution) WithOutput(outputData map[string]any) *WorkflowExecution {
	next := e.WithStatus(ExecutionStatusSuccess)
	next.OutputData = outputData

	return next
}

// WithError returns a FAILED copy carrying the error message.
func (e *WorkflowExecution) WithError(message string) *WorkflowExecution {
	next := e.WithStatus(ExecutionStatusFailed)
	next.ErrorMessage = message

	return next
}

// WithReviewRequired returns a copy flagged for manual intervention. The
// execution stays FAILED until a human-triggered state change occurs.
func (e *WorkflowExecution) WithReviewRequired() *WorkflowExecution {
	next := *e
	next.RequiresReview = true
	next.UpdatedAt = time.Now().UTC()

	return &next
}

// WithSkippedStep returns a copy with the given pipeline step marked as
// skipped. Marking the same step twice is a no-op.
func (e *WorkflowExecution) WithSkippedStep(step string) *WorkflowExecution {
	for _, s := range e.SkippedSteps {
		if s == step {
			return e
		}
	}

	next := *e
	next.SkippedSteps = append(append([]string{}, e.SkippedSteps...), step)
	next.UpdatedAt = time.Now().UTC()

	return &next
}
