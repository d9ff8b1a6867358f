// Package execution tracks workflow executions performed by the external
// workflow engine and routes their failures into recovery.
package execution

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/leadflowhq/leadflow/pkg/eventbus"
	"github.com/leadflowhq/leadflow/pkg/events"
	"github.com/leadflowhq/leadflow/pkg/models"
	"github.com/leadflowhq/leadflow/pkg/persistence"
)

// DefaultMaxRetries bounds how often a failed execution may be
// resubmitted by recovery actions.
const DefaultMaxRetries = 3

var (
	// ErrExecutionNotFound is returned for unknown execution identifiers.
	ErrExecutionNotFound = persistence.ErrExecutionNotFound

	// ErrMaxRetriesExceeded indicates the resubmission bound is reached.
	// Recovery actions treat it as a no-op that leaves the execution
	// FAILED.
	ErrMaxRetriesExceeded = errors.New("execution retry limit reached")

	// ErrNotResubmittable indicates a resubmit of an execution that is
	// not FAILED.
	ErrNotResubmittable = errors.New("only failed executions can be resubmitted")
)

// FailureHandler receives the ErrorContext of a failed execution. The
// recovery engine implements it; the indirection keeps this package free
// of a dependency on recovery internals.
type FailureHandler interface {
	HandleError(ctx context.Context, errorContext *models.ErrorContext) error
}

// Engine triggers workflow runs on the external engine.
type Engine interface {
	TriggerWorkflow(ctx context.Context, execution *models.WorkflowExecution) error
}

// Tracker owns the WorkflowExecution lifecycle.
type Tracker struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	engine      Engine
	failures    FailureHandler
	bus         eventbus.EventPublisher
	maxRetries  int
}

// NewTracker creates the execution tracker. engine may be nil when runs
// are driven entirely by inbound webhooks.
func NewTracker(logger *slog.Logger, p persistence.Persistence, engine Engine) *Tracker {
	return &Tracker{
		logger:      logger.With("module", "execution"),
		persistence: p,
		engine:      engine,
		maxRetries:  DefaultMaxRetries,
	}
}

// SetFailureHandler wires the recovery engine in. Done post-construction
// because tracker and recovery reference each other.
func (t *Tracker) SetFailureHandler(handler FailureHandler) {
	t.failures = handler
}

// SetBus wires the event bus in. The tracker works without one.
func (t *Tracker) SetBus(bus eventbus.EventPublisher) {
	t.bus = bus
}

// publish is best effort. A bus outage must not roll back a persisted
// state transition.
func (t *Tracker) publish(ctx context.Context, key string, event eventbus.Event) {
	if t.bus == nil {
		return
	}

	if err := t.bus.Publish(ctx, key, event); err != nil {
		t.logger.ErrorContext(ctx, "Failed to publish event",
			"event_type", event.GetType(), "error", err)
	}
}

// Start creates an execution record, hands it to the external engine and
// marks it IN_PROGRESS.
func (t *Tracker) Start(ctx context.Context, workflowID, workflowType, companyID string, inputData map[string]any) (*models.WorkflowExecution, error) {
	execution := models.NewWorkflowExecution(workflowID, workflowType, companyID, inputData)

	if err := t.persistence.Executions().Save(ctx, execution); err != nil {
		return nil, fmt.Errorf("failed to persist execution: %w", err)
	}

	if t.engine != nil {
		if err := t.engine.TriggerWorkflow(ctx, execution); err != nil {
			return t.failNow(ctx, execution, "engine trigger failed: "+err.Error(), "engine_error")
		}
	}

	running := execution.WithStatus(models.ExecutionStatusInProgress)
	if err := t.persistence.Executions().Save(ctx, running); err != nil {
		return nil, fmt.Errorf("failed to mark execution in progress: %w", err)
	}

	t.logger.InfoContext(ctx, "Workflow execution started",
		"execution_id", running.ID, "workflow_id", workflowID, "workflow_type", workflowType)

	t.publish(ctx, running.WorkflowID, events.ExecutionStarted{
		BaseEvent:    events.NewBaseEvent(events.ExecutionStartedEvent, companyID),
		ExecutionID:  running.ID,
		WorkflowID:   workflowID,
		WorkflowType: workflowType,
	})

	return running, nil
}

// Complete finalizes an execution as SUCCESS.
func (t *Tracker) Complete(ctx context.Context, executionID string, outputData map[string]any) (*models.WorkflowExecution, error) {
	execution, err := t.persistence.Executions().GetByID(ctx, executionID)
	if err != nil {
		return nil, err
	}

	done := execution.WithOutput(outputData)
	if err := t.persistence.Executions().Save(ctx, done); err != nil {
		return nil, fmt.Errorf("failed to finalize execution %s: %w", executionID, err)
	}

	t.logger.InfoContext(ctx, "Workflow execution completed", "execution_id", executionID)

	t.publish(ctx, done.WorkflowID, events.ExecutionCompleted{
		BaseEvent:   events.NewBaseEvent(events.ExecutionCompletedEvent, done.CompanyID),
		ExecutionID: done.ID,
		WorkflowID:  done.WorkflowID,
	})

	return done, nil
}

// Fail finalizes an execution as FAILED and routes the failure through
// the recovery engine. Recovery errors are logged, never propagated: the
// FAILED transition has already been persisted.
func (t *Tracker) Fail(ctx context.Context, executionID, message, errorType string) (*models.WorkflowExecution, error) {
	execution, err := t.persistence.Executions().GetByID(ctx, executionID)
	if err != nil {
		return nil, err
	}

	return t.failNow(ctx, execution, message, errorType)
}

func (t *Tracker) failNow(ctx context.Context, execution *models.WorkflowExecution, message, errorType string) (*models.WorkflowExecution, error) {
	failed := execution.WithError(message)
	if err := t.persistence.Executions().Save(ctx, failed); err != nil {
		return nil, fmt.Errorf("failed to finalize execution %s: %w", execution.ID, err)
	}

	t.logger.WarnContext(ctx, "Workflow execution failed",
		"execution_id", failed.ID, "workflow_id", failed.WorkflowID, "error", message)

	t.publish(ctx, failed.WorkflowID, events.ExecutionFailed{
		BaseEvent:   events.NewBaseEvent(events.ExecutionFailedEvent, failed.CompanyID),
		ExecutionID: failed.ID,
		WorkflowID:  failed.WorkflowID,
		Error:       message,
		ErrorType:   errorType,
		RetryCount:  failed.RetryCount,
	})

	if t.failures != nil {
		errorContext := models.NewErrorContext(failed, errorType)
		if err := t.failures.HandleError(ctx, errorContext); err != nil {
			t.logger.ErrorContext(ctx, "Recovery handling failed",
				"execution_id", failed.ID, "error", err)
		}
	}

	return failed, nil
}

// WebhookPayload is the completion callback the external workflow engine
// delivers for an execution. A failed callback must carry the error
// message.
type WebhookPayload struct {
	ExecutionID string         `json:"executionId" validate:"required"`
	Status      string         `json:"status"      validate:"required,oneof=success failed cancelled"`
	OutputData  map[string]any `json:"outputData"`
	Error       string         `json:"error"       validate:"required_if=Status failed"`
	ErrorType   string         `json:"errorType"`
}

// CompleteViaWebhook maps an engine callback onto the matching lifecycle
// transition.
func (t *Tracker) CompleteViaWebhook(ctx context.Context, payload WebhookPayload) (*models.WorkflowExecution, error) {
	switch payload.Status {
	case "failed":
		errorType := payload.ErrorType
		if errorType == "" {
			errorType = "workflow_error"
		}

		return t.Fail(ctx, payload.ExecutionID, payload.Error, errorType)
	case "cancelled":
		return t.Cancel(ctx, payload.ExecutionID)
	default:
		return t.Complete(ctx, payload.ExecutionID, payload.OutputData)
	}
}

// Cancel finalizes an execution as CANCELLED.
func (t *Tracker) Cancel(ctx context.Context, executionID string) (*models.WorkflowExecution, error) {
	execution, err := t.persistence.Executions().GetByID(ctx, executionID)
	if err != nil {
		return nil, err
	}

	cancelled := execution.WithStatus(models.ExecutionStatusCancelled)
	if err := t.persistence.Executions().Save(ctx, cancelled); err != nil {
		return nil, fmt.Errorf("failed to cancel execution %s: %w", executionID, err)
	}

	return cancelled, nil
}

// Resubmit re-drives a FAILED execution with retryCount+1. Overrides are
// merged into the input data, overrides winning, which is how the
// fallback_provider recovery action swaps the provider. Safe to call more
// than once for the same failure: a resubmitted execution is no longer
// FAILED, so a second call reports ErrNotResubmittable.
func (t *Tracker) Resubmit(ctx context.Context, executionID string, overrides map[string]any) (*models.WorkflowExecution, error) {
	execution, err := t.persistence.Executions().GetByID(ctx, executionID)
	if err != nil {
		return nil, err
	}

	if execution.Status != models.ExecutionStatusFailed {
		return nil, fmt.Errorf("execution %s in status %s: %w", executionID, execution.Status, ErrNotResubmittable)
	}

	if execution.RetryCount >= t.maxRetries {
		return nil, fmt.Errorf("execution %s at retry %d: %w", executionID, execution.RetryCount, ErrMaxRetriesExceeded)
	}

	next := execution.WithStatus(models.ExecutionStatusInProgress)
	next.RetryCount++
	next.ErrorMessage = ""
	next.CompletedAt = nil

	if len(overrides) > 0 {
		inputData := make(map[string]any, len(execution.InputData)+len(overrides))
		for k, v := range execution.InputData {
			inputData[k] = v
		}

		for k, v := range overrides {
			inputData[k] = v
		}

		next.InputData = inputData
	}

	if err := t.persistence.Executions().Save(ctx, next); err != nil {
		return nil, fmt.Errorf("failed to resubmit execution %s: %w", executionID, err)
	}

	if t.engine != nil {
		if err := t.engine.TriggerWorkflow(ctx, next); err != nil {
			return t.failNow(ctx, next, "engine trigger failed: "+err.Error(), "engine_error")
		}
	}

	t.logger.InfoContext(ctx, "Workflow execution resubmitted",
		"execution_id", next.ID, "retry_count", next.RetryCount)

	return next, nil
}

// MarkReviewRequired flags a FAILED execution for human review without
// changing its status.
func (t *Tracker) MarkReviewRequired(ctx context.Context, executionID string) (*models.WorkflowExecution, error) {
	execution, err := t.persistence.Executions().GetByID(ctx, executionID)
	if err != nil {
		return nil, err
	}

	flagged := execution.WithReviewRequired()
	if err := t.persistence.Executions().Save(ctx, flagged); err != nil {
		return nil, fmt.Errorf("failed to flag execution %s for review: %w", executionID, err)
	}

	return flagged, nil
}

// MarkStepSkipped records a pipeline step as skipped so downstream
// processing can resume without its output. Idempotent per step.
func (t *Tracker) MarkStepSkipped(ctx context.Context, executionID, step string) (*models.WorkflowExecution, error) {
	execution, err := t.persistence.Executions().GetByID(ctx, executionID)
	if err != nil {
		return nil, err
	}

	updated := execution.WithSkippedStep(step)
	if err := t.persistence.Executions().Save(ctx, updated); err != nil {
		return nil, fmt.Errorf("failed to mark step skipped on execution %s: %w", executionID, err)
	}

	return updated, nil
}

// Get returns one execution record.
func (t *Tracker) Get(ctx context.Context, executionID string) (*models.WorkflowExecution, error) {
	return t.persistence.Executions().GetByID(ctx, executionID)
}

// ListByWorkflow returns all executions of a workflow, oldest first.
func (t *Tracker) ListByWorkflow(ctx context.Context, workflowID string) ([]*models.WorkflowExecution, error) {
	return t.persistence.Executions().ListByWorkflow(ctx, workflowID)
}
