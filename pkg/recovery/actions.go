package recovery

import (
	"context"
	"errors"
	"fmt"

	"github.com/leadflowhq/leadflow/pkg/events"
	"github.com/leadflowhq/leadflow/pkg/execution"
	"github.com/leadflowhq/leadflow/pkg/models"
)

// executeActions runs the strategy's actions in declared order. Actions
// are independent: a failing action is logged and the remaining ones
// still run. Reports whether at least one action took effect.
func (e *Engine) executeActions(ctx context.Context, errorContext *models.ErrorContext, strategy models.RecoveryStrategy) bool {
	recovered := false

	for _, action := range strategy.Actions {
		err := e.executeAction(ctx, errorContext, action)
		if err != nil {
			e.logger.WarnContext(ctx, "Recovery action failed",
				"strategy_id", strategy.ID, "action", action.Type,
				"execution_id", errorContext.ExecutionID, "error", err)

			continue
		}

		recovered = true
	}

	return recovered
}

// executeAction interprets one action. Every branch is safe to run more
// than once for the same ErrorContext.
func (e *Engine) executeAction(ctx context.Context, errorContext *models.ErrorContext, action models.RecoveryAction) error {
	switch action.Type {
	case models.ActionRetry:
		return e.resubmit(ctx, errorContext, nil)

	case models.ActionFallbackProvider:
		overrides := map[string]any{}

		if provider, ok := action.Config["provider"].(string); ok && provider != "" {
			overrides["provider"] = provider
		}

		if config, ok := action.Config["config"].(map[string]any); ok {
			for k, v := range config {
				overrides[k] = v
			}
		}

		if len(overrides) == 0 {
			return fmt.Errorf("fallback_provider action for execution %s has no provider configured", errorContext.ExecutionID)
		}

		return e.resubmit(ctx, errorContext, overrides)

	case models.ActionSkipStep:
		step := skipTarget(errorContext, action)
		if step == "" {
			return fmt.Errorf("skip_step action for execution %s names no step", errorContext.ExecutionID)
		}

		_, err := e.driver.MarkStepSkipped(ctx, errorContext.ExecutionID, step)

		return err

	case models.ActionManualIntervention:
		_, err := e.driver.MarkReviewRequired(ctx, errorContext.ExecutionID)

		return err

	case models.ActionNotifyAdmin:
		return e.notifyAdmin(ctx, errorContext, action)

	default:
		return fmt.Errorf("unknown recovery action type %q", action.Type)
	}
}

// resubmit re-drives the execution. A retry bound that has been reached
// is a deliberate no-op leaving the execution FAILED, and a resubmission
// that already happened (the execution is no longer FAILED) counts as
// done.
func (e *Engine) resubmit(ctx context.Context, errorContext *models.ErrorContext, overrides map[string]any) error {
	_, err := e.driver.Resubmit(ctx, errorContext.ExecutionID, overrides)
	if err != nil {
		if errors.Is(err, execution.ErrMaxRetriesExceeded) || errors.Is(err, execution.ErrNotResubmittable) {
			return nil
		}

		return err
	}

	return nil
}

// skipTarget resolves which step to skip: action config wins, then the
// failing step recorded in the execution input.
func skipTarget(errorContext *models.ErrorContext, action models.RecoveryAction) string {
	if step, ok := action.Config["step"].(string); ok && step != "" {
		return step
	}

	if step, ok := errorContext.InputData["failed_step"].(string); ok && step != "" {
		return step
	}

	return ""
}

func (e *Engine) notifyAdmin(ctx context.Context, errorContext *models.ErrorContext, action models.RecoveryAction) error {
	severity, _ := action.Config["severity"].(string)
	if severity == "" {
		severity = "warning"
	}

	message, _ := action.Config["message"].(string)
	if message == "" {
		message = errorContext.ErrorMessage
	}

	notification := Notification{
		ExecutionID: errorContext.ExecutionID,
		WorkflowID:  errorContext.WorkflowID,
		CompanyID:   errorContext.CompanyID,
		Severity:    severity,
		Message:     message,
	}

	if err := e.notifier.Notify(ctx, notification); err != nil {
		return err
	}

	e.publish(ctx, errorContext.ExecutionID, events.AdminNotification{
		BaseEvent:   events.NewBaseEvent(events.AdminNotificationEvent, errorContext.CompanyID),
		ExecutionID: errorContext.ExecutionID,
		WorkflowID:  errorContext.WorkflowID,
		Severity:    severity,
		Message:     message,
	})

	return nil
}
