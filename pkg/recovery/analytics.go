package recovery

import (
	"context"
	"fmt"
	"time"

	"github.com/leadflowhq/leadflow/pkg/models"
	"github.com/leadflowhq/leadflow/pkg/persistence"
)

// ErrorAnalytics aggregates the failure and recovery history of one
// workflow.
type ErrorAnalytics struct {
	WorkflowID            string        `json:"workflow_id"`
	TotalErrors           int           `json:"total_errors"`
	ResolvedErrors        int           `json:"resolved_errors"`
	UnresolvedErrors      int           `json:"unresolved_errors"`
	AverageResolutionTime time.Duration `json:"average_resolution_time"`
	MostCommonError       string        `json:"most_common_error"`
	RecoverySuccessRate   float64       `json:"recovery_success_rate"`
}

// ErrorAnalytics computes the analytics for a workflow. An error counts
// as resolved when a recovery action fired and the execution reached
// SUCCESS within the verification window after the failure was recorded.
func (e *Engine) ErrorAnalytics(ctx context.Context, workflowID string) (*ErrorAnalytics, error) {
	records, err := e.store.ErrorHistory().ByWorkflow(ctx, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to load error history for workflow %s: %w", workflowID, err)
	}

	analytics := &ErrorAnalytics{WorkflowID: workflowID}

	messageCounts := make(map[string]int)

	var resolutionTotal time.Duration

	for _, record := range records {
		analytics.TotalErrors++
		messageCounts[record.Context.ErrorMessage]++

		if record.StrategyID == "" || !record.Recovered {
			continue
		}

		resolvedAt, resolved := e.resolvedWithinWindow(ctx, record)
		if !resolved {
			continue
		}

		analytics.ResolvedErrors++
		resolutionTotal += resolvedAt.Sub(record.Context.Timestamp)
	}

	analytics.UnresolvedErrors = analytics.TotalErrors - analytics.ResolvedErrors

	if analytics.ResolvedErrors > 0 {
		analytics.AverageResolutionTime = resolutionTotal / time.Duration(analytics.ResolvedErrors)
	}

	if analytics.TotalErrors > 0 {
		analytics.RecoverySuccessRate = float64(analytics.ResolvedErrors) / float64(analytics.TotalErrors)
	}

	best := 0
	for message, count := range messageCounts {
		if count > best || (count == best && message < analytics.MostCommonError) {
			best = count
			analytics.MostCommonError = message
		}
	}

	return analytics, nil
}

// resolvedWithinWindow checks whether the record's execution reached
// SUCCESS inside the verification window.
func (e *Engine) resolvedWithinWindow(ctx context.Context, record *persistence.ErrorRecord) (time.Time, bool) {
	execution, err := e.store.Executions().GetByID(ctx, record.Context.ExecutionID)
	if err != nil || execution.Status != models.ExecutionStatusSuccess || execution.CompletedAt == nil {
		return time.Time{}, false
	}

	completedAt := *execution.CompletedAt
	if completedAt.Before(record.RecordedAt) || completedAt.Sub(record.RecordedAt) > e.verificationWindow {
		return time.Time{}, false
	}

	return completedAt, true
}
