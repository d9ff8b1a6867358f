package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/leadflowhq/leadflow/pkg/models"
	"github.com/leadflowhq/leadflow/pkg/persistence"
)

// ExecutionRepository handles workflow execution database operations.
type ExecutionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// Save upserts an execution record.
func (r *ExecutionRepository) Save(ctx context.Context, execution *models.WorkflowExecution) error {
	inputData, err := json.Marshal(execution.InputData)
	if err != nil {
		return fmt.Errorf("failed to marshal input data: %w", err)
	}

	outputData, err := json.Marshal(execution.OutputData)
	if err != nil {
		return fmt.Errorf("failed to marshal output data: %w", err)
	}

	skippedSteps, err := json.Marshal(execution.SkippedSteps)
	if err != nil {
		return fmt.Errorf("failed to marshal skipped steps: %w", err)
	}

	query := `
		INSERT INTO workflow_executions (
			id, workflow_id, workflow_type, company_id, status, input_data,
			output_data, error_message, retry_count, requires_review,
			skipped_steps, created_at, updated_at, started_at, completed_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			input_data = EXCLUDED.input_data,
			output_data = EXCLUDED.output_data,
			error_message = EXCLUDED.error_message,
			retry_count = EXCLUDED.retry_count,
			requires_review = EXCLUDED.requires_review,
			skipped_steps = EXCLUDED.skipped_steps,
			updated_at = EXCLUDED.updated_at,
			started_at = EXCLUDED.started_at,
			completed_at = EXCLUDED.completed_at
	`

	_, err = r.db.ExecContext(ctx, query,
		execution.ID,
		execution.WorkflowID,
		execution.WorkflowType,
		execution.CompanyID,
		execution.Status,
		inputData,
		outputData,
		execution.ErrorMessage,
		execution.RetryCount,
		execution.RequiresReview,
		skippedSteps,
		execution.CreatedAt,
		execution.UpdatedAt,
		execution.StartedAt,
		execution.CompletedAt,
	)
	if err != nil {
		return persistence.NewRepositoryError("Save", "workflow_execution", execution.ID, err)
	}

	return nil
}

const executionColumns = `
	id, workflow_id, workflow_type, company_id, status, input_data,
	output_data, error_message, retry_count, requires_review, skipped_steps,
	created_at, updated_at, started_at, completed_at
`

// GetByID fetches an execution record.
func (r *ExecutionRepository) GetByID(ctx context.Context, id string) (*models.WorkflowExecution, error) {
	query := `SELECT ` + executionColumns + ` FROM workflow_executions WHERE id = $1`

	execution, err := scanExecution(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewRepositoryError("GetByID", "workflow_execution", id, persistence.ErrExecutionNotFound)
		}

		return nil, persistence.NewRepositoryError("GetByID", "workflow_execution", id, err)
	}

	return execution, nil
}

// ListByWorkflow returns all executions of a workflow, oldest first.
func (r *ExecutionRepository) ListByWorkflow(ctx context.Context, workflowID string) ([]*models.WorkflowExecution, error) {
	query := `SELECT ` + executionColumns + ` FROM workflow_executions WHERE workflow_id = $1 ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query, workflowID)
	if err != nil {
		return nil, persistence.NewRepositoryError("ListByWorkflow", "workflow_execution", workflowID, err)
	}
	defer rows.Close()

	executions := make([]*models.WorkflowExecution, 0)

	for rows.Next() {
		execution, err := scanExecution(rows)
		if err != nil {
			return nil, persistence.NewRepositoryError("ListByWorkflow", "workflow_execution", workflowID, err)
		}

		executions = append(executions, execution)
	}

	if err := rows.Err(); err != nil {
		return nil, persistence.NewRepositoryError("ListByWorkflow", "workflow_execution", workflowID, err)
	}

	return executions, nil
}

func scanExecution(row rowScanner) (*models.WorkflowExecution, error) {
	var execution models.WorkflowExecution

	var inputData, outputData, skippedSteps []byte

	err := row.Scan(
		&execution.ID,
		&execution.WorkflowID,
		&execution.WorkflowType,
		&execution.CompanyID,
		&execution.Status,
		&inputData,
		&outputData,
		&execution.ErrorMessage,
		&execution.RetryCount,
		&execution.RequiresReview,
		&skippedSteps,
		&execution.CreatedAt,
		&execution.UpdatedAt,
		&execution.StartedAt,
		&execution.CompletedAt,
	)
	if err != nil {
		return nil, err
	}

	err = unmarshalJSONColumn(inputData, &execution.InputData)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal input data: %w", err)
	}

	err = unmarshalJSONColumn(outputData, &execution.OutputData)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal output data: %w", err)
	}

	err = unmarshalJSONColumn(skippedSteps, &execution.SkippedSteps)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal skipped steps: %w", err)
	}

	return &execution, nil
}
