package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/leadflowhq/leadflow/pkg/models"
	"github.com/leadflowhq/leadflow/pkg/persistence"
)

// ErrorHistoryRepository handles the append-only execution error history.
type ErrorHistoryRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// Append records one error occurrence. Rows are never updated or deleted.
func (r *ErrorHistoryRepository) Append(ctx context.Context, record *persistence.ErrorRecord) error {
	contextJSON, err := json.Marshal(record.Context)
	if err != nil {
		return fmt.Errorf("failed to marshal error context: %w", err)
	}

	query := `
		INSERT INTO execution_error_history (
			execution_id, workflow_id, context, strategy_id, recovered, recorded_at
		)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err = r.db.ExecContext(ctx, query,
		record.Context.ExecutionID,
		record.Context.WorkflowID,
		contextJSON,
		record.StrategyID,
		record.Recovered,
		record.RecordedAt,
	)
	if err != nil {
		return persistence.NewRepositoryError("Append", "error_record", record.Context.ExecutionID, err)
	}

	return nil
}

// ByExecution returns the error history of one execution, oldest first.
func (r *ErrorHistoryRepository) ByExecution(ctx context.Context, executionID string) ([]*persistence.ErrorRecord, error) {
	return r.query(ctx, "execution_id", executionID)
}

// ByWorkflow returns the error history across all executions of a
// workflow, oldest first.
func (r *ErrorHistoryRepository) ByWorkflow(ctx context.Context, workflowID string) ([]*persistence.ErrorRecord, error) {
	return r.query(ctx, "workflow_id", workflowID)
}

func (r *ErrorHistoryRepository) query(ctx context.Context, column, value string) ([]*persistence.ErrorRecord, error) {
	query := fmt.Sprintf(`
		SELECT context, strategy_id, recovered, recorded_at
		FROM execution_error_history
		WHERE %s = $1
		ORDER BY recorded_at, id
	`, column)

	rows, err := r.db.QueryContext(ctx, query, value)
	if err != nil {
		return nil, persistence.NewRepositoryError("Query", "error_record", value, err)
	}
	defer rows.Close()

	records := make([]*persistence.ErrorRecord, 0)

	for rows.Next() {
		var record persistence.ErrorRecord

		var contextJSON []byte

		err := rows.Scan(&contextJSON, &record.StrategyID, &record.Recovered, &record.RecordedAt)
		if err != nil {
			return nil, persistence.NewRepositoryError("Query", "error_record", value, err)
		}

		err = json.Unmarshal(contextJSON, &record.Context)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal error context: %w", err)
		}

		records = append(records, &record)
	}

	if err := rows.Err(); err != nil {
		return nil, persistence.NewRepositoryError("Query", "error_record", value, err)
	}

	return records, nil
}

// AuditRepository handles the append-only audit trail.
type AuditRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// Append records one audit entry.
func (r *AuditRepository) Append(ctx context.Context, entry *models.AuditEntry) error {
	details, err := json.Marshal(entry.Details)
	if err != nil {
		return fmt.Errorf("failed to marshal audit details: %w", err)
	}

	query := `
		INSERT INTO audit_trail (
			id, company_id, actor, action, entity_type, entity_id, details, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err = r.db.ExecContext(ctx, query,
		entry.ID,
		entry.CompanyID,
		entry.Actor,
		entry.Action,
		entry.EntityType,
		entry.EntityID,
		details,
		entry.CreatedAt,
	)
	if err != nil {
		return persistence.NewRepositoryError("Append", "audit_entry", entry.ID, err)
	}

	return nil
}
