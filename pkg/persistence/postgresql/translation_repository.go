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

// TranslationRepository handles translation request database operations.
type TranslationRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// Create inserts a new translation request.
func (r *TranslationRepository) Create(ctx context.Context, request *models.TranslationRequest) error {
	structuredData, leads, schema, criteria, err := marshalTranslationColumns(request)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO translation_requests (
			id, input_format, raw_input, structured_data, leads,
			enrichment_schema, interpreted_criteria, reasoning, confidence,
			status, error_message, company_id, created_by, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err = r.db.ExecContext(ctx, query,
		request.ID,
		request.InputFormat,
		request.RawInput,
		structuredData,
		leads,
		schema,
		criteria,
		request.Reasoning,
		request.Confidence,
		request.Status,
		request.ErrorMessage,
		request.CompanyID,
		request.CreatedBy,
		request.CreatedAt,
		request.UpdatedAt,
	)
	if err != nil {
		return persistence.NewRepositoryError("Create", "translation_request", request.ID, err)
	}

	return nil
}

// GetByID fetches a translation request scoped to its tenant.
func (r *TranslationRepository) GetByID(ctx context.Context, companyID, id string) (*models.TranslationRequest, error) {
	query := `
		SELECT id, input_format, raw_input, structured_data, leads,
			enrichment_schema, interpreted_criteria, reasoning, confidence,
			status, error_message, company_id, created_by, created_at, updated_at
		FROM translation_requests
		WHERE id = $1 AND company_id = $2
	`

	var request models.TranslationRequest

	var structuredData, leads, schema, criteria []byte

	err := r.db.QueryRowContext(ctx, query, id, companyID).Scan(
		&request.ID,
		&request.InputFormat,
		&request.RawInput,
		&structuredData,
		&leads,
		&schema,
		&criteria,
		&request.Reasoning,
		&request.Confidence,
		&request.Status,
		&request.ErrorMessage,
		&request.CompanyID,
		&request.CreatedBy,
		&request.CreatedAt,
		&request.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewRepositoryError("GetByID", "translation_request", id, persistence.ErrTranslationNotFound)
		}

		return nil, persistence.NewRepositoryError("GetByID", "translation_request", id, err)
	}

	err = unmarshalJSONColumn(structuredData, &request.StructuredData)
	if err == nil {
		err = unmarshalJSONColumn(leads, &request.Leads)
	}

	if err == nil {
		err = unmarshalJSONColumn(schema, &request.EnrichmentSchema)
	}

	if err == nil {
		err = unmarshalJSONColumn(criteria, &request.InterpretedCriteria)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal translation request %s: %w", id, err)
	}

	return &request, nil
}

// Update persists a status transition for an existing request.
func (r *TranslationRepository) Update(ctx context.Context, request *models.TranslationRequest) error {
	structuredData, leads, schema, criteria, err := marshalTranslationColumns(request)
	if err != nil {
		return err
	}

	query := `
		UPDATE translation_requests
		SET structured_data = $2, leads = $3, enrichment_schema = $4,
			interpreted_criteria = $5, reasoning = $6, confidence = $7,
			status = $8, error_message = $9, updated_at = $10
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		request.ID,
		structuredData,
		leads,
		schema,
		criteria,
		request.Reasoning,
		request.Confidence,
		request.Status,
		request.ErrorMessage,
		request.UpdatedAt,
	)
	if err != nil {
		return persistence.NewRepositoryError("Update", "translation_request", request.ID, err)
	}

	affected, err := result.RowsAffected()
	if err == nil && affected == 0 {
		return persistence.NewRepositoryError("Update", "translation_request", request.ID, persistence.ErrTranslationNotFound)
	}

	return nil
}

func marshalTranslationColumns(request *models.TranslationRequest) (structuredData, leads, schema, criteria []byte, err error) {
	structuredData, err = json.Marshal(request.StructuredData)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to marshal structured data: %w", err)
	}

	leads, err = json.Marshal(request.Leads)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to marshal leads: %w", err)
	}

	schema, err = json.Marshal(request.EnrichmentSchema)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to marshal enrichment schema: %w", err)
	}

	criteria, err = json.Marshal(request.InterpretedCriteria)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to marshal interpreted criteria: %w", err)
	}

	return structuredData, leads, schema, criteria, nil
}
