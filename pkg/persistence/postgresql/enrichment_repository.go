package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"github.com/leadflowhq/leadflow/pkg/models"
	"github.com/leadflowhq/leadflow/pkg/persistence"
)

const pqUniqueViolation = "23505"

// EnrichmentRepository handles enrichment request database operations.
type EnrichmentRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

const enrichmentColumns = `
	id, provider, request_data, response_data, status, lead_id, company_id,
	retry_count, COALESCE(previous_request_id, ''), error_message,
	duration_ms, created_at, updated_at
`

// Create inserts a new request. The partial unique index on active
// requests turns a racing duplicate into ErrActiveEnrichmentExists.
func (r *EnrichmentRepository) Create(ctx context.Context, request *models.EnrichmentRequest) error {
	requestData, err := json.Marshal(request.RequestData)
	if err != nil {
		return fmt.Errorf("failed to marshal request data: %w", err)
	}

	responseData, err := json.Marshal(request.ResponseData)
	if err != nil {
		return fmt.Errorf("failed to marshal response data: %w", err)
	}

	query := `
		INSERT INTO enrichment_requests (
			id, provider, request_data, response_data, status, lead_id,
			company_id, retry_count, previous_request_id, error_message,
			duration_ms, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, ''), $10, $11, $12, $13)
	`

	_, err = r.db.ExecContext(ctx, query,
		request.ID,
		request.Provider,
		requestData,
		responseData,
		request.Status,
		request.LeadID,
		request.CompanyID,
		request.RetryCount,
		request.PreviousRequestID,
		request.ErrorMessage,
		request.DurationMs,
		request.CreatedAt,
		request.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return persistence.NewRepositoryError("Create", "enrichment_request", request.ID, persistence.ErrActiveEnrichmentExists)
		}

		return persistence.NewRepositoryError("Create", "enrichment_request", request.ID, err)
	}

	return nil
}

// GetByID fetches a request scoped to its tenant.
func (r *EnrichmentRepository) GetByID(ctx context.Context, companyID, id string) (*models.EnrichmentRequest, error) {
	query := `SELECT ` + enrichmentColumns + ` FROM enrichment_requests WHERE id = $1 AND company_id = $2`

	request, err := scanEnrichment(r.db.QueryRowContext(ctx, query, id, companyID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewRepositoryError("GetByID", "enrichment_request", id, persistence.ErrEnrichmentNotFound)
		}

		return nil, persistence.NewRepositoryError("GetByID", "enrichment_request", id, err)
	}

	return request, nil
}

// Update persists a status transition for an existing request.
func (r *EnrichmentRepository) Update(ctx context.Context, request *models.EnrichmentRequest) error {
	responseData, err := json.Marshal(request.ResponseData)
	if err != nil {
		return fmt.Errorf("failed to marshal response data: %w", err)
	}

	query := `
		UPDATE enrichment_requests
		SET status = $2, response_data = $3, error_message = $4,
			duration_ms = $5, updated_at = $6
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		request.ID,
		request.Status,
		responseData,
		request.ErrorMessage,
		request.DurationMs,
		request.UpdatedAt,
	)
	if err != nil {
		return persistence.NewRepositoryError("Update", "enrichment_request", request.ID, err)
	}

	affected, err := result.RowsAffected()
	if err == nil && affected == 0 {
		return persistence.NewRepositoryError("Update", "enrichment_request", request.ID, persistence.ErrEnrichmentNotFound)
	}

	return nil
}

// List returns one keyset-paginated page of requests, newest first.
func (r *EnrichmentRepository) List(ctx context.Context, opts persistence.ListEnrichmentsOptions) (*persistence.EnrichmentPage, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT ` + enrichmentColumns + ` FROM enrichment_requests WHERE company_id = $1`
	args := []any{opts.CompanyID}

	appendArg := func(clause string, value any) {
		args = append(args, value)
		query += fmt.Sprintf(clause, len(args))
	}

	if opts.LeadID != "" {
		appendArg(" AND lead_id = $%d", opts.LeadID)
	}

	if opts.Provider != "" {
		appendArg(" AND provider = $%d", opts.Provider)
	}

	if opts.Status != nil {
		appendArg(" AND status = $%d", *opts.Status)
	}

	if opts.Cursor != "" {
		cursorTime, cursorID, err := persistence.DecodeCursor(opts.Cursor)
		if err != nil {
			return nil, err
		}

		args = append(args, cursorTime, cursorID)
		query += fmt.Sprintf(" AND (created_at, id) < ($%d, $%d)", len(args)-1, len(args))
	}

	args = append(args, limit+1)
	query += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d", len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, persistence.NewRepositoryError("List", "enrichment_request", "", err)
	}
	defer rows.Close()

	requests := make([]*models.EnrichmentRequest, 0, limit)

	for rows.Next() {
		request, err := scanEnrichment(rows)
		if err != nil {
			return nil, persistence.NewRepositoryError("List", "enrichment_request", "", err)
		}

		requests = append(requests, request)
	}

	if err := rows.Err(); err != nil {
		return nil, persistence.NewRepositoryError("List", "enrichment_request", "", err)
	}

	page := &persistence.EnrichmentPage{Data: requests}

	if len(requests) > limit {
		page.Data = requests[:limit]
		last := page.Data[len(page.Data)-1]
		page.NextCursor = persistence.EncodeCursor(last.CreatedAt, last.ID)
	}

	return page, nil
}

// LatestByLead returns the most recent request for a lead.
func (r *EnrichmentRepository) LatestByLead(ctx context.Context, companyID, leadID string) (*models.EnrichmentRequest, error) {
	query := `
		SELECT ` + enrichmentColumns + `
		FROM enrichment_requests
		WHERE company_id = $1 AND lead_id = $2
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`

	request, err := scanEnrichment(r.db.QueryRowContext(ctx, query, companyID, leadID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewRepositoryError("LatestByLead", "enrichment_request", leadID, persistence.ErrEnrichmentNotFound)
		}

		return nil, persistence.NewRepositoryError("LatestByLead", "enrichment_request", leadID, err)
	}

	return request, nil
}

// HasActive reports whether a PENDING or IN_PROGRESS request exists for
// the lead. Callers use it for fast rejection; Create remains the
// authoritative guard.
func (r *EnrichmentRepository) HasActive(ctx context.Context, leadID string) (bool, error) {
	var exists bool

	query := `
		SELECT EXISTS (
			SELECT 1 FROM enrichment_requests
			WHERE lead_id = $1 AND status IN ('PENDING', 'IN_PROGRESS')
		)
	`

	err := r.db.QueryRowContext(ctx, query, leadID).Scan(&exists)
	if err != nil {
		return false, persistence.NewRepositoryError("HasActive", "enrichment_request", leadID, err)
	}

	return exists, nil
}

// Stats aggregates request counts and average duration for a tenant.
func (r *EnrichmentRepository) Stats(ctx context.Context, companyID string) (*persistence.EnrichmentStats, error) {
	stats := &persistence.EnrichmentStats{
		ByStatus:   make(map[models.EnrichmentStatus]int64),
		ByProvider: make(map[string]int64),
	}

	query := `
		SELECT status, provider, COUNT(*),
			COALESCE(AVG(duration_ms) FILTER (WHERE duration_ms > 0), 0)
		FROM enrichment_requests
		WHERE company_id = $1
		GROUP BY status, provider
	`

	rows, err := r.db.QueryContext(ctx, query, companyID)
	if err != nil {
		return nil, persistence.NewRepositoryError("Stats", "enrichment_request", "", err)
	}
	defer rows.Close()

	var weightedDuration float64

	var durationGroups int64

	for rows.Next() {
		var status models.EnrichmentStatus

		var provider string

		var count int64

		var avgDuration float64

		err := rows.Scan(&status, &provider, &count, &avgDuration)
		if err != nil {
			return nil, persistence.NewRepositoryError("Stats", "enrichment_request", "", err)
		}

		stats.Total += count
		stats.ByStatus[status] += count
		stats.ByProvider[provider] += count

		if avgDuration > 0 {
			weightedDuration += avgDuration
			durationGroups++
		}
	}

	if err := rows.Err(); err != nil {
		return nil, persistence.NewRepositoryError("Stats", "enrichment_request", "", err)
	}

	if durationGroups > 0 {
		stats.AverageDurationMs = weightedDuration / float64(durationGroups)
	}

	return stats, nil
}

// StaleInProgress returns IN_PROGRESS requests not updated within the TTL.
func (r *EnrichmentRepository) StaleInProgress(ctx context.Context, olderThan time.Duration) ([]*models.EnrichmentRequest, error) {
	cutoff := time.Now().UTC().Add(-olderThan)

	query := `SELECT ` + enrichmentColumns + ` FROM enrichment_requests WHERE status = 'IN_PROGRESS' AND updated_at < $1`

	rows, err := r.db.QueryContext(ctx, query, cutoff)
	if err != nil {
		return nil, persistence.NewRepositoryError("StaleInProgress", "enrichment_request", "", err)
	}
	defer rows.Close()

	stale := make([]*models.EnrichmentRequest, 0)

	for rows.Next() {
		request, err := scanEnrichment(rows)
		if err != nil {
			return nil, persistence.NewRepositoryError("StaleInProgress", "enrichment_request", "", err)
		}

		stale = append(stale, request)
	}

	if err := rows.Err(); err != nil {
		return nil, persistence.NewRepositoryError("StaleInProgress", "enrichment_request", "", err)
	}

	return stale, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEnrichment(row rowScanner) (*models.EnrichmentRequest, error) {
	var request models.EnrichmentRequest

	var requestData, responseData []byte

	err := row.Scan(
		&request.ID,
		&request.Provider,
		&requestData,
		&responseData,
		&request.Status,
		&request.LeadID,
		&request.CompanyID,
		&request.RetryCount,
		&request.PreviousRequestID,
		&request.ErrorMessage,
		&request.DurationMs,
		&request.CreatedAt,
		&request.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	err = unmarshalJSONColumn(requestData, &request.RequestData)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal request data: %w", err)
	}

	err = unmarshalJSONColumn(responseData, &request.ResponseData)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal response data: %w", err)
	}

	return &request, nil
}

func unmarshalJSONColumn[T any](raw []byte, dst *T) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}

	return json.Unmarshal(raw, dst)
}
