// Package persistence provides the data storage abstraction for
// enrichment requests, workflow executions, translations and leads.
package persistence

import (
	"context"
	"time"

	"github.com/leadflowhq/leadflow/pkg/models"
)

// ListEnrichmentsOptions filters and paginates enrichment listings. All
// listings are tenant-scoped.
type ListEnrichmentsOptions struct {
	CompanyID string
	LeadID    string
	Provider  string
	Status    *models.EnrichmentStatus

	// Cursor is an opaque keyset cursor returned by a previous page.
	Cursor string
	Limit  int
}

// EnrichmentPage is one page of enrichment requests.
type EnrichmentPage struct {
	Data       []*models.EnrichmentRequest `json:"data"`
	NextCursor string                      `json:"next_cursor,omitempty"`
}

// EnrichmentStats aggregates request counts and durations for a tenant.
type EnrichmentStats struct {
	Total             int64                             `json:"total"`
	ByStatus          map[models.EnrichmentStatus]int64 `json:"by_status"`
	ByProvider        map[string]int64                  `json:"by_provider"`
	AverageDurationMs float64                           `json:"average_duration_ms"`
}

// EnrichmentRepository stores enrichment requests. Create must enforce the
// per-lead concurrency guard atomically: at most one request per lead may
// be PENDING or IN_PROGRESS, otherwise ErrActiveEnrichmentExists.
type EnrichmentRepository interface {
	Create(ctx context.Context, request *models.EnrichmentRequest) error
	GetByID(ctx context.Context, companyID, id string) (*models.EnrichmentRequest, error)
	Update(ctx context.Context, request *models.EnrichmentRequest) error
	List(ctx context.Context, opts ListEnrichmentsOptions) (*EnrichmentPage, error)
	LatestByLead(ctx context.Context, companyID, leadID string) (*models.EnrichmentRequest, error)
	HasActive(ctx context.Context, leadID string) (bool, error)
	Stats(ctx context.Context, companyID string) (*EnrichmentStats, error)
	StaleInProgress(ctx context.Context, olderThan time.Duration) ([]*models.EnrichmentRequest, error)
}

// ExecutionRepository stores workflow execution records.
type ExecutionRepository interface {
	Save(ctx context.Context, execution *models.WorkflowExecution) error
	GetByID(ctx context.Context, id string) (*models.WorkflowExecution, error)
	ListByWorkflow(ctx context.Context, workflowID string) ([]*models.WorkflowExecution, error)
}

// TranslationRepository stores audience translation requests.
type TranslationRepository interface {
	Create(ctx context.Context, request *models.TranslationRequest) error
	GetByID(ctx context.Context, companyID, id string) (*models.TranslationRequest, error)
	Update(ctx context.Context, request *models.TranslationRequest) error
}

// LeadRepository reads and writes the lead records enrichment targets.
type LeadRepository interface {
	GetByID(ctx context.Context, companyID, id string) (*models.Lead, error)
	Save(ctx context.Context, lead *models.Lead) error
}

// ErrorRecord is one append-only error history entry for a workflow
// execution, including what the recovery engine decided about it.
type ErrorRecord struct {
	Context    models.ErrorContext `json:"context"`
	StrategyID string              `json:"strategy_id,omitempty"`
	Recovered  bool                `json:"recovered"`
	RecordedAt time.Time           `json:"recorded_at"`
}

// ErrorHistoryRepository is the append-only error history sink.
type ErrorHistoryRepository interface {
	Append(ctx context.Context, record *ErrorRecord) error
	ByExecution(ctx context.Context, executionID string) ([]*ErrorRecord, error)
	ByWorkflow(ctx context.Context, workflowID string) ([]*ErrorRecord, error)
}

// AuditRepository is the append-only audit trail sink.
type AuditRepository interface {
	Append(ctx context.Context, entry *models.AuditEntry) error
}

// Persistence bundles the repositories behind one backend.
type Persistence interface {
	Enrichments() EnrichmentRepository
	Executions() ExecutionRepository
	Translations() TranslationRepository
	Leads() LeadRepository
	ErrorHistory() ErrorHistoryRepository
	Audit() AuditRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}
