// Package memory provides an in-memory persistence backend for tests and
// local development. A single mutex makes the per-lead concurrency guard
// an atomic check-and-insert.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/leadflowhq/leadflow/pkg/models"
	"github.com/leadflowhq/leadflow/pkg/persistence"
)

// Persistence implements persistence.Persistence over maps.
type Persistence struct {
	mu           sync.RWMutex
	enrichments  map[string]*models.EnrichmentRequest
	executions   map[string]*models.WorkflowExecution
	translations map[string]*models.TranslationRequest
	leads        map[string]*models.Lead
	errorHistory []*persistence.ErrorRecord
	auditTrail   []*models.AuditEntry
}

// NewPersistence creates an empty in-memory backend.
func NewPersistence() *Persistence {
	return &Persistence{
		enrichments:  make(map[string]*models.EnrichmentRequest),
		executions:   make(map[string]*models.WorkflowExecution),
		translations: make(map[string]*models.TranslationRequest),
		leads:        make(map[string]*models.Lead),
	}
}

func (p *Persistence) Enrichments() persistence.EnrichmentRepository   { return (*enrichmentRepo)(p) }
func (p *Persistence) Executions() persistence.ExecutionRepository     { return (*executionRepo)(p) }
func (p *Persistence) Translations() persistence.TranslationRepository { return (*translationRepo)(p) }
func (p *Persistence) Leads() persistence.LeadRepository               { return (*leadRepo)(p) }
func (p *Persistence) ErrorHistory() persistence.ErrorHistoryRepository {
	return (*errorHistoryRepo)(p)
}
func (p *Persistence) Audit() persistence.AuditRepository { return (*auditRepo)(p) }

func (p *Persistence) HealthCheck(ctx context.Context) error { return nil }
func (p *Persistence) Close(ctx context.Context) error       { return nil }

// SeedLead inserts a lead directly, for tests.
func (p *Persistence) SeedLead(lead *models.Lead) {
	p.mu.Lock()
	defer p.mu.Unlock()

	copied := *lead
	p.leads[lead.ID] = &copied
}

// AuditEntries returns a snapshot of the audit trail, for tests.
func (p *Persistence) AuditEntries() []*models.AuditEntry {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]*models.AuditEntry, len(p.auditTrail))
	copy(out, p.auditTrail)

	return out
}

type enrichmentRepo Persistence

func (r *enrichmentRepo) Create(ctx context.Context, request *models.EnrichmentRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Guard and insert under one lock so two concurrent triggers cannot
	// both observe "no active request".
	for _, existing := range r.enrichments {
		if existing.LeadID == request.LeadID && existing.Status.IsActive() {
			return persistence.NewRepositoryError("Create", "enrichment_request", request.ID, persistence.ErrActiveEnrichmentExists)
		}
	}

	copied := *request
	r.enrichments[request.ID] = &copied

	return nil
}

func (r *enrichmentRepo) GetByID(ctx context.Context, companyID, id string) (*models.EnrichmentRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	request, ok := r.enrichments[id]
	if !ok || request.CompanyID != companyID {
		return nil, persistence.NewRepositoryError("GetByID", "enrichment_request", id, persistence.ErrEnrichmentNotFound)
	}

	copied := *request

	return &copied, nil
}

func (r *enrichmentRepo) Update(ctx context.Context, request *models.EnrichmentRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.enrichments[request.ID]; !ok {
		return persistence.NewRepositoryError("Update", "enrichment_request", request.ID, persistence.ErrEnrichmentNotFound)
	}

	copied := *request
	r.enrichments[request.ID] = &copied

	return nil
}

func (r *enrichmentRepo) List(ctx context.Context, opts persistence.ListEnrichmentsOptions) (*persistence.EnrichmentPage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matches := make([]*models.EnrichmentRequest, 0)

	for _, request := range r.enrichments {
		if opts.CompanyID != "" && request.CompanyID != opts.CompanyID {
			continue
		}

		if opts.LeadID != "" && request.LeadID != opts.LeadID {
			continue
		}

		if opts.Provider != "" && request.Provider != opts.Provider {
			continue
		}

		if opts.Status != nil && request.Status != *opts.Status {
			continue
		}

		copied := *request
		matches = append(matches, &copied)
	}

	// Newest first, id as tiebreaker, matching the keyset cursor order.
	sort.Slice(matches, func(i, j int) bool {
		if !matches[i].CreatedAt.Equal(matches[j].CreatedAt) {
			return matches[i].CreatedAt.After(matches[j].CreatedAt)
		}

		return matches[i].ID < matches[j].ID
	})

	if opts.Cursor != "" {
		cursorTime, cursorID, err := persistence.DecodeCursor(opts.Cursor)
		if err != nil {
			return nil, err
		}

		filtered := matches[:0]

		for _, request := range matches {
			if request.CreatedAt.Before(cursorTime) ||
				(request.CreatedAt.Equal(cursorTime) && request.ID > cursorID) {
				filtered = append(filtered, request)
			}
		}

		matches = filtered
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}

	page := &persistence.EnrichmentPage{}

	if len(matches) > limit {
		page.Data = matches[:limit]
		last := page.Data[len(page.Data)-1]
		page.NextCursor = persistence.EncodeCursor(last.CreatedAt, last.ID)
	} else {
		page.Data = matches
	}

	return page, nil
}

func (r *enrichmentRepo) LatestByLead(ctx context.Context, companyID, leadID string) (*models.EnrichmentRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var latest *models.EnrichmentRequest

	for _, request := range r.enrichments {
		if request.CompanyID != companyID || request.LeadID != leadID {
			continue
		}

		if latest == nil || request.CreatedAt.After(latest.CreatedAt) {
			latest = request
		}
	}

	if latest == nil {
		return nil, persistence.NewRepositoryError("LatestByLead", "enrichment_request", leadID, persistence.ErrEnrichmentNotFound)
	}

	copied := *latest

	return &copied, nil
}

func (r *enrichmentRepo) HasActive(ctx context.Context, leadID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, request := range r.enrichments {
		if request.LeadID == leadID && request.Status.IsActive() {
			return true, nil
		}
	}

	return false, nil
}

func (r *enrichmentRepo) Stats(ctx context.Context, companyID string) (*persistence.EnrichmentStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := &persistence.EnrichmentStats{
		ByStatus:   make(map[models.EnrichmentStatus]int64),
		ByProvider: make(map[string]int64),
	}

	var durationTotal int64

	var durationCount int64

	for _, request := range r.enrichments {
		if request.CompanyID != companyID {
			continue
		}

		stats.Total++
		stats.ByStatus[request.Status]++
		stats.ByProvider[request.Provider]++

		if request.DurationMs > 0 {
			durationTotal += request.DurationMs
			durationCount++
		}
	}

	if durationCount > 0 {
		stats.AverageDurationMs = float64(durationTotal) / float64(durationCount)
	}

	return stats, nil
}

func (r *enrichmentRepo) StaleInProgress(ctx context.Context, olderThan time.Duration) ([]*models.EnrichmentRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cutoff := time.Now().UTC().Add(-olderThan)
	stale := make([]*models.EnrichmentRequest, 0)

	for _, request := range r.enrichments {
		if request.Status == models.EnrichmentStatusInProgress && request.UpdatedAt.Before(cutoff) {
			copied := *request
			stale = append(stale, &copied)
		}
	}

	return stale, nil
}

type executionRepo Persistence

func (r *executionRepo) Save(ctx context.Context, execution *models.WorkflowExecution) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	copied := *execution
	r.executions[execution.ID] = &copied

	return nil
}

func (r *executionRepo) GetByID(ctx context.Context, id string) (*models.WorkflowExecution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	execution, ok := r.executions[id]
	if !ok {
		return nil, persistence.NewRepositoryError("GetByID", "workflow_execution", id, persistence.ErrExecutionNotFound)
	}

	copied := *execution

	return &copied, nil
}

func (r *executionRepo) ListByWorkflow(ctx context.Context, workflowID string) ([]*models.WorkflowExecution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*models.WorkflowExecution, 0)

	for _, execution := range r.executions {
		if execution.WorkflowID == workflowID {
			copied := *execution
			out = append(out, &copied)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })

	return out, nil
}

type translationRepo Persistence

func (r *translationRepo) Create(ctx context.Context, request *models.TranslationRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	copied := *request
	r.translations[request.ID] = &copied

	return nil
}

func (r *translationRepo) GetByID(ctx context.Context, companyID, id string) (*models.TranslationRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	request, ok := r.translations[id]
	if !ok || request.CompanyID != companyID {
		return nil, persistence.NewRepositoryError("GetByID", "translation_request", id, persistence.ErrTranslationNotFound)
	}

	copied := *request

	return &copied, nil
}

func (r *translationRepo) Update(ctx context.Context, request *models.TranslationRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.translations[request.ID]; !ok {
		return persistence.NewRepositoryError("Update", "translation_request", request.ID, persistence.ErrTranslationNotFound)
	}

	copied := *request
	r.translations[request.ID] = &copied

	return nil
}

type leadRepo Persistence

func (r *leadRepo) GetByID(ctx context.Context, companyID, id string) (*models.Lead, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lead, ok := r.leads[id]
	if !ok || lead.CompanyID != companyID {
		return nil, persistence.NewRepositoryError("GetByID", "lead", id, persistence.ErrLeadNotFound)
	}

	copied := *lead

	return &copied, nil
}

func (r *leadRepo) Save(ctx context.Context, lead *models.Lead) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	copied := *lead
	r.leads[lead.ID] = &copied

	return nil
}

type errorHistoryRepo Persistence

func (r *errorHistoryRepo) Append(ctx context.Context, record *persistence.ErrorRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	copied := *record
	r.errorHistory = append(r.errorHistory, &copied)

	return nil
}

func (r *errorHistoryRepo) ByExecution(ctx context.Context, executionID string) ([]*persistence.ErrorRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*persistence.ErrorRecord, 0)

	for _, record := range r.errorHistory {
		if record.Context.ExecutionID == executionID {
			copied := *record
			out = append(out, &copied)
		}
	}

	return out, nil
}

func (r *errorHistoryRepo) ByWorkflow(ctx context.Context, workflowID string) ([]*persistence.ErrorRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*persistence.ErrorRecord, 0)

	for _, record := range r.errorHistory {
		if record.Context.WorkflowID == workflowID {
			copied := *record
			out = append(out, &copied)
		}
	}

	return out, nil
}

type auditRepo Persistence

func (r *auditRepo) Append(ctx context.Context, entry *models.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	copied := *entry
	r.auditTrail = append(r.auditTrail, &copied)

	return nil
}
