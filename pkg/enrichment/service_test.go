package enrichment_test

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadflowhq/leadflow/pkg/enrichment"
	"github.com/leadflowhq/leadflow/pkg/models"
	"github.com/leadflowhq/leadflow/pkg/persistence/memory"
	"github.com/leadflowhq/leadflow/pkg/providers"
)

type fakeProvider struct {
	id        string
	canHandle bool
	available bool
	result    *providers.Result
	enrichErr error
}

func (f *fakeProvider) ID() string { return f.id }

func (f *fakeProvider) CanHandle(request *models.EnrichmentRequest) bool { return f.canHandle }

func (f *fakeProvider) Enrich(ctx context.Context, request *models.EnrichmentRequest) (*providers.Result, error) {
	return f.result, f.enrichErr
}

func (f *fakeProvider) IsAvailable(ctx context.Context) bool { return f.available }

func (f *fakeProvider) Config() map[string]any { return nil }

type fakeFactory struct {
	provider *fakeProvider
}

func (f *fakeFactory) ID() string { return f.provider.id }

func (f *fakeFactory) Create(config map[string]any) (providers.Provider, error) {
	return f.provider, nil
}

type fixture struct {
	service     *enrichment.Service
	persistence *memory.Persistence
	provider    *fakeProvider
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	provider := &fakeProvider{
		id:        "apollo",
		canHandle: true,
		available: true,
		result: &providers.Result{
			Success:    true,
			Data:       map[string]any{"full_name": "Ada Lovelace", "job_title": "CTO"},
			DurationMs: 42,
		},
	}

	registry := providers.NewRegistry(slog.New(slog.DiscardHandler))
	registry.Register(&fakeFactory{provider: provider})

	store := memory.NewPersistence()
	store.SeedLead(&models.Lead{
		ID:        "lead-1",
		CompanyID: "company-1",
		Email:     "ada@example.com",
	})

	service := enrichment.NewService(enrichment.Config{
		Logger:      slog.New(slog.DiscardHandler),
		Persistence: store,
		Registry:    registry,
		Guard:       enrichment.NewMemoryGuard(time.Minute),
	})

	return &fixture{service: service, persistence: store, provider: provider}
}

func trigger(t *testing.T, f *fixture) *models.EnrichmentRequest {
	t.Helper()

	request, err := f.service.Trigger(context.Background(), enrichment.TriggerRequest{
		CompanyID:   "company-1",
		LeadID:      "lead-1",
		Provider:    "apollo",
		RequestData: map[string]any{"email": "ada@example.com"},
	})
	require.NoError(t, err)

	return request
}

func TestTriggerAndProcess_Success(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	request := trigger(t, f)
	assert.Equal(t, models.EnrichmentStatusPending, request.Status)

	done, err := f.service.Process(ctx, "company-1", request.ID)
	require.NoError(t, err)

	assert.Equal(t, models.EnrichmentStatusSuccess, done.Status)
	assert.Equal(t, "Ada Lovelace", done.ResponseData["full_name"])
	assert.Equal(t, int64(42), done.DurationMs)

	lead, err := f.persistence.Leads().GetByID(ctx, "company-1", "lead-1")
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", lead.FullName)
	assert.Equal(t, "CTO", lead.JobTitle)
	assert.NotNil(t, lead.EnrichedAt)
}

func TestTrigger_UnknownLead(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Trigger(context.Background(), enrichment.TriggerRequest{
		CompanyID:   "company-1",
		LeadID:      "lead-unknown",
		Provider:    "apollo",
		RequestData: map[string]any{"email": "x@example.com"},
	})
	assert.ErrorIs(t, err, enrichment.ErrLeadNotFound)
}

func TestTrigger_UnknownProviderFailsFast(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Trigger(context.Background(), enrichment.TriggerRequest{
		CompanyID:   "company-1",
		LeadID:      "lead-1",
		Provider:    "unknown",
		RequestData: map[string]any{"email": "ada@example.com"},
	})
	assert.ErrorIs(t, err, providers.ErrProviderNotSupported)
}

func TestTrigger_ProviderCannotHandle(t *testing.T) {
	f := newFixture(t)
	f.provider.canHandle = false

	_, err := f.service.Trigger(context.Background(), enrichment.TriggerRequest{
		CompanyID:   "company-1",
		LeadID:      "lead-1",
		Provider:    "apollo",
		RequestData: map[string]any{},
	})
	assert.ErrorIs(t, err, enrichment.ErrProviderCannotHandle)
}

func TestTrigger_SecondTriggerConflicts(t *testing.T) {
	f := newFixture(t)

	trigger(t, f)

	_, err := f.service.Trigger(context.Background(), enrichment.TriggerRequest{
		CompanyID:   "company-1",
		LeadID:      "lead-1",
		Provider:    "apollo",
		RequestData: map[string]any{"email": "ada@example.com"},
	})
	assert.ErrorIs(t, err, enrichment.ErrAlreadyEnriching)
	assert.True(t, enrichment.IsConflictError(err))
}

func TestTrigger_ConcurrentTriggersAdmitExactlyOne(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const attempts = 16

	var wg sync.WaitGroup

	errs := make([]error, attempts)

	for i := range attempts {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, errs[i] = f.service.Trigger(ctx, enrichment.TriggerRequest{
				CompanyID:   "company-1",
				LeadID:      "lead-1",
				Provider:    "apollo",
				RequestData: map[string]any{"email": "ada@example.com"},
			})
		}()
	}

	wg.Wait()

	admitted := 0

	for _, err := range errs {
		if err == nil {
			admitted++
		} else {
			assert.ErrorIs(t, err, enrichment.ErrAlreadyEnriching)
		}
	}

	assert.Equal(t, 1, admitted)
}

func TestProcess_FailureIsTerminalAndReleasesLead(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.provider.result = &providers.Result{ErrorMessage: "no match found", DurationMs: 10}

	request := trigger(t, f)

	failed, err := f.service.Process(ctx, "company-1", request.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EnrichmentStatusFailed, failed.Status)
	assert.Equal(t, "no match found", failed.ErrorMessage)

	// Terminal failure frees the lead for a fresh trigger.
	_, err = f.service.Trigger(ctx, enrichment.TriggerRequest{
		CompanyID:   "company-1",
		LeadID:      "lead-1",
		Provider:    "apollo",
		RequestData: map[string]any{"email": "ada@example.com"},
	})
	assert.NoError(t, err)
}

func TestProcess_TimeoutStatus(t *testing.T) {
	f := newFixture(t)

	f.provider.result = &providers.Result{ErrorMessage: "context deadline exceeded", TimedOut: true}

	request := trigger(t, f)

	done, err := f.service.Process(context.Background(), "company-1", request.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EnrichmentStatusTimeout, done.Status)
}

func TestProcess_TerminalRequestIsSticky(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	request := trigger(t, f)

	_, err := f.service.Process(ctx, "company-1", request.ID)
	require.NoError(t, err)

	_, err = f.service.Process(ctx, "company-1", request.ID)
	assert.ErrorIs(t, err, enrichment.ErrRequestNotProcessable)
}

func TestRetry_CreatesNewRequestInChain(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.provider.result = &providers.Result{ErrorMessage: "boom"}

	request := trigger(t, f)
	_, err := f.service.Process(ctx, "company-1", request.ID)
	require.NoError(t, err)

	f.provider.result = &providers.Result{Success: true, Data: map[string]any{"full_name": "Ada"}}

	next, err := f.service.Retry(ctx, enrichment.RetryRequest{
		CompanyID:            "company-1",
		RequestID:            request.ID,
		RequestDataOverrides: map[string]any{"email": "ada@corrected.com"},
	})
	require.NoError(t, err)

	assert.NotEqual(t, request.ID, next.ID)
	assert.Equal(t, request.ID, next.PreviousRequestID)
	assert.Equal(t, 1, next.RetryCount)
	assert.Equal(t, models.EnrichmentStatusPending, next.Status)
	assert.Equal(t, "ada@corrected.com", next.RequestData["email"])

	// Original record is untouched.
	original, err := f.service.Get(ctx, "company-1", request.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EnrichmentStatusFailed, original.Status)
}

func TestRetry_OnlyFromFailed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	request := trigger(t, f)
	_, err := f.service.Process(ctx, "company-1", request.ID)
	require.NoError(t, err)

	_, err = f.service.Retry(ctx, enrichment.RetryRequest{
		CompanyID: "company-1",
		RequestID: request.ID,
	})
	assert.ErrorIs(t, err, enrichment.ErrRetryNotAllowed)
}

func TestRetry_MaxRetriesExceeded(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.provider.result = &providers.Result{ErrorMessage: "boom"}

	request := trigger(t, f)

	for range models.MaxEnrichmentRetries {
		_, err := f.service.Process(ctx, "company-1", request.ID)
		require.NoError(t, err)

		request, err = f.service.Retry(ctx, enrichment.RetryRequest{
			CompanyID: "company-1",
			RequestID: request.ID,
		})
		require.NoError(t, err)
	}

	_, err := f.service.Process(ctx, "company-1", request.ID)
	require.NoError(t, err)

	_, err = f.service.Retry(ctx, enrichment.RetryRequest{
		CompanyID: "company-1",
		RequestID: request.ID,
	})
	assert.ErrorIs(t, err, enrichment.ErrMaxRetriesExceeded)
}

func TestCompleteViaWebhook_Success(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	request := trigger(t, f)

	done, err := f.service.CompleteViaWebhook(ctx, enrichment.WebhookPayload{
		LeadID:     "lead-1",
		CompanyID:  "company-1",
		Provider:   "apollo",
		Status:     "success",
		Data:       map[string]any{"full_name": "Ada Lovelace"},
		DurationMs: 1200,
	})
	require.NoError(t, err)

	assert.Equal(t, request.ID, done.ID)
	assert.Equal(t, models.EnrichmentStatusSuccess, done.Status)

	lead, err := f.persistence.Leads().GetByID(ctx, "company-1", "lead-1")
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", lead.FullName)
}

func TestCompleteViaWebhook_NoActiveRequest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	request := trigger(t, f)
	_, err := f.service.Process(ctx, "company-1", request.ID)
	require.NoError(t, err)

	_, err = f.service.CompleteViaWebhook(ctx, enrichment.WebhookPayload{
		LeadID:    "lead-1",
		CompanyID: "company-1",
		Status:    "success",
	})
	assert.ErrorIs(t, err, enrichment.ErrNoActiveRequest)
}

func TestStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	request := trigger(t, f)
	_, err := f.service.Process(ctx, "company-1", request.ID)
	require.NoError(t, err)

	stats, err := f.service.Stats(ctx, "company-1")
	require.NoError(t, err)

	assert.Equal(t, int64(1), stats.Total)
	assert.Equal(t, int64(1), stats.ByStatus[models.EnrichmentStatusSuccess])
	assert.Equal(t, int64(1), stats.ByProvider["apollo"])
	assert.InDelta(t, 42, stats.AverageDurationMs, 0.01)
}

func TestTrigger_SeedsRequestDataFromLead(t *testing.T) {
	f := newFixture(t)

	request, err := f.service.Trigger(context.Background(), enrichment.TriggerRequest{
		CompanyID: "company-1",
		LeadID:    "lead-1",
		Provider:  "apollo",
	})
	require.NoError(t, err)

	assert.Equal(t, models.EnrichmentStatusPending, request.Status)
	assert.Equal(t, "ada@example.com", request.RequestData["email"])
}

func TestTrigger_CallerDataWinsOverLeadFields(t *testing.T) {
	f := newFixture(t)

	request, err := f.service.Trigger(context.Background(), enrichment.TriggerRequest{
		CompanyID:   "company-1",
		LeadID:      "lead-1",
		Provider:    "apollo",
		RequestData: map[string]any{"email": "override@example.com", "domain": "example.com"},
	})
	require.NoError(t, err)

	assert.Equal(t, "override@example.com", request.RequestData["email"])
	assert.Equal(t, "example.com", request.RequestData["domain"])
}

func TestRetry_SeedsRequestDataFromLead(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.provider.result = &providers.Result{ErrorMessage: "boom"}

	request, err := f.service.Trigger(ctx, enrichment.TriggerRequest{
		CompanyID: "company-1",
		LeadID:    "lead-1",
		Provider:  "apollo",
	})
	require.NoError(t, err)

	_, err = f.service.Process(ctx, "company-1", request.ID)
	require.NoError(t, err)

	next, err := f.service.Retry(ctx, enrichment.RetryRequest{
		CompanyID: "company-1",
		RequestID: request.ID,
	})
	require.NoError(t, err)

	assert.Equal(t, "ada@example.com", next.RequestData["email"])
}

func TestCompleteViaWebhook_WritesAuditTrail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	trigger(t, f)

	_, err := f.service.CompleteViaWebhook(ctx, enrichment.WebhookPayload{
		LeadID:    "lead-1",
		CompanyID: "company-1",
		Provider:  "apollo",
		Status:    "failed",
		Error:     "no match found",
	})
	require.NoError(t, err)

	// The failure released the lead, so a fresh trigger can complete.
	trigger(t, f)

	_, err = f.service.CompleteViaWebhook(ctx, enrichment.WebhookPayload{
		LeadID:    "lead-1",
		CompanyID: "company-1",
		Provider:  "apollo",
		Status:    "success",
		Data:      map[string]any{"full_name": "Ada Lovelace"},
	})
	require.NoError(t, err)

	var actions []string
	for _, entry := range f.persistence.AuditEntries() {
		actions = append(actions, entry.Action)
	}

	assert.Equal(t, []string{
		"enrichment.triggered",
		"enrichment.webhook_failed",
		"enrichment.triggered",
		"enrichment.webhook_completed",
	}, actions)
}

func TestTrigger_WritesAuditTrail(t *testing.T) {
	f := newFixture(t)

	request := trigger(t, f)

	entries := f.persistence.AuditEntries()
	require.Len(t, entries, 1)
	assert.Equal(t, "enrichment.triggered", entries[0].Action)
	assert.Equal(t, request.ID, entries[0].EntityID)
	assert.Equal(t, "system", entries[0].Actor)
}
