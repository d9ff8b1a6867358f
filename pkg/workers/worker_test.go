package workers

import (
	"context"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadflowhq/leadflow/pkg/channels/gochannel"
	"github.com/leadflowhq/leadflow/pkg/enrichment"
	"github.com/leadflowhq/leadflow/pkg/eventbus"
	"github.com/leadflowhq/leadflow/pkg/models"
	"github.com/leadflowhq/leadflow/pkg/persistence/memory"
	"github.com/leadflowhq/leadflow/pkg/providers"
	"github.com/leadflowhq/leadflow/pkg/translation"
)

type instantProvider struct {
	calls atomic.Int64
}

func (p *instantProvider) ID() string { return "apollo" }

func (p *instantProvider) CanHandle(*models.EnrichmentRequest) bool { return true }

func (p *instantProvider) Enrich(context.Context, *models.EnrichmentRequest) (*providers.Result, error) {
	p.calls.Add(1)

	return &providers.Result{Success: true, Data: map[string]any{"full_name": "Ada"}}, nil
}

func (p *instantProvider) IsAvailable(context.Context) bool { return true }

func (p *instantProvider) Config() map[string]any { return nil }

type instantFactory struct {
	provider *instantProvider
}

func (f *instantFactory) ID() string { return "apollo" }

func (f *instantFactory) Create(map[string]any) (providers.Provider, error) {
	return f.provider, nil
}

func TestWorker_ProcessesEnrichmentEndToEnd(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)

	pub, sub, err := gochannel.CreateTestChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub)

	store := memory.NewPersistence()
	store.SeedLead(&models.Lead{ID: "lead-1", CompanyID: "company-1", Email: "ada@example.com"})

	provider := &instantProvider{}
	registry := providers.NewRegistry(logger)
	registry.Register(&instantFactory{provider: provider})

	enrichments := enrichment.NewService(enrichment.Config{
		Logger:      logger,
		Persistence: store,
		Registry:    registry,
		Bus:         bus,
	})

	translations := translation.NewService(logger, store,
		translation.NewPipeline(translation.NewKeywordInterpreter(), translation.Config{}), bus)

	worker := NewWorker(logger, bus, enrichments, translations, Config{WorkerCount: 2})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, worker.Start(ctx))

	request, err := enrichments.Trigger(ctx, enrichment.TriggerRequest{
		CompanyID:   "company-1",
		LeadID:      "lead-1",
		Provider:    "apollo",
		RequestData: map[string]any{"email": "ada@example.com"},
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		loaded, err := enrichments.Get(ctx, "company-1", request.ID)

		return err == nil && loaded.Status == models.EnrichmentStatusSuccess
	}, 3*time.Second, 10*time.Millisecond)

	assert.Equal(t, int64(1), provider.calls.Load())

	worker.Stop()
}

func TestWorker_SubmitReportsBackPressure(t *testing.T) {
	worker := NewWorker(slog.New(slog.DiscardHandler), nil, nil, nil, Config{QueueSize: 1})

	require.NoError(t, worker.submit(func(context.Context) {}))
	assert.ErrorIs(t, worker.submit(func(context.Context) {}), ErrQueueFull)
}

func TestWorker_SubmitAfterStopIsRejected(t *testing.T) {
	worker := NewWorker(slog.New(slog.DiscardHandler), nil, nil, nil, Config{WorkerCount: 1, QueueSize: 4})

	worker.Stop()

	assert.ErrorIs(t, worker.submit(func(context.Context) {}), ErrStopped)
}

func TestWorker_PanicDoesNotKillPool(t *testing.T) {
	worker := NewWorker(slog.New(slog.DiscardHandler), nil, nil, nil, Config{WorkerCount: 1, QueueSize: 4})

	worker.wg.Add(1)

	go worker.run(context.Background(), 0)

	done := make(chan struct{})

	require.NoError(t, worker.submit(func(context.Context) { panic("boom") }))
	require.NoError(t, worker.submit(func(context.Context) { close(done) }))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker stopped processing after a panic")
	}

	worker.Stop()
}
