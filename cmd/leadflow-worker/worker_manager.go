package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	cli "github.com/urfave/cli/v3"

	"github.com/leadflowhq/leadflow/pkg/cmd"
	"github.com/leadflowhq/leadflow/pkg/enrichment"
	"github.com/leadflowhq/leadflow/pkg/eventbus"
	"github.com/leadflowhq/leadflow/pkg/otelhelper"
	"github.com/leadflowhq/leadflow/pkg/persistence"
	"github.com/leadflowhq/leadflow/pkg/translation"
	"github.com/leadflowhq/leadflow/pkg/workers"
)

// WorkerManager owns the worker pool lifecycle: the event bus
// subscription, the stale request sweeper and graceful shutdown.
type WorkerManager struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	eventBus    eventbus.EventBus
	worker      *workers.Worker
	sweeper     *enrichment.Sweeper
}

func NewWorkerManager(ctx context.Context, logger *slog.Logger, command *cli.Command) *WorkerManager {
	store := cmd.NewPersistence(ctx, logger, command.String("database-url"))
	registry := cmd.NewProviderRegistry(logger)
	eventBus := cmd.NewEventBus(command.String("event-bus"), logger)

	enrichments := enrichment.NewService(enrichment.Config{
		Logger:          logger,
		Persistence:     store,
		Registry:        registry,
		ProviderConfigs: cmd.ProviderConfigsFromEnv(),
		Bus:             eventBus,
		Guard:           cmd.NewActiveGuard(command.String("redis-url"), 0),
	})

	pipeline := translation.NewPipeline(cmd.NewFreeTextInterpreter(ctx, logger), translation.Config{})
	translations := translation.NewService(logger, store, pipeline, eventBus)

	worker := workers.NewWorker(logger, eventBus, enrichments, translations, workers.Config{
		WorkerCount: command.Int("workers"),
	})

	return &WorkerManager{
		logger:      logger,
		persistence: store,
		eventBus:    eventBus,
		worker:      worker,
		sweeper:     enrichment.NewSweeper(logger, enrichments, 0),
	}
}

// Run starts the pool and blocks until SIGINT or SIGTERM.
func (m *WorkerManager) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	tracerProvider, err := otelhelper.InitTracer(ctx, "leadflow-worker")
	if err != nil {
		m.logger.ErrorContext(ctx, "Failed to initialize tracer", "error", err)
	} else {
		defer func() {
			if err := tracerProvider.Shutdown(ctx); err != nil {
				m.logger.ErrorContext(ctx, "Failed to shutdown tracer provider", "error", err)
			}
		}()
	}

	if err := m.worker.Start(ctx); err != nil {
		return err
	}

	if err := m.sweeper.Start(ctx); err != nil {
		return err
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	<-sigChan
	m.logger.InfoContext(ctx, "Shutting down worker...")

	cancel()
	m.sweeper.Stop()
	m.worker.Stop()

	if err := m.eventBus.Close(); err != nil {
		m.logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
	}

	if err := m.persistence.Close(ctx); err != nil {
		m.logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
	}

	return nil
}
