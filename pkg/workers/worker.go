// Package workers consumes lifecycle events from the bus and runs the
// detached asynchronous processing for enrichment and translation.
package workers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/leadflowhq/leadflow/pkg/enrichment"
	"github.com/leadflowhq/leadflow/pkg/eventbus"
	"github.com/leadflowhq/leadflow/pkg/events"
	"github.com/leadflowhq/leadflow/pkg/translation"
)

const (
	defaultWorkerCount = 4
	defaultQueueSize   = 100
)

var (
	// ErrQueueFull signals back-pressure to the bus so the message is
	// redelivered.
	ErrQueueFull = errors.New("worker queue is full")

	// ErrStopped rejects submissions after Stop so the message is
	// redelivered to another instance.
	ErrStopped = errors.New("worker pool is stopped")
)

type job func(ctx context.Context)

// Config tunes the worker pool.
type Config struct {
	WorkerCount int
	QueueSize   int
}

// Worker drives PENDING enrichment and translation requests to their
// terminal status.
type Worker struct {
	id           string
	logger       *slog.Logger
	bus          eventbus.EventBus
	enrichments  *enrichment.Service
	translations *translation.Service

	jobs chan job
	wg   sync.WaitGroup

	mu     sync.Mutex
	closed bool

	workerCount int
}

// NewWorker creates a worker pool draining the event bus.
func NewWorker(logger *slog.Logger, bus eventbus.EventBus, enrichments *enrichment.Service, translations *translation.Service, cfg Config) *Worker {
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = defaultWorkerCount
	}

	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}

	id := "worker-" + uuid.New().String()[:8]

	return &Worker{
		id:           id,
		logger:       logger.With("module", "workers", "worker_id", id),
		bus:          bus,
		enrichments:  enrichments,
		translations: translations,
		jobs:         make(chan job, cfg.QueueSize),
		workerCount:  cfg.WorkerCount,
	}
}

// Start registers the bus handlers and spawns the pool.
func (w *Worker) Start(ctx context.Context) error {
	if err := w.bus.Handle(events.EnrichmentRequestedEvent, w.handleEnrichmentRequested); err != nil {
		return err
	}

	if err := w.bus.Handle(events.TranslationRequestedEvent, w.handleTranslationRequested); err != nil {
		return err
	}

	if err := w.bus.Subscribe(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to event bus: %w", err)
	}

	for i := range w.workerCount {
		w.wg.Add(1)

		go w.run(ctx, i)
	}

	w.logger.InfoContext(ctx, "Worker pool started", "workers", w.workerCount)

	return nil
}

// Stop drains the queue and waits for in-flight jobs to finish. The
// closed flag keeps a racing submit from sending on the closed queue.
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.jobs)
	}
	w.mu.Unlock()

	w.wg.Wait()
	w.logger.Info("Worker pool stopped")
}

func (w *Worker) run(ctx context.Context, index int) {
	defer w.wg.Done()

	for j := range w.jobs {
		w.execute(ctx, index, j)
	}
}

// execute runs one job behind a panic boundary. A panicking task must
// never take the worker down.
func (w *Worker) execute(ctx context.Context, index int, j job) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.ErrorContext(ctx, "Job panicked", "worker", index, "panic", r)
		}
	}()

	j(ctx)
}

// submit enqueues a job, reporting back-pressure instead of blocking the
// bus consumer.
func (w *Worker) submit(j job) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrStopped
	}

	select {
	case w.jobs <- j:
		return nil
	default:
		return ErrQueueFull
	}
}

func (w *Worker) handleEnrichmentRequested(_ context.Context, event any) error {
	requested, ok := event.(*events.EnrichmentRequested)
	if !ok {
		return fmt.Errorf("unexpected event payload %T", event)
	}

	return w.submit(func(ctx context.Context) {
		_, err := w.enrichments.Process(ctx, requested.CompanyID, requested.RequestID)
		if err != nil {
			// Redeliveries of already-processed requests are expected;
			// anything else is logged and swallowed so the pool keeps
			// draining.
			if errors.Is(err, enrichment.ErrRequestNotProcessable) {
				return
			}

			w.logger.ErrorContext(ctx, "Enrichment processing failed",
				"request_id", requested.RequestID, "error", err)
		}
	})
}

func (w *Worker) handleTranslationRequested(_ context.Context, event any) error {
	requested, ok := event.(*events.TranslationRequested)
	if !ok {
		return fmt.Errorf("unexpected event payload %T", event)
	}

	return w.submit(func(ctx context.Context) {
		_, err := w.translations.Process(ctx, requested.CompanyID, requested.RequestID)
		if err != nil {
			if errors.Is(err, translation.ErrRequestNotProcessable) {
				return
			}

			w.logger.ErrorContext(ctx, "Translation processing failed",
				"request_id", requested.RequestID, "error", err)
		}
	})
}
