package enrichment

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/leadflowhq/leadflow/pkg/models"
	"github.com/leadflowhq/leadflow/pkg/persistence"
)

const defaultStaleAfter = 5 * time.Minute

// Sweeper periodically times out IN_PROGRESS requests whose worker died
// before finalizing them. Without it a crashed worker would hold the
// per-lead guard open forever.
type Sweeper struct {
	logger     *slog.Logger
	service    *Service
	cron       *cron.Cron
	staleAfter time.Duration
}

// NewSweeper creates the stuck-request sweeper.
func NewSweeper(logger *slog.Logger, service *Service, staleAfter time.Duration) *Sweeper {
	if staleAfter <= 0 {
		staleAfter = defaultStaleAfter
	}

	return &Sweeper{
		logger:     logger.With("module", "enrichment-sweeper"),
		service:    service,
		cron:       cron.New(),
		staleAfter: staleAfter,
	}
}

// Start schedules the sweep every minute.
func (s *Sweeper) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc("* * * * *", func() {
		s.Sweep(ctx)
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.InfoContext(ctx, "Stuck enrichment sweeper started", "stale_after", s.staleAfter)

	return nil
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}

// Sweep times out every IN_PROGRESS request older than the threshold.
func (s *Sweeper) Sweep(ctx context.Context) {
	stale, err := s.service.persistence.Enrichments().StaleInProgress(ctx, s.staleAfter)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to list stale requests", "error", err)

		return
	}

	for _, request := range stale {
		_, err := s.service.fail(ctx, request, models.EnrichmentStatusTimeout,
			"enrichment did not finish within "+s.staleAfter.String(), 0)
		if err != nil {
			if persistence.IsEnrichmentNotFound(err) {
				continue
			}

			s.logger.ErrorContext(ctx, "Failed to time out stale request",
				"request_id", request.ID, "error", err)
		}
	}

	if len(stale) > 0 {
		s.logger.WarnContext(ctx, "Timed out stale enrichment requests", "count", len(stale))
	}
}
