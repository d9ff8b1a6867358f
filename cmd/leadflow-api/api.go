// Package main provides the Leadflow API server implementation.
package main

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	fiberlogger "github.com/gofiber/fiber/v3/middleware/logger"
	cli "github.com/urfave/cli/v3"

	"github.com/leadflowhq/leadflow/pkg/cmd"
	"github.com/leadflowhq/leadflow/pkg/config"
	"github.com/leadflowhq/leadflow/pkg/enrichment"
	"github.com/leadflowhq/leadflow/pkg/eventbus"
	"github.com/leadflowhq/leadflow/pkg/execution"
	"github.com/leadflowhq/leadflow/pkg/persistence"
	"github.com/leadflowhq/leadflow/pkg/providers"
	"github.com/leadflowhq/leadflow/pkg/recovery"
	"github.com/leadflowhq/leadflow/pkg/translation"
	"github.com/leadflowhq/leadflow/pkg/web"
)

type API struct {
	logger        *slog.Logger
	persistence   persistence.Persistence
	registry      *providers.Registry
	eventBus      eventbus.EventBus
	enrichments   *enrichment.Service
	translations  *translation.Service
	executions    *execution.Tracker
	recovery      *recovery.Engine
	webhookAPIKey string
	validate      *validator.Validate
}

func NewAPI(ctx context.Context, logger *slog.Logger, command *cli.Command) *API {
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

	engineClient := execution.NewEngineClient(
		command.String("workflow-engine-url"),
		command.String("workflow-engine-api-key"),
	)
	tracker := execution.NewTracker(logger, store, engineClient)

	tracker.SetBus(eventBus)

	recoveryEngine := recovery.NewEngine(logger, tracker, nil, store, eventBus)
	tracker.SetFailureHandler(recoveryEngine)

	if err := recoveryEngine.LoadDefaults(); err != nil {
		logger.ErrorContext(ctx, "Failed to load default recovery strategies", "error", err)
	}

	if path := command.String("strategies-file"); path != "" {
		strategies, err := config.LoadRecoveryStrategies(path)
		if err != nil {
			logger.ErrorContext(ctx, "Failed to load custom recovery strategies", "error", err)
		}

		for _, strategy := range strategies {
			if err := recoveryEngine.AddStrategy(strategy); err != nil {
				logger.ErrorContext(ctx, "Failed to register custom recovery strategy",
					"strategy_id", strategy.ID, "error", err)
			}
		}
	}

	return &API{
		logger:        logger,
		persistence:   store,
		registry:      registry,
		eventBus:      eventBus,
		enrichments:   enrichments,
		translations:  translations,
		executions:    tracker,
		recovery:      recoveryEngine,
		webhookAPIKey: command.String("webhook-api-key"),
		validate:      validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	handlers := web.NewAPIHandlers(a.logger, a.enrichments, a.translations, a.executions, a.recovery, a.registry, a.validate)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Leadflow API")
	})

	e := app.Group("/enrichments")
	e.Post("/", handlers.TriggerEnrichment)
	e.Get("/stats", handlers.EnrichmentStats)
	e.Get("/", handlers.ListEnrichments)
	e.Get("/:id", handlers.GetEnrichment)
	e.Post("/:id/retry", handlers.RetryEnrichment)

	app.Post("/webhooks/enrichment", handlers.EnrichmentWebhook, web.RequireAPIKey(a.webhookAPIKey))

	ex := app.Group("/executions")
	ex.Post("/", handlers.StartExecution)
	ex.Get("/:id", handlers.GetExecution)

	app.Post("/webhooks/executions", handlers.ExecutionWebhook, web.RequireAPIKey(a.webhookAPIKey))

	tr := app.Group("/translations")
	tr.Post("/", handlers.CreateTranslation)
	tr.Get("/:id", handlers.GetTranslation)
	tr.Post("/:id/retry", handlers.RetryTranslation)

	r := app.Group("/recovery")
	r.Post("/strategies", handlers.CreateRecoveryStrategy)
	r.Get("/strategies", handlers.ListRecoveryStrategies)
	r.Get("/analytics/:workflowId", handlers.RecoveryAnalytics)

	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) Start(port int) error {
	return a.App().Listen(":" + strconv.Itoa(port))
}

func (a *API) Close(ctx context.Context) {
	if err := a.eventBus.Close(); err != nil {
		a.logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
	}

	if err := a.persistence.Close(ctx); err != nil {
		a.logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
	}
}
