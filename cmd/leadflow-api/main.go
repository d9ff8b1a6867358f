package main

import (
	"context"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/leadflowhq/leadflow/pkg/log"
)

const defaultPort = 9091

func main() {
	cmd := &cli.Command{
		Name:                  "leadflow-api",
		Usage:                 "Serve the lead enrichment and translation REST API",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:     "event-bus",
				Usage:    "Event bus type (kafka, gochannel)",
				Required: true,
				Sources:  cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL for the distributed enrichment guard (memory guard when empty)",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.StringFlag{
				Name:    "webhook-api-key",
				Usage:   "Static API key protecting provider callback endpoints",
				Value:   "",
				Sources: cli.EnvVars("WEBHOOK_API_KEY"),
			},
			&cli.StringFlag{
				Name:    "workflow-engine-url",
				Usage:   "Base URL of the workflow engine",
				Sources: cli.EnvVars("WORKFLOW_ENGINE_URL"),
			},
			&cli.StringFlag{
				Name:    "workflow-engine-api-key",
				Usage:   "API key for the workflow engine",
				Sources: cli.EnvVars("WORKFLOW_ENGINE_API_KEY"),
			},
			&cli.StringFlag{
				Name:    "strategies-file",
				Usage:   "Path to a YAML file with custom recovery strategies",
				Sources: cli.EnvVars("STRATEGIES_FILE"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger := log.WithModule("api")
			logger.InfoContext(ctx, "Initializing Leadflow API")

			api := NewAPI(ctx, logger, command)
			defer api.Close(ctx)

			err := api.Start(command.Int("port"))
			if err != nil {
				logger.ErrorContext(ctx, "Failed to start API server", "error", err)
			}

			return nil
		},
	}

	err := cmd.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
