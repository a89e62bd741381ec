// Package main provides the Kora dispatch worker.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"

	"github.com/usekora/kora/pkg/cmd"
	"github.com/usekora/kora/pkg/ledger"
	"github.com/usekora/kora/pkg/log"
	"github.com/usekora/kora/pkg/otelhelper"
	"github.com/usekora/kora/pkg/tools"
)

func main() {
	command := &cli.Command{
		Name:                  "kora-worker",
		EnableShellCompletion: true,
		Usage:                 "Start workers to run dispatched agent jobs",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "worker-id",
				Aliases: []string{"id"},
				Usage:   "Custom worker ID (auto-generated if not provided)",
				Value:   "",
				Sources: cli.EnvVars("WORKER_ID"),
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
				Name:     "llm-api-url",
				Usage:    "Base URL of the OpenAI-compatible completion endpoint",
				Required: true,
				Sources:  cli.EnvVars("LLM_API_URL"),
			},
			&cli.StringFlag{
				Name:    "llm-api-key",
				Usage:   "API key for the completion endpoint",
				Sources: cli.EnvVars("LLM_API_KEY"),
			},
			&cli.StringFlag{
				Name:    "llm-model",
				Usage:   "Model identifier for agent runs",
				Value:   "gpt-4o-mini",
				Sources: cli.EnvVars("LLM_MODEL"),
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

			workerID := command.String("worker-id")
			if workerID == "" {
				workerID = "worker-" + uuid.New().String()[:8]
			}

			logger := log.WithModule("kora-worker").With("worker_id", workerID)
			logger.InfoContext(ctx, "Initializing Kora Worker")

			tracer, err := otelhelper.NewTracer(ctx, "kora-worker")
			if err != nil {
				logger.WarnContext(ctx, "Tracing disabled", "error", err)
			}

			eventBus := cmd.NewEventBus(command.String("event-bus"), "kora-worker", logger)
			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			persist := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			defer func() {
				if err := persist.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			registry := cmd.NewToolRegistry(logger, persist.Agents(), tools.NewInMemoryWorkspaceStore())
			runtime := cmd.NewAgentRuntime(logger, registry,
				command.String("llm-api-url"),
				command.String("llm-api-key"),
				command.String("llm-model"),
			)

			worker := ledger.NewWorker(workerID, persist, runtime, eventBus, logger)
			if tracer != nil {
				worker = worker.WithTracer(tracer)
			}

			runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := worker.Start(runCtx); err != nil {
				logger.ErrorContext(ctx, "Failed to start worker", "error", err)

				return err
			}

			logger.InfoContext(ctx, "Worker started, waiting for jobs")
			<-runCtx.Done()
			logger.InfoContext(ctx, "Shutting down worker")

			return nil
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
