// Package main provides the Kora workflow scheduler.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	cli "github.com/urfave/cli/v3"

	"github.com/usekora/kora/pkg/cmd"
	"github.com/usekora/kora/pkg/log"
	"github.com/usekora/kora/pkg/tools"
	"github.com/usekora/kora/pkg/workflow"
)

func main() {
	command := &cli.Command{
		Name:                  "kora-scheduler",
		EnableShellCompletion: true,
		Usage:                 "Trigger schedule workflows on their cron expressions",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (kafka, gochannel)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
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

			logger := log.WithModule("kora-scheduler")
			logger.InfoContext(ctx, "Initializing Kora Scheduler")

			eventBus := cmd.NewEventBus(command.String("event-bus"), "kora-scheduler", logger)
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

			runner := workflow.NewRuntimeRunner(runtime, persist.Agents())
			executor := workflow.NewExecutor(persist, runner, eventBus, logger)

			scheduler := NewScheduler(persist, executor, logger)

			runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			return scheduler.Start(runCtx)
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
