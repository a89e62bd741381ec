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

	"github.com/usekora/kora/pkg/cmd"
	"github.com/usekora/kora/pkg/ledger"
	"github.com/usekora/kora/pkg/team"
	"github.com/usekora/kora/pkg/tools"
	"github.com/usekora/kora/pkg/web"
	"github.com/usekora/kora/pkg/workflow"
)

// API wires persistence, the event bus, and the execution services into the
// fiber application.
type API struct {
	logger   *slog.Logger
	handlers *web.APIHandlers
}

// NewAPI builds the API from CLI configuration.
func NewAPI(ctx context.Context, logger *slog.Logger, command *cli.Command) *API {
	persist := cmd.NewPersistence(ctx, logger, command.String("database-url"))
	eventBus := cmd.NewEventBus(command.String("event-bus"), "kora-api", logger)

	registry := cmd.NewToolRegistry(logger, persist.Agents(), tools.NewInMemoryWorkspaceStore())
	runtime := cmd.NewAgentRuntime(logger, registry,
		command.String("llm-api-url"),
		command.String("llm-api-key"),
		command.String("llm-model"),
	)

	runner := workflow.NewRuntimeRunner(runtime, persist.Agents())
	executor := workflow.NewExecutor(persist, runner, eventBus, logger)
	dispatch := ledger.NewLedger(persist, eventBus, cmd.NewIdempotencyStore(command.String("redis-url")), logger)
	coordinator := team.NewCoordinator(persist, runtime, logger)

	handlers := web.NewAPIHandlers(persist, executor, dispatch, coordinator,
		validator.New(validator.WithRequiredStructEnabled()))

	return &API{
		logger:   logger,
		handlers: handlers,
	}
}

// App builds the fiber application with all routes registered.
func (a *API) App() *fiber.App {
	app := fiber.New()
	app.Use(cors.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Kora API")
	})

	w := app.Group("/workflows")
	w.Get("/", a.handlers.GetWorkflows)
	w.Post("/", a.handlers.CreateWorkflow)
	w.Get("/:id", a.handlers.GetWorkflow)
	w.Patch("/:id", a.handlers.UpdateWorkflow)
	w.Delete("/:id", a.handlers.DeleteWorkflow)
	w.Post("/:id/executions", a.handlers.TriggerWorkflow)
	w.Get("/:id/executions", a.handlers.GetWorkflowExecutions)

	app.Get("/executions/:id", a.handlers.GetExecution)

	ag := app.Group("/agents")
	ag.Get("/", a.handlers.GetAgents)
	ag.Post("/", a.handlers.CreateAgent)
	ag.Get("/:id", a.handlers.GetAgent)
	ag.Patch("/:id", a.handlers.UpdateAgent)
	ag.Delete("/:id", a.handlers.DeleteAgent)
	ag.Post("/:id/executions", a.handlers.RunAgent)
	ag.Get("/:id/executions", a.handlers.GetAgentExecutions)

	app.Get("/agent-executions/:id", a.handlers.GetAgentExecution)

	t := app.Group("/teams")
	t.Get("/", a.handlers.GetTeams)
	t.Post("/", a.handlers.CreateTeam)
	t.Get("/:id", a.handlers.GetTeam)
	t.Patch("/:id", a.handlers.UpdateTeam)
	t.Delete("/:id", a.handlers.DeleteTeam)
	t.Post("/:id/runs", a.handlers.RunTeam)

	app.Get("/health", a.handlers.HealthCheck)

	return app
}

// Start runs the HTTP server.
func (a *API) Start(port int) error {
	return a.App().Listen(":" + strconv.Itoa(port))
}
