// Package postgresql provides PostgreSQL persistence for workflows,
// executions, agents, and teams.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	// PostgreSQL driver.
	_ "github.com/lib/pq"

	"github.com/usekora/kora/pkg/persistence"
	"github.com/usekora/kora/pkg/persistence/sqlbase"
)

// Persistence implements the persistence layer for PostgreSQL.
type Persistence struct {
	db                 *sql.DB
	logger             *slog.Logger
	workflowRepo       *WorkflowRepository
	executionRepo      *ExecutionRepository
	agentRepo          *AgentRepository
	agentExecutionRepo *AgentExecutionRepository
	teamRepo           *TeamRepository
}

// NewPersistence connects, runs migrations, and returns the persistence
// layer.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())

	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Persistence{
		db:                 database,
		logger:             logger,
		workflowRepo:       NewWorkflowRepository(database),
		executionRepo:      NewExecutionRepository(database),
		agentRepo:          NewAgentRepository(database),
		agentExecutionRepo: NewAgentExecutionRepository(database),
		teamRepo:           NewTeamRepository(database),
	}, nil
}

// Workflows returns the workflow repository.
func (p *Persistence) Workflows() persistence.WorkflowRepository {
	return p.workflowRepo
}

// Executions returns the workflow execution repository.
func (p *Persistence) Executions() persistence.ExecutionRepository {
	return p.executionRepo
}

// Agents returns the agent repository.
func (p *Persistence) Agents() persistence.AgentRepository {
	return p.agentRepo
}

// AgentExecutions returns the execution ledger repository.
func (p *Persistence) AgentExecutions() persistence.AgentExecutionRepository {
	return p.agentExecutionRepo
}

// Teams returns the team repository.
func (p *Persistence) Teams() persistence.TeamRepository {
	return p.teamRepo
}

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (p *Persistence) Close(_ context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}
