// Package persistence provides the data storage abstraction layer for
// workflows, executions, agents, and teams.
package persistence

import (
	"context"
	"time"

	"github.com/usekora/kora/pkg/models"
)

// Persistence aggregates the entity repositories behind one storage backend.
type Persistence interface {
	Workflows() WorkflowRepository
	Executions() ExecutionRepository
	Agents() AgentRepository
	AgentExecutions() AgentExecutionRepository
	Teams() TeamRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// WorkflowRepository stores workflow definitions.
type WorkflowRepository interface {
	Save(ctx context.Context, workflow *models.WorkflowDefinition) error
	GetByID(ctx context.Context, id string) (*models.WorkflowDefinition, error)
	GetAll(ctx context.Context) ([]*models.WorkflowDefinition, error)
	ListByTrigger(ctx context.Context, trigger models.TriggerType) ([]*models.WorkflowDefinition, error)
	Delete(ctx context.Context, id string) error
}

// ExecutionRepository stores workflow execution records.
type ExecutionRepository interface {
	Save(ctx context.Context, execution *models.WorkflowExecution) error
	GetByID(ctx context.Context, id string) (*models.WorkflowExecution, error)
	ListByWorkflow(ctx context.Context, workflowID string) ([]*models.WorkflowExecution, error)
}

// AgentRepository stores agents. UpdateConfig applies a mutation to the
// agent's config atomically with respect to concurrent updaters.
type AgentRepository interface {
	Save(ctx context.Context, agent *models.Agent) error
	GetByID(ctx context.Context, id string) (*models.Agent, error)
	GetAll(ctx context.Context) ([]*models.Agent, error)
	Delete(ctx context.Context, id string) error
	UpdateConfig(ctx context.Context, agentID string, mutate func(config *models.AgentConfig) error) error
	RecordExecution(ctx context.Context, agentID string, at time.Time) error
}

// AgentExecutionRepository is the execution ledger. MarkRunning is the
// worker's claim: it transitions pending to running and reports whether this
// caller won the transition.
type AgentExecutionRepository interface {
	Create(ctx context.Context, execution *models.AgentExecution) error
	MarkRunning(ctx context.Context, id string, at time.Time) (bool, error)
	Update(ctx context.Context, execution *models.AgentExecution) error
	GetByID(ctx context.Context, id string) (*models.AgentExecution, error)
	ListByAgent(ctx context.Context, agentID string) ([]*models.AgentExecution, error)
}

// TeamRepository stores teams.
type TeamRepository interface {
	Save(ctx context.Context, team *models.Team) error
	GetByID(ctx context.Context, id string) (*models.Team, error)
	GetAll(ctx context.Context) ([]*models.Team, error)
	Delete(ctx context.Context, id string) error
}
