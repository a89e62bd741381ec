// Package file provides file-based persistence for development and tests.
package file

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/usekora/kora/pkg/persistence"
)

// Persistence implements persistence.Persistence on top of a directory of
// JSON files, one subdirectory per entity type.
type Persistence struct {
	root               string
	workflowRepo       *WorkflowRepository
	executionRepo      *ExecutionRepository
	agentRepo          *AgentRepository
	agentExecutionRepo *AgentExecutionRepository
	teamRepo           *TeamRepository
}

// NewPersistence creates a file persistence layer rooted at the given
// directory. Accepts a plain path or a file:// URL.
func NewPersistence(root string) (*Persistence, error) {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	workflowRepo, err := NewWorkflowRepository(cleanRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize workflow repository: %w", err)
	}

	executionRepo, err := NewExecutionRepository(cleanRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize execution repository: %w", err)
	}

	agentRepo, err := NewAgentRepository(cleanRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize agent repository: %w", err)
	}

	agentExecutionRepo, err := NewAgentExecutionRepository(cleanRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize agent execution repository: %w", err)
	}

	teamRepo, err := NewTeamRepository(cleanRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize team repository: %w", err)
	}

	return &Persistence{
		root:               cleanRoot,
		workflowRepo:       workflowRepo,
		executionRepo:      executionRepo,
		agentRepo:          agentRepo,
		agentExecutionRepo: agentExecutionRepo,
		teamRepo:           teamRepo,
	}, nil
}

// Workflows returns the workflow repository.
func (fp *Persistence) Workflows() persistence.WorkflowRepository {
	return fp.workflowRepo
}

// Executions returns the workflow execution repository.
func (fp *Persistence) Executions() persistence.ExecutionRepository {
	return fp.executionRepo
}

// Agents returns the agent repository.
func (fp *Persistence) Agents() persistence.AgentRepository {
	return fp.agentRepo
}

// AgentExecutions returns the execution ledger repository.
func (fp *Persistence) AgentExecutions() persistence.AgentExecutionRepository {
	return fp.agentExecutionRepo
}

// Teams returns the team repository.
func (fp *Persistence) Teams() persistence.TeamRepository {
	return fp.teamRepo
}

// HealthCheck verifies the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

// Close performs any necessary cleanup. Nothing to clean up for files.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}
