package file

import (
	"context"
	"errors"
	"os"
	"sort"
	"time"

	"github.com/usekora/kora/pkg/models"
	"github.com/usekora/kora/pkg/persistence"
)

// AgentExecutionRepository stores ledger records as JSON files.
type AgentExecutionRepository struct {
	store *jsonStore[models.AgentExecution]
}

// NewAgentExecutionRepository creates a new ledger repository under root.
func NewAgentExecutionRepository(root string) (*AgentExecutionRepository, error) {
	store, err := newJSONStore[models.AgentExecution](root, "agent_executions")
	if err != nil {
		return nil, err
	}

	return &AgentExecutionRepository{store: store}, nil
}

// Create writes a new ledger record.
func (aer *AgentExecutionRepository) Create(_ context.Context, execution *models.AgentExecution) error {
	return aer.store.save(execution.ID, execution)
}

// MarkRunning claims a pending record for a worker. Returns false when the
// record is no longer pending, so a redelivered job is dropped instead of
// run twice.
func (aer *AgentExecutionRepository) MarkRunning(_ context.Context, id string, at time.Time) (bool, error) {
	claimed := false

	err := aer.store.update(id, func(execution *models.AgentExecution) error {
		if execution.Status != models.AgentExecutionPending {
			return nil
		}

		execution.Status = models.AgentExecutionRunning
		execution.StartedAt = &at
		claimed = true

		return nil
	})
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, &persistence.NotFoundError{Entity: "agent execution", ID: id, Err: persistence.ErrAgentExecutionNotFound}
		}

		return false, err
	}

	return claimed, nil
}

// Update replaces the stored record.
func (aer *AgentExecutionRepository) Update(_ context.Context, execution *models.AgentExecution) error {
	return aer.store.save(execution.ID, execution)
}

// GetByID retrieves a ledger record by its ID.
func (aer *AgentExecutionRepository) GetByID(_ context.Context, id string) (*models.AgentExecution, error) {
	execution, found, err := aer.store.get(id)
	if err != nil {
		return nil, err
	}

	if !found {
		return nil, &persistence.NotFoundError{Entity: "agent execution", ID: id, Err: persistence.ErrAgentExecutionNotFound}
	}

	return execution, nil
}

// ListByAgent returns ledger records of one agent, most recent first.
func (aer *AgentExecutionRepository) ListByAgent(_ context.Context, agentID string) ([]*models.AgentExecution, error) {
	executions, err := aer.store.list()
	if err != nil {
		return nil, err
	}

	matched := make([]*models.AgentExecution, 0)

	for _, execution := range executions {
		if execution.AgentID == agentID {
			matched = append(matched, execution)
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	return matched, nil
}
