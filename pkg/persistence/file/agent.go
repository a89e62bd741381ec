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

// AgentRepository stores agents as JSON files.
type AgentRepository struct {
	store *jsonStore[models.Agent]
}

// NewAgentRepository creates a new agent repository under root.
func NewAgentRepository(root string) (*AgentRepository, error) {
	store, err := newJSONStore[models.Agent](root, "agents")
	if err != nil {
		return nil, err
	}

	return &AgentRepository{store: store}, nil
}

// Save writes the agent, replacing any existing version.
func (ar *AgentRepository) Save(_ context.Context, agent *models.Agent) error {
	return ar.store.save(agent.ID, agent)
}

// GetByID retrieves an agent by its ID.
func (ar *AgentRepository) GetByID(_ context.Context, id string) (*models.Agent, error) {
	agent, found, err := ar.store.get(id)
	if err != nil {
		return nil, err
	}

	if !found {
		return nil, &persistence.NotFoundError{Entity: "agent", ID: id, Err: persistence.ErrAgentNotFound}
	}

	return agent, nil
}

// GetAll returns all agents sorted by creation time.
func (ar *AgentRepository) GetAll(_ context.Context) ([]*models.Agent, error) {
	agents, err := ar.store.list()
	if err != nil {
		return nil, err
	}

	sort.Slice(agents, func(i, j int) bool {
		return agents[i].CreatedAt.Before(agents[j].CreatedAt)
	})

	return agents, nil
}

// Delete removes an agent from disk.
func (ar *AgentRepository) Delete(_ context.Context, id string) error {
	if err := ar.store.delete(id); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &persistence.NotFoundError{Entity: "agent", ID: id, Err: persistence.ErrAgentNotFound}
		}

		return err
	}

	return nil
}

// UpdateConfig applies mutate to the agent's config under the store lock, so
// concurrent self-adjustments from parallel runs serialize instead of
// clobbering whole configs.
func (ar *AgentRepository) UpdateConfig(_ context.Context, agentID string, mutate func(config *models.AgentConfig) error) error {
	err := ar.store.update(agentID, func(agent *models.Agent) error {
		if err := mutate(&agent.Config); err != nil {
			return err
		}

		agent.UpdatedAt = time.Now().UTC()

		return nil
	})
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &persistence.NotFoundError{Entity: "agent", ID: agentID, Err: persistence.ErrAgentNotFound}
		}

		return err
	}

	return nil
}

// RecordExecution bumps the agent's execution counter and timestamp.
func (ar *AgentRepository) RecordExecution(_ context.Context, agentID string, at time.Time) error {
	err := ar.store.update(agentID, func(agent *models.Agent) error {
		agent.ExecutionCount++
		agent.LastExecutedAt = &at

		return nil
	})
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &persistence.NotFoundError{Entity: "agent", ID: agentID, Err: persistence.ErrAgentNotFound}
		}

		return err
	}

	return nil
}
