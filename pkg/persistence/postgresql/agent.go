package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/usekora/kora/pkg/models"
	"github.com/usekora/kora/pkg/persistence"
)

// AgentRepository handles agents in PostgreSQL. The config is stored as a
// JSONB document.
type AgentRepository struct {
	db *sql.DB
}

// NewAgentRepository creates a new agent repository.
func NewAgentRepository(db *sql.DB) *AgentRepository {
	return &AgentRepository{db: db}
}

// Save upserts the agent.
func (ar *AgentRepository) Save(ctx context.Context, agent *models.Agent) error {
	config, err := json.Marshal(agent.Config)
	if err != nil {
		return fmt.Errorf("failed to encode agent config: %w", err)
	}

	query := `
		INSERT INTO agents (id, name, type, status, config, execution_count, last_executed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			type = EXCLUDED.type,
			status = EXCLUDED.status,
			config = EXCLUDED.config,
			updated_at = EXCLUDED.updated_at
	`

	_, err = ar.db.ExecContext(ctx, query,
		agent.ID,
		agent.Name,
		agent.Type,
		agent.Status,
		config,
		agent.ExecutionCount,
		agent.LastExecutedAt,
		agent.CreatedAt,
		agent.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save agent %s: %w", agent.ID, err)
	}

	return nil
}

// GetByID retrieves an agent by its ID.
func (ar *AgentRepository) GetByID(ctx context.Context, id string) (*models.Agent, error) {
	query := `
		SELECT id, name, type, status, config, execution_count, last_executed_at, created_at, updated_at
		FROM agents
		WHERE id = $1
	`

	agent, err := scanAgent(ar.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &persistence.NotFoundError{Entity: "agent", ID: id, Err: persistence.ErrAgentNotFound}
		}

		return nil, fmt.Errorf("failed to get agent %s: %w", id, err)
	}

	return agent, nil
}

// GetAll returns all agents ordered by creation time.
func (ar *AgentRepository) GetAll(ctx context.Context) ([]*models.Agent, error) {
	query := `
		SELECT id, name, type, status, config, execution_count, last_executed_at, created_at, updated_at
		FROM agents
		ORDER BY created_at ASC
	`

	rows, err := ar.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query agents: %w", err)
	}
	defer rows.Close()

	agents := make([]*models.Agent, 0)

	for rows.Next() {
		agent, err := scanAgent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan agent: %w", err)
		}

		agents = append(agents, agent)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate agents: %w", err)
	}

	return agents, nil
}

// Delete removes an agent.
func (ar *AgentRepository) Delete(ctx context.Context, id string) error {
	result, err := ar.db.ExecContext(ctx, "DELETE FROM agents WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete agent %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result for agent %s: %w", id, err)
	}

	if affected == 0 {
		return &persistence.NotFoundError{Entity: "agent", ID: id, Err: persistence.ErrAgentNotFound}
	}

	return nil
}

// UpdateConfig applies mutate to the agent's config inside a transaction
// with a row lock, so concurrent self-adjustments serialize.
func (ar *AgentRepository) UpdateConfig(ctx context.Context, agentID string, mutate func(config *models.AgentConfig) error) error {
	transaction, err := ar.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin config update for agent %s: %w", agentID, err)
	}

	defer func() { _ = transaction.Rollback() }()

	var configData []byte

	err = transaction.QueryRowContext(ctx,
		"SELECT config FROM agents WHERE id = $1 FOR UPDATE", agentID,
	).Scan(&configData)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &persistence.NotFoundError{Entity: "agent", ID: agentID, Err: persistence.ErrAgentNotFound}
		}

		return fmt.Errorf("failed to lock agent %s for config update: %w", agentID, err)
	}

	var config models.AgentConfig

	if err := json.Unmarshal(configData, &config); err != nil {
		return fmt.Errorf("failed to decode agent config: %w", err)
	}

	if err := mutate(&config); err != nil {
		return err
	}

	updated, err := json.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to encode agent config: %w", err)
	}

	_, err = transaction.ExecContext(ctx,
		"UPDATE agents SET config = $1, updated_at = $2 WHERE id = $3",
		updated, time.Now().UTC(), agentID,
	)
	if err != nil {
		return fmt.Errorf("failed to update config for agent %s: %w", agentID, err)
	}

	if err := transaction.Commit(); err != nil {
		return fmt.Errorf("failed to commit config update for agent %s: %w", agentID, err)
	}

	return nil
}

// RecordExecution bumps the agent's execution counter and timestamp.
func (ar *AgentRepository) RecordExecution(ctx context.Context, agentID string, at time.Time) error {
	result, err := ar.db.ExecContext(ctx,
		"UPDATE agents SET execution_count = execution_count + 1, last_executed_at = $1 WHERE id = $2",
		at, agentID,
	)
	if err != nil {
		return fmt.Errorf("failed to record execution for agent %s: %w", agentID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result for agent %s: %w", agentID, err)
	}

	if affected == 0 {
		return &persistence.NotFoundError{Entity: "agent", ID: agentID, Err: persistence.ErrAgentNotFound}
	}

	return nil
}

func scanAgent(row rowScanner) (*models.Agent, error) {
	var (
		agent  models.Agent
		config []byte
	)

	err := row.Scan(
		&agent.ID,
		&agent.Name,
		&agent.Type,
		&agent.Status,
		&config,
		&agent.ExecutionCount,
		&agent.LastExecutedAt,
		&agent.CreatedAt,
		&agent.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(config, &agent.Config); err != nil {
		return nil, fmt.Errorf("failed to decode agent config: %w", err)
	}

	return &agent, nil
}
