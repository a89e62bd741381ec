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

// AgentExecutionRepository is the execution ledger in PostgreSQL.
type AgentExecutionRepository struct {
	db *sql.DB
}

// NewAgentExecutionRepository creates a new ledger repository.
func NewAgentExecutionRepository(db *sql.DB) *AgentExecutionRepository {
	return &AgentExecutionRepository{db: db}
}

// Create inserts a new ledger record.
func (aer *AgentExecutionRepository) Create(ctx context.Context, execution *models.AgentExecution) error {
	input, err := encodeInput(execution.Input)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO agent_executions (id, agent_id, status, input, output, error, duration_ms, tokens_used, cost, triggered_by, idempotency_key, created_at, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err = aer.db.ExecContext(ctx, query,
		execution.ID,
		execution.AgentID,
		execution.Status,
		input,
		nullString(execution.Output),
		nullString(execution.Error),
		execution.DurationMs,
		execution.TokensUsed,
		execution.Cost,
		nullString(execution.TriggeredBy),
		nullString(execution.IdempotencyKey),
		execution.CreatedAt,
		execution.StartedAt,
		execution.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create agent execution %s: %w", execution.ID, err)
	}

	return nil
}

// MarkRunning claims a pending record. The conditional UPDATE makes the
// claim atomic across workers; only one caller sees a row transition.
func (aer *AgentExecutionRepository) MarkRunning(ctx context.Context, id string, at time.Time) (bool, error) {
	result, err := aer.db.ExecContext(ctx,
		"UPDATE agent_executions SET status = $1, started_at = $2 WHERE id = $3 AND status = $4",
		models.AgentExecutionRunning, at, id, models.AgentExecutionPending,
	)
	if err != nil {
		return false, fmt.Errorf("failed to mark agent execution %s running: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check claim result for agent execution %s: %w", id, err)
	}

	return affected > 0, nil
}

// Update replaces the mutable fields of the record.
func (aer *AgentExecutionRepository) Update(ctx context.Context, execution *models.AgentExecution) error {
	input, err := encodeInput(execution.Input)
	if err != nil {
		return err
	}

	query := `
		UPDATE agent_executions
		SET status = $1, input = $2, output = $3, error = $4, duration_ms = $5, tokens_used = $6, cost = $7, started_at = $8, completed_at = $9
		WHERE id = $10
	`

	result, err := aer.db.ExecContext(ctx, query,
		execution.Status,
		input,
		nullString(execution.Output),
		nullString(execution.Error),
		execution.DurationMs,
		execution.TokensUsed,
		execution.Cost,
		execution.StartedAt,
		execution.CompletedAt,
		execution.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update agent execution %s: %w", execution.ID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result for agent execution %s: %w", execution.ID, err)
	}

	if affected == 0 {
		return &persistence.NotFoundError{Entity: "agent execution", ID: execution.ID, Err: persistence.ErrAgentExecutionNotFound}
	}

	return nil
}

// GetByID retrieves a ledger record by its ID.
func (aer *AgentExecutionRepository) GetByID(ctx context.Context, id string) (*models.AgentExecution, error) {
	query := `
		SELECT id, agent_id, status, input, output, error, duration_ms, tokens_used, cost, triggered_by, idempotency_key, created_at, started_at, completed_at
		FROM agent_executions
		WHERE id = $1
	`

	execution, err := scanAgentExecution(aer.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &persistence.NotFoundError{Entity: "agent execution", ID: id, Err: persistence.ErrAgentExecutionNotFound}
		}

		return nil, fmt.Errorf("failed to get agent execution %s: %w", id, err)
	}

	return execution, nil
}

// ListByAgent returns ledger records of one agent, most recent first.
func (aer *AgentExecutionRepository) ListByAgent(ctx context.Context, agentID string) ([]*models.AgentExecution, error) {
	query := `
		SELECT id, agent_id, status, input, output, error, duration_ms, tokens_used, cost, triggered_by, idempotency_key, created_at, started_at, completed_at
		FROM agent_executions
		WHERE agent_id = $1
		ORDER BY created_at DESC
	`

	rows, err := aer.db.QueryContext(ctx, query, agentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query agent executions: %w", err)
	}
	defer rows.Close()

	executions := make([]*models.AgentExecution, 0)

	for rows.Next() {
		execution, err := scanAgentExecution(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan agent execution: %w", err)
		}

		executions = append(executions, execution)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate agent executions: %w", err)
	}

	return executions, nil
}

func scanAgentExecution(row rowScanner) (*models.AgentExecution, error) {
	var (
		execution      models.AgentExecution
		input          []byte
		output         sql.NullString
		executionError sql.NullString
		triggeredBy    sql.NullString
		idempotencyKey sql.NullString
	)

	err := row.Scan(
		&execution.ID,
		&execution.AgentID,
		&execution.Status,
		&input,
		&output,
		&executionError,
		&execution.DurationMs,
		&execution.TokensUsed,
		&execution.Cost,
		&triggeredBy,
		&idempotencyKey,
		&execution.CreatedAt,
		&execution.StartedAt,
		&execution.CompletedAt,
	)
	if err != nil {
		return nil, err
	}

	execution.Output = output.String
	execution.Error = executionError.String
	execution.TriggeredBy = triggeredBy.String
	execution.IdempotencyKey = idempotencyKey.String

	if len(input) > 0 {
		if err := json.Unmarshal(input, &execution.Input); err != nil {
			return nil, fmt.Errorf("failed to decode agent execution input: %w", err)
		}
	}

	return &execution, nil
}

func encodeInput(input map[string]any) ([]byte, error) {
	if input == nil {
		return nil, nil
	}

	data, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("failed to encode agent execution input: %w", err)
	}

	return data, nil
}
