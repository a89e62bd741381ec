package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/usekora/kora/pkg/models"
	"github.com/usekora/kora/pkg/persistence"
)

// ExecutionRepository handles workflow execution records in PostgreSQL.
type ExecutionRepository struct {
	db *sql.DB
}

// NewExecutionRepository creates a new execution repository.
func NewExecutionRepository(db *sql.DB) *ExecutionRepository {
	return &ExecutionRepository{db: db}
}

// Save upserts the execution.
func (er *ExecutionRepository) Save(ctx context.Context, execution *models.WorkflowExecution) error {
	stepResults, err := json.Marshal(execution.StepResults)
	if err != nil {
		return fmt.Errorf("failed to encode step results: %w", err)
	}

	contextData, err := json.Marshal(execution.Context)
	if err != nil {
		return fmt.Errorf("failed to encode execution context: %w", err)
	}

	var executionError []byte

	if execution.Error != nil {
		executionError, err = json.Marshal(execution.Error)
		if err != nil {
			return fmt.Errorf("failed to encode execution error: %w", err)
		}
	}

	query := `
		INSERT INTO workflow_executions (id, workflow_id, status, current_step_id, step_results, context, error, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			current_step_id = EXCLUDED.current_step_id,
			step_results = EXCLUDED.step_results,
			context = EXCLUDED.context,
			error = EXCLUDED.error,
			completed_at = EXCLUDED.completed_at
	`

	_, err = er.db.ExecContext(ctx, query,
		execution.ID,
		execution.WorkflowID,
		execution.Status,
		nullString(execution.CurrentStepID),
		stepResults,
		contextData,
		executionError,
		execution.StartedAt,
		execution.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save execution %s: %w", execution.ID, err)
	}

	return nil
}

// GetByID retrieves an execution by its ID.
func (er *ExecutionRepository) GetByID(ctx context.Context, id string) (*models.WorkflowExecution, error) {
	query := `
		SELECT id, workflow_id, status, current_step_id, step_results, context, error, started_at, completed_at
		FROM workflow_executions
		WHERE id = $1
	`

	execution, err := scanExecution(er.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &persistence.NotFoundError{Entity: "execution", ID: id, Err: persistence.ErrExecutionNotFound}
		}

		return nil, fmt.Errorf("failed to get execution %s: %w", id, err)
	}

	return execution, nil
}

// ListByWorkflow returns executions of one workflow, most recent first.
func (er *ExecutionRepository) ListByWorkflow(ctx context.Context, workflowID string) ([]*models.WorkflowExecution, error) {
	query := `
		SELECT id, workflow_id, status, current_step_id, step_results, context, error, started_at, completed_at
		FROM workflow_executions
		WHERE workflow_id = $1
		ORDER BY started_at DESC
	`

	rows, err := er.db.QueryContext(ctx, query, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to query executions: %w", err)
	}
	defer rows.Close()

	executions := make([]*models.WorkflowExecution, 0)

	for rows.Next() {
		execution, err := scanExecution(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan execution: %w", err)
		}

		executions = append(executions, execution)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate executions: %w", err)
	}

	return executions, nil
}

func scanExecution(row rowScanner) (*models.WorkflowExecution, error) {
	var (
		execution      models.WorkflowExecution
		currentStepID  sql.NullString
		stepResults    []byte
		contextData    []byte
		executionError []byte
	)

	err := row.Scan(
		&execution.ID,
		&execution.WorkflowID,
		&execution.Status,
		&currentStepID,
		&stepResults,
		&contextData,
		&executionError,
		&execution.StartedAt,
		&execution.CompletedAt,
	)
	if err != nil {
		return nil, err
	}

	execution.CurrentStepID = currentStepID.String

	if err := json.Unmarshal(stepResults, &execution.StepResults); err != nil {
		return nil, fmt.Errorf("failed to decode step results: %w", err)
	}

	if err := json.Unmarshal(contextData, &execution.Context); err != nil {
		return nil, fmt.Errorf("failed to decode execution context: %w", err)
	}

	if len(executionError) > 0 {
		execution.Error = &models.ExecutionError{}
		if err := json.Unmarshal(executionError, execution.Error); err != nil {
			return nil, fmt.Errorf("failed to decode execution error: %w", err)
		}
	}

	return &execution, nil
}
