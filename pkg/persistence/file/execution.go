package file

import (
	"context"
	"sort"

	"github.com/usekora/kora/pkg/models"
	"github.com/usekora/kora/pkg/persistence"
)

// ExecutionRepository stores workflow execution records as JSON files.
type ExecutionRepository struct {
	store *jsonStore[models.WorkflowExecution]
}

// NewExecutionRepository creates a new execution repository under root.
func NewExecutionRepository(root string) (*ExecutionRepository, error) {
	store, err := newJSONStore[models.WorkflowExecution](root, "executions")
	if err != nil {
		return nil, err
	}

	return &ExecutionRepository{store: store}, nil
}

// Save writes the execution, replacing any existing version.
func (er *ExecutionRepository) Save(_ context.Context, execution *models.WorkflowExecution) error {
	return er.store.save(execution.ID, execution)
}

// GetByID retrieves an execution by its ID.
func (er *ExecutionRepository) GetByID(_ context.Context, id string) (*models.WorkflowExecution, error) {
	execution, found, err := er.store.get(id)
	if err != nil {
		return nil, err
	}

	if !found {
		return nil, &persistence.NotFoundError{Entity: "execution", ID: id, Err: persistence.ErrExecutionNotFound}
	}

	return execution, nil
}

// ListByWorkflow returns executions of one workflow, most recent first.
func (er *ExecutionRepository) ListByWorkflow(_ context.Context, workflowID string) ([]*models.WorkflowExecution, error) {
	executions, err := er.store.list()
	if err != nil {
		return nil, err
	}

	matched := make([]*models.WorkflowExecution, 0)

	for _, execution := range executions {
		if execution.WorkflowID == workflowID {
			matched = append(matched, execution)
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].StartedAt.After(matched[j].StartedAt)
	})

	return matched, nil
}
