package file

import (
	"context"
	"errors"
	"os"
	"sort"

	"github.com/usekora/kora/pkg/models"
	"github.com/usekora/kora/pkg/persistence"
)

// WorkflowRepository stores workflow definitions as JSON files.
type WorkflowRepository struct {
	store *jsonStore[models.WorkflowDefinition]
}

// NewWorkflowRepository creates a new workflow repository under root.
func NewWorkflowRepository(root string) (*WorkflowRepository, error) {
	store, err := newJSONStore[models.WorkflowDefinition](root, "workflows")
	if err != nil {
		return nil, err
	}

	return &WorkflowRepository{store: store}, nil
}

// Save writes the workflow to disk, replacing any existing version.
func (wr *WorkflowRepository) Save(_ context.Context, workflow *models.WorkflowDefinition) error {
	return wr.store.save(workflow.ID, workflow)
}

// GetByID retrieves a workflow by its ID.
func (wr *WorkflowRepository) GetByID(_ context.Context, id string) (*models.WorkflowDefinition, error) {
	workflow, found, err := wr.store.get(id)
	if err != nil {
		return nil, err
	}

	if !found {
		return nil, &persistence.NotFoundError{Entity: "workflow", ID: id, Err: persistence.ErrWorkflowNotFound}
	}

	return workflow, nil
}

// GetAll returns all workflows sorted by creation time.
func (wr *WorkflowRepository) GetAll(_ context.Context) ([]*models.WorkflowDefinition, error) {
	workflows, err := wr.store.list()
	if err != nil {
		return nil, err
	}

	sort.Slice(workflows, func(i, j int) bool {
		return workflows[i].CreatedAt.Before(workflows[j].CreatedAt)
	})

	return workflows, nil
}

// ListByTrigger returns active workflows with the given trigger type.
func (wr *WorkflowRepository) ListByTrigger(ctx context.Context, trigger models.TriggerType) ([]*models.WorkflowDefinition, error) {
	workflows, err := wr.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	matched := make([]*models.WorkflowDefinition, 0)

	for _, workflow := range workflows {
		if workflow.TriggerType == trigger && workflow.Status == models.WorkflowStatusActive {
			matched = append(matched, workflow)
		}
	}

	return matched, nil
}

// Delete removes a workflow from disk.
func (wr *WorkflowRepository) Delete(_ context.Context, id string) error {
	if err := wr.store.delete(id); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &persistence.NotFoundError{Entity: "workflow", ID: id, Err: persistence.ErrWorkflowNotFound}
		}

		return err
	}

	return nil
}
