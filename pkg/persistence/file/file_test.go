package file

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usekora/kora/pkg/models"
	"github.com/usekora/kora/pkg/persistence"
)

func newTestStore(t *testing.T) *Persistence {
	t.Helper()

	persist, err := NewPersistence(t.TempDir())
	require.NoError(t, err)

	return persist
}

func testWorkflow(trigger models.TriggerType, status models.WorkflowStatus, createdAt time.Time) *models.WorkflowDefinition {
	return &models.WorkflowDefinition{
		ID:          uuid.NewString(),
		Name:        "Lead intake",
		TriggerType: trigger,
		Status:      status,
		Steps: []*models.Step{
			{ID: "qualify", AgentID: "a1", Action: "qualify"},
		},
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

func TestWorkflowRepositoryRoundTrip(t *testing.T) {
	persist := newTestStore(t)
	ctx := context.Background()

	workflow := testWorkflow(models.TriggerTypeManual, models.WorkflowStatusActive, time.Now().UTC())
	require.NoError(t, persist.Workflows().Save(ctx, workflow))

	stored, err := persist.Workflows().GetByID(ctx, workflow.ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.Name, stored.Name)
	require.Len(t, stored.Steps, 1)
	assert.Equal(t, "qualify", stored.Steps[0].ID)

	require.NoError(t, persist.Workflows().Delete(ctx, workflow.ID))

	_, err = persist.Workflows().GetByID(ctx, workflow.ID)
	assert.True(t, persistence.IsWorkflowNotFound(err))
}

func TestWorkflowRepositoryNotFound(t *testing.T) {
	persist := newTestStore(t)

	_, err := persist.Workflows().GetByID(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, persistence.IsWorkflowNotFound(err))
	assert.Contains(t, err.Error(), "missing")

	err = persist.Workflows().Delete(context.Background(), "missing")
	assert.True(t, persistence.IsWorkflowNotFound(err))
}

func TestWorkflowRepositoryGetAllSortedByCreation(t *testing.T) {
	persist := newTestStore(t)
	ctx := context.Background()
	base := time.Now().UTC()

	newer := testWorkflow(models.TriggerTypeManual, models.WorkflowStatusActive, base.Add(time.Hour))
	older := testWorkflow(models.TriggerTypeManual, models.WorkflowStatusActive, base)

	require.NoError(t, persist.Workflows().Save(ctx, newer))
	require.NoError(t, persist.Workflows().Save(ctx, older))

	all, err := persist.Workflows().GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, older.ID, all[0].ID)
	assert.Equal(t, newer.ID, all[1].ID)
}

func TestWorkflowRepositoryListByTrigger(t *testing.T) {
	persist := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	scheduled := testWorkflow(models.TriggerTypeSchedule, models.WorkflowStatusActive, now)
	pausedScheduled := testWorkflow(models.TriggerTypeSchedule, models.WorkflowStatusPaused, now)
	manual := testWorkflow(models.TriggerTypeManual, models.WorkflowStatusActive, now)

	for _, workflow := range []*models.WorkflowDefinition{scheduled, pausedScheduled, manual} {
		require.NoError(t, persist.Workflows().Save(ctx, workflow))
	}

	matched, err := persist.Workflows().ListByTrigger(ctx, models.TriggerTypeSchedule)
	require.NoError(t, err)
	require.Len(t, matched, 1)
	assert.Equal(t, scheduled.ID, matched[0].ID)
}

func TestExecutionRepositoryListByWorkflow(t *testing.T) {
	persist := newTestStore(t)
	ctx := context.Background()
	base := time.Now().UTC()

	workflowID := uuid.NewString()

	for i := 0; i < 3; i++ {
		execution := &models.WorkflowExecution{
			ID:         uuid.NewString(),
			WorkflowID: workflowID,
			Status:     models.ExecutionStatusCompleted,
			StartedAt:  base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, persist.Executions().Save(ctx, execution))
	}

	// An execution of another workflow is not listed.
	other := &models.WorkflowExecution{
		ID:         uuid.NewString(),
		WorkflowID: uuid.NewString(),
		Status:     models.ExecutionStatusCompleted,
		StartedAt:  base,
	}
	require.NoError(t, persist.Executions().Save(ctx, other))

	executions, err := persist.Executions().ListByWorkflow(ctx, workflowID)
	require.NoError(t, err)
	require.Len(t, executions, 3)

	// Most recent first.
	assert.True(t, executions[0].StartedAt.After(executions[1].StartedAt))
	assert.True(t, executions[1].StartedAt.After(executions[2].StartedAt))

	_, err = persist.Executions().GetByID(ctx, "missing")
	assert.True(t, persistence.IsExecutionNotFound(err))
}

func TestAgentRepositoryUpdateConfig(t *testing.T) {
	persist := newTestStore(t)
	ctx := context.Background()

	a := &models.Agent{
		ID:        uuid.NewString(),
		Name:      "Qualifier",
		Type:      "sales",
		Status:    models.AgentStatusActive,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, persist.Agents().Save(ctx, a))

	err := persist.Agents().UpdateConfig(ctx, a.ID, func(config *models.AgentConfig) error {
		config.MergePreferences(map[string]any{"tone": "casual"})
		config.AppendNote("prefers short emails")

		return nil
	})
	require.NoError(t, err)

	stored, err := persist.Agents().GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "casual", stored.Config.Preferences["tone"])
	assert.Equal(t, []string{"prefers short emails"}, stored.Config.Notes)
	assert.True(t, stored.UpdatedAt.After(a.CreatedAt))

	err = persist.Agents().UpdateConfig(ctx, "missing", func(*models.AgentConfig) error { return nil })
	assert.True(t, persistence.IsAgentNotFound(err))
}

func TestAgentRepositoryUpdateConfigMutationError(t *testing.T) {
	persist := newTestStore(t)
	ctx := context.Background()

	a := &models.Agent{ID: uuid.NewString(), Name: "Qualifier", Type: "sales", Status: models.AgentStatusActive}
	require.NoError(t, persist.Agents().Save(ctx, a))

	err := persist.Agents().UpdateConfig(ctx, a.ID, func(config *models.AgentConfig) error {
		config.AppendNote("discarded")

		return fmt.Errorf("mutation rejected")
	})
	require.Error(t, err)

	// A failed mutation leaves the stored config untouched.
	stored, getErr := persist.Agents().GetByID(ctx, a.ID)
	require.NoError(t, getErr)
	assert.Empty(t, stored.Config.Notes)
}

func TestAgentRepositoryRecordExecution(t *testing.T) {
	persist := newTestStore(t)
	ctx := context.Background()

	a := &models.Agent{ID: uuid.NewString(), Name: "Qualifier", Type: "sales", Status: models.AgentStatusActive}
	require.NoError(t, persist.Agents().Save(ctx, a))

	at := time.Now().UTC()
	require.NoError(t, persist.Agents().RecordExecution(ctx, a.ID, at))
	require.NoError(t, persist.Agents().RecordExecution(ctx, a.ID, at.Add(time.Minute)))

	stored, err := persist.Agents().GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stored.ExecutionCount)
	require.NotNil(t, stored.LastExecutedAt)
	assert.Equal(t, at.Add(time.Minute), *stored.LastExecutedAt)
}

func TestAgentExecutionRepositoryMarkRunningClaimsOnce(t *testing.T) {
	persist := newTestStore(t)
	ctx := context.Background()

	execution := &models.AgentExecution{
		ID:        uuid.NewString(),
		AgentID:   "agent-1",
		Status:    models.AgentExecutionPending,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, persist.AgentExecutions().Create(ctx, execution))

	now := time.Now().UTC()

	claimed, err := persist.AgentExecutions().MarkRunning(ctx, execution.ID, now)
	require.NoError(t, err)
	assert.True(t, claimed)

	// A second claim on the same record loses.
	claimed, err = persist.AgentExecutions().MarkRunning(ctx, execution.ID, now)
	require.NoError(t, err)
	assert.False(t, claimed)

	stored, err := persist.AgentExecutions().GetByID(ctx, execution.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AgentExecutionRunning, stored.Status)
	require.NotNil(t, stored.StartedAt)

	_, err = persist.AgentExecutions().MarkRunning(ctx, "missing", now)
	assert.True(t, persistence.IsAgentExecutionNotFound(err))
}

func TestTeamRepositoryRoundTrip(t *testing.T) {
	persist := newTestStore(t)
	ctx := context.Background()

	team := &models.Team{
		ID:     uuid.NewString(),
		Name:   "Deal desk",
		Status: models.TeamStatusActive,
		Members: []models.TeamMember{
			{AgentID: "coord", Role: models.TeamRoleCoordinator, Priority: 1},
		},
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, persist.Teams().Save(ctx, team))

	stored, err := persist.Teams().GetByID(ctx, team.ID)
	require.NoError(t, err)
	assert.Equal(t, team.Name, stored.Name)
	require.Len(t, stored.Members, 1)

	require.NoError(t, persist.Teams().Delete(ctx, team.ID))

	_, err = persist.Teams().GetByID(ctx, team.ID)
	assert.True(t, persistence.IsTeamNotFound(err))
}

func TestPersistenceHealthCheck(t *testing.T) {
	persist := newTestStore(t)
	assert.NoError(t, persist.HealthCheck(context.Background()))
	assert.NoError(t, persist.Close(context.Background()))
}
