package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usekora/kora/pkg/models"
	"github.com/usekora/kora/pkg/persistence/file"
)

// scriptedRunner returns canned outputs per step agent/action and records
// invocations.
type scriptedRunner struct {
	mu         sync.Mutex
	outputs    map[string]map[string]any
	errors     map[string]error
	block      map[string]bool
	calls      []string
	inputs     map[string]map[string]string
	workspaces map[string]string
}

func newScriptedRunner() *scriptedRunner {
	return &scriptedRunner{
		outputs:    make(map[string]map[string]any),
		errors:     make(map[string]error),
		block:      make(map[string]bool),
		inputs:     make(map[string]map[string]string),
		workspaces: make(map[string]string),
	}
}

func (r *scriptedRunner) RunStep(ctx context.Context, workspaceID, _, action string, inputs map[string]string) (map[string]any, error) {
	r.mu.Lock()
	r.calls = append(r.calls, action)
	r.inputs[action] = inputs
	r.workspaces[action] = workspaceID
	blocked := r.block[action]
	r.mu.Unlock()

	if blocked {
		<-ctx.Done()

		return nil, ctx.Err()
	}

	if err := r.errors[action]; err != nil {
		return nil, err
	}

	return r.outputs[action], nil
}

func newTestExecutor(t *testing.T, runner AgentRunner) (*Executor, *file.Persistence) {
	t.Helper()

	persist, err := file.NewPersistence(t.TempDir())
	require.NoError(t, err)

	return NewExecutor(persist, runner, nil, slog.Default()), persist
}

func saveWorkflow(t *testing.T, persist *file.Persistence, steps []*models.Step) *models.WorkflowDefinition {
	t.Helper()

	definition := &models.WorkflowDefinition{
		ID:          uuid.NewString(),
		Name:        "Lead qualification",
		TriggerType: models.TriggerTypeManual,
		Status:      models.WorkflowStatusActive,
		Steps:       steps,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}

	require.NoError(t, persist.Workflows().Save(context.Background(), definition))

	return definition
}

func edge(id string) *string {
	return &id
}

func TestExecuteLinearWorkflow(t *testing.T) {
	runner := newScriptedRunner()
	runner.outputs["qualify"] = map[string]any{"leadScore": 80.0}
	runner.outputs["notify"] = map[string]any{"notified": true}

	executor, persist := newTestExecutor(t, runner)
	definition := saveWorkflow(t, persist, []*models.Step{
		{ID: "qualify", AgentID: "a1", Action: "qualify", OnSuccess: edge("notify")},
		{ID: "notify", AgentID: "a2", Action: "notify"},
	})

	execution, err := executor.Execute(context.Background(), definition.ID, "", map[string]any{"leadName": "Acme"})
	require.NoError(t, err)

	assert.Equal(t, models.ExecutionStatusCompleted, execution.Status)
	assert.Equal(t, []string{"qualify", "notify"}, runner.calls)
	assert.Equal(t, 80.0, execution.Context["leadScore"])
	assert.Equal(t, true, execution.Context["notified"])
	assert.Equal(t, models.StepStatusCompleted, execution.StepResults["qualify"].Status)
	require.NotNil(t, execution.CompletedAt)

	// The terminal record is persisted.
	stored, err := persist.Executions().GetByID(context.Background(), execution.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusCompleted, stored.Status)
}

func TestExecuteRendersStepInputs(t *testing.T) {
	runner := newScriptedRunner()
	runner.outputs["qualify"] = map[string]any{"leadScore": 80.0}
	runner.outputs["notify"] = nil

	executor, persist := newTestExecutor(t, runner)
	definition := saveWorkflow(t, persist, []*models.Step{
		{ID: "qualify", AgentID: "a1", Action: "qualify", OnSuccess: edge("notify")},
		{
			ID: "notify", AgentID: "a2", Action: "notify",
			Inputs: map[string]string{
				"greeting": "Hi {{leadName}}",
				"score":    "{{leadScore}}",
				"missing":  "value: {{unknownKey}}",
			},
		},
	})

	_, err := executor.Execute(context.Background(), definition.ID, "", map[string]any{"leadName": "Acme"})
	require.NoError(t, err)

	assert.Equal(t, "Hi Acme", runner.inputs["notify"]["greeting"])
	assert.Equal(t, "80", runner.inputs["notify"]["score"])
	assert.Equal(t, "value: ", runner.inputs["notify"]["missing"])
}

func TestExecuteThreadsWorkspaceToEveryStep(t *testing.T) {
	runner := newScriptedRunner()
	runner.outputs["qualify"] = nil
	runner.outputs["notify"] = nil

	executor, persist := newTestExecutor(t, runner)
	definition := saveWorkflow(t, persist, []*models.Step{
		{ID: "qualify", AgentID: "a1", Action: "qualify", OnSuccess: edge("notify")},
		{ID: "notify", AgentID: "a2", Action: "notify"},
	})

	_, err := executor.Execute(context.Background(), definition.ID, "ws-9", nil)
	require.NoError(t, err)

	assert.Equal(t, "ws-9", runner.workspaces["qualify"])
	assert.Equal(t, "ws-9", runner.workspaces["notify"])
}

func TestExecuteSkipsStepWithUnmetConditions(t *testing.T) {
	runner := newScriptedRunner()
	runner.outputs["qualify"] = map[string]any{"leadScore": 30.0}
	runner.outputs["notify"] = nil

	executor, persist := newTestExecutor(t, runner)
	definition := saveWorkflow(t, persist, []*models.Step{
		{ID: "qualify", AgentID: "a1", Action: "qualify", OnSuccess: edge("escalate")},
		{
			ID: "escalate", AgentID: "a2", Action: "escalate",
			Conditions: []models.Condition{{Field: "leadScore", Operator: models.OperatorGt, Value: 50}},
			OnSuccess:  edge("notify"),
		},
		{ID: "notify", AgentID: "a3", Action: "notify"},
	})

	execution, err := executor.Execute(context.Background(), definition.ID, "", nil)
	require.NoError(t, err)

	assert.Equal(t, models.ExecutionStatusCompleted, execution.Status)
	// The gated step's agent was never invoked.
	assert.Equal(t, []string{"qualify", "notify"}, runner.calls)

	skipped := execution.StepResults["escalate"]
	assert.Equal(t, models.StepStatusCompleted, skipped.Status)
	assert.True(t, skipped.Skipped)
}

func TestExecuteRoutesFailureThroughOnFailure(t *testing.T) {
	runner := newScriptedRunner()
	runner.errors["qualify"] = errors.New("model unavailable")
	runner.outputs["fallback"] = map[string]any{"handled": true}

	executor, persist := newTestExecutor(t, runner)
	definition := saveWorkflow(t, persist, []*models.Step{
		{ID: "qualify", AgentID: "a1", Action: "qualify", OnSuccess: edge("notify"), OnFailure: edge("fallback")},
		{ID: "notify", AgentID: "a2", Action: "notify"},
		{ID: "fallback", AgentID: "a3", Action: "fallback"},
	})

	execution, err := executor.Execute(context.Background(), definition.ID, "", nil)
	require.NoError(t, err)

	assert.Equal(t, models.ExecutionStatusCompleted, execution.Status)
	assert.Equal(t, []string{"qualify", "fallback"}, runner.calls)
	assert.Equal(t, models.StepStatusFailed, execution.StepResults["qualify"].Status)
	assert.Equal(t, models.StepStatusCompleted, execution.StepResults["fallback"].Status)
}

func TestExecuteFailsWithoutOnFailure(t *testing.T) {
	runner := newScriptedRunner()
	runner.errors["qualify"] = errors.New("model unavailable")

	executor, persist := newTestExecutor(t, runner)
	definition := saveWorkflow(t, persist, []*models.Step{
		{ID: "qualify", AgentID: "a1", Action: "qualify", OnSuccess: edge("notify")},
		{ID: "notify", AgentID: "a2", Action: "notify"},
	})

	execution, err := executor.Execute(context.Background(), definition.ID, "", nil)
	require.NoError(t, err)

	assert.Equal(t, models.ExecutionStatusFailed, execution.Status)
	require.NotNil(t, execution.Error)
	assert.Equal(t, models.ErrorCodeStepFailed, execution.Error.Code)
	assert.Equal(t, "qualify", execution.Error.StepID)
	assert.Empty(t, runner.calls[1:])
}

func TestExecuteDetectsCycle(t *testing.T) {
	runner := newScriptedRunner()
	runner.outputs["ping"] = nil
	runner.outputs["pong"] = nil

	executor, persist := newTestExecutor(t, runner)
	definition := saveWorkflow(t, persist, []*models.Step{
		{ID: "ping", AgentID: "a1", Action: "ping", OnSuccess: edge("pong")},
		{ID: "pong", AgentID: "a2", Action: "pong", OnSuccess: edge("ping")},
	})

	execution, err := executor.Execute(context.Background(), definition.ID, "", nil)
	require.NoError(t, err)

	assert.Equal(t, models.ExecutionStatusFailed, execution.Status)
	require.NotNil(t, execution.Error)
	assert.Equal(t, models.ErrorCodeCycleDetected, execution.Error.Code)
	// The bound is twice the step count.
	assert.Len(t, runner.calls, 2*len(definition.Steps))
}

func TestExecuteStepTimeoutRoutesToOnFailure(t *testing.T) {
	runner := newScriptedRunner()
	runner.block["slow"] = true
	runner.outputs["fallback"] = nil

	executor, persist := newTestExecutor(t, runner)
	definition := saveWorkflow(t, persist, []*models.Step{
		{ID: "slow", AgentID: "a1", Action: "slow", Timeout: 1, OnFailure: edge("fallback")},
		{ID: "fallback", AgentID: "a2", Action: "fallback"},
	})

	execution, err := executor.Execute(context.Background(), definition.ID, "", nil)
	require.NoError(t, err)

	assert.Equal(t, models.ExecutionStatusCompleted, execution.Status)
	assert.Equal(t, models.StepStatusFailed, execution.StepResults["slow"].Status)
	assert.Contains(t, execution.StepResults["slow"].Error, "context deadline exceeded")
}

func TestExecuteRejectsNonExecutableWorkflow(t *testing.T) {
	runner := newScriptedRunner()
	executor, persist := newTestExecutor(t, runner)

	definition := saveWorkflow(t, persist, []*models.Step{
		{ID: "qualify", AgentID: "a1", Action: "qualify"},
	})
	definition.Status = models.WorkflowStatusPaused
	require.NoError(t, persist.Workflows().Save(context.Background(), definition))

	_, err := executor.Execute(context.Background(), definition.ID, "", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not executable")
	assert.Empty(t, runner.calls)
}

func TestStartReturnsAcceptedExecution(t *testing.T) {
	runner := newScriptedRunner()
	runner.outputs["qualify"] = map[string]any{"done": true}

	executor, persist := newTestExecutor(t, runner)
	definition := saveWorkflow(t, persist, []*models.Step{
		{ID: "qualify", AgentID: "a1", Action: "qualify"},
	})

	execution, err := executor.Start(context.Background(), definition.ID, "", nil)
	require.NoError(t, err)
	require.NotEmpty(t, execution.ID)

	require.Eventually(t, func() bool {
		stored, err := persist.Executions().GetByID(context.Background(), execution.ID)

		return err == nil && stored.Status.Terminal()
	}, 2*time.Second, 10*time.Millisecond)

	stored, err := persist.Executions().GetByID(context.Background(), execution.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusCompleted, stored.Status)
}

func TestParseStepOutput(t *testing.T) {
	assert.Equal(t, map[string]any{"leadScore": 80.0}, parseStepOutput(`{"leadScore": 80}`))
	assert.Equal(t, map[string]any{"content": "plain answer"}, parseStepOutput("plain answer"))
	assert.Equal(t, map[string]any{"content": "[1,2]"}, parseStepOutput("[1,2]"))
}

func TestBuildTask(t *testing.T) {
	assert.Equal(t, "qualify", buildTask("qualify", nil))

	task := buildTask("qualify", map[string]string{"lead": "Acme"})
	assert.Contains(t, task, "qualify")
	assert.Contains(t, task, fmt.Sprintf("%q", "Acme"))
}
