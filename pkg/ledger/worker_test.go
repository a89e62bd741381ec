package ledger

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usekora/kora/pkg/agent"
	"github.com/usekora/kora/pkg/events"
	"github.com/usekora/kora/pkg/llm"
	"github.com/usekora/kora/pkg/models"
	"github.com/usekora/kora/pkg/persistence/file"
	"github.com/usekora/kora/pkg/tools"
)

// stubClient answers every completion identically.
type stubClient struct {
	response *llm.Response
	err      error
	calls    int
}

func (c *stubClient) Complete(_ context.Context, _ llm.Request) (*llm.Response, error) {
	c.calls++

	if c.err != nil {
		return nil, c.err
	}

	return c.response, nil
}

func newTestWorker(t *testing.T, persist *file.Persistence, bus *fakeBus, client llm.Client) *Worker {
	t.Helper()

	runtime := agent.NewRuntime(client, tools.NewRegistry(slog.Default()), slog.Default(), agent.WithRetry(1, 0))

	return NewWorker("worker-test", persist, runtime, bus, slog.Default())
}

func savePendingExecution(t *testing.T, persist *file.Persistence, agentID string) *models.AgentExecution {
	t.Helper()

	execution := &models.AgentExecution{
		ID:          uuid.NewString(),
		AgentID:     agentID,
		Status:      models.AgentExecutionPending,
		Input:       map[string]any{"task": "qualify Acme"},
		TriggeredBy: "user-1",
		CreatedAt:   time.Now().UTC(),
	}

	require.NoError(t, persist.AgentExecutions().Create(context.Background(), execution))

	return execution
}

func queuedJob(execution *models.AgentExecution) *events.AgentJobQueued {
	return &events.AgentJobQueued{
		BaseEvent:      events.NewBaseEvent(events.AgentJobQueuedEvent),
		ExecutionID:    execution.ID,
		AgentID:        execution.AgentID,
		WorkspaceID:    "ws-1",
		Input:          execution.Input,
		TriggeredBy:    execution.TriggeredBy,
		DispatchHandle: uuid.NewString(),
	}
}

func TestProcessJobCompletesExecution(t *testing.T) {
	persist := newTestPersistence(t)
	bus := newFakeBus()
	client := &stubClient{response: &llm.Response{
		Content: "qualified",
		Usage:   llm.Usage{InputTokens: 1000, OutputTokens: 500},
	}}

	worker := newTestWorker(t, persist, bus, client)
	a := saveAgent(t, persist, models.AgentStatusActive)
	execution := savePendingExecution(t, persist, a.ID)
	job := queuedJob(execution)

	require.NoError(t, worker.processJob(context.Background(), job))

	stored, err := persist.AgentExecutions().GetByID(context.Background(), execution.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AgentExecutionCompleted, stored.Status)
	assert.Equal(t, "qualified", stored.Output)
	assert.Equal(t, int64(1500), stored.TokensUsed)
	assert.InDelta(t, runCost(1000, 500), stored.Cost, 1e-12)
	require.NotNil(t, stored.StartedAt)
	require.NotNil(t, stored.CompletedAt)
	assert.GreaterOrEqual(t, stored.DurationMs, int64(0))

	// The agent's run accounting is bumped.
	storedAgent, err := persist.Agents().GetByID(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), storedAgent.ExecutionCount)
	require.NotNil(t, storedAgent.LastExecutedAt)

	// Running then completed progress events, keyed by the dispatch handle.
	progress := bus.events(events.ProgressTopic)
	require.Len(t, progress, 2)
	assert.Equal(t, job.DispatchHandle, progress[0].key)
	assert.Equal(t, events.AgentExecutionRunningEvent, progress[0].event.GetType())
	assert.Equal(t, events.AgentExecutionCompletedEvent, progress[1].event.GetType())
}

func TestProcessJobDropsAlreadyClaimedExecution(t *testing.T) {
	persist := newTestPersistence(t)
	bus := newFakeBus()
	client := &stubClient{response: &llm.Response{Content: "unused"}}

	worker := newTestWorker(t, persist, bus, client)
	a := saveAgent(t, persist, models.AgentStatusActive)
	execution := savePendingExecution(t, persist, a.ID)

	// Another worker already claimed the record.
	now := time.Now().UTC()
	claimed, err := persist.AgentExecutions().MarkRunning(context.Background(), execution.ID, now)
	require.NoError(t, err)
	require.True(t, claimed)

	require.NoError(t, worker.processJob(context.Background(), queuedJob(execution)))

	assert.Zero(t, client.calls)
	assert.Empty(t, bus.events(events.ProgressTopic))
}

func TestProcessJobRecordsRuntimeFailure(t *testing.T) {
	persist := newTestPersistence(t)
	bus := newFakeBus()
	client := &stubClient{err: errors.New("completion service down")}

	worker := newTestWorker(t, persist, bus, client)
	a := saveAgent(t, persist, models.AgentStatusActive)
	execution := savePendingExecution(t, persist, a.ID)
	job := queuedJob(execution)

	require.NoError(t, worker.processJob(context.Background(), job))

	stored, err := persist.AgentExecutions().GetByID(context.Background(), execution.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AgentExecutionFailed, stored.Status)
	assert.Contains(t, stored.Error, "completion service down")
	require.NotNil(t, stored.CompletedAt)

	progress := bus.events(events.ProgressTopic)
	require.Len(t, progress, 2)
	assert.Equal(t, events.AgentExecutionFailedEvent, progress[1].event.GetType())
}

func TestProcessJobFailsWhenAgentNotRunnable(t *testing.T) {
	persist := newTestPersistence(t)
	bus := newFakeBus()
	client := &stubClient{response: &llm.Response{Content: "unused"}}

	worker := newTestWorker(t, persist, bus, client)
	a := saveAgent(t, persist, models.AgentStatusPaused)
	execution := savePendingExecution(t, persist, a.ID)

	require.NoError(t, worker.processJob(context.Background(), queuedJob(execution)))

	stored, err := persist.AgentExecutions().GetByID(context.Background(), execution.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AgentExecutionFailed, stored.Status)
	assert.Contains(t, stored.Error, "not runnable")
	assert.Zero(t, client.calls)
}

func TestWorkerStartSubscribesToJobTopic(t *testing.T) {
	persist := newTestPersistence(t)
	bus := newFakeBus()
	client := &stubClient{response: &llm.Response{Content: "done"}}

	worker := newTestWorker(t, persist, bus, client)
	require.NoError(t, worker.Start(context.Background()))

	assert.Contains(t, bus.subscribed, events.JobTopic)
	require.Contains(t, bus.handlers, events.AgentJobQueuedEvent)

	// The registered handler runs a queued job end to end.
	a := saveAgent(t, persist, models.AgentStatusActive)
	execution := savePendingExecution(t, persist, a.ID)

	require.NoError(t, bus.handlers[events.AgentJobQueuedEvent](context.Background(), queuedJob(execution)))

	stored, err := persist.AgentExecutions().GetByID(context.Background(), execution.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AgentExecutionCompleted, stored.Status)
}
