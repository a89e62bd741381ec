package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/usekora/kora/pkg/agent"
	"github.com/usekora/kora/pkg/eventbus"
	"github.com/usekora/kora/pkg/events"
	"github.com/usekora/kora/pkg/models"
	"github.com/usekora/kora/pkg/otelhelper"
	"github.com/usekora/kora/pkg/persistence"
	"github.com/usekora/kora/pkg/tools"
)

// Flat per-token rates used for run cost accounting.
const (
	costPerInputToken  = 0.000003
	costPerOutputToken = 0.000015
)

// Worker consumes queued agent jobs, claims their ledger records, runs the
// agent runtime, and writes the terminal outcome back.
type Worker struct {
	workerID    string
	persistence persistence.Persistence
	runtime     *agent.Runtime
	eventBus    eventbus.EventBus
	logger      *slog.Logger
	tracer      trace.Tracer
}

// NewWorker creates a dispatch worker.
func NewWorker(workerID string, persist persistence.Persistence, runtime *agent.Runtime, eventBus eventbus.EventBus, logger *slog.Logger) *Worker {
	return &Worker{
		workerID:    workerID,
		persistence: persist,
		runtime:     runtime,
		eventBus:    eventBus,
		logger:      logger.With("worker_id", workerID),
	}
}

// WithTracer enables a span around each processed job.
func (w *Worker) WithTracer(tracer trace.Tracer) *Worker {
	w.tracer = tracer

	return w
}

// Start subscribes to the job topic and processes jobs until ctx is
// cancelled.
func (w *Worker) Start(ctx context.Context) error {
	w.eventBus.Handle(events.AgentJobQueuedEvent, func(ctx context.Context, event any) error {
		job, ok := event.(*events.AgentJobQueued)
		if !ok {
			return fmt.Errorf("unexpected event payload %T", event)
		}

		return w.processJob(ctx, job)
	})

	return w.eventBus.Subscribe(ctx, events.JobTopic)
}

// processJob runs one queued job. Claim losses are not errors: a redelivered
// or already-claimed job is acked and dropped.
func (w *Worker) processJob(ctx context.Context, job *events.AgentJobQueued) (err error) {
	logger := w.logger.With("execution_id", job.ExecutionID, "agent_id", job.AgentID)

	if w.tracer != nil {
		var span trace.Span

		ctx, span = otelhelper.StartSpan(ctx, w.tracer, "ledger.processJob",
			attribute.String(otelhelper.ExecutionIDKey, job.ExecutionID),
			attribute.String(otelhelper.AgentIDKey, job.AgentID),
			attribute.String(otelhelper.WorkerIDKey, w.workerID),
		)

		defer func() {
			if err != nil {
				otelhelper.SetError(span, err)
			}

			span.End()
		}()
	}

	startedAt := time.Now().UTC()

	claimed, err := w.persistence.AgentExecutions().MarkRunning(ctx, job.ExecutionID, startedAt)
	if err != nil {
		return fmt.Errorf("failed to claim execution %s: %w", job.ExecutionID, err)
	}

	if !claimed {
		logger.Info("Execution already claimed or terminal, dropping job")

		return nil
	}

	w.publishProgress(ctx, job.DispatchHandle, events.AgentExecutionRunning{
		BaseEvent:      w.baseEvent(events.AgentExecutionRunningEvent),
		ExecutionID:    job.ExecutionID,
		AgentID:        job.AgentID,
		DispatchHandle: job.DispatchHandle,
	})

	execution, err := w.persistence.AgentExecutions().GetByID(ctx, job.ExecutionID)
	if err != nil {
		return fmt.Errorf("failed to load execution %s: %w", job.ExecutionID, err)
	}

	runAgent, err := w.persistence.Agents().GetByID(ctx, job.AgentID)
	if err != nil {
		w.finishFailed(ctx, execution, job, startedAt, fmt.Errorf("agent lookup failed: %w", err))

		return nil
	}

	if !runAgent.Runnable() {
		w.finishFailed(ctx, execution, job, startedAt,
			fmt.Errorf("agent %s is not runnable in status %s", runAgent.ID, runAgent.Status))

		return nil
	}

	result, err := w.runtime.Run(ctx, runAgent, taskFromInput(job.Input), tools.Context{
		WorkspaceID: job.WorkspaceID,
		ActorID:     job.TriggeredBy,
		AgentID:     runAgent.ID,
	})
	if err != nil {
		w.finishFailed(ctx, execution, job, startedAt, err)

		return nil
	}

	now := time.Now().UTC()
	tokens := result.Usage.Total()

	execution.Status = models.AgentExecutionCompleted
	execution.Output = result.Content
	execution.DurationMs = now.Sub(startedAt).Milliseconds()
	execution.TokensUsed = tokens
	execution.Cost = runCost(result.Usage.InputTokens, result.Usage.OutputTokens)
	execution.StartedAt = &startedAt
	execution.CompletedAt = &now

	if err := w.persistence.AgentExecutions().Update(ctx, execution); err != nil {
		return fmt.Errorf("failed to record completed execution %s: %w", execution.ID, err)
	}

	if err := w.persistence.Agents().RecordExecution(ctx, runAgent.ID, now); err != nil {
		logger.Warn("Failed to bump agent execution counter", "error", err)
	}

	w.publishProgress(ctx, job.DispatchHandle, events.AgentExecutionCompleted{
		BaseEvent:      w.baseEvent(events.AgentExecutionCompletedEvent),
		ExecutionID:    execution.ID,
		AgentID:        execution.AgentID,
		DispatchHandle: job.DispatchHandle,
		Output:         execution.Output,
		DurationMs:     execution.DurationMs,
		TokensUsed:     execution.TokensUsed,
		Cost:           execution.Cost,
	})

	logger.Info("Agent execution completed",
		"duration_ms", execution.DurationMs, "tokens_used", execution.TokensUsed)

	return nil
}

func (w *Worker) finishFailed(ctx context.Context, execution *models.AgentExecution, job *events.AgentJobQueued, startedAt time.Time, runErr error) {
	now := time.Now().UTC()

	execution.Status = models.AgentExecutionFailed
	execution.Error = runErr.Error()
	execution.DurationMs = now.Sub(startedAt).Milliseconds()
	execution.StartedAt = &startedAt
	execution.CompletedAt = &now

	if err := w.persistence.AgentExecutions().Update(ctx, execution); err != nil {
		w.logger.Error("Failed to record failed execution",
			"execution_id", execution.ID, "error", err)
	}

	w.publishProgress(ctx, job.DispatchHandle, events.AgentExecutionFailed{
		BaseEvent:      w.baseEvent(events.AgentExecutionFailedEvent),
		ExecutionID:    execution.ID,
		AgentID:        execution.AgentID,
		DispatchHandle: job.DispatchHandle,
		Error:          execution.Error,
		DurationMs:     execution.DurationMs,
	})

	w.logger.Warn("Agent execution failed",
		"execution_id", execution.ID, "error", runErr)
}

func (w *Worker) publishProgress(ctx context.Context, handle string, event eventbus.Event) {
	if err := w.eventBus.Publish(ctx, events.ProgressTopic, handle, event); err != nil {
		w.logger.Warn("Failed to publish progress event",
			"event_type", event.GetType(), "error", err)
	}
}

func (w *Worker) baseEvent(eventType events.EventType) events.BaseEvent {
	base := events.NewBaseEvent(eventType)
	base.WorkerID = w.workerID

	return base
}

// taskFromInput builds the runtime task. A "task" string input is used
// directly; anything else is handed to the agent as JSON.
func taskFromInput(input map[string]any) string {
	if task, ok := input["task"].(string); ok && task != "" {
		return task
	}

	if len(input) == 0 {
		return "Proceed with your configured objective."
	}

	encoded, err := json.Marshal(input)
	if err != nil {
		return "Proceed with your configured objective."
	}

	return "Proceed with the following input:\n" + string(encoded)
}

func runCost(inputTokens, outputTokens int64) float64 {
	return float64(inputTokens)*costPerInputToken + float64(outputTokens)*costPerOutputToken
}
