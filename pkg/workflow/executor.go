// Package workflow implements the step graph executor: sequential traversal
// of a workflow definition with conditional skips, labeled failure routing,
// and a cycle bound.
package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/usekora/kora/pkg/eventbus"
	"github.com/usekora/kora/pkg/events"
	"github.com/usekora/kora/pkg/models"
	"github.com/usekora/kora/pkg/persistence"
	"github.com/usekora/kora/pkg/template"
)

// DefaultStepTimeout applies to steps that do not declare their own timeout.
const DefaultStepTimeout = 120 * time.Second

// AgentRunner executes one step action against an agent and returns the
// output to merge into the execution context. The workspace ID comes from
// the trigger and scopes the agent's tools.
type AgentRunner interface {
	RunStep(ctx context.Context, workspaceID, agentID, action string, inputs map[string]string) (map[string]any, error)
}

// Executor traverses workflow step graphs. Traversal is bounded at twice the
// step count, so cyclic graphs terminate with a cycle_detected failure
// instead of running forever.
type Executor struct {
	persistence persistence.Persistence
	runner      AgentRunner
	eventBus    eventbus.EventPublisher
	logger      *slog.Logger
}

// NewExecutor creates a workflow executor.
func NewExecutor(persist persistence.Persistence, runner AgentRunner, eventBus eventbus.EventPublisher, logger *slog.Logger) *Executor {
	return &Executor{
		persistence: persist,
		runner:      runner,
		eventBus:    eventBus,
		logger:      logger,
	}
}

// Execute runs the workflow to completion and returns the final execution
// record. Step failures routed through onFailure do not fail the execution;
// unrouted failures do, and are reported on the record, not as an error.
func (e *Executor) Execute(ctx context.Context, workflowID, workspaceID string, triggerInput map[string]any) (*models.WorkflowExecution, error) {
	workflow, execution, err := e.prepare(ctx, workflowID, triggerInput)
	if err != nil {
		return nil, err
	}

	e.run(ctx, workflow, execution, workspaceID)

	return execution, nil
}

// Start accepts the trigger, persists a pending execution, and processes it
// in the background. Callers poll the execution record for progress.
func (e *Executor) Start(ctx context.Context, workflowID, workspaceID string, triggerInput map[string]any) (*models.WorkflowExecution, error) {
	workflow, execution, err := e.prepare(ctx, workflowID, triggerInput)
	if err != nil {
		return nil, err
	}

	accepted := *execution

	go func() {
		e.run(context.WithoutCancel(ctx), workflow, execution, workspaceID)
	}()

	return &accepted, nil
}

func (e *Executor) prepare(ctx context.Context, workflowID string, triggerInput map[string]any) (*models.WorkflowDefinition, *models.WorkflowExecution, error) {
	workflow, err := e.persistence.Workflows().GetByID(ctx, workflowID)
	if err != nil {
		return nil, nil, err
	}

	if !workflow.Executable() {
		return nil, nil, fmt.Errorf("workflow %s is not executable in status %s", workflow.ID, workflow.Status)
	}

	if len(workflow.Steps) == 0 {
		return nil, nil, models.ErrNoSteps
	}

	if err := workflow.Validate(); err != nil {
		return nil, nil, err
	}

	executionContext := make(map[string]any, len(triggerInput))
	for key, value := range triggerInput {
		executionContext[key] = value
	}

	execution := &models.WorkflowExecution{
		ID:          uuid.NewString(),
		WorkflowID:  workflow.ID,
		Status:      models.ExecutionStatusRunning,
		StepResults: make(map[string]models.StepResult),
		Context:     executionContext,
		StartedAt:   time.Now().UTC(),
	}

	if err := e.persistence.Executions().Save(ctx, execution); err != nil {
		return nil, nil, fmt.Errorf("failed to persist execution: %w", err)
	}

	e.publish(ctx, execution.ID, events.ExecutionStarted{
		BaseEvent:   events.NewBaseEvent(events.ExecutionStartedEvent),
		ExecutionID: execution.ID,
		WorkflowID:  workflow.ID,
		TriggerType: string(workflow.TriggerType),
		Input:       triggerInput,
	})

	return workflow, execution, nil
}

// run traverses the graph, mutating and persisting the execution as it goes.
func (e *Executor) run(ctx context.Context, workflow *models.WorkflowDefinition, execution *models.WorkflowExecution, workspaceID string) {
	logger := e.logger.With("workflow_id", workflow.ID, "execution_id", execution.ID)

	maxVisits := 2 * len(workflow.Steps)
	visits := 0
	current := workflow.Steps[0].ID

	for {
		visits++
		if visits > maxVisits {
			logger.Error("Step visit bound exceeded, aborting execution", "visits", visits)
			e.fail(ctx, execution, &models.ExecutionError{
				StepID:  current,
				Code:    models.ErrorCodeCycleDetected,
				Message: fmt.Sprintf("aborted after %d step visits, graph contains an unbounded cycle", visits-1),
			})

			return
		}

		step, found := workflow.StepByID(current)
		if !found {
			e.fail(ctx, execution, &models.ExecutionError{
				StepID:  current,
				Code:    models.ErrorCodeStepNotFound,
				Message: fmt.Sprintf("step %s does not exist", current),
			})

			return
		}

		execution.CurrentStepID = step.ID
		e.save(ctx, execution)

		next, done := e.executeStep(ctx, workflow, execution, step, workspaceID, logger)
		if done {
			return
		}

		current = next
	}
}

// executeStep runs one step and returns the next step id, or done=true when
// the execution reached a terminal state.
func (e *Executor) executeStep(ctx context.Context, workflow *models.WorkflowDefinition, execution *models.WorkflowExecution, step *models.Step, workspaceID string, logger *slog.Logger) (string, bool) {
	if !conditionsMet(step, execution.Context) {
		logger.Info("Step conditions unmet, skipping", "step_id", step.ID)

		execution.StepResults[step.ID] = models.StepResult{
			Status:      models.StepStatusCompleted,
			Skipped:     true,
			CompletedAt: time.Now().UTC(),
		}
		e.save(ctx, execution)

		e.publish(ctx, execution.ID, events.StepCompleted{
			BaseEvent:   events.NewBaseEvent(events.StepCompletedEvent),
			ExecutionID: execution.ID,
			WorkflowID:  workflow.ID,
			StepID:      step.ID,
			Skipped:     true,
		})

		return e.advance(ctx, execution, step.OnSuccess)
	}

	inputs := template.RenderInputs(step.Inputs, execution.Context)
	started := time.Now()

	stepCtx, cancel := context.WithTimeout(ctx, stepTimeout(step))
	output, err := e.runner.RunStep(stepCtx, workspaceID, step.AgentID, step.Action, inputs)

	cancel()

	duration := time.Since(started).Milliseconds()

	if err != nil {
		logger.Warn("Step failed", "step_id", step.ID, "error", err)

		execution.StepResults[step.ID] = models.StepResult{
			Status:      models.StepStatusFailed,
			Error:       err.Error(),
			CompletedAt: time.Now().UTC(),
		}
		e.save(ctx, execution)

		e.publish(ctx, execution.ID, events.StepFailed{
			BaseEvent:   events.NewBaseEvent(events.StepFailedEvent),
			ExecutionID: execution.ID,
			WorkflowID:  workflow.ID,
			StepID:      step.ID,
			Error:       err.Error(),
			DurationMs:  duration,
		})

		if step.OnFailure == nil {
			e.fail(ctx, execution, &models.ExecutionError{
				StepID:  step.ID,
				Code:    models.ErrorCodeStepFailed,
				Message: err.Error(),
			})

			return "", true
		}

		return e.advance(ctx, execution, step.OnFailure)
	}

	for key, value := range output {
		execution.Context[key] = value
	}

	execution.StepResults[step.ID] = models.StepResult{
		Status:      models.StepStatusCompleted,
		Output:      output,
		CompletedAt: time.Now().UTC(),
	}
	e.save(ctx, execution)

	e.publish(ctx, execution.ID, events.StepCompleted{
		BaseEvent:   events.NewBaseEvent(events.StepCompletedEvent),
		ExecutionID: execution.ID,
		WorkflowID:  workflow.ID,
		StepID:      step.ID,
		Output:      output,
		DurationMs:  duration,
	})

	return e.advance(ctx, execution, step.OnSuccess)
}

// advance follows an edge. A nil edge or the terminal marker completes the
// execution.
func (e *Executor) advance(ctx context.Context, execution *models.WorkflowExecution, edge *string) (string, bool) {
	if edge == nil || *edge == models.TerminalStep {
		e.complete(ctx, execution)

		return "", true
	}

	return *edge, false
}

func (e *Executor) complete(ctx context.Context, execution *models.WorkflowExecution) {
	now := time.Now().UTC()
	execution.Status = models.ExecutionStatusCompleted
	execution.CurrentStepID = ""
	execution.CompletedAt = &now
	e.save(ctx, execution)

	e.publish(ctx, execution.ID, events.ExecutionCompleted{
		BaseEvent:     events.NewBaseEvent(events.ExecutionCompletedEvent),
		ExecutionID:   execution.ID,
		WorkflowID:    execution.WorkflowID,
		StepsExecuted: len(execution.StepResults),
		DurationMs:    now.Sub(execution.StartedAt).Milliseconds(),
	})
}

func (e *Executor) fail(ctx context.Context, execution *models.WorkflowExecution, executionError *models.ExecutionError) {
	now := time.Now().UTC()
	execution.Status = models.ExecutionStatusFailed
	execution.CompletedAt = &now
	execution.Error = executionError
	e.save(ctx, execution)

	e.publish(ctx, execution.ID, events.ExecutionFailed{
		BaseEvent:   events.NewBaseEvent(events.ExecutionFailedEvent),
		ExecutionID: execution.ID,
		WorkflowID:  execution.WorkflowID,
		Error:       *executionError,
		StepResults: execution.StepResults,
		DurationMs:  now.Sub(execution.StartedAt).Milliseconds(),
	})
}

func (e *Executor) save(ctx context.Context, execution *models.WorkflowExecution) {
	if err := e.persistence.Executions().Save(ctx, execution); err != nil {
		e.logger.Error("Failed to persist execution", "execution_id", execution.ID, "error", err)
	}
}

func (e *Executor) publish(ctx context.Context, key string, event eventbus.Event) {
	if e.eventBus == nil {
		return
	}

	if err := e.eventBus.Publish(ctx, events.ExecutionTopic, key, event); err != nil {
		e.logger.Warn("Failed to publish execution event", "event_type", event.GetType(), "error", err)
	}
}

// conditionsMet reports whether every condition on the step holds. Steps
// without conditions always run.
func conditionsMet(step *models.Step, executionContext map[string]any) bool {
	for _, condition := range step.Conditions {
		if !condition.Evaluate(executionContext) {
			return false
		}
	}

	return true
}

func stepTimeout(step *models.Step) time.Duration {
	if step.Timeout > 0 {
		return time.Duration(step.Timeout) * time.Second
	}

	return DefaultStepTimeout
}
