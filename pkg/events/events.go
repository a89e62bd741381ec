// Package events defines the event types published on the bus: workflow
// execution lifecycle, agent dispatch jobs, and agent execution progress.
package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/usekora/kora/pkg/models"
)

// EventType tags the concrete payload of a bus message.
type EventType string

// Topics.
const (
	ExecutionTopic = "kora.workflow.executions" // workflow execution lifecycle
	JobTopic       = "kora.agent.jobs"          // dispatch hand-off to workers
	ProgressTopic  = "kora.agent.progress"      // real-time channel keyed by dispatch handle
)

// Message metadata keys.
const (
	EventKeyMetadataKey  = "key"
	EventTypeMetadataKey = "event_type"
)

const (
	// Workflow execution lifecycle.
	ExecutionStartedEvent   EventType = "workflow.execution.started"
	StepCompletedEvent      EventType = "workflow.step.completed"
	StepFailedEvent         EventType = "workflow.step.failed"
	ExecutionCompletedEvent EventType = "workflow.execution.completed"
	ExecutionFailedEvent    EventType = "workflow.execution.failed"

	// Dispatch.
	AgentJobQueuedEvent EventType = "agent.job.queued"

	// Agent execution progress.
	AgentExecutionRunningEvent   EventType = "agent.execution.running"
	AgentExecutionCompletedEvent EventType = "agent.execution.completed"
	AgentExecutionFailedEvent    EventType = "agent.execution.failed"
)

// BaseEvent carries the fields shared by every event.
type BaseEvent struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	WorkerID  string    `json:"worker_id,omitempty"`
}

// NewBaseEvent creates the shared envelope for an event.
func NewBaseEvent(eventType EventType) BaseEvent {
	return BaseEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
	}
}

// Workflow execution lifecycle events.

type ExecutionStarted struct {
	BaseEvent

	ExecutionID string         `json:"execution_id"`
	WorkflowID  string         `json:"workflow_id"`
	TriggerType string         `json:"trigger_type"`
	Input       map[string]any `json:"input,omitempty"`
}

func (e ExecutionStarted) GetType() EventType { return ExecutionStartedEvent }

type StepCompleted struct {
	BaseEvent

	ExecutionID string         `json:"execution_id"`
	WorkflowID  string         `json:"workflow_id"`
	StepID      string         `json:"step_id"`
	Skipped     bool           `json:"skipped,omitempty"`
	Output      map[string]any `json:"output,omitempty"`
	DurationMs  int64          `json:"duration_ms"`
}

func (e StepCompleted) GetType() EventType { return StepCompletedEvent }

type StepFailed struct {
	BaseEvent

	ExecutionID string `json:"execution_id"`
	WorkflowID  string `json:"workflow_id"`
	StepID      string `json:"step_id"`
	Error       string `json:"error"`
	DurationMs  int64  `json:"duration_ms"`
}

func (e StepFailed) GetType() EventType { return StepFailedEvent }

type ExecutionCompleted struct {
	BaseEvent

	ExecutionID   string `json:"execution_id"`
	WorkflowID    string `json:"workflow_id"`
	StepsExecuted int    `json:"steps_executed"`
	DurationMs    int64  `json:"duration_ms"`
}

func (e ExecutionCompleted) GetType() EventType { return ExecutionCompletedEvent }

type ExecutionFailed struct {
	BaseEvent

	ExecutionID string                       `json:"execution_id"`
	WorkflowID  string                       `json:"workflow_id"`
	Error       models.ExecutionError        `json:"error"`
	StepResults map[string]models.StepResult `json:"step_results,omitempty"`
	DurationMs  int64                        `json:"duration_ms"`
}

func (e ExecutionFailed) GetType() EventType { return ExecutionFailedEvent }

// Dispatch events.

// AgentJobQueued is the durable hand-off from the ledger to a worker. The
// dispatch handle keys the progress channel for this run.
type AgentJobQueued struct {
	BaseEvent

	ExecutionID    string         `json:"execution_id"`
	AgentID        string         `json:"agent_id"`
	WorkspaceID    string         `json:"workspace_id,omitempty"`
	Input          map[string]any `json:"input,omitempty"`
	TriggeredBy    string         `json:"triggered_by,omitempty"`
	DispatchHandle string         `json:"dispatch_handle"`
}

func (e AgentJobQueued) GetType() EventType { return AgentJobQueuedEvent }

// Agent execution progress events, published on ProgressTopic keyed by the
// dispatch handle so clients can stream one run without polling.

type AgentExecutionRunning struct {
	BaseEvent

	ExecutionID    string `json:"execution_id"`
	AgentID        string `json:"agent_id"`
	DispatchHandle string `json:"dispatch_handle"`
}

func (e AgentExecutionRunning) GetType() EventType { return AgentExecutionRunningEvent }

type AgentExecutionCompleted struct {
	BaseEvent

	ExecutionID    string  `json:"execution_id"`
	AgentID        string  `json:"agent_id"`
	DispatchHandle string  `json:"dispatch_handle"`
	Output         string  `json:"output,omitempty"`
	DurationMs     int64   `json:"duration_ms"`
	TokensUsed     int64   `json:"tokens_used"`
	Cost           float64 `json:"cost"`
}

func (e AgentExecutionCompleted) GetType() EventType { return AgentExecutionCompletedEvent }

type AgentExecutionFailed struct {
	BaseEvent

	ExecutionID    string `json:"execution_id"`
	AgentID        string `json:"agent_id"`
	DispatchHandle string `json:"dispatch_handle"`
	Error          string `json:"error"`
	DurationMs     int64  `json:"duration_ms"`
}

func (e AgentExecutionFailed) GetType() EventType { return AgentExecutionFailedEvent }
