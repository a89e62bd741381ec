package models

import "time"

// ExecutionStatus represents the lifecycle state of a workflow execution.
type ExecutionStatus string

const (
	ExecutionStatusPending   ExecutionStatus = "pending"
	ExecutionStatusRunning   ExecutionStatus = "running"
	ExecutionStatusCompleted ExecutionStatus = "completed"
	ExecutionStatusFailed    ExecutionStatus = "failed"
	ExecutionStatusPaused    ExecutionStatus = "paused"
)

// StepStatus is the recorded outcome of one step within an execution.
type StepStatus string

const (
	StepStatusCompleted StepStatus = "completed"
	StepStatusFailed    StepStatus = "failed"
)

// Error codes carried by ExecutionError.
const (
	ErrorCodeCycleDetected = "cycle_detected"
	ErrorCodeStepFailed    = "step_failed"
	ErrorCodeStepNotFound  = "step_not_found"
	ErrorCodeValidation    = "validation_error"
)

// StepResult records the outcome of one step. A step skipped because its
// conditions were unmet is recorded as completed with a skip marker.
type StepResult struct {
	Status      StepStatus     `json:"status"`
	Output      map[string]any `json:"output,omitempty"`
	Error       string         `json:"error,omitempty"`
	Skipped     bool           `json:"skipped,omitempty"`
	CompletedAt time.Time      `json:"completedAt"`
}

// ExecutionError is the structured failure attached to a terminally failed
// execution.
type ExecutionError struct {
	StepID  string `json:"stepId,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *ExecutionError) Error() string {
	if e.StepID != "" {
		return e.Code + " at step " + e.StepID + ": " + e.Message
	}

	return e.Code + ": " + e.Message
}

// WorkflowExecution is one run of a workflow. An execution owns its context
// and stepResults exclusively; they are never shared across executions.
type WorkflowExecution struct {
	ID            string                `json:"id"`
	WorkflowID    string                `json:"workflowId"`
	Status        ExecutionStatus       `json:"status"`
	CurrentStepID string                `json:"currentStepId,omitempty"`
	StepResults   map[string]StepResult `json:"stepResults"`
	Context       map[string]any        `json:"context"`
	StartedAt     time.Time             `json:"startedAt"`
	CompletedAt   *time.Time            `json:"completedAt,omitempty"`
	Error         *ExecutionError       `json:"error,omitempty"`
}

// Terminal reports whether the execution reached a final state.
func (s ExecutionStatus) Terminal() bool {
	return s == ExecutionStatusCompleted || s == ExecutionStatusFailed
}
