package models

import "time"

// AgentExecutionStatus represents the lifecycle state of one agent
// invocation. Terminal states are never revived; a retry creates a new row
// tied by idempotency key.
type AgentExecutionStatus string

const (
	AgentExecutionPending   AgentExecutionStatus = "pending"
	AgentExecutionRunning   AgentExecutionStatus = "running"
	AgentExecutionCompleted AgentExecutionStatus = "completed"
	AgentExecutionFailed    AgentExecutionStatus = "failed"
	AgentExecutionCancelled AgentExecutionStatus = "cancelled"
)

// Terminal reports whether the status is final.
func (s AgentExecutionStatus) Terminal() bool {
	switch s {
	case AgentExecutionCompleted, AgentExecutionFailed, AgentExecutionCancelled:
		return true
	default:
		return false
	}
}

// AgentExecution is the durable ledger record of one agent invocation. The
// row is created in pending before any async work is scheduled, so a crash
// pre-dispatch still leaves an auditable record.
type AgentExecution struct {
	ID             string               `json:"id"`
	AgentID        string               `json:"agentId"`
	Status         AgentExecutionStatus `json:"status"`
	Input          map[string]any       `json:"input,omitempty"`
	Output         string               `json:"output,omitempty"`
	Error          string               `json:"error,omitempty"`
	DurationMs     int64                `json:"durationMs,omitempty"`
	TokensUsed     int64                `json:"tokensUsed,omitempty"`
	Cost           float64              `json:"cost,omitempty"`
	TriggeredBy    string               `json:"triggeredBy,omitempty"`
	IdempotencyKey string               `json:"idempotencyKey,omitempty"`
	CreatedAt      time.Time            `json:"createdAt"`
	StartedAt      *time.Time           `json:"startedAt,omitempty"`
	CompletedAt    *time.Time           `json:"completedAt,omitempty"`
}
