// Package models defines the core domain models for agent workflow automation.
package models

import (
	"errors"
	"fmt"
	"time"
)

// TriggerType identifies what kind of event starts a workflow.
type TriggerType string

const (
	TriggerTypeManual       TriggerType = "manual"
	TriggerTypeEvent        TriggerType = "event"
	TriggerTypeSchedule     TriggerType = "schedule"
	TriggerTypeAgentRequest TriggerType = "agent_request"
)

// WorkflowStatus represents the lifecycle state of a workflow definition.
type WorkflowStatus string

const (
	WorkflowStatusDraft    WorkflowStatus = "draft"    // Editable, not executable
	WorkflowStatusActive   WorkflowStatus = "active"   // Executable
	WorkflowStatusPaused   WorkflowStatus = "paused"   // Temporarily not executable
	WorkflowStatusArchived WorkflowStatus = "archived" // Terminal
)

// TerminalStep is the reserved edge target that ends traversal explicitly.
const TerminalStep = "terminal"

var (
	ErrNoSteps         = errors.New("workflow has no steps")
	ErrDuplicateStepID = errors.New("duplicate step id")
	ErrUnknownStepEdge = errors.New("edge references unknown step")
)

// WorkflowDefinition is a persisted, user-authored step graph describing an
// automation. Steps form a graph via the two labeled outgoing edges
// onSuccess/onFailure; cycles are allowed structurally and bounded at
// execution time.
type WorkflowDefinition struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"        validate:"required,min=3"`
	TriggerType TriggerType    `json:"triggerType" validate:"required,oneof=manual event schedule agent_request"`
	Status      WorkflowStatus `json:"status"      validate:"required,oneof=draft active paused archived"`
	Schedule    string         `json:"schedule,omitempty"` // cron expression, schedule trigger only
	Steps       []*Step        `json:"steps"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// Step is one node in a workflow graph, invoking one agent action. The JSON
// field names are the wire contract with the definition editor.
type Step struct {
	ID         string            `json:"id"      validate:"required"`
	AgentID    string            `json:"agentId" validate:"required"`
	Action     string            `json:"action"  validate:"required"`
	Inputs     map[string]string `json:"inputs,omitempty"`
	Conditions []Condition       `json:"conditions,omitempty"`
	OnSuccess  *string           `json:"onSuccess,omitempty"`
	OnFailure  *string           `json:"onFailure,omitempty"`
	Timeout    int               `json:"timeout,omitempty"` // seconds, 0 means default
}

// Executable reports whether the workflow may be triggered.
func (w *WorkflowDefinition) Executable() bool {
	return w.Status == WorkflowStatusActive
}

// StepByID returns the step with the given id.
func (w *WorkflowDefinition) StepByID(id string) (*Step, bool) {
	for _, step := range w.Steps {
		if step.ID == id {
			return step, true
		}
	}

	return nil, false
}

// Validate checks the structural invariants of the step graph: step ids are
// unique and every edge references an existing step or the terminal marker.
func (w *WorkflowDefinition) Validate() error {
	seen := make(map[string]struct{}, len(w.Steps))

	for _, step := range w.Steps {
		if _, dup := seen[step.ID]; dup {
			return fmt.Errorf("step %q: %w", step.ID, ErrDuplicateStepID)
		}

		seen[step.ID] = struct{}{}
	}

	for _, step := range w.Steps {
		for _, edge := range []*string{step.OnSuccess, step.OnFailure} {
			if edge == nil || *edge == TerminalStep {
				continue
			}

			if _, ok := seen[*edge]; !ok {
				return fmt.Errorf("step %q edge %q: %w", step.ID, *edge, ErrUnknownStepEdge)
			}
		}
	}

	return nil
}
