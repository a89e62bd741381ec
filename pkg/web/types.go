// Package web provides the HTTP request and response types for the REST API.
package web

import "github.com/usekora/kora/pkg/models"

// CreateWorkflowRequest is the request body for creating a workflow. New
// workflows start in draft.
type CreateWorkflowRequest struct {
	Name        string         `json:"name"        validate:"required,min=3"`
	TriggerType string         `json:"triggerType" validate:"required,oneof=manual event schedule agent_request"`
	Schedule    string         `json:"schedule,omitempty"`
	Steps       []*models.Step `json:"steps"       validate:"required,min=1,dive"`
}

// UpdateWorkflowRequest supports partial updates of a workflow.
type UpdateWorkflowRequest struct {
	Name     *string        `json:"name,omitempty"     validate:"omitempty,min=3"`
	Status   *string        `json:"status,omitempty"   validate:"omitempty,oneof=draft active paused archived"`
	Schedule *string        `json:"schedule,omitempty"`
	Steps    []*models.Step `json:"steps,omitempty"    validate:"omitempty,min=1,dive"`
}

// TriggerWorkflowRequest starts one workflow execution.
type TriggerWorkflowRequest struct {
	Input map[string]any `json:"input,omitempty"`
}

// TriggerWorkflowResponse acknowledges an accepted execution.
type TriggerWorkflowResponse struct {
	ExecutionID string `json:"executionId"`
	Status      string `json:"status"`
}

// CreateAgentRequest is the request body for creating an agent.
type CreateAgentRequest struct {
	Name   string             `json:"name" validate:"required"`
	Type   string             `json:"type" validate:"required"`
	Config models.AgentConfig `json:"config"`
}

// UpdateAgentRequest supports partial updates of an agent.
type UpdateAgentRequest struct {
	Name   *string             `json:"name,omitempty"   validate:"omitempty,min=1"`
	Status *string             `json:"status,omitempty" validate:"omitempty,oneof=draft active paused archived"`
	Config *models.AgentConfig `json:"config,omitempty"`
}

// RunAgentRequest dispatches one agent invocation. The idempotency key comes
// from the X-Idempotency-Key header, not the body.
type RunAgentRequest struct {
	Input       map[string]any `json:"input,omitempty"`
	TriggeredBy string         `json:"triggeredBy,omitempty"`
}

// CreateTeamRequest is the request body for creating a team.
type CreateTeamRequest struct {
	Name       string              `json:"name"    validate:"required"`
	Department string              `json:"department,omitempty"`
	Members    []models.TeamMember `json:"members" validate:"required,min=1,dive"`
}

// UpdateTeamRequest supports partial updates of a team.
type UpdateTeamRequest struct {
	Name       *string             `json:"name,omitempty"    validate:"omitempty,min=1"`
	Department *string             `json:"department,omitempty"`
	Status     *string             `json:"status,omitempty"  validate:"omitempty,oneof=active paused archived"`
	Members    []models.TeamMember `json:"members,omitempty" validate:"omitempty,min=1,dive"`
}

// RunTeamRequest starts one team run.
type RunTeamRequest struct {
	Objective string `json:"objective" validate:"required"`
}
