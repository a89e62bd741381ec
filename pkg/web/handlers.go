package web

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/usekora/kora/pkg/ledger"
	"github.com/usekora/kora/pkg/models"
	"github.com/usekora/kora/pkg/persistence"
	"github.com/usekora/kora/pkg/team"
	"github.com/usekora/kora/pkg/workflow"
)

const (
	idempotencyKeyHeader = "X-Idempotency-Key"
	workspaceIDHeader    = "X-Workspace-ID"
)

// APIHandlers serves the REST API.
type APIHandlers struct {
	persistence persistence.Persistence
	executor    *workflow.Executor
	dispatch    *ledger.Ledger
	coordinator *team.Coordinator
	validator   *validator.Validate
}

// NewAPIHandlers creates the handler set.
func NewAPIHandlers(
	persist persistence.Persistence,
	executor *workflow.Executor,
	dispatch *ledger.Ledger,
	coordinator *team.Coordinator,
	validate *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		persistence: persist,
		executor:    executor,
		dispatch:    dispatch,
		coordinator: coordinator,
		validator:   validate,
	}
}

// Workflow endpoints.

func (h *APIHandlers) GetWorkflows(c fiber.Ctx) error {
	workflows, err := h.persistence.Workflows().GetAll(c.Context())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"workflows": workflows})
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	found, err := h.persistence.Workflows().GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(found)
}

func (h *APIHandlers) CreateWorkflow(c fiber.Ctx) error {
	var req CreateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	now := time.Now().UTC()
	definition := &models.WorkflowDefinition{
		ID:          uuid.NewString(),
		Name:        req.Name,
		TriggerType: models.TriggerType(req.TriggerType),
		Status:      models.WorkflowStatusDraft,
		Schedule:    req.Schedule,
		Steps:       req.Steps,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := definition.Validate(); err != nil {
		return badRequest(c, err.Error())
	}

	if err := h.persistence.Workflows().Save(c.Context(), definition); err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(definition)
}

func (h *APIHandlers) UpdateWorkflow(c fiber.Ctx) error {
	var req UpdateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	definition, err := h.persistence.Workflows().GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	if definition.Status == models.WorkflowStatusArchived {
		return conflict(c, "archived workflows cannot be updated")
	}

	if req.Name != nil {
		definition.Name = *req.Name
	}

	if req.Status != nil {
		definition.Status = models.WorkflowStatus(*req.Status)
	}

	if req.Schedule != nil {
		definition.Schedule = *req.Schedule
	}

	if req.Steps != nil {
		definition.Steps = req.Steps
	}

	if err := definition.Validate(); err != nil {
		return badRequest(c, err.Error())
	}

	definition.UpdatedAt = time.Now().UTC()

	if err := h.persistence.Workflows().Save(c.Context(), definition); err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(definition)
}

func (h *APIHandlers) DeleteWorkflow(c fiber.Ctx) error {
	if err := h.persistence.Workflows().Delete(c.Context(), c.Params("id")); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) TriggerWorkflow(c fiber.Ctx) error {
	var req TriggerWorkflowRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, "Invalid JSON format")
		}
	}

	execution, err := h.executor.Start(c.Context(), c.Params("id"), c.Get(workspaceIDHeader), req.Input)
	if err != nil {
		if persistence.IsWorkflowNotFound(err) {
			return notFound(c, "workflow not found")
		}

		return badRequest(c, err.Error())
	}

	return c.Status(fiber.StatusAccepted).JSON(TriggerWorkflowResponse{
		ExecutionID: execution.ID,
		Status:      string(execution.Status),
	})
}

func (h *APIHandlers) GetExecution(c fiber.Ctx) error {
	execution, err := h.persistence.Executions().GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(execution)
}

func (h *APIHandlers) GetWorkflowExecutions(c fiber.Ctx) error {
	executions, err := h.persistence.Executions().ListByWorkflow(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"executions": executions})
}

// Agent endpoints.

func (h *APIHandlers) GetAgents(c fiber.Ctx) error {
	agents, err := h.persistence.Agents().GetAll(c.Context())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"agents": agents})
}

func (h *APIHandlers) GetAgent(c fiber.Ctx) error {
	found, err := h.persistence.Agents().GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(found)
}

func (h *APIHandlers) CreateAgent(c fiber.Ctx) error {
	var req CreateAgentRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	now := time.Now().UTC()
	created := &models.Agent{
		ID:        uuid.NewString(),
		Name:      req.Name,
		Type:      req.Type,
		Status:    models.AgentStatusDraft,
		Config:    req.Config,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := h.persistence.Agents().Save(c.Context(), created); err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) UpdateAgent(c fiber.Ctx) error {
	var req UpdateAgentRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	found, err := h.persistence.Agents().GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	if found.Status == models.AgentStatusArchived {
		return conflict(c, "archived agents cannot be updated")
	}

	if req.Name != nil {
		found.Name = *req.Name
	}

	if req.Status != nil {
		found.Status = models.AgentStatus(*req.Status)
	}

	if req.Config != nil {
		found.Config = *req.Config
	}

	found.UpdatedAt = time.Now().UTC()

	if err := h.persistence.Agents().Save(c.Context(), found); err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(found)
}

func (h *APIHandlers) DeleteAgent(c fiber.Ctx) error {
	if err := h.persistence.Agents().Delete(c.Context(), c.Params("id")); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// RunAgent dispatches an invocation through the ledger. Resubmitting the
// same X-Idempotency-Key within the dedup window returns the original
// receipt.
func (h *APIHandlers) RunAgent(c fiber.Ctx) error {
	var req RunAgentRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, "Invalid JSON format")
		}
	}

	receipt, err := h.dispatch.Enqueue(c.Context(), ledger.EnqueueRequest{
		AgentID:        c.Params("id"),
		WorkspaceID:    c.Get(workspaceIDHeader),
		Input:          req.Input,
		TriggeredBy:    req.TriggeredBy,
		IdempotencyKey: c.Get(idempotencyKeyHeader),
	})
	if err != nil {
		if persistence.IsAgentNotFound(err) {
			return notFound(c, "agent not found")
		}

		return badRequest(c, err.Error())
	}

	return c.Status(fiber.StatusAccepted).JSON(receipt)
}

func (h *APIHandlers) GetAgentExecutions(c fiber.Ctx) error {
	executions, err := h.persistence.AgentExecutions().ListByAgent(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"executions": executions})
}

func (h *APIHandlers) GetAgentExecution(c fiber.Ctx) error {
	execution, err := h.persistence.AgentExecutions().GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(execution)
}

// Team endpoints.

func (h *APIHandlers) GetTeams(c fiber.Ctx) error {
	teams, err := h.persistence.Teams().GetAll(c.Context())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"teams": teams})
}

func (h *APIHandlers) GetTeam(c fiber.Ctx) error {
	found, err := h.persistence.Teams().GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(found)
}

func (h *APIHandlers) CreateTeam(c fiber.Ctx) error {
	var req CreateTeamRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	now := time.Now().UTC()
	created := &models.Team{
		ID:         uuid.NewString(),
		Name:       req.Name,
		Department: req.Department,
		Status:     models.TeamStatusActive,
		Members:    req.Members,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := h.persistence.Teams().Save(c.Context(), created); err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) UpdateTeam(c fiber.Ctx) error {
	var req UpdateTeamRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	found, err := h.persistence.Teams().GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	if req.Name != nil {
		found.Name = *req.Name
	}

	if req.Department != nil {
		found.Department = *req.Department
	}

	if req.Status != nil {
		found.Status = models.TeamStatus(*req.Status)
	}

	if req.Members != nil {
		found.Members = req.Members
	}

	found.UpdatedAt = time.Now().UTC()

	if err := h.persistence.Teams().Save(c.Context(), found); err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(found)
}

func (h *APIHandlers) DeleteTeam(c fiber.Ctx) error {
	if err := h.persistence.Teams().Delete(c.Context(), c.Params("id")); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// RunTeam runs the team synchronously and returns the aggregated result.
func (h *APIHandlers) RunTeam(c fiber.Ctx) error {
	var req RunTeamRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	result, err := h.coordinator.RunTeam(c.Context(), c.Params("id"), req.Objective, c.Get(workspaceIDHeader))
	if err != nil {
		if persistence.IsTeamNotFound(err) {
			return notFound(c, "team not found")
		}

		return conflict(c, err.Error())
	}

	return c.JSON(result)
}

// HealthCheck reports storage health.
func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	status := "healthy"
	message := "Kora API is healthy"
	httpStatus := http.StatusOK

	if err := h.persistence.HealthCheck(c.Context()); err != nil {
		status = "unhealthy"
		message = "Kora API is unhealthy: " + err.Error()
		httpStatus = http.StatusInternalServerError
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":    status,
		"message":   message,
		"timestamp": time.Now().UTC(),
	})
}
