// Package team runs a team of agents against one shared objective in role
// order: coordinator, then specialists, then support, priority ascending
// within each role.
package team

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/usekora/kora/pkg/agent"
	"github.com/usekora/kora/pkg/models"
	"github.com/usekora/kora/pkg/persistence"
	"github.com/usekora/kora/pkg/tools"
)

// MemberResult records one member's contribution to a team run.
type MemberResult struct {
	AgentID    string          `json:"agentId"`
	Role       models.TeamRole `json:"role"`
	Skipped    bool            `json:"skipped,omitempty"`
	Content    string          `json:"content,omitempty"`
	Error      string          `json:"error,omitempty"`
	TokensUsed int64           `json:"tokensUsed,omitempty"`
}

// RunResult is the outcome of one team run.
type RunResult struct {
	TeamID      string         `json:"teamId"`
	Objective   string         `json:"objective"`
	Members     []MemberResult `json:"members"`
	Context     map[string]any `json:"context"`
	StartedAt   time.Time      `json:"startedAt"`
	CompletedAt time.Time      `json:"completedAt"`
}

// Coordinator runs teams. Members share one accumulating context: each
// member sees the contributions of everyone who ran before it.
type Coordinator struct {
	persistence persistence.Persistence
	runtime     *agent.Runtime
	logger      *slog.Logger
}

// NewCoordinator creates a team coordinator.
func NewCoordinator(persist persistence.Persistence, runtime *agent.Runtime, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		persistence: persist,
		runtime:     runtime,
		logger:      logger,
	}
}

// RunTeam runs every runnable member in role order against the objective.
// A paused or archived team accepts no new runs. Member failures and
// non-runnable members are recorded and the run continues, so a draft
// specialist never blocks the support roles behind it.
func (c *Coordinator) RunTeam(ctx context.Context, teamID, objective string, workspaceID string) (*RunResult, error) {
	team, err := c.persistence.Teams().GetByID(ctx, teamID)
	if err != nil {
		return nil, err
	}

	if team.Status != models.TeamStatusActive {
		return nil, fmt.Errorf("team %s does not accept runs in status %s", team.ID, team.Status)
	}

	logger := c.logger.With("team_id", team.ID)

	result := &RunResult{
		TeamID:    team.ID,
		Objective: objective,
		Context:   make(map[string]any),
		StartedAt: time.Now().UTC(),
	}

	for _, member := range team.OrderedMembers() {
		memberResult := c.runMember(ctx, member, objective, result.Context, workspaceID, logger)
		result.Members = append(result.Members, memberResult)

		if memberResult.Content != "" {
			result.Context[member.AgentID] = memberResult.Content
		}
	}

	result.CompletedAt = time.Now().UTC()

	return result, nil
}

func (c *Coordinator) runMember(ctx context.Context, member models.TeamMember, objective string, shared map[string]any, workspaceID string, logger *slog.Logger) MemberResult {
	memberResult := MemberResult{AgentID: member.AgentID, Role: member.Role}

	memberAgent, err := c.persistence.Agents().GetByID(ctx, member.AgentID)
	if err != nil {
		logger.Warn("Team member lookup failed, skipping", "agent_id", member.AgentID, "error", err)
		memberResult.Skipped = true
		memberResult.Error = err.Error()

		return memberResult
	}

	if !memberAgent.Runnable() {
		logger.Info("Team member not runnable, skipping",
			"agent_id", memberAgent.ID, "status", memberAgent.Status)
		memberResult.Skipped = true

		return memberResult
	}

	runResult, err := c.runtime.Run(ctx, memberAgent, memberTask(member.Role, objective, shared), tools.Context{
		WorkspaceID: workspaceID,
		AgentID:     memberAgent.ID,
	})
	if err != nil {
		logger.Warn("Team member run failed", "agent_id", memberAgent.ID, "error", err)
		memberResult.Error = err.Error()

		return memberResult
	}

	memberResult.Content = runResult.Content
	memberResult.TokensUsed = runResult.Usage.Total()

	return memberResult
}

// memberTask frames the objective for one member, including what earlier
// members produced.
func memberTask(role models.TeamRole, objective string, shared map[string]any) string {
	task := fmt.Sprintf("You are acting as the team %s.\n\nObjective: %s", role, objective)

	if len(shared) == 0 {
		return task
	}

	contributions, err := json.MarshalIndent(shared, "", "  ")
	if err != nil {
		return task
	}

	return task + "\n\nContributions from earlier team members:\n" + string(contributions)
}
