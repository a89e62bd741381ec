package team

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usekora/kora/pkg/agent"
	"github.com/usekora/kora/pkg/llm"
	"github.com/usekora/kora/pkg/models"
	"github.com/usekora/kora/pkg/persistence/file"
	"github.com/usekora/kora/pkg/tools"
)

// sequenceClient answers each completion with a numbered contribution and
// records every request.
type sequenceClient struct {
	mu       sync.Mutex
	calls    int
	requests []llm.Request
	failOn   map[int]error // 1-based call index -> error
}

func (c *sequenceClient) Complete(_ context.Context, req llm.Request) (*llm.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.calls++
	c.requests = append(c.requests, req)

	if err := c.failOn[c.calls]; err != nil {
		return nil, err
	}

	return &llm.Response{
		Content: fmt.Sprintf("contribution-%d", c.calls),
		Usage:   llm.Usage{InputTokens: 10, OutputTokens: 5},
	}, nil
}

func newTestCoordinator(t *testing.T, client llm.Client) (*Coordinator, *file.Persistence) {
	t.Helper()

	persist, err := file.NewPersistence(t.TempDir())
	require.NoError(t, err)

	runtime := agent.NewRuntime(client, tools.NewRegistry(slog.Default()), slog.Default(), agent.WithRetry(1, 0))

	return NewCoordinator(persist, runtime, slog.Default()), persist
}

func saveMemberAgent(t *testing.T, persist *file.Persistence, id string, status models.AgentStatus) {
	t.Helper()

	require.NoError(t, persist.Agents().Save(context.Background(), &models.Agent{
		ID:        id,
		Name:      id,
		Type:      "generalist",
		Status:    status,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}))
}

func saveTeam(t *testing.T, persist *file.Persistence, status models.TeamStatus, members []models.TeamMember) *models.Team {
	t.Helper()

	team := &models.Team{
		ID:        uuid.NewString(),
		Name:      "Deal desk",
		Status:    status,
		Members:   members,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	require.NoError(t, persist.Teams().Save(context.Background(), team))

	return team
}

func TestRunTeamRunsMembersInRoleOrder(t *testing.T) {
	client := &sequenceClient{}
	coordinator, persist := newTestCoordinator(t, client)

	saveMemberAgent(t, persist, "coord", models.AgentStatusActive)
	saveMemberAgent(t, persist, "spec", models.AgentStatusActive)
	saveMemberAgent(t, persist, "support", models.AgentStatusActive)

	team := saveTeam(t, persist, models.TeamStatusActive, []models.TeamMember{
		{AgentID: "support", Role: models.TeamRoleSupport, Priority: 1},
		{AgentID: "coord", Role: models.TeamRoleCoordinator, Priority: 1},
		{AgentID: "spec", Role: models.TeamRoleSpecialist, Priority: 1},
	})

	result, err := coordinator.RunTeam(context.Background(), team.ID, "close the Acme deal", "ws-1")
	require.NoError(t, err)

	require.Len(t, result.Members, 3)
	assert.Equal(t, "coord", result.Members[0].AgentID)
	assert.Equal(t, "spec", result.Members[1].AgentID)
	assert.Equal(t, "support", result.Members[2].AgentID)

	// Every contribution lands in the shared context under the member's id.
	assert.Equal(t, "contribution-1", result.Context["coord"])
	assert.Equal(t, "contribution-2", result.Context["spec"])
	assert.Equal(t, "contribution-3", result.Context["support"])

	// Later members see what ran before them.
	lastTask := client.requests[2].Messages[0].Content
	assert.Contains(t, lastTask, "close the Acme deal")
	assert.Contains(t, lastTask, "contribution-1")
	assert.Contains(t, lastTask, "contribution-2")

	// The first member starts from a clean slate.
	firstTask := client.requests[0].Messages[0].Content
	assert.NotContains(t, firstTask, "Contributions from earlier team members")
}

func TestRunTeamRejectsPausedTeam(t *testing.T) {
	client := &sequenceClient{}
	coordinator, persist := newTestCoordinator(t, client)

	team := saveTeam(t, persist, models.TeamStatusPaused, []models.TeamMember{
		{AgentID: "coord", Role: models.TeamRoleCoordinator, Priority: 1},
	})

	_, err := coordinator.RunTeam(context.Background(), team.ID, "objective", "ws-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not accept runs")
	assert.Zero(t, client.calls)
}

func TestRunTeamSkipsNonRunnableMembers(t *testing.T) {
	client := &sequenceClient{}
	coordinator, persist := newTestCoordinator(t, client)

	saveMemberAgent(t, persist, "coord", models.AgentStatusActive)
	saveMemberAgent(t, persist, "spec", models.AgentStatusDraft)
	saveMemberAgent(t, persist, "support", models.AgentStatusActive)

	team := saveTeam(t, persist, models.TeamStatusActive, []models.TeamMember{
		{AgentID: "coord", Role: models.TeamRoleCoordinator, Priority: 1},
		{AgentID: "spec", Role: models.TeamRoleSpecialist, Priority: 1},
		{AgentID: "support", Role: models.TeamRoleSupport, Priority: 1},
	})

	result, err := coordinator.RunTeam(context.Background(), team.ID, "objective", "ws-1")
	require.NoError(t, err)

	require.Len(t, result.Members, 3)
	assert.True(t, result.Members[1].Skipped)
	assert.Empty(t, result.Members[1].Content)

	// The support member still ran after the skipped specialist.
	assert.False(t, result.Members[2].Skipped)
	assert.Equal(t, "contribution-2", result.Members[2].Content)
	assert.NotContains(t, result.Context, "spec")
}

func TestRunTeamRecordsMissingMember(t *testing.T) {
	client := &sequenceClient{}
	coordinator, persist := newTestCoordinator(t, client)

	saveMemberAgent(t, persist, "support", models.AgentStatusActive)

	team := saveTeam(t, persist, models.TeamStatusActive, []models.TeamMember{
		{AgentID: "ghost", Role: models.TeamRoleCoordinator, Priority: 1},
		{AgentID: "support", Role: models.TeamRoleSupport, Priority: 1},
	})

	result, err := coordinator.RunTeam(context.Background(), team.ID, "objective", "ws-1")
	require.NoError(t, err)

	require.Len(t, result.Members, 2)
	assert.True(t, result.Members[0].Skipped)
	assert.NotEmpty(t, result.Members[0].Error)
	assert.Equal(t, "contribution-1", result.Members[1].Content)
}

func TestRunTeamContinuesAfterMemberFailure(t *testing.T) {
	client := &sequenceClient{failOn: map[int]error{1: fmt.Errorf("completion unavailable")}}
	coordinator, persist := newTestCoordinator(t, client)

	saveMemberAgent(t, persist, "coord", models.AgentStatusActive)
	saveMemberAgent(t, persist, "spec", models.AgentStatusActive)

	team := saveTeam(t, persist, models.TeamStatusActive, []models.TeamMember{
		{AgentID: "coord", Role: models.TeamRoleCoordinator, Priority: 1},
		{AgentID: "spec", Role: models.TeamRoleSpecialist, Priority: 1},
	})

	result, err := coordinator.RunTeam(context.Background(), team.ID, "objective", "ws-1")
	require.NoError(t, err)

	require.Len(t, result.Members, 2)
	assert.False(t, result.Members[0].Skipped)
	assert.Contains(t, result.Members[0].Error, "completion unavailable")
	assert.NotContains(t, result.Context, "coord")
	assert.Equal(t, "contribution-2", result.Members[1].Content)
}
