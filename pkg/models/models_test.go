package models

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stepEdge(id string) *string {
	return &id
}

func TestWorkflowValidate(t *testing.T) {
	workflow := &WorkflowDefinition{
		ID:          "wf-1",
		Name:        "Lead intake",
		TriggerType: TriggerTypeManual,
		Status:      WorkflowStatusActive,
		Steps: []*Step{
			{ID: "qualify", AgentID: "a1", Action: "qualify", OnSuccess: stepEdge("notify")},
			{ID: "notify", AgentID: "a2", Action: "notify", OnSuccess: stepEdge(TerminalStep)},
		},
	}

	require.NoError(t, workflow.Validate())
}

func TestWorkflowValidateDuplicateStepID(t *testing.T) {
	workflow := &WorkflowDefinition{
		Steps: []*Step{
			{ID: "qualify", AgentID: "a1", Action: "qualify"},
			{ID: "qualify", AgentID: "a2", Action: "notify"},
		},
	}

	assert.ErrorIs(t, workflow.Validate(), ErrDuplicateStepID)
}

func TestWorkflowValidateUnknownEdge(t *testing.T) {
	workflow := &WorkflowDefinition{
		Steps: []*Step{
			{ID: "qualify", AgentID: "a1", Action: "qualify", OnSuccess: stepEdge("missing")},
		},
	}

	assert.ErrorIs(t, workflow.Validate(), ErrUnknownStepEdge)
}

func TestWorkflowExecutable(t *testing.T) {
	workflow := &WorkflowDefinition{Status: WorkflowStatusDraft}
	assert.False(t, workflow.Executable())

	workflow.Status = WorkflowStatusActive
	assert.True(t, workflow.Executable())

	workflow.Status = WorkflowStatusPaused
	assert.False(t, workflow.Executable())
}

func TestAgentConfigMergePreferences(t *testing.T) {
	config := &AgentConfig{Preferences: map[string]any{"tone": "formal", "region": "emea"}}

	config.MergePreferences(map[string]any{"tone": "casual", "channel": "email"})

	assert.Equal(t, "casual", config.Preferences["tone"])
	assert.Equal(t, "emea", config.Preferences["region"])
	assert.Equal(t, "email", config.Preferences["channel"])
}

func TestAgentConfigAppendNoteCapped(t *testing.T) {
	config := &AgentConfig{}

	for i := 0; i < MaxAgentNotes+5; i++ {
		config.AppendNote(fmt.Sprintf("note-%d", i))
	}

	require.Len(t, config.Notes, MaxAgentNotes)
	assert.Equal(t, "note-5", config.Notes[0])
	assert.Equal(t, fmt.Sprintf("note-%d", MaxAgentNotes+4), config.Notes[MaxAgentNotes-1])
}

func TestTeamOrderedMembers(t *testing.T) {
	team := &Team{
		Members: []TeamMember{
			{AgentID: "support-2", Role: TeamRoleSupport, Priority: 2},
			{AgentID: "spec-1", Role: TeamRoleSpecialist, Priority: 1},
			{AgentID: "coord", Role: TeamRoleCoordinator, Priority: 5},
			{AgentID: "spec-0", Role: TeamRoleSpecialist, Priority: 0},
			{AgentID: "support-1", Role: TeamRoleSupport, Priority: 1},
		},
	}

	ordered := team.OrderedMembers()

	ids := make([]string, 0, len(ordered))
	for _, member := range ordered {
		ids = append(ids, member.AgentID)
	}

	assert.Equal(t, []string{"coord", "spec-0", "spec-1", "support-1", "support-2"}, ids)

	// The receiver's slice is untouched.
	assert.Equal(t, "support-2", team.Members[0].AgentID)
}

func TestAgentExecutionStatusTerminal(t *testing.T) {
	assert.False(t, AgentExecutionPending.Terminal())
	assert.False(t, AgentExecutionRunning.Terminal())
	assert.True(t, AgentExecutionCompleted.Terminal())
	assert.True(t, AgentExecutionFailed.Terminal())
	assert.True(t, AgentExecutionCancelled.Terminal())
}
