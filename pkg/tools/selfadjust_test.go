package tools

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usekora/kora/pkg/models"
)

// fakeConfigStore holds a single agent config and applies mutations to it.
type fakeConfigStore struct {
	agentID string
	config  models.AgentConfig
}

func (s *fakeConfigStore) UpdateAgentConfig(_ context.Context, agentID string, mutate func(*models.AgentConfig) error) error {
	if agentID != s.agentID {
		return ErrNoActingAgent
	}

	return mutate(&s.config)
}

func newSelfToolsRegistry(store *fakeConfigStore, workspace WorkspaceStore) *Registry {
	registry := NewRegistry(slog.Default())
	registry.RegisterAll(SelfTools(store, workspace))

	return registry
}

func TestUpdateMyPreferencesMerges(t *testing.T) {
	store := &fakeConfigStore{
		agentID: "agent-1",
		config:  models.AgentConfig{Preferences: map[string]any{"tone": "formal", "region": "emea"}},
	}
	registry := newSelfToolsRegistry(store, NewInMemoryWorkspaceStore())

	result := registry.Execute(context.Background(), "update_my_preferences", map[string]any{
		"preferences": map[string]any{"tone": "casual", "channel": "email"},
	}, Context{AgentID: "agent-1"})

	require.True(t, result.Success, result.Message)
	assert.Equal(t, "casual", store.config.Preferences["tone"])
	assert.Equal(t, "emea", store.config.Preferences["region"])
	assert.Equal(t, "email", store.config.Preferences["channel"])
}

func TestAddNoteToSelf(t *testing.T) {
	store := &fakeConfigStore{agentID: "agent-1"}
	registry := newSelfToolsRegistry(store, NewInMemoryWorkspaceStore())

	result := registry.Execute(context.Background(), "add_note_to_self", map[string]any{
		"note": "prefers short emails",
	}, Context{AgentID: "agent-1"})

	require.True(t, result.Success, result.Message)
	require.Len(t, store.config.Notes, 1)
	assert.Equal(t, "prefers short emails", store.config.Notes[0])
}

func TestSelfToolsRequireActingAgent(t *testing.T) {
	store := &fakeConfigStore{agentID: "agent-1"}
	registry := newSelfToolsRegistry(store, NewInMemoryWorkspaceStore())

	result := registry.Execute(context.Background(), "add_note_to_self", map[string]any{
		"note": "anything",
	}, Context{})

	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "no acting agent")
	assert.Empty(t, store.config.Notes)
}

func TestGetMyRecentActivityScopedToAgent(t *testing.T) {
	workspace := NewInMemoryWorkspaceStore()
	now := time.Now().UTC()

	require.NoError(t, workspace.LogActivity(context.Background(), "ws-1", ActivityEntry{
		AgentID: "agent-1", Kind: "call", Summary: "older", At: now.Add(-time.Hour),
	}))
	require.NoError(t, workspace.LogActivity(context.Background(), "ws-1", ActivityEntry{
		AgentID: "agent-1", Kind: "email", Summary: "newer", At: now,
	}))
	require.NoError(t, workspace.LogActivity(context.Background(), "ws-1", ActivityEntry{
		AgentID: "agent-2", Kind: "call", Summary: "other agent", At: now,
	}))

	store := &fakeConfigStore{agentID: "agent-1"}
	registry := newSelfToolsRegistry(store, workspace)

	result := registry.Execute(context.Background(), "get_my_recent_activity", map[string]any{}, Context{
		WorkspaceID: "ws-1",
		AgentID:     "agent-1",
	})

	require.True(t, result.Success, result.Message)

	entries, castOK := result.Data["activity"].([]ActivityEntry)
	require.True(t, castOK)
	require.Len(t, entries, 2)
	assert.Equal(t, "newer", entries[0].Summary)
	assert.Equal(t, "older", entries[1].Summary)
}
