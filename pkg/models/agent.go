package models

import "time"

// AgentStatus represents the lifecycle state of an agent.
type AgentStatus string

const (
	AgentStatusDraft    AgentStatus = "draft"
	AgentStatusActive   AgentStatus = "active"
	AgentStatusPaused   AgentStatus = "paused"
	AgentStatusArchived AgentStatus = "archived"
)

// MaxAgentNotes caps the self-adjustment note list; older notes are dropped
// first.
const MaxAgentNotes = 20

// AgentConfig is the per-agent behavior configuration. Preferences and notes
// may be mutated concurrently by parallel runs; updates are last-write-wins.
type AgentConfig struct {
	SystemPrompt string         `json:"systemPrompt,omitempty"`
	Tone         string         `json:"tone,omitempty"`
	Capabilities []string       `json:"capabilities,omitempty"`
	Tools        []string       `json:"tools,omitempty"`
	Preferences  map[string]any `json:"preferences,omitempty"`
	Notes        []string       `json:"notes,omitempty"`
}

// MergePreferences applies updates key by key, last write wins.
func (c *AgentConfig) MergePreferences(updates map[string]any) {
	if c.Preferences == nil {
		c.Preferences = make(map[string]any, len(updates))
	}

	for key, value := range updates {
		c.Preferences[key] = value
	}
}

// AppendNote appends a note, keeping only the most recent MaxAgentNotes.
func (c *AgentConfig) AppendNote(note string) {
	c.Notes = append(c.Notes, note)

	if len(c.Notes) > MaxAgentNotes {
		c.Notes = c.Notes[len(c.Notes)-MaxAgentNotes:]
	}
}

// Agent is a configured, reusable LLM-backed actor with a capability/tool
// allow-list.
type Agent struct {
	ID             string      `json:"id"`
	Name           string      `json:"name" validate:"required"`
	Type           string      `json:"type" validate:"required"`
	Status         AgentStatus `json:"status" validate:"required,oneof=draft active paused archived"`
	Config         AgentConfig `json:"config"`
	ExecutionCount int64       `json:"executionCount"`
	LastExecutedAt *time.Time  `json:"lastExecutedAt,omitempty"`
	CreatedAt      time.Time   `json:"createdAt"`
	UpdatedAt      time.Time   `json:"updatedAt"`
}

// Runnable reports whether the agent may be invoked.
func (a *Agent) Runnable() bool {
	return a.Status == AgentStatusActive
}
