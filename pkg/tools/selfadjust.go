package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/usekora/kora/pkg/models"
)

// AgentConfigStore applies a read-modify-write mutation to one agent's
// config. Implementations scope the write to a single agent; concurrent
// mutations are last-write-wins.
type AgentConfigStore interface {
	UpdateAgentConfig(ctx context.Context, agentID string, mutate func(*models.AgentConfig) error) error
}

// ErrNoActingAgent is returned when a self-adjustment tool is invoked
// outside an agent run.
var ErrNoActingAgent = errors.New("no acting agent in tool context")

const defaultActivityLimit = 10

// SelfTools returns the self-adjustment tools. They mutate only the invoking
// agent's own config, resolved from the tool context; there is no way to
// address another agent through them.
func SelfTools(agents AgentConfigStore, store WorkspaceStore) []Tool {
	return []Tool{
		{
			Name:        "update_my_preferences",
			Description: "Merge updates into your own preferences. Existing keys are overwritten.",
			Schema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"preferences": map[string]any{"type": "object"},
				},
				"required":             []any{"preferences"},
				"additionalProperties": false,
			},
			Handler: func(ctx context.Context, args map[string]any, tc Context) (Result, error) {
				if tc.AgentID == "" {
					return Result{}, ErrNoActingAgent
				}

				updates, _ := args["preferences"].(map[string]any)

				err := agents.UpdateAgentConfig(ctx, tc.AgentID, func(config *models.AgentConfig) error {
					config.MergePreferences(updates)

					return nil
				})
				if err != nil {
					return Result{}, err
				}

				return ok(fmt.Sprintf("updated %d preferences", len(updates)), nil), nil
			},
		},
		{
			Name:        "add_note_to_self",
			Description: "Append a note to your own notes. Only the most recent notes are kept.",
			Schema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"note": map[string]any{"type": "string", "minLength": 1},
				},
				"required":             []any{"note"},
				"additionalProperties": false,
			},
			Handler: func(ctx context.Context, args map[string]any, tc Context) (Result, error) {
				if tc.AgentID == "" {
					return Result{}, ErrNoActingAgent
				}

				note, _ := args["note"].(string)

				err := agents.UpdateAgentConfig(ctx, tc.AgentID, func(config *models.AgentConfig) error {
					config.AppendNote(note)

					return nil
				})
				if err != nil {
					return Result{}, err
				}

				return ok("note saved", nil), nil
			},
		},
		{
			Name:        "get_my_recent_activity",
			Description: "List your own most recent workspace activity.",
			Schema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"limit": map[string]any{"type": "integer", "minimum": 1, "maximum": 50},
				},
				"additionalProperties": false,
			},
			Handler: func(ctx context.Context, args map[string]any, tc Context) (Result, error) {
				if tc.AgentID == "" {
					return Result{}, ErrNoActingAgent
				}

				limit := defaultActivityLimit
				if raw, okArg := args["limit"].(float64); okArg {
					limit = int(raw)
				}

				entries, err := store.RecentActivity(ctx, tc.WorkspaceID, tc.AgentID, limit)
				if err != nil {
					return Result{}, err
				}

				return ok(fmt.Sprintf("%d recent entries", len(entries)), map[string]any{
					"activity": entries,
				}), nil
			},
		},
	}
}
