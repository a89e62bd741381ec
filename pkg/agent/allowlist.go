package agent

import (
	"github.com/usekora/kora/pkg/models"
	"github.com/usekora/kora/pkg/tools"
)

// capabilityTools projects a declared capability onto the tool names it
// grants. The projection is the only path from capabilities to tools; an
// unknown capability grants nothing.
var capabilityTools = map[string][]string{
	"crm":      {"search_contacts", "get_contact", "update_contact"},
	"activity": {"log_activity", "get_my_recent_activity"},
	"self":     {"update_my_preferences", "add_note_to_self", "get_my_recent_activity"},
}

// defaultReadOnlyTools is the conservative fallback when an agent declares
// neither tools nor capabilities.
var defaultReadOnlyTools = []string{"search_contacts", "get_contact", "get_my_recent_activity"}

// AllowedTools resolves the agent's tool allow-list: the explicit config
// list when set, else the capability projection, else the read-only default.
// Names not present in the registry are dropped, so configuration can never
// grant an unregistered tool.
func AllowedTools(a *models.Agent, registry *tools.Registry) []string {
	var candidates []string

	switch {
	case len(a.Config.Tools) > 0:
		candidates = a.Config.Tools
	case len(a.Config.Capabilities) > 0:
		seen := make(map[string]struct{})

		for _, capability := range a.Config.Capabilities {
			for _, name := range capabilityTools[capability] {
				if _, dup := seen[name]; dup {
					continue
				}

				seen[name] = struct{}{}
				candidates = append(candidates, name)
			}
		}
	default:
		candidates = defaultReadOnlyTools
	}

	allowed := make([]string, 0, len(candidates))

	for _, name := range candidates {
		if _, registered := registry.Get(name); registered {
			allowed = append(allowed, name)
		}
	}

	return allowed
}
