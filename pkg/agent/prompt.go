package agent

import (
	"fmt"
	"sort"
	"strings"

	"github.com/usekora/kora/pkg/models"
)

// SystemPrompt returns the agent's system prompt: the explicit override when
// configured, otherwise a prompt synthesized from type, tone, capabilities,
// preferences, and notes.
func SystemPrompt(a *models.Agent) string {
	if a.Config.SystemPrompt != "" {
		return a.Config.SystemPrompt
	}

	var b strings.Builder

	fmt.Fprintf(&b, "You are %s, a %s agent working inside this workspace.", a.Name, a.Type)

	if a.Config.Tone != "" {
		fmt.Fprintf(&b, " Communicate in a %s tone.", a.Config.Tone)
	}

	if len(a.Config.Capabilities) > 0 {
		fmt.Fprintf(&b, "\n\nYour capabilities: %s.", strings.Join(a.Config.Capabilities, ", "))
	}

	if len(a.Config.Preferences) > 0 {
		b.WriteString("\n\nOperating preferences:")

		// Sorted keys keep the prompt stable between identical runs.
		keys := make([]string, 0, len(a.Config.Preferences))
		for key := range a.Config.Preferences {
			keys = append(keys, key)
		}

		sort.Strings(keys)

		for _, key := range keys {
			fmt.Fprintf(&b, "\n- %s: %v", key, a.Config.Preferences[key])
		}
	}

	if len(a.Config.Notes) > 0 {
		b.WriteString("\n\nNotes from previous runs:")

		for _, note := range a.Config.Notes {
			fmt.Fprintf(&b, "\n- %s", note)
		}
	}

	b.WriteString("\n\nUse the available tools when they help; answer directly when they do not.")

	return b.String()
}
