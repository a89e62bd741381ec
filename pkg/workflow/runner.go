package workflow

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/usekora/kora/pkg/agent"
	"github.com/usekora/kora/pkg/persistence"
	"github.com/usekora/kora/pkg/tools"
)

// RuntimeRunner adapts the agent runtime to step execution. The step's
// action and rendered inputs become the task; the agent's textual answer
// becomes the step output.
type RuntimeRunner struct {
	runtime *agent.Runtime
	agents  persistence.AgentRepository
}

// NewRuntimeRunner creates a step runner backed by the agent runtime.
func NewRuntimeRunner(runtime *agent.Runtime, agents persistence.AgentRepository) *RuntimeRunner {
	return &RuntimeRunner{
		runtime: runtime,
		agents:  agents,
	}
}

// RunStep invokes the step's agent inside the triggering workspace. A JSON
// object answer merges key by key into the execution context; any other
// answer is exposed under "content".
func (rr *RuntimeRunner) RunStep(ctx context.Context, workspaceID, agentID, action string, inputs map[string]string) (map[string]any, error) {
	stepAgent, err := rr.agents.GetByID(ctx, agentID)
	if err != nil {
		return nil, err
	}

	if !stepAgent.Runnable() {
		return nil, fmt.Errorf("agent %s is not runnable in status %s", stepAgent.ID, stepAgent.Status)
	}

	result, err := rr.runtime.Run(ctx, stepAgent, buildTask(action, inputs), tools.Context{
		WorkspaceID: workspaceID,
		AgentID:     stepAgent.ID,
	})
	if err != nil {
		return nil, err
	}

	return parseStepOutput(result.Content), nil
}

func buildTask(action string, inputs map[string]string) string {
	if len(inputs) == 0 {
		return action
	}

	encoded, err := json.Marshal(inputs)
	if err != nil {
		return action
	}

	return action + "\n\nInputs:\n" + string(encoded)
}

func parseStepOutput(content string) map[string]any {
	var output map[string]any

	if err := json.Unmarshal([]byte(content), &output); err == nil && output != nil {
		return output
	}

	return map[string]any{"content": content}
}
