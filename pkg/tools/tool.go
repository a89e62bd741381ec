// Package tools implements the tool execution layer: a closed registry of
// named, schema-validated operations agents may invoke. Failures never
// propagate past Execute; they come back as Result{Success: false} so one
// failing tool call cannot crash the runtime loop.
package tools

import "context"

// Context scopes a tool invocation to a workspace and an acting identity.
type Context struct {
	WorkspaceID string `json:"workspaceId"`
	ActorID     string `json:"actorId"`
	AgentID     string `json:"agentId"`
}

// Result is the normalized outcome of one tool execution.
type Result struct {
	Success bool           `json:"success"`
	Message string         `json:"message,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
}

// Handler executes one tool call. A returned error is folded into a failed
// Result by the registry; handlers never need to format failures themselves.
type Handler func(ctx context.Context, args map[string]any, tc Context) (Result, error)

// Tool declares a named operation with a typed parameter schema and a
// handler bound at registration time.
type Tool struct {
	Name        string
	Description string
	Schema      map[string]any // JSON schema for arguments
	Handler     Handler
}

func ok(message string, data map[string]any) Result {
	return Result{Success: true, Message: message, Data: data}
}

func failed(message string) Result {
	return Result{Success: false, Message: message}
}
