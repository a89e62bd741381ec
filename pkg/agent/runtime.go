// Package agent implements the agent runtime: a bounded tool-calling loop
// over a completion service, with allow-list projection and per-agent prompt
// synthesis.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/usekora/kora/pkg/llm"
	"github.com/usekora/kora/pkg/models"
	"github.com/usekora/kora/pkg/tools"
)

const (
	// DefaultMaxIterations bounds the tool-calling loop. Hitting the bound
	// returns the last textual content as a best-effort result, never an
	// error.
	DefaultMaxIterations = 4

	defaultRetryAttempts = 3
	defaultRetryBackoff  = 500 * time.Millisecond
)

// ToolResultRecord pairs a tool name with its execution result in run order.
type ToolResultRecord struct {
	Tool   string       `json:"tool"`
	Result tools.Result `json:"result"`
}

// Result is the outcome of one agent run.
type Result struct {
	Content     string             `json:"content"`
	ToolsUsed   []string           `json:"toolsUsed,omitempty"`
	ToolResults []ToolResultRecord `json:"toolResults,omitempty"`
	Iterations  int                `json:"iterations"`
	Usage       llm.Usage          `json:"usage"`
}

// Runtime drives one agent invocation against the completion service and
// the tool execution layer.
type Runtime struct {
	client        llm.Client
	registry      *tools.Registry
	logger        *slog.Logger
	maxIterations int
	retryAttempts int
	retryBackoff  time.Duration
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithMaxIterations overrides the loop bound.
func WithMaxIterations(n int) Option {
	return func(r *Runtime) {
		if n > 0 {
			r.maxIterations = n
		}
	}
}

// WithRetry overrides the completion retry budget.
func WithRetry(attempts int, backoff time.Duration) Option {
	return func(r *Runtime) {
		if attempts > 0 {
			r.retryAttempts = attempts
		}

		if backoff >= 0 {
			r.retryBackoff = backoff
		}
	}
}

// NewRuntime creates an agent runtime.
func NewRuntime(client llm.Client, registry *tools.Registry, logger *slog.Logger, opts ...Option) *Runtime {
	runtime := &Runtime{
		client:        client,
		registry:      registry,
		logger:        logger,
		maxIterations: DefaultMaxIterations,
		retryAttempts: defaultRetryAttempts,
		retryBackoff:  defaultRetryBackoff,
	}

	for _, opt := range opts {
		opt(runtime)
	}

	return runtime
}

// Run executes the tool-calling loop for one agent and task. Tool failures
// are folded into the transcript as information the model can act on; only
// completion-service failures (after the retry budget) fail the run.
func (r *Runtime) Run(ctx context.Context, a *models.Agent, task string, tc tools.Context) (*Result, error) {
	logger := r.logger.With("agent_id", a.ID, "workspace_id", tc.WorkspaceID)

	allowed := AllowedTools(a, r.registry)
	definitions := r.toolDefinitions(allowed)
	allowedSet := make(map[string]struct{}, len(allowed))

	for _, name := range allowed {
		allowedSet[name] = struct{}{}
	}

	if tc.AgentID == "" {
		tc.AgentID = a.ID
	}

	request := llm.Request{
		System:   SystemPrompt(a),
		Messages: []llm.Message{{Role: llm.RoleUser, Content: task}},
		Tools:    definitions,
	}

	result := &Result{}
	lastContent := ""

	for iteration := 1; iteration <= r.maxIterations; iteration++ {
		result.Iterations = iteration

		response, err := r.complete(ctx, request)
		if err != nil {
			return nil, fmt.Errorf("completion failed on iteration %d: %w", iteration, err)
		}

		result.Usage.Add(response.Usage)

		if response.Content != "" {
			lastContent = response.Content
		}

		if len(response.ToolCalls) == 0 {
			result.Content = response.Content

			return result, nil
		}

		request.Messages = append(request.Messages, llm.Message{
			Role:      llm.RoleAssistant,
			Content:   response.Content,
			ToolCalls: response.ToolCalls,
		})

		for _, call := range response.ToolCalls {
			var toolResult tools.Result

			if _, permitted := allowedSet[call.Name]; !permitted {
				toolResult = tools.Result{
					Success: false,
					Message: fmt.Sprintf("tool %s is not permitted for this agent", call.Name),
				}
			} else {
				toolResult = r.registry.Execute(ctx, call.Name, call.Arguments, tc)
			}

			result.ToolsUsed = append(result.ToolsUsed, call.Name)
			result.ToolResults = append(result.ToolResults, ToolResultRecord{
				Tool:   call.Name,
				Result: toolResult,
			})

			request.Messages = append(request.Messages, llm.Message{
				Role:       llm.RoleTool,
				Name:       call.Name,
				ToolCallID: call.ID,
				Content:    encodeToolResult(toolResult),
			})
		}
	}

	logger.Warn("Agent run hit the iteration bound, returning best-effort content",
		"iterations", r.maxIterations)

	if lastContent == "" {
		lastContent = fmt.Sprintf("Stopped after %d tool iterations without a final answer.", r.maxIterations)
	}

	result.Content = lastContent

	return result, nil
}

// complete calls the completion service with a small retry budget and fixed
// backoff. Context cancellation is never retried.
func (r *Runtime) complete(ctx context.Context, request llm.Request) (*llm.Response, error) {
	var lastErr error

	for attempt := 1; attempt <= r.retryAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		response, err := r.client.Complete(ctx, request)
		if err == nil {
			return response, nil
		}

		lastErr = err

		if attempt < r.retryAttempts {
			r.logger.Warn("Completion attempt failed, retrying",
				"attempt", attempt, "error", err)

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(r.retryBackoff * time.Duration(attempt)):
			}
		}
	}

	return nil, lastErr
}

func (r *Runtime) toolDefinitions(names []string) []llm.ToolDefinition {
	definitions := make([]llm.ToolDefinition, 0, len(names))

	for _, name := range names {
		tool, found := r.registry.Get(name)
		if !found {
			continue
		}

		definitions = append(definitions, llm.ToolDefinition{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: tool.Schema,
		})
	}

	return definitions
}

func encodeToolResult(result tools.Result) string {
	encoded, err := json.Marshal(result)
	if err != nil {
		return fmt.Sprintf(`{"success":false,"message":"failed to encode tool result: %v"}`, err)
	}

	return string(encoded)
}
