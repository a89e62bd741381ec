package tools

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/xeipuuv/gojsonschema"
)

// DefaultCallTimeout bounds a single tool call independently of the step
// timeout above it. A timed-out call surfaces as a failed result.
const DefaultCallTimeout = 30 * time.Second

// Registry is the closed set of tools available to agents. Dispatch is by
// name against registered tools only; there is no open execution path.
type Registry struct {
	logger      *slog.Logger
	tools       map[string]Tool
	callTimeout time.Duration
}

// NewRegistry creates an empty tool registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:      logger,
		tools:       make(map[string]Tool),
		callTimeout: DefaultCallTimeout,
	}
}

// Register adds a tool. Registering the same name twice replaces the earlier
// definition.
func (r *Registry) Register(tool Tool) {
	r.tools[tool.Name] = tool
}

// RegisterAll adds a set of tools.
func (r *Registry) RegisterAll(tools []Tool) {
	for _, tool := range tools {
		r.Register(tool)
	}
}

// Get returns a registered tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	tool, ok := r.tools[name]

	return tool, ok
}

// Names returns all registered tool names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Execute runs one named tool call. Every failure mode (unknown tool,
// schema violation, handler error, panic, timeout) is returned as a failed
// Result, never as an error or a panic across this boundary.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any, tc Context) (result Result) {
	defer func() {
		if recovered := recover(); recovered != nil {
			r.logger.ErrorContext(ctx, "Tool handler panicked",
				"tool", name, "panic", fmt.Sprintf("%v", recovered))
			result = failed(fmt.Sprintf("tool %s panicked: %v", name, recovered))
		}
	}()

	tool, ok := r.tools[name]
	if !ok {
		return failed(fmt.Sprintf("unknown tool: %s", name))
	}

	if err := validateArguments(tool.Schema, args); err != nil {
		return failed(fmt.Sprintf("invalid arguments for %s: %v", name, err))
	}

	callCtx, cancel := context.WithTimeout(ctx, r.callTimeout)
	defer cancel()

	result, err := tool.Handler(callCtx, args, tc)
	if err != nil {
		r.logger.WarnContext(ctx, "Tool execution failed",
			"tool", name, "workspace_id", tc.WorkspaceID, "error", err)

		return failed(fmt.Sprintf("%s failed: %v", name, err))
	}

	return result
}

func validateArguments(schema map[string]any, args map[string]any) error {
	if schema == nil {
		return nil
	}

	if args == nil {
		args = map[string]any{}
	}

	validation, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(schema),
		gojsonschema.NewGoLoader(args),
	)
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}

	if !validation.Valid() {
		messages := make([]string, 0, len(validation.Errors()))
		for _, desc := range validation.Errors() {
			messages = append(messages, desc.String())
		}

		sort.Strings(messages)

		return fmt.Errorf("%v", messages)
	}

	return nil
}
