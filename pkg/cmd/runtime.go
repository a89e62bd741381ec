package cmd

import (
	"context"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/usekora/kora/pkg/agent"
	"github.com/usekora/kora/pkg/ledger"
	"github.com/usekora/kora/pkg/llm"
	"github.com/usekora/kora/pkg/models"
	"github.com/usekora/kora/pkg/persistence"
	"github.com/usekora/kora/pkg/tools"
)

// agentConfigStore adapts the agent repository to the self-adjustment tools.
type agentConfigStore struct {
	agents persistence.AgentRepository
}

func (s agentConfigStore) UpdateAgentConfig(ctx context.Context, agentID string, mutate func(*models.AgentConfig) error) error {
	return s.agents.UpdateConfig(ctx, agentID, mutate)
}

// NewToolRegistry builds the tool registry shared by every agent run:
// workspace tools plus the self-adjustment tools.
func NewToolRegistry(logger *slog.Logger, agents persistence.AgentRepository, workspace tools.WorkspaceStore) *tools.Registry {
	registry := tools.NewRegistry(logger)
	registry.RegisterAll(tools.WorkspaceTools(workspace))
	registry.RegisterAll(tools.SelfTools(agentConfigStore{agents: agents}, workspace))

	return registry
}

// NewAgentRuntime builds the agent runtime over an OpenAI-compatible
// completion endpoint.
func NewAgentRuntime(logger *slog.Logger, registry *tools.Registry, apiURL, apiKey, model string) *agent.Runtime {
	client := llm.NewHTTPClient(apiURL, apiKey, model)

	return agent.NewRuntime(client, registry, logger)
}

// NewIdempotencyStore returns the Redis-backed store when a Redis URL is
// configured, and the process-local store otherwise.
func NewIdempotencyStore(redisURL string) ledger.IdempotencyStore {
	if redisURL == "" {
		return ledger.NewInMemoryIdempotencyStore()
	}

	options, err := redis.ParseURL(redisURL)
	if err != nil {
		panic("invalid redis URL: " + err.Error())
	}

	return ledger.NewRedisIdempotencyStore(redis.NewClient(options))
}
