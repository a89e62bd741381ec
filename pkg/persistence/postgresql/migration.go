package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			-- Create workflows table
			CREATE TABLE workflows (
				id VARCHAR(255) PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				trigger_type VARCHAR(50) NOT NULL,
				status VARCHAR(50) NOT NULL CHECK (status IN ('draft', 'active', 'paused', 'archived')),
				schedule VARCHAR(255),
				steps JSONB NOT NULL DEFAULT '[]',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_workflows_status ON workflows(status);
			CREATE INDEX idx_workflows_trigger_type ON workflows(trigger_type);
			CREATE INDEX idx_workflows_created_at ON workflows(created_at);

			-- Create workflow_executions table
			CREATE TABLE workflow_executions (
				id VARCHAR(255) PRIMARY KEY,
				workflow_id VARCHAR(255) NOT NULL REFERENCES workflows(id),
				status VARCHAR(50) NOT NULL,
				current_step_id VARCHAR(255),
				step_results JSONB NOT NULL DEFAULT '{}',
				context JSONB NOT NULL DEFAULT '{}',
				error JSONB,
				started_at TIMESTAMP WITH TIME ZONE NOT NULL,
				completed_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX idx_workflow_executions_workflow_id ON workflow_executions(workflow_id);
			CREATE INDEX idx_workflow_executions_status ON workflow_executions(status);
			CREATE INDEX idx_workflow_executions_started_at ON workflow_executions(started_at);
		`,
		2: `
			-- Create agents table
			CREATE TABLE agents (
				id VARCHAR(255) PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				type VARCHAR(255) NOT NULL,
				status VARCHAR(50) NOT NULL CHECK (status IN ('draft', 'active', 'paused', 'archived')),
				config JSONB NOT NULL DEFAULT '{}',
				execution_count BIGINT NOT NULL DEFAULT 0,
				last_executed_at TIMESTAMP WITH TIME ZONE,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_agents_status ON agents(status);
			CREATE INDEX idx_agents_type ON agents(type);

			-- Create agent_executions ledger table
			CREATE TABLE agent_executions (
				id VARCHAR(255) PRIMARY KEY,
				agent_id VARCHAR(255) NOT NULL REFERENCES agents(id),
				status VARCHAR(50) NOT NULL,
				input JSONB,
				output TEXT,
				error TEXT,
				duration_ms BIGINT NOT NULL DEFAULT 0,
				tokens_used BIGINT NOT NULL DEFAULT 0,
				cost DOUBLE PRECISION NOT NULL DEFAULT 0,
				triggered_by VARCHAR(255),
				idempotency_key VARCHAR(512),
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				started_at TIMESTAMP WITH TIME ZONE,
				completed_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX idx_agent_executions_agent_id ON agent_executions(agent_id);
			CREATE INDEX idx_agent_executions_status ON agent_executions(status);
			CREATE INDEX idx_agent_executions_idempotency_key ON agent_executions(idempotency_key);
			CREATE INDEX idx_agent_executions_created_at ON agent_executions(created_at);
		`,
		3: `
			-- Create teams table
			CREATE TABLE teams (
				id VARCHAR(255) PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				department VARCHAR(255),
				status VARCHAR(50) NOT NULL CHECK (status IN ('active', 'paused', 'archived')),
				members JSONB NOT NULL DEFAULT '[]',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_teams_status ON teams(status);
			CREATE INDEX idx_teams_department ON teams(department);
		`,
	}
}
