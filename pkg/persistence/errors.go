package persistence

import "errors"

// Standard persistence error types that all implementations should use.
var (
	// ErrWorkflowNotFound indicates a workflow was not found by the given identifier.
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrExecutionNotFound indicates a workflow execution was not found.
	ErrExecutionNotFound = errors.New("execution not found")

	// ErrAgentNotFound indicates an agent was not found by the given identifier.
	ErrAgentNotFound = errors.New("agent not found")

	// ErrAgentExecutionNotFound indicates a ledger record was not found.
	ErrAgentExecutionNotFound = errors.New("agent execution not found")

	// ErrTeamNotFound indicates a team was not found by the given identifier.
	ErrTeamNotFound = errors.New("team not found")
)

// IsWorkflowNotFound checks if an error indicates a workflow was not found.
func IsWorkflowNotFound(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound)
}

// IsExecutionNotFound checks if an error indicates an execution was not found.
func IsExecutionNotFound(err error) bool {
	return errors.Is(err, ErrExecutionNotFound)
}

// IsAgentNotFound checks if an error indicates an agent was not found.
func IsAgentNotFound(err error) bool {
	return errors.Is(err, ErrAgentNotFound)
}

// IsAgentExecutionNotFound checks if an error indicates a ledger record was not found.
func IsAgentExecutionNotFound(err error) bool {
	return errors.Is(err, ErrAgentExecutionNotFound)
}

// IsTeamNotFound checks if an error indicates a team was not found.
func IsTeamNotFound(err error) bool {
	return errors.Is(err, ErrTeamNotFound)
}

// NotFoundError wraps a not-found sentinel with the entity identifier.
type NotFoundError struct {
	Entity string
	ID     string
	Err    error
}

func (e *NotFoundError) Error() string {
	return e.Entity + " " + e.ID + ": " + e.Err.Error()
}

func (e *NotFoundError) Unwrap() error {
	return e.Err
}
