// Package ledger implements durable, idempotent agent dispatch: every
// invocation gets a pending ledger record before any asynchronous work is
// scheduled, and duplicate submissions inside the dedup window collapse to
// one record.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/usekora/kora/pkg/eventbus"
	"github.com/usekora/kora/pkg/events"
	"github.com/usekora/kora/pkg/models"
	"github.com/usekora/kora/pkg/persistence"
)

// DefaultIdempotencyTTL is the dedup window for repeated submissions.
const DefaultIdempotencyTTL = 10 * time.Minute

// EnqueueRequest describes one agent invocation to dispatch.
type EnqueueRequest struct {
	AgentID        string
	WorkspaceID    string
	Input          map[string]any
	TriggeredBy    string
	IdempotencyKey string
}

// Ledger accepts agent invocations, records them, and hands them to workers
// through the event bus.
type Ledger struct {
	persistence persistence.Persistence
	publisher   eventbus.EventPublisher
	idempotency IdempotencyStore
	logger      *slog.Logger
	ttl         time.Duration
}

// NewLedger creates a dispatch ledger.
func NewLedger(persist persistence.Persistence, publisher eventbus.EventPublisher, idempotency IdempotencyStore, logger *slog.Logger) *Ledger {
	return &Ledger{
		persistence: persist,
		publisher:   publisher,
		idempotency: idempotency,
		logger:      logger,
		ttl:         DefaultIdempotencyTTL,
	}
}

// Enqueue records and dispatches one agent invocation. The pending ledger
// record is written before the job is published, so a crash between the two
// still leaves an auditable row. A duplicate idempotency key inside the
// dedup window returns the original receipt without a second record. A
// failed enqueue releases its key, so retrying the same key is never
// answered with a receipt for a dispatch that did not happen.
func (l *Ledger) Enqueue(ctx context.Context, req EnqueueRequest) (*Receipt, error) {
	agent, err := l.persistence.Agents().GetByID(ctx, req.AgentID)
	if err != nil {
		return nil, err
	}

	if !agent.Runnable() {
		return nil, fmt.Errorf("agent %s is not runnable in status %s", agent.ID, agent.Status)
	}

	executionID := uuid.NewString()
	receipt := Receipt{
		ExecutionID:    executionID,
		DispatchHandle: uuid.NewString(),
	}

	key := req.IdempotencyKey
	if key == "" {
		// Without a caller-supplied key every submission is unique.
		key = req.AgentID + ":" + executionID
	}

	stored, created, err := l.idempotency.Reserve(ctx, key, receipt, l.ttl)
	if err != nil {
		return nil, fmt.Errorf("failed to reserve idempotency key: %w", err)
	}

	if !created {
		l.logger.Info("Duplicate submission collapsed to existing dispatch",
			"agent_id", req.AgentID, "execution_id", stored.ExecutionID)

		return &stored, nil
	}

	execution := &models.AgentExecution{
		ID:             executionID,
		AgentID:        req.AgentID,
		Status:         models.AgentExecutionPending,
		Input:          req.Input,
		TriggeredBy:    req.TriggeredBy,
		IdempotencyKey: key,
		CreatedAt:      time.Now().UTC(),
	}

	if err := l.persistence.AgentExecutions().Create(ctx, execution); err != nil {
		l.releaseReservation(ctx, key)

		return nil, fmt.Errorf("failed to record pending execution: %w", err)
	}

	job := events.AgentJobQueued{
		BaseEvent:      events.NewBaseEvent(events.AgentJobQueuedEvent),
		ExecutionID:    executionID,
		AgentID:        req.AgentID,
		WorkspaceID:    req.WorkspaceID,
		Input:          req.Input,
		TriggeredBy:    req.TriggeredBy,
		DispatchHandle: receipt.DispatchHandle,
	}

	if err := l.publisher.Publish(ctx, events.JobTopic, executionID, job); err != nil {
		l.failDispatch(ctx, execution, err)
		l.releaseReservation(ctx, key)

		return nil, fmt.Errorf("failed to dispatch agent job: %w", err)
	}

	return &receipt, nil
}

// failDispatch marks the record failed when the hand-off itself failed, so
// no record stays pending for a job that was never published.
func (l *Ledger) failDispatch(ctx context.Context, execution *models.AgentExecution, dispatchErr error) {
	now := time.Now().UTC()
	execution.Status = models.AgentExecutionFailed
	execution.Error = fmt.Sprintf("dispatch failed: %v", dispatchErr)
	execution.CompletedAt = &now

	if err := l.persistence.AgentExecutions().Update(ctx, execution); err != nil {
		l.logger.Error("Failed to mark execution failed after dispatch error",
			"execution_id", execution.ID, "error", err)
	}
}

// releaseReservation frees the idempotency key when the enqueue failed, so
// the caller can retry with the same key instead of being handed a receipt
// for a dispatch that never happened.
func (l *Ledger) releaseReservation(ctx context.Context, key string) {
	if err := l.idempotency.Release(ctx, key); err != nil {
		l.logger.Error("Failed to release idempotency reservation after enqueue failure",
			"idempotency_key", key, "error", err)
	}
}
