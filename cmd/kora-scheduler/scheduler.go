package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/usekora/kora/pkg/models"
	"github.com/usekora/kora/pkg/persistence"
	"github.com/usekora/kora/pkg/workflow"
)

const resyncInterval = 30 * time.Second

// Scheduler triggers schedule workflows on their cron expressions. It
// resyncs entries periodically so activating or editing a workflow takes
// effect without a restart.
type Scheduler struct {
	persistence persistence.Persistence
	executor    *workflow.Executor
	logger      *slog.Logger
	cron        *cron.Cron
	entries     map[string]cron.EntryID
	schedules   map[string]string
}

// NewScheduler creates a workflow scheduler.
func NewScheduler(persist persistence.Persistence, executor *workflow.Executor, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		persistence: persist,
		executor:    executor,
		logger:      logger,
		cron:        cron.New(),
		entries:     make(map[string]cron.EntryID),
		schedules:   make(map[string]string),
	}
}

// Start syncs entries, runs the cron loop, and blocks until ctx is
// cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	if err := s.sync(ctx); err != nil {
		return err
	}

	s.cron.Start()

	ticker := time.NewTicker(resyncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			stopCtx := s.cron.Stop()
			<-stopCtx.Done()

			return nil
		case <-ticker.C:
			if err := s.sync(ctx); err != nil {
				s.logger.Warn("Failed to resync scheduled workflows", "error", err)
			}
		}
	}
}

// sync reconciles cron entries with the active schedule workflows.
func (s *Scheduler) sync(ctx context.Context) error {
	workflows, err := s.persistence.Workflows().ListByTrigger(ctx, models.TriggerTypeSchedule)
	if err != nil {
		return err
	}

	seen := make(map[string]struct{}, len(workflows))

	for _, definition := range workflows {
		if definition.Schedule == "" {
			continue
		}

		seen[definition.ID] = struct{}{}

		if s.schedules[definition.ID] == definition.Schedule {
			continue
		}

		if entryID, exists := s.entries[definition.ID]; exists {
			s.cron.Remove(entryID)
		}

		workflowID := definition.ID

		entryID, err := s.cron.AddFunc(definition.Schedule, func() {
			s.trigger(workflowID)
		})
		if err != nil {
			s.logger.Warn("Invalid cron expression, skipping workflow",
				"workflow_id", definition.ID, "schedule", definition.Schedule, "error", err)

			continue
		}

		s.entries[definition.ID] = entryID
		s.schedules[definition.ID] = definition.Schedule

		s.logger.Info("Scheduled workflow",
			"workflow_id", definition.ID, "schedule", definition.Schedule)
	}

	for workflowID, entryID := range s.entries {
		if _, active := seen[workflowID]; !active {
			s.cron.Remove(entryID)
			delete(s.entries, workflowID)
			delete(s.schedules, workflowID)

			s.logger.Info("Unscheduled workflow", "workflow_id", workflowID)
		}
	}

	return nil
}

func (s *Scheduler) trigger(workflowID string) {
	ctx := context.Background()

	// Scheduled runs are not tied to a workspace.
	execution, err := s.executor.Start(ctx, workflowID, "", map[string]any{
		"triggeredAt": time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		s.logger.Warn("Failed to trigger scheduled workflow",
			"workflow_id", workflowID, "error", err)

		return
	}

	s.logger.Info("Triggered scheduled workflow",
		"workflow_id", workflowID, "execution_id", execution.ID)
}
