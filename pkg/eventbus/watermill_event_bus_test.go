package eventbus

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usekora/kora/pkg/channels/gochannel"
	"github.com/usekora/kora/pkg/events"
)

func newTestBus(t *testing.T) *WatermillEventBus {
	t.Helper()

	pub, sub, err := gochannel.CreateTestChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := NewWatermillEventBus(pub, sub)

	t.Cleanup(func() { _ = bus.Close() })

	return bus
}

func TestPublishSubscribeRoundTrip(t *testing.T) {
	bus := newTestBus(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		mu       sync.Mutex
		received []*events.AgentJobQueued
	)

	bus.Handle(events.AgentJobQueuedEvent, func(_ context.Context, event any) error {
		job, ok := event.(*events.AgentJobQueued)
		require.True(t, ok)

		mu.Lock()
		received = append(received, job)
		mu.Unlock()

		return nil
	})

	require.NoError(t, bus.Subscribe(ctx, events.JobTopic))

	job := events.AgentJobQueued{
		BaseEvent:      events.NewBaseEvent(events.AgentJobQueuedEvent),
		ExecutionID:    "exec-1",
		AgentID:        "agent-1",
		DispatchHandle: "handle-1",
	}

	require.NoError(t, bus.Publish(ctx, events.JobTopic, job.ExecutionID, job))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()

		return len(received) == 1
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "exec-1", received[0].ExecutionID)
	assert.Equal(t, "handle-1", received[0].DispatchHandle)
	assert.Equal(t, events.AgentJobQueuedEvent, received[0].GetType())
}

func TestSubscribeDropsEventsWithoutHandler(t *testing.T) {
	bus := newTestBus(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		mu       sync.Mutex
		received int
	)

	// Only completion events are handled on this subscription.
	bus.Handle(events.AgentExecutionCompletedEvent, func(_ context.Context, _ any) error {
		mu.Lock()
		received++
		mu.Unlock()

		return nil
	})

	require.NoError(t, bus.Subscribe(ctx, events.ProgressTopic))

	running := events.AgentExecutionRunning{
		BaseEvent:   events.NewBaseEvent(events.AgentExecutionRunningEvent),
		ExecutionID: "exec-1",
	}
	completed := events.AgentExecutionCompleted{
		BaseEvent:   events.NewBaseEvent(events.AgentExecutionCompletedEvent),
		ExecutionID: "exec-1",
	}

	require.NoError(t, bus.Publish(ctx, events.ProgressTopic, "handle-1", running))
	require.NoError(t, bus.Publish(ctx, events.ProgressTopic, "handle-1", completed))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()

		return received == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestGenerateIDUnique(t *testing.T) {
	bus := newTestBus(t)

	first := bus.GenerateID()
	second := bus.GenerateID()

	assert.NotEmpty(t, first)
	assert.NotEqual(t, first, second)
}
