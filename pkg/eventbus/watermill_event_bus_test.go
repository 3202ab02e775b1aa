package eventbus_test

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrdash/lifecycle/pkg/channels/gochannel"
	"github.com/hrdash/lifecycle/pkg/eventbus"
	"github.com/hrdash/lifecycle/pkg/events"
	"github.com/hrdash/lifecycle/pkg/models"
	"github.com/hrdash/lifecycle/pkg/testutil"
)

func newBus(t *testing.T) *eventbus.WatermillEventBus {
	t.Helper()

	pub, sub, err := gochannel.CreateTestChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub)
	t.Cleanup(func() { _ = bus.Close() })

	return bus
}

func TestWatermillEventBus_DeliversTypedEvents(t *testing.T) {
	bus := newBus(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan *events.WorkflowStarted, 1)

	require.NoError(t, bus.Handle(events.WorkflowStartedEvent, func(_ context.Context, event any) error {
		received <- event.(*events.WorkflowStarted)

		return nil
	}))
	require.NoError(t, bus.Subscribe(ctx))

	wf := testutil.CreateTestWorkflow(testutil.WithTasks(testutil.CreateTestTask()))
	wf.MatchedApps = []string{"slack"}

	require.NoError(t, bus.Publish(ctx, wf.EmployeeID, events.NewWorkflowStarted(wf)))

	select {
	case event := <-received:
		assert.Equal(t, wf.ID, event.WorkflowID)
		assert.Equal(t, wf.EmployeeID, event.EmployeeID)
		assert.Equal(t, models.WorkflowKindOnboarding, event.Kind)
		assert.Equal(t, 1, event.TaskCount)
		assert.Equal(t, []string{"slack"}, event.MatchedApps)
	case <-time.After(5 * time.Second):
		t.Fatal("event was not delivered")
	}
}

func TestWatermillEventBus_SkipsUnhandledTypes(t *testing.T) {
	bus := newBus(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan events.EventType, 2)

	require.NoError(t, bus.Handle(events.WorkflowCancelledEvent, func(_ context.Context, event any) error {
		received <- event.(*events.WorkflowCancelled).GetType()

		return nil
	}))
	require.NoError(t, bus.Subscribe(ctx))

	wf := testutil.CreateTestWorkflow(testutil.WithStatus(models.WorkflowStatusCancelled))

	require.NoError(t, bus.Publish(ctx, wf.EmployeeID, events.NewWorkflowActivated(wf)))
	require.NoError(t, bus.Publish(ctx, wf.EmployeeID, events.NewWorkflowCancelled(wf, models.WorkflowStatusInProgress)))

	select {
	case eventType := <-received:
		assert.Equal(t, events.WorkflowCancelledEvent, eventType)
	case <-time.After(5 * time.Second):
		t.Fatal("event was not delivered")
	}

	assert.Empty(t, received)
}

func TestWatermillEventBus_GenerateID(t *testing.T) {
	bus := newBus(t)

	assert.NotEqual(t, bus.GenerateID(), bus.GenerateID())
}
