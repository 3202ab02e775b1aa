package eventbus_test

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrdash/lifecycle/pkg/eventbus"
	"github.com/hrdash/lifecycle/pkg/events"
	"github.com/hrdash/lifecycle/pkg/models"
	"github.com/hrdash/lifecycle/pkg/testutil"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.String()
}

func TestLogEvents(t *testing.T) {
	bus := newBus(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var out syncBuffer

	logger := slog.New(slog.NewTextHandler(&out, nil))

	require.NoError(t, eventbus.LogEvents(bus, logger))
	require.NoError(t, bus.Subscribe(ctx))

	wf := testutil.CreateTestWorkflow(testutil.WithStatus(models.WorkflowStatusCancelled))
	require.NoError(t, bus.Publish(ctx, wf.EmployeeID, events.NewWorkflowCancelled(wf, models.WorkflowStatusPending)))

	assert.Eventually(t, func() bool {
		return strings.Contains(out.String(), "workflow_id="+wf.ID)
	}, 5*time.Second, 10*time.Millisecond)

	assert.Contains(t, out.String(), "type=workflow.cancelled")
	assert.Contains(t, out.String(), "employee_id="+wf.EmployeeID)
}
