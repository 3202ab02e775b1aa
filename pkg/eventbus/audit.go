package eventbus

import (
	"context"
	"log/slog"

	"github.com/hrdash/lifecycle/pkg/events"
)

type headered interface {
	Header() events.BaseEvent
}

// LogEvents registers a handler for every lifecycle event type that writes
// the event to logger. It gives operators an audit trail without a
// dedicated consumer.
func LogEvents(sub EventSubscriber, logger *slog.Logger) error {
	logger = logger.With("module", "event_audit")

	for _, eventType := range events.Types() {
		err := sub.Handle(eventType, func(ctx context.Context, event any) error {
			attrs := []any{"type", eventType}

			if h, ok := event.(headered); ok {
				header := h.Header()
				attrs = append(attrs,
					"event_id", header.ID,
					"workflow_id", header.WorkflowID,
					"employee_id", header.EmployeeID,
					"kind", header.Kind,
					"at", header.Timestamp)
			}

			logger.InfoContext(ctx, "lifecycle event", attrs...)

			return nil
		})
		if err != nil {
			return err
		}
	}

	return nil
}
