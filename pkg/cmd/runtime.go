package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hrdash/lifecycle/pkg/eventbus"
	"github.com/hrdash/lifecycle/pkg/metrics"
	"github.com/hrdash/lifecycle/pkg/otelhelper"
	"github.com/hrdash/lifecycle/pkg/persistence"
	"github.com/hrdash/lifecycle/pkg/services"
)

// Runtime holds the assembled services of a binary and the resources that
// must be released on shutdown.
type Runtime struct {
	Lifecycle    *services.Lifecycle
	Provisioning *services.Provisioning
	Persistence  persistence.Persistence
	EventBus     eventbus.EventBus
	Registry     *prometheus.Registry

	closers []func(ctx context.Context) error
}

// NewRuntime opens every backend named in cfg and wires the lifecycle
// services on top of them. On error, whatever was opened is closed again.
func NewRuntime(ctx context.Context, cfg Config, serviceName string, logger *slog.Logger) (_ *Runtime, err error) {
	r := &Runtime{Registry: prometheus.NewRegistry()}

	defer func() {
		if err != nil {
			if closeErr := r.Close(ctx); closeErr != nil {
				logger.ErrorContext(ctx, "Failed to release resources", "error", closeErr)
			}
		}
	}()

	r.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	opts := []services.Option{
		services.WithMaxAttempts(cfg.MaxAttempts),
		services.WithAsyncAutomation(cfg.AsyncAutomation),
		services.WithMetrics(metrics.New(r.Registry)),
	}

	if cfg.Tracing {
		tracer, shutdown, err := otelhelper.NewTracer(ctx, serviceName)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize tracer: %w", err)
		}

		r.closers = append(r.closers, shutdown)
		opts = append(opts, services.WithTracer(tracer))
	}

	r.Persistence, err = NewPersistence(ctx, logger, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	r.closers = append(r.closers, r.Persistence.Close)

	r.EventBus, err = NewEventBus(cfg.EventBus, cfg.KafkaBrokers, serviceName, logger)
	if err != nil {
		return nil, err
	}

	r.closers = append(r.closers, func(context.Context) error { return r.EventBus.Close() })

	if cfg.LogEvents {
		err = eventbus.LogEvents(r.EventBus, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to register event log: %w", err)
		}

		err = r.EventBus.Subscribe(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to subscribe to lifecycle events: %w", err)
		}
	}

	locker, closeLocker, err := NewLocker(ctx, cfg.LockURL, cfg.LockTTL, logger)
	if err != nil {
		return nil, err
	}

	r.closers = append(r.closers, func(context.Context) error { return closeLocker() })

	directory, err := NewDirectory(cfg.Directory, logger)
	if err != nil {
		return nil, err
	}

	identity, apps, err := NewWorkspaceAdapters(ctx, cfg.Workspace, logger)
	if err != nil {
		return nil, err
	}

	taskCatalog, err := NewCatalog(cfg.CatalogFile)
	if err != nil {
		return nil, err
	}

	executor, err := NewExecutor(taskCatalog, directory, identity, apps, logger)
	if err != nil {
		return nil, err
	}

	r.Lifecycle = services.NewLifecycle(r.Persistence, directory, executor, taskCatalog, locker, r.EventBus, logger, opts...)
	r.Provisioning = services.NewProvisioning(r.Persistence, directory, logger)

	return r, nil
}

// Close waits for background automations and releases resources in the
// reverse order they were acquired.
func (r *Runtime) Close(ctx context.Context) error {
	if r.Lifecycle != nil {
		r.Lifecycle.Wait()
	}

	var errs []error

	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}

	r.closers = nil

	return errors.Join(errs...)
}
