// Package main provides the standalone scheduler that activates scheduled
// workflows once their start date has passed.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	cli "github.com/urfave/cli/v3"

	"github.com/hrdash/lifecycle/pkg/cmd"
	"github.com/hrdash/lifecycle/pkg/log"
	"github.com/hrdash/lifecycle/pkg/scheduler"
)

const shutdownTimeout = 30 * time.Second

func main() {
	command := &cli.Command{
		Name:                  "lifecycle-scheduler",
		Usage:                 "Activate scheduled workflows when their start date arrives",
		EnableShellCompletion: true,
		Flags:                 cmd.Flags(),
		Commands: []*cli.Command{
			{
				Name:  "once",
				Usage: "Activate every due workflow and exit",
				Action: func(ctx context.Context, command *cli.Command) error {
					return run(ctx, command, true)
				},
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			return run(ctx, command, false)
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		log.WithModule("scheduler").Error("lifecycle scheduler stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, command *cli.Command, once bool) error {
	cfg := cmd.ConfigFromCommand(command)
	log.Setup(cfg.LogLevel, cfg.LogFormat)

	logger := log.WithModule("scheduler")

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := cmd.NewRuntime(ctx, cfg, "lifecycle-scheduler", logger)
	if err != nil {
		return err
	}

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		if err := rt.Close(shutdownCtx); err != nil {
			logger.ErrorContext(ctx, "Failed to release resources", "error", err)
		}
	}()

	if once {
		activated, err := rt.Lifecycle.ActivateDue(ctx)
		logger.InfoContext(ctx, "Activated due workflows", "count", activated)

		return err
	}

	sched, err := scheduler.New(cfg.Schedule, rt.Lifecycle, logger)
	if err != nil {
		return err
	}

	err = sched.Start(ctx)
	if err != nil {
		return err
	}

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	return sched.Stop(shutdownCtx)
}
