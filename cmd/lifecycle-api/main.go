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

const (
	defaultPort     = 9091
	shutdownTimeout = 15 * time.Second
)

func main() {
	flags := append([]cli.Flag{
		&cli.IntFlag{
			Name:    "port",
			Aliases: []string{"p"},
			Usage:   "Port to run the API server on",
			Value:   defaultPort,
			Sources: cli.EnvVars("PORT"),
		},
		&cli.BoolFlag{
			Name:    "with-scheduler",
			Usage:   "Also activate due scheduled workflows from this process",
			Sources: cli.EnvVars("RUN_SCHEDULER"),
		},
	}, cmd.Flags()...)

	command := &cli.Command{
		Name:                  "lifecycle-api",
		Usage:                 "Run employee onboarding and offboarding workflows over HTTP",
		EnableShellCompletion: true,
		Flags:                 flags,
		Action: func(ctx context.Context, command *cli.Command) error {
			cfg := cmd.ConfigFromCommand(command)
			log.Setup(cfg.LogLevel, cfg.LogFormat)

			logger := log.WithModule("api")
			logger.InfoContext(ctx, "Initializing lifecycle API")

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			rt, err := cmd.NewRuntime(ctx, cfg, "lifecycle-api", logger)
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

			if command.Bool("with-scheduler") {
				sched, err := scheduler.New(cfg.Schedule, rt.Lifecycle, logger)
				if err != nil {
					return err
				}

				if err := sched.Start(ctx); err != nil {
					return err
				}

				defer func() {
					if err := sched.Stop(context.WithoutCancel(ctx)); err != nil {
						logger.ErrorContext(ctx, "Failed to stop scheduler", "error", err)
					}
				}()
			}

			api := NewAPI(logger, rt.Lifecycle, rt.Provisioning, rt.Registry)

			return api.Serve(ctx, command.Int("port"), shutdownTimeout)
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		log.WithModule("api").Error("lifecycle API stopped", "error", err)
		os.Exit(1)
	}
}
