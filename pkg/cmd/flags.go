package cmd

import (
	"time"

	cli "github.com/urfave/cli/v3"

	"github.com/hrdash/lifecycle/pkg/adapters/workspace"
	"github.com/hrdash/lifecycle/pkg/automation"
	"github.com/hrdash/lifecycle/pkg/scheduler"
)

// Config is everything a binary needs to assemble the lifecycle service.
type Config struct {
	DatabaseURL     string
	EventBus        string
	KafkaBrokers    string
	LogEvents       bool
	LockURL         string
	LockTTL         time.Duration
	Directory       DirectoryConfig
	Workspace       WorkspaceConfig
	CatalogFile     string
	MaxAttempts     int
	AsyncAutomation bool
	Schedule        string
	LogLevel        string
	LogFormat       string
	Tracing         bool
}

// Flags returns the flags shared by the lifecycle binaries. Every flag can
// also be set through its environment variable.
func Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "database-url",
			Usage:    "Persistence URL (file://<dir> or postgres://...)",
			Required: true,
			Sources:  cli.EnvVars("DATABASE_URL"),
		},
		&cli.StringFlag{
			Name:    "event-bus",
			Usage:   "Event bus type (gochannel, kafka)",
			Value:   "gochannel",
			Sources: cli.EnvVars("EVENT_BUS_TYPE"),
		},
		&cli.StringFlag{
			Name:    "kafka-brokers",
			Usage:   "Comma separated Kafka brokers",
			Value:   "localhost:9092",
			Sources: cli.EnvVars("KAFKA_BROKERS"),
		},
		&cli.BoolFlag{
			Name:    "log-events",
			Usage:   "Write every published lifecycle event to the log",
			Sources: cli.EnvVars("LOG_EVENTS"),
		},
		&cli.StringFlag{
			Name:    "lock-url",
			Usage:   "Task lock backend (memory or redis://...)",
			Value:   "memory",
			Sources: cli.EnvVars("LOCK_URL"),
		},
		&cli.DurationFlag{
			Name:    "lock-ttl",
			Usage:   "How long a Redis lock survives a crashed holder; live holders renew it",
			Value:   5 * time.Minute,
			Sources: cli.EnvVars("LOCK_TTL"),
		},
		&cli.StringFlag{
			Name:    "directory-url",
			Usage:   "HR directory base URL, or file://<roster.yaml> for a local roster",
			Sources: cli.EnvVars("DIRECTORY_URL"),
		},
		&cli.StringFlag{
			Name:    "directory-token",
			Usage:   "Bearer token for the HR directory",
			Sources: cli.EnvVars("DIRECTORY_TOKEN"),
		},
		&cli.StringFlag{
			Name:    "workspace-url",
			Usage:   "Workspace bridge base URL; automations run dry when empty",
			Sources: cli.EnvVars("WORKSPACE_BRIDGE_URL"),
		},
		&cli.StringFlag{
			Name:    "workspace-token-url",
			Usage:   "OAuth2 token endpoint for the Workspace bridge",
			Sources: cli.EnvVars("WORKSPACE_TOKEN_URL"),
		},
		&cli.StringFlag{
			Name:    "workspace-client-id",
			Usage:   "OAuth2 client id for the Workspace bridge",
			Sources: cli.EnvVars("WORKSPACE_CLIENT_ID"),
		},
		&cli.StringFlag{
			Name:    "workspace-client-secret",
			Usage:   "OAuth2 client secret for the Workspace bridge",
			Sources: cli.EnvVars("WORKSPACE_CLIENT_SECRET"),
		},
		&cli.StringSliceFlag{
			Name:    "workspace-scopes",
			Usage:   "OAuth2 scopes requested for the Workspace bridge",
			Sources: cli.EnvVars("WORKSPACE_SCOPES"),
		},
		&cli.DurationFlag{
			Name:    "http-timeout",
			Usage:   "Timeout of a single call to the directory or the bridge",
			Value:   15 * time.Second,
			Sources: cli.EnvVars("HTTP_TIMEOUT"),
		},
		&cli.StringFlag{
			Name:    "catalog-file",
			Usage:   "YAML task catalog; the built-in catalog is used when empty",
			Sources: cli.EnvVars("CATALOG_FILE"),
		},
		&cli.IntFlag{
			Name:    "max-attempts",
			Usage:   "Attempts allowed per automated task (0 for unlimited)",
			Value:   5,
			Sources: cli.EnvVars("MAX_TASK_ATTEMPTS"),
		},
		&cli.BoolFlag{
			Name:    "async-automation",
			Usage:   "Run automations in the background after a workflow starts",
			Sources: cli.EnvVars("ASYNC_AUTOMATION"),
		},
		&cli.StringFlag{
			Name:    "schedule",
			Usage:   "Cron spec for activating due workflows",
			Value:   scheduler.DefaultSpec,
			Sources: cli.EnvVars("SCHEDULER_SPEC"),
		},
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "Log level (debug, info, warn, error)",
			Value:   "info",
			Sources: cli.EnvVars("LOG_LEVEL"),
		},
		&cli.StringFlag{
			Name:    "log-format",
			Usage:   "Log format (text, json)",
			Value:   "text",
			Sources: cli.EnvVars("LOG_FORMAT"),
		},
		&cli.BoolFlag{
			Name:    "tracing",
			Usage:   "Export traces over OTLP/HTTP",
			Sources: cli.EnvVars("TRACING_ENABLED"),
		},
	}
}

// ConfigFromCommand reads the flags declared by Flags.
func ConfigFromCommand(command *cli.Command) Config {
	timeout := command.Duration("http-timeout")

	return Config{
		DatabaseURL:  command.String("database-url"),
		EventBus:     command.String("event-bus"),
		KafkaBrokers: command.String("kafka-brokers"),
		LogEvents:    command.Bool("log-events"),
		LockURL:      command.String("lock-url"),
		LockTTL:      command.Duration("lock-ttl"),
		Directory: DirectoryConfig{
			URL:     command.String("directory-url"),
			Token:   command.String("directory-token"),
			Timeout: timeout,
		},
		Workspace: WorkspaceConfig{
			BridgeURL: command.String("workspace-url"),
			OAuth2: workspace.OAuth2Config{
				TokenURL:     command.String("workspace-token-url"),
				ClientID:     command.String("workspace-client-id"),
				ClientSecret: command.String("workspace-client-secret"),
				Scopes:       command.StringSlice("workspace-scopes"),
			},
			Timeout: timeout,
			Breaker: automation.DefaultBreakerConfig(),
		},
		CatalogFile:     command.String("catalog-file"),
		MaxAttempts:     command.Int("max-attempts"),
		AsyncAutomation: command.Bool("async-automation"),
		Schedule:        command.String("schedule"),
		LogLevel:        command.String("log-level"),
		LogFormat:       command.String("log-format"),
		Tracing:         command.Bool("tracing"),
	}
}
