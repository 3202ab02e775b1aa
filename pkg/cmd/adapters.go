package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/hrdash/lifecycle/pkg/adapters/workspace"
	"github.com/hrdash/lifecycle/pkg/automation"
	"github.com/hrdash/lifecycle/pkg/catalog"
	"github.com/hrdash/lifecycle/pkg/directory"
	"github.com/hrdash/lifecycle/pkg/httpclient"
	"github.com/hrdash/lifecycle/pkg/protocol"
)

// DirectoryConfig selects the employee directory.
type DirectoryConfig struct {
	// URL is an http(s) base URL of the HR directory, or file://<roster.yaml>
	// for a local roster. Empty means an empty in-memory directory.
	URL     string
	Token   string
	Timeout time.Duration
}

// NewDirectory builds the employee directory described by cfg.
func NewDirectory(cfg DirectoryConfig, logger *slog.Logger) (protocol.EmployeeDirectory, error) {
	switch {
	case cfg.URL == "":
		logger.Warn("No employee directory configured, using an empty in-memory directory")

		return directory.NewMemoryDirectory(), nil
	case strings.HasPrefix(cfg.URL, "file://"):
		roster, err := directory.LoadYAML(strings.TrimPrefix(cfg.URL, "file://"))
		if err != nil {
			return nil, err
		}

		return roster, nil
	default:
		var opts []httpclient.Option
		if cfg.Token != "" {
			opts = append(opts, httpclient.WithHeader("Authorization", "Bearer "+cfg.Token))
		}

		client, err := httpclient.New(cfg.URL, cfg.Timeout, logger, opts...)
		if err != nil {
			return nil, fmt.Errorf("invalid directory url: %w", err)
		}

		return directory.NewHTTPDirectory(client, logger), nil
	}
}

// WorkspaceConfig selects the adapters that perform Workspace and
// application changes.
type WorkspaceConfig struct {
	// BridgeURL of the Workspace admin bridge. Empty means dry run.
	BridgeURL string
	OAuth2    workspace.OAuth2Config
	Timeout   time.Duration
	Breaker   automation.BreakerConfig
}

// NewWorkspaceAdapters returns the identity provider and app provisioner,
// each guarded by its own circuit breaker.
func NewWorkspaceAdapters(
	ctx context.Context,
	cfg WorkspaceConfig,
	logger *slog.Logger,
) (protocol.IdentityProvider, protocol.AppProvisioner, error) {
	if cfg.BridgeURL == "" {
		logger.Warn("No Workspace bridge configured, automations run in dry-run mode")

		dryRun := workspace.NewDryRun(logger)

		return dryRun, dryRun, nil
	}

	var opts []httpclient.Option
	if !cfg.OAuth2.IsZero() {
		opts = append(opts, httpclient.WithHTTPClient(cfg.OAuth2.HTTPClient(ctx)))
	}

	client, err := httpclient.New(cfg.BridgeURL, cfg.Timeout, logger, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid workspace bridge url: %w", err)
	}

	bridge := workspace.NewBridge(client, logger)

	return automation.NewBreakerIdentityProvider(bridge, cfg.Breaker),
		automation.NewBreakerAppProvisioner(bridge, cfg.Breaker),
		nil
}

// NewCatalog loads the task catalog from path, or returns the built-in one
// when path is empty.
func NewCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default(), nil
	}

	return catalog.Load(path)
}

// NewExecutor wires the automation handlers to the adapters and checks that
// every automated task of the catalog has a handler.
func NewExecutor(
	taskCatalog *catalog.Catalog,
	dir protocol.EmployeeDirectory,
	identity protocol.IdentityProvider,
	apps protocol.AppProvisioner,
	logger *slog.Logger,
) (*automation.Executor, error) {
	executor := automation.NewExecutor(dir, identity, apps, logger)
	known := executor.Handlers()

	for _, defs := range [][]catalog.Definition{taskCatalog.Onboarding, taskCatalog.Offboarding} {
		for _, def := range defs {
			if def.Handler != "" && !slices.Contains(known, def.Handler) {
				return nil, fmt.Errorf("%w: task %q uses unknown handler %q", catalog.ErrInvalidCatalog, def.Name, def.Handler)
			}
		}
	}

	return executor, nil
}
