package cmd

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrdash/lifecycle/pkg/adapters/workspace"
	"github.com/hrdash/lifecycle/pkg/automation"
	"github.com/hrdash/lifecycle/pkg/catalog"
	"github.com/hrdash/lifecycle/pkg/channels/kafka"
	"github.com/hrdash/lifecycle/pkg/directory"
	"github.com/hrdash/lifecycle/pkg/locking"
	"github.com/hrdash/lifecycle/pkg/models"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewPersistence(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"file scheme", "file://" + dir, false},
		{"bare directory", dir, false},
		{"file scheme without path", "file://", true},
		{"unknown scheme", "mysql://localhost/lifecycle", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p, err := NewPersistence(t.Context(), discardLogger(), tt.url)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrUnsupportedProvider)

				return
			}

			require.NoError(t, err)
			assert.NoError(t, p.HealthCheck(t.Context()))
			assert.NoError(t, p.Close(t.Context()))
		})
	}
}

func TestNewEventBus(t *testing.T) {
	t.Parallel()

	bus, err := NewEventBus("gochannel", "", "lifecycle-api", discardLogger())
	require.NoError(t, err)
	assert.NotEmpty(t, bus.GenerateID())
	require.NoError(t, bus.Close())

	_, err = NewEventBus("kafka", " , ", "lifecycle-api", discardLogger())
	require.ErrorIs(t, err, kafka.ErrNoBrokers)

	_, err = NewEventBus("nats", "", "lifecycle-api", discardLogger())
	require.ErrorIs(t, err, ErrUnsupportedProvider)
}

func TestNewLocker(t *testing.T) {
	t.Parallel()

	locker, closeFn, err := NewLocker(t.Context(), "memory", time.Minute, discardLogger())
	require.NoError(t, err)
	assert.IsType(t, &locking.MemoryLocker{}, locker)
	require.NoError(t, closeFn())

	_, _, err = NewLocker(t.Context(), "etcd://localhost:2379", time.Minute, discardLogger())
	require.ErrorIs(t, err, ErrUnsupportedProvider)
}

func TestNewDirectory(t *testing.T) {
	t.Parallel()

	roster := filepath.Join(t.TempDir(), "employees.yaml")
	require.NoError(t, os.WriteFile(roster, []byte(`employees:
  - id: emp-1
    email: grace@example.com
    first_name: Grace
    department: Engineering
`), 0o600))

	dir, err := NewDirectory(DirectoryConfig{URL: "file://" + roster}, discardLogger())
	require.NoError(t, err)

	profile, err := dir.GetProfile(t.Context(), "emp-1")
	require.NoError(t, err)
	assert.Equal(t, "grace@example.com", profile.Email)

	dir, err = NewDirectory(DirectoryConfig{}, discardLogger())
	require.NoError(t, err)
	assert.IsType(t, &directory.MemoryDirectory{}, dir)

	dir, err = NewDirectory(DirectoryConfig{URL: "https://hr.example.com/api", Token: "secret", Timeout: time.Second}, discardLogger())
	require.NoError(t, err)
	assert.IsType(t, &directory.HTTPDirectory{}, dir)

	_, err = NewDirectory(DirectoryConfig{URL: "ftp://hr.example.com"}, discardLogger())
	require.Error(t, err)
}

func TestNewWorkspaceAdapters(t *testing.T) {
	t.Parallel()

	identity, apps, err := NewWorkspaceAdapters(t.Context(), WorkspaceConfig{}, discardLogger())
	require.NoError(t, err)
	assert.IsType(t, &workspace.DryRun{}, identity)
	assert.Same(t, identity, apps)

	identity, apps, err = NewWorkspaceAdapters(t.Context(), WorkspaceConfig{
		BridgeURL: "https://bridge.example.com",
		OAuth2: workspace.OAuth2Config{
			TokenURL:     "https://auth.example.com/token",
			ClientID:     "lifecycle",
			ClientSecret: "secret",
		},
		Timeout: time.Second,
		Breaker: automation.DefaultBreakerConfig(),
	}, discardLogger())
	require.NoError(t, err)
	assert.NotNil(t, identity)
	assert.NotNil(t, apps)

	_, _, err = NewWorkspaceAdapters(t.Context(), WorkspaceConfig{BridgeURL: "bridge.example.com"}, discardLogger())
	require.Error(t, err)
}

func TestNewCatalogAndExecutor(t *testing.T) {
	t.Parallel()

	c, err := NewCatalog("")
	require.NoError(t, err)
	assert.Equal(t, catalog.Default(), c)

	dryRun := workspace.NewDryRun(discardLogger())
	dir := directory.NewMemoryDirectory()

	_, err = NewExecutor(c, dir, dryRun, dryRun, discardLogger())
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`onboarding:
  - name: Order laptop
    type: AUTOMATED
    handler: procurement.order_laptop
offboarding: []
`), 0o600))

	custom, err := NewCatalog(path)
	require.NoError(t, err)
	require.Len(t, custom.Definitions(models.WorkflowKindOnboarding), 1)

	_, err = NewExecutor(custom, dir, dryRun, dryRun, discardLogger())
	require.ErrorIs(t, err, catalog.ErrInvalidCatalog)

	_, err = NewCatalog(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestNewRuntime(t *testing.T) {
	t.Parallel()

	cfg := Config{
		DatabaseURL: "file://" + t.TempDir(),
		EventBus:    "gochannel",
		LogEvents:   true,
		LockURL:     "memory",
		MaxAttempts: 3,
	}

	rt, err := NewRuntime(t.Context(), cfg, "lifecycle-test", discardLogger())
	require.NoError(t, err)

	msg, ok := rt.Lifecycle.HealthCheck(t.Context())
	assert.True(t, ok, msg)

	apps, err := rt.Provisioning.ListApps(t.Context())
	require.NoError(t, err)
	assert.Empty(t, apps)

	families, err := rt.Registry.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)

	require.NoError(t, rt.Close(t.Context()))
}

func TestNewRuntime_InvalidBackend(t *testing.T) {
	t.Parallel()

	_, err := NewRuntime(t.Context(), Config{
		DatabaseURL: "file://" + t.TempDir(),
		EventBus:    "gochannel",
		LockURL:     "zookeeper://localhost",
	}, "lifecycle-test", discardLogger())
	require.ErrorIs(t, err, ErrUnsupportedProvider)
}
