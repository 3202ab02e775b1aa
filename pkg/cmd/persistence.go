// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hrdash/lifecycle/pkg/persistence"
	"github.com/hrdash/lifecycle/pkg/persistence/file"
	"github.com/hrdash/lifecycle/pkg/persistence/postgresql"
)

var ErrUnsupportedProvider = errors.New("unsupported provider")

var supportedPersistenceProviders = []string{"file", "postgres", "postgresql"}

// NewPersistence opens the store named by databaseURL: file://<dir> or
// postgres://... A URL without a scheme is taken as a directory.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Persistence, error) {
	provider, rest := parsePersistenceProvider(databaseURL)

	switch provider {
	case "postgres", "postgresql":
		return postgresql.NewPersistence(ctx, logger, databaseURL)
	case "file":
		if rest == "" {
			return nil, fmt.Errorf("%w: file persistence needs a directory", ErrUnsupportedProvider)
		}

		return file.NewPersistence(rest), nil
	default:
		return nil, fmt.Errorf("%w: persistence %q, supported: %s",
			ErrUnsupportedProvider, provider, strings.Join(supportedPersistenceProviders, ", "))
	}
}

func parsePersistenceProvider(databaseURL string) (string, string) {
	provider, rest, found := strings.Cut(databaseURL, "://")
	if !found {
		return "file", databaseURL
	}

	return provider, rest
}
