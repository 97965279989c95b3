package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spiffcs/repopin/config"
	"github.com/spiffcs/repopin/internal/ghclient"
	"github.com/spiffcs/repopin/internal/log"
	"github.com/spiffcs/repopin/internal/pins"
)

// setupLogging routes logs to the log file when one is given, discards them
// while the TUI owns the terminal, and otherwise writes to stderr. The
// returned func closes the log file.
func setupLogging(opts *Options, useTUI bool) (func(), error) {
	switch {
	case opts.LogFile != "":
		f, err := os.OpenFile(opts.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		log.Initialize(opts.Verbosity, f)
		return func() { _ = f.Close() }, nil
	case useTUI:
		log.Initialize(opts.Verbosity, io.Discard)
	default:
		log.Initialize(opts.Verbosity, os.Stderr)
	}
	return func() {}, nil
}

// newClient creates a GitHub client from the configuration. The token is
// optional; unauthenticated searches get a lower quota.
func newClient(ctx context.Context, cfg *config.Config) (*ghclient.Client, error) {
	token := cfg.GetGitHubToken()
	if token == "" {
		log.Info("GITHUB_TOKEN not set, searching unauthenticated")
	}

	client, err := ghclient.NewClient(ctx, token,
		ghclient.WithBaseURL(cfg.GetAPIURL()),
		ghclient.WithResultLimit(cfg.GetResultLimit()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create GitHub client: %w", err)
	}
	return client, nil
}

// openPins opens the pins file named by the configuration.
func openPins(cfg *config.Config) (*pins.Store, error) {
	store, err := pins.NewStore(cfg.GetPinsFile())
	if err != nil {
		return nil, fmt.Errorf("failed to open pins file: %w", err)
	}
	return store, nil
}
