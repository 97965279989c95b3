package cmd

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"github.com/spiffcs/repopin/config"
	"github.com/spiffcs/repopin/internal/constants"
	"github.com/spiffcs/repopin/internal/log"
	"github.com/spiffcs/repopin/internal/model"
	"github.com/spiffcs/repopin/internal/output"
	"github.com/spiffcs/repopin/internal/pins"
	"golang.org/x/sync/errgroup"
)

// NewCmdPins creates the pins command with subcommands.
func NewCmdPins() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pins",
		Short: "Manage pinned repositories",
		Long: `Manage the repositories pinned from the search box.

Subcommands:
  list     Show pinned repositories (most recent first)
  remove   Unpin a repository by ID or owner/name
  clear    Unpin everything
  refresh  Re-fetch names and star counts from GitHub`,
	}

	cmd.AddCommand(NewCmdPinsList())
	cmd.AddCommand(NewCmdPinsRemove())
	cmd.AddCommand(NewCmdPinsClear())
	cmd.AddCommand(NewCmdPinsRefresh())

	return cmd
}

// NewCmdPinsList creates the pins list subcommand.
func NewCmdPinsList() *cobra.Command {
	var outputFormat string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show pinned repositories",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, store, err := loadPins()
			if err != nil {
				return err
			}
			if outputFormat == "" {
				outputFormat = cfg.DefaultFormat
			}
			f, err := output.ParseFormat(outputFormat)
			if err != nil {
				return err
			}
			return output.NewFormatter(f).Format(store.List(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "output", "o", "", "Output format (table, json, yaml)")

	return cmd
}

// NewCmdPinsRemove creates the pins remove subcommand.
func NewCmdPinsRemove() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id|owner/name>",
		Short: "Unpin a repository",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, store, err := loadPins()
			if err != nil {
				return err
			}

			r, ok := findPin(store.List(), args[0])
			if !ok {
				return fmt.Errorf("no pinned repository matches %q", args[0])
			}
			if _, err := store.Remove(r.ID); err != nil {
				return fmt.Errorf("failed to save pins: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Unpinned %s.\n", r.FullName)
			return nil
		},
	}
}

// NewCmdPinsClear creates the pins clear subcommand.
func NewCmdPinsClear() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Unpin all repositories",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, store, err := loadPins()
			if err != nil {
				return err
			}
			n := store.Count()
			if err := store.Clear(); err != nil {
				return fmt.Errorf("failed to clear pins: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Unpinned %d repositories.\n", n)
			return nil
		},
	}
}

// NewCmdPinsRefresh creates the pins refresh subcommand.
func NewCmdPinsRefresh() *cobra.Command {
	var verbosity int

	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Re-fetch pinned repositories from GitHub",
		Long: `Looks up every pinned repository by ID and updates its name, owner and
star count. Repositories that cannot be fetched keep their saved values.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			closeLog, err := setupLogging(&Options{Verbosity: verbosity}, false)
			if err != nil {
				return err
			}
			defer closeLog()

			cfg, store, err := loadPins()
			if err != nil {
				return err
			}
			client, err := newClient(ctx, cfg)
			if err != nil {
				return err
			}

			refreshed, failed := refreshPins(ctx, client, store.List())
			if err := store.Save(refreshed); err != nil {
				return fmt.Errorf("failed to save pins: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Refreshed %d of %d repositories.\n", len(refreshed)-failed, len(refreshed))
			return nil
		},
	}

	cmd.Flags().CountVarP(&verbosity, "verbose", "v", "Increase verbosity (-v info, -vv debug, -vvv trace)")

	return cmd
}

func loadPins() (*config.Config, *pins.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	store, err := openPins(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, store, nil
}

// findPin matches a repository by numeric ID or case-insensitive full name.
func findPin(repos []model.Repository, ref string) (model.Repository, bool) {
	id, idErr := model.ParseKey(ref)
	for _, r := range repos {
		if idErr == nil && r.ID == id {
			return r, true
		}
		if strings.EqualFold(r.FullName, ref) {
			return r, true
		}
	}
	return model.Repository{}, false
}

// repoFetcher looks up a single repository.
type repoFetcher interface {
	RepositoryByID(ctx context.Context, id int64) (model.Repository, error)
}

// refreshPins fetches every repository concurrently, keeping order. Entries
// that fail keep their saved value; the number of failures is returned.
func refreshPins(ctx context.Context, fetcher repoFetcher, repos []model.Repository) ([]model.Repository, int) {
	out := make([]model.Repository, len(repos))
	copy(out, repos)

	var (
		mu     sync.Mutex
		failed int
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(constants.RefreshWorkers)

	for i, r := range repos {
		i, r := i, r
		g.Go(func() error {
			fresh, err := fetcher.RepositoryByID(ctx, r.ID)
			if err != nil {
				log.Warn("failed to refresh repository", "repo", r.FullName, "id", r.ID, "error", err)
				mu.Lock()
				failed++
				mu.Unlock()
				return nil
			}
			log.Debug("refreshed repository", "repo", fresh.FullName, "stars", fresh.StarCount)
			out[i] = fresh
			return nil
		})
	}

	_ = g.Wait()
	return out, failed
}
