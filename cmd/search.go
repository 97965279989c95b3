package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spiffcs/repopin/config"
	"github.com/spiffcs/repopin/internal/constants"
	"github.com/spiffcs/repopin/internal/log"
	"github.com/spiffcs/repopin/internal/output"
	"github.com/spiffcs/repopin/internal/search"
	"github.com/spiffcs/repopin/internal/tui"
)

// NewCmdSearch creates the search command.
func NewCmdSearch(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search repositories and pin results (same as root repopin)",
		Long: `Opens the interactive search box. Typing pauses for the configured
debounce period before a search runs; enter pins the highlighted result.

With --once, or when stdout is not a terminal, the query is searched a
single time and the results are printed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, args, opts)
		},
	}

	addSearchFlags(cmd, opts)
	return cmd
}

// addSearchFlags adds the search-specific flags to a command.
func addSearchFlags(cmd *cobra.Command, opts *Options) {
	cmd.Flags().StringVarP(&opts.Format, "output", "o", "", "Output format for non-interactive searches (table, json, yaml)")
	cmd.Flags().CountVarP(&opts.Verbosity, "verbose", "v", "Increase verbosity (-v info, -vv debug, -vvv trace)")
	cmd.Flags().StringVar(&opts.LogFile, "log-file", "", "Write logs to this file")
	cmd.Flags().BoolVar(&opts.Once, "once", false, "Run a single search and print the results")
	cmd.Flags().IntVar(&opts.Pin, "pin", 0, "With --once, pin the Nth result (1-based)")

	// TUI flag with tri-state: nil = auto, true = force, false = disable
	cmd.Flags().Var(newTUIFlag(opts), "tui", "Enable/disable the interactive UI (default: auto-detect)")
}

func runSearch(cmd *cobra.Command, args []string, opts *Options) error {
	ctx := cmd.Context()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	useTUI := shouldUseTUI(opts)
	closeLog, err := setupLogging(opts, useTUI)
	if err != nil {
		return err
	}
	defer closeLog()

	client, err := newClient(ctx, cfg)
	if err != nil {
		return err
	}

	searchOpts, err := controllerOptions(cfg)
	if err != nil {
		return err
	}

	query := strings.TrimSpace(strings.Join(args, " "))

	if !useTUI {
		format := opts.Format
		if format == "" {
			format = cfg.DefaultFormat
		}
		return runOnce(ctx, cmd.OutOrStdout(), cmd.ErrOrStderr(), client, query, format, opts.Pin, searchOpts)
	}

	pinned, err := tui.Run(ctx, client,
		tui.WithQuery(query),
		tui.WithSearchOptions(searchOpts...),
		tui.WithRateLimit(client.RateLimitState()),
	)
	if err != nil {
		return err
	}
	log.Info("session ended", "pinned", len(pinned))
	return nil
}

// controllerOptions translates configuration into search controller options,
// restoring saved pins when persistence is enabled.
func controllerOptions(cfg *config.Config) ([]search.Option, error) {
	delay, err := cfg.DebounceDelay()
	if err != nil {
		return nil, err
	}

	opts := []search.Option{
		search.WithDelay(delay),
		search.WithResultLimit(cfg.GetResultLimit()),
		search.WithStalePolicy(cfg.GetStalePolicy()),
	}

	if !cfg.ShouldPersistPins() {
		return opts, nil
	}

	store, err := openPins(cfg)
	if err != nil {
		return nil, err
	}
	log.Debug("loaded pins", "path", store.Path(), "count", store.Count())

	return append(opts,
		search.WithPersister(store),
		search.WithInitialSelection(store.List()),
	), nil
}

// runOnce performs a single search through the controller, optionally pins
// one result, and prints the results.
func runOnce(ctx context.Context, w, errw io.Writer, s search.Searcher, query, format string, pin int, searchOpts []search.Option) error {
	if query == "" {
		return fmt.Errorf("a search query is required when not running interactively")
	}

	f, err := output.ParseFormat(format)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	ctrl := search.NewController(func(string) {}, searchOpts...)
	defer ctrl.Close()

	results, err := ctrl.Search(ctx, s, query)
	if err != nil {
		return fmt.Errorf("search %q: %w", query, err)
	}

	if pin > 0 {
		rows := ctrl.Display().DropdownRows()
		if pin > len(rows) {
			return fmt.Errorf("--pin %d is out of range (%d results)", pin, len(rows))
		}
		row := rows[pin-1]
		if effect := ctrl.Activate(row); effect.Selected {
			fmt.Fprintf(errw, "Pinned %s\n", row.Label)
		} else {
			fmt.Fprintf(errw, "%s is already pinned\n", row.Label)
		}
	}

	return output.NewFormatter(f).Format(results, w)
}
