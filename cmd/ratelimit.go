package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/google/go-github/v57/github"
	"github.com/spf13/cobra"
	"github.com/spiffcs/repopin/config"
)

// NewCmdRateLimit creates the ratelimit command.
func NewCmdRateLimit() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ratelimit",
		Short: "Check GitHub API rate limit status",
		Long:  `Display current GitHub API rate limit status including remaining quota and reset time.`,
	}
	cmd.AddCommand(NewCmdRateLimitStatus())
	return cmd
}

// NewCmdRateLimitStatus creates the ratelimit status subcommand.
func NewCmdRateLimitStatus() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show current rate limit status",
		Long:  `Display the current GitHub API rate limit status for the core and search APIs.`,
		RunE:  runRateLimitStatus,
	}
}

func runRateLimitStatus(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	client, err := newClient(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	limits, err := client.RateLimits(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to get rate limits: %w", err)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintln(w, "GitHub API Rate Limits:")
	fmt.Fprintln(w)
	printRate(w, "Core API:  ", limits.Core)
	printRate(w, "Search API:", limits.Search)

	if cfg.GetGitHubToken() == "" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Unauthenticated. Set GITHUB_TOKEN for a higher quota.")
	}

	return nil
}

func printRate(w io.Writer, label string, r *github.Rate) {
	if r == nil {
		return
	}
	resetIn := time.Until(r.Reset.Time).Round(time.Second)
	if resetIn < 0 {
		resetIn = 0
	}
	fmt.Fprintf(w, "%s %d/%d remaining (resets in %s)\n", label, r.Remaining, r.Limit, resetIn)
}
