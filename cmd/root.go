package cmd

import (
	"github.com/spf13/cobra"
)

// New creates the root command with all subcommands registered.
func New() *cobra.Command {
	opts := NewOptions()

	rootCmd := &cobra.Command{
		Use:   "repopin",
		Short: "Search GitHub repositories and pin the ones you care about",
		Long: `An interactive search box for GitHub repositories. Results appear
after you stop typing; pick one to pin it to your list.

Without a terminal (or with --tui=false) a single search runs and the
results are printed.`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, args, opts)
		},
		SilenceUsage: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	// Add search flags to root command so `repopin` and `repopin search` work identically
	addSearchFlags(rootCmd, opts)

	rootCmd.AddCommand(NewCmdSearch(opts))
	rootCmd.AddCommand(NewCmdPins())
	rootCmd.AddCommand(NewCmdConfig())
	rootCmd.AddCommand(NewCmdRateLimit())
	rootCmd.AddCommand(NewCmdVersion())

	return rootCmd
}
