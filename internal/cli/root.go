// Package cli implements the strava-challenge command line.
package cli

import (
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	logLevel   string
}

// NewRootCommand builds the command tree
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "strava-challenge",
		Short:         "Track a distance challenge from Strava activities",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "",
		"config file (default is $CHALLENGE_CONFIG or ~/.strava-challenge/config.yaml)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override log.level (debug, info, warn, error)")

	root.AddCommand(
		newServeCommand(opts),
		newStatsCommand(opts),
		newCacheCommand(opts),
		newAuthorizeCommand(opts),
		newInitCommand(opts),
	)
	return root
}
