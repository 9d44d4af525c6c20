package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"strava-challenge/internal/config"
)

func newInitCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write an example config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.CreateExample(opts.configPath)
			if err != nil {
				return fmt.Errorf("creating example config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Please edit the config file at:\n  %s\n\n", path)
			fmt.Fprintln(out, "You need to add your Strava API credentials.")
			fmt.Fprintln(out, "Get them from: https://www.strava.com/settings/api")
			fmt.Fprintln(out, "Then run 'strava-challenge authorize' to obtain a refresh token.")
			return nil
		},
	}
}
