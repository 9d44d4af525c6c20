package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newCacheCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the cache",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Print cache item counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts, false)
			if err != nil {
				return err
			}
			defer a.Close()

			return writeJSON(cmd.OutOrStdout(), a.cache.Stats(cmd.Context()))
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Drop the cached activity listings",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts, false)
			if err != nil {
				return err
			}
			defer a.Close()

			for _, key := range a.service.ClearActivities(cmd.Context(), time.Now()) {
				fmt.Fprintf(cmd.OutOrStdout(), "cleared %s\n", key)
			}
			return nil
		},
	})

	return cmd
}
