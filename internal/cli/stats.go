package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
)

func newStatsCommand(opts *rootOptions) *cobra.Command {
	var at string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print the challenge stats as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			now := time.Now()
			if at != "" {
				t, err := time.Parse(time.RFC3339, at)
				if err != nil {
					return fmt.Errorf("--at must be RFC3339: %w", err)
				}
				now = t
			}

			a, err := newApp(opts, true)
			if err != nil {
				return err
			}
			defer a.Close()

			stats, err := a.service.Stats(cmd.Context(), now)
			if err != nil {
				return fmt.Errorf("fetching challenge stats: %w", err)
			}
			return writeJSON(cmd.OutOrStdout(), stats)
		},
	}

	cmd.Flags().StringVar(&at, "at", "", "evaluate as of this RFC3339 time instead of now")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
