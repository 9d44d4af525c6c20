package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"strava-challenge/internal/auth"
)

func newAuthorizeCommand(opts *rootOptions) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "authorize",
		Short: "Run the Strava OAuth flow and print a refresh token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			if err := cfg.ValidateCredentials(); err != nil {
				return err
			}

			oauthCfg := auth.NewOAuthConfig(auth.Config{
				ClientID:     cfg.Strava.ClientID,
				ClientSecret: cfg.Strava.ClientSecret,
				RedirectURL:  fmt.Sprintf("http://localhost:%d/callback", port),
				TokenURL:     cfg.Strava.TokenURL,
			})

			out := cmd.OutOrStdout()
			result, err := auth.Authenticate(cmd.Context(), oauthCfg, fmt.Sprintf("localhost:%d", port), out)
			if err != nil {
				return fmt.Errorf("authentication: %w", err)
			}

			fmt.Fprintf(out, "\nSuccessfully authenticated as athlete %d!\n", result.AthleteID)
			fmt.Fprintf(out, "Add this to your environment or config file:\n\n  STRAVA_REFRESH_TOKEN=%s\n", result.Token.RefreshToken)
			return nil
		},
	}

	cmd.Flags().IntVar(&port, "port", auth.DefaultCallbackPort, "local port for the OAuth callback")
	return cmd
}
