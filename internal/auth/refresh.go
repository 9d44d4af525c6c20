package auth

import (
	"context"
	"errors"
	"net/http"

	"golang.org/x/oauth2"
)

// ErrNoAccessToken is returned when the token endpoint answers without one
var ErrNoAccessToken = errors.New("token response has no access token")

// Refresh exchanges a long-lived refresh token for a fresh access token.
// Strava may rotate the refresh token; the returned token carries the new one.
func Refresh(ctx context.Context, cfg *oauth2.Config, refreshToken string, client *http.Client) (*oauth2.Token, error) {
	// An expired token forces the source to hit the token endpoint
	src := cfg.TokenSource(withHTTPClient(ctx, client), &oauth2.Token{
		RefreshToken: refreshToken,
	})

	token, err := src.Token()
	if err != nil {
		return nil, err
	}
	if token.AccessToken == "" {
		return nil, ErrNoAccessToken
	}
	return token, nil
}
