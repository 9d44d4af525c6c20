package strava

import (
	"errors"
	"fmt"
)

// ErrMissingRefreshToken is returned when no refresh token is configured
var ErrMissingRefreshToken = errors.New("strava refresh token is missing")

// ErrRateLimited is returned when a Strava rate limit window is exhausted
var ErrRateLimited = errors.New("strava rate limit exhausted")

// CredentialError means an access token could not be obtained
type CredentialError struct {
	Err error
}

func (e *CredentialError) Error() string {
	return fmt.Sprintf("strava credential: %v", e.Err)
}

func (e *CredentialError) Unwrap() error { return e.Err }

// UpstreamFetchError means an activity request to Strava failed
type UpstreamFetchError struct {
	StatusCode int // zero when no response was received
	Err        error
}

func (e *UpstreamFetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("strava fetch (status %d): %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("strava fetch: %v", e.Err)
}

func (e *UpstreamFetchError) Unwrap() error { return e.Err }
