package strava

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"strava-challenge/internal/auth"
	"strava-challenge/internal/cache"
	"strava-challenge/internal/logger"
	"strava-challenge/internal/metrics"
)

const (
	// TokenCacheKey holds the current access token
	TokenCacheKey = "access_token"

	// TokenTTL is shorter than Strava's six hour token lifetime
	TokenTTL = 45 * time.Minute

	// ActivitiesTTL bounds how stale the activity list can be
	ActivitiesTTL = 10 * time.Minute
)

// Config is the immutable client configuration
type Config struct {
	BaseURL      string
	TokenURL     string
	ClientID     string
	ClientSecret string
	RefreshToken string
	Timeout      time.Duration
}

// Source fetches the athlete's activities, caching both the access token
// and the activity listings
type Source struct {
	client       *Client
	httpClient   *http.Client
	oauth        *oauth2.Config
	refreshToken string
	cache        *cache.Cache
	metrics      *metrics.Metrics
	log          logger.Logger

	// collapses concurrent refreshes on a cold cache
	flight singleflight.Group
}

// NewSource builds a Source from cfg. A nil cache disables caching.
func NewSource(cfg Config, c *cache.Cache, m *metrics.Metrics, log logger.Logger) *Source {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if log == nil {
		log = logger.NewNop()
	}
	httpClient := &http.Client{Timeout: timeout}

	return &Source{
		client:     NewClient(httpClient, cfg.BaseURL, m),
		httpClient: httpClient,
		oauth: auth.NewOAuthConfig(auth.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
		}),
		refreshToken: cfg.RefreshToken,
		cache:        c,
		metrics:      m,
		log:          log.With(logger.String("component", "strava")),
	}
}

// ActivitiesCacheKey is the cache key for the listing since the day of t
func ActivitiesCacheKey(t time.Time) string {
	return "activities_" + t.Format("2006-01-02")
}

// Credential returns a cached access token, refreshing it when needed.
// Failures come back as *CredentialError and are not retried.
//
// Concurrent callers share one refresh. The refresh is detached from any
// single caller's cancellation; each caller stops waiting on its own ctx.
func (s *Source) Credential(ctx context.Context) (string, error) {
	ch := s.flight.DoChan(TokenCacheKey, func() (any, error) {
		return cache.CachedCall(context.WithoutCancel(ctx), s.cache, TokenCacheKey, TokenTTL, s.refreshAccessToken)
	})
	select {
	case <-ctx.Done():
		return "", &CredentialError{Err: ctx.Err()}
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

func (s *Source) refreshAccessToken(ctx context.Context) (string, error) {
	if s.refreshToken == "" {
		return "", &CredentialError{Err: ErrMissingRefreshToken}
	}

	start := time.Now()
	token, err := auth.Refresh(ctx, s.oauth, s.refreshToken, s.httpClient)
	if err != nil {
		s.metrics.UpstreamRequest("/oauth/token", metrics.ResultError, time.Since(start))
		s.log.Error("Refreshing Strava access token failed", logger.Error(err))
		return "", &CredentialError{Err: err}
	}
	s.metrics.UpstreamRequest("/oauth/token", metrics.ResultOK, time.Since(start))

	if token.RefreshToken != "" && token.RefreshToken != s.refreshToken {
		s.log.Warn("Strava rotated the refresh token; update configuration to keep access",
			logger.Time("access_expires_at", token.Expiry),
		)
	}
	s.log.Debug("Refreshed Strava access token", logger.Time("expires_at", token.Expiry))
	return token.AccessToken, nil
}

// ListActivitiesSince returns the activities starting on or after the
// calendar day of since (in since's location), most recent first.
// At most one page of MaxPageSize activities is fetched.
func (s *Source) ListActivitiesSince(ctx context.Context, since time.Time) ([]Activity, error) {
	day := startOfDay(since)
	return cache.CachedCall(ctx, s.cache, ActivitiesCacheKey(day), ActivitiesTTL, func(ctx context.Context) ([]Activity, error) {
		return s.fetchActivities(ctx, day)
	})
}

func (s *Source) fetchActivities(ctx context.Context, after time.Time) ([]Activity, error) {
	token, err := s.Credential(ctx)
	if err != nil {
		return nil, err
	}

	activities, err := s.client.ListActivities(ctx, token, after, MaxPageSize)
	if err != nil {
		var upstream *UpstreamFetchError
		if errors.As(err, &upstream) && upstream.StatusCode == http.StatusUnauthorized && s.cache != nil {
			// next request refreshes instead of reusing a revoked token
			s.cache.Invalidate(ctx, TokenCacheKey)
		}
		s.log.Error("Fetching Strava activities failed",
			logger.Time("after", after),
			logger.Error(err),
		)
		return nil, err
	}

	SortMostRecentFirst(activities)
	short, daily := s.client.RateLimitStatus()
	s.log.Debug("Fetched Strava activities",
		logger.Time("after", after),
		logger.Int("count", len(activities)),
		logger.Int("short_remaining", short),
		logger.Int("daily_remaining", daily),
	)
	return activities, nil
}

// SortMostRecentFirst orders activities by start time, newest first.
// Strava returns ascending order when 'after' is set.
func SortMostRecentFirst(activities []Activity) {
	sort.SliceStable(activities, func(i, j int) bool {
		return activities[i].StartDate.After(activities[j].StartDate)
	})
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
