package strava

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/oauth2"

	"strava-challenge/internal/metrics"
)

const BaseURL = "https://www.strava.com/api/v3"

// MaxPageSize is the largest per_page Strava accepts
const MaxPageSize = 200

// maxErrorBody caps how much of an error response is kept
const maxErrorBody = 512

// Client is a Strava API client. The access token is supplied per call
// so that token caching stays with the caller.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	rateLimiter *RateLimiter
	metrics     *metrics.Metrics
}

// NewClient creates a new Strava API client
func NewClient(httpClient *http.Client, baseURL string, m *metrics.Metrics) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if baseURL == "" {
		baseURL = BaseURL
	}
	return &Client{
		httpClient:  httpClient,
		baseURL:     baseURL,
		rateLimiter: NewRateLimiter(),
		metrics:     m,
	}
}

// ListActivities fetches a single page of the athlete's activities
// starting at or after 'after'. Strava's filter is exclusive, so the
// request asks for one second earlier.
func (c *Client) ListActivities(ctx context.Context, accessToken string, after time.Time, perPage int) ([]Activity, error) {
	if perPage <= 0 || perPage > MaxPageSize {
		perPage = MaxPageSize
	}

	params := url.Values{}
	if !after.IsZero() {
		params.Set("after", strconv.FormatInt(after.Unix()-1, 10))
	}
	params.Set("page", "1")
	params.Set("per_page", strconv.Itoa(perPage))

	resp, err := c.get(ctx, accessToken, "/athlete/activities", params)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var activities []Activity
	if err := json.NewDecoder(resp.Body).Decode(&activities); err != nil {
		return nil, &UpstreamFetchError{StatusCode: resp.StatusCode, Err: fmt.Errorf("decoding activities: %w", err)}
	}

	return activities, nil
}

// RateLimitStatus returns the current rate limit status
func (c *Client) RateLimitStatus() (shortRemaining, dailyRemaining int) {
	return c.rateLimiter.Status()
}

func (c *Client) get(ctx context.Context, accessToken, path string, params url.Values) (*http.Response, error) {
	if err := c.rateLimiter.Allow(); err != nil {
		c.metrics.UpstreamRequest(path, "rate_limited", 0)
		return nil, &UpstreamFetchError{Err: err}
	}

	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, &UpstreamFetchError{Err: err}
	}
	(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}).SetAuthHeader(req)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.UpstreamRequest(path, metrics.ResultError, time.Since(start))
		return nil, &UpstreamFetchError{Err: err}
	}

	// Update rate limiter from response headers
	c.rateLimiter.UpdateFromHeaders(resp.Header)
	c.metrics.RateLimit(c.rateLimiter.Usage())

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		resp.Body.Close()
		c.metrics.UpstreamRequest(path, strconv.Itoa(resp.StatusCode), time.Since(start))
		return nil, &UpstreamFetchError{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("API error %d: %s", resp.StatusCode, string(body)),
		}
	}

	c.metrics.UpstreamRequest(path, metrics.ResultOK, time.Since(start))
	return resp, nil
}
