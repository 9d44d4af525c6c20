package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"ENV_FILE", "CHALLENGE_CONFIG",
	"STRAVA_CLIENT_ID", "STRAVA_CLIENT_SECRET", "STRAVA_REFRESH_TOKEN",
	"CHALLENGE_START_DATE", "CHALLENGE_END_DATE", "CHALLENGE_GOAL_MILES",
	"CHALLENGE_DAILY_GOAL", "CHALLENGE_TIMEZONE",
	"CACHE_BACKEND", "REDIS_ADDRESS", "REDIS_PASSWORD", "REDIS_DB", "CACHE_SQLITE_PATH",
	"SERVER_ADDR", "LOG_LEVEL",
}

func isolate(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
	t.Setenv("HOME", t.TempDir())
}

func fakeStrava(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"token_type":"Bearer","access_token":"abc","expires_in":21600}`))
	})
	mux.HandleFunc("/api/v3/athlete/activities", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"id":2,"name":"Morning Run","sport_type":"Run","type":"Run","distance":16093.44,
			 "start_date":"2024-04-01T13:00:00Z","start_date_local":"2024-04-01T06:00:00Z"},
			{"id":1,"name":"Commute","sport_type":"Ride","type":"Ride","distance":53591.1,
			 "start_date":"2024-03-25T13:00:00Z","start_date_local":"2024-03-25T06:00:00Z"}
		]`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestStatsCommand(t *testing.T) {
	isolate(t)
	srv := fakeStrava(t)
	path := writeConfig(t, `
strava:
  client_id: "1"
  client_secret: "s"
  refresh_token: "r"
  base_url: `+srv.URL+`/api/v3
  token_url: `+srv.URL+`/oauth/token
challenge:
  timezone: UTC
cache:
  backend: memory
log:
  level: error
`)

	out, err := execute(t, "--config", path, "stats", "--at", "2024-04-01T18:00:00Z")
	require.NoError(t, err)

	var stats map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Equal(t, float64(2), stats["totalActivities"])
	assert.InDelta(t, 20.0, stats["totalMiles"].(float64), 0.01)
	assert.Equal(t, float64(13), stats["daysPassed"])
	assert.InDelta(t, 10.0, stats["todayMiles"].(float64), 0.01)
	assert.InDelta(t, 100.0, stats["todayPercentComplete"].(float64), 0.01)
}

func TestStatsCommand_MissingCredentials(t *testing.T) {
	isolate(t)
	t.Setenv("CACHE_BACKEND", "memory")

	_, err := execute(t, "stats")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "client_id")
}

func TestCacheStatsCommand_SQLite(t *testing.T) {
	isolate(t)
	t.Setenv("CACHE_BACKEND", "sqlite")
	t.Setenv("CACHE_SQLITE_PATH", filepath.Join(t.TempDir(), "cache.db"))
	t.Setenv("LOG_LEVEL", "error")

	out, err := execute(t, "cache", "stats")
	require.NoError(t, err)
	assert.JSONEq(t, `{"totalItems":0,"activeItems":0,"expiredItems":0}`, out)
}

func TestCacheClearCommand(t *testing.T) {
	isolate(t)
	t.Setenv("CACHE_BACKEND", "memory")
	t.Setenv("LOG_LEVEL", "error")

	out, err := execute(t, "cache", "clear")
	require.NoError(t, err)
	assert.Contains(t, out, "cleared activities_2024-03-20")
}

func TestInitCommand(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	out, err := execute(t, "--config", path, "init")
	require.NoError(t, err)
	assert.True(t, strings.Contains(out, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "YOUR_CLIENT_ID")
}

func TestUnknownBackendFails(t *testing.T) {
	isolate(t)
	t.Setenv("CACHE_BACKEND", "memcached")

	_, err := execute(t, "cache", "stats")
	require.Error(t, err)
}
