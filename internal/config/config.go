package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"strava-challenge/internal/cache"
	"strava-challenge/internal/challenge"
	"strava-challenge/internal/strava"
)

// Config represents the application configuration
type Config struct {
	Strava    StravaConfig    `yaml:"strava"`
	Challenge ChallengeConfig `yaml:"challenge"`
	Cache     CacheConfig     `yaml:"cache"`
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
}

// StravaConfig holds Strava API credentials
type StravaConfig struct {
	ClientID     string        `yaml:"client_id"`
	ClientSecret string        `yaml:"client_secret"`
	RefreshToken string        `yaml:"refresh_token"`
	BaseURL      string        `yaml:"base_url"`
	TokenURL     string        `yaml:"token_url"`
	Timeout      time.Duration `yaml:"timeout"`
}

// ChallengeConfig describes the tracked challenge. Dates are YYYY-MM-DD
// in Timezone.
type ChallengeConfig struct {
	StartDate string  `yaml:"start_date"`
	EndDate   string  `yaml:"end_date"`
	GoalMiles float64 `yaml:"goal_miles"`
	DailyGoal float64 `yaml:"daily_goal"`
	Timezone  string  `yaml:"timezone"`
}

// CacheConfig selects and configures the cache backend
type CacheConfig struct {
	Backend    string            `yaml:"backend"` // redis, sqlite or memory
	Prefix     string            `yaml:"prefix"`
	Redis      cache.RedisConfig `yaml:"redis"`
	SQLitePath string            `yaml:"sqlite_path"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Cache backends
const (
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

var (
	// ErrNoConfig is returned when an explicitly requested config file doesn't exist
	ErrNoConfig = errors.New("config file not found")

	// ErrConfiguration wraps every invalid or missing setting
	ErrConfiguration = errors.New("invalid configuration")
)

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		Strava: StravaConfig{
			BaseURL:  strava.BaseURL,
			TokenURL: "https://www.strava.com/oauth/token",
			Timeout:  15 * time.Second,
		},
		Challenge: ChallengeConfig{
			StartDate: "2024-03-20",
			EndDate:   "2024-06-28",
			GoalMiles: 1000,
			DailyGoal: 10,
			Timezone:  "Local",
		},
		Cache: CacheConfig{
			Backend:    BackendRedis,
			Prefix:     cache.DefaultPrefix,
			SQLitePath: defaultSQLitePath(),
			Redis: cache.RedisConfig{
				Address: "localhost:6379",
				Timeout: 2 * time.Second,
			},
		},
		Server: ServerConfig{
			Addr:         ":8080",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads .env files, the YAML config at path and then environment
// overrides, in that order. An empty path uses CHALLENGE_CONFIG or
// ~/.strava-challenge/config.yaml, either of which may be absent.
func Load(path string) (*Config, error) {
	if err := loadEnvFiles(); err != nil {
		return nil, err
	}

	cfg := DefaultConfig()

	explicit := path != ""
	if !explicit {
		path = os.Getenv("CHALLENGE_CONFIG")
		explicit = path != ""
	}
	if !explicit {
		var err error
		if path, err = getConfigPath(); err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err) && explicit:
		return nil, fmt.Errorf("%w: %s", ErrNoConfig, path)
	case os.IsNotExist(err):
		// environment only
	case err != nil:
		return nil, fmt.Errorf("reading config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// loadEnvFiles loads ENV_FILE if set, otherwise .env.local then .env.
// Variables already in the environment win.
func loadEnvFiles() error {
	if envFile := os.Getenv("ENV_FILE"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("loading env file %s: %w", envFile, err)
		}
		return nil
	}
	for _, name := range []string{".env.local", ".env"} {
		if err := godotenv.Load(name); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("loading %s: %w", name, err)
		}
	}
	return nil
}

func applyEnv(cfg *Config) error {
	envString(&cfg.Strava.ClientID, "STRAVA_CLIENT_ID")
	envString(&cfg.Strava.ClientSecret, "STRAVA_CLIENT_SECRET")
	envString(&cfg.Strava.RefreshToken, "STRAVA_REFRESH_TOKEN")

	envString(&cfg.Challenge.StartDate, "CHALLENGE_START_DATE")
	envString(&cfg.Challenge.EndDate, "CHALLENGE_END_DATE")
	envString(&cfg.Challenge.Timezone, "CHALLENGE_TIMEZONE")

	envString(&cfg.Cache.Backend, "CACHE_BACKEND")
	envString(&cfg.Cache.Redis.Address, "REDIS_ADDRESS")
	envString(&cfg.Cache.Redis.Password, "REDIS_PASSWORD")
	envString(&cfg.Cache.SQLitePath, "CACHE_SQLITE_PATH")

	envString(&cfg.Server.Addr, "SERVER_ADDR")
	envString(&cfg.Log.Level, "LOG_LEVEL")

	var errs []error
	errs = append(errs,
		envFloat(&cfg.Challenge.GoalMiles, "CHALLENGE_GOAL_MILES"),
		envFloat(&cfg.Challenge.DailyGoal, "CHALLENGE_DAILY_GOAL"),
		envInt(&cfg.Cache.Redis.DB, "REDIS_DB"),
	)
	return errors.Join(errs...)
}

func envString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envFloat(dst *float64, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return fmt.Errorf("%w: %s=%q is not a number", ErrConfiguration, key, v)
	}
	*dst = f
	return nil
}

func envInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("%w: %s=%q is not an integer", ErrConfiguration, key, v)
	}
	*dst = n
	return nil
}

// Validate checks the challenge, cache and logging settings
func (c *Config) Validate() error {
	if _, err := c.ChallengeWindow(); err != nil {
		return err
	}

	switch c.Cache.Backend {
	case BackendRedis:
		if c.Cache.Redis.Address == "" {
			return fmt.Errorf("%w: cache.redis.address is required for the redis backend", ErrConfiguration)
		}
	case BackendSQLite:
		if c.Cache.SQLitePath == "" {
			return fmt.Errorf("%w: cache.sqlite_path is required for the sqlite backend", ErrConfiguration)
		}
	case BackendMemory:
	default:
		return fmt.Errorf("%w: cache.backend must be %q, %q or %q, got %q",
			ErrConfiguration, BackendRedis, BackendSQLite, BackendMemory, c.Cache.Backend)
	}

	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: log.level: %w", ErrConfiguration, err)
	}
	return nil
}

// ValidateCredentials checks the Strava app credentials. The refresh token
// is not required here; its absence fails each stats request instead.
func (c *Config) ValidateCredentials() error {
	if c.Strava.ClientID == "" || c.Strava.ClientID == "YOUR_CLIENT_ID" {
		return fmt.Errorf("%w: strava.client_id is required - get it from https://www.strava.com/settings/api", ErrConfiguration)
	}
	if c.Strava.ClientSecret == "" || c.Strava.ClientSecret == "YOUR_CLIENT_SECRET" {
		return fmt.Errorf("%w: strava.client_secret is required - get it from https://www.strava.com/settings/api", ErrConfiguration)
	}
	return nil
}

// ChallengeWindow resolves the challenge settings into dates in the
// configured timezone
func (c *Config) ChallengeWindow() (challenge.Config, error) {
	loc, err := time.LoadLocation(c.Challenge.Timezone)
	if err != nil {
		return challenge.Config{}, fmt.Errorf("%w: challenge.timezone %q: %w", ErrConfiguration, c.Challenge.Timezone, err)
	}

	start, err := time.ParseInLocation(challenge.DateLayout, c.Challenge.StartDate, loc)
	if err != nil {
		return challenge.Config{}, fmt.Errorf("%w: challenge.start_date %q must be YYYY-MM-DD", ErrConfiguration, c.Challenge.StartDate)
	}
	end, err := time.ParseInLocation(challenge.DateLayout, c.Challenge.EndDate, loc)
	if err != nil {
		return challenge.Config{}, fmt.Errorf("%w: challenge.end_date %q must be YYYY-MM-DD", ErrConfiguration, c.Challenge.EndDate)
	}
	if !end.After(start) {
		return challenge.Config{}, fmt.Errorf("%w: challenge.end_date must be after challenge.start_date", ErrConfiguration)
	}
	if c.Challenge.GoalMiles <= 0 {
		return challenge.Config{}, fmt.Errorf("%w: challenge.goal_miles must be positive, got %v", ErrConfiguration, c.Challenge.GoalMiles)
	}
	if c.Challenge.DailyGoal <= 0 {
		return challenge.Config{}, fmt.Errorf("%w: challenge.daily_goal must be positive, got %v", ErrConfiguration, c.Challenge.DailyGoal)
	}

	return challenge.Config{
		StartDate: start,
		EndDate:   end,
		GoalMiles: c.Challenge.GoalMiles,
		DailyGoal: c.Challenge.DailyGoal,
		Location:  loc,
	}, nil
}

// Save writes the configuration as YAML to path
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// CreateExample writes an example config to path (the default location
// when empty) unless one already exists, and returns the path used
func CreateExample(path string) (string, error) {
	if path == "" {
		var err error
		if path, err = getConfigPath(); err != nil {
			return "", err
		}
	}

	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	example := DefaultConfig()
	example.Strava.ClientID = "YOUR_CLIENT_ID"
	example.Strava.ClientSecret = "YOUR_CLIENT_SECRET"
	return path, Save(&example, path)
}

// getConfigPath returns the path to the config file
func getConfigPath() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// GetConfigDir returns the path to the config directory
func GetConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".strava-challenge"), nil
}

func defaultSQLitePath() string {
	dir, err := GetConfigDir()
	if err != nil {
		return "cache.db"
	}
	return filepath.Join(dir, "cache.db")
}
