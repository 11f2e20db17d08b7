package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"esports_v1/ingestion/internal/apperr"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration
type Config struct {
	// PandaScore API
	PandaScoreToken      string        `envconfig:"PANDASCORE_TOKEN"`
	PandaScoreBaseURL    string        `envconfig:"PANDASCORE_BASE_URL" default:"https://api.pandascore.co"`
	PandaScoreTimeout    time.Duration `envconfig:"PANDASCORE_TIMEOUT" default:"30s"`
	PandaScoreMaxRetries int           `envconfig:"PANDASCORE_MAX_RETRIES" default:"3"`

	// Database
	DatabaseURL      string `envconfig:"DATABASE_URL"`
	DatabaseMaxConns int32  `envconfig:"DATABASE_MAX_CONNS" default:"5"`

	// Redis (optional roster cache)
	RedisAddr      string        `envconfig:"REDIS_ADDR" default:""`
	RedisPassword  string        `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB        int           `envconfig:"REDIS_DB" default:"0"`
	RosterCacheTTL time.Duration `envconfig:"ROSTER_CACHE_TTL" default:"24h"`

	// Application
	AppEnv   string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// ETL
	Games           []string      `envconfig:"GAMES" default:"valorant,csgo,lol"`
	BatchSize       int           `envconfig:"BATCH_SIZE" default:"50"`
	StatsBatchSize  int           `envconfig:"STATS_BATCH_SIZE" default:"100"`
	StatsLimit      int           `envconfig:"STATS_LIMIT" default:"500"`
	PlayerTeamLimit int           `envconfig:"PLAYER_TEAM_LIMIT" default:"50"`
	PlayerSyncDelay time.Duration `envconfig:"PLAYER_SYNC_DELAY" default:"100ms"`
	PredictLimit    int           `envconfig:"PREDICT_LIMIT" default:"50"`

	// Worker only
	AutoMigrate        bool   `envconfig:"AUTO_MIGRATE" default:"true"`
	EnableScheduler    bool   `envconfig:"ENABLE_SCHEDULER" default:"true"`
	InitialSyncEnabled bool   `envconfig:"INITIAL_SYNC_ENABLED" default:"true"`
	UpcomingSyncCron   string `envconfig:"UPCOMING_SYNC_CRON" default:"*/15 * * * *"`
	PastSyncCron       string `envconfig:"PAST_SYNC_CRON" default:"0 3 * * *"`
	PlayerSyncCron     string `envconfig:"PLAYER_SYNC_CRON" default:"30 3 * * *"`
	StatsSyncCron      string `envconfig:"STATS_SYNC_CRON" default:"0 * * * *"`
	PredictCron        string `envconfig:"PREDICT_CRON" default:"5,20,35,50 * * * *"`

	// Monitoring
	EnableMetrics bool `envconfig:"ENABLE_METRICS" default:"true"`
	MetricsPort   int  `envconfig:"METRICS_PORT" default:"9090"`
}

// SupportedGames lists the game slugs the upstream API serves for us
var SupportedGames = []string{"valorant", "csgo", "lol"}

// Load loads configuration from environment variables
// It first attempts to load from .env file if present
func Load() (*Config, error) {
	return load(true)
}

// LoadStoreOnly loads configuration for commands that never call the
// upstream API, so no API token is required.
func LoadStoreOnly() (*Config, error) {
	return load(false)
}

func load(requireToken bool) (*Config, error) {
	// Try to load .env file (ignore error if doesn't exist)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, apperr.Configuration(fmt.Errorf("failed to process environment config: %w", err))
	}

	if err := cfg.validate(requireToken); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate validates the configuration, naming every missing field at once
func (c *Config) Validate() error {
	return c.validate(true)
}

func (c *Config) validate(requireToken bool) error {
	var missing []string
	if requireToken && strings.TrimSpace(c.PandaScoreToken) == "" {
		missing = append(missing, "PANDASCORE_TOKEN")
	}
	if strings.TrimSpace(c.DatabaseURL) == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if len(missing) > 0 {
		return apperr.Configuration(fmt.Errorf("missing required config: %s", strings.Join(missing, ", ")))
	}

	if c.BatchSize < 1 || c.BatchSize > 100 {
		return apperr.Configuration(fmt.Errorf("BATCH_SIZE must be between 1 and 100, got %d", c.BatchSize))
	}
	if c.StatsBatchSize < 1 {
		return apperr.Configuration(fmt.Errorf("STATS_BATCH_SIZE must be positive, got %d", c.StatsBatchSize))
	}
	for _, game := range c.Games {
		if !IsSupportedGame(game) {
			return apperr.Configuration(fmt.Errorf("unsupported game %q in GAMES", game))
		}
	}

	return nil
}

// IsSupportedGame reports whether slug is one of SupportedGames
func IsSupportedGame(slug string) bool {
	for _, g := range SupportedGames {
		if g == slug {
			return true
		}
	}
	return false
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// RedisEnabled returns true when a Redis address is configured
func (c *Config) RedisEnabled() bool {
	return c.RedisAddr != ""
}

// MustLoad loads configuration or exits on error
// Use this in main() where we want to fail fast
func MustLoad() *Config {
	return must(Load())
}

// MustLoadStoreOnly is MustLoad for commands that only touch the store
func MustLoadStoreOnly() *Config {
	return must(LoadStoreOnly())
}

func must(cfg *Config, err error) *Config {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	return cfg
}
