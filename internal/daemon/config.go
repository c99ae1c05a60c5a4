// Package daemon manages the studyquest daemon lifecycle and configuration.
package daemon

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/studyquest/studyquest/internal/infra/persist"
)

// Storage backends.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Config holds all daemon configuration.
type Config struct {
	// Home is the data directory. Not persisted; it decides where the
	// config file itself lives.
	Home string `toml:"-"`

	Account     AccountConfig     `toml:"account"`
	Progression ProgressionConfig `toml:"progression"`
	Quests      QuestsConfig      `toml:"quests"`
	Storage     StorageConfig     `toml:"storage"`
	Persist     PersistConfig     `toml:"persist"`
	API         APIConfig         `toml:"api"`
	Logging     LoggingConfig     `toml:"logging"`
}

// AccountConfig identifies whose progress this daemon tracks.
type AccountConfig struct {
	ID string `toml:"id"`
}

// ProgressionConfig tunes XP grants.
type ProgressionConfig struct {
	PremiumMultiplier float64 `toml:"premium_multiplier"`
	RecentWindow      int     `toml:"recent_window"`
}

// QuestsConfig controls the quest catalog.
type QuestsConfig struct {
	CatalogFile string `toml:"catalog_file"`
	DailyCount  int    `toml:"daily_count"`
	WeeklyCount int    `toml:"weekly_count"`
}

// StorageConfig selects the stats store.
type StorageConfig struct {
	Backend       string `toml:"backend"`
	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
}

// PersistConfig controls write-behind retries.
type PersistConfig struct {
	MaxRetries int    `toml:"max_retries"`
	BaseDelay  string `toml:"base_delay"`
	MaxDelay   string `toml:"max_delay"`
}

// APIConfig controls the HTTP API server.
type APIConfig struct {
	Host    string `toml:"host"`
	Port    int    `toml:"port"`
	Metrics bool   `toml:"metrics"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "console" or "json"
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() Config {
	return Config{
		Home:    studyquestHome(),
		Account: AccountConfig{ID: "local"},
		Progression: ProgressionConfig{
			PremiumMultiplier: 1.0,
			RecentWindow:      10,
		},
		Quests: QuestsConfig{
			DailyCount:  3,
			WeeklyCount: 3,
		},
		Storage: StorageConfig{
			Backend:   BackendSQLite,
			RedisAddr: "127.0.0.1:6379",
		},
		Persist: PersistConfig{
			MaxRetries: 5,
			BaseDelay:  "500ms",
			MaxDelay:   "30s",
		},
		API: APIConfig{
			Host:    "127.0.0.1",
			Port:    7878,
			Metrics: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadConfig reads config from $STUDYQUEST_HOME/config.toml, falling back
// to defaults. A .env file in the data dir or the working directory is
// loaded first, so its values feed the environment overrides.
func LoadConfig() (Config, error) {
	loadDotEnv(studyquestHome())
	return LoadConfigFrom(studyquestHome())
}

// LoadConfigFrom reads home/config.toml and applies environment overrides.
func LoadConfigFrom(home string) (Config, error) {
	cfg := DefaultConfig()
	cfg.Home = home
	path := filepath.Join(home, "config.toml")

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return cfg, fmt.Errorf("stat config: %w", err)
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.validate()
}

// SaveConfig writes the config to Home/config.toml.
func SaveConfig(cfg Config) error {
	home := cfg.Home
	if home == "" {
		home = studyquestHome()
	}
	path := filepath.Join(home, "config.toml")
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

// PersistSettings converts the [persist] section, keeping defaults for
// blank or unparseable durations.
func (c Config) PersistSettings() persist.Config {
	out := persist.DefaultConfig()
	if c.Persist.MaxRetries >= 0 {
		out.MaxRetries = c.Persist.MaxRetries
	}
	out.BaseDelay = parseDuration(c.Persist.BaseDelay, out.BaseDelay)
	out.MaxDelay = parseDuration(c.Persist.MaxDelay, out.MaxDelay)
	return out
}

// Addr is the API listen address.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.API.Host, c.API.Port)
}

func (c Config) validate() error {
	switch c.Storage.Backend {
	case BackendSQLite, BackendRedis:
	default:
		return fmt.Errorf("unknown storage backend %q (want %s or %s)",
			c.Storage.Backend, BackendSQLite, BackendRedis)
	}
	if c.Account.ID == "" {
		return fmt.Errorf("account id must not be empty")
	}
	if c.API.Port <= 0 || c.API.Port > 65535 {
		return fmt.Errorf("invalid api port %d", c.API.Port)
	}
	return nil
}

// applyEnv layers environment variables over the file config.
func applyEnv(cfg *Config) error {
	if v := os.Getenv("STUDYQUEST_STORAGE"); v != "" {
		cfg.Storage.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Storage.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Storage.RedisPassword = v
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		db, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("REDIS_DB: %w", err)
		}
		cfg.Storage.RedisDB = db
	}
	if v := os.Getenv("STUDYQUEST_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	return nil
}

// loadDotEnv loads .env files without overriding variables already set.
// Missing files are ignored.
func loadDotEnv(home string) {
	for _, path := range []string{filepath.Join(home, ".env"), ".env"} {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
		}
	}
}

// NewLogger builds the root logger.
func NewLogger(cfg LoggingConfig) zerolog.Logger {
	return newLogger(cfg, os.Stderr)
}

func newLogger(cfg LoggingConfig, w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	if cfg.Format != "json" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// studyquestHome returns the studyquest data directory.
func studyquestHome() string {
	if env := os.Getenv("STUDYQUEST_HOME"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".studyquest")
}

// Home is exported for use by other packages.
func Home() string {
	return studyquestHome()
}

// parseDuration parses a duration string, returning a fallback on error.
func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
