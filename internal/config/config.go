// Package config provides application configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
)

// Config holds all application configuration.
type Config struct {
	Port           string
	LogLevel       string
	AllowedOrigins []string
	KnowledgeBase  KnowledgeBaseConfig
	Session        SessionConfig
	Match          MatchConfig
}

// KnowledgeBaseConfig locates the knowledge base document.
type KnowledgeBaseConfig struct {
	Path  string
	Watch bool // invalidate the cache on file change events
}

// SessionConfig controls session storage and expiry.
type SessionConfig struct {
	Store         string // "memory" or "sqlite"
	DBPath        string
	TTL           time.Duration // 0 = sessions never expire
	SweepInterval time.Duration
}

// MatchConfig tunes the keyword matcher.
type MatchConfig struct {
	Threshold float64
	Floor     int
}

// Load reads configuration from environment variables, then applies
// command-line flags from args on top.
func Load(args []string) (*Config, error) {
	cfg := &Config{
		Port:           getEnv("PORT", "8000"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		AllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		KnowledgeBase: KnowledgeBaseConfig{
			Path:  getEnv("KB_PATH", "knowledge_base.json"),
			Watch: getEnvBool("KB_WATCH", false),
		},
		Session: SessionConfig{
			Store:         getEnv("SESSION_STORE", "memory"),
			DBPath:        getEnv("DB_PATH", "./data/support.db"),
			TTL:           getEnvDuration("SESSION_TTL", 24*time.Hour),
			SweepInterval: getEnvDuration("SESSION_SWEEP_INTERVAL", 5*time.Minute),
		},
		Match: MatchConfig{
			Threshold: getEnvFloat("MATCH_THRESHOLD", 0.22),
			Floor:     getEnvInt("MATCH_SCORE_FLOOR", 6),
		},
	}

	fs := pflag.NewFlagSet("support-chat", pflag.ContinueOnError)
	fs.StringVar(&cfg.Port, "port", cfg.Port, "HTTP listen port")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	fs.StringVar(&cfg.KnowledgeBase.Path, "kb-path", cfg.KnowledgeBase.Path, "path to the knowledge base JSON document")
	fs.BoolVar(&cfg.KnowledgeBase.Watch, "kb-watch", cfg.KnowledgeBase.Watch, "watch the knowledge base for changes")
	fs.StringVar(&cfg.Session.Store, "session-store", cfg.Session.Store, "session store (memory, sqlite)")
	fs.StringVar(&cfg.Session.DBPath, "db-path", cfg.Session.DBPath, "SQLite database path")
	fs.DurationVar(&cfg.Session.TTL, "session-ttl", cfg.Session.TTL, "idle time before a session expires (0 disables expiry)")
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.KnowledgeBase.Path == "" {
		return fmt.Errorf("KB_PATH cannot be empty")
	}
	switch c.Session.Store {
	case "memory":
	case "sqlite":
		if c.Session.DBPath == "" {
			return fmt.Errorf("DB_PATH cannot be empty when SESSION_STORE=sqlite")
		}
	default:
		return fmt.Errorf("SESSION_STORE must be memory or sqlite, got %q", c.Session.Store)
	}
	if c.Session.TTL < 0 {
		return fmt.Errorf("SESSION_TTL must be >= 0")
	}
	if c.Session.SweepInterval <= 0 {
		return fmt.Errorf("SESSION_SWEEP_INTERVAL must be > 0")
	}
	if c.Match.Threshold < 0 || c.Match.Threshold > 1 {
		return fmt.Errorf("MATCH_THRESHOLD must be within [0, 1]")
	}
	if c.Match.Floor < 1 {
		return fmt.Errorf("MATCH_SCORE_FLOOR must be >= 1")
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// SlogLevel returns the configured log level.
func (c *Config) SlogLevel() slog.Level {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("LOG_LEVEL %q is not a valid level", s)
	}
	return level, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return f
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
