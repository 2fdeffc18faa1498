package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v9"
	"github.com/joho/godotenv"
)

// History backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Config holds application configuration sourced from environment variables.
type Config struct {
	AppEnv string `env:"APP_ENV" envDefault:"production"`
	Port   string `env:"PORT" envDefault:"8080"`

	DBPath         string `env:"DB_PATH" envDefault:"./stackcost.db"`
	HistoryBackend string `env:"HISTORY_BACKEND" envDefault:"sqlite"`
	HistoryDir     string `env:"HISTORY_DIR" envDefault:"./history"`

	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	CostPassword  string        `env:"COST_PASSWORD"`
	SessionSecret string        `env:"SESSION_SECRET"`
	SessionTTL    time.Duration `env:"SESSION_TTL" envDefault:"12h"`

	TemplatesPath string `env:"TEMPLATES_PATH" envDefault:"components.yaml"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
}

// Load reads .env (best-effort) and the process environment.
func Load() (Config, error) {
	return LoadFrom(".env")
}

// LoadFrom is Load with an explicit dotenv path. Variables already present in
// the environment take precedence over the file, and a missing file is ignored.
func LoadFrom(dotenvPath string) (Config, error) {
	if err := godotenv.Load(dotenvPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load %s: %w", dotenvPath, err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	switch cfg.HistoryBackend {
	case BackendFile, BackendSQLite, BackendRedis:
	default:
		return Config{}, fmt.Errorf("unsupported HISTORY_BACKEND %q", cfg.HistoryBackend)
	}

	return cfg, nil
}

// IsDev reports whether the app runs in development mode.
func (c Config) IsDev() bool {
	return c.AppEnv == "dev" || c.AppEnv == "development"
}

// Warnings lists settings that leave a feature disabled or insecure.
func (c Config) Warnings() []string {
	var out []string
	if c.CostPassword == "" {
		out = append(out, "COST_PASSWORD is not set, cost module is locked")
	}
	if c.SessionSecret == "" {
		out = append(out, "SESSION_SECRET is not set, sessions use a random per-process key")
	}
	return out
}
