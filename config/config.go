package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds every setting the CLI and the stub server read.
type Config struct {
	APIURL         string        `mapstructure:"API_URL"`
	InitData       string        `mapstructure:"TELEGRAM_INIT_DATA"`
	DevUserID      int64         `mapstructure:"TELEGRAM_USER_ID"`
	RequestTimeout time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	RateLimitRPS   float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int           `mapstructure:"RATE_LIMIT_BURST"`

	LogLevel string `mapstructure:"LOG_LEVEL"`
	LogFile  string `mapstructure:"LOG_FILE"`

	Port        string        `mapstructure:"PORT"`
	BotToken    string        `mapstructure:"TELEGRAM_BOT_TOKEN"`
	InitDataTTL time.Duration `mapstructure:"INIT_DATA_TTL"`
	MetricsUser string        `mapstructure:"METRICS_USER"`
	MetricsPass string        `mapstructure:"METRICS_PASS"`
}

var keys = []string{
	"API_URL", "TELEGRAM_INIT_DATA", "TELEGRAM_USER_ID", "REQUEST_TIMEOUT",
	"RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "LOG_LEVEL", "LOG_FILE",
	"PORT", "TELEGRAM_BOT_TOKEN", "INIT_DATA_TTL", "METRICS_USER", "METRICS_PASS",
}

// New returns a viper instance bound to the environment with defaults set.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault("API_URL", "http://localhost:3333/api")
	v.SetDefault("TELEGRAM_USER_ID", 0)
	v.SetDefault("REQUEST_TIMEOUT", 15*time.Second)
	v.SetDefault("RATE_LIMIT_RPS", 10.0)
	v.SetDefault("RATE_LIMIT_BURST", 20)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("PORT", "3333")
	v.SetDefault("INIT_DATA_TTL", 24*time.Hour)

	v.AutomaticEnv()
	// Unmarshal only sees keys viper already knows about.
	for _, k := range keys {
		_ = v.BindEnv(k)
	}
	_ = v.BindEnv("API_URL", "API_URL", "VITE_API_URL")
	return v
}

// Load reads .env (when present) into the process environment and decodes v.
func Load(v *viper.Viper) (Config, error) {
	// a missing .env is fine, the environment may already be populated
	_ = godotenv.Load()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.APIURL = strings.TrimRight(strings.TrimSpace(cfg.APIURL), "/")
	if cfg.APIURL == "" {
		return Config{}, fmt.Errorf("API_URL is empty")
	}
	if cfg.RequestTimeout <= 0 {
		return Config{}, fmt.Errorf("REQUEST_TIMEOUT must be positive, got %s", cfg.RequestTimeout)
	}
	return cfg, nil
}

// InitDataFunc re-reads TELEGRAM_INIT_DATA from v on each call so a value
// rotated in the environment reaches the next request.
func InitDataFunc(v *viper.Viper) func() string {
	return func() string { return v.GetString("TELEGRAM_INIT_DATA") }
}
