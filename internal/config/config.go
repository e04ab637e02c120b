package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds process-level settings. Environment variables override the
// defaults; cobra flags override both.
type Config struct {
	DBPath         string
	Port           int
	QueryTimeout   time.Duration
	DefaultDays    int
	TopAlarmsLimit int
}

// Load reads .env (if present) and the environment.
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		DBPath:         "washplant.db",
		Port:           8080,
		QueryTimeout:   5 * time.Second,
		DefaultDays:    7,
		TopAlarmsLimit: 5,
	}

	if val := os.Getenv("WASHPLANT_DB"); val != "" {
		cfg.DBPath = val
	}
	if val := os.Getenv("WASHPLANT_PORT"); val != "" {
		if p, err := strconv.Atoi(val); err == nil {
			cfg.Port = p
		}
	}
	if val := os.Getenv("WASHPLANT_QUERY_TIMEOUT_SECONDS"); val != "" {
		if s, err := strconv.Atoi(val); err == nil && s > 0 {
			cfg.QueryTimeout = time.Duration(s) * time.Second
		}
	}
	if val := os.Getenv("WASHPLANT_DEFAULT_DAYS"); val != "" {
		if d, err := strconv.Atoi(val); err == nil && d > 0 {
			cfg.DefaultDays = d
		}
	}
	if val := os.Getenv("WASHPLANT_TOP_ALARMS"); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			cfg.TopAlarmsLimit = n
		}
	}

	return cfg
}
