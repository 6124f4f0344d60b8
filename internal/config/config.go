package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

const DefaultPath = "labordash.toml"

type Config struct {
	Collector CollectorConfig `toml:"collector"`
	Data      DataConfig      `toml:"data"`
	Server    ServerConfig    `toml:"server"`
	Log       LogConfig       `toml:"log"`
}

type CollectorConfig struct {
	BaseURL        string `toml:"base_url"`
	APIKey         string `toml:"api_key"`
	LookbackYears  int    `toml:"lookback_years"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	UserAgent      string `toml:"user_agent"`
	ScheduleEvery  string `toml:"schedule_every"`
}

type DataConfig struct {
	CSVPath    string `toml:"csv_path"`
	SQLitePath string `toml:"sqlite_path"`
}

type ServerConfig struct {
	Port    int  `toml:"port"`
	DevMode bool `toml:"dev_mode"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

func Default() *Config {
	return &Config{
		Collector: CollectorConfig{
			BaseURL:        "https://api.bls.gov/publicAPI/v2/timeseries/data/",
			LookbackYears:  6,
			TimeoutSeconds: 30,
			UserAgent:      "labordash/0.1",
			ScheduleEvery:  "24h",
		},
		Data: DataConfig{
			CSVPath: "bls_data.csv",
		},
		Server: ServerConfig{
			Port: 8501,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load layers defaults, the TOML file, a .env file and the process
// environment, in that order. A missing file at DefaultPath is not an error;
// a missing file at any other explicit path is.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = DefaultPath
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && path == DefaultPath:
	default:
		return nil, fmt.Errorf("config: %w", err)
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: .env: %w", err)
	}
	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Collector.BaseURL = getenv("BLS_BASE_URL", cfg.Collector.BaseURL)
	cfg.Collector.APIKey = getenv("BLS_API_KEY", cfg.Collector.APIKey)
	cfg.Collector.LookbackYears = getenvInt("BLS_LOOKBACK_YEARS", cfg.Collector.LookbackYears)
	cfg.Collector.TimeoutSeconds = getenvInt("BLS_TIMEOUT_SECONDS", cfg.Collector.TimeoutSeconds)
	cfg.Collector.UserAgent = getenv("BLS_USER_AGENT", cfg.Collector.UserAgent)
	cfg.Collector.ScheduleEvery = getenv("LABORDASH_SCHEDULE_EVERY", cfg.Collector.ScheduleEvery)
	cfg.Data.CSVPath = getenv("LABORDASH_DATA_FILE", cfg.Data.CSVPath)
	cfg.Data.SQLitePath = getenv("LABORDASH_DB", cfg.Data.SQLitePath)
	cfg.Server.Port = getenvInt("LABORDASH_PORT", cfg.Server.Port)
	cfg.Server.DevMode = getenvBool("LABORDASH_DEV", cfg.Server.DevMode)
	cfg.Log.Level = getenv("LABORDASH_LOG_LEVEL", cfg.Log.Level)
}

func (c *Config) Validate() error {
	if c.Collector.LookbackYears < 0 {
		return fmt.Errorf("config: lookback_years must be >= 0, got %d", c.Collector.LookbackYears)
	}
	if c.Collector.TimeoutSeconds <= 0 {
		return fmt.Errorf("config: timeout_seconds must be > 0, got %d", c.Collector.TimeoutSeconds)
	}
	if _, err := c.ScheduleInterval(); err != nil {
		return err
	}
	if strings.TrimSpace(c.Data.CSVPath) == "" {
		return errors.New("config: data.csv_path is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: invalid port %d", c.Server.Port)
	}
	return nil
}

func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Collector.TimeoutSeconds) * time.Second
}

func (c *Config) ScheduleInterval() (time.Duration, error) {
	every, err := time.ParseDuration(strings.TrimSpace(c.Collector.ScheduleEvery))
	if err != nil {
		return 0, fmt.Errorf("config: schedule_every: %w", err)
	}
	if every < time.Minute {
		return 0, fmt.Errorf("config: schedule_every must be at least 1m, got %s", every)
	}
	return every, nil
}

func getenv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvBool(key string, fallback bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}
