package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

const (
	configFilePathENV = "CONFIG_FILE"
	tokenTelegramENV  = "TELEGRAM_TOKEN"
	chatTelegramENV   = "TELEGRAM_CHAT_ID"
	databaseDSN       = "DATABASE_DSN"
	redisURLENV       = "REDIS_URL"
	kafkaBrokersENV   = "KAFKA_BROKERS"
	dataModeENV       = "DATA_MODE"

	defaultConfigFile = "values_local.yaml"

	// MaxBatchSize bounds one calculate_scores invocation.
	MaxBatchSize = 20
)

type Config struct {
	Service struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"service"`

	// Store selects the relational backend: "postgres" or "memory".
	Store      string `yaml:"store"`
	DB         string `yaml:"db_dsn"`
	DBMaxConns int32  `yaml:"db_max_conns"`

	Redis struct {
		URL    string `yaml:"url"`
		Prefix string `yaml:"prefix"`
	} `yaml:"redis"`

	Logger struct {
		Level       string `yaml:"level"`
		Development bool   `yaml:"development"`
	} `yaml:"logger"`

	Tracing struct {
		Enabled bool   `yaml:"enabled"`
		Host    string `yaml:"host"`
		Port    int    `yaml:"port"`
	} `yaml:"tracing"`

	Scoring struct {
		Algorithm  string `yaml:"algorithm"` // category | directive
		Mode       string `yaml:"mode"`      // live | simulation
		Threshold  int    `yaml:"threshold"`
		BatchSize  int    `yaml:"batch_size"`
		MinHistory int    `yaml:"min_history"`
	} `yaml:"scoring"`

	Capability struct {
		TTL time.Duration `yaml:"ttl"`
	} `yaml:"capability"`

	Jobs struct {
		MaxRetries   int           `yaml:"max_retries"`
		BaseDelay    time.Duration `yaml:"base_delay"`
		MaxDelay     time.Duration `yaml:"max_delay"`
		SuccessRatio float64       `yaml:"success_ratio"`
		ScheduleSpec string        `yaml:"schedule"`
		DrainSpec    string        `yaml:"drain"`
	} `yaml:"jobs"`

	Provider struct {
		Name            string        `yaml:"name"`
		RatePerSecond   float64       `yaml:"rate_per_second"`
		Burst           int           `yaml:"burst"`
		BreakerFailures uint32        `yaml:"breaker_failures"`
		BreakerTimeout  time.Duration `yaml:"breaker_timeout"`
		HistoryBars     int           `yaml:"history_bars"`
	} `yaml:"provider"`

	Telegram struct {
		Token  string `yaml:"token"`
		ChatID int64  `yaml:"chat_id"`
	} `yaml:"telegram"`

	Kafka struct {
		Brokers []string `yaml:"brokers"`
		Topic   string   `yaml:"topic"`
	} `yaml:"kafka"`

	// Symbols seeds the watchlist on start.
	Symbols []string `yaml:"symbols"`
}

// Default returns the configuration used when a key is absent from the file.
func Default() Config {
	var c Config
	c.Service.Port = 8080
	c.Store = "memory"
	c.Redis.Prefix = "scoring:"
	c.Logger.Level = "info"
	c.Tracing.Host = "localhost"
	c.Tracing.Port = 6831

	c.Scoring.Algorithm = "category"
	c.Scoring.Mode = "live"
	c.Scoring.Threshold = 75
	c.Scoring.BatchSize = MaxBatchSize
	c.Scoring.MinHistory = 60

	c.Capability.TTL = 24 * time.Hour

	c.Jobs.MaxRetries = 3
	c.Jobs.BaseDelay = 10 * time.Second
	c.Jobs.MaxDelay = 300 * time.Second
	c.Jobs.SuccessRatio = 0.8
	c.Jobs.ScheduleSpec = "*/15 * * * *"
	c.Jobs.DrainSpec = "@every 30s"

	c.Provider.Name = "simulated"
	c.Provider.RatePerSecond = 5
	c.Provider.Burst = 5
	c.Provider.BreakerFailures = 5
	c.Provider.BreakerTimeout = time.Minute
	c.Provider.HistoryBars = 120

	c.Kafka.Topic = "scoring.signals"
	return c
}

// NewConfig reads configs/$CONFIG_FILE (values_local.yaml by default).
func NewConfig() (*Config, error) {
	name := os.Getenv(configFilePathENV)
	if name == "" {
		name = defaultConfigFile
	}
	return Load(filepath.Join("configs", name))
}

// Load reads the YAML file at path over Default, then applies env overrides.
// An empty path skips the file.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	config := Default()
	if path != "" {
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open config file: %w", err)
		}
		defer func() {
			_ = file.Close()
		}()

		if err := yaml.NewDecoder(file).Decode(&config); err != nil {
			return nil, fmt.Errorf("decode config file: %w", err)
		}
	}

	config.applyEnv()
	config.normalize()
	return &config, nil
}

func (c *Config) applyEnv() {
	if token := os.Getenv(tokenTelegramENV); token != "" {
		c.Telegram.Token = token
	}
	c.Telegram.ChatID = int64FromEnv(chatTelegramENV, c.Telegram.ChatID)
	if dsn := os.Getenv(databaseDSN); dsn != "" {
		c.DB = dsn
		c.Store = "postgres"
	}
	c.Redis.URL = getenvDefault(redisURLENV, c.Redis.URL)
	if brokers := os.Getenv(kafkaBrokersENV); brokers != "" {
		c.Kafka.Brokers = strings.Split(brokers, ",")
	}
	c.Scoring.Mode = getenvDefault(dataModeENV, c.Scoring.Mode)
	c.Scoring.Threshold = intFromEnv("SCORING_THRESHOLD", c.Scoring.Threshold)
	c.Jobs.MaxRetries = intFromEnv("JOBS_MAX_RETRIES", c.Jobs.MaxRetries)
	c.Logger.Development = boolFromEnv("LOG_DEVELOPMENT", c.Logger.Development)
	c.Tracing.Enabled = boolFromEnv("TRACING_ENABLED", c.Tracing.Enabled)
}

// normalize pulls out-of-range values back into bounds instead of rejecting them.
func (c *Config) normalize() {
	d := Default()
	if c.Scoring.BatchSize <= 0 || c.Scoring.BatchSize > MaxBatchSize {
		c.Scoring.BatchSize = MaxBatchSize
	}
	if c.Scoring.Threshold < 0 {
		c.Scoring.Threshold = 0
	}
	if c.Scoring.Threshold > 100 {
		c.Scoring.Threshold = 100
	}
	if c.Scoring.Algorithm != "directive" {
		c.Scoring.Algorithm = d.Scoring.Algorithm
	}
	if c.Scoring.Mode != "simulation" {
		c.Scoring.Mode = d.Scoring.Mode
	}
	if c.Jobs.MaxRetries < 0 {
		c.Jobs.MaxRetries = 0
	}
	if c.Jobs.BaseDelay <= 0 {
		c.Jobs.BaseDelay = d.Jobs.BaseDelay
	}
	if c.Jobs.MaxDelay < c.Jobs.BaseDelay {
		c.Jobs.MaxDelay = d.Jobs.MaxDelay
	}
	if c.Jobs.SuccessRatio <= 0 || c.Jobs.SuccessRatio > 1 {
		c.Jobs.SuccessRatio = d.Jobs.SuccessRatio
	}
	if c.Capability.TTL <= 0 {
		c.Capability.TTL = d.Capability.TTL
	}
}

// Addr is the health/metrics listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Service.Host, c.Service.Port)
}

func intFromEnv(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func int64FromEnv(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}

func boolFromEnv(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if v == "1" || v == "true" || v == "TRUE" {
			return true
		}
		if v == "0" || v == "false" || v == "FALSE" {
			return false
		}
	}
	return def
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
