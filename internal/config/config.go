package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	API       APIConfig
	Run       RunConfig
	Provision ProvisionConfig
	Server    ServerConfig
	Tracing   TracingConfig
	Alert     AlertConfig
	Log       LogConfig
}

// APIConfig addresses the service node. Every chain endpoint derives from
// BaseURL plus the chain id; MainChain hosts registration, tournament
// administration and the aggregate view.
type APIConfig struct {
	BaseURL       string
	MainChain     string
	AppID         string
	ClientTimeout time.Duration
}

type RunConfig struct {
	Parallelism  int
	RunTimeout   time.Duration
	PollInterval time.Duration
	MaxWait      time.Duration
	Shards       int
	MatrixFile   string
}

type ProvisionConfig struct {
	TournamentCount     int
	RatePerSec          float64
	Burst               int
	FixtureFile         string
	CoordinatorName     string
	CoordinatorPassword string
}

type ServerConfig struct {
	MetricsPort int
}

type TracingConfig struct {
	OTLPEndpoint string
	Insecure     bool
}

type AlertConfig struct {
	WebhookURL string
	Timeout    time.Duration
}

type LogConfig struct {
	Level string
}

func Load() (*Config, error) {
	cfg := &Config{
		API: APIConfig{
			BaseURL:       getEnv("API_BASE_URL", "http://localhost:8080"),
			MainChain:     getEnv("MAIN_CHAIN_ID", ""),
			AppID:         getEnv("APP_ID", ""),
			ClientTimeout: time.Duration(getEnvInt("CLIENT_TIMEOUT_SEC", 15)) * time.Second,
		},
		Run: RunConfig{
			Parallelism:  getEnvInt("RUN_PARALLELISM", 4),
			RunTimeout:   time.Duration(getEnvInt("RUN_TIMEOUT_SEC", 300)) * time.Second,
			PollInterval: time.Duration(getEnvInt("POLL_INTERVAL_MS", 1000)) * time.Millisecond,
			MaxWait:      time.Duration(getEnvInt("CONVERGENCE_MAX_WAIT_SEC", 30)) * time.Second,
			Shards:       getEnvInt("TOURNAMENT_SHARDS", 2),
			MatrixFile:   getEnv("MATRIX_FILE", ""),
		},
		Provision: ProvisionConfig{
			TournamentCount:     getEnvInt("PROVISION_TOURNAMENTS", 5),
			RatePerSec:          getEnvFloat("PROVISION_RATE_PER_SEC", 2),
			Burst:               getEnvInt("PROVISION_BURST", 1),
			FixtureFile:         getEnv("FIXTURE_FILE", "tournaments.json"),
			CoordinatorName:     getEnv("COORDINATOR_NAME", "coordinator"),
			CoordinatorPassword: getEnv("COORDINATOR_PASSWORD", ""),
		},
		Server: ServerConfig{
			MetricsPort: getEnvInt("METRICS_PORT", 9091),
		},
		Tracing: TracingConfig{
			OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Insecure:     getEnv("OTEL_EXPORTER_OTLP_INSECURE", "true") == "true",
		},
		Alert: AlertConfig{
			WebhookURL: getEnv("ALERT_WEBHOOK_URL", ""),
			Timeout:    time.Duration(getEnvInt("ALERT_TIMEOUT_SEC", 5)) * time.Second,
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("API_BASE_URL is required")
	}
	if c.API.MainChain == "" {
		return fmt.Errorf("MAIN_CHAIN_ID is required")
	}
	if c.API.AppID == "" {
		return fmt.Errorf("APP_ID is required")
	}
	if c.Run.Parallelism < 1 {
		return fmt.Errorf("RUN_PARALLELISM must be at least 1, got %d", c.Run.Parallelism)
	}
	if c.Run.Shards < 1 {
		return fmt.Errorf("TOURNAMENT_SHARDS must be at least 1, got %d", c.Run.Shards)
	}
	if c.Run.PollInterval <= 0 || c.Run.MaxWait <= 0 {
		return fmt.Errorf("POLL_INTERVAL_MS and CONVERGENCE_MAX_WAIT_SEC must be positive")
	}
	if c.Run.PollInterval > c.Run.MaxWait {
		return fmt.Errorf("POLL_INTERVAL_MS %s exceeds CONVERGENCE_MAX_WAIT_SEC %s", c.Run.PollInterval, c.Run.MaxWait)
	}
	if c.Provision.TournamentCount < 1 {
		return fmt.Errorf("PROVISION_TOURNAMENTS must be at least 1, got %d", c.Provision.TournamentCount)
	}
	if c.Provision.RatePerSec <= 0 {
		return fmt.Errorf("PROVISION_RATE_PER_SEC must be positive, got %g", c.Provision.RatePerSec)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
