package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	NATS     NATSConfig
	Consul   ConsulConfig
	Worker   WorkerConfig
	Logging  LoggingConfig
	Engine   EngineConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// DSN builds the PostgreSQL connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// NATSConfig holds NATS connection configuration
type NATSConfig struct {
	URL     string
	Enabled bool
}

// ConsulConfig holds Consul service registration configuration
type ConsulConfig struct {
	Enabled                        bool
	Address                        string
	ServiceID                      string
	ServiceName                    string
	CheckInterval                  string
	DeregisterCriticalServiceAfter string
}

// WorkerConfig holds the daily maintenance worker configuration
type WorkerConfig struct {
	// Schedule is a cron expression for the advance/expiry pass.
	Schedule string
	// RunOnStart triggers one pass immediately at startup.
	RunOnStart bool
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string
}

// EngineConfig tunes the scheduling engine's bounded iteration limits. The
// values can be overridden from an optional YAML file.
type EngineConfig struct {
	GenerationWindowDays int    `yaml:"generation_window_days"`
	AdvanceHorizonDays   int    `yaml:"advance_horizon_days"`
	OverlapSampleDays    int    `yaml:"overlap_sample_days"`
	WeekdayScanDays      int    `yaml:"weekday_scan_days"`
	DefaultSlotMinutes   int    `yaml:"default_slot_minutes"`
	File                 string `yaml:"-"`
}

// Load reads configuration from environment variables, with an optional
// .env file and an optional engine tuning file (ENGINE_CONFIG_FILE)
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			Port:         getEnvInt("SERVER_PORT", 8080),
			ReadTimeout:  getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getEnvDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:  getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvInt("DB_PORT", 5432),
			User:            getEnv("DB_USER", "careslot"),
			Password:        getEnv("DB_PASSWORD", "careslot"),
			Database:        getEnv("DB_NAME", "careslot_scheduling"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			ConnMaxIdleTime: getEnvDuration("DB_CONN_MAX_IDLE_TIME", 1*time.Minute),
		},
		NATS: NATSConfig{
			URL:     getEnv("NATS_URL", "nats://localhost:4222"),
			Enabled: getEnv("NATS_ENABLED", "true") == "true",
		},
		Consul: ConsulConfig{
			Enabled:                        getEnv("CONSUL_ENABLED", "false") == "true",
			Address:                        getEnv("CONSUL_ADDRESS", "localhost:8500"),
			ServiceID:                      getEnv("CONSUL_SERVICE_ID", "scheduling-1"),
			ServiceName:                    getEnv("CONSUL_SERVICE_NAME", "scheduling"),
			CheckInterval:                  getEnv("CONSUL_CHECK_INTERVAL", "10s"),
			DeregisterCriticalServiceAfter: getEnv("CONSUL_DEREGISTER_AFTER", "1m"),
		},
		Worker: WorkerConfig{
			Schedule:   getEnv("WORKER_SCHEDULE", "30 2 * * *"),
			RunOnStart: getEnv("WORKER_RUN_ON_START", "true") == "true",
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Engine: EngineConfig{
			GenerationWindowDays: getEnvInt("ENGINE_GENERATION_WINDOW_DAYS", 14),
			AdvanceHorizonDays:   getEnvInt("ENGINE_ADVANCE_HORIZON_DAYS", 13),
			OverlapSampleDays:    getEnvInt("ENGINE_OVERLAP_SAMPLE_DAYS", 7),
			WeekdayScanDays:      getEnvInt("ENGINE_WEEKDAY_SCAN_DAYS", 365),
			DefaultSlotMinutes:   getEnvInt("ENGINE_DEFAULT_SLOT_MINUTES", 30),
			File:                 getEnv("ENGINE_CONFIG_FILE", ""),
		},
	}

	if cfg.Engine.File != "" {
		if err := cfg.Engine.loadFile(cfg.Engine.File); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFile overlays engine tuning from a YAML file; zero values in the file
// leave the current setting untouched
func (e *EngineConfig) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read engine config %s: %w", path, err)
	}
	var overlay EngineConfig
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return fmt.Errorf("failed to parse engine config %s: %w", path, err)
	}
	if overlay.GenerationWindowDays > 0 {
		e.GenerationWindowDays = overlay.GenerationWindowDays
	}
	if overlay.AdvanceHorizonDays > 0 {
		e.AdvanceHorizonDays = overlay.AdvanceHorizonDays
	}
	if overlay.OverlapSampleDays > 0 {
		e.OverlapSampleDays = overlay.OverlapSampleDays
	}
	if overlay.WeekdayScanDays > 0 {
		e.WeekdayScanDays = overlay.WeekdayScanDays
	}
	if overlay.DefaultSlotMinutes > 0 {
		e.DefaultSlotMinutes = overlay.DefaultSlotMinutes
	}
	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Engine.GenerationWindowDays <= 0 {
		return fmt.Errorf("generation window must be positive, got %d", c.Engine.GenerationWindowDays)
	}
	if c.Engine.AdvanceHorizonDays <= 0 {
		return fmt.Errorf("advance horizon must be positive, got %d", c.Engine.AdvanceHorizonDays)
	}
	if c.Engine.OverlapSampleDays <= 0 || c.Engine.WeekdayScanDays <= 0 {
		return fmt.Errorf("overlap sampling caps must be positive")
	}
	if c.Engine.DefaultSlotMinutes <= 0 {
		return fmt.Errorf("default slot length must be positive, got %d", c.Engine.DefaultSlotMinutes)
	}
	return nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvDuration retrieves a duration environment variable or returns a default value
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
