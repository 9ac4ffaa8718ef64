package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the monitor
type Config struct {
	// Server settings
	Port         int           `yaml:"port"`
	Host         string        `yaml:"host"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// Authentication
	APIKey    string `yaml:"api_key"`
	JWTSecret string `yaml:"jwt_secret"`

	// Security
	AllowedOrigins []string `yaml:"allowed_origins"`
	RateLimitRPS   int      `yaml:"rate_limit_rps"`

	// Logging
	LogLevel string `yaml:"log_level"`

	// Sampling
	SampleInterval  time.Duration `yaml:"sample_interval"`
	ProcessInterval time.Duration `yaml:"process_interval"`
	HistorySize     int           `yaml:"history_size"`
	ProbeSettle     time.Duration `yaml:"probe_settle"`
	NetInterface    string        `yaml:"net_interface"`

	// Process termination
	TerminateEnabled   bool     `yaml:"terminate_enabled"`
	ProtectedProcesses []string `yaml:"protected_processes"`

	EnvFile    string `yaml:"-"`
	ConfigFile string `yaml:"-"`
}

// Defaults returns the configuration used when nothing overrides it
func Defaults() *Config {
	return &Config{
		Port:               8092,
		Host:               "127.0.0.1",
		ReadTimeout:        30 * time.Second,
		WriteTimeout:       300 * time.Second,
		AllowedOrigins:     []string{"*"},
		RateLimitRPS:       100,
		LogLevel:           "info",
		SampleInterval:     time.Second,
		ProcessInterval:    2 * time.Second,
		HistorySize:        60,
		ProbeSettle:        100 * time.Millisecond,
		ProtectedProcesses: []string{"init", "systemd", "sshd"},
	}
}

// Load reads configuration with priority: defaults < YAML file < environment.
// The environment may itself be seeded from a .env file.
func Load() (*Config, error) {
	envFile := getEnvFile()

	// Load .env file if it exists
	_ = godotenv.Load(envFile)

	cfg := Defaults()
	cfg.EnvFile = envFile
	cfg.ConfigFile = os.Getenv("CONFIG_FILE")

	if cfg.ConfigFile != "" {
		if err := cfg.loadYAML(cfg.ConfigFile); err != nil {
			return nil, err
		}
	}

	cfg.Port = getEnvInt("PORT", cfg.Port)
	cfg.Host = getEnv("HOST", cfg.Host)
	cfg.ReadTimeout = getEnvSeconds("READ_TIMEOUT_SECONDS", cfg.ReadTimeout)
	cfg.WriteTimeout = getEnvSeconds("WRITE_TIMEOUT_SECONDS", cfg.WriteTimeout)
	cfg.APIKey = getEnv("API_KEY", cfg.APIKey)
	cfg.JWTSecret = getEnv("JWT_SECRET", cfg.JWTSecret)
	cfg.AllowedOrigins = getEnvSlice("ALLOWED_ORIGINS", cfg.AllowedOrigins)
	cfg.RateLimitRPS = getEnvInt("RATE_LIMIT_RPS", cfg.RateLimitRPS)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.SampleInterval = getEnvMillis("SAMPLE_INTERVAL_MS", cfg.SampleInterval)
	cfg.ProcessInterval = getEnvMillis("PROCESS_INTERVAL_MS", cfg.ProcessInterval)
	cfg.HistorySize = getEnvInt("HISTORY_SIZE", cfg.HistorySize)
	cfg.ProbeSettle = getEnvMillis("PROBE_SETTLE_MS", cfg.ProbeSettle)
	cfg.NetInterface = getEnv("NET_INTERFACE", cfg.NetInterface)
	cfg.TerminateEnabled = getEnvBool("TERMINATE_ENABLED", cfg.TerminateEnabled)
	cfg.ProtectedProcesses = getEnvSlice("PROTECTED_PROCESSES", cfg.ProtectedProcesses)

	if cfg.JWTSecret == "" {
		// Use API key as fallback for JWT secret
		cfg.JWTSecret = cfg.APIKey
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// Validate rejects settings the monitor cannot run with
func (c *Config) Validate() error {
	if c.SampleInterval <= 0 {
		return fmt.Errorf("sample interval must be positive, got %v", c.SampleInterval)
	}
	if c.ProcessInterval <= 0 {
		return fmt.Errorf("process interval must be positive, got %v", c.ProcessInterval)
	}
	if c.HistorySize <= 0 {
		return fmt.Errorf("history size must be positive, got %d", c.HistorySize)
	}
	if c.ProbeSettle < 0 {
		return fmt.Errorf("probe settle must not be negative, got %v", c.ProbeSettle)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	return nil
}

// AuthEnabled reports whether the API requires a token
func (c *Config) AuthEnabled() bool {
	return c.APIKey != ""
}

// LoadWithDefaults loads config with defaults for testing
func LoadWithDefaults() *Config {
	cfg := Defaults()
	cfg.APIKey = "test-api-key"
	cfg.JWTSecret = "test-jwt-secret"
	return cfg
}

// Addr returns the server address string
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// getEnvFile returns the path to the .env file
func getEnvFile() string {
	if envFile := os.Getenv("ENV_FILE"); envFile != "" {
		return envFile
	}
	return ".env"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvSeconds(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return time.Duration(n) * time.Second
		}
	}
	return defaultValue
}

func getEnvMillis(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return time.Duration(n) * time.Millisecond
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return defaultValue
}
