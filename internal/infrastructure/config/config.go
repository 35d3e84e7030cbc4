package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Backend  BackendConfig  `mapstructure:"backend"`
	State    StateConfig    `mapstructure:"state"`
	Logger   LoggerConfig   `mapstructure:"logger"`
	Security SecurityConfig `mapstructure:"security"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	DevStack DevStackConfig `mapstructure:"devstack"`
}

// AppConfig holds application-specific configuration
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	Debug       bool   `mapstructure:"debug"`
}

// ServerConfig holds the UI server configuration
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	Host         string        `mapstructure:"host"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// BackendConfig locates the hosted record and identity services.
type BackendConfig struct {
	RecordURL   string        `mapstructure:"record_url"`
	IdentityURL string        `mapstructure:"identity_url"`
	AppID       string        `mapstructure:"app_id"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// StateConfig holds the local persisted-state settings (session blob,
// theme flag). The state file is best-effort and disposable.
type StateConfig struct {
	Path string `mapstructure:"path"`
}

// LoggerConfig holds logging configuration
type LoggerConfig struct {
	Level    string `mapstructure:"level"`
	Format   string `mapstructure:"format"`
	Output   string `mapstructure:"output"`
	Filename string `mapstructure:"filename"`
}

// SecurityConfig holds security-related configuration
type SecurityConfig struct {
	CORSAllowedOrigins string        `mapstructure:"cors_allowed_origins"`
	RateLimitRequests  int           `mapstructure:"rate_limit_requests"`
	RateLimitWindow    time.Duration `mapstructure:"rate_limit_window"`
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// DevStackConfig configures the bundled development backend that
// implements the record and identity contracts locally.
type DevStackConfig struct {
	Port       int           `mapstructure:"port"`
	Host       string        `mapstructure:"host"`
	DBPath     string        `mapstructure:"db_path"`
	JWTSecret  string        `mapstructure:"jwt_secret"`
	SessionTTL time.Duration `mapstructure:"session_ttl"`
	Issuer     string        `mapstructure:"issuer"`
}

// Load loads configuration from the environment, with a .env file as an
// optional overlay.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore errors)
	_ = godotenv.Load()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults()
	bindEnvVars()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults() {
	// App defaults
	viper.SetDefault("app.name", "TaskTrail")
	viper.SetDefault("app.version", "1.0.0")
	viper.SetDefault("app.environment", "development")
	viper.SetDefault("app.debug", false)

	// Server defaults
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.host", "127.0.0.1")
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.idle_timeout", "120s")

	// Backend defaults point at a locally running dev stack
	viper.SetDefault("backend.record_url", "http://localhost:8090")
	viper.SetDefault("backend.identity_url", "http://localhost:8090")
	viper.SetDefault("backend.app_id", "tasktrail-dev")
	viper.SetDefault("backend.timeout", "15s")

	// State defaults
	viper.SetDefault("state.path", "tasktrail-state.json")

	// Logger defaults
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.format", "json")
	viper.SetDefault("logger.output", "stdout")

	// Security defaults
	viper.SetDefault("security.cors_allowed_origins", "*")
	viper.SetDefault("security.rate_limit_requests", 100)
	viper.SetDefault("security.rate_limit_window", "1m")

	// Metrics defaults
	viper.SetDefault("metrics.enabled", true)

	// Dev stack defaults
	viper.SetDefault("devstack.port", 8090)
	viper.SetDefault("devstack.host", "127.0.0.1")
	viper.SetDefault("devstack.db_path", "tasktrail-dev.db")
	viper.SetDefault("devstack.jwt_secret", "tasktrail-dev-secret")
	viper.SetDefault("devstack.session_ttl", "24h")
	viper.SetDefault("devstack.issuer", "tasktrail-devstack")
}

func bindEnvVars() {
	// App
	viper.BindEnv("app.name", "APP_NAME")
	viper.BindEnv("app.version", "APP_VERSION")
	viper.BindEnv("app.environment", "APP_ENVIRONMENT")
	viper.BindEnv("app.debug", "APP_DEBUG")

	// Server
	viper.BindEnv("server.port", "SERVER_PORT")
	viper.BindEnv("server.host", "SERVER_HOST")
	viper.BindEnv("server.read_timeout", "SERVER_READ_TIMEOUT")
	viper.BindEnv("server.write_timeout", "SERVER_WRITE_TIMEOUT")
	viper.BindEnv("server.idle_timeout", "SERVER_IDLE_TIMEOUT")

	// Backend
	viper.BindEnv("backend.record_url", "BACKEND_RECORD_URL")
	viper.BindEnv("backend.identity_url", "BACKEND_IDENTITY_URL")
	viper.BindEnv("backend.app_id", "BACKEND_APP_ID")
	viper.BindEnv("backend.timeout", "BACKEND_TIMEOUT")

	// State
	viper.BindEnv("state.path", "STATE_PATH")

	// Logger
	viper.BindEnv("logger.level", "LOG_LEVEL")
	viper.BindEnv("logger.format", "LOG_FORMAT")
	viper.BindEnv("logger.output", "LOG_OUTPUT")
	viper.BindEnv("logger.filename", "LOG_FILENAME")

	// Security
	viper.BindEnv("security.cors_allowed_origins", "CORS_ALLOWED_ORIGINS")
	viper.BindEnv("security.rate_limit_requests", "RATE_LIMIT_REQUESTS")
	viper.BindEnv("security.rate_limit_window", "RATE_LIMIT_WINDOW")

	// Metrics
	viper.BindEnv("metrics.enabled", "ENABLE_METRICS")

	// Dev stack
	viper.BindEnv("devstack.port", "DEVSTACK_PORT")
	viper.BindEnv("devstack.host", "DEVSTACK_HOST")
	viper.BindEnv("devstack.db_path", "DEVSTACK_DB_PATH")
	viper.BindEnv("devstack.jwt_secret", "DEVSTACK_JWT_SECRET")
	viper.BindEnv("devstack.session_ttl", "DEVSTACK_SESSION_TTL")
	viper.BindEnv("devstack.issuer", "DEVSTACK_ISSUER")
}

func validateConfig(cfg *Config) error {
	if cfg.Backend.RecordURL == "" {
		return fmt.Errorf("backend record service URL is required")
	}

	if cfg.Backend.IdentityURL == "" {
		return fmt.Errorf("backend identity service URL is required")
	}

	if cfg.Backend.AppID == "" {
		return fmt.Errorf("backend app ID is required")
	}

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535")
	}

	if cfg.DevStack.Port <= 0 || cfg.DevStack.Port > 65535 {
		return fmt.Errorf("devstack port must be between 1 and 65535")
	}

	return nil
}

// IsDevelopment returns true if the environment is development
func (cfg *AppConfig) IsDevelopment() bool {
	return cfg.Environment == "development"
}

// IsProduction returns true if the environment is production
func (cfg *AppConfig) IsProduction() bool {
	return cfg.Environment == "production"
}
