// Package config provides configuration management for the observable API service.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for all environment variable overrides.
const EnvPrefix = "OBSERVABLE"

// Config holds all configuration for the observable API service.
type Config struct {
	// Server contains HTTP server settings.
	Server ServerConfig `mapstructure:"server"`
	// Logging contains structured logging settings.
	Logging LoggingConfig `mapstructure:"logging"`
	// Metrics contains Prometheus metrics exposure settings.
	Metrics MetricsConfig `mapstructure:"metrics"`
	// Telemetry contains OpenTelemetry trace and metric export settings.
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	// Outbound contains settings for the client used for external HTTP calls.
	Outbound OutboundConfig `mapstructure:"outbound"`
	// Simulation contains the simulated work performed by the process endpoints.
	Simulation SimulationConfig `mapstructure:"simulation"`
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	// Host is the address to bind the server to (default: 0.0.0.0).
	Host string `mapstructure:"host" validate:"required"`
	// HTTPPort is the HTTP server port (default: 8080).
	HTTPPort int `mapstructure:"http_port" validate:"min=1,max=65535"`
	// MetricsPort is the metrics server port (default: 9091).
	MetricsPort int `mapstructure:"metrics_port" validate:"min=1,max=65535,nefield=HTTPPort"`
	// ReadTimeout is the maximum duration for reading request body.
	ReadTimeout time.Duration `mapstructure:"read_timeout" validate:"gt=0"`
	// WriteTimeout is the maximum duration for writing response.
	WriteTimeout time.Duration `mapstructure:"write_timeout" validate:"gt=0"`
	// IdleTimeout is the keep-alive idle timeout.
	IdleTimeout time.Duration `mapstructure:"idle_timeout" validate:"gt=0"`
	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the log level (trace, debug, info, warn, error, fatal, panic).
	Level string `mapstructure:"level" validate:"oneof=trace debug info warn warning error fatal panic"`
	// Format is the log format (json, console, pretty).
	Format string `mapstructure:"format" validate:"oneof=json console pretty"`
	// Output is the log output destination (stdout, stderr, file path).
	Output string `mapstructure:"output" validate:"required"`
	// AddSource adds source file and line to log output.
	AddSource bool `mapstructure:"add_source"`
	// TimeFormat is the timestamp format.
	TimeFormat string `mapstructure:"time_format"`
	// Buffered enables a non-blocking ring-buffered writer that is drained on shutdown.
	Buffered bool `mapstructure:"buffered"`
	// BufferSize is the number of log messages the buffered writer holds.
	BufferSize int `mapstructure:"buffer_size" validate:"min=0"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	// Enabled enables the Prometheus metrics endpoint.
	Enabled bool `mapstructure:"enabled"`
	// Path is the HTTP path for metrics endpoint.
	Path string `mapstructure:"path" validate:"startswith=/"`
	// Namespace prefixes all Prometheus metric names.
	Namespace string `mapstructure:"namespace" validate:"required"`
}

// TelemetryConfig holds OpenTelemetry configuration.
type TelemetryConfig struct {
	// Enabled enables OTLP export of traces and metrics.
	Enabled bool `mapstructure:"enabled"`
	// OTLPEndpoint is the OTLP/gRPC collector endpoint (host:port).
	OTLPEndpoint string `mapstructure:"otlp_endpoint" validate:"omitempty,hostname_port"`
	// Insecure disables TLS on the collector connection.
	Insecure bool `mapstructure:"insecure"`
	// ServiceName is the service.name resource attribute.
	ServiceName string `mapstructure:"service_name" validate:"required"`
	// ServiceVersion is the service.version resource attribute.
	ServiceVersion string `mapstructure:"service_version"`
	// Environment is the deployment.environment resource attribute.
	Environment string `mapstructure:"environment"`
	// SampleRate is the trace sampling ratio (0.0 to 1.0).
	SampleRate float64 `mapstructure:"sample_rate" validate:"gte=0,lte=1"`
	// MetricInterval is how often metrics are pushed to the collector.
	MetricInterval time.Duration `mapstructure:"metric_interval" validate:"gt=0"`
	// ExportTimeout bounds a single export call.
	ExportTimeout time.Duration `mapstructure:"export_timeout" validate:"gt=0"`
}

// OutboundConfig holds settings for outbound HTTP calls.
type OutboundConfig struct {
	// Timeout is the request timeout. Zero means the client default.
	Timeout time.Duration `mapstructure:"timeout" validate:"gte=0"`
	// RateLimit is the maximum outbound requests per second. Zero disables limiting.
	RateLimit float64 `mapstructure:"rate_limit" validate:"gte=0"`
	// BurstSize is the rate limiter burst.
	BurstSize int `mapstructure:"burst_size" validate:"gte=0"`
	// UserAgent is the User-Agent header sent with requests.
	UserAgent string `mapstructure:"user_agent"`
}

// SimulationConfig holds the parameters of the simulated work.
type SimulationConfig struct {
	// DatabaseDelay is the simulated latency of the fake database operation.
	DatabaseDelay time.Duration `mapstructure:"database_delay" validate:"gte=0"`
	// BusinessLogicDelay is the simulated latency of the business logic step.
	BusinessLogicDelay time.Duration `mapstructure:"business_logic_delay" validate:"gte=0"`
	// PostsURL is called by the multi-activity endpoint.
	PostsURL string `mapstructure:"posts_url" validate:"required,url"`
	// ExampleURL is called by the single-activity endpoint.
	ExampleURL string `mapstructure:"example_url" validate:"required,url"`
}

// HTTPAddress returns the HTTP server address.
func (c *ServerConfig) HTTPAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.HTTPPort)
}

// MetricsAddress returns the metrics server address.
func (c *ServerConfig) MetricsAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.MetricsPort)
}

// Load loads configuration from environment variables and config files.
func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Read from environment variables
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file if present
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/observable-api")

	if err := v.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK, we'll use env vars and defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.metrics_port", 9091)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "2m")
	v.SetDefault("server.shutdown_timeout", "30s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)
	v.SetDefault("logging.buffered", false)
	v.SetDefault("logging.buffer_size", 1000)

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("metrics.namespace", "observable_api")

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.otlp_endpoint", "")
	v.SetDefault("telemetry.insecure", true)
	v.SetDefault("telemetry.service_name", "observable-api")
	v.SetDefault("telemetry.service_version", "1.0.0")
	v.SetDefault("telemetry.environment", "development")
	v.SetDefault("telemetry.sample_rate", 1.0)
	v.SetDefault("telemetry.metric_interval", "15s")
	v.SetDefault("telemetry.export_timeout", "10s")

	// Outbound defaults
	v.SetDefault("outbound.timeout", "100s")
	v.SetDefault("outbound.rate_limit", 0)
	v.SetDefault("outbound.burst_size", 10)
	v.SetDefault("outbound.user_agent", "Helixir-ObservableApi/1.0")

	// Simulation defaults
	v.SetDefault("simulation.database_delay", "1s")
	v.SetDefault("simulation.business_logic_delay", "100ms")
	v.SetDefault("simulation.posts_url", "https://jsonplaceholder.typicode.com/posts/1")
	v.SetDefault("simulation.example_url", "https://example.com")
}

// validate is shared; validator caches struct metadata and is safe for concurrent use.
var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate validates the configuration.
func (c *Config) Validate() error {
	c.Logging.Level = strings.ToLower(c.Logging.Level)
	c.Logging.Format = strings.ToLower(c.Logging.Format)

	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid %s: %v (failed %q)", fe.Namespace(), fe.Value(), fe.Tag())
		}
		return err
	}

	// Validate telemetry config
	if c.Telemetry.Enabled && c.Telemetry.OTLPEndpoint == "" {
		return fmt.Errorf("telemetry otlp_endpoint is required when telemetry is enabled")
	}

	return nil
}
