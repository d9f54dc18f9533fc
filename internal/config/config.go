// Package config loads Scenify configuration from defaults, an optional
// scenify.yaml file, SCENIFY_* environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable: SCENIFY_API_BASE_URL → api.base_url.
const EnvPrefix = "SCENIFY"

// Config holds all application configuration.
type Config struct {
	API       APIConfig       `mapstructure:"api"`
	Planner   PlannerConfig   `mapstructure:"planner"`
	Log       LogConfig       `mapstructure:"log"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Server    ServerConfig    `mapstructure:"server"`
}

// APIConfig configures the route client.
type APIConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries uint64        `mapstructure:"max_retries"`
}

// PlannerConfig holds request defaults.
type PlannerConfig struct {
	POICount int `mapstructure:"poi_count"`
}

// LogConfig configures zerolog.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// TelemetryConfig configures OpenTelemetry export.
type TelemetryConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	Environment  string `mapstructure:"environment"`
}

// ServerConfig configures the development API server.
type ServerConfig struct {
	Port      int           `mapstructure:"port"`
	StepDelay time.Duration `mapstructure:"step_delay"`
	// Protocol is the default progress shape when the client accepts both:
	// "ndjson" or "legacy".
	Protocol     string        `mapstructure:"protocol"`
	RateLimit    int           `mapstructure:"rate_limit"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// flagKeys maps flag names to configuration keys.
var flagKeys = map[string]string{
	"api-url":       "api.base_url",
	"timeout":       "api.timeout",
	"retries":       "api.max_retries",
	"poi-count":     "planner.poi_count",
	"log-level":     "log.level",
	"log-format":    "log.format",
	"port":          "server.port",
	"step-delay":    "server.step_delay",
	"protocol":      "server.protocol",
	"rate-limit":    "server.rate_limit",
	"write-timeout": "server.write_timeout",
	"otel":          "telemetry.enabled",
	"otel-endpoint": "telemetry.otlp_endpoint",
}

// Load reads configuration. Flags present in fs and set by the user override
// everything else; fs may be nil.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("api.base_url", "http://localhost:5000/api")
	v.SetDefault("api.timeout", 5*time.Minute)
	v.SetDefault("api.max_retries", 2)
	v.SetDefault("planner.poi_count", 15)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.otlp_endpoint", "localhost:4317")
	v.SetDefault("telemetry.environment", "development")
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.step_delay", 250*time.Millisecond)
	v.SetDefault("server.protocol", "ndjson")
	v.SetDefault("server.rate_limit", 30)
	v.SetDefault("server.write_timeout", 5*time.Minute)

	// Config file (optional)
	v.SetConfigName("scenify")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if fs != nil {
		for name, key := range flagKeys {
			if f := fs.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that configuration values are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if u, err := url.Parse(c.API.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Sprintf("api.base_url must be an absolute URL, got %q", c.API.BaseURL))
	}
	if c.API.Timeout <= 0 {
		errs = append(errs, "api.timeout must be positive")
	}
	if c.Planner.POICount <= 0 {
		errs = append(errs, fmt.Sprintf("planner.poi_count must be positive, got %d", c.Planner.POICount))
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Sprintf("log.format must be json or console, got %q", c.Log.Format))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	switch c.Server.Protocol {
	case "ndjson", "legacy":
	default:
		errs = append(errs, fmt.Sprintf("server.protocol must be ndjson or legacy, got %q", c.Server.Protocol))
	}
	if c.Server.RateLimit <= 0 {
		errs = append(errs, fmt.Sprintf("server.rate_limit must be positive, got %d", c.Server.RateLimit))
	}
	if c.Server.StepDelay < 0 {
		errs = append(errs, "server.step_delay must not be negative")
	}
	if c.Telemetry.Enabled && c.Telemetry.OTLPEndpoint == "" {
		errs = append(errs, "telemetry.otlp_endpoint is required when telemetry is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(errs, "; "))
	}
	return nil
}
