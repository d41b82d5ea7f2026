package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultInterval       = 60 * time.Second
	DefaultPowerThreshold = 1.0
	DefaultWebhookTimeout = 10 * time.Second
	DefaultWebhookBaseURL = "https://hooks.slack.com/services/"
)

// Delivery methods accepted in monitor.method.
const (
	MethodNone    = "none"
	MethodWebhook = "webhook"
	MethodSlack   = "slack"
)

// Config is the top-level agent configuration.
// Fields map 1:1 to config.example.yaml.
type Config struct {
	Unit     Unit           `yaml:"unit"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Source   Source         `yaml:"source"`
	Monitor  Monitor        `yaml:"monitor"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// Unit identifies the sensor unit this agent runs on.
type Unit struct {
	// Name is the display name, e.g. "sensor".
	Name string `yaml:"name"`

	// Number is the numeric unit id, rendered zero-padded to two digits.
	Number int `yaml:"number"`
}

// PipelineConfig controls the tick loop.
type PipelineConfig struct {
	// Interval is how often the source is read and the pipeline ticked.
	Interval time.Duration `yaml:"interval"`
}

// Source describes where each tick's readings come from.
type Source struct {
	// ID is a human-readable identifier used in logs.
	ID string `yaml:"id"`

	// Type is the source type. Only "prometheus" is supported.
	Type string `yaml:"type"`

	// Endpoint is the full URL of the exporter's metrics endpoint.
	Endpoint string `yaml:"endpoint"`

	// Fields renames metric families to sample field names,
	// e.g. sunsaver_adc_vl_f: adc_vl_f. Unlisted families keep their name.
	Fields map[string]string `yaml:"fields"`

	// Auth configures how the agent authenticates to the exporter.
	Auth AuthConfig `yaml:"auth"`

	// TLS holds optional TLS dial options.
	TLS TLSConfig `yaml:"tls"`
}

// AuthConfig specifies the authentication mode for a source.
type AuthConfig struct {
	// Mode is one of: mtls | apikey | bearer | basic | none.
	Mode string `yaml:"mode"`

	// mTLS fields, used when Mode == "mtls".
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
	CAFile   string `yaml:"ca_file"`

	// Header is the HTTP header the API key is sent in (Mode == "apikey").
	Header string `yaml:"header"`
	// KeyEnv is the name of the environment variable that holds the key value.
	KeyEnv string `yaml:"key_env"`

	// TokenEnv names the environment variable holding the bearer token.
	TokenEnv string `yaml:"token_env"`

	Username    string `yaml:"username"`
	PasswordEnv string `yaml:"password_env"`
}

// Key returns the API key value resolved from the environment.
// Returns empty string if KeyEnv is unset or the variable is not found.
func (a AuthConfig) Key() string {
	if a.KeyEnv == "" {
		return ""
	}
	return os.Getenv(a.KeyEnv)
}

// Token returns the bearer token value resolved from the environment.
func (a AuthConfig) Token() string {
	if a.TokenEnv == "" {
		return ""
	}
	return os.Getenv(a.TokenEnv)
}

// Password returns the basic-auth password resolved from the environment.
func (a AuthConfig) Password() string {
	if a.PasswordEnv == "" {
		return ""
	}
	return os.Getenv(a.PasswordEnv)
}

// TLSConfig holds TLS dial options for the source.
type TLSConfig struct {
	// InsecureSkipVerify disables TLS certificate verification.
	InsecureSkipVerify bool `yaml:"insecure_skip_verify"`
}

// Monitor configures the state monitor step and its delivery channel.
// All settings are resolved once, when the step is built.
type Monitor struct {
	// Method selects the delivery channel: none | webhook | slack.
	// Empty means none: notifications are only logged.
	Method string `yaml:"method"`

	// PowerThreshold is the boundary between normal and low power (W).
	PowerThreshold float64 `yaml:"power_threshold"`

	// Channel is the channel name looked up in KeyFile.
	Channel string `yaml:"channel"`

	// KeyFile is the credentials file mapping channel names to the secret
	// URL suffix. "~" is expanded to the user's home directory.
	KeyFile string `yaml:"key_file"`

	// BaseURL is the delivery service URL the channel suffix is resolved against.
	BaseURL string `yaml:"base_url"`

	// Timeout bounds each delivery attempt.
	Timeout time.Duration `yaml:"timeout"`
}

// MetricsConfig configures the agent's own Prometheus endpoint.
type MetricsConfig struct {
	// Addr is the listen address for /metrics, e.g. ":9102". Empty disables it.
	Addr string `yaml:"addr"`
}

// Load reads and parses the YAML config file at path.
// Missing optional fields are filled with sensible defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Pipeline: PipelineConfig{
			Interval: DefaultInterval,
		},
		Source: Source{
			Type: "prometheus",
		},
		Monitor: Monitor{
			PowerThreshold: DefaultPowerThreshold,
			BaseURL:        DefaultWebhookBaseURL,
			Timeout:        DefaultWebhookTimeout,
		},
	}
}

// validate checks required fields and structural constraints.
func validate(cfg *Config) error {
	if cfg.Unit.Name == "" {
		return fmt.Errorf("unit.name is required")
	}
	if cfg.Unit.Number < 0 {
		return fmt.Errorf("unit.number must not be negative")
	}
	if cfg.Pipeline.Interval <= 0 {
		return fmt.Errorf("pipeline.interval must be positive")
	}
	if cfg.Source.Endpoint == "" {
		return fmt.Errorf("source.endpoint is required")
	}
	if cfg.Source.Type != "prometheus" {
		return fmt.Errorf("source: unknown type %q", cfg.Source.Type)
	}
	switch cfg.Source.Auth.Mode {
	case "mtls", "apikey", "bearer", "basic", "none", "":
	default:
		return fmt.Errorf("source: unknown auth mode %q", cfg.Source.Auth.Mode)
	}
	switch cfg.Monitor.Method {
	case "", MethodNone, MethodWebhook, MethodSlack:
	default:
		return fmt.Errorf("monitor: unknown method %q", cfg.Monitor.Method)
	}
	if cfg.Monitor.Timeout <= 0 {
		return fmt.Errorf("monitor.timeout must be positive")
	}
	// Channel and key file problems are not rejected here: the monitor
	// degrades to log-only delivery instead of stopping the agent.
	return nil
}
