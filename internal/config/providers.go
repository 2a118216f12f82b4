package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ProvidersConfig mirrors config/providers.yaml: per-provider rate
// limits, cache TTLs and circuit breaker settings, plus global HTTP
// behavior.
type ProvidersConfig struct {
	Providers map[string]ProviderConfig `yaml:"providers"`
	Global    GlobalConfig              `yaml:"global"`
}

// ProviderConfig configures one upstream data source.
type ProviderConfig struct {
	BaseURL string        `yaml:"base_url"`
	RPS     float64       `yaml:"rps"`      // sustained requests per second
	Burst   int           `yaml:"burst"`    // token bucket burst
	TTLSecs int           `yaml:"ttl_secs"` // cache TTL in seconds
	Circuit CircuitConfig `yaml:"circuit"`
	Enabled bool          `yaml:"enabled"`
}

// CircuitConfig configures the provider's circuit breaker.
type CircuitConfig struct {
	FailureThreshold int `yaml:"failure_threshold"` // consecutive failures to open
	OpenSecs         int `yaml:"open_secs"`         // seconds before half-open probe
	TimeoutMS        int `yaml:"timeout_ms"`        // per-request timeout
}

// GlobalConfig carries settings shared by every provider client.
type GlobalConfig struct {
	UserAgent       string `yaml:"user_agent"`
	BenchmarkSymbol string `yaml:"benchmark_symbol"`
}

// LoadProvidersConfig loads provider configuration from a YAML file.
func LoadProvidersConfig(configPath string) (*ProvidersConfig, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read providers config: %w", err)
	}

	var config ProvidersConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse providers config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid providers config: %w", err)
	}

	return &config, nil
}

// Validate ensures the configuration is consistent.
func (c *ProvidersConfig) Validate() error {
	for name, provider := range c.Providers {
		if !provider.Enabled {
			continue
		}
		if provider.BaseURL == "" {
			return fmt.Errorf("provider %s: base_url is required", name)
		}
		if provider.RPS <= 0 {
			return fmt.Errorf("provider %s: rps must be positive, got %g", name, provider.RPS)
		}
		if provider.Burst <= 0 {
			return fmt.Errorf("provider %s: burst must be positive, got %d", name, provider.Burst)
		}
		if provider.TTLSecs < 0 {
			return fmt.Errorf("provider %s: ttl_secs must be non-negative, got %d", name, provider.TTLSecs)
		}
		if provider.Circuit.FailureThreshold < 0 {
			return fmt.Errorf("provider %s: circuit failure_threshold must be non-negative", name)
		}
	}
	return nil
}

// TTL returns the provider's cache TTL as a duration.
func (p *ProviderConfig) TTL() time.Duration {
	return time.Duration(p.TTLSecs) * time.Second
}

// RequestTimeout returns the per-request timeout, defaulting to 10s.
func (p *ProviderConfig) RequestTimeout() time.Duration {
	if p.Circuit.TimeoutMS <= 0 {
		return 10 * time.Second
	}
	return time.Duration(p.Circuit.TimeoutMS) * time.Millisecond
}

// OpenInterval returns how long the breaker stays open, defaulting to 30s.
func (c *CircuitConfig) OpenInterval() time.Duration {
	if c.OpenSecs <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.OpenSecs) * time.Second
}

// Provider looks up a provider by name, falling back to defaults.
func (c *ProvidersConfig) Provider(name string) ProviderConfig {
	if p, ok := c.Providers[name]; ok {
		return p
	}
	return DefaultProvidersConfig().Providers[name]
}

// DefaultProvidersConfig returns conservative defaults for every known
// provider, suitable when no config file is present.
func DefaultProvidersConfig() *ProvidersConfig {
	return &ProvidersConfig{
		Providers: map[string]ProviderConfig{
			"market_data": {
				BaseURL: "https://query1.finance.yahoo.com",
				RPS:     2,
				Burst:   4,
				TTLSecs: 600,
				Circuit: CircuitConfig{FailureThreshold: 5, OpenSecs: 30, TimeoutMS: 10000},
				Enabled: true,
			},
			"fundamentals": {
				BaseURL: "https://query1.finance.yahoo.com",
				RPS:     1,
				Burst:   2,
				TTLSecs: 21600,
				Circuit: CircuitConfig{FailureThreshold: 5, OpenSecs: 60, TimeoutMS: 10000},
				Enabled: true,
			},
			"news": {
				BaseURL: "https://feeds.finance.yahoo.com",
				RPS:     1,
				Burst:   2,
				TTLSecs: 1800,
				Circuit: CircuitConfig{FailureThreshold: 5, OpenSecs: 60, TimeoutMS: 10000},
				Enabled: true,
			},
		},
		Global: GlobalConfig{
			UserAgent:       "basehunter/1.0",
			BenchmarkSymbol: "^GSPC",
		},
	}
}
