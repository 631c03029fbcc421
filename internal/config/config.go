// Package config loads server configuration from YAML with environment
// overrides for secrets.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ZanzyTHEbar/agentgraph"
)

// Duration wraps time.Duration so YAML values like "30s" or "5m" parse.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped standard duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config is the full server configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Gateway  GatewayConfig  `yaml:"gateway"`
	Search   SearchConfig   `yaml:"search"`
	Cache    CacheConfig    `yaml:"cache"`
	Pipeline PipelineConfig `yaml:"pipeline"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Host            string   `yaml:"host"`
	Port            int      `yaml:"port"`
	ReadTimeout     Duration `yaml:"read_timeout"`
	WriteTimeout    Duration `yaml:"write_timeout"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
}

// GatewayConfig controls the model gateway.
type GatewayConfig struct {
	Model  string `yaml:"model"`
	APIKey string `yaml:"-"`
}

// SearchConfig controls the web search tool.
type SearchConfig struct {
	APIKey     string `yaml:"-"`
	MaxResults int    `yaml:"max_results"`
}

// CacheConfig controls the classification cache.
type CacheConfig struct {
	TTL Duration `yaml:"ttl"`
}

// PipelineConfig controls agent pipeline behavior.
type PipelineConfig struct {
	ConfidenceThreshold float64 `yaml:"confidence_threshold"`
	RequireValidation   bool    `yaml:"require_validation"`
	EnableEventBus      bool    `yaml:"enable_event_bus"`
	EventBusBufferSize  int     `yaml:"event_bus_buffer_size"`
	EventBusWorkerCount int     `yaml:"event_bus_worker_count"`
}

// Default returns the configuration used when no file is provided.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8000,
			ReadTimeout:     Duration(30 * time.Second),
			WriteTimeout:    Duration(120 * time.Second),
			ShutdownTimeout: Duration(10 * time.Second),
		},
		Gateway: GatewayConfig{
			Model: "googleai/gemini-1.5-flash",
		},
		Search: SearchConfig{
			MaxResults: 5,
		},
		Cache: CacheConfig{
			TTL: Duration(10 * time.Minute),
		},
		Pipeline: PipelineConfig{
			ConfidenceThreshold: 0.7,
			RequireValidation:   true,
			EnableEventBus:      true,
			EventBusBufferSize:  100,
			EventBusWorkerCount: 5,
		},
	}
}

// Load reads configuration from an optional YAML file, then applies
// environment overrides. An empty path yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// Secrets come from the environment only.
	cfg.Gateway.APIKey = os.Getenv("GEMINI_API_KEY")
	cfg.Search.APIKey = os.Getenv("TAVILY_API_KEY")

	if host := os.Getenv("AGENTGRAPH_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if port := os.Getenv("AGENTGRAPH_PORT"); port != "" {
		if _, err := fmt.Sscanf(port, "%d", &cfg.Server.Port); err != nil {
			return cfg, fmt.Errorf("invalid AGENTGRAPH_PORT value %q: %w", port, err)
		}
	}

	return cfg, nil
}

// Addr returns the listen address for the HTTP server.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Runtime maps the pipeline settings onto the runtime configuration.
func (c Config) Runtime() agentgraph.Config {
	return agentgraph.Config{
		ConfidenceThreshold: c.Pipeline.ConfidenceThreshold,
		RequireValidation:   c.Pipeline.RequireValidation,
		MaxSearchResults:    c.Search.MaxResults,
		EnableEventBus:      c.Pipeline.EnableEventBus,
		EventBusBufferSize:  c.Pipeline.EventBusBufferSize,
		EventBusWorkerCount: c.Pipeline.EventBusWorkerCount,
	}
}
