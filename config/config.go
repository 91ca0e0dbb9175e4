// Package config loads agent configuration.
//
// Three values configure an agent process: the network API key, the
// completion-API key, and the network endpoint. They can come from a YAML
// file, the environment, or direct struct literals; environment values
// fill any field a file leaves empty.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Environment variable names.
const (
	EnvAPIKey           = "OPENPOND_API_KEY"
	EnvCompletionAPIKey = "OPENPOND_COMPLETION_API_KEY"
	EnvOpenAIAPIKey     = "OPENAI_API_KEY"
	EnvEndpoint         = "OPENPOND_ENDPOINT"
)

// Config holds the process-level agent configuration.
type Config struct {
	// APIKey authenticates against the OpenPond network.
	APIKey string `yaml:"api_key"`

	// CompletionAPIKey authenticates against the completion API.
	CompletionAPIKey string `yaml:"completion_api_key"`

	// Endpoint is the network endpoint URL. Empty selects the agent
	// package default.
	Endpoint string `yaml:"endpoint"`
}

// FromEnv reads configuration from the environment. The completion key
// falls back to OPENAI_API_KEY, which most deployments already set.
func FromEnv() Config {
	completionKey := os.Getenv(EnvCompletionAPIKey)
	if completionKey == "" {
		completionKey = os.Getenv(EnvOpenAIAPIKey)
	}
	return Config{
		APIKey:           os.Getenv(EnvAPIKey),
		CompletionAPIKey: completionKey,
		Endpoint:         os.Getenv(EnvEndpoint),
	}
}

// Load reads a YAML configuration file and fills empty fields from the
// environment.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	env := FromEnv()
	if cfg.APIKey == "" {
		cfg.APIKey = env.APIKey
	}
	if cfg.CompletionAPIKey == "" {
		cfg.CompletionAPIKey = env.CompletionAPIKey
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = env.Endpoint
	}

	return cfg, nil
}

// Validate checks that the required credentials are present. The network
// API key is required for hosted endpoints; a local node (ws://) accepts
// an empty key.
func (c Config) Validate() error {
	if c.CompletionAPIKey == "" {
		return fmt.Errorf("completion API key is required (set %s)", EnvCompletionAPIKey)
	}
	if c.APIKey == "" && !strings.HasPrefix(c.Endpoint, "ws") {
		return fmt.Errorf("network API key is required (set %s)", EnvAPIKey)
	}
	return nil
}
