// Package config provides configuration loading and validation for the CLI
// and server, plus JWT and password credential handling.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config represents the agent configuration that can be loaded from a JSON
// file. All fields are optional; missing values use defaults or must be
// provided via CLI flags or environment variables.
type Config struct {
	// Identity
	UserID         string `json:"user_id,omitempty"`         // Default user for CLI runs
	OrganizationID string `json:"organization_id,omitempty"` // Default organization for CLI runs

	// Request defaults
	Audience string `json:"audience,omitempty"` // Default target audience
	Channel  string `json:"channel,omitempty"`  // Default situation context

	// Limits
	MaxGrammarSuggestions  int `json:"max_grammar_suggestions,omitempty"`
	MaxProtocolSuggestions int `json:"max_protocol_suggestions,omitempty"`

	// Behavior
	APIKey      string `json:"api_key,omitempty"`      // Gemini API key
	Verbose     bool   `json:"verbose,omitempty"`      // Print detailed debug information
	DatabaseURL string `json:"database_url,omitempty"` // PostgreSQL connection URL
	ListenAddr  string `json:"listen_addr,omitempty"`  // Server bind address
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// FromEnv returns a Config populated from environment variables. Values
// already set on the receiver win; the environment only fills gaps.
func (c *Config) FromEnv() *Config {
	if c.APIKey == "" {
		c.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if c.DatabaseURL == "" {
		c.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if c.ListenAddr == "" {
		c.ListenAddr = os.Getenv("LISTEN_ADDR")
	}
	return c
}

// Validate checks that the configuration has valid values.
// Required fields are enforced by CLI flag validation after merging.
func (c *Config) Validate() error {
	if c.MaxGrammarSuggestions < 0 {
		return fmt.Errorf("config error: 'max_grammar_suggestions' must be non-negative")
	}
	if c.MaxProtocolSuggestions < 0 {
		return fmt.Errorf("config error: 'max_protocol_suggestions' must be non-negative")
	}
	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from
// defaults. This is used to apply config file values as defaults for CLI flags.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	if result.UserID == "" {
		result.UserID = defaults.UserID
	}
	if result.OrganizationID == "" {
		result.OrganizationID = defaults.OrganizationID
	}
	if result.Audience == "" {
		result.Audience = defaults.Audience
	}
	if result.Channel == "" {
		result.Channel = defaults.Channel
	}
	if result.APIKey == "" {
		result.APIKey = defaults.APIKey
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.ListenAddr == "" {
		result.ListenAddr = defaults.ListenAddr
	}

	if result.MaxGrammarSuggestions == 0 {
		result.MaxGrammarSuggestions = defaults.MaxGrammarSuggestions
	}
	if result.MaxProtocolSuggestions == 0 {
		result.MaxProtocolSuggestions = defaults.MaxProtocolSuggestions
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}
