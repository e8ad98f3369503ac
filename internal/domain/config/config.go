// Package config loads and validates the orderprep CLI configuration.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultFileName is the config file looked up when --config is unset.
const DefaultFileName = "orderprep.yaml"

// Config holds the CLI configuration.
type Config struct {
	Service ServiceConfig `yaml:"service"`
	Log     LogConfig     `yaml:"log"`
}

// ServiceConfig points at the remote order service.
type ServiceConfig struct {
	BaseURL string `yaml:"baseUrl"`
	Token   string `yaml:"token"`
}

// LogConfig controls log output.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Service: ServiceConfig{
			BaseURL: "http://localhost:8080",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads a config file and merges it over the defaults. A missing
// path yields the defaults when the path is the implicit default file;
// an explicitly named file must exist.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultFileName
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return Default(), nil
		}
		return nil, &UserError{
			Code:       ErrCodeConfigNotFound,
			Message:    fmt.Sprintf("config file %s not found", path),
			Context:    path,
			Suggestion: "Create the file or pass --config with the right path",
			Underlying: err,
		}
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, &UserError{
			Code:       ErrCodeConfigParse,
			Message:    "config file is not valid YAML",
			Context:    path,
			Suggestion: "Check the file for indentation or quoting mistakes",
			Underlying: err,
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for usable values.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Service.BaseURL) == "" {
		return &UserError{
			Code:       ErrCodeConfigInvalid,
			Message:    "service.baseUrl must not be empty",
			Suggestion: "Set service.baseUrl to the order service's address",
		}
	}
	if !strings.HasPrefix(c.Service.BaseURL, "http://") && !strings.HasPrefix(c.Service.BaseURL, "https://") {
		return &UserError{
			Code:       ErrCodeConfigInvalid,
			Message:    fmt.Sprintf("service.baseUrl %q must start with http:// or https://", c.Service.BaseURL),
			Suggestion: "Use a full URL, e.g. https://orders.example.com",
		}
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return &UserError{
			Code:       ErrCodeConfigInvalid,
			Message:    fmt.Sprintf("log.level %q is not one of debug, info, warn, error", c.Log.Level),
			Suggestion: "Pick one of the four supported levels",
		}
	}

	switch c.Log.Format {
	case "text", "json":
	default:
		return &UserError{
			Code:       ErrCodeConfigInvalid,
			Message:    fmt.Sprintf("log.format %q is not one of text, json", c.Log.Format),
			Suggestion: "Use text for humans, json for log shippers",
		}
	}
	return nil
}
