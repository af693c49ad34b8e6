// Package config loads the daemon configuration from a YAML file, with
// environment-variable overrides for deployment knobs.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the top-level daemon configuration.
type Config struct {
	Listen  string        `yaml:"listen"`
	DBPath  string        `yaml:"db_path"`
	Log     LogConfig     `yaml:"log"`
	Auth    AuthConfig    `yaml:"auth"`
	Browser BrowserConfig `yaml:"browser"`
	Vision  VisionConfig  `yaml:"vision"`
	Detect  DetectConfig  `yaml:"detect"`
	MCP     MCPConfig     `yaml:"mcp"`
}

// LogConfig controls logging output.
type LogConfig struct {
	Level string `yaml:"level"` // debug | info | warn | error
}

// AuthConfig enables basic auth on the API when a hash is set.
type AuthConfig struct {
	// PasswordHash is a bcrypt hash; empty disables auth.
	PasswordHash string `yaml:"password_hash"`
}

// BrowserConfig controls the attached Chrome instance.
type BrowserConfig struct {
	// Enabled turns the browser surfaces on: delegated fetches, page
	// toasts, opening chats in a tab.
	Enabled bool `yaml:"enabled"`
	// Remote is the WebSocket URL of an external Chrome; empty launches a
	// local headless one.
	Remote string `yaml:"remote"`
}

// VisionConfig controls the extraction model client.
type VisionConfig struct {
	// Endpoint overrides the OpenAI-compatible chat-completions URL.
	Endpoint string `yaml:"endpoint"`
}

// DetectConfig tunes detection behavior.
type DetectConfig struct {
	// RestrictedHosts adds image hosts that require delegated fetching,
	// beyond the built-in list.
	RestrictedHosts []string `yaml:"restricted_hosts"`
}

// MCPConfig controls the MCP tool surface.
type MCPConfig struct {
	// Stdio serves MCP over stdin/stdout when true.
	Stdio bool `yaml:"stdio"`
}

// Load reads the YAML file at path when it exists, then applies environment
// overrides and defaults. A missing file is not an error; the daemon runs
// fine on defaults.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("config: read %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("QUICKWHATS_LISTEN"); v != "" {
		c.Listen = v
	}
	if v := os.Getenv("QUICKWHATS_DB"); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv("QUICKWHATS_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("QUICKWHATS_AUTH_HASH"); v != "" {
		c.Auth.PasswordHash = v
	}
	if v := os.Getenv("QUICKWHATS_BROWSER_REMOTE"); v != "" {
		c.Browser.Enabled = true
		c.Browser.Remote = v
	}
	if v := os.Getenv("QUICKWHATS_VISION_ENDPOINT"); v != "" {
		c.Vision.Endpoint = v
	}
}

func (c *Config) applyDefaults() {
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8774"
	}
	if c.DBPath == "" {
		c.DBPath = "quickwhats.db"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}
