// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// GeminiAPIKeyEnv is consulted when the config file does not set an API key.
const GeminiAPIKeyEnv = "GEMINI_API_KEY"

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Mission MissionConfig `toml:"mission"`
	AI      AIConfig      `toml:"ai"`
	Profile ProfileConfig `toml:"profile"`
	Log     LogConfig     `toml:"log"`
}

// MissionConfig maps mission defaults.
type MissionConfig struct {
	Duration *int  `toml:"duration"`
	AI       *bool `toml:"ai"`
}

// AIConfig maps plan generation settings.
type AIConfig struct {
	APIKey  *string   `toml:"api-key"`
	Model   *string   `toml:"model"`
	Timeout *Duration `toml:"timeout"`
}

// ProfileConfig maps the default profile of a fresh user.
type ProfileConfig struct {
	Name  *string `toml:"name"`
	Email *string `toml:"email"`
}

// LogConfig maps log settings.
type LogConfig struct {
	Level *string `toml:"level"`
	File  *string `toml:"file"`
}

// Duration is a time.Duration decoded from strings like "20s".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	d.Duration = v
	return nil
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return FileConfig{}, fmt.Errorf("unknown config key %q", undecoded[0].String())
	}
	return cfg, nil
}

// APIKey returns the configured Gemini API key, falling back to the environment.
func (c FileConfig) APIKey() string {
	if c.AI.APIKey != nil && *c.AI.APIKey != "" {
		return *c.AI.APIKey
	}
	return os.Getenv(GeminiAPIKeyEnv)
}

// Template is written by `marsfocus config` when no file exists yet.
const Template = `# marsfocus configuration

[mission]
# duration = 25
# ai = true

[ai]
# api-key = ""        # falls back to $GEMINI_API_KEY
# model = "gemini-1.5-flash"
# timeout = "20s"

[profile]
# name = "Mars Explorer"
# email = ""

[log]
# level = "info"      # debug, info, warn, error
# file = ""           # defaults to the data directory
`
