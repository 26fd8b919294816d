// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Bridge  BridgeConfig  `toml:"bridge"`
	Poll    PollConfig    `toml:"poll"`
	Session SessionConfig `toml:"session"`
	UI      UIConfig      `toml:"ui"`
}

// BridgeConfig maps connection settings for the session service.
type BridgeConfig struct {
	BaseURL         *string  `toml:"base-url"`
	RequestTimeout  *float64 `toml:"request-timeout"`
	ResourceTimeout *float64 `toml:"resource-timeout"`
}

// PollConfig maps status polling cadence, in seconds.
type PollConfig struct {
	Interval       *float64 `toml:"interval"`
	HealthInterval *float64 `toml:"health-interval"`
}

// SessionConfig maps defaults for new sessions.
type SessionConfig struct {
	Goal         *string `toml:"goal"`
	WorkMinutes  *int    `toml:"work-minutes"`
	BreakMinutes *int    `toml:"break-minutes"`
}

// UIConfig maps presentation settings.
type UIConfig struct {
	ToastSeconds *float64 `toml:"toast-seconds"`
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
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return FileConfig{}, fmt.Errorf("unknown config key %q", undecoded[0].String())
	}
	return cfg, nil
}
