// Package config resolves the one ambient setting authy's core needs
// injected rather than hardcoded: the vault home directory override
// (spec.md section 1). Generalized from the teacher's internal/config
// Config/Load/LoadFromPath viper idiom, trimmed to drop the TUI-only
// terminal and keybinding settings that have no meaning for a stateless
// CLI/subprocess-dispatch tool.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds the settings read from the optional config file.
type Config struct {
	// VaultPathOverride, if set, is used when neither the --home flag nor
	// AUTHY_HOME is set, and takes precedence over the default ~/.authy
	// location (vaultstore.ResolveHome).
	VaultPathOverride string `mapstructure:"path_override"`
}

// GetConfigPath returns the OS-appropriate config file path, honoring
// AUTHY_CONFIG for tests and scripted overrides.
func GetConfigPath() (string, error) {
	if envPath := os.Getenv("AUTHY_CONFIG"); envPath != "" {
		return envPath, nil
	}

	configDir, err := os.UserConfigDir()
	if err != nil {
		homeDir, herr := os.UserHomeDir()
		if herr != nil {
			return "", fmt.Errorf("cannot determine config directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".authy")
	} else {
		configDir = filepath.Join(configDir, "authy")
	}

	return filepath.Join(configDir, "config.yml"), nil
}

// LoadFromPath reads configuration from a specific file path. A missing
// file is not an error; it yields a zero-value Config.
func LoadFromPath(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return &Config{}, nil
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.SetDefault("path_override", "")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", configPath, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config %s: %w", configPath, err)
	}
	return &cfg, nil
}

// Load reads configuration from the default config path. Any error
// resolving or reading it is swallowed in favor of a zero-value Config,
// since the vault home always also falls back to AUTHY_HOME / ~/.authy.
func Load() *Config {
	configPath, err := GetConfigPath()
	if err != nil {
		return &Config{}
	}
	cfg, err := LoadFromPath(configPath)
	if err != nil {
		return &Config{}
	}
	return cfg
}
