package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	// ConfigDir is the default config directory name.
	ConfigDir = ".lexcal"
	// ConfigFile is the default config file name.
	ConfigFile = "config.json"
)

// ConfigPath returns the path to the config file.
func ConfigPath() (string, error) {
	if explicit := strings.TrimSpace(os.Getenv("LEXCAL_CONFIG")); explicit != "" {
		if strings.HasPrefix(explicit, "~") {
			home, err := resolveHomeDir()
			if err != nil {
				return "", err
			}
			return filepath.Join(home, explicit[1:]), nil
		}
		return explicit, nil
	}
	home, err := resolveHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ConfigDir, ConfigFile), nil
}

func resolveHomeDir() (string, error) {
	if h := strings.TrimSpace(os.Getenv("LEXCAL_HOME")); h != "" {
		if strings.HasPrefix(h, "~") {
			base, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			return filepath.Join(base, h[1:]), nil
		}
		return h, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return home, nil
}

// Load loads the configuration from file and environment variables.
// Priority: environment > file > defaults.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	path, err := ConfigPath()
	if err != nil {
		return cfg, nil // Use defaults if we can't find config path
	}

	data, err := os.ReadFile(path)
	if err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}
	// If file doesn't exist, continue with defaults

	// Override with environment variables for each group
	envconfig.Process("LEXCAL_SERVER", &cfg.Server)
	envconfig.Process("LEXCAL_BACKEND", &cfg.Backend)
	envconfig.Process("LEXCAL_MODEL", &cfg.Model)
	envconfig.Process("LEXCAL_HISTORY", &cfg.History)
	envconfig.Process("LEXCAL_TIMELINE", &cfg.Timeline)
	envconfig.Process("LEXCAL_TRACE", &cfg.Trace)
	envconfig.Process("LEXCAL_PROMPT", &cfg.Prompt)

	// Fallback for API key
	if cfg.Model.APIKey == "" {
		if key := os.Getenv("OPENAI_API_KEY"); key != "" {
			cfg.Model.APIKey = key
		}
	}

	// Expand ~ in paths
	if strings.HasPrefix(cfg.Timeline.DBPath, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			cfg.Timeline.DBPath = filepath.Join(home, cfg.Timeline.DBPath[1:])
		}
	}

	if cfg.Model.MaxRounds <= 0 {
		cfg.Model.MaxRounds = 5
	}
	if cfg.History.KeepRecent <= 0 {
		cfg.History.KeepRecent = 3
	}
	if cfg.History.MaxContentChars <= 0 {
		cfg.History.MaxContentChars = 1000
	}
	if cfg.Backend.TimeoutSeconds <= 0 {
		cfg.Backend.TimeoutSeconds = 15
	}

	return cfg, nil
}

// Save writes the configuration to the config file.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}

	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

// BackendTimeout returns the backend HTTP timeout as a duration.
func (c *Config) BackendTimeout() time.Duration {
	return time.Duration(c.Backend.TimeoutSeconds) * time.Second
}
