package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"
)

// Load loads configuration with priority: defaults < file < flags. The
// result is validated.
func Load() (*Config, error) {
	// Start with defaults
	cfg := Default()

	// Try to load from file (explicit path takes priority)
	configPath, err := FilePath()
	if err != nil {
		return nil, err
	}
	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", configPath, err)
		}
	}

	// Apply CLI flags (highest priority)
	applyFlags(cfg)

	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadFile reads a config file over the defaults without consulting flags.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if err := loadFromFile(cfg, path); err != nil {
		return nil, fmt.Errorf("loading config from %s: %w", path, err)
	}
	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// FilePath returns the config file Load reads: the -config flag with ~
// expanded, else the first standard location that exists, else "".
func FilePath() (string, error) {
	if p := ConfigPath(); p != "" {
		return homedir.Expand(p)
	}
	return findConfigFile(), nil
}

// expandPaths resolves a leading ~ in file settings.
func (c *Config) expandPaths() error {
	var err error
	if c.Logging.LogFile, err = homedir.Expand(c.Logging.LogFile); err != nil {
		return fmt.Errorf("logging.log_file: %w", err)
	}
	for i, p := range c.Animation.Clips {
		if c.Animation.Clips[i], err = homedir.Expand(p); err != nil {
			return fmt.Errorf("animation.clips[%d]: %w", i, err)
		}
	}
	return nil
}

// findConfigFile looks for config in standard locations.
func findConfigFile() string {
	candidates := []string{
		"./rig.yaml",
		filepath.Join(ConfigDir(), "rig.yaml"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// ConfigDir returns the OS-appropriate config directory.
func ConfigDir() string {
	switch runtime.GOOS {
	case "darwin":
		home, _ := homedir.Dir()
		return filepath.Join(home, "Library", "Application Support", "MidgardPose")
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "MidgardPose")
	default: // Linux and others
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "midgard-pose")
		}
		home, _ := homedir.Dir()
		return filepath.Join(home, ".config", "midgard-pose")
	}
}

// loadFromFile loads config from a YAML file. Scalars and sections the file
// omits keep their current values; lists in the file replace the current
// ones.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}
