// Package cli holds the flagship command's profile file and output formatting.
package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the profile file at ~/.flagship/config.yaml.
type Config struct {
	DefaultEnv   string               `yaml:"default_env"`
	Environments map[string]EnvConfig `yaml:"environments"`
}

// EnvConfig points at one sidecar. Evaluation commands use ClientKey and
// spec management commands use AdminKey.
type EnvConfig struct {
	BaseURL   string `yaml:"base_url"`
	ClientKey string `yaml:"client_key"`
	AdminKey  string `yaml:"admin_key,omitempty"`
}

// Key returns the key for the requested role.
func (e EnvConfig) Key(admin bool) string {
	if admin {
		return e.AdminKey
	}
	return e.ClientKey
}

// Overrides are values given on the command line or in the environment.
// Flags win over FLAGSHIP_* variables, which win over the profile file.
type Overrides struct {
	Env     string
	BaseURL string
	APIKey  string
	Admin   bool
}

// GetConfigPath returns the path to the config file. FLAGSHIP_CONFIG wins
// over the home directory.
func GetConfigPath() (string, error) {
	if p := os.Getenv("FLAGSHIP_CONFIG"); p != "" {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".flagship", "config.yaml"), nil
}

// LoadConfig loads the configuration from file. A missing file is an empty profile.
func LoadConfig() (*Config, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{DefaultEnv: "prod", Environments: map[string]EnvConfig{}}, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if cfg.Environments == nil {
		cfg.Environments = map[string]EnvConfig{}
	}
	return &cfg, nil
}

// SaveConfig saves the configuration to file
func SaveConfig(cfg *Config) error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Resolve returns the sidecar URL and key to use, plus the effective
// environment name.
func Resolve(o Overrides) (baseURL, key, envName string, err error) {
	envBaseURL := os.Getenv("FLAGSHIP_BASE_URL")
	envKey := os.Getenv("FLAGSHIP_API_KEY")

	baseURL = firstNonEmpty(o.BaseURL, envBaseURL)
	key = firstNonEmpty(o.APIKey, envKey)
	if baseURL != "" && key != "" {
		return baseURL, key, o.Env, nil
	}

	cfg, err := LoadConfig()
	if err != nil {
		return "", "", "", err
	}

	envName = o.Env
	if envName == "" {
		envName = cfg.DefaultEnv
	}
	envCfg, ok := cfg.Environments[envName]
	if !ok {
		return "", "", "", fmt.Errorf("environment '%s' not found in config", envName)
	}

	baseURL = firstNonEmpty(baseURL, envCfg.BaseURL)
	key = firstNonEmpty(key, envCfg.Key(o.Admin))
	if baseURL == "" || key == "" {
		role := "client_key"
		if o.Admin {
			role = "admin_key"
		}
		return "", "", "", fmt.Errorf("base_url and %s must be configured for environment '%s'", role, envName)
	}
	return baseURL, key, envName, nil
}

// InitConfig creates a default config file pointing at a local sidecar.
func InitConfig() error {
	cfg := &Config{
		DefaultEnv: "dev",
		Environments: map[string]EnvConfig{
			"dev": {
				BaseURL:   "http://localhost:8080",
				ClientKey: "client-dev",
				AdminKey:  "admin-123",
			},
		},
	}
	return SaveConfig(cfg)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
