package core

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pipecat-cloud/pcc/internal/cloud"
)

// Config is the on-disk CLI configuration.
type Config struct {
	APIHost        string `yaml:"api_host"`
	Org            string `yaml:"org"`
	Token          string `yaml:"token,omitempty"`
	PublicKey      string `yaml:"public_key,omitempty"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	CACert         string `yaml:"ca_cert,omitempty"`
	HistoryDB      string `yaml:"history_db"`
	Paths          Paths  `yaml:"paths"`
}

// Paths are API path templates with {org} and {agent} placeholders.
type Paths struct {
	Agent string `yaml:"agent"`
	Start string `yaml:"start"`
}

// Timeout returns the per-request timeout.
func (c Config) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return cloud.DefaultTimeout
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// ConfigDir resolves $XDG_CONFIG_HOME/pcc or ~/.config/pcc.
func ConfigDir() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, _ := os.UserHomeDir()
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "pcc")
}

// DefaultConfigPath is where LoadConfig looks when no path is given.
func DefaultConfigPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// LoadConfig reads YAML configuration from a path. If path is empty, it resolves
// DefaultConfigPath and tolerates the file being absent. Secrets from
// secrets.env next to the config file and PIPECAT_* environment variables
// override the file.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	explicit := path != ""
	if !explicit {
		path = DefaultConfigPath()
	}
	f, err := os.Open(path)
	switch {
	case err == nil:
		defer f.Close()
		content, err := io.ReadAll(f)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(content, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	case !explicit && errors.Is(err, fs.ErrNotExist):
	default:
		return cfg, fmt.Errorf("open config: %w", err)
	}

	// Merge secrets from secrets.env if present to avoid storing tokens in YAML
	secrets, err := LoadSecretsEnv(filepath.Join(filepath.Dir(path), "secrets.env"))
	if err != nil {
		return cfg, err
	}
	for _, key := range []string{"PIPECAT_TOKEN", "PIPECAT_ORG", "PIPECAT_API_HOST", "PIPECAT_PUBLIC_KEY"} {
		if v := os.Getenv(key); v != "" {
			secrets[key] = v
		}
	}
	if v := secrets["PIPECAT_TOKEN"]; v != "" {
		cfg.Token = v
	}
	if v := secrets["PIPECAT_ORG"]; v != "" {
		cfg.Org = v
	}
	if v := secrets["PIPECAT_API_HOST"]; v != "" {
		cfg.APIHost = v
	}
	if v := secrets["PIPECAT_PUBLIC_KEY"]; v != "" {
		cfg.PublicKey = v
	}
	applyDefaults(&cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.APIHost == "" {
		cfg.APIHost = cloud.DefaultBaseURL
	}
	if cfg.TimeoutSeconds <= 0 {
		cfg.TimeoutSeconds = int(cloud.DefaultTimeout / time.Second)
	}
	if cfg.HistoryDB == "" {
		cfg.HistoryDB = filepath.Join(ConfigDir(), "history.db")
	}
	if cfg.Paths.Agent == "" {
		cfg.Paths.Agent = cloud.DefaultAgentPath
	}
	if cfg.Paths.Start == "" {
		cfg.Paths.Start = cloud.DefaultStartPath
	}
}

// SaveConfig writes cfg as YAML, creating the parent directory. Tokens are
// never written here; use SaveSecretsEnv.
func SaveConfig(path string, cfg Config) error {
	if path == "" {
		path = DefaultConfigPath()
	}
	cfg.Token = ""
	out, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
