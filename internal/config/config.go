// Package config reads the chaincrf configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/happyhackingspace/chaincrf/crf"
)

// Config represents the chaincrf configuration file
// (~/.config/chaincrf/config.yaml by default). Pointer fields distinguish
// "not set" from zero values.
type Config struct {
	Model        string   `yaml:"model"`
	DataFolder   string   `yaml:"data_folder"`
	Method       string   `yaml:"method"`
	Seed         *uint64  `yaml:"seed"`
	Sentinel     *float64 `yaml:"sentinel"`
	AverageBatch *bool    `yaml:"average_batch"`
}

// Path returns the default config file location, or "" if the user config
// directory is unknown.
func Path() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "chaincrf", "config.yaml")
}

// Load reads the config file at path. An empty path means the default
// location. A missing file yields a zero Config; a malformed one is an error.
func Load(path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		path = Path()
		if path == "" {
			return Config{}, nil
		}
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) && !explicit {
		return Config{}, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Method {
	case "", "viterbi", "sample", "beam", "all":
	default:
		return fmt.Errorf("unknown method %q", c.Method)
	}
	return nil
}

// CRF returns the CRF options, with unset fields at their defaults.
func (c Config) CRF() crf.Config {
	cfg := crf.DefaultConfig()
	if c.Sentinel != nil {
		cfg.Sentinel = *c.Sentinel
	}
	if c.AverageBatch != nil {
		cfg.AverageBatch = *c.AverageBatch
	}
	return cfg
}
