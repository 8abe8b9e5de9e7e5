// Package config loads BlockIndex settings from YAML.
package config

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/nickyhof/BlockIndex/collection"
)

// SearchPaths are tried in order when Load is given no path.
var SearchPaths = []string{"configs/blockindex.yaml", "blockindex.yaml"}

type Config struct {
	Index    IndexConfig    `yaml:"index"`
	Storage  StorageConfig  `yaml:"storage"`
	Identity IdentityConfig `yaml:"identity"`
	Remote   RemoteConfig   `yaml:"remote"`
	Log      LogConfig      `yaml:"log"`
}

type IndexConfig struct {
	BlockCapacity int `yaml:"block_capacity"`
}

type StorageConfig struct {
	Path   string `yaml:"path"`    // empty keeps the repository in memory
	GitURL string `yaml:"git_url"` // cloned into Path when it holds no repository
}

type IdentityConfig struct {
	Name  string `yaml:"name"`
	Email string `yaml:"email"`
}

// RemoteConfig holds S3 settings; empty fields fall back to the AWS
// environment.
type RemoteConfig struct {
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

func defaults() *Config {
	return &Config{
		Index: IndexConfig{BlockCapacity: collection.DefaultCapacity},
		Identity: IdentityConfig{
			Name:  "BlockIndex",
			Email: "blockindex@localhost",
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads configPath over the defaults. With an empty path the first
// readable file in SearchPaths is used; no file at all yields the defaults.
func Load(configPath string) (*Config, error) {
	cfg := defaults()

	if configPath == "" {
		for _, p := range SearchPaths {
			data, err := os.ReadFile(p)
			if err == nil {
				if err := yaml.Unmarshal(data, cfg); err != nil {
					return cfg, fmt.Errorf("parse %s: %w", p, err)
				}
				return cfg, cfg.validate()
			}
		}
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", configPath, err)
	}
	return cfg, cfg.validate()
}

func (cfg *Config) validate() error {
	applyDefaults(cfg)
	if _, err := cfg.LogLevel(); err != nil {
		return err
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Index.BlockCapacity <= 0 {
		cfg.Index.BlockCapacity = collection.DefaultCapacity
	}
	if cfg.Index.BlockCapacity < collection.MinCapacity {
		cfg.Index.BlockCapacity = collection.MinCapacity
	}
	if cfg.Identity.Name == "" {
		cfg.Identity.Name = "BlockIndex"
	}
	if cfg.Identity.Email == "" {
		cfg.Identity.Email = "blockindex@localhost"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

// LogLevel parses Log.Level.
func (cfg *Config) LogLevel() (logrus.Level, error) {
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		return logrus.InfoLevel, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}
