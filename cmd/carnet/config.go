package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/carnet/extract"
	"github.com/hazyhaar/carnet/nav"
	"github.com/hazyhaar/carnet/research"
)

// Config is the carnet service configuration. Every field has a working
// default; a config file and environment variables override it.
type Config struct {
	Port   string `yaml:"port"`
	DBPath string `yaml:"db_path"`

	Surface struct {
		RemoteURL string `yaml:"remote_url"`
		Headless  *bool  `yaml:"headless"`
	} `yaml:"surface"`

	Nav      nav.Config      `yaml:"nav"`
	Extract  extract.Config  `yaml:"extract"`
	Research research.Config `yaml:"research"`

	LLM struct {
		Model string `yaml:"model"`
	} `yaml:"llm"`
}

// loadConfig reads an optional YAML file, then applies env overrides.
func loadConfig(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if cfg.Port == "" {
		cfg.Port = env("PORT", "8087")
	}
	if cfg.DBPath == "" {
		cfg.DBPath = env("CARNET_DB", "db/carnet.db")
	}
	if cfg.Surface.RemoteURL == "" {
		cfg.Surface.RemoteURL = os.Getenv("CHROME_WS_URL")
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = os.Getenv("LLM_MODEL")
	}
	return cfg, nil
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
