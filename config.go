package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the bridge daemon configuration.
type Config struct {
	// Listen is the bind address of the host bridge endpoint.
	Listen string `yaml:"listen"`
	// Database is the SQLite path for durable action records; empty keeps
	// them in memory only.
	Database string `yaml:"database"`
	// Namespace scopes action record keys within the store.
	Namespace string `yaml:"namespace"`
	// MCP enables the stdio debug tool server.
	MCP bool `yaml:"mcp"`
}

func defaultConfig() Config {
	return Config{
		Listen:    "127.0.0.1:8972",
		Namespace: "voltra.action",
	}
}

func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
