package main

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Address to bind, without the port.
	Listen string      `yaml:"listen"`
	Cache  ConfigCache `yaml:"cache"`
	// Timeouts in seconds.
	OriginTimeout int `yaml:"originTimeout"`
	ClientTimeout int `yaml:"clientTimeout"`
}

type ConfigCache struct {
	// Provider to use: disk, sqlite or memory.
	Provider string `yaml:"provider"`
	// Directory for the disk provider.
	Dir string `yaml:"dir"`
	// Database file for the sqlite provider, or "memory".
	DB string `yaml:"db"`
	// Clear the cache at startup.
	Clear bool `yaml:"clear"`
}

// getConfig reads the YAML config file over the defaults already in cfg;
// fields absent from the file keep their values.
func getConfig(filename string, cfg *Config) error {
	configBytes, err := os.ReadFile(filename)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(configBytes, cfg)
}
