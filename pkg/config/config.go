package config

import (
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config holds the server configuration. Every field can be set through the
// environment; a YAML file may provide values which explicit environment
// variables override.
type Config struct {
	Port         int    `envconfig:"PORT" default:"5050" yaml:"port"`
	Workers      int    `envconfig:"WORKERS" default:"4" yaml:"workers"`
	AdminToken   string `envconfig:"ADMIN_TOKEN" default:"supersecret" yaml:"admin_token"`
	DatabasePath string `envconfig:"DATABASE_PATH" default:"./rocksdb" yaml:"database_path"`
	LogLevel     string `envconfig:"LOG_LEVEL" default:"info" yaml:"log_level"`
	BackupDir    string `envconfig:"BACKUP_DIR" default:"./backups" yaml:"backup_dir"`
}

// Load reads configuration from the environment. If path is non-empty the
// YAML file at path supplies values for variables that are not set in the
// environment.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		var fileCfg Config
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
		mergeFile(&cfg, &fileCfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// mergeFile copies file values into cfg for every field whose environment
// variable was not explicitly set.
func mergeFile(cfg, file *Config) {
	if _, ok := os.LookupEnv("PORT"); !ok && file.Port != 0 {
		cfg.Port = file.Port
	}
	if _, ok := os.LookupEnv("WORKERS"); !ok && file.Workers != 0 {
		cfg.Workers = file.Workers
	}
	if _, ok := os.LookupEnv("ADMIN_TOKEN"); !ok && file.AdminToken != "" {
		cfg.AdminToken = file.AdminToken
	}
	if _, ok := os.LookupEnv("DATABASE_PATH"); !ok && file.DatabasePath != "" {
		cfg.DatabasePath = file.DatabasePath
	}
	if _, ok := os.LookupEnv("LOG_LEVEL"); !ok && file.LogLevel != "" {
		cfg.LogLevel = file.LogLevel
	}
	if _, ok := os.LookupEnv("BACKUP_DIR"); !ok && file.BackupDir != "" {
		cfg.BackupDir = file.BackupDir
	}
}

// Validate checks the configuration for values the server cannot run with.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	return nil
}
