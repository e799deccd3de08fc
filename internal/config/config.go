package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	JWT      JWTConfig      `yaml:"jwt"`
	Admin    AdminConfig    `yaml:"admin"`
	Logging  LoggingConfig  `yaml:"logging"`
	Updater  UpdaterConfig  `yaml:"updater"`
}

type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type JWTConfig struct {
	Secret string        `yaml:"secret"`
	Expiry time.Duration `yaml:"expiry"`
}

type AdminConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Email    string `yaml:"email"`
}

type LoggingConfig struct {
	Level         string `yaml:"level"`
	Dir           string `yaml:"dir"`
	Console       bool   `yaml:"console"`
	File          bool   `yaml:"file"`
	MaxFileSizeMB int    `yaml:"max_file_size_mb"`
	MaxFiles      int    `yaml:"max_files"`
}

// UpdaterConfig carries the identifiers the updater manager is
// constructed with. These are file-only on purpose: the tenant and
// customer IDs have no environment-variable binding.
type UpdaterConfig struct {
	TenantID   string `yaml:"tenant_id"`
	CustomerID string `yaml:"customer_id"`
	DryRun     bool   `yaml:"dry_run"`
}

var AppConfig *Config

func Load(path string) (*Config, error) {
	config := &Config{
		Server: ServerConfig{
			Port: 8990,
			Host: "0.0.0.0",
		},
		Database: DatabaseConfig{
			Path: "./data/crm-updater.db",
		},
		JWT: JWTConfig{
			Secret: "change-this-secret-in-production",
			Expiry: 24 * time.Hour,
		},
		Admin: AdminConfig{
			Username: "admin",
			Password: "admin123",
			Email:    "admin@localhost",
		},
		Logging: LoggingConfig{
			Level:         "info",
			Dir:           "./logs",
			Console:       true,
			File:          true,
			MaxFileSizeMB: 10,
			MaxFiles:      7,
		},
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			AppConfig = config
			return config, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, err
	}

	// Override with environment variables
	if port := os.Getenv("CRM_UPDATER_PORT"); port != "" {
		var p int
		if _, err := fmt.Sscanf(port, "%d", &p); err == nil {
			config.Server.Port = p
		}
	}
	if secret := os.Getenv("CRM_UPDATER_JWT_SECRET"); secret != "" {
		config.JWT.Secret = secret
	}
	if level := os.Getenv("CRM_UPDATER_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	AppConfig = config
	return config, nil
}
