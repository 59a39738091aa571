package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

var DebugLog func(string, ...interface{})

type Config struct {
	DefaultSettings DefaultSettings `yaml:"default_settings"`
	Database        Database        `yaml:"database"`
	Elastic         Elastic         `yaml:"elastic"`
}

type DefaultSettings struct {
	Experiment    string `yaml:"experiment"`
	ExcludeChecks string `yaml:"exclude_checks"`
}

type Database struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

type Elastic struct {
	Enabled  bool   `yaml:"enabled"`
	URL      string `yaml:"url"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Index    string `yaml:"index"`
}

type Manager struct {
	config     *Config
	configPath string
}

func NewManager(configPath string) *Manager {
	return &Manager{
		configPath: configPath,
	}
}

// LoadConfig reads the tool configuration. A missing file is not an error:
// validation works without one, with tracking and indexing disabled.
func (m *Manager) LoadConfig() error {
	if m.configPath == "" {
		m.configPath = m.findConfigFile()
	}

	if DebugLog != nil {
		DebugLog("loading tool config from %s", m.configPath)
	}

	if _, err := os.Stat(m.configPath); os.IsNotExist(err) {
		m.config = defaultConfig()
		return nil
	}

	data, err := os.ReadFile(m.configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := m.validateConfig(&config); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	m.config = &config
	return nil
}

func defaultConfig() *Config {
	return &Config{
		DefaultSettings: DefaultSettings{
			Experiment: "default",
		},
	}
}

func (m *Manager) GetConfig() *Config {
	return m.config
}

func (m *Manager) findConfigFile() string {
	if _, err := os.Stat("config.yaml"); err == nil {
		return "config.yaml"
	}

	if _, err := os.Stat("config/config.yaml"); err == nil {
		return "config/config.yaml"
	}

	return GetDefaultConfigPath()
}

func (m *Manager) validateConfig(config *Config) error {
	if config.Database.Enabled {
		if config.Database.Host == "" {
			return fmt.Errorf("database host is required when tracking is enabled")
		}
		if config.Database.User == "" {
			return fmt.Errorf("database user is required when tracking is enabled")
		}
	}
	if config.Elastic.Enabled && config.Elastic.URL == "" {
		return fmt.Errorf("elasticsearch url is required when indexing is enabled")
	}
	if config.DefaultSettings.Experiment == "" {
		config.DefaultSettings.Experiment = "default"
	}
	return nil
}
