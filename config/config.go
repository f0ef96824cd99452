package config

import (
	"fmt"

	"github.com/skillsenselab/routekit/discovery"
	"github.com/skillsenselab/routekit/logger"
	"github.com/skillsenselab/routekit/server"
)

// Config aggregates all gateway configuration sections.
type Config struct {
	Name        string `yaml:"name" mapstructure:"name"`
	Environment string `yaml:"environment" mapstructure:"environment"`
	Debug       bool   `yaml:"debug" mapstructure:"debug"`

	Logging   logger.Config    `yaml:"logging" mapstructure:"logging"`
	Server    server.Config    `yaml:"server" mapstructure:"server"`
	Discovery discovery.Config `yaml:"discovery" mapstructure:"discovery"`
}

// ApplyDefaults applies default values to every section.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "gateway"
	}
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Environment == "development" {
		c.Debug = true
	}
	c.Logging.ApplyDefaults()
	c.Server.ApplyDefaults()
	c.Discovery.ApplyDefaults()
}

// Validate validates every section.
func (c *Config) Validate() error {
	validEnvs := []string{"development", "staging", "production"}
	found := false
	for _, v := range validEnvs {
		if c.Environment == v {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("config.environment must be one of %v (got: %s)", validEnvs, c.Environment)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("config.logging: %w", err)
	}
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("config.server: %w", err)
	}
	if err := c.Discovery.Validate(); err != nil {
		return fmt.Errorf("config.discovery: %w", err)
	}
	return nil
}
