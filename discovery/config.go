package discovery

import (
	"fmt"
	"strings"
	"time"
)

// Config holds discovery and health monitoring configuration.
type Config struct {
	// Strategy selects the load-balancing strategy: "round_robin", "random",
	// "least_conn", or "fastest_response". Unknown names fall back to random.
	Strategy string `yaml:"strategy" mapstructure:"strategy"`

	// CheckInterval is the fixed wall-clock interval between probe cycles.
	CheckInterval time.Duration `yaml:"check_interval" mapstructure:"check_interval"`

	// Services lists the statically configured backend services that seed
	// the registry at start-up.
	Services []ServiceConfig `yaml:"services" mapstructure:"services"`
}

// ServiceConfig describes one backend service and its health check settings.
type ServiceConfig struct {
	Name string `yaml:"name" mapstructure:"name"`

	// HealthPath is the HTTP path probed on each instance (e.g. "/health").
	HealthPath string `yaml:"health_path" mapstructure:"health_path"`

	// Timeout bounds a single probe of this service's instances.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`

	// Instances are the statically known deployments of this service.
	Instances []InstanceConfig `yaml:"instances" mapstructure:"instances"`
}

// InstanceConfig seeds one instance of a configured service.
type InstanceConfig struct {
	URL      string            `yaml:"url" mapstructure:"url"`
	Metadata map[string]string `yaml:"metadata" mapstructure:"metadata"`
}

// ApplyDefaults fills zero-valued fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Strategy == "" {
		c.Strategy = StrategyRandom
	}
	if c.CheckInterval <= 0 {
		c.CheckInterval = 30 * time.Second
	}
	for i := range c.Services {
		svc := &c.Services[i]
		if svc.HealthPath == "" {
			svc.HealthPath = DefaultProbePolicy.Path
		}
		if !strings.HasPrefix(svc.HealthPath, "/") {
			svc.HealthPath = "/" + svc.HealthPath
		}
		if svc.Timeout <= 0 {
			svc.Timeout = DefaultProbePolicy.Timeout
		}
	}
}

// Validate checks that required fields are present and consistent.
func (c *Config) Validate() error {
	if c.CheckInterval <= 0 {
		return fmt.Errorf("discovery.check_interval must be positive (got: %s)", c.CheckInterval)
	}
	seen := make(map[string]bool, len(c.Services))
	for _, svc := range c.Services {
		if svc.Name == "" {
			return fmt.Errorf("discovery.services[].name is required")
		}
		if seen[svc.Name] {
			return fmt.Errorf("discovery.services has duplicate name %q", svc.Name)
		}
		seen[svc.Name] = true
		for _, inst := range svc.Instances {
			if inst.URL == "" {
				return fmt.Errorf("discovery.services[%s].instances[].url is required", svc.Name)
			}
		}
	}
	return nil
}
