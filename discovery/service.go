package discovery

import (
	"context"
	"fmt"
	"sync"

	"github.com/skillsenselab/routekit/component"
	"github.com/skillsenselab/routekit/logger"
)

const componentName = "discovery"

// Service is the public discovery facade composing the registry, health
// monitor, and selection strategy. Routing code calls BestInstance per
// inbound request; admin endpoints use the registration and health surface.
type Service struct {
	cfg      Config
	log      *logger.Logger
	bus      *Bus
	registry *InstanceRegistry
	monitor  *Monitor
	strategy Strategy

	seedOnce sync.Once
}

// Ensure Service satisfies the component contracts at compile time.
var (
	_ component.Component   = (*Service)(nil)
	_ component.Describable = (*Service)(nil)
)

// New creates a discovery Service from configuration. The registry is not
// seeded and monitoring is not running until Start.
func New(cfg Config, log *logger.Logger) *Service {
	cfg.ApplyDefaults()
	log = log.WithComponent(componentName)

	if cfg.Strategy != "" && !KnownStrategy(cfg.Strategy) {
		log.Warn("unknown strategy, falling back to random", map[string]interface{}{
			"strategy": cfg.Strategy,
		})
	}

	bus := NewBus(log)
	registry := NewInstanceRegistry(bus, log)
	monitor := NewMonitor(registry, NewProber(log), bus, cfg.CheckInterval, log)
	for _, svc := range cfg.Services {
		monitor.SetPolicy(svc.Name, ProbePolicy{Path: svc.HealthPath, Timeout: svc.Timeout})
	}

	return &Service{
		cfg:      cfg,
		log:      log,
		bus:      bus,
		registry: registry,
		monitor:  monitor,
		strategy: StrategyFor(cfg.Strategy),
	}
}

// Register adds an instance to the named service and returns its assigned id.
func (s *Service) Register(service string, inst ServiceInstance) string {
	return s.registry.Register(service, inst)
}

// Deregister removes an instance and reports whether it existed.
func (s *Service) Deregister(service, id string) bool {
	return s.registry.Deregister(service, id)
}

// Instances returns all instances of the named service; empty for unknown
// names, never an error.
func (s *Service) Instances(service string) []ServiceInstance {
	return s.registry.Instances(service)
}

// HealthyInstances returns the instances whose latest probe succeeded.
func (s *Service) HealthyInstances(service string) []ServiceInstance {
	return s.registry.HealthyInstances(service)
}

// ServiceNames returns the names of all services with at least one instance.
func (s *Service) ServiceNames() []string {
	return s.registry.Services()
}

// BestInstance returns the instance chosen by the configured strategy. The
// second return is false exactly when the service has zero healthy
// candidates; the caller decides the fallback (e.g. a 503).
func (s *Service) BestInstance(service string) (ServiceInstance, bool) {
	healthy := s.registry.HealthyInstances(service)
	if len(healthy) == 0 {
		return ServiceInstance{}, false
	}
	return s.strategy.Pick(healthy), true
}

// HealthSummary returns aggregated per-service health metrics.
func (s *Service) HealthSummary() map[string]ServiceSummary {
	return buildSummary(s.registry.Snapshot())
}

// SystemHealth returns the coarse verdict across the whole registry. It is
// always structured, even with zero registered services.
func (s *Service) SystemHealth() SystemHealth {
	return buildSystemHealth(s.registry.Snapshot())
}

// Refresh triggers one out-of-band probe cycle identical to a scheduled tick
// and waits for it to settle.
func (s *Service) Refresh(ctx context.Context) {
	s.monitor.Refresh(ctx)
}

// StartMonitoring begins periodic probing; a second call while running is a
// no-op.
func (s *Service) StartMonitoring() {
	s.monitor.Start()
}

// StopMonitoring cancels future probe cycles; in-flight probes complete.
func (s *Service) StopMonitoring() {
	s.monitor.Stop()
}

// Monitoring reports whether periodic probing is active.
func (s *Service) Monitoring() bool {
	return s.monitor.Running()
}

// SetProbePolicy overrides the probe policy for a service registered at
// runtime.
func (s *Service) SetProbePolicy(service string, policy ProbePolicy) {
	s.monitor.SetPolicy(service, policy)
}

// Subscribe returns a subscription for the given event kinds; with no kinds
// it receives every event.
func (s *Service) Subscribe(kinds ...EventKind) *Subscription {
	return s.bus.Subscribe(kinds...)
}

// Unsubscribe removes a subscription and closes its channel.
func (s *Service) Unsubscribe(sub *Subscription) {
	s.bus.Unsubscribe(sub)
}

// --- component.Component ---

// Name returns the component name.
func (s *Service) Name() string { return componentName }

// Start seeds the registry from static configuration and begins monitoring.
func (s *Service) Start(ctx context.Context) error {
	s.seedOnce.Do(s.seed)
	s.StartMonitoring()
	s.log.Info("discovery started", map[string]interface{}{
		"strategy": s.strategy.Name(),
		"services": len(s.cfg.Services),
		"interval": s.cfg.CheckInterval.String(),
	})
	return nil
}

// Stop halts monitoring and closes the event bus.
func (s *Service) Stop(ctx context.Context) error {
	s.StopMonitoring()
	s.bus.Close()
	return nil
}

// Health maps the registry-wide verdict onto the component contract.
func (s *Service) Health(ctx context.Context) component.Health {
	sys := s.SystemHealth()
	return component.Health{
		Name:   componentName,
		Status: sys.Status,
		Message: fmt.Sprintf("%d/%d instances healthy across %d services",
			sys.HealthyInstances, sys.TotalInstances, sys.Services),
	}
}

// Describe returns summary info for the startup display.
func (s *Service) Describe() component.Description {
	return component.Description{
		Name: "Discovery",
		Type: componentName,
		Details: fmt.Sprintf("strategy=%s services=%d interval=%s",
			s.strategy.Name(), len(s.cfg.Services), s.cfg.CheckInterval),
	}
}

func (s *Service) seed() {
	for _, svc := range s.cfg.Services {
		for _, inst := range svc.Instances {
			s.registry.Register(svc.Name, ServiceInstance{
				URL:      inst.URL,
				Metadata: inst.Metadata,
			})
		}
	}
}
