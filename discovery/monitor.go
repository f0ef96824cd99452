package discovery

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/skillsenselab/routekit/logger"
)

// Monitor drives periodic health probing across every instance of every
// registered service.
//
// Scheduling is fixed-interval: each tick launches a batch regardless of
// whether the previous batch finished, so batches may overlap. Probes are
// idempotent and registry writes are last-write-wins per instance, so
// overlap is tolerated rather than prevented. Stop cancels future ticks but
// never in-flight probes; a late probe may still write its outcome.
type Monitor struct {
	registry *InstanceRegistry
	prober   *Prober
	bus      *Bus
	log      *logger.Logger
	interval time.Duration

	mu       sync.Mutex
	policies map[string]ProbePolicy
	running  bool
	stop     chan struct{}
}

// DefaultProbePolicy applies to services registered at runtime without a
// configured health path or timeout.
var DefaultProbePolicy = ProbePolicy{
	Path:    "/health",
	Timeout: 5 * time.Second,
}

// NewMonitor creates a stopped Monitor over the given registry.
func NewMonitor(registry *InstanceRegistry, prober *Prober, bus *Bus, interval time.Duration, log *logger.Logger) *Monitor {
	return &Monitor{
		registry: registry,
		prober:   prober,
		bus:      bus,
		log:      log.WithComponent("monitor"),
		interval: interval,
		policies: make(map[string]ProbePolicy),
	}
}

// SetPolicy sets the probe policy for a service. Zero fields fall back to
// DefaultProbePolicy; a path missing its leading slash is normalized.
func (m *Monitor) SetPolicy(service string, policy ProbePolicy) {
	if policy.Path == "" {
		policy.Path = DefaultProbePolicy.Path
	}
	if !strings.HasPrefix(policy.Path, "/") {
		policy.Path = "/" + policy.Path
	}
	if policy.Timeout <= 0 {
		policy.Timeout = DefaultProbePolicy.Timeout
	}
	m.mu.Lock()
	m.policies[service] = policy
	m.mu.Unlock()
}

func (m *Monitor) policyFor(service string) ProbePolicy {
	m.mu.Lock()
	defer m.mu.Unlock()
	if policy, ok := m.policies[service]; ok {
		return policy
	}
	return DefaultProbePolicy
}

// Start begins periodic probing. Calling Start while running is a no-op.
func (m *Monitor) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return
	}
	m.running = true
	m.stop = make(chan struct{})
	go m.loop(m.stop)
	m.log.Info("health monitoring started", map[string]interface{}{
		"interval": m.interval.String(),
	})
}

// Stop cancels future ticks. Safe to call when not running. In-flight probes
// are allowed to complete and may still write to the registry.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return
	}
	close(m.stop)
	m.running = false
	m.log.Info("health monitoring stopped")
}

// Running reports whether the periodic loop is active.
func (m *Monitor) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Refresh runs one out-of-band probe cycle identical to a scheduled tick and
// waits for every probe in it to settle.
func (m *Monitor) Refresh(ctx context.Context) {
	m.runBatch(ctx)
}

func (m *Monitor) loop(stop chan struct{}) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			// Each batch runs detached so a slow batch never delays the
			// next tick.
			go m.runBatch(context.Background())
		case <-stop:
			return
		}
	}
}

// runBatch probes every instance in a snapshot of the registry concurrently,
// waits for all probes to settle, then publishes one health-check-completed
// event carrying the aggregated summary. A failing probe for one instance
// never aborts or delays the others.
func (m *Monitor) runBatch(ctx context.Context) {
	snapshot := m.registry.Snapshot()

	var wg sync.WaitGroup
	for service, instances := range snapshot {
		policy := m.policyFor(service)
		for _, inst := range instances {
			wg.Add(1)
			go func(service string, inst ServiceInstance) {
				defer wg.Done()
				m.probeOne(ctx, service, inst, policy)
			}(service, inst)
		}
	}
	wg.Wait()

	m.bus.Publish(Event{
		Kind:    EventHealthCheckCompleted,
		Summary: buildSummary(m.registry.Snapshot()),
	})
}

func (m *Monitor) probeOne(ctx context.Context, service string, inst ServiceInstance, policy ProbePolicy) {
	res := m.prober.Check(ctx, inst, policy)

	updated, ok := m.registry.Apply(service, inst.ID, res)
	if !ok {
		// Deregistered while the probe was in flight.
		return
	}

	switch {
	case res.Recovered():
		m.log.Info("instance recovered", map[string]interface{}{
			logger.FieldService:  service,
			logger.FieldInstance: inst.ID,
			logger.FieldDuration: res.ResponseTime,
		})
		m.bus.Publish(Event{Kind: EventServiceRecovered, Service: service, Instance: &updated})
	case res.Failed():
		fields := map[string]interface{}{
			logger.FieldService:  service,
			logger.FieldInstance: inst.ID,
		}
		event := Event{Kind: EventServiceFailed, Service: service, Instance: &updated}
		if res.Err != nil {
			fields[logger.FieldError] = res.Err.Error()
			event.Err = res.Err.Error()
		}
		m.log.Warn("instance failed", fields)
		m.bus.Publish(event)
	}
}
