package discovery

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/skillsenselab/routekit/logger"
)

// InstanceRegistry is the in-memory mapping of service name to an ordered
// list of instances. It is the only shared mutable state in the discovery
// layer; all mutations are serialized by its lock, reads return copies.
type InstanceRegistry struct {
	mu        sync.RWMutex
	instances map[string][]*ServiceInstance
	bus       *Bus
	log       *logger.Logger
}

// NewInstanceRegistry creates an empty registry publishing change
// notifications on the given bus.
func NewInstanceRegistry(bus *Bus, log *logger.Logger) *InstanceRegistry {
	return &InstanceRegistry{
		instances: make(map[string][]*ServiceInstance),
		bus:       bus,
		log:       log.WithComponent("registry"),
	}
}

// Register adds an instance to the named service and returns its assigned id.
// A new instance is unhealthy until its first probe completes; any health
// fields supplied by the caller are discarded.
func (r *InstanceRegistry) Register(service string, inst ServiceInstance) string {
	rec := inst.clone()
	rec.ID = uuid.NewString()
	rec.Service = service
	rec.Healthy = false
	rec.LastCheck = time.Time{}
	rec.ResponseTime = 0
	rec.FailureCount = 0

	r.mu.Lock()
	r.instances[service] = append(r.instances[service], &rec)
	r.mu.Unlock()

	r.log.Info("instance registered", map[string]interface{}{
		logger.FieldService:  service,
		logger.FieldInstance: rec.ID,
		"url":                rec.URL,
	})

	snapshot := rec.clone()
	r.bus.Publish(Event{Kind: EventServiceRegistered, Service: service, Instance: &snapshot})
	return rec.ID
}

// Deregister removes the instance with the given id from the named service.
// It reports whether a matching record existed; unknown names or ids are
// not an error.
func (r *InstanceRegistry) Deregister(service, id string) bool {
	r.mu.Lock()
	list := r.instances[service]
	for i, rec := range list {
		if rec.ID != id {
			continue
		}
		r.instances[service] = append(list[:i], list[i+1:]...)
		if len(r.instances[service]) == 0 {
			delete(r.instances, service)
		}
		snapshot := rec.clone()
		r.mu.Unlock()

		r.log.Info("instance deregistered", map[string]interface{}{
			logger.FieldService:  service,
			logger.FieldInstance: id,
		})
		r.bus.Publish(Event{Kind: EventServiceDeregistered, Service: service, Instance: &snapshot})
		return true
	}
	r.mu.Unlock()
	return false
}

// Instances returns copies of all instances of the named service, in
// registration order. Unknown names yield an empty list.
func (r *InstanceRegistry) Instances(service string) []ServiceInstance {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return copyInstances(r.instances[service], false)
}

// HealthyInstances returns copies of the instances of the named service
// whose latest probe succeeded.
func (r *InstanceRegistry) HealthyInstances(service string) []ServiceInstance {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return copyInstances(r.instances[service], true)
}

// Services returns the names of all services with at least one instance,
// sorted for stable iteration.
func (r *InstanceRegistry) Services() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.instances))
	for name := range r.instances {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Snapshot returns a copy of the whole registry, keyed by service name.
func (r *InstanceRegistry) Snapshot() map[string][]ServiceInstance {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string][]ServiceInstance, len(r.instances))
	for name, list := range r.instances {
		out[name] = copyInstances(list, false)
	}
	return out
}

// Apply writes a settled probe outcome back onto the identified instance.
// Writes for the same instance are serialized by the registry lock; across
// overlapping probe batches the last write wins. It returns the updated
// record and false if the instance was deregistered while the probe was in
// flight.
func (r *InstanceRegistry) Apply(service, id string, res ProbeResult) (ServiceInstance, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.instances[service] {
		if rec.ID != id {
			continue
		}
		rec.Healthy = res.Healthy
		rec.LastCheck = res.CheckedAt
		rec.ResponseTime = res.ResponseTime
		if res.Healthy {
			rec.FailureCount = 0
		} else {
			rec.FailureCount++
		}
		return rec.clone(), true
	}
	return ServiceInstance{}, false
}

func copyInstances(list []*ServiceInstance, healthyOnly bool) []ServiceInstance {
	out := make([]ServiceInstance, 0, len(list))
	for _, rec := range list {
		if healthyOnly && !rec.Healthy {
			continue
		}
		out = append(out, rec.clone())
	}
	return out
}
