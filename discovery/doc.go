// Package discovery provides the service registry and health-aware load
// balancing layer embedded in the routekit gateway.
//
// It tracks live instances of each named backend service, probes their health
// endpoints on a fixed interval, and selects one healthy instance per request
// via a configured load-balancing strategy.
//
// # Architecture
//
//   - InstanceRegistry: in-memory mapping of service name to instances
//   - Prober / Monitor: periodic concurrent health checks with edge-triggered
//     recovery and failure events
//   - Strategy: selects an instance from healthy candidates
//   - Service: the public facade composing the above, used by routing code
//     and the admin endpoints
//
// Routing code calls Service.BestInstance per inbound request; admin and
// observability endpoints read Service.HealthSummary and Service.SystemHealth.
// Registry and health transitions are published on an in-process event bus.
package discovery
