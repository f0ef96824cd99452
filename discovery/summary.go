package discovery

import (
	"time"

	"github.com/skillsenselab/routekit/component"
)

// InstanceHealth is a per-instance snapshot inside a ServiceSummary.
type InstanceHealth struct {
	ID           string    `json:"id"`
	URL          string    `json:"url"`
	Healthy      bool      `json:"healthy"`
	ResponseTime int64     `json:"response_time_ms"`
	FailureCount int       `json:"failure_count"`
	LastCheck    time.Time `json:"last_check"`
}

// ServiceSummary aggregates health metrics for one service.
type ServiceSummary struct {
	HealthyCount int     `json:"healthy_count"`
	TotalCount   int     `json:"total_count"`
	HealthRatio  float64 `json:"health_ratio"`
	// AvgResponseTime is the mean latest probe latency over all instances of
	// the service, healthy or not.
	AvgResponseTime float64          `json:"avg_response_time_ms"`
	Instances       []InstanceHealth `json:"instances"`
}

// SystemHealth is the coarse verdict across the whole registry.
type SystemHealth struct {
	Status component.HealthStatus `json:"status"`
	// Services is the number of registered service names.
	Services int `json:"services"`
	// HealthyServices counts services with at least one healthy instance.
	HealthyServices  int `json:"healthy_services"`
	TotalInstances   int `json:"total_instances"`
	HealthyInstances int `json:"healthy_instances"`
}

func buildSummary(snapshot map[string][]ServiceInstance) map[string]ServiceSummary {
	out := make(map[string]ServiceSummary, len(snapshot))
	for name, instances := range snapshot {
		summary := ServiceSummary{
			TotalCount: len(instances),
			Instances:  make([]InstanceHealth, 0, len(instances)),
		}
		var totalLatency int64
		for _, inst := range instances {
			if inst.Healthy {
				summary.HealthyCount++
			}
			totalLatency += inst.ResponseTime
			summary.Instances = append(summary.Instances, InstanceHealth{
				ID:           inst.ID,
				URL:          inst.URL,
				Healthy:      inst.Healthy,
				ResponseTime: inst.ResponseTime,
				FailureCount: inst.FailureCount,
				LastCheck:    inst.LastCheck,
			})
		}
		if summary.TotalCount > 0 {
			summary.HealthRatio = float64(summary.HealthyCount) / float64(summary.TotalCount)
			summary.AvgResponseTime = float64(totalLatency) / float64(summary.TotalCount)
		}
		out[name] = summary
	}
	return out
}

func buildSystemHealth(snapshot map[string][]ServiceInstance) SystemHealth {
	sys := SystemHealth{Services: len(snapshot)}
	for _, instances := range snapshot {
		healthy := 0
		for _, inst := range instances {
			if inst.Healthy {
				healthy++
			}
		}
		sys.TotalInstances += len(instances)
		sys.HealthyInstances += healthy
		if healthy > 0 {
			sys.HealthyServices++
		}
	}
	// The zero-instance ratio is defined as 0, so an empty registry reports
	// unhealthy.
	var ratio float64
	if sys.TotalInstances > 0 {
		ratio = float64(sys.HealthyInstances) / float64(sys.TotalInstances)
	}
	sys.Status = statusForRatio(ratio)
	return sys
}

// statusForRatio maps a healthy/total ratio onto a coarse status. The 0.5
// boundary is inclusive on the degraded side.
func statusForRatio(ratio float64) component.HealthStatus {
	switch {
	case ratio >= 0.8:
		return component.StatusHealthy
	case ratio >= 0.5:
		return component.StatusDegraded
	default:
		return component.StatusUnhealthy
	}
}
