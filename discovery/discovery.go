package discovery

import (
	"errors"
	"maps"
	"time"
)

// ErrUnhealthyStatus marks a probe that got an HTTP answer with a
// non-success status. The instance responded but reports itself unfit.
var ErrUnhealthyStatus = errors.New("unhealthy status")

// ServiceInstance represents one running deployment of a named backend
// service, addressable by URL.
type ServiceInstance struct {
	// ID is opaque, assigned at registration, and stable for the record's
	// lifetime. Unique among currently-live instances of the same service.
	ID string `json:"id"`

	// Service is the owning logical service name.
	Service string `json:"service"`

	// URL is the instance base address, e.g. "http://10.0.0.4:8080".
	URL string `json:"url"`

	// Healthy flips on every probe outcome; it is not gated by a threshold.
	Healthy bool `json:"healthy"`

	// LastCheck is the completion time of the most recent probe. Zero until
	// the first probe settles.
	LastCheck time.Time `json:"last_check"`

	// ResponseTime is the latest probe latency in milliseconds. Latest only,
	// never a rolling statistic.
	ResponseTime int64 `json:"response_time_ms"`

	// FailureCount counts consecutive failed probes since the last recovery.
	FailureCount int `json:"failure_count"`

	// Metadata is opaque key-value data supplied at registration.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// clone returns a copy that shares no mutable state with the receiver.
func (si ServiceInstance) clone() ServiceInstance {
	out := si
	if si.Metadata != nil {
		out.Metadata = maps.Clone(si.Metadata)
	}
	return out
}
