package discovery

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/skillsenselab/routekit/logger"
)

// ProbePolicy holds the per-service health check settings.
type ProbePolicy struct {
	// Path is the health endpoint path appended to the instance URL.
	Path string
	// Timeout bounds one probe; exceeding it is a failure identical to a
	// connection error.
	Timeout time.Duration
}

// ProbeResult is the settled outcome of one health check.
type ProbeResult struct {
	// WasHealthy is the instance's health as seen when the probe started.
	WasHealthy bool
	// Healthy is the outcome of this probe.
	Healthy bool
	// ResponseTime is the probe latency in milliseconds.
	ResponseTime int64
	// CheckedAt is when the probe settled.
	CheckedAt time.Time
	// Err describes the failure; nil on success.
	Err error
}

// Recovered reports an unhealthy-to-healthy edge.
func (r ProbeResult) Recovered() bool { return !r.WasHealthy && r.Healthy }

// Failed reports a healthy-to-unhealthy edge.
func (r ProbeResult) Failed() bool { return r.WasHealthy && !r.Healthy }

// Prober executes individual health checks. The underlying HTTP client is
// shared across probes; per-probe timeouts come from the service's policy.
type Prober struct {
	client *http.Client
	log    *logger.Logger
}

// NewProber creates a Prober with a transport cloned from the default.
func NewProber(log *logger.Logger) *Prober {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	return &Prober{
		client: &http.Client{Transport: transport},
		log:    log.WithComponent("probe"),
	}
}

// Check issues one GET against the instance's health endpoint and classifies
// the outcome. Status < 400 is healthy; 4xx means the instance answered but
// reports itself unhealthy; 5xx, timeouts, and transport errors are hard
// failures. All failure classes leave the instance unhealthy.
func (p *Prober) Check(ctx context.Context, inst ServiceInstance, policy ProbePolicy) ProbeResult {
	res := ProbeResult{WasHealthy: inst.Healthy}

	url := strings.TrimRight(inst.URL, "/") + policy.Path
	cctx, cancel := context.WithTimeout(ctx, policy.Timeout)
	defer cancel()

	start := time.Now()
	req, err := http.NewRequestWithContext(cctx, http.MethodGet, url, nil)
	if err != nil {
		res.CheckedAt = time.Now()
		res.Err = fmt.Errorf("probe %s: %w", inst.URL, err)
		return res
	}

	resp, err := p.client.Do(req)
	res.ResponseTime = time.Since(start).Milliseconds()
	res.CheckedAt = time.Now()
	if err != nil {
		res.Err = fmt.Errorf("probe %s: %w", inst.URL, err)
		return res
	}
	defer resp.Body.Close()
	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < http.StatusBadRequest {
		res.Healthy = true
		return res
	}
	res.Err = fmt.Errorf("%w: %s returned %d", ErrUnhealthyStatus, url, resp.StatusCode)
	return res
}
