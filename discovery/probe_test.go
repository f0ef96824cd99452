package discovery

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/skillsenselab/routekit/logger"
)

func testPolicy() ProbePolicy {
	return ProbePolicy{Path: "/health", Timeout: 2 * time.Second}
}

func TestProber_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			t.Errorf("probed path %q, want /health", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := NewProber(logger.Nop())
	res := p.Check(context.Background(), ServiceInstance{URL: srv.URL}, testPolicy())

	if !res.Healthy {
		t.Error("Healthy = false, want true")
	}
	if res.Err != nil {
		t.Errorf("Err = %v, want nil", res.Err)
	}
	if res.CheckedAt.IsZero() {
		t.Error("CheckedAt is zero")
	}
	if res.ResponseTime < 0 {
		t.Errorf("ResponseTime = %d, want >= 0", res.ResponseTime)
	}
}

func TestProber_RedirectAndClientErrorClassification(t *testing.T) {
	status := http.StatusNoContent
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))
	defer srv.Close()
	p := NewProber(logger.Nop())

	// Anything below 400 is healthy.
	res := p.Check(context.Background(), ServiceInstance{URL: srv.URL}, testPolicy())
	if !res.Healthy {
		t.Errorf("status 204: Healthy = false, want true")
	}

	// 4xx answered but unhealthy.
	status = http.StatusNotFound
	res = p.Check(context.Background(), ServiceInstance{URL: srv.URL}, testPolicy())
	if res.Healthy {
		t.Error("status 404: Healthy = true, want false")
	}
	if !errors.Is(res.Err, ErrUnhealthyStatus) {
		t.Errorf("status 404: Err = %v, want ErrUnhealthyStatus", res.Err)
	}

	// 5xx hard failure.
	status = http.StatusInternalServerError
	res = p.Check(context.Background(), ServiceInstance{URL: srv.URL}, testPolicy())
	if res.Healthy {
		t.Error("status 500: Healthy = true, want false")
	}
}

func TestProber_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer srv.Close()

	p := NewProber(logger.Nop())
	res := p.Check(context.Background(), ServiceInstance{URL: srv.URL}, ProbePolicy{
		Path:    "/health",
		Timeout: 20 * time.Millisecond,
	})

	if res.Healthy {
		t.Error("Healthy = true after timeout, want false")
	}
	if res.Err == nil {
		t.Error("Err = nil after timeout, want error")
	}
}

func TestProber_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	p := NewProber(logger.Nop())
	res := p.Check(context.Background(), ServiceInstance{URL: url}, testPolicy())

	if res.Healthy {
		t.Error("Healthy = true for refused connection, want false")
	}
	if res.Err == nil {
		t.Error("Err = nil for refused connection, want error")
	}
}

func TestProber_WasHealthyCarriedFromInstance(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p := NewProber(logger.Nop())
	res := p.Check(context.Background(), ServiceInstance{URL: srv.URL, Healthy: true}, testPolicy())

	if !res.WasHealthy {
		t.Error("WasHealthy = false, want true (from instance state)")
	}
	if !res.Failed() {
		t.Error("Failed() = false, want true for healthy->unhealthy edge")
	}
	if res.Recovered() {
		t.Error("Recovered() = true, want false")
	}
}

func TestProber_TrailingSlashURL(t *testing.T) {
	var probed string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		probed = r.URL.Path
	}))
	defer srv.Close()

	p := NewProber(logger.Nop())
	p.Check(context.Background(), ServiceInstance{URL: srv.URL + "/"}, testPolicy())

	if probed != "/health" {
		t.Errorf("probed path %q, want /health", probed)
	}
}
