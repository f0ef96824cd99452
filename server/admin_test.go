package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/skillsenselab/routekit/discovery"
	"github.com/skillsenselab/routekit/logger"
)

func newTestRouter(t *testing.T, cfg discovery.Config) (*gin.Engine, *discovery.Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	disc := discovery.New(cfg, logger.Nop())
	engine := gin.New()
	NewAdminAPI(disc).RegisterRoutes(engine)
	return engine, disc
}

func doJSON(t *testing.T, engine *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestAdmin_RegisterInstance(t *testing.T) {
	engine, disc := newTestRouter(t, discovery.Config{})

	w := doJSON(t, engine, http.MethodPost, "/services/orders/instances",
		`{"url": "http://10.0.0.1:8080", "metadata": {"zone": "eu"}}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Data.ID == "" {
		t.Fatal("response missing instance id")
	}

	instances := disc.Instances("orders")
	if len(instances) != 1 || instances[0].ID != resp.Data.ID {
		t.Errorf("registry = %+v, want instance %q", instances, resp.Data.ID)
	}
}

func TestAdmin_RegisterValidation(t *testing.T) {
	engine, _ := newTestRouter(t, discovery.Config{})

	w := doJSON(t, engine, http.MethodPost, "/services/orders/instances", `{"metadata": {}}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing url: status = %d, want 400", w.Code)
	}
	if !strings.Contains(w.Body.String(), "MISSING_FIELD") {
		t.Errorf("missing url: body = %s, want MISSING_FIELD code", w.Body.String())
	}

	w = doJSON(t, engine, http.MethodPost, "/services/orders/instances", `{not json`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("malformed body: status = %d, want 400", w.Code)
	}
}

func TestAdmin_DeregisterInstance(t *testing.T) {
	engine, disc := newTestRouter(t, discovery.Config{})
	id := disc.Register("orders", discovery.ServiceInstance{URL: "http://a"})

	w := doJSON(t, engine, http.MethodDelete, "/services/orders/instances/"+id, "")
	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", w.Code)
	}

	w = doJSON(t, engine, http.MethodDelete, "/services/orders/instances/"+id, "")
	if w.Code != http.StatusNotFound {
		t.Errorf("repeat delete: status = %d, want 404", w.Code)
	}
	if !strings.Contains(w.Body.String(), "NOT_FOUND") {
		t.Errorf("repeat delete: body = %s, want NOT_FOUND code", w.Body.String())
	}
}

func TestAdmin_ListInstances(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer backend.Close()

	engine, disc := newTestRouter(t, discovery.Config{
		Services: []discovery.ServiceConfig{
			{Name: "orders", Timeout: time.Second},
		},
	})
	disc.Register("orders", discovery.ServiceInstance{URL: backend.URL})
	disc.Register("orders", discovery.ServiceInstance{URL: "http://127.0.0.1:1"})

	w := doJSON(t, engine, http.MethodGet, "/services/orders/instances", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var all struct {
		Data []discovery.ServiceInstance `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &all); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(all.Data) != 2 {
		t.Errorf("all instances = %d, want 2", len(all.Data))
	}

	// Probe once, then the healthy filter should keep only the live backend.
	doJSON(t, engine, http.MethodPost, "/health/refresh", "")

	w = doJSON(t, engine, http.MethodGet, "/services/orders/instances?healthy=true", "")
	var healthy struct {
		Data []discovery.ServiceInstance `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &healthy); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(healthy.Data) != 1 || healthy.Data[0].URL != backend.URL {
		t.Errorf("healthy instances = %+v, want only %s", healthy.Data, backend.URL)
	}
}

func TestAdmin_BestInstance(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer backend.Close()

	engine, disc := newTestRouter(t, discovery.Config{
		Services: []discovery.ServiceConfig{
			{Name: "orders", Timeout: time.Second},
		},
	})

	// No instances at all: the fallback is a 503.
	w := doJSON(t, engine, http.MethodGet, "/services/orders/best", "")
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("empty service: status = %d, want 503", w.Code)
	}
	if !strings.Contains(w.Body.String(), "NO_HEALTHY_INSTANCE") {
		t.Errorf("empty service: body = %s, want NO_HEALTHY_INSTANCE code", w.Body.String())
	}

	disc.Register("orders", discovery.ServiceInstance{URL: backend.URL})

	// Registered but never probed: still no healthy candidate.
	w = doJSON(t, engine, http.MethodGet, "/services/orders/best", "")
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("unprobed service: status = %d, want 503", w.Code)
	}

	doJSON(t, engine, http.MethodPost, "/health/refresh", "")

	w = doJSON(t, engine, http.MethodGet, "/services/orders/best", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Data discovery.ServiceInstance `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Data.URL != backend.URL {
		t.Errorf("best instance URL = %q, want %q", resp.Data.URL, backend.URL)
	}
}

func TestAdmin_HealthEndpoints(t *testing.T) {
	engine, disc := newTestRouter(t, discovery.Config{})
	disc.Register("orders", discovery.ServiceInstance{URL: "http://a"})

	w := doJSON(t, engine, http.MethodGet, "/health/summary", "")
	if w.Code != http.StatusOK {
		t.Errorf("summary status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"orders"`) {
		t.Errorf("summary body = %s, want orders entry", w.Body.String())
	}

	w = doJSON(t, engine, http.MethodGet, "/health/system", "")
	if w.Code != http.StatusOK {
		t.Errorf("system status = %d, want 200", w.Code)
	}
	var sys struct {
		Data discovery.SystemHealth `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &sys); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if sys.Data.TotalInstances != 1 {
		t.Errorf("TotalInstances = %d, want 1", sys.Data.TotalInstances)
	}
	if sys.Data.Status != "unhealthy" {
		t.Errorf("Status = %q, want unhealthy before any probe", sys.Data.Status)
	}
}

func TestAdmin_ListServices(t *testing.T) {
	engine, disc := newTestRouter(t, discovery.Config{})
	disc.Register("orders", discovery.ServiceInstance{URL: "http://a"})
	disc.Register("billing", discovery.ServiceInstance{URL: "http://b"})

	w := doJSON(t, engine, http.MethodGet, "/services", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp struct {
		Data []string `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(resp.Data) != 2 {
		t.Errorf("services = %v, want 2 names", resp.Data)
	}
}
