package components

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/harunnryd/foodiebot/internal/config"
	"github.com/harunnryd/foodiebot/internal/daemon"
)

type staticHealth map[string]*daemon.ComponentHealth

func (s staticHealth) ComponentHealth() map[string]*daemon.ComponentHealth {
	return s
}

func TestNewHTTPServerComponent_DefaultDependencies(t *testing.T) {
	comp := NewHTTPServerComponent(nil, &config.ServerConfig{HealthAddr: "127.0.0.1:0"})
	deps := comp.Dependencies()

	want := []string{"Workers"}
	if len(deps) != len(want) {
		t.Fatalf("dependencies length = %d, want %d", len(deps), len(want))
	}
	for i := range want {
		if deps[i] != want[i] {
			t.Fatalf("dependency[%d] = %s, want %s", i, deps[i], want[i])
		}
	}
}

func TestNewHTTPServerComponentWithDependencies_Copy(t *testing.T) {
	custom := []string{"Workers"}
	comp := NewHTTPServerComponentWithDependencies(nil, &config.ServerConfig{}, custom)

	custom[0] = "Mutated"

	deps := comp.Dependencies()
	if len(deps) != 1 {
		t.Fatalf("dependencies length = %d, want 1", len(deps))
	}
	if deps[0] != "Workers" {
		t.Fatalf("dependency = %s, want Workers", deps[0])
	}

	deps[0] = "MutatedAgain"
	if comp.Dependencies()[0] != "Workers" {
		t.Fatal("Dependencies() must return a copy")
	}
}

func TestHTTPServerComponent_HealthEndpoint(t *testing.T) {
	reporter := staticHealth{
		"Store":   {Name: "Store", Healthy: true},
		"Workers": {Name: "Workers", Healthy: true},
	}
	comp := NewHTTPServerComponent(reporter, &config.ServerConfig{})

	srv := httptest.NewServer(comp.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var body healthResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "ok" {
		t.Errorf("status = %q, want ok", body.Status)
	}
	if len(body.Components) != 2 {
		t.Errorf("components = %d, want 2", len(body.Components))
	}
}

func TestHTTPServerComponent_HealthEndpointDegraded(t *testing.T) {
	reporter := staticHealth{
		"Store":   {Name: "Store", Healthy: true},
		"Workers": {Name: "Workers", Healthy: false, Error: errors.New("not started")},
	}
	comp := NewHTTPServerComponent(reporter, &config.ServerConfig{})

	rec := httptest.NewRecorder()
	comp.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	var body healthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "degraded" {
		t.Errorf("status = %q, want degraded", body.Status)
	}
	if len(body.Unhealthy) != 1 || body.Unhealthy[0] != "Workers" {
		t.Errorf("unhealthy = %v, want [Workers]", body.Unhealthy)
	}
	if body.Components["Workers"].Error != "not started" {
		t.Errorf("error = %q", body.Components["Workers"].Error)
	}
}

func TestHTTPServerComponent_RejectsNonGet(t *testing.T) {
	comp := NewHTTPServerComponent(staticHealth{}, &config.ServerConfig{})

	rec := httptest.NewRecorder()
	comp.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/health", nil))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
}

func TestHTTPServerComponent_DisabledWithoutAddr(t *testing.T) {
	comp := NewHTTPServerComponent(staticHealth{}, &config.ServerConfig{})
	ctx := context.Background()

	if err := comp.Init(ctx); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if comp.server != nil {
		t.Fatal("expected no listener without health_addr")
	}
	if err := comp.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	health, _ := comp.Health(ctx)
	if !health.Healthy {
		t.Errorf("expected healthy idle component, got %v", health.Error)
	}
	if err := comp.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}
