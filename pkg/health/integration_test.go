package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/opd-ai/go-skirmish/pkg/config"
	"github.com/opd-ai/go-skirmish/pkg/engine"
	"github.com/opd-ai/go-skirmish/pkg/server"
)

// TestHealthCheckIntegration tests the probes against a real tick server
func TestHealthCheckIntegration(t *testing.T) {
	world, err := engine.NewWorld(config.DefaultConfig(), nil, nil)
	if err != nil {
		t.Fatalf("Failed to create world: %v", err)
	}
	period := 5 * time.Millisecond
	srv := server.New(world, period)

	healthChecker := NewHealthChecker()
	healthChecker.AddCheck(NewRunningHealthCheck("tick_server", srv.Running))
	healthChecker.AddCheck(NewSimulationHealthCheck(srv.LastTick, period, 10))

	t.Run("health checks before server start", func(t *testing.T) {
		health := healthChecker.CheckHealth(context.Background())

		if health.Checks["tick_server"].Status != StatusUnhealthy {
			t.Error("Tick server should be unhealthy before start")
		}
		if health.Checks["simulation"].Status != StatusUnhealthy {
			t.Error("Simulation should be unhealthy before the first tick")
		}
		if health.Status != StatusUnhealthy {
			t.Error("Overall status should be unhealthy before server start")
		}
	})

	srv.Start(context.Background())
	defer srv.Stop()

	t.Run("health checks after server start", func(t *testing.T) {
		deadline := time.Now().Add(2 * time.Second)
		for {
			health := healthChecker.CheckHealth(context.Background())
			if health.Status == StatusHealthy {
				break
			}
			if time.Now().After(deadline) {
				t.Fatalf("Server never became healthy: %+v", health)
			}
			time.Sleep(time.Millisecond)
		}
	})

	t.Run("readiness endpoint", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/readyz", nil)
		w := httptest.NewRecorder()
		healthChecker.Mux().ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("Expected status code %d, got %d", http.StatusOK, w.Code)
		}

		var response HealthStatus
		if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
		if len(response.Checks) != 2 {
			t.Errorf("Expected 2 checks, got %d", len(response.Checks))
		}
	})

	t.Run("health checks after server stop", func(t *testing.T) {
		srv.Stop()
		time.Sleep(20 * period)

		health := healthChecker.CheckHealth(context.Background())
		if health.Checks["tick_server"].Status != StatusUnhealthy {
			t.Error("Tick server should be unhealthy after stop")
		}
		if health.Checks["simulation"].Status != StatusUnhealthy {
			t.Error("Simulation should be stale after stop")
		}
	})
}
