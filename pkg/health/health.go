// Package health provides liveness and readiness probes for the headless
// simulation server.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/sony/gobreaker"
)

// Status values reported by checks and the aggregate.
const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)

// HealthCheck defines the interface for individual health checks.
// Each component can implement this interface to provide its health status.
type HealthCheck interface {
	// Name returns the unique name of this health check
	Name() string
	// Check performs the health check and returns an error if unhealthy
	Check(ctx context.Context) error
}

// HealthStatus represents the overall health status of the application.
type HealthStatus struct {
	Status string                     `json:"status"`
	Checks map[string]ComponentHealth `json:"checks"`
}

// ComponentHealth represents the health status of an individual component.
type ComponentHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// HealthChecker manages and executes health checks for the application.
type HealthChecker struct {
	checks map[string]HealthCheck
	mu     sync.RWMutex
}

// NewHealthChecker creates a new health checker instance.
func NewHealthChecker() *HealthChecker {
	return &HealthChecker{
		checks: make(map[string]HealthCheck),
	}
}

// AddCheck registers a new health check with the health checker.
// If a check with the same name already exists, it will be replaced.
func (hc *HealthChecker) AddCheck(check HealthCheck) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.checks[check.Name()] = check
}

// RemoveCheck removes a health check by name.
func (hc *HealthChecker) RemoveCheck(name string) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	delete(hc.checks, name)
}

// CheckHealth executes all registered health checks and returns the aggregated status.
// The overall status is "healthy" only if all individual checks pass.
func (hc *HealthChecker) CheckHealth(ctx context.Context) HealthStatus {
	hc.mu.RLock()
	defer hc.mu.RUnlock()

	status := HealthStatus{
		Status: StatusHealthy,
		Checks: make(map[string]ComponentHealth),
	}

	// Execute all health checks
	for name, check := range hc.checks {
		if err := check.Check(ctx); err != nil {
			status.Status = StatusUnhealthy
			status.Checks[name] = ComponentHealth{
				Status:  StatusUnhealthy,
				Message: err.Error(),
			}
		} else {
			status.Checks[name] = ComponentHealth{
				Status: StatusHealthy,
			}
		}
	}

	return status
}

// LivenessHandler reports that the process is up. It never runs checks.
func (hc *HealthChecker) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	response := map[string]string{"status": "alive"}
	json.NewEncoder(w).Encode(response)
}

// ReadinessHandler runs every check and answers 200 when all pass, 503
// otherwise.
func (hc *HealthChecker) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	// Create context with timeout for health checks
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	health := hc.CheckHealth(ctx)

	w.Header().Set("Content-Type", "application/json")

	if health.Status == StatusHealthy {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	json.NewEncoder(w).Encode(health)
}

// Mux returns a mux serving the liveness probe on /healthz and the readiness
// probe on /readyz.
func (hc *HealthChecker) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", hc.LivenessHandler)
	mux.HandleFunc("/readyz", hc.ReadinessHandler)
	return mux
}

// SimulationHealthCheck fails when the authoritative tick has stalled.
type SimulationHealthCheck struct {
	lastTick func() time.Time
	maxAge   time.Duration
	now      func() time.Time
}

// NewSimulationHealthCheck creates a check that fails when no tick has
// completed within staleFactor tick periods, or before the first tick.
func NewSimulationHealthCheck(lastTick func() time.Time, period time.Duration, staleFactor int) *SimulationHealthCheck {
	if staleFactor < 1 {
		staleFactor = 1
	}
	return &SimulationHealthCheck{
		lastTick: lastTick,
		maxAge:   period * time.Duration(staleFactor),
		now:      time.Now,
	}
}

// Name returns the name of this health check.
func (c *SimulationHealthCheck) Name() string {
	return "simulation"
}

// Check verifies that a tick completed recently.
func (c *SimulationHealthCheck) Check(ctx context.Context) error {
	last := c.lastTick()
	if last.IsZero() {
		return fmt.Errorf("no simulation tick has completed")
	}
	if age := c.now().Sub(last); age > c.maxAge {
		return fmt.Errorf("last simulation tick was %v ago, limit %v", age.Round(time.Millisecond), c.maxAge)
	}
	return nil
}

// RunningHealthCheck fails while a component is not running.
type RunningHealthCheck struct {
	name    string
	running func() bool
}

// NewRunningHealthCheck creates a check named name backed by running.
func NewRunningHealthCheck(name string, running func() bool) *RunningHealthCheck {
	return &RunningHealthCheck{name: name, running: running}
}

// Name returns the name of this health check.
func (r *RunningHealthCheck) Name() string {
	return r.name
}

// Check verifies that the component is running.
func (r *RunningHealthCheck) Check(ctx context.Context) error {
	if !r.running() {
		return fmt.Errorf("%s is not running", r.name)
	}
	return nil
}

// BreakerHealthCheck fails while a circuit breaker is open.
type BreakerHealthCheck struct {
	name  string
	state func() gobreaker.State
}

// NewBreakerHealthCheck creates a check named name backed by a breaker state.
func NewBreakerHealthCheck(name string, state func() gobreaker.State) *BreakerHealthCheck {
	return &BreakerHealthCheck{name: name, state: state}
}

// Name returns the name of this health check.
func (b *BreakerHealthCheck) Name() string {
	return b.name
}

// Check verifies that the breaker lets requests through.
func (b *BreakerHealthCheck) Check(ctx context.Context) error {
	if st := b.state(); st == gobreaker.StateOpen {
		return fmt.Errorf("%s circuit breaker is %s", b.name, st)
	}
	return nil
}
