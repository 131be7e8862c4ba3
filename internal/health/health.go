// Package health aggregates component checks for the decode service.
//
// Features:
//   - Liveness probe (is the process serving)
//   - Readiness probe (has startup finished)
//   - Per-component status with critical and non-critical components
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sort"
	"sync"
	"time"
)

// Status represents the health status of a component.
type Status string

const (
	// StatusHealthy indicates the component is healthy.
	StatusHealthy Status = "healthy"
	// StatusDegraded indicates the component is degraded but functional.
	StatusDegraded Status = "degraded"
	// StatusUnhealthy indicates the component is unhealthy.
	StatusUnhealthy Status = "unhealthy"
)

// CheckResult represents the result of a health check.
type CheckResult struct {
	Status   Status         `json:"status"`
	Message  string         `json:"message,omitempty"`
	Details  map[string]any `json:"details,omitempty"`
	Duration time.Duration  `json:"duration_ns"`
	Error    string         `json:"error,omitempty"`
}

// Check is a function that performs a health check.
type Check func(ctx context.Context) CheckResult

type component struct {
	name     string
	critical bool
	check    Check
}

// Checker manages health checks.
type Checker struct {
	mu         sync.RWMutex
	components []component
	timeout    time.Duration
	started    time.Time
	ready      bool
}

// NewChecker creates a Checker whose checks each get timeout to finish.
func NewChecker(timeout time.Duration) *Checker {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Checker{timeout: timeout, started: time.Now()}
}

// Register adds a check. A failing critical check makes the whole service
// unhealthy; a failing non-critical one only degrades it.
func (c *Checker) Register(name string, critical bool, check Check) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.components = append(c.components, component{name: name, critical: critical, check: check})
}

// SetReady sets the readiness state.
func (c *Checker) SetReady(ready bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ready = ready
}

// IsReady returns the readiness state.
func (c *Checker) IsReady() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ready
}

func (c *Checker) run(ctx context.Context, comp component) (result CheckResult) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			result = CheckResult{Status: StatusUnhealthy, Message: "check panicked", Error: fmt.Sprint(r)}
		}
		result.Duration = time.Since(start)
	}()
	return comp.check(ctx)
}

// Report is the aggregated outcome of one round of checks.
type Report struct {
	Status     Status                 `json:"status"`
	Ready      bool                   `json:"ready"`
	Uptime     string                 `json:"uptime"`
	Components map[string]CheckResult `json:"components,omitempty"`
}

// Run executes every check in registration order and aggregates them.
func (c *Checker) Run(ctx context.Context) Report {
	c.mu.RLock()
	components := append([]component(nil), c.components...)
	ready := c.ready
	c.mu.RUnlock()

	report := Report{
		Status:     StatusHealthy,
		Ready:      ready,
		Uptime:     time.Since(c.started).Truncate(time.Second).String(),
		Components: make(map[string]CheckResult, len(components)),
	}
	for _, comp := range components {
		res := c.run(ctx, comp)
		report.Components[comp.name] = res

		switch {
		case res.Status == StatusHealthy:
		case comp.critical && res.Status == StatusUnhealthy:
			report.Status = StatusUnhealthy
		case report.Status == StatusHealthy:
			report.Status = StatusDegraded
		}
	}
	return report
}

// Names lists registered components, sorted.
func (c *Checker) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.components))
	for _, comp := range c.components {
		names = append(names, comp.name)
	}
	sort.Strings(names)
	return names
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// Handler serves the aggregated report. Component detail is included
// when the query has full=true. Only an unhealthy service answers 503.
func (c *Checker) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		report := c.Run(r.Context())
		if r.URL.Query().Get("full") != "true" {
			report.Components = nil
		}
		status := http.StatusOK
		if report.Status == StatusUnhealthy {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, report)
	})
}

// LivenessHandler answers as long as the process can serve requests.
func (c *Checker) LivenessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "alive"})
	})
}

// ReadinessHandler answers 503 until SetReady(true) and while any critical
// check fails.
func (c *Checker) ReadinessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !c.IsReady() {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "not ready", "ready": false})
			return
		}
		report := c.Run(r.Context())
		status := http.StatusOK
		if report.Status == StatusUnhealthy {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, map[string]any{"status": report.Status, "ready": true})
	})
}

// FileCheck reports whether path exists and is a regular file.
func FileCheck(path string) Check {
	return func(ctx context.Context) CheckResult {
		info, err := os.Stat(path)
		if err != nil {
			return CheckResult{Status: StatusUnhealthy, Message: "file unavailable", Error: err.Error(),
				Details: map[string]any{"path": path}}
		}
		if !info.Mode().IsRegular() {
			return CheckResult{Status: StatusUnhealthy, Message: "not a regular file",
				Details: map[string]any{"path": path}}
		}
		return CheckResult{Status: StatusHealthy, Details: map[string]any{"path": path, "size": info.Size()}}
	}
}

// CountCheck degrades when count returns zero, as for an empty mapping table.
func CountCheck(what string, count func() int) Check {
	return func(ctx context.Context) CheckResult {
		n := count()
		if n == 0 {
			return CheckResult{Status: StatusDegraded, Message: what + " is empty",
				Details: map[string]any{"count": 0}}
		}
		return CheckResult{Status: StatusHealthy, Details: map[string]any{"count": n}}
	}
}
