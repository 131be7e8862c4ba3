package metrics

import (
	"net/http"
	"strconv"
	"time"

	"swipebraille/internal/keyboard"
)

// ServiceMetrics holds the decode service's metrics.
type ServiceMetrics struct {
	registry *Registry
	start    time.Time

	ChordsResolved   *Counter
	ChordsUnresolved *Counter
	Replays          *Counter
	ReplayFailures   *Counter
	TableReloads     *Counter

	TableEntries *Gauge
}

// NewServiceMetrics registers the service metrics in registry, or in a
// fresh "swipebraille" registry when nil.
func NewServiceMetrics(registry *Registry) *ServiceMetrics {
	if registry == nil {
		registry = NewRegistry("swipebraille")
	}
	return &ServiceMetrics{
		registry: registry,
		start:    time.Now(),

		ChordsResolved: registry.Counter("chords_total",
			"Chords looked up, by outcome", Labels{"outcome": "resolved"}),
		ChordsUnresolved: registry.Counter("chords_total",
			"Chords looked up, by outcome", Labels{"outcome": "unmapped"}),
		Replays: registry.Counter("replays_total",
			"Traces replayed", nil),
		ReplayFailures: registry.Counter("replay_failures_total",
			"Traces rejected or failed during replay", nil),
		TableReloads: registry.Counter("table_reloads_total",
			"Mapping table swaps since start", nil),
		TableEntries: registry.Gauge("table_entries",
			"Entries in the active mapping table", nil),
	}
}

// Registry returns the underlying registry.
func (m *ServiceMetrics) Registry() *Registry {
	return m.registry
}

// ObserveChord counts one lookup.
func (m *ServiceMetrics) ObserveChord(resolved bool) {
	if resolved {
		m.ChordsResolved.Inc()
		return
	}
	m.ChordsUnresolved.Inc()
}

// ObserveCommand counts one command emitted during replay.
func (m *ServiceMetrics) ObserveCommand(c keyboard.Command) {
	m.registry.Counter("commands_total", "Text commands emitted during replay, by kind",
		Labels{"kind": c.Kind.String()}).Inc()
}

// ObserveRequest records a finished HTTP request. route is the matched
// route template, not the raw path.
func (m *ServiceMetrics) ObserveRequest(method, route string, status int, d time.Duration) {
	m.registry.Counter("http_requests_total", "HTTP requests, by route and status",
		Labels{"method": method, "route": route, "status": strconv.Itoa(status)}).Inc()
	m.registry.Histogram("http_request_duration_seconds", "HTTP request latency",
		Labels{"route": route}, DurationBuckets).ObserveDuration(d)
}

// Handler serves the registry with an up-to-date uptime gauge.
func (m *ServiceMetrics) Handler() http.Handler {
	uptime := m.registry.Gauge("uptime_seconds", "Seconds since the service started", nil)
	inner := m.registry.HTTPHandler()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uptime.Set(int64(time.Since(m.start).Seconds()))
		inner.ServeHTTP(w, r)
	})
}
