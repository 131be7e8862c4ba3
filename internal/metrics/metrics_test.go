package metrics

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"swipebraille/internal/keyboard"
)

func TestCounterAndGauge(t *testing.T) {
	r := NewRegistry("test")

	c := r.Counter("events_total", "Events", nil)
	c.Inc()
	c.Add(2)
	if c.Value() != 3 {
		t.Errorf("expected 3, got %d", c.Value())
	}
	if r.Counter("events_total", "Events", nil) != c {
		t.Error("re-registering should return the same counter")
	}
	if r.Counter("events_total", "Events", Labels{"k": "v"}) == c {
		t.Error("different labels should yield a different counter")
	}

	g := r.Gauge("depth", "Depth", nil)
	g.Set(5)
	g.Add(-2)
	if g.Value() != 3 {
		t.Errorf("expected 3, got %d", g.Value())
	}
}

func TestLabelsString(t *testing.T) {
	if s := (Labels{}).String(); s != "" {
		t.Errorf("empty labels should render empty, got %q", s)
	}
	got := Labels{"route": "/v1/resolve", "method": "POST"}.String()
	want := `{method="POST",route="/v1/resolve"}`
	if got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestHistogramBuckets(t *testing.T) {
	r := NewRegistry("")
	h := r.Histogram("latency", "Latency", nil, []float64{1, 0.125})

	h.Observe(0.0625)
	h.Observe(0.125)
	h.Observe(0.5)
	h.Observe(3)

	counts, sum, count := h.cumulative()
	if count != 4 || h.Count() != 4 {
		t.Fatalf("expected 4 observations, got %d", count)
	}
	if sum != 3.6875 {
		t.Errorf("expected sum 3.6875, got %v", sum)
	}
	// le=0.125, le=1, +Inf
	want := []uint64{2, 3, 4}
	for i := range want {
		if counts[i] != want[i] {
			t.Errorf("bucket %d: expected %d, got %d", i, want[i], counts[i])
		}
	}
}

func TestWritePrometheus(t *testing.T) {
	r := NewRegistry("swipebraille")
	r.Counter("chords_total", "Chords", Labels{"outcome": "resolved"}).Add(4)
	r.Counter("chords_total", "Chords", Labels{"outcome": "unmapped"}).Inc()
	r.Gauge("table_entries", "Entries", nil).Set(34)
	r.Histogram("latency_seconds", "Latency", Labels{"route": "/x"}, []float64{0.5}).Observe(0.25)

	var buf bytes.Buffer
	if err := r.WritePrometheus(&buf); err != nil {
		t.Fatal(err)
	}
	out := buf.String()

	for _, line := range []string{
		`swipebraille_chords_total{outcome="resolved"} 4`,
		`swipebraille_chords_total{outcome="unmapped"} 1`,
		`swipebraille_table_entries 34`,
		`swipebraille_latency_seconds_bucket{route="/x",le="0.5"} 1`,
		`swipebraille_latency_seconds_bucket{route="/x",le="+Inf"} 1`,
		`swipebraille_latency_seconds_count{route="/x"} 1`,
	} {
		if !strings.Contains(out, line+"\n") {
			t.Errorf("missing line %q in:\n%s", line, out)
		}
	}
	if n := strings.Count(out, "# TYPE swipebraille_chords_total counter"); n != 1 {
		t.Errorf("expected one TYPE line per family, got %d", n)
	}
}

func TestServiceMetrics(t *testing.T) {
	m := NewServiceMetrics(nil)
	m.ObserveChord(true)
	m.ObserveChord(true)
	m.ObserveChord(false)
	m.ObserveCommand(keyboard.CharacterCommand("a"))
	m.ObserveCommand(keyboard.ControlCommand(keyboard.DeleteBackward))
	m.ObserveRequest("GET", "/health", 200, 3*time.Millisecond)
	m.TableEntries.Set(34)

	if m.ChordsResolved.Value() != 2 || m.ChordsUnresolved.Value() != 1 {
		t.Errorf("unexpected chord counts %d/%d", m.ChordsResolved.Value(), m.ChordsUnresolved.Value())
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body := rec.Body.String()
	if !strings.Contains(body, `swipebraille_commands_total{kind="delete_backward"} 1`) {
		t.Errorf("missing command counter:\n%s", body)
	}
	if !strings.Contains(body, `swipebraille_http_requests_total{method="GET",route="/health",status="200"} 1`) {
		t.Errorf("missing request counter:\n%s", body)
	}
	if !strings.Contains(body, "# TYPE swipebraille_uptime_seconds gauge") {
		t.Errorf("missing uptime gauge:\n%s", body)
	}

	req := httptest.NewRequest("GET", "/metrics", nil)
	req.Header.Set("Accept", "application/json")
	rec = httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)

	var snap map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if snap["swipebraille_table_entries"] != float64(34) {
		t.Errorf("expected table_entries 34, got %v", snap["swipebraille_table_entries"])
	}
}
