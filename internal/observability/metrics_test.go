package observability

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestCounter(t *testing.T) {
	r := NewMetricsRegistry()
	c := r.NewCounter("test_total", "A test counter.", nil)

	c.Inc()
	c.Add(2.5)
	if got := c.Value(); got != 3.5 {
		t.Errorf("expected 3.5, got %v", got)
	}
}

func TestGauge(t *testing.T) {
	r := NewMetricsRegistry()
	g := r.NewGauge("test_gauge", "A test gauge.", nil)

	g.Set(10)
	g.Inc()
	g.Dec()
	g.Add(-3)
	if got := g.Value(); got != 7 {
		t.Errorf("expected 7, got %v", got)
	}
}

func TestHistogram_Buckets(t *testing.T) {
	r := NewMetricsRegistry()
	h := r.NewHistogram("test_seconds", "A test histogram.", nil, []float64{0.1, 1, 10})

	h.Observe(0.05)
	h.Observe(0.5)
	h.Observe(100)

	if h.count != 3 {
		t.Errorf("expected count 3, got %d", h.count)
	}
	if h.counts[0] != 1 || h.counts[1] != 2 || h.counts[2] != 2 {
		t.Errorf("unexpected bucket counts %v", h.counts)
	}
	if h.sum < 100.54 || h.sum > 100.56 {
		t.Errorf("expected sum near 100.55, got %v", h.sum)
	}
}

func TestHistogram_ObserveDuration(t *testing.T) {
	r := NewMetricsRegistry()
	h := r.NewHistogram("test_seconds", "A test histogram.", nil, nil)

	h.ObserveDuration(time.Now().Add(-10 * time.Millisecond))
	if h.count != 1 {
		t.Errorf("expected one observation, got %d", h.count)
	}
	if h.sum <= 0 {
		t.Errorf("expected positive elapsed time, got %v", h.sum)
	}
}

func TestWritePrometheus(t *testing.T) {
	r := NewMetricsRegistry()
	c := r.NewCounter("zz_total", "Last alphabetically.", nil)
	c.Add(2)
	g := r.NewGauge("aa_gauge", "First alphabetically.", map[string]string{"project": "demo"})
	g.Set(1.5)
	h := r.NewHistogram("mid_seconds", "In between.", nil, []float64{1})
	h.Observe(0.5)

	rec := httptest.NewRecorder()
	r.WritePrometheus(rec)
	out := rec.Body.String()

	for _, want := range []string{
		"# HELP zz_total Last alphabetically.\n",
		"# TYPE zz_total counter\n",
		"zz_total 2\n",
		"# TYPE aa_gauge gauge\n",
		"aa_gauge{project=\"demo\"} 1.5\n",
		"# TYPE mid_seconds histogram\n",
		"mid_seconds_bucket{le=\"1\"} 1\n",
		"mid_seconds_bucket{le=\"+Inf\"} 1\n",
		"mid_seconds_sum 0.5\n",
		"mid_seconds_count 1\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestWritePrometheus_Deterministic(t *testing.T) {
	build := func() string {
		r := NewMetricsRegistry()
		r.NewCounter("b_total", "B.", nil).Inc()
		r.NewCounter("a_total", "A.", nil).Inc()
		r.NewGauge("g_gauge", "G.", nil).Set(4)
		rec := httptest.NewRecorder()
		r.WritePrometheus(rec)
		return rec.Body.String()
	}

	first, second := build(), build()
	if first != second {
		t.Errorf("output not deterministic:\n%s\nvs\n%s", first, second)
	}
	if strings.Index(first, "a_total") > strings.Index(first, "b_total") {
		t.Error("counters not sorted by name")
	}
}

func TestHandler(t *testing.T) {
	r := NewMetricsRegistry()
	r.NewCounter("x_total", "X.", nil).Inc()

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("unexpected content type %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "x_total 1\n") {
		t.Errorf("body missing metric:\n%s", rec.Body.String())
	}
}

func TestNewRunMetrics(t *testing.T) {
	r := NewMetricsRegistry()
	m := r.NewRunMetrics()

	m.RunsTotal.Inc()
	m.ModulesAnalyzed.Set(12)
	m.RunDuration.Observe(0.2)

	rec := httptest.NewRecorder()
	r.WritePrometheus(rec)
	out := rec.Body.String()

	for _, want := range []string{
		"caliper_runs_total 1\n",
		"caliper_modules_analyzed 12\n",
		"caliper_run_duration_seconds_count 1\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
}
