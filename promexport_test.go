package csmacd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSweepCollectorObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewSweepCollector(reg)
	if err != nil {
		t.Fatalf("NewSweepCollector error: %v", err)
	}

	point := SweepPoint{Nodes: 20, ArrivalRate: 7.0, EffMean: 0.8, ThrMean: 150000.0,
		Metrics: Metrics{Attempted: 10, Succeeded: 8, Dropped: 1, Collisions: 2}}
	collector.Observe(point, NonPersistent)
	collector.Observe(point, NonPersistent)

	labels := []string{"20", "7", "non-persistent"}
	if got := testutil.ToFloat64(collector.Efficiency.WithLabelValues(labels...)); got != 0.8 {
		t.Fatalf("efficiency = %g, want 0.8", got)
	}
	if got := testutil.ToFloat64(collector.Attempts.WithLabelValues(labels...)); got != 20.0 {
		t.Fatalf("attempts = %g, want 20", got)
	}
	if got := testutil.ToFloat64(collector.Drops.WithLabelValues(labels...)); got != 2.0 {
		t.Fatalf("drops = %g, want 2", got)
	}
	if collector.Gatherer() != prometheus.Gatherer(reg) {
		t.Fatalf("Gatherer is not the registry passed in")
	}
}

func TestSweepCollectorReusesRegistered(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewSweepCollector(reg)
	if err != nil {
		t.Fatalf("first NewSweepCollector error: %v", err)
	}
	second, err := NewSweepCollector(reg)
	if err != nil {
		t.Fatalf("second NewSweepCollector error: %v", err)
	}
	if first.Successes != second.Successes {
		t.Fatalf("second collector did not reuse the registered counter")
	}
}

func TestNilSweepCollector(t *testing.T) {
	var collector *SweepCollector
	collector.Observe(SweepPoint{}, Persistent)
	if collector.Gatherer() != nil {
		t.Fatalf("nil collector has a gatherer")
	}
	if err := collector.WriteToTextfile(filepath.Join(t.TempDir(), "x.prom")); err == nil {
		t.Fatalf("expected an error writing from a nil collector")
	}
}

func TestSweepCollectorTextfile(t *testing.T) {
	collector, err := NewSweepCollector(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("NewSweepCollector error: %v", err)
	}
	collector.Observe(SweepPoint{Nodes: 2, ArrivalRate: 10.0, EffMean: 0.5,
		Metrics: Metrics{Attempted: 4, Succeeded: 2}}, Persistent)

	filename := filepath.Join(t.TempDir(), "sweep.prom")
	if err := collector.WriteToTextfile(filename); err != nil {
		t.Fatalf("WriteToTextfile error: %v", err)
	}
	body, err := os.ReadFile(filename)
	if err != nil {
		t.Fatalf("ReadFile error: %v", err)
	}
	if !strings.Contains(string(body), `csmacd_successes_total{nodes="2",rate="10",sensing="persistent"} 2`) {
		t.Fatalf("textfile missing successes sample:\n%s", body)
	}
}
