package csmacd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func reportPoints() []SweepPoint {
	return []SweepPoint{
		{Nodes: 20, ArrivalRate: 7.0, OfferedLoad: 0.21, EffMean: 0.91, ThrMean: 209000.0,
			Metrics: Metrics{Attempted: 100, Succeeded: 91}},
		{Nodes: 20, ArrivalRate: 10.0, OfferedLoad: 0.3, EffMean: 0.85, ThrMean: 295000.0,
			Metrics: Metrics{Attempted: 100, Succeeded: 85}},
		{Nodes: 40, ArrivalRate: 7.0, OfferedLoad: 0.42, EffMean: 0.7, ThrMean: 410000.0,
			Metrics: Metrics{Attempted: 100, Succeeded: 70, Dropped: 3}},
	}
}

func TestWriteSweepTable(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSweepTable(&buf, reportPoints()); err != nil {
		t.Fatalf("WriteSweepTable error: %v", err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("table has %d lines, want 4:\n%s", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], "efficiency") {
		t.Fatalf("header = %q", lines[0])
	}
	if !strings.Contains(lines[3], "0.7000") || !strings.Contains(lines[3], "40") {
		t.Fatalf("last row = %q", lines[3])
	}
}

func TestSweepPlotOneLinePerNodeCount(t *testing.T) {
	p, err := SweepPlot(reportPoints(), PlotThroughput)
	if err != nil {
		t.Fatalf("SweepPlot error: %v", err)
	}
	if p.Title.Text != "CSMA/CD throughput" {
		t.Fatalf("title = %q", p.Title.Text)
	}
	if p.Y.Max < 410000.0 {
		t.Fatalf("y axis tops out at %g, below the largest throughput", p.Y.Max)
	}
}

func TestSaveSweepPlot(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "eff.svg")
	if err := SaveSweepPlot(reportPoints(), PlotEfficiency, filename); err != nil {
		t.Fatalf("SaveSweepPlot error: %v", err)
	}
	info, err := os.Stat(filename)
	if err != nil {
		t.Fatalf("Stat error: %v", err)
	}
	if info.Size() == 0 {
		t.Fatalf("empty chart written")
	}
}
