package csmacd

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/iti/csmacd/internal/logging"
)

func TestRunnerStopsWhenExhausted(t *testing.T) {
	cfg := testConfig(1)
	eng := buildEngine(t, cfg, []float64{2.0, past}, 0.5)

	var buf bytes.Buffer
	rn := CreateRunner(eng)
	rn.SetLogger(logging.New(logging.Config{Level: "debug", Format: "json", Output: &buf}))
	summary := rn.Run(context.Background())

	if summary.Reason != StopTerminal {
		t.Fatalf("Reason = %v, want terminal", summary.Reason)
	}
	if summary.Steps != 1 || summary.FinalTime != 2.0 {
		t.Fatalf("summary = %+v, want one step ending at 2.0", summary)
	}
	if summary.Efficiency != 1.0 {
		t.Fatalf("Efficiency = %g, want 1", summary.Efficiency)
	}
	if want := cfg.FrameLen / cfg.Horizon; summary.Throughput != want {
		t.Fatalf("Throughput = %g, want %g", summary.Throughput, want)
	}
	if !strings.Contains(buf.String(), `"msg":"run finished"`) {
		t.Fatalf("run not logged: %s", buf.String())
	}
}

func TestRunnerHonorsCancellation(t *testing.T) {
	eng := buildEngine(t, testConfig(2), []float64{1.0, past}, 0.5)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary := CreateRunner(eng).Run(ctx)
	if summary.Reason != StopCancelled || summary.Steps != 0 {
		t.Fatalf("summary = %+v, want cancelled before any step", summary)
	}
}

func TestRunnerMatchesDirectStepping(t *testing.T) {
	cfg := testConfig(3)
	gaps := []float64{1.0, 1.0, past, 1.0005, past, 3.0, past}

	direct := buildEngine(t, cfg, gaps, 0.5)
	steps := 0
	for !direct.Step().Terminal() {
		steps += 1
	}

	summary := CreateRunner(buildEngine(t, cfg, gaps, 0.5)).Run(context.Background())
	if summary.Steps != steps {
		t.Fatalf("runner took %d steps, direct stepping %d", summary.Steps, steps)
	}
	if summary.Metrics != direct.Metrics() {
		t.Fatalf("runner metrics %+v, direct %+v", summary.Metrics, direct.Metrics())
	}
}

func TestRunnerLogsCollisionPeers(t *testing.T) {
	cfg := testConfig(2)
	cfg.NodeSpacing = 0.0
	eng := buildEngine(t, cfg, []float64{5.0, past}, 0.0)

	var buf bytes.Buffer
	rn := CreateRunner(eng)
	rn.SetLogger(logging.New(logging.Config{Level: "debug", Format: "json", Output: &buf}))
	summary := rn.Run(context.Background())

	if summary.Steps != cfg.RetryCeiling || summary.Metrics.Dropped != 2 {
		t.Fatalf("summary = %+v, want %d collision steps and two drops", summary, cfg.RetryCeiling)
	}
	out := buf.String()
	if !strings.Contains(out, `"peers":[1]`) || !strings.Contains(out, `"dropped":[1,0]`) {
		t.Fatalf("collision steps not logged with peers and drops:\n%s", out)
	}
}
