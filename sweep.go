package csmacd

// sweep.go runs a family of simulations across node counts and arrival
// rates.  Every run gets a freshly built engine with its own random
// streams; nothing carries over from one run to the next.

import (
	"context"
	"fmt"
	"math"

	"github.com/iti/csmacd/internal/logging"
	"github.com/iti/rngstream"
	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/stat"
)

// SweepPoint summarizes the replications run at one (nodes, rate) pair
type SweepPoint struct {
	Nodes        int     `json:"nodes" yaml:"nodes"`
	ArrivalRate  float64 `json:"arrivalrate" yaml:"arrivalrate"`
	OfferedLoad  float64 `json:"offeredload" yaml:"offeredload"` // N*A*L/R, fraction of channel capacity
	Replications int     `json:"replications" yaml:"replications"`

	EffMean float64 `json:"effmean" yaml:"effmean"`
	EffStd  float64 `json:"effstd" yaml:"effstd"`
	EffErr  float64 `json:"efferr" yaml:"efferr"`

	// throughput in bits per second
	ThrMean float64 `json:"thrmean" yaml:"thrmean"`
	ThrStd  float64 `json:"thrstd" yaml:"thrstd"`
	ThrErr  float64 `json:"threrr" yaml:"threrr"`

	// counters summed over the replications
	Metrics Metrics `json:"metrics" yaml:"metrics"`
}

// SweepOptions carries the optional sinks of a sweep
type SweepOptions struct {
	// receives every finished point, may be nil
	Collector *SweepCollector

	// traces the first run of the sweep, may be nil
	Trace *TraceManager
}

// RunSweep runs every point of sw in ascending order of node count, then
// arrival rate.  The logger is taken from ctx
func RunSweep(ctx context.Context, sw *SweepCfg, opts SweepOptions) ([]SweepPoint, error) {
	if err := sw.Validate(); err != nil {
		return nil, err
	}
	logger := logging.FromContext(ctx)

	nodeCounts := slices.Clone(sw.NodeCounts)
	slices.Sort(nodeCounts)
	rates := slices.Clone(sw.ArrivalRates)
	slices.Sort(rates)

	traced := false
	points := make([]SweepPoint, 0, len(nodeCounts)*len(rates))
	for _, n := range nodeCounts {
		for _, rate := range rates {
			cfg := sw.Base
			cfg.Nodes = n
			cfg.ArrivalRate = rate
			pointLog := logger.With(logging.Int("nodes", n), logging.Float("rate", rate))

			summaries := make([]RunSummary, 0, sw.Replications)
			for rep := 0; rep < sw.Replications; rep++ {
				if err := ctx.Err(); err != nil {
					return points, err
				}
				var tm *TraceManager
				if !traced {
					tm = opts.Trace
					traced = true
				}
				name := fmt.Sprintf("%s-n%d-a%g-r%d", sw.ExpName, n, rate, rep)
				summary, err := runOnce(ctx, cfg, name, tm, pointLog.With(logging.Int("rep", rep)))
				if err != nil {
					return points, fmt.Errorf("%s: %w", name, err)
				}
				summaries = append(summaries, summary)
			}

			point := summarizePoint(cfg, summaries)
			pointLog.Info(ctx, "sweep point", logging.Float("efficiency", point.EffMean),
				logging.Float("throughput", point.ThrMean))
			opts.Collector.Observe(point, cfg.SensingMode())
			points = append(points, point)
		}
	}
	return points, nil
}

// runOnce builds an engine on fresh random streams, runs it and releases it
func runOnce(ctx context.Context, cfg SimulationConfig, name string, tm *TraceManager,
	logger logging.Logger) (RunSummary, error) {

	arrivals := CreateArrivalGenerator(cfg.ArrivalDist, rngstream.New(name+"-arrivals"))
	eng, err := CreateEngine(cfg, arrivals, rngstream.New(name+"-backoff"))
	if err != nil {
		return RunSummary{}, err
	}
	defer eng.Release()
	eng.SetTrace(tm)

	rn := CreateRunner(eng)
	rn.SetLogger(logger)
	return rn.Run(ctx), nil
}

// summarizePoint folds the replications of one point into means and spreads
func summarizePoint(cfg SimulationConfig, summaries []RunSummary) SweepPoint {
	point := SweepPoint{
		Nodes:        cfg.Nodes,
		ArrivalRate:  cfg.ArrivalRate,
		OfferedLoad:  float64(cfg.Nodes) * cfg.ArrivalRate * cfg.FrameLen / cfg.BitRate,
		Replications: len(summaries),
	}

	effs := make([]float64, len(summaries))
	thrs := make([]float64, len(summaries))
	for idx, s := range summaries {
		effs[idx] = s.Efficiency
		thrs[idx] = s.Throughput
		point.Metrics.Attempted += s.Metrics.Attempted
		point.Metrics.Succeeded += s.Metrics.Succeeded
		point.Metrics.Dropped += s.Metrics.Dropped
		point.Metrics.Collisions += s.Metrics.Collisions
	}

	point.EffMean, point.EffStd, point.EffErr = spread(effs)
	point.ThrMean, point.ThrStd, point.ThrErr = spread(thrs)
	return point
}

// spread gives mean, sample standard deviation and standard error.
// A single sample has no spread
func spread(xs []float64) (float64, float64, float64) {
	if len(xs) == 0 {
		return 0.0, 0.0, 0.0
	}
	if len(xs) == 1 {
		return xs[0], 0.0, 0.0
	}
	mean, std := stat.MeanStdDev(xs, nil)
	return mean, std, std / math.Sqrt(float64(len(xs)))
}
