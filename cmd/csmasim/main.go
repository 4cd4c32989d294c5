package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/iti/csmacd"
	"github.com/iti/csmacd/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	cfgFile := flag.String("cfg", "", "sweep description file (.yaml, .yml or .json); built-in defaults when empty")
	nodes := flag.String("nodes", "", "comma separated node counts, overriding the sweep file")
	rates := flag.String("rates", "", "comma separated per-node arrival rates (frames/s), overriding the sweep file")
	horizon := flag.Float64("horizon", 0.0, "simulated seconds of arrivals per run, overriding the sweep file")
	sensing := flag.String("sensing", "", "carrier sensing discipline: persistent or non-persistent")
	reps := flag.Int("reps", 0, "replications per sweep point, overriding the sweep file")
	traceFile := flag.String("trace", "", "write a trace of the first run to this file (.yaml or .json)")
	plotFile := flag.String("plot", "", "write an efficiency chart to this file (.png, .svg, .pdf)")
	thrPlotFile := flag.String("plot-throughput", "", "write a throughput chart to this file")
	promFile := flag.String("prom", "", "write sweep results in Prometheus text format to this file")
	logLevel := flag.String("log-level", "", "debug, info, warn or error; LOG_LEVEL when empty")
	logFormat := flag.String("log-format", "", "text or json; LOG_FORMAT when empty")

	flag.Parse()

	logger := newLogger(*logLevel, *logFormat)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logging.ContextWithLogger(ctx, logger)

	if err := run(ctx, logger, options{
		cfgFile:     *cfgFile,
		nodes:       *nodes,
		rates:       *rates,
		horizon:     *horizon,
		sensing:     *sensing,
		reps:        *reps,
		traceFile:   *traceFile,
		plotFile:    *plotFile,
		thrPlotFile: *thrPlotFile,
		promFile:    *promFile,
	}); err != nil {
		logger.Error(ctx, "csmasim failed", logging.String("error", err.Error()))
		os.Exit(1)
	}
}

type options struct {
	cfgFile     string
	nodes       string
	rates       string
	horizon     float64
	sensing     string
	reps        int
	traceFile   string
	plotFile    string
	thrPlotFile string
	promFile    string
}

func run(ctx context.Context, logger logging.Logger, opts options) error {
	sw, err := loadSweep(opts)
	if err != nil {
		return err
	}

	var sweepOpts csmacd.SweepOptions
	if opts.traceFile != "" {
		sweepOpts.Trace = csmacd.CreateTraceManager(sw.ExpName, true)
	}
	if opts.promFile != "" {
		collector, err := csmacd.NewSweepCollector(prometheus.NewRegistry())
		if err != nil {
			return err
		}
		sweepOpts.Collector = collector
	}

	points, err := csmacd.RunSweep(ctx, sw, sweepOpts)
	if err != nil {
		return err
	}

	if err := csmacd.WriteSweepTable(os.Stdout, points); err != nil {
		return err
	}

	var errs []error
	if opts.traceFile != "" {
		errs = append(errs, sweepOpts.Trace.WriteToFile(opts.traceFile))
	}
	if opts.plotFile != "" {
		errs = append(errs, csmacd.SaveSweepPlot(points, csmacd.PlotEfficiency, opts.plotFile))
	}
	if opts.thrPlotFile != "" {
		errs = append(errs, csmacd.SaveSweepPlot(points, csmacd.PlotThroughput, opts.thrPlotFile))
	}
	if opts.promFile != "" {
		errs = append(errs, sweepOpts.Collector.WriteToTextfile(opts.promFile))
	}
	if err := csmacd.ReportErrs(errs); err != nil {
		return err
	}
	logger.Info(ctx, "sweep complete", logging.Int("points", len(points)))
	return nil
}

// newLogger builds the logger from the flags, or from the environment when
// neither flag is given
func newLogger(level, format string) logging.Logger {
	if level == "" && format == "" {
		return logging.NewFromEnv()
	}
	return logging.New(logging.Config{Level: level, Format: format})
}

// loadSweep reads the sweep file, if any, and applies the command line overrides
func loadSweep(opts options) (*csmacd.SweepCfg, error) {
	sw := csmacd.DefaultSweepCfg()
	if opts.cfgFile != "" {
		read, err := csmacd.ReadSweepCfg(opts.cfgFile, csmacd.UseYAML(opts.cfgFile), nil)
		if err != nil {
			return nil, err
		}
		sw = *read
	}

	if opts.nodes != "" {
		counts, err := parseList(opts.nodes, strconv.Atoi)
		if err != nil {
			return nil, fmt.Errorf("-nodes: %w", err)
		}
		sw.NodeCounts = counts
	}
	if opts.rates != "" {
		rs, err := parseList(opts.rates, func(s string) (float64, error) { return strconv.ParseFloat(s, 64) })
		if err != nil {
			return nil, fmt.Errorf("-rates: %w", err)
		}
		sw.ArrivalRates = rs
	}
	if opts.horizon > 0.0 {
		sw.Base.Horizon = opts.horizon
	}
	if opts.sensing != "" {
		sw.Base.Sensing = opts.sensing
	}
	if opts.reps > 0 {
		sw.Replications = opts.reps
	}
	if err := sw.Validate(); err != nil {
		return nil, err
	}
	return &sw, nil
}

func parseList[T any](s string, parse func(string) (T, error)) ([]T, error) {
	var out []T
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		v, err := parse(field)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
