package csmacd

// report.go turns sweep points into a text table and into charts of
// efficiency or throughput against arrival rate, one line per node count.

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// WriteSweepTable writes one aligned row per sweep point
func WriteSweepTable(w io.Writer, points []SweepPoint) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "N\tA\tload\tefficiency\t±\tthroughput(bps)\t±\tattempted\tsucceeded\tdropped\t")
	for _, pt := range points {
		fmt.Fprintf(tw, "%d\t%g\t%.3f\t%.4f\t%.4f\t%.1f\t%.1f\t%d\t%d\t%d\t\n",
			pt.Nodes, pt.ArrivalRate, pt.OfferedLoad, pt.EffMean, pt.EffErr,
			pt.ThrMean, pt.ThrErr, pt.Metrics.Attempted, pt.Metrics.Succeeded, pt.Metrics.Dropped)
	}
	return tw.Flush()
}

// PlotMetric selects what a sweep chart shows on its y axis
type PlotMetric int

const (
	PlotEfficiency PlotMetric = iota
	PlotThroughput
)

// SweepPlot builds a chart of the chosen metric against arrival rate,
// with one line for every node count in points
func SweepPlot(points []SweepPoint, metric PlotMetric) (*plot.Plot, error) {
	p := plot.New()
	p.X.Label.Text = "arrival rate (frames/s per node)"
	switch metric {
	case PlotThroughput:
		p.Title.Text = "CSMA/CD throughput"
		p.Y.Label.Text = "throughput (bits/s)"
	default:
		p.Title.Text = "CSMA/CD efficiency"
		p.Y.Label.Text = "efficiency"
	}

	// keep the node counts in the order the points came
	var order []int
	byNodes := make(map[int]plotter.XYs)
	for _, pt := range points {
		if _, present := byNodes[pt.Nodes]; !present {
			order = append(order, pt.Nodes)
		}
		y := pt.EffMean
		if metric == PlotThroughput {
			y = pt.ThrMean
		}
		byNodes[pt.Nodes] = append(byNodes[pt.Nodes], plotter.XY{X: pt.ArrivalRate, Y: y})
	}

	for idx, n := range order {
		line, pts, err := plotter.NewLinePoints(byNodes[n])
		if err != nil {
			return nil, err
		}
		line.Color = plotutil.Color(idx)
		pts.Color = plotutil.Color(idx)
		pts.Shape = plotutil.Shape(idx)
		p.Add(line, pts)
		p.Legend.Add(fmt.Sprintf("N=%d", n), line, pts)
	}
	return p, nil
}

// SaveSweepPlot writes the chart to path.  The image format follows the
// extension (png, svg, pdf, ...)
func SaveSweepPlot(points []SweepPoint, metric PlotMetric, path string) error {
	p, err := SweepPlot(points, metric)
	if err != nil {
		return err
	}
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if format == "" {
		format = "png"
	}
	w, err := p.WriterTo(6*vg.Inch, 4*vg.Inch, format)
	if err != nil {
		return err
	}

	output, err := os.Create(path)
	if err != nil {
		return err
	}
	_, err = w.WriteTo(output)
	return ReportErrs([]error{err, output.Close()})
}
