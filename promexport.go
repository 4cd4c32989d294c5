package csmacd

import (
	"fmt"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// SweepCollector exposes sweep results as Prometheus metrics, labeled by
// node count, arrival rate and sensing discipline.
type SweepCollector struct {
	gatherer prometheus.Gatherer

	Efficiency *prometheus.GaugeVec
	Throughput *prometheus.GaugeVec
	Attempts   *prometheus.CounterVec
	Successes  *prometheus.CounterVec
	Drops      *prometheus.CounterVec
	Collisions *prometheus.CounterVec
}

var sweepLabels []string = []string{"nodes", "rate", "sensing"}

// NewSweepCollector registers sweep metrics against the provided registerer,
// defaulting to the global Prometheus registry when nil.
func NewSweepCollector(reg prometheus.Registerer) (*SweepCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	efficiency, err := registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "csmacd_efficiency_ratio",
		Help: "Mean fraction of transmission attempts that succeeded.",
	}, sweepLabels), "csmacd_efficiency_ratio")
	if err != nil {
		return nil, err
	}

	throughput, err := registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "csmacd_throughput_bits_per_second",
		Help: "Mean delivered bits per second over the simulation horizon.",
	}, sweepLabels), "csmacd_throughput_bits_per_second")
	if err != nil {
		return nil, err
	}

	attempts, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "csmacd_attempts_total",
		Help: "Transmissions put on the medium, colliding ones included.",
	}, sweepLabels), "csmacd_attempts_total")
	if err != nil {
		return nil, err
	}

	successes, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "csmacd_successes_total",
		Help: "Transmissions committed without collision.",
	}, sweepLabels), "csmacd_successes_total")
	if err != nil {
		return nil, err
	}

	drops, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "csmacd_drops_total",
		Help: "Frames abandoned at the retry ceiling.",
	}, sweepLabels), "csmacd_drops_total")
	if err != nil {
		return nil, err
	}

	collisions, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "csmacd_collisions_total",
		Help: "Steps that resolved as a collision.",
	}, sweepLabels), "csmacd_collisions_total")
	if err != nil {
		return nil, err
	}

	return &SweepCollector{
		gatherer:   gatherer,
		Efficiency: efficiency,
		Throughput: throughput,
		Attempts:   attempts,
		Successes:  successes,
		Drops:      drops,
		Collisions: collisions,
	}, nil
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *SweepCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// Observe records one finished sweep point.
func (c *SweepCollector) Observe(point SweepPoint, sensing SensingMode) {
	if c == nil {
		return
	}
	labels := []string{strconv.Itoa(point.Nodes),
		strconv.FormatFloat(point.ArrivalRate, 'g', -1, 64), sensing.String()}

	c.Efficiency.WithLabelValues(labels...).Set(point.EffMean)
	c.Throughput.WithLabelValues(labels...).Set(point.ThrMean)
	c.Attempts.WithLabelValues(labels...).Add(float64(point.Metrics.Attempted))
	c.Successes.WithLabelValues(labels...).Add(float64(point.Metrics.Succeeded))
	c.Drops.WithLabelValues(labels...).Add(float64(point.Metrics.Dropped))
	c.Collisions.WithLabelValues(labels...).Add(float64(point.Metrics.Collisions))
}

// WriteToTextfile writes every gathered metric in the text exposition format.
func (c *SweepCollector) WriteToTextfile(filename string) error {
	if c == nil {
		return fmt.Errorf("no sweep collector")
	}
	return prometheus.WriteToTextfile(filename, c.gatherer)
}

func registerGaugeVec(reg prometheus.Registerer, gauge *prometheus.GaugeVec, name string) (*prometheus.GaugeVec, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.GaugeVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}

func registerCounterVec(reg prometheus.Registerer, counter *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}
