package csmacd

// config.go holds the serializable descriptions of a simulation run and of a
// parameter sweep, with the functions that read them from and write them to
// yaml or json files.
import (
	"encoding/json"
	"fmt"
	"os"
	"path"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"
)

// SensingMode selects how a node reacts to a busy medium
type SensingMode int

const (
	Persistent SensingMode = iota
	NonPersistent
)

// BackoffAnchor selects the instant a collision backoff is measured from
type BackoffAnchor int

const (
	// AnchorFarthest measures a peer's backoff from when the selected node's
	// signal reached it, and the selected node's from the farthest such instant
	AnchorFarthest BackoffAnchor = iota

	// AnchorOwn measures every node's backoff from its own pending attempt time
	AnchorOwn
)

// CollisionCounting selects how often the selected node's collision
// counter moves when it collides with several peers at once
type CollisionCounting int

const (
	CountPerPeer CollisionCounting = iota
	CountPerStep
)

var sensingByName map[string]SensingMode = map[string]SensingMode{
	"": Persistent, "persistent": Persistent, "1-persistent": Persistent,
	"non-persistent": NonPersistent, "nonpersistent": NonPersistent}

var anchorByName map[string]BackoffAnchor = map[string]BackoffAnchor{
	"": AnchorFarthest, "farthest": AnchorFarthest, "farthest-collision": AnchorFarthest,
	"own": AnchorOwn}

var countingByName map[string]CollisionCounting = map[string]CollisionCounting{
	"": CountPerPeer, "per-peer": CountPerPeer, "per-step": CountPerStep}

var sensingToStr map[SensingMode]string = map[SensingMode]string{Persistent: "persistent", NonPersistent: "non-persistent"}
var anchorToStr map[BackoffAnchor]string = map[BackoffAnchor]string{AnchorFarthest: "farthest", AnchorOwn: "own"}
var countingToStr map[CollisionCounting]string = map[CollisionCounting]string{CountPerPeer: "per-peer", CountPerStep: "per-step"}

func (sm SensingMode) String() string       { return sensingToStr[sm] }
func (ba BackoffAnchor) String() string     { return anchorToStr[ba] }
func (cc CollisionCounting) String() string { return countingToStr[cc] }

// SimulationConfig describes one run of the bus.  Node positions are
// 0..Nodes-1, adjacent nodes NodeSpacing meters apart
type SimulationConfig struct {
	// seconds of arrivals generated per node
	Horizon float64 `json:"horizon" yaml:"horizon"`

	// frames per second arriving at each node
	ArrivalRate float64 `json:"arrivalrate" yaml:"arrivalrate"`

	// frame length in bits, and channel rate in bits per second
	FrameLen float64 `json:"framelen" yaml:"framelen"`
	BitRate  float64 `json:"bitrate" yaml:"bitrate"`

	Nodes int `json:"nodes" yaml:"nodes"`

	// meters between adjacent nodes, and signal speed in meters per second
	NodeSpacing float64 `json:"nodespacing" yaml:"nodespacing"`
	PropSpeed   float64 `json:"propspeed" yaml:"propspeed"`

	// bound on the pending attempts of one node
	QueueCapacity int `json:"queuecapacity" yaml:"queuecapacity"`

	// "exponential" or "constant"
	ArrivalDist string `json:"arrivaldist" yaml:"arrivaldist"`

	// "persistent" or "non-persistent"
	Sensing string `json:"sensing" yaml:"sensing"`

	// "farthest" or "own"
	BackoffAnchor string `json:"backoffanchor" yaml:"backoffanchor"`

	// "per-peer" or "per-step"
	CollisionCounting string `json:"collisioncounting" yaml:"collisioncounting"`

	// consecutive collisions after which a frame is dropped
	RetryCeiling int `json:"retryceiling" yaml:"retryceiling"`

	// bits in one backoff slot
	SlotBits float64 `json:"slotbits" yaml:"slotbits"`
}

// DefaultSimulationConfig gives classic 1 Mbps ethernet on a 20 node bus
func DefaultSimulationConfig() SimulationConfig {
	return SimulationConfig{
		Horizon:           1000.0,
		ArrivalRate:       12.0,
		FrameLen:          1500.0,
		BitRate:           1e6,
		Nodes:             20,
		NodeSpacing:       10.0,
		PropSpeed:         2e8,
		QueueCapacity:     1 << 20,
		ArrivalDist:       "exponential",
		Sensing:           "persistent",
		BackoffAnchor:     "farthest",
		CollisionCounting: "per-peer",
		RetryCeiling:      10,
		SlotBits:          512.0,
	}
}

// TProp is the delay for a signal to cross one node spacing
func (sc *SimulationConfig) TProp() float64 {
	return sc.NodeSpacing / sc.PropSpeed
}

// TTrans is the time to put one frame on the medium
func (sc *SimulationConfig) TTrans() float64 {
	return sc.FrameLen / sc.BitRate
}

// SensingMode decodes the Sensing field
func (sc *SimulationConfig) SensingMode() SensingMode {
	return sensingByName[sc.Sensing]
}

// Anchor decodes the BackoffAnchor field
func (sc *SimulationConfig) Anchor() BackoffAnchor {
	return anchorByName[sc.BackoffAnchor]
}

// Counting decodes the CollisionCounting field
func (sc *SimulationConfig) Counting() CollisionCounting {
	return countingByName[sc.CollisionCounting]
}

// Validate checks every parameter and reports all of the problems found
func (sc *SimulationConfig) Validate() error {
	var merr *multierror.Error
	bad := func(field, reason string) {
		merr = multierror.Append(merr, &ConfigError{Field: field, Reason: reason})
	}

	if !(sc.Horizon > 0.0) {
		bad("horizon", "must be positive")
	}
	if !(sc.ArrivalRate > 0.0) {
		bad("arrivalrate", "must be positive")
	}
	if !(sc.FrameLen > 0.0) {
		bad("framelen", "must be positive")
	}
	if !(sc.BitRate > 0.0) {
		bad("bitrate", "must be positive")
	}
	if sc.Nodes <= 0 {
		bad("nodes", "must be at least 1")
	}
	if !(sc.NodeSpacing >= 0.0) {
		bad("nodespacing", "must not be negative")
	}
	if !(sc.PropSpeed > 0.0) {
		bad("propspeed", "must be positive")
	}
	if sc.QueueCapacity <= 0 {
		bad("queuecapacity", "must be positive")
	}
	if sc.RetryCeiling <= 0 {
		bad("retryceiling", "must be positive")
	}
	if !(sc.SlotBits >= 0.0) {
		bad("slotbits", "must not be negative")
	}
	if !validArrivalDist(sc.ArrivalDist) {
		bad("arrivaldist", fmt.Sprintf("%q is not a known distribution", sc.ArrivalDist))
	}
	if _, present := sensingByName[sc.Sensing]; !present {
		bad("sensing", fmt.Sprintf("%q is not a sensing discipline", sc.Sensing))
	}
	if _, present := anchorByName[sc.BackoffAnchor]; !present {
		bad("backoffanchor", fmt.Sprintf("%q is not a backoff anchor", sc.BackoffAnchor))
	}
	if _, present := countingByName[sc.CollisionCounting]; !present {
		bad("collisioncounting", fmt.Sprintf("%q is not a counting rule", sc.CollisionCounting))
	}
	return merr.ErrorOrNil()
}

// WriteToFile stores the SimulationConfig struct to the file whose name is given.
// Serialization to json or to yaml is selected based on the extension of this name.
func (sc *SimulationConfig) WriteToFile(filename string) error {
	return writeDesc(filename, *sc)
}

// ReadSimulationConfig deserializes a byte slice holding a representation of a SimulationConfig.
// If the input argument of dict (those bytes) is empty, the file whose name is given is read
// to acquire them.  Fields absent from the input keep their default values.
func ReadSimulationConfig(filename string, useYAML bool, dict []byte) (*SimulationConfig, error) {
	example := DefaultSimulationConfig()
	if err := readDesc(filename, useYAML, dict, &example); err != nil {
		return nil, err
	}
	return &example, nil
}

// SweepCfg describes a family of runs: every node count paired with every
// arrival rate, each repeated Replications times on a fresh engine
type SweepCfg struct {
	// name of the experiment, used for rng stream names and traces
	ExpName string `json:"expname" yaml:"expname"`

	// parameters shared by every run; Nodes and ArrivalRate are overridden
	Base SimulationConfig `json:"base" yaml:"base"`

	NodeCounts   []int     `json:"nodecounts" yaml:"nodecounts"`
	ArrivalRates []float64 `json:"arrivalrates" yaml:"arrivalrates"`
	Replications int       `json:"replications" yaml:"replications"`
}

// DefaultSweepCfg covers 20 to 100 nodes at light, medium and heavy load
func DefaultSweepCfg() SweepCfg {
	return SweepCfg{
		ExpName:      "csmacd",
		Base:         DefaultSimulationConfig(),
		NodeCounts:   []int{20, 40, 60, 80, 100},
		ArrivalRates: []float64{7.0, 10.0, 20.0},
		Replications: 1,
	}
}

// Validate checks the sweep axes and the base parameters
func (sw *SweepCfg) Validate() error {
	var merr *multierror.Error
	if len(sw.NodeCounts) == 0 {
		merr = multierror.Append(merr, &ConfigError{Field: "nodecounts", Reason: "must not be empty"})
	}
	if len(sw.ArrivalRates) == 0 {
		merr = multierror.Append(merr, &ConfigError{Field: "arrivalrates", Reason: "must not be empty"})
	}
	if sw.Replications <= 0 {
		merr = multierror.Append(merr, &ConfigError{Field: "replications", Reason: "must be at least 1"})
	}

	// check each point of the sweep with the base parameters
	for _, n := range sw.NodeCounts {
		for _, rate := range sw.ArrivalRates {
			point := sw.Base
			point.Nodes = n
			point.ArrivalRate = rate
			if err := point.Validate(); err != nil {
				merr = multierror.Append(merr, fmt.Errorf("nodes=%d rate=%g: %w", n, rate, err))
			}
		}
	}
	return merr.ErrorOrNil()
}

// WriteToFile stores the SweepCfg struct to the file whose name is given.
func (sw *SweepCfg) WriteToFile(filename string) error {
	return writeDesc(filename, *sw)
}

// ReadSweepCfg deserializes a SweepCfg from dict, or from the named file when dict is empty
func ReadSweepCfg(filename string, useYAML bool, dict []byte) (*SweepCfg, error) {
	example := DefaultSweepCfg()
	if err := readDesc(filename, useYAML, dict, &example); err != nil {
		return nil, err
	}
	return &example, nil
}

// UseYAML tells whether a file name carries a yaml extension
func UseYAML(filename string) bool {
	ext := path.Ext(filename)
	return ext == ".yaml" || ext == ".YAML" || ext == ".yml"
}

// writeDesc serializes v as yaml or json, chosen by the extension of filename
func writeDesc(filename string, v any) (err error) {
	pathExt := path.Ext(filename)
	var bytes []byte

	switch pathExt {
	case ".yaml", ".YAML", ".yml":
		bytes, err = yaml.Marshal(v)
	case ".json", ".JSON":
		bytes, err = json.MarshalIndent(v, "", "\t")
	default:
		err = fmt.Errorf("%s: unrecognized extension %q", filename, pathExt)
	}
	if err != nil {
		return err
	}

	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			err = ReportErrs([]error{err, cerr})
		}
	}()

	_, err = f.Write(bytes)
	return err
}

// readDesc fills v from dict, reading dict from filename first if it is empty
func readDesc(filename string, useYAML bool, dict []byte, v any) error {
	var err error

	// if the dict slice of bytes is empty we get them from the file whose name is an argument
	if len(dict) == 0 {
		dict, err = os.ReadFile(filename)
		if err != nil {
			return err
		}
	}

	if useYAML {
		err = yaml.Unmarshal(dict, v)
	} else {
		err = json.Unmarshal(dict, v)
	}
	return err
}
