package csmacd

import (
	"fmt"
	"strconv"

	"github.com/iti/evt/vrtime"
	"gopkg.in/yaml.v3"
)

// TraceOp names what happened to a node in one traced event
type TraceOp int

const (
	OpCommit TraceOp = iota
	OpCollision
	OpBackoff
	OpDrop
	OpDefer
	OpClear
)

var traceOpToStr map[TraceOp]string = map[TraceOp]string{OpCommit: "commit", OpCollision: "collision",
	OpBackoff: "backoff", OpDrop: "drop", OpDefer: "defer", OpClear: "clear"}

func (op TraceOp) String() string {
	return traceOpToStr[op]
}

// busTraceID is the trace key under which bus clearing events are stored
const busTraceID int = -1

type TraceInst struct {
	TraceTime string `json:"tracetime" yaml:"tracetime"`
	TraceType string `json:"tracetype" yaml:"tracetype"`
	TraceStr  string `json:"tracestr" yaml:"tracestr"`
}

// NameType is a an entry in a dictionary created for a trace
// that maps object id numbers to a (name,type) pair
type NameType struct {
	Name string `json:"name" yaml:"name"`
	Type string `json:"type" yaml:"type"`
}

// TraceManager gathers a record of what each node did during one run
type TraceManager struct {
	// experiment uses trace
	InUse bool `json:"inuse" yaml:"inuse"`

	// name of experiment
	ExpName string `json:"expname" yaml:"expname"`

	// text name associated with each node id (and the bus)
	NameByID map[int]NameType `json:"namebyid" yaml:"namebyid"`

	// all trace records for this experiment, by node id
	Traces map[int][]TraceInst `json:"traces" yaml:"traces"`
}

// CreateTraceManager is a constructor.  It saves the name of the experiment
// and a flag indicating whether the trace manager is active.  By testing this
// flag we can inhibit the activity of gathering a trace when we don't want it,
// while embedding calls to its methods everywhere we need them when it is
func CreateTraceManager(expName string, active bool) *TraceManager {
	tm := new(TraceManager)
	tm.InUse = active
	tm.ExpName = expName
	tm.NameByID = make(map[int]NameType)
	tm.Traces = make(map[int][]TraceInst)
	return tm
}

// Active tells the caller whether the Trace Manager is actively being used
func (tm *TraceManager) Active() bool {
	return tm != nil && tm.InUse
}

// AddTrace stores a trace record under the given id
func (tm *TraceManager) AddTrace(vrt vrtime.Time, id int, trace TraceInst) {
	if !tm.Active() {
		return
	}
	tm.Traces[id] = append(tm.Traces[id], trace)
}

// AddName is used to add an element to the id -> (name,type) dictionary for the trace file
func (tm *TraceManager) AddName(id int, name string, objDesc string) {
	if !tm.Active() {
		return
	}
	if _, present := tm.NameByID[id]; present {
		panic(fmt.Errorf("duplicated id %d in AddName", id))
	}
	tm.NameByID[id] = NameType{Name: name, Type: objDesc}
}

// WriteToFile stores the Traces struct to the file whose name is given.
// Serialization to json or to yaml is selected based on the extension of this name.
// Nothing is written for an inactive manager.
func (tm *TraceManager) WriteToFile(filename string) error {
	if !tm.Active() {
		return nil
	}
	return writeDesc(filename, *tm)
}

// ReadTraceManager restores a trace written by WriteToFile
func ReadTraceManager(filename string, useYAML bool, dict []byte) (*TraceManager, error) {
	tm := CreateTraceManager("", true)
	if err := readDesc(filename, useYAML, dict, tm); err != nil {
		return nil, err
	}
	return tm, nil
}

// BusTrace saves what happened to one node at one simulation time
type BusTrace struct {
	Time    float64 `json:"time" yaml:"time"`
	Ticks   int64   `json:"ticks" yaml:"ticks"`
	Node    int     `json:"node" yaml:"node"`
	Op      string  `json:"op" yaml:"op"`
	Peers   []int   `json:"peers,omitempty" yaml:"peers,omitempty"`
	Counter int     `json:"counter" yaml:"counter"`
	Until   float64 `json:"until,omitempty" yaml:"until,omitempty"` // deferred-to time for backoff and defer
}

func (btr *BusTrace) Serialize() string {
	bytes, merr := yaml.Marshal(*btr)
	if merr != nil {
		panic(merr)
	}
	return string(bytes[:])
}

// AddBusTrace creates a record of the trace using its calling arguments, and stores it
// under the node's id (bus clearing under the bus's id)
func AddBusTrace(tm *TraceManager, t float64, node int, op TraceOp, peers []int, counter int, until float64) {
	if !tm.Active() {
		return
	}
	vrt := vrtime.SecondsToTime(t)
	btr := &BusTrace{Time: t, Ticks: vrt.Ticks(), Node: node, Op: op.String(),
		Peers: peers, Counter: counter, Until: until}

	id := node
	if op == OpClear {
		id = busTraceID
	}
	traceTime := strconv.FormatFloat(t, 'f', -1, 64)
	tm.AddTrace(vrt, id, TraceInst{TraceTime: traceTime, TraceType: "bus", TraceStr: btr.Serialize()})
}
