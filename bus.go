package csmacd

import (
	"fmt"
)

// BusState is the condition of the shared medium
type BusState int

const (
	BusIdle BusState = iota
	BusBusy
)

var busStateToStr map[BusState]string = map[BusState]string{BusIdle: "idle", BusBusy: "busy"}

func (bs BusState) String() string {
	return busStateToStr[bs]
}

// SharedBus is the medium every node transmits on.  When busy it
// remembers which node is sending and when its frame started
type SharedBus struct {
	state  BusState
	sender int
	start  float64
}

// BusStatus is a read-only copy of the bus
type BusStatus struct {
	State  BusState
	Sender int
	Start  float64
}

// CreateSharedBus is a constructor.  The bus starts idle
func CreateSharedBus() *SharedBus {
	return &SharedBus{state: BusIdle, sender: -1}
}

// Busy tells whether a transmission is in flight
func (sb *SharedBus) Busy() bool {
	return sb.state == BusBusy
}

// Occupy commits node sender's frame starting at start.
// The bus carries one committed frame at a time
func (sb *SharedBus) Occupy(sender int, start float64) {
	if sb.state == BusBusy {
		panic(fmt.Errorf("bus occupied by node %d when node %d committed", sb.sender, sender))
	}
	sb.state = BusBusy
	sb.sender = sender
	sb.start = start
}

// Release returns the bus to idle and gives back who was sending and since when
func (sb *SharedBus) Release() (int, float64) {
	if sb.state != BusBusy {
		panic(fmt.Errorf("release of idle bus"))
	}
	sender, start := sb.sender, sb.start
	sb.state = BusIdle
	sb.sender = -1
	sb.start = 0.0
	return sender, start
}

// Status copies out the bus state
func (sb *SharedBus) Status() BusStatus {
	return BusStatus{State: sb.state, Sender: sb.sender, Start: sb.start}
}

// ClearanceTime is when a frame that started at start has fully passed a
// point hops node spacings from its sender
func ClearanceTime(start, tTrans, tProp float64, hops int) float64 {
	return start + tTrans + tProp*float64(hops)
}
