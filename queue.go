package csmacd

// queue.go holds the NodeQueue, the per-node ordered buffer of pending
// transmission attempt times.  Collisions and carrier sensing rewrite the
// front of the buffer in place, so the underlying arrival process never
// has to be regenerated.
import (
	"golang.org/x/exp/slices"
)

// NoArrival is returned by PeekHead when a node has no further attempt
const NoArrival float64 = -1.0

// NodeQueue is the central data structure for one node's pending attempts
type NodeQueue struct {
	node     int       // position of the node on the bus
	capacity int       // maximum number of pending attempts
	inQ      []float64 // attempt times, weakly increasing

	collisions int // consecutive collisions suffered by the head frame
	busySenses int // consecutive busy senses of the head frame (non-persistent)
}

// CreateNodeQueue is a constructor
func CreateNodeQueue(node, capacity int) *NodeQueue {
	nq := new(NodeQueue)
	nq.node = node
	nq.capacity = capacity
	nq.inQ = make([]float64, 0)
	return nq
}

// Node returns the bus position the queue belongs to
func (nq *NodeQueue) Node() int {
	return nq.node
}

// Len returns the number of pending attempts
func (nq *NodeQueue) Len() int {
	return len(nq.inQ)
}

// Capacity returns the bound given at construction
func (nq *NodeQueue) Capacity() int {
	return nq.capacity
}

// Push adds an attempt time.  Times at or after the tail are appended,
// an earlier time is placed so the buffer stays ordered
func (nq *NodeQueue) Push(ts float64) error {
	if len(nq.inQ) >= nq.capacity {
		return &OverflowError{Node: nq.node, Capacity: nq.capacity}
	}
	n := len(nq.inQ)
	if n == 0 || nq.inQ[n-1] <= ts {
		nq.inQ = append(nq.inQ, ts)
		return nil
	}
	idx, _ := slices.BinarySearch(nq.inQ, ts)
	nq.inQ = slices.Insert(nq.inQ, idx, ts)
	return nil
}

// PeekHead gives the earliest pending attempt, or NoArrival if there is none
func (nq *NodeQueue) PeekHead() float64 {
	if len(nq.inQ) == 0 {
		return NoArrival
	}
	return nq.inQ[0]
}

// PopHead removes (and returns) the earliest pending attempt.
// Popping an empty queue is an engine bug and panics
func (nq *NodeQueue) PopHead() float64 {
	if len(nq.inQ) == 0 {
		panic(&EmptyQueueError{Node: nq.node, Op: "pop"})
	}
	var t float64
	t, nq.inQ = nq.inQ[0], nq.inQ[1:]
	return t
}

// AdvanceAllBelow moves every attempt at or before threshold to exactly
// threshold.  The node could not have used the medium before then, so it
// goes when the medium frees.  Entries above threshold are untouched.
func (nq *NodeQueue) AdvanceAllBelow(threshold float64) {
	// the buffer is ordered, so the affected entries form a prefix
	for idx := range nq.inQ {
		if nq.inQ[idx] > threshold {
			break
		}
		nq.inQ[idx] = threshold
	}
}

// Ordered reports whether the pending attempts are weakly increasing
func (nq *NodeQueue) Ordered() bool {
	return slices.IsSorted(nq.inQ)
}

// IncrementCollision bumps the collision counter and returns its new value
func (nq *NodeQueue) IncrementCollision() int {
	nq.collisions += 1
	return nq.collisions
}

// ResetCollision zeroes the collision counter
func (nq *NodeQueue) ResetCollision() {
	nq.collisions = 0
}

// CollisionCount returns the collision counter
func (nq *NodeQueue) CollisionCount() int {
	return nq.collisions
}

// IncrementBusy bumps the busy-sense counter and returns its new value
func (nq *NodeQueue) IncrementBusy() int {
	nq.busySenses += 1
	return nq.busySenses
}

// ResetBusy zeroes the busy-sense counter
func (nq *NodeQueue) ResetBusy() {
	nq.busySenses = 0
}

// BusyCount returns the busy-sense counter
func (nq *NodeQueue) BusyCount() int {
	return nq.busySenses
}
