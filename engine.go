package csmacd

// engine.go holds the Engine, which advances a simulated CSMA/CD bus by one
// resolved event per call to Step.  Nodes sit at positions 0..N-1 of a
// linear medium, so a signal from node m reaches node i after
// tProp*|m-i| seconds.  An attempt by m at time t collides with node i
// when i's own pending attempt is no later than the instant m's signal
// reaches it; i could not yet have sensed m's carrier.

import (
	"fmt"
)

// Outcome classifies what a Step resolved
type Outcome int

const (
	OutcomeCommit Outcome = iota
	OutcomeCollision
	OutcomeTerminal
)

var outcomeToStr map[Outcome]string = map[Outcome]string{OutcomeCommit: "commit",
	OutcomeCollision: "collision", OutcomeTerminal: "terminal"}

func (oc Outcome) String() string {
	return outcomeToStr[oc]
}

// StepResult reports one call to Step
type StepResult struct {
	Outcome Outcome

	// start of the committed frame, or the unresolved attempt time of a
	// collision, or NoArrival at the end of the run
	Time float64

	// node whose attempt was resolved, -1 at the end of the run
	Node int

	// nodes that collided with Node
	Peers []int

	// nodes whose head frame was dropped at the retry ceiling, by a
	// collision or by busy senses while the bus cleared.  A node appears
	// once per dropped frame
	Dropped []int
}

// Terminal tells whether every node queue has been exhausted
func (sr StepResult) Terminal() bool {
	return sr.Outcome == OutcomeTerminal
}

var terminalResult StepResult = StepResult{Outcome: OutcomeTerminal, Time: NoArrival, Node: -1}

// collisionPeer is a node found to collide with the selected node, and
// the instant the selected node's signal reached it
type collisionPeer struct {
	node  int
	reach float64
}

// Engine owns every node queue, the bus and the metrics of one run.
// Nothing in it is shared with other runs
type Engine struct {
	cfg SimulationConfig

	tProp  float64 // propagation delay across one node spacing
	tTrans float64 // time to put one frame on the medium

	sensing  SensingMode
	anchor   BackoffAnchor
	counting CollisionCounting

	nodes   []*NodeQueue
	bus     *SharedBus
	metrics Metrics

	backoff  U01Source // draws for the randomized backoff
	traceMgr *TraceManager

	// when the last committed frame had cleared the farthest node
	lastClearance float64

	done bool
}

// CreateEngine validates cfg and fills every node's queue with the arrivals
// that fall before the horizon.  No engine is returned on error
func CreateEngine(cfg SimulationConfig, arrivals ArrivalGenerator, backoff U01Source) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if arrivals == nil {
		return nil, &ConfigError{Field: "arrivals", Reason: "generator must be given"}
	}
	if backoff == nil {
		return nil, &ConfigError{Field: "backoff", Reason: "random source must be given"}
	}

	eng := new(Engine)
	eng.cfg = cfg
	eng.tProp = cfg.TProp()
	eng.tTrans = cfg.TTrans()
	eng.sensing = cfg.SensingMode()
	eng.anchor = cfg.Anchor()
	eng.counting = cfg.Counting()
	eng.bus = CreateSharedBus()
	eng.backoff = backoff

	eng.nodes = make([]*NodeQueue, cfg.Nodes)
	for idx := range eng.nodes {
		nq := CreateNodeQueue(idx, cfg.QueueCapacity)
		if err := populateArrivals(nq, arrivals, cfg.ArrivalRate, cfg.Horizon); err != nil {
			return nil, err
		}
		eng.nodes[idx] = nq
	}
	return eng, nil
}

// populateArrivals pushes arrival times drawn from gen until one reaches the horizon
func populateArrivals(nq *NodeQueue, gen ArrivalGenerator, rate, horizon float64) error {
	t := 0.0
	for {
		t += gen.SampleInterarrival(rate)
		if t >= horizon {
			return nil
		}
		if err := nq.Push(t); err != nil {
			return err
		}
	}
}

// SetTrace attaches a trace manager and names the nodes and the bus in it
func (eng *Engine) SetTrace(tm *TraceManager) {
	eng.traceMgr = tm
	if !tm.Active() {
		return
	}
	tm.AddName(busTraceID, "bus", "bus")
	for idx := range eng.nodes {
		tm.AddName(idx, fmt.Sprintf("node-%d", idx), "node")
	}
}

// Config returns the parameters the engine was built with
func (eng *Engine) Config() SimulationConfig {
	return eng.cfg
}

// Nodes returns the number of nodes on the bus
func (eng *Engine) Nodes() int {
	return len(eng.nodes)
}

// Metrics returns a copy of the counters
func (eng *Engine) Metrics() Metrics {
	return eng.metrics
}

// Bus returns a copy of the bus state
func (eng *Engine) Bus() BusStatus {
	return eng.bus.Status()
}

// LastClearance is when the most recently released frame had passed the farthest node
func (eng *Engine) LastClearance() float64 {
	return eng.lastClearance
}

// PendingHead gives node's earliest pending attempt, NoArrival when it has
// none or the engine has been released
func (eng *Engine) PendingHead(node int) float64 {
	if eng.nodes == nil {
		return NoArrival
	}
	return eng.nodes[node].PeekHead()
}

// CollisionCount gives node's consecutive collision count, 0 after Release
func (eng *Engine) CollisionCount(node int) int {
	if eng.nodes == nil {
		return 0
	}
	return eng.nodes[node].CollisionCount()
}

// BusyCount gives node's consecutive busy senses, 0 after Release
func (eng *Engine) BusyCount(node int) int {
	if eng.nodes == nil {
		return 0
	}
	return eng.nodes[node].BusyCount()
}

// Release drops the node queues.  The engine reports Terminal afterwards
func (eng *Engine) Release() {
	eng.nodes = nil
	eng.done = true
}

// Step advances the simulation by one resolved event
func (eng *Engine) Step() StepResult {
	if eng.done {
		return terminalResult
	}

	// a frame committed last step has to clear before anyone else is looked at
	var cleared []int
	if eng.bus.Busy() {
		cleared = eng.clearBus()
	}

	m, tm := eng.FindEarliest()
	if m < 0 {
		eng.done = true
		res := terminalResult
		res.Dropped = cleared
		return res
	}

	peers := eng.detectCollisions(m, tm)
	if len(peers) > 0 {
		ids, dropped := eng.resolveCollision(m, tm, peers)
		return StepResult{Outcome: OutcomeCollision, Time: tm, Node: m, Peers: ids,
			Dropped: append(cleared, dropped...)}
	}

	eng.commit(m, tm)
	return StepResult{Outcome: OutcomeCommit, Time: tm, Node: m, Dropped: cleared}
}

// FindEarliest returns the node holding the earliest pending attempt and that
// attempt's time.  Ties go to the lowest node index.  (-1, NoArrival) means
// every queue is exhausted
func (eng *Engine) FindEarliest() (int, float64) {
	minNode := -1
	minTime := NoArrival
	for idx, nq := range eng.nodes {
		head := nq.PeekHead()
		if head == NoArrival {
			continue
		}
		if minNode < 0 || head < minTime {
			minNode = idx
			minTime = head
		}
	}
	return minNode, minTime
}

// detectCollisions finds every node whose pending attempt is no later than
// the arrival of node m's signal at it
func (eng *Engine) detectCollisions(m int, tm float64) []collisionPeer {
	var peers []collisionPeer
	for idx, nq := range eng.nodes {
		if idx == m {
			continue
		}
		head := nq.PeekHead()
		if head == NoArrival {
			continue
		}
		reach := tm + eng.tProp*float64(hops(m, idx))
		if head <= reach {
			peers = append(peers, collisionPeer{node: idx, reach: reach})
		}
	}
	return peers
}

// resolveCollision backs off or drops node m and every colliding peer.
// Each involved node counts as an attempt, none as a success
func (eng *Engine) resolveCollision(m int, tm float64, peers []collisionPeer) ([]int, []int) {
	eng.metrics.Collisions += 1
	eng.metrics.Attempted += uint64(len(peers) + 1)

	farthest := tm
	ids := make([]int, 0, len(peers))
	for _, peer := range peers {
		ids = append(ids, peer.node)
		if peer.reach > farthest {
			farthest = peer.reach
		}
	}
	AddBusTrace(eng.traceMgr, tm, m, OpCollision, ids, eng.nodes[m].CollisionCount(), 0.0)

	var dropped []int
	for _, peer := range peers {
		anchor := peer.reach
		if eng.anchor == AnchorOwn {
			anchor = eng.nodes[peer.node].PeekHead()
		}
		if eng.backoffOrDrop(peer.node, 1, anchor, tm) {
			dropped = append(dropped, peer.node)
		}
	}

	increments := len(peers)
	if eng.counting == CountPerStep {
		increments = 1
	}
	anchor := farthest
	if eng.anchor == AnchorOwn {
		anchor = tm
	}
	if eng.backoffOrDrop(m, increments, anchor, tm) {
		dropped = append(dropped, m)
	}
	return ids, dropped
}

// backoffOrDrop charges node with increments collisions.  Reaching the retry
// ceiling drops its head frame; otherwise its pending attempts are deferred
// to anchor plus a random backoff.  The return is true on a drop
func (eng *Engine) backoffOrDrop(node, increments int, anchor, now float64) bool {
	nq := eng.nodes[node]
	for cnt := 0; cnt < increments; cnt++ {
		if nq.IncrementCollision() >= eng.cfg.RetryCeiling {
			counter := nq.CollisionCount()
			nq.PopHead()
			nq.ResetCollision()
			nq.ResetBusy()
			eng.metrics.Dropped += 1
			AddBusTrace(eng.traceMgr, now, node, OpDrop, nil, counter, 0.0)
			return true
		}
	}

	counter := nq.CollisionCount()
	until := anchor + eng.backoffWait(counter)
	nq.AdvanceAllBelow(until)
	AddBusTrace(eng.traceMgr, now, node, OpBackoff, nil, counter, until)
	return false
}

// backoffWait draws the binary exponential backoff after k collisions
func (eng *Engine) backoffWait(k int) float64 {
	return float64(backoffSlots(eng.backoff, k)) * eng.cfg.SlotBits / eng.cfg.BitRate
}

// commit puts node m's frame on the bus
func (eng *Engine) commit(m int, tm float64) {
	nq := eng.nodes[m]
	nq.PopHead()
	nq.ResetCollision()
	nq.ResetBusy()

	eng.metrics.Attempted += 1
	eng.metrics.Succeeded += 1
	eng.bus.Occupy(m, tm)

	// the sender cannot start its next frame while this one is going out
	nq.AdvanceAllBelow(tm + eng.tTrans)
	AddBusTrace(eng.traceMgr, tm, m, OpCommit, nil, 0, tm+eng.tTrans)
}

// clearBus releases the bus.  Every other node that would have tried while
// it still sensed the frame waits for it to pass, the way the sensing
// discipline says.  It returns the nodes that gave up a frame meanwhile
func (eng *Engine) clearBus() []int {
	sender, start := eng.bus.Release()

	var dropped []int
	for idx, nq := range eng.nodes {
		if idx == sender {
			continue
		}
		clearAt := ClearanceTime(start, eng.tTrans, eng.tProp, hops(sender, idx))
		switch eng.sensing {
		case NonPersistent:
			for cnt := eng.senseAgain(nq, start, clearAt); cnt > 0; cnt-- {
				dropped = append(dropped, idx)
			}
		default:
			eng.deferUntil(nq, start, clearAt)
		}
	}

	farthest := max(sender, len(eng.nodes)-1-sender)
	eng.lastClearance = ClearanceTime(start, eng.tTrans, eng.tProp, farthest)
	AddBusTrace(eng.traceMgr, eng.lastClearance, sender, OpClear, nil, 0, 0.0)
	return dropped
}

// deferUntil pins every attempt of nq at or before clearAt to clearAt
func (eng *Engine) deferUntil(nq *NodeQueue, now, clearAt float64) {
	head := nq.PeekHead()
	if head == NoArrival || head > clearAt {
		return
	}
	nq.AdvanceAllBelow(clearAt)
	AddBusTrace(eng.traceMgr, now, nq.Node(), OpDefer, nil, 0, clearAt)
}

// senseAgain has a node that found the medium busy wait a fresh random
// backoff and look again, until it looks after clearAt.  Frames that reach
// the retry ceiling are given up; the return is how many
func (eng *Engine) senseAgain(nq *NodeQueue, now, clearAt float64) int {
	drops := 0
	for {
		head := nq.PeekHead()
		if head == NoArrival || head > clearAt {
			return drops
		}

		counter := nq.IncrementBusy()
		if counter >= eng.cfg.RetryCeiling {
			nq.PopHead()
			nq.ResetBusy()
			nq.ResetCollision()
			eng.metrics.Dropped += 1
			drops += 1
			AddBusTrace(eng.traceMgr, now, nq.Node(), OpDrop, nil, counter, 0.0)
			continue
		}

		until := head + eng.backoffWait(counter)
		nq.AdvanceAllBelow(until)
		AddBusTrace(eng.traceMgr, now, nq.Node(), OpDefer, nil, counter, until)
	}
}

// hops is the number of node spacings between positions a and b
func hops(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}
