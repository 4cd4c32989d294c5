package csmacd

// runner.go drives an Engine on an evtm event manager.  Every call to Step
// is an event; the event that follows it is scheduled at the time the step
// resolved, so the manager's clock tracks simulation time.  The run ends
// when the engine is exhausted, when a step resolves at or past the horizon,
// or when the caller's context is cancelled.

import (
	"context"
	"math"

	"github.com/iti/csmacd/internal/logging"
	"github.com/iti/evt/evtm"
	"github.com/iti/evt/vrtime"
)

// StopReason tells why a run ended
type StopReason int

const (
	StopTerminal StopReason = iota
	StopHorizon
	StopCancelled
)

var stopReasonToStr map[StopReason]string = map[StopReason]string{StopTerminal: "terminal",
	StopHorizon: "horizon", StopCancelled: "cancelled"}

func (sr StopReason) String() string {
	return stopReasonToStr[sr]
}

// RunSummary is what a finished run reports
type RunSummary struct {
	Metrics    Metrics    `json:"metrics" yaml:"metrics"`
	Steps      int        `json:"steps" yaml:"steps"`
	FinalTime  float64    `json:"finaltime" yaml:"finaltime"`
	Efficiency float64    `json:"efficiency" yaml:"efficiency"`
	Throughput float64    `json:"throughput" yaml:"throughput"` // bits per second
	Reason     StopReason `json:"reason" yaml:"reason"`
}

// Runner repeatedly steps one engine
type Runner struct {
	eng      *Engine
	horizon  float64
	frameLen float64
	logger   logging.Logger

	ctx       context.Context
	steps     int
	finalTime float64
	reason    StopReason
}

// CreateRunner is a constructor.  The horizon and frame length come from
// the engine's configuration
func CreateRunner(eng *Engine) *Runner {
	cfg := eng.Config()
	rn := new(Runner)
	rn.eng = eng
	rn.horizon = cfg.Horizon
	rn.frameLen = cfg.FrameLen
	rn.logger = logging.Noop()
	return rn
}

// SetLogger replaces the runner's (silent) default logger
func (rn *Runner) SetLogger(l logging.Logger) {
	if l == nil {
		l = logging.Noop()
	}
	rn.logger = l
}

// Run steps the engine until it stops and summarizes the run
func (rn *Runner) Run(ctx context.Context) RunSummary {
	rn.ctx = ctx
	rn.steps = 0
	rn.finalTime = 0.0

	// the event manager only stops on its own at the horizon
	rn.reason = StopHorizon

	rn.logger.Info(ctx, "run start", logging.Int("nodes", rn.eng.Nodes()),
		logging.Float("horizon", rn.horizon))

	evtMgr := evtm.New()
	evtMgr.Schedule(rn, nil, runStep, vrtime.SecondsToTime(0.0))
	evtMgr.Run(rn.horizon)

	metrics := rn.eng.Metrics()
	summary := RunSummary{
		Metrics:    metrics,
		Steps:      rn.steps,
		FinalTime:  rn.finalTime,
		Efficiency: metrics.Efficiency(),
		Throughput: metrics.Throughput(rn.frameLen, rn.horizon),
		Reason:     rn.reason,
	}
	rn.logger.Info(ctx, "run finished", logging.String("reason", rn.reason.String()),
		logging.Int("steps", rn.steps), logging.Float("efficiency", summary.Efficiency),
		logging.Float("throughput", summary.Throughput))
	return summary
}

// runStep is the event handler that advances the engine by one step and
// schedules the next step at the time this one resolved
func runStep(evtMgr *evtm.EventManager, context any, data any) any {
	rn := context.(*Runner)

	if err := rn.ctx.Err(); err != nil {
		rn.reason = StopCancelled
		return nil
	}

	res := rn.eng.Step()
	if res.Terminal() {
		rn.reason = StopTerminal
		return nil
	}
	rn.steps += 1
	rn.finalTime = res.Time

	rn.logger.Debug(rn.ctx, "step", logging.String("outcome", res.Outcome.String()),
		logging.Int("node", res.Node), logging.Float("time", res.Time),
		logging.Any("peers", res.Peers), logging.Any("dropped", res.Dropped))

	if res.Time >= rn.horizon {
		rn.reason = StopHorizon
		return nil
	}

	offset := math.Max(res.Time-evtMgr.CurrentSeconds(), 0.0)
	evtMgr.Schedule(rn, nil, runStep, vrtime.SecondsToTime(offset))
	return nil
}
