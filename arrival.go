package csmacd

// arrival.go holds the interarrival samplers that pre-populate the
// node queues, and the uniform-draw interface shared with backoff.
import (
	"math"
)

// U01Source is a stream of uniform [0,1) samples.  *rngstream.RngStream
// satisfies it, and tests substitute a scripted stream
type U01Source interface {
	RandU01() float64
}

// ArrivalGenerator produces the gap between successive frame-ready
// events at a node
type ArrivalGenerator interface {
	SampleInterarrival(rate float64) float64
}

// streamArrivals draws interarrival times by feeding a U01 sample
// and the rate to a distribution function
type streamArrivals struct {
	rng U01Source

	// first argument is U01 random number, second argument is vector of parameters for distribution
	sampleNxtArrival func(float64, []float64) float64
}

// CreateArrivalGenerator is a constructor.  dist selects the interarrival
// distribution; exponential (Poisson arrivals) is the default
func CreateArrivalGenerator(dist string, rng U01Source) ArrivalGenerator {
	sa := new(streamArrivals)
	sa.rng = rng
	sa.sampleNxtArrival = sampleExpRV

	switch dist {
	case "constant", "const":
		sa.sampleNxtArrival = sampleConst
	}
	return sa
}

// SampleInterarrival returns a strictly positive gap
func (sa *streamArrivals) SampleInterarrival(rate float64) float64 {
	gap := sa.sampleNxtArrival(sa.rng.RandU01(), []float64{rate})

	// a U01 draw of exactly 0 yields a zero gap, which would stack two arrivals
	if !(gap > 0.0) {
		gap = math.SmallestNonzeroFloat64
	}
	return gap
}

// validArrivalDist reports whether the name is one CreateArrivalGenerator knows
func validArrivalDist(dist string) bool {
	switch dist {
	case "", "exponential", "exp", "expon", "constant", "const":
		return true
	}
	return false
}

// expRV returns a sample of a exponentially distributed random number
func expRV(u01, rate float64) float64 {
	return -math.Log(1.0-u01) / rate
}

// sampleExpRV has the function signature expected by streamArrivals
// for calling a next interarrival time
func sampleExpRV(u01 float64, params []float64) float64 {
	return expRV(u01, params[0])
}

// sampleConst ignores the random draw and returns the mean gap
func sampleConst(u01 float64, params []float64) float64 {
	return 1.0 / params[0]
}

// backoffSlots draws R uniformly from [0, 2^k - 1]
func backoffSlots(rng U01Source, k int) int {
	if k <= 0 {
		return 0
	}
	slots := 1 << uint(k)
	r := int(rng.RandU01() * float64(slots))

	// guard against a source that returns 1.0
	if r >= slots {
		r = slots - 1
	}
	return r
}
