package csmacd

// Metrics accumulates frame counts over one run
type Metrics struct {
	Attempted  uint64 `json:"attempted" yaml:"attempted"`   // transmissions put on the medium, colliding ones included
	Succeeded  uint64 `json:"succeeded" yaml:"succeeded"`   // transmissions committed without collision
	Dropped    uint64 `json:"dropped" yaml:"dropped"`       // frames abandoned at the retry ceiling
	Collisions uint64 `json:"collisions" yaml:"collisions"` // steps that ended in a collision
}

// Efficiency is the fraction of attempts that succeeded, 0 with no attempts
func (m Metrics) Efficiency() float64 {
	if m.Attempted == 0 {
		return 0.0
	}
	return float64(m.Succeeded) / float64(m.Attempted)
}

// Throughput is delivered bits per second over the horizon, 0 for an empty horizon
func (m Metrics) Throughput(frameLen, horizon float64) float64 {
	if horizon <= 0.0 {
		return 0.0
	}
	return float64(m.Succeeded) * frameLen / horizon
}
