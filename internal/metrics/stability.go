package metrics

import (
	"github.com/san-kum/impulse/internal/sim"
	"github.com/san-kum/impulse/internal/world"
)

// RestStability is the fraction of the second half of a run in which no
// awake body moves faster than threshold. Early samples are ignored so
// objects get time to land.
type RestStability struct {
	name      string
	threshold float64
	seen      []float64
}

func NewRestStability(threshold float64) *RestStability {
	return &RestStability{
		name:      "rest_stability",
		threshold: threshold,
	}
}

func (s *RestStability) Name() string {
	return s.name
}

func (s *RestStability) Observe(w *world.World, sample sim.Sample) {
	s.seen = append(s.seen, sample.MaxSpeed)
}

func (s *RestStability) Value() float64 {
	tail := s.seen[len(s.seen)/2:]
	if len(tail) == 0 {
		return 1.0
	}
	violations := 0
	for _, v := range tail {
		if v > s.threshold {
			violations++
		}
	}
	return 1.0 - float64(violations)/float64(len(tail))
}

func (s *RestStability) Reset() {
	s.seen = s.seen[:0]
}

// SleepRatio is the mean fraction of non-static bodies asleep.
type SleepRatio struct {
	name    string
	sum     float64
	samples int
}

func NewSleepRatio() *SleepRatio {
	return &SleepRatio{name: "sleep_ratio"}
}

func (r *SleepRatio) Name() string { return r.name }

func (r *SleepRatio) Observe(w *world.World, s sim.Sample) {
	total := s.AwakeBodies + s.SleepingBodies
	if total > 0 {
		r.sum += float64(s.SleepingBodies) / float64(total)
	}
	r.samples++
}

func (r *SleepRatio) Value() float64 {
	if r.samples == 0 {
		return 0
	}
	return r.sum / float64(r.samples)
}

func (r *SleepRatio) Reset() {
	r.sum = 0
	r.samples = 0
}
