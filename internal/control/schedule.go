package control

// Schedule steps a servo through Targets, holding each for Period seconds,
// then starts over.
type Schedule struct {
	Servo   *HingeServo
	Targets []float64
	Period  float64

	elapsed float64
	index   int
}

func NewSchedule(s *HingeServo, period float64, targets ...float64) *Schedule {
	sc := &Schedule{Servo: s, Targets: targets, Period: period}
	if len(targets) > 0 {
		s.SetTarget(targets[0])
	}
	return sc
}

// Index is the target currently held.
func (s *Schedule) Index() int { return s.index }

func (s *Schedule) Update(dt float64) {
	if len(s.Targets) < 2 || s.Period <= 0 {
		return
	}
	s.elapsed += dt
	for s.elapsed >= s.Period {
		s.elapsed -= s.Period
		s.index = (s.index + 1) % len(s.Targets)
		s.Servo.SetTarget(s.Targets[s.index])
	}
}
