// Package control drives joints toward set points. Controllers run at the
// start of every world step.
package control

// PID is a textbook PID on an error signal. The derivative is skipped on
// the first update.
type PID struct {
	Kp, Ki, Kd float64
	// IntegralLimit clamps the integral term when positive.
	IntegralLimit float64

	integral float64
	prevErr  float64
	primed   bool
}

func NewPID(kp, ki, kd float64) *PID {
	return &PID{Kp: kp, Ki: ki, Kd: kd}
}

func (p *PID) Update(err, dt float64) float64 {
	if dt <= 0 {
		return p.Kp * err
	}
	p.integral += err * dt
	if p.IntegralLimit > 0 {
		p.integral = min(max(p.integral, -p.IntegralLimit), p.IntegralLimit)
	}
	u := p.Kp*err + p.Ki*p.integral
	if p.primed {
		u += p.Kd * (err - p.prevErr) / dt
	}
	p.prevErr, p.primed = err, true
	return u
}

func (p *PID) Reset() {
	p.integral, p.prevErr, p.primed = 0, 0, false
}
