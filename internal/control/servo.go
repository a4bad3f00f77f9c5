package control

import (
	"math"

	"github.com/san-kum/impulse/internal/joint"
)

// HingeServo turns a hinge motor into a position servo: the PID output on
// the angle error becomes the motor speed.
type HingeServo struct {
	Joint *joint.HingeJoint
	PID   *PID
	// Target angle in radians.
	Target    float64
	MaxSpeed  float64
	MaxTorque float64

	speed float64
}

func NewHingeServo(j *joint.HingeJoint, pid *PID, maxSpeed, maxTorque float64) *HingeServo {
	return &HingeServo{Joint: j, PID: pid, MaxSpeed: maxSpeed, MaxTorque: maxTorque, speed: math.NaN()}
}

// SetTarget moves the set point and clears the PID history.
func (s *HingeServo) SetTarget(angle float64) {
	s.Target = angle
	s.PID.Reset()
}

// Error is the wrapped angle error in (-π, π].
func (s *HingeServo) Error() float64 {
	e := s.Target - s.Joint.Angle()
	return math.Atan2(math.Sin(e), math.Cos(e))
}

func (s *HingeServo) Update(dt float64) {
	speed := s.PID.Update(s.Error(), dt)
	if s.MaxSpeed > 0 {
		speed = min(max(speed, -s.MaxSpeed), s.MaxSpeed)
	}
	// SetMotor wakes both bodies, so leave a settled servo alone
	if math.Abs(speed-s.speed) < 1e-6 {
		return
	}
	s.speed = speed
	s.Joint.SetMotor(speed, s.MaxTorque)
}
