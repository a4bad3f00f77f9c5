package sim

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/impulse/internal/world"
)

// Measure samples the current state of w. Potential energy is taken at the
// body origins.
func Measure(w *world.World) Sample {
	st := w.LastStats()
	s := Sample{
		Time:           w.Time(),
		Step:           w.StepCount(),
		MaxDepth:       st.MaxDepth,
		Contacts:       st.TouchingContacts,
		Points:         st.Points,
		NormalImpulse:  st.NormalImpulse,
		AwakeBodies:    st.AwakeBodies,
		SleepingBodies: st.SleepingBodies,
		Pairs:          st.Pairs,
		Islands:        st.Islands,
	}
	g := mgl64.Vec3(w.Config().Gravity)
	for _, b := range w.Bodies() {
		if !b.IsDynamic() {
			continue
		}
		s.KineticEnergy += b.KineticEnergy()
		s.PotentialEnergy -= b.Mass() * g.Dot(b.Position())
		if !b.IsSleeping() {
			s.MaxSpeed = math.Max(s.MaxSpeed, b.LinearVelocity().Len())
		}
	}
	return s
}

func finite(v mgl64.Vec3) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

// stateValid reports whether every body has a finite pose and velocity.
func stateValid(w *world.World) bool {
	for _, b := range w.Bodies() {
		q := b.Rotation()
		if !finite(b.Position()) || !finite(q.V) || math.IsNaN(q.W) || math.IsInf(q.W, 0) {
			return false
		}
		if !finite(b.LinearVelocity()) || !finite(b.AngularVelocity()) {
			return false
		}
	}
	return true
}
