package body

import "github.com/go-gl/mathgl/mgl64"

func (b *RigidBody) IsSleeping() bool        { return b.sleeping }
func (b *RigidBody) SleepTime() float64      { return b.sleepTime }
func (b *RigidBody) AddSleepTime(dt float64) { b.sleepTime += dt }
func (b *RigidBody) ResetSleepTime()         { b.sleepTime = 0 }

// Sleep freezes the body: velocities and forces are zeroed.
func (b *RigidBody) Sleep() {
	b.sleeping = true
	b.sleepTime = 0
	b.vel = mgl64.Vec3{}
	b.angVel = mgl64.Vec3{}
	b.pseudoVel = mgl64.Vec3{}
	b.pseudoAng = mgl64.Vec3{}
	b.ClearForces()
}

func (b *RigidBody) WakeUp() {
	b.sleeping = false
	b.sleepTime = 0
}

// LowMotion reports whether both speeds sit under the given thresholds.
func (b *RigidBody) LowMotion(linear, angular float64) bool {
	return b.vel.LenSqr() < linear*linear && b.angVel.LenSqr() < angular*angular
}
