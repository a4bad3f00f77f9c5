package world

import "time"

// StepStats describes one world step.
type StepStats struct {
	Step int
	Time float64
	Dt   float64

	Bodies         int
	AwakeBodies    int
	SleepingBodies int

	Proxies     int
	ProxyMoves  int
	Pairs       int
	Incremental bool
	TreeHeight  int

	Contacts         int
	TouchingContacts int
	Points           int
	MaxDepth         float64
	NormalImpulse    float64

	Islands      int
	Joints       int
	BrokenJoints int

	Elapsed time.Duration
}

// StatsHook receives the stats of every completed step.
type StatsHook func(StepStats)
