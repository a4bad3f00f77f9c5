package sim

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/impulse/internal/body"
	"github.com/san-kum/impulse/internal/geom"
	"github.com/san-kum/impulse/internal/world"
)

type BodyState struct {
	ID              int
	Type            body.Type
	Position        mgl64.Vec3
	Rotation        mgl64.Quat
	LinearVelocity  mgl64.Vec3
	AngularVelocity mgl64.Vec3
	Sleeping        bool
	Bounds          geom.Aabb
}

// Snapshot is a copy of every body state at one step.
type Snapshot struct {
	Time   float64
	Step   int
	Bodies []BodyState
}

// Capture overwrites s with the current state of w, reusing its storage.
func (s *Snapshot) Capture(w *world.World) {
	s.Time = w.Time()
	s.Step = w.StepCount()
	s.Bodies = s.Bodies[:0]
	for _, b := range w.Bodies() {
		st := BodyState{
			ID:              b.ID,
			Type:            b.Type(),
			Position:        b.Position(),
			Rotation:        b.Rotation(),
			LinearVelocity:  b.LinearVelocity(),
			AngularVelocity: b.AngularVelocity(),
			Sleeping:        b.IsSleeping(),
		}
		for i, sh := range b.Shapes() {
			if i == 0 {
				st.Bounds = sh.Aabb()
			} else {
				st.Bounds = st.Bounds.Union(sh.Aabb())
			}
		}
		s.Bodies = append(s.Bodies, st)
	}
}

// Write dumps one line per body with the given number of decimals.
func (s *Snapshot) Write(w io.Writer, decimals int) error {
	for _, b := range s.Bodies {
		p, v := b.Position, b.LinearVelocity
		q := b.Rotation
		_, err := fmt.Fprintf(w, "%d(%d): %.*f %.*f %.*f | %.*f %.*f %.*f %.*f | %.*f %.*f %.*f | %v\n",
			s.Step, b.ID,
			decimals, p[0], decimals, p[1], decimals, p[2],
			decimals, q.W, decimals, q.V[0], decimals, q.V[1], decimals, q.V[2],
			decimals, v[0], decimals, v[1], decimals, v[2],
			b.Sleeping)
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Snapshot) String() string {
	var sb strings.Builder
	_ = s.Write(&sb, 6)
	return sb.String()
}

type SnapshotPool struct {
	pool sync.Pool
	size int
}

func NewSnapshotPool(bodies int) *SnapshotPool {
	return &SnapshotPool{
		size: bodies,
		pool: sync.Pool{
			New: func() interface{} {
				return &Snapshot{Bodies: make([]BodyState, 0, bodies)}
			},
		},
	}
}

func (p *SnapshotPool) Get() *Snapshot {
	return p.pool.Get().(*Snapshot)
}

func (p *SnapshotPool) Put(s *Snapshot) {
	if s == nil {
		return
	}
	s.Bodies = s.Bodies[:0]
	s.Time = 0
	s.Step = 0
	p.pool.Put(s)
}

// Capture takes a pooled snapshot of w.
func (p *SnapshotPool) Capture(w *world.World) *Snapshot {
	s := p.Get()
	s.Capture(w)
	return s
}
