package manifold

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/impulse/internal/config"
	"github.com/san-kum/impulse/internal/geom"
)

// Updater merges narrow-phase results into a persistent manifold. A single
// new point is merged incrementally; a full point set rebuilds the manifold
// but carries impulses over by point id.
type Updater struct {
	persistence2 float64
	separation   float64
	old          [MaxPoints]Point
}

func NewUpdater(cfg config.Contact) *Updater {
	return &Updater{
		persistence2: cfg.PersistenceThreshold * cfg.PersistenceThreshold,
		separation:   cfg.SeparationThreshold,
	}
}

// Update merges res into m. xfA and xfB are the body transforms the local
// anchors are expressed against. An empty result keeps the manifold and only
// refreshes and purges its points.
func (u *Updater) Update(m *Manifold, res *Result, xfA, xfB geom.Transform) {
	if len(res.Points) > 1 {
		u.total(m, res, xfA, xfB)
		return
	}
	u.incremental(m, res, xfA, xfB)
}

func (u *Updater) incremental(m *Manifold, res *Result, xfA, xfB geom.Transform) {
	if len(res.Points) == 1 {
		m.SetBasis(res.Normal)
	}
	m.UpdateDepths(xfA, xfB)

	if len(res.Points) == 1 {
		np := makePoint(res.Points[0], m.Normal, xfA, xfB)
		if i := u.findNearest(m, &np); i >= 0 {
			p := &m.Points[i]
			np.NormalImpulse = p.NormalImpulse
			np.TangentImpulse = p.TangentImpulse
			np.BinormalImpulse = p.BinormalImpulse
			np.WarmStarted = true
			*p = np
		} else {
			u.addPoint(m, np)
		}
	}

	u.purge(m)
}

func (u *Updater) total(m *Manifold, res *Result, xfA, xfB geom.Transform) {
	oldCount := m.Count
	copy(u.old[:], m.Points[:oldCount])

	m.Clear()
	m.SetBasis(res.Normal)

	for _, cp := range res.Points {
		np := makePoint(cp, m.Normal, xfA, xfB)
		for i := 0; i < oldCount; i++ {
			if u.old[i].ID == cp.ID {
				np.NormalImpulse = u.old[i].NormalImpulse
				np.TangentImpulse = u.old[i].TangentImpulse
				np.BinormalImpulse = u.old[i].BinormalImpulse
				np.WarmStarted = true
				break
			}
		}
		u.addPoint(m, np)
	}
}

func makePoint(cp ContactPoint, n mgl64.Vec3, xfA, xfB geom.Transform) Point {
	p := Point{
		LocalA: xfA.ApplyInverse(cp.PositionA),
		LocalB: xfB.ApplyInverse(cp.PositionB),
		ID:     cp.ID,
	}
	refresh(&p, n, xfA, xfB)
	return p
}

// findNearest matches np to a stored point whose anchors on both bodies lie
// within the persistence threshold, preferring the closest.
func (u *Updater) findNearest(m *Manifold, np *Point) int {
	best := -1
	bestDist := 0.0
	for i := 0; i < m.Count; i++ {
		p := &m.Points[i]
		dA := p.LocalA.Sub(np.LocalA).LenSqr()
		dB := p.LocalB.Sub(np.LocalB).LenSqr()
		if dA >= u.persistence2 || dB >= u.persistence2 {
			continue
		}
		if best < 0 || dA+dB < bestDist {
			best = i
			bestDist = dA + dB
		}
	}
	return best
}

func (u *Updater) addPoint(m *Manifold, np Point) {
	if m.Count < MaxPoints {
		m.Points[m.Count] = np
		m.Count++
		return
	}
	m.Points[u.targetIndex(m, &np)] = np
}

// targetIndex picks the slot whose replacement by np leaves the widest
// supporting quad. The deepest stored point is never evicted.
func (u *Updater) targetIndex(m *Manifold, np *Point) int {
	deepest := m.DeepestIndex()

	var pos [MaxPoints]mgl64.Vec3
	for i := 0; i < MaxPoints; i++ {
		pos[i] = m.Points[i].LocalA
	}

	best := -1
	bestArea := -1.0
	for i := 0; i < MaxPoints; i++ {
		if i == deepest {
			continue
		}
		candidate := pos
		candidate[i] = np.LocalA
		area := quadArea(candidate[0], candidate[1], candidate[2], candidate[3])
		if area > bestArea {
			bestArea = area
			best = i
		}
	}
	return best
}

// quadArea is a cheap proxy for the area of a quad with unknown vertex order:
// the largest squared cross product over the three diagonal pairings.
func quadArea(p0, p1, p2, p3 mgl64.Vec3) float64 {
	a := p0.Sub(p1).Cross(p2.Sub(p3)).LenSqr()
	b := p0.Sub(p2).Cross(p1.Sub(p3)).LenSqr()
	c := p0.Sub(p3).Cross(p1.Sub(p2)).LenSqr()
	return max(a, b, c)
}

func (u *Updater) purge(m *Manifold) {
	for i := m.Count - 1; i >= 0; i-- {
		p := &m.Points[i]
		if p.Depth < -u.separation {
			m.removePoint(i)
			continue
		}
		diff := p.WorldA.Sub(p.WorldB)
		lateral := diff.Sub(m.Normal.Mul(diff.Dot(m.Normal)))
		if lateral.LenSqr() > u.persistence2 {
			m.removePoint(i)
		}
	}
}
