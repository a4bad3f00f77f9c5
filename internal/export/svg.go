// Package export writes drawings of a run as SVG.
package export

import (
	"fmt"
	"math"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/impulse/internal/body"
	"github.com/san-kum/impulse/internal/geom"
	"github.com/san-kum/impulse/internal/sim"
	"github.com/san-kum/impulse/internal/viz"
)

const background = "#0a0a0a"

var trailColors = []string{"#00ffff", "#ff00ff", "#ffff00", "#00ff88", "#ff8800", "#88aaff"}

func header(sb *strings.Builder, w, h float64) {
	fmt.Fprintf(sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">
<rect width="100%%" height="100%%" fill="%s"/>
`, w, h, w, h, background)
}

// CanvasSVG draws every lit braille dot as a circle, scale units apart.
func CanvasSVG(c *viz.Canvas, scale float64, color string) string {
	if c == nil {
		return ""
	}
	var sb strings.Builder
	header(&sb, float64(c.PixelWidth())*scale, float64(c.PixelHeight())*scale)
	fmt.Fprintf(&sb, "<g fill=\"%s\">\n", color)
	r := scale * 0.4
	for y := 0; y < c.PixelHeight(); y++ {
		for x := 0; x < c.PixelWidth(); x++ {
			if c.IsSet(x, y) {
				fmt.Fprintf(&sb, "<circle cx=\"%.1f\" cy=\"%.1f\" r=\"%.1f\"/>\n",
					(float64(x)+0.5)*scale, (float64(y)+0.5)*scale, r)
			}
		}
	}
	sb.WriteString("</g>\n</svg>")
	return sb.String()
}

// Trails collects the x/y path of every dynamic body over a run, plus
// the bounds of all bodies in the last snapshot seen.
type Trails struct {
	order  []int
	paths  map[int][]mgl64.Vec2
	bounds []geom.Aabb
}

func NewTrails() *Trails {
	return &Trails{paths: make(map[int][]mgl64.Vec2)}
}

// Add records one snapshot. Snapshots are pooled, so nothing of s is kept.
func (t *Trails) Add(s *sim.Snapshot) {
	t.bounds = t.bounds[:0]
	for _, b := range s.Bodies {
		t.bounds = append(t.bounds, b.Bounds)
		if b.Type != body.Dynamic {
			continue
		}
		if _, ok := t.paths[b.ID]; !ok {
			t.order = append(t.order, b.ID)
		}
		t.paths[b.ID] = append(t.paths[b.ID], mgl64.Vec2{b.Position[0], b.Position[1]})
	}
}

func (t *Trails) Len() int { return len(t.order) }

// extent bounds every trail point and the final body bounds, ignoring
// huge static bounds such as ground planes.
func (t *Trails) extent() (mgl64.Vec2, mgl64.Vec2) {
	lo := mgl64.Vec2{math.Inf(1), math.Inf(1)}
	hi := mgl64.Vec2{math.Inf(-1), math.Inf(-1)}
	grow := func(p mgl64.Vec2) {
		lo = mgl64.Vec2{math.Min(lo[0], p[0]), math.Min(lo[1], p[1])}
		hi = mgl64.Vec2{math.Max(hi[0], p[0]), math.Max(hi[1], p[1])}
	}
	for _, path := range t.paths {
		for _, p := range path {
			grow(p)
		}
	}
	for _, a := range t.bounds {
		if a.Extents().Len() > 1e3 {
			continue
		}
		grow(mgl64.Vec2{a.Min[0], a.Min[1]})
		grow(mgl64.Vec2{a.Max[0], a.Max[1]})
	}
	if lo[0] > hi[0] {
		return mgl64.Vec2{-1, -1}, mgl64.Vec2{1, 1}
	}
	return lo, hi
}

// SVG draws the trails in a width x height picture, x right and y up.
func (t *Trails) SVG(width, height int) string {
	lo, hi := t.extent()
	span := hi.Sub(lo)
	span = mgl64.Vec2{math.Max(span[0], 1), math.Max(span[1], 1)}
	lo = lo.Sub(span.Mul(0.1))
	span = span.Mul(1.2)
	scale := math.Min(float64(width)/span[0], float64(height)/span[1])
	pt := func(x, y float64) (float64, float64) {
		return (x - lo[0]) * scale, float64(height) - (y-lo[1])*scale
	}

	var sb strings.Builder
	header(&sb, float64(width), float64(height))
	sb.WriteString("<g fill=\"none\" stroke=\"#444466\" stroke-width=\"1\">\n")
	for _, a := range t.bounds {
		if a.Extents().Len() > 1e3 {
			continue
		}
		x0, y0 := pt(a.Min[0], a.Max[1])
		fmt.Fprintf(&sb, "<rect x=\"%.1f\" y=\"%.1f\" width=\"%.1f\" height=\"%.1f\"/>\n",
			x0, y0, (a.Max[0]-a.Min[0])*scale, (a.Max[1]-a.Min[1])*scale)
	}
	sb.WriteString("</g>\n")

	for i, id := range t.order {
		path := t.paths[id]
		if len(path) < 2 {
			continue
		}
		fmt.Fprintf(&sb, "<path fill=\"none\" stroke=\"%s\" stroke-width=\"1.5\" d=\"", trailColors[i%len(trailColors)])
		for j, p := range path {
			x, y := pt(p[0], p[1])
			if j == 0 {
				fmt.Fprintf(&sb, "M%.1f,%.1f", x, y)
			} else {
				fmt.Fprintf(&sb, " L%.1f,%.1f", x, y)
			}
		}
		sb.WriteString("\"/>\n")
	}
	sb.WriteString("</svg>")
	return sb.String()
}
