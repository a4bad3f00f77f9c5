package sim

import (
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/san-kum/impulse/internal/body"
	"github.com/san-kum/impulse/internal/config"
	"github.com/san-kum/impulse/internal/geom"
	"github.com/san-kum/impulse/internal/world"
)

// pileWorld drops a small mixed pile in two separate heaps.
func pileWorld(t *testing.T, workers int) *world.World {
	cfg := config.DefaultPhysics()
	cfg.Workers = workers
	w, err := world.New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	addBody(t, w, body.Static, mgl64.Vec3{0, -0.5, 0}, geom.NewBox(mgl64.Vec3{20, 0.5, 20}))
	for heap := 0; heap < 2; heap++ {
		x := float64(heap)*6 - 3
		for i := 0; i < 4; i++ {
			y := 0.6 + 1.1*float64(i)
			if i%2 == 0 {
				addBody(t, w, body.Dynamic, mgl64.Vec3{x + 0.1*float64(i), y, 0}, geom.NewBox(mgl64.Vec3{0.5, 0.5, 0.5}))
			} else {
				addBody(t, w, body.Dynamic, mgl64.Vec3{x, y, 0.05 * float64(i)}, geom.NewSphere(0.5))
			}
		}
	}
	return w
}

func dump(t *testing.T, w *world.World, steps int) string {
	var sb strings.Builder
	snap := &Snapshot{}
	for i := 0; i < steps; i++ {
		if err := w.Step(1.0 / 60); err != nil {
			t.Fatal(err)
		}
		snap.Capture(w)
		if err := snap.Write(&sb, 9); err != nil {
			t.Fatal(err)
		}
	}
	return sb.String()
}

func assertSameRun(t *testing.T, expected, current string) {
	t.Helper()
	if expected == current {
		return
	}
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(expected),
		B:        difflib.SplitLines(current),
		FromFile: "Expected",
		ToFile:   "Current",
		Context:  0,
	}
	text, _ := difflib.GetUnifiedDiffString(diff)
	t.Fatalf("runs diverged:\n%s", text)
}

func TestDeterministicReplay(t *testing.T) {
	expected := dump(t, pileWorld(t, 1), 120)
	current := dump(t, pileWorld(t, 1), 120)
	assertSameRun(t, expected, current)
}

func TestParallelIslandsMatchSerial(t *testing.T) {
	expected := dump(t, pileWorld(t, 1), 120)
	current := dump(t, pileWorld(t, 4), 120)
	assertSameRun(t, expected, current)
}
