// Package optim searches config space for the settings that score best on a
// run metric.
package optim

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/san-kum/impulse/internal/config"
	"github.com/san-kum/impulse/internal/experiment"
)

var (
	ErrNoParams      = errors.New("optim: no parameters")
	ErrNoTrials      = errors.New("optim: every trial failed")
	ErrUnknownMetric = errors.New("optim: metric not reported")
)

// Param is one dotted config path and the values tried for it.
type Param struct {
	Path   string
	Values []float64
}

// ParseParam reads "path=v1,v2,..." as used on the command line.
func ParseParam(s string) (Param, error) {
	path, list, ok := strings.Cut(s, "=")
	if !ok || path == "" || list == "" {
		return Param{}, fmt.Errorf("optim: expected path=v1,v2,..., got %q", s)
	}
	p := Param{Path: path}
	for _, f := range strings.Split(list, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return Param{}, fmt.Errorf("optim: %s: %w", path, err)
		}
		p.Values = append(p.Values, v)
	}
	return p, nil
}

// Trial is one grid point. Err is set when the config was rejected or the
// run failed, in which case Score is meaningless.
type Trial struct {
	Values map[string]float64
	Score  float64
	Err    error
}

type Outcome struct {
	Best   Trial
	Trials []Trial
}

// Failed counts trials that produced no score.
func (o *Outcome) Failed() int {
	n := 0
	for _, t := range o.Trials {
		if t.Err != nil {
			n++
		}
	}
	return n
}

// Ranked returns the scored trials, best first.
func (o *Outcome) Ranked(maximize bool) []Trial {
	var out []Trial
	for _, t := range o.Trials {
		if t.Err == nil {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if maximize {
			return out[i].Score > out[j].Score
		}
		return out[i].Score < out[j].Score
	})
	return out
}

// GridSearch runs the base config once per point of the cartesian product
// of its params.
type GridSearch struct {
	params []Param
	// Maximize flips the goal; the default keeps the smallest score.
	Maximize bool
	Progress func(done, total int)
}

func NewGridSearch(params ...Param) *GridSearch {
	return &GridSearch{params: params}
}

// Size is the number of grid points.
func (g *GridSearch) Size() int {
	if len(g.params) == 0 {
		return 0
	}
	n := 1
	for _, p := range g.params {
		n *= len(p.Values)
	}
	return n
}

// Search scores every grid point by metric. A failing point is recorded and
// skipped; only cancellation stops the search early.
func (g *GridSearch) Search(ctx context.Context, base *config.Config, reg *experiment.Registry, metric string) (*Outcome, error) {
	if g.Size() == 0 {
		return nil, ErrNoParams
	}
	out := &Outcome{}
	if err := g.searchRecursive(ctx, 0, make(map[string]float64), base, reg, metric, out); err != nil {
		return out, err
	}
	ranked := out.Ranked(g.Maximize)
	if len(ranked) == 0 {
		return out, fmt.Errorf("%w: %v", ErrNoTrials, out.Trials[0].Err)
	}
	out.Best = ranked[0]
	return out, nil
}

func (g *GridSearch) searchRecursive(
	ctx context.Context,
	depth int,
	current map[string]float64,
	base *config.Config,
	reg *experiment.Registry,
	metric string,
	out *Outcome,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if depth == len(g.params) {
		values := make(map[string]float64, len(current))
		for k, v := range current {
			values[k] = v
		}
		score, err := g.trial(ctx, values, base, reg, metric)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		out.Trials = append(out.Trials, Trial{Values: values, Score: score, Err: err})
		if g.Progress != nil {
			g.Progress(len(out.Trials), g.Size())
		}
		return nil
	}

	p := g.params[depth]
	for _, v := range p.Values {
		current[p.Path] = v
		if err := g.searchRecursive(ctx, depth+1, current, base, reg, metric, out); err != nil {
			return err
		}
	}
	delete(current, p.Path)
	return nil
}

func (g *GridSearch) trial(ctx context.Context, values map[string]float64, base *config.Config, reg *experiment.Registry, metric string) (float64, error) {
	cfg := *base
	for _, p := range g.params {
		if err := cfg.Set(p.Path, values[p.Path]); err != nil {
			return 0, err
		}
	}
	exp := experiment.New(&cfg)
	if err := exp.Setup(reg); err != nil {
		return 0, err
	}
	res, err := exp.Run(ctx)
	if err != nil {
		return 0, err
	}
	if len(res.Errors) > 0 {
		return 0, res.Errors[0]
	}
	score, ok := res.Metrics[metric]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownMetric, metric)
	}
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return 0, fmt.Errorf("optim: %s is %v", metric, score)
	}
	return score, nil
}
