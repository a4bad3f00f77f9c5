package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/impulse/internal/analysis"
	"github.com/san-kum/impulse/internal/automation"
	"github.com/san-kum/impulse/internal/config"
	"github.com/san-kum/impulse/internal/experiment"
	"github.com/san-kum/impulse/internal/export"
	"github.com/san-kum/impulse/internal/sim"
	"github.com/san-kum/impulse/internal/storage"
	"github.com/san-kum/impulse/internal/viz"
	"github.com/san-kum/impulse/internal/world"
	"github.com/spf13/cobra"
)

// resolveConfig layers preset, config file, --set and explicit flags, in
// that order.
func resolveConfig(cmd *cobra.Command, sceneName string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		cfg = config.GetPreset(sceneName, preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset %q (available: %v)", preset, config.ListPresets(sceneName))
		}
	}
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}
	cfg.Scene = sceneName

	for _, s := range sets {
		if err := cfg.SetString(s); err != nil {
			return nil, err
		}
	}
	if cmd.Flags().Changed("dt") {
		cfg.Dt = dt
	}
	if cmd.Flags().Changed("time") {
		cfg.Duration = duration
	}
	if cmd.Flags().Changed("seed") {
		cfg.Seed = seed
	}
	if cmd.Flags().Changed("workers") {
		cfg.Physics.Workers = workers
	}
	return cfg, cfg.Validate()
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func runScene(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args[0])
	if err != nil {
		return err
	}
	reg, err := newRegistry()
	if err != nil {
		return err
	}
	exp := experiment.New(cfg)
	if err := exp.Setup(reg); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	st := styles()
	fmt.Println(st.Muted.Render(fmt.Sprintf("running %s for %.2fs (dt %g)...", cfg.Scene, cfg.Duration, cfg.Dt)))
	start := time.Now()
	result, err := exp.Run(ctx)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	rows := [][2]string{
		{"steps", fmt.Sprint(result.StepsTaken)},
		{"elapsed", elapsed.Round(time.Millisecond).String()},
		{"steps/sec", fmt.Sprintf("%.0f", float64(result.StepsTaken)/elapsed.Seconds())},
		{"bodies", fmt.Sprint(len(exp.World().Bodies()))},
		{"drift", fmt.Sprintf("%.4g", result.EnergyDrift)},
		{"asleep", fmt.Sprintf("%d/%d", result.Final.SleepingBodies, result.Final.Bodies)},
	}
	if !noSave {
		store := storage.New(dataDir)
		if err := store.Init(); err != nil {
			return err
		}
		id, err := store.Save(automation.Metadata(cfg, preset, len(exp.World().Bodies())), result)
		if err != nil {
			return err
		}
		rows = append([][2]string{{"run id", id}}, rows...)
	}
	fmt.Println(st.Box(cfg.Scene, st.KeyValues(rows)))

	names := make([]string, 0, len(result.Metrics))
	for name := range result.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	metricRows := make([][2]string, len(names))
	for i, name := range names {
		metricRows[i] = [2]string{name, fmt.Sprintf("%.6g", result.Metrics[name])}
	}
	if len(metricRows) > 0 {
		fmt.Println(st.Box("metrics", st.KeyValues(metricRows)))
	}
	for _, e := range result.Errors {
		fmt.Println(st.Status(false, "%v", e))
	}
	return nil
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args[0])
	if err != nil {
		return err
	}
	reg, err := newRegistry()
	if err != nil {
		return err
	}
	s, err := reg.GetScene(cfg.Scene)
	if err != nil {
		return err
	}
	return viz.Run(func() (*world.World, error) { return s.New(cfg) }, viz.Options{
		Title:         cfg.Scene,
		Dt:            cfg.Dt,
		StepsPerFrame: stepsFrame,
		Theme:         themeName,
		GIFPath:       gifPath,
	})
}

func pickerEntries(reg *experiment.Registry) []viz.Entry {
	var entries []viz.Entry
	for _, name := range reg.ListScenes() {
		s, err := reg.GetScene(name)
		if err != nil {
			continue
		}
		cfg := config.DefaultConfig()
		cfg.Scene = name
		entries = append(entries, viz.Entry{
			Name:        name,
			Description: s.Description,
			Build:       func() (*world.World, error) { return s.New(cfg) },
		})
	}
	return entries
}

func listScenes(cmd *cobra.Command, args []string) error {
	reg, err := newRegistry()
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SCENE\tPRESETS\tDESCRIPTION")
	for _, name := range reg.ListScenes() {
		s, _ := reg.GetScene(name)
		fmt.Fprintf(w, "%s\t%d\t%s\n", name, len(config.ListPresets(name)), s.Description)
	}
	return w.Flush()
}

func listPresets(cmd *cobra.Command, args []string) error {
	presets := config.ListPresets(args[0])
	if len(presets) == 0 {
		fmt.Printf("no presets for scene: %s\n", args[0])
		return nil
	}
	fmt.Printf("presets for %s:\n", args[0])
	for _, p := range presets {
		cfg := config.GetPreset(args[0], p)
		fmt.Printf("  %-10s %s, %d velocity / %d position iterations\n", p,
			cfg.Physics.Solver.PositionCorrection,
			cfg.Physics.Solver.VelocityIterations,
			cfg.Physics.Solver.PositionIterations)
	}
	return nil
}

func initConfig(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(args[0]); err == nil {
		return fmt.Errorf("%s already exists", args[0])
	}
	if err := config.Save(args[0], config.DefaultConfig()); err != nil {
		return err
	}
	fmt.Println(styles().Status(true, "wrote %s", args[0]))
	return nil
}

type benchRow struct {
	label       string
	elapsed     time.Duration
	pairs       int
	moves       int
	incremental int
	islands     int
}

// benchScene times the scene with the configured worker count and with one
// worker, and reports how often the broad phase took the incremental path.
func benchScene(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args[0])
	if err != nil {
		return err
	}
	reg, err := newRegistry()
	if err != nil {
		return err
	}
	s, err := reg.GetScene(cfg.Scene)
	if err != nil {
		return err
	}

	variants := []struct {
		label   string
		workers int
	}{{"serial", 1}}
	if cfg.Physics.Workers > 1 {
		variants = append(variants, struct {
			label   string
			workers int
		}{fmt.Sprintf("%d workers", cfg.Physics.Workers), cfg.Physics.Workers})
	}

	fmt.Printf("benchmarking %s, %d steps\n\n", cfg.Scene, benchSteps)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tSTEPS/SEC\tAVG PAIRS\tAVG MOVES\tINCREMENTAL\tAVG ISLANDS")
	for _, v := range variants {
		c := *cfg
		c.Physics.Workers = v.workers
		wld, err := s.New(&c)
		if err != nil {
			return err
		}
		row := benchRow{label: v.label}
		wld.SetStatsHook(func(st world.StepStats) {
			row.pairs += st.Pairs
			row.moves += st.ProxyMoves
			row.islands += st.Islands
			if st.Incremental {
				row.incremental++
			}
		})
		start := time.Now()
		for i := 0; i < benchSteps; i++ {
			if err := wld.Step(c.Dt); err != nil {
				return err
			}
		}
		row.elapsed = time.Since(start)
		n := float64(max(benchSteps, 1))
		fmt.Fprintf(w, "%s\t%.0f\t%.1f\t%.1f\t%.0f%%\t%.1f\n",
			row.label,
			n/row.elapsed.Seconds(),
			float64(row.pairs)/n,
			float64(row.moves)/n,
			100*float64(row.incremental)/n,
			float64(row.islands)/n)
	}
	return w.Flush()
}

func runDiverge(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args[0])
	if err != nil {
		return err
	}
	reg, err := newRegistry()
	if err != nil {
		return err
	}
	s, err := reg.GetScene(cfg.Scene)
	if err != nil {
		return err
	}
	nudge := func(w *world.World) {
		for _, b := range w.Bodies() {
			if b.IsDynamic() {
				b.SetPosition(b.Position().Add(mgl64.Vec3{epsilon, 0, 0}))
				return
			}
		}
	}
	steps := int(divergeTime/cfg.Dt + 0.5)
	res, err := analysis.Divergence(func() (*world.World, error) { return s.New(cfg) }, nudge, cfg.Dt, steps)
	if err != nil {
		return err
	}
	st := styles()
	fmt.Println(st.Box("divergence: "+cfg.Scene, st.KeyValues([][2]string{
		{"initial", fmt.Sprintf("%.3g m", res.Initial)},
		{"final", fmt.Sprintf("%.3g m", res.Final)},
		{"max", fmt.Sprintf("%.3g m", res.Max)},
		{"exponent", fmt.Sprintf("%.3f /s", res.Exponent)},
	})))
	return nil
}

// renderScene runs a scene and writes the body trails, plus the final
// frame as braille dots when --frame is given.
func renderScene(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args[0])
	if err != nil {
		return err
	}
	reg, err := newRegistry()
	if err != nil {
		return err
	}
	s, err := reg.GetScene(cfg.Scene)
	if err != nil {
		return err
	}
	w, err := s.New(cfg)
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	trails := export.NewTrails()
	err = sim.New().RunWithCallback(ctx, w, sim.FromConfig(cfg), func(_ sim.Sample, snap *sim.Snapshot) bool {
		if snap.Step%max(cfg.RecordEvery, 1) == 0 {
			trails.Add(snap)
		}
		return true
	})
	if err != nil {
		return err
	}
	if err := os.WriteFile(svgPath, []byte(trails.SVG(800, 600)), 0644); err != nil {
		return err
	}
	st := styles()
	fmt.Println(st.Status(true, "wrote %d trails to %s", trails.Len(), svgPath))

	if framePath != "" {
		c := viz.NewCanvas(120, 40)
		proj := viz.NewSideView(viz.WorldBounds(w), c.PixelWidth(), c.PixelHeight())
		viz.DrawWorld(c, proj, w, true)
		viz.DrawJoints(c, proj, w)
		if err := os.WriteFile(framePath, []byte(export.CanvasSVG(c, 4, "#00ff88")), 0644); err != nil {
			return err
		}
		fmt.Println(st.Status(true, "wrote final frame to %s", framePath))
	}
	return nil
}
