package main

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/impulse/internal/analysis"
	"github.com/san-kum/impulse/internal/sim"
	"github.com/san-kum/impulse/internal/storage"
	"github.com/spf13/cobra"
)

var seriesFuncs = map[string]func(sim.Sample) float64{
	"kinetic":   func(s sim.Sample) float64 { return s.KineticEnergy },
	"potential": func(s sim.Sample) float64 { return s.PotentialEnergy },
	"energy":    func(s sim.Sample) float64 { return s.Energy() },
	"speed":     func(s sim.Sample) float64 { return s.MaxSpeed },
	"depth":     func(s sim.Sample) float64 { return s.MaxDepth },
	"contacts":  func(s sim.Sample) float64 { return float64(s.Contacts) },
	"points":    func(s sim.Sample) float64 { return float64(s.Points) },
	"impulse":   func(s sim.Sample) float64 { return s.NormalImpulse },
	"awake":     func(s sim.Sample) float64 { return float64(s.AwakeBodies) },
	"sleeping":  func(s sim.Sample) float64 { return float64(s.SleepingBodies) },
	"pairs":     func(s sim.Sample) float64 { return float64(s.Pairs) },
	"islands":   func(s sim.Sample) float64 { return float64(s.Islands) },
}

// plotted are the series shown when plot is not given --series.
var plotted = []string{"energy", "speed", "depth", "contacts", "awake"}

func seriesNames() []string {
	names := make([]string, 0, len(seriesFuncs))
	for name := range seriesFuncs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func series(samples []sim.Sample, name string) ([]float64, error) {
	f, ok := seriesFuncs[name]
	if !ok {
		return nil, fmt.Errorf("unknown series %q (available: %v)", name, seriesNames())
	}
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = f(s)
	}
	return out, nil
}

func loadRun(id string) (*storage.RunMetadata, []sim.Sample, error) {
	st := storage.New(dataDir)
	meta, err := st.Load(id)
	if err != nil {
		return nil, nil, err
	}
	samples, err := st.LoadSeries(id)
	if err != nil {
		return nil, nil, err
	}
	if len(samples) < 2 {
		return nil, nil, fmt.Errorf("run %s has %d samples, need at least 2", id, len(samples))
	}
	return meta, samples, nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	runs, err := storage.New(dataDir).List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSCENE\tTIME\tDURATION\tDT\tCORRECTION\tBODIES\tDRIFT\tERRORS")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2fs\t%.4fs\t%s\t%d\t%.3g\t%d\n",
			run.ID,
			run.Scene,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Duration,
			run.Dt,
			run.PositionCorrection,
			run.Bodies,
			run.EnergyDrift,
			len(run.Errors),
		)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	meta, samples, err := loadRun(args[0])
	if err != nil {
		return err
	}
	names := plotted
	if plotSeries != "" {
		names = []string{plotSeries}
	}

	st := styles()
	fmt.Println(st.Title.Render(meta.ID) + st.Muted.Render(fmt.Sprintf("  %s, %d samples", meta.Scene, len(samples))))
	fmt.Println()
	for _, name := range names {
		data, err := series(samples, name)
		if err != nil {
			return err
		}
		graph := asciigraph.Plot(data,
			asciigraph.Height(8),
			asciigraph.Width(80),
			asciigraph.Caption(name),
		)
		fmt.Println(st.Graph.Render(graph))
		fmt.Println()
	}
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	if outPath != "" {
		if err := st.ExportJSON(args[0], outPath); err != nil {
			return err
		}
		fmt.Println(styles().Status(true, "exported %s to %s", args[0], outPath))
		return nil
	}
	return st.Export(args[0], os.Stdout)
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	meta, samples, err := loadRun(args[0])
	if err != nil {
		return err
	}
	data, err := series(samples, seriesName)
	if err != nil {
		return err
	}
	interval := samples[1].Time - samples[0].Time
	ps, err := analysis.Spectrum(data, interval)
	if err != nil {
		return err
	}

	st := styles()
	fmt.Println(st.Title.Render("power spectrum: "+meta.ID) + st.Muted.Render("  "+seriesName))
	fmt.Println()
	graph := asciigraph.Plot(ps.Power,
		asciigraph.Height(12),
		asciigraph.Width(80),
		asciigraph.Caption(fmt.Sprintf("power (0 to %.1f Hz)", ps.Frequencies[len(ps.Frequencies)-1])),
	)
	fmt.Println(st.Graph.Render(graph))
	fmt.Println()

	rows := [][2]string{
		{"dominant", fmt.Sprintf("%.3f Hz", ps.Dominant)},
		{"total", fmt.Sprintf("%.4g", ps.Total())},
		{"above", fmt.Sprintf("%.1f%% over %.1f Hz", 100*ps.HighFrequencyRatio(cutoff), cutoff)},
	}
	if ps.Dominant > 0 {
		rows = append(rows, [2]string{"period", fmt.Sprintf("%.3f s", 1/ps.Dominant)})
	}
	fmt.Print(st.KeyValues(rows))
	return nil
}

func phasePlot(cmd *cobra.Command, args []string) error {
	meta, samples, err := loadRun(args[0])
	if err != nil {
		return err
	}
	xs, err := series(samples, xSeries)
	if err != nil {
		return err
	}
	ys, err := series(samples, ySeries)
	if err != nil {
		return err
	}
	st := styles()
	fmt.Println(st.Title.Render("portrait: "+meta.ID) + st.Muted.Render(fmt.Sprintf("  x=%s y=%s", xSeries, ySeries)))
	fmt.Println()
	fmt.Print(st.Graph.Render(analysis.NewPortrait(xs, ys).ASCII(80, 24)))
	fmt.Println()
	return nil
}
