package main

import (
	"fmt"
	"os"

	"github.com/san-kum/impulse/internal/experiment"
	"github.com/san-kum/impulse/internal/viz"
	"github.com/spf13/cobra"
)

var (
	dataDir    string
	sceneFiles []string
	themeName  string

	preset     string
	configFile string
	sets       []string
	dt         float64
	duration   float64
	seed       int64
	workers    int
	noSave     bool

	seriesName  string
	plotSeries  string
	gifPath     string
	framePath   string
	svgPath     string
	xSeries     string
	ySeries     string
	cutoff      float64
	outPath     string
	stepsFrame  int
	benchSteps  int
	trials      int
	mcDuration  float64
	mcSeed      int64
	kick        float64
	epsilon     float64
	divergeTime float64

	tuneParams   []string
	tuneMetric   string
	tuneMaximize bool
	tuneTop      int
)

// main registers the commands and opens the scene picker when none is given.
func main() {
	rootCmd := &cobra.Command{
		Use:           "impulse",
		Short:         "rigid body physics lab",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := newRegistry()
			if err != nil {
				return err
			}
			return viz.RunPicker(pickerEntries(reg), viz.Options{Theme: themeName})
		},
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".impulse", "run store directory")
	rootCmd.PersistentFlags().StringArrayVar(&sceneFiles, "scene-file", nil, "extra YAML scene file (repeatable)")
	rootCmd.PersistentFlags().StringVar(&themeName, "theme", "neon", "color theme")

	runCmd := &cobra.Command{
		Use:   "run [scene]",
		Short: "run a scene headless and store the result",
		Args:  cobra.ExactArgs(1),
		RunE:  runScene,
	}
	configFlags(runCmd)
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")

	liveCmd := &cobra.Command{
		Use:   "live [scene]",
		Short: "step a scene in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE:  runLive,
	}
	configFlags(liveCmd)
	liveCmd.Flags().IntVar(&stepsFrame, "steps-per-frame", 1, "world steps per drawn frame")
	liveCmd.Flags().StringVar(&gifPath, "gif", "impulse.gif", "where recordings are written")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot stored series",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&plotSeries, "series", "", "plot only this series")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export a run as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}
	exportCmd.Flags().StringVarP(&outPath, "out", "o", "", "write to a file instead of stdout")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "power spectrum of a stored series",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}
	analyzeCmd.Flags().StringVar(&seriesName, "series", "kinetic", "series to analyze")
	analyzeCmd.Flags().Float64Var(&cutoff, "cutoff", 5, "high frequency cutoff in Hz")

	phaseCmd := &cobra.Command{
		Use:   "phase [run_id]",
		Short: "plot one stored series against another",
		Args:  cobra.ExactArgs(1),
		RunE:  phasePlot,
	}
	phaseCmd.Flags().StringVar(&xSeries, "x", "potential", "x axis series")
	phaseCmd.Flags().StringVar(&ySeries, "y", "kinetic", "y axis series")

	scenesCmd := &cobra.Command{
		Use:   "scenes",
		Short: "list scenes",
		RunE:  listScenes,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets [scene]",
		Short: "list presets of a scene",
		Args:  cobra.ExactArgs(1),
		RunE:  listPresets,
	}

	benchCmd := &cobra.Command{
		Use:   "bench [scene]",
		Short: "measure step throughput",
		Args:  cobra.ExactArgs(1),
		RunE:  benchScene,
	}
	configFlags(benchCmd)
	benchCmd.Flags().IntVar(&benchSteps, "steps", 600, "steps per configuration")

	sweepCmd := &cobra.Command{
		Use:   "sweep [file]",
		Short: "sweep one config value over a range",
		Args:  cobra.ExactArgs(1),
		RunE:  runSweep,
	}

	batchCmd := &cobra.Command{
		Use:   "batch [file]",
		Short: "run scripted scenarios",
		Args:  cobra.ExactArgs(1),
		RunE:  runBatch,
	}

	monteCarloCmd := &cobra.Command{
		Use:   "montecarlo [scene]",
		Short: "random velocity kicks, counting unstable trials",
		Args:  cobra.ExactArgs(1),
		RunE:  runMonteCarlo,
	}
	monteCarloCmd.Flags().IntVar(&trials, "trials", 20, "number of trials")
	monteCarloCmd.Flags().Float64Var(&kick, "kick", 2, "largest velocity kick per axis")
	monteCarloCmd.Flags().Float64Var(&mcDuration, "time", 3, "trial duration")
	monteCarloCmd.Flags().Int64Var(&mcSeed, "seed", 1, "first seed")

	divergeCmd := &cobra.Command{
		Use:   "diverge [scene]",
		Short: "separation of two runs after a tiny nudge",
		Args:  cobra.ExactArgs(1),
		RunE:  runDiverge,
	}
	configFlags(divergeCmd)
	divergeCmd.Flags().Float64Var(&epsilon, "epsilon", 1e-6, "initial nudge in meters")
	divergeCmd.Flags().Float64Var(&divergeTime, "for", 3, "seconds to follow")

	renderCmd := &cobra.Command{
		Use:   "render [scene]",
		Short: "run a scene and draw the body trails as SVG",
		Args:  cobra.ExactArgs(1),
		RunE:  renderScene,
	}
	configFlags(renderCmd)
	renderCmd.Flags().StringVarP(&svgPath, "out", "o", "trails.svg", "trail picture")
	renderCmd.Flags().StringVar(&framePath, "frame", "", "also write the final frame here")

	tuneCmd := &cobra.Command{
		Use:   "tune [scene]",
		Short: "grid search config values for the best metric",
		Args:  cobra.ExactArgs(1),
		RunE:  tuneScene,
	}
	configFlags(tuneCmd)
	tuneCmd.Flags().StringArrayVar(&tuneParams, "param", nil, "config path and values, e.g. physics.solver.velocity_iterations=4,8,16 (repeatable)")
	tuneCmd.Flags().StringVar(&tuneMetric, "metric", "max_penetration", "metric to score")
	tuneCmd.Flags().BoolVar(&tuneMaximize, "maximize", false, "keep the largest score")
	tuneCmd.Flags().IntVar(&tuneTop, "top", 5, "rows to show")

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "config file helpers",
	}
	configCmd.AddCommand(&cobra.Command{
		Use:   "init [path]",
		Short: "write the default config",
		Args:  cobra.ExactArgs(1),
		RunE:  initConfig,
	})

	rootCmd.AddCommand(runCmd, liveCmd, listCmd, plotCmd, exportCmd, analyzeCmd, phaseCmd,
		scenesCmd, presetsCmd, benchCmd, sweepCmd, batchCmd, monteCarloCmd, divergeCmd, renderCmd, tuneCmd, configCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, styles().Bad.Render("error: "+err.Error()))
		os.Exit(1)
	}
}

// configFlags adds the flags that shape a run config.
func configFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&preset, "preset", "", "scene preset")
	cmd.Flags().StringVar(&configFile, "config", "", "config file (yaml)")
	cmd.Flags().StringArrayVar(&sets, "set", nil, "override a config value, e.g. physics.solver.velocity_iterations=20")
	cmd.Flags().Float64Var(&dt, "dt", 0, "timestep")
	cmd.Flags().Float64Var(&duration, "time", 0, "duration in seconds")
	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed")
	cmd.Flags().IntVar(&workers, "workers", 0, "island solver workers")
}

func styles() viz.Styles { return viz.GetTheme(themeName).Styles() }

func newRegistry() (*experiment.Registry, error) {
	reg := experiment.NewRegistry()
	for _, path := range sceneFiles {
		if _, err := reg.AddFile(path); err != nil {
			return nil, err
		}
	}
	return reg, nil
}
