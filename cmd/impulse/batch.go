package main

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/san-kum/impulse/internal/analysis"
	"github.com/san-kum/impulse/internal/automation"
	"github.com/san-kum/impulse/internal/storage"
	"github.com/san-kum/impulse/internal/viz"
	"github.com/spf13/cobra"
)

// progress redraws one bar line in place.
func progress(done, total int, label string) {
	st := styles()
	fmt.Printf("\r%s %d/%d %-24s", st.ProgressBar(float64(done)/float64(max(total, 1)), 30), done, total, label)
	if done == total {
		fmt.Println()
	}
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func runSweep(cmd *cobra.Command, args []string) error {
	sweep, err := automation.LoadSweep(args[0])
	if err != nil {
		return err
	}
	reg, err := newRegistry()
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	fmt.Printf("sweeping %s over %d values on %s\n", sweep.ParamName, len(sweep.ParamValues()), sweep.Scene)
	results, err := automation.RunSweep(ctx, sweep, reg, automation.Options{Progress: progress})
	if err != nil {
		return err
	}
	if len(results) == 0 {
		return nil
	}

	names := sortedKeys(results[0].Metrics)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprint(w, sweep.ParamName)
	for _, n := range names {
		fmt.Fprintf(w, "\t%s", n)
	}
	fmt.Fprintln(w)
	for _, r := range results {
		fmt.Fprintf(w, "%g", r.ParamValue)
		for _, n := range names {
			fmt.Fprintf(w, "\t%.4g", r.Metrics[n])
		}
		fmt.Fprintln(w)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	// one column per value, every seed of the first metric
	if len(names) > 0 {
		points := make([]analysis.SweepPoint, len(results))
		for i, r := range results {
			points[i].Param = r.ParamValue
			for _, m := range r.PerSeed {
				points[i].Values = append(points[i].Values, m[names[0]])
			}
		}
		fmt.Println()
		fmt.Println(styles().Title.Render(names[0] + " per seed"))
		fmt.Print(styles().Graph.Render(analysis.SweepToASCII(points, 80, 20)))
		fmt.Println()
	}
	return nil
}

func runBatch(cmd *cobra.Command, args []string) error {
	scenarios, err := automation.LoadScenarios(args[0])
	if err != nil {
		return err
	}
	reg, err := newRegistry()
	if err != nil {
		return err
	}
	store := storage.New(dataDir)
	if err := store.Init(); err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	st := styles()
	for _, sc := range scenarios {
		fmt.Println(st.Title.Render(sc.Name) + st.Muted.Render("  "+sc.Description))
		results, err := automation.RunScenario(ctx, sc, reg, automation.Options{Store: store, Progress: progress})
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "STEP\tSCENE\tSTEPS\tDRIFT\tERRORS\tRUN")
		for _, r := range results {
			fmt.Fprintf(w, "%d\t%s\t%d\t%.3g\t%d\t%s\n",
				r.Step, r.Config.Scene, r.Result.StepsTaken, r.Result.EnergyDrift, len(r.Result.Errors), r.RunID)
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Println()
	}
	return nil
}

func runMonteCarlo(cmd *cobra.Command, args []string) error {
	reg, err := newRegistry()
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	results, err := automation.RunMonteCarlo(ctx, &automation.MonteCarloConfig{
		Scene:        args[0],
		Perturbation: kick,
		NumTrials:    trials,
		Duration:     mcDuration,
		Seed:         mcSeed,
	}, reg, automation.Options{Progress: progress})
	if err != nil {
		return err
	}
	stable, unstable := automation.MonteCarloStats(results)

	st := styles()
	speeds := make([]float64, len(results))
	for i, r := range results {
		speeds[i] = r.FinalSpeed
	}
	fmt.Println(st.Muted.Render("final speeds ") + viz.Sparkline(speeds, 40))
	fmt.Println(st.Status(unstable == 0, "%d stable, %d unstable of %d trials", stable, unstable, len(results)))
	return nil
}
