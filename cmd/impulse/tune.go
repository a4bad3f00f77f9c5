package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/san-kum/impulse/internal/optim"
	"github.com/spf13/cobra"
)

// tuneScene grid searches the --param values of a scene for the best score
// on one metric.
func tuneScene(cmd *cobra.Command, args []string) error {
	if len(tuneParams) == 0 {
		return fmt.Errorf("give at least one --param path=v1,v2,...")
	}
	cfg, err := resolveConfig(cmd, args[0])
	if err != nil {
		return err
	}
	reg, err := newRegistry()
	if err != nil {
		return err
	}
	params := make([]optim.Param, len(tuneParams))
	for i, s := range tuneParams {
		if params[i], err = optim.ParseParam(s); err != nil {
			return err
		}
	}
	g := optim.NewGridSearch(params...)
	g.Maximize = tuneMaximize
	g.Progress = func(done, total int) { progress(done, total, "") }

	ctx, cancel := signalContext()
	defer cancel()

	goal := "minimizing"
	if tuneMaximize {
		goal = "maximizing"
	}
	fmt.Printf("%s %s on %s over %d points\n", goal, tuneMetric, cfg.Scene, g.Size())
	out, err := g.Search(ctx, cfg, reg, tuneMetric)
	if err != nil {
		return err
	}

	ranked := out.Ranked(tuneMaximize)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprint(w, "RANK")
	for _, p := range params {
		fmt.Fprintf(w, "\t%s", p.Path)
	}
	fmt.Fprintf(w, "\t%s\n", tuneMetric)
	for i, tr := range ranked[:min(len(ranked), max(tuneTop, 1))] {
		fmt.Fprintf(w, "%d", i+1)
		for _, p := range params {
			fmt.Fprintf(w, "\t%g", tr.Values[p.Path])
		}
		fmt.Fprintf(w, "\t%.6g\n", tr.Score)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	st := styles()
	if n := out.Failed(); n > 0 {
		fmt.Println(st.Status(false, "%d of %d points failed", n, len(out.Trials)))
	}
	fmt.Println(st.Status(true, "best %s = %.6g", tuneMetric, out.Best.Score))
	return nil
}
