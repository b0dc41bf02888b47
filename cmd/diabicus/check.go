package main

import (
	"context"
	"fmt"
	"io"

	"github.com/njchilds90/diabicus"
	"github.com/spf13/cobra"
)

var checkParallel int

var checkCmd = &cobra.Command{
	Use:   "check [case-file]...",
	Short: "Check case files against a battery of calculations",
	Long: `Loads each case file (or the configured fact and special-music files)
and runs every test and message against a fixed battery of results and
formulas under the check timeout. Reports faults, timeouts, messages too
long for the display, non-numeric weights and test timings.`,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().IntVar(&checkParallel, "parallel", 0, "Cases checked at once (default GOMAXPROCS)")
}

func runCheck(cmd *cobra.Command, args []string) error {
	paths := args
	if len(paths) == 0 {
		for _, p := range []string{cfg.FactsFile, cfg.SpecialMusicFile} {
			if p != "" {
				paths = append(paths, p)
			}
		}
	}
	if len(paths) == 0 {
		return fmt.Errorf("no case files: pass paths or set --facts / --special-music")
	}

	eval := diabicus.NewEvaluator(diabicus.WithAngleMode(cfg.AngleMode), diabicus.WithEvaluatorLogger(logger))
	loader := diabicus.NewLoader(newRegistry(eval), append(cfg.LoaderOptions(), diabicus.WithLoaderLogger(logger))...)
	opts := []diabicus.CheckOption{
		diabicus.WithCheckRunner(diabicus.NewRunner(cfg.CheckTimeout)),
		diabicus.WithCheckEvaluator(eval),
		diabicus.WithCheckLogger(logger),
	}
	if checkParallel > 0 {
		opts = append(opts, diabicus.WithParallelism(checkParallel))
	}

	w := cmd.OutOrStdout()
	ok := true
	for _, path := range paths {
		set, err := loader.LoadFile(path)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s: %d facts, %d special music loaded\n", path, len(set.Facts), len(set.SpecialMusic))
		ok = checkSet(cmd.Context(), w, "facts", set.Facts, opts) && ok
		ok = checkSet(cmd.Context(), w, "special music", set.SpecialMusic, opts) && ok
	}
	if !ok {
		return fmt.Errorf("case check failed")
	}
	return nil
}

func checkSet[C diabicus.Case](ctx context.Context, w io.Writer, label string, cases []C, opts []diabicus.CheckOption) bool {
	if len(cases) == 0 {
		return true
	}
	rep, err := diabicus.CheckCases(ctx, cases, opts...)
	if err != nil {
		fmt.Fprintf(w, "  %s: %v\n", label, err)
		return false
	}
	for _, cr := range rep.Cases {
		if !cr.ValidWeight {
			fmt.Fprintf(w, "  %s: non-numeric or negative weight\n", cr.Case)
		}
		for _, f := range cr.Failures {
			fmt.Fprintf(w, "  %v\n", f)
		}
	}
	fmt.Fprintf(w, "  %s: test time avg=%s max=%s min=%s\n", label, rep.AvgTest, rep.MaxTest, rep.MinTest)
	fmt.Fprintf(w, "  %s: test failures %s\n", label, ratio(rep.TestFailures, rep.TestRuns))
	fmt.Fprintf(w, "  %s: message failures %s\n", label, ratio(rep.MessageFailures, rep.MessageRuns))
	return rep.OK()
}

func ratio(n, total int) string {
	if total == 0 {
		return fmt.Sprintf("%d / 0", n)
	}
	return fmt.Sprintf("%d / %d = %.2f%%", n, total, float64(n)/float64(total)*100)
}
