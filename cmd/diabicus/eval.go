package main

import (
	"fmt"

	"github.com/njchilds90/diabicus"
	"github.com/spf13/cobra"
)

var showNormalized bool

var evalCmd = &cobra.Command{
	Use:   "eval [formula]...",
	Short: "Evaluate formulas in order, carrying Ans between them",
	Long: `Evaluates each argument as one calculation of a single session, so Ans
refers to the previous argument's result.

Example:
  diabicus eval "1i" "Ans+3" "Ans^2"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runEval,
}

func init() {
	evalCmd.Flags().BoolVar(&showNormalized, "normalized", false, "Also print each formula as normalized for evaluation")
}

func runEval(cmd *cobra.Command, args []string) error {
	calc, err := newCalculator()
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	for _, formula := range args {
		if showNormalized {
			fmt.Fprintf(w, "%s\n", diabicus.Normalize(formula, calc.eval.Names()))
		}
		calc.calculate(cmd.Context(), w, formula)
	}
	if _, errs := calc.session.Stats(); errs > 0 {
		return fmt.Errorf("%d of %d calculations failed", errs, len(args))
	}
	return nil
}
