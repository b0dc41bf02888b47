package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/njchilds90/diabicus"
	"github.com/spf13/cobra"
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Interactive calculator",
	Long: `Reads one formula per line and prints the result. A line starting with
×, /, ^ or ×10^ continues from the previous answer.

Commands:
  :history   show past calculations
  :stats     show calculation and error counts
  :clear     clear the display
  :quit      leave (so does end of input)`,
	Args: cobra.NoArgs,
	RunE: runREPL,
}

func runREPL(cmd *cobra.Command, args []string) error {
	calc, err := newCalculator()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "diabicus (%s, %d facts, %d special music). :quit to leave.\n",
		calc.eval.AngleMode(), calc.facts.Len(), calc.music.Len())

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		fmt.Fprint(w, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(w)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case ":quit", ":q", "quit", "exit":
			return nil
		case ":history":
			for i, e := range calc.session.History().Entries() {
				fmt.Fprintf(w, "%4d  %s = %s\n", i+1, strings.ReplaceAll(e.Formula, diabicus.FunctionPrefix, ""), e.Output)
			}
			continue
		case ":stats":
			n, errs := calc.session.Stats()
			fmt.Fprintf(w, "%d calculations, %d errors, Ans = %s\n", n, errs, calc.session.Result())
			continue
		case ":clear":
			calc.session.Clear()
			calc.session.Clear()
			continue
		}
		calc.calculate(ctx, w, line)
	}
}
