package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/njchilds90/diabicus"
)

// calculator ties a session to the configured case collections.
type calculator struct {
	eval    *diabicus.Evaluator
	session *diabicus.Session
	facts   *diabicus.Collection[*diabicus.Fact]
	music   *diabicus.Collection[*diabicus.SpecialMusicCase]
}

func newCalculator() (*calculator, error) {
	eval := diabicus.NewEvaluator(
		diabicus.WithAngleMode(cfg.AngleMode),
		diabicus.WithEvaluatorLogger(logger),
	)
	c := &calculator{
		eval: eval,
		session: diabicus.NewSession(
			diabicus.WithEvaluator(eval),
			diabicus.WithDisplayDigits(cfg.DisplayDigits),
			diabicus.WithSessionLogger(logger),
		),
	}

	loader := diabicus.NewLoader(newRegistry(eval), append(cfg.LoaderOptions(), diabicus.WithLoaderLogger(logger))...)
	opts := append(cfg.CollectionOptions(), diabicus.WithCollectionLogger(logger))
	var facts []*diabicus.Fact
	var music []*diabicus.SpecialMusicCase
	for _, path := range []string{cfg.FactsFile, cfg.SpecialMusicFile} {
		if path == "" {
			continue
		}
		set, err := loader.LoadFile(path)
		if err != nil {
			return nil, err
		}
		facts = append(facts, set.Facts...)
		music = append(music, set.SpecialMusic...)
	}
	c.facts = diabicus.NewCollection(facts, opts...)
	c.music = diabicus.NewCollection(music, opts...)
	return c, nil
}

func newRegistry(eval *diabicus.Evaluator) *diabicus.Registry {
	return diabicus.NewRegistry(
		diabicus.WithRegistryEvaluator(eval),
		diabicus.WithRegistryFormatter(diabicus.NewFormatter(cfg.DisplayDigits)),
	)
}

// calculate types line into the session, evaluates it and reports the
// output with any fact or special music it triggers.
func (c *calculator) calculate(ctx context.Context, w io.Writer, line string) {
	// A leading operator is pressed on its own so it continues from Ans.
	for _, op := range []string{"×10^", "×", "/", "^"} {
		if strings.HasPrefix(line, op) {
			c.session.PressKey(op)
			line = strings.TrimPrefix(line, op)
			break
		}
	}
	if line != "" {
		c.session.PressKey(line)
	}
	result := c.session.Calculate()
	fmt.Fprintln(w, c.session.Output())

	hist := c.session.History()
	formula := line
	if last, ok := hist.At(-1); ok {
		formula = last.Formula
	}
	if fact, msg, ok := diabicus.PickFact(ctx, c.facts, formula, result, hist); ok {
		fmt.Fprintf(w, "  fact: %s\n", msg)
		if fact.Link != "" {
			fmt.Fprintf(w, "        %s\n", fact.Link)
		}
	}
	if m, ok := c.music.Pick(ctx, formula, result, hist); ok {
		fmt.Fprintf(w, "  music: %s (%s from %s", m.Cite, m.File, m.Start)
		if d := m.PlayLength(); d > 0 {
			fmt.Fprintf(w, " for %s", d)
		}
		fmt.Fprintln(w, ")")
	}
}
