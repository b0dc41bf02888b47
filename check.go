package diabicus

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// TagBigNum marks cases allowed to time out on very large inputs.
const TagBigNum = "big-num"

// MaxMessageLength is the longest message, in runes, the display shows.
const MaxMessageLength = 100

// Probe is one calculation a case is checked against: a single result, or
// a sequence of formulas evaluated in order with Ans carried between them.
type Probe struct {
	Results  []Value
	Formulas []string
	// BigNum tolerates timeouts of cases tagged TagBigNum.
	BigNum bool
}

func (p Probe) String() string {
	if len(p.Formulas) > 0 {
		return fmt.Sprintf("formulas %q", p.Formulas)
	}
	return fmt.Sprintf("results %v", p.Results)
}

// DefaultProbes is the battery CheckCases runs when none is given: small,
// huge, negative, irrational, complex and failing results, and multi-step
// histories.
func DefaultProbes() []Probe {
	p15, _ := Prime(15)
	results := func(vs ...Value) Probe { return Probe{Results: vs} }
	formulas := func(fs ...string) Probe { return Probe{Formulas: fs} }
	ln := FunctionPrefix + "ln("
	return []Probe{
		results(Int(0)),
		results(Int(1)),
		results(Int(2)),
		results(Real(GoldenRatio)),
		results(Int(p15)),
		results(Int(FibonacciNumbers[15])),
		results(Int(LucasNumbers[15])),
		results(Real(math.Pi)),
		results(Real(math.E)),
		results(Real(math.Inf(1))),
		results(Real(math.Pi + 1.643e-8)),
		results(Real(math.E + 1.643e-8)),
		results(Real(0.5)),
		results(Real(13.7)),
		results(Real(1e-35)),
		{Results: []Value{Real(1e35)}, BigNum: true},
		results(Int(-1)),
		results(Int(-2)),
		results(Real(-0.5)),
		results(Real(-13.7)),
		results(Real(-1e-35)),
		results(Real(-1e35)),
		results(Complex(complex(3, 1))),
		results(Int(88), Complex(complex(6, 17.079468445347132)), Int(45)),
		results(Int(0), Int(0), Int(0), Int(0), Int(0)),
		results(Failed(ErrorOf(ErrSyntax)), Failed(ErrorOf(ErrDivideByZero))),
		formulas("(-25)^0.5"),
		formulas("-(-25)^0.5"),
		formulas("3+(-25)^0.5"),
		formulas("-3-(-25)^0.5"),
		formulas("-3+(-25)^0.5"),
		formulas("3-(-25)^0.5"),
		formulas("1/0"),
		formulas("9**/5"),
		{Formulas: []string{".3^-221.062"}, BigNum: true},
		{Formulas: []string{"1213^3"}, BigNum: true},
		formulas("333×2197-" + ln + ".5)"),
		formulas("15-2", "eiτ×5"),
		formulas("1i", "Ans+3", "Ans^2", "(Ans)^.5"),
		formulas("14i×-i", ln+"Ans)"),
		formulas(ln + "14i×-i)"),
	}
}

// history builds the probe's calculation history; the last entry is the
// calculation under test.
func (p Probe) history(e *Evaluator, f Formatter) History {
	var h History
	if len(p.Formulas) == 0 {
		for _, r := range p.Results {
			h = h.with(Entry{Formula: r.String(), Result: r, Output: f.Format(r)})
		}
		return h
	}
	ans := Int(0)
	for _, formula := range p.Formulas {
		r, err := e.Compute(formula, ans)
		if err != nil {
			ce, _ := err.(*ComputationError)
			if ce == nil {
				ce = newComputationError(ErrComputation, err)
			}
			r = Failed(ce)
		} else {
			ans = r
		}
		h = h.with(Entry{Formula: formula, Result: r, Output: f.Format(r)})
	}
	return h
}

// CheckFailure is one problem found by CheckCases. Message is -1 for test
// failures.
type CheckFailure struct {
	Case    string
	Probe   string
	Phase   CasePhase
	Message int
	Err     error
}

func (f CheckFailure) Error() string {
	if f.Phase == PhaseMessage {
		return fmt.Sprintf("%s: message %d on %s: %v", f.Case, f.Message, f.Probe, f.Err)
	}
	return fmt.Sprintf("%s: %s on %s: %v", f.Case, f.Phase, f.Probe, f.Err)
}

// CaseReport is the outcome of checking one case.
type CaseReport struct {
	Case        string
	ValidWeight bool
	Applicable  int
	TestRuns    int
	MessageRuns int
	Failures    []CheckFailure
	Durations   []time.Duration
}

func (r CaseReport) OK() bool { return r.ValidWeight && len(r.Failures) == 0 }

// CheckReport aggregates CaseReports.
type CheckReport struct {
	Cases           []CaseReport
	TestRuns        int
	TestFailures    int
	MessageRuns     int
	MessageFailures int
	InvalidWeights  int
	MinTest         time.Duration
	AvgTest         time.Duration
	MaxTest         time.Duration
}

func (r CheckReport) OK() bool {
	return r.TestFailures == 0 && r.MessageFailures == 0 && r.InvalidWeights == 0
}

type checkOptions struct {
	runner      Runner
	probes      []Probe
	eval        *Evaluator
	formatter   Formatter
	logger      *zap.Logger
	parallelism int
}

// CheckOption configures CheckCases.
type CheckOption func(*checkOptions)

func WithCheckRunner(r Runner) CheckOption {
	return func(o *checkOptions) { o.runner = r }
}

func WithProbes(p ...Probe) CheckOption {
	return func(o *checkOptions) { o.probes = p }
}

func WithCheckEvaluator(e *Evaluator) CheckOption {
	return func(o *checkOptions) { o.eval = e }
}

func WithCheckLogger(l *zap.Logger) CheckOption {
	return func(o *checkOptions) { o.logger = l }
}

// WithParallelism bounds how many cases are checked at once.
func WithParallelism(n int) CheckOption {
	return func(o *checkOptions) { o.parallelism = n }
}

// Optional case capabilities CheckCases looks for.
type (
	messenger interface{ Messages() []Message }
	weighted  interface{ ValidWeight() bool }
	tagged    interface{ HasTag(string) bool }
)

// CheckCases runs every case's test against each probe under the check
// deadline, then every message of the cases that applied. It reports test
// faults, message faults, messages longer than MaxMessageLength runes and
// invalid weights. Timeouts of TagBigNum cases on big-number probes are
// tolerated. The error is non-nil only when ctx is cancelled.
func CheckCases[C Case](ctx context.Context, cases []C, opts ...CheckOption) (CheckReport, error) {
	o := checkOptions{
		runner:      NewRunner(DefaultCheckTimeout),
		probes:      DefaultProbes(),
		logger:      zap.NewNop(),
		formatter:   NewFormatter(DefaultDisplayDigits),
		parallelism: runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.eval == nil {
		o.eval = NewEvaluator()
	}

	histories := make([]History, len(o.probes))
	for i, p := range o.probes {
		histories[i] = p.history(o.eval, o.formatter)
	}

	reports := make([]CaseReport, len(cases))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(o.parallelism, 1))
	for i, cs := range cases {
		g.Go(func() error {
			rep, err := checkCase(ctx, &o, cs, histories)
			reports[i] = rep
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return CheckReport{}, err
	}
	return summarize(reports), nil
}

func checkCase[C Case](ctx context.Context, o *checkOptions, cs C, histories []History) (CaseReport, error) {
	name := cs.String()
	rep := CaseReport{Case: name, ValidWeight: true}
	if w, ok := any(cs).(weighted); ok {
		rep.ValidWeight = w.ValidWeight()
	}
	bigNum := false
	if t, ok := any(cs).(tagged); ok {
		bigNum = t.HasTag(TagBigNum)
	}
	var messages []Message
	if m, ok := any(cs).(messenger); ok {
		messages = m.Messages()
	}

	fail := func(f CheckFailure) {
		rep.Failures = append(rep.Failures, f)
		o.logger.Warn("case check failed", zap.Error(f))
	}

	for i, hist := range histories {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		probe := o.probes[i]
		last, _ := hist.At(-1)
		tolerate := func(err error) bool {
			return probe.BigNum && bigNum && errors.Is(err, ErrTimeout)
		}

		start := time.Now()
		ok, err := isolate(ctx, o.runner, name, PhaseTest, func(ctx context.Context) (bool, error) {
			return cs.Test(ctx, last.Formula, last.Result, hist)
		})
		rep.TestRuns++
		if err != nil {
			if ctx.Err() != nil {
				return rep, ctx.Err()
			}
			if !tolerate(err) {
				fail(CheckFailure{Case: name, Probe: probe.String(), Phase: PhaseTest, Message: -1, Err: err})
			}
			continue
		}
		rep.Durations = append(rep.Durations, time.Since(start))
		if !ok {
			continue
		}
		rep.Applicable++

		for j, msg := range messages {
			text, err := isolate(ctx, o.runner, name, PhaseMessage, func(ctx context.Context) (string, error) {
				return msg(ctx, last.Formula, last.Result, hist)
			})
			rep.MessageRuns++
			switch {
			case err != nil && tolerate(err):
			case err != nil:
				fail(CheckFailure{Case: name, Probe: probe.String(), Phase: PhaseMessage, Message: j, Err: err})
			case utf8.RuneCountInString(text) > MaxMessageLength:
				fail(CheckFailure{Case: name, Probe: probe.String(), Phase: PhaseMessage, Message: j,
					Err: fmt.Errorf("%w: %d runes: %q", ErrMessageTooLong, utf8.RuneCountInString(text), text)})
			}
		}
	}
	return rep, nil
}

func summarize(reports []CaseReport) CheckReport {
	out := CheckReport{Cases: reports}
	var total time.Duration
	n := 0
	for _, r := range reports {
		out.TestRuns += r.TestRuns
		out.MessageRuns += r.MessageRuns
		if !r.ValidWeight {
			out.InvalidWeights++
		}
		for _, f := range r.Failures {
			if f.Phase == PhaseMessage {
				out.MessageFailures++
			} else {
				out.TestFailures++
			}
		}
		for _, d := range r.Durations {
			if n == 0 || d < out.MinTest {
				out.MinTest = d
			}
			out.MaxTest = max(out.MaxTest, d)
			total += d
			n++
		}
	}
	if n > 0 {
		out.AvgTest = total / time.Duration(n)
	}
	return out
}
