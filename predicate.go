package diabicus

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// DefaultCloseTolerance is the absolute tolerance used by close_to and
// repeated when none is given.
const DefaultCloseTolerance = 1e-5

// PredicateSpec is the declarative form of a case test. Exactly one of
// Name, All, Any and Not is set. Keys other than the known ones are kept in
// Options:
//
//	test: is_prime
//	test: {name: close_to, args: ["φ", "φ^2"], tolerance: 0.001}
//	test: {all: [is_int, {not: is_negative}]}
type PredicateSpec struct {
	Name    string          `yaml:"name,omitempty"`
	Args    []any           `yaml:"args,omitempty"`
	All     []PredicateSpec `yaml:"all,omitempty"`
	Any     []PredicateSpec `yaml:"any,omitempty"`
	Not     *PredicateSpec  `yaml:"not,omitempty"`
	Options map[string]any  `yaml:",inline"`
}

// UnmarshalYAML accepts a bare predicate name as shorthand for {name: ...}.
func (s *PredicateSpec) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		return node.Decode(&s.Name)
	}
	type plain PredicateSpec
	return node.Decode((*plain)(s))
}

// IsZero reports whether the spec names no test at all.
func (s PredicateSpec) IsZero() bool {
	return s.Name == "" && len(s.All) == 0 && len(s.Any) == 0 && s.Not == nil
}

// ============================================================
// Args
// ============================================================

// Args are the arguments and options given to a predicate factory.
// Numeric arguments may be numbers or calculator expressions ("π", "φ^2").
type Args struct {
	name string
	vals []any
	opts map[string]any
	eval *Evaluator
}

func (a Args) Len() int { return len(a.vals) }

func (a Args) errorf(format string, args ...any) error {
	return fmt.Errorf("%s: %w: %s", a.name, ErrBadPredicateArgs, fmt.Sprintf(format, args...))
}

// Value returns argument i as a calculator value.
func (a Args) Value(i int) (Value, error) {
	if i >= len(a.vals) {
		return Value{}, a.errorf("missing argument %d", i)
	}
	return a.toValue(a.vals[i])
}

// Values returns every argument as a calculator value.
func (a Args) Values() ([]Value, error) {
	out := make([]Value, 0, len(a.vals))
	for i := range a.vals {
		v, err := a.Value(i)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (a Args) toValue(x any) (Value, error) {
	switch x := x.(type) {
	case int:
		return Int(int64(x)), nil
	case int64:
		return Int(x), nil
	case uint64:
		if x > math.MaxInt64 {
			return Real(float64(x)), nil
		}
		return Int(int64(x)), nil
	case float64:
		return Real(x), nil
	case string:
		v, err := a.eval.Compute(x, Int(0))
		if err != nil {
			return Value{}, a.errorf("expression %q: %v", x, err)
		}
		return v, nil
	}
	return Value{}, a.errorf("%v (%T) is not a number", x, x)
}

// Float returns argument i as a real number.
func (a Args) Float(i int) (float64, error) {
	v, err := a.Value(i)
	if err != nil {
		return 0, err
	}
	f, ok := v.Float64()
	if !ok {
		return 0, a.errorf("argument %d is not real", i)
	}
	return f, nil
}

// Int returns argument i as an integer, or def when absent.
func (a Args) Int(i, def int) (int, error) {
	if i >= len(a.vals) {
		return def, nil
	}
	f, err := a.Float(i)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, a.errorf("argument %d is not a small integer", i)
	}
	return int(f), nil
}

func (a Args) String(i int) (string, error) {
	if i >= len(a.vals) {
		return "", a.errorf("missing argument %d", i)
	}
	s, ok := a.vals[i].(string)
	if !ok {
		return "", a.errorf("argument %d is not a string", i)
	}
	return s, nil
}

// Strings returns every argument as a string.
func (a Args) Strings() ([]string, error) {
	out := make([]string, len(a.vals))
	for i := range a.vals {
		s, err := a.String(i)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

// OptFloat returns option key as a real number, or def when absent.
func (a Args) OptFloat(key string, def float64) (float64, error) {
	x, ok := a.opts[key]
	if !ok {
		return def, nil
	}
	v, err := a.toValue(x)
	if err != nil {
		return 0, err
	}
	f, ok := v.Float64()
	if !ok {
		return 0, a.errorf("option %s is not real", key)
	}
	return f, nil
}

func (a Args) OptBool(key string, def bool) (bool, error) {
	x, ok := a.opts[key]
	if !ok {
		return def, nil
	}
	b, ok := x.(bool)
	if !ok {
		return false, a.errorf("option %s is not a boolean", key)
	}
	return b, nil
}

func (a Args) OptString(key, def string) (string, error) {
	x, ok := a.opts[key]
	if !ok {
		return def, nil
	}
	s, ok := x.(string)
	if !ok {
		return "", a.errorf("option %s is not a string", key)
	}
	return s, nil
}

// ============================================================
// Registry
// ============================================================

// PredicateFactory builds a Predicate from its arguments. It runs once, at
// load time, so argument errors surface before any calculation.
type PredicateFactory func(args Args) (Predicate, error)

// Registry maps predicate names to factories and compiles PredicateSpecs
// and message templates. It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]PredicateFactory
	eval      *Evaluator
	formatter Formatter
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithRegistryEvaluator sets the evaluator for expression arguments.
func WithRegistryEvaluator(e *Evaluator) RegistryOption {
	return func(r *Registry) { r.eval = e }
}

// WithRegistryFormatter sets the formatter behind the "format" template
// function.
func WithRegistryFormatter(f Formatter) RegistryOption {
	return func(r *Registry) { r.formatter = f }
}

// NewRegistry returns a Registry holding the built-in predicates.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		factories: make(map[string]PredicateFactory),
		formatter: NewFormatter(DefaultDisplayDigits),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.eval == nil {
		r.eval = NewEvaluator()
	}
	for name, f := range builtinPredicates {
		r.factories[name] = f
	}
	return r
}

// Register adds or replaces a predicate.
func (r *Registry) Register(name string, f PredicateFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

// Names returns the registered predicate names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Compile turns spec into a Predicate. A zero spec compiles to nil, which
// a case treats as never applying.
func (r *Registry) Compile(spec PredicateSpec) (Predicate, error) {
	set := 0
	for _, b := range []bool{spec.Name != "", len(spec.All) > 0, len(spec.Any) > 0, spec.Not != nil} {
		if b {
			set++
		}
	}
	if set > 1 {
		return nil, fmt.Errorf("%w: combine name, all, any and not by nesting", ErrBadPredicateArgs)
	}

	switch {
	case len(spec.All) > 0:
		ps, err := r.compileAll(spec.All)
		if err != nil {
			return nil, err
		}
		return func(ctx context.Context, formula string, result Value, hist History) (bool, error) {
			for _, p := range ps {
				if err := ctx.Err(); err != nil {
					return false, err
				}
				ok, err := p(ctx, formula, result, hist)
				if err != nil || !ok {
					return false, err
				}
			}
			return true, nil
		}, nil
	case len(spec.Any) > 0:
		ps, err := r.compileAll(spec.Any)
		if err != nil {
			return nil, err
		}
		return func(ctx context.Context, formula string, result Value, hist History) (bool, error) {
			for _, p := range ps {
				if err := ctx.Err(); err != nil {
					return false, err
				}
				ok, err := p(ctx, formula, result, hist)
				if err != nil || ok {
					return ok, err
				}
			}
			return false, nil
		}, nil
	case spec.Not != nil:
		p, err := r.Compile(*spec.Not)
		if err != nil {
			return nil, err
		}
		if p == nil {
			return nil, fmt.Errorf("%w: empty not", ErrBadPredicateArgs)
		}
		return func(ctx context.Context, formula string, result Value, hist History) (bool, error) {
			ok, err := p(ctx, formula, result, hist)
			return !ok && err == nil, err
		}, nil
	case spec.Name != "":
		r.mu.RLock()
		factory, ok := r.factories[spec.Name]
		r.mu.RUnlock()
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownPredicate, spec.Name)
		}
		return factory(Args{name: spec.Name, vals: spec.Args, opts: spec.Options, eval: r.eval})
	}
	return nil, nil
}

func (r *Registry) compileAll(specs []PredicateSpec) ([]Predicate, error) {
	out := make([]Predicate, 0, len(specs))
	for _, s := range specs {
		p, err := r.Compile(s)
		if err != nil {
			return nil, err
		}
		if p == nil {
			return nil, fmt.Errorf("%w: empty predicate in combinator", ErrBadPredicateArgs)
		}
		out = append(out, p)
	}
	return out, nil
}

// ============================================================
// Built-in predicates
// ============================================================

var builtinPredicates = map[string]PredicateFactory{
	"always":              resultTest(func(Value) bool { return true }),
	"is_error":            resultTest(Value.IsError),
	"is_int":              resultTest(IsInt),
	"is_real":             resultTest(Value.IsReal),
	"is_complex":          resultTest(Value.IsComplex),
	"is_irrational":       resultTest(IsIrrational),
	"is_negative":         resultTest(isNegative),
	"is_prime":            isPrimePredicate,
	"close_to":            closeToPredicate,
	"between":             betweenPredicate,
	"in_sequence":         inSequencePredicate,
	"formula_contains":    formulaContainsPredicate,
	"formula_matches":     formulaMatchesPredicate,
	"repeated":            repeatedPredicate,
	"errors_in_a_row":     errorsInARowPredicate,
	"history_subsequence": historySubsequencePredicate,
	"pi_digits":           piDigitsPredicate,
	"palindrome":          palindromePredicate,
	"digit_count":         digitCountPredicate,
}

// resultTest adapts a test of the result alone.
func resultTest(test func(Value) bool) PredicateFactory {
	return func(Args) (Predicate, error) {
		return func(_ context.Context, _ string, result Value, _ History) (bool, error) {
			return test(result), nil
		}, nil
	}
}

func isNegative(v Value) bool {
	f, ok := v.Float64()
	return ok && f < 0
}

// intResult returns v as an int64 when it is integral and in range.
func intResult(v Value) (int64, bool) {
	if v.IsInteger() {
		return v.Int64(), true
	}
	if !IsInt(v) {
		return 0, false
	}
	f, _ := v.Float64()
	if f < -(1<<63) || f >= 1<<63 {
		return 0, false
	}
	return int64(f), true
}

func cleanFormula(formula string) string {
	return strings.ReplaceAll(formula, FunctionPrefix, "")
}

// is_prime; option unknown is the answer for numbers above the prime table.
func isPrimePredicate(a Args) (Predicate, error) {
	unknown, err := a.OptBool("unknown", false)
	if err != nil {
		return nil, err
	}
	return func(_ context.Context, _ string, result Value, _ History) (bool, error) {
		switch IsPrime(result) {
		case Yes:
			return true, nil
		case Unknown:
			return unknown, nil
		}
		return false, nil
	}, nil
}

// close_to: args are targets; options tolerance and method (raw|pct).
func closeToPredicate(a Args) (Predicate, error) {
	targets, err := a.Values()
	if err != nil {
		return nil, err
	}
	if len(targets) == 0 {
		return nil, a.errorf("need at least one target")
	}
	tol, err := a.OptFloat("tolerance", DefaultCloseTolerance)
	if err != nil {
		return nil, err
	}
	method, err := closeMethod(a)
	if err != nil {
		return nil, err
	}
	return func(_ context.Context, _ string, result Value, _ History) (bool, error) {
		return IsCloseAny([]Value{result}, targets, tol, method), nil
	}, nil
}

func closeMethod(a Args) (CloseMethod, error) {
	m, err := a.OptString("method", "raw")
	if err != nil {
		return CloseRaw, err
	}
	switch m {
	case "raw":
		return CloseRaw, nil
	case "pct":
		return ClosePercent, nil
	}
	return CloseRaw, a.errorf("unknown method %q", m)
}

// between: args [lo, hi], inclusive.
func betweenPredicate(a Args) (Predicate, error) {
	lo, err := a.Float(0)
	if err != nil {
		return nil, err
	}
	hi, err := a.Float(1)
	if err != nil {
		return nil, err
	}
	return func(_ context.Context, _ string, result Value, _ History) (bool, error) {
		f, ok := result.Float64()
		return ok && lo <= f && f <= hi, nil
	}, nil
}

// sequence returns the terms of a named sequence; primes stop at upTo.
func sequence(name string, upTo int64) ([]int64, bool) {
	switch name {
	case "fibonacci":
		return FibonacciNumbers, true
	case "lucas":
		return LucasNumbers, true
	case "primes":
		var out []int64
		for i := 0; ; i++ {
			p, ok := Prime(i)
			if !ok || p > upTo {
				break
			}
			out = append(out, p)
		}
		return out, true
	}
	return nil, false
}

func sequenceArg(a Args) (string, error) {
	name, err := a.String(0)
	if err != nil {
		return "", err
	}
	if _, ok := sequence(name, 0); !ok {
		return "", a.errorf("unknown sequence %q", name)
	}
	return name, nil
}

// in_sequence: args [fibonacci|lucas|primes].
func inSequencePredicate(a Args) (Predicate, error) {
	name, err := sequenceArg(a)
	if err != nil {
		return nil, err
	}
	return func(_ context.Context, _ string, result Value, _ History) (bool, error) {
		n, ok := intResult(result)
		if !ok {
			return false, nil
		}
		if name == "primes" {
			return IsPrime(result) == Yes, nil
		}
		terms, _ := sequence(name, n)
		return IsSubsequence([]int64{n}, terms), nil
	}, nil
}

// formula_contains: args are substrings, any of which must occur.
func formulaContainsPredicate(a Args) (Predicate, error) {
	subs, err := a.Strings()
	if err != nil {
		return nil, err
	}
	if len(subs) == 0 {
		return nil, a.errorf("need at least one substring")
	}
	return func(_ context.Context, formula string, _ Value, _ History) (bool, error) {
		formula = cleanFormula(formula)
		for _, s := range subs {
			if strings.Contains(formula, s) {
				return true, nil
			}
		}
		return false, nil
	}, nil
}

// formula_matches: args [regexp].
func formulaMatchesPredicate(a Args) (Predicate, error) {
	expr, err := a.String(0)
	if err != nil {
		return nil, err
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, a.errorf("%v", err)
	}
	return func(_ context.Context, formula string, _ Value, _ History) (bool, error) {
		return re.MatchString(cleanFormula(formula)), nil
	}, nil
}

// repeated: args [n=2]; the last n results are numbers close to each other.
func repeatedPredicate(a Args) (Predicate, error) {
	n, err := a.Int(0, 2)
	if err != nil {
		return nil, err
	}
	if n < 2 {
		return nil, a.errorf("n must be at least 2")
	}
	tol, err := a.OptFloat("tolerance", DefaultCloseTolerance)
	if err != nil {
		return nil, err
	}
	return func(_ context.Context, _ string, _ Value, hist History) (bool, error) {
		last := hist.Last(n)
		if len(last) < n {
			return false, nil
		}
		for _, e := range last[1:] {
			if !IsClose(e.Result, last[0].Result, tol, CloseRaw) {
				return false, nil
			}
		}
		return true, nil
	}, nil
}

// errors_in_a_row: args [n=2].
func errorsInARowPredicate(a Args) (Predicate, error) {
	n, err := a.Int(0, 2)
	if err != nil {
		return nil, err
	}
	if n < 1 {
		return nil, a.errorf("n must be positive")
	}
	return func(_ context.Context, _ string, _ Value, hist History) (bool, error) {
		last := hist.Last(n)
		if len(last) < n {
			return false, nil
		}
		for _, e := range last {
			if !e.Result.IsError() {
				return false, nil
			}
		}
		return true, nil
	}, nil
}

// history_subsequence: args [sequence, n=3]; the last n results form a
// contiguous run of the sequence.
func historySubsequencePredicate(a Args) (Predicate, error) {
	name, err := sequenceArg(a)
	if err != nil {
		return nil, err
	}
	n, err := a.Int(1, 3)
	if err != nil {
		return nil, err
	}
	if n < 1 {
		return nil, a.errorf("n must be positive")
	}
	return func(ctx context.Context, _ string, _ Value, hist History) (bool, error) {
		last := hist.Last(n)
		if len(last) < n {
			return false, nil
		}
		run := make([]int64, len(last))
		var top int64
		for i, e := range last {
			v, ok := intResult(e.Result)
			if !ok {
				return false, nil
			}
			run[i] = v
			top = max(top, v)
		}
		if top > PrimeTableMax && name == "primes" {
			return false, nil
		}
		if err := ctx.Err(); err != nil {
			return false, err
		}
		terms, _ := sequence(name, top)
		return IsSubsequence(run, terms), nil
	}, nil
}

var piDigitString = func() string {
	var b strings.Builder
	for _, d := range PiDigits {
		b.WriteByte(byte('0' + d))
	}
	return b.String()
}()

// pi_digits: args [min=3]; the result's digits begin π's digits.
func piDigitsPredicate(a Args) (Predicate, error) {
	minLen, err := a.Int(0, 3)
	if err != nil {
		return nil, err
	}
	return func(_ context.Context, _ string, result Value, _ History) (bool, error) {
		f, ok := result.Float64()
		if !ok || f <= 0 || math.IsInf(f, 0) {
			return false, nil
		}
		digits := strings.Replace(strconv.FormatFloat(f, 'f', -1, 64), ".", "", 1)
		return len(digits) >= minLen && strings.HasPrefix(piDigitString, digits), nil
	}, nil
}

func decimalDigits(v Value) (string, bool) {
	n, ok := intResult(v)
	if !ok {
		return "", false
	}
	return strings.TrimPrefix(strconv.FormatInt(n, 10), "-"), true
}

// palindrome: args [min=2]; an integer reading the same both ways.
func palindromePredicate(a Args) (Predicate, error) {
	minLen, err := a.Int(0, 2)
	if err != nil {
		return nil, err
	}
	return func(_ context.Context, _ string, result Value, _ History) (bool, error) {
		s, ok := decimalDigits(result)
		if !ok || len(s) < minLen {
			return false, nil
		}
		for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
			if s[i] != s[j] {
				return false, nil
			}
		}
		return true, nil
	}, nil
}

// digit_count: args [n] or [lo, hi].
func digitCountPredicate(a Args) (Predicate, error) {
	lo, err := a.Int(0, 1)
	if err != nil {
		return nil, err
	}
	hi, err := a.Int(1, lo)
	if err != nil {
		return nil, err
	}
	return func(_ context.Context, _ string, result Value, _ History) (bool, error) {
		s, ok := decimalDigits(result)
		return ok && lo <= len(s) && len(s) <= hi, nil
	}, nil
}
