package diabicus_test

import (
	"context"
	"math"
	"testing"

	"github.com/njchilds90/diabicus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func parseSpec(t *testing.T, src string) diabicus.PredicateSpec {
	t.Helper()
	var spec diabicus.PredicateSpec
	require.NoError(t, yaml.Unmarshal([]byte(src), &spec), src)
	return spec
}

func compile(t *testing.T, reg *diabicus.Registry, src string) diabicus.Predicate {
	t.Helper()
	p, err := reg.Compile(parseSpec(t, src))
	require.NoError(t, err, src)
	require.NotNil(t, p, src)
	return p
}

func results(vs ...diabicus.Value) diabicus.History {
	entries := make([]diabicus.Entry, len(vs))
	for i, v := range vs {
		entries[i] = diabicus.Entry{Formula: v.String(), Result: v}
	}
	return diabicus.NewHistory(entries...)
}

func fail(kind diabicus.ErrorKind) diabicus.Value {
	return diabicus.Failed(diabicus.ErrorOf(kind))
}

// ============================================================
// PredicateSpec
// ============================================================

func TestPredicateSpec_Shorthand(t *testing.T) {
	spec := parseSpec(t, "is_prime")
	assert.Equal(t, "is_prime", spec.Name)
	assert.False(t, spec.IsZero())
}

func TestPredicateSpec_Options(t *testing.T) {
	spec := parseSpec(t, `{name: close_to, args: ["π", 3], tolerance: 0.1, method: pct}`)
	assert.Equal(t, "close_to", spec.Name)
	assert.Equal(t, []any{"π", 3}, spec.Args)
	assert.Equal(t, 0.1, spec.Options["tolerance"])
	assert.Equal(t, "pct", spec.Options["method"])
}

func TestPredicateSpec_Nested(t *testing.T) {
	spec := parseSpec(t, `{all: [is_int, {not: is_negative}]}`)
	require.Len(t, spec.All, 2)
	assert.Equal(t, "is_int", spec.All[0].Name)
	require.NotNil(t, spec.All[1].Not)
	assert.Equal(t, "is_negative", spec.All[1].Not.Name)
}

// ============================================================
// Built-in predicates
// ============================================================

func TestPredicates_Result(t *testing.T) {
	reg := diabicus.NewRegistry()
	cases := []struct {
		spec   string
		result diabicus.Value
		want   bool
	}{
		{"always", diabicus.Int(1), true},
		{"is_error", fail(diabicus.ErrSyntax), true},
		{"is_error", diabicus.Int(1), false},
		{"is_int", diabicus.Real(3), true},
		{"is_int", diabicus.Real(3.5), false},
		{"is_real", diabicus.Complex(1i), false},
		{"is_complex", diabicus.Complex(1i), true},
		{"is_negative", diabicus.Int(-1), true},
		{"is_negative", diabicus.Int(0), false},
		{"is_irrational", diabicus.Real(math.Pi), true},
		{"is_prime", diabicus.Int(7), true},
		{"is_prime", diabicus.Int(8), false},
		{"is_prime", diabicus.Int(1 << 40), false},
		{"{name: is_prime, unknown: true}", diabicus.Int(1 << 40), true},
		{`{name: close_to, args: ["φ"]}`, diabicus.Real(1.61803), true},
		{`{name: close_to, args: ["φ"]}`, diabicus.Real(1.6180), false},
		{`{name: close_to, args: ["φ^2", 3], tolerance: 0.1}`, diabicus.Real(2.6), true},
		{`{name: close_to, args: [100], method: pct, tolerance: 0.02}`, diabicus.Int(101), true},
		{"{name: between, args: [1, 10]}", diabicus.Int(10), true},
		{"{name: between, args: [1, 10]}", diabicus.Real(10.5), false},
		{"{name: between, args: [1, 10]}", diabicus.Complex(1i), false},
		{"{name: in_sequence, args: [fibonacci]}", diabicus.Int(144), true},
		{"{name: in_sequence, args: [fibonacci]}", diabicus.Int(145), false},
		{"{name: in_sequence, args: [lucas]}", diabicus.Int(47), true},
		{"{name: in_sequence, args: [primes]}", diabicus.Int(53), true},
		{"{name: digit_count, args: [3]}", diabicus.Int(-100), true},
		{"{name: digit_count, args: [3]}", diabicus.Int(99), false},
		{"{name: digit_count, args: [1, 2]}", diabicus.Int(7), true},
		{"{name: palindrome, args: [3]}", diabicus.Int(12321), true},
		{"{name: palindrome, args: [3]}", diabicus.Int(11), false},
		{"{name: palindrome, args: [3]}", diabicus.Int(12345), false},
		{"{name: pi_digits, args: [4]}", diabicus.Real(3.14159), true},
		{"{name: pi_digits, args: [4]}", diabicus.Real(3.15), false},
		{"{name: pi_digits, args: [4]}", diabicus.Int(314), false},
		{"pi_digits", diabicus.Int(314), true},
		{"pi_digits", diabicus.Real(math.Inf(1)), false},
	}
	for _, c := range cases {
		p := compile(t, reg, c.spec)
		got, err := p(context.Background(), c.result.String(), c.result, results(c.result))
		require.NoError(t, err, c.spec)
		assert.Equal(t, c.want, got, "%s on %s", c.spec, c.result)
	}
}

func TestPredicates_Formula(t *testing.T) {
	reg := diabicus.NewRegistry()
	cases := []struct {
		spec    string
		formula string
		want    bool
	}{
		{`{name: formula_contains, args: ["π"]}`, "2×π", true},
		{`{name: formula_contains, args: ["π", "τ"]}`, "2×3", false},
		{`{name: formula_contains, args: ["ln("]}`, diabicus.FunctionPrefix + "ln(2)", true},
		{`{name: formula_matches, args: ["^1/0$"]}`, "1/0", true},
		{`{name: formula_matches, args: ["^1/0$"]}`, "1/0.5", false},
	}
	for _, c := range cases {
		p := compile(t, reg, c.spec)
		got, err := p(context.Background(), c.formula, diabicus.Int(1), diabicus.History{})
		require.NoError(t, err, c.spec)
		assert.Equal(t, c.want, got, "%s on %q", c.spec, c.formula)
	}
}

func TestPredicates_History(t *testing.T) {
	reg := diabicus.NewRegistry()
	i := diabicus.Int
	cases := []struct {
		spec string
		hist diabicus.History
		want bool
	}{
		{"{name: errors_in_a_row, args: [3]}", results(fail(diabicus.ErrSyntax), fail(diabicus.ErrOverflow), fail(diabicus.ErrSyntax)), true},
		{"{name: errors_in_a_row, args: [3]}", results(fail(diabicus.ErrSyntax), fail(diabicus.ErrSyntax), i(1)), false},
		{"errors_in_a_row", results(fail(diabicus.ErrSyntax)), false},
		{"{name: repeated, args: [3]}", results(i(5), i(5), i(5)), true},
		{"{name: repeated, args: [3]}", results(i(5), i(5), i(6)), false},
		{"{name: repeated, args: [3]}", results(i(5), i(5)), false},
		{"{name: history_subsequence, args: [fibonacci]}", results(i(5), i(8), i(13)), true},
		{"{name: history_subsequence, args: [fibonacci]}", results(i(5), i(8), i(12)), false},
		{"{name: history_subsequence, args: [fibonacci]}", results(i(5), diabicus.Real(8), i(13)), true},
		{"{name: history_subsequence, args: [primes]}", results(i(5), i(7), i(11)), true},
		{"{name: history_subsequence, args: [primes]}", results(i(5), i(11), i(13)), false},
		{"{name: history_subsequence, args: [lucas, 2]}", results(i(0), i(47), i(76)), true},
	}
	for _, c := range cases {
		p := compile(t, reg, c.spec)
		last, _ := c.hist.At(-1)
		got, err := p(context.Background(), last.Formula, last.Result, c.hist)
		require.NoError(t, err, c.spec)
		assert.Equal(t, c.want, got, "%s on %s", c.spec, c.hist)
	}
}

// ============================================================
// Combinators
// ============================================================

func TestPredicates_Combinators(t *testing.T) {
	reg := diabicus.NewRegistry()
	cases := []struct {
		spec   string
		result diabicus.Value
		want   bool
	}{
		{"{all: [is_int, {not: is_negative}]}", diabicus.Int(3), true},
		{"{all: [is_int, {not: is_negative}]}", diabicus.Int(-3), false},
		{"{any: [is_error, is_complex]}", diabicus.Complex(1i), true},
		{"{any: [is_error, is_complex]}", diabicus.Int(1), false},
		{"{not: is_prime}", diabicus.Int(4), true},
	}
	for _, c := range cases {
		p := compile(t, reg, c.spec)
		got, err := p(context.Background(), "", c.result, diabicus.History{})
		require.NoError(t, err, c.spec)
		assert.Equal(t, c.want, got, "%s on %s", c.spec, c.result)
	}
}

func TestPredicates_NotPropagatesError(t *testing.T) {
	reg := diabicus.NewRegistry()
	reg.Register("broken", func(diabicus.Args) (diabicus.Predicate, error) {
		return func(context.Context, string, diabicus.Value, diabicus.History) (bool, error) {
			return false, assert.AnError
		}, nil
	})
	p := compile(t, reg, "{not: broken}")
	got, err := p(context.Background(), "", diabicus.Int(1), diabicus.History{})
	assert.ErrorIs(t, err, assert.AnError)
	assert.False(t, got)
}

func TestPredicates_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := compile(t, diabicus.NewRegistry(), "{all: [always]}")
	_, err := p(ctx, "", diabicus.Int(1), diabicus.History{})
	assert.ErrorIs(t, err, context.Canceled)
}

// ============================================================
// Registry
// ============================================================

func TestRegistry_Register(t *testing.T) {
	reg := diabicus.NewRegistry()
	reg.Register("is_answer", func(a diabicus.Args) (diabicus.Predicate, error) {
		return func(_ context.Context, _ string, result diabicus.Value, _ diabicus.History) (bool, error) {
			return result.Equal(diabicus.Int(42)), nil
		}, nil
	})
	assert.Contains(t, reg.Names(), "is_answer")
	assert.IsIncreasing(t, reg.Names())

	p := compile(t, reg, "is_answer")
	got, err := p(context.Background(), "6×7", diabicus.Int(42), diabicus.History{})
	require.NoError(t, err)
	assert.True(t, got)

	assert.NotContains(t, diabicus.NewRegistry().Names(), "is_answer", "registries are independent")
}

func TestRegistry_ExpressionArgsUseEvaluator(t *testing.T) {
	reg := diabicus.NewRegistry(diabicus.WithRegistryEvaluator(
		diabicus.NewEvaluator(diabicus.WithConstant("c", diabicus.Int(299792458)))))
	p := compile(t, reg, `{name: close_to, args: ["c"]}`)
	got, err := p(context.Background(), "", diabicus.Int(299792458), diabicus.History{})
	require.NoError(t, err)
	assert.True(t, got)
}

func TestRegistry_CompileErrors(t *testing.T) {
	reg := diabicus.NewRegistry()
	_, err := reg.Compile(parseSpec(t, "nope"))
	assert.ErrorIs(t, err, diabicus.ErrUnknownPredicate)

	_, err = reg.Compile(parseSpec(t, "{all: [is_int, nope]}"))
	assert.ErrorIs(t, err, diabicus.ErrUnknownPredicate)

	for _, src := range []string{
		"{name: between}",
		"{name: between, args: [1, x]}",
		`{name: formula_matches, args: ["("]}`,
		`{name: close_to, args: ["1/0"]}`,
		"{name: close_to}",
		"{name: close_to, args: [1], method: cubic}",
		"{name: is_prime, unknown: maybe}",
		"{name: is_int, all: [is_int]}",
		"{name: in_sequence, args: [squares]}",
		"{name: repeated, args: [1]}",
		"{name: digit_count, args: [2.5]}",
		"{not: {}}",
	} {
		_, err := reg.Compile(parseSpec(t, src))
		assert.ErrorIs(t, err, diabicus.ErrBadPredicateArgs, src)
	}
}

func TestRegistry_ZeroSpec(t *testing.T) {
	p, err := diabicus.NewRegistry().Compile(diabicus.PredicateSpec{})
	require.NoError(t, err)
	assert.Nil(t, p)
}
