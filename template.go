package diabicus

import (
	"context"
	"fmt"
	"math/cmplx"
	"strings"
	"text/template"
)

// MessageData is what a message template sees: {{.Formula}}, {{.Result}}
// and {{.History}}.
type MessageData struct {
	Formula string
	Result  Value
	History History
}

// CompileMessage parses a message template. Besides the template builtins
// it offers format, factors, primeFactors, ordinal, isPrime and abs:
//
//	{{.Result}} is the {{ordinal 7}} prime; its factors are {{factors .Result}}
func (r *Registry) CompileMessage(src string) (Message, error) {
	t, err := template.New("message").
		Option("missingkey=error").
		Funcs(r.templateFuncs()).
		Parse(src)
	if err != nil {
		return nil, fmt.Errorf("parse message: %w", err)
	}
	return func(ctx context.Context, formula string, result Value, hist History) (string, error) {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		var b strings.Builder
		data := MessageData{Formula: cleanFormula(formula), Result: result, History: hist}
		if err := t.Execute(&b, data); err != nil {
			return "", err
		}
		return b.String(), nil
	}, nil
}

func (r *Registry) templateFuncs() template.FuncMap {
	return template.FuncMap{
		"format": r.formatter.Format,
		"factors": func(v Value) ([]int64, error) {
			n, err := factorable(v)
			return Factors(n, FactorsProper), err
		},
		"primeFactors": func(v Value) ([]int64, error) {
			n, err := factorable(v)
			return Factors(n, FactorsPrime), err
		},
		"ordinal": func(x any) (string, error) {
			n, err := templateInt(x)
			return Ordinal(n), err
		},
		"isPrime": func(v Value) bool { return IsPrime(v) == Yes },
		"abs":     absValue,
	}
}

// templateInt accepts a Value or a Go integer from a template literal.
func templateInt(x any) (int64, error) {
	switch x := x.(type) {
	case Value:
		if n, ok := intResult(x); ok {
			return n, nil
		}
		return 0, fmt.Errorf("%s is not an integer", x)
	case int:
		return int64(x), nil
	case int64:
		return x, nil
	}
	return 0, fmt.Errorf("%v (%T) is not an integer", x, x)
}

// maxFactorable keeps trial division within a message deadline.
const maxFactorable = 1e12

func factorable(v Value) (int64, error) {
	n, err := templateInt(v)
	if err != nil {
		return 0, err
	}
	if n > maxFactorable || n < -maxFactorable {
		return 0, fmt.Errorf("%d is too large to factor", n)
	}
	return n, nil
}

func absValue(v Value) (Value, error) {
	switch {
	case v.IsError():
		return Value{}, v.Err()
	case v.IsComplex():
		return Real(cmplx.Abs(v.Complex128())), nil
	case isNegative(v):
		return Neg(v)
	}
	return v, nil
}
