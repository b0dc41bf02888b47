// Package diabicus is the calculator core behind a calculator that plays
// music, lights up and displays facts.
//
// The package has two halves:
//   - an expression pipeline: Normalize rewrites human-typed calculator text
//     into a strict expression, Evaluator computes it over Integer, Real and
//     Complex values, and Session drives both from key presses.
//   - a case engine: Collection picks one applicable Case (a Fact or a
//     SpecialMusicCase) by weighted random choice, running every untrusted
//     test and message under a Runner deadline.
package diabicus

import (
	"math"
	"math/cmplx"
	"strconv"
)

// DefaultNonzeroThreshold is the tolerance below which a real or imaginary
// part counts as zero and a float counts as an integer.
const DefaultNonzeroThreshold = 1e-15

// ============================================================
// Value — tagged numeric union
// ============================================================

// Kind tags the variant held by a Value.
type Kind uint8

const (
	KindInteger Kind = iota
	KindReal
	KindComplex
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindInteger:
		return "integer"
	case KindReal:
		return "real"
	case KindComplex:
		return "complex"
	default:
		return "error"
	}
}

// Value is an Integer, Real, Complex or ComputationError. The zero Value is
// Integer 0, which is also the initial Ans.
type Value struct {
	kind Kind
	i    int64
	c    complex128
	err  *ComputationError
}

func Int(n int64) Value          { return Value{kind: KindInteger, i: n} }
func Real(f float64) Value       { return Value{kind: KindReal, c: complex(f, 0)} }
func Complex(c complex128) Value { return Value{kind: KindComplex, c: c} }

// Failed wraps an evaluator error as a Value so it can be kept in History.
func Failed(err *ComputationError) Value { return Value{kind: KindError, err: err} }

func (v Value) Kind() Kind             { return v.kind }
func (v Value) IsError() bool          { return v.kind == KindError }
func (v Value) IsInteger() bool        { return v.kind == KindInteger }
func (v Value) IsReal() bool           { return v.kind == KindInteger || v.kind == KindReal }
func (v Value) IsComplex() bool        { return v.kind == KindComplex }
func (v Value) IsNumber() bool         { return v.kind != KindError }
func (v Value) Int64() int64           { return v.i }
func (v Value) Err() *ComputationError { return v.err }

// Float64 returns the value as a float. ok is false for complex and error
// values.
func (v Value) Float64() (f float64, ok bool) {
	switch v.kind {
	case KindInteger:
		return float64(v.i), true
	case KindReal:
		return real(v.c), true
	}
	return 0, false
}

// Complex128 widens any numeric value to complex.
func (v Value) Complex128() complex128 {
	if v.kind == KindInteger {
		return complex(float64(v.i), 0)
	}
	return v.c
}

// Simplify rounds parts within DefaultNonzeroThreshold of an integer and
// drops a negligible imaginary part, so 14i×-i comes back as Integer 14.
func (v Value) Simplify() Value {
	switch v.kind {
	case KindReal:
		return realToValue(roundIfClose(real(v.c), DefaultNonzeroThreshold))
	case KindComplex:
		re := roundIfClose(real(v.c), DefaultNonzeroThreshold)
		im := roundIfClose(imag(v.c), DefaultNonzeroThreshold)
		if math.Abs(im) < DefaultNonzeroThreshold {
			return realToValue(re)
		}
		return Complex(complex(re, im))
	}
	return v
}

// realToValue demotes an integral float inside the int64 range to Integer.
func realToValue(f float64) Value {
	if f == math.Trunc(f) && f >= -(1<<63) && f < 1<<63 {
		return Int(int64(f))
	}
	return Real(f)
}

func roundIfClose(f, threshold float64) float64 {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return f
	}
	if c := math.Ceil(f); math.Abs(f-c) < threshold {
		return c
	}
	if fl := math.Floor(f); math.Abs(f-fl) < threshold {
		return fl
	}
	return f
}

// Equal reports exact equality of kind and payload. Errors are equal when
// their kinds match.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindInteger:
		return v.i == o.i
	case KindError:
		return v.err.Kind == o.err.Kind
	}
	return v.c == o.c
}

// String is a plain, lossless rendering used in logs and templates. Display
// formatting lives in Formatter.
func (v Value) String() string {
	switch v.kind {
	case KindInteger:
		return strconv.FormatInt(v.i, 10)
	case KindReal:
		return formatFloat(real(v.c))
	case KindComplex:
		return PrettyComplex(v.c, ComplexFormat{})
	default:
		return "Error: " + v.err.Msg
	}
}

func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if f == math.Trunc(f) && !math.IsInf(f, 0) && math.Abs(f) < 1e16 {
		s = strconv.FormatFloat(f, 'f', 1, 64)
	}
	return s
}

func isFinite(c complex128) bool {
	return !cmplx.IsInf(c) && !cmplx.IsNaN(c)
}
