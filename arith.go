package diabicus

import (
	"math"
	"math/bits"
	"math/cmplx"
)

// ============================================================
// Arithmetic over Value
// ============================================================
//
// Integer op Integer stays Integer until it overflows int64, then it is
// redone in float64. Any Real operand promotes to Real, any Complex operand
// promotes to Complex. A non-finite result is an Overflow error; a NaN is a
// generic computation error.

func promoteLevel(a, b Value) Kind {
	if a.kind == KindComplex || b.kind == KindComplex {
		return KindComplex
	}
	if a.kind == KindReal || b.kind == KindReal {
		return KindReal
	}
	return KindInteger
}

func checkOperands(a, b Value) error {
	if a.kind == KindError {
		return a.err
	}
	if b.kind == KindError {
		return b.err
	}
	return nil
}

func finishReal(f float64) (Value, error) {
	if math.IsInf(f, 0) {
		return Value{}, newComputationError(ErrOverflow, nil)
	}
	if math.IsNaN(f) {
		return Value{}, newComputationError(ErrComputation, nil)
	}
	return Real(f), nil
}

func finishComplex(c complex128) (Value, error) {
	if cmplx.IsInf(c) {
		return Value{}, newComputationError(ErrOverflow, nil)
	}
	if cmplx.IsNaN(c) {
		return Value{}, newComputationError(ErrComputation, nil)
	}
	return Complex(c), nil
}

func asFloat(v Value) float64 {
	f, _ := v.Float64()
	return f
}

// Add returns a + b.
func Add(a, b Value) (Value, error) {
	if err := checkOperands(a, b); err != nil {
		return Value{}, err
	}
	switch promoteLevel(a, b) {
	case KindInteger:
		s := a.i + b.i
		if (s > a.i) == (b.i > 0) {
			return Int(s), nil
		}
		return finishReal(float64(a.i) + float64(b.i))
	case KindReal:
		return finishReal(asFloat(a) + asFloat(b))
	}
	return finishComplex(a.Complex128() + b.Complex128())
}

// Neg returns -a.
func Neg(a Value) (Value, error) {
	switch a.kind {
	case KindError:
		return Value{}, a.err
	case KindInteger:
		if a.i == math.MinInt64 {
			return Real(-float64(a.i)), nil
		}
		return Int(-a.i), nil
	case KindReal:
		return Real(-real(a.c)), nil
	}
	return Complex(-a.c), nil
}

// Sub returns a - b.
func Sub(a, b Value) (Value, error) {
	nb, err := Neg(b)
	if err != nil {
		return Value{}, err
	}
	return Add(a, nb)
}

// Mul returns a * b.
func Mul(a, b Value) (Value, error) {
	if err := checkOperands(a, b); err != nil {
		return Value{}, err
	}
	switch promoteLevel(a, b) {
	case KindInteger:
		if p, ok := mulInt(a.i, b.i); ok {
			return Int(p), nil
		}
		return finishReal(float64(a.i) * float64(b.i))
	case KindReal:
		return finishReal(asFloat(a) * asFloat(b))
	}
	return finishComplex(a.Complex128() * b.Complex128())
}

func mulInt(x, y int64) (int64, bool) {
	if x == 0 || y == 0 {
		return 0, true
	}
	neg := (x < 0) != (y < 0)
	hi, lo := bits.Mul64(absU(x), absU(y))
	if hi != 0 {
		return 0, false
	}
	if neg {
		if lo > 1<<63 {
			return 0, false
		}
		return -int64(lo - 1) - 1, true
	}
	if lo >= 1<<63 {
		return 0, false
	}
	return int64(lo), true
}

func absU(x int64) uint64 {
	if x < 0 {
		return uint64(-(x + 1)) + 1
	}
	return uint64(x)
}

func isZero(v Value) bool {
	switch v.kind {
	case KindInteger:
		return v.i == 0
	case KindError:
		return false
	}
	return v.c == 0
}

// Div is true division: 9/3 is Real 3 until the result is simplified.
// Division by an exact zero of any kind is a DivideByZero error.
func Div(a, b Value) (Value, error) {
	if err := checkOperands(a, b); err != nil {
		return Value{}, err
	}
	if isZero(b) {
		return Value{}, newComputationError(ErrDivideByZero, nil)
	}
	if promoteLevel(a, b) == KindComplex {
		return finishComplex(a.Complex128() / b.Complex128())
	}
	return finishReal(asFloat(a) / asFloat(b))
}

// Pow returns a ** b. A negative Real base with a fractional exponent yields
// a Complex result rather than NaN; zero raised to a negative power is a
// DivideByZero error.
func Pow(a, b Value) (Value, error) {
	if err := checkOperands(a, b); err != nil {
		return Value{}, err
	}
	switch promoteLevel(a, b) {
	case KindInteger:
		if b.i >= 0 {
			if p, ok := powInt(a.i, b.i); ok {
				return Int(p), nil
			}
			return finishReal(math.Pow(float64(a.i), float64(b.i)))
		}
		if a.i == 0 {
			return Value{}, newComputationError(ErrDivideByZero, nil)
		}
		return finishReal(math.Pow(float64(a.i), float64(b.i)))
	case KindReal:
		x, y := asFloat(a), asFloat(b)
		if x == 0 && y < 0 {
			return Value{}, newComputationError(ErrDivideByZero, nil)
		}
		if x < 0 && y != math.Trunc(y) {
			return finishComplex(cmplx.Pow(complex(x, 0), complex(y, 0)))
		}
		return finishReal(math.Pow(x, y))
	}
	x, y := a.Complex128(), b.Complex128()
	if x == 0 {
		switch {
		case y == 0:
			return Complex(1), nil
		case real(y) < 0 || imag(y) != 0:
			return Value{}, newComputationError(ErrDivideByZero, nil)
		}
		return Complex(0), nil
	}
	return finishComplex(cmplx.Pow(x, y))
}

func powInt(base, exp int64) (int64, bool) {
	result := int64(1)
	for exp > 0 {
		var ok bool
		if exp&1 == 1 {
			if result, ok = mulInt(result, base); !ok {
				return 0, false
			}
		}
		exp >>= 1
		if exp > 0 {
			if base, ok = mulInt(base, base); !ok {
				return 0, false
			}
		}
	}
	return result, true
}
