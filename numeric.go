package diabicus

import (
	"math"
	"math/cmplx"
	"sort"
	"sync"
)

// ============================================================
// Constants
// ============================================================

var (
	GoldenRatio = (1 + math.Sqrt(5)) / 2
	I           = complex(0, 1)
	Tau         = 2 * math.Pi
)

// PiDigits holds the leading decimal digits of π.
var PiDigits = []int{3, 1, 4, 1, 5, 9, 2, 6, 5, 3, 5, 8, 9, 7, 9, 3, 2, 3, 8, 4, 6, 2,
	6, 4, 3, 3, 8, 3, 2, 7, 9, 5, 0, 2, 8, 8, 4, 1, 9, 7, 1, 6, 9, 3,
	9, 9, 3, 7, 5, 1, 0, 5, 8, 2, 0, 9, 7, 4, 9, 4, 4, 5, 9, 2, 3, 0,
	7, 8, 1, 6, 4, 0, 6, 2, 8, 6, 2, 0, 8, 9, 9, 8, 6, 2, 8, 0, 3, 4,
	8, 2, 5, 3, 4, 2, 1, 1, 7, 0, 6, 7, 9, 8, 2, 1, 4}

var FibonacciNumbers = []int64{0, 1, 1, 2, 3, 5, 8, 13, 21, 34, 55, 89, 144, 233, 377,
	610, 987, 1597, 2584, 4181, 6765}

var LucasNumbers = []int64{2, 1, 3, 4, 7, 11, 18, 29, 47, 76, 123, 199, 322, 521, 843,
	1364, 2207, 3571, 5778, 9349, 15127, 24476, 39603, 64079,
	103682, 167761, 271443, 439204, 710647, 1149851, 1860498,
	3010349, 4870847, 7881196, 12752043, 20633239, 33385282}

// ============================================================
// Predicates
// ============================================================

// Tristate is a three-valued answer: some questions (primality above the
// prime table) cannot be answered cheaply.
type Tristate int8

const (
	No Tristate = iota
	Yes
	Unknown
)

func (t Tristate) String() string {
	switch t {
	case Yes:
		return "yes"
	case No:
		return "no"
	default:
		return "unknown"
	}
}

// IsInt reports whether v is an Integer or an integral Real.
func IsInt(v Value) bool {
	switch v.kind {
	case KindInteger:
		return true
	case KindReal:
		f := real(v.c)
		return !math.IsInf(f, 0) && f == math.Trunc(f)
	}
	return false
}

func IsReal(v Value) bool    { return v.IsReal() }
func IsComplex(v Value) bool { return v.IsComplex() }
func IsNumber(v Value) bool  { return v.IsNumber() }

// IsTranscendental recognises π and e exactly, the only transcendentals a
// calculator produces by name.
func IsTranscendental(v Value) bool {
	f, ok := v.Float64()
	return ok && (f == math.Pi || f == math.E)
}

func IsIrrational(v Value) bool {
	if IsTranscendental(v) {
		return true
	}
	f, ok := v.Float64()
	return ok && (f == math.Sqrt2 || f == GoldenRatio)
}

func IsRational(v Value) bool { return v.IsReal() && !IsIrrational(v) }

// ============================================================
// Primes
// ============================================================

// PrimeTableMax is the largest number IsPrime can decide.
const PrimeTableMax = 1 << 20

var (
	primeOnce  sync.Once
	primeSieve []bool
	primeList  []int64
)

func loadPrimes() {
	primeOnce.Do(func() {
		composite := make([]bool, PrimeTableMax+1)
		composite[0], composite[1] = true, true
		for i := 2; i*i <= PrimeTableMax; i++ {
			if composite[i] {
				continue
			}
			for j := i * i; j <= PrimeTableMax; j += i {
				composite[j] = true
			}
		}
		primeSieve = composite
		for n, c := range composite {
			if !c {
				primeList = append(primeList, int64(n))
			}
		}
	})
}

// IsPrime answers from the prime table. Non-integers and numbers below 2
// are No; integers above PrimeTableMax are Unknown, never No.
func IsPrime(v Value) Tristate {
	if !IsInt(v) {
		return No
	}
	f, _ := v.Float64()
	if f < 2 {
		return No
	}
	if f > PrimeTableMax {
		return Unknown
	}
	loadPrimes()
	if primeSieve[int(f)] {
		return No
	}
	return Yes
}

// Prime returns the n-th prime (0-based) from the table.
func Prime(n int) (int64, bool) {
	loadPrimes()
	if n < 0 || n >= len(primeList) {
		return 0, false
	}
	return primeList[n], true
}

// ============================================================
// Factors
// ============================================================

// FactorForm selects what Factors returns.
type FactorForm string

const (
	FactorsProper FactorForm = "proper"
	FactorsAll    FactorForm = "all"
	FactorsPrime  FactorForm = "prime"
)

// Factors returns the divisors of |n| in ascending order. FactorsPrime gives
// the prime factorisation with multiplicity, found by plain trial division.
// Zero and math.MinInt64, whose magnitude has no int64, give nil.
func Factors(n int64, form FactorForm) []int64 {
	if n == 0 || n == math.MinInt64 {
		return nil
	}
	if n < 0 {
		n = -n
	}
	if form == FactorsPrime {
		var primes []int64
		for n%2 == 0 {
			primes = append(primes, 2)
			n /= 2
		}
		for i := int64(3); n > 1; i += 2 {
			if i > n/i {
				primes = append(primes, n)
				break
			}
			for n%i == 0 {
				primes = append(primes, i)
				n /= i
			}
		}
		return primes
	}
	var out []int64
	for i := int64(1); i <= n/i; i++ {
		if n%i != 0 {
			continue
		}
		out = append(out, i)
		if j := n / i; j != i {
			out = append(out, j)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a] < out[b] })
	if form == FactorsProper {
		out = out[:len(out)-1]
	}
	return out
}

// ============================================================
// Sequences and closeness
// ============================================================

// IsSubsequence reports whether needle occurs as a contiguous run inside
// haystack. An empty needle never matches.
func IsSubsequence(needle, haystack []int64) bool {
	if len(needle) == 0 {
		return false
	}
	for off := 0; off+len(needle) <= len(haystack); off++ {
		match := true
		for i, n := range needle {
			if haystack[off+i] != n {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

// CloseMethod picks absolute or relative closeness.
type CloseMethod int

const (
	CloseRaw CloseMethod = iota
	ClosePercent
)

// IsClose compares two values within threshold. Errors are never close to
// anything, and a Complex is never close to a non-Complex.
func IsClose(a, b Value, threshold float64, method CloseMethod) bool {
	if a.IsError() || b.IsError() {
		return false
	}
	if a.IsComplex() != b.IsComplex() {
		return false
	}
	diff := cmplx.Abs(a.Complex128() - b.Complex128())
	if method == ClosePercent {
		den := math.Max(cmplx.Abs(a.Complex128()), cmplx.Abs(b.Complex128()))
		if den == 0 {
			return diff == 0
		}
		return diff/den < threshold
	}
	return diff < threshold
}

// IsCloseAny succeeds when any pairing of xs and ys is close. Single values
// are passed as one-element slices.
func IsCloseAny(xs, ys []Value, threshold float64, method CloseMethod) bool {
	for _, x := range xs {
		for _, y := range ys {
			if IsClose(x, y, threshold, method) {
				return true
			}
		}
	}
	return false
}
