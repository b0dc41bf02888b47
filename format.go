package diabicus

import (
	"math"
	"strconv"
	"strings"
)

// DefaultDisplayDigits is the number of significant digits shown for
// complex parts; reals get twice as many.
const DefaultDisplayDigits = 7

const maxIntLength = 10

// Formatter renders Values for the calculator display.
type Formatter struct {
	Digits int
}

func NewFormatter(digits int) Formatter {
	if digits <= 0 {
		digits = DefaultDisplayDigits
	}
	return Formatter{Digits: digits}
}

// Format dispatches on the Value variant. Errors render as "Error: <msg>".
func (f Formatter) Format(v Value) string {
	switch v.Kind() {
	case KindComplex:
		s := SimplifyComplex(v.Complex128(), DefaultNonzeroThreshold, DefaultNonzeroThreshold)
		part := func(x float64) string { return PrettyX10(Real(x), f.Digits) }
		if !s.IsComplex() {
			return PrettyX10(s, f.Digits)
		}
		return PrettyComplex(s.Complex128(), ComplexFormat{Real: part})
	case KindInteger, KindReal:
		return PrettyX10(v, 2*f.Digits)
	default:
		return "Error: " + v.Err().Msg
	}
}

// SimplifyComplex zeroes parts whose magnitude is below their threshold. A
// negligible imaginary part yields a Real, and a Complex whose parts are both
// negligible yields Integer 0.
func SimplifyComplex(c complex128, realThreshold, imagThreshold float64) Value {
	re := real(c)
	zeroRe := math.Abs(re) < realThreshold
	if zeroRe {
		re = 0
	}
	if math.Abs(imag(c)) < imagThreshold {
		if zeroRe {
			return Int(0)
		}
		return Real(re)
	}
	return Complex(complex(re, imag(c)))
}

// ComplexFormat controls PrettyComplex. Zero fields take defaults: plain
// numbers, Imag formatted like Real, and "i" as the indicator.
type ComplexFormat struct {
	Real        func(float64) string
	Imag        func(float64) string
	Indicator   string
	DisplayZero bool
}

// PrettyComplex renders c as "a + bi", "a - bi", "bi" or "a", dropping
// zero parts unless DisplayZero is set.
func PrettyComplex(c complex128, cf ComplexFormat) string {
	if cf.Real == nil {
		cf.Real = plainNumber
	}
	if cf.Imag == nil {
		cf.Imag = cf.Real
	}
	if cf.Indicator == "" {
		cf.Indicator = "i"
	}
	re, im := real(c), imag(c)
	switch {
	case cf.DisplayZero || (re != 0 && im != 0):
		sign := " + "
		if im < 0 {
			sign, im = " - ", -im
		}
		return cf.Real(re) + sign + cf.Imag(im) + cf.Indicator
	case im == 0:
		return cf.Real(re)
	}
	return cf.Imag(im) + cf.Indicator
}

func plainNumber(x float64) string {
	if x == math.Trunc(x) && math.Abs(x) < 1e15 {
		return strconv.FormatFloat(x, 'f', 0, 64)
	}
	return strconv.FormatFloat(x, 'g', -1, 64)
}

// PrettyX10 renders a real value with up to decPlaces+1 significant digits,
// switching to mantissa×10^exponent outside that budget:
//
//	1.6007448567456e-14 -> 1.60074×10^-14   (decPlaces 5)
//	0.16007448567456    -> 0.16007
//	Integer 80235       -> 80235
func PrettyX10(v Value, decPlaces int) string {
	x, ok := v.Float64()
	if !ok {
		return v.String()
	}
	if x < 0 {
		neg, _ := Neg(v)
		return "-" + PrettyX10(neg, decPlaces)
	}
	if x == 0 {
		return "0"
	}

	var s string
	switch {
	case !IsInt(v) || math.Log10(x) > maxIntLength:
		s = strconv.FormatFloat(x, 'G', decPlaces+1, 64)
		if !strings.Contains(s, "E") {
			if whole, frac, found := strings.Cut(s, "."); found && len(frac) > decPlaces {
				s = whole + "." + frac[:decPlaces]
			}
		}
	case v.IsInteger():
		s = strconv.FormatInt(v.Int64(), 10)
	default:
		s = formatFloat(x)
	}

	mantissa, exp, found := strings.Cut(s, "E")
	if !found {
		return s
	}
	if n, err := strconv.Atoi(exp); err == nil {
		exp = strconv.Itoa(n)
	}
	return mantissa + "×10^" + exp
}

// Ordinal returns n with its English ordinal suffix: 1st, 2nd, 11th, 23rd.
func Ordinal(n int64) string {
	s := strconv.FormatInt(n, 10)
	if n < 0 {
		n = -n
	}
	if h := n % 100; h >= 11 && h <= 13 {
		return s + "th"
	}
	switch n % 10 {
	case 1:
		return s + "st"
	case 2:
		return s + "nd"
	case 3:
		return s + "rd"
	}
	return s + "th"
}
