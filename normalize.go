package diabicus

import (
	"regexp"
	"sort"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"
)

// FunctionPrefix is the zero-width marker written before a function name
// (e.g. "\u200bln(") so that the name is never mistaken for variables.
const FunctionPrefix = "\u200b"

// Names lists what the normalizer must treat as atomic: variables and
// constants that may be implicitly multiplied, and function names that may
// be typed without the marker.
type Names struct {
	Variables []string
	Functions []string
}

var operatorTranslations = []struct{ from, to string }{
	{"×", "*"},
	{"÷", "/"},
	{"−", "-"},
	{"^", "**"},
}

// TranslateOperators rewrites calculator glyphs into plain operators.
func TranslateOperators(expr string) string {
	for _, t := range operatorTranslations {
		expr = strings.ReplaceAll(expr, t.from, t.to)
	}
	return expr
}

var (
	reBeforeOperand = regexp.MustCompile(`([0-9).])([^0-9).+*/-])`)
	reAfterOperand  = regexp.MustCompile(`([^0-9(.+*/-]+)([0-9(.])`)
	reNumber        = regexp.MustCompile(`\d+\.?\d*`)
)

// Normalize turns calculator text into a strict expression: operators are
// translated, implicit multiplication is made explicit, leading zeros are
// stripped and function markers are removed.
//
//	3(2-5)  -> 3*(2-5)
//	AnsAns  -> Ans*Ans
//	3ln(2)  -> 3*ln(2)   (ln carrying the marker)
//	004321  -> 4321
func Normalize(text string, names Names) string {
	expr := stripSpace(text)
	expr = MarkFunctions(expr, names.Functions)
	expr = TranslateOperators(expr)
	expr = MakeMultiplicationExplicit(expr, names.Variables)
	expr = RemoveLeadingZeros(expr)
	return strings.ReplaceAll(expr, FunctionPrefix, "")
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// MarkFunctions inserts FunctionPrefix before each known function name that
// is directly followed by "(" and not already marked.
func MarkFunctions(expr string, functions []string) string {
	if len(functions) == 0 {
		return expr
	}
	fns := byLengthDesc(functions)
	var b strings.Builder
	inName := false
	for i := 0; i < len(expr); {
		r, size := utf8.DecodeRuneInString(expr[i:])
		if inName && unicode.IsLetter(r) {
			b.WriteRune(r)
			i += size
			continue
		}
		inName = string(r) == FunctionPrefix
		if !inName {
			if fn := matchFunction(expr[i:], fns); fn != "" {
				b.WriteString(FunctionPrefix + fn + "(")
				i += len(fn) + 1
				continue
			}
		}
		b.WriteRune(r)
		i += size
	}
	return b.String()
}

func matchFunction(s string, fns []string) string {
	for _, fn := range fns {
		if strings.HasPrefix(s, fn+"(") {
			return fn
		}
	}
	return ""
}

// MakeMultiplicationExplicit inserts "*" where multiplication is implied:
// a number or ")" before "(" or a name, adjacent variables, and a number or
// variable next to a function call. Function names themselves and the
// marker are left in place; the marker is what keeps ln(ln(x)) intact.
func MakeMultiplicationExplicit(expr string, variables []string) string {
	expr = reBeforeOperand.ReplaceAllString(expr, "$1*$2")
	expr = multiplyVariables(expr, variables)
	return reAfterOperand.ReplaceAllStringFunc(expr, func(m string) string {
		sub := reAfterOperand.FindStringSubmatch(m)
		left, right := sub[1], sub[2]
		if strings.HasPrefix(left, FunctionPrefix) {
			return strings.TrimPrefix(left, FunctionPrefix) + right
		}
		return left + "*" + right
	})
}

// multiplyVariables separates adjacent variables. The text is walked in
// spans: everything up to and including the next marker is rewritten, then
// the function name through its "(" is copied untouched, recursively for
// nested calls.
func multiplyVariables(expr string, variables []string) string {
	if len(variables) == 0 {
		return expr
	}
	re := adjacentVariables(variables)

	var out strings.Builder
	start := 0
	for start < len(expr) {
		prefixAt := strings.Index(expr[start:], FunctionPrefix)
		end := len(expr)
		if prefixAt >= 0 {
			end = start + prefixAt + len(FunctionPrefix)
		}
		part := expr[start:end]
		for {
			next := re.ReplaceAllString(part, "$1*$2")
			if next == part {
				break
			}
			part = next
		}
		out.WriteString(part)
		if prefixAt < 0 {
			break
		}
		paren := strings.Index(expr[end:], "(")
		if paren < 0 {
			out.WriteString(expr[end:])
			break
		}
		out.WriteString(expr[end : end+paren+1])
		start = end + paren + 1
	}
	return out.String()
}

// adjacentPatterns caches adjacentVariables by the joined, length-sorted
// variable names.
var adjacentPatterns sync.Map

// adjacentVariables matches a variable followed by another variable or a
// function marker.
func adjacentVariables(variables []string) *regexp.Regexp {
	sorted := byLengthDesc(variables)
	key := strings.Join(sorted, "\x00")
	if re, ok := adjacentPatterns.Load(key); ok {
		return re.(*regexp.Regexp)
	}
	quoted := make([]string, 0, len(sorted))
	for _, v := range sorted {
		quoted = append(quoted, regexp.QuoteMeta(v))
	}
	alt := strings.Join(quoted, "|")
	re, _ := adjacentPatterns.LoadOrStore(key, regexp.MustCompile("("+alt+")("+alt+"|"+FunctionPrefix+")"))
	return re.(*regexp.Regexp)
}

// RemoveLeadingZeros strips leading zeros from every number, keeping one
// zero before a decimal point: 004321 -> 4321, 00.5 -> 0.5.
func RemoveLeadingZeros(expr string) string {
	return reNumber.ReplaceAllStringFunc(expr, stripLeadingZeros)
}

func stripLeadingZeros(number string) string {
	number = strings.TrimLeft(number, "0")
	if number == "" || number[0] == '.' {
		number = "0" + number
	}
	return number
}

func byLengthDesc(names []string) []string {
	out := append([]string(nil), names...)
	sort.SliceStable(out, func(i, j int) bool {
		return utf8.RuneCountInString(out[i]) > utf8.RuneCountInString(out[j])
	})
	return out
}
