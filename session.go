package diabicus

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Keys that cannot start an expression; pressing one on empty input
// inserts Ans first.
var binaryOperatorKeys = map[string]bool{
	"×":    true,
	"/":    true,
	"^":    true,
	"×10^": true,
}

// Session is one calculator: pending input, last result, display output
// and the history of calculations. It is not safe for concurrent use; a
// host drives it from a single goroutine.
type Session struct {
	id             string
	input          string
	output         string
	result         Value
	justCalculated bool
	entries        []Entry

	calculations int
	errors       int

	evaluator *Evaluator
	formatter Formatter
	logger    *zap.Logger
}

// SessionOption configures a Session.
type SessionOption func(*Session)

func WithEvaluator(e *Evaluator) SessionOption {
	return func(s *Session) { s.evaluator = e }
}

func WithDisplayDigits(digits int) SessionOption {
	return func(s *Session) { s.formatter = NewFormatter(digits) }
}

func WithSessionLogger(l *zap.Logger) SessionOption {
	return func(s *Session) { s.logger = l }
}

// NewSession returns an empty calculator with Ans = 0.
func NewSession(opts ...SessionOption) *Session {
	s := &Session{
		id:        uuid.NewString(),
		result:    Int(0),
		formatter: NewFormatter(DefaultDisplayDigits),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.evaluator == nil {
		s.evaluator = NewEvaluator(WithEvaluatorLogger(s.logger))
	}
	s.logger = s.logger.With(zap.String("session", s.id))
	return s
}

func (s *Session) ID() string     { return s.id }
func (s *Session) Input() string  { return s.input }
func (s *Session) Output() string { return s.output }
func (s *Session) Result() Value  { return s.result }

// JustCalculated reports whether the next key press starts a new formula.
func (s *Session) JustCalculated() bool { return s.justCalculated }

// Stats returns the number of successful and failed calculations.
func (s *Session) Stats() (calculations, errors int) { return s.calculations, s.errors }

// History returns a read-only snapshot of past calculations.
func (s *Session) History() History {
	return History{entries: s.entries[:len(s.entries):len(s.entries)]}
}

func (s *Session) startEntry() {
	if s.justCalculated {
		s.input = ""
	}
	s.justCalculated = false
}

// PressKey appends token to the input. Right after a calculation the old
// formula is dropped first; the output stays until the next calculation.
func (s *Session) PressKey(token string) {
	s.startEntry()
	if s.input == "" && binaryOperatorKeys[token] {
		s.input = AnsName
	}
	s.input += token
}

// PressAns appends the Ans pseudo-variable.
func (s *Session) PressAns() { s.PressKey(AnsName) }

// PressFunctionKey appends a marked function name and its open paren.
func (s *Session) PressFunctionKey(name string) {
	s.startEntry()
	s.input += FunctionPrefix + name + "("
}

// Clear empties the input, or the output when the input is already empty.
func (s *Session) Clear() {
	if s.input == "" {
		s.output = ""
		return
	}
	s.input = ""
}

// Backspace removes the last logical token: "Ans", a whole marked function
// name with its paren, or one character. Typing afterwards appends.
func (s *Session) Backspace() {
	s.justCalculated = false
	if s.input == "" {
		return
	}
	if strings.HasSuffix(s.input, AnsName) {
		s.input = strings.TrimSuffix(s.input, AnsName)
		return
	}
	if start, ok := functionSpanStart(s.input); ok {
		s.input = s.input[:start]
		return
	}
	_, size := utf8.DecodeLastRuneInString(s.input)
	s.input = s.input[:len(s.input)-size]
}

// functionSpanStart finds the marker that opens a trailing "name(" span.
func functionSpanStart(input string) (int, bool) {
	if !strings.HasSuffix(input, "(") {
		return 0, false
	}
	start := strings.LastIndex(input, FunctionPrefix)
	if start < 0 {
		return 0, false
	}
	name := input[start+len(FunctionPrefix) : len(input)-1]
	if name == "" {
		return 0, false
	}
	for _, r := range name {
		if !unicode.IsLetter(r) {
			return 0, false
		}
	}
	return start, true
}

// Calculate evaluates the input. A success updates the result (and so
// Ans); a failure leaves the result alone and shows "Error: <msg>". Either
// way the calculation is appended to the history and the next key press
// starts a new formula.
func (s *Session) Calculate() Value {
	s.logger.Info("calculate", zap.String("input", s.input))
	v, err := s.evaluator.Compute(s.input, s.result)
	if err != nil {
		ce, _ := err.(*ComputationError)
		if ce == nil {
			ce = newComputationError(ErrComputation, err)
		}
		v = Failed(ce)
		s.errors++
	} else {
		s.result = v
		s.calculations++
	}
	s.output = s.formatter.Format(v)
	s.justCalculated = true
	s.logger.Info("calculated",
		zap.Stringer("result", v), zap.String("output", s.output))
	s.entries = append(s.entries, Entry{Formula: s.input, Result: v, Output: s.output})
	return v
}
