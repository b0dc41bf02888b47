package diabicus_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/njchilds90/diabicus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// enter presses one key per character, like a user on the keypad.
func enter(s *diabicus.Session, keys string) {
	for _, r := range keys {
		s.PressKey(string(r))
	}
}

// ============================================================
// Clear
// ============================================================

func TestSession_ClearInput(t *testing.T) {
	s := diabicus.NewSession()
	enter(s, "1234567890")
	s.Clear()
	assert.Equal(t, "", s.Input())
}

func TestSession_ClearOnEmptyInput(t *testing.T) {
	s := diabicus.NewSession()
	s.Clear()
	assert.Equal(t, "", s.Input())
	assert.Equal(t, "", s.Output())
}

func TestSession_ClearAfterCalculateClearsOnlyInput(t *testing.T) {
	s := diabicus.NewSession()
	enter(s, "12345+67890")
	s.Calculate()
	s.Clear()
	assert.Equal(t, "", s.Input())
	assert.Equal(t, "80235", s.Output())
}

func TestSession_ClearTwiceAfterCalculateClearsBoth(t *testing.T) {
	s := diabicus.NewSession()
	enter(s, "12345+67890")
	s.Calculate()
	s.Clear()
	s.Clear()
	assert.Equal(t, "", s.Input())
	assert.Equal(t, "", s.Output())
}

// ============================================================
// Calculate
// ============================================================

func TestSession_OutputMatchesResult(t *testing.T) {
	s := diabicus.NewSession()
	enter(s, "12345+67890")
	got := s.Calculate()
	assertValue(t, diabicus.Int(80235), got, "12345+67890")
	assertValue(t, diabicus.Int(80235), s.Result(), "result")
	assert.Equal(t, s.Result().String(), s.Output())
	assert.True(t, s.JustCalculated())
}

func TestSession_BasicArithmetic(t *testing.T) {
	s := diabicus.NewSession()
	enter(s, "3-5×2+9/3^2")
	s.Calculate()
	assertValue(t, diabicus.Int(-6), s.Result(), "3-5×2+9/3^2")
}

func TestSession_ImplicitMultiplicationUsingParentheses(t *testing.T) {
	s := diabicus.NewSession()
	enter(s, "3(2-5)")
	s.Calculate()
	assertValue(t, diabicus.Int(-9), s.Result(), "3(2-5)")
}

func TestSession_ErrorKeepsResult(t *testing.T) {
	s := diabicus.NewSession()
	enter(s, "12345*/^*")
	got := s.Calculate()
	assert.True(t, got.IsError())
	assert.Equal(t, "Error: invalid syntax", s.Output())
	assertValue(t, diabicus.Int(0), s.Result(), "result after error")

	s.PressAns()
	s.Calculate()
	assertValue(t, diabicus.Int(0), s.Result(), "Ans after error")
	assert.Equal(t, "0", s.Output())
}

func TestSession_OperatorAfterCalculateContinuesFromAns(t *testing.T) {
	s := diabicus.NewSession()
	enter(s, "2+3")
	s.Calculate()
	s.PressKey("×")
	assert.Equal(t, "Ans×", s.Input())
	s.PressKey("2")
	s.Calculate()
	assertValue(t, diabicus.Int(10), s.Result(), "Ans×2")
}

func TestSession_DigitAfterCalculateStartsOver(t *testing.T) {
	s := diabicus.NewSession()
	enter(s, "2+3")
	s.Calculate()
	s.PressKey("7")
	assert.Equal(t, "7", s.Input())
	assert.Equal(t, "5", s.Output(), "output stays until the next calculation")
}

func TestSession_DisplayDigits(t *testing.T) {
	s := diabicus.NewSession(diabicus.WithDisplayDigits(3))
	enter(s, "1/3")
	s.Calculate()
	assert.Equal(t, "0.333333", s.Output())
}

func TestSession_WithEvaluator(t *testing.T) {
	s := diabicus.NewSession(diabicus.WithEvaluator(diabicus.NewEvaluator(diabicus.WithAngleMode(diabicus.Degrees))))
	s.PressFunctionKey("sin")
	enter(s, "90)")
	s.Calculate()
	assertValue(t, diabicus.Int(1), s.Result(), "sin(90°)")
}

// ============================================================
// Keys
// ============================================================

func TestSession_BinaryOperatorPrependsAns(t *testing.T) {
	for _, key := range []string{"×", "/", "^", "×10^"} {
		s := diabicus.NewSession()
		s.PressKey(key)
		assert.Equal(t, "Ans"+key, s.Input(), key)
	}
}

func TestSession_UnaryOperatorDoesNotPrependAns(t *testing.T) {
	for _, key := range []string{"+", "-"} {
		s := diabicus.NewSession()
		s.PressKey(key)
		assert.Equal(t, key, s.Input(), key)
	}
}

func TestSession_FunctionKey(t *testing.T) {
	s := diabicus.NewSession()
	s.PressKey("3")
	s.PressFunctionKey("ln")
	enter(s, "1)")
	assert.Equal(t, "3"+diabicus.FunctionPrefix+"ln(1)", s.Input())
	s.Calculate()
	assertValue(t, diabicus.Int(0), s.Result(), "3ln(1)")
}

// ============================================================
// Backspace
// ============================================================

func TestSession_BackspaceCharacter(t *testing.T) {
	s := diabicus.NewSession()
	enter(s, "12")
	s.Backspace()
	assert.Equal(t, "1", s.Input())
	s.Backspace()
	s.Backspace()
	assert.Equal(t, "", s.Input())
}

func TestSession_BackspaceAns(t *testing.T) {
	s := diabicus.NewSession()
	enter(s, "2")
	s.PressAns()
	assert.Equal(t, "2Ans", s.Input())
	s.Backspace()
	assert.Equal(t, "2", s.Input())
}

func TestSession_BackspaceFunction(t *testing.T) {
	s := diabicus.NewSession()
	s.PressKey("2")
	s.PressFunctionKey("sin")
	s.Backspace()
	assert.Equal(t, "2", s.Input())

	s.PressFunctionKey("ln")
	s.PressKey("2")
	s.Backspace()
	assert.Equal(t, "2"+diabicus.FunctionPrefix+"ln(", s.Input())
	s.Backspace()
	assert.Equal(t, "2", s.Input())
}

func TestSession_BackspaceMultibyte(t *testing.T) {
	s := diabicus.NewSession()
	enter(s, "2×π")
	s.Backspace()
	assert.Equal(t, "2×", s.Input())
}

func TestSession_BackspaceAfterCalculateEdits(t *testing.T) {
	s := diabicus.NewSession()
	enter(s, "1+2")
	s.Calculate()
	s.Backspace()
	assert.False(t, s.JustCalculated())
	assert.Equal(t, "1+", s.Input())
	s.PressKey("5")
	assert.Equal(t, "1+5", s.Input())
}

// ============================================================
// History
// ============================================================

func TestSession_History(t *testing.T) {
	s := diabicus.NewSession()
	enter(s, "1+2")
	s.Calculate()
	enter(s, "1/0")
	s.Calculate()

	want := []diabicus.Entry{
		{Formula: "1+2", Result: diabicus.Int(3), Output: "3"},
		{Formula: "1/0", Result: diabicus.Failed(diabicus.ErrorOf(diabicus.ErrDivideByZero)), Output: "Error: divide by zero"},
	}
	if diff := cmp.Diff(want, s.History().Entries(), cmp.Comparer(diabicus.Value.Equal)); diff != "" {
		t.Errorf("history mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"1+2", "1/0"}, s.History().Formulas())
	assert.Equal(t, []string{"3", "Error: divide by zero"}, s.History().Outputs())

	calcs, errs := s.Stats()
	assert.Equal(t, 1, calcs)
	assert.Equal(t, 1, errs)
}

func TestSession_HistoryIsSnapshot(t *testing.T) {
	s := diabicus.NewSession()
	enter(s, "1+2")
	s.Calculate()
	h := s.History()

	enter(s, "3+4")
	s.Calculate()
	assert.Equal(t, 1, h.Len())
	assert.Equal(t, 2, s.History().Len())

	entries := h.Entries()
	entries[0].Formula = "changed"
	first, ok := s.History().At(0)
	require.True(t, ok)
	assert.Equal(t, "1+2", first.Formula)
}

func TestHistory_Accessors(t *testing.T) {
	h := diabicus.NewHistory(
		diabicus.Entry{Formula: "1", Result: diabicus.Int(1)},
		diabicus.Entry{Formula: "2", Result: diabicus.Int(2)},
		diabicus.Entry{Formula: "3", Result: diabicus.Int(3)},
	)
	last, ok := h.At(-1)
	require.True(t, ok)
	assert.Equal(t, "3", last.Formula)
	_, ok = h.At(3)
	assert.False(t, ok)
	_, ok = h.At(-4)
	assert.False(t, ok)

	assert.Len(t, h.Last(2), 2)
	assert.Len(t, h.Last(10), 3)
	assert.Empty(t, h.Last(0))
	assert.Len(t, h.Results(), 3)
	assert.Contains(t, h.String(), "len: 3")
}

func TestSession_ID(t *testing.T) {
	a, b := diabicus.NewSession(), diabicus.NewSession()
	_, err := uuid.Parse(a.ID())
	require.NoError(t, err)
	assert.NotEqual(t, a.ID(), b.ID())
}
