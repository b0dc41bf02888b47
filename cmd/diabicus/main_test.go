package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/njchilds90/diabicus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const factsFile = "../../testdata/facts.yaml"

// execute runs the root command with args and stdin, resetting the flag
// globals the previous run may have set.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	for _, k := range []string{"DIABICUS_DISPLAY_DIGITS", "DIABICUS_ANGLE_MODE", "DIABICUS_CASE_TIMEOUT",
		"DIABICUS_FACTS", "DIABICUS_SPECIAL_MUSIC", "DIABICUS_SEED"} {
		t.Setenv(k, "")
	}
	verbose, configPath, factsPath, musicPath, degrees, digits = false, "", "", "", false, 0
	showNormalized, printSchema, checkParallel = false, false, 0

	var out bytes.Buffer
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	if args == nil {
		args = []string{}
	}
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

// ============================================================
// eval
// ============================================================

func TestEval_CarriesAns(t *testing.T) {
	out, err := execute(t, "", "eval", "--facts", factsFile, "12345+67890", "Ans-80000")
	require.NoError(t, err)
	assert.Equal(t, "80235\n235\n", out)
}

func TestEval_Normalized(t *testing.T) {
	out, err := execute(t, "", "eval", "--normalized", "3(2-5)")
	require.NoError(t, err)
	assert.Equal(t, "3*(2-5)\n-9\n", out)
}

func TestEval_FactShown(t *testing.T) {
	out, err := execute(t, "", "eval", "--facts", factsFile, "12+1")
	require.NoError(t, err)
	assert.Contains(t, out, "13\n")
	assert.Contains(t, out, "  fact: ")
}

func TestEval_Failure(t *testing.T) {
	out, err := execute(t, "", "eval", "1/0")
	assert.EqualError(t, err, "1 of 1 calculations failed")
	assert.Contains(t, out, "Error: divide by zero")
}

func TestEval_Degrees(t *testing.T) {
	out, err := execute(t, "", "--degrees", "eval", "sin(90)")
	require.NoError(t, err)
	assert.Equal(t, "1\n", out)
}

// ============================================================
// repl
// ============================================================

func TestREPL_Session(t *testing.T) {
	out, err := execute(t, "12345+67890\nAns-80000\n×2\n:stats\n:history\n:quit\n", "repl")
	require.NoError(t, err)
	assert.Contains(t, out, "80235\n")
	assert.Contains(t, out, "> 235\n")
	assert.Contains(t, out, "> 470\n")
	assert.Contains(t, out, "3 calculations, 0 errors, Ans = 470")
	assert.Contains(t, out, "Ans×2 = 470")
	assert.NotContains(t, out, "160470")
}

func TestREPL_EndOfInput(t *testing.T) {
	out, err := execute(t, "2+2\n")
	require.NoError(t, err)
	assert.Contains(t, out, "> 4\n")
}

// ============================================================
// tool
// ============================================================

func TestTool_Calculate(t *testing.T) {
	out, err := execute(t, `{"tool":"calculate","params":{"expr":"3(2-5)"}}`, "tool")
	require.NoError(t, err)
	var resp diabicus.ToolResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "-9", resp.String)
	assert.Equal(t, "integer", resp.Kind)
}

func TestTool_RejectsBadInput(t *testing.T) {
	for _, in := range []string{
		`{"tool":"calculate","params":{"expr":"1"},"extra":1}`,
		`{"tool":"calculate","params":{"expr":"1"}} {}`,
		`not json`,
	} {
		out, err := execute(t, in, "tool")
		assert.Error(t, err, in)
		var resp diabicus.ToolResponse
		require.NoError(t, json.Unmarshal([]byte(out), &resp), in)
		assert.NotEmpty(t, resp.Error, in)
	}
}

func TestTool_Schema(t *testing.T) {
	out, err := execute(t, "", "tool", "--schema")
	require.NoError(t, err)
	assert.JSONEq(t, diabicus.ToolSpec(), out)
}

// ============================================================
// check
// ============================================================

func TestCheck_Facts(t *testing.T) {
	out, err := execute(t, "", "check", factsFile)
	require.NoError(t, err)
	assert.Contains(t, out, "10 facts, 0 special music loaded")
	assert.Contains(t, out, "facts: test failures 0 / ")
}

func TestCheck_InvalidWeight(t *testing.T) {
	out, err := execute(t, "", "check", "../../testdata/special_music.yaml")
	assert.EqualError(t, err, "case check failed")
	assert.Contains(t, out, "music/error.mp3: non-numeric or negative weight")
}

func TestCheck_NoFiles(t *testing.T) {
	_, err := execute(t, "", "check")
	assert.Error(t, err)
}
