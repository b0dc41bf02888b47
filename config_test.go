package diabicus_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/njchilds90/diabicus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configEnv = []string{
	"DIABICUS_DISPLAY_DIGITS",
	"DIABICUS_ANGLE_MODE",
	"DIABICUS_CASE_TIMEOUT",
	"DIABICUS_FACTS",
	"DIABICUS_SPECIAL_MUSIC",
	"DIABICUS_SEED",
}

// clearEnv blanks every DIABICUS_* variable for the test; empty counts as
// unset.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range configEnv {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "diabicus.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

// ============================================================
// Config
// ============================================================

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := diabicus.LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, diabicus.DefaultConfig(), cfg)
	assert.Equal(t, diabicus.DefaultDisplayDigits, cfg.DisplayDigits)
	assert.Equal(t, diabicus.Radians, cfg.AngleMode)
	assert.Equal(t, diabicus.DefaultCaseTimeout, cfg.CaseTimeout)
	assert.Equal(t, diabicus.DefaultCheckTimeout, cfg.CheckTimeout)
}

func TestLoadConfig_File(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
display_digits: 5
angle_mode: degrees
case_timeout: 250ms
facts_file: facts.yaml
seed: 42
`)
	cfg, err := diabicus.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.DisplayDigits)
	assert.Equal(t, diabicus.Degrees, cfg.AngleMode)
	assert.Equal(t, 250*time.Millisecond, cfg.CaseTimeout)
	assert.Equal(t, diabicus.DefaultCheckTimeout, cfg.CheckTimeout)
	assert.Equal(t, "facts.yaml", cfg.FactsFile)
	assert.Equal(t, uint64(42), cfg.Seed)
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "display_digits: 5\nangle_mode: degrees\n")
	t.Setenv("DIABICUS_DISPLAY_DIGITS", "9")
	t.Setenv("DIABICUS_ANGLE_MODE", "radians")
	t.Setenv("DIABICUS_CASE_TIMEOUT", "2s")
	t.Setenv("DIABICUS_FACTS", "/etc/diabicus/facts.yaml")
	t.Setenv("DIABICUS_SPECIAL_MUSIC", "/etc/diabicus/music.yaml")
	t.Setenv("DIABICUS_SEED", "7")

	cfg, err := diabicus.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.DisplayDigits)
	assert.Equal(t, diabicus.Radians, cfg.AngleMode)
	assert.Equal(t, 2*time.Second, cfg.CaseTimeout)
	assert.Equal(t, "/etc/diabicus/facts.yaml", cfg.FactsFile)
	assert.Equal(t, "/etc/diabicus/music.yaml", cfg.SpecialMusicFile)
	assert.Equal(t, uint64(7), cfg.Seed)
}

func TestLoadConfig_Invalid(t *testing.T) {
	for _, c := range []struct{ key, val string }{
		{"DIABICUS_DISPLAY_DIGITS", "many"},
		{"DIABICUS_DISPLAY_DIGITS", "0"},
		{"DIABICUS_DISPLAY_DIGITS", "18"},
		{"DIABICUS_ANGLE_MODE", "gradians"},
		{"DIABICUS_CASE_TIMEOUT", "soon"},
		{"DIABICUS_CASE_TIMEOUT", "-1s"},
		{"DIABICUS_SEED", "-3"},
	} {
		t.Run(c.key+"="+c.val, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(c.key, c.val)
			_, err := diabicus.LoadConfig("")
			assert.ErrorIs(t, err, diabicus.ErrInvalidConfig)
		})
	}
}

func TestLoadConfig_FileErrors(t *testing.T) {
	clearEnv(t)
	_, err := diabicus.LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = diabicus.LoadConfig(writeConfig(t, "display_digits: [1"))
	assert.Error(t, err)

	_, err = diabicus.LoadConfig(writeConfig(t, "display_digits: 40"))
	assert.ErrorIs(t, err, diabicus.ErrInvalidConfig)
}

func TestConfig_CollectionOptions(t *testing.T) {
	cfg := diabicus.DefaultConfig()
	assert.Len(t, cfg.CollectionOptions(), 1)
	cfg.Seed = 3
	assert.Len(t, cfg.CollectionOptions(), 2)

	cases := []*diabicus.Fact{weighted("a", 1, always), weighted("b", 1, always), weighted("c", 1, always)}
	c1 := diabicus.NewCollection(cases, cfg.CollectionOptions()...)
	c2 := diabicus.NewCollection(cases, cfg.CollectionOptions()...)
	for range 50 {
		a, _ := c1.Choose(cases)
		b, _ := c2.Choose(cases)
		require.Equal(t, a.Title, b.Title)
	}
}
