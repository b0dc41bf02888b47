package diabicus

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the calculator settings a host passes to constructors.
// Values are resolved as defaults, then the YAML file, then DIABICUS_*
// environment variables.
type Config struct {
	// DisplayDigits is the significant-digit budget for complex parts;
	// reals get twice as many.
	DisplayDigits int `yaml:"display_digits" json:"display_digits"`

	// AngleMode is "radians" or "degrees".
	AngleMode AngleMode `yaml:"angle_mode" json:"angle_mode"`

	// CaseTimeout bounds each case test and message during use.
	CaseTimeout time.Duration `yaml:"case_timeout" json:"case_timeout"`

	// CheckTimeout bounds each case test and message during offline checks.
	CheckTimeout time.Duration `yaml:"check_timeout" json:"check_timeout"`

	FactsFile        string `yaml:"facts_file" json:"facts_file"`
	SpecialMusicFile string `yaml:"special_music_file" json:"special_music_file"`

	// Seed seeds case selection and fact message rotation; 0 picks a
	// random seed.
	Seed uint64 `yaml:"seed" json:"seed"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		DisplayDigits: DefaultDisplayDigits,
		AngleMode:     Radians,
		CaseTimeout:   DefaultCaseTimeout,
		CheckTimeout:  DefaultCheckTimeout,
	}
}

// LoadConfig resolves configuration from defaults, the YAML file at path
// (skipped when path is empty) and the environment.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("decode config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv applies environment variable overrides.
func (c *Config) applyEnv() error {
	if v := os.Getenv("DIABICUS_DISPLAY_DIGITS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: DIABICUS_DISPLAY_DIGITS=%q", ErrInvalidConfig, v)
		}
		c.DisplayDigits = n
	}
	if v := os.Getenv("DIABICUS_ANGLE_MODE"); v != "" {
		c.AngleMode = AngleMode(v)
	}
	if v := os.Getenv("DIABICUS_CASE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: DIABICUS_CASE_TIMEOUT=%q", ErrInvalidConfig, v)
		}
		c.CaseTimeout = d
	}
	if v := os.Getenv("DIABICUS_FACTS"); v != "" {
		c.FactsFile = v
	}
	if v := os.Getenv("DIABICUS_SPECIAL_MUSIC"); v != "" {
		c.SpecialMusicFile = v
	}
	if v := os.Getenv("DIABICUS_SEED"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: DIABICUS_SEED=%q", ErrInvalidConfig, v)
		}
		c.Seed = n
	}
	return nil
}

// Validate checks ranges and enumerations.
func (c *Config) Validate() error {
	if c.DisplayDigits < 1 || c.DisplayDigits > 17 {
		return fmt.Errorf("%w: display_digits %d not in [1, 17]", ErrInvalidConfig, c.DisplayDigits)
	}
	if c.AngleMode != Radians && c.AngleMode != Degrees {
		return fmt.Errorf("%w: angle_mode %q", ErrInvalidConfig, c.AngleMode)
	}
	if c.CaseTimeout <= 0 || c.CheckTimeout <= 0 {
		return fmt.Errorf("%w: timeouts must be positive", ErrInvalidConfig)
	}
	return nil
}

// LoaderOptions returns the options for loaders built from c.
func (c *Config) LoaderOptions() []LoaderOption {
	return []LoaderOption{WithLoaderSeed(c.Seed)}
}

// CollectionOptions returns the options for collections built from c.
func (c *Config) CollectionOptions() []CollectionOption {
	opts := []CollectionOption{WithRunner(NewRunner(c.CaseTimeout))}
	if c.Seed != 0 {
		opts = append(opts, WithSeed(c.Seed))
	}
	return opts
}
