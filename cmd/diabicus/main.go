// cmd/diabicus — command-line host for the diabicus calculator core
//
// Usage:
//
//	diabicus                      interactive calculator (same as repl)
//	diabicus eval "3(2-5)" "Ans^2"
//	diabicus check facts.yaml
//	echo '{"tool":"calculate","params":{"expr":"φ^2"}}' | diabicus tool
package main

import (
	"fmt"
	"os"

	"github.com/njchilds90/diabicus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	verbose    bool
	configPath string
	factsPath  string
	musicPath  string
	degrees    bool
	digits     int

	logger *zap.Logger
	cfg    *diabicus.Config
)

var rootCmd = &cobra.Command{
	Use:   "diabicus",
	Short: "A calculator that plays music, lights up and displays facts",
	Long: `diabicus evaluates calculator input the way a pocket calculator reads it:
3(2-5), 2π, AnsAns and ln(2)4 all mean what they look like.

After each calculation it picks a fact (and possibly a piece of special
music) whose test matches the result, from the case files configured with
--facts and --special-music.

Run without arguments to start the interactive calculator.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		config.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		cfg, err = diabicus.LoadConfig(configPath)
		if err != nil {
			return err
		}
		if factsPath != "" {
			cfg.FactsFile = factsPath
		}
		if musicPath != "" {
			cfg.SpecialMusicFile = musicPath
		}
		if degrees {
			cfg.AngleMode = diabicus.Degrees
		}
		if digits > 0 {
			cfg.DisplayDigits = digits
		}
		return cfg.Validate()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runREPL,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", os.Getenv("DIABICUS_CONFIG"), "Config file (YAML)")
	rootCmd.PersistentFlags().StringVar(&factsPath, "facts", "", "Fact case file (YAML or JSON)")
	rootCmd.PersistentFlags().StringVar(&musicPath, "special-music", "", "Special-music case file (YAML or JSON)")
	rootCmd.PersistentFlags().BoolVar(&degrees, "degrees", false, "Read trigonometric arguments in degrees")
	rootCmd.PersistentFlags().IntVar(&digits, "digits", 0, "Significant digits for complex parts (reals get twice as many)")

	rootCmd.AddCommand(replCmd, evalCmd, checkCmd, toolCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
