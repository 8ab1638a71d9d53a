package main

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var rootFlags struct {
	configPath     string
	strategiesPath string
	verbose        bool
}

func main() {
	// Env bootstrap is best-effort: a missing .env is the normal case in
	// production.
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:   "scanner",
		Short: "Opportunity detection and adaptive-threshold scoring engine",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging(rootFlags.verbose)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&rootFlags.configPath, "config", "config/scanner.yaml", "scanner configuration file")
	flags.StringVar(&rootFlags.strategiesPath, "strategies", "config/strategies.yaml", "strategy definitions file (used without a database)")
	flags.BoolVarP(&rootFlags.verbose, "verbose", "v", false, "debug logging")
	flags.SetNormalizeFunc(func(f *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(name)
	})

	root.AddCommand(newScanCmd())
	root.AddCommand(newServeCmd())

	if err := root.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

func setupLogging(verbose bool) {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
}
