package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"invoicer/internal/config"
	"invoicer/internal/logger"
)

var version = "1.0.0"

// exitInterrupted is the conventional exit code after SIGINT.
const exitInterrupted = 130

var rootCmd = &cobra.Command{
	Use:   "invoicer",
	Short: "Create Alphaflow invoices from mite time entries",
	Long: `invoicer reads unlocked time entries from mite, aggregates them per project,
creates one outgoing invoice per project in Alphaflow (d.velop), attaches a
time report (Dienstleistungsnachweis) and locks the invoiced entries in mite.

Secrets are referenced from config.yaml as ${VAR} and read from the
environment or a .env file in the working directory.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbose, _ := cmd.Flags().GetBool("verbose")
		if verbose {
			logger.SetLevel(zerolog.DebugLevel)
		}
		return nil
	},
}

// exitError carries a specific process exit code through cobra.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

// Execute runs the root command and exits with 1 on failure, or with the
// code carried by an exitError.
func Execute() {
	log := logger.WithComponent("cmd")

	if err := rootCmd.Execute(); err != nil {
		code := 1
		var exitErr *exitError
		if errors.As(err, &exitErr) {
			code = exitErr.code
		}
		log.Debug().
			Err(err).
			Int("exit_code", code).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Fehler: %v\n", err)
		os.Exit(code)
	}
}

// loadConfig reads --config and re-initializes the logger from the logging
// section. --verbose still wins over the configured level.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")

	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("Konfiguration konnte nicht geladen werden: %w", err)
	}

	if err := logger.Setup(cfg.GetLoggerConfig()); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		logger.SetLevel(zerolog.DebugLevel)
	}

	log := logger.WithComponent("cmd")
	log.Debug().
		Str("config", path).
		Str("log_level", cfg.Logging.Level).
		Msg("Configuration loaded")
	return cfg, nil
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", config.DefaultPath, "Path to config.yaml")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging and detailed output")
}
