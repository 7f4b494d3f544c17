package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Exit codes. Validation failures are distinguished from usage errors so
// scripts can tell "the crate does not conform" from "the run never happened".
const (
	exitFailure = 1 // completed run with failed or errored checks
	exitUsage   = 2 // bad arguments, unreadable inputs, aborted runs
)

var (
	cfgFile  string
	logLevel string
)

// rootCmd is the application entry point.
var rootCmd = &cobra.Command{
	Use:   "rocval",
	Short: "Profile-driven validation for RO-Crate metadata",
	Long: `Rocval validates research object crates against declarative profiles.
A profile compiles into a tree of requirements whose checks are shape
constraints over the crate's JSON-LD graph; validation evaluates the tree
and reports every check with its severity and the entities violating it.`,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		setupLogging()
	},
	SilenceUsage: true,
}

// Execute runs the root command. Interrupts cancel the command context so
// a running validation aborts between requirements instead of being killed.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(exitCode(err))
	}
}

// exitError tags an error with a specific process exit code.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

// exitCode maps an error to the process exit code. Untagged errors count as
// usage errors.
func exitCode(err error) int {
	var xerr *exitError
	if errors.As(err, &xerr) {
		return xerr.code
	}
	return exitUsage
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.rocval.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
}

// initConfig loads configuration from the config file and environment.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			slog.Error("failed to find home directory", "error", err)
			os.Exit(exitUsage)
		}

		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".rocval")
	}

	viper.SetEnvPrefix("ROCVAL")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		slog.Debug("using config file", "file", viper.ConfigFileUsed())
	}
}

func setupLogging() {
	level := slog.LevelInfo
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	// Using TextHandler for CLI friendliness; debug runs carry source positions
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}))
	slog.SetDefault(logger)
}
