package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"shollu-partner/internal/config"
	"shollu-partner/internal/storage"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "shollu-partner",
	Short: "Shollu partner center",
	Long:  `Web dashboard and command-line tools for Shollu mosque partners: attendance scanning, members, card printing and satgas approval.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		var err error
		if cfgFile != "" {
			cfg, err = config.LoadConfig(cfgFile)
		} else {
			cfg, err = config.LoadConfig()
		}
		if err != nil {
			slog.Error("Failed to load configuration", "error", err)
			os.Exit(1)
		}
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Initialize logger
func initLogger(cfg *config.Config) *slog.Logger {
	// Determine level from config and set it on the handler options.
	var level slog.Level
	switch strings.ToUpper(cfg.LogLevel) {
	case "DEBUG":
		level = slog.LevelDebug
	case "INFO":
		level = slog.LevelInfo
	case "WARN", "WARNING":
		level = slog.LevelWarn
	case "ERROR":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
		println("Invalid log level in config, defaulting to INFO")
	}
	handlerOpts := &slog.HandlerOptions{
		Level: level,
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, handlerOpts))
	slog.SetDefault(logger)

	slog.Debug("Logger initialized", "level", level.String())
	return logger
}

// Initialize logger with minimal output for CLI commands
func initCLILogger() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
	slog.SetDefault(logger)
}

// openProvider opens the configured storage or exits.
func openProvider() storage.Provider {
	provider, err := storage.NewProvider(&cfg.Storage)
	if err != nil {
		slog.Error("Failed to initialize storage provider", "error", err)
		os.Exit(1)
	}
	return provider
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./instance/config.yaml or ./config.yaml)")
}
