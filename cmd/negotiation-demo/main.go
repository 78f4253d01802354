package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"crossborder/internal/clock"
	"crossborder/internal/config"
	"crossborder/internal/logging"
	"crossborder/internal/sequencer"
)

var (
	// Global flags
	configPath string
	verbose    bool
	logFile    string

	cfg    *config.Config
	logger *zap.Logger
)

// rootCmd launches the terminal UI when no subcommand is given.
var rootCmd = &cobra.Command{
	Use:   "negotiation-demo",
	Short: "Cross-border civil-registry negotiation demo (IT → DE)",
	Long: `Walks through a scripted negotiation between the Italian ANPR registry and a
German civil registry: six negotiation steps, the field alignment results,
and the transformed birth record.

Run without arguments to open the interactive console.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded

		// The console owns the terminal, so it always logs to a file.
		target := strings.TrimSpace(logFile)
		if target == "" && cmd == cmd.Root() {
			target = cfg.Logging.File
		}
		logger, err = logging.New(logging.Options{
			Level:   cfg.Logging.Level,
			Verbose: verbose,
			File:    target,
		})
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runConsole(commandContext(cmd))
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", envOr("NEGOTIATION_CONFIG", "negotiation-demo.yaml"), "Path to the YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Write logs to this file (console default: logging.file)")

	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func currentConfig() *config.Config {
	if cfg == nil {
		return config.Default()
	}
	return cfg
}

func currentLogger() *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// newSequencer builds a sequencer on the wall clock. The ticker interval is
// never scaled by pace.
func newSequencer(pace float64, sink sequencer.Sink) *sequencer.Sequencer {
	c := currentConfig()
	return sequencer.New(
		sequencer.WithClock(clock.Real{}),
		sequencer.WithPace(pace),
		sequencer.WithTickerInterval(c.Demo.TickerInterval),
		sequencer.WithSink(sink),
		sequencer.WithLogger(currentLogger().Named("sequencer")),
	)
}

func envOr(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}
