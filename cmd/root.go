// Package cmd implements the ksched command-line interface.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"ksched/logging"
)

// Version information set at build time.
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
)

// Global flags
var (
	globalLog       string
	globalLogFormat string
	globalDebug     bool

	globalPolicyFlag string
	globalMLFQS      bool
	globalFreq       int
	globalSlice      int
)

// resolvePolicy reports whether -o/--o mlfqs or the --mlfqs alias selected
// the MLFQ scheduler, mirroring Pintos's "-o mlfqs" boot option.
func resolvePolicy() bool {
	return globalMLFQS || globalPolicyFlag == "mlfqs"
}

// rootCmd is the base command for ksched.
var rootCmd = &cobra.Command{
	Use:   "ksched",
	Short: "a preemptive kernel thread scheduler simulator",
	Long: `ksched boots a small preemptive uniprocessor scheduler and either
drives it through a set of scenarios, printing what each one observed
(boot), or repaints a live console table of every thread's state,
priority, donated priority, nice and recent_cpu as it runs (monitor).

It implements the two scheduling policies taught alongside it: strict
priority with donation, and the 64-level multi-level feedback queue with
the BSD decay formula.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogging()
		return nil
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// GetContext returns a context that cancels on SIGINT/SIGTERM, used by the
// monitor command's live repaint loop to exit cleanly on Ctrl-C.
func GetContext() context.Context {
	ctx, _ := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	return ctx
}

func init() {
	rootCmd.PersistentFlags().StringVar(&globalLog, "log", "", "set the log file path")
	rootCmd.PersistentFlags().StringVar(&globalLogFormat, "log-format", "text", "set the format for log output (text or json)")
	rootCmd.PersistentFlags().BoolVar(&globalDebug, "debug", false, "enable debug logging")

	rootCmd.PersistentFlags().StringVarP(&globalPolicyFlag, "o", "o", "", `boot option, mirroring Pintos: "-o mlfqs" selects the MLFQ scheduler`)
	rootCmd.PersistentFlags().BoolVar(&globalMLFQS, "mlfqs", false, "alias for -o mlfqs")
	rootCmd.PersistentFlags().IntVar(&globalFreq, "freq", 0, "timer frequency in ticks/sec (default kernel.TimerFreq)")
	rootCmd.PersistentFlags().IntVar(&globalSlice, "slice", 0, "time slice in ticks (default kernel.TimeSlice)")
}

func setupLogging() {
	logOutput := os.Stderr
	if globalLog != "" {
		f, err := os.OpenFile(globalLog, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err == nil {
			logOutput = f
		}
	}

	logLevel := slog.LevelInfo
	if globalDebug {
		logLevel = slog.LevelDebug
	}

	logger := logging.NewLogger(logging.Config{
		Level:  logLevel,
		Format: globalLogFormat,
		Output: logOutput,
	})
	logging.SetDefault(logger)
}
