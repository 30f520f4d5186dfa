package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"go.alt-gnome.ru/lesst/internal/logging"
)

// errTestsFailed makes the process exit non-zero without printing twice.
var errTestsFailed = errors.New("some tests failed")

var rootCmd = &cobra.Command{
	Use:   "lesst",
	Short: "lesst drives interactive command line programs from test suites",
	Long: `lesst spawns console programs, feeds them input and keystrokes, waits for
their output and reports which assertions failed.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errTestsFailed) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().Bool("debug", false, "Log harness diagnostics to stderr")
	rootCmd.PersistentFlags().Bool("no-color", false, "Disable colored output")
}

func newLogger(cmd *cobra.Command) *slog.Logger {
	debug, _ := cmd.Flags().GetBool("debug")
	if !debug {
		return logging.NewNop()
	}
	return logging.New(os.Stderr, slog.LevelDebug)
}

func colorProfile(cmd *cobra.Command) termenv.Profile {
	if noColor, _ := cmd.Flags().GetBool("no-color"); noColor {
		return termenv.Ascii
	}
	return termenv.EnvColorProfile()
}
