package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"go.alt-gnome.ru/lesst"
	"go.alt-gnome.ru/lesst/internal/metrics"
	"go.alt-gnome.ru/lesst/suite"
)

var runCmd = &cobra.Command{
	Use:   "run <suite.yaml>...",
	Short: "Run test suites",
	Long: `Runs every section of the given suite files in order. The exit status is
non-zero when a test fails or the run is aborted.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runSuites(ctx, cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolP("quiet", "q", false, "Print nothing but the final reports")
	runCmd.Flags().String("format", "text", "Final report format: text or markdown")
	runCmd.Flags().String("metrics-file", "", "Write Prometheus metrics to this textfile")
	runCmd.Flags().Duration("poll-interval", 0, "WaitFor polling interval (default 100ms)")
}

type runConfig struct {
	out         io.Writer
	quiet       bool
	format      string
	metricsFile string
	profile     termenv.Profile
	flowOpts    []lesst.FlowOption
}

func newRunConfig(cmd *cobra.Command) (runConfig, error) {
	cfg := runConfig{out: cmd.OutOrStdout(), profile: colorProfile(cmd)}
	cfg.quiet, _ = cmd.Flags().GetBool("quiet")
	cfg.format, _ = cmd.Flags().GetString("format")
	cfg.metricsFile, _ = cmd.Flags().GetString("metrics-file")
	if cfg.format != "text" && cfg.format != "markdown" {
		return cfg, fmt.Errorf("unknown format %q", cfg.format)
	}

	var printer lesst.Printer = lesst.NewConsolePrinter(cfg.out, cfg.profile)
	if cfg.quiet {
		printer = lesst.NopPrinter{}
	}
	cfg.flowOpts = []lesst.FlowOption{
		lesst.WithPrinter(printer),
		lesst.WithLogger(newLogger(cmd)),
	}
	if d, _ := cmd.Flags().GetDuration("poll-interval"); d > 0 {
		cfg.flowOpts = append(cfg.flowOpts, lesst.WithPollInterval(d))
	}
	return cfg, nil
}

func runSuites(ctx context.Context, cmd *cobra.Command, paths []string) error {
	cfg, err := newRunConfig(cmd)
	if err != nil {
		return err
	}

	files := make([]*suite.File, 0, len(paths))
	for _, path := range paths {
		f, err := suite.Load(path)
		if err != nil {
			return err
		}
		files = append(files, f)
	}

	rec := metrics.NewRecorder()
	var (
		reports []*lesst.Report
		runErr  error
	)
run:
	for _, f := range files {
		for _, s := range f.AllSections() {
			opts := append([]lesst.FlowOption{lesst.WithObserver(rec.Section(s.Title))}, cfg.flowOpts...)
			report, err := s.Run(ctx, opts...)
			if report != nil {
				reports = append(reports, report)
			}
			if err != nil {
				runErr = fmt.Errorf("%s: %w", f.Path, err)
				break run
			}
		}
	}

	if cfg.metricsFile != "" {
		if err := rec.WriteTextfile(cfg.metricsFile); err != nil {
			return fmt.Errorf("failed to write metrics: %w", err)
		}
	}
	if err := printReports(cfg, reports); err != nil {
		return err
	}
	if runErr != nil {
		return runErr
	}
	for _, r := range reports {
		if !r.AllPassed() {
			return errTestsFailed
		}
	}
	return nil
}

// printReports renders the final reports. Text output is left to the
// sections' own analysis unless the run was quiet.
func printReports(cfg runConfig, reports []*lesst.Report) error {
	switch cfg.format {
	case "markdown":
		tty := cfg.out == io.Writer(os.Stdout) && term.IsTerminal(int(os.Stdout.Fd()))
		render, err := newRenderer(cfg.profile, tty)
		if err != nil {
			return err
		}
		for _, r := range reports {
			out, err := render(r.Markdown())
			if err != nil {
				return fmt.Errorf("failed to render report: %w", err)
			}
			fmt.Fprint(cfg.out, out)
		}
	default:
		if !cfg.quiet {
			return nil
		}
		summary := lesst.NewConsolePrinter(cfg.out, cfg.profile)
		for _, r := range reports {
			summary.Summary(r)
		}
	}
	return nil
}

// newRenderer picks glamour's plain style when color is off or the output
// is not a terminal.
func newRenderer(profile termenv.Profile, tty bool) (func(string) (string, error), error) {
	style := glamour.WithAutoStyle()
	if profile == termenv.Ascii || !tty {
		style = glamour.WithStandardStyle("notty")
	}
	r, err := glamour.NewTermRenderer(style)
	if err != nil {
		return nil, fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	return r.Render, nil
}
