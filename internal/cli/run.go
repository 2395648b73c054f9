package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/najoast/unitrt/config"
	"github.com/najoast/unitrt/core"
)

// RunOptions holds flags of the run command.
type RunOptions struct {
	Duration time.Duration
	Sends    []string // "<unit>=<message>"
}

// RunResult is the summary printed after a run.
type RunResult struct {
	Stats  core.Stats `json:"stats"`
	Sent   int        `json:"sent"`
	Failed []string   `json:"failed_sends,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the configured units",
		Long: `Build and start the configured units, then wait for SIGINT/SIGTERM or
the --duration to elapse and shut down. Messages given with --send are sent
once everything is started.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(rootOpts, opts, cmd)
		},
	}

	cmd.Flags().DurationVarP(&opts.Duration, "duration", "d", 0, "stop after this long (0 runs until interrupted)")
	cmd.Flags().StringArrayVar(&opts.Sends, "send", nil, "send a message after start, as <unit>=<message> (repeatable)")

	return cmd
}

func runRun(rootOpts *RootOptions, opts *RunOptions, cmd *cobra.Command) error {
	formatter := newFormatter(rootOpts, cmd)

	sends, err := parseSends(opts.Sends)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeInvalid, "invalid --send", err)
	}

	cfg, path, err := loadConfig(rootOpts, config.NewLoader())
	if err != nil {
		return failLoad(formatter, err)
	}

	logger, closer, err := newLogger(cfg, rootOpts, formatter.ErrWriter)
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeInvalid, "invalid log configuration", err)
	}
	defer closer.Close()

	app, err := newApplication(logger, path)
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeRuntime, "cannot register unit kinds", err)
	}
	if err := app.Configure(cfg); err != nil {
		return formatter.Fail(ExitFailure, ErrCodeInvalid, "cannot build units", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if opts.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Duration)
		defer cancel()
	}

	if err := app.Start(ctx); err != nil {
		return formatter.Fail(ExitFailure, ErrCodeRuntime, "cannot start", err)
	}

	rt := app.Runtime()
	result := RunResult{}
	for _, s := range sends {
		ref, ok := rt.Reference(s.unit)
		if ok && ref.Send(s.message) {
			result.Sent++
			continue
		}
		logger.Warn("message not accepted", "unit", s.unit)
		result.Failed = append(result.Failed, s.unit)
	}

	<-ctx.Done()
	shutdownErr := app.Shutdown(context.Background())
	result.Stats = rt.Stats()

	if formatter.JSON() {
		if err := formatter.Success(result); err != nil {
			return err
		}
	} else {
		writeRunSummary(formatter, result)
	}
	if shutdownErr != nil {
		return WrapExitError(ExitFailure, "shutdown", shutdownErr)
	}
	return nil
}

type send struct {
	unit    string
	message string
}

func parseSends(values []string) ([]send, error) {
	sends := make([]send, 0, len(values))
	for _, v := range values {
		unit, message, ok := strings.Cut(v, "=")
		if !ok || unit == "" {
			return nil, fmt.Errorf("%q is not <unit>=<message>", v)
		}
		sends = append(sends, send{unit: unit, message: message})
	}
	return sends, nil
}

func writeRunSummary(formatter *OutputFormatter, result RunResult) {
	w := formatter.Writer
	fmt.Fprintf(w, "Context %s %s\n", result.Stats.ID, result.Stats.State)
	if len(result.Failed) > 0 {
		fmt.Fprintf(w, "Sent %d, not accepted: %s\n", result.Sent, strings.Join(result.Failed, ", "))
	} else {
		fmt.Fprintf(w, "Sent %d\n", result.Sent)
	}
	for _, u := range result.Stats.Units {
		fmt.Fprintf(w, "  %s  delivered=%d failed=%d discarded=%d\n", u.ID, u.Delivered, u.Failed, u.Discarded)
	}
	if formatter.Verbose {
		for _, lane := range result.Stats.Lanes {
			formatter.VerboseLog("lane %s: workers=%d submitted=%d completed=%d rejected=%d",
				lane.Name, lane.Workers, lane.Submitted, lane.Completed, lane.Rejected)
		}
	}
}
