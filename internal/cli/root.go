package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// Exit codes returned by Execute.
const (
	ExitOK    = 0
	ExitError = 1
	ExitUsage = 2
)

// skipBootstrap marks commands that must work even when the stored session
// cannot be read.
const skipBootstrap = "optiflow/skip-bootstrap"

// usageError marks bad flags or arguments so Execute can exit with ExitUsage.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func usagef(format string, args ...any) error {
	return usageError{err: fmt.Errorf(format, args...)}
}

// displayError shows msg to the user while keeping the cause for errors.Is.
type displayError struct {
	msg   string
	cause error
}

func (e displayError) Error() string { return e.msg }
func (e displayError) Unwrap() error { return e.cause }

// shell holds the state of one command-line invocation.
type shell struct {
	build   Builder
	streams Streams
	output  string
	app     *App
}

func newShell(build Builder, s Streams) *shell {
	return &shell{build: build, streams: s}
}

// command builds the command tree. The App is created once flags are parsed
// and is shared by the command that runs.
func (sh *shell) command() *cobra.Command {
	root := &cobra.Command{
		Use:           "optiflow",
		Short:         "Command-line client for the OptiFlow production-order service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := newFormatter(sh.output, sh.streams.Out); err != nil {
				return usageError{err: err}
			}
			app, err := sh.build(cmd.Context(), sh.streams)
			if err != nil {
				return err
			}
			sh.app = app
			if cmd.Annotations[skipBootstrap] == "true" {
				return nil
			}
			return app.session.Bootstrap(cmd.Context())
		},
	}
	root.SetOut(sh.streams.Out)
	root.SetErr(sh.streams.Err)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err: err}
	})
	root.PersistentFlags().StringVarP(&sh.output, "output", "o", "table", "output format: table, json or yaml")

	current := func() *App { return sh.app }
	printer := func() formatter {
		f, _ := newFormatter(sh.output, sh.streams.Out)
		return f
	}

	root.AddCommand(
		newAuthCmd(current, printer),
		newVendorsCmd(current, printer),
		newOrdersCmd(current, printer),
		newCalendarCmd(current, printer),
		newUsersCmd(current, printer),
		newReportsCmd(current, printer),
		newDoctorCmd(current, printer),
	)
	return root
}

// Execute runs the command line in args and returns the process exit code.
func Execute(ctx context.Context, args []string, s Streams) int {
	return newShell(DefaultBuilder, s).run(ctx, args)
}

func (sh *shell) run(ctx context.Context, args []string) int {
	root := sh.command()
	root.SetArgs(args)
	cmd, err := root.ExecuteContextC(ctx)

	if sh.app != nil {
		if closeErr := sh.app.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
		sh.app = nil
	}
	if err == nil {
		return ExitOK
	}

	fmt.Fprintf(sh.streams.Err, "error: %v\n", err)
	if isUsageError(err) {
		if cmd != nil {
			fmt.Fprintf(sh.streams.Err, "run '%s --help' for usage\n", cmd.CommandPath())
		}
		return ExitUsage
	}
	return ExitError
}

// isUsageError also recognises the argument errors cobra builds itself.
func isUsageError(err error) bool {
	var ue usageError
	if errors.As(err, &ue) {
		return true
	}
	msg := err.Error()
	return strings.HasPrefix(msg, "unknown command") ||
		strings.HasPrefix(msg, "required flag") ||
		strings.HasPrefix(msg, "unknown flag") ||
		strings.HasPrefix(msg, "unknown shorthand flag")
}

func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return usageError{err: err}
		}
		return nil
	}
}

// appFunc returns the App of the running command.
type appFunc func() *App

// formatterFunc returns the formatter selected with --output.
type formatterFunc func() formatter
