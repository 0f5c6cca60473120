package commands

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/vitruv-tools/oclsharp/pkg/checker"
)

// CheckOptions holds options for the check command.
type CheckOptions struct {
	Constraint string
	Watch      bool
}

// NewCheckCommand creates the check command.
func NewCheckCommand() *cobra.Command {
	opts := &CheckOptions{}

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check constraints against the loaded object model",
		Long: `Compile the constraint file and evaluate every constraint over the
instances of its context class.

Verdicts are reported per constraint; the exit status is non-zero only
when the run itself fails, such as a missing input file or a constraint
source with no parseable constraints.`,
		Example: `  # Check all constraints
  oclsharp check rules.ocl -m fleet.yaml -i ships.yaml

  # Check a single constraint by name
  oclsharp check --constraint positiveMass

  # Re-check whenever a model or constraint file changes
  oclsharp check --watch`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Constraint, "constraint", "c", "", "Check only the named constraint")
	cmd.Flags().BoolVarP(&opts.Watch, "watch", "w", false, "Watch the input files and re-check on change")

	return cmd
}

func runCheck(cmd *cobra.Command, args []string, opts *CheckOptions) error {
	cfg := getConfig()
	if len(args) == 1 {
		// Positional constraint file beats config and flags.
		override := *cfg
		override.ConstraintFile = args[0]
		cfg = &override
	}

	cc, err := newCommandContext(cmd, cfg)
	if err != nil {
		return err
	}

	report, err := runReport(cc, opts)
	if err != nil {
		return err
	}
	if err := cc.Renderer.Report(report); err != nil {
		return err
	}

	if opts.Watch {
		return watchCheck(cmd, cc, opts)
	}

	// Verdicts do not affect the exit status; only a run that could not
	// produce any result is fatal.
	if len(report.Results) == 0 && len(report.ParseErrors) > 0 {
		return fmt.Errorf("no constraints could be parsed from %s", cc.Cfg.ConstraintFile)
	}
	return nil
}

func runReport(cc *CommandContext, opts *CheckOptions) (*checker.Report, error) {
	if opts.Constraint != "" {
		return cc.Engine.CheckConstraint(opts.Constraint)
	}
	return cc.Engine.Check()
}

// watchCheck blocks until interrupted, re-checking on every file change.
// Watch failures inside the engine keep the last good model, so a broken
// intermediate save does not kill the loop.
func watchCheck(cmd *cobra.Command, cc *CommandContext, opts *CheckOptions) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Fprintln(cmd.ErrOrStderr(), "Watching for changes. Press Ctrl+C to stop.")

	err := cc.Engine.Watch(ctx, func(report *checker.Report) {
		if opts.Constraint != "" {
			if r, err := cc.Engine.CheckConstraint(opts.Constraint); err == nil {
				report = r
			}
		}
		_ = cc.Renderer.Report(report)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
