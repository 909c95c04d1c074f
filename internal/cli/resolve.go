package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/groupmeal/internal/pipeline"
)

// ResolveOptions holds flags for the resolve command.
type ResolveOptions struct {
	*RootOptions

	// Tokens allows overriding the chat thread token generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	Tokens pipeline.TokenGenerator
}

// ResolveResult is the output of the resolve command.
type ResolveResult struct {
	Status         string   `json:"status"`
	OrderID        string   `json:"orderId,omitempty"`
	PlanID         string   `json:"planId,omitempty"`
	Reason         string   `json:"reason,omitempty"`
	Resolved       int      `json:"resolved"`
	Unresolved     int      `json:"unresolved"`
	Changes        int      `json:"changes"`
	Bookings       int      `json:"bookings"`
	ThreadID       string   `json:"threadId,omitempty"`
	FailedChannels []string `json:"failedChannels,omitempty"`
}

// NewResolveCommand creates the resolve command.
func NewResolveCommand(rootOpts *RootOptions) *cobra.Command {
	return newResolveCommand(&ResolveOptions{RootOptions: rootOpts})
}

func newResolveCommand(opts *ResolveOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve <order-id>",
		Short: "Auto-pick food for members who did not choose",
		Long: `Run the auto-pick job for one order.

Members of a group order in the picking state who have not chosen get an
allergy-safe food within the per-member budget. The order detail is committed
in one write, then the change set is reconciled, the bookings are rebuilt
and every participant is notified.

Orders that are missing or not picking are skipped and exit with 0.

Exit codes:
  0 - Resolved, nothing to do, or skipped
  1 - Loading or committing the order failed
  2 - Command error (config, database)

Example:
  groupmeal resolve --db ./groupmeal.db order-1
  groupmeal resolve --config ./groupmeal.cue order-1 --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(opts, args[0], cmd)
		},
	}
	return cmd
}

func runResolve(opts *ResolveOptions, orderID string, cmd *cobra.Command) error {
	a, err := openApp(opts.RootOptions)
	if err != nil {
		return err
	}
	defer a.Close()

	var popts []pipeline.Option
	if opts.Tokens != nil {
		popts = append(popts, pipeline.WithTokenGenerator(opts.Tokens))
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	outcome, err := a.runner(popts...).Run(ctx, pipeline.Trigger{OrderID: orderID})
	if err != nil {
		code := "E_RUN_FAILED"
		var perr *pipeline.Error
		if errors.As(err, &perr) {
			code = string(perr.Code)
		}
		if ferr := out.Error(code, err.Error(), nil); ferr != nil {
			return ferr
		}
		return WrapExitError(ExitFailure, "auto-pick failed", err)
	}

	result := newResolveResult(outcome)
	return out.Success(result, result.writeText)
}

func newResolveResult(o *pipeline.Outcome) ResolveResult {
	r := ResolveResult{
		Status:     string(o.Status),
		OrderID:    o.OrderID,
		PlanID:     o.PlanID,
		Resolved:   o.Resolved,
		Unresolved: o.Unresolved,
		Changes:    o.Changes.Len(),
		Bookings:   len(o.Bookings),
		ThreadID:   o.ThreadID,
	}
	if o.Reason != nil {
		r.Reason = o.Reason.Error()
	}
	for _, f := range o.Report.Failed() {
		r.FailedChannels = append(r.FailedChannels, f.Channel)
	}
	return r
}

func (r ResolveResult) writeText(w io.Writer) error {
	switch pipeline.Status(r.Status) {
	case pipeline.StatusSkipped:
		_, err := fmt.Fprintf(w, "Skipped: %s\n", r.Reason)
		return err
	case pipeline.StatusNoChange:
		_, err := fmt.Fprintf(w, "Order %s: nobody to resolve (%d still without a safe food)\n", r.OrderID, r.Unresolved)
		return err
	}
	fmt.Fprintf(w, "Order %s: resolved %d, unresolved %d\n", r.OrderID, r.Resolved, r.Unresolved)
	fmt.Fprintf(w, "  changes:  %d\n", r.Changes)
	fmt.Fprintf(w, "  bookings: %d\n", r.Bookings)
	fmt.Fprintf(w, "  thread:   %s\n", r.ThreadID)
	if len(r.FailedChannels) > 0 {
		fmt.Fprintf(w, "  failed channels: %v\n", r.FailedChannels)
	}
	return nil
}
