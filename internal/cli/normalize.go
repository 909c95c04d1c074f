package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/groupmeal/internal/booking"
	"github.com/roach88/groupmeal/internal/domain"
)

// NormalizeOptions holds flags for the normalize command.
type NormalizeOptions struct {
	*RootOptions
	Sync bool // replace the stored bookings of the plan
}

// NewNormalizeCommand creates the normalize command.
func NewNormalizeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &NormalizeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "normalize <order-id>",
		Short: "Print the booking records of an order's plan",
		Long: `Build the transaction-ready booking records of an order's plan.

Each delivery date with at least one member whose food is on that day's menu
becomes one record. The chronologically last record is marked as the last
transaction of the plan. With --sync the records replace the plan's stored
bookings.

Examples:
  groupmeal normalize --db ./groupmeal.db order-1
  groupmeal normalize --db ./groupmeal.db order-1 --sync --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNormalize(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Sync, "sync", false, "replace the stored bookings of the plan")

	return cmd
}

func runNormalize(opts *NormalizeOptions, orderID string, cmd *cobra.Command) error {
	a, err := openApp(opts.RootOptions)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	runner := a.runner()
	order, plan, err := runner.Load(ctx, orderID)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to load order", err)
	}

	var records []domain.BookingRecord
	if opts.Sync {
		records, err = runner.SyncLedger(ctx, order, plan)
	} else {
		records, err = booking.Normalize(booking.Input{
			Detail:              plan.OrderDetail,
			OrderID:             order.ID,
			PlanID:              plan.ID,
			DeliveryHour:        order.DeliveryHour,
			DefaultDeliveryHour: a.cfg.DefaultDeliveryHour,
			Location:            a.location,
		})
	}
	if err != nil {
		return WrapExitError(ExitFailure, "failed to normalize bookings", err)
	}
	if records == nil {
		records = []domain.BookingRecord{}
	}

	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	return out.Success(records, func(w io.Writer) error {
		return writeBookings(w, records, opts.Sync)
	})
}

func writeBookings(w io.Writer, records []domain.BookingRecord, synced bool) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "No bookings.")
		return err
	}
	for _, r := range records {
		last := ""
		if r.IsLastTxOfPlan {
			last = " (last)"
		}
		fmt.Fprintf(w, "%s %s tx=%s%s\n",
			r.Date,
			r.BookingDisplayStart.Format("Mon 02/01/2006 15:04"),
			r.TransactionID,
			last,
		)
		for _, info := range r.BookingInfo {
			fmt.Fprintf(w, "  %s: %s (%s) %s\n", info.ParticipantID, info.FoodName, info.FoodID, info.FoodPrice.String())
		}
		fmt.Fprintf(w, "  participants: %s\n", strings.Join(r.ParticipantIDs, ", "))
	}
	if synced {
		_, err := fmt.Fprintf(w, "Synced %d booking(s).\n", len(records))
		return err
	}
	return nil
}
