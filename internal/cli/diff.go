package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/groupmeal/internal/domain"
	"github.com/roach88/groupmeal/internal/reconcile"
)

// DiffOptions holds flags for the diff command.
type DiffOptions struct {
	*RootOptions
	OrderType string
	View      string // "digest" | "chat"
	OrderID   string
	Title     string
	ThreadID  string
	PlanID    string
	By        string
}

// NewDiffCommand creates the diff command.
func NewDiffCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DiffOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "diff <old.json> <new.json>",
		Short: "Compare two order detail snapshots",
		Long: `Compare two order detail JSON files offline and print what changed.

The digest view is the email text sent to the booker. The chat view is the
flat audit payload posted to the order's chat thread. Names come from the
menus in the snapshots; nothing is read from the database.

Examples:
  groupmeal diff before.json after.json
  groupmeal diff before.json after.json --type normal
  groupmeal diff before.json after.json --view chat --thread t-1 --by booker`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiff(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.OrderType, "type", string(domain.OrderTypeGroup), "order type (group|normal)")
	cmd.Flags().StringVar(&opts.View, "view", "digest", "projection to print (digest|chat)")
	cmd.Flags().StringVar(&opts.OrderID, "order-id", "", "order id shown in the output")
	cmd.Flags().StringVar(&opts.Title, "title", "", "order title shown in the digest")
	cmd.Flags().StringVar(&opts.PlanID, "plan-id", "", "plan id of the chat audit")
	cmd.Flags().StringVar(&opts.ThreadID, "thread", "", "chat thread id")
	cmd.Flags().StringVar(&opts.By, "by", string(reconcile.ByAdmin), "who made the change (admin|booker)")

	return cmd
}

func runDiff(opts *DiffOptions, oldPath, newPath string, cmd *cobra.Command) error {
	orderType := domain.OrderType(opts.OrderType)
	if orderType != domain.OrderTypeGroup && orderType != domain.OrderTypeNormal {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid type %q: must be group or normal", opts.OrderType))
	}
	if opts.View != "digest" && opts.View != "chat" {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid view %q: must be digest or chat", opts.View))
	}
	by, err := reconcile.ParseAttribution(opts.By)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --by", err)
	}
	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}
	loc, err := cfg.Location()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid config", err)
	}

	old, err := readOrderDetail(oldPath)
	if err != nil {
		return err
	}
	next, err := readOrderDetail(newPath)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cs := reconcile.New(nil, nil).Diff(ctx, orderType, old, next)

	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	if opts.View == "chat" {
		audit := reconcile.NewChatAudit(by, opts.ThreadID, opts.OrderID, opts.PlanID, cs)
		return out.Success(audit, audit.Render)
	}

	if cs.Empty() {
		return out.Success(cs, func(w io.Writer) error {
			_, err := fmt.Fprintln(w, "No changes.")
			return err
		})
	}
	digest := reconcile.NewDigest(opts.OrderID, opts.Title, cs, loc)
	return out.Success(cs, digest.Render)
}

func readOrderDetail(path string) (domain.OrderDetail, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to read order detail", err)
	}
	var detail domain.OrderDetail
	if err := json.Unmarshal(data, &detail); err != nil {
		return nil, WrapExitError(ExitCommandError, fmt.Sprintf("failed to parse %s", path), err)
	}
	if err := detail.Validate(); err != nil {
		return nil, WrapExitError(ExitCommandError, fmt.Sprintf("invalid order detail %s", path), err)
	}
	return detail, nil
}
