package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/roach88/groupmeal/internal/assign"
	"github.com/roach88/groupmeal/internal/booking"
	"github.com/roach88/groupmeal/internal/domain"
	"github.com/roach88/groupmeal/internal/notify"
	"github.com/roach88/groupmeal/internal/pick"
	"github.com/roach88/groupmeal/internal/reconcile"
	"github.com/roach88/groupmeal/internal/store"
)

// Store is the storage the pipeline reads orders and plans from and writes
// results to. *store.Store implements it.
type Store interface {
	Show(ctx context.Context, id string) (domain.Entity, error)
	Update(ctx context.Context, id string, metadata map[string]any) (domain.Entity, error)
	ReplaceBookings(ctx context.Context, planID string, records []domain.BookingRecord) error
}

// Trigger is the job input.
type Trigger struct {
	OrderID string `json:"orderId"`
}

// Config holds the values the pipeline passes to its components.
type Config struct {
	// DefaultDeliveryHour applies to orders without a delivery hour.
	DefaultDeliveryHour string
	// Location is used for booking times.
	Location *time.Location
	// By attributes chat audit messages.
	By reconcile.Attribution
}

// Status is how a run ended.
type Status string

const (
	StatusSkipped  Status = "skipped"
	StatusNoChange Status = "no_change"
	StatusResolved Status = "resolved"
)

// Outcome describes a finished run.
type Outcome struct {
	Status  Status
	OrderID string
	PlanID  string
	// Reason is set when Status is skipped.
	Reason error
	// Resolved counts the members who got food.
	Resolved   int
	Unresolved int
	Changes    reconcile.ChangeSet
	Bookings   []domain.BookingRecord
	ThreadID   string
	Report     notify.Report
}

// Runner runs the auto-pick job.
type Runner struct {
	store      Store
	assign     *assign.Engine
	reconcile  *reconcile.Engine
	dispatcher *notify.Dispatcher
	tokens     TokenGenerator
	now        func() time.Time
	cfg        Config
	logger     *slog.Logger
	selector   *pick.Selector
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// WithSelector sets the food selector. Tests use a seeded one.
func WithSelector(s *pick.Selector) Option {
	return func(r *Runner) { r.selector = s }
}

// WithTokenGenerator sets the generator for new chat thread ids.
// Default: UUIDv7Generator.
func WithTokenGenerator(g TokenGenerator) Option {
	return func(r *Runner) { r.tokens = g }
}

// WithClock sets the time source for notification timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// New creates a Runner. fetcher loads entities in batches and dispatcher
// delivers notifications; a nil dispatcher sends nothing.
func New(st Store, fetcher assign.EntityFetcher, dispatcher *notify.Dispatcher, cfg Config, opts ...Option) *Runner {
	r := &Runner{
		store:      st,
		dispatcher: dispatcher,
		tokens:     UUIDv7Generator{},
		now:        time.Now,
		cfg:        cfg,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.cfg.By == "" {
		r.cfg.By = reconcile.ByAdmin
	}
	if r.dispatcher == nil {
		r.dispatcher = notify.NewDispatcher(r.logger)
	}
	r.assign = assign.New(fetcher, st, r.selector, r.logger)
	r.reconcile = reconcile.New(fetcher, r.logger)
	return r
}

// Run executes the job for one order.
//
// Skipped runs return a nil error with Outcome.Reason set. Load and commit
// failures return a *Error; nothing after the commit runs in that case.
func (r *Runner) Run(ctx context.Context, trig Trigger) (*Outcome, error) {
	orderID := strings.TrimSpace(trig.OrderID)
	if orderID == "" {
		return r.skip(&Error{Code: ErrCodeMissingOrderID, Message: "trigger has no order id"}), nil
	}

	order, plan, err := r.load(ctx, orderID)
	if err != nil {
		if IsPreconditionError(err) {
			return r.skip(err), nil
		}
		r.logger.Error("auto-pick load failed", "order_id", orderID, "error", err)
		return nil, err
	}
	if !order.IsPickingGroup() {
		return r.skip(&Error{
			Code:    ErrCodePrecondition,
			Message: "order is not a group order in picking state (type=" + string(order.Type) + ", state=" + string(order.State) + ")",
			OrderID: order.ID,
		}), nil
	}

	res, err := r.assign.Run(ctx, order, plan)
	if err != nil {
		code, msg := ErrCodeLoadFailed, "load order entities"
		if errors.Is(err, assign.ErrCommit) {
			code, msg = ErrCodeCommitFailed, "commit order detail"
		}
		perr := &Error{Code: code, Message: msg, OrderID: order.ID, PlanID: plan.ID, Err: err}
		r.logger.Error("auto-pick failed", "order_id", order.ID, "plan_id", plan.ID, "error", perr)
		return nil, perr
	}

	out := &Outcome{
		Status:     StatusNoChange,
		OrderID:    order.ID,
		PlanID:     plan.ID,
		Resolved:   res.Resolved(),
		Unresolved: unresolved(res),
	}
	if out.Resolved == 0 {
		return out, nil
	}
	out.Status = StatusResolved
	plan.OrderDetail = res.Detail

	out.Changes = r.reconcile.Diff(ctx, order.Type, res.Previous, res.Detail)

	if records, err := r.SyncLedger(ctx, order, plan); err != nil {
		r.logger.Error("ledger sync failed", "order_id", order.ID, "plan_id", plan.ID, "error", err)
	} else {
		out.Bookings = records
	}

	out.ThreadID = r.ensureThread(ctx, plan)

	out.Report = r.dispatcher.Dispatch(ctx, notify.Batch{
		Type:         domain.NotificationAutoPicked,
		Order:        order,
		Plan:         plan,
		ThreadID:     out.ThreadID,
		By:           r.cfg.By,
		Changes:      out.Changes,
		Participants: participants(res),
		Restaurants:  res.Restaurants,
		CreatedAt:    r.now(),
	})

	r.logger.Info("auto-pick done",
		"order_id", order.ID,
		"plan_id", plan.ID,
		"resolved", out.Resolved,
		"unresolved", out.Unresolved,
		"changes", out.Changes.Len(),
		"bookings", len(out.Bookings),
	)
	return out, nil
}

// SyncLedger normalizes the plan's order detail and replaces the plan's
// booking records with the result.
func (r *Runner) SyncLedger(ctx context.Context, order domain.Order, plan domain.Plan) ([]domain.BookingRecord, error) {
	records, err := booking.Normalize(booking.Input{
		Detail:              plan.OrderDetail,
		OrderID:             order.ID,
		PlanID:              plan.ID,
		DeliveryHour:        order.DeliveryHour,
		DefaultDeliveryHour: r.cfg.DefaultDeliveryHour,
		Location:            r.cfg.Location,
	})
	if err != nil {
		return nil, err
	}
	if err := r.store.ReplaceBookings(ctx, plan.ID, records); err != nil {
		return nil, err
	}
	return records, nil
}

// Load reads and decodes an order and its plan.
func (r *Runner) Load(ctx context.Context, orderID string) (domain.Order, domain.Plan, error) {
	return r.load(ctx, orderID)
}

func (r *Runner) load(ctx context.Context, orderID string) (domain.Order, domain.Plan, error) {
	ent, err := r.store.Show(ctx, orderID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Order{}, domain.Plan{}, &Error{Code: ErrCodePrecondition, Message: "order not found", OrderID: orderID, Err: err}
	}
	if err != nil {
		return domain.Order{}, domain.Plan{}, &Error{Code: ErrCodeLoadFailed, Message: "load order", OrderID: orderID, Err: err}
	}
	order, err := domain.DecodeOrder(ent)
	if err != nil {
		return domain.Order{}, domain.Plan{}, &Error{Code: ErrCodeLoadFailed, Message: "decode order", OrderID: orderID, Err: err}
	}

	ent, err = r.store.Show(ctx, order.PlanID)
	if err != nil {
		return order, domain.Plan{}, &Error{Code: ErrCodeLoadFailed, Message: "load plan", OrderID: orderID, PlanID: order.PlanID, Err: err}
	}
	plan, err := domain.DecodePlan(ent)
	if err != nil {
		return order, domain.Plan{}, &Error{Code: ErrCodeLoadFailed, Message: "decode plan", OrderID: orderID, PlanID: order.PlanID, Err: err}
	}
	return order, plan, nil
}

// ensureThread returns the plan's chat thread id, creating and storing one
// when the plan has none. A failed write still returns the new token.
func (r *Runner) ensureThread(ctx context.Context, plan domain.Plan) string {
	if plan.ThreadID != "" {
		return plan.ThreadID
	}
	token := r.tokens.Generate()
	if _, err := r.store.Update(ctx, plan.ID, map[string]any{"threadId": token}); err != nil {
		r.logger.Error("saving chat thread id failed", "plan_id", plan.ID, "error", err)
	}
	return token
}

func (r *Runner) skip(reason error) *Outcome {
	var pe *Error
	orderID := ""
	if errors.As(reason, &pe) {
		orderID = pe.OrderID
	}
	r.logger.Error("auto-pick skipped", "order_id", orderID, "reason", reason)
	return &Outcome{Status: StatusSkipped, OrderID: orderID, Reason: reason}
}

func unresolved(res *assign.Result) int {
	n := 0
	for _, d := range res.Dates {
		n += len(d.Unresolved)
	}
	return n
}

// participants returns the resolved members in id order. Members whose
// profile could not be loaded are still notified by id.
func participants(res *assign.Result) []domain.Member {
	ids := res.ResolvedMemberIDs()
	out := make([]domain.Member, 0, len(ids))
	for _, id := range ids {
		m, ok := res.Members[id]
		if !ok {
			m = domain.Member{ID: id}
		}
		out = append(out, m)
	}
	return out
}
