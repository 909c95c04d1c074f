// Package assign resolves members of a picking group order who did not
// choose their food before the deadline.
//
// For every date of the order detail, the engine computes the price-eligible
// menu once, then gives each member with status "empty" one allergy-safe food
// drawn at random. Members for whom no food is safe stay "empty" and are
// retried by the next run.
//
// All dates are resolved in memory first. The new order detail is written to
// the plan in one update, so a failed run leaves the plan untouched.
package assign

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/groupmeal/internal/domain"
	"github.com/roach88/groupmeal/internal/pick"
)

// ErrCommit marks a failure to write the resolved order detail back.
var ErrCommit = errors.New("commit order detail")

// EntityFetcher loads listings and users in batches.
type EntityFetcher interface {
	Listings(ctx context.Context, ids []string) ([]domain.Entity, error)
	Users(ctx context.Context, ids []string) ([]domain.Entity, error)
}

// PlanWriter patches the metadata of a plan listing.
type PlanWriter interface {
	Update(ctx context.Context, id string, metadata map[string]any) (domain.Entity, error)
}

// DateAssignment is the bookkeeping of one date: who was resolved, which foods
// were in the running, and who is still waiting.
type DateAssignment struct {
	MemberIDs  []string
	FoodIDs    []string
	Unresolved []string
}

// Result is the outcome of one run.
type Result struct {
	// Skipped is set when the order is not a picking group order.
	Skipped bool
	// Previous is the order detail as loaded, before resolution.
	Previous domain.OrderDetail
	// Detail is the order detail after resolution.
	Detail domain.OrderDetail
	// Dates holds the per-date bookkeeping for dates that had empty members.
	Dates map[string]DateAssignment

	Members     map[string]domain.Member
	Foods       map[string]domain.Food
	Restaurants map[string]string
}

// Resolved returns how many members got food in this run.
func (r *Result) Resolved() int {
	if r == nil {
		return 0
	}
	n := 0
	for _, d := range r.Dates {
		n += len(d.MemberIDs)
	}
	return n
}

// ResolvedMemberIDs returns the distinct members resolved on any date, sorted.
func (r *Result) ResolvedMemberIDs() []string {
	var ids []string
	for _, d := range r.Dates {
		ids = append(ids, d.MemberIDs...)
	}
	slices.Sort(ids)
	return slices.Compact(ids)
}

// Engine runs the assignment pass.
type Engine struct {
	fetcher  EntityFetcher
	writer   PlanWriter
	selector *pick.Selector
	logger   *slog.Logger
}

// New creates an Engine. A nil logger uses slog.Default().
func New(fetcher EntityFetcher, writer PlanWriter, selector *pick.Selector, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if selector == nil {
		selector = pick.NewSelector(nil)
	}
	return &Engine{fetcher: fetcher, writer: writer, selector: selector, logger: logger}
}

// Run resolves the empty members of plan and commits the new order detail.
//
// Orders that are not group orders in the picking state are skipped without
// error. When nobody could be resolved nothing is written. A commit failure
// is returned wrapped in ErrCommit.
func (e *Engine) Run(ctx context.Context, order domain.Order, plan domain.Plan) (*Result, error) {
	if !order.IsPickingGroup() {
		e.logger.Debug("assign skipped", "order_id", order.ID, "type", order.Type, "state", order.State)
		return &Result{Skipped: true}, nil
	}

	res := &Result{Previous: plan.OrderDetail.Clone()}
	if err := e.load(ctx, plan.OrderDetail, res); err != nil {
		return nil, err
	}

	pool := make([]domain.Food, 0, len(res.Foods))
	for _, f := range res.Foods {
		pool = append(pool, f)
	}
	res.Detail, res.Dates = e.Resolve(order, plan.OrderDetail, pool, res.Members)

	if res.Resolved() == 0 {
		e.logger.Info("no members resolved", "order_id", order.ID, "plan_id", plan.ID)
		return res, nil
	}

	if _, err := e.writer.Update(ctx, plan.ID, map[string]any{"orderDetail": res.Detail}); err != nil {
		return res, fmt.Errorf("%w: plan %s: %w", ErrCommit, plan.ID, err)
	}
	e.logger.Info("order detail committed",
		"order_id", order.ID,
		"plan_id", plan.ID,
		"resolved", res.Resolved(),
	)
	return res, nil
}

// Resolve computes the new order detail without touching storage. detail is
// not modified.
func (e *Engine) Resolve(order domain.Order, detail domain.OrderDetail, pool []domain.Food, members map[string]domain.Member) (domain.OrderDetail, map[string]DateAssignment) {
	next := detail.Clone()
	dates := map[string]DateAssignment{}

	for _, date := range next.Dates() {
		sub := next[date]

		var empty []string
		for id, mo := range sub.MemberOrders {
			if mo.Status == domain.MemberStatusEmpty {
				empty = append(empty, id)
			}
		}
		if len(empty) == 0 {
			continue
		}
		slices.Sort(empty)

		eligible := pick.EligibleFoodIDs(sub.Restaurant.FoodList, order.PackagePerMember)
		da := DateAssignment{FoodIDs: eligible.Sorted()}

		for _, memberID := range empty {
			member, ok := members[memberID]
			if !ok {
				e.logger.Warn("member profile not found, picking without allergies",
					"order_id", order.ID, "date", date, "member_id", memberID)
			}
			food, ok := e.selector.Pick(pool, eligible, member.Allergies)
			if !ok {
				e.logger.Warn("no safe food for member",
					"order_id", order.ID, "date", date, "member_id", memberID,
					"eligible", len(da.FoodIDs))
				da.Unresolved = append(da.Unresolved, memberID)
				continue
			}

			prev := sub.MemberOrders[memberID]
			sub.MemberOrders[memberID] = domain.MemberOrder{
				Status:      domain.MemberStatusJoined,
				FoodID:      food.ID,
				Requirement: prev.Requirement,
			}
			da.MemberIDs = append(da.MemberIDs, memberID)
			e.logger.Debug("member resolved",
				"order_id", order.ID, "date", date, "member_id", memberID, "food_id", food.ID)
		}

		dates[date] = da
	}

	return next, dates
}

// load fetches foods, members and restaurants of the order detail
// concurrently.
func (e *Engine) load(ctx context.Context, detail domain.OrderDetail, res *Result) error {
	var foods, users, restaurants []domain.Entity

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		foods, err = e.fetcher.Listings(gctx, detail.FoodIDs())
		return err
	})
	g.Go(func() error {
		var err error
		users, err = e.fetcher.Users(gctx, detail.MemberIDs())
		return err
	})
	g.Go(func() error {
		var err error
		restaurants, err = e.fetcher.Listings(gctx, detail.RestaurantIDs())
		return err
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("load order entities: %w", err)
	}

	res.Foods = make(map[string]domain.Food, len(foods))
	for _, ent := range foods {
		f, err := domain.DecodeFood(ent)
		if err != nil {
			e.logger.Warn("skipping malformed food", "food_id", ent.Key(), "error", err)
			continue
		}
		res.Foods[f.ID] = f
	}

	res.Members = make(map[string]domain.Member, len(users))
	for _, ent := range users {
		m, err := domain.DecodeMember(ent)
		if err != nil {
			e.logger.Warn("skipping malformed member", "member_id", ent.Key(), "error", err)
			continue
		}
		res.Members[m.ID] = m
	}

	res.Restaurants = make(map[string]string, len(restaurants))
	for _, ent := range restaurants {
		res.Restaurants[ent.Key()] = ent.Attributes.Title
	}
	return nil
}
