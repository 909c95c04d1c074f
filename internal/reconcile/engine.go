package reconcile

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/groupmeal/internal/domain"
)

// EntityFetcher loads listings and users in batches.
type EntityFetcher interface {
	Listings(ctx context.Context, ids []string) ([]domain.Entity, error)
	Users(ctx context.Context, ids []string) ([]domain.Entity, error)
}

// Engine compares snapshots and fills in member and food names.
type Engine struct {
	fetcher EntityFetcher
	logger  *slog.Logger
}

// New creates an Engine. A nil fetcher skips name lookups, leaving only the
// names found in the snapshots.
func New(fetcher EntityFetcher, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{fetcher: fetcher, logger: logger}
}

// Diff compares old and next and resolves display names with one batched
// lookup for all foods and one for all members. Lookup failures are logged
// and degrade to the names carried by the snapshots, or to empty strings.
func (e *Engine) Diff(ctx context.Context, orderType domain.OrderType, old, next domain.OrderDetail) ChangeSet {
	cs := Compare(orderType, old, next)
	if cs.Empty() {
		return cs
	}

	foods, members := e.lookup(ctx, cs)
	names := names{foods: foods, members: members, old: old, next: next}
	names.apply(&cs)
	return cs
}

func (e *Engine) lookup(ctx context.Context, cs ChangeSet) (foods, members map[string]string) {
	foods = map[string]string{}
	members = map[string]string{}
	if e.fetcher == nil {
		return foods, members
	}

	var foodEntities, userEntities []domain.Entity
	var g errgroup.Group
	g.Go(func() error {
		var err error
		if foodEntities, err = e.fetcher.Listings(ctx, cs.FoodIDs()); err != nil {
			e.logger.Warn("food name lookup failed", "error", err)
		}
		return nil
	})
	if ids := cs.MemberIDs(); len(ids) > 0 {
		g.Go(func() error {
			var err error
			if userEntities, err = e.fetcher.Users(ctx, ids); err != nil {
				e.logger.Warn("member name lookup failed", "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()

	for _, ent := range foodEntities {
		foods[ent.Key()] = ent.Attributes.Title
	}
	for _, ent := range userEntities {
		m, err := domain.DecodeMember(ent)
		if err != nil {
			e.logger.Warn("skipping malformed member", "member_id", ent.Key(), "error", err)
			continue
		}
		members[m.ID] = m.Name()
	}
	return foods, members
}

// names resolves display names: the fetched listing title first, then the
// menu entry of the snapshot the id came from.
type names struct {
	foods   map[string]string
	members map[string]string
	old     domain.OrderDetail
	next    domain.OrderDetail
}

func (n names) food(id string, detail domain.OrderDetail, date string) string {
	if id == "" {
		return ""
	}
	if title := n.foods[id]; title != "" {
		return title
	}
	return detail[date].Restaurant.FoodList[id].FoodName
}

func (n names) apply(cs *ChangeSet) {
	for i := range cs.Dates {
		d := &cs.Dates[i]
		for j := range d.Members {
			m := &d.Members[j]
			m.MemberName = n.members[m.MemberID]
			m.OldFoodName = n.food(m.OldFoodID, n.old, d.Date)
			m.NewFoodName = n.food(m.NewFoodID, n.next, d.Date)
		}
		for j := range d.Items {
			it := &d.Items[j]
			if it.Name != "" {
				continue
			}
			if title := n.foods[it.ItemID]; title != "" {
				it.Name = title
				continue
			}
			it.Name = n.food(it.ItemID, n.next, d.Date)
			if it.Name == "" {
				it.Name = n.food(it.ItemID, n.old, d.Date)
			}
		}
	}
}
