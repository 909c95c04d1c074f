// Package reconcile compares two order detail snapshots and reports what
// changed for each delivery date.
//
// Group orders are compared member by member, normal orders line item by line
// item. The result is a ChangeSet that can be projected into an email digest
// for the booker or a flat chat audit payload.
package reconcile

import (
	"cmp"
	"maps"
	"slices"

	"github.com/roach88/groupmeal/internal/domain"
)

// Kind classifies a change.
type Kind string

const (
	KindAdd    Kind = "add"
	KindRemove Kind = "remove"
	KindUpdate Kind = "update"
)

// MemberChange is a change to one member's order on one date.
type MemberChange struct {
	Kind        Kind   `json:"kind"`
	MemberID    string `json:"memberId"`
	MemberName  string `json:"memberName"`
	OldFoodID   string `json:"oldFoodId,omitempty"`
	OldFoodName string `json:"oldFoodName,omitempty"`
	NewFoodID   string `json:"newFoodId,omitempty"`
	NewFoodName string `json:"newFoodName,omitempty"`
}

// ItemChange is a change to one line item of a normal order. A quantity of
// zero stands for an absent item.
type ItemChange struct {
	Kind        Kind   `json:"kind"`
	ItemID      string `json:"itemId"`
	Name        string `json:"name"`
	OldQuantity int    `json:"oldQuantity"`
	NewQuantity int    `json:"newQuantity"`
}

// DateChanges holds the changes of one date.
type DateChanges struct {
	Date    string         `json:"date"`
	Members []MemberChange `json:"members,omitempty"`
	Items   []ItemChange   `json:"items,omitempty"`
}

func (d DateChanges) empty() bool {
	return len(d.Members) == 0 && len(d.Items) == 0
}

// ChangeSet is the full result of a comparison. Dates are in chronological
// order and only dates with at least one change are present.
type ChangeSet struct {
	OrderType domain.OrderType `json:"orderType"`
	Dates     []DateChanges    `json:"dates"`
}

// Empty reports whether nothing changed.
func (c ChangeSet) Empty() bool {
	return len(c.Dates) == 0
}

// Len returns the number of change records.
func (c ChangeSet) Len() int {
	n := 0
	for _, d := range c.Dates {
		n += len(d.Members) + len(d.Items)
	}
	return n
}

// MemberIDs returns the members touched by any change, sorted.
func (c ChangeSet) MemberIDs() []string {
	var ids []string
	for _, d := range c.Dates {
		for _, m := range d.Members {
			ids = append(ids, m.MemberID)
		}
	}
	slices.Sort(ids)
	return slices.Compact(ids)
}

// FoodIDs returns every food and line item id referenced by a change, sorted.
func (c ChangeSet) FoodIDs() []string {
	var ids []string
	for _, d := range c.Dates {
		for _, m := range d.Members {
			ids = append(ids, m.OldFoodID, m.NewFoodID)
		}
		for _, it := range d.Items {
			ids = append(ids, it.ItemID)
		}
	}
	ids = slices.DeleteFunc(ids, func(id string) bool { return id == "" })
	slices.Sort(ids)
	return slices.Compact(ids)
}

// ForMember keeps only the changes of one member. Line item changes are
// dropped.
func (c ChangeSet) ForMember(memberID string) ChangeSet {
	out := ChangeSet{OrderType: c.OrderType}
	for _, d := range c.Dates {
		var members []MemberChange
		for _, m := range d.Members {
			if m.MemberID == memberID {
				members = append(members, m)
			}
		}
		if len(members) > 0 {
			out.Dates = append(out.Dates, DateChanges{Date: d.Date, Members: members})
		}
	}
	return out
}

// Compare computes the changes from old to next without resolving any names.
// A nil old snapshot is treated as empty, so every chosen food is an add.
// Neither snapshot is modified.
func Compare(orderType domain.OrderType, old, next domain.OrderDetail) ChangeSet {
	cs := ChangeSet{OrderType: orderType}

	var dates []string
	if orderType == domain.OrderTypeNormal {
		dates = unionDates(old, next)
	} else {
		dates = next.Dates()
	}

	for _, date := range dates {
		dc := DateChanges{Date: date}
		if orderType == domain.OrderTypeNormal {
			dc.Items = compareItems(old[date].LineItems, next[date].LineItems)
		} else {
			dc.Members = compareMembers(old[date].MemberOrders, next[date].MemberOrders)
		}
		if !dc.empty() {
			cs.Dates = append(cs.Dates, dc)
		}
	}
	return cs
}

// compareMembers applies the group rules to one date. Members are visited in
// id order, new entries first, then entries that disappeared.
func compareMembers(old, next map[string]domain.MemberOrder) []MemberChange {
	var changes []MemberChange

	for _, id := range slices.Sorted(maps.Keys(next)) {
		n := next[id]
		o, existed := old[id]

		// Transitions with no food on either side are unresolved pairs.
		switch {
		case n.Status == domain.MemberStatusNotAllowed && existed && o.Status != domain.MemberStatusNotAllowed:
			if o.FoodID != "" {
				changes = append(changes, MemberChange{Kind: KindRemove, MemberID: id, OldFoodID: o.FoodID})
			}
		case n.Status == domain.MemberStatusNotAllowed:
			// still out of the day
		case existed && o.Status == domain.MemberStatusNotAllowed:
			if n.FoodID != "" {
				changes = append(changes, MemberChange{Kind: KindAdd, MemberID: id, NewFoodID: n.FoodID})
			}
		default:
			if c, ok := foodChange(id, o.FoodID, n.FoodID); ok {
				changes = append(changes, c)
			}
		}
	}

	for _, id := range slices.Sorted(maps.Keys(old)) {
		if _, ok := next[id]; ok {
			continue
		}
		o := old[id]
		if o.FoodID != "" && o.Status != domain.MemberStatusNotAllowed {
			changes = append(changes, MemberChange{Kind: KindRemove, MemberID: id, OldFoodID: o.FoodID})
		}
	}
	return changes
}

func foodChange(memberID, oldFood, newFood string) (MemberChange, bool) {
	c := MemberChange{MemberID: memberID, OldFoodID: oldFood, NewFoodID: newFood}
	switch {
	case oldFood == newFood:
		return MemberChange{}, false
	case oldFood == "":
		c.Kind = KindAdd
	case newFood == "":
		c.Kind = KindRemove
	default:
		c.Kind = KindUpdate
	}
	return c, true
}

// compareItems splits the line items into removed, added and updated sets,
// each ordered by item id.
func compareItems(old, next []domain.LineItem) []ItemChange {
	before := indexItems(old)
	after := indexItems(next)

	var removed, added, updated []ItemChange
	for _, id := range slices.Sorted(maps.Keys(before)) {
		o := before[id]
		n, ok := after[id]
		switch {
		case !ok:
			removed = append(removed, ItemChange{Kind: KindRemove, ItemID: id, Name: o.Name, OldQuantity: o.Quantity})
		case n.Quantity != o.Quantity:
			updated = append(updated, ItemChange{Kind: KindUpdate, ItemID: id, Name: cmp.Or(n.Name, o.Name), OldQuantity: o.Quantity, NewQuantity: n.Quantity})
		}
	}
	for _, id := range slices.Sorted(maps.Keys(after)) {
		if _, ok := before[id]; !ok {
			n := after[id]
			added = append(added, ItemChange{Kind: KindAdd, ItemID: id, Name: n.Name, NewQuantity: n.Quantity})
		}
	}
	return slices.Concat(removed, added, updated)
}

// indexItems keys line items by id. Repeated ids add up.
func indexItems(items []domain.LineItem) map[string]domain.LineItem {
	out := make(map[string]domain.LineItem, len(items))
	for _, it := range items {
		if prev, ok := out[it.ID]; ok {
			prev.Quantity += it.Quantity
			out[it.ID] = prev
			continue
		}
		out[it.ID] = it
	}
	return out
}

func unionDates(a, b domain.OrderDetail) []string {
	merged := make(domain.OrderDetail, len(a)+len(b))
	for k := range a {
		merged[k] = domain.SubOrder{}
	}
	for k := range b {
		merged[k] = domain.SubOrder{}
	}
	return merged.Dates()
}
