package domain

import (
	"maps"
	"slices"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// MemberStatus is the state of one member's order for one day.
type MemberStatus string

const (
	// MemberStatusEmpty means the member has not chosen yet and is waiting
	// for resolution.
	MemberStatusEmpty      MemberStatus = "empty"
	MemberStatusJoined     MemberStatus = "joined"
	MemberStatusNotJoined  MemberStatus = "notJoined"
	MemberStatusNotAllowed MemberStatus = "notAllowed"
	MemberStatusExpired    MemberStatus = "expired"
)

// OrderDetail maps a date key (epoch milliseconds as a decimal string) to the
// sub-order for that day.
type OrderDetail map[string]SubOrder

// SubOrder is the slice of an order for one delivery date.
type SubOrder struct {
	Restaurant    Restaurant             `json:"restaurant"`
	MemberOrders  map[string]MemberOrder `json:"memberOrders,omitempty"`
	LineItems     []LineItem             `json:"lineItems,omitempty"`
	TransactionID string                 `json:"transactionId,omitempty"`
}

// Restaurant is the restaurant serving a sub-order and its menu for the day.
type Restaurant struct {
	ID             string                   `json:"id"`
	RestaurantName string                   `json:"restaurantName,omitempty"`
	FoodList       map[string]FoodListEntry `json:"foodList,omitempty"`
}

// FoodListEntry is one menu entry. An unset price decodes as zero.
type FoodListEntry struct {
	FoodPrice decimal.Decimal `json:"foodPrice"`
	FoodName  string          `json:"foodName,omitempty"`
}

// MemberOrder is one member's choice for one day. FoodID is only meaningful
// when Status is joined.
type MemberOrder struct {
	Status          MemberStatus `json:"status"`
	FoodID          string       `json:"foodId,omitempty"`
	SecondaryFoodID string       `json:"secondaryFoodId,omitempty"`
	Requirement     string       `json:"requirement,omitempty"`
}

// LineItem is a quantity of one food in a normal order.
type LineItem struct {
	ID       string          `json:"id"`
	Name     string          `json:"name,omitempty"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price,omitzero"`
}

// Clone returns a deep copy so a snapshot can be kept while the original is
// mutated.
func (d OrderDetail) Clone() OrderDetail {
	if d == nil {
		return nil
	}
	out := make(OrderDetail, len(d))
	for date, sub := range d {
		out[date] = sub.Clone()
	}
	return out
}

// Clone returns a deep copy of the sub-order.
func (s SubOrder) Clone() SubOrder {
	c := s
	c.Restaurant.FoodList = maps.Clone(s.Restaurant.FoodList)
	c.MemberOrders = maps.Clone(s.MemberOrders)
	c.LineItems = slices.Clone(s.LineItems)
	return c
}

// Dates returns the date keys in chronological order. Keys are compared as
// numbers; keys that do not parse sort last in lexical order.
func (d OrderDetail) Dates() []string {
	dates := slices.Collect(maps.Keys(d))
	slices.SortFunc(dates, CompareDateKeys)
	return dates
}

// Validate checks that every key is a date key.
func (d OrderDetail) Validate() error {
	for date := range d {
		if _, err := ParseDateKey(date); err != nil {
			return err
		}
	}
	return nil
}

// FoodIDs returns the distinct food ids on the menu of every date, sorted.
func (d OrderDetail) FoodIDs() []string {
	seen := map[string]struct{}{}
	for _, sub := range d {
		for id := range sub.Restaurant.FoodList {
			seen[id] = struct{}{}
		}
	}
	return sortedKeys(seen)
}

// MemberIDs returns the distinct member ids across all dates, sorted.
func (d OrderDetail) MemberIDs() []string {
	seen := map[string]struct{}{}
	for _, sub := range d {
		for id := range sub.MemberOrders {
			seen[id] = struct{}{}
		}
	}
	return sortedKeys(seen)
}

// RestaurantIDs returns the distinct restaurant ids across all dates, sorted.
func (d OrderDetail) RestaurantIDs() []string {
	seen := map[string]struct{}{}
	for _, sub := range d {
		if sub.Restaurant.ID != "" {
			seen[sub.Restaurant.ID] = struct{}{}
		}
	}
	return sortedKeys(seen)
}

// ParseDateKey parses an epoch-millisecond date key.
func ParseDateKey(key string) (time.Time, error) {
	ms, err := strconv.ParseInt(key, 10, 64)
	if err != nil {
		return time.Time{}, &ValidationError{Field: "orderDetail", Message: "bad date key " + strconv.Quote(key)}
	}
	return time.UnixMilli(ms), nil
}

// DateKey formats t as a date key.
func DateKey(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}

// CompareDateKeys orders date keys numerically.
func CompareDateKeys(a, b string) int {
	ai, aerr := strconv.ParseInt(a, 10, 64)
	bi, berr := strconv.ParseInt(b, 10, 64)
	switch {
	case aerr == nil && berr == nil:
		if ai < bi {
			return -1
		}
		if ai > bi {
			return 1
		}
		return 0
	case aerr == nil:
		return -1
	case berr == nil:
		return 1
	}
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}

func sortedKeys(set map[string]struct{}) []string {
	out := slices.Collect(maps.Keys(set))
	slices.Sort(out)
	return out
}
