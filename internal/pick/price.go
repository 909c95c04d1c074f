package pick

import (
	"maps"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/roach88/groupmeal/internal/domain"
)

// IDSet is a set of food ids.
type IDSet map[string]struct{}

// Has reports whether id is in the set.
func (s IDSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Sorted returns the members of the set in ascending order.
func (s IDSet) Sorted() []string {
	ids := slices.Collect(maps.Keys(s))
	slices.Sort(ids)
	return ids
}

// EligibleFoodIDs returns the ids of the foods on the menu whose price is at
// most ceiling. Ties are eligible.
func EligibleFoodIDs(foodList map[string]domain.FoodListEntry, ceiling decimal.Decimal) IDSet {
	eligible := make(IDSet, len(foodList))
	for id, entry := range foodList {
		if entry.FoodPrice.LessThanOrEqual(ceiling) {
			eligible[id] = struct{}{}
		}
	}
	return eligible
}
