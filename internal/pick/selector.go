package pick

import (
	"math/rand/v2"
	"slices"
	"strings"

	"github.com/roach88/groupmeal/internal/domain"
)

// Source supplies random indexes. *rand.Rand from math/rand/v2 satisfies it.
type Source interface {
	IntN(n int) int
}

// globalSource draws from the process-wide generator, which is safe for
// concurrent use.
type globalSource struct{}

func (globalSource) IntN(n int) int { return rand.IntN(n) }

// DefaultSource returns the unseeded production source.
func DefaultSource() Source {
	return globalSource{}
}

// Selector picks allergy-safe food for a member.
type Selector struct {
	rnd Source
}

// NewSelector creates a Selector drawing from rnd. A nil rnd uses DefaultSource.
func NewSelector(rnd Source) *Selector {
	if rnd == nil {
		rnd = DefaultSource()
	}
	return &Selector{rnd: rnd}
}

// SafeFoods returns the foods of pool that are eligible, not vegetarian and
// free of the member's allergens, sorted by id.
func (s *Selector) SafeFoods(pool []domain.Food, eligible IDSet, allergyKeys []string) []domain.Food {
	allergies := foldSet(AllergyLabels(allergyKeys))

	var safe []domain.Food
	for _, f := range pool {
		if !eligible.Has(f.ID) {
			continue
		}
		// Vegetarian dishes are never auto-picked. This mirrors the current
		// product behavior and is pending product clarification.
		if IsVegetarian(f) {
			continue
		}
		if overlaps(foldSet(f.AllergicIngredients), allergies) {
			continue
		}
		safe = append(safe, f)
	}
	slices.SortFunc(safe, func(a, b domain.Food) int { return strings.Compare(a.ID, b.ID) })
	return slices.CompactFunc(safe, func(a, b domain.Food) bool { return a.ID == b.ID })
}

// Pick draws one food uniformly from the safe set. ok is false when no food
// is safe for the member.
func (s *Selector) Pick(pool []domain.Food, eligible IDSet, allergyKeys []string) (food domain.Food, ok bool) {
	safe := s.SafeFoods(pool, eligible, allergyKeys)
	if len(safe) == 0 {
		return domain.Food{}, false
	}
	return safe[s.rnd.IntN(len(safe))], true
}

// IsVegetarian reports whether the food type mentions "vegetarian" in any case.
func IsVegetarian(f domain.Food) bool {
	return strings.Contains(Fold(f.FoodType), "vegetarian")
}

func overlaps(a, b map[string]struct{}) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	for k := range a {
		if _, ok := b[k]; ok {
			return true
		}
	}
	return false
}
