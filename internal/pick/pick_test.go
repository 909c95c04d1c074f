package pick

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/groupmeal/internal/domain"
	"github.com/roach88/groupmeal/internal/testutil"
)

func vnd(n int64) decimal.Decimal { return decimal.NewFromInt(n) }

func TestEligibleFoodIDs(t *testing.T) {
	menu := map[string]domain.FoodListEntry{
		"cheap":    {FoodPrice: vnd(40000)},
		"exact":    {FoodPrice: vnd(50000)},
		"pricey":   {FoodPrice: vnd(50001)},
		"unpriced": {},
	}

	got := EligibleFoodIDs(menu, vnd(50000))
	assert.Equal(t, []string{"cheap", "exact", "unpriced"}, got.Sorted())
	assert.False(t, got.Has("pricey"))
}

func TestEligibleFoodIDs_PriceProperty(t *testing.T) {
	ceiling := vnd(45000)
	menu := map[string]domain.FoodListEntry{}
	for i, p := range []int64{0, 1, 44999, 45000, 45001, 90000} {
		menu[string(rune('a'+i))] = domain.FoodListEntry{FoodPrice: vnd(p)}
	}
	got := EligibleFoodIDs(menu, ceiling)
	for id, entry := range menu {
		assert.Equal(t, entry.FoodPrice.LessThanOrEqual(ceiling), got.Has(id), id)
	}
}

func TestFold(t *testing.T) {
	tests := map[string]string{
		"Trứng":        "trung",
		"trứng":        "trung",
		"Đậu phộng":    "dau phong",
		"  HẢI   sản ": "hai san",
		"Sữa":          "sua",
		"plain":        "plain",
		"":             "",
	}
	for in, want := range tests {
		assert.Equal(t, want, Fold(in), in)
	}
}

func TestAllergyLabel(t *testing.T) {
	assert.Equal(t, "Trứng", AllergyLabel("egg"))
	assert.Equal(t, "kiwi", AllergyLabel("kiwi"), "unknown keys fall back to the key")
	assert.Equal(t, []string{"Sữa", "Tôm"}, AllergyLabels([]string{"milk", "shrimp"}))
}

// exampleMenu is the worked example: F2 is over budget, F3 contains egg.
func exampleMenu() (map[string]domain.FoodListEntry, []domain.Food) {
	menu := map[string]domain.FoodListEntry{
		"F1": {FoodPrice: vnd(40000), FoodName: "Cơm gà"},
		"F2": {FoodPrice: vnd(60000), FoodName: "Bò bít tết"},
		"F3": {FoodPrice: vnd(45000), FoodName: "Bánh mì ốp la"},
	}
	pool := []domain.Food{
		{ID: "F1", Title: "Cơm gà", FoodType: "savory"},
		{ID: "F2", Title: "Bò bít tết", FoodType: "savory"},
		{ID: "F3", Title: "Bánh mì ốp la", FoodType: "savory", AllergicIngredients: []string{"trứng"}},
	}
	return menu, pool
}

func TestSelector_WorkedExample(t *testing.T) {
	menu, pool := exampleMenu()
	eligible := EligibleFoodIDs(menu, vnd(50000))
	assert.Equal(t, []string{"F1", "F3"}, eligible.Sorted())

	// Whatever the random source returns, only F1 is safe.
	for _, idx := range []int{0, 1, 5} {
		s := NewSelector(testutil.IndexSource(idx))
		food, ok := s.Pick(pool, eligible, []string{"egg"})
		require.True(t, ok)
		assert.Equal(t, "F1", food.ID)
	}
}

func TestSelector_SafeFoodsAreDisjointFromAllergies(t *testing.T) {
	pool := []domain.Food{
		{ID: "a", AllergicIngredients: []string{"Sữa", "đậu phộng"}},
		{ID: "b", AllergicIngredients: []string{"TÔM"}},
		{ID: "c", AllergicIngredients: nil},
		{ID: "d", AllergicIngredients: []string{"hải sản"}},
	}
	eligible := IDSet{"a": {}, "b": {}, "c": {}, "d": {}}
	allergyKeys := []string{"peanut", "shrimp"}

	safe := NewSelector(nil).SafeFoods(pool, eligible, allergyKeys)

	member := foldSet(AllergyLabels(allergyKeys))
	var ids []string
	for _, f := range safe {
		ids = append(ids, f.ID)
		assert.False(t, overlaps(foldSet(f.AllergicIngredients), member), f.ID)
	}
	assert.Equal(t, []string{"c", "d"}, ids)
}

func TestSelector_NeverPicksVegetarian(t *testing.T) {
	pool := []domain.Food{
		{ID: "veg", FoodType: "Vegetarian-Dish"},
		{ID: "veg2", FoodType: "lacto VEGETARIAN"},
		{ID: "meat", FoodType: "savory"},
	}
	eligible := IDSet{"veg": {}, "veg2": {}, "meat": {}}

	safe := NewSelector(nil).SafeFoods(pool, eligible, nil)
	require.Len(t, safe, 1)
	assert.Equal(t, "meat", safe[0].ID)

	only := NewSelector(nil).SafeFoods(pool[:2], eligible, nil)
	assert.Empty(t, only)
}

func TestSelector_IneligibleIgnored(t *testing.T) {
	pool := []domain.Food{{ID: "a"}, {ID: "b"}}

	safe := NewSelector(nil).SafeFoods(pool, IDSet{"b": {}}, nil)
	require.Len(t, safe, 1)
	assert.Equal(t, "b", safe[0].ID)
}

func TestSelector_EmptySafeSet(t *testing.T) {
	pool := []domain.Food{{ID: "a", AllergicIngredients: []string{"trứng"}}}

	_, ok := NewSelector(nil).Pick(pool, IDSet{"a": {}}, []string{"egg"})
	assert.False(t, ok)
}

func TestSelector_DeterministicWithSeed(t *testing.T) {
	pool := []domain.Food{{ID: "e"}, {ID: "b"}, {ID: "d"}, {ID: "a"}, {ID: "c"}}
	eligible := IDSet{"a": {}, "b": {}, "c": {}, "d": {}, "e": {}}
	reversed := []domain.Food{pool[4], pool[3], pool[2], pool[1], pool[0]}

	first := NewSelector(testutil.NewSeededRand(7))
	second := NewSelector(testutil.NewSeededRand(7))
	for i := 0; i < 20; i++ {
		a, ok := first.Pick(pool, eligible, nil)
		require.True(t, ok)
		b, ok := second.Pick(reversed, eligible, nil)
		require.True(t, ok)
		assert.Equal(t, a.ID, b.ID, "pool order must not change the pick")
	}
}

func TestSelector_Uniformish(t *testing.T) {
	pool := []domain.Food{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	eligible := IDSet{"a": {}, "b": {}, "c": {}}
	s := NewSelector(testutil.NewSeededRand(1))

	counts := map[string]int{}
	for i := 0; i < 3000; i++ {
		f, _ := s.Pick(pool, eligible, nil)
		counts[f.ID]++
	}
	for id, n := range counts {
		assert.InDelta(t, 1000, n, 150, id)
	}
	assert.Len(t, counts, 3)
}
