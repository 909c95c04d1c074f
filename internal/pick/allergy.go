package pick

// allergyLabels maps allergy keys stored on a member profile to the labels
// restaurants use when listing allergic ingredients.
var allergyLabels = map[string]string{
	"egg":       "Trứng",
	"milk":      "Sữa",
	"peanut":    "Đậu phộng",
	"treeNut":   "Hạt cây",
	"soy":       "Đậu nành",
	"wheat":     "Lúa mì",
	"gluten":    "Gluten",
	"fish":      "Cá",
	"shrimp":    "Tôm",
	"crab":      "Cua",
	"shellfish": "Động vật có vỏ",
	"seafood":   "Hải sản",
	"sesame":    "Mè",
	"beef":      "Thịt bò",
	"pork":      "Thịt heo",
	"chicken":   "Thịt gà",
	"mushroom":  "Nấm",
	"msg":       "Bột ngọt",
}

// AllergyLabel returns the display label of an allergy key. Unknown keys are
// returned unchanged so they still take part in matching.
func AllergyLabel(key string) string {
	if label, ok := allergyLabels[key]; ok {
		return label
	}
	return key
}

// AllergyLabels resolves a list of allergy keys to labels.
func AllergyLabels(keys []string) []string {
	labels := make([]string, len(keys))
	for i, k := range keys {
		labels[i] = AllergyLabel(k)
	}
	return labels
}
