package domain

import "github.com/shopspring/decimal"

// Food is a food listing.
type Food struct {
	ID                  string
	Title               string
	Price               decimal.Decimal
	RestaurantID        string
	FoodType            string
	AllergicIngredients []string
}

type foodPublicData struct {
	FoodType            string   `json:"foodType"`
	AllergicIngredients []string `json:"allergicIngredients"`
	RestaurantID        string   `json:"restaurantId"`
}

// DecodeFood converts a food listing into a Food.
func DecodeFood(e Entity) (Food, error) {
	var pub foodPublicData
	if err := unmarshalBag(e.Attributes.PublicData, "publicData", &pub); err != nil {
		return Food{}, withEntity(err, e.Key())
	}
	f := Food{
		ID:                  e.Key(),
		Title:               e.Attributes.Title,
		RestaurantID:        pub.RestaurantID,
		FoodType:            pub.FoodType,
		AllergicIngredients: pub.AllergicIngredients,
	}
	if e.Attributes.Price != nil {
		f.Price = e.Attributes.Price.Amount
	}
	return f, nil
}
