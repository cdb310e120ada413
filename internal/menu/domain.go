// Package menu exposes recipe availability: how many servings the current
// stock supports. It reads ledger quantities and never mutates stock.
package menu

import (
	"time"

	"github.com/shopspring/decimal"
)

// Recipe maps a menu item to the stock ingredients one serving consumes.
type Recipe struct {
	ID         int64
	PropertyID int64
	Name       string
	Category   string
	Active     bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// RecipeIngredient is one stock item requirement per serving.
type RecipeIngredient struct {
	ID         int64
	RecipeID   int64
	ItemID     int64
	ItemCode   string
	ItemName   string
	PerServing decimal.Decimal
	Unit       string
}

// RecipeWithIngredients bundles a recipe with its requirements.
type RecipeWithIngredients struct {
	Recipe
	Ingredients []RecipeIngredient
}

// IngredientAvailability reports one ingredient's contribution to the
// serving limit.
type IngredientAvailability struct {
	ItemID       int64
	ItemCode     string
	ItemName     string
	PerServing   decimal.Decimal
	Available    decimal.Decimal
	ServingLimit int64
}

// Availability is the serving capacity of a recipe at one warehouse.
type Availability struct {
	RecipeID         int64
	WarehouseID      int64
	PossibleServings int64
	Limiting         []IngredientAvailability
}
