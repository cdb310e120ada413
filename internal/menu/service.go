package menu

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/innkeep-pms/innkeep/internal/inventory"
	"github.com/innkeep-pms/innkeep/internal/shared"
)

// RepositoryPort abstracts recipe storage.
type RepositoryPort interface {
	GetRecipe(ctx context.Context, id int64) (RecipeWithIngredients, error)
	ListRecipes(ctx context.Context, scope shared.ScopeFilter, activeOnly bool) ([]Recipe, error)
}

// LevelReader reads ledger quantities from the stock module.
type LevelReader interface {
	Level(ctx context.Context, itemID, warehouseID int64) (inventory.StockLevel, error)
}

// Service computes recipe availability.
type Service struct {
	repo   RepositoryPort
	levels LevelReader
}

// NewService builds Service.
func NewService(repo RepositoryPort, levels LevelReader) *Service {
	return &Service{repo: repo, levels: levels}
}

// Availability returns how many servings the warehouse stock supports: the
// minimum over ingredients of floor(available / perServing). A missing ledger
// row counts as zero stock, not an error.
func (s *Service) Availability(ctx context.Context, recipeID, warehouseID int64) (Availability, error) {
	if warehouseID == 0 {
		return Availability{}, errValidation("warehouse required")
	}
	recipe, err := s.repo.GetRecipe(ctx, recipeID)
	if err != nil {
		return Availability{}, err
	}
	if len(recipe.Ingredients) == 0 {
		return Availability{}, errValidation("recipe %s has no ingredients", recipe.Name)
	}

	result := Availability{RecipeID: recipeID, WarehouseID: warehouseID}
	for i, ing := range recipe.Ingredients {
		if !ing.PerServing.IsPositive() {
			return Availability{}, errValidation("ingredient %s requires a positive per-serving quantity", ing.ItemCode)
		}
		available := decimal.Zero
		level, err := s.levels.Level(ctx, ing.ItemID, warehouseID)
		switch {
		case err == nil:
			available = level.Quantity
		case errors.Is(err, shared.ErrNotFound):
			// no ledger row yet: zero on hand
		default:
			return Availability{}, err
		}

		limit := available.Div(ing.PerServing).Floor().IntPart()
		if available.IsNegative() {
			limit = 0
		}
		result.Limiting = append(result.Limiting, IngredientAvailability{
			ItemID:       ing.ItemID,
			ItemCode:     ing.ItemCode,
			ItemName:     ing.ItemName,
			PerServing:   ing.PerServing,
			Available:    available,
			ServingLimit: limit,
		})
		if i == 0 || limit < result.PossibleServings {
			result.PossibleServings = limit
		}
	}
	return result, nil
}

// GetRecipe returns a recipe with its ingredients.
func (s *Service) GetRecipe(ctx context.Context, id int64) (RecipeWithIngredients, error) {
	return s.repo.GetRecipe(ctx, id)
}

// ListRecipes lists recipes within the scope.
func (s *Service) ListRecipes(ctx context.Context, scope shared.ScopeFilter, activeOnly bool) ([]Recipe, error) {
	return s.repo.ListRecipes(ctx, scope, activeOnly)
}

func errValidation(format string, args ...any) error {
	return fmt.Errorf("menu: "+format+": %w", append(args, shared.ErrValidation)...)
}

func errNotFound(format string, args ...any) error {
	return fmt.Errorf("menu: "+format+": %w", append(args, shared.ErrNotFound)...)
}
