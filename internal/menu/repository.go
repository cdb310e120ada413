package menu

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/innkeep-pms/innkeep/internal/shared"
)

// Repository reads recipes from PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetRecipe returns a recipe with its ingredients joined to item details.
func (r *Repository) GetRecipe(ctx context.Context, id int64) (RecipeWithIngredients, error) {
	var recipe RecipeWithIngredients
	err := r.pool.QueryRow(ctx,
		`SELECT id, property_id, name, category, active, created_at, updated_at
		   FROM recipes WHERE id=$1`, id).
		Scan(&recipe.ID, &recipe.PropertyID, &recipe.Name, &recipe.Category,
			&recipe.Active, &recipe.CreatedAt, &recipe.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return RecipeWithIngredients{}, errNotFound("recipe %d", id)
		}
		return RecipeWithIngredients{}, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT ri.id, ri.recipe_id, ri.item_id, i.code, i.name, ri.per_serving, i.unit
		   FROM recipe_ingredients ri
		   JOIN stock_items i ON i.id = ri.item_id
		  WHERE ri.recipe_id=$1
		  ORDER BY ri.id`, id)
	if err != nil {
		return RecipeWithIngredients{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var ing RecipeIngredient
		if err := rows.Scan(&ing.ID, &ing.RecipeID, &ing.ItemID, &ing.ItemCode, &ing.ItemName, &ing.PerServing, &ing.Unit); err != nil {
			return RecipeWithIngredients{}, err
		}
		recipe.Ingredients = append(recipe.Ingredients, ing)
	}
	return recipe, rows.Err()
}

// ListRecipes lists recipes within the scope.
func (r *Repository) ListRecipes(ctx context.Context, scope shared.ScopeFilter, activeOnly bool) ([]Recipe, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, property_id, name, category, active, created_at, updated_at
		   FROM recipes
		  WHERE ($1::bigint IS NULL OR property_id = $1)
		    AND (NOT $2::bool OR active)
		  ORDER BY name`,
		scope.PropertyID, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var recipes []Recipe
	for rows.Next() {
		var rec Recipe
		if err := rows.Scan(&rec.ID, &rec.PropertyID, &rec.Name, &rec.Category, &rec.Active, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		recipes = append(recipes, rec)
	}
	return recipes, rows.Err()
}
