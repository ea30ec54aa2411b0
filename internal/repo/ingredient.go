package repo

import (
	"context"

	"github.com/google/uuid"

	"github.com/pkordes/recipe-api/internal/domain"
)

// IngredientRepo defines the persistence operations for Ingredients.
// It mirrors TagRepo against the ingredients tables.
type IngredientRepo interface {
	Create(ctx context.Context, userID uuid.UUID, name string) (domain.Ingredient, error)
	List(ctx context.Context, userID uuid.UUID, assignedOnly bool) ([]domain.Ingredient, error)
	ListByRecipe(ctx context.Context, recipeID uuid.UUID) ([]domain.Ingredient, error)
	CountOwned(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (int, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

// pgIngredientRepo is the Postgres implementation of IngredientRepo.
type pgIngredientRepo struct {
	db db
}

// NewIngredientRepo constructs an IngredientRepo backed by the provided db connection.
func NewIngredientRepo(db db) IngredientRepo {
	return &pgIngredientRepo{db: db}
}

func (r *pgIngredientRepo) Create(ctx context.Context, userID uuid.UUID, name string) (domain.Ingredient, error) {
	x, err := ingredientTable.create(ctx, r.db, userID, name)
	if err != nil {
		return domain.Ingredient{}, err
	}
	return domain.Ingredient(x), nil
}

func (r *pgIngredientRepo) List(ctx context.Context, userID uuid.UUID, assignedOnly bool) ([]domain.Ingredient, error) {
	xs, err := ingredientTable.list(ctx, r.db, userID, assignedOnly)
	if err != nil {
		return nil, err
	}
	return toIngredients(xs), nil
}

func (r *pgIngredientRepo) ListByRecipe(ctx context.Context, recipeID uuid.UUID) ([]domain.Ingredient, error) {
	xs, err := ingredientTable.listByRecipe(ctx, r.db, recipeID)
	if err != nil {
		return nil, err
	}
	return toIngredients(xs), nil
}

func (r *pgIngredientRepo) CountOwned(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (int, error) {
	return ingredientTable.countOwned(ctx, r.db, userID, ids)
}

func (r *pgIngredientRepo) Delete(ctx context.Context, userID, id uuid.UUID) error {
	return ingredientTable.delete(ctx, r.db, userID, id)
}

func toIngredients(xs []taxon) []domain.Ingredient {
	out := make([]domain.Ingredient, len(xs))
	for i, x := range xs {
		out[i] = domain.Ingredient(x)
	}
	return out
}
