package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pkordes/recipe-api/internal/domain"
)

// RecipeRepo defines the persistence operations for Recipes.
// Every method is scoped to the owning user; a recipe owned by someone else is
// reported exactly like a missing one, as domain.ErrNotFound.
type RecipeRepo interface {
	// Create inserts the recipe row and its tag/ingredient links in one transaction.
	// recipe.TagIDs and recipe.IngredientIDs must already be validated as owned.
	Create(ctx context.Context, recipe domain.Recipe) (domain.Recipe, error)

	// GetByID returns the recipe with its link ids and nested tags/ingredients.
	GetByID(ctx context.Context, userID, id uuid.UUID) (domain.Recipe, error)

	// List returns the user's recipes newest first, narrowed by filter.
	// Only TagIDs/IngredientIDs are populated on the results.
	List(ctx context.Context, userID uuid.UUID, filter domain.RecipeFilter) ([]domain.Recipe, error)

	// Update overwrites the scalar fields of the recipe. A non-nil tagIDs or
	// ingredientIDs replaces that whole relation set; nil leaves it untouched.
	// The row and relation changes commit together.
	Update(ctx context.Context, recipe domain.Recipe, tagIDs, ingredientIDs *[]uuid.UUID) (domain.Recipe, error)

	// SetImage stores key as the recipe's image and returns the key it replaced.
	SetImage(ctx context.Context, userID, id uuid.UUID, key string) (previous string, err error)

	// Delete removes the recipe and returns its image key so the caller can
	// clean up the stored object.
	Delete(ctx context.Context, userID, id uuid.UUID) (image string, err error)
}

// pgRecipeRepo is the Postgres implementation of RecipeRepo.
type pgRecipeRepo struct {
	db db
}

// NewRecipeRepo constructs a RecipeRepo backed by the provided db connection.
func NewRecipeRepo(db db) RecipeRepo {
	return &pgRecipeRepo{db: db}
}

// recipeColumns selects a recipe row plus its link ids as uuid arrays.
// Price is read back as text so the NUMERIC scale ("5.00") survives intact.
const recipeColumns = `
	r.id, r.user_id, r.title, r.time_minutes, r.price::text, r.link, r.image,
	r.created_at, r.updated_at,
	COALESCE((SELECT array_agg(rt.tag_id ORDER BY rt.tag_id)
	          FROM recipe_tags rt WHERE rt.recipe_id = r.id), '{}'::uuid[]),
	COALESCE((SELECT array_agg(ri.ingredient_id ORDER BY ri.ingredient_id)
	          FROM recipe_ingredients ri WHERE ri.recipe_id = r.id), '{}'::uuid[])`

func (r *pgRecipeRepo) Create(ctx context.Context, recipe domain.Recipe) (domain.Recipe, error) {
	const q = `
		INSERT INTO recipes (user_id, title, time_minutes, price, link)
		VALUES (@user_id, @title, @time_minutes, @price::numeric, @link)
		RETURNING id`

	var id uuid.UUID
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		args := pgx.NamedArgs{
			"user_id":      recipe.UserID,
			"title":        recipe.Title,
			"time_minutes": recipe.TimeMinutes,
			"price":        recipe.Price,
			"link":         recipe.Link,
		}
		var pgID pgtype.UUID
		if err := tx.QueryRow(ctx, q, args).Scan(&pgID); err != nil {
			return err
		}
		id = uuid.UUID(pgID.Bytes)

		if err := tagTable.replaceLinks(ctx, tx, id, recipe.TagIDs); err != nil {
			return err
		}
		return ingredientTable.replaceLinks(ctx, tx, id, recipe.IngredientIDs)
	})
	if err != nil {
		return domain.Recipe{}, fmt.Errorf("repo.RecipeRepo.Create: %w", err)
	}

	return r.GetByID(ctx, recipe.UserID, id)
}

func (r *pgRecipeRepo) GetByID(ctx context.Context, userID, id uuid.UUID) (domain.Recipe, error) {
	const q = `SELECT ` + recipeColumns + `
		FROM recipes r
		WHERE r.id = @id AND r.user_id = @user_id`

	result, err := scanRecipe(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id, "user_id": userID}))
	if err != nil {
		return domain.Recipe{}, fmt.Errorf("repo.RecipeRepo.GetByID: %w", err)
	}

	tags, err := tagTable.listByRecipe(ctx, r.db, id)
	if err != nil {
		return domain.Recipe{}, fmt.Errorf("repo.RecipeRepo.GetByID: %w", err)
	}
	ingredients, err := ingredientTable.listByRecipe(ctx, r.db, id)
	if err != nil {
		return domain.Recipe{}, fmt.Errorf("repo.RecipeRepo.GetByID: %w", err)
	}
	result.Tags = toTags(tags)
	result.Ingredients = toIngredients(ingredients)
	return result, nil
}

// List filters with EXISTS rather than a join so a recipe matching several
// requested ids is still returned once.
func (r *pgRecipeRepo) List(ctx context.Context, userID uuid.UUID, filter domain.RecipeFilter) ([]domain.Recipe, error) {
	const q = `SELECT ` + recipeColumns + `
		FROM recipes r
		WHERE r.user_id = @user_id
		  AND (cardinality(@tag_ids::uuid[]) = 0 OR EXISTS (
		        SELECT 1 FROM recipe_tags ft
		        WHERE ft.recipe_id = r.id AND ft.tag_id = ANY(@tag_ids::uuid[])))
		  AND (cardinality(@ingredient_ids::uuid[]) = 0 OR EXISTS (
		        SELECT 1 FROM recipe_ingredients fi
		        WHERE fi.recipe_id = r.id AND fi.ingredient_id = ANY(@ingredient_ids::uuid[])))
		ORDER BY r.created_at DESC, r.id DESC`

	args := pgx.NamedArgs{
		"user_id":        userID,
		"tag_ids":        uuidArg(filter.TagIDs),
		"ingredient_ids": uuidArg(filter.IngredientIDs),
	}

	rows, err := r.db.Query(ctx, q, args)
	if err != nil {
		return nil, fmt.Errorf("repo.RecipeRepo.List: %w", err)
	}
	defer rows.Close()

	recipes := []domain.Recipe{}
	for rows.Next() {
		rec, err := scanRecipe(rows)
		if err != nil {
			return nil, fmt.Errorf("repo.RecipeRepo.List: scan: %w", err)
		}
		recipes = append(recipes, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.RecipeRepo.List: rows: %w", err)
	}
	return recipes, nil
}

func (r *pgRecipeRepo) Update(ctx context.Context, recipe domain.Recipe, tagIDs, ingredientIDs *[]uuid.UUID) (domain.Recipe, error) {
	const q = `
		UPDATE recipes
		SET title        = @title,
		    time_minutes = @time_minutes,
		    price        = @price::numeric,
		    link         = @link,
		    updated_at   = now()
		WHERE id = @id AND user_id = @user_id`

	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		args := pgx.NamedArgs{
			"id":           recipe.ID,
			"user_id":      recipe.UserID,
			"title":        recipe.Title,
			"time_minutes": recipe.TimeMinutes,
			"price":        recipe.Price,
			"link":         recipe.Link,
		}
		tag, err := tx.Exec(ctx, q, args)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrNotFound
		}

		if tagIDs != nil {
			if err := tagTable.replaceLinks(ctx, tx, recipe.ID, *tagIDs); err != nil {
				return err
			}
		}
		if ingredientIDs != nil {
			if err := ingredientTable.replaceLinks(ctx, tx, recipe.ID, *ingredientIDs); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return domain.Recipe{}, fmt.Errorf("repo.RecipeRepo.Update: %w", err)
	}

	return r.GetByID(ctx, recipe.UserID, recipe.ID)
}

// SetImage locks the row in a subselect so the returned previous key is the
// one actually overwritten, even with concurrent uploads.
func (r *pgRecipeRepo) SetImage(ctx context.Context, userID, id uuid.UUID, key string) (string, error) {
	const q = `
		UPDATE recipes r
		SET image = @image, updated_at = now()
		FROM (SELECT id, image FROM recipes
		      WHERE id = @id AND user_id = @user_id
		      FOR UPDATE) old
		WHERE r.id = old.id
		RETURNING old.image`

	var previous string
	err := r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id, "user_id": userID, "image": key}).Scan(&previous)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("repo.RecipeRepo.SetImage: %w", domain.ErrNotFound)
		}
		return "", fmt.Errorf("repo.RecipeRepo.SetImage: %w", err)
	}
	return previous, nil
}

func (r *pgRecipeRepo) Delete(ctx context.Context, userID, id uuid.UUID) (string, error) {
	const q = `DELETE FROM recipes WHERE id = @id AND user_id = @user_id RETURNING image`

	var image string
	err := r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id, "user_id": userID}).Scan(&image)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("repo.RecipeRepo.Delete: %w", domain.ErrNotFound)
		}
		return "", fmt.Errorf("repo.RecipeRepo.Delete: %w", err)
	}
	return image, nil
}

// scanRecipe maps a row selected with recipeColumns into a domain.Recipe.
func scanRecipe(s scanner) (domain.Recipe, error) {
	var (
		rec           domain.Recipe
		id, userID    pgtype.UUID
		tagIDs        []pgtype.UUID
		ingredientIDs []pgtype.UUID
	)
	err := s.Scan(&id, &userID, &rec.Title, &rec.TimeMinutes, &rec.Price, &rec.Link, &rec.Image,
		&rec.CreatedAt, &rec.UpdatedAt, &tagIDs, &ingredientIDs)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Recipe{}, domain.ErrNotFound
		}
		return domain.Recipe{}, err
	}
	rec.ID = uuid.UUID(id.Bytes)
	rec.UserID = uuid.UUID(userID.Bytes)
	rec.TagIDs = fromPgUUIDs(tagIDs)
	rec.IngredientIDs = fromPgUUIDs(ingredientIDs)
	return rec, nil
}
