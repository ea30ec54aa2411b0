package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pkordes/recipe-api/internal/domain"
)

// taxonomyTable holds the SQL shared by tags and ingredients. The two resources
// differ only in table names, which are compile-time constants, never user input.
type taxonomyTable struct {
	table      string // e.g. "tags"
	joinTable  string // e.g. "recipe_tags"
	joinColumn string // e.g. "tag_id"
	op         string // error prefix, e.g. "repo.TagRepo"
}

// taxon is the row shape common to both tables.
type taxon struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Name      string
	CreatedAt time.Time
}

func (t taxonomyTable) create(ctx context.Context, d db, userID uuid.UUID, name string) (taxon, error) {
	q := fmt.Sprintf(`
		INSERT INTO %s (user_id, name)
		VALUES (@user_id, @name)
		RETURNING id, user_id, name, created_at`, t.table)

	row := d.QueryRow(ctx, q, pgx.NamedArgs{"user_id": userID, "name": name})
	result, err := scanTaxon(row)
	if err != nil {
		return taxon{}, fmt.Errorf("%s.Create: %w", t.op, err)
	}
	return result, nil
}

// list returns the user's rows ordered by name descending. With assignedOnly
// the rows must be referenced by at least one recipe owned by the same user;
// EXISTS keeps each row once no matter how many recipes reference it.
func (t taxonomyTable) list(ctx context.Context, d db, userID uuid.UUID, assignedOnly bool) ([]taxon, error) {
	q := fmt.Sprintf(`
		SELECT x.id, x.user_id, x.name, x.created_at
		FROM %[1]s x
		WHERE x.user_id = @user_id
		  AND (NOT @assigned_only::boolean OR EXISTS (
		        SELECT 1
		        FROM %[2]s j
		        JOIN recipes r ON r.id = j.recipe_id
		        WHERE j.%[3]s = x.id
		          AND r.user_id = @user_id))
		ORDER BY x.name DESC, x.created_at DESC`, t.table, t.joinTable, t.joinColumn)

	rows, err := d.Query(ctx, q, pgx.NamedArgs{"user_id": userID, "assigned_only": assignedOnly})
	if err != nil {
		return nil, fmt.Errorf("%s.List: %w", t.op, err)
	}
	defer rows.Close()

	out := []taxon{}
	for rows.Next() {
		x, err := scanTaxon(rows)
		if err != nil {
			return nil, fmt.Errorf("%s.List: scan: %w", t.op, err)
		}
		out = append(out, x)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s.List: rows: %w", t.op, err)
	}
	return out, nil
}

// listByRecipe returns the rows attached to one recipe, ordered by name descending.
func (t taxonomyTable) listByRecipe(ctx context.Context, d db, recipeID uuid.UUID) ([]taxon, error) {
	q := fmt.Sprintf(`
		SELECT x.id, x.user_id, x.name, x.created_at
		FROM %[1]s x
		JOIN %[2]s j ON j.%[3]s = x.id
		WHERE j.recipe_id = @recipe_id
		ORDER BY x.name DESC, x.id`, t.table, t.joinTable, t.joinColumn)

	rows, err := d.Query(ctx, q, pgx.NamedArgs{"recipe_id": recipeID})
	if err != nil {
		return nil, fmt.Errorf("%s.ListByRecipe: %w", t.op, err)
	}
	defer rows.Close()

	out := []taxon{}
	for rows.Next() {
		x, err := scanTaxon(rows)
		if err != nil {
			return nil, fmt.Errorf("%s.ListByRecipe: scan: %w", t.op, err)
		}
		out = append(out, x)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s.ListByRecipe: rows: %w", t.op, err)
	}
	return out, nil
}

// countOwned returns how many of ids exist and belong to userID.
// Callers pass de-duplicated ids and compare the result with len(ids).
func (t taxonomyTable) countOwned(ctx context.Context, d db, userID uuid.UUID, ids []uuid.UUID) (int, error) {
	q := fmt.Sprintf(`
		SELECT count(*)
		FROM %s
		WHERE user_id = @user_id
		  AND id = ANY(@ids::uuid[])`, t.table)

	var n int
	err := d.QueryRow(ctx, q, pgx.NamedArgs{"user_id": userID, "ids": uuidArg(ids)}).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("%s.CountOwned: %w", t.op, err)
	}
	return n, nil
}

func (t taxonomyTable) delete(ctx context.Context, d db, userID, id uuid.UUID) error {
	q := fmt.Sprintf(`DELETE FROM %s WHERE id = @id AND user_id = @user_id`, t.table)

	tag, err := d.Exec(ctx, q, pgx.NamedArgs{"id": id, "user_id": userID})
	if err != nil {
		return fmt.Errorf("%s.Delete: %w", t.op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s.Delete: %w", t.op, domain.ErrNotFound)
	}
	return nil
}

// replaceLinks swaps the full relation set of a recipe for ids.
// It must run inside the caller's transaction to stay atomic for readers.
func (t taxonomyTable) replaceLinks(ctx context.Context, tx pgx.Tx, recipeID uuid.UUID, ids []uuid.UUID) error {
	del := fmt.Sprintf(`DELETE FROM %s WHERE recipe_id = @recipe_id`, t.joinTable)
	if _, err := tx.Exec(ctx, del, pgx.NamedArgs{"recipe_id": recipeID}); err != nil {
		return fmt.Errorf("%s.ReplaceLinks: delete: %w", t.op, err)
	}
	if len(ids) == 0 {
		return nil
	}

	ins := fmt.Sprintf(`
		INSERT INTO %s (recipe_id, %s)
		SELECT @recipe_id, unnest(@ids::uuid[])
		ON CONFLICT DO NOTHING`, t.joinTable, t.joinColumn)
	if _, err := tx.Exec(ctx, ins, pgx.NamedArgs{"recipe_id": recipeID, "ids": ids}); err != nil {
		return fmt.Errorf("%s.ReplaceLinks: insert: %w", t.op, err)
	}
	return nil
}

func scanTaxon(s scanner) (taxon, error) {
	var (
		x      taxon
		id     pgtype.UUID
		userID pgtype.UUID
	)
	err := s.Scan(&id, &userID, &x.Name, &x.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return taxon{}, domain.ErrNotFound
		}
		return taxon{}, err
	}
	x.ID = uuid.UUID(id.Bytes)
	x.UserID = uuid.UUID(userID.Bytes)
	return x, nil
}

var (
	tagTable = taxonomyTable{
		table: "tags", joinTable: "recipe_tags", joinColumn: "tag_id", op: "repo.TagRepo",
	}
	ingredientTable = taxonomyTable{
		table: "ingredients", joinTable: "recipe_ingredients", joinColumn: "ingredient_id", op: "repo.IngredientRepo",
	}
)
