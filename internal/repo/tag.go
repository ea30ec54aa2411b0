package repo

import (
	"context"

	"github.com/google/uuid"

	"github.com/pkordes/recipe-api/internal/domain"
)

// TagRepo defines the persistence operations for Tags.
// Every method is scoped to the owning user.
type TagRepo interface {
	// Create inserts a tag owned by userID.
	Create(ctx context.Context, userID uuid.UUID, name string) (domain.Tag, error)

	// List returns the user's tags ordered by name descending. With assignedOnly,
	// only tags attached to at least one of the user's recipes are returned, once each.
	List(ctx context.Context, userID uuid.UUID, assignedOnly bool) ([]domain.Tag, error)

	// ListByRecipe returns the tags attached to a recipe.
	ListByRecipe(ctx context.Context, recipeID uuid.UUID) ([]domain.Tag, error)

	// CountOwned returns how many of the given (distinct) ids belong to userID.
	CountOwned(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (int, error)

	// Delete removes a tag. Returns domain.ErrNotFound if the user owns no such tag.
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

// pgTagRepo is the Postgres implementation of TagRepo.
type pgTagRepo struct {
	db db
}

// NewTagRepo constructs a TagRepo backed by the provided db connection.
func NewTagRepo(db db) TagRepo {
	return &pgTagRepo{db: db}
}

func (r *pgTagRepo) Create(ctx context.Context, userID uuid.UUID, name string) (domain.Tag, error) {
	x, err := tagTable.create(ctx, r.db, userID, name)
	if err != nil {
		return domain.Tag{}, err
	}
	return domain.Tag(x), nil
}

func (r *pgTagRepo) List(ctx context.Context, userID uuid.UUID, assignedOnly bool) ([]domain.Tag, error) {
	xs, err := tagTable.list(ctx, r.db, userID, assignedOnly)
	if err != nil {
		return nil, err
	}
	return toTags(xs), nil
}

func (r *pgTagRepo) ListByRecipe(ctx context.Context, recipeID uuid.UUID) ([]domain.Tag, error) {
	xs, err := tagTable.listByRecipe(ctx, r.db, recipeID)
	if err != nil {
		return nil, err
	}
	return toTags(xs), nil
}

func (r *pgTagRepo) CountOwned(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (int, error) {
	return tagTable.countOwned(ctx, r.db, userID, ids)
}

func (r *pgTagRepo) Delete(ctx context.Context, userID, id uuid.UUID) error {
	return tagTable.delete(ctx, r.db, userID, id)
}

func toTags(xs []taxon) []domain.Tag {
	out := make([]domain.Tag, len(xs))
	for i, x := range xs {
		out[i] = domain.Tag(x)
	}
	return out
}
