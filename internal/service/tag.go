package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/pkordes/recipe-api/internal/domain"
	"github.com/pkordes/recipe-api/internal/repo"
)

// maxNameLength bounds tag, ingredient and recipe title text.
const maxNameLength = 255

// TagService implements business logic for Tag operations.
// All operations act on the caller's own tags only.
type TagService struct {
	tags repo.TagRepo
}

// NewTagService constructs a TagService backed by the provided TagRepo.
func NewTagService(tags repo.TagRepo) *TagService {
	return &TagService{tags: tags}
}

// List returns the caller's tags ordered by name descending. With assignedOnly
// only tags used by at least one of the caller's recipes are returned.
func (s *TagService) List(ctx context.Context, user domain.User, assignedOnly bool) ([]domain.Tag, error) {
	tags, err := s.tags.List(ctx, user.ID, assignedOnly)
	if err != nil {
		return nil, fmt.Errorf("service.TagService.List: %w", err)
	}
	if tags == nil {
		return []domain.Tag{}, nil
	}
	return tags, nil
}

// Create adds a tag owned by the caller.
// Returns a *domain.ValidationError if name is blank or too long.
func (s *TagService) Create(ctx context.Context, user domain.User, name string) (domain.Tag, error) {
	name, err := validateName(name)
	if err != nil {
		return domain.Tag{}, err
	}
	tag, err := s.tags.Create(ctx, user.ID, name)
	if err != nil {
		return domain.Tag{}, fmt.Errorf("service.TagService.Create: %w", err)
	}
	return tag, nil
}

// Delete removes one of the caller's tags and detaches it from every recipe.
func (s *TagService) Delete(ctx context.Context, user domain.User, id uuid.UUID) error {
	if err := s.tags.Delete(ctx, user.ID, id); err != nil {
		return fmt.Errorf("service.TagService.Delete: %w", err)
	}
	return nil
}

// IngredientService implements business logic for Ingredient operations.
type IngredientService struct {
	ingredients repo.IngredientRepo
}

// NewIngredientService constructs an IngredientService backed by the provided repo.
func NewIngredientService(ingredients repo.IngredientRepo) *IngredientService {
	return &IngredientService{ingredients: ingredients}
}

// List returns the caller's ingredients ordered by name descending.
func (s *IngredientService) List(ctx context.Context, user domain.User, assignedOnly bool) ([]domain.Ingredient, error) {
	ingredients, err := s.ingredients.List(ctx, user.ID, assignedOnly)
	if err != nil {
		return nil, fmt.Errorf("service.IngredientService.List: %w", err)
	}
	if ingredients == nil {
		return []domain.Ingredient{}, nil
	}
	return ingredients, nil
}

// Create adds an ingredient owned by the caller.
func (s *IngredientService) Create(ctx context.Context, user domain.User, name string) (domain.Ingredient, error) {
	name, err := validateName(name)
	if err != nil {
		return domain.Ingredient{}, err
	}
	ing, err := s.ingredients.Create(ctx, user.ID, name)
	if err != nil {
		return domain.Ingredient{}, fmt.Errorf("service.IngredientService.Create: %w", err)
	}
	return ing, nil
}

// Delete removes one of the caller's ingredients.
func (s *IngredientService) Delete(ctx context.Context, user domain.User, id uuid.UUID) error {
	if err := s.ingredients.Delete(ctx, user.ID, id); err != nil {
		return fmt.Errorf("service.IngredientService.Delete: %w", err)
	}
	return nil
}

// validateName trims name and rejects blank or over-long values.
func validateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", domain.FieldError("name", "this field may not be blank")
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return "", domain.FieldError("name", fmt.Sprintf("ensure this field has no more than %d characters", maxNameLength))
	}
	return name, nil
}
