package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/pkordes/recipe-api/internal/domain"
	"github.com/pkordes/recipe-api/internal/repo"
)

// ImageStore persists uploaded image bytes under a key.
// internal/storage provides local-disk and S3 implementations.
type ImageStore interface {
	Save(ctx context.Context, key string, r io.Reader, contentType string) error
	Delete(ctx context.Context, key string) error
}

// RecipeService implements business logic for Recipe operations.
// It holds the tag and ingredient repos to check that linked ids belong to the
// caller, and an ImageStore for uploads.
type RecipeService struct {
	recipes     repo.RecipeRepo
	tags        repo.TagRepo
	ingredients repo.IngredientRepo
	images      ImageStore
	logger      *slog.Logger
}

// NewRecipeService constructs a RecipeService. A nil logger discards output.
func NewRecipeService(
	recipes repo.RecipeRepo,
	tags repo.TagRepo,
	ingredients repo.IngredientRepo,
	images ImageStore,
	logger *slog.Logger,
) *RecipeService {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &RecipeService{
		recipes:     recipes,
		tags:        tags,
		ingredients: ingredients,
		images:      images,
		logger:      logger,
	}
}

// List returns the caller's recipes newest first. Non-empty filter slices keep
// recipes linked to any of the given ids; tag and ingredient filters intersect.
func (s *RecipeService) List(ctx context.Context, user domain.User, filter domain.RecipeFilter) ([]domain.Recipe, error) {
	recipes, err := s.recipes.List(ctx, user.ID, filter)
	if err != nil {
		return nil, fmt.Errorf("service.RecipeService.List: %w", err)
	}
	if recipes == nil {
		return []domain.Recipe{}, nil
	}
	return recipes, nil
}

// Get returns one of the caller's recipes with nested tags and ingredients.
// Returns domain.ErrNotFound for a missing recipe or one owned by another user.
func (s *RecipeService) Get(ctx context.Context, user domain.User, id uuid.UUID) (domain.Recipe, error) {
	rec, err := s.recipes.GetByID(ctx, user.ID, id)
	if err != nil {
		return domain.Recipe{}, fmt.Errorf("service.RecipeService.Get: %w", err)
	}
	return rec, nil
}

// Create validates input and stores a recipe owned by the caller.
// Title, time_minutes and price are required.
func (s *RecipeService) Create(ctx context.Context, user domain.User, in domain.RecipePatch) (domain.Recipe, error) {
	rec, tagIDs, ingredientIDs, err := applyRecipePatch(domain.Recipe{UserID: user.ID}, in, false)
	if err != nil {
		return domain.Recipe{}, err
	}
	if err := s.checkOwnership(ctx, user, tagIDs, ingredientIDs); err != nil {
		return domain.Recipe{}, err
	}
	rec.TagIDs = *tagIDs
	rec.IngredientIDs = *ingredientIDs

	created, err := s.recipes.Create(ctx, rec)
	if err != nil {
		return domain.Recipe{}, fmt.Errorf("service.RecipeService.Create: %w", err)
	}
	return created, nil
}

// Update changes one of the caller's recipes. With partial=false (PUT) the
// required fields must be present and omitted optional fields are reset; with
// partial=true (PATCH) only the provided fields change. A provided tag or
// ingredient list replaces the whole set, an empty list clears it.
func (s *RecipeService) Update(ctx context.Context, user domain.User, id uuid.UUID, patch domain.RecipePatch, partial bool) (domain.Recipe, error) {
	current, err := s.recipes.GetByID(ctx, user.ID, id)
	if err != nil {
		return domain.Recipe{}, fmt.Errorf("service.RecipeService.Update: %w", err)
	}

	rec, tagIDs, ingredientIDs, err := applyRecipePatch(current, patch, partial)
	if err != nil {
		return domain.Recipe{}, err
	}
	if err := s.checkOwnership(ctx, user, tagIDs, ingredientIDs); err != nil {
		return domain.Recipe{}, err
	}

	updated, err := s.recipes.Update(ctx, rec, tagIDs, ingredientIDs)
	if err != nil {
		return domain.Recipe{}, fmt.Errorf("service.RecipeService.Update: %w", err)
	}
	return updated, nil
}

// UploadImage validates that data is a JPEG, PNG or GIF image, stores it under
// a fresh key and points the recipe at it. The previous image, if any, is
// removed on a best-effort basis. The returned recipe carries ID and Image only.
func (s *RecipeService) UploadImage(ctx context.Context, user domain.User, id uuid.UUID, filename string, data io.Reader) (domain.Recipe, error) {
	if _, err := s.recipes.GetByID(ctx, user.ID, id); err != nil {
		return domain.Recipe{}, fmt.Errorf("service.RecipeService.UploadImage: %w", err)
	}

	raw, err := io.ReadAll(data)
	if err != nil {
		return domain.Recipe{}, fmt.Errorf("service.RecipeService.UploadImage: read: %w", err)
	}
	format, err := detectImage(raw)
	if err != nil {
		return domain.Recipe{}, err
	}

	key := recipeImageKey(filename, format)
	if err := s.images.Save(ctx, key, bytes.NewReader(raw), contentTypes[format]); err != nil {
		return domain.Recipe{}, fmt.Errorf("service.RecipeService.UploadImage: save: %w", err)
	}

	previous, err := s.recipes.SetImage(ctx, user.ID, id, key)
	if err != nil {
		s.removeImage(ctx, key)
		return domain.Recipe{}, fmt.Errorf("service.RecipeService.UploadImage: %w", err)
	}
	if previous != "" && previous != key {
		s.removeImage(ctx, previous)
	}

	return domain.Recipe{ID: id, UserID: user.ID, Image: key}, nil
}

// Delete removes one of the caller's recipes and its stored image.
func (s *RecipeService) Delete(ctx context.Context, user domain.User, id uuid.UUID) error {
	image, err := s.recipes.Delete(ctx, user.ID, id)
	if err != nil {
		return fmt.Errorf("service.RecipeService.Delete: %w", err)
	}
	if image != "" {
		s.removeImage(ctx, image)
	}
	return nil
}

// removeImage deletes a stored object and only logs failures; a stale file
// never fails the request that orphaned it.
func (s *RecipeService) removeImage(ctx context.Context, key string) {
	if err := s.images.Delete(ctx, key); err != nil {
		s.logger.WarnContext(ctx, "remove stored image", "key", key, "error", err)
	}
}

// checkOwnership rejects tag or ingredient ids that do not exist or belong to
// another user. nil pointers mean the relation is not being written.
func (s *RecipeService) checkOwnership(ctx context.Context, user domain.User, tagIDs, ingredientIDs *[]uuid.UUID) error {
	vErr := &domain.ValidationError{}

	if tagIDs != nil && len(*tagIDs) > 0 {
		n, err := s.tags.CountOwned(ctx, user.ID, *tagIDs)
		if err != nil {
			return fmt.Errorf("service.RecipeService: check tags: %w", err)
		}
		if n != len(*tagIDs) {
			vErr.Add("tags", "one or more tags do not exist")
		}
	}
	if ingredientIDs != nil && len(*ingredientIDs) > 0 {
		n, err := s.ingredients.CountOwned(ctx, user.ID, *ingredientIDs)
		if err != nil {
			return fmt.Errorf("service.RecipeService: check ingredients: %w", err)
		}
		if n != len(*ingredientIDs) {
			vErr.Add("ingredients", "one or more ingredients do not exist")
		}
	}

	if !vErr.Empty() {
		return vErr
	}
	return nil
}

// applyRecipePatch merges patch into base and validates the result.
//
// With partial=false the required fields must be present, link falls back to
// empty and both relation sets are always returned (empty when omitted). With
// partial=true absent fields keep their base value and a nil relation pointer
// means "leave as is". Returned relation ids are de-duplicated.
func applyRecipePatch(base domain.Recipe, p domain.RecipePatch, partial bool) (domain.Recipe, *[]uuid.UUID, *[]uuid.UUID, error) {
	vErr := &domain.ValidationError{}
	rec := base

	if !partial {
		if p.Title == nil {
			vErr.Add("title", "this field is required")
		}
		if p.TimeMinutes == nil {
			vErr.Add("time_minutes", "this field is required")
		}
		if p.Price == nil {
			vErr.Add("price", "this field is required")
		}
		rec.Link = ""
	}

	if p.Title != nil {
		title := strings.TrimSpace(*p.Title)
		switch {
		case title == "":
			vErr.Add("title", "this field may not be blank")
		case utf8.RuneCountInString(title) > maxNameLength:
			vErr.Add("title", fmt.Sprintf("ensure this field has no more than %d characters", maxNameLength))
		}
		rec.Title = title
	}
	if p.TimeMinutes != nil {
		switch {
		case *p.TimeMinutes <= 0:
			vErr.Add("time_minutes", "ensure this value is greater than 0")
		case *p.TimeMinutes > math.MaxInt32:
			vErr.Add("time_minutes", fmt.Sprintf("ensure this value is less than or equal to %d", math.MaxInt32))
		}
		rec.TimeMinutes = *p.TimeMinutes
	}
	if p.Price != nil {
		price, err := normalizePrice(*p.Price)
		if err != nil {
			vErr.Add("price", err.Error())
		}
		rec.Price = price
	}
	if p.Link != nil {
		link := strings.TrimSpace(*p.Link)
		if utf8.RuneCountInString(link) > maxNameLength {
			vErr.Add("link", fmt.Sprintf("ensure this field has no more than %d characters", maxNameLength))
		}
		rec.Link = link
	}

	if !vErr.Empty() {
		return domain.Recipe{}, nil, nil, vErr
	}

	tagIDs := dedupIDs(p.TagIDs, partial)
	ingredientIDs := dedupIDs(p.IngredientIDs, partial)
	return rec, tagIDs, ingredientIDs, nil
}

// dedupIDs returns the distinct ids in first-seen order. An absent list yields
// nil for a partial update and an empty set otherwise.
func dedupIDs(ids *[]uuid.UUID, partial bool) *[]uuid.UUID {
	if ids == nil {
		if partial {
			return nil
		}
		return &[]uuid.UUID{}
	}
	seen := make(map[uuid.UUID]struct{}, len(*ids))
	out := make([]uuid.UUID, 0, len(*ids))
	for _, id := range *ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return &out
}

var priceRe = regexp.MustCompile(`^(\d+)(?:\.(\d*))?$`)

var errPriceFormat = errors.New("a valid number is required")

// normalizePrice accepts a non-negative decimal with at most 3 integer and 2
// fractional digits, matching NUMERIC(5,2), and returns it in canonical
// two-decimal form ("5" -> "5.00").
func normalizePrice(raw string) (string, error) {
	m := priceRe.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		if strings.HasPrefix(strings.TrimSpace(raw), "-") {
			return "", errors.New("ensure this value is greater than or equal to 0")
		}
		return "", errPriceFormat
	}

	whole := strings.TrimLeft(m[1], "0")
	frac := m[2]
	if len(frac) > 2 {
		return "", errors.New("ensure that there are no more than 2 decimal places")
	}
	if len(whole) > 3 {
		return "", errors.New("ensure that there are no more than 3 digits before the decimal point")
	}
	if whole == "" {
		whole = "0"
	}
	return whole + "." + frac + strings.Repeat("0", 2-len(frac)), nil
}
