package service_test

import (
	"context"
	"io"
	"sync"

	"github.com/google/uuid"

	"github.com/pkordes/recipe-api/internal/domain"
	"github.com/pkordes/recipe-api/internal/repo"
	"github.com/pkordes/recipe-api/internal/service"
)

// Hand-written test doubles. Each method is a function field; set only the
// ones a test needs. Calling an unset one panics, which flags an unexpected call.

type mockUserRepo struct {
	create     func(ctx context.Context, u domain.User) (domain.User, error)
	getByID    func(ctx context.Context, id uuid.UUID) (domain.User, error)
	getByEmail func(ctx context.Context, email string) (domain.User, error)
	update     func(ctx context.Context, u domain.User) (domain.User, error)
}

func (m *mockUserRepo) Create(ctx context.Context, u domain.User) (domain.User, error) {
	return m.create(ctx, u)
}
func (m *mockUserRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.User, error) {
	return m.getByID(ctx, id)
}
func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	return m.getByEmail(ctx, email)
}
func (m *mockUserRepo) Update(ctx context.Context, u domain.User) (domain.User, error) {
	return m.update(ctx, u)
}

type mockTokenRepo struct {
	getOrCreate  func(ctx context.Context, userID uuid.UUID, candidate string) (string, error)
	userByKey    func(ctx context.Context, key string) (domain.User, error)
	deleteByUser func(ctx context.Context, userID uuid.UUID) error
}

func (m *mockTokenRepo) GetOrCreate(ctx context.Context, userID uuid.UUID, candidate string) (string, error) {
	return m.getOrCreate(ctx, userID, candidate)
}
func (m *mockTokenRepo) UserByKey(ctx context.Context, key string) (domain.User, error) {
	return m.userByKey(ctx, key)
}
func (m *mockTokenRepo) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	return m.deleteByUser(ctx, userID)
}

type mockTagRepo struct {
	create       func(ctx context.Context, userID uuid.UUID, name string) (domain.Tag, error)
	list         func(ctx context.Context, userID uuid.UUID, assignedOnly bool) ([]domain.Tag, error)
	listByRecipe func(ctx context.Context, recipeID uuid.UUID) ([]domain.Tag, error)
	countOwned   func(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (int, error)
	delete       func(ctx context.Context, userID, id uuid.UUID) error
}

func (m *mockTagRepo) Create(ctx context.Context, userID uuid.UUID, name string) (domain.Tag, error) {
	return m.create(ctx, userID, name)
}
func (m *mockTagRepo) List(ctx context.Context, userID uuid.UUID, assignedOnly bool) ([]domain.Tag, error) {
	return m.list(ctx, userID, assignedOnly)
}
func (m *mockTagRepo) ListByRecipe(ctx context.Context, recipeID uuid.UUID) ([]domain.Tag, error) {
	return m.listByRecipe(ctx, recipeID)
}
func (m *mockTagRepo) CountOwned(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (int, error) {
	return m.countOwned(ctx, userID, ids)
}
func (m *mockTagRepo) Delete(ctx context.Context, userID, id uuid.UUID) error {
	return m.delete(ctx, userID, id)
}

type mockIngredientRepo struct {
	create       func(ctx context.Context, userID uuid.UUID, name string) (domain.Ingredient, error)
	list         func(ctx context.Context, userID uuid.UUID, assignedOnly bool) ([]domain.Ingredient, error)
	listByRecipe func(ctx context.Context, recipeID uuid.UUID) ([]domain.Ingredient, error)
	countOwned   func(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (int, error)
	delete       func(ctx context.Context, userID, id uuid.UUID) error
}

func (m *mockIngredientRepo) Create(ctx context.Context, userID uuid.UUID, name string) (domain.Ingredient, error) {
	return m.create(ctx, userID, name)
}
func (m *mockIngredientRepo) List(ctx context.Context, userID uuid.UUID, assignedOnly bool) ([]domain.Ingredient, error) {
	return m.list(ctx, userID, assignedOnly)
}
func (m *mockIngredientRepo) ListByRecipe(ctx context.Context, recipeID uuid.UUID) ([]domain.Ingredient, error) {
	return m.listByRecipe(ctx, recipeID)
}
func (m *mockIngredientRepo) CountOwned(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (int, error) {
	return m.countOwned(ctx, userID, ids)
}
func (m *mockIngredientRepo) Delete(ctx context.Context, userID, id uuid.UUID) error {
	return m.delete(ctx, userID, id)
}

type mockRecipeRepo struct {
	create   func(ctx context.Context, r domain.Recipe) (domain.Recipe, error)
	getByID  func(ctx context.Context, userID, id uuid.UUID) (domain.Recipe, error)
	list     func(ctx context.Context, userID uuid.UUID, f domain.RecipeFilter) ([]domain.Recipe, error)
	update   func(ctx context.Context, r domain.Recipe, tagIDs, ingredientIDs *[]uuid.UUID) (domain.Recipe, error)
	setImage func(ctx context.Context, userID, id uuid.UUID, key string) (string, error)
	delete   func(ctx context.Context, userID, id uuid.UUID) (string, error)
}

func (m *mockRecipeRepo) Create(ctx context.Context, r domain.Recipe) (domain.Recipe, error) {
	return m.create(ctx, r)
}
func (m *mockRecipeRepo) GetByID(ctx context.Context, userID, id uuid.UUID) (domain.Recipe, error) {
	return m.getByID(ctx, userID, id)
}
func (m *mockRecipeRepo) List(ctx context.Context, userID uuid.UUID, f domain.RecipeFilter) ([]domain.Recipe, error) {
	return m.list(ctx, userID, f)
}
func (m *mockRecipeRepo) Update(ctx context.Context, r domain.Recipe, tagIDs, ingredientIDs *[]uuid.UUID) (domain.Recipe, error) {
	return m.update(ctx, r, tagIDs, ingredientIDs)
}
func (m *mockRecipeRepo) SetImage(ctx context.Context, userID, id uuid.UUID, key string) (string, error) {
	return m.setImage(ctx, userID, id, key)
}
func (m *mockRecipeRepo) Delete(ctx context.Context, userID, id uuid.UUID) (string, error) {
	return m.delete(ctx, userID, id)
}

// memImageStore keeps saved objects in memory and records deletions.
type memImageStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	deleted []string
	saveErr error
}

func newMemImageStore() *memImageStore {
	return &memImageStore{objects: map[string][]byte{}, types: map[string]string{}}
}

func (s *memImageStore) Save(_ context.Context, key string, r io.Reader, contentType string) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = b
	s.types[key] = contentType
	return nil
}

func (s *memImageStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	s.deleted = append(s.deleted, key)
	return nil
}

// compile-time checks
var (
	_ repo.UserRepo       = (*mockUserRepo)(nil)
	_ repo.TokenRepo      = (*mockTokenRepo)(nil)
	_ repo.TagRepo        = (*mockTagRepo)(nil)
	_ repo.IngredientRepo = (*mockIngredientRepo)(nil)
	_ repo.RecipeRepo     = (*mockRecipeRepo)(nil)
	_ service.ImageStore  = (*memImageStore)(nil)
)
