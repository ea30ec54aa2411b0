package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/recipe-api/internal/domain"
	"github.com/pkordes/recipe-api/internal/handler"
)

// Each mock is a test double for the servicer of the same name.
// Set only the method fields your test needs.

type mockUserServicer struct {
	create        func(ctx context.Context, email, password, name string) (domain.User, error)
	issueToken    func(ctx context.Context, email, password string) (string, error)
	resolveToken  func(ctx context.Context, key string) (domain.User, error)
	revokeToken   func(ctx context.Context, user domain.User) error
	getProfile    func(ctx context.Context, user domain.User) (domain.User, error)
	updateProfile func(ctx context.Context, user domain.User, patch domain.ProfilePatch) (domain.User, error)
}

func (m *mockUserServicer) Create(ctx context.Context, email, password, name string) (domain.User, error) {
	return m.create(ctx, email, password, name)
}
func (m *mockUserServicer) IssueToken(ctx context.Context, email, password string) (string, error) {
	return m.issueToken(ctx, email, password)
}
func (m *mockUserServicer) ResolveToken(ctx context.Context, key string) (domain.User, error) {
	return m.resolveToken(ctx, key)
}
func (m *mockUserServicer) RevokeToken(ctx context.Context, user domain.User) error {
	return m.revokeToken(ctx, user)
}
func (m *mockUserServicer) GetProfile(ctx context.Context, user domain.User) (domain.User, error) {
	return m.getProfile(ctx, user)
}
func (m *mockUserServicer) UpdateProfile(ctx context.Context, user domain.User, patch domain.ProfilePatch) (domain.User, error) {
	return m.updateProfile(ctx, user, patch)
}

type mockTagServicer struct {
	list   func(ctx context.Context, user domain.User, assignedOnly bool) ([]domain.Tag, error)
	create func(ctx context.Context, user domain.User, name string) (domain.Tag, error)
	delete func(ctx context.Context, user domain.User, id uuid.UUID) error
}

func (m *mockTagServicer) List(ctx context.Context, user domain.User, assignedOnly bool) ([]domain.Tag, error) {
	return m.list(ctx, user, assignedOnly)
}
func (m *mockTagServicer) Create(ctx context.Context, user domain.User, name string) (domain.Tag, error) {
	return m.create(ctx, user, name)
}
func (m *mockTagServicer) Delete(ctx context.Context, user domain.User, id uuid.UUID) error {
	return m.delete(ctx, user, id)
}

type mockIngredientServicer struct {
	list   func(ctx context.Context, user domain.User, assignedOnly bool) ([]domain.Ingredient, error)
	create func(ctx context.Context, user domain.User, name string) (domain.Ingredient, error)
	delete func(ctx context.Context, user domain.User, id uuid.UUID) error
}

func (m *mockIngredientServicer) List(ctx context.Context, user domain.User, assignedOnly bool) ([]domain.Ingredient, error) {
	return m.list(ctx, user, assignedOnly)
}
func (m *mockIngredientServicer) Create(ctx context.Context, user domain.User, name string) (domain.Ingredient, error) {
	return m.create(ctx, user, name)
}
func (m *mockIngredientServicer) Delete(ctx context.Context, user domain.User, id uuid.UUID) error {
	return m.delete(ctx, user, id)
}

type mockRecipeServicer struct {
	list        func(ctx context.Context, user domain.User, filter domain.RecipeFilter) ([]domain.Recipe, error)
	get         func(ctx context.Context, user domain.User, id uuid.UUID) (domain.Recipe, error)
	create      func(ctx context.Context, user domain.User, in domain.RecipePatch) (domain.Recipe, error)
	update      func(ctx context.Context, user domain.User, id uuid.UUID, patch domain.RecipePatch, partial bool) (domain.Recipe, error)
	uploadImage func(ctx context.Context, user domain.User, id uuid.UUID, filename string, data io.Reader) (domain.Recipe, error)
	delete      func(ctx context.Context, user domain.User, id uuid.UUID) error
}

func (m *mockRecipeServicer) List(ctx context.Context, user domain.User, filter domain.RecipeFilter) ([]domain.Recipe, error) {
	return m.list(ctx, user, filter)
}
func (m *mockRecipeServicer) Get(ctx context.Context, user domain.User, id uuid.UUID) (domain.Recipe, error) {
	return m.get(ctx, user, id)
}
func (m *mockRecipeServicer) Create(ctx context.Context, user domain.User, in domain.RecipePatch) (domain.Recipe, error) {
	return m.create(ctx, user, in)
}
func (m *mockRecipeServicer) Update(ctx context.Context, user domain.User, id uuid.UUID, patch domain.RecipePatch, partial bool) (domain.Recipe, error) {
	return m.update(ctx, user, id, patch, partial)
}
func (m *mockRecipeServicer) UploadImage(ctx context.Context, user domain.User, id uuid.UUID, filename string, data io.Reader) (domain.Recipe, error) {
	return m.uploadImage(ctx, user, id, filename, data)
}
func (m *mockRecipeServicer) Delete(ctx context.Context, user domain.User, id uuid.UUID) error {
	return m.delete(ctx, user, id)
}

// compile-time checks: mocks must satisfy the handler interfaces.
var (
	_ handler.UserServicer       = (*mockUserServicer)(nil)
	_ handler.TagServicer        = (*mockTagServicer)(nil)
	_ handler.IngredientServicer = (*mockIngredientServicer)(nil)
	_ handler.RecipeServicer     = (*mockRecipeServicer)(nil)
)

// ---- helpers ---------------------------------------------------------------

const validToken = "0123456789abcdef0123456789abcdef01234567"

// caller is the user every request authenticated with validToken resolves to.
var caller = domain.User{
	ID:       uuid.MustParse("7f1d7c2e-5f44-4c1a-9a0b-3d2f0e6b8a11"),
	Email:    "cook@example.com",
	Name:     "Cook",
	IsActive: true,
}

// newTestRouter builds the production router. A nil Users servicer gets one
// that accepts validToken and rejects everything else.
func newTestRouter(d handler.Deps) http.Handler {
	if d.Users == nil {
		d.Users = &mockUserServicer{resolveToken: resolveValidToken}
	}
	return handler.NewRouter(d)
}

func resolveValidToken(_ context.Context, key string) (domain.User, error) {
	if key == validToken {
		return caller, nil
	}
	return domain.User{}, domain.ErrUnauthenticated
}

// do sends an authenticated request with an optional JSON body.
func do(t *testing.T, h http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, target, r)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+validToken)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v), "body: %s", rec.Body.String())
	return v
}

func errorOf(t *testing.T, rec *httptest.ResponseRecorder) handler.ErrorDetail {
	t.Helper()
	return decodeBody[handler.ErrorResponse](t, rec).Error
}
