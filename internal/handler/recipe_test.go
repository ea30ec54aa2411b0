package handler_test

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/recipe-api/internal/domain"
	"github.com/pkordes/recipe-api/internal/handler"
)

func recipeFixture() domain.Recipe {
	tag := tagFixture("dinner")
	ing := domain.Ingredient{ID: uuid.New(), UserID: caller.ID, Name: "rice"}
	now := time.Now().UTC()
	return domain.Recipe{
		ID:            uuid.New(),
		UserID:        caller.ID,
		Title:         "Fried rice",
		TimeMinutes:   20,
		Price:         "5.50",
		Link:          "https://example.com/fried-rice",
		Image:         "uploads/recipe/abc.png",
		TagIDs:        []uuid.UUID{tag.ID},
		IngredientIDs: []uuid.UUID{ing.ID},
		Tags:          []domain.Tag{tag},
		Ingredients:   []domain.Ingredient{ing},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func mediaURL(key string) string { return "http://localhost:8080/media/" + key }

// ---- GET /recipes ----------------------------------------------------------

func TestListRecipes_200_ListProjection(t *testing.T) {
	fixture := recipeFixture()
	svc := &mockRecipeServicer{
		list: func(context.Context, domain.User, domain.RecipeFilter) ([]domain.Recipe, error) {
			return []domain.Recipe{fixture}, nil
		},
	}

	rec := do(t, newTestRouter(handler.Deps{Recipes: svc}), http.MethodGet, "/recipes", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), `"image"`)
	items := decodeBody[[]handler.RecipeListItem](t, rec)
	require.Len(t, items, 1)
	assert.Equal(t, "5.50", items[0].Price)
	assert.Equal(t, fixture.TagIDs, items[0].Tags)
	assert.Equal(t, fixture.IngredientIDs, items[0].Ingredients)
}

func TestListRecipes_FilterParams(t *testing.T) {
	t1, t2, i1 := uuid.New(), uuid.New(), uuid.New()

	tests := []struct {
		name  string
		query string
		want  domain.RecipeFilter
	}{
		{name: "none", query: "", want: domain.RecipeFilter{}},
		{name: "empty values", query: "?tags=&ingredients=", want: domain.RecipeFilter{}},
		{name: "tags", query: "?tags=" + t1.String() + "," + t2.String(),
			want: domain.RecipeFilter{TagIDs: []uuid.UUID{t1, t2}}},
		{name: "both", query: "?tags=" + t1.String() + "&ingredients=" + i1.String(),
			want: domain.RecipeFilter{TagIDs: []uuid.UUID{t1}, IngredientIDs: []uuid.UUID{i1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got domain.RecipeFilter
			svc := &mockRecipeServicer{
				list: func(_ context.Context, _ domain.User, f domain.RecipeFilter) ([]domain.Recipe, error) {
					got = f
					return nil, nil
				},
			}

			rec := do(t, newTestRouter(handler.Deps{Recipes: svc}), http.MethodGet, "/recipes"+tt.query, nil)

			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.want, got)
			assert.JSONEq(t, `[]`, rec.Body.String())
		})
	}
}

func TestListRecipes_400_BadFilterID(t *testing.T) {
	rec := do(t, newTestRouter(handler.Deps{Recipes: &mockRecipeServicer{}}), http.MethodGet, "/recipes?tags=1,2", nil)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_error", errorOf(t, rec).Code)
}

// ---- POST /recipes ---------------------------------------------------------

func TestCreateRecipe_201_DetailProjection(t *testing.T) {
	fixture := recipeFixture()
	var got domain.RecipePatch
	svc := &mockRecipeServicer{
		create: func(_ context.Context, _ domain.User, in domain.RecipePatch) (domain.Recipe, error) {
			got = in
			return fixture, nil
		},
	}
	h := newTestRouter(handler.Deps{Recipes: svc, ImageURL: mediaURL})

	rec := do(t, h, http.MethodPost, "/recipes", map[string]any{
		"title":        "Fried rice",
		"time_minutes": 20,
		"price":        5.5,
		"tags":         fixture.TagIDs,
	})

	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, got.Price)
	assert.Equal(t, "5.5", *got.Price, "numeric price keeps its literal text")
	require.NotNil(t, got.TagIDs)
	assert.Equal(t, fixture.TagIDs, *got.TagIDs)
	assert.Nil(t, got.IngredientIDs, "absent key stays nil")
	assert.Nil(t, got.Link)

	d := decodeBody[handler.RecipeDetail](t, rec)
	require.Len(t, d.Tags, 1)
	assert.Equal(t, "dinner", d.Tags[0].Name)
	require.Len(t, d.Ingredients, 1)
	assert.Equal(t, "rice", d.Ingredients[0].Name)
	require.NotNil(t, d.Image)
	assert.Equal(t, "http://localhost:8080/media/uploads/recipe/abc.png", *d.Image)
}

func TestCreateRecipe_PriceAsString(t *testing.T) {
	var got domain.RecipePatch
	svc := &mockRecipeServicer{
		create: func(_ context.Context, _ domain.User, in domain.RecipePatch) (domain.Recipe, error) {
			got = in
			return domain.Recipe{ID: uuid.New(), Price: "12.00"}, nil
		},
	}

	rec := do(t, newTestRouter(handler.Deps{Recipes: svc}), http.MethodPost, "/recipes", map[string]any{
		"title": "Soup", "time_minutes": 10, "price": "12",
	})

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "12", *got.Price)
	d := decodeBody[handler.RecipeDetail](t, rec)
	assert.Nil(t, d.Image, "no image serializes as null")
	assert.NotNil(t, d.Tags)
}

func TestCreateRecipe_400_WrongFieldType(t *testing.T) {
	rec := do(t, newTestRouter(handler.Deps{Recipes: &mockRecipeServicer{}}), http.MethodPost, "/recipes", map[string]any{
		"title": "Soup", "time_minutes": "ten", "price": "1.00",
	})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, errorOf(t, rec).Message, "time_minutes")
}

func TestCreateRecipe_400_ServiceValidation(t *testing.T) {
	svc := &mockRecipeServicer{
		create: func(context.Context, domain.User, domain.RecipePatch) (domain.Recipe, error) {
			return domain.Recipe{}, domain.FieldError("tags", "one or more tags do not exist")
		},
	}

	rec := do(t, newTestRouter(handler.Deps{Recipes: svc}), http.MethodPost, "/recipes", map[string]any{
		"title": "Soup", "time_minutes": 10, "price": "1.00", "tags": []string{uuid.NewString()},
	})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, errorOf(t, rec).Fields, "tags")
}

// ---- GET /recipes/{id} -----------------------------------------------------

func TestGetRecipe_200(t *testing.T) {
	fixture := recipeFixture()
	svc := &mockRecipeServicer{
		get: func(_ context.Context, user domain.User, id uuid.UUID) (domain.Recipe, error) {
			assert.Equal(t, caller.ID, user.ID)
			assert.Equal(t, fixture.ID, id)
			return fixture, nil
		},
	}

	rec := do(t, newTestRouter(handler.Deps{Recipes: svc}), http.MethodGet, "/recipes/"+fixture.ID.String(), nil)

	require.Equal(t, http.StatusOK, rec.Code)
	d := decodeBody[handler.RecipeDetail](t, rec)
	assert.Equal(t, fixture.Title, d.Title)
	assert.Equal(t, fixture.Link, d.Link)
}

func TestGetRecipe_404(t *testing.T) {
	svc := &mockRecipeServicer{
		get: func(context.Context, domain.User, uuid.UUID) (domain.Recipe, error) {
			return domain.Recipe{}, domain.ErrNotFound
		},
	}

	rec := do(t, newTestRouter(handler.Deps{Recipes: svc}), http.MethodGet, "/recipes/"+uuid.NewString(), nil)

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", errorOf(t, rec).Code)
}

// ---- PUT / PATCH /recipes/{id} ---------------------------------------------

func TestUpdateRecipe_PutIsFullPatchIsPartial(t *testing.T) {
	tests := []struct {
		method  string
		partial bool
	}{
		{method: http.MethodPut, partial: false},
		{method: http.MethodPatch, partial: true},
	}
	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			fixture := recipeFixture()
			var (
				gotPartial bool
				gotPatch   domain.RecipePatch
			)
			svc := &mockRecipeServicer{
				update: func(_ context.Context, _ domain.User, id uuid.UUID, patch domain.RecipePatch, partial bool) (domain.Recipe, error) {
					assert.Equal(t, fixture.ID, id)
					gotPartial, gotPatch = partial, patch
					return fixture, nil
				},
			}

			rec := do(t, newTestRouter(handler.Deps{Recipes: svc}), tt.method, "/recipes/"+fixture.ID.String(),
				map[string]any{"tags": []uuid.UUID{}})

			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.partial, gotPartial)
			require.NotNil(t, gotPatch.TagIDs, "an empty list is present, not absent")
			assert.Empty(t, *gotPatch.TagIDs)
			assert.Nil(t, gotPatch.Title)
		})
	}
}

// ---- DELETE /recipes/{id} --------------------------------------------------

func TestDeleteRecipe_204(t *testing.T) {
	svc := &mockRecipeServicer{
		delete: func(context.Context, domain.User, uuid.UUID) error { return nil },
	}

	rec := do(t, newTestRouter(handler.Deps{Recipes: svc}), http.MethodDelete, "/recipes/"+uuid.NewString(), nil)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
}

// ---- POST /recipes/{id}/image ----------------------------------------------

func multipartBody(t *testing.T, field, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("note", "ignored"))
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func uploadRequest(body io.Reader, contentType string, id uuid.UUID) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/recipes/"+id.String()+"/image", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+validToken)
	return req
}

func TestUploadRecipeImage_200(t *testing.T) {
	id := uuid.New()
	var gotName string
	var gotData []byte
	svc := &mockRecipeServicer{
		uploadImage: func(_ context.Context, _ domain.User, got uuid.UUID, filename string, data io.Reader) (domain.Recipe, error) {
			assert.Equal(t, id, got)
			gotName = filename
			var err error
			gotData, err = io.ReadAll(data)
			require.NoError(t, err)
			return domain.Recipe{ID: id, Image: "uploads/recipe/new.png"}, nil
		},
	}
	body, ct := multipartBody(t, "image", "photo.png", []byte("image-bytes"))

	rec := httptest.NewRecorder()
	newTestRouter(handler.Deps{Recipes: svc, ImageURL: mediaURL}).ServeHTTP(rec, uploadRequest(body, ct, id))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "photo.png", gotName)
	assert.Equal(t, "image-bytes", string(gotData))
	resp := decodeBody[handler.RecipeImage](t, rec)
	assert.Equal(t, id, resp.ID)
	assert.Equal(t, "http://localhost:8080/media/uploads/recipe/new.png", resp.Image)
}

func TestUploadRecipeImage_400_NotAnImage(t *testing.T) {
	svc := &mockRecipeServicer{
		uploadImage: func(context.Context, domain.User, uuid.UUID, string, io.Reader) (domain.Recipe, error) {
			return domain.Recipe{}, domain.FieldError("image", "upload a valid image")
		},
	}
	body, ct := multipartBody(t, "image", "notes.txt", []byte("plain text"))

	rec := httptest.NewRecorder()
	newTestRouter(handler.Deps{Recipes: svc}).ServeHTTP(rec, uploadRequest(body, ct, uuid.New()))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, errorOf(t, rec).Fields, "image")
}

func TestUploadRecipeImage_400_MissingField(t *testing.T) {
	body, ct := multipartBody(t, "file", "photo.png", []byte("image-bytes"))

	rec := httptest.NewRecorder()
	newTestRouter(handler.Deps{Recipes: &mockRecipeServicer{}}).ServeHTTP(rec, uploadRequest(body, ct, uuid.New()))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "no file was submitted", errorOf(t, rec).Fields["image"])
}

func TestUploadRecipeImage_400_NotMultipart(t *testing.T) {
	rec := httptest.NewRecorder()
	req := uploadRequest(strings.NewReader(`{"image":"x"}`), "application/json", uuid.New())
	newTestRouter(handler.Deps{Recipes: &mockRecipeServicer{}}).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadRecipeImage_413_OverUploadLimit(t *testing.T) {
	body, ct := multipartBody(t, "image", "big.png", bytes.Repeat([]byte{0xff}, 4096))

	rec := httptest.NewRecorder()
	h := newTestRouter(handler.Deps{Recipes: &mockRecipeServicer{}, MaxUploadBytes: 1024})
	h.ServeHTTP(rec, uploadRequest(body, ct, uuid.New()))

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}
