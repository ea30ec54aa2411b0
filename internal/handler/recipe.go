package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/recipe-api/internal/domain"
)

// RecipeRequest is the body of POST, PUT and PATCH on recipes. Pointer fields
// distinguish an absent key from a zero value.
type RecipeRequest struct {
	Title       *string        `json:"title"`
	TimeMinutes *int           `json:"time_minutes"`
	Price       *decimalString `json:"price"`
	Link        *string        `json:"link"`
	Tags        *[]uuid.UUID   `json:"tags"`
	Ingredients *[]uuid.UUID   `json:"ingredients"`
}

// decimalString accepts a price either as a JSON string ("5.50") or as a JSON
// number (5.5) and keeps its literal text so no float rounding happens.
type decimalString string

func (d *decimalString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*d = decimalString(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return badRequest("price must be a number or a decimal string")
	}
	*d = decimalString(n.String())
	return nil
}

// RecipeListItem is the list projection: relation ids only, no image.
type RecipeListItem struct {
	ID          uuid.UUID   `json:"id"`
	Title       string      `json:"title"`
	TimeMinutes int         `json:"time_minutes"`
	Price       string      `json:"price"`
	Link        string      `json:"link"`
	Tags        []uuid.UUID `json:"tags"`
	Ingredients []uuid.UUID `json:"ingredients"`
}

// RecipeDetail is the detail projection with nested tags and ingredients and
// the image URL (null when no image was uploaded).
type RecipeDetail struct {
	ID          uuid.UUID       `json:"id"`
	Title       string          `json:"title"`
	TimeMinutes int             `json:"time_minutes"`
	Price       string          `json:"price"`
	Link        string          `json:"link"`
	Image       *string         `json:"image"`
	Tags        []TaxonResponse `json:"tags"`
	Ingredients []TaxonResponse `json:"ingredients"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// RecipeImage is returned by the image upload endpoint.
type RecipeImage struct {
	ID    uuid.UUID `json:"id"`
	Image string    `json:"image"`
}

// ListRecipes handles GET /recipes.
// ?tags= and ?ingredients= take comma-separated ids; each list is OR-ed and the
// two lists are AND-ed.
func (s *Server) ListRecipes(w http.ResponseWriter, r *http.Request, user domain.User) {
	tagIDs, err := idListParam(r, "tags")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ingredientIDs, err := idListParam(r, "ingredients")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	recipes, err := s.recipes.List(r.Context(), user, domain.RecipeFilter{
		TagIDs:        tagIDs,
		IngredientIDs: ingredientIDs,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	out := make([]RecipeListItem, len(recipes))
	for i, rec := range recipes {
		out[i] = recipeToListItem(rec)
	}
	writeJSON(w, http.StatusOK, out)
}

// CreateRecipe handles POST /recipes.
func (s *Server) CreateRecipe(w http.ResponseWriter, r *http.Request, user domain.User) {
	var body RecipeRequest
	if err := decodeJSON(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}

	rec, err := s.recipes.Create(r.Context(), user, body.toPatch())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, s.recipeToDetail(rec))
}

// GetRecipe handles GET /recipes/{id}.
func (s *Server) GetRecipe(w http.ResponseWriter, r *http.Request, user domain.User) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	rec, err := s.recipes.Get(r.Context(), user, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.recipeToDetail(rec))
}

// ReplaceRecipe handles PUT /recipes/{id}.
func (s *Server) ReplaceRecipe(w http.ResponseWriter, r *http.Request, user domain.User) {
	s.updateRecipe(w, r, user, false)
}

// UpdateRecipe handles PATCH /recipes/{id}.
func (s *Server) UpdateRecipe(w http.ResponseWriter, r *http.Request, user domain.User) {
	s.updateRecipe(w, r, user, true)
}

func (s *Server) updateRecipe(w http.ResponseWriter, r *http.Request, user domain.User, partial bool) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var body RecipeRequest
	if err := decodeJSON(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}

	rec, err := s.recipes.Update(r.Context(), user, id, body.toPatch(), partial)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.recipeToDetail(rec))
}

// DeleteRecipe handles DELETE /recipes/{id}.
func (s *Server) DeleteRecipe(w http.ResponseWriter, r *http.Request, user domain.User) {
	id, err := pathID(r)
	if err == nil {
		err = s.recipes.Delete(r.Context(), user, id)
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UploadRecipeImage handles POST /recipes/{id}/image. The file is read from
// the multipart field "image" and streamed to the service without buffering
// the whole form on disk.
func (s *Server) UploadRecipeImage(w http.ResponseWriter, r *http.Request, user domain.User) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	part, err := imagePart(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	defer part.Close()

	rec, err := s.recipes.UploadImage(r.Context(), user, id, part.FileName(), part)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, RecipeImage{ID: rec.ID, Image: s.imageURL(rec.Image)})
}

// imagePart advances the multipart reader to the "image" field.
func imagePart(r *http.Request) (*multipart.Part, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, domain.FieldError("image", "the request must be multipart/form-data")
	}

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return nil, domain.FieldError("image", "no file was submitted")
		}
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return nil, err
			}
			return nil, badRequest("malformed multipart body")
		}
		if part.FormName() == "image" {
			return part, nil
		}
		_ = part.Close()
	}
}

func (b RecipeRequest) toPatch() domain.RecipePatch {
	p := domain.RecipePatch{
		Title:         b.Title,
		TimeMinutes:   b.TimeMinutes,
		Link:          b.Link,
		TagIDs:        b.Tags,
		IngredientIDs: b.Ingredients,
	}
	if b.Price != nil {
		price := string(*b.Price)
		p.Price = &price
	}
	return p
}

func recipeToListItem(rec domain.Recipe) RecipeListItem {
	return RecipeListItem{
		ID:          rec.ID,
		Title:       rec.Title,
		TimeMinutes: rec.TimeMinutes,
		Price:       rec.Price,
		Link:        rec.Link,
		Tags:        nonNilIDs(rec.TagIDs),
		Ingredients: nonNilIDs(rec.IngredientIDs),
	}
}

func (s *Server) recipeToDetail(rec domain.Recipe) RecipeDetail {
	d := RecipeDetail{
		ID:          rec.ID,
		Title:       rec.Title,
		TimeMinutes: rec.TimeMinutes,
		Price:       rec.Price,
		Link:        rec.Link,
		Tags:        tagsToResponse(rec.Tags),
		Ingredients: ingredientsToResponse(rec.Ingredients),
		CreatedAt:   rec.CreatedAt,
		UpdatedAt:   rec.UpdatedAt,
	}
	if rec.Image != "" {
		url := s.imageURL(rec.Image)
		d.Image = &url
	}
	return d
}

func nonNilIDs(ids []uuid.UUID) []uuid.UUID {
	if ids == nil {
		return []uuid.UUID{}
	}
	return ids
}
