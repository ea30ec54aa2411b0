package handler

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/recipe-api/internal/domain"
)

// TaxonResponse is the JSON shape shared by tags and ingredients.
type TaxonResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateTaxonRequest is the body of POST /tags and POST /ingredients.
type CreateTaxonRequest struct {
	Name string `json:"name"`
}

// ListTags handles GET /tags.
func (s *Server) ListTags(w http.ResponseWriter, r *http.Request, user domain.User) {
	assignedOnly, err := assignedOnlyParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	tags, err := s.tags.List(r.Context(), user, assignedOnly)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tagsToResponse(tags))
}

// CreateTag handles POST /tags.
func (s *Server) CreateTag(w http.ResponseWriter, r *http.Request, user domain.User) {
	var body CreateTaxonRequest
	if err := decodeJSON(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}

	tag, err := s.tags.Create(r.Context(), user, body.Name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tagToResponse(tag))
}

// DeleteTag handles DELETE /tags/{id}.
func (s *Server) DeleteTag(w http.ResponseWriter, r *http.Request, user domain.User) {
	id, err := pathID(r)
	if err == nil {
		err = s.tags.Delete(r.Context(), user, id)
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListIngredients handles GET /ingredients.
func (s *Server) ListIngredients(w http.ResponseWriter, r *http.Request, user domain.User) {
	assignedOnly, err := assignedOnlyParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	ingredients, err := s.ingredients.List(r.Context(), user, assignedOnly)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ingredientsToResponse(ingredients))
}

// CreateIngredient handles POST /ingredients.
func (s *Server) CreateIngredient(w http.ResponseWriter, r *http.Request, user domain.User) {
	var body CreateTaxonRequest
	if err := decodeJSON(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}

	ing, err := s.ingredients.Create(r.Context(), user, body.Name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ingredientToResponse(ing))
}

// DeleteIngredient handles DELETE /ingredients/{id}.
func (s *Server) DeleteIngredient(w http.ResponseWriter, r *http.Request, user domain.User) {
	id, err := pathID(r)
	if err == nil {
		err = s.ingredients.Delete(r.Context(), user, id)
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func tagToResponse(t domain.Tag) TaxonResponse {
	return TaxonResponse{ID: t.ID, Name: t.Name, CreatedAt: t.CreatedAt}
}

func ingredientToResponse(i domain.Ingredient) TaxonResponse {
	return TaxonResponse{ID: i.ID, Name: i.Name, CreatedAt: i.CreatedAt}
}

func tagsToResponse(tags []domain.Tag) []TaxonResponse {
	out := make([]TaxonResponse, len(tags))
	for i, t := range tags {
		out[i] = tagToResponse(t)
	}
	return out
}

func ingredientsToResponse(ings []domain.Ingredient) []TaxonResponse {
	out := make([]TaxonResponse, len(ings))
	for i, ing := range ings {
		out[i] = ingredientToResponse(ing)
	}
	return out
}
