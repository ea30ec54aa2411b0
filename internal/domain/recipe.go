package domain

import (
	"time"

	"github.com/google/uuid"
)

// Recipe is the top-level aggregate; tags and ingredients are attached to it as sets.
//
// Price is kept as its canonical decimal string ("5.00") so no precision is lost
// between the NUMERIC column and the JSON representation.
//
// In list results only TagIDs/IngredientIDs are populated; detail results also
// carry the full Tags and Ingredients.
type Recipe struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	Title         string
	TimeMinutes   int
	Price         string
	Link          string
	Image         string // storage key, empty when no image was uploaded
	TagIDs        []uuid.UUID
	IngredientIDs []uuid.UUID
	Tags          []Tag
	Ingredients   []Ingredient
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// RecipeFilter narrows a recipe listing. An empty slice means "no filter".
// Within one slice ids are OR-ed; the two slices are AND-ed.
type RecipeFilter struct {
	TagIDs        []uuid.UUID
	IngredientIDs []uuid.UUID
}

// RecipePatch carries the fields of a create or update request.
// A nil pointer means the key was absent from the request body. For TagIDs and
// IngredientIDs a non-nil pointer to an empty slice clears the relation.
type RecipePatch struct {
	Title         *string
	TimeMinutes   *int
	Price         *string
	Link          *string
	TagIDs        *[]uuid.UUID
	IngredientIDs *[]uuid.UUID
}
