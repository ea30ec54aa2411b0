package domain

import (
	"time"

	"github.com/google/uuid"
)

// Tag is a user-defined label applied to recipes.
// Tags are owned by exactly one user; names are free text and not unique.
type Tag struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Name      string
	CreatedAt time.Time
}

// Ingredient has the same shape and lifecycle as Tag but lives in its own table
// and relation, so the two can never be mixed up at compile time.
type Ingredient struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Name      string
	CreatedAt time.Time
}
