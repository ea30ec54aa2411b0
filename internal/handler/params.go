package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/oapi-codegen/runtime"

	"github.com/pkordes/recipe-api/internal/domain"
)

// pathID parses the {id} URL segment. A malformed id cannot name an existing
// row, so it is reported as not found rather than as bad input.
func pathID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid id: %w", domain.ErrNotFound)
	}
	return id, nil
}

// idListParam binds a comma-separated list of UUIDs, e.g. ?tags=a,b. A missing
// or empty parameter yields nil, meaning "no filter".
func idListParam(r *http.Request, name string) ([]uuid.UUID, error) {
	if r.URL.Query().Get(name) == "" {
		return nil, nil
	}

	var ids []uuid.UUID
	if err := runtime.BindQueryParameter("form", false, false, name, r.URL.Query(), &ids); err != nil {
		return nil, badRequest("%s must be a comma-separated list of ids", name)
	}
	return ids, nil
}

// assignedOnlyParam reads ?assigned_only=0|1. Absent means 0.
func assignedOnlyParam(r *http.Request) (bool, error) {
	raw := r.URL.Query().Get("assigned_only")
	if raw == "" {
		return false, nil
	}

	var v int
	if err := runtime.BindQueryParameter("form", true, false, "assigned_only", r.URL.Query(), &v); err != nil {
		return false, badRequest("assigned_only must be 0 or 1")
	}
	switch v {
	case 0:
		return false, nil
	case 1:
		return true, nil
	}
	return false, badRequest("assigned_only must be 0 or 1, got %s", strconv.Quote(raw))
}
