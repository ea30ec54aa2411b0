package handler

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/pkordes/recipe-api/internal/domain"
)

// UserResponse is the public projection of an account. The password hash and
// the staff flags are never serialized.
type UserResponse struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
	Name  string    `json:"name"`
}

// CreateUserRequest is the body of POST /users.
type CreateUserRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// CreateTokenRequest is the body of POST /users/token.
type CreateTokenRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenResponse is the body returned by POST /users/token.
type TokenResponse struct {
	Token string `json:"token"`
}

// UpdateMeRequest is the body of PATCH /users/me. Absent keys are left unchanged.
type UpdateMeRequest struct {
	Name     *string `json:"name"`
	Password *string `json:"password"`
}

// CreateUser handles POST /users.
func (s *Server) CreateUser(w http.ResponseWriter, r *http.Request) {
	var body CreateUserRequest
	if err := decodeJSON(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}

	u, err := s.users.Create(r.Context(), body.Email, body.Password, body.Name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, userToResponse(u))
}

// CreateToken handles POST /users/token.
func (s *Server) CreateToken(w http.ResponseWriter, r *http.Request) {
	var body CreateTokenRequest
	if err := decodeJSON(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}

	token, err := s.users.IssueToken(r.Context(), body.Email, body.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, TokenResponse{Token: token})
}

// DeleteToken handles DELETE /users/token. The presented token stops working.
func (s *Server) DeleteToken(w http.ResponseWriter, r *http.Request, user domain.User) {
	if err := s.users.RevokeToken(r.Context(), user); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetMe handles GET /users/me.
func (s *Server) GetMe(w http.ResponseWriter, r *http.Request, user domain.User) {
	u, err := s.users.GetProfile(r.Context(), user)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, userToResponse(u))
}

// UpdateMe handles PATCH /users/me.
func (s *Server) UpdateMe(w http.ResponseWriter, r *http.Request, user domain.User) {
	var body UpdateMeRequest
	if err := decodeJSON(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}

	u, err := s.users.UpdateProfile(r.Context(), user, domain.ProfilePatch{
		Name:     body.Name,
		Password: body.Password,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, userToResponse(u))
}

func userToResponse(u domain.User) UserResponse {
	return UserResponse{ID: u.ID, Email: u.Email, Name: u.Name}
}
