// Package service contains the business logic for the recipe catalogue.
// Services validate inputs, enforce ownership and orchestrate repo calls.
// No SQL lives here; services depend on repo interfaces, not implementations.
package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"github.com/pkordes/recipe-api/internal/domain"
	"github.com/pkordes/recipe-api/internal/repo"
)

// tokenBytes is the entropy of an API key; hex encoding doubles it to 40 characters.
const tokenBytes = 20

// UserService owns accounts and their API tokens.
type UserService struct {
	users    repo.UserRepo
	tokens   repo.TokenRepo
	hashCost int
	newKey   func() (string, error)
}

// UserOption customises a UserService.
type UserOption func(*UserService)

// WithHashCost sets the bcrypt cost. Tests use bcrypt.MinCost to stay fast.
func WithHashCost(cost int) UserOption {
	return func(s *UserService) { s.hashCost = cost }
}

// WithKeyGenerator replaces the random token generator.
func WithKeyGenerator(fn func() (string, error)) UserOption {
	return func(s *UserService) { s.newKey = fn }
}

// NewUserService constructs a UserService backed by the provided repos.
func NewUserService(users repo.UserRepo, tokens repo.TokenRepo, opts ...UserOption) *UserService {
	s := &UserService{
		users:    users,
		tokens:   tokens,
		hashCost: bcrypt.DefaultCost,
		newKey:   randomKey,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create registers an active, unprivileged account.
// Returns a *domain.ValidationError for a bad or taken email, a short password
// or a blank name.
func (s *UserService) Create(ctx context.Context, email, password, name string) (domain.User, error) {
	u, err := s.create(ctx, email, password, name, false)
	if err != nil {
		return domain.User{}, fmt.Errorf("service.UserService.Create: %w", err)
	}
	return u, nil
}

// CreateSuperuser registers an account with staff and superuser rights.
func (s *UserService) CreateSuperuser(ctx context.Context, email, password, name string) (domain.User, error) {
	u, err := s.create(ctx, email, password, name, true)
	if err != nil {
		return domain.User{}, fmt.Errorf("service.UserService.CreateSuperuser: %w", err)
	}
	return u, nil
}

func (s *UserService) create(ctx context.Context, email, password, name string, super bool) (domain.User, error) {
	vErr := &domain.ValidationError{}

	normalized, msg := normalizeEmail(email)
	if msg != "" {
		vErr.Add("email", msg)
	}
	if msg := checkPassword(password); msg != "" {
		vErr.Add("password", msg)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		vErr.Add("name", "this field may not be blank")
	}
	if !vErr.Empty() {
		return domain.User{}, vErr
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}

	return s.users.Create(ctx, domain.User{
		Email:        normalized,
		Name:         name,
		PasswordHash: string(hash),
		IsActive:     true,
		IsStaff:      super,
		IsSuperuser:  super,
	})
}

// IssueToken exchanges an email/password pair for the user's API key.
// The key is created on first login and reused until revoked.
// Returns domain.ErrInvalidCredentials when the pair does not match an active user.
func (s *UserService) IssueToken(ctx context.Context, email, password string) (string, error) {
	vErr := &domain.ValidationError{}
	if strings.TrimSpace(email) == "" {
		vErr.Add("email", "this field is required")
	}
	if password == "" {
		vErr.Add("password", "this field is required")
	}
	if !vErr.Empty() {
		return "", vErr
	}

	u, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, domain.ErrNotFound) {
		return "", domain.ErrInvalidCredentials
	}
	if err != nil {
		return "", fmt.Errorf("service.UserService.IssueToken: %w", err)
	}
	if !u.IsActive {
		return "", domain.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return "", domain.ErrInvalidCredentials
	}

	candidate, err := s.newKey()
	if err != nil {
		return "", fmt.Errorf("service.UserService.IssueToken: generate key: %w", err)
	}
	key, err := s.tokens.GetOrCreate(ctx, u.ID, candidate)
	if err != nil {
		return "", fmt.Errorf("service.UserService.IssueToken: %w", err)
	}
	return key, nil
}

// ResolveToken returns the active user bound to key.
// Returns domain.ErrUnauthenticated for an empty or unknown key or an inactive user.
func (s *UserService) ResolveToken(ctx context.Context, key string) (domain.User, error) {
	if key == "" {
		return domain.User{}, domain.ErrUnauthenticated
	}
	u, err := s.tokens.UserByKey(ctx, key)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.User{}, domain.ErrUnauthenticated
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("service.UserService.ResolveToken: %w", err)
	}
	if !u.IsActive {
		return domain.User{}, domain.ErrUnauthenticated
	}
	return u, nil
}

// RevokeToken deletes the caller's key; the next login issues a fresh one.
func (s *UserService) RevokeToken(ctx context.Context, user domain.User) error {
	if err := s.tokens.DeleteByUser(ctx, user.ID); err != nil {
		return fmt.Errorf("service.UserService.RevokeToken: %w", err)
	}
	return nil
}

// GetProfile returns the caller's own account.
func (s *UserService) GetProfile(ctx context.Context, user domain.User) (domain.User, error) {
	u, err := s.users.GetByID(ctx, user.ID)
	if err != nil {
		return domain.User{}, fmt.Errorf("service.UserService.GetProfile: %w", err)
	}
	return u, nil
}

// UpdateProfile changes the caller's name and/or password. Fields left nil in
// patch are untouched; a new password is re-hashed.
func (s *UserService) UpdateProfile(ctx context.Context, user domain.User, patch domain.ProfilePatch) (domain.User, error) {
	vErr := &domain.ValidationError{}
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		vErr.Add("name", "this field may not be blank")
	}
	if patch.Password != nil {
		if msg := checkPassword(*patch.Password); msg != "" {
			vErr.Add("password", msg)
		}
	}
	if !vErr.Empty() {
		return domain.User{}, vErr
	}

	current, err := s.users.GetByID(ctx, user.ID)
	if err != nil {
		return domain.User{}, fmt.Errorf("service.UserService.UpdateProfile: %w", err)
	}

	if patch.Name != nil {
		current.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*patch.Password), s.hashCost)
		if err != nil {
			return domain.User{}, fmt.Errorf("service.UserService.UpdateProfile: hash password: %w", err)
		}
		current.PasswordHash = string(hash)
	}

	updated, err := s.users.Update(ctx, current)
	if err != nil {
		return domain.User{}, fmt.Errorf("service.UserService.UpdateProfile: %w", err)
	}
	return updated, nil
}

// normalizeEmail lower-cases and validates a bare address. The second return
// value is a user-facing message, empty when the address is acceptable.
func normalizeEmail(raw string) (string, string) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", "this field may not be blank"
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", "enter a valid email address"
	}
	return email, ""
}

// maxPasswordBytes is the longest input bcrypt will hash.
const maxPasswordBytes = 72

func checkPassword(password string) string {
	if utf8.RuneCountInString(password) < domain.MinPasswordLength {
		return fmt.Sprintf("ensure this field has at least %d characters", domain.MinPasswordLength)
	}
	if len(password) > maxPasswordBytes {
		return fmt.Sprintf("ensure this field has no more than %d bytes", maxPasswordBytes)
	}
	return ""
}

// randomKey returns 20 random bytes hex-encoded.
func randomKey() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
