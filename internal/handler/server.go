// Package handler implements the HTTP handlers for the recipe API.
// All handlers are methods on Server. Methods are split into resource files
// (user.go, taxonomy.go, recipe.go) but share the same Server struct so they
// can reach its dependencies.
package handler

import (
	"context"
	"io"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pkordes/recipe-api/internal/auth"
	"github.com/pkordes/recipe-api/internal/domain"
	"github.com/pkordes/recipe-api/internal/middleware"
)

// The servicer interfaces below are declared here, in the consumer package, so
// handler tests can inject mocks without a database.

// UserServicer is the account and token surface the handlers depend on.
type UserServicer interface {
	Create(ctx context.Context, email, password, name string) (domain.User, error)
	IssueToken(ctx context.Context, email, password string) (string, error)
	ResolveToken(ctx context.Context, key string) (domain.User, error)
	RevokeToken(ctx context.Context, user domain.User) error
	GetProfile(ctx context.Context, user domain.User) (domain.User, error)
	UpdateProfile(ctx context.Context, user domain.User, patch domain.ProfilePatch) (domain.User, error)
}

// TagServicer is the tag surface the handlers depend on.
type TagServicer interface {
	List(ctx context.Context, user domain.User, assignedOnly bool) ([]domain.Tag, error)
	Create(ctx context.Context, user domain.User, name string) (domain.Tag, error)
	Delete(ctx context.Context, user domain.User, id uuid.UUID) error
}

// IngredientServicer is the ingredient surface the handlers depend on.
type IngredientServicer interface {
	List(ctx context.Context, user domain.User, assignedOnly bool) ([]domain.Ingredient, error)
	Create(ctx context.Context, user domain.User, name string) (domain.Ingredient, error)
	Delete(ctx context.Context, user domain.User, id uuid.UUID) error
}

// RecipeServicer is the recipe surface the handlers depend on.
type RecipeServicer interface {
	List(ctx context.Context, user domain.User, filter domain.RecipeFilter) ([]domain.Recipe, error)
	Get(ctx context.Context, user domain.User, id uuid.UUID) (domain.Recipe, error)
	Create(ctx context.Context, user domain.User, in domain.RecipePatch) (domain.Recipe, error)
	Update(ctx context.Context, user domain.User, id uuid.UUID, patch domain.RecipePatch, partial bool) (domain.Recipe, error)
	UploadImage(ctx context.Context, user domain.User, id uuid.UUID, filename string, data io.Reader) (domain.Recipe, error)
	Delete(ctx context.Context, user domain.User, id uuid.UUID) error
}

// Deps lists everything the router needs. Media, OpenAPI and the size limits
// are optional.
type Deps struct {
	Users       UserServicer
	Tags        TagServicer
	Ingredients IngredientServicer
	Recipes     RecipeServicer

	// ImageURL turns a stored image key into the URL clients fetch it from.
	ImageURL func(key string) string

	// Media serves locally stored uploads under /media/. Nil disables the route.
	Media http.FileSystem

	// OpenAPI is served verbatim at /openapi.yaml when non-empty.
	OpenAPI []byte

	// MaxBodyBytes caps JSON bodies; MaxUploadBytes caps image uploads.
	MaxBodyBytes   int64
	MaxUploadBytes int64

	Logger *slog.Logger
}

const (
	defaultMaxBodyBytes   = 1 << 20  // 1 MiB
	defaultMaxUploadBytes = 10 << 20 // 10 MiB
)

// Server holds the dependencies shared by every handler.
type Server struct {
	users       UserServicer
	tags        TagServicer
	ingredients IngredientServicer
	recipes     RecipeServicer
	imageURL    func(string) string
	logger      *slog.Logger
	auth        *auth.Authenticator
}

// NewServer constructs the Server with all its dependencies.
func NewServer(d Deps) *Server {
	s := &Server{
		users:       d.Users,
		tags:        d.Tags,
		ingredients: d.Ingredients,
		recipes:     d.Recipes,
		imageURL:    d.ImageURL,
		logger:      d.Logger,
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if s.imageURL == nil {
		s.imageURL = func(key string) string { return key }
	}
	s.auth = auth.NewAuthenticator(d.Users, s.writeError)
	return s
}

// NewRouter builds the chi router for every endpoint. Cross-cutting middleware
// (request id, logging, recovery, CORS) is applied by the caller in main.go.
func NewRouter(d Deps) http.Handler {
	s := NewServer(d)

	maxBody := d.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBodyBytes
	}
	maxUpload := d.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = defaultMaxUploadBytes
	}

	r := chi.NewRouter()
	r.NotFound(s.notFound)
	r.MethodNotAllowed(s.methodNotAllowed)

	r.Get("/healthz", s.GetHealth)
	if len(d.OpenAPI) > 0 {
		r.Get("/openapi.yaml", serveOpenAPI(d.OpenAPI))
	}
	if d.Media != nil {
		r.Handle("/media/*", http.StripPrefix("/media/", http.FileServer(filesOnly{d.Media})))
	}

	// JSON endpoints share the small body limit.
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewMaxBodySizeHandler(maxBody))

		r.Post("/users", s.CreateUser)
		r.Post("/users/token", s.CreateToken)
		r.Delete("/users/token", s.auth.Wrap(s.DeleteToken))
		r.Get("/users/me", s.auth.Wrap(s.GetMe))
		r.Patch("/users/me", s.auth.Wrap(s.UpdateMe))

		r.Get("/tags", s.auth.Wrap(s.ListTags))
		r.Post("/tags", s.auth.Wrap(s.CreateTag))
		r.Delete("/tags/{id}", s.auth.Wrap(s.DeleteTag))

		r.Get("/ingredients", s.auth.Wrap(s.ListIngredients))
		r.Post("/ingredients", s.auth.Wrap(s.CreateIngredient))
		r.Delete("/ingredients/{id}", s.auth.Wrap(s.DeleteIngredient))

		r.Get("/recipes", s.auth.Wrap(s.ListRecipes))
		r.Post("/recipes", s.auth.Wrap(s.CreateRecipe))
		r.Get("/recipes/{id}", s.auth.Wrap(s.GetRecipe))
		r.Put("/recipes/{id}", s.auth.Wrap(s.ReplaceRecipe))
		r.Patch("/recipes/{id}", s.auth.Wrap(s.UpdateRecipe))
		r.Delete("/recipes/{id}", s.auth.Wrap(s.DeleteRecipe))
	})

	r.With(middleware.NewMaxBodySizeHandler(maxUpload)).
		Post("/recipes/{id}/image", s.auth.Wrap(s.UploadRecipeImage))

	return r
}

// filesOnly hides directories so /media/ never lists upload keys.
type filesOnly struct {
	fs http.FileSystem
}

func (f filesOnly) Open(name string) (http.File, error) {
	file, err := f.fs.Open(name)
	if err != nil {
		return nil, err
	}
	info, err := file.Stat()
	if err != nil || info.IsDir() {
		_ = file.Close()
		return nil, fs.ErrNotExist
	}
	return file, nil
}

func serveOpenAPI(doc []byte) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = w.Write(doc)
	}
}
