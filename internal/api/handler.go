package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/foodgram/foodgram-api/internal/apperr"
	"github.com/foodgram/foodgram-api/internal/auth"
	"github.com/foodgram/foodgram-api/internal/logger"
	"github.com/foodgram/foodgram-api/internal/recipe"
	"github.com/foodgram/foodgram-api/internal/service"
)

// RecipeService defines the recipe read model and write operations.
type RecipeService interface {
	Get(ctx context.Context, id int64, viewer service.Viewer) (*service.RecipeView, error)
	List(ctx context.Context, q service.RecipeQuery, viewer service.Viewer) (service.Page[service.RecipeView], error)
	Create(ctx context.Context, viewer service.Viewer, in service.RecipeInput) (*service.RecipeView, error)
	Update(ctx context.Context, id int64, viewer service.Viewer, in service.RecipeInput) (*service.RecipeView, error)
	Delete(ctx context.Context, id int64, viewer service.Viewer) error
}

// RecipeToggle defines a per-user recipe link such as favorites or the shopping cart.
type RecipeToggle interface {
	Add(ctx context.Context, userID, recipeID int64) (service.RecipeSummary, error)
	Remove(ctx context.Context, userID, recipeID int64) error
}

// SubscriptionService defines author subscriptions.
type SubscriptionService interface {
	Subscribe(ctx context.Context, follower service.Viewer, authorID int64, recipesLimit int) (*service.SubscriptionView, error)
	Unsubscribe(ctx context.Context, follower service.Viewer, authorID int64) error
	List(ctx context.Context, follower service.Viewer, p service.PageRequest, recipesLimit int) (service.Page[service.SubscriptionView], error)
}

// ShoppingList defines the shopping list download.
type ShoppingList interface {
	Compile(ctx context.Context, viewer service.Viewer) ([]recipe.ShoppingItem, error)
	RenderPDF(items []recipe.ShoppingItem) ([]byte, error)
}

// UserService defines accounts and token login.
type UserService interface {
	Register(ctx context.Context, in service.RegisterInput) (*service.RegisteredUser, error)
	Login(ctx context.Context, in service.LoginInput) (string, error)
	SetPassword(ctx context.Context, viewer service.Viewer, in service.SetPasswordInput) error
	Get(ctx context.Context, id int64, viewer service.Viewer) (*service.UserView, error)
	List(ctx context.Context, p service.PageRequest, viewer service.Viewer) (service.Page[service.UserView], error)
}

// ReferenceService defines tags and ingredients.
type ReferenceService interface {
	ListTags(ctx context.Context) ([]recipe.Tag, error)
	GetTag(ctx context.Context, id int64) (*recipe.Tag, error)
	CreateTag(ctx context.Context, viewer service.Viewer, in service.TagInput) (*recipe.Tag, error)
	ListIngredients(ctx context.Context, prefix string) ([]recipe.Ingredient, error)
	GetIngredient(ctx context.Context, id int64) (*recipe.Ingredient, error)
	CreateIngredient(ctx context.Context, viewer service.Viewer, in service.CreateIngredientInput) (*recipe.Ingredient, error)
}

// TokenRevoker invalidates a token on logout.
type TokenRevoker interface {
	Revoke(claims *auth.Claims)
}

// Services groups everything the handlers call.
type Services struct {
	Recipes       RecipeService
	Favorites     RecipeToggle
	ShoppingCart  RecipeToggle
	Subscriptions SubscriptionService
	ShoppingList  ShoppingList
	Users         UserService
	Reference     ReferenceService
	Tokens        TokenRevoker
}

// Options tunes request handling.
type Options struct {
	RequestTimeout time.Duration
	PageSize       int
}

const maxPageSize = 100

// Handler handles HTTP requests.
type Handler struct {
	Services
	log  *zap.Logger
	opts Options
}

// NewHandler creates a new Handler.
func NewHandler(services Services, log *zap.Logger, opts Options) *Handler {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 5 * time.Second
	}
	if opts.PageSize <= 0 {
		opts.PageSize = 6
	}
	return &Handler{Services: services, log: log, opts: opts}
}

// requestContext returns the request context bounded by the configured timeout.
func (h *Handler) requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), h.opts.RequestTimeout)
}

// viewer returns the caller of the request; anonymous when no token was sent.
func viewer(c *gin.Context) service.Viewer {
	u, ok := auth.CurrentUser(c)
	if !ok {
		return service.Viewer{}
	}
	return service.Viewer{ID: u.ID, IsStaff: u.IsStaff}
}

// idParam parses a positive integer path parameter.
func idParam(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.NotFoundf("not found")
	}
	return id, nil
}

// bindJSON decodes the request body into dst.
func bindJSON(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		return apperr.Validationf("invalid request body: %v", err)
	}
	return nil
}

// respondError writes err using its apperr status. Unknown errors are logged and
// reported as 500; timeouts as 408.
func (h *Handler) respondError(c *gin.Context, err error) {
	var appErr *apperr.Error
	switch {
	case errors.As(err, &appErr):
		if appErr.Code == apperr.CodeInternal {
			logger.FromContext(c, h.log).Error("request failed", zap.Error(err))
		}
		body := gin.H{"detail": appErr.Message}
		if appErr.Details != nil {
			body["errors"] = appErr.Details
		}
		c.AbortWithStatusJSON(appErr.HTTPStatus(), body)
	case errors.Is(err, context.DeadlineExceeded):
		logger.FromContext(c, h.log).Warn("request timed out", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusRequestTimeout, gin.H{"detail": "request timed out"})
	default:
		logger.FromContext(c, h.log).Error("request failed", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"detail": "internal error"})
	}
}
