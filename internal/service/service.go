// Package service holds the application logic between the HTTP handlers and the
// Entity Store: link toggles, subscriptions, the recipe read model, the shopping
// list compiler and account management. Every error returned to callers is an
// *apperr.Error or wraps one.
package service

import (
	"context"
	"errors"

	"github.com/foodgram/foodgram-api/internal/apperr"
	"github.com/foodgram/foodgram-api/internal/recipe"
)

// Store is the persistence the services need. *recipe.SQLStore implements it.
type Store interface {
	CreateUser(ctx context.Context, u *recipe.User) error
	GetUser(ctx context.Context, id int64) (*recipe.User, error)
	GetUserByEmail(ctx context.Context, email string) (*recipe.User, error)
	ListUsers(ctx context.Context, limit, offset int) ([]recipe.User, int, error)
	UsersByIDs(ctx context.Context, ids []int64) (map[int64]recipe.User, error)
	UpdatePassword(ctx context.Context, userID int64, hash string) error

	ListTags(ctx context.Context) ([]recipe.Tag, error)
	GetTag(ctx context.Context, id int64) (*recipe.Tag, error)
	CreateTag(ctx context.Context, t *recipe.Tag) error
	ListIngredients(ctx context.Context, prefix string) ([]recipe.Ingredient, error)
	GetIngredient(ctx context.Context, id int64) (*recipe.Ingredient, error)
	CreateIngredient(ctx context.Context, i *recipe.Ingredient) error

	CreateRecipe(ctx context.Context, authorID int64, w recipe.RecipeWrite) (int64, error)
	UpdateRecipe(ctx context.Context, id int64, w recipe.RecipeWrite) error
	DeleteRecipe(ctx context.Context, id int64) error
	GetRecipe(ctx context.Context, id int64) (*recipe.Recipe, error)
	ListRecipes(ctx context.Context, f recipe.RecipeFilter) ([]recipe.Recipe, int, error)
	AuthorRecipes(ctx context.Context, authorID int64, limit int) ([]recipe.Recipe, error)
	CountRecipesByAuthor(ctx context.Context, authorIDs []int64) (map[int64]int, error)
	TagsForRecipes(ctx context.Context, recipeIDs []int64) (map[int64][]recipe.Tag, error)
	IngredientsForRecipes(ctx context.Context, recipeIDs []int64) (map[int64][]recipe.RecipeIngredient, error)

	LinkStore
	ListSubscribedAuthors(ctx context.Context, userID int64, limit, offset int) ([]recipe.User, int, error)

	ShoppingList(ctx context.Context, userID int64) ([]recipe.ShoppingItem, error)
}

// LinkStore reads and writes link rows of a recipe.Relation.
type LinkStore interface {
	LinkExists(ctx context.Context, rel recipe.Relation, owner, target int64) (bool, error)
	LinkedTargets(ctx context.Context, rel recipe.Relation, owner int64, targets []int64) (map[int64]bool, error)
	AddLink(ctx context.Context, rel recipe.Relation, owner, target int64) error
	RemoveLink(ctx context.Context, rel recipe.Relation, owner, target int64) error
}

// Viewer is the caller a request runs as. The zero value is an anonymous visitor.
type Viewer struct {
	ID      int64
	IsStaff bool
}

// Authenticated reports whether the viewer is a signed-in user.
func (v Viewer) Authenticated() bool {
	return v.ID != 0
}

// Page is one page of a paginated listing together with the total number of items.
type Page[T any] struct {
	Count   int
	Results []T
}

// PageRequest selects a 1-based page of Limit items.
type PageRequest struct {
	Page  int
	Limit int
}

func (p PageRequest) offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit
}

// notFound translates recipe.ErrNotFound; any other store failure becomes an internal error.
func notFound(err error, what string) error {
	if errors.Is(err, recipe.ErrNotFound) {
		return apperr.NotFoundf("%s not found", what)
	}
	return internal(err)
}

func internal(err error) error {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}
	return apperr.Internal("internal error", err)
}
