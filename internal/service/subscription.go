package service

import (
	"context"

	"github.com/foodgram/foodgram-api/internal/apperr"
	"github.com/foodgram/foodgram-api/internal/recipe"
)

// SubscriptionView is a followed author with a preview of their recipes.
type SubscriptionView struct {
	UserView
	Recipes      []RecipeSummary `json:"recipes"`
	RecipesCount int             `json:"recipes_count"`
}

// SubscriptionService manages who follows whom.
type SubscriptionService struct {
	store   Store
	recipes *RecipeService
	links   *Toggle[*recipe.User]
}

// NewSubscriptionService creates a SubscriptionService. recipes renders the recipe previews.
func NewSubscriptionService(store Store, recipes *RecipeService) *SubscriptionService {
	return &SubscriptionService{
		store:   store,
		recipes: recipes,
		links: NewToggle(store, recipe.Subscriptions, store.GetUser, ToggleMessages{
			Target:        "user",
			AlreadyLinked: "you are already subscribed to this author",
			NotLinked:     "you are not subscribed to this author",
		}),
	}
}

// Subscribe makes follower follow authorID. Following yourself is rejected.
// recipesLimit caps the recipe preview; <= 0 returns every recipe.
func (s *SubscriptionService) Subscribe(ctx context.Context, follower Viewer, authorID int64, recipesLimit int) (*SubscriptionView, error) {
	if !follower.Authenticated() {
		return nil, apperr.ErrUnauthorized
	}
	if follower.ID == authorID {
		return nil, apperr.Validation("you cannot subscribe to yourself")
	}

	author, err := s.links.Add(ctx, follower.ID, authorID)
	if err != nil {
		return nil, err
	}
	views, err := s.views(ctx, []recipe.User{*author}, recipesLimit)
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// Unsubscribe removes the follow of authorID by follower.
func (s *SubscriptionService) Unsubscribe(ctx context.Context, follower Viewer, authorID int64) error {
	if !follower.Authenticated() {
		return apperr.ErrUnauthorized
	}
	return s.links.Remove(ctx, follower.ID, authorID)
}

// List returns one page of the authors follower follows.
func (s *SubscriptionService) List(ctx context.Context, follower Viewer, p PageRequest, recipesLimit int) (Page[SubscriptionView], error) {
	if !follower.Authenticated() {
		return Page[SubscriptionView]{}, apperr.ErrUnauthorized
	}

	authors, total, err := s.store.ListSubscribedAuthors(ctx, follower.ID, p.Limit, p.offset())
	if err != nil {
		return Page[SubscriptionView]{}, internal(err)
	}
	views, err := s.views(ctx, authors, recipesLimit)
	if err != nil {
		return Page[SubscriptionView]{}, err
	}
	return Page[SubscriptionView]{Count: total, Results: views}, nil
}

// views renders followed authors; is_subscribed is always true here.
func (s *SubscriptionService) views(ctx context.Context, authors []recipe.User, recipesLimit int) ([]SubscriptionView, error) {
	ids := make([]int64, len(authors))
	for i, a := range authors {
		ids[i] = a.ID
	}
	counts, err := s.store.CountRecipesByAuthor(ctx, ids)
	if err != nil {
		return nil, internal(err)
	}

	views := make([]SubscriptionView, len(authors))
	for i, a := range authors {
		recipes, err := s.store.AuthorRecipes(ctx, a.ID, recipesLimit)
		if err != nil {
			return nil, internal(err)
		}
		summaries := make([]RecipeSummary, len(recipes))
		for j, r := range recipes {
			summaries[j] = s.recipes.summarize(r)
		}
		views[i] = SubscriptionView{
			UserView:     newUserView(a, true),
			Recipes:      summaries,
			RecipesCount: counts[a.ID],
		}
	}
	return views, nil
}
