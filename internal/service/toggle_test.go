package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foodgram/foodgram-api/internal/apperr"
	"github.com/foodgram/foodgram-api/internal/recipe"
)

func countLinks(t *testing.T, e *env, rel recipe.Relation, owner, target int64) int {
	t.Helper()
	ok, err := e.store.LinkExists(context.Background(), rel, owner, target)
	require.NoError(t, err)
	if ok {
		return 1
	}
	return 0
}

func TestRecipeTogglesAddRemove(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	r := e.create(t, e.alice, "soup", []int64{e.lunch.ID}, IngredientInput{ID: e.salt.ID, Amount: 10})

	toggles := map[string]struct {
		toggle *Toggle[RecipeSummary]
		rel    recipe.Relation
	}{
		"favorites":     {e.favorites, recipe.Favorites},
		"shopping cart": {e.cart, recipe.ShoppingCart},
	}
	for name, tt := range toggles {
		t.Run(name, func(t *testing.T) {
			summary, err := tt.toggle.Add(ctx, e.bob.ID, r.ID)
			require.NoError(t, err)
			assert.Equal(t, RecipeSummary{ID: r.ID, Name: "soup", Image: r.Image, CookingTime: 15}, summary)
			assert.Equal(t, 1, countLinks(t, e, tt.rel, e.bob.ID, r.ID))

			_, err = tt.toggle.Add(ctx, e.bob.ID, r.ID)
			assertCode(t, err, apperr.CodeConflict)
			assert.Equal(t, 400, apperr.CodeConflict.HTTPStatus())
			assert.Equal(t, 1, countLinks(t, e, tt.rel, e.bob.ID, r.ID))

			require.NoError(t, tt.toggle.Remove(ctx, e.bob.ID, r.ID))
			assert.Equal(t, 0, countLinks(t, e, tt.rel, e.bob.ID, r.ID))

			assertCode(t, tt.toggle.Remove(ctx, e.bob.ID, r.ID), apperr.CodeConflict)
		})
	}
}

func TestTogglesAreIndependent(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	r := e.create(t, e.alice, "soup", []int64{e.lunch.ID}, IngredientInput{ID: e.salt.ID, Amount: 10})

	_, err := e.favorites.Add(ctx, e.bob.ID, r.ID)
	require.NoError(t, err)

	inCart, err := e.cart.Linked(ctx, e.bob.ID, r.ID)
	require.NoError(t, err)
	assert.False(t, inCart)

	_, err = e.cart.Add(ctx, e.bob.ID, r.ID)
	require.NoError(t, err)
	_, err = e.favorites.Add(ctx, e.alice.ID, r.ID)
	require.NoError(t, err)

	require.NoError(t, e.favorites.Remove(ctx, e.bob.ID, r.ID))
	inCart, err = e.cart.Linked(ctx, e.bob.ID, r.ID)
	require.NoError(t, err)
	assert.True(t, inCart)
	aliceFav, err := e.favorites.Linked(ctx, e.alice.ID, r.ID)
	require.NoError(t, err)
	assert.True(t, aliceFav)

	anon, err := e.favorites.Linked(ctx, 0, r.ID)
	require.NoError(t, err)
	assert.False(t, anon)
}

func TestToggleMissingRecipe(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.favorites.Add(ctx, e.bob.ID, 999)
	assertCode(t, err, apperr.CodeNotFound)
	assertCode(t, e.cart.Remove(ctx, e.bob.ID, 999), apperr.CodeNotFound)
}

func TestSubscribeUnsubscribe(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	first := e.create(t, e.alice, "soup", []int64{e.lunch.ID}, IngredientInput{ID: e.salt.ID, Amount: 10})
	second := e.create(t, e.alice, "bread", []int64{e.lunch.ID}, IngredientInput{ID: e.flour.ID, Amount: 300})

	view, err := e.subscriptions.Subscribe(ctx, e.bob, e.alice.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, e.alice.ID, view.ID)
	assert.Equal(t, "alice", view.Username)
	assert.True(t, view.IsSubscribed)
	assert.Equal(t, 2, view.RecipesCount)
	require.Len(t, view.Recipes, 1)
	assert.Equal(t, second.ID, view.Recipes[0].ID)
	assert.Equal(t, 1, countLinks(t, e, recipe.Subscriptions, e.bob.ID, e.alice.ID))

	_, err = e.subscriptions.Subscribe(ctx, e.bob, e.alice.ID, 0)
	assertCode(t, err, apperr.CodeConflict)

	page, err := e.subscriptions.List(ctx, e.bob, PageRequest{Page: 1, Limit: 10}, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Count)
	require.Len(t, page.Results, 1)
	assert.Len(t, page.Results[0].Recipes, 2)
	assert.Equal(t, first.ID, page.Results[0].Recipes[1].ID)

	require.NoError(t, e.subscriptions.Unsubscribe(ctx, e.bob, e.alice.ID))
	assert.Equal(t, 0, countLinks(t, e, recipe.Subscriptions, e.bob.ID, e.alice.ID))
	assertCode(t, e.subscriptions.Unsubscribe(ctx, e.bob, e.alice.ID), apperr.CodeConflict)
}

func TestSubscribeRejections(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.subscriptions.Subscribe(ctx, e.alice, e.alice.ID, 0)
	assertCode(t, err, apperr.CodeValidation)
	assert.Equal(t, 0, countLinks(t, e, recipe.Subscriptions, e.alice.ID, e.alice.ID))

	_, err = e.subscriptions.Subscribe(ctx, e.alice, 999, 0)
	assertCode(t, err, apperr.CodeNotFound)

	_, err = e.subscriptions.Subscribe(ctx, Viewer{}, e.alice.ID, 0)
	assertCode(t, err, apperr.CodeUnauthorized)

	assertCode(t, e.subscriptions.Unsubscribe(ctx, e.alice, 999), apperr.CodeNotFound)
}

func TestToggleTargetDeletedBeforeInsert(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	r := e.create(t, e.alice, "soup", []int64{e.lunch.ID}, IngredientInput{ID: e.salt.ID, Amount: 10})

	vanishing := NewToggle(e.store, recipe.Favorites, func(ctx context.Context, id int64) (RecipeSummary, error) {
		summary, err := e.recipes.Summary(ctx, id)
		if err != nil {
			return summary, err
		}
		require.NoError(t, e.store.DeleteRecipe(ctx, id))
		return summary, nil
	}, ToggleMessages{Target: "recipe", AlreadyLinked: "already", NotLinked: "not linked"})

	_, err := vanishing.Add(ctx, e.bob.ID, r.ID)
	assertCode(t, err, apperr.CodeNotFound)
	assert.Zero(t, countLinks(t, e, recipe.Favorites, e.bob.ID, r.ID))
}
