package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foodgram/foodgram-api/internal/apperr"
	"github.com/foodgram/foodgram-api/internal/recipe"
)

func TestCreateThenRead(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	created := e.create(t, e.alice, "soup", []int64{e.lunch.ID, e.breakfast.ID},
		IngredientInput{ID: e.salt.ID, Amount: 10},
		IngredientInput{ID: e.flour.ID, Amount: 250},
	)

	for _, viewer := range []Viewer{{}, e.alice, e.bob} {
		got, err := e.recipes.Get(ctx, created.ID, viewer)
		require.NoError(t, err)

		assert.Equal(t, "soup", got.Name)
		assert.Equal(t, "/media/recipes/images/1.png", got.Image)
		assert.Equal(t, 15, got.CookingTime)
		assert.Equal(t, []recipe.Tag{e.breakfast, e.lunch}, got.Tags)
		assert.Equal(t, []recipe.RecipeIngredient{
			{RecipeID: created.ID, ID: e.salt.ID, Name: "Salt", MeasurementUnit: "g", Amount: 10},
			{RecipeID: created.ID, ID: e.flour.ID, Name: "Flour", MeasurementUnit: "g", Amount: 250},
		}, got.Ingredients)
		assert.False(t, got.IsFavorited)
		assert.False(t, got.IsInShoppingCart)
		assert.Equal(t, e.alice.ID, got.Author.ID)
		assert.False(t, got.Author.IsSubscribed)
	}
}

func TestViewerFlags(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	r := e.create(t, e.alice, "soup", []int64{e.lunch.ID}, IngredientInput{ID: e.salt.ID, Amount: 10})

	_, err := e.favorites.Add(ctx, e.bob.ID, r.ID)
	require.NoError(t, err)
	_, err = e.subscriptions.Subscribe(ctx, e.bob, e.alice.ID, 0)
	require.NoError(t, err)

	bobView, err := e.recipes.Get(ctx, r.ID, e.bob)
	require.NoError(t, err)
	assert.True(t, bobView.IsFavorited)
	assert.False(t, bobView.IsInShoppingCart)
	assert.True(t, bobView.Author.IsSubscribed)

	anon, err := e.recipes.Get(ctx, r.ID, Viewer{})
	require.NoError(t, err)
	assert.False(t, anon.IsFavorited)
	assert.False(t, anon.Author.IsSubscribed)
}

func TestFlagsFor(t *testing.T) {
	fav := map[int64]bool{1: true}
	cart := map[int64]bool{2: true}
	assert.Equal(t, Flags{IsFavorited: true}, flagsFor(1, fav, cart))
	assert.Equal(t, Flags{IsInShoppingCart: true}, flagsFor(2, fav, cart))
	assert.Equal(t, Flags{}, flagsFor(3, fav, cart))
	assert.Equal(t, Flags{}, flagsFor(1, nil, nil))
}

func TestUpdateReplacesIngredientsAndTags(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	r := e.create(t, e.alice, "soup", []int64{e.lunch.ID, e.breakfast.ID},
		IngredientInput{ID: e.salt.ID, Amount: 2},
		IngredientInput{ID: e.flour.ID, Amount: 3},
	)

	in := e.input("soup", []int64{e.lunch.ID}, IngredientInput{ID: e.salt.ID, Amount: 5})
	in.Image = ""
	updated, err := e.recipes.Update(ctx, r.ID, e.alice, in)
	require.NoError(t, err)

	require.Len(t, updated.Ingredients, 1)
	assert.Equal(t, e.salt.ID, updated.Ingredients[0].ID)
	assert.Equal(t, 5, updated.Ingredients[0].Amount)
	assert.Equal(t, []recipe.Tag{e.lunch}, updated.Tags)
	assert.Equal(t, r.Image, updated.Image)
	assert.Empty(t, e.images.removed)
}

func TestUpdateWithNewImageRemovesOld(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	r := e.create(t, e.alice, "soup", []int64{e.lunch.ID}, IngredientInput{ID: e.salt.ID, Amount: 2})

	updated, err := e.recipes.Update(ctx, r.ID, e.alice, e.input("soup", []int64{e.lunch.ID}, IngredientInput{ID: e.salt.ID, Amount: 2}))
	require.NoError(t, err)
	assert.Equal(t, "/media/recipes/images/2.png", updated.Image)
	assert.Equal(t, []string{"recipes/images/1.png"}, e.images.removed)
}

func TestWritePermissions(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	r := e.create(t, e.alice, "soup", []int64{e.lunch.ID}, IngredientInput{ID: e.salt.ID, Amount: 2})
	in := e.input("changed", []int64{e.lunch.ID}, IngredientInput{ID: e.salt.ID, Amount: 2})

	_, err := e.recipes.Update(ctx, r.ID, e.bob, in)
	assertCode(t, err, apperr.CodeForbidden)
	assertCode(t, e.recipes.Delete(ctx, r.ID, e.bob), apperr.CodeForbidden)
	assertCode(t, e.recipes.Delete(ctx, r.ID, Viewer{}), apperr.CodeUnauthorized)

	_, err = e.recipes.Create(ctx, Viewer{}, in)
	assertCode(t, err, apperr.CodeUnauthorized)

	updated, err := e.recipes.Update(ctx, r.ID, e.staff, in)
	require.NoError(t, err)
	assert.Equal(t, "changed", updated.Name)
	assert.Equal(t, e.alice.ID, updated.Author.ID)

	require.NoError(t, e.recipes.Delete(ctx, r.ID, e.alice))
	_, err = e.recipes.Get(ctx, r.ID, Viewer{})
	assertCode(t, err, apperr.CodeNotFound)
	assertCode(t, e.recipes.Delete(ctx, r.ID, e.alice), apperr.CodeNotFound)
}

func TestBoundsRejectWithoutWriting(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	zeroTime := e.input("soup", []int64{e.lunch.ID}, IngredientInput{ID: e.salt.ID, Amount: 2})
	zeroTime.CookingTime = 0
	_, err := e.recipes.Create(ctx, e.alice, zeroTime)
	assertCode(t, err, apperr.CodeValidation)
	assert.Contains(t, fieldErrors(t, err), "cooking_time")

	zeroAmount := e.input("soup", []int64{e.lunch.ID}, IngredientInput{ID: e.salt.ID, Amount: 0})
	_, err = e.recipes.Create(ctx, e.alice, zeroAmount)
	assertCode(t, err, apperr.CodeValidation)
	assert.Contains(t, fieldErrors(t, err), "ingredients[0].amount")

	tooLong := e.input("soup", []int64{e.lunch.ID}, IngredientInput{ID: e.salt.ID, Amount: 32001})
	_, err = e.recipes.Create(ctx, e.alice, tooLong)
	assertCode(t, err, apperr.CodeValidation)

	page, err := e.recipes.List(ctx, RecipeQuery{PageRequest: PageRequest{Page: 1, Limit: 10}}, Viewer{})
	require.NoError(t, err)
	assert.Zero(t, page.Count)
	assert.Empty(t, e.images.saved)

	r := e.create(t, e.alice, "soup", []int64{e.lunch.ID}, IngredientInput{ID: e.salt.ID, Amount: 2})
	zeroAmount.Image = ""
	_, err = e.recipes.Update(ctx, r.ID, e.alice, zeroAmount)
	assertCode(t, err, apperr.CodeValidation)

	got, err := e.recipes.Get(ctx, r.ID, Viewer{})
	require.NoError(t, err)
	assert.Equal(t, 2, got.Ingredients[0].Amount)
}

func TestCustomLimits(t *testing.T) {
	e := newEnv(t)
	e.recipes.limits = Limits{Min: 1, Max: 100}

	in := e.input("soup", []int64{e.lunch.ID}, IngredientInput{ID: e.salt.ID, Amount: 150})
	_, err := e.recipes.Create(context.Background(), e.alice, in)
	assert.Equal(t, "must be between 1 and 100", fieldErrors(t, err)["ingredients[0].amount"])
}

func TestCreateRejectsBadReferences(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	dupIngredients := e.input("soup", []int64{e.lunch.ID},
		IngredientInput{ID: e.salt.ID, Amount: 2},
		IngredientInput{ID: e.salt.ID, Amount: 3},
	)
	_, err := e.recipes.Create(ctx, e.alice, dupIngredients)
	assert.Contains(t, fieldErrors(t, err), "ingredients")

	dupTags := e.input("soup", []int64{e.lunch.ID, e.lunch.ID}, IngredientInput{ID: e.salt.ID, Amount: 2})
	_, err = e.recipes.Create(ctx, e.alice, dupTags)
	assert.Contains(t, fieldErrors(t, err), "tags")

	unknownIngredient := e.input("soup", []int64{e.lunch.ID}, IngredientInput{ID: 999, Amount: 2})
	_, err = e.recipes.Create(ctx, e.alice, unknownIngredient)
	assertCode(t, err, apperr.CodeValidation)
	assert.Contains(t, fieldErrors(t, err), "ingredients")

	unknownTag := e.input("soup", []int64{999}, IngredientInput{ID: e.salt.ID, Amount: 2})
	_, err = e.recipes.Create(ctx, e.alice, unknownTag)
	assert.Contains(t, fieldErrors(t, err), "tags")

	noImage := e.input("soup", []int64{e.lunch.ID}, IngredientInput{ID: e.salt.ID, Amount: 2})
	noImage.Image = ""
	_, err = e.recipes.Create(ctx, e.alice, noImage)
	assert.Equal(t, "this field is required", fieldErrors(t, err)["image"])

	badImage := e.input("soup", []int64{e.lunch.ID}, IngredientInput{ID: e.salt.ID, Amount: 2})
	badImage.Image = "not-an-image"
	_, err = e.recipes.Create(ctx, e.alice, badImage)
	assert.Contains(t, fieldErrors(t, err), "image")

	empty := e.input("", nil)
	_, err = e.recipes.Create(ctx, e.alice, empty)
	fields := fieldErrors(t, err)
	assert.Contains(t, fields, "name")
	assert.Contains(t, fields, "tags")
	assert.Contains(t, fields, "ingredients")

	// Images saved for payloads rejected by the store are cleaned up.
	assert.Equal(t, e.images.saved, e.images.removed)
}

func TestListFilters(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	salt := IngredientInput{ID: e.salt.ID, Amount: 1}

	soup := e.create(t, e.alice, "soup", []int64{e.lunch.ID}, salt)
	eggs := e.create(t, e.alice, "eggs", []int64{e.breakfast.ID}, salt)
	bread := e.create(t, e.bob, "bread", []int64{e.lunch.ID, e.breakfast.ID}, salt)
	e.create(t, e.bob, "plain", []int64{e.lunch.ID}, salt)

	_, err := e.favorites.Add(ctx, e.bob.ID, soup.ID)
	require.NoError(t, err)
	_, err = e.cart.Add(ctx, e.bob.ID, eggs.ID)
	require.NoError(t, err)

	ids := func(p Page[RecipeView]) []int64 {
		out := make([]int64, len(p.Results))
		for i, r := range p.Results {
			out[i] = r.ID
		}
		return out
	}
	page := PageRequest{Page: 1, Limit: 10}

	union, err := e.recipes.List(ctx, RecipeQuery{Tags: []string{"breakfast"}, PageRequest: page}, Viewer{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{eggs.ID, bread.ID}, ids(union))

	both, err := e.recipes.List(ctx, RecipeQuery{Tags: []string{"breakfast", "lunch"}, PageRequest: page}, Viewer{})
	require.NoError(t, err)
	assert.Equal(t, 4, both.Count)

	_, err = e.recipes.List(ctx, RecipeQuery{Tags: []string{"breakfast", "dinner"}, PageRequest: page}, Viewer{})
	assert.Contains(t, fieldErrors(t, err), "tags")

	byAuthor, err := e.recipes.List(ctx, RecipeQuery{AuthorID: e.alice.ID, PageRequest: page}, Viewer{})
	require.NoError(t, err)
	assert.Equal(t, []int64{eggs.ID, soup.ID}, ids(byAuthor))

	fav, err := e.recipes.List(ctx, RecipeQuery{IsFavorited: true, PageRequest: page}, e.bob)
	require.NoError(t, err)
	assert.Equal(t, []int64{soup.ID}, ids(fav))
	assert.True(t, fav.Results[0].IsFavorited)

	cart, err := e.recipes.List(ctx, RecipeQuery{IsInShoppingCart: true, PageRequest: page}, e.bob)
	require.NoError(t, err)
	assert.Equal(t, []int64{eggs.ID}, ids(cart))

	anonFav, err := e.recipes.List(ctx, RecipeQuery{IsFavorited: true, PageRequest: page}, Viewer{})
	require.NoError(t, err)
	assert.Equal(t, 4, anonFav.Count)

	second, err := e.recipes.List(ctx, RecipeQuery{PageRequest: PageRequest{Page: 2, Limit: 3}}, Viewer{})
	require.NoError(t, err)
	assert.Equal(t, 4, second.Count)
	assert.Equal(t, []int64{soup.ID}, ids(second))
}
