package service

import "github.com/foodgram/foodgram-api/internal/recipe"

// NewFavorites creates the favorites toggle.
func NewFavorites(links LinkStore, recipes *RecipeService) *Toggle[RecipeSummary] {
	return NewToggle(links, recipe.Favorites, recipes.Summary, ToggleMessages{
		Target:        "recipe",
		AlreadyLinked: "recipe is already in favorites",
		NotLinked:     "recipe is not in favorites",
	})
}

// NewShoppingCart creates the shopping cart toggle.
func NewShoppingCart(links LinkStore, recipes *RecipeService) *Toggle[RecipeSummary] {
	return NewToggle(links, recipe.ShoppingCart, recipes.Summary, ToggleMessages{
		Target:        "recipe",
		AlreadyLinked: "recipe is already in the shopping cart",
		NotLinked:     "recipe is not in the shopping cart",
	})
}
