package api

import (
	"github.com/gin-gonic/gin"

	"github.com/foodgram/foodgram-api/internal/auth"
)

// Routes registers the API under /api behind middleware, which must include
// auth.Authenticate. Routes that need a signed-in user add auth.RequireAuth.
func (h *Handler) Routes(r gin.IRouter, middleware ...gin.HandlerFunc) {
	api := r.Group("/api", middleware...)
	private := auth.RequireAuth()

	api.POST("/auth/token/login/", h.Login)
	api.POST("/auth/token/logout/", private, h.Logout)

	api.GET("/users/", h.ListUsers)
	api.POST("/users/", h.Register)
	api.GET("/users/me/", private, h.Me)
	api.POST("/users/set_password/", private, h.SetPassword)
	api.GET("/users/subscriptions/", private, h.ListSubscriptions)
	api.GET("/users/:id/", h.GetUser)
	api.POST("/users/:id/subscribe/", private, h.Subscribe)
	api.DELETE("/users/:id/subscribe/", private, h.Unsubscribe)

	api.GET("/tags/", h.ListTags)
	api.POST("/tags/", private, h.CreateTag)
	api.GET("/tags/:id/", h.GetTag)

	api.GET("/ingredients/", h.ListIngredients)
	api.POST("/ingredients/", private, h.CreateIngredient)
	api.GET("/ingredients/:id/", h.GetIngredient)

	api.GET("/recipes/", h.ListRecipes)
	api.POST("/recipes/", private, h.CreateRecipe)
	api.GET("/recipes/download_shopping_cart/", private, h.DownloadShoppingCart)
	api.GET("/recipes/:id/", h.GetRecipe)
	api.PATCH("/recipes/:id/", private, h.UpdateRecipe)
	api.DELETE("/recipes/:id/", private, h.DeleteRecipe)
	api.POST("/recipes/:id/favorite/", private, h.AddFavorite)
	api.DELETE("/recipes/:id/favorite/", private, h.RemoveFavorite)
	api.POST("/recipes/:id/shopping_cart/", private, h.AddToShoppingCart)
	api.DELETE("/recipes/:id/shopping_cart/", private, h.RemoveFromShoppingCart)
}
