package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/foodgram/foodgram-api/internal/apperr"
	"github.com/foodgram/foodgram-api/internal/logger"
	"github.com/foodgram/foodgram-api/internal/platform/pdfreport"
	"github.com/foodgram/foodgram-api/internal/recipe"
	"github.com/foodgram/foodgram-api/internal/service"
)

// ListRecipes handles GET /recipes/.
func (h *Handler) ListRecipes(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	page, err := h.pageRequest(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	q := service.RecipeQuery{
		Tags:             c.QueryArray("tags"),
		IsFavorited:      flagParam(c, "is_favorited"),
		IsInShoppingCart: flagParam(c, "is_in_shopping_cart"),
		PageRequest:      page,
	}
	if raw := c.Query("author"); raw != "" {
		author, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			h.respondError(c, apperr.ValidationWithDetails("invalid query", map[string]string{"author": "must be an integer"}))
			return
		}
		q.AuthorID = author
	}

	result, err := h.Recipes.List(ctx, q, viewer(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newPage(c, page, result))
}

// GetRecipe handles GET /recipes/:id/.
func (h *Handler) GetRecipe(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	id, err := idParam(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}
	view, err := h.Recipes.Get(ctx, id, viewer(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// CreateRecipe handles POST /recipes/.
func (h *Handler) CreateRecipe(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	var in service.RecipeInput
	if err := bindJSON(c, &in); err != nil {
		h.respondError(c, err)
		return
	}
	view, err := h.Recipes.Create(ctx, viewer(c), in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

// UpdateRecipe handles PATCH /recipes/:id/. The payload replaces the recipe
// as a whole; only the image may be left out.
func (h *Handler) UpdateRecipe(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	id, err := idParam(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}
	var in service.RecipeInput
	if err := bindJSON(c, &in); err != nil {
		h.respondError(c, err)
		return
	}
	view, err := h.Recipes.Update(ctx, id, viewer(c), in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// DeleteRecipe handles DELETE /recipes/:id/.
func (h *Handler) DeleteRecipe(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	id, err := idParam(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}
	if err := h.Recipes.Delete(ctx, id, viewer(c)); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// AddFavorite handles POST /recipes/:id/favorite/.
func (h *Handler) AddFavorite(c *gin.Context) { h.addRecipeLink(c, h.Favorites) }

// RemoveFavorite handles DELETE /recipes/:id/favorite/.
func (h *Handler) RemoveFavorite(c *gin.Context) { h.removeRecipeLink(c, h.Favorites) }

// AddToShoppingCart handles POST /recipes/:id/shopping_cart/.
func (h *Handler) AddToShoppingCart(c *gin.Context) { h.addRecipeLink(c, h.ShoppingCart) }

// RemoveFromShoppingCart handles DELETE /recipes/:id/shopping_cart/.
func (h *Handler) RemoveFromShoppingCart(c *gin.Context) { h.removeRecipeLink(c, h.ShoppingCart) }

func (h *Handler) addRecipeLink(c *gin.Context, toggle RecipeToggle) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	id, err := idParam(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}
	summary, err := toggle.Add(ctx, viewer(c).ID, id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, summary)
}

func (h *Handler) removeRecipeLink(c *gin.Context, toggle RecipeToggle) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	id, err := idParam(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}
	if err := toggle.Remove(ctx, viewer(c).ID, id); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DownloadShoppingCart handles GET /recipes/download_shopping_cart/.
// format=txt returns plain text; anything else returns a PDF.
func (h *Handler) DownloadShoppingCart(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	items, err := h.ShoppingList.Compile(ctx, viewer(c))
	if err != nil {
		h.respondError(c, err)
		return
	}

	if strings.EqualFold(c.Query("format"), "txt") {
		sendText(c, items)
		return
	}

	doc, err := h.ShoppingList.RenderPDF(items)
	if errors.Is(err, pdfreport.ErrUnencodable) {
		// Without a TrueType font configured the PDF cannot hold this list.
		logger.FromContext(c, h.log).Warn("shopping list sent as text", zap.Error(err))
		sendText(c, items)
		return
	}
	if err != nil {
		h.respondError(c, err)
		return
	}
	attachment(c, "shopping_cart.pdf")
	c.Data(http.StatusOK, "application/pdf", doc)
}

func sendText(c *gin.Context, items []recipe.ShoppingItem) {
	attachment(c, "shopping_cart.txt")
	c.Data(http.StatusOK, "text/plain; charset=utf-8", service.RenderText(items))
}

func attachment(c *gin.Context, filename string) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
}

// flagParam reads a boolean filter given as 1/0 or true/false.
func flagParam(c *gin.Context, name string) bool {
	switch strings.ToLower(c.Query(name)) {
	case "1", "true":
		return true
	default:
		return false
	}
}
