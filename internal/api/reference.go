package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/foodgram/foodgram-api/internal/service"
)

// ListTags handles GET /tags/. Tags are not paginated.
func (h *Handler) ListTags(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	tags, err := h.Reference.ListTags(ctx)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tags)
}

func (h *Handler) GetTag(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	id, err := idParam(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}
	tag, err := h.Reference.GetTag(ctx, id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tag)
}

func (h *Handler) CreateTag(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	var in service.TagInput
	if err := bindJSON(c, &in); err != nil {
		h.respondError(c, err)
		return
	}
	tag, err := h.Reference.CreateTag(ctx, viewer(c), in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tag)
}

// ListIngredients handles GET /ingredients/ with an optional name prefix,
// given as name or search.
func (h *Handler) ListIngredients(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	prefix := c.Query("name")
	if prefix == "" {
		prefix = c.Query("search")
	}
	ingredients, err := h.Reference.ListIngredients(ctx, prefix)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ingredients)
}

func (h *Handler) GetIngredient(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	id, err := idParam(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}
	ingredient, err := h.Reference.GetIngredient(ctx, id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ingredient)
}

func (h *Handler) CreateIngredient(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	var in service.CreateIngredientInput
	if err := bindJSON(c, &in); err != nil {
		h.respondError(c, err)
		return
	}
	ingredient, err := h.Reference.CreateIngredient(ctx, viewer(c), in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ingredient)
}
