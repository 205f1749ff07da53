package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/foodgram/foodgram-api/internal/apperr"
	"github.com/foodgram/foodgram-api/internal/auth"
	"github.com/foodgram/foodgram-api/internal/service"
)

// Register handles POST /users/.
func (h *Handler) Register(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	var in service.RegisterInput
	if err := bindJSON(c, &in); err != nil {
		h.respondError(c, err)
		return
	}
	user, err := h.Users.Register(ctx, in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

// ListUsers handles GET /users/.
func (h *Handler) ListUsers(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	page, err := h.pageRequest(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	result, err := h.Users.List(ctx, page, viewer(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newPage(c, page, result))
}

// GetUser handles GET /users/:id/.
func (h *Handler) GetUser(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	id, err := idParam(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}
	user, err := h.Users.Get(ctx, id, viewer(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// Me handles GET /users/me/.
func (h *Handler) Me(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	v := viewer(c)
	user, err := h.Users.Get(ctx, v.ID, v)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// SetPassword handles POST /users/set_password/.
func (h *Handler) SetPassword(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	var in service.SetPasswordInput
	if err := bindJSON(c, &in); err != nil {
		h.respondError(c, err)
		return
	}
	if err := h.Users.SetPassword(ctx, viewer(c), in); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Subscribe handles POST /users/:id/subscribe/.
func (h *Handler) Subscribe(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	id, err := idParam(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}
	limit, err := recipesLimit(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	sub, err := h.Subscriptions.Subscribe(ctx, viewer(c), id, limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sub)
}

// Unsubscribe handles DELETE /users/:id/subscribe/.
func (h *Handler) Unsubscribe(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	id, err := idParam(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}
	if err := h.Subscriptions.Unsubscribe(ctx, viewer(c), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListSubscriptions handles GET /users/subscriptions/.
func (h *Handler) ListSubscriptions(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	page, err := h.pageRequest(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	limit, err := recipesLimit(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	result, err := h.Subscriptions.List(ctx, viewer(c), page, limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newPage(c, page, result))
}

// Login handles POST /auth/token/login/.
func (h *Handler) Login(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	var in service.LoginInput
	if err := bindJSON(c, &in); err != nil {
		h.respondError(c, err)
		return
	}
	token, err := h.Users.Login(ctx, in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"auth_token": token})
}

// Logout handles POST /auth/token/logout/.
func (h *Handler) Logout(c *gin.Context) {
	claims, ok := auth.CurrentClaims(c)
	if !ok {
		h.respondError(c, apperr.ErrUnauthorized)
		return
	}
	h.Tokens.Revoke(claims)
	c.Status(http.StatusNoContent)
}

// recipesLimit reads the optional recipes_limit query parameter; 0 means no cap.
func recipesLimit(c *gin.Context) (int, error) {
	raw := c.Query("recipes_limit")
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, apperr.ValidationWithDetails("invalid query", map[string]string{"recipes_limit": "must be a non-negative integer"})
	}
	return n, nil
}
