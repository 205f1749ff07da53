package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/foodgram/foodgram-api/internal/recipe"
)

const (
	userKey   = "auth_user"
	claimsKey = "auth_claims"
)

// UserLookup loads the user a token was issued to.
type UserLookup interface {
	GetUser(ctx context.Context, id int64) (*recipe.User, error)
}

// Authenticate resolves the user from the Authorization header ("Token <t>" or
// "Bearer <t>"). Requests without the header continue anonymously; a header
// carrying a bad token is rejected with 401.
func Authenticate(tokens *Tokens, users UserLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Next()
			return
		}

		scheme, token, ok := strings.Cut(header, " ")
		if !ok || (!strings.EqualFold(scheme, "Token") && !strings.EqualFold(scheme, "Bearer")) {
			abort(c, "invalid authorization header")
			return
		}

		claims, err := tokens.Verify(strings.TrimSpace(token))
		if err != nil {
			abort(c, err.Error())
			return
		}

		user, err := users.GetUser(c.Request.Context(), claims.UserID())
		if err != nil {
			if errors.Is(err, recipe.ErrNotFound) {
				abort(c, "user not found")
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"detail": "internal error"})
			return
		}

		c.Set(userKey, user)
		c.Set(claimsKey, claims)
		c.Next()
	}
}

// RequireAuth rejects anonymous requests. It must run after Authenticate.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := CurrentUser(c); !ok {
			abort(c, "authentication credentials were not provided")
			return
		}
		c.Next()
	}
}

// CurrentUser returns the authenticated user of the request, if any.
func CurrentUser(c *gin.Context) (*recipe.User, bool) {
	v, ok := c.Get(userKey)
	if !ok {
		return nil, false
	}
	u, ok := v.(*recipe.User)
	return u, ok
}

// CurrentClaims returns the verified token claims of the request, if any.
func CurrentClaims(c *gin.Context) (*Claims, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*Claims)
	return claims, ok
}

func abort(c *gin.Context, detail string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": detail})
}
