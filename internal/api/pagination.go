package api

import (
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/foodgram/foodgram-api/internal/apperr"
	"github.com/foodgram/foodgram-api/internal/service"
)

// pageResponse is the envelope of every paginated listing.
type pageResponse[T any] struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

// pageRequest reads the 1-based page and limit query parameters.
func (h *Handler) pageRequest(c *gin.Context) (service.PageRequest, error) {
	p := service.PageRequest{Page: 1, Limit: h.opts.PageSize}
	if raw := c.Query("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			return p, apperr.NotFoundf("invalid page")
		}
		p.Page = page
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return p, apperr.Validationf("limit must be a positive integer")
		}
		p.Limit = min(limit, maxPageSize)
	}
	return p, nil
}

// newPage wraps results with links to the neighbouring pages.
func newPage[T any](c *gin.Context, p service.PageRequest, page service.Page[T]) pageResponse[T] {
	resp := pageResponse[T]{Count: page.Count, Results: page.Results}
	if resp.Results == nil {
		resp.Results = []T{}
	}
	if p.Page*p.Limit < page.Count {
		next := pageURL(c, p.Page+1)
		resp.Next = &next
	}
	if p.Page > 1 {
		prev := pageURL(c, p.Page-1)
		resp.Previous = &prev
	}
	return resp
}

func pageURL(c *gin.Context, page int) string {
	u := url.URL{
		Scheme: "http",
		Host:   c.Request.Host,
		Path:   c.Request.URL.Path,
	}
	if c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https" {
		u.Scheme = "https"
	}
	q := c.Request.URL.Query()
	if page == 1 {
		q.Del("page")
	} else {
		q.Set("page", strconv.Itoa(page))
	}
	u.RawQuery = q.Encode()
	return u.String()
}
