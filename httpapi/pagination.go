package httpapi

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	defaultPage    = 1
	defaultPerPage = 20
	maxPerPage     = 100
)

// paginationParams reads page/per_page query params, clamping to sane
// defaults rather than rejecting malformed input outright.
func paginationParams(c *gin.Context) (page, perPage int) {
	page = queryInt(c, "page", defaultPage)
	if page < 1 {
		page = defaultPage
	}
	perPage = queryInt(c, "per_page", defaultPerPage)
	if perPage < 1 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	return page, perPage
}

func queryInt(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
