package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"expertcheck/internal/logger"
	"expertcheck/internal/query"
)

// LibraryHandler serves the dashboard and library read views.
type LibraryHandler struct {
	queries *query.Service
	log     logger.Logger
}

func NewLibraryHandler(queries *query.Service, log logger.Logger) *LibraryHandler {
	return &LibraryHandler{queries: queries, log: log}
}

// Stats handles GET /dashboard/stats.
func (h *LibraryHandler) Stats(c *gin.Context) {
	stats, err := h.queries.DashboardStats(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Pending handles GET /dashboard/pending.
func (h *LibraryHandler) Pending(c *gin.Context) {
	items, err := h.queries.PendingItems(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

// Search handles GET /library?q=&tag=.
func (h *LibraryHandler) Search(c *gin.Context) {
	entries, err := h.queries.SearchLibrary(c.Request.Context(), c.Query("q"), c.DefaultQuery("tag", query.AllTags))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

// Tags handles GET /library/tags.
func (h *LibraryHandler) Tags(c *gin.Context) {
	tags, err := h.queries.LibraryTags(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, tags)
}
