// Package api exposes the workflow, query and catalog services over HTTP.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"expertcheck/internal/catalog"
	"expertcheck/internal/logger"
	"expertcheck/internal/metrics"
	"expertcheck/internal/query"
	"expertcheck/internal/workflow"
)

// Deps are the services and settings the router is built from. Metrics and
// Gatherer may be nil to disable instrumentation.
type Deps struct {
	Engine      *workflow.Engine
	Queries     *query.Service
	Catalog     *catalog.Service
	Metrics     *metrics.Metrics
	Gatherer    prometheus.Gatherer
	MetricsPath string
	APIKeys     map[string]struct{}
	Log         logger.Logger
}

// NewRouter wires every route.
func NewRouter(d Deps) *gin.Engine {
	router := gin.New()
	router.Use(requestLogger(d.Log))
	router.Use(gin.Recovery())
	if d.Metrics != nil {
		router.Use(requestMetrics(d.Metrics))
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if d.Gatherer != nil {
		path := d.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		router.GET(path, gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	v1 := router.Group("/api/v1")
	v1.Use(apiKeyAuth(d.APIKeys))

	contentHandler := NewContentHandler(d.Engine, d.Queries, d.Log)
	content := v1.Group("/content")
	content.POST("", contentHandler.Submit)
	content.GET("", contentHandler.List)
	content.GET("/:id", contentHandler.Get)
	content.POST("/:id/review", contentHandler.MarkInReview)
	content.POST("/:id/reject", contentHandler.Reject)
	content.GET("/:id/responses", contentHandler.ListResponses)
	content.POST("/:id/responses", contentHandler.SubmitResponse)
	content.POST("/:id/commit", contentHandler.Commit)
	content.POST("/:id/reconcile", contentHandler.Reconcile)

	libraryHandler := NewLibraryHandler(d.Queries, d.Log)
	v1.GET("/dashboard/stats", libraryHandler.Stats)
	v1.GET("/dashboard/pending", libraryHandler.Pending)
	v1.GET("/library", libraryHandler.Search)
	v1.GET("/library/tags", libraryHandler.Tags)

	catalogHandler := NewCatalogHandler(d.Catalog, d.Log)
	domains := v1.Group("/domains")
	domains.GET("", catalogHandler.ListDomains)
	domains.POST("", catalogHandler.CreateDomain)
	domains.GET("/:id", catalogHandler.GetDomain)
	domains.PUT("/:id", catalogHandler.UpdateDomain)
	domains.DELETE("/:id", catalogHandler.DeleteDomain)
	domains.GET("/:id/experts", catalogHandler.DomainExperts)

	experts := v1.Group("/experts")
	experts.GET("", catalogHandler.ListExperts)
	experts.POST("", catalogHandler.CreateExpert)
	experts.GET("/:id", catalogHandler.GetExpert)
	experts.PUT("/:id", catalogHandler.UpdateExpert)
	experts.DELETE("/:id", catalogHandler.DeleteExpert)

	return router
}
