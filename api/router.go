package api

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func SetupRouter(handler *Handler, gatherer prometheus.Gatherer, isDebug bool) *gin.Engine {
	var r *gin.Engine
	if isDebug {
		gin.SetMode(gin.DebugMode)
		r = gin.Default()
	} else {
		gin.SetMode(gin.ReleaseMode)
		r = gin.New()
		r.Use(gin.Recovery())
	}

	// must run before everything that logs
	r.Use(TraceIDMiddleware())
	if handler.metrics != nil {
		r.Use(MetricsMiddleware(handler.metrics))
	}

	r.Use(cors.New(cors.Config{
		AllowAllOrigins:  true,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Trace-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Trace-ID", "Content-Disposition"},
		AllowCredentials: false, // must stay false with AllowAllOrigins
	}))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	api := r.Group("/api/v1")
	{
		api.GET("/templates", handler.ListTemplates)

		runs := api.Group("/runs")
		{
			runs.POST("", handler.runLimiter(), handler.CreateRun)
			runs.GET("", handler.ListRuns)
			runs.GET("/:id", handler.GetRun)
			runs.DELETE("/:id", handler.DeleteRun)
			runs.GET("/:id/export", handler.ExportRun)
		}
	}

	return r
}
