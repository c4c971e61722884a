// Package api exposes ingestion, drafting and template lookup over HTTP.
package api

import (
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"legaldraft/internal/config"
)

func init() {
	// keep numeric context values as json.Number so drafts print them verbatim
	binding.EnableDecoderUseNumber = true
}

// NewRouter builds the gin engine with middleware and routes.
func NewRouter(h *Handler, srv config.ServerConfig, rl config.RateLimitConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestID(), RequestLogger(), ErrorHandler())
	if len(srv.AllowOrigins) > 0 {
		router.Use(cors.New(corsConfig(srv.AllowOrigins)))
	}
	if rl.RPS > 0 {
		router.Use(NewIPRateLimiter(rl.RPS, max(rl.Burst, 1)).Middleware())
	}

	router.GET("/healthz", h.Healthz)
	router.POST("/upload", h.Upload)
	router.POST("/draft", h.Draft)
	router.GET("/templates", h.ListTemplates)
	router.GET("/templates/:id", h.GetTemplate)
	router.DELETE("/templates/:id", h.DeleteTemplate)
	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", RequestIDHeader},
		ExposeHeaders: []string{RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}
