package http

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/mrlokans/gallery/internal/auth"
	"github.com/mrlokans/gallery/internal/entities"
	"github.com/mrlokans/gallery/internal/logger"
)

// NewRouter creates and configures the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(requestLogger())
	router.Use(gin.Recovery())

	if len(cfg.AllowedOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Apply security headers to all responses
	router.Use(auth.SecurityHeadersMiddleware())

	if cfg.AuthMiddleware != nil {
		router.Use(cfg.AuthMiddleware.Handler())
	} else {
		// No auth - act as the default user
		router.Use(func(c *gin.Context) {
			c.Set(auth.ContextKeyUserID, entities.DefaultUserID)
			c.Set(auth.ContextKeyAuthType, auth.AuthTypeNone)
			c.Next()
		})
	}

	health := NewHealthController(cfg.Database, cfg.Tasks, cfg.Version)
	router.GET("/health", health.Status)
	router.GET("/ping", Ping)

	if cfg.MediaDir != "" && cfg.MediaURL != "" {
		router.Static(cfg.MediaURL, cfg.MediaDir)
	}

	api := router.Group("/api")

	if cfg.Imports != nil {
		importsController := NewImportsController(cfg.Imports, cfg.SessionManager)
		group := api.Group("/imports")
		// Sessions only carry OAuth handshakes, so only these routes load them
		if cfg.SessionManager != nil {
			group.Use(cfg.SessionManager.SessionLoadSave())
		}

		group.GET("", importsController.ListImports)
		group.GET("/providers", importsController.ListProviders)

		group.GET("/:key", importsController.GetImport)
		group.GET("/:key/status", importsController.GetImport)
		group.DELETE("/:key", importsController.DeleteImport)

		group.GET("/:key/connect", importsController.Connect)
		group.POST("/:key/connect", importsController.Connect)
		group.GET("/:key/callback", importsController.Callback)
		group.DELETE("/:key/connection", importsController.Disconnect)
		group.GET("/:key/albums", importsController.ListAlbums)
		group.POST("/:key/import", importsController.StartImport)
	}

	if cfg.Tasks != nil {
		tasksController := NewTasksController(cfg.Tasks)
		api.GET("/tasks/:id", tasksController.GetTaskStatus)
	}

	return router
}

// requestLogger logs one structured entry per request.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := logger.WithFields(logger.Fields{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"latency_ms": time.Since(start).Milliseconds(),
			"client_ip":  c.ClientIP(),
		})
		switch {
		case c.Writer.Status() >= 500:
			entry.Error("[HTTP] request")
		case c.Writer.Status() >= 400:
			entry.Warn("[HTTP] request")
		default:
			entry.Debug("[HTTP] request")
		}
	}
}
