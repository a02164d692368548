package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/cppla/chunkup/config"
	"github.com/cppla/chunkup/controllers"
	"github.com/cppla/chunkup/middleware"
	"github.com/cppla/chunkup/services"
	"github.com/cppla/chunkup/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(engine *services.SessionEngine, store services.SessionStore, storage *services.Storage, metrics *services.UploadMetrics) *gin.Engine {
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// Replace default console logger with file-based zap logger
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, false))
	} else {
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	uploadController := controllers.NewUploadController(engine)
	monitoringController := controllers.NewMonitoringController(store, storage, metrics)

	upload := r.Group("/upload")
	// Rate limit the write paths a client can hammer during a transfer
	limited := upload.Group("")
	limited.Use(middleware.RateLimitMiddleware())
	limited.POST("/initiate", uploadController.Initiate)
	limited.POST("/chunk", uploadController.Chunk)

	upload.POST("/finalize", uploadController.Finalize)
	upload.GET("/status/:uploadId", uploadController.Status)
	upload.DELETE("/cancel/:uploadId", uploadController.Cancel)

	monitoring := r.Group("/monitoring")
	monitoring.GET("/stats", monitoringController.GetStats)
	monitoring.GET("/health", monitoringController.Health)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, 40400, "route not found")
	})

	return r
}
