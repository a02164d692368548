package main

import (
	"time"

	"github.com/cppla/chunkup/config"
	"github.com/cppla/chunkup/routes"
	"github.com/cppla/chunkup/services"
	"github.com/cppla/chunkup/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}

	store := services.NewRedisSessionStore(utils.GetRedis())
	validator := services.NewValidator(cfg.AllowedMimeTypes(), cfg.MaxFileSizeBytes())
	deduper := services.NewDeduper(validator)
	storage := services.NewStorage(cfg.StoragePath)
	metrics := services.NewUploadMetrics(store)
	engine := services.NewSessionEngine(
		store, validator, deduper, storage, metrics,
		cfg.ChunkStoragePath, time.Duration(cfg.SessionTimeoutSec)*time.Second,
	)

	r := routes.SetupRouter(engine, store, storage, metrics)

	// Background cleanup for expired sessions and aged-out files (best-effort)
	utils.StartCleanupWorker(time.Duration(cfg.CleanupIntervalSec)*time.Second, engine, storage, cfg.RetentionDays)

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
