package controllers

import (
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cppla/chunkup/services"
	"github.com/cppla/chunkup/utils"
)

// MonitoringController exposes read-only statistics and a health probe.
type MonitoringController struct {
	store   services.SessionStore
	storage *services.Storage
	metrics *services.UploadMetrics
}

// NewMonitoringController creates a new MonitoringController instance.
func NewMonitoringController(store services.SessionStore, storage *services.Storage, metrics *services.UploadMetrics) *MonitoringController {
	return &MonitoringController{store: store, storage: storage, metrics: metrics}
}

// GetStats aggregates storage usage, active sessions, and upload counters.
func (m *MonitoringController) GetStats(ctx *gin.Context) {
	rctx := ctx.Request.Context()

	storageStats, err := m.storage.Stats()
	if err != nil {
		utils.Sugar.Errorw("failed to compute storage stats", "error", err)
		utils.Error(ctx, 500, 50050, "failed to retrieve stats")
		return
	}

	ids, err := m.store.ListIDs(rctx)
	if err != nil {
		utils.Sugar.Errorw("failed to list upload sessions", "error", err)
		utils.Error(ctx, 500, 50050, "failed to retrieve stats")
		return
	}

	details := make([]gin.H, 0, 10)
	for _, id := range ids {
		if len(details) == 10 {
			break
		}
		session, err := m.store.Get(rctx, id)
		if err != nil || session == nil {
			continue
		}
		details = append(details, gin.H{
			"upload_id": session.ID,
			"filename":  session.Filename,
			"progress":  math.Round(session.Progress()*100) / 100,
			"status":    session.Status,
		})
	}

	total, successful, err := m.metrics.Snapshot(rctx)
	if err != nil {
		utils.Sugar.Warnw("failed to read upload counters", "error", err)
	}
	successRate := 0.0
	if total > 0 {
		successRate = math.Round(float64(successful)/float64(total)*10000) / 100
	}

	utils.Success(ctx, gin.H{
		"storage":        storageStats,
		"active_uploads": len(ids),
		"upload_details": details,
		"metrics": gin.H{
			"total_uploads":      total,
			"successful_uploads": successful,
			"success_rate":       successRate,
		},
		"timestamp": time.Now().Unix(),
	})
}

// Health checks the metadata store connection and storage writability.
func (m *MonitoringController) Health(ctx *gin.Context) {
	storeStatus := "ok"
	if err := m.store.Ping(ctx.Request.Context()); err != nil {
		storeStatus = "error: " + err.Error()
	}

	storageStatus := "ok"
	if err := probeWritable(m.storage.Root()); err != nil {
		storageStatus = "error: " + err.Error()
	}

	utils.Success(ctx, gin.H{
		"status": "healthy",
		"services": gin.H{
			"redis":   storeStatus,
			"storage": storageStatus,
		},
		"timestamp": time.Now().Unix(),
	})
}

func probeWritable(root string) error {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return err
	}
	probe := filepath.Join(root, ".healthcheck")
	if err := os.WriteFile(probe, nil, 0o644); err != nil {
		return err
	}
	return os.Remove(probe)
}
