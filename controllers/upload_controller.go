package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/cppla/chunkup/models"
	"github.com/cppla/chunkup/services"
	"github.com/cppla/chunkup/utils"
)

// UploadController is the transport adapter over the session engine. It only
// parses requests and maps engine results onto the JSON envelope.
type UploadController struct {
	engine *services.SessionEngine
}

// NewUploadController creates a new UploadController instance.
func NewUploadController(engine *services.SessionEngine) *UploadController {
	return &UploadController{engine: engine}
}

// Initiate creates a new upload session from declared metadata.
func (u *UploadController) Initiate(ctx *gin.Context) {
	var meta models.UploadMetadata
	if err := ctx.ShouldBindJSON(&meta); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "request body must be valid JSON")
		return
	}

	id, err := u.engine.Initiate(ctx.Request.Context(), meta)
	if err != nil {
		var ve *models.ValidationError
		if errors.As(err, &ve) {
			utils.ErrorWithData(ctx, http.StatusBadRequest, 40002, "validation failed", gin.H{
				"details": ve.Reasons,
			})
			return
		}
		utils.Sugar.Errorw("failed to initiate upload", "error", err)
		utils.Error(ctx, http.StatusInternalServerError, 50001, "failed to initiate upload")
		return
	}

	utils.Created(ctx, gin.H{
		"upload_id": id,
		"metadata": gin.H{
			"filename":     meta.Filename,
			"total_chunks": meta.TotalChunks,
			"file_size":    meta.FileSize,
		},
	})
}

// Chunk receives one chunk as multipart form data: upload_id, chunk_index,
// and the chunk file itself.
func (u *UploadController) Chunk(ctx *gin.Context) {
	uploadID := ctx.PostForm("upload_id")
	indexRaw := ctx.PostForm("chunk_index")
	file, err := ctx.FormFile("chunk")
	if uploadID == "" || indexRaw == "" || err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40010, "upload_id, chunk_index, and chunk file are required")
		return
	}
	index, err := strconv.Atoi(indexRaw)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40010, "chunk_index must be an integer")
		return
	}

	src, err := file.Open()
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40012, "failed to read chunk data")
		return
	}
	defer src.Close()

	result, err := u.engine.RecordChunk(ctx.Request.Context(), uploadID, index, src)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrInvalidChunkIndex):
			utils.Error(ctx, http.StatusBadRequest, 40011, err.Error())
		case errors.Is(err, models.ErrSessionNotFound):
			utils.Error(ctx, http.StatusNotFound, 40401, "upload not found")
		default:
			utils.Sugar.Errorw("failed to save chunk", "upload_id", uploadID, "chunk_index", index, "error", err)
			utils.Error(ctx, http.StatusInternalServerError, 50010, "failed to upload chunk")
		}
		return
	}

	if result == services.ChunkDuplicate {
		utils.Respond(ctx, http.StatusOK, 0, "chunk already uploaded", gin.H{"chunk_index": index})
		return
	}
	utils.Respond(ctx, http.StatusOK, 0, "chunk uploaded successfully", gin.H{"chunk_index": index})
}

type finalizeRequest struct {
	UploadID string `json:"upload_id"`
	UserID   string `json:"user_id"`
}

// Finalize assembles, validates, deduplicates, and commits a completed upload.
func (u *UploadController) Finalize(ctx *gin.Context) {
	var req finalizeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil || req.UploadID == "" {
		utils.Error(ctx, http.StatusBadRequest, 40020, "upload_id is required")
		return
	}

	stored, err := u.engine.Finalize(ctx.Request.Context(), req.UploadID, req.UserID)
	if err != nil {
		var incomplete *models.UploadIncompleteError
		switch {
		case errors.Is(err, models.ErrSessionNotFound):
			utils.Error(ctx, http.StatusNotFound, 40401, "upload not found")
		case errors.As(err, &incomplete):
			utils.ErrorWithData(ctx, http.StatusBadRequest, 40021, "not all chunks have been uploaded", gin.H{
				"uploaded_chunks": incomplete.Uploaded,
				"total_chunks":    incomplete.Total,
			})
		case errors.Is(err, models.ErrValidationFailed):
			utils.Error(ctx, http.StatusBadRequest, 40022, err.Error())
		default:
			utils.Sugar.Errorw("failed to finalize upload", "upload_id", req.UploadID, "error", err)
			utils.Error(ctx, http.StatusInternalServerError, 50020, "failed to finalize upload")
		}
		return
	}

	message := "upload completed successfully"
	if stored.IsDuplicate {
		message = "file already exists"
	}
	utils.Respond(ctx, http.StatusOK, 0, message, stored)
}

// Status reports the session snapshot including missing chunks and progress.
func (u *UploadController) Status(ctx *gin.Context) {
	uploadID := ctx.Param("uploadId")

	session, err := u.engine.Status(ctx.Request.Context(), uploadID)
	if err != nil {
		if errors.Is(err, models.ErrSessionNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40401, "upload not found")
			return
		}
		utils.Sugar.Errorw("failed to get upload status", "upload_id", uploadID, "error", err)
		utils.Error(ctx, http.StatusInternalServerError, 50030, "failed to get upload status")
		return
	}

	utils.Success(ctx, gin.H{
		"upload_id":       session.ID,
		"filename":        session.Filename,
		"file_size":       session.FileSize,
		"mime_type":       session.MimeType,
		"total_chunks":    session.TotalChunks,
		"uploaded_chunks": len(session.UploadedChunks),
		"missing_chunks":  session.MissingChunks(),
		"progress":        session.Progress(),
		"status":          session.Status,
		"created_at":      session.CreatedAt,
	})
}

// Cancel destroys a session and its chunks.
func (u *UploadController) Cancel(ctx *gin.Context) {
	uploadID := ctx.Param("uploadId")

	if err := u.engine.Cancel(ctx.Request.Context(), uploadID); err != nil {
		if errors.Is(err, models.ErrSessionNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40401, "upload not found")
			return
		}
		utils.Sugar.Errorw("failed to cancel upload", "upload_id", uploadID, "error", err)
		utils.Error(ctx, http.StatusInternalServerError, 50040, "failed to cancel upload")
		return
	}
	utils.Respond(ctx, http.StatusOK, 0, "upload cancelled successfully", nil)
}
