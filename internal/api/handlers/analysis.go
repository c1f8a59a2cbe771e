package handlers

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/your-org/brandtrack/internal/auth"
	"github.com/your-org/brandtrack/internal/models"
	"github.com/your-org/brandtrack/internal/queue"
	"github.com/your-org/brandtrack/internal/storage"
	"github.com/your-org/brandtrack/pkg/dto"
)

// maxUploadSize caps direct video uploads at 500MB.
const maxUploadSize = 500 << 20

type AnalysisHandler struct {
	store    *storage.AnalysisStore
	minio    *storage.MinIOStore
	producer *queue.Producer
}

func NewAnalysisHandler(store *storage.AnalysisStore, minioStore *storage.MinIOStore, producer *queue.Producer) *AnalysisHandler {
	return &AnalysisHandler{store: store, minio: minioStore, producer: producer}
}

// AnalyzeYouTube enqueues an analysis of a YouTube video. Processing is
// asynchronous; the response only acknowledges the job.
func (h *AnalysisHandler) AnalyzeYouTube(c *gin.Context) {
	var req dto.YouTubeAnalysisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	owner, _ := auth.UserID(c)

	job := models.AnalysisJob{
		ID:            uuid.New(),
		Owner:         owner,
		Type:          models.AnalysisTypeYouTube,
		URL:           req.URL,
		Resolution:    req.Resolution,
		FrameInterval: req.FrameInterval,
	}

	if err := h.producer.PublishJob(c.Request.Context(), job.ID.String(), job); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to enqueue analysis"})
		return
	}

	c.JSON(http.StatusAccepted, dto.JobAcceptedResponse{JobID: job.ID, Status: "queued"})
}

// AnalyzeUpload stages an uploaded video file in object storage and enqueues
// an analysis job pointing at it.
func (h *AnalysisHandler) AnalyzeUpload(c *gin.Context) {
	file, header, err := c.Request.FormFile("video")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing video file"})
		return
	}
	defer file.Close()

	if header.Size > maxUploadSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "video exceeds upload size limit"})
		return
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	switch ext {
	case ".mp4", ".avi", ".mov", ".mkv", ".webm":
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unsupported video format %q", ext)})
		return
	}

	owner, _ := auth.UserID(c)
	jobID := uuid.New()
	objectKey := fmt.Sprintf("uploads/%s%s", jobID, ext)

	if err := h.minio.PutStream(c.Request.Context(), objectKey, file, header.Size, "video/mp4"); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to stage upload"})
		return
	}

	frameInterval, _ := strconv.ParseFloat(c.PostForm("frame_interval"), 64)

	job := models.AnalysisJob{
		ID:            jobID,
		Owner:         owner,
		Type:          models.AnalysisTypeUpload,
		ObjectKey:     objectKey,
		FrameInterval: frameInterval,
	}

	if err := h.producer.PublishJob(c.Request.Context(), job.ID.String(), job); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to enqueue analysis"})
		return
	}

	c.JSON(http.StatusAccepted, dto.JobAcceptedResponse{JobID: job.ID, Status: "queued"})
}

// List returns the caller's analysis history, newest first.
func (h *AnalysisHandler) List(c *gin.Context) {
	owner, _ := auth.UserID(c)

	limit := 0
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = n
	}

	records := h.store.List(owner, limit)
	resp := make([]dto.AnalysisResponse, 0, len(records))
	for _, rec := range records {
		resp = append(resp, analysisToResponse(rec))
	}

	c.JSON(http.StatusOK, dto.AnalysisListResponse{Analyses: resp, Total: len(resp)})
}

func (h *AnalysisHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid analysis id"})
		return
	}

	owner, _ := auth.UserID(c)
	rec, ok := h.store.Get(id, owner)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "analysis not found"})
		return
	}

	c.JSON(http.StatusOK, analysisToResponse(rec))
}

func (h *AnalysisHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid analysis id"})
		return
	}

	owner, _ := auth.UserID(c)
	if !h.store.Delete(id, owner) {
		c.JSON(http.StatusNotFound, gin.H{"error": "analysis not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// Thumbnail serves the stored preview image of an analyzed video, subject to
// the same ownership rule as Get.
func (h *AnalysisHandler) Thumbnail(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid analysis id"})
		return
	}

	owner, _ := auth.UserID(c)
	rec, ok := h.store.Get(id, owner)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "analysis not found"})
		return
	}

	key, ok := rec.VideoInfo["thumbnail_key"].(string)
	if !ok || key == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "no thumbnail for this analysis"})
		return
	}

	data, err := h.minio.GetObject(c.Request.Context(), key)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "thumbnail unavailable"})
		return
	}

	c.Data(http.StatusOK, "image/jpeg", data)
}

// Statistics returns the cross-user dashboard summary.
func (h *AnalysisHandler) Statistics(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.Statistics())
}

func analysisToResponse(rec models.AnalysisRecord) dto.AnalysisResponse {
	return dto.AnalysisResponse{
		ID:                  rec.ID,
		Type:                string(rec.Type),
		Timestamp:           rec.Timestamp.Format(time.RFC3339),
		VideoInfo:           rec.VideoInfo,
		BrandTimeline:       rec.BrandTimeline,
		AnalysisTimeSeconds: rec.AnalysisTimeSeconds,
		Settings:            rec.Settings,
		Statistics:          rec.Statistics,
	}
}
