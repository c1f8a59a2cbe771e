package dto

import (
	"github.com/google/uuid"

	"github.com/your-org/brandtrack/internal/models"
)

type YouTubeAnalysisRequest struct {
	URL           string  `json:"url" binding:"required,url"`
	Resolution    string  `json:"resolution" binding:"omitempty,oneof=360p 480p 720p 1080p"`
	FrameInterval float64 `json:"frame_interval" binding:"omitempty,gt=0,lte=10"`
}

// JobAcceptedResponse acknowledges an enqueued analysis; the finished record
// arrives later via notification or polling.
type JobAcceptedResponse struct {
	JobID  uuid.UUID `json:"job_id"`
	Status string    `json:"status"`
}

type AnalysisResponse struct {
	ID                  uuid.UUID                            `json:"id"`
	Type                string                               `json:"type"`
	Timestamp           string                               `json:"timestamp"`
	VideoInfo           map[string]any                       `json:"video_info"`
	BrandTimeline       map[string]models.BrandTimelineEntry `json:"brand_timeline"`
	AnalysisTimeSeconds float64                              `json:"analysis_time_seconds"`
	Settings            map[string]any                       `json:"settings"`
	Statistics          *models.AnalysisStatistics           `json:"statistics,omitempty"`
}

type AnalysisListResponse struct {
	Analyses []AnalysisResponse `json:"analyses"`
	Total    int                `json:"total"`
}
