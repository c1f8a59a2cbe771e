package models

import (
	"time"

	"github.com/google/uuid"
)

type AnalysisType string

const (
	AnalysisTypeYouTube AnalysisType = "youtube"
	AnalysisTypeUpload  AnalysisType = "upload"
)

// Detection is a single detector hit inside one frame.
type Detection struct {
	Brand      string     `json:"brand"`
	Confidence float64    `json:"confidence"`
	BBox       [4]float64 `json:"bbox"` // x1, y1, x2, y2
}

// DetectionFrame is the raw detector output for one sampled frame.
// Detections are already filtered to the active confidence threshold.
type DetectionFrame struct {
	Timestamp  float64     `json:"timestamp"` // seconds from video start
	Detections []Detection `json:"detections"`
}

// BrandTimelineEntry summarises all sightings of one brand across a video.
// Invariant: Appearances == len(Timestamps) == len(ConfidenceScores).
// TotalSeconds counts sampled frames the brand appeared in, one unit per
// frame, not wall-clock exposure.
type BrandTimelineEntry struct {
	Appearances       int       `json:"appearances"`
	TotalSeconds      int       `json:"total_seconds"`
	Timestamps        []float64 `json:"timestamps"`
	ConfidenceScores  []float64 `json:"confidence_scores"`
	AverageConfidence float64   `json:"average_confidence"`
	MaxConfidence     float64   `json:"max_confidence"`
}

// AnalysisStatistics is the per-record summary computed when a record is saved.
type AnalysisStatistics struct {
	TotalBrandsDetected   int     `json:"total_brands_detected"`
	TotalAppearances      int     `json:"total_appearances"`
	TotalDetectionSeconds int     `json:"total_detection_seconds"`
	MostDetectedBrand     string  `json:"most_detected_brand"`
	AverageConfidence     float64 `json:"average_confidence"`
}

// AnalysisRecord is one completed video analysis. Immutable after creation
// except by deletion. Owner may be empty for anonymous analyses.
type AnalysisRecord struct {
	ID                  uuid.UUID                     `json:"id"`
	Owner               string                        `json:"owner,omitempty"`
	Type                AnalysisType                  `json:"type"`
	Timestamp           time.Time                     `json:"timestamp"`
	VideoInfo           map[string]any                `json:"video_info"`
	BrandTimeline       map[string]BrandTimelineEntry `json:"brand_timeline"`
	AnalysisTimeSeconds float64                       `json:"analysis_time_seconds"`
	Settings            map[string]any                `json:"settings"`
	Statistics          *AnalysisStatistics           `json:"statistics,omitempty"`
}

// AnalysisJob is the message published to NATS for worker processing.
type AnalysisJob struct {
	ID            uuid.UUID    `json:"id"`
	Owner         string       `json:"owner,omitempty"`
	Type          AnalysisType `json:"type"`
	URL           string       `json:"url,omitempty"`        // youtube jobs
	ObjectKey     string       `json:"object_key,omitempty"` // upload jobs: staged video in MinIO
	Resolution    string       `json:"resolution,omitempty"`
	FrameInterval float64      `json:"frame_interval,omitempty"` // seconds between sampled frames
}

// AnalysisResult is the worker's output for one job, consumed by the API
// service for persistence and notification.
type AnalysisResult struct {
	JobID               uuid.UUID                     `json:"job_id"`
	Owner               string                        `json:"owner,omitempty"`
	Type                AnalysisType                  `json:"type"`
	VideoInfo           map[string]any                `json:"video_info"`
	BrandTimeline       map[string]BrandTimelineEntry `json:"brand_timeline"`
	AnalysisTimeSeconds float64                       `json:"analysis_time_seconds"`
	Settings            map[string]any                `json:"settings"`
	Error               string                        `json:"error,omitempty"`
}
