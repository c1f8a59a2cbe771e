package vision

import (
	"bytes"
	"context"
	"fmt"
	"image/jpeg"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/your-org/brandtrack/internal/config"
	"github.com/your-org/brandtrack/internal/ingest"
	"github.com/your-org/brandtrack/internal/models"
	"github.com/your-org/brandtrack/internal/observability"
	"github.com/your-org/brandtrack/internal/queue"
	"github.com/your-org/brandtrack/internal/storage"
	"github.com/your-org/brandtrack/internal/timeline"
)

// Pipeline runs one analysis job end to end: obtain the video (yt-dlp or
// MinIO stage), sample frames with ffmpeg, run logo detection on each frame
// and publish the aggregated result for the API service to persist.
type Pipeline struct {
	detector *Detector
	minio    *storage.MinIOStore
	producer *queue.Producer
	cfg      config.VisionConfig
}

func NewPipeline(detector *Detector, minioStore *storage.MinIOStore, producer *queue.Producer, cfg config.VisionConfig) *Pipeline {
	return &Pipeline{
		detector: detector,
		minio:    minioStore,
		producer: producer,
		cfg:      cfg,
	}
}

// ProcessJob handles a single analysis job. A processing failure is still
// reported as a result (with Error set) so the submitter hears back; only
// the final publish returns an error to the caller for redelivery.
func (p *Pipeline) ProcessJob(ctx context.Context, job models.AnalysisJob) error {
	started := time.Now()
	slog.Info("processing analysis job", "job_id", job.ID, "type", job.Type)

	result := p.analyze(ctx, job)
	result.AnalysisTimeSeconds = time.Since(started).Seconds()

	outcome := "success"
	if result.Error != "" {
		outcome = "error"
		slog.Error("analysis failed", "job_id", job.ID, "error", result.Error)
	}
	observability.AnalysesCompleted.WithLabelValues(string(job.Type), outcome).Inc()
	observability.AnalysisDuration.WithLabelValues(string(job.Type)).Observe(result.AnalysisTimeSeconds)

	if err := p.producer.PublishResult(ctx, job.ID.String(), result); err != nil {
		return fmt.Errorf("publish result for job %s: %w", job.ID, err)
	}

	slog.Info("analysis job done", "job_id", job.ID,
		"brands", len(result.BrandTimeline),
		"duration_s", result.AnalysisTimeSeconds)
	return nil
}

func (p *Pipeline) analyze(ctx context.Context, job models.AnalysisJob) models.AnalysisResult {
	result := models.AnalysisResult{
		JobID: job.ID,
		Owner: job.Owner,
		Type:  job.Type,
		Settings: map[string]any{
			"resolution":           job.Resolution,
			"frame_interval":       p.frameInterval(job),
			"confidence_threshold": p.cfg.ConfidenceThreshold,
		},
	}

	workDir, err := os.MkdirTemp("", "brandtrack-job-")
	if err != nil {
		result.Error = fmt.Sprintf("create work dir: %v", err)
		return result
	}
	defer os.RemoveAll(workDir)

	videoPath, videoInfo, err := p.obtainVideo(ctx, job, workDir)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.VideoInfo = videoInfo

	frames, thumbnail, err := p.detectFrames(ctx, job, videoPath)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	if key := p.storeThumbnail(ctx, job, thumbnail); key != "" {
		result.VideoInfo["thumbnail_key"] = key
	}

	result.BrandTimeline = timeline.Summarize(frames)
	return result
}

// storeThumbnail keeps the first sampled frame as the video's thumbnail.
// Best-effort: a failed upload only costs the preview image.
func (p *Pipeline) storeThumbnail(ctx context.Context, job models.AnalysisJob, frame []byte) string {
	if len(frame) == 0 {
		return ""
	}
	key := fmt.Sprintf("thumbnails/%s.jpg", job.ID)
	if err := p.minio.PutObject(ctx, key, frame, "image/jpeg"); err != nil {
		slog.Warn("store thumbnail failed", "job_id", job.ID, "error", err)
		return ""
	}
	return key
}

// obtainVideo fetches the video to a local file: youtube jobs download via
// yt-dlp, upload jobs pull the staged object from MinIO (and delete it once
// it is local). Container metadata from ffprobe is merged over source info.
func (p *Pipeline) obtainVideo(ctx context.Context, job models.AnalysisJob, workDir string) (string, map[string]any, error) {
	info := map[string]any{}
	var videoPath string

	switch job.Type {
	case models.AnalysisTypeYouTube:
		meta, err := ingest.FetchVideoInfo(ctx, job.URL)
		if err != nil {
			slog.Warn("video info fetch failed", "job_id", job.ID, "error", err)
		} else {
			for k, v := range meta {
				info[k] = v
			}
		}

		path, err := ingest.DownloadVideo(ctx, job.URL, job.Resolution, workDir)
		if err != nil {
			return "", nil, fmt.Errorf("download video: %w", err)
		}
		videoPath = path

	case models.AnalysisTypeUpload:
		videoPath = filepath.Join(workDir, filepath.Base(job.ObjectKey))
		if err := p.minio.FetchToFile(ctx, job.ObjectKey, videoPath); err != nil {
			return "", nil, fmt.Errorf("fetch staged upload: %w", err)
		}
		info["filename"] = filepath.Base(job.ObjectKey)

		// The staged copy is only needed until it's local.
		if err := p.minio.DeleteObject(ctx, job.ObjectKey); err != nil {
			slog.Warn("delete staged upload failed", "key", job.ObjectKey, "error", err)
		}

	default:
		return "", nil, fmt.Errorf("unknown analysis type %q", job.Type)
	}

	probe, err := ingest.ProbeVideo(ctx, videoPath)
	if err != nil {
		slog.Warn("ffprobe failed", "job_id", job.ID, "error", err)
	} else {
		for k, v := range probe {
			info[k] = v
		}
	}

	return videoPath, info, nil
}

// detectFrames samples the video and runs the detector over each frame. The
// first decoded frame's JPEG bytes come back as thumbnail material.
func (p *Pipeline) detectFrames(ctx context.Context, job models.AnalysisJob, videoPath string) ([]models.DetectionFrame, []byte, error) {
	inputW, inputH := p.detector.InputSize()
	var frames []models.DetectionFrame
	var thumbnail []byte

	err := ingest.ExtractFrames(ctx, videoPath, p.frameInterval(job), p.cfg.FrameWidth, func(frameData []byte, timestamp float64) error {
		img, err := jpeg.Decode(bytes.NewReader(frameData))
		if err != nil {
			slog.Warn("frame decode failed", "job_id", job.ID, "timestamp", timestamp, "error", err)
			return nil
		}

		if thumbnail == nil {
			thumbnail = append([]byte(nil), frameData...)
		}

		bounds := img.Bounds()
		input := imageToFloat32CHW(img, inputW, inputH)

		inferStart := time.Now()
		detections, err := p.detector.Detect(input, bounds.Dx(), bounds.Dy())
		observability.InferenceDuration.WithLabelValues("detect").Observe(time.Since(inferStart).Seconds())
		if err != nil {
			slog.Warn("detection failed", "job_id", job.ID, "timestamp", timestamp, "error", err)
			return nil
		}

		observability.FramesProcessed.WithLabelValues(string(job.Type)).Inc()
		for _, det := range detections {
			observability.LogosDetected.WithLabelValues(det.Brand).Inc()
		}

		frames = append(frames, models.DetectionFrame{
			Timestamp:  timestamp,
			Detections: detections,
		})
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("extract frames: %w", err)
	}

	return frames, thumbnail, nil
}

func (p *Pipeline) frameInterval(job models.AnalysisJob) float64 {
	if job.FrameInterval > 0 {
		return job.FrameInterval
	}
	return p.cfg.FrameInterval
}
