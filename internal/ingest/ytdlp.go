package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// VideoInfo is the metadata yt-dlp reports for a video, kept as an open map
// so extra fields round-trip into analysis records untouched.
type VideoInfo map[string]any

// FetchVideoInfo queries yt-dlp for video metadata without downloading.
func FetchVideoInfo(ctx context.Context, videoURL string) (VideoInfo, error) {
	cmd := exec.CommandContext(ctx, "yt-dlp",
		"--dump-json",
		"--no-playlist",
		videoURL,
	)

	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("yt-dlp info failed: %w", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(output, &raw); err != nil {
		return nil, fmt.Errorf("parse yt-dlp output: %w", err)
	}

	// Keep the fields the dashboards actually show.
	info := VideoInfo{}
	for _, key := range []string{
		"title", "uploader", "duration", "view_count",
		"description", "thumbnail", "upload_date",
	} {
		if v, ok := raw[key]; ok {
			info[key] = v
		}
	}
	return info, nil
}

// DownloadVideo downloads a video at the requested resolution into destDir
// and returns the local file path. Resolution is a label like "360p";
// anything unparsable falls back to 360.
func DownloadVideo(ctx context.Context, videoURL, resolution, destDir string) (string, error) {
	height := parseResolution(resolution)
	outTemplate := filepath.Join(destDir, "%(id)s.%(ext)s")

	cmd := exec.CommandContext(ctx, "yt-dlp",
		"--format", fmt.Sprintf("best[height<=%d]", height),
		"--no-playlist",
		"--output", outTemplate,
		"--print", "after_move:filepath",
		"--no-simulate",
		videoURL,
	)

	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("yt-dlp download failed: %w", err)
	}

	// --print may emit multiple lines; the file path is the first
	raw := strings.TrimSpace(string(output))
	path := strings.SplitN(raw, "\n", 2)[0]
	path = strings.TrimSpace(path)
	if path == "" {
		return "", fmt.Errorf("yt-dlp returned empty file path")
	}

	return path, nil
}

func parseResolution(resolution string) int {
	trimmed := strings.TrimSuffix(strings.ToLower(resolution), "p")
	switch trimmed {
	case "1080":
		return 1080
	case "720":
		return 720
	case "480":
		return 480
	case "360", "":
		return 360
	default:
		return 360
	}
}
