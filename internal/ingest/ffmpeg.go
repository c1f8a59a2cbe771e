package ingest

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// FrameCallback is called for each sampled JPEG frame with its position in
// the video (seconds from start, index * interval).
type FrameCallback func(frameData []byte, timestamp float64) error

// ProbeVideo reads container metadata (fps, dimensions, duration, size)
// with ffprobe.
func ProbeVideo(ctx context.Context, path string) (map[string]any, error) {
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)

	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe failed: %w", err)
	}

	var probe struct {
		Streams []struct {
			CodecType  string `json:"codec_type"`
			Width      int    `json:"width"`
			Height     int    `json:"height"`
			RFrameRate string `json:"r_frame_rate"`
		} `json:"streams"`
		Format struct {
			Duration string `json:"duration"`
			Size     string `json:"size"`
		} `json:"format"`
	}
	if err := json.Unmarshal(output, &probe); err != nil {
		return nil, fmt.Errorf("parse ffprobe output: %w", err)
	}

	info := map[string]any{}
	for _, stream := range probe.Streams {
		if stream.CodecType != "video" {
			continue
		}
		info["width"] = stream.Width
		info["height"] = stream.Height
		info["fps"] = parseFrameRate(stream.RFrameRate)
		break
	}
	if d, err := strconv.ParseFloat(probe.Format.Duration, 64); err == nil {
		info["duration"] = d
	}
	if size, err := strconv.ParseInt(probe.Format.Size, 10, 64); err == nil {
		info["file_size"] = size
	} else if fi, err := os.Stat(path); err == nil {
		info["file_size"] = fi.Size()
	}
	return info, nil
}

// parseFrameRate turns ffprobe's "30000/1001" form into a float.
func parseFrameRate(rate string) float64 {
	parts := strings.SplitN(rate, "/", 2)
	if len(parts) == 2 {
		num, err1 := strconv.ParseFloat(parts[0], 64)
		den, err2 := strconv.ParseFloat(parts[1], 64)
		if err1 == nil && err2 == nil && den != 0 {
			return num / den
		}
	}
	if f, err := strconv.ParseFloat(rate, 64); err == nil {
		return f
	}
	return 0
}

// ExtractFrames samples one frame every interval seconds from a local video
// file, scaled to the given width, and feeds each JPEG to the callback.
// Blocks until the file is exhausted or the context is cancelled.
func ExtractFrames(ctx context.Context, path string, interval float64, width int, callback FrameCallback) error {
	if interval <= 0 {
		interval = 0.5
	}

	args := []string{
		"-hide_banner",
		"-loglevel", "warning",
		"-i", path,
		"-vf", fmt.Sprintf("fps=1/%g,scale=%d:-1", interval, width),
		"-f", "image2pipe",
		"-vcodec", "mjpeg",
		"-q:v", "5",
		"pipe:1",
	}

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("ffmpeg stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("ffmpeg stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start ffmpeg: %w", err)
	}

	go func() {
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			slog.Warn("ffmpeg stderr", "output", scanner.Text())
		}
	}()

	if err := readJPEGFrames(ctx, stdout, interval, callback); err != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("read frames: %w", err)
	}

	return cmd.Wait()
}

// readJPEGFrames reads a stream of concatenated JPEG images, stamping each
// with index * interval.
func readJPEGFrames(ctx context.Context, r io.Reader, interval float64, callback FrameCallback) error {
	reader := bufio.NewReaderSize(r, 512*1024) // 512KB buffer
	framesRead := 0

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		// Find JPEG start marker: FF D8
		if err := findJPEGStart(reader); err != nil {
			if err == io.EOF {
				return nil // file exhausted
			}
			return err
		}

		// Read until JPEG end marker: FF D9
		frameData, err := readUntilJPEGEnd(reader)
		if err != nil {
			if err == io.EOF && framesRead > 0 {
				return nil // truncated trailing frame; keep what we have
			}
			return err
		}

		if len(frameData) > 0 {
			timestamp := float64(framesRead) * interval
			framesRead++
			if err := callback(frameData, timestamp); err != nil {
				slog.Warn("frame callback error", "error", err)
			}
		}
	}
}

func findJPEGStart(r *bufio.Reader) error {
	for {
		b, err := r.ReadByte()
		if err != nil {
			return err
		}
		if b != 0xFF {
			continue
		}
		b, err = r.ReadByte()
		if err != nil {
			return err
		}
		if b == 0xD8 {
			return nil
		}
	}
}

func readUntilJPEGEnd(r *bufio.Reader) ([]byte, error) {
	// Start with JPEG header
	data := []byte{0xFF, 0xD8}

	for {
		b, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		data = append(data, b)

		if b == 0xFF {
			next, err := r.ReadByte()
			if err != nil {
				return nil, err
			}
			data = append(data, next)
			if next == 0xD9 {
				return data, nil
			}
		}

		// Safety: max 10MB per frame
		if len(data) > 10*1024*1024 {
			return nil, fmt.Errorf("jpeg frame too large: %s bytes", strconv.Itoa(len(data)))
		}
	}
}
