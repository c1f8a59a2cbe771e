// Package timeline turns raw per-frame logo detections into a stable
// per-brand summary. It is pure computation: no I/O, no clock, no
// randomness — the same ordered input always yields the same output.
package timeline

import "github.com/your-org/brandtrack/internal/models"

// Summarize aggregates an ordered sequence of detection frames into a
// per-brand timeline.
//
// A brand seen more than once within a single frame counts once for that
// frame, keeping the first-seen confidence. Each first-seen-in-frame hit
// adds one appearance and one unit of exposure; total_seconds is a count of
// sampled frames the brand appeared in, not wall-clock seconds.
//
// Frames with a negative timestamp are malformed detector output and are
// skipped individually; the rest of the batch still aggregates. Detections
// are expected to be pre-filtered to the active confidence threshold —
// no threshold logic happens here.
func Summarize(frames []models.DetectionFrame) map[string]models.BrandTimelineEntry {
	timeline := make(map[string]models.BrandTimelineEntry)

	for _, frame := range frames {
		if frame.Timestamp < 0 {
			continue
		}

		seen := make(map[string]bool, len(frame.Detections))
		for _, det := range frame.Detections {
			if seen[det.Brand] {
				continue
			}
			seen[det.Brand] = true

			entry := timeline[det.Brand]
			entry.Appearances++
			entry.TotalSeconds++
			entry.Timestamps = append(entry.Timestamps, frame.Timestamp)
			entry.ConfidenceScores = append(entry.ConfidenceScores, det.Confidence)
			timeline[det.Brand] = entry
		}
	}

	for brand, entry := range timeline {
		var sum float64
		max := entry.ConfidenceScores[0]
		for _, score := range entry.ConfidenceScores {
			sum += score
			if score > max {
				max = score
			}
		}
		entry.AverageConfidence = sum / float64(len(entry.ConfidenceScores))
		entry.MaxConfidence = max
		timeline[brand] = entry
	}

	return timeline
}

// Statistics derives the per-record summary block from an aggregated
// timeline. Returns nil for an empty timeline.
func Statistics(tl map[string]models.BrandTimelineEntry) *models.AnalysisStatistics {
	if len(tl) == 0 {
		return nil
	}

	stats := &models.AnalysisStatistics{TotalBrandsDetected: len(tl)}

	var confidenceSum float64
	var confidenceCount int
	mostAppearances := -1

	for brand, entry := range tl {
		stats.TotalAppearances += entry.Appearances
		stats.TotalDetectionSeconds += entry.TotalSeconds
		for _, score := range entry.ConfidenceScores {
			confidenceSum += score
			confidenceCount++
		}
		// Ties broken by brand name so the result is deterministic.
		if entry.Appearances > mostAppearances ||
			(entry.Appearances == mostAppearances && brand < stats.MostDetectedBrand) {
			mostAppearances = entry.Appearances
			stats.MostDetectedBrand = brand
		}
	}

	if confidenceCount > 0 {
		stats.AverageConfidence = confidenceSum / float64(confidenceCount)
	}
	return stats
}
