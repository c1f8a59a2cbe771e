package timeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/brandtrack/internal/models"
)

func frame(ts float64, dets ...models.Detection) models.DetectionFrame {
	return models.DetectionFrame{Timestamp: ts, Detections: dets}
}

func det(brand string, conf float64) models.Detection {
	return models.Detection{Brand: brand, Confidence: conf}
}

func TestSummarize_TwoFramesWithInFrameDuplicate(t *testing.T) {
	frames := []models.DetectionFrame{
		frame(0.0, det("nike", 0.9)),
		frame(1.0, det("nike", 0.8), det("nike", 0.95)),
	}

	tl := Summarize(frames)
	require.Len(t, tl, 1)

	nike := tl["nike"]
	assert.Equal(t, 2, nike.Appearances)
	assert.Equal(t, 2, nike.TotalSeconds)
	assert.Equal(t, []float64{0.0, 1.0}, nike.Timestamps)
	// Second frame keeps the first-seen 0.8, not the later 0.95.
	assert.Equal(t, []float64{0.9, 0.8}, nike.ConfidenceScores)
	assert.InDelta(t, 0.85, nike.AverageConfidence, 1e-9)
	assert.InDelta(t, 0.9, nike.MaxConfidence, 1e-9)
}

func TestSummarize_EmptyInput(t *testing.T) {
	tl := Summarize(nil)
	require.NotNil(t, tl)
	assert.Empty(t, tl)

	tl = Summarize([]models.DetectionFrame{})
	assert.Empty(t, tl)
}

func TestSummarize_StructuralInvariant(t *testing.T) {
	frames := []models.DetectionFrame{
		frame(0.0, det("adidas", 0.7), det("nike", 0.6)),
		frame(0.5),
		frame(1.0, det("nike", 0.55), det("adidas", 0.8), det("puma", 0.91)),
		frame(1.5, det("puma", 0.62), det("puma", 0.99)),
	}

	tl := Summarize(frames)
	for brand, entry := range tl {
		assert.Equal(t, entry.Appearances, len(entry.Timestamps), "brand %s", brand)
		assert.Equal(t, entry.Appearances, len(entry.ConfidenceScores), "brand %s", brand)
		assert.Equal(t, entry.Appearances, entry.TotalSeconds, "brand %s", brand)
	}
	assert.Equal(t, 2, tl["nike"].Appearances)
	assert.Equal(t, 2, tl["adidas"].Appearances)
	assert.Equal(t, 2, tl["puma"].Appearances)
}

func TestSummarize_NegativeTimestampFrameSkipped(t *testing.T) {
	frames := []models.DetectionFrame{
		frame(-1.0, det("nike", 0.9)),
		frame(2.0, det("nike", 0.8)),
	}

	tl := Summarize(frames)
	nike := tl["nike"]
	assert.Equal(t, 1, nike.Appearances)
	assert.Equal(t, []float64{2.0}, nike.Timestamps)
}

func TestSummarize_Deterministic(t *testing.T) {
	frames := []models.DetectionFrame{
		frame(0.0, det("a", 0.5), det("b", 0.6)),
		frame(1.0, det("b", 0.7), det("a", 0.8)),
		frame(2.0, det("c", 0.9)),
	}

	first := Summarize(frames)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Summarize(frames))
	}
}

func TestStatistics(t *testing.T) {
	frames := []models.DetectionFrame{
		frame(0.0, det("nike", 0.9), det("adidas", 0.5)),
		frame(1.0, det("nike", 0.7)),
	}

	stats := Statistics(Summarize(frames))
	require.NotNil(t, stats)
	assert.Equal(t, 2, stats.TotalBrandsDetected)
	assert.Equal(t, 3, stats.TotalAppearances)
	assert.Equal(t, 3, stats.TotalDetectionSeconds)
	assert.Equal(t, "nike", stats.MostDetectedBrand)
	assert.InDelta(t, (0.9+0.5+0.7)/3, stats.AverageConfidence, 1e-9)
}

func TestStatistics_Empty(t *testing.T) {
	assert.Nil(t, Statistics(nil))
	assert.Nil(t, Statistics(map[string]models.BrandTimelineEntry{}))
}
