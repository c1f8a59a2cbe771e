package vision

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/brandtrack/internal/models"
)

func TestNMSSuppressesOverlapsWithinBrand(t *testing.T) {
	dets := []models.Detection{
		{Brand: "nike", Confidence: 0.9, BBox: [4]float64{10, 10, 110, 110}},
		{Brand: "nike", Confidence: 0.7, BBox: [4]float64{15, 15, 115, 115}}, // heavy overlap, same brand
		{Brand: "nike", Confidence: 0.6, BBox: [4]float64{300, 300, 400, 400}},
	}

	kept := nmsPerBrand(dets, 0.45)

	require.Len(t, kept, 2)
	assert.Equal(t, 0.9, kept[0].Confidence)
	assert.Equal(t, 0.6, kept[1].Confidence)
}

func TestNMSKeepsOverlapsAcrossBrands(t *testing.T) {
	dets := []models.Detection{
		{Brand: "nike", Confidence: 0.9, BBox: [4]float64{10, 10, 110, 110}},
		{Brand: "adidas", Confidence: 0.8, BBox: [4]float64{12, 12, 112, 112}},
	}

	kept := nmsPerBrand(dets, 0.45)
	assert.Len(t, kept, 2)
}

func TestNMSEmptyInput(t *testing.T) {
	assert.Empty(t, nmsPerBrand(nil, 0.45))
}

func TestIoU(t *testing.T) {
	a := [4]float64{0, 0, 10, 10}
	b := [4]float64{5, 0, 15, 10}
	assert.InDelta(t, 1.0/3.0, iou(a, b), 1e-9)

	disjoint := [4]float64{100, 100, 110, 110}
	assert.Equal(t, 0.0, iou(a, disjoint))

	assert.InDelta(t, 1.0, iou(a, a), 1e-9)
}

func TestLoadLabels(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "labels.txt")
	content := "nike\n\n# sportswear\nadidas\n  puma  \n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	labels, err := LoadLabels(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"nike", "adidas", "puma"}, labels)
}

func TestLoadLabelsMissingFile(t *testing.T) {
	_, err := LoadLabels(filepath.Join(t.TempDir(), "absent.txt"))
	assert.Error(t, err)
}

func TestImageToFloat32CHW(t *testing.T) {
	// 2x2 image: pure red, green, blue, white
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	img.Set(1, 0, color.RGBA{G: 255, A: 255})
	img.Set(0, 1, color.RGBA{B: 255, A: 255})
	img.Set(1, 1, color.RGBA{R: 255, G: 255, B: 255, A: 255})

	data := imageToFloat32CHW(img, 2, 2)
	require.Len(t, data, 3*2*2)

	// R plane
	assert.InDelta(t, 1.0, data[0], 1e-6)
	assert.InDelta(t, 0.0, data[1], 1e-6)
	// G plane
	assert.InDelta(t, 1.0, data[4+1], 1e-6)
	// B plane
	assert.InDelta(t, 1.0, data[8+2], 1e-6)
	// White pixel in all planes
	assert.InDelta(t, 1.0, data[3], 1e-6)
	assert.InDelta(t, 1.0, data[7], 1e-6)
	assert.InDelta(t, 1.0, data[11], 1e-6)
}

func TestResizeImageDimensions(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 100, 50))
	out := resizeImage(img, 640, 640)
	assert.Equal(t, 640, out.Bounds().Dx())
	assert.Equal(t, 640, out.Bounds().Dy())

	// Same size passes through unchanged.
	same := resizeImage(img, 100, 50)
	assert.Equal(t, img.Bounds(), same.Bounds())
}
