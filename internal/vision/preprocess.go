package vision

import (
	"image"
)

// imageToFloat32CHW converts an image to CHW float32 layout, resized to
// targetW x targetH, with pixel values scaled to 0..1 as the YOLO export
// expects.
func imageToFloat32CHW(img image.Image, targetW, targetH int) []float32 {
	resized := resizeImage(img, targetW, targetH)
	bounds := resized.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	data := make([]float32, 3*h*w)
	planeSize := h * w

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, _ := resized.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			idx := y*w + x
			data[idx] = float32(r>>8) / 255.0
			data[planeSize+idx] = float32(g>>8) / 255.0
			data[2*planeSize+idx] = float32(b>>8) / 255.0
		}
	}

	return data
}

// resizeImage does nearest-neighbor resize. Fast enough for per-frame
// preprocessing; detection quality doesn't need bilinear here.
func resizeImage(img image.Image, targetW, targetH int) image.Image {
	bounds := img.Bounds()
	srcW, srcH := bounds.Dx(), bounds.Dy()

	if srcW == targetW && srcH == targetH {
		return img
	}

	dst := image.NewRGBA(image.Rect(0, 0, targetW, targetH))
	for y := 0; y < targetH; y++ {
		srcY := y * srcH / targetH
		for x := 0; x < targetW; x++ {
			srcX := x * srcW / targetW
			dst.Set(x, y, img.At(bounds.Min.X+srcX, bounds.Min.Y+srcY))
		}
	}
	return dst
}
