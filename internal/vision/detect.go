package vision

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/your-org/brandtrack/internal/models"
)

// Detector runs YOLOv8 brand-logo detection using ONNX Runtime.
// Class indices map to brand names via the labels list.
type Detector struct {
	mu           sync.Mutex // ORT session reuses preallocated tensors
	session      *ort.AdvancedSession
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
	labels       []string
	threshold    float32
	inputW       int
	inputH       int
	candidates   int
	modelPath    string
}

// candidatesFor640 is the YOLOv8 anchor-free candidate count at 640x640:
// 80*80 + 40*40 + 20*20.
const candidatesFor640 = 8400

// NewDetector loads the logo model. labels holds one brand name per class
// index. opts may be nil (ORT defaults) or a pre-configured
// *ort.SessionOptions.
func NewDetector(modelPath string, labels []string, threshold float32, opts *ort.SessionOptions) (*Detector, error) {
	if len(labels) == 0 {
		return nil, fmt.Errorf("no brand labels configured")
	}

	inputW, inputH := 640, 640

	inputShape := ort.NewShape(1, 3, int64(inputH), int64(inputW))
	inputTensor, err := ort.NewEmptyTensor[float32](inputShape)
	if err != nil {
		return nil, fmt.Errorf("create input tensor: %w", err)
	}

	// YOLOv8 export: single output [1, 4+numClasses, 8400] —
	// cx, cy, w, h followed by per-class scores.
	outputShape := ort.NewShape(1, int64(4+len(labels)), candidatesFor640)
	outputTensor, err := ort.NewEmptyTensor[float32](outputShape)
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(modelPath,
		[]string{"images"},
		[]string{"output0"},
		[]ort.Value{inputTensor},
		[]ort.Value{outputTensor},
		opts,
	)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("create detector session: %w", err)
	}

	return &Detector{
		session:      session,
		inputTensor:  inputTensor,
		outputTensor: outputTensor,
		labels:       labels,
		threshold:    threshold,
		inputW:       inputW,
		inputH:       inputH,
		candidates:   candidatesFor640,
		modelPath:    modelPath,
	}, nil
}

// Detect runs logo detection on a preprocessed image.
// imgData should be CHW format [3, inputH, inputW], normalized to 0..1.
// origW/origH are the original image dimensions for coordinate scaling.
// Only detections at or above the configured threshold are returned, so
// downstream aggregation never sees sub-threshold hits.
func (d *Detector) Detect(imgData []float32, origW, origH int) ([]models.Detection, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	inputSlice := d.inputTensor.GetData()
	copy(inputSlice, imgData)

	if err := d.session.Run(); err != nil {
		return nil, fmt.Errorf("run detection: %w", err)
	}

	detections := d.parseDetections(origW, origH)
	detections = nmsPerBrand(detections, 0.45)

	return detections, nil
}

// parseDetections decodes the transposed YOLOv8 output: row r holds value r
// for all candidates, so candidate j's class-c score sits at (4+c)*N + j.
func (d *Detector) parseDetections(origW, origH int) []models.Detection {
	out := d.outputTensor.GetData()
	n := d.candidates

	scaleW := float32(origW) / float32(d.inputW)
	scaleH := float32(origH) / float32(d.inputH)

	var detections []models.Detection
	for j := 0; j < n; j++ {
		bestClass := -1
		bestScore := float32(0)
		for c := range d.labels {
			score := out[(4+c)*n+j]
			if score > bestScore {
				bestScore = score
				bestClass = c
			}
		}
		if bestClass < 0 || bestScore < d.threshold {
			continue
		}

		cx := out[0*n+j]
		cy := out[1*n+j]
		w := out[2*n+j]
		h := out[3*n+j]

		x1 := clampF((cx-w/2)*scaleW, 0, float32(origW))
		y1 := clampF((cy-h/2)*scaleH, 0, float32(origH))
		x2 := clampF((cx+w/2)*scaleW, 0, float32(origW))
		y2 := clampF((cy+h/2)*scaleH, 0, float32(origH))

		detections = append(detections, models.Detection{
			Brand:      d.labels[bestClass],
			Confidence: float64(bestScore),
			BBox:       [4]float64{float64(x1), float64(y1), float64(x2), float64(y2)},
		})
	}

	return detections
}

// InputSize returns the model's expected input dimensions.
func (d *Detector) InputSize() (int, int) {
	return d.inputW, d.inputH
}

// Labels returns the brand names the model can detect.
func (d *Detector) Labels() []string {
	return d.labels
}

// Status reports model state for the worker's status endpoint.
func (d *Detector) Status() map[string]any {
	return map[string]any{
		"model_loaded":         true,
		"model_path":           d.modelPath,
		"confidence_threshold": d.threshold,
		"supported_brands":     d.labels,
	}
}

func (d *Detector) Close() {
	if d.session != nil {
		d.session.Destroy()
	}
	if d.inputTensor != nil {
		d.inputTensor.Destroy()
	}
	if d.outputTensor != nil {
		d.outputTensor.Destroy()
	}
}

// LoadLabels reads brand names, one per line; blank lines and #-comments
// are skipped. Line order must match the model's class indices.
func LoadLabels(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open labels file: %w", err)
	}
	defer f.Close()

	var labels []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		labels = append(labels, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read labels file: %w", err)
	}
	return labels, nil
}

// nmsPerBrand performs Non-Maximum Suppression within each brand class.
func nmsPerBrand(detections []models.Detection, iouThreshold float64) []models.Detection {
	if len(detections) == 0 {
		return detections
	}

	sort.Slice(detections, func(i, j int) bool {
		return detections[i].Confidence > detections[j].Confidence
	})

	keep := make([]bool, len(detections))
	for i := range keep {
		keep[i] = true
	}

	for i := 0; i < len(detections); i++ {
		if !keep[i] {
			continue
		}
		for j := i + 1; j < len(detections); j++ {
			if !keep[j] || detections[j].Brand != detections[i].Brand {
				continue
			}
			if iou(detections[i].BBox, detections[j].BBox) > iouThreshold {
				keep[j] = false
			}
		}
	}

	var result []models.Detection
	for i, det := range detections {
		if keep[i] {
			result = append(result, det)
		}
	}
	return result
}

func iou(a, b [4]float64) float64 {
	x1 := math.Max(a[0], b[0])
	y1 := math.Max(a[1], b[1])
	x2 := math.Min(a[2], b[2])
	y2 := math.Min(a[3], b[3])

	intersection := math.Max(0, x2-x1) * math.Max(0, y2-y1)

	areaA := (a[2] - a[0]) * (a[3] - a[1])
	areaB := (b[2] - b[0]) * (b[3] - b[1])
	union := areaA + areaB - intersection

	if union <= 0 {
		return 0
	}
	return intersection / union
}

func clampF(v, min, max float32) float32 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
