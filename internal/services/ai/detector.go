package ai

import (
	"context"
	"fmt"
	"image"
	"os"
	"time"

	"gocv.io/x/gocv"

	"stressvision/internal/logger"
	"stressvision/internal/models"
	"stressvision/internal/services/pool"
)

const (
	DetectionThreshold = 0.5 // Domyślny próg pewności detekcji twarzy
	inputSize          = 300
)

// Mean BGR values the res10 SSD face model was trained with.
var modelMean = gocv.NewScalar(104.0, 177.0, 123.0, 0)

// FaceDetector finds faces with an OpenCV DNN SSD model. Each worker gets its
// own network from the pool, so Detect may be called concurrently.
type FaceDetector struct {
	nets       *pool.Pool[*gocv.Net]
	threshold  float32
	modelPath  string
	configPath string
	logger     *logger.Logger
}

// NewFaceDetector loads size copies of the network.
func NewFaceDetector(modelPath, configPath string, threshold float64, size int, logger *logger.Logger) (*FaceDetector, error) {
	if threshold <= 0 {
		threshold = DetectionThreshold
	}

	d := &FaceDetector{
		threshold:  float32(threshold),
		modelPath:  modelPath,
		configPath: configPath,
		logger:     logger,
	}

	nets, err := pool.New(size, func(int) (*gocv.Net, error) {
		return d.initializeNet()
	}, func(net *gocv.Net) {
		net.Close()
	})
	if err != nil {
		return nil, fmt.Errorf("could not initialize face detection network: %w", err)
	}
	// Detection already has its own per-task timeout.
	nets.SetAcquireTimeout(0)
	d.nets = nets

	d.logger.Info("Face detection network initialized successfully (%d instance(s))", nets.Size())
	return d, nil
}

// initializeNet loads one network from the model and config files.
func (d *FaceDetector) initializeNet() (*gocv.Net, error) {
	if _, err := os.Stat(d.modelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("model file not found: %s", d.modelPath)
	}

	if _, err := os.Stat(d.configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", d.configPath)
	}

	net := gocv.ReadNet(d.modelPath, d.configPath)
	if net.Empty() {
		return nil, fmt.Errorf("failed to load network")
	}

	errBackend := net.SetPreferableBackend(gocv.NetBackendDefault)
	errTarget := net.SetPreferableTarget(gocv.NetTargetCPU)
	if errBackend != nil || errTarget != nil {
		net.Close()
		return nil, fmt.Errorf("failed to set preferable backend or target")
	}

	return &net, nil
}

// Detect returns the face regions found in img.
func (d *FaceDetector) Detect(ctx context.Context, img image.Image) ([]models.Region, error) {
	mat, err := ImageToMat(img)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	net, err := d.nets.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire network: %w", err)
	}
	defer d.nets.Release(net)

	blob := gocv.BlobFromImage(mat, 1.0, image.Pt(inputSize, inputSize), modelMean, false, false)
	defer blob.Close()

	net.SetInput(blob, "")

	output := net.Forward("")
	defer output.Close()

	if output.Empty() {
		return nil, fmt.Errorf("network returned no output")
	}

	// Every row: [image_id, label, confidence, left, top, right, bottom].
	rows := output.Reshape(1, output.Total()/7)
	defer rows.Close()

	cols, height := float32(mat.Cols()), float32(mat.Rows())
	var regions []models.Region
	for i := 0; i < rows.Rows(); i++ {
		confidence := rows.GetFloatAt(i, 2)
		if confidence < d.threshold {
			continue
		}

		left := int(rows.GetFloatAt(i, 3) * cols)
		top := int(rows.GetFloatAt(i, 4) * height)
		right := int(rows.GetFloatAt(i, 5) * cols)
		bottom := int(rows.GetFloatAt(i, 6) * height)

		regions = append(regions, models.Region{
			Box:        models.BoxFromRect(image.Rect(left, top, right, bottom)),
			Confidence: float64(confidence),
		})
	}

	return regions, nil
}

// Close releases every network.
func (d *FaceDetector) Close() {
	m := d.nets.Metrics()
	d.logger.Info("Face detector closed: %d detection(s), %s spent waiting for a free network", m.TotalAcquired, m.WaitTime.Round(time.Millisecond))
	d.nets.Destroy()
}
