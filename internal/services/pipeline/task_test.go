package pipeline

import (
	"bytes"
	"context"
	"errors"
	"image"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stressvision/internal/logger"
	"stressvision/internal/metrics"
	"stressvision/internal/models"
)

type regionsDetector []models.Region

func (d regionsDetector) Detect(ctx context.Context, img image.Image) ([]models.Region, error) {
	return d, nil
}

// sizeClassifier records the size of the crops it was given.
type sizeClassifier struct {
	label string
	sizes []image.Point
}

func (c *sizeClassifier) Classify(ctx context.Context, face image.Image) (string, error) {
	c.sizes = append(c.sizes, face.Bounds().Size())
	return c.label, nil
}

type failingEnhancer struct{}

func (failingEnhancer) Enhance(img image.Image) (image.Image, error) {
	return nil, errors.New("unsupported format")
}

type invertEnhancer struct{}

func (invertEnhancer) Enhance(img image.Image) (image.Image, error) {
	return image.NewGray(img.Bounds()), nil
}

func TestStressRule_Mapping(t *testing.T) {
	rule := NewStressRule(DefaultStressLabels)

	for _, label := range []string{"fear", "angry", "sad", "FEAR", " Sad "} {
		assert.Equal(t, models.StatusStressed, rule.Status(label, true), label)
	}
	for _, label := range []string{"happy", "neutral", "surprise", "disgust", "contempt"} {
		assert.Equal(t, models.StatusCalm, rule.Status(label, true), label)
	}
	assert.Equal(t, models.StatusUnknown, rule.Status("fear", false))
}

func TestStressRule_CustomLabels(t *testing.T) {
	rule := NewStressRule([]string{"Disgust"})
	assert.Equal(t, models.StatusStressed, rule.Status("disgust", true))
	assert.Equal(t, models.StatusCalm, rule.Status("fear", true))
}

func TestSampled(t *testing.T) {
	var got []int
	for i := 0; i < 10; i++ {
		if Sampled(i, 3) {
			got = append(got, i)
		}
	}
	assert.Equal(t, []int{0, 3, 6, 9}, got)
	assert.True(t, Sampled(7, 1))
	assert.True(t, Sampled(7, 0))
}

func TestOutputFPS(t *testing.T) {
	assert.Equal(t, 10.0, OutputFPS(30, 3, false))
	assert.Equal(t, 9.0, OutputFPS(29.97, 3, false))
	assert.Equal(t, 30.0, OutputFPS(30, 3, true))
	assert.Equal(t, 1.0, OutputFPS(2, 3, false))
}

func TestTask_ClampsAndDropsRegions(t *testing.T) {
	detector := regionsDetector{
		{Box: models.BoundingBox{X: -10, Y: -10, Width: 30, Height: 30}, Confidence: 0.9},
		{Box: models.BoundingBox{X: 50, Y: 40, Width: 40, Height: 40}, Confidence: 0.8},
		{Box: models.BoundingBox{X: 200, Y: 200, Width: 10, Height: 10}, Confidence: 0.7},
		{Box: models.BoundingBox{X: 5, Y: 5, Width: 0, Height: 10}, Confidence: 0.6},
	}
	classifier := &sizeClassifier{label: "sad"}
	task := NewTask(detector, classifier, NewStressRule(DefaultStressLabels), logger.Discard())

	res := task.Run(context.Background(), models.Frame{Index: 4, Image: newImage(4, 64, 48)})

	assert.True(t, res.Attempted)
	assert.False(t, res.Failed)
	assert.Equal(t, 4, res.FrameIndex)
	require.Len(t, res.Boxes, 2)
	assert.Equal(t, models.BoundingBox{X: 0, Y: 0, Width: 20, Height: 20}, res.Boxes[0].Box)
	assert.Equal(t, models.BoundingBox{X: 50, Y: 40, Width: 14, Height: 8}, res.Boxes[1].Box)
	assert.Equal(t, []image.Point{{20, 20}, {14, 8}}, classifier.sizes)
	for _, b := range res.Boxes {
		assert.Equal(t, "sad", b.Emotion)
		assert.Equal(t, models.StatusStressed, b.Status)
	}
}

func TestTask_ClassifierFailureLeavesBoxUnlabeled(t *testing.T) {
	registry := prometheus.NewRegistry()
	m, err := metrics.NewPipelineMetrics(registry)
	require.NoError(t, err)

	var buf bytes.Buffer
	detector := newScriptedDetector(0)
	task := NewTask(detector, fixedClassifier{err: errors.New("session closed")}, NewStressRule(nil), logger.New(&buf), WithMetrics(m))

	res := task.Run(context.Background(), models.Frame{Index: 0, Image: newImage(0, 64, 48)})
	require.Len(t, res.Boxes, 1)
	assert.Equal(t, models.StatusUnknown, res.Boxes[0].Status)
	assert.Empty(t, res.Boxes[0].Emotion)
	assert.Contains(t, buf.String(), "classification failure")
}

func TestTask_UnknownLabel(t *testing.T) {
	task := NewTask(newScriptedDetector(0), fixedClassifier{label: "Unknown"}, NewStressRule(nil), logger.Discard())

	res := task.Run(context.Background(), models.Frame{Index: 0, Image: newImage(0, 64, 48)})
	require.Len(t, res.Boxes, 1)
	assert.Equal(t, models.StatusUnknown, res.Boxes[0].Status)
}

func TestTask_NoClassifier(t *testing.T) {
	task := NewTask(newScriptedDetector(0), nil, NewStressRule(nil), logger.Discard())

	res := task.Run(context.Background(), models.Frame{Index: 0, Image: newImage(0, 64, 48)})
	require.Len(t, res.Boxes, 1)
	assert.Equal(t, models.StatusUnknown, res.Boxes[0].Status)
}

func TestTask_DetectorErrorAndPanic(t *testing.T) {
	detector := newScriptedDetector(0, 1)
	detector.fail[0] = true
	detector.panicAt[1] = true

	var buf bytes.Buffer
	task := NewTask(detector, fixedClassifier{label: "happy"}, NewStressRule(nil), logger.New(&buf))

	for i := 0; i < 2; i++ {
		res := task.Run(context.Background(), models.Frame{Index: i, Image: newImage(i, 64, 48)})
		assert.True(t, res.Attempted)
		assert.True(t, res.Failed)
		assert.Empty(t, res.Boxes)
	}
	assert.Contains(t, buf.String(), "inference failed")
	assert.Contains(t, buf.String(), "detector panic")
}

func TestTask_Timeout(t *testing.T) {
	registry := prometheus.NewRegistry()
	m, err := metrics.NewPipelineMetrics(registry)
	require.NoError(t, err)

	detector := newScriptedDetector()
	detector.block[0] = true
	task := NewTask(detector, nil, NewStressRule(nil), logger.Discard(), WithTimeout(20*time.Millisecond), WithMetrics(m))

	start := time.Now()
	res := task.Run(context.Background(), models.Frame{Index: 0, Image: newImage(0, 64, 48)})
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.True(t, res.Failed)
	assert.Empty(t, res.Boxes)
}

func TestTask_Enhancer(t *testing.T) {
	task := NewTask(newScriptedDetector(), nil, NewStressRule(nil), logger.Discard(), WithEnhancer(invertEnhancer{}))
	img := newImage(3, 8, 8)
	_, isGray := task.Prepare(3, img).(*image.Gray)
	assert.True(t, isGray)

	task = NewTask(newScriptedDetector(), nil, NewStressRule(nil), logger.Discard(), WithEnhancer(failingEnhancer{}))
	assert.Same(t, img, task.Prepare(3, img))
}
