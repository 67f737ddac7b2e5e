package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
	"time"

	"github.com/disintegration/imaging"

	"stressvision/internal/logger"
	"stressvision/internal/metrics"
	"stressvision/internal/models"
)

// Task is the per-frame detection step: detect faces, crop and classify each
// of them, and map the emotion to a stress status. It holds no mutable state
// and may run on any number of workers at once.
type Task struct {
	detector   Detector
	classifier Classifier
	enhancer   Enhancer
	rule       StressRule
	timeout    time.Duration
	logger     *logger.Logger
	metrics    *metrics.PipelineMetrics
}

// TaskOption configures optional Task behaviour.
type TaskOption func(*Task)

// WithEnhancer runs e on every frame before detection.
func WithEnhancer(e Enhancer) TaskOption {
	return func(t *Task) { t.enhancer = e }
}

// WithTimeout bounds the wall time of a single Detect call. Zero disables the bound.
func WithTimeout(d time.Duration) TaskOption {
	return func(t *Task) { t.timeout = d }
}

// WithMetrics records task durations and failures.
func WithMetrics(m *metrics.PipelineMetrics) TaskOption {
	return func(t *Task) { t.metrics = m }
}

// NewTask creates a Task. classifier may be nil, in which case every box is unlabeled.
func NewTask(detector Detector, classifier Classifier, rule StressRule, logger *logger.Logger, opts ...TaskOption) *Task {
	t := &Task{
		detector:   detector,
		classifier: classifier,
		rule:       rule,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Run prepares and analyzes a frame. It never fails: a detector error or
// timeout yields a result with no boxes and Failed set.
func (t *Task) Run(ctx context.Context, frame models.Frame) models.DetectionResult {
	frame.Image = t.Prepare(frame.Index, frame.Image)
	return t.Analyze(ctx, frame)
}

// Prepare applies the enhancer, falling back to the original image when it fails.
func (t *Task) Prepare(index int, img image.Image) image.Image {
	if t.enhancer == nil {
		return img
	}
	enhanced, err := t.enhancer.Enhance(img)
	if err != nil {
		t.logger.Warning("Enhancement failed on frame %d, using original image: %v", index, err)
		return img
	}
	return enhanced
}

// Analyze runs detection and classification on an already prepared frame.
func (t *Task) Analyze(ctx context.Context, frame models.Frame) models.DetectionResult {
	start := time.Now()
	defer func() { t.metrics.ObserveTaskDuration(time.Since(start)) }()

	result := models.DetectionResult{FrameIndex: frame.Index, Attempted: true}

	regions, err := t.detect(ctx, frame.Image)
	if err != nil {
		reason := metrics.ReasonError
		if errors.Is(err, context.DeadlineExceeded) {
			reason = metrics.ReasonTimeout
		}
		t.metrics.RecordDetectionFailure(reason)
		t.logger.Warning("Frame %d: %v", frame.Index, newError(ErrDetectionFailure, "detect", err))
		result.Failed = true
		return result
	}

	bounds := frame.Bounds()
	for _, region := range regions {
		box, ok := region.Box.Clamp(bounds)
		if !ok {
			continue
		}

		emotion, known := t.classify(ctx, frame, box)
		result.Boxes = append(result.Boxes, models.LabeledBox{
			Box:        box,
			Confidence: region.Confidence,
			Emotion:    emotion,
			Status:     t.rule.Status(emotion, known),
		})
	}

	return result
}

// detect calls the detector, bounding it by the task timeout when one is set.
func (t *Task) detect(ctx context.Context, img image.Image) ([]models.Region, error) {
	if t.timeout <= 0 {
		return t.safeDetect(ctx, img)
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	type outcome struct {
		regions []models.Region
		err     error
	}
	done := make(chan outcome, 1)
	go func() {
		regions, err := t.safeDetect(ctx, img)
		done <- outcome{regions, err}
	}()

	select {
	case o := <-done:
		return o.regions, o.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (t *Task) safeDetect(ctx context.Context, img image.Image) (regions []models.Region, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("detector panic: %v", r)
		}
	}()
	return t.detector.Detect(ctx, img)
}

// classify crops the face and asks the classifier for its emotion. known is
// false when there is no classifier, it failed, or it had no answer.
func (t *Task) classify(ctx context.Context, frame models.Frame, box models.BoundingBox) (emotion string, known bool) {
	if t.classifier == nil {
		return "", false
	}

	defer func() {
		if r := recover(); r != nil {
			t.metrics.RecordClassificationFailure()
			t.logger.Warning("Frame %d: %v", frame.Index, newError(ErrClassificationFailure, "classify", fmt.Errorf("classifier panic: %v", r)))
			emotion, known = "", false
		}
	}()

	face := imaging.Crop(frame.Image, box.Rect())
	label, err := t.classifier.Classify(ctx, face)
	if err != nil {
		t.metrics.RecordClassificationFailure()
		t.logger.Warning("Frame %d: %v", frame.Index, newError(ErrClassificationFailure, "classify", err))
		return "", false
	}

	label = normalizeLabel(label)
	if label == "" || label == "unknown" {
		return "", false
	}
	return label, true
}

// String is used in log lines.
func (t *Task) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "task(classifier=%t, enhancer=%t", t.classifier != nil, t.enhancer != nil)
	if t.timeout > 0 {
		fmt.Fprintf(&b, ", timeout=%s", t.timeout)
	}
	b.WriteString(")")
	return b.String()
}
