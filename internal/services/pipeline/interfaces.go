package pipeline

import (
	"context"
	"image"

	"stressvision/internal/models"
)

// Detector finds face regions in an image. Implementations must be safe for
// concurrent use by several workers.
type Detector interface {
	Detect(ctx context.Context, img image.Image) ([]models.Region, error)
}

// Classifier returns the emotion label of a cropped face. An empty label or
// "unknown" means the classifier had no answer. Same concurrency contract as Detector.
type Classifier interface {
	Classify(ctx context.Context, face image.Image) (string, error)
}

// Enhancer is an optional per-image preprocessing step applied before detection.
type Enhancer interface {
	Enhance(img image.Image) (image.Image, error)
}

// Source yields frames sequentially. Read returns io.EOF when the input is
// exhausted; any other error is a decode failure.
type Source interface {
	Read(ctx context.Context) (image.Image, error)
}

// Sink receives output frames in ascending index order. Commit publishes the
// output; Abort discards whatever was written. Exactly one of them is called.
type Sink interface {
	Write(ctx context.Context, frame models.OutputFrame) error
	Commit() error
	Abort() error
}

// Observer is notified of every written frame, in order, from the collector goroutine.
type Observer interface {
	OnFrame(ctx context.Context, frame models.OutputFrame)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(ctx context.Context, frame models.OutputFrame)

func (f ObserverFunc) OnFrame(ctx context.Context, frame models.OutputFrame) {
	f(ctx, frame)
}
