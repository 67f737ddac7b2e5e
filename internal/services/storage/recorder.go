package storage

import (
	"context"
	"errors"
	"sync"
	"time"

	"stressvision/internal/logger"
	"stressvision/internal/models"
	"stressvision/internal/repository"
)

const DefaultBatchSize = 100

// Recorder buffers the outcome of every written frame and stores it in
// batches. It implements pipeline.Observer.
type Recorder struct {
	frames    repository.FrameRepository
	runID     string
	batchSize int
	logger    *logger.Logger

	mu      sync.Mutex
	records []models.FrameRecord
	errs    []error
}

func NewRecorder(frames repository.FrameRepository, runID string, batchSize int, logger *logger.Logger) *Recorder {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Recorder{
		frames:    frames,
		runID:     runID,
		batchSize: batchSize,
		logger:    logger,
		records:   make([]models.FrameRecord, 0, batchSize),
	}
}

// Run flushes the buffer every interval until ctx is done.
func (r *Recorder) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Flush()
		}
	}
}

// OnFrame buffers one frame and flushes once the batch is full.
func (r *Recorder) OnFrame(ctx context.Context, frame models.OutputFrame) {
	r.mu.Lock()
	r.records = append(r.records, NewFrameRecord(r.runID, frame))
	full := len(r.records) >= r.batchSize
	r.mu.Unlock()

	if full {
		r.Flush()
	}
}

// Flush writes every buffered record. The buffer is swapped out first so that
// OnFrame never waits on the database.
func (r *Recorder) Flush() {
	r.mu.Lock()
	records := r.records
	if len(records) == 0 {
		r.mu.Unlock()
		return
	}
	r.records = make([]models.FrameRecord, 0, r.batchSize)
	r.mu.Unlock()

	if err := r.frames.InsertBatch(records); err != nil {
		r.logger.Error("Error saving %d frame result(s) of run %s: %v", len(records), r.runID, err)
		r.mu.Lock()
		r.errs = append(r.errs, err)
		r.mu.Unlock()
	}
}

// Close flushes what is left and reports every storage error seen.
func (r *Recorder) Close() error {
	r.Flush()

	r.mu.Lock()
	defer r.mu.Unlock()
	return errors.Join(r.errs...)
}

// NewFrameRecord flattens an output frame into its stored form. The box and
// label are those of the tracked face, if any.
func NewFrameRecord(runID string, frame models.OutputFrame) models.FrameRecord {
	rec := models.FrameRecord{
		RunID:      runID,
		FrameIndex: frame.Frame.Index,
		Attempted:  frame.Result.Attempted,
		Failed:     frame.Result.Failed,
		Phase:      frame.State.Phase.String(),
		Misses:     frame.State.Misses,
		Faces:      len(frame.Result.Boxes),
	}

	if primary, ok := frame.Result.Primary(); ok && primary.Status != models.StatusUnknown {
		rec.Label = primary.Status.String()
	}
	if box := frame.State.LastBox; box != nil {
		rec.X, rec.Y, rec.Width, rec.Height = box.X, box.Y, box.Width, box.Height
	}
	return rec
}
