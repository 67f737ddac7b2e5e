package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"stressvision/internal/logger"
	"stressvision/internal/metrics"
	"stressvision/internal/models"
)

// Options configures a Driver.
type Options struct {
	RunID         string // generated when empty
	FrameSkip     int
	Workers       int
	MaxPending    int // wyniki czekające w kolejce na zapis
	Tolerance     int
	KeepAllFrames bool // zapisuj też klatki bez detekcji
}

func (o Options) validate() error {
	switch {
	case o.FrameSkip < 1:
		return ConfigError("options", fmt.Errorf("frame skip must be at least 1, got %d", o.FrameSkip))
	case o.Workers < 1:
		return ConfigError("options", fmt.Errorf("worker count must be at least 1, got %d", o.Workers))
	case o.MaxPending < 1:
		return ConfigError("options", fmt.Errorf("max pending must be at least 1, got %d", o.MaxPending))
	case o.Tolerance < 0:
		return ConfigError("options", fmt.Errorf("coasting tolerance must not be negative, got %d", o.Tolerance))
	}
	return nil
}

// Summary describes a finished run.
type Summary struct {
	RunID             string
	FramesRead        int
	FramesSampled     int
	FramesWritten     int
	DetectionFailures int
	CoastedFrames     int
	ExpiredTracks     int
	Duration          time.Duration
}

// Driver reads frames, dispatches sampled ones to a fixed pool of workers and
// writes the results in input order.
type Driver struct {
	task      *Task
	opts      Options
	logger    *logger.Logger
	metrics   *metrics.PipelineMetrics
	observers []Observer
}

// NewDriver creates a Driver. metrics may be nil.
func NewDriver(task *Task, opts Options, logger *logger.Logger, metrics *metrics.PipelineMetrics) (*Driver, error) {
	if task == nil {
		return nil, ConfigError("new driver", errors.New("task is required"))
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}
	return &Driver{
		task:    task,
		opts:    opts,
		logger:  logger,
		metrics: metrics,
	}, nil
}

// AddObserver registers o to be notified of every written frame.
// Must not be called while a run is in progress.
func (d *Driver) AddObserver(o Observer) {
	d.observers = append(d.observers, o)
}

// Options returns the options the driver was created with.
func (d *Driver) Options() Options {
	return d.opts
}

// completed is a frame together with its detection result.
type completed struct {
	frame  models.Frame
	result models.DetectionResult
}

type job struct {
	frame models.Frame
	done  chan<- completed
}

// pending is a slot in the ordering buffer. done receives exactly one value.
type pending struct {
	index int
	done  <-chan completed
}

type readStats struct {
	read    int
	sampled int
}

type writeStats struct {
	written  int
	failures int
	coasted  int
	expired  int
}

// Run processes src until it is exhausted and writes every output frame to
// sink in ascending index order. The sink is committed on success and
// aborted on any error, including cancellation of ctx.
func (d *Driver) Run(ctx context.Context, src Source, sink Sink) (Summary, error) {
	start := time.Now()
	runID := d.opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	summary := Summary{RunID: runID}

	committed := false
	defer func() {
		if committed {
			return
		}
		if err := sink.Abort(); err != nil {
			d.logger.Error("Run %s: aborting output failed: %v", runID, err)
		}
	}()

	d.logger.Info("🎬 Run %s started - processing every %d frame(s) on %d worker(s), %s", runID, d.opts.FrameSkip, d.opts.Workers, d.task)

	g, gctx := errgroup.WithContext(ctx)
	jobs := make(chan job, d.opts.Workers)
	queue := make(chan pending, d.opts.MaxPending)

	var rs readStats
	var ws writeStats

	g.Go(func() error {
		defer close(queue)
		defer close(jobs)
		return d.read(gctx, src, jobs, queue, &rs)
	})
	for i := 0; i < d.opts.Workers; i++ {
		workerID := i
		g.Go(func() error {
			return d.work(gctx, workerID, jobs)
		})
	}
	g.Go(func() error {
		return d.collect(gctx, queue, sink, &ws)
	})

	err := g.Wait()
	d.metrics.SetPendingResults(0)

	summary.FramesRead = rs.read
	summary.FramesSampled = rs.sampled
	summary.FramesWritten = ws.written
	summary.DetectionFailures = ws.failures
	summary.CoastedFrames = ws.coasted
	summary.ExpiredTracks = ws.expired
	summary.Duration = time.Since(start)

	if err != nil {
		d.logger.Error("Run %s failed after %d frame(s): %v", runID, summary.FramesWritten, err)
		return summary, err
	}

	if err := sink.Commit(); err != nil {
		err = SinkError("commit", err)
		d.logger.Error("Run %s failed: %v", runID, err)
		return summary, err
	}
	committed = true

	d.logger.Info("✅ Run %s finished: %d read, %d sampled, %d written, %d detection failure(s) in %s",
		runID, summary.FramesRead, summary.FramesSampled, summary.FramesWritten, summary.DetectionFailures, summary.Duration.Round(time.Millisecond))
	return summary, nil
}

// read assigns indices, samples, and feeds both the job channel and the
// ordering buffer. A job is always queued before its pending slot so that the
// collector never waits on a frame no worker will see.
func (d *Driver) read(ctx context.Context, src Source, jobs chan<- job, queue chan<- pending, rs *readStats) error {
	for index := 0; ; index++ {
		img, err := src.Read(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return SourceError(fmt.Sprintf("read frame %d", index), err)
		}
		rs.read++
		d.metrics.RecordFrameRead()

		frame := models.Frame{Index: index, Image: img}
		done := make(chan completed, 1)

		if Sampled(index, d.opts.FrameSkip) {
			rs.sampled++
			d.metrics.RecordFrameSampled()
			select {
			case jobs <- job{frame: frame, done: done}:
			case <-ctx.Done():
				return ctx.Err()
			}
		} else {
			if !d.opts.KeepAllFrames {
				continue
			}
			done <- completed{frame: frame, result: models.DetectionResult{FrameIndex: index}}
		}

		select {
		case queue <- pending{index: index, done: done}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (d *Driver) work(ctx context.Context, workerID int, jobs <-chan job) error {
	for j := range jobs {
		if err := ctx.Err(); err != nil {
			return err
		}
		frame := j.frame
		frame.Image = d.task.Prepare(frame.Index, frame.Image)
		result := d.task.Analyze(ctx, frame)
		j.done <- completed{frame: frame, result: result}
	}
	return nil
}

// collect releases results strictly in index order, runs them through the
// reconciler and writes them to the sink.
func (d *Driver) collect(ctx context.Context, queue <-chan pending, sink Sink, ws *writeStats) error {
	reconciler := NewReconciler(d.opts.Tolerance)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		var p pending
		select {
		case next, ok := <-queue:
			if !ok {
				return nil
			}
			p = next
		case <-ctx.Done():
			return ctx.Err()
		}
		d.metrics.SetPendingResults(len(queue))

		var c completed
		select {
		case c = <-p.done:
		case <-ctx.Done():
			return ctx.Err()
		}

		before := reconciler.State().Phase
		overlays := reconciler.Apply(c.result)
		state := reconciler.State()

		out := models.OutputFrame{
			Frame:    c.frame,
			Overlays: overlays,
			Result:   c.result,
			State:    state,
		}
		if err := sink.Write(ctx, out); err != nil {
			return SinkError(fmt.Sprintf("write frame %d", p.index), err)
		}

		ws.written++
		d.metrics.RecordFrameWritten(state.Phase.String())
		if c.result.Failed {
			ws.failures++
		}
		if c.result.Attempted && state.Phase == models.PhaseCoasting {
			ws.coasted++
			d.metrics.RecordCoastedFrame()
		}
		if state.Phase == models.PhaseExpired && before != models.PhaseExpired {
			ws.expired++
			d.metrics.RecordExpiredTrack()
			d.logger.Info("Track expired at frame %d after %d missed detection(s)", p.index, state.Misses)
		}

		for _, o := range d.observers {
			o.OnFrame(ctx, out)
		}
	}
}

// RunImage processes a single still image. It reuses the detection task
// directly with a fresh reconciler, so no ordering buffer is involved.
func (d *Driver) RunImage(ctx context.Context, img image.Image) models.OutputFrame {
	frame := models.Frame{Index: 0, Image: d.task.Prepare(0, img)}
	result := d.task.Analyze(ctx, frame)

	reconciler := NewReconciler(d.opts.Tolerance)
	overlays := reconciler.Apply(result)

	out := models.OutputFrame{
		Frame:    frame,
		Overlays: overlays,
		Result:   result,
		State:    reconciler.State(),
	}
	d.metrics.RecordFrameRead()
	d.metrics.RecordFrameSampled()
	d.metrics.RecordFrameWritten(out.State.Phase.String())

	for _, o := range d.observers {
		o.OnFrame(ctx, out)
	}
	return out
}
