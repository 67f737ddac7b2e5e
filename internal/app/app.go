package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"stressvision/internal/config"
	"stressvision/internal/logger"
	"stressvision/internal/metrics"
	"stressvision/internal/models"
	"stressvision/internal/repository"
	"stressvision/internal/repository/sqlite"
	"stressvision/internal/routes"
	"stressvision/internal/services/ai"
	"stressvision/internal/services/emotion"
	"stressvision/internal/services/pipeline"
	"stressvision/internal/services/storage"
	"stressvision/internal/services/video"
	"stressvision/internal/services/websocket"
)

const recorderFlushInterval = 2 * time.Second

type App struct {
	config  *config.Config
	logger  *logger.Logger
	metrics *metrics.PipelineMetrics

	detector   *ai.FaceDetector
	classifier *emotion.Classifier
	enhancer   *ai.Enhancer
	ortReady   bool

	// opcjonalne: tylko gdy ustawiono DB_PATH
	db     *sqlite.DB
	runs   repository.RunRepository
	frames repository.FrameRepository

	// opcjonalne: tylko gdy ustawiono PREVIEW_ADDR
	hub     *websocket.HubService
	preview *websocket.Preview
	server  *http.Server
}

// NewApp loads the models and opens the optional database and preview server.
// Everything already opened is released again when a later step fails.
func NewApp(cfg *config.Config, log *logger.Logger) (a *App, err error) {
	registry := prometheus.NewRegistry()
	m, err := metrics.NewPipelineMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	a = &App{
		config:  cfg,
		logger:  log,
		metrics: m,
	}
	defer func() {
		if err != nil {
			a.Close()
			a = nil
		}
	}()

	a.detector, err = ai.NewFaceDetector(cfg.DetectorModel, cfg.DetectorConfig, cfg.DetectionThreshold, cfg.DetectorInstances(), log)
	if err != nil {
		return a, pipeline.ConfigError("face detector", err)
	}

	if cfg.EmotionModel != "" {
		if _, statErr := os.Stat(cfg.EmotionModel); statErr != nil {
			return a, pipeline.ConfigError("emotion model", statErr)
		}
		if err = emotion.InitializeEnvironment(cfg.OnnxLibrary); err != nil {
			return a, pipeline.ConfigError("onnx runtime", err)
		}
		a.ortReady = true

		a.classifier, err = emotion.NewClassifier(cfg.EmotionModel, cfg.EmotionThreshold, cfg.WorkerCount, log)
		if err != nil {
			return a, pipeline.ConfigError("emotion classifier", err)
		}
	} else {
		log.Warning("⚠️ No emotion model configured - faces will be drawn without a stress label")
	}

	if cfg.Enhance {
		a.enhancer = ai.NewEnhancer()
	}

	if cfg.DatabasePath != "" {
		a.db, err = sqlite.New(cfg.DatabasePath)
		if err != nil {
			return a, fmt.Errorf("failed to open database: %w", err)
		}
		a.runs = sqlite.NewRunRepository(a.db)
		a.frames = sqlite.NewFrameRepository(a.db)
	}

	if cfg.PreviewAddr != "" {
		a.hub = websocket.NewHubService(log)
		a.preview = websocket.NewPreview(a.hub, ai.EncodeJPEG, log)
		a.server = &http.Server{
			Addr:              cfg.PreviewAddr,
			Handler:           routes.SetupRoutes(a.hub, a.preview, m.Registry(), log, cfg.PreviewToken),
			ReadHeaderTimeout: 10 * time.Second,
		}
	}

	return a, nil
}

// Start runs the preview server in the background until ctx is done.
// It is a no-op when no preview address is configured.
func (a *App) Start(ctx context.Context) {
	if a.server == nil {
		return
	}

	go a.hub.Run(ctx)
	go func() {
		a.logger.Info("🚀 Preview server listening on http://%s", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("Preview server stopped: %v", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		a.server.Shutdown(shutdownCtx)
	}()
}

func (a *App) newDriver(runID string) (*pipeline.Driver, error) {
	opts := []pipeline.TaskOption{
		pipeline.WithTimeout(a.config.TaskTimeout),
		pipeline.WithMetrics(a.metrics),
	}
	if a.enhancer != nil {
		opts = append(opts, pipeline.WithEnhancer(a.enhancer))
	}

	// nil *Classifier nie może trafić do interfejsu
	var classifier pipeline.Classifier
	if a.classifier != nil {
		classifier = a.classifier
	}

	task := pipeline.NewTask(a.detector, classifier, pipeline.NewStressRule(a.config.StressLabels), a.logger, opts...)

	return pipeline.NewDriver(task, pipeline.Options{
		RunID:         runID,
		FrameSkip:     a.config.FrameSkip,
		Workers:       a.config.WorkerCount,
		MaxPending:    a.config.MaxPending,
		Tolerance:     a.config.CoastingTolerance,
		KeepAllFrames: a.config.KeepAllFrames,
	}, a.logger, a.metrics)
}

// session bundles the bookkeeping attached to one run.
type session struct {
	run      *models.Run
	recorder *storage.Recorder
	cancel   context.CancelFunc
	done     chan struct{}
}

func (a *App) beginRun(ctx context.Context, driver *pipeline.Driver, input, output string) *session {
	opts := driver.Options()
	s := &session{
		run: &models.Run{
			ID:         opts.RunID,
			InputPath:  input,
			OutputPath: output,
			Status:     models.RunStatusRunning,
			FrameSkip:  opts.FrameSkip,
			Workers:    opts.Workers,
			Tolerance:  opts.Tolerance,
			StartedAt:  time.Now(),
		},
	}

	if a.preview != nil {
		a.preview.SetRun(opts.RunID)
		driver.AddObserver(a.preview)
	}

	if a.runs == nil {
		return s
	}
	if err := a.runs.Insert(s.run); err != nil {
		a.logger.Error("Error saving run %s: %v", opts.RunID, err)
		return s
	}

	s.recorder = storage.NewRecorder(a.frames, opts.RunID, storage.DefaultBatchSize, a.logger)
	driver.AddObserver(s.recorder)

	var recCtx context.Context
	recCtx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	go func() {
		defer close(s.done)
		s.recorder.Run(recCtx, recorderFlushInterval)
	}()
	return s
}

func (a *App) finishRun(s *session, summary pipeline.Summary, runErr error) {
	if s.recorder == nil {
		return
	}
	s.cancel()
	<-s.done
	if err := s.recorder.Close(); err != nil {
		a.logger.Warning("Run %s: some frame results were not stored: %v", s.run.ID, err)
	}

	s.run.FramesRead = summary.FramesRead
	s.run.FramesWritten = summary.FramesWritten
	s.run.DetectionFailures = summary.DetectionFailures
	s.run.FinishedAt = time.Now()
	s.run.Status = models.RunStatusCompleted
	if runErr != nil {
		s.run.Status = models.RunStatusFailed
		s.run.Error = runErr.Error()
		if !pipeline.IsFatal(runErr) {
			// przerwane przez użytkownika (ctrl+c)
			s.run.Error = "interrupted: " + s.run.Error
		}
	}
	if err := a.runs.Finish(s.run); err != nil {
		a.logger.Error("Error updating run %s: %v", s.run.ID, err)
	}
}

// ProcessVideo annotates the video at input and writes it to output. An empty
// output selects the default name. Extra observers see every written frame.
func (a *App) ProcessVideo(ctx context.Context, input, output string, observers ...pipeline.Observer) (pipeline.Summary, error) {
	if output == "" {
		output = video.DefaultOutputPath(input, a.config.FrameSkip)
	}

	src, err := video.OpenCapture(input)
	if err != nil {
		return pipeline.Summary{}, err
	}
	defer src.Close()

	width, height := src.Size()
	fps := pipeline.OutputFPS(src.FPS(), a.config.FrameSkip, a.config.KeepAllFrames)
	a.logger.Info("📹 %s: %dx%d @ %.2f fps, %d frame(s) -> %s @ %.2f fps", input, width, height, src.FPS(), src.FrameCount(), output, fps)

	sink, err := video.CreateWriter(output, a.config.OutputCodec, fps, width, height)
	if err != nil {
		return pipeline.Summary{}, pipeline.SinkError("create "+output, err)
	}

	driver, err := a.newDriver(uuid.NewString())
	if err != nil {
		sink.Abort()
		return pipeline.Summary{}, err
	}
	for _, o := range observers {
		driver.AddObserver(o)
	}

	s := a.beginRun(ctx, driver, input, output)
	summary, err := driver.Run(ctx, src, sink)
	a.finishRun(s, summary, err)
	return summary, err
}

// ProcessImage annotates a single still image.
func (a *App) ProcessImage(ctx context.Context, input, output string) (models.OutputFrame, error) {
	if output == "" {
		output = video.DefaultOutputPath(input, a.config.FrameSkip)
	}

	img, err := video.ReadImage(input)
	if err != nil {
		return models.OutputFrame{}, pipeline.SourceError("read "+input, err)
	}

	driver, err := a.newDriver(uuid.NewString())
	if err != nil {
		return models.OutputFrame{}, err
	}

	s := a.beginRun(ctx, driver, input, output)
	start := time.Now()
	frame := driver.RunImage(ctx, img)

	err = video.WriteImage(output, frame)
	if err != nil {
		err = pipeline.SinkError("write "+output, err)
	}

	summary := pipeline.Summary{RunID: s.run.ID, FramesRead: 1, FramesSampled: 1, Duration: time.Since(start)}
	if err == nil {
		summary.FramesWritten = 1
	}
	if frame.Result.Failed {
		summary.DetectionFailures = 1
	}
	a.finishRun(s, summary, err)

	if err != nil {
		return frame, err
	}
	a.logger.Info("🖼️ %s: %d face(s) -> %s", input, len(frame.Result.Boxes), output)
	return frame, nil
}

// Close releases the models, the database and the log files.
func (a *App) Close() {
	if a.detector != nil {
		a.detector.Close()
	}
	if a.classifier != nil {
		a.classifier.Close()
	}
	if a.ortReady {
		if err := emotion.DestroyEnvironment(); err != nil {
			a.logger.Warning("Error releasing ONNX environment: %v", err)
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Error("Error closing database: %v", err)
		}
	}
}
