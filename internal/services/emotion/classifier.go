package emotion

import (
	"context"
	"fmt"
	"image"
	"runtime"

	ort "github.com/yalue/onnxruntime_go"

	"stressvision/internal/logger"
	"stressvision/internal/services/pool"
)

// ModelSession is one ONNX Runtime session with its bound tensors.
type ModelSession struct {
	Session *ort.AdvancedSession
	Input   *ort.Tensor[float32]
	Output  *ort.Tensor[float32]
}

func (m *ModelSession) Destroy() {
	if m.Session != nil {
		m.Session.Destroy()
	}
	if m.Input != nil {
		m.Input.Destroy()
	}
	if m.Output != nil {
		m.Output.Destroy()
	}
}

// Classifier labels face crops with an FER+ emotion model.
type Classifier struct {
	sessions  *pool.Pool[*ModelSession]
	threshold float64
	logger    *logger.Logger
}

// InitializeEnvironment loads the ONNX Runtime shared library. It must be
// called once before NewClassifier; DestroyEnvironment undoes it.
func InitializeEnvironment(libPath string) error {
	if libPath != "" {
		ort.SetSharedLibraryPath(libPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("failed to initialize ONNX environment: %w", err)
	}
	return nil
}

func DestroyEnvironment() error {
	return ort.DestroyEnvironment()
}

// NewClassifier creates size sessions of the model at modelPath.
func NewClassifier(modelPath string, threshold float64, size int, logger *logger.Logger) (*Classifier, error) {
	sessions, err := pool.New(size, func(int) (*ModelSession, error) {
		return initSession(modelPath)
	}, (*ModelSession).Destroy)
	if err != nil {
		return nil, fmt.Errorf("could not initialize emotion model: %w", err)
	}

	logger.Info("Emotion model %s loaded (%d session(s))", modelPath, sessions.Size())
	return &Classifier{
		sessions:  sessions,
		threshold: threshold,
		logger:    logger,
	}, nil
}

func initSession(modelPath string) (*ModelSession, error) {
	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("error creating session options: %w", err)
	}
	defer options.Destroy()

	options.SetIntraOpNumThreads(max(1, runtime.NumCPU()/2))
	options.SetInterOpNumThreads(1)

	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 1, InputHeight, InputWidth))
	if err != nil {
		return nil, fmt.Errorf("error creating input tensor: %w", err)
	}

	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(len(Labels))))
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("error creating output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(
		modelPath,
		[]string{"Input3"},
		[]string{"Plus692_Output_0"},
		[]ort.ArbitraryTensor{inputTensor},
		[]ort.ArbitraryTensor{outputTensor},
		options,
	)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("error creating session: %w", err)
	}

	return &ModelSession{
		Session: session,
		Input:   inputTensor,
		Output:  outputTensor,
	}, nil
}

// Classify returns the dominant emotion of face, or Unknown.
func (c *Classifier) Classify(ctx context.Context, face image.Image) (string, error) {
	if face == nil || face.Bounds().Empty() {
		return Unknown, nil
	}

	session, err := c.sessions.Acquire(ctx)
	if err != nil {
		return "", fmt.Errorf("acquire session: %w", err)
	}
	defer c.sessions.Release(session)

	Preprocess(face, session.Input.GetData())

	if err := session.Session.Run(); err != nil {
		return "", fmt.Errorf("model inference: %w", err)
	}

	label, _ := Decide(session.Output.GetData(), c.threshold)
	return label, nil
}

// Close destroys every session.
func (c *Classifier) Close() {
	m := c.sessions.Metrics()
	if m.AcquireFailures > 0 {
		c.logger.Warning("Emotion model: %d classification(s) timed out waiting for a session", m.AcquireFailures)
	}
	c.sessions.Destroy()
}
