package video

import (
	"context"
	"errors"
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"stressvision/internal/services/ai"
	"stressvision/internal/services/pipeline"
)

const frameCountSlack = 1

// CaptureSource reads frames from a video file.
type CaptureSource struct {
	capture *gocv.VideoCapture
	mat     gocv.Mat
	path    string
	fps     float64
	width   int
	height  int
	frames  int
	read    int
}

// OpenCapture opens path for reading.
func OpenCapture(path string) (*CaptureSource, error) {
	capture, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, pipeline.SourceError("open "+path, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, pipeline.SourceError("open "+path, fmt.Errorf("video could not be opened"))
	}

	return &CaptureSource{
		capture: capture,
		mat:     gocv.NewMat(),
		path:    path,
		fps:     capture.Get(gocv.VideoCaptureFPS),
		width:   int(capture.Get(gocv.VideoCaptureFrameWidth)),
		height:  int(capture.Get(gocv.VideoCaptureFrameHeight)),
		frames:  int(capture.Get(gocv.VideoCaptureFrameCount)),
	}, nil
}

func (s *CaptureSource) FPS() float64 {
	return s.fps
}

func (s *CaptureSource) Size() (int, int) {
	return s.width, s.height
}

// FrameCount is the container's frame count estimate; it may be 0 or inexact.
func (s *CaptureSource) FrameCount() int {
	return s.frames
}

// Read decodes the next frame. It returns io.EOF at the end of the stream and
// an error when decoding stops before the container's frame count. Containers
// without a frame count cannot tell the two apart and always end with io.EOF.
func (s *CaptureSource) Read(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !s.capture.Read(&s.mat) || s.mat.Empty() {
		// szacunek liczby klatek bywa o jedną za duży
		err := pipeline.EndOfStream(s.read+frameCountSlack, s.frames)
		if errors.Is(err, pipeline.ErrTruncated) {
			return nil, fmt.Errorf("decode frame %d from %s: %w", s.read, s.path, err)
		}
		return nil, err
	}
	s.read++
	img, err := ai.MatToImage(s.mat)
	if err != nil {
		return nil, fmt.Errorf("decode frame from %s: %w", s.path, err)
	}
	return img, nil
}

func (s *CaptureSource) Close() error {
	s.mat.Close()
	return s.capture.Close()
}

// CountFrames opens path just long enough to read its frame count estimate.
// It returns -1 when the count is unknown.
func CountFrames(path string) int {
	capture, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return -1
	}
	defer capture.Close()

	frames := int(capture.Get(gocv.VideoCaptureFrameCount))
	if frames <= 0 {
		return -1
	}
	return frames
}
