package video

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"gocv.io/x/gocv"

	"stressvision/internal/models"
	"stressvision/internal/services/ai"
)

const DefaultCodec = "mp4v"

// WriterSink writes annotated frames into a temporary file next to the
// destination. Commit renames it into place; Abort removes it, so the
// destination never holds a truncated video.
type WriterSink struct {
	writer  *gocv.VideoWriter
	path    string
	tmpPath string
	width   int
	height  int
	closed  bool
}

// CreateWriter opens a writer for a video of the given geometry.
func CreateWriter(path, codec string, fps float64, width, height int) (*WriterSink, error) {
	if codec == "" {
		codec = DefaultCodec
	}
	if fps <= 0 {
		fps = 1
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid frame size %dx%d", width, height)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("error creating directory: %w", err)
	}
	// Keep the extension so OpenCV picks the right container.
	tmpPath := filepath.Join(dir, ".partial-"+filepath.Base(path))

	writer, err := gocv.VideoWriterFile(tmpPath, codec, fps, width, height, true)
	if err != nil {
		return nil, fmt.Errorf("failed to open video writer: %w", err)
	}
	if !writer.IsOpened() {
		writer.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("video writer could not be opened for %s", path)
	}

	return &WriterSink{
		writer:  writer,
		path:    path,
		tmpPath: tmpPath,
		width:   width,
		height:  height,
	}, nil
}

// Write draws the overlays of frame and appends it to the video.
func (w *WriterSink) Write(ctx context.Context, frame models.OutputFrame) error {
	if w.closed {
		return fmt.Errorf("writer is closed")
	}

	mat, err := ai.RenderFrame(frame)
	if err != nil {
		return err
	}
	defer mat.Close()

	if mat.Cols() != w.width || mat.Rows() != w.height {
		resized := gocv.NewMat()
		defer resized.Close()
		gocv.Resize(mat, &resized, image.Pt(w.width, w.height), 0, 0, gocv.InterpolationLinear)
		if resized.Empty() {
			return fmt.Errorf("failed to resize frame %d", frame.Frame.Index)
		}
		return w.writer.Write(resized)
	}

	return w.writer.Write(mat)
}

// Commit finishes the file and moves it to its destination.
func (w *WriterSink) Commit() error {
	if err := w.close(); err != nil {
		os.Remove(w.tmpPath)
		return err
	}
	if err := os.Rename(w.tmpPath, w.path); err != nil {
		os.Remove(w.tmpPath)
		return fmt.Errorf("failed to move output into place: %w", err)
	}
	return nil
}

// Abort discards everything written so far.
func (w *WriterSink) Abort() error {
	closeErr := w.close()
	if err := os.Remove(w.tmpPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove partial output: %w", err)
	}
	return closeErr
}

func (w *WriterSink) close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	return w.writer.Close()
}
