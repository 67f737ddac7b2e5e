package video

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"gocv.io/x/gocv"

	"stressvision/internal/models"
	"stressvision/internal/services/ai"
)

// Kind is the type of media a file holds.
type Kind int

const (
	KindUnknown Kind = iota
	KindImage
	KindVideo
)

func (k Kind) String() string {
	switch k {
	case KindImage:
		return "image"
	case KindVideo:
		return "video"
	default:
		return "unknown"
	}
}

// DetectKind picks the media type from the file extension.
func DetectKind(path string) Kind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg", ".png":
		return KindImage
	case ".mp4", ".avi", ".mov":
		return KindVideo
	default:
		return KindUnknown
	}
}

// DefaultOutputPath names the output after the input, in the working directory.
func DefaultOutputPath(input string, frameSkip int) string {
	return fmt.Sprintf("processed_%dframes_%s", frameSkip, filepath.Base(input))
}

// ReadImage decodes a still image.
func ReadImage(path string) (image.Image, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	mat := gocv.IMRead(path, gocv.IMReadColor)
	defer mat.Close()
	if mat.Empty() {
		return nil, fmt.Errorf("failed to decode image %s", path)
	}
	return ai.MatToImage(mat)
}

// WriteImage burns the overlays of frame in and saves it to path.
func WriteImage(path string, frame models.OutputFrame) error {
	mat, err := ai.RenderFrame(frame)
	if err != nil {
		return err
	}
	defer mat.Close()

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("error creating directory: %w", err)
		}
	}
	if !gocv.IMWrite(path, mat) {
		return fmt.Errorf("failed to write image %s", path)
	}
	return nil
}
