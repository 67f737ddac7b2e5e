package ai

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"stressvision/internal/models"
)

var (
	green = color.RGBA{R: 0, G: 255, B: 0, A: 255}
	red   = color.RGBA{R: 255, G: 0, B: 0, A: 255}
	cyan  = color.RGBA{R: 0, G: 255, B: 255, A: 255}
)

const (
	boxThickness  = 2
	textScale     = 0.6
	textThickness = 2
	textOffset    = 10
)

// StyleColor returns the colour an overlay style is drawn with.
func StyleColor(style models.OverlayStyle) color.RGBA {
	switch style {
	case models.StyleStressed:
		return red
	case models.StyleCoasting:
		return cyan
	default:
		return green
	}
}

// Annotate burns overlays into mat.
func Annotate(mat *gocv.Mat, overlays []models.Overlay) error {
	for _, o := range overlays {
		c := StyleColor(o.Style)

		if o.Text != "" {
			pt := image.Pt(o.Box.X, o.Box.Y-textOffset)
			if err := gocv.PutText(mat, o.Text, pt, gocv.FontHersheySimplex, textScale, c, textThickness); err != nil {
				return fmt.Errorf("failed to draw text: %w", err)
			}
		}

		if err := gocv.Rectangle(mat, o.Box.Rect(), c, boxThickness); err != nil {
			return fmt.Errorf("failed to draw rectangle: %w", err)
		}
	}
	return nil
}

// RenderFrame converts an output frame into a BGR Mat with its overlays drawn.
// The caller owns the result.
func RenderFrame(frame models.OutputFrame) (gocv.Mat, error) {
	mat, err := ImageToMat(frame.Frame.Image)
	if err != nil {
		return mat, err
	}
	if err := Annotate(&mat, frame.Overlays); err != nil {
		mat.Close()
		return gocv.NewMat(), err
	}
	return mat, nil
}

// EncodeJPEG renders an output frame and encodes it as JPEG.
func EncodeJPEG(frame models.OutputFrame) ([]byte, error) {
	mat, err := RenderFrame(frame)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, mat)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	defer buf.Close()

	encoded := make([]byte, len(buf.GetBytes()))
	copy(encoded, buf.GetBytes())
	return encoded, nil
}
