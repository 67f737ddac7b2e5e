package ai

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

const (
	BrightThreshold = 200.0 // Obraz bardzo jasny
	DarkThreshold   = 50.0  // Obraz bardzo ciemny
)

// Enhancer corrects the contrast of very bright or very dark frames. The
// result is always a grayscale image stored in three channels.
type Enhancer struct {
	clipLimit float64
	tileGrid  image.Point
}

func NewEnhancer() *Enhancer {
	return &Enhancer{
		clipLimit: 2.0,
		tileGrid:  image.Pt(8, 8),
	}
}

// Enhance converts img to grayscale, applies CLAHE when its mean brightness
// is above BrightThreshold or histogram equalization when it is below
// DarkThreshold, and converts it back to BGR.
func (e *Enhancer) Enhance(img image.Image) (image.Image, error) {
	mat, err := ImageToMat(img)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	if err := gocv.CvtColor(mat, &gray, gocv.ColorBGRToGray); err != nil {
		return nil, fmt.Errorf("failed to convert image to grayscale: %w", err)
	}

	enhanced := gocv.NewMat()
	defer enhanced.Close()

	brightness := gray.Mean().Val1
	switch {
	case brightness > BrightThreshold:
		clahe := gocv.NewCLAHEWithParams(e.clipLimit, e.tileGrid)
		defer clahe.Close()
		clahe.Apply(gray, &enhanced)
	case brightness < DarkThreshold:
		gocv.EqualizeHist(gray, &enhanced)
	default:
		gray.CopyTo(&enhanced)
	}

	if enhanced.Empty() {
		return nil, fmt.Errorf("enhancement produced an empty image")
	}

	bgr := gocv.NewMat()
	defer bgr.Close()
	if err := gocv.CvtColor(enhanced, &bgr, gocv.ColorGrayToBGR); err != nil {
		return nil, fmt.Errorf("failed to convert image back to BGR: %w", err)
	}

	return MatToImage(bgr)
}
