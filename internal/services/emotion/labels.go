package emotion

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
)

const (
	InputWidth  = 64
	InputHeight = 64
)

// Labels are the FER+ output classes in model order.
var Labels = []string{"neutral", "happy", "surprise", "sad", "angry", "disgust", "fear", "contempt"}

// Unknown is returned when the best score is below the threshold.
const Unknown = "unknown"

// Preprocess turns a face crop into the 1x1x64x64 grayscale tensor the model
// expects. Pixel values stay in the 0..255 range.
func Preprocess(face image.Image, dst []float32) {
	gray := imaging.Grayscale(face)
	resized := imaging.Resize(gray, InputWidth, InputHeight, imaging.Linear)

	for y := 0; y < InputHeight; y++ {
		offset := y * InputWidth
		for x := 0; x < InputWidth; x++ {
			r, _, _, _ := resized.At(x, y).RGBA()
			dst[offset+x] = float32(r >> 8)
		}
	}
}

// Softmax converts raw scores into probabilities.
func Softmax(scores []float32) []float64 {
	if len(scores) == 0 {
		return nil
	}

	maxScore := float64(scores[0])
	for _, s := range scores[1:] {
		maxScore = math.Max(maxScore, float64(s))
	}

	probs := make([]float64, len(scores))
	var sum float64
	for i, s := range scores {
		probs[i] = math.Exp(float64(s) - maxScore)
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs
}

// Decide picks the label with the highest probability, or Unknown when it is
// below threshold.
func Decide(scores []float32, threshold float64) (string, float64) {
	probs := Softmax(scores)
	if len(probs) == 0 {
		return Unknown, 0
	}

	best := 0
	for i, p := range probs {
		if p > probs[best] {
			best = i
		}
	}
	if best >= len(Labels) || probs[best] < threshold {
		return Unknown, probs[best]
	}
	return Labels[best], probs[best]
}
