package emotion

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSoftmax(t *testing.T) {
	probs := Softmax([]float32{1, 1, 1, 1})
	require.Len(t, probs, 4)
	for _, p := range probs {
		assert.InDelta(t, 0.25, p, 1e-9)
	}

	probs = Softmax([]float32{1000, 0})
	assert.InDelta(t, 1.0, probs[0], 1e-9, "large scores must not overflow")
	assert.Nil(t, Softmax(nil))
}

func TestDecide(t *testing.T) {
	scores := make([]float32, len(Labels))
	scores[6] = 10 // fear

	label, p := Decide(scores, 0.3)
	assert.Equal(t, "fear", label)
	assert.Greater(t, p, 0.9)

	flat := make([]float32, len(Labels))
	label, _ = Decide(flat, 0.3)
	assert.Equal(t, Unknown, label, "no clear winner")

	label, _ = Decide(nil, 0.3)
	assert.Equal(t, Unknown, label)
}

func TestPreprocess(t *testing.T) {
	face := image.NewRGBA(image.Rect(0, 0, 10, 20))
	for y := 0; y < 20; y++ {
		for x := 0; x < 10; x++ {
			face.Set(x, y, color.RGBA{R: 200, G: 200, B: 200, A: 255})
		}
	}

	dst := make([]float32, InputWidth*InputHeight)
	Preprocess(face, dst)

	for _, v := range dst {
		assert.InDelta(t, 200, v, 1)
	}
}
