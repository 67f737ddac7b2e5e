package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stressvision/internal/models"
)

func hit(index int, status models.StressStatus) models.DetectionResult {
	return models.DetectionResult{
		FrameIndex: index,
		Attempted:  true,
		Boxes: []models.LabeledBox{{
			Box:        models.BoundingBox{X: index, Y: 0, Width: 10, Height: 10},
			Confidence: 0.8,
			Status:     status,
		}},
	}
}

func miss(index int) models.DetectionResult {
	return models.DetectionResult{FrameIndex: index, Attempted: true}
}

func skipped(index int) models.DetectionResult {
	return models.DetectionResult{FrameIndex: index}
}

func TestReconciler_StartsIdle(t *testing.T) {
	r := NewReconciler(10)
	assert.Equal(t, models.PhaseIdle, r.State().Phase)

	overlays := r.Apply(miss(0))
	assert.Empty(t, overlays)
	assert.Equal(t, models.PhaseIdle, r.State().Phase)
	assert.False(t, r.State().Active())
}

func TestReconciler_TrackingRendersEveryBox(t *testing.T) {
	r := NewReconciler(10)
	res := models.DetectionResult{
		FrameIndex: 0,
		Attempted:  true,
		Boxes: []models.LabeledBox{
			{Box: models.BoundingBox{X: 0, Y: 0, Width: 5, Height: 5}, Confidence: 0.6, Emotion: "happy", Status: models.StatusCalm},
			{Box: models.BoundingBox{X: 20, Y: 0, Width: 5, Height: 5}, Confidence: 0.9, Emotion: "fear", Status: models.StatusStressed},
			{Box: models.BoundingBox{X: 40, Y: 0, Width: 5, Height: 5}, Confidence: 0.7, Status: models.StatusUnknown},
		},
	}

	overlays := r.Apply(res)
	require.Len(t, overlays, 3)
	assert.Equal(t, models.Overlay{Box: res.Boxes[0].Box, Text: "calm", Style: models.StyleCalm}, overlays[0])
	assert.Equal(t, models.Overlay{Box: res.Boxes[1].Box, Text: "stressed", Style: models.StyleStressed}, overlays[1])
	assert.Equal(t, models.Overlay{Box: res.Boxes[2].Box, Style: models.StyleUnlabeled}, overlays[2])

	state := r.State()
	assert.Equal(t, models.PhaseTracking, state.Phase)
	require.NotNil(t, state.LastBox)
	assert.Equal(t, res.Boxes[1].Box, *state.LastBox, "highest confidence box is tracked")
	assert.Equal(t, models.StatusStressed, state.LastLabel)
}

func TestReconciler_CoastingBound(t *testing.T) {
	for _, tolerance := range []int{0, 1, 3, 10} {
		r := NewReconciler(tolerance)
		r.Apply(hit(0, models.StatusCalm))

		for m := 1; m <= tolerance; m++ {
			overlays := r.Apply(miss(m))
			require.Len(t, overlays, 1, "tolerance %d miss %d", tolerance, m)
			assert.Equal(t, models.StyleCoasting, overlays[0].Style)
			assert.Empty(t, overlays[0].Text)
			assert.Equal(t, models.PhaseCoasting, r.State().Phase)
			assert.Equal(t, m, r.State().Misses)
		}

		overlays := r.Apply(miss(tolerance + 1))
		assert.Empty(t, overlays, "tolerance %d", tolerance)
		assert.Equal(t, models.PhaseExpired, r.State().Phase)
		assert.Nil(t, r.State().LastBox)
	}
}

func TestReconciler_ExpiredStaysExpired(t *testing.T) {
	r := NewReconciler(2)
	r.Apply(hit(0, models.StatusCalm))
	for i := 1; i <= 5; i++ {
		r.Apply(miss(i))
	}
	assert.Equal(t, models.PhaseExpired, r.State().Phase)
	assert.Nil(t, r.State().LastBox)

	overlays := r.Apply(hit(6, models.StatusStressed))
	require.Len(t, overlays, 1)
	assert.Equal(t, models.PhaseTracking, r.State().Phase)
	assert.Equal(t, 0, r.State().Misses)
}

func TestReconciler_UnattemptedFramesFreezeState(t *testing.T) {
	r := NewReconciler(10)
	r.Apply(hit(0, models.StatusCalm))
	r.Apply(miss(3))
	before := r.State()

	overlays := r.Apply(skipped(4))
	assert.Nil(t, overlays)
	assert.Equal(t, before, r.State())
}

func TestReconciler_FailedFrameCountsAsMiss(t *testing.T) {
	r := NewReconciler(10)
	r.Apply(hit(0, models.StatusCalm))

	overlays := r.Apply(models.DetectionResult{FrameIndex: 1, Attempted: true, Failed: true})
	require.Len(t, overlays, 1)
	assert.Equal(t, models.StyleCoasting, overlays[0].Style)
	assert.Equal(t, 1, r.State().Misses)
}

func TestReconciler_StateIsACopy(t *testing.T) {
	r := NewReconciler(10)
	r.Apply(hit(0, models.StatusCalm))

	s := r.State()
	s.LastBox.X = 999
	assert.NotEqual(t, 999, r.State().LastBox.X)
}

func TestReconciler_ReplayIsDeterministic(t *testing.T) {
	results := []models.DetectionResult{
		hit(0, models.StatusCalm), miss(1), skipped(2), miss(3), hit(4, models.StatusStressed),
		miss(5), miss(6), miss(7), skipped(8), hit(9, models.StatusUnknown), miss(10),
	}

	trajectory := func() []models.TrackState {
		r := NewReconciler(2)
		var states []models.TrackState
		for _, res := range results {
			r.Apply(res)
			states = append(states, r.State())
		}
		return states
	}

	assert.Equal(t, trajectory(), trajectory())
}
