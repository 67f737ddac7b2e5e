package pipeline

import (
	"stressvision/internal/models"
)

// Reconciler owns the tracking state of a run. It must be fed detection
// results strictly in frame order and is not safe for concurrent use.
type Reconciler struct {
	tolerance int
	state     models.TrackState
}

// NewReconciler creates a Reconciler in the Idle phase. A box is coasted for
// at most tolerance consecutive misses.
func NewReconciler(tolerance int) *Reconciler {
	if tolerance < 0 {
		tolerance = 0
	}
	return &Reconciler{tolerance: tolerance}
}

// State returns a copy of the current tracking state.
func (r *Reconciler) State() models.TrackState {
	s := r.state
	if s.LastBox != nil {
		box := *s.LastBox
		s.LastBox = &box
	}
	return s
}

// Apply advances the state machine with the result of one frame and returns
// the overlays to draw on it. Frames that were not attempted leave the state
// untouched and get no overlays.
func (r *Reconciler) Apply(res models.DetectionResult) []models.Overlay {
	if !res.Attempted {
		return nil
	}

	primary, ok := res.Primary()
	if !ok {
		return r.miss()
	}

	box := primary.Box
	r.state = models.TrackState{
		Phase:     models.PhaseTracking,
		LastBox:   &box,
		LastLabel: primary.Status,
		Misses:    0,
	}

	overlays := make([]models.Overlay, 0, len(res.Boxes))
	for _, b := range res.Boxes {
		overlays = append(overlays, models.Overlay{
			Box:   b.Box,
			Text:  overlayText(b.Status),
			Style: b.Status.Style(),
		})
	}
	return overlays
}

func (r *Reconciler) miss() []models.Overlay {
	r.state.Misses++

	if r.state.LastBox == nil {
		// Idle stays Idle, Expired stays Expired.
		return nil
	}

	if r.state.Misses > r.tolerance {
		r.state.Phase = models.PhaseExpired
		r.state.LastBox = nil
		return nil
	}

	r.state.Phase = models.PhaseCoasting
	return []models.Overlay{{Box: *r.state.LastBox, Style: models.StyleCoasting}}
}

func overlayText(s models.StressStatus) string {
	if s == models.StatusUnknown {
		return ""
	}
	return s.String()
}
