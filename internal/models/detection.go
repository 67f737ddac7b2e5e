package models

// Region is a raw detector hit. Confidence is zero when the detector does
// not report one.
type Region struct {
	Box        BoundingBox `json:"box"`
	Confidence float64     `json:"confidence"`
}

// StressStatus is the stress classification derived from an emotion label.
type StressStatus int

const (
	StatusUnknown StressStatus = iota
	StatusCalm
	StatusStressed
)

func (s StressStatus) String() string {
	switch s {
	case StatusCalm:
		return "calm"
	case StatusStressed:
		return "stressed"
	default:
		return "unknown"
	}
}

// Style maps a status to the overlay style used for fresh detections.
func (s StressStatus) Style() OverlayStyle {
	switch s {
	case StatusCalm:
		return StyleCalm
	case StatusStressed:
		return StyleStressed
	default:
		return StyleUnlabeled
	}
}

// LabeledBox is a clamped face box with its classification.
type LabeledBox struct {
	Box        BoundingBox  `json:"box"`
	Confidence float64      `json:"confidence"`
	Emotion    string       `json:"emotion,omitempty"`
	Status     StressStatus `json:"status"`
}

// DetectionResult is the outcome of the per-frame detection task.
// Attempted is false for frames the sampler skipped.
type DetectionResult struct {
	FrameIndex int          `json:"frame_index"`
	Attempted  bool         `json:"attempted"`
	Failed     bool         `json:"failed"`
	Boxes      []LabeledBox `json:"boxes"`
}

// Primary returns the box the tracker follows: the highest confidence box,
// the first one on ties.
func (r DetectionResult) Primary() (LabeledBox, bool) {
	if len(r.Boxes) == 0 {
		return LabeledBox{}, false
	}
	best := r.Boxes[0]
	for _, b := range r.Boxes[1:] {
		if b.Confidence > best.Confidence {
			best = b
		}
	}
	return best, true
}
