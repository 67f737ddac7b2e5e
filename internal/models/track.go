package models

// TrackPhase is the phase of the coasting state machine.
type TrackPhase int

const (
	PhaseIdle TrackPhase = iota
	PhaseTracking
	PhaseCoasting
	PhaseExpired
)

func (p TrackPhase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseTracking:
		return "tracking"
	case PhaseCoasting:
		return "coasting"
	case PhaseExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// TrackState is the single piece of cross-frame state of a run.
type TrackState struct {
	Phase     TrackPhase   `json:"phase"`
	LastBox   *BoundingBox `json:"last_box,omitempty"`
	LastLabel StressStatus `json:"last_label"`
	Misses    int          `json:"misses"`
}

// Active reports whether a box is currently shown.
func (s TrackState) Active() bool {
	return s.LastBox != nil
}
