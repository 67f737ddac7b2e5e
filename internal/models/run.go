package models

import "time"

// Run statuses.
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// Run represents a processed input.
type Run struct {
	ID                string    `json:"id"`
	InputPath         string    `json:"input_path"`
	OutputPath        string    `json:"output_path"`
	Status            string    `json:"status"`
	FrameSkip         int       `json:"frame_skip"`
	Workers           int       `json:"workers"`
	Tolerance         int       `json:"tolerance"`
	FramesRead        int       `json:"frames_read"`
	FramesWritten     int       `json:"frames_written"`
	DetectionFailures int       `json:"detection_failures"`
	Error             string    `json:"error,omitempty"`
	StartedAt         time.Time `json:"started_at"`
	FinishedAt        time.Time `json:"finished_at,omitempty"`
}

// FrameRecord is the persisted outcome of one written frame.
type FrameRecord struct {
	ID         int64  `json:"id"`
	RunID      string `json:"run_id"`
	FrameIndex int    `json:"frame_index"`
	Attempted  bool   `json:"attempted"`
	Failed     bool   `json:"failed"`
	Phase      string `json:"phase"`
	Misses     int    `json:"misses"`
	Faces      int    `json:"faces"`
	Label      string `json:"label"`
	X          int    `json:"x"`
	Y          int    `json:"y"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
}

// RunStats summarises the frame records of a run.
type RunStats struct {
	TotalFrames  int            `json:"total_frames"`
	PerPhase     map[string]int `json:"per_phase"`
	LabelCounts  map[string]int `json:"label_counts"`
	FailedFrames int            `json:"failed_frames"`
}
