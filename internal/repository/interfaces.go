package repository

import (
	"errors"

	"stressvision/internal/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// RunRepository defines the interface for run bookkeeping.
type RunRepository interface {
	// Create operations
	Insert(run *models.Run) error

	// Update operations
	Finish(run *models.Run) error

	// Read operations
	GetByID(id string) (*models.Run, error)
	List(limit int) ([]models.Run, error)

	// Delete operations
	Delete(id string) error
}

// FrameRepository defines the interface for per-frame results.
type FrameRepository interface {
	// Create operations
	InsertBatch(records []models.FrameRecord) error

	// Read operations
	GetByRunID(runID string) ([]models.FrameRecord, error)
	CountByPhase(runID string) (map[string]int, error)
	Stats(runID string) (*models.RunStats, error)
}
