package sqlite

import (
	"fmt"

	"stressvision/internal/models"
)

// FrameRepository implements repository.FrameRepository for SQLite.
type FrameRepository struct {
	db *DB
}

// NewFrameRepository creates a new SQLite frame result repository.
func NewFrameRepository(db *DB) *FrameRepository {
	return &FrameRepository{db: db}
}

// InsertBatch adds multiple frame records in a single transaction.
func (r *FrameRepository) InsertBatch(records []models.FrameRecord) error {
	if len(records) == 0 {
		return nil
	}

	r.db.Lock()
	defer r.db.Unlock()

	tx, err := r.db.Conn().Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO frame_results (run_id, frame_index, attempted, failed, phase, misses, faces, label, x, y, width, height)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		if _, err := stmt.Exec(rec.RunID, rec.FrameIndex, rec.Attempted, rec.Failed, rec.Phase, rec.Misses, rec.Faces,
			rec.Label, rec.X, rec.Y, rec.Width, rec.Height); err != nil {
			return fmt.Errorf("failed to insert frame %d: %w", rec.FrameIndex, err)
		}
	}

	return tx.Commit()
}

// GetByRunID retrieves all frame records of a run in frame order.
func (r *FrameRepository) GetByRunID(runID string) ([]models.FrameRecord, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(`
		SELECT id, run_id, frame_index, attempted, failed, phase, misses, faces, label, x, y, width, height
		FROM frame_results WHERE run_id = ? ORDER BY frame_index
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query frame results: %w", err)
	}
	defer rows.Close()

	var records []models.FrameRecord
	for rows.Next() {
		var rec models.FrameRecord
		if err := rows.Scan(&rec.ID, &rec.RunID, &rec.FrameIndex, &rec.Attempted, &rec.Failed, &rec.Phase, &rec.Misses,
			&rec.Faces, &rec.Label, &rec.X, &rec.Y, &rec.Width, &rec.Height); err != nil {
			return nil, fmt.Errorf("failed to scan frame result: %w", err)
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// CountByPhase returns how many frames of a run were written in each tracking phase.
func (r *FrameRepository) CountByPhase(runID string) (map[string]int, error) {
	return r.countBy(runID, "phase")
}

// Stats summarises the frame records of a run.
func (r *FrameRepository) Stats(runID string) (*models.RunStats, error) {
	perPhase, err := r.CountByPhase(runID)
	if err != nil {
		return nil, err
	}
	labels, err := r.countBy(runID, "label")
	if err != nil {
		return nil, err
	}
	delete(labels, "")

	stats := &models.RunStats{PerPhase: perPhase, LabelCounts: labels}
	for _, n := range perPhase {
		stats.TotalFrames += n
	}

	r.db.RLock()
	defer r.db.RUnlock()
	err = r.db.Conn().QueryRow(`SELECT COUNT(*) FROM frame_results WHERE run_id = ? AND failed = 1`, runID).Scan(&stats.FailedFrames)
	if err != nil {
		return nil, fmt.Errorf("failed to count failed frames: %w", err)
	}

	return stats, nil
}

// countBy groups the frame records of a run by column, which must be a trusted column name.
func (r *FrameRepository) countBy(runID, column string) (map[string]int, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(`SELECT `+column+`, COUNT(*) FROM frame_results WHERE run_id = ? GROUP BY `+column, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to count by %s: %w", column, err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return nil, fmt.Errorf("failed to scan %s count: %w", column, err)
		}
		counts[key] = n
	}

	return counts, rows.Err()
}
