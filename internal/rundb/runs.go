package rundb

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Run is one persisted conversion run.
type Run struct {
	RunID          string  `json:"run_id"`
	ModelPath      string  `json:"model_path"`
	InputPath      string  `json:"input_path"`
	Frames         int     `json:"frames"`
	FeatureOrder   int     `json:"feature_order"`
	Mixtures       int     `json:"mixtures"`
	Swap           bool    `json:"swap"`
	GV             bool    `json:"gv"`
	GVEpochs       int     `json:"gv_epochs,omitempty"`
	GVLearningRate float64 `json:"gv_learning_rate,omitempty"`
	DurationNanos  int64   `json:"duration_nanos"`
	CreatedAt      int64   `json:"created_at"`
}

// InsertRun persists a run record. If RunID is empty, a UUID is generated.
func (db *DB) InsertRun(run *Run) error {
	if run.RunID == "" {
		run.RunID = uuid.New().String()
	}
	if run.CreatedAt == 0 {
		run.CreatedAt = time.Now().UnixNano()
	}

	_, err := db.Exec(`
		INSERT INTO runs (
			run_id, model_path, input_path, frames, feature_order, mixtures,
			swap, gv, gv_epochs, gv_learning_rate, duration_nanos, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.RunID, run.ModelPath, run.InputPath, run.Frames, run.FeatureOrder,
		run.Mixtures, run.Swap, run.GV, run.GVEpochs, run.GVLearningRate,
		run.DurationNanos, run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.RunID, err)
	}
	return nil
}

// ListRuns returns up to limit runs, most recent first.
func (db *DB) ListRuns(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Query(`
		SELECT run_id, model_path, input_path, frames, feature_order, mixtures,
			swap, gv, gv_epochs, gv_learning_rate, duration_nanos, created_at
		FROM runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(
			&r.RunID, &r.ModelPath, &r.InputPath, &r.Frames, &r.FeatureOrder,
			&r.Mixtures, &r.Swap, &r.GV, &r.GVEpochs, &r.GVLearningRate,
			&r.DurationNanos, &r.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
