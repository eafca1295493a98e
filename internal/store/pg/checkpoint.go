package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/teamatoi/meetcore/internal/orchestration"
)

// CheckpointStore persists suspended orchestration runs, so a
// human-in-the-loop interrupt survives a process restart and can be
// resumed by any serving instance. The full State is one JSONB column:
// unlike context snapshots, nothing ever queries inside a checkpoint;
// it's written once at interrupt and read once at resume.
type CheckpointStore struct {
	db *sql.DB
}

func NewCheckpointStore(db *sql.DB) *CheckpointStore {
	return &CheckpointStore{db: db}
}

var _ orchestration.Checkpointer = (*CheckpointStore)(nil)

func (s *CheckpointStore) Save(ctx context.Context, runID string, st *orchestration.State) error {
	state, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO orchestration_checkpoints (run_id, state, updated_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (run_id) DO UPDATE SET state = EXCLUDED.state, updated_at = now()`,
		runID, state,
	)
	if err != nil {
		return fmt.Errorf("save checkpoint %s: %w", runID, err)
	}
	return nil
}

func (s *CheckpointStore) Load(ctx context.Context, runID string) (*orchestration.State, error) {
	var state []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT state FROM orchestration_checkpoints WHERE run_id = $1`, runID,
	).Scan(&state)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("no checkpoint for run %s", runID)
	}
	if err != nil {
		return nil, fmt.Errorf("load checkpoint %s: %w", runID, err)
	}

	var st orchestration.State
	if err := json.Unmarshal(state, &st); err != nil {
		return nil, fmt.Errorf("unmarshal checkpoint %s: %w", runID, err)
	}
	return &st, nil
}

func (s *CheckpointStore) Delete(ctx context.Context, runID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM orchestration_checkpoints WHERE run_id = $1`, runID,
	)
	if err != nil {
		return fmt.Errorf("delete checkpoint %s: %w", runID, err)
	}
	return nil
}
