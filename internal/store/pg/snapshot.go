package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	mcontext "github.com/teamatoi/meetcore/internal/context"
)

// SnapshotStore persists the context engine's periodic snapshot, one
// row per meeting kept current by upsert.
type SnapshotStore struct {
	db *sql.DB
}

func NewSnapshotStore(db *sql.DB) *SnapshotStore {
	return &SnapshotStore{db: db}
}

func (s *SnapshotStore) SaveSnapshot(ctx context.Context, meetingID string, snap mcontext.Snapshot) error {
	segments, err := json.Marshal(snap.L1Segments)
	if err != nil {
		return fmt.Errorf("marshal l1 segments: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO context_snapshots
			(meeting_id, current_topic, l1_segments, last_summarized_utterance_id, last_l1_update, updated_at)
		 VALUES ($1, $2, $3, $4, $5, now())
		 ON CONFLICT (meeting_id) DO UPDATE SET
			current_topic = EXCLUDED.current_topic,
			l1_segments = EXCLUDED.l1_segments,
			last_summarized_utterance_id = EXCLUDED.last_summarized_utterance_id,
			last_l1_update = EXCLUDED.last_l1_update,
			updated_at = now()`,
		meetingID, nilStr(snap.CurrentTopic), segments, snap.LastSummarizedUtteranceID, snap.LastL1Update,
	)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

func (s *SnapshotStore) LoadLatestSnapshot(ctx context.Context, meetingID string) (mcontext.Snapshot, bool, error) {
	var snap mcontext.Snapshot
	var currentTopic *string
	var segments []byte

	err := s.db.QueryRowContext(ctx,
		`SELECT current_topic, l1_segments, last_summarized_utterance_id, last_l1_update
		 FROM context_snapshots WHERE meeting_id = $1`,
		meetingID,
	).Scan(&currentTopic, &segments, &snap.LastSummarizedUtteranceID, &snap.LastL1Update)
	if err == sql.ErrNoRows {
		return mcontext.Snapshot{}, false, nil
	}
	if err != nil {
		return mcontext.Snapshot{}, false, fmt.Errorf("load snapshot: %w", err)
	}

	snap.CurrentTopic = derefStr(currentTopic)
	if len(segments) > 0 {
		if err := json.Unmarshal(segments, &snap.L1Segments); err != nil {
			return mcontext.Snapshot{}, false, fmt.Errorf("unmarshal l1 segments: %w", err)
		}
	}
	return snap, true, nil
}
