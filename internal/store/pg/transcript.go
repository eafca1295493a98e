package pg

import (
	"context"
	"database/sql"
	"fmt"

	mcontext "github.com/teamatoi/meetcore/internal/context"
)

// TranscriptStore persists each STT-finalized utterance and assigns
// it a monotonic ID. Plain database/sql with $N placeholders, no
// ORM.
type TranscriptStore struct {
	db *sql.DB
}

func NewTranscriptStore(db *sql.DB) *TranscriptStore {
	return &TranscriptStore{db: db}
}

// InsertUtterance stores one finalized utterance and returns its
// assigned utterance_id, used both as the restapi's transcript-upload
// response and as the context engine's ordering key.
func (s *TranscriptStore) InsertUtterance(ctx context.Context, meetingID string, u mcontext.Utterance) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO transcript_utterances
			(meeting_id, speaker_id, speaker_name, text, topic, start_ms, end_ms, confidence, absolute_timestamp)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING utterance_id`,
		meetingID, u.SpeakerID, nilStr(u.SpeakerName), u.Text, nilStr(u.Topic), u.StartMs, u.EndMs, u.Confidence, u.AbsoluteTimestamp,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert utterance: %w", err)
	}
	return id, nil
}

// UtterancesSince implements context.TranscriptStore for L0
// rehydration after a worker restart.
func (s *TranscriptStore) UtterancesSince(ctx context.Context, meetingID string, sinceUtteranceID int64, limit int) ([]mcontext.Utterance, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT utterance_id, speaker_id, speaker_name, text, topic, start_ms, end_ms, confidence, absolute_timestamp
		 FROM transcript_utterances
		 WHERE meeting_id = $1 AND utterance_id > $2
		 ORDER BY utterance_id ASC
		 LIMIT $3`,
		meetingID, sinceUtteranceID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query utterances since: %w", err)
	}
	defer rows.Close()

	var out []mcontext.Utterance
	for rows.Next() {
		var u mcontext.Utterance
		var speakerName, topic *string
		if err := rows.Scan(&u.ID, &u.SpeakerID, &speakerName, &u.Text, &topic, &u.StartMs, &u.EndMs, &u.Confidence, &u.AbsoluteTimestamp); err != nil {
			return nil, fmt.Errorf("scan utterance: %w", err)
		}
		u.SpeakerName = derefStr(speakerName)
		u.Topic = derefStr(topic)
		out = append(out, u)
	}
	return out, rows.Err()
}
