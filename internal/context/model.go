// Package context implements the hierarchical meeting-context engine:
// a bounded L0 raw window, a per-topic L0 buffer, and an append-only L1
// list of summarized TopicSegments, with LLM-assisted topic detection
// and recursive summarization.
package context

import "time"

// Utterance is one STT-transcribed turn fed into the context engine.
type Utterance struct {
	ID                int64     `json:"id"`
	SpeakerID         string    `json:"speaker_id"`
	SpeakerName       string    `json:"speaker_name"`
	Text              string    `json:"text"`
	StartMs           int64     `json:"start_ms"`
	EndMs             int64     `json:"end_ms"`
	Confidence        float64   `json:"confidence"`
	Topic             string    `json:"topic"`
	AbsoluteTimestamp time.Time `json:"absolute_timestamp"`
}

// TopicSegment is one completed (or in-progress) L1 summary unit. The
// JSON shape is the persisted snapshot layout.
type TopicSegment struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Summary          string   `json:"summary"`
	StartUtteranceID int64    `json:"start_utterance_id"`
	EndUtteranceID   int64    `json:"end_utterance_id"`
	KeyPoints        []string `json:"key_points"`
	Keywords         []string `json:"keywords"`
	KeyDecisions     []string `json:"key_decisions"`
	PendingItems     []string `json:"pending_items"`
	Participants     []string `json:"participants"`
}
