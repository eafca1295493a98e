package context

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeLLM struct {
	response string
	err      error
}

func (f *fakeLLM) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func (f *fakeLLM) Name() string { return "fake" }

func testConfig() ManagerConfig {
	return ManagerConfig{
		L0MaxTurns:                       50,
		L0TopicBufferMaxTurns:            80,
		TopicQuickCheckEnabled:           false,
		TopicCheckIntervalTurns:          0,
		L1UpdateTurnThreshold:            1000, // disable turn-limit trigger for these tests
		L1UpdateInterval:                 time.Hour,
		L1MinNewUtterancesForTimeTrigger: 1000,
		DBSyncUtteranceThreshold:         1000,
		DBSyncInterval:                   time.Hour,
		SpeakerBufferMaxPerSpeaker:       30,
	}
}

func mkUtterance(id int64, speaker, text string) Utterance {
	return Utterance{ID: id, SpeakerID: speaker, SpeakerName: speaker, Text: text}
}

func TestManager_EmptyTextIgnored(t *testing.T) {
	cfg := testConfig()
	m := NewManager("m1", cfg, nil, NewSummarizer(nil, 256), nil)

	m.AddUtterance(context.Background(), mkUtterance(1, "alice", "   "))

	require.Equal(t, 0, m.l0Buffer.Len())
}

func TestManager_TopicChangeCreatesSegmentAndResetsBuffer(t *testing.T) {
	cfg := testConfig()
	cfg.TopicQuickCheckEnabled = true
	llm := &fakeLLM{response: `{"topic_changed": true, "current_topic": "Pricing"}`}
	detector := NewTopicDetector(llm, []string{"next topic"})
	summarizer := NewSummarizer(llm, 256)
	m := NewManager("m1", cfg, detector, summarizer, nil)

	for i := int64(1); i <= 11; i++ {
		m.AddUtterance(context.Background(), mkUtterance(i, "alice", "discussing intro stuff"))
	}
	require.Equal(t, "Intro", m.CurrentTopic())

	// The 12th utterance's text trips the quick-check hint; calling
	// shouldUpdateL1Locked directly runs the LLM topic-detect path
	// synchronously.
	u := mkUtterance(12, "alice", "ok next topic: let's talk pricing")
	m.mu.Lock()
	should, why, next := m.shouldUpdateL1Locked(context.Background(), u)
	m.mu.Unlock()
	require.True(t, should)
	require.Equal(t, reasonTopicChange, why)
	require.Equal(t, "Pricing", next)

	m.mu.Lock()
	m.updateL1Locked(context.Background(), why, next)
	m.mu.Unlock()

	segs := m.Segments()
	require.Len(t, segs, 1)
	require.Equal(t, "Intro", segs[0].Name)
	require.Equal(t, "Pricing", m.CurrentTopic())
	require.Equal(t, 0, m.l0TopicBuffer.Len())
	require.EqualValues(t, 0, m.lastSummarizedUtteranceID)
}

func TestManager_UtterancesAreSummarizedAtMostOncePerTopic(t *testing.T) {
	cfg := testConfig()
	m := NewManager("m1", cfg, nil, NewSummarizer(nil, 256), nil)

	for i := int64(1); i <= 5; i++ {
		m.AddUtterance(context.Background(), mkUtterance(i, "alice", "first batch"))
	}
	m.mu.Lock()
	m.updateL1Locked(context.Background(), reasonTurnLimit, "")
	m.mu.Unlock()

	segs := m.Segments()
	require.Len(t, segs, 1)
	require.EqualValues(t, 1, segs[0].StartUtteranceID)
	require.EqualValues(t, 5, segs[0].EndUtteranceID)

	for i := int64(6); i <= 8; i++ {
		m.AddUtterance(context.Background(), mkUtterance(i, "bob", "second batch"))
	}
	m.mu.Lock()
	unsummarized := m.unsummarizedLocked()
	m.mu.Unlock()
	require.Len(t, unsummarized, 3)
	require.EqualValues(t, 6, unsummarized[0].ID)

	m.mu.Lock()
	m.updateL1Locked(context.Background(), reasonTurnLimit, "")
	m.mu.Unlock()

	segs = m.Segments()
	require.Len(t, segs, 1)
	require.EqualValues(t, 8, segs[0].EndUtteranceID)
	require.EqualValues(t, 8, m.lastSummarizedUtteranceID)

	// Nothing new: another pass must be a no-op.
	m.mu.Lock()
	m.updateL1Locked(context.Background(), reasonTurnLimit, "")
	m.mu.Unlock()
	require.Len(t, m.Segments(), 1)
}

func TestManager_NoUnsummarizedUtterancesIsNoop(t *testing.T) {
	cfg := testConfig()
	m := NewManager("m1", cfg, nil, NewSummarizer(nil, 256), nil)

	m.mu.Lock()
	m.updateL1Locked(context.Background(), reasonTurnLimit, "")
	m.mu.Unlock()

	require.Empty(t, m.Segments())
}

func TestManager_FallbackSummaryOnLLMFailure(t *testing.T) {
	llm := &fakeLLM{err: context.DeadlineExceeded}
	summarizer := NewSummarizer(llm, 256)

	utterances := []Utterance{mkUtterance(1, "alice", "hello"), mkUtterance(2, "bob", "hi there")}
	result := summarizer.SummarizeTopic(context.Background(), "Intro", utterances)

	require.NotEmpty(t, result.Summary)
	require.Contains(t, result.Summary, "Intro")
	require.ElementsMatch(t, []string{"alice", "bob"}, result.Participants)
}
