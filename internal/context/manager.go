package context

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/teamatoi/meetcore/internal/telemetry"
)

// reason identifies why an L1 update fired; topic_change and
// manual_topic_change additionally rotate the active topic.
type reason string

const (
	reasonNone         reason = ""
	reasonTopicChange  reason = "topic_change"
	reasonTurnLimit    reason = "turn_limit"
	reasonTimeLimit    reason = "time_limit"
	reasonManualChange reason = "manual_topic_change"
)

// SnapshotStore persists and restores the periodic per-meeting
// snapshot. Implementations live outside this package
// (internal/store/pg).
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, meetingID string, snap Snapshot) error
	LoadLatestSnapshot(ctx context.Context, meetingID string) (Snapshot, bool, error)
}

// TranscriptStore replays a meeting's persisted transcript, used to
// rehydrate L0 after a restart.
type TranscriptStore interface {
	UtterancesSince(ctx context.Context, meetingID string, sinceUtteranceID int64, limit int) ([]Utterance, error)
}

// Snapshot is the persisted shape RestoreFromDB rebuilds from.
type Snapshot struct {
	CurrentTopic             string         `json:"current_topic"`
	L1Segments                []TopicSegment `json:"l1_segments"`
	LastSummarizedUtteranceID int64          `json:"last_summarized_utterance_id"`
	LastL1Update              time.Time      `json:"last_l1_update"`
}

// ManagerConfig configures buffer sizes and update cadence for one
// Manager instance, sourced from config.ContextConfig.
type ManagerConfig struct {
	L0MaxTurns                       int
	L0TopicBufferMaxTurns            int
	TopicQuickCheckEnabled           bool
	TopicCheckIntervalTurns          int
	L1UpdateTurnThreshold            int
	// L1UpdateTokenBudget triggers an early update when the unsummarized
	// window's estimated token cost would crowd the summarization
	// prompt, regardless of turn count. 0 disables the token trigger.
	L1UpdateTokenBudget              int
	L1UpdateInterval                 time.Duration
	L1MinNewUtterancesForTimeTrigger int
	DBSyncUtteranceThreshold         int
	DBSyncInterval                   time.Duration
	SpeakerBufferMaxPerSpeaker       int
}

// Manager is the per-meeting context engine: the L0/L0-topic ring
// buffers, the append-only L1 segment list, topic-change detection,
// and recursive summarization scheduling.
type Manager struct {
	meetingID string
	cfg       ManagerConfig
	detector  *TopicDetector
	summarizer *Summarizer
	snapshots SnapshotStore
	metrics   *telemetry.Metrics

	mu sync.Mutex

	l0Buffer      *ring
	l0TopicBuffer *ring
	speakers      *SpeakerContext
	l1Segments    []TopicSegment
	currentTopic  string

	turnCountSinceL1          int
	lastSummarizedUtteranceID int64
	utterancesSinceDBSync     int
	lastL1Update              time.Time
	lastDBSync                time.Time

	// updateQueue serializes L1 updates per meeting without blocking
	// AddUtterance: at most one summarization runs at a time, and new
	// utterances keep buffering while it does. A buffered channel
	// drained by a single background worker started by Run.
	updateQueue chan updateJob
	runOnce     sync.Once
}

type updateJob struct {
	reason     reason
	nextTopic  string
}

func NewManager(meetingID string, cfg ManagerConfig, detector *TopicDetector, summarizer *Summarizer, snapshots SnapshotStore) *Manager {
	return &Manager{
		meetingID:     meetingID,
		cfg:           cfg,
		detector:      detector,
		summarizer:    summarizer,
		snapshots:     snapshots,
		l0Buffer:      newRing(cfg.L0MaxTurns),
		l0TopicBuffer: newRing(cfg.L0TopicBufferMaxTurns),
		speakers:      NewSpeakerContext(cfg.SpeakerBufferMaxPerSpeaker),
		currentTopic:  "Intro",
		updateQueue:   make(chan updateJob, 16),
	}
}

// SetMetrics attaches a Metrics recorder for L1 update counts/duration.
// Optional: nil (the zero value) leaves metrics recording disabled.
func (m *Manager) SetMetrics(metrics *telemetry.Metrics) {
	m.metrics = metrics
}

// Run starts the background L1-update worker. Must be called once
// before AddUtterance can trigger asynchronous updates; safe to call
// multiple times (idempotent).
func (m *Manager) Run(ctx context.Context) {
	m.runOnce.Do(func() {
		go m.updateWorker(ctx)
	})
}

func (m *Manager) updateWorker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-m.updateQueue:
			m.mu.Lock()
			m.updateL1Locked(ctx, job.reason, job.nextTopic)
			m.mu.Unlock()
		}
	}
}

// CurrentTopic returns the meeting's active topic name.
func (m *Manager) CurrentTopic() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentTopic
}

// Segments returns a copy of the append-only L1 list.
func (m *Manager) Segments() []TopicSegment {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]TopicSegment, len(m.l1Segments))
	copy(out, m.l1Segments)
	return out
}

// AddUtterance ingests one finalized STT utterance. Empty text is
// ignored entirely (no L0 growth). A triggered L1 update is normally
// enqueued and runs on the background worker; when the queue is full it
// runs inline and this call waits for it.
func (m *Manager) AddUtterance(ctx context.Context, u Utterance) {
	if strings.TrimSpace(u.Text) == "" {
		return
	}

	m.mu.Lock()
	u.Topic = m.currentTopic
	m.l0Buffer.Append(u)
	m.l0TopicBuffer.Append(u)
	m.speakers.AddUtterance(u)
	m.turnCountSinceL1++
	m.utterancesSinceDBSync++

	shouldUpdate, why, nextTopic := m.shouldUpdateL1Locked(ctx, u)
	dbSyncDue := m.utterancesSinceDBSync >= m.cfg.DBSyncUtteranceThreshold ||
		(m.cfg.DBSyncInterval > 0 && time.Since(m.lastDBSync) >= m.cfg.DBSyncInterval)
	m.mu.Unlock()

	if shouldUpdate {
		select {
		case m.updateQueue <- updateJob{reason: why, nextTopic: nextTopic}:
		default:
			// Queue saturated (pathological burst); run inline rather
			// than drop the trigger, so no unsummarized utterance is
			// ever lost.
			m.mu.Lock()
			m.updateL1Locked(ctx, why, nextTopic)
			m.mu.Unlock()
		}
	}
	if dbSyncDue {
		go m.snapshotNow(context.WithoutCancel(ctx))
	}
}

// unsummarizedLocked returns the topic buffer entries not yet covered
// by a summarization pass: everything past lastSummarizedUtteranceID.
// Each utterance is summarized at most once per topic. Caller must
// hold m.mu.
func (m *Manager) unsummarizedLocked() []Utterance {
	all := m.l0TopicBuffer.Slice()
	for i, u := range all {
		if u.ID > m.lastSummarizedUtteranceID {
			return all[i:]
		}
	}
	return nil
}

// shouldUpdateL1Locked decides whether this utterance triggers an L1
// update and why. Caller must hold m.mu.
func (m *Manager) shouldUpdateL1Locked(ctx context.Context, latest Utterance) (bool, reason, string) {
	unsummarized := m.unsummarizedLocked()
	if len(unsummarized) == 0 {
		return false, reasonNone, ""
	}

	quickHit := m.cfg.TopicQuickCheckEnabled && m.detector != nil && m.detector.QuickCheck(latest)
	intervalHit := m.cfg.TopicCheckIntervalTurns > 0 && m.turnCountSinceL1%m.cfg.TopicCheckIntervalTurns == 0
	if (quickHit || intervalHit) && m.detector != nil {
		recent := m.l0TopicBuffer.Tail(5)
		var prevSummary string
		if seg := m.currentSegmentLocked(); seg != nil {
			prevSummary = seg.Summary
		}
		change := m.detector.Detect(ctx, m.currentTopic, prevSummary, recent)
		if change.Changed {
			name := change.CurrentTopic
			if name == "" || name == m.currentTopic {
				name = fmt.Sprintf("Topic_%d", len(m.l1Segments)+1)
			}
			return true, reasonTopicChange, name
		}
	}

	if len(unsummarized) >= m.cfg.L1UpdateTurnThreshold {
		return true, reasonTurnLimit, ""
	}
	if m.cfg.L1UpdateTokenBudget > 0 && m.summarizer != nil &&
		m.summarizer.EstimateTokens(unsummarized) >= m.cfg.L1UpdateTokenBudget {
		return true, reasonTurnLimit, ""
	}

	elapsed := time.Since(m.lastL1Update)
	if m.lastL1Update.IsZero() {
		elapsed = 0
	}
	if m.cfg.L1UpdateInterval > 0 && elapsed >= m.cfg.L1UpdateInterval && len(unsummarized) >= m.cfg.L1MinNewUtterancesForTimeTrigger {
		return true, reasonTimeLimit, ""
	}

	return false, reasonNone, ""
}

// ForceTopicChange lets an external caller (e.g. a host command) switch
// topics explicitly, reusing the same update_l1 machinery with
// reasonManualChange.
func (m *Manager) ForceTopicChange(ctx context.Context, nextTopic string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateL1Locked(ctx, reasonManualChange, nextTopic)
}

func (m *Manager) currentSegmentLocked() *TopicSegment {
	for i := range m.l1Segments {
		if m.l1Segments[i].Name == m.currentTopic {
			return &m.l1Segments[i]
		}
	}
	return nil
}

// updateL1Locked runs one summarization pass over the unsummarized
// slice of the topic buffer, extending the current segment or creating
// it. Caller must hold m.mu.
func (m *Manager) updateL1Locked(ctx context.Context, why reason, nextTopic string) {
	utterances := m.unsummarizedLocked()
	if len(utterances) == 0 {
		return
	}

	ctx, span := telemetry.StartSpan(ctx, "context.update_l1")
	start := time.Now()
	defer func() {
		span.End()
		if m.metrics != nil {
			m.metrics.RecordL1Update(string(why), time.Since(start).Seconds())
		}
	}()

	if seg := m.currentSegmentLocked(); seg != nil {
		result := m.summarizer.RecursiveSummarize(ctx, m.currentTopic, seg.Summary, utterances)
		seg.Summary = result.Summary
		seg.KeyPoints = result.KeyPoints
		seg.KeyDecisions = mergeUnique(seg.KeyDecisions, result.KeyDecisions)
		seg.PendingItems = result.PendingItems
		seg.Keywords = mergeUnique(seg.Keywords, result.Keywords)
		seg.Participants = mergeUnique(seg.Participants, result.Participants)
		seg.EndUtteranceID = utterances[len(utterances)-1].ID
	} else {
		result := m.summarizer.SummarizeTopic(ctx, m.currentTopic, utterances)
		m.l1Segments = append(m.l1Segments, TopicSegment{
			ID:               uuid.NewString(),
			Name:             m.currentTopic,
			Summary:          result.Summary,
			KeyPoints:        result.KeyPoints,
			KeyDecisions:     result.KeyDecisions,
			PendingItems:     result.PendingItems,
			Keywords:         result.Keywords,
			Participants:     result.Participants,
			StartUtteranceID: utterances[0].ID,
			EndUtteranceID:   utterances[len(utterances)-1].ID,
		})
	}

	m.lastSummarizedUtteranceID = utterances[len(utterances)-1].ID

	if why == reasonTopicChange || why == reasonManualChange {
		m.l0TopicBuffer.Clear()
		m.lastSummarizedUtteranceID = 0
		if nextTopic == "" {
			nextTopic = "Topic_" + strconv.Itoa(len(m.l1Segments)+1)
		}
		m.currentTopic = nextTopic
	}

	m.lastL1Update = time.Now()
	m.turnCountSinceL1 = 0

	go m.snapshotNow(context.WithoutCancel(ctx))
}

func (m *Manager) snapshotNow(ctx context.Context) {
	if m.snapshots == nil {
		return
	}
	m.mu.Lock()
	snap := Snapshot{
		CurrentTopic:              m.currentTopic,
		L1Segments:                append([]TopicSegment{}, m.l1Segments...),
		LastSummarizedUtteranceID: m.lastSummarizedUtteranceID,
		LastL1Update:              m.lastL1Update,
	}
	m.utterancesSinceDBSync = 0
	m.lastDBSync = time.Now()
	m.mu.Unlock()

	if err := m.snapshots.SaveSnapshot(ctx, m.meetingID, snap); err != nil {
		// Snapshot failures are logged but never stall ingestion.
		slog.Warn("context: snapshot failed", "meeting_id", m.meetingID, "error", err)
	}
}

// RestoreFromDB rebuilds l1Segments, currentTopic, and
// lastSummarizedUtteranceID from the latest snapshot, then re-hydrates
// L0 from the transcript store.
func (m *Manager) RestoreFromDB(ctx context.Context, transcripts TranscriptStore) error {
	if m.snapshots == nil {
		return nil
	}
	snap, ok, err := m.snapshots.LoadLatestSnapshot(ctx, m.meetingID)
	if err != nil {
		return fmt.Errorf("restore context snapshot: %w", err)
	}
	if !ok {
		return nil
	}

	m.mu.Lock()
	m.currentTopic = snap.CurrentTopic
	m.l1Segments = snap.L1Segments
	m.lastSummarizedUtteranceID = snap.LastSummarizedUtteranceID
	m.lastL1Update = snap.LastL1Update
	m.mu.Unlock()

	if transcripts == nil {
		return nil
	}
	recent, err := transcripts.UtterancesSince(ctx, m.meetingID, snap.LastSummarizedUtteranceID, m.cfg.L0MaxTurns)
	if err != nil {
		return fmt.Errorf("rehydrate L0: %w", err)
	}
	m.mu.Lock()
	for _, u := range recent {
		m.l0Buffer.Append(u)
		m.l0TopicBuffer.Append(u)
		m.speakers.AddUtterance(u)
	}
	m.mu.Unlock()
	return nil
}
