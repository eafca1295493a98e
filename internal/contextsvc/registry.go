// Package contextsvc owns the process-wide set of per-meeting
// context.Manager instances: one Manager per active meeting, lazily
// created on first use and restored from its latest Postgres snapshot.
// It bridges the asynchronous "context update" notification a
// RealtimeWorker sends after each finalized utterance (the restapi
// onContextUpd hook) into the concrete Manager.AddUtterance call,
// since that notification itself carries no utterance payload, only an
// instruction to go fetch what's new.
package contextsvc

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	mcontext "github.com/teamatoi/meetcore/internal/context"
	"github.com/teamatoi/meetcore/internal/llmclient"
	"github.com/teamatoi/meetcore/internal/telemetry"
)

// TranscriptStore is the persistence collaborator used both to
// rehydrate L0 on first access and to fetch newly persisted utterances
// on each context-update notification.
type TranscriptStore interface {
	mcontext.TranscriptStore
}

// Registry holds one context.Manager per active meeting.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*entry

	cfg             mcontext.ManagerConfig
	llm             llmclient.Client
	transitionHints []string
	summaryMaxTokens int
	snapshots       mcontext.SnapshotStore
	transcripts     TranscriptStore
	metrics         *telemetry.Metrics
}

type entry struct {
	manager        *mcontext.Manager
	lastIngestedID int64
}

// NewRegistry builds a Registry. transitionHints and summaryMaxTokens
// configure every Manager's TopicDetector/Summarizer identically; the
// detector and summarizer are stateless beyond these settings, so
// sharing the configuration across meetings is safe.
func NewRegistry(cfg mcontext.ManagerConfig, llm llmclient.Client, transitionHints []string, summaryMaxTokens int, snapshots mcontext.SnapshotStore, transcripts TranscriptStore, metrics *telemetry.Metrics) *Registry {
	return &Registry{
		entries:          make(map[string]*entry),
		cfg:              cfg,
		llm:              llm,
		transitionHints:  transitionHints,
		summaryMaxTokens: summaryMaxTokens,
		snapshots:        snapshots,
		transcripts:      transcripts,
		metrics:          metrics,
	}
}

// getOrCreate returns meetingID's Manager, constructing and restoring
// it from the latest snapshot on first access.
func (r *Registry) getOrCreate(ctx context.Context, meetingID string) (*entry, error) {
	r.mu.Lock()
	if e, ok := r.entries[meetingID]; ok {
		r.mu.Unlock()
		return e, nil
	}
	r.mu.Unlock()

	detector := mcontext.NewTopicDetector(r.llm, r.transitionHints)
	summarizer := mcontext.NewSummarizer(r.llm, r.summaryMaxTokens)
	manager := mcontext.NewManager(meetingID, r.cfg, detector, summarizer, r.snapshots)
	manager.SetMetrics(r.metrics)

	if err := manager.RestoreFromDB(ctx, r.transcripts); err != nil {
		return nil, fmt.Errorf("contextsvc: restore %s: %w", meetingID, err)
	}
	manager.Run(context.WithoutCancel(ctx))

	e := &entry{manager: manager}

	r.mu.Lock()
	if existing, ok := r.entries[meetingID]; ok {
		r.mu.Unlock()
		return existing, nil
	}
	r.entries[meetingID] = e
	r.mu.Unlock()

	return e, nil
}

// OnContextUpdate is the restapi.Server onContextUpd hook: it fetches
// up to 50 utterances persisted since this meeting's last ingested ID and
// feeds each into the Manager in order. userID is accepted to match
// the hook signature but not otherwise needed: transcripts are fetched
// by meeting, not by speaker.
func (r *Registry) OnContextUpdate(meetingID, userID string) {
	ctx := context.Background()
	e, err := r.getOrCreate(ctx, meetingID)
	if err != nil {
		slog.Error("contextsvc: get manager failed", "meeting_id", meetingID, "error", err)
		return
	}

	r.mu.Lock()
	since := e.lastIngestedID
	r.mu.Unlock()

	utterances, err := r.transcripts.UtterancesSince(ctx, meetingID, since, 50)
	if err != nil {
		slog.Error("contextsvc: fetch new utterances failed", "meeting_id", meetingID, "error", err)
		return
	}
	for _, u := range utterances {
		e.manager.AddUtterance(ctx, u)
		if u.ID > since {
			since = u.ID
		}
	}

	r.mu.Lock()
	e.lastIngestedID = since
	r.mu.Unlock()
}

// OnMeetingComplete is the restapi.Server onComplete hook: it forces a
// final topic change so the last segment gets summarized, then drops
// the meeting from the registry (a subsequent context update for the
// same meeting ID, if any, rebuilds from the snapshot already saved).
func (r *Registry) OnMeetingComplete(meetingID string) {
	r.mu.Lock()
	e, ok := r.entries[meetingID]
	delete(r.entries, meetingID)
	r.mu.Unlock()
	if !ok {
		return
	}
	e.manager.ForceTopicChange(context.Background(), "")
}

// CurrentContextSnapshot renders meetingID's current L1 segments and
// active topic into the plain-text block the orchestration planner's
// prompt embeds as ContextSnapshot. Returns "" for a meeting with no
// Manager yet (agentsvc callers tolerate this: an empty snapshot just
// means the planner works from the raw query alone).
func (r *Registry) CurrentContextSnapshot(meetingID string) string {
	r.mu.Lock()
	e, ok := r.entries[meetingID]
	r.mu.Unlock()
	if !ok {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Current topic: %s\n", e.manager.CurrentTopic())
	for _, seg := range e.manager.Segments() {
		fmt.Fprintf(&b, "- %s: %s\n", seg.Name, seg.Summary)
	}
	return b.String()
}
