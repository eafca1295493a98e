package realtimeworker

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// RealtimeWorker is one meeting's bot participant process: it joins
// the meeting, runs one STT session per speaker, feeds final
// transcript to the backend, and on wake-word drives one agent
// pipeline invocation at a time with TTS playback and barge-in.
type RealtimeWorker struct {
	cfg    Config
	media  MediaTransport
	stt    STTProvider
	upload TranscriptUploader
	notify BackendNotifier
	creds  CredentialReleaser
	chat   ChatBroadcaster
	tts    *TTSQueue
	agent  func(ctx context.Context) *AgentPipeline

	mu             sync.Mutex
	wakeWordTiming map[string]wakeWordMark
	activeTracks   int
	agentCancel    context.CancelFunc
	completionTmr  *time.Timer
	prewarmDone    chan struct{}
	stop           context.CancelFunc
}

// wakeWordMark records that a wake word fired for userID's in-flight
// utterance, so the eventual final result is tagged agent_call, plus
// the detection timestamp for latency measurement.
type wakeWordMark struct {
	keyword    string
	confidence float64
	at         time.Time
}

// NewRealtimeWorker wires up one worker instance. agentPipelineFactory
// builds a fresh AgentPipeline per invocation, so each run starts with
// its own sentence buffer; the per-run SSE channel name is passed to
// AgentPipeline.Run rather than to the factory.
func NewRealtimeWorker(cfg Config, media MediaTransport, stt STTProvider, upload TranscriptUploader, notify BackendNotifier, creds CredentialReleaser, chat ChatBroadcaster, tts *TTSQueue, agentPipelineFactory func(ctx context.Context) *AgentPipeline) *RealtimeWorker {
	return &RealtimeWorker{
		cfg:            cfg,
		media:          media,
		stt:            stt,
		upload:         upload,
		notify:         notify,
		creds:          creds,
		chat:           chat,
		tts:            tts,
		agent:          agentPipelineFactory,
		wakeWordTiming: make(map[string]wakeWordMark),
	}
}

// Run joins the meeting and services it until ctx is cancelled or the
// meeting completes on its own (grace-period timeout with nobody
// rejoined). It always releases the STT credential before returning.
func (w *RealtimeWorker) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer w.releaseCredential(context.Background())

	w.mu.Lock()
	w.stop = cancel
	w.mu.Unlock()

	if err := w.media.JoinMeeting(ctx, w.cfg.MeetingID); err != nil {
		return err
	}
	defer w.media.Leave(context.Background())

	go w.tts.Run(ctx)

	tracks, err := w.media.Subscribe(ctx)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case track, ok := <-tracks:
			if !ok {
				return nil
			}
			w.onTrackJoined()
			go w.serveTrack(ctx, track)
		}
	}
}

// onTrackJoined cancels any pending completion grace timer: someone
// rejoined within the grace window.
func (w *RealtimeWorker) onTrackJoined() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.activeTracks++
	if w.completionTmr != nil {
		w.completionTmr.Stop()
		w.completionTmr = nil
	}
}

// onTrackLeft starts the completion grace timer once the last
// participant's track ends.
func (w *RealtimeWorker) onTrackLeft(parentCtx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.activeTracks--
	if w.activeTracks > 0 {
		return
	}
	grace := w.cfg.CompletionGrace
	if grace <= 0 {
		grace = 5 * time.Second
	}
	w.completionTmr = time.AfterFunc(grace, func() {
		w.mu.Lock()
		stillEmpty := w.activeTracks == 0
		w.mu.Unlock()
		if !stillEmpty {
			return
		}
		if err := w.notify.NotifyMeetingComplete(context.Background(), w.cfg.MeetingID); err != nil {
			slog.Warn("realtimeworker: notify meeting complete failed", "meeting_id", w.cfg.MeetingID, "err", err)
		}
		w.mu.Lock()
		stop := w.stop
		w.mu.Unlock()
		if stop != nil {
			// The meeting is over; shut the whole worker down so the
			// process exits cleanly.
			stop()
		}
	})
}

// serveTrack runs one participant's STT session end to end.
func (w *RealtimeWorker) serveTrack(ctx context.Context, track AudioTrack) {
	defer w.onTrackLeft(ctx)

	results, err := w.stt.StartSession(ctx, w.cfg.CredentialIndex, track.UserID, track.Frames, track.VADEnded)
	if err != nil {
		slog.Warn("realtimeworker: stt session failed to start", "meeting_id", w.cfg.MeetingID, "user_id", track.UserID, "err", err)
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case res, ok := <-results:
			if !ok {
				return
			}
			if res.Final {
				w.onFinalResult(ctx, track.UserID, res)
			} else {
				w.onInterimResult(ctx, track.UserID, res)
			}
		}
	}
}

// onInterimResult checks interim STT text for the wake word and, on a
// hit, immediately barges in: cancels any running agent task, clears
// the TTS queue, marks the utterance pending, and starts pre-warming
// the agent's context in the background so the pipeline launched by
// the final result starts from fresh state.
func (w *RealtimeWorker) onInterimResult(ctx context.Context, userID string, res STTResult) {
	if !w.cfg.AgentEnabled || w.cfg.WakeWord == "" {
		return
	}
	keyword := matchWakeWord(res.Text, w.cfg.WakeWord)
	if keyword == "" {
		return
	}

	w.mu.Lock()
	if _, already := w.wakeWordTiming[userID]; already {
		w.mu.Unlock()
		return
	}
	w.wakeWordTiming[userID] = wakeWordMark{keyword: keyword, confidence: res.Confidence, at: time.Now()}
	cancel := w.agentCancel
	w.agentCancel = nil

	done := make(chan struct{})
	w.prewarmDone = done
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	w.tts.Interrupt()
	w.chat.PublishStatus(w.cfg.MeetingID, "", "listening")

	go func() {
		defer close(done)
		if err := w.notify.NotifyContextUpdate(context.WithoutCancel(ctx), w.cfg.MeetingID, userID); err != nil {
			slog.Debug("realtimeworker: context pre-warm failed", "meeting_id", w.cfg.MeetingID, "err", err)
		}
	}()
}

// onFinalResult persists the finished utterance, notifies the backend
// of the context update, and, if a wake word fired during this
// utterance, launches a fresh agent pipeline invocation.
func (w *RealtimeWorker) onFinalResult(ctx context.Context, userID string, res STTResult) {
	w.mu.Lock()
	mark, pending := w.wakeWordTiming[userID]
	if pending {
		delete(w.wakeWordTiming, userID)
	}
	w.mu.Unlock()

	seg := TranscriptSegment{
		UserID:     userID,
		StartMs:    res.StartMs,
		EndMs:      res.EndMs,
		Text:       res.Text,
		Confidence: res.Confidence,
	}
	if pending {
		seg.AgentCall = true
		seg.AgentCallKeyword = mark.keyword
		seg.AgentCallConfidence = mark.confidence
	}

	if _, err := w.upload.UploadSegment(ctx, w.cfg.MeetingID, seg); err != nil {
		slog.Warn("realtimeworker: transcript upload failed", "meeting_id", w.cfg.MeetingID, "user_id", userID, "err", err)
	}

	go func() {
		if err := w.notify.NotifyContextUpdate(context.Background(), w.cfg.MeetingID, userID); err != nil {
			slog.Warn("realtimeworker: notify context update failed", "meeting_id", w.cfg.MeetingID, "err", err)
		}
	}()

	if pending {
		slog.Debug("realtimeworker: wake word to final latency",
			"meeting_id", w.cfg.MeetingID, "user_id", userID,
			"latency_ms", time.Since(mark.at).Milliseconds())
		w.startAgentRun(ctx, userID, res.Text)
	}
}

// startAgentRun launches one agent pipeline invocation, cancellable by
// a later wake-word barge-in.
func (w *RealtimeWorker) startAgentRun(parentCtx context.Context, userID, message string) {
	runCtx, cancel := context.WithCancel(parentCtx)

	w.mu.Lock()
	if w.agentCancel != nil {
		w.agentCancel()
	}
	w.agentCancel = cancel
	prewarm := w.prewarmDone
	w.mu.Unlock()

	pipeline := w.agent(runCtx)
	go func() {
		defer cancel()
		if prewarm != nil {
			select {
			case <-prewarm:
			case <-runCtx.Done():
				return
			}
		}
		channel := w.cfg.MeetingID + ":" + userID
		if err := pipeline.Run(runCtx, channel, message); err != nil && runCtx.Err() == nil {
			slog.Warn("realtimeworker: agent pipeline failed", "meeting_id", w.cfg.MeetingID, "user_id", userID, "err", err)
			w.chat.PublishStatus(w.cfg.MeetingID, "", "idle")
		}

		w.mu.Lock()
		if runCtx.Err() == nil {
			// Only clear if nobody started a newer run in the meantime:
			// a newer run cancels this one's context before replacing
			// agentCancel.
			w.agentCancel = nil
		}
		w.mu.Unlock()
	}()
}

func (w *RealtimeWorker) releaseCredential(ctx context.Context) {
	if w.creds == nil {
		return
	}
	if _, err := w.creds.Release(ctx, w.cfg.MeetingID); err != nil {
		slog.Warn("realtimeworker: credential release failed", "meeting_id", w.cfg.MeetingID, "err", err)
	}
}

// matchWakeWord returns the matched keyword if text contains the
// configured wake word (case-insensitive), or "" otherwise. WakeWord
// may list multiple comma-separated alternatives.
func matchWakeWord(text, wakeWord string) string {
	lower := strings.ToLower(text)
	for _, candidate := range strings.Split(wakeWord, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(candidate)) {
			return candidate
		}
	}
	return ""
}
