package realtimeworker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/teamatoi/meetcore/pkg/protocol"
)

type fakeMedia struct {
	tracks chan AudioTrack
	played [][]byte
	mu     sync.Mutex
}

func newFakeMedia() *fakeMedia { return &fakeMedia{tracks: make(chan AudioTrack, 4)} }

func (m *fakeMedia) JoinMeeting(ctx context.Context, meetingID string) error { return nil }
func (m *fakeMedia) Subscribe(ctx context.Context) (<-chan AudioTrack, error) {
	return m.tracks, nil
}
func (m *fakeMedia) PlayPCM(ctx context.Context, pcm []byte, aborted func() bool) error {
	m.mu.Lock()
	m.played = append(m.played, pcm)
	m.mu.Unlock()
	return nil
}
func (m *fakeMedia) Leave(ctx context.Context) error { return nil }

type fakeSTT struct {
	results map[string]chan STTResult
}

func newFakeSTT() *fakeSTT { return &fakeSTT{results: make(map[string]chan STTResult)} }

func (s *fakeSTT) StartSession(ctx context.Context, credentialIndex int, userID string, frames <-chan []byte, vadEnded <-chan struct{}) (<-chan STTResult, error) {
	ch := make(chan STTResult, 8)
	s.results[userID] = ch
	return ch, nil
}

type fakeUploader struct {
	mu       sync.Mutex
	segments []TranscriptSegment
}

func (u *fakeUploader) UploadSegment(ctx context.Context, meetingID string, seg TranscriptSegment) (int64, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.segments = append(u.segments, seg)
	return int64(len(u.segments)), nil
}

type fakeNotifier struct {
	mu             sync.Mutex
	contextUpdates int
	completed      bool
}

func (n *fakeNotifier) NotifyContextUpdate(ctx context.Context, meetingID, userID string) error {
	n.mu.Lock()
	n.contextUpdates++
	n.mu.Unlock()
	return nil
}
func (n *fakeNotifier) NotifyMeetingComplete(ctx context.Context, meetingID string) error {
	n.mu.Lock()
	n.completed = true
	n.mu.Unlock()
	return nil
}

type fakeCreds struct {
	released bool
}

func (c *fakeCreds) Release(ctx context.Context, meetingID string) (bool, error) {
	c.released = true
	return true, nil
}

type fakeChat struct {
	mu       sync.Mutex
	statuses []string
}

func (c *fakeChat) PublishStatus(meetingID, text, uiState string) {
	c.mu.Lock()
	c.statuses = append(c.statuses, uiState)
	c.mu.Unlock()
}
func (c *fakeChat) PublishChatMessage(meetingID, text string) {}

type fakeSynth struct{}

func (fakeSynth) Synthesize(ctx context.Context, text string) ([]byte, error) {
	return []byte(text), nil
}

type fakeStreamer struct {
	events []protocol.AgentStreamEvent
}

func (f *fakeStreamer) Stream(ctx context.Context, channel, message string, onEvent func(protocol.AgentStreamEvent)) error {
	for _, ev := range f.events {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		onEvent(ev)
	}
	return nil
}

func TestRealtimeWorker_FinalResultUploadsAndNotifies(t *testing.T) {
	media := newFakeMedia()
	stt := newFakeSTT()
	uploader := &fakeUploader{}
	notifier := &fakeNotifier{}
	creds := &fakeCreds{}
	chat := &fakeChat{}
	tts := NewTTSQueue("m1", fakeSynth{}, media, 3, 8)

	cfg := Config{MeetingID: "m1", AgentEnabled: true, WakeWord: "hey bot", CompletionGrace: 50 * time.Millisecond}
	factory := func(ctx context.Context) *AgentPipeline {
		return NewAgentPipeline("m1", &fakeStreamer{events: []protocol.AgentStreamEvent{
			{Event: protocol.AgentStreamMessage, Content: "Done."},
			{Event: protocol.AgentStreamDone},
		}}, chat, tts)
	}
	w := NewRealtimeWorker(cfg, media, stt, uploader, notifier, creds, chat, tts, factory)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	media.tracks <- AudioTrack{UserID: "alice", Frames: make(chan []byte), VADEnded: make(chan struct{})}
	require.Eventually(t, func() bool { return stt.results["alice"] != nil }, time.Second, 5*time.Millisecond)

	stt.results["alice"] <- STTResult{UserID: "alice", Text: "hey bot what's next", Final: false}
	stt.results["alice"] <- STTResult{UserID: "alice", Text: "hey bot what's next", Final: true, Confidence: 0.9}

	require.Eventually(t, func() bool {
		uploader.mu.Lock()
		defer uploader.mu.Unlock()
		return len(uploader.segments) == 1
	}, time.Second, 5*time.Millisecond)

	uploader.mu.Lock()
	seg := uploader.segments[0]
	uploader.mu.Unlock()
	require.True(t, seg.AgentCall)
	require.Equal(t, "hey bot", seg.AgentCallKeyword)

	// Both the wake-word pre-warm and the final-result handler notify
	// the backend.
	require.Eventually(t, func() bool {
		notifier.mu.Lock()
		defer notifier.mu.Unlock()
		return notifier.contextUpdates >= 1
	}, time.Second, 5*time.Millisecond)
}

func TestRealtimeWorker_NonWakeWordFinalIsNotAgentCall(t *testing.T) {
	media := newFakeMedia()
	stt := newFakeSTT()
	uploader := &fakeUploader{}
	notifier := &fakeNotifier{}
	creds := &fakeCreds{}
	chat := &fakeChat{}
	tts := NewTTSQueue("m2", fakeSynth{}, media, 3, 8)

	cfg := Config{MeetingID: "m2", AgentEnabled: true, WakeWord: "hey bot"}
	factory := func(ctx context.Context) *AgentPipeline {
		return NewAgentPipeline("m2", &fakeStreamer{}, chat, tts)
	}
	w := NewRealtimeWorker(cfg, media, stt, uploader, notifier, creds, chat, tts, factory)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	media.tracks <- AudioTrack{UserID: "bob", Frames: make(chan []byte), VADEnded: make(chan struct{})}
	require.Eventually(t, func() bool { return stt.results["bob"] != nil }, time.Second, 5*time.Millisecond)

	stt.results["bob"] <- STTResult{UserID: "bob", Text: "just chatting here", Final: true, Confidence: 0.8}

	require.Eventually(t, func() bool {
		uploader.mu.Lock()
		defer uploader.mu.Unlock()
		return len(uploader.segments) == 1
	}, time.Second, 5*time.Millisecond)

	uploader.mu.Lock()
	seg := uploader.segments[0]
	uploader.mu.Unlock()
	require.False(t, seg.AgentCall)
}

func TestRealtimeWorker_MeetingCompletesAfterGraceWithNoParticipants(t *testing.T) {
	media := newFakeMedia()
	stt := newFakeSTT()
	uploader := &fakeUploader{}
	notifier := &fakeNotifier{}
	creds := &fakeCreds{}
	chat := &fakeChat{}
	tts := NewTTSQueue("m3", fakeSynth{}, media, 3, 8)

	cfg := Config{MeetingID: "m3", CompletionGrace: 20 * time.Millisecond}
	factory := func(ctx context.Context) *AgentPipeline {
		return NewAgentPipeline("m3", &fakeStreamer{}, chat, tts)
	}
	w := NewRealtimeWorker(cfg, media, stt, uploader, notifier, creds, chat, tts, factory)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	frames := make(chan []byte)
	media.tracks <- AudioTrack{UserID: "carol", Frames: frames, VADEnded: make(chan struct{})}
	require.Eventually(t, func() bool { return stt.results["carol"] != nil }, time.Second, 5*time.Millisecond)

	close(stt.results["carol"])

	require.Eventually(t, func() bool {
		notifier.mu.Lock()
		defer notifier.mu.Unlock()
		return notifier.completed
	}, time.Second, 5*time.Millisecond)
}

func TestRealtimeWorker_ReleasesCredentialOnExit(t *testing.T) {
	media := newFakeMedia()
	stt := newFakeSTT()
	uploader := &fakeUploader{}
	notifier := &fakeNotifier{}
	creds := &fakeCreds{}
	chat := &fakeChat{}
	tts := NewTTSQueue("m4", fakeSynth{}, media, 3, 8)

	cfg := Config{MeetingID: "m4"}
	factory := func(ctx context.Context) *AgentPipeline {
		return NewAgentPipeline("m4", &fakeStreamer{}, chat, tts)
	}
	w := NewRealtimeWorker(cfg, media, stt, uploader, notifier, creds, chat, tts, factory)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()
	cancel()
	<-done

	require.True(t, creds.released)
}

func TestMatchWakeWord(t *testing.T) {
	require.Equal(t, "hey bot", matchWakeWord("so, hey bot, what's up", "hey bot, 헤이봇"))
	require.Equal(t, "헤이봇", matchWakeWord("헤이봇 회의 요약해줘", "hey bot, 헤이봇"))
	require.Equal(t, "", matchWakeWord("nothing special here", "hey bot"))
}
