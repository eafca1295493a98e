// Package realtimeworker is the per-meeting bot process: it joins a
// meeting as a bot participant, runs one STT streaming session per
// speaker, uploads finalized transcript, and on wake-word runs the
// orchestration pipeline with TTS playback and barge-in.
package realtimeworker

import (
	"context"
	"time"
)

// MediaTransport is the WebRTC media collaborator: join as bot,
// enumerate/subscribe participant audio tracks, and play synthesized
// PCM back into the meeting.
type MediaTransport interface {
	JoinMeeting(ctx context.Context, meetingID string) error
	// Subscribe returns a channel of newly discovered/added participant
	// audio tracks (one entry per speaker); each track carries its own
	// channel of raw PCM frames in AudioTrack.Frames.
	Subscribe(ctx context.Context) (<-chan AudioTrack, error)
	// PlayPCM pushes synthesized audio into the meeting,
	// blocking until accepted for playback. aborted is polled cheaply
	// (non-blocking) during playback; true means stop immediately
	// (barge-in).
	PlayPCM(ctx context.Context, pcm []byte, aborted func() bool) error
	Leave(ctx context.Context) error
}

// AudioTrack is one participant's audio stream, with a VAD (voice
// activity detection) signal the media transport drives speech-end
// events from.
type AudioTrack struct {
	UserID   string
	UserName string
	Frames   <-chan []byte
	VADEnded <-chan struct{}
}

// STTResult is one interim or final recognition result for a speaker.
type STTResult struct {
	UserID     string
	Text       string
	Confidence float64
	StartMs    int64
	EndMs      int64
	Final      bool
}

// STTProvider opens one streaming recognition session per speaker.
type STTProvider interface {
	// StartSession opens a streaming session for userID using the
	// pool-assigned credential index, returning a channel of interim
	// and final STTResults as PCM frames are fed in.
	StartSession(ctx context.Context, credentialIndex int, userID string, frames <-chan []byte, vadEnded <-chan struct{}) (<-chan STTResult, error)
}

// TranscriptUploader is the backend collaborator's
// POST /meetings/{id}/transcript-segments endpoint.
type TranscriptUploader interface {
	UploadSegment(ctx context.Context, meetingID string, seg TranscriptSegment) (utteranceID int64, err error)
}

// TranscriptSegment is the request body for a transcript upload.
type TranscriptSegment struct {
	UserID              string
	StartMs             int64
	EndMs               int64
	Text                string
	Confidence          float64
	MinConfidence       float64
	AgentCall           bool
	AgentCallKeyword    string
	AgentCallConfidence float64
}

// TTSSynthesizer turns text into PCM audio (out of scope collaborator).
type TTSSynthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// BackendNotifier is the thin out-of-scope REST client for meeting
// lifecycle and agent context-update notifications.
type BackendNotifier interface {
	NotifyContextUpdate(ctx context.Context, meetingID, userID string) error
	NotifyMeetingComplete(ctx context.Context, meetingID string) error
}

// CredentialReleaser releases the meeting's STT credential when the
// worker exits.
type CredentialReleaser interface {
	Release(ctx context.Context, meetingID string) (bool, error)
}

// Config configures one RealtimeWorker instance, sourced from the
// worker process's environment variables.
type Config struct {
	MeetingID          string
	CredentialIndex    int
	AgentEnabled       bool
	WakeWord           string
	TTSFailureThreshold int
	CompletionGrace    time.Duration
}
