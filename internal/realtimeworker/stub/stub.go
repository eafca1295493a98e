// Package stub provides degenerate, dependency-free implementations
// of the RealtimeWorker's media, STT, and TTS collaborators, which are
// external systems this module only defines contracts for.
// cmd/worker.go wires these in (it has no real LiveKit/Clova/TTS
// binding), so the binary still starts and exercises the
// transcript/context/agent wiring end to end in a local demo.
package stub

import (
	"context"
	"fmt"

	"github.com/teamatoi/meetcore/internal/realtimeworker"
)

// MediaTransport never discovers any participant tracks; JoinMeeting
// and Leave succeed trivially. A real implementation bridges to
// LiveKit via the LIVEKIT_* environment variables.
type MediaTransport struct{}

func (MediaTransport) JoinMeeting(ctx context.Context, meetingID string) error { return nil }

func (MediaTransport) Subscribe(ctx context.Context) (<-chan realtimeworker.AudioTrack, error) {
	ch := make(chan realtimeworker.AudioTrack)
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch, nil
}

func (MediaTransport) PlayPCM(ctx context.Context, pcm []byte, aborted func() bool) error {
	return nil
}

func (MediaTransport) Leave(ctx context.Context) error { return nil }

// STTProvider closes its result channel immediately; no recognition is
// ever performed. A real implementation streams PCM to Clova/Whisper
// using the pool-assigned credential index.
type STTProvider struct{}

func (STTProvider) StartSession(ctx context.Context, credentialIndex int, userID string, frames <-chan []byte, vadEnded <-chan struct{}) (<-chan realtimeworker.STTResult, error) {
	ch := make(chan realtimeworker.STTResult)
	close(ch)
	return ch, nil
}

// TTSSynthesizer always fails, exercising the worker's
// TTS-failure-threshold degrade path rather than silently returning
// empty audio.
type TTSSynthesizer struct{}

func (TTSSynthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	return nil, fmt.Errorf("stub: no TTS provider configured")
}
