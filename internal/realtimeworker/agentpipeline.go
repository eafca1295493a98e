package realtimeworker

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/teamatoi/meetcore/pkg/protocol"
)

// sentenceTerminators are the punctuation marks (Korean and English)
// that close a complete sentence in the agent's streamed output.
const sentenceTerminators = ".!?。！？"

// ChatBroadcaster is the signaling collaborator the agent pipeline
// publishes ephemeral status and chat messages through.
type ChatBroadcaster interface {
	PublishStatus(meetingID, text, uiState string)
	PublishChatMessage(meetingID, text string)
}

// AgentStreamer abstracts the orchestration service round trip: start
// a voice-mode run for message on channel, then consume its SSE events
// (internal/agentstream.Client in production).
type AgentStreamer interface {
	Stream(ctx context.Context, channel, message string, onEvent func(protocol.AgentStreamEvent)) error
}

// AgentPipeline runs one wake-word-triggered agent invocation: it
// streams events from the orchestration service, buffers partial
// sentences, and forwards completed sentences to chat + TTS.
type AgentPipeline struct {
	meetingID string
	streamer  AgentStreamer
	chat      ChatBroadcaster
	ttsQueue  *TTSQueue

	mu      sync.Mutex
	sentBuf strings.Builder
}

func NewAgentPipeline(meetingID string, streamer AgentStreamer, chat ChatBroadcaster, ttsQueue *TTSQueue) *AgentPipeline {
	return &AgentPipeline{meetingID: meetingID, streamer: streamer, chat: chat, ttsQueue: ttsQueue}
}

// Run streams one agent invocation to completion or until ctx is
// cancelled (wake-word barge-in cancels the context driving this
// call). message is the wake-word-triggered utterance text the
// orchestration run answers.
func (p *AgentPipeline) Run(ctx context.Context, channel, message string) error {
	firstMessage := true
	err := p.streamer.Stream(ctx, channel, message, func(ev protocol.AgentStreamEvent) {
		switch ev.Event {
		case protocol.AgentStreamStatus:
			p.chat.PublishStatus(p.meetingID, ev.Content, "thinking")
		case protocol.AgentStreamMessage:
			if firstMessage {
				p.chat.PublishStatus(p.meetingID, "", "speaking")
				firstMessage = false
			}
			p.ingest(ctx, ev.Content)
		case protocol.AgentStreamDone:
			p.flush(ctx)
		case protocol.AgentStreamError:
			slog.Warn("realtimeworker: agent stream error", "meeting_id", p.meetingID, "content", ev.Content)
			p.flush(ctx)
		}
	})
	if ctx.Err() != nil {
		// Cancellation (barge-in) is not itself an error condition the
		// caller needs to act on further; resources are already released
		// by the streamer honoring ctx.
		return nil
	}
	return err
}

// ingest appends a chunk to the sentence buffer and flushes each
// complete sentence as it closes.
func (p *AgentPipeline) ingest(ctx context.Context, chunk string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.sentBuf.WriteString(chunk)
	for {
		buffered := p.sentBuf.String()
		idx := findSentenceBoundary(buffered)
		if idx < 0 {
			return
		}
		sentence := strings.TrimSpace(buffered[:idx])
		rest := buffered[idx:]
		p.sentBuf.Reset()
		p.sentBuf.WriteString(rest)
		if sentence == "" {
			continue
		}
		p.emit(ctx, sentence)
	}
}

// flush emits any tail text remaining in the buffer once the stream
// ends.
func (p *AgentPipeline) flush(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	tail := strings.TrimSpace(p.sentBuf.String())
	p.sentBuf.Reset()
	if tail == "" {
		return
	}
	p.emit(ctx, tail)
}

func (p *AgentPipeline) emit(ctx context.Context, sentence string) {
	p.chat.PublishChatMessage(p.meetingID, sentence)
	p.ttsQueue.Enqueue(ctx, sentence)
}

// findSentenceBoundary returns the index just past a sentence
// terminator (including any trailing closing punctuation like a quote
// or parenthesis) or a newline, or -1 if no complete sentence is in
// buffered yet.
func findSentenceBoundary(buffered string) int {
	for i, r := range buffered {
		if r == '\n' {
			return i + 1
		}
		if strings.ContainsRune(sentenceTerminators, r) {
			j := i + utf8.RuneLen(r)
			for j < len(buffered) {
				next, width := utf8.DecodeRuneInString(buffered[j:])
				if !isClosingPunct(next) {
					break
				}
				j += width
			}
			return j
		}
	}
	return -1
}

func isClosingPunct(r rune) bool {
	switch r {
	case '"', '\'', ')', ']', '」', '』', '\u201c', '\u201d':
		return true
	default:
		return false
	}
}
