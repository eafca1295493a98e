package realtimeworker

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// TTSQueue is the single-consumer TTS loop: a buffered channel of
// sentences drained by one goroutine that synthesizes and plays each,
// checking the interrupt flag before both synthesis and playback so a
// wake-word barge-in drops in-flight work within one playback frame.
type TTSQueue struct {
	meetingID    string
	synth        TTSSynthesizer
	media        MediaTransport
	failThreshold int

	queue     chan string
	interrupt atomic.Bool
	failures  atomic.Int32
}

func NewTTSQueue(meetingID string, synth TTSSynthesizer, media MediaTransport, failThreshold int, bufSize int) *TTSQueue {
	if bufSize <= 0 {
		bufSize = 32
	}
	if failThreshold <= 0 {
		failThreshold = 3
	}
	return &TTSQueue{
		meetingID:     meetingID,
		synth:         synth,
		media:         media,
		failThreshold: failThreshold,
		queue:         make(chan string, bufSize),
	}
}

// Enqueue adds a sentence to the TTS queue, dropping it silently if the
// queue is full rather than blocking the agent pipeline.
func (q *TTSQueue) Enqueue(ctx context.Context, sentence string) {
	select {
	case q.queue <- sentence:
	default:
		slog.Warn("realtimeworker: tts queue full, dropping sentence", "meeting_id", q.meetingID)
	}
}

// Interrupt sets the barge-in flag and drains any queued sentences
// without blocking, so the next Enqueue starts from empty. Set exactly
// on wake-word detection of a new utterance.
func (q *TTSQueue) Interrupt() {
	q.interrupt.Store(true)
	for {
		select {
		case <-q.queue:
		default:
			return
		}
	}
}

// Run drains the queue until ctx is cancelled, synthesizing and playing
// each sentence with interrupt checks before each stage.
func (q *TTSQueue) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case sentence, ok := <-q.queue:
			if !ok {
				return
			}
			q.playOne(ctx, sentence)
		}
	}
}

func (q *TTSQueue) playOne(ctx context.Context, sentence string) {
	// The flag only needs to abort the item(s) in flight at the moment
	// Interrupt() fired; clear it up front so a fresh sentence from the
	// pipeline that Interrupt() is making room for isn't dropped too.
	wasInterrupted := q.interrupt.Swap(false)
	if wasInterrupted {
		return
	}

	pcm, err := q.synth.Synthesize(ctx, sentence)
	if err != nil {
		q.recordFailure()
		return
	}

	if q.interrupt.Load() {
		q.interrupt.Store(false)
		return
	}

	if err := q.media.PlayPCM(ctx, pcm, q.interrupt.Load); err != nil {
		q.recordFailure()
		return
	}

	q.failures.Store(0)
}

func (q *TTSQueue) recordFailure() {
	n := q.failures.Add(1)
	if int(n) >= q.failThreshold {
		slog.Warn("realtimeworker: tts consecutive failure threshold hit, clearing queue", "meeting_id", q.meetingID, "failures", n)
		for {
			select {
			case <-q.queue:
			default:
				q.failures.Store(0)
				return
			}
		}
	}
}
