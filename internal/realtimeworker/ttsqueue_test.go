package realtimeworker

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type countingSynth struct {
	mu    sync.Mutex
	calls int
	fail  bool
}

func (s *countingSynth) Synthesize(ctx context.Context, text string) ([]byte, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.fail {
		return nil, fmt.Errorf("synth down")
	}
	return []byte(text), nil
}

func TestTTSQueue_InterruptClearsQueueAndDropsInFlight(t *testing.T) {
	media := newFakeMedia()
	synth := &countingSynth{}
	q := NewTTSQueue("m1", synth, media, 3, 8)

	ctx := context.Background()
	q.Enqueue(ctx, "어제 회의 결과는 다음과 같습니다.")
	q.Enqueue(ctx, "첫 번째 안건은 통과되었습니다.")
	q.Enqueue(ctx, "두 번째 안건은 보류되었습니다.")

	q.Interrupt()

	require.Equal(t, 0, len(q.queue))
	require.True(t, q.interrupt.Load())

	// The next item consumed after the interrupt is dropped before
	// synthesis, and the flag resets so fresh sentences play again.
	q.playOne(ctx, "stale sentence")
	require.Equal(t, 0, synth.calls)
	require.False(t, q.interrupt.Load())

	q.playOne(ctx, "fresh sentence")
	require.Equal(t, 1, synth.calls)
	media.mu.Lock()
	played := len(media.played)
	media.mu.Unlock()
	require.Equal(t, 1, played)
}

func TestTTSQueue_ConsecutiveFailuresClearQueue(t *testing.T) {
	media := newFakeMedia()
	synth := &countingSynth{fail: true}
	q := NewTTSQueue("m1", synth, media, 2, 8)

	ctx := context.Background()
	q.Enqueue(ctx, "backlog one")
	q.Enqueue(ctx, "backlog two")

	q.playOne(ctx, "fails once")
	require.Equal(t, 2, len(q.queue))

	q.playOne(ctx, "fails twice, threshold hit")
	require.Equal(t, 0, len(q.queue))
	require.EqualValues(t, 0, q.failures.Load())
}

func TestTTSQueue_RunDrainsUntilCancelled(t *testing.T) {
	media := newFakeMedia()
	synth := &countingSynth{}
	q := NewTTSQueue("m1", synth, media, 3, 8)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		q.Run(ctx)
		close(done)
	}()

	q.Enqueue(ctx, "hello there.")
	require.Eventually(t, func() bool {
		media.mu.Lock()
		defer media.mu.Unlock()
		return len(media.played) == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done
}
