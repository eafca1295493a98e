package credential

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLocalPool_CredentialExhaustion(t *testing.T) {
	ctx := context.Background()
	p := NewLocalPool(2, 2, time.Hour)

	i1, err := p.Allocate(ctx, "m1")
	require.NoError(t, err)
	require.Equal(t, 0, i1)

	i2, err := p.Allocate(ctx, "m2")
	require.NoError(t, err)
	require.Equal(t, 1, i2)

	i3, err := p.Allocate(ctx, "m3")
	require.NoError(t, err)
	require.Equal(t, 0, i3)

	i4, err := p.Allocate(ctx, "m4")
	require.NoError(t, err)
	require.Equal(t, 1, i4)

	_, err = p.Allocate(ctx, "m5")
	require.ErrorIs(t, err, ErrExhausted)

	released, err := p.Release(ctx, "m2")
	require.NoError(t, err)
	require.True(t, released)

	i5, err := p.Allocate(ctx, "m5")
	require.NoError(t, err)
	require.Equal(t, 1, i5)
}

func TestLocalPool_AllocateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	p := NewLocalPool(2, 2, time.Hour)

	first, err := p.Allocate(ctx, "m1")
	require.NoError(t, err)

	second, err := p.Allocate(ctx, "m1")
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestLocalPool_AllocateReleaseAllocateRestoresLoad(t *testing.T) {
	ctx := context.Background()
	p := NewLocalPool(2, 2, time.Hour)

	_, err := p.Allocate(ctx, "m1")
	require.NoError(t, err)

	released, err := p.Release(ctx, "m1")
	require.NoError(t, err)
	require.True(t, released)

	status, err := p.Status(ctx)
	require.NoError(t, err)
	for _, s := range status {
		require.Equal(t, 0, s.Meetings)
	}

	idx, err := p.Allocate(ctx, "m1")
	require.NoError(t, err)
	require.GreaterOrEqual(t, idx, 0)
	require.Less(t, idx, 2)
}

func TestLocalPool_ExpiredAssignmentsAreSweptBeforeAllocation(t *testing.T) {
	ctx := context.Background()
	p := NewLocalPool(1, 1, time.Millisecond)
	fakeNow := time.Now()
	p.now = func() time.Time { return fakeNow }

	_, err := p.Allocate(ctx, "m1")
	require.NoError(t, err)

	fakeNow = fakeNow.Add(time.Second)

	idx, err := p.Allocate(ctx, "m2")
	require.NoError(t, err)
	require.Equal(t, 0, idx)
}

func TestLocalPool_ReleaseUnknownMeetingReturnsFalse(t *testing.T) {
	ctx := context.Background()
	p := NewLocalPool(1, 1, time.Hour)

	released, err := p.Release(ctx, "unknown")
	require.NoError(t, err)
	require.False(t, released)
}
