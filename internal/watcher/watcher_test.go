package watcher

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/deckard/internal/types"
)

func TestDedupQueueCoalescesLatestAction(t *testing.T) {
	q := newDedupQueue()
	q.put("/a.go", types.FsEventCreated)
	q.put("/a.go", types.FsEventModified)
	q.put("/a.go", types.FsEventDeleted)

	events := q.drain()
	require.Len(t, events, 1)
	require.Equal(t, types.FsEventDeleted, events[0].Kind)
}

func TestAdaptiveDebouncerGrowsUnderSustainedActivity(t *testing.T) {
	d := newAdaptiveDebouncer(10*time.Millisecond, 100*time.Millisecond)
	flushed := make(chan struct{}, 8)
	d.SetFlushFunc(func() { flushed <- struct{}{} })

	d.noteActivity("root")
	require.Equal(t, 10*time.Millisecond, d.current["root"])

	d.noteActivity("root")
	require.Greater(t, d.current["root"], 10*time.Millisecond)
}

func TestTokenBucketLimitsBurst(t *testing.T) {
	b := newTokenBucket(2, 10)
	require.True(t, b.tryTake())
	require.True(t, b.tryTake())
	require.False(t, b.tryTake())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	b.wait(ctx)
}

func TestTokenBucketScaleDerateUnderLoad(t *testing.T) {
	b := newTokenBucket(100, 200)

	b.scale(0.5, 0.8)
	require.Equal(t, 200.0, b.fillRate)

	b.scale(1.0, 0.8)
	require.InDelta(t, 20.0, b.fillRate, 0.001)

	b.scale(0.9, 0.8)
	require.InDelta(t, 110.0, b.fillRate, 0.001)

	b.scale(0.2, 0.8)
	require.Equal(t, 200.0, b.fillRate)
}

func TestWatcherThrottleScalesBucket(t *testing.T) {
	dir := t.TempDir()
	w, err := New(dir, Options{TokenBucketCap: 50, TokenFillPerSec: 100}, func(types.FsEvent) {})
	require.NoError(t, err)

	w.Throttle(1.0)
	require.InDelta(t, 10.0, w.bucket.fillRate, 0.001)

	w.Throttle(0.1)
	require.Equal(t, 100.0, w.bucket.fillRate)
}
