package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/minimg/videoreader/helpers/closuresignaler"
)

func TestPushPopFIFO(t *testing.T) {
	q := New(closuresignaler.New(), WaitPolicy{High: 100, Low: 80})
	ctx := context.Background()
	q.Push(ctx, 1)
	q.Push(ctx, 2)
	q.Push(ctx, 3)

	item, sentinel, ok := q.PopBlocking()
	require.True(t, ok)
	require.Equal(t, SentinelNone, sentinel)
	require.Equal(t, 1, item)

	item, _, ok = q.PopBlocking()
	require.True(t, ok)
	require.Equal(t, 2, item)
}

func TestEOFThenAlreadyDrained(t *testing.T) {
	q := New(closuresignaler.New(), WaitPolicy{High: 100, Low: 80})
	q.PushSentinel(SentinelEOF)

	_, sentinel, ok := q.PopBlocking()
	require.True(t, ok)
	require.Equal(t, SentinelEOF, sentinel)

	_, sentinel, ok = q.PopBlocking()
	require.True(t, ok)
	require.Equal(t, SentinelAlreadyDrained, sentinel)
}

func TestStopWakesBlockedPop(t *testing.T) {
	stop := closuresignaler.New()
	q := New(stop, WaitPolicy{High: 100, Low: 80})

	done := make(chan bool, 1)
	go func() {
		_, _, ok := q.PopBlocking()
		done <- ok
	}()

	time.Sleep(20 * time.Millisecond)
	stop.Close(context.Background())

	select {
	case ok := <-done:
		require.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("PopBlocking did not wake on stop")
	}
}

func TestDropOldestPolicyBounds(t *testing.T) {
	q := New(closuresignaler.New(), DropOldestPolicy{High: 10, DropCount: 5})
	ctx := context.Background()
	for i := 0; i < 20; i++ {
		q.Push(ctx, i)
	}
	require.LessOrEqual(t, q.Len(), 10)
	require.Greater(t, q.Dropped.Load(), uint64(0))
}

func TestHalvePolicy(t *testing.T) {
	q := New(closuresignaler.New(), HalvePolicy{High: 9})
	ctx := context.Background()
	for i := 0; i < 11; i++ {
		q.Push(ctx, i)
	}
	require.LessOrEqual(t, q.Len(), 9)
}

func TestWaitPolicyStallUnblocksOnStop(t *testing.T) {
	stop := closuresignaler.New()
	q := New(stop, WaitPolicy{High: 2, Low: 1})
	ctx := context.Background()
	q.Push(ctx, 1)
	q.Push(ctx, 2)

	done := make(chan bool, 1)
	go func() {
		q.Push(ctx, 3) // over High; stalls in waitFn until Low or stop
		done <- true
	}()

	time.Sleep(20 * time.Millisecond)
	stop.Close(context.Background())

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Push did not unblock on stop")
	}
}
