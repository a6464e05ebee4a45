package acquire_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minimg/videoreader/acquire"
	"github.com/minimg/videoreader/helpers/closuresignaler"
	"github.com/minimg/videoreader/queue"
)

type fakeSource struct {
	items   []any
	closed  bool
	nextErr error
	pos     int
}

func (f *fakeSource) Next(ctx context.Context, q *queue.Queue) (acquire.Action, error) {
	if f.pos >= len(f.items) {
		if f.nextErr != nil {
			return acquire.ActionFatal, f.nextErr
		}
		return acquire.ActionEOF, nil
	}
	q.Push(ctx, f.items[f.pos])
	f.pos++
	return acquire.ActionContinue, nil
}

func (f *fakeSource) Close(context.Context) error {
	f.closed = true
	return nil
}

func TestWorkerDrainsThenEOF(t *testing.T) {
	stop := closuresignaler.New()
	q := queue.New(stop, queue.WaitPolicy{High: 100, Low: 80})
	src := &fakeSource{items: []any{1, 2, 3}}
	w := acquire.New(context.Background(), stop, q, src, 0)

	var got []any
	for {
		item, sentinel, ok := q.PopBlocking()
		if !ok || sentinel == queue.SentinelEOF {
			break
		}
		got = append(got, item)
	}
	w.Join()

	assert.Equal(t, []any{1, 2, 3}, got)
	assert.True(t, src.closed)
	assert.NoError(t, w.Err())
}

func TestWorkerCapturesFatalError(t *testing.T) {
	stop := closuresignaler.New()
	q := queue.New(stop, queue.WaitPolicy{High: 100, Low: 80})
	wantErr := errors.New("boom")
	src := &fakeSource{nextErr: wantErr}
	w := acquire.New(context.Background(), stop, q, src, 0)

	_, sentinel, ok := q.PopBlocking()
	require.True(t, ok)
	assert.Equal(t, queue.SentinelEOF, sentinel)

	w.Join()
	assert.ErrorIs(t, w.Err(), wantErr)
}

type timeoutSource struct{}

func (timeoutSource) Next(context.Context, *queue.Queue) (acquire.Action, error) {
	return acquire.ActionTimeout, nil
}
func (timeoutSource) Close(context.Context) error { return nil }

func TestWorkerEscalatesConsecutiveTimeouts(t *testing.T) {
	stop := closuresignaler.New()
	q := queue.New(stop, queue.WaitPolicy{High: 100, Low: 80})
	w := acquire.New(context.Background(), stop, q, timeoutSource{}, 3)

	_, sentinel, ok := q.PopBlocking()
	require.True(t, ok)
	assert.Equal(t, queue.SentinelEOF, sentinel)

	w.Join()
	assert.ErrorIs(t, w.Err(), acquire.ErrNoData)
}

func TestWorkerStopExitsPromptly(t *testing.T) {
	stop := closuresignaler.New()
	q := queue.New(stop, queue.WaitPolicy{High: 100, Low: 80})
	src := &fakeSource{} // EOF on first Next, but we stop before that matters
	w := acquire.New(context.Background(), stop, q, src, 0)

	stop.Close(context.Background())

	done := make(chan struct{})
	go func() {
		w.Join()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not exit after stop")
	}
}

func TestTimeoutBudget(t *testing.T) {
	assert.Equal(t, 12, acquire.TimeoutBudget(3*time.Second, 250*time.Millisecond))
	assert.Equal(t, 1, acquire.TimeoutBudget(0, 250*time.Millisecond))
	assert.Equal(t, 0, acquire.TimeoutBudget(time.Second, 0))
}
