// Package acquire implements the per-reader acquisition worker: a single
// goroutine that drives a blocking external source (media packets, camera
// buffers) and pushes results into a bounded queue.Queue, deferring any
// failure to the caller's goroutine instead of crashing the process.
package acquire

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/xaionaro-go/observability"

	"github.com/minimg/videoreader/helpers/closuresignaler"
	"github.com/minimg/videoreader/logger"
	"github.com/minimg/videoreader/queue"
)

// Action is the outcome of one Source.Next call.
type Action int

const (
	// ActionContinue means an item was produced and pushed; keep looping.
	ActionContinue Action = iota
	// ActionEOF means the source is exhausted; push the EOF sentinel and
	// stop looping.
	ActionEOF
	// ActionFatal means an unrecoverable error occurred; it is captured
	// and rethrown on the caller's next operation.
	ActionFatal
	// ActionTimeout means the bounded read timed out with no data; the
	// loop counts consecutive occurrences and may escalate to
	// ActionFatal itself (see Worker.MaxConsecutiveTimeouts).
	ActionTimeout
)

// Source is implemented by each backend's acquisition logic. Next blocks
// (with its own bounded timeout) for the next item, applies whatever
// decoding/copying it needs, and pushes it into q itself — the caller
// supplies q so Source can apply per-kind push semantics (e.g. enqueue
// under the queue's own lock).
type Source interface {
	Next(ctx context.Context, q *queue.Queue) (Action, error)
	// Close releases the external handle. Called exactly once, after the
	// loop exits for any reason.
	Close(ctx context.Context) error
}

// Worker runs one Source on a dedicated goroutine, bridging it to a
// queue.Queue and a shared exception slot.
type Worker struct {
	stop *closuresignaler.ClosureSignaler
	q    *queue.Queue
	src  Source

	// MaxConsecutiveTimeouts bounds how many ActionTimeout results in a
	// row are tolerated before the worker treats the source as dead
	// ("no data" fatal error). Zero disables the check (media backend,
	// which relies on the framework's own read semantics instead).
	MaxConsecutiveTimeouts int

	mu  sync.Mutex
	err error

	wg sync.WaitGroup
}

// New starts the acquisition goroutine immediately.
func New(ctx context.Context, stop *closuresignaler.ClosureSignaler, q *queue.Queue, src Source, maxConsecutiveTimeouts int) *Worker {
	w := &Worker{
		stop:                   stop,
		q:                      q,
		src:                    src,
		MaxConsecutiveTimeouts: maxConsecutiveTimeouts,
	}
	w.wg.Add(1)
	observability.Go(ctx, func(ctx context.Context) {
		defer w.wg.Done()
		w.run(ctx)
	})
	return w
}

func (w *Worker) run(ctx context.Context) {
	consecutiveTimeouts := 0
	for {
		select {
		case <-w.stop.CloseChan():
			w.q.PushSentinel(queue.SentinelEOF)
			_ = w.src.Close(ctx)
			return
		default:
		}

		action, err := w.src.Next(ctx, w.q)
		switch action {
		case ActionContinue:
			consecutiveTimeouts = 0
		case ActionTimeout:
			consecutiveTimeouts++
			if w.MaxConsecutiveTimeouts > 0 && consecutiveTimeouts >= w.MaxConsecutiveTimeouts {
				w.fail(ctx, fmt.Errorf("%w: no data received for %d consecutive reads", ErrNoData, consecutiveTimeouts))
				return
			}
		case ActionEOF:
			w.q.PushSentinel(queue.SentinelEOF)
			_ = w.src.Close(ctx)
			return
		case ActionFatal:
			w.fail(ctx, err)
			return
		}
	}
}

func (w *Worker) fail(ctx context.Context, err error) {
	logger.Errorf(ctx, "acquisition worker failed: %v", err)
	w.mu.Lock()
	w.err = err
	w.mu.Unlock()
	w.q.PushSentinel(queue.SentinelEOF)
	_ = w.src.Close(ctx)
}

// Err returns the captured terminal error, if any.
func (w *Worker) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

// Join blocks until the acquisition goroutine has exited; call only after
// signaling stop.
func (w *Worker) Join() {
	w.wg.Wait()
}

// ErrNoData is wrapped into the fatal error raised after
// MaxConsecutiveTimeouts bounded reads in a row return nothing.
var ErrNoData = errors.New("no data")

// TimeoutBudget converts a "tolerate N seconds of silence" requirement
// into a consecutive-timeout count for a given per-read timeout.
func TimeoutBudget(tolerate, perRead time.Duration) int {
	if perRead <= 0 {
		return 0
	}
	n := int(tolerate / perRead)
	if n < 1 {
		n = 1
	}
	return n
}
