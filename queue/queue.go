// Package queue implements the bounded single-producer/single-consumer
// FIFO that decouples a reader's acquisition goroutine from its caller:
// the acquisition goroutine Pushes, the caller PopBlockings, and an
// OverflowPolicy decides what happens when the queue grows past its
// capacity.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/atomic"

	"github.com/minimg/videoreader/helpers/closuresignaler"
	"github.com/minimg/videoreader/logger"
)

// waitPollInterval is how long WaitPolicy's producer stall sleeps between
// depth checks (spec.md's "polls every 100 ms until len(q) < Low").
const waitPollInterval = 100 * time.Millisecond

// SentinelKind distinguishes the reasons a Queue may yield no item.
type SentinelKind int

const (
	// SentinelNone is the zero value; Pop results carrying it are real items.
	SentinelNone SentinelKind = iota
	// SentinelEOF marks the source as exhausted.
	SentinelEOF
	// SentinelAlreadyDrained marks a Pop made after SentinelEOF was already
	// observed once — the media backend's double-EOF distinction (spec's
	// "open question": kept as deliberate).
	SentinelAlreadyDrained
)

// OverflowPolicy decides what happens to a Queue when a Push would grow it
// past capacity. Implementations run with the queue's lock held.
type OverflowPolicy interface {
	// Apply is called after appending the new item, with the queue's
	// current length. It mutates items in place (evicting as needed) and
	// returns the resulting slice. waitFn, if non-nil, may be called
	// (with the lock released) to block the producer; waitFn returns
	// false if the stop signal fired while waiting.
	Apply(items []any, waitFn func() bool) []any
}

// Queue is a bounded FIFO of opaque payloads (raw packets, or frame
// values — callers choose the payload shape and cast it back).
type Queue struct {
	stop   *closuresignaler.ClosureSignaler
	policy OverflowPolicy

	mu     sync.Mutex
	items  []any
	notify chan struct{} // non-blocking-send signal, buffered size 1

	sentinel             SentinelKind
	sentinelObservedOnce atomic.Bool

	Dropped atomic.Uint64
	Pushed  atomic.Uint64
}

// New builds a Queue guarded by stop: Push calls performed after stop
// fires are accepted but PopBlocking wakes promptly regardless of content.
func New(stop *closuresignaler.ClosureSignaler, policy OverflowPolicy) *Queue {
	return &Queue{
		stop:   stop,
		policy: policy,
		notify: make(chan struct{}, 1),
	}
}

func (q *Queue) wake() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// Len reports the current queue depth (items only, not sentinel state).
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Push appends one payload, applying the overflow policy if the queue grew
// past capacity. item may be nil only via PushSentinel.
func (q *Queue) Push(ctx context.Context, item any) {
	q.mu.Lock()
	q.items = append(q.items, item)
	q.Pushed.Inc()
	before := len(q.items)
	q.items = q.policy.Apply(q.items, func() bool {
		q.mu.Unlock()
		defer q.mu.Lock()
		select {
		case <-q.stop.CloseChan():
			return false
		case <-time.After(waitPollInterval):
		}
		return true
	})
	if dropped := before - len(q.items); dropped > 0 {
		total := q.Dropped.Add(uint64(dropped))
		logger.Debugf(ctx, "queue overflow: dropped %d item(s), depth now %d, %s dropped total",
			dropped, len(q.items), humanize.Comma(int64(total)))
	}
	q.mu.Unlock()
	q.wake()
}

// PushSentinel marks the queue as ending with kind (EOF or
// AlreadyDrained). Wakes any blocked PopBlocking.
func (q *Queue) PushSentinel(kind SentinelKind) {
	q.mu.Lock()
	q.sentinel = kind
	q.mu.Unlock()
	q.wake()
}

// PopBlocking waits for an item or a sentinel/stop signal. ok is false only
// when the stop signal fired with nothing left to drain; sentinel is
// non-zero when the source has ended (possibly for the second time).
func (q *Queue) PopBlocking() (item any, sentinel SentinelKind, ok bool) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 || q.sentinel != SentinelNone {
			break
		}
		q.mu.Unlock()
		select {
		case <-q.notify:
		case <-q.stop.CloseChan():
			return nil, SentinelNone, false
		}
	}
	defer q.mu.Unlock()
	if len(q.items) > 0 {
		item = q.items[0]
		q.items = q.items[1:]
		return item, SentinelNone, true
	}
	kind := q.sentinel
	if q.sentinelObservedOnce.Swap(true) && kind == SentinelEOF {
		kind = SentinelAlreadyDrained
	}
	return nil, kind, true
}
