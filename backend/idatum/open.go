// Package idatum implements camera-SDK backend B (spec §4.F, scheme
// "idatum://"): the least-implemented of the two camera backends. No
// feature tables, no live reconfiguration, and a pixel-depth field
// hard-coded to 8-bit regardless of the source JPEG's actual depth — a
// limitation the original carried and this module preserves rather than
// silently fixes (spec §9).
package idatum

import (
	"context"
	"time"

	"github.com/mattn/go-mjpeg"

	"github.com/minimg/videoreader/acquire"
	"github.com/minimg/videoreader/frame"
	"github.com/minimg/videoreader/helpers/closuresignaler"
	"github.com/minimg/videoreader/queue"
	"github.com/minimg/videoreader/rerrors"
	"github.com/minimg/videoreader/types"
)

const readTimeout = 250 * time.Millisecond

// Backend is camera-SDK backend B: scheme "idatum://<url>".
type Backend struct {
	stop *closuresignaler.ClosureSignaler
	q    *queue.Queue
	wk   *acquire.Worker

	decoder *mjpeg.Decoder
	alloc   frame.Allocator

	frameNumber uint64
}

// Open opens rawURL as an MJPEG stream. params is rejected wholesale (the
// backend exposes no configurable feature), and so is any non-empty
// extras list.
func Open(ctx context.Context, rawURL string, params types.DictionaryItems, extrasNames []string, alloc frame.Allocator) (*Backend, error) {
	if len(params) > 0 {
		return nil, rerrors.NewConfigurationError("backend accepts no parameters")
	}
	if len(extrasNames) > 0 {
		return nil, rerrors.NewConfigurationError("backend supports no extras")
	}

	decoder, err := mjpeg.NewDecoderFromURL(rawURL)
	if err != nil {
		return nil, rerrors.NewOpenError(err, "unable to open MJPEG stream '%s'", rawURL)
	}

	b := &Backend{
		stop:    closuresignaler.New(),
		decoder: decoder,
		alloc:   alloc,
	}
	b.q = queue.New(b.stop, queue.HalvePolicy{High: 9})
	b.wk = acquire.New(ctx, b.stop, b.q, &source{b: b}, acquire.TimeoutBudget(3*time.Second, readTimeout))
	return b, nil
}

func (b *Backend) Size() uint64     { return 0 }
func (b *Backend) IsSeekable() bool { return false }

// Set is not implemented: the backend has no live-reconfigurable state.
func (b *Backend) Set(context.Context, types.DictionaryItems) error {
	return rerrors.NewConfigurationError("backend does not support reconfiguration")
}

func (b *Backend) Stop() {
	b.stop.Close(context.Background())
}

func (b *Backend) Close(ctx context.Context) error {
	b.stop.Close(ctx)
	b.wk.Join()
	return nil
}
