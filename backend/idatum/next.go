package idatum

import (
	"context"

	"github.com/minimg/videoreader/frame"
	"github.com/minimg/videoreader/queue"
)

// NextFrame mirrors camera.Backend.NextFrame: pops a pre-built frame, or
// nil at EOF. decode has no effect on this backend.
func (b *Backend) NextFrame(ctx context.Context, decode bool) (*frame.Frame, error) {
	if err := b.wk.Err(); err != nil {
		return nil, err
	}
	item, sentinel, ok := b.q.PopBlocking()
	if !ok || sentinel == queue.SentinelAlreadyDrained {
		return nil, nil
	}
	if sentinel == queue.SentinelEOF {
		return nil, b.wk.Err()
	}
	return item.(*frame.Frame), nil
}
