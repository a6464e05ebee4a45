package camera

import (
	"context"

	"github.com/minimg/videoreader/frame"
	"github.com/minimg/videoreader/queue"
)

// NextFrame returns the next frame already built by the acquisition
// goroutine, or nil at EOF. decode is accepted for interface uniformity
// with the media backend but has no effect here: the camera source always
// produces fully-populated pixel data, there is no cheap-skip path.
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
