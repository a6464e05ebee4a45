package media

import (
	"context"
	"errors"
	"io"

	"github.com/asticode/go-astiav"

	"github.com/minimg/videoreader/acquire"
	"github.com/minimg/videoreader/queue"
	"github.com/minimg/videoreader/rerrors"
)

// source is the acquisition-goroutine side of Backend: it only pulls raw
// packets off the format context and pushes them into the queue. Decoding
// happens on the caller's goroutine in NextFrame (spec §4.E).
type source struct {
	b *Backend
}

var _ acquire.Source = (*source)(nil)

func (s *source) Next(ctx context.Context, q *queue.Queue) (acquire.Action, error) {
	pkt := packets.Get()
	err := s.b.formatContext.ReadFrame(pkt)
	switch {
	case err == nil:
		if pkt.StreamIndex() != s.b.stream.Index() {
			packets.Put(pkt)
			return acquire.ActionContinue, nil
		}
		q.Push(ctx, pkt)
		return acquire.ActionContinue, nil
	case errors.Is(err, astiav.ErrEof), errors.Is(err, astiav.ErrEio), errors.Is(err, io.EOF):
		packets.Put(pkt)
		return acquire.ActionEOF, nil
	default:
		packets.Put(pkt)
		return acquire.ActionFatal, rerrors.NewRuntimeError(true, err, "unable to read a packet")
	}
}

func (s *source) Close(context.Context) error {
	return nil // the format context itself is closed when Backend.Close runs
}
