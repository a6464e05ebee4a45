package idatum

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"
	"time"

	"github.com/minimg/videoreader/acquire"
	"github.com/minimg/videoreader/frame"
	"github.com/minimg/videoreader/queue"
	"github.com/minimg/videoreader/rerrors"
)

// source adapts Backend to acquire.Source: one MJPEG frame per Next,
// decoded to raw pixels. Channels follow the decoded image's own color
// model (1 for grayscale, 3 otherwise); scalar depth is always 8-bit
// regardless of the source's true bit depth, mirroring a depth-detection
// bug the original device driver carried (spec §9 — preserved, not fixed).
type source struct {
	b *Backend
}

func (s *source) Next(ctx context.Context, q *queue.Queue) (acquire.Action, error) {
	raw, err := s.b.decoder.DecodeRaw()
	if err != nil {
		return acquire.ActionTimeout, nil
	}

	img, err := jpeg.Decode(bytes.NewReader(raw))
	if err != nil {
		return acquire.ActionTimeout, nil
	}

	channels := 3
	if _, mono := img.(*image.Gray); mono {
		channels = 1
	}

	bounds := img.Bounds()
	out := frame.Image{
		Height:     bounds.Dy(),
		Width:      bounds.Dx(),
		Channels:   channels,
		ScalarType: frame.ScalarU8,
	}
	if err := s.b.alloc.Allocate(&out); err != nil || out.Data == nil {
		return acquire.ActionFatal, rerrors.NewRuntimeError(true, err, "allocator returned no memory")
	}
	copyPixels(out, img, channels)

	// the device's real frame-timestamp register is a 64-bit tick split
	// across two 32-bit halves scaled by 1e-8; go-mjpeg exposes neither
	// register, so wall-clock time in 10 ns units (a 1e8 Hz tick) stands in
	// for the tick.
	number := s.b.frameNumber
	s.b.frameNumber++
	timestamp := float64(time.Now().UnixNano()/10) * 1e-8

	q.Push(ctx, frame.New(s.b.alloc, out, number, timestamp, nil))
	return acquire.ActionContinue, nil
}

func copyPixels(dst frame.Image, src image.Image, channels int) {
	bounds := src.Bounds()
	stride := dst.RowStride()
	for y := 0; y < dst.Height; y++ {
		row := dst.Data[y*stride : y*stride+dst.Width*channels]
		for x := 0; x < dst.Width; x++ {
			r, g, b, _ := src.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			off := x * channels
			if channels == 1 {
				row[off] = byte(r >> 8)
				continue
			}
			row[off] = byte(r >> 8)
			row[off+1] = byte(g >> 8)
			row[off+2] = byte(b >> 8)
		}
	}
}

func (s *source) Close(context.Context) error {
	return nil
}
