package media

import (
	"context"
	"errors"

	"github.com/asticode/go-astiav"

	"github.com/minimg/videoreader/extras"
	"github.com/minimg/videoreader/frame"
	"github.com/minimg/videoreader/queue"
	"github.com/minimg/videoreader/rerrors"
)

// limitedRangeEquivalent rewrites full-range (JPEG) YUV pixel formats to
// their limited-range equivalents before building the scale context, so
// the converter doesn't warn about a full<->limited range conversion it
// can't express (spec §4.E).
func limitedRangeEquivalent(pf astiav.PixelFormat) astiav.PixelFormat {
	switch pf {
	case astiav.PixelFormatYuvj420P:
		return astiav.PixelFormatYuv420P
	case astiav.PixelFormatYuvj422P:
		return astiav.PixelFormatYuv422P
	case astiav.PixelFormatYuvj444P:
		return astiav.PixelFormatYuv444P
	case astiav.PixelFormatYuvj440P:
		return astiav.PixelFormatYuv440P
	default:
		return pf
	}
}

func (b *Backend) ensureScaler(srcPixFmt astiav.PixelFormat) error {
	if b.swsContext != nil {
		return nil
	}
	sws, err := astiav.CreateSoftwareScaleContext(
		b.codecContext.Width(), b.codecContext.Height(), limitedRangeEquivalent(srcPixFmt),
		b.codecContext.Width(), b.codecContext.Height(), b.dstPixFmt,
		astiav.NewSoftwareScaleContextFlags(astiav.SoftwareScaleContextFlagBicubic),
	)
	if err != nil {
		return rerrors.NewStreamError(err, "converter initialization failed")
	}
	b.swsContext = sws
	b.closer.Add(sws.Free)
	return nil
}

// NextFrame pulls packets from the queue (filled by the acquisition
// goroutine), decodes them, and returns the next frame, or nil at EOF.
// When decode is false the pixel conversion step is skipped; every other
// field is populated as it would be with decode=true (spec invariant 6).
func (b *Backend) NextFrame(ctx context.Context, decode bool) (*frame.Frame, error) {
	if err := b.wk.Err(); err != nil {
		return nil, err
	}

	for {
		item, sentinel, ok := b.q.PopBlocking()
		if !ok {
			return nil, nil
		}
		if sentinel == queue.SentinelAlreadyDrained {
			return nil, rerrors.ErrUseAfterEnd
		}
		if sentinel == queue.SentinelEOF {
			if err := b.wk.Err(); err != nil {
				return nil, err
			}
			return nil, nil
		}

		pkt := item.(*astiav.Packet)
		sendErr := b.codecContext.SendPacket(pkt)
		if sendErr != nil {
			packets.Put(pkt)
			// the decoder declined the packet; guesstimate one packet is
			// one frame and keep the visible counter moving regardless
			// (spec §9 design note: intentional, subtle).
			b.currentFrame++
			continue
		}

		av := astiav.AllocFrame()
		recvErr := b.codecContext.ReceiveFrame(av)
		if errors.Is(recvErr, astiav.ErrEagain) {
			av.Free()
			packets.Put(pkt)
			continue
		}
		if recvErr != nil {
			av.Free()
			packets.Put(pkt)
			return nil, rerrors.NewRuntimeError(true, recvErr, "decoder failed to produce a frame")
		}

		// buildFrame reads the packet's timestamps and position, so the
		// packet goes back to the pool only afterwards.
		f, err := b.buildFrame(ctx, av, pkt, decode)
		av.Free()
		packets.Put(pkt)
		if err != nil {
			return nil, err
		}
		return f, nil
	}
}

func (b *Backend) buildFrame(ctx context.Context, av *astiav.Frame, pkt *astiav.Packet, decode bool) (*frame.Frame, error) {
	if err := b.ensureScaler(av.PixelFormat()); err != nil {
		return nil, err
	}

	img := frame.Image{
		Height:     b.codecContext.Height(),
		Width:      b.codecContext.Width(),
		Channels:   3,
		ScalarType: frame.ScalarU8,
	}
	img.Stride = frame.AlignedStride(img.Width, img.Channels, img.ScalarType, 16)
	if err := b.alloc.Allocate(&img); err != nil || img.Data == nil {
		return nil, rerrors.NewRuntimeError(true, err, "allocator returned no memory")
	}

	if decode {
		dst := astiav.AllocFrame()
		defer dst.Free()
		dst.SetWidth(img.Width)
		dst.SetHeight(img.Height)
		dst.SetPixelFormat(b.dstPixFmt)
		if err := dst.AllocBuffer(1); err != nil {
			b.alloc.Deallocate(&img)
			return nil, rerrors.NewRuntimeError(true, err, "unable to allocate conversion buffer")
		}
		if err := b.swsContext.ScaleFrame(av, dst); err != nil {
			b.alloc.Deallocate(&img)
			return nil, rerrors.NewRuntimeError(true, err, "unable to scale frame")
		}
		copyPlane(img.Data, img.RowStride(), dst.Data()[0], dst.Linesize()[0], img.Height)
	}

	number := b.currentFrame
	b.currentFrame++

	timestamp := -1.0
	if pkt.Dts() != astiav.NoPtsValue {
		timestamp = float64(av.BestEffortTimestamp()) * b.stream.TimeBase().Float64()
	}

	var extrasBlob []byte
	if len(b.extrasNames) > 0 {
		values := make([]extras.Value, 0, len(b.extrasNames))
		for _, name := range b.extrasNames {
			values = append(values, extras.Int(recognizedExtras[name](pkt)))
		}
		blob, err := extras.Pack(values)
		if err != nil {
			return nil, rerrors.NewRuntimeError(true, err, "unable to pack extras")
		}
		extrasBlob = blob
	}

	return frame.New(b.alloc, img, number, timestamp, extrasBlob), nil
}

func copyPlane(dst []byte, dstStride int, src []byte, srcStride int, height int) {
	for row := 0; row < height; row++ {
		d := dst[row*dstStride:]
		s := src[row*srcStride:]
		n := dstStride
		if srcStride < n {
			n = srcStride
		}
		if n > len(d) {
			n = len(d)
		}
		if n > len(s) {
			n = len(s)
		}
		copy(d[:n], s[:n])
	}
}
