package camera

import (
	"context"

	"gocv.io/x/gocv"

	"github.com/minimg/videoreader/acquire"
	"github.com/minimg/videoreader/extras"
	"github.com/minimg/videoreader/frame"
	"github.com/minimg/videoreader/queue"
	"github.com/minimg/videoreader/rerrors"
)

// source adapts Backend to acquire.Source: one gocv.Read per Next, with the
// frame-ID-wraparound renumbering the vendor SDK requires since its own
// frame counter isn't guaranteed contiguous (spec §4.F). A failed or empty
// read is reported as ActionTimeout; the read itself has no timeout, and
// readTimeout only sizes the consecutive-timeout budget.
type source struct {
	b    *Backend
	mat  gocv.Mat
	init bool
}

func (s *source) Next(ctx context.Context, q *queue.Queue) (acquire.Action, error) {
	if !s.init {
		s.mat = gocv.NewMat()
		s.init = true
	}

	if ok := s.b.cap.Read(&s.mat); !ok || s.mat.Empty() {
		return acquire.ActionTimeout, nil
	}

	img := frame.Image{
		Height:     s.mat.Rows(),
		Width:      s.mat.Cols(),
		Channels:   s.mat.Channels(),
		ScalarType: frame.ScalarU8,
	}
	if err := s.b.alloc.Allocate(&img); err != nil || img.Data == nil {
		return acquire.ActionFatal, rerrors.NewRuntimeError(true, err, "allocator returned no memory")
	}
	raw, err := s.mat.DataPtrUint8()
	if err != nil {
		s.b.alloc.Deallocate(&img)
		return acquire.ActionFatal, rerrors.NewRuntimeError(true, err, "unable to read camera buffer")
	}
	copyPlane(img.Data, img.RowStride(), raw, img.RowStride(), img.Height)

	// the device's own frame counter can wrap or reset; normalize it into
	// a contiguous, monotonically non-decreasing sequence the way the
	// vendor SDK's own client code does.
	rawID := uint64(s.b.cap.Get(gocv.VideoCaptureFrameCount))
	if rawID < s.b.prevFrameID {
		s.b.addFrames += (s.b.prevFrameID - rawID) + 1
	}
	number := rawID + s.b.addFrames
	s.b.prevFrameID = rawID

	tickFrequency := s.b.cap.Get(gocv.VideoCaptureFPS)
	timestamp := -1.0
	if tickFrequency > 0 {
		timestamp = float64(number) / tickFrequency
	}

	var extrasBlob []byte
	if len(s.b.extras) > 0 {
		values := make([]extras.Value, 0, len(s.b.extras))
		for _, name := range s.b.extras {
			switch name {
			case "exposure":
				values = append(values, extras.Float(s.b.cap.Get(gocv.VideoCaptureExposure)))
			case "gain":
				values = append(values, extras.Float(s.b.cap.Get(gocv.VideoCaptureGain)))
			}
		}
		blob, packErr := extras.Pack(values)
		if packErr != nil {
			s.b.alloc.Deallocate(&img)
			return acquire.ActionFatal, rerrors.NewRuntimeError(true, packErr, "unable to pack extras")
		}
		extrasBlob = blob
	}

	q.Push(ctx, frame.New(s.b.alloc, img, number, timestamp, extrasBlob))
	return acquire.ActionContinue, nil
}

func (s *source) Close(context.Context) error {
	if !s.init {
		return nil
	}
	return s.mat.Close()
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
