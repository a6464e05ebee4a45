// Package camera implements camera-SDK backend A (spec §4.F), grounded on
// the Pylon/Galaxy industrial-camera SDKs' "open by identifier, apply
// typed feature tables, pull buffers with a bounded timeout" contract.
// gocv.io/x/gocv's VideoCapture stands in for the vendor SDK: a real
// OpenCV-backed capture device rather than a stub.
package camera

import (
	"context"
	"strconv"
	"strings"
	"time"

	"gocv.io/x/gocv"

	"github.com/minimg/videoreader/acquire"
	"github.com/minimg/videoreader/frame"
	"github.com/minimg/videoreader/helpers/closuresignaler"
	"github.com/minimg/videoreader/logger"
	"github.com/minimg/videoreader/queue"
	"github.com/minimg/videoreader/rerrors"
	"github.com/minimg/videoreader/types"
)

const readTimeout = 250 * time.Millisecond

// Backend is camera-SDK backend A: schemes "pylon" (exact) and
// "galaxy://<device-id>".
type Backend struct {
	stop *closuresignaler.ClosureSignaler
	q    *queue.Queue
	wk   *acquire.Worker

	cap    *gocv.VideoCapture
	alloc  frame.Allocator
	extras []string

	width, height int

	prevFrameID uint64
	addFrames   uint64
}

// Open opens deviceID (an IP, serial, index, or name — tried as a numeric
// index first, then as a path/URL the way gocv.OpenVideoCapture accepts)
// and applies params as a lower-cased key/value configuration map.
func Open(ctx context.Context, deviceID string, params types.DictionaryItems, extrasNames []string, alloc frame.Allocator) (*Backend, error) {
	for _, name := range extrasNames {
		switch name {
		case "exposure", "gain":
		default:
			return nil, rerrors.NewConfigurationError("unknown extra '%s' (valid: exposure, gain)", name)
		}
	}

	var cap *gocv.VideoCapture
	var err error
	if idx, convErr := strconv.Atoi(deviceID); convErr == nil {
		cap, err = gocv.OpenVideoCaptureWithAPI(idx, gocv.VideoCaptureAny)
	} else {
		cap, err = gocv.OpenVideoCapture(deviceID)
	}
	if err != nil {
		return nil, rerrors.NewOpenError(err, "unable to open camera device '%s'", deviceID)
	}

	// default settings at open: auto-exposure on, auto-gain on. No binning
	// default is applied: gocv exposes no binning property.
	cap.Set(gocv.VideoCaptureAutoExposure, 1)
	cap.Set(gocv.VideoCaptureGain, -1) // -1 signals "auto" on most UVC drivers

	var warnings []string
	for _, item := range params {
		applied, applyErr := applyPair(cap, item.Key, item.Value)
		if applyErr != nil {
			_ = cap.Close()
			return nil, rerrors.NewConfigurationError("%v", applyErr)
		}
		if !applied {
			warnings = append(warnings, item.Key)
		}
	}
	if len(warnings) > 0 {
		logger.Warnf(ctx, "unknown key(s) `%s`. Available keys: %s", strings.Join(warnings, ", "), validKeys())
	}

	b := &Backend{
		stop:   closuresignaler.New(),
		cap:    cap,
		alloc:  alloc,
		extras: extrasNames,
		width:  int(cap.Get(gocv.VideoCaptureFrameWidth)),
		height: int(cap.Get(gocv.VideoCaptureFrameHeight)),
	}
	b.q = queue.New(b.stop, queue.HalvePolicy{High: 9})
	b.wk = acquire.New(ctx, b.stop, b.q, &source{b: b}, acquire.TimeoutBudget(3*time.Second, readTimeout))
	return b, nil
}

func (b *Backend) Size() uint64     { return 0 }
func (b *Backend) IsSeekable() bool { return false }

// Set applies further parameter pairs live, same semantics as at Open.
func (b *Backend) Set(ctx context.Context, params types.DictionaryItems) error {
	var warnings []string
	for _, item := range params {
		applied, err := applyPair(b.cap, item.Key, item.Value)
		if err != nil {
			return rerrors.NewConfigurationError("%v", err)
		}
		if !applied {
			warnings = append(warnings, item.Key)
		}
	}
	if len(warnings) > 0 {
		logger.Warnf(ctx, "unknown key(s) `%s`. Available keys: %s", strings.Join(warnings, ", "), validKeys())
	}
	return nil
}

func (b *Backend) Stop() {
	b.stop.Close(context.Background())
}

func (b *Backend) Close(ctx context.Context) error {
	b.stop.Close(ctx)
	b.wk.Join()
	return b.cap.Close()
}
