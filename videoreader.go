package videoreader

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/xaionaro-go/secret"

	"github.com/minimg/videoreader/backend/camera"
	"github.com/minimg/videoreader/backend/idatum"
	"github.com/minimg/videoreader/backend/media"
	"github.com/minimg/videoreader/frame"
	"github.com/minimg/videoreader/logger"
	"github.com/minimg/videoreader/rerrors"
	"github.com/minimg/videoreader/types"
)

// Reader is the uniform contract exposed by every backend.
type Reader interface {
	// Size returns the declared total frame count, or 0 if unknown.
	Size() uint64
	// IsSeekable reports whether the source supports random access.
	IsSeekable() bool
	// NextFrame returns the next frame, or (nil, nil) at EOF. When decode
	// is false the media backend skips pixel conversion; camera backends
	// ignore the flag.
	NextFrame(ctx context.Context, decode bool) (*frame.Frame, error)
	// Set applies backend-specific live reconfiguration.
	Set(ctx context.Context, params types.DictionaryItems) error
	// Stop requests the acquisition goroutine to exit promptly.
	Stop()
	// types.Closer: joins the acquisition goroutine and releases the source.
	types.Closer
}

// AllocateFunc and DeallocateFunc are the bring-your-own-buffer extension
// point at the construction boundary, kept as a matched pair of function
// values (rather than a single interface) so Create can enforce the "both
// or neither" pairing invariant itself (spec §4.G step 2 / scenario S6).
type (
	AllocateFunc   func(img *frame.Image) error
	DeallocateFunc func(img *frame.Image)
)

type funcAllocator struct {
	allocate   AllocateFunc
	deallocate DeallocateFunc
}

func (a funcAllocator) Allocate(img *frame.Image) error { return a.allocate(img) }
func (a funcAllocator) Deallocate(img *frame.Image)     { a.deallocate(img) }

// LogFunc and LogLevel are the reader's optional log callback (spec.md's
// "Optional log callback + user pointer"), re-exported from logger for
// callers who don't otherwise import that package.
type (
	LogFunc  = logger.LogFunc
	LogLevel = logger.LogLevel
)

// Create parses rawURL, validates configuration, and dispatches to the
// backend named by its scheme: "pylon" (exact) and "galaxy://" go to the
// camera-SDK backend, "idatum://" to the MJPEG backend, everything else to
// the media-framework backend. logFn, if non-nil, is invoked for every log
// line emitted by the opened backend for as long as it lives, tagged with
// userdata exactly as handed in here — the Go stand-in for the original's
// LogCallback + userdata pair (see logger.WithCallback).
func Create(
	ctx context.Context,
	rawURL string,
	paramPairs []string,
	extrasNames []string,
	allocate AllocateFunc,
	deallocate DeallocateFunc,
	logFn LogFunc,
	userdata any,
) (Reader, error) {
	ctx = logger.WithCallback(ctx, logFn, userdata)

	readerID := uuid.New()
	logger.Debugf(ctx, "reader %s: opening %s", readerID, secret.New(rawURL))

	params, err := types.ParsePairs(paramPairs)
	if err != nil {
		return nil, rerrors.NewConfigurationError("%v", err)
	}

	var alloc frame.Allocator
	switch {
	case allocate == nil && deallocate == nil:
		alloc = frame.DefaultAllocator{}
	case allocate != nil && deallocate != nil:
		alloc = funcAllocator{allocate: allocate, deallocate: deallocate}
	default:
		return nil, rerrors.NewConfigurationError("all or no allocators MUST be specified")
	}

	switch {
	case rawURL == "pylon":
		return camera.Open(ctx, rawURL, params, extrasNames, alloc)
	case strings.HasPrefix(rawURL, "galaxy://"):
		return camera.Open(ctx, strings.TrimPrefix(rawURL, "galaxy://"), params, extrasNames, alloc)
	case strings.HasPrefix(rawURL, "idatum://"):
		return idatum.Open(ctx, strings.TrimPrefix(rawURL, "idatum://"), params, extrasNames, alloc)
	default:
		return media.Open(ctx, rawURL, params, extrasNames, alloc)
	}
}
