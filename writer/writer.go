// Package writer implements the encoder/writer: the outward mirror of
// backend/media. It accepts decoded frame.Image values, converts pixel
// layout to the encoder's native format via github.com/asticode/go-astiav,
// encodes, and muxes to an output container. An optional realtime mode
// pushes converted frames through a queue.Queue drained by a dedicated
// encoder goroutine instead of blocking the caller.
package writer

import (
	"context"
	"fmt"
	"strings"

	"github.com/asticode/go-astiav"
	"github.com/xaionaro-go/observability"

	"github.com/minimg/videoreader/frame"
	"github.com/minimg/videoreader/helpers/closuresignaler"
	"github.com/minimg/videoreader/internal"
	"github.com/minimg/videoreader/logger"
	"github.com/minimg/videoreader/queue"
	"github.com/minimg/videoreader/rerrors"
	"github.com/minimg/videoreader/types"
)

// ptsTimeBase is the historical MPEG-4 time base this module's predecessor
// hard-coded; pts = round(timestamp_s * 65535).
const ptsTimeBase = 65535

// realtimeQueueDepth is the back-pressure threshold: Push returns false
// once the queue already holds this many frames.
const realtimeQueueDepth = 10

// Writer is the encoder/writer described by spec §4.H.
type Writer struct {
	realtime bool

	formatContext *astiav.FormatContext
	stream        *astiav.Stream
	codecContext  *astiav.CodecContext
	swsContext    *astiav.SoftwareScaleContext
	srcPixFmt     astiav.PixelFormat

	width, height int

	stop *closuresignaler.ClosureSignaler
	q    *queue.Queue
	done chan struct{}
	err  error
}

// Open constructs a writer for rawURL. srcWidth/srcHeight describe every
// frame.Image that will be pushed; changing dimensions mid-stream is a hard
// error at Push time, not handled here. Open takes no pixel format: the
// source format is picked from the first pushed image's channel count
// (1 = Gray8, otherwise RGB24) and kept for the writer's lifetime.
func Open(ctx context.Context, rawURL string, srcWidth, srcHeight int, params types.DictionaryItems, realtime bool) (*Writer, error) {
	bitrate := int64(4_000_000)
	var unconsumed []string
	for _, item := range params {
		if item.Key == "br" {
			var n int64
			if _, err := fmt.Sscanf(item.Value, "%d", &n); err != nil {
				return nil, rerrors.NewConfigurationError("invalid 'br' value '%s'", item.Value)
			}
			bitrate = n
			continue
		}
		unconsumed = append(unconsumed, item.Key)
	}

	formatContext, err := astiav.AllocOutputFormatContext(nil, "", rawURL)
	if err != nil || formatContext == nil {
		return nil, rerrors.NewOpenError(err, "unable to allocate an output format context for '%s'", rawURL)
	}

	encoder := astiav.FindEncoder(astiav.CodecIDH264)
	if encoder == nil {
		formatContext.Free()
		return nil, rerrors.NewStreamError(nil, "no h264 encoder available")
	}
	stream := formatContext.NewStream(encoder)
	if stream == nil {
		formatContext.Free()
		return nil, rerrors.NewStreamError(nil, "unable to allocate output stream")
	}

	codecContext := astiav.AllocCodecContext(encoder)
	if codecContext == nil {
		formatContext.Free()
		return nil, rerrors.NewStreamError(nil, "unable to allocate a codec context")
	}
	codecContext.SetWidth(srcWidth)
	codecContext.SetHeight(srcHeight)
	codecContext.SetPixelFormat(astiav.PixelFormatYuv420P)
	codecContext.SetTimeBase(astiav.NewRational(1, ptsTimeBase))
	codecContext.SetBitRate(bitrate)

	dict := astiav.NewDictionary()
	internal.SetFinalizerFree(ctx, dict)
	for _, key := range unconsumed {
		dict.Set(key, findValue(params, key), 0)
	}
	if err := codecContext.Open(encoder, dict); err != nil {
		return nil, rerrors.NewStreamError(err, "unable to open encoder")
	}
	if pairs := unconsumedOptionPairs(dict); len(pairs) > 0 {
		return nil, rerrors.NewConfigurationError("unknown options: %s", strings.Join(pairs, ","))
	}
	if err := codecContext.ToCodecParameters(stream.CodecParameters()); err != nil {
		return nil, rerrors.NewStreamError(err, "unable to copy codec parameters to stream")
	}
	stream.SetTimeBase(codecContext.TimeBase())

	if !formatContext.OutputFormat().Flags().Has(astiav.IOFormatFlagNofile) {
		ioContext, err := astiav.OpenIOContext(rawURL, astiav.NewIOContextFlags(astiav.IOContextFlagWrite), nil, nil)
		if err != nil {
			return nil, rerrors.NewOpenError(err, "unable to open output '%s'", rawURL)
		}
		formatContext.SetPb(ioContext)
	}
	if err := formatContext.WriteHeader(nil); err != nil {
		return nil, rerrors.NewStreamError(err, "unable to write container header")
	}

	w := &Writer{
		realtime:      realtime,
		formatContext: formatContext,
		stream:        stream,
		codecContext:  codecContext,
		width:         srcWidth,
		height:        srcHeight,
	}
	if realtime {
		w.stop = closuresignaler.New()
		// back-pressure is enforced explicitly in Push (queue length check
		// against realtimeQueueDepth); the policy here never drops or
		// blocks since Push already guarantees the bound.
		w.q = queue.New(w.stop, queue.WaitPolicy{High: 1 << 30, Low: 0})
		w.done = make(chan struct{})
		observability.Go(ctx, w.encodeLoop)
	}
	return w, nil
}

func findValue(params types.DictionaryItems, key string) string {
	for _, item := range params {
		if item.Key == key {
			return item.Value
		}
	}
	return ""
}

func unconsumedOptionPairs(dict *astiav.Dictionary) []string {
	var pairs []string
	var entry *astiav.DictionaryEntry
	for {
		entry = dict.Get("", entry, astiav.NewDictionaryFlags(astiav.DictionaryFlagIgnoreSuffix))
		if entry == nil {
			break
		}
		pairs = append(pairs, fmt.Sprintf("%s=%s", entry.Key(), entry.Value()))
	}
	return pairs
}

// pts converts a timestamp in seconds to the fixed 1/65535 time base.
func pts(timestampSeconds float64) int64 {
	if timestampSeconds < 0 {
		return astiav.NoPtsValue
	}
	return int64(timestampSeconds*ptsTimeBase + 0.5)
}

// Push converts img to the encoder's native format and either encodes it
// synchronously or, in realtime mode, enqueues it for the encoder
// goroutine. Returns false only in realtime mode when the queue is
// already saturated — the frame is then dropped, never queued.
func (w *Writer) Push(ctx context.Context, img frame.Image, timestampSeconds float64) (bool, error) {
	if img.Width != w.width || img.Height != w.height {
		return false, rerrors.NewRuntimeError(true, nil,
			"frame dimensions changed mid-stream: got %dx%d, expected %dx%d",
			img.Width, img.Height, w.width, w.height)
	}

	dst, err := w.convert(img)
	if err != nil {
		return false, err
	}
	dst.SetPts(pts(timestampSeconds))

	if w.realtime {
		if w.q.Len() >= realtimeQueueDepth {
			dst.Free()
			return false, nil
		}
		w.q.Push(ctx, dst)
		return true, nil
	}

	defer dst.Free()
	if err := w.encodeAndWrite(dst); err != nil {
		return false, err
	}
	return true, nil
}

func (w *Writer) convert(img frame.Image) (*astiav.Frame, error) {
	srcPixFmt := astiav.PixelFormatRgb24
	if img.Channels == 1 {
		srcPixFmt = astiav.PixelFormatGray8
	}
	if w.swsContext == nil {
		sws, err := astiav.CreateSoftwareScaleContext(
			img.Width, img.Height, srcPixFmt,
			w.width, w.height, astiav.PixelFormatYuv420P,
			astiav.NewSoftwareScaleContextFlags(astiav.SoftwareScaleContextFlagBicubic),
		)
		if err != nil {
			return nil, rerrors.NewRuntimeError(true, err, "converter initialization failed")
		}
		w.swsContext = sws
		w.srcPixFmt = srcPixFmt
	}

	src := astiav.AllocFrame()
	defer src.Free()
	src.SetWidth(img.Width)
	src.SetHeight(img.Height)
	src.SetPixelFormat(w.srcPixFmt)
	if err := src.AllocBuffer(1); err != nil {
		return nil, rerrors.NewRuntimeError(true, err, "unable to allocate source frame buffer")
	}
	copy(src.Data()[0], img.Data)

	dst := astiav.AllocFrame()
	dst.SetWidth(w.width)
	dst.SetHeight(w.height)
	dst.SetPixelFormat(astiav.PixelFormatYuv420P)
	if err := dst.AllocBuffer(1); err != nil {
		dst.Free()
		return nil, rerrors.NewRuntimeError(true, err, "unable to allocate destination frame buffer")
	}
	if err := w.swsContext.ScaleFrame(src, dst); err != nil {
		dst.Free()
		return nil, rerrors.NewRuntimeError(true, err, "unable to scale frame")
	}
	return dst, nil
}

func (w *Writer) encodeAndWrite(f *astiav.Frame) error {
	if err := w.codecContext.SendFrame(f); err != nil {
		return rerrors.NewRuntimeError(true, err, "encoder rejected frame")
	}
	pkt := astiav.AllocPacket()
	defer pkt.Free()
	for {
		err := w.codecContext.ReceivePacket(pkt)
		if err == astiav.ErrEagain {
			return nil
		}
		if err != nil {
			return rerrors.NewRuntimeError(true, err, "encoder failed to produce a packet")
		}
		pkt.RescaleTs(w.codecContext.TimeBase(), w.stream.TimeBase())
		pkt.SetStreamIndex(w.stream.Index())
		if err := w.formatContext.WriteInterleavedFrame(pkt); err != nil {
			return rerrors.NewRuntimeError(true, err, "unable to write packet")
		}
		pkt.Unref()
	}
}

func (w *Writer) encodeLoop(ctx context.Context) {
	defer close(w.done)
	for {
		item, sentinel, ok := w.q.PopBlocking()
		if !ok || sentinel != queue.SentinelNone {
			return
		}
		f := item.(*astiav.Frame)
		err := w.encodeAndWrite(f)
		f.Free()
		if err != nil {
			logger.Errorf(ctx, "realtime encoder failed: %v", err)
			w.err = err
			return
		}
	}
}

// Close flushes the encoder, writes the trailer, and closes the output.
// In realtime mode it first signals the encoder goroutine to drain and
// exit, then rethrows any error it captured.
func (w *Writer) Close(ctx context.Context) error {
	if w.realtime {
		w.q.PushSentinel(queue.SentinelEOF)
		w.stop.Close(ctx)
		<-w.done
		if w.err != nil {
			return w.err
		}
	}

	_ = w.codecContext.SendFrame(nil) // flush
	pkt := astiav.AllocPacket()
	defer pkt.Free()
	for {
		err := w.codecContext.ReceivePacket(pkt)
		if err == astiav.ErrEagain || err == astiav.ErrEof {
			break
		}
		if err != nil {
			break
		}
		pkt.RescaleTs(w.codecContext.TimeBase(), w.stream.TimeBase())
		pkt.SetStreamIndex(w.stream.Index())
		_ = w.formatContext.WriteInterleavedFrame(pkt)
		pkt.Unref()
	}

	_ = w.formatContext.WriteTrailer()
	if w.swsContext != nil {
		w.swsContext.Free()
	}
	w.codecContext.Free()
	if !w.formatContext.OutputFormat().Flags().Has(astiav.IOFormatFlagNofile) && w.formatContext.Pb() != nil {
		_ = w.formatContext.Pb().Close()
	}
	w.formatContext.Free()
	return nil
}
