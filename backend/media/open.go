// Package media implements the media-framework backend: it opens a URL
// through github.com/asticode/go-astiav (an FFmpeg binding), finds the
// first video stream, decodes packets, and converts pixel format to
// packed 8-bit RGB — the fallback backend for every URL that isn't one of
// the two camera schemes.
package media

import (
	"context"
	"fmt"
	"strings"

	"github.com/asticode/go-astiav"
	"github.com/asticode/go-astikit"
	"github.com/davecgh/go-spew/spew"

	"github.com/minimg/videoreader/acquire"
	"github.com/minimg/videoreader/extras"
	"github.com/minimg/videoreader/frame"
	"github.com/minimg/videoreader/helpers/closuresignaler"
	"github.com/minimg/videoreader/internal"
	"github.com/minimg/videoreader/logger"
	"github.com/minimg/videoreader/queue"
	"github.com/minimg/videoreader/rerrors"
	"github.com/minimg/videoreader/types"
)

// recognizedExtras maps the names this backend understands to an
// astiav.Packet accessor, all packed as int64 (spec §4.D).
var recognizedExtras = map[string]func(*astiav.Packet) int64{
	"pkt_pos": func(p *astiav.Packet) int64 { return p.Pos() },
	"pts":     func(p *astiav.Packet) int64 { return int64(p.Pts()) },
	"pkt_dts": func(p *astiav.Packet) int64 { return int64(p.Dts()) },
	// "quality" has no direct packet-level equivalent in go-astiav; we
	// surface the packet's size as a crude proxy rather than silently
	// dropping a name the C++ original recognized.
	"quality": func(p *astiav.Packet) int64 { return int64(len(p.Data())) },
}

// Backend is the media-framework reader.
type Backend struct {
	stop *closuresignaler.ClosureSignaler
	q    *queue.Queue
	wk   *acquire.Worker

	closer *astikit.Closer

	formatContext *astiav.FormatContext
	stream        *astiav.Stream
	codecContext  *astiav.CodecContext
	swsContext    *astiav.SoftwareScaleContext
	dstPixFmt     astiav.PixelFormat

	alloc        frame.Allocator
	extrasNames  []string
	currentFrame uint64

	seekable bool
}

// Open opens rawURL through the media framework. rawURL follows the
// `dshow://`-style scheme-as-demuxer-hint convention (see splitSchemeHint);
// any key in params not consumed by the format or codec layers is a
// ConfigurationError.
func Open(ctx context.Context, rawURL string, params types.DictionaryItems, extrasNames []string, alloc frame.Allocator) (*Backend, error) {
	path, formatName := splitSchemeHint(rawURL)

	dict := astiav.NewDictionary()
	internal.SetFinalizerFree(ctx, dict)
	for _, item := range params {
		logger.Debugf(ctx, "media input option: %s=%s", item.Key, item.Value)
		dict.Set(item.Key, item.Value, 0)
	}

	var inputFormat *astiav.InputFormat
	if formatName != "" {
		inputFormat = astiav.FindInputFormat(formatName)
		if inputFormat == nil {
			return nil, rerrors.NewOpenError(nil,
				"unable to find input format '%s' (available: %s)", formatName, listDemuxers())
		}
	}

	formatContext := astiav.AllocFormatContext()
	if formatContext == nil {
		return nil, rerrors.NewOpenError(nil, "unable to allocate a format context")
	}
	// closer unwinds everything allocated below in reverse order on any
	// error return between here and the end of Open; ownership transfers
	// to Backend.closer only once construction fully succeeds.
	closer := astikit.NewCloser()
	closer.Add(formatContext.Free)

	if err := formatContext.OpenInput(path, inputFormat, dict); err != nil {
		closer.Close()
		return nil, rerrors.NewOpenError(err,
			"unable to open input '%s' (available protocols: %s)", rawURL, listDemuxers())
	}
	closer.Add(func() { formatContext.CloseInput() })
	if err := formatContext.FindStreamInfo(nil); err != nil {
		closer.Close()
		return nil, rerrors.NewStreamError(err, "unable to get stream info")
	}

	var stream *astiav.Stream
	for _, s := range formatContext.Streams() {
		logger.Debugf(ctx, "input stream #%d: %s", s.Index(), spew.Sdump(s.CodecParameters()))
		if s.CodecParameters().MediaType() == astiav.MediaTypeVideo {
			stream = s
			break
		}
	}
	if stream == nil {
		closer.Close()
		return nil, rerrors.NewStreamError(nil, "video stream not found")
	}

	decoder := astiav.FindDecoder(stream.CodecParameters().CodecID())
	if decoder == nil {
		closer.Close()
		return nil, rerrors.NewStreamError(nil, "unsupported codec %s", stream.CodecParameters().CodecID())
	}
	codecContext := astiav.AllocCodecContext(decoder)
	if codecContext == nil {
		closer.Close()
		return nil, rerrors.NewStreamError(nil, "unable to allocate a codec context")
	}
	closer.Add(codecContext.Free)
	if err := stream.CodecParameters().ToCodecContext(codecContext); err != nil {
		closer.Close()
		return nil, rerrors.NewStreamError(err, "unable to copy codec parameters")
	}
	if err := codecContext.Open(decoder, nil); err != nil {
		closer.Close()
		return nil, rerrors.NewStreamError(err, "unable to open decoder")
	}

	if pairs := unconsumedOptionPairs(dict); len(pairs) > 0 {
		closer.Close()
		return nil, rerrors.NewConfigurationError("unknown options: %s", strings.Join(pairs, ","))
	}

	for _, name := range extrasNames {
		if _, ok := recognizedExtras[name]; !ok {
			closer.Close()
			return nil, rerrors.NewConfigurationError(
				"unknown extra '%s' (valid: %s)", name, validExtraNames())
		}
	}

	b := &Backend{
		stop:          closuresignaler.New(),
		closer:        closer,
		formatContext: formatContext,
		stream:        stream,
		codecContext:  codecContext,
		dstPixFmt:     astiav.PixelFormatRgb24,
		alloc:         alloc,
		extrasNames:   extrasNames,
		seekable:      isSeekable(formatContext),
	}

	var policy queue.OverflowPolicy
	if b.seekable {
		policy = queue.WaitPolicy{High: 100, Low: 80}
	} else {
		policy = queue.DropOldestPolicy{High: 100, DropCount: 90}
	}
	b.q = queue.New(b.stop, policy)

	if b.seekable {
		// seeking to timestamp 0 avoids leading compression artifacts on
		// broken files; skipped when not seekable since it may hang.
		_ = formatContext.SeekFrame(-1, 0, astiav.NewSeekFlags(astiav.SeekFlagAny))
	}

	b.wk = acquire.New(ctx, b.stop, b.q, &source{b: b}, 0)
	return b, nil
}

// unconsumedOptionPairs lists every entry still in dict after the format
// and codec layers have Set-and-consumed the options they recognize —
// mirrors av_dict_get_string's "whatever is left is unknown" idiom.
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

func validExtraNames() string {
	names := make([]string, 0, len(recognizedExtras))
	for name := range recognizedExtras {
		names = append(names, name)
	}
	return strings.Join(names, ",")
}

// splitSchemeHint splits "dshow://cam" into ("cam", "dshow") when the
// prefix names a real demuxer; otherwise the URL is passed through as-is.
func splitSchemeHint(rawURL string) (path string, demuxerHint string) {
	idx := strings.Index(rawURL, "://")
	if idx < 0 {
		return rawURL, ""
	}
	scheme := rawURL[:idx]
	if astiav.FindInputFormat(scheme) == nil {
		return rawURL, ""
	}
	return rawURL[idx+3:], scheme
}

func listDemuxers() string {
	names := make([]string, 0)
	for _, d := range astiav.Demuxers() {
		names = append(names, d.Name())
	}
	return strings.Join(names, ",")
}

func isSeekable(fc *astiav.FormatContext) bool {
	pb := fc.Pb()
	if pb == nil {
		return false
	}
	return pb.Seekable() != 0
}

func (b *Backend) Size() uint64 {
	if b.stream.NbFrames() < 0 {
		return 0
	}
	return uint64(b.stream.NbFrames())
}

func (b *Backend) IsSeekable() bool { return b.seekable }

// Set is not implemented for the media backend; there is nothing in the
// format/codec layer this module reconfigures live.
func (b *Backend) Set(context.Context, types.DictionaryItems) error {
	return fmt.Errorf("not implemented")
}

func (b *Backend) Stop() {
	b.stop.Close(context.Background())
}
