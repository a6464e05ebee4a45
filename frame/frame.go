package frame

// Frame owns one decoded image, its sequencing metadata, and an optional
// extras blob, and releases the image through the allocator that produced
// it exactly once.
type Frame struct {
	Image Image

	// Number is zero-indexed and monotonically non-decreasing across a
	// stream; gaps are permitted, regressions are not.
	Number uint64

	// TimestampSeconds is seconds since stream start, or -1 when the
	// source provides none.
	TimestampSeconds float64

	// Extras is the packed per-frame metadata blob (see package extras),
	// or nil if no extras were configured.
	Extras []byte

	dealloc Allocator
}

// New builds a Frame that will release img through dealloc exactly once on
// Close. dealloc may be nil for a frame that owns no allocated image; its
// Close is then a no-op.
func New(dealloc Allocator, img Image, number uint64, timestampSeconds float64, extras []byte) *Frame {
	return &Frame{
		Image:            img,
		Number:           number,
		TimestampSeconds: timestampSeconds,
		Extras:           extras,
		dealloc:          dealloc,
	}
}

// Close releases the frame's image memory through its allocator. Safe to
// call more than once; only the first call has effect. A moved-from frame
// (dealloc == nil) is a no-op.
func (f *Frame) Close() {
	if f == nil || f.dealloc == nil {
		return
	}
	f.dealloc.Deallocate(&f.Image)
	f.dealloc = nil
}

// Move transfers ownership of f's image to a new Frame value, nulling f's
// deallocator so f.Close becomes a no-op. Mirrors the C++ move-constructor
// semantics the original reader relied on.
func (f *Frame) Move() *Frame {
	if f == nil {
		return nil
	}
	moved := *f
	f.dealloc = nil
	return &moved
}
