// Package frame defines the decoded-image value type shared by every
// backend: the media-framework backend, the two camera-SDK backends, and
// the writer.
package frame

// ScalarType is the per-channel sample type of an Image.
type ScalarType int

const (
	ScalarU8 ScalarType = iota
	ScalarU16
)

// BytesPerSample returns the size in bytes of one sample of the given type.
func (s ScalarType) BytesPerSample() int {
	switch s {
	case ScalarU16:
		return 2
	default:
		return 1
	}
}

// Image is a raw, top-down, channel-interleaved pixel buffer plus the shape
// describing how to read it. Stride is the number of bytes between the
// first pixel of consecutive rows; 0 means "unknown" (assume tightly
// packed: Width*Channels*ScalarType.BytesPerSample()).
type Image struct {
	Height     int
	Width      int
	Channels   int
	ScalarType ScalarType
	Stride     int
	Data       []byte
	UserData   any
}

// RowStride returns Stride, falling back to the tightly-packed row size
// when Stride is unset.
func (img Image) RowStride() int {
	if img.Stride > 0 {
		return img.Stride
	}
	return img.Width * img.Channels * img.ScalarType.BytesPerSample()
}

// AlignedStride rounds the tightly-packed row size for width/channels/st up
// to the next multiple of alignment bytes.
func AlignedStride(width, channels int, st ScalarType, alignment int) int {
	row := width * channels * st.BytesPerSample()
	return (row + alignment - 1) &^ (alignment - 1)
}
