package media

import "context"

// Close requests the acquisition goroutine to exit, joins it, and
// releases the format/codec/scale contexts via the astikit.Closer built up
// during Open (teardown runs in reverse registration order: scaler, then
// codec context, then CloseInput, then the format context itself). Safe to
// call once.
func (b *Backend) Close(ctx context.Context) error {
	b.stop.Close(ctx)
	b.wk.Join()
	return b.closer.Close()
}
