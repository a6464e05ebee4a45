// callback.go implements the reader's optional user log callback: spec.md's
// "Optional log callback + user pointer", which the original threaded
// through every backend via a raw C function pointer + userdata and a
// cyclic opaque self-pointer for routing (see spec.md's "Cyclic opaque
// pointers for logging" design note). The Go stand-in threads it through
// context.Context instead: Create wraps its ctx once via WithCallback, and
// every logger.Xf call made against that ctx (directly, or by a backend
// that was handed the same ctx) also invokes the callback.
package logger

import (
	"context"
	"fmt"
)

// LogLevel mirrors the original API's FATAL/ERROR/WARNING/INFO/DEBUG enum.
type LogLevel int

const (
	LogLevelFatal LogLevel = iota
	LogLevelError
	LogLevelWarning
	LogLevelInfo
	LogLevelDebug
)

// LogFunc is the user-supplied callback invoked for every log line logged
// through a context that has been tapped via WithCallback.
type LogFunc func(message string, level LogLevel, userdata any)

type callbackKey struct{}

type callbackEntry struct {
	fn       LogFunc
	userdata any
}

// WithCallback returns a context that taps every Xf/X call in this package
// through fn, in addition to whatever go-belt logger the context already
// carries. A nil fn is a no-op (matches the original's nullable
// LogCallback default).
func WithCallback(ctx context.Context, fn LogFunc, userdata any) context.Context {
	if fn == nil {
		return ctx
	}
	return context.WithValue(ctx, callbackKey{}, callbackEntry{fn: fn, userdata: userdata})
}

func emit(ctx context.Context, level LogLevel, message string) {
	entry, ok := ctx.Value(callbackKey{}).(callbackEntry)
	if !ok {
		return
	}
	entry.fn(message, level, entry.userdata)
}

func emitf(ctx context.Context, level LogLevel, format string, args ...any) {
	if ctx.Value(callbackKey{}) == nil {
		return
	}
	emit(ctx, level, fmt.Sprintf(format, args...))
}
