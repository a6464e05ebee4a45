// Package rerrors defines the error taxonomy shared by the reader facade
// and every backend: configuration mistakes, failure to open the source,
// stream/codec setup failure, and runtime read failures (some recoverable,
// some terminal). Kept as its own leaf package so backends can construct
// and return these without importing the root package that dispatches to
// them.
package rerrors

import (
	"errors"
	"fmt"
)

// ConfigurationError reports a bad parameter pair count, mis-paired
// allocators, an unknown extra name, or an unrecognized key on a backend
// that rejects them.
type ConfigurationError struct {
	msg string
}

func NewConfigurationError(format string, args ...any) *ConfigurationError {
	return &ConfigurationError{msg: fmt.Sprintf(format, args...)}
}

func (e *ConfigurationError) Error() string { return e.msg }

// OpenError reports that the underlying source could not be opened.
type OpenError struct {
	msg string
	err error
}

func NewOpenError(err error, format string, args ...any) *OpenError {
	return &OpenError{msg: fmt.Sprintf(format, args...), err: err}
}

func (e *OpenError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.err)
	}
	return e.msg
}

func (e *OpenError) Unwrap() error { return e.err }

// StreamError reports failure to find a video stream, an unsupported
// codec, or converter/decoder setup failure.
type StreamError struct {
	msg string
	err error
}

func NewStreamError(err error, format string, args ...any) *StreamError {
	return &StreamError{msg: fmt.Sprintf(format, args...), err: err}
}

func (e *StreamError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.err)
	}
	return e.msg
}

func (e *StreamError) Unwrap() error { return e.err }

// RuntimeError reports a failure observed while pulling frames. Terminal
// errors are captured on the acquisition goroutine and rethrown on the
// caller's next operation; non-terminal ones are logged and swallowed.
type RuntimeError struct {
	msg      string
	err      error
	terminal bool
}

func NewRuntimeError(terminal bool, err error, format string, args ...any) *RuntimeError {
	return &RuntimeError{msg: fmt.Sprintf(format, args...), err: err, terminal: terminal}
}

func (e *RuntimeError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.err)
	}
	return e.msg
}

func (e *RuntimeError) Unwrap() error { return e.err }

// IsTerminal reports whether the acquisition goroutine exited because of
// this error.
func (e *RuntimeError) IsTerminal() bool { return e.terminal }

// ErrUseAfterEnd is returned by NextFrame when called a second time after
// the end sentinel has already been consumed (media backend only; camera
// backends instead return nil again since their worker has already
// joined).
var ErrUseAfterEnd = errors.New("use after end: NextFrame called again after the stream already ended")
