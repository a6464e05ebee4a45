// Package videoreader is the backend selector and reader facade: it parses
// a URL, validates configuration, dispatches to one of three backends, and
// exposes the uniform Reader contract over all of them.
package videoreader

import "github.com/minimg/videoreader/rerrors"

// The error taxonomy is defined in package rerrors (shared with the
// backends) and re-exported here as the public surface callers match
// against with errors.As/errors.Is.
type (
	ConfigurationError = rerrors.ConfigurationError
	OpenError           = rerrors.OpenError
	StreamError         = rerrors.StreamError
	RuntimeError        = rerrors.RuntimeError
)

var ErrUseAfterEnd = rerrors.ErrUseAfterEnd
