package types

import "errors"

var errInvalidParametersSize = errors.New("invalid parameters size")
