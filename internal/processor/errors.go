package processor

import "errors"

// ErrInvalidPattern is returned when an exclusion pattern does not compile.
var ErrInvalidPattern = errors.New("invalid exclude pattern")
