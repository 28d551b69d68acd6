package memory

import "errors"

// ErrValidation indicates missing or malformed input, rejected before any
// store access.
var ErrValidation = errors.New("validation failed")
