package index

import (
	"errors"
	"fmt"
)

// ErrSidecarMismatch is returned by Load when the two sidecars hold a
// different number of lines.
var ErrSidecarMismatch = errors.New("index: sidecar line counts differ")

// MalformedLineError reports a sidecar line that does not decode.
type MalformedLineError struct {
	URL  string
	Line int
	Err  error
}

func (e *MalformedLineError) Error() string {
	return fmt.Sprintf("index: malformed line %d of %s: %v", e.Line, e.URL, e.Err)
}

func (e *MalformedLineError) Unwrap() error {
	return e.Err
}
