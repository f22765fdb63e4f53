package rotate

import "errors"

// ErrInvalidInterval is returned by ParseInterval when the interval spec
// does not match the "<digits><unit>[S]" grammar. It is the only error kind
// the write pipeline surfaces to a caller rather than absorbing and logging
// it — every other failure mode there (sink open/write, archive consistency,
// drain timeout, producer overflow) is handled internally. The template
// compiler and the archive report readers return their own errors.
var ErrInvalidInterval = errors.New("rotate: invalid interval spec")

// ErrClosed names the closed-logger condition. No function in this package
// returns it: Hook methods called after Close do not report an error.
var ErrClosed = errors.New("rotate: logger closed")
