package halt

import "io"

// Reader gates an io.Reader behind a Halt cell. While Running, every Read
// goes to the inner reader exactly once and its result comes back verbatim,
// errors included. While Paused, Read parks the calling goroutine until a
// remote resumes or stops the cell. Once Stopped, Read reports io.EOF
// without touching the inner reader again.
//
// The gate is evaluated at the start of each call only: a pause or stop
// issued while the inner reader is mid-Read takes effect at the next call
// boundary, never preempting the call in flight.
//
// A Reader belongs to a single worker goroutine. Remotes may drive it from
// any number of others.
type Reader struct {
	inner io.Reader
	halt  *Halt
}

// NewReader wraps r with a fresh cell.
func NewReader(r io.Reader) *Reader {
	return WrapReader(New(), r)
}

// WrapReader attaches r to an existing cell, so several wrappers answer to
// one control point.
func WrapReader(h *Halt, r io.Reader) *Reader {
	if h == nil {
		panic("halt: nil cell")
	}
	if r == nil {
		panic("halt: nil reader")
	}
	return &Reader{inner: r, halt: h}
}

// Remote returns the control handle of the underlying cell.
func (r *Reader) Remote() Remote { return r.halt.Remote() }

// Inner returns the wrapped reader.
func (r *Reader) Inner() io.Reader { return r.inner }

func (r *Reader) Read(p []byte) (int, error) {
	if !r.halt.Proceed() {
		return 0, io.EOF
	}
	return r.inner.Read(p)
}

var _ io.Reader = (*Reader)(nil)
