package halt

import (
	"errors"
	"io"
)

// ErrStopped reports a write short-circuited by a stopped cell. Read and
// Next have natural no-progress sentinels (io.EOF, ok=false); io.Writer
// has none, and returning 0 with a nil error would break the io.Writer
// contract, so the stopped Writer returns this error instead.
var ErrStopped = errors.New("halt: stopped")

// Writer gates an io.Writer behind a Halt cell, with the same policy as
// Reader: forward verbatim while Running, park while Paused, and once
// Stopped return 0 and ErrStopped without touching the inner writer.
type Writer struct {
	inner io.Writer
	halt  *Halt
}

// NewWriter wraps w with a fresh cell.
func NewWriter(w io.Writer) *Writer {
	return WrapWriter(New(), w)
}

// WrapWriter attaches w to an existing cell.
func WrapWriter(h *Halt, w io.Writer) *Writer {
	if h == nil {
		panic("halt: nil cell")
	}
	if w == nil {
		panic("halt: nil writer")
	}
	return &Writer{inner: w, halt: h}
}

// Remote returns the control handle of the underlying cell.
func (w *Writer) Remote() Remote { return w.halt.Remote() }

// Inner returns the wrapped writer.
func (w *Writer) Inner() io.Writer { return w.inner }

func (w *Writer) Write(p []byte) (int, error) {
	if !w.halt.Proceed() {
		return 0, ErrStopped
	}
	return w.inner.Write(p)
}

var _ io.Writer = (*Writer)(nil)
