package halt

import "iter"

// Iter gates a pull iterator behind a Halt cell: forward Next verbatim
// while Running, park while Paused, and once Stopped report the end of the
// sequence (zero value, false) without touching the inner iterator.
type Iter[T any] struct {
	inner Iterator[T]
	halt  *Halt
}

// NewIter wraps it with a fresh cell.
func NewIter[T any](it Iterator[T]) *Iter[T] {
	return WrapIter(New(), it)
}

// WrapIter attaches it to an existing cell.
func WrapIter[T any](h *Halt, it Iterator[T]) *Iter[T] {
	if h == nil {
		panic("halt: nil cell")
	}
	if it == nil {
		panic("halt: nil iterator")
	}
	return &Iter[T]{inner: it, halt: h}
}

// Remote returns the control handle of the underlying cell.
func (it *Iter[T]) Remote() Remote { return it.halt.Remote() }

// Inner returns the wrapped iterator.
func (it *Iter[T]) Inner() Iterator[T] { return it.inner }

func (it *Iter[T]) Next() (T, bool) {
	if !it.halt.Proceed() {
		var zero T
		return zero, false
	}
	return it.inner.Next()
}

// Seq exposes the gated iteration as a range-over-func sequence. The gate
// still applies per element, so the range loop pauses and stops with the
// cell.
func (it *Iter[T]) Seq() iter.Seq[T] {
	return func(yield func(T) bool) {
		for {
			v, ok := it.Next()
			if !ok {
				return
			}
			if !yield(v) {
				return
			}
		}
	}
}

var _ Iterator[int] = (*Iter[int])(nil)
