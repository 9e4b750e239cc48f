package halt

import "iter"

// WrapSeq returns a view of seq that applies the gate before each element.
// Pausing parks the consuming loop at the next element boundary; stopping
// ends the sequence early without pulling another element from seq.
func WrapSeq[T any](h *Halt, seq iter.Seq[T]) iter.Seq[T] {
	if h == nil {
		panic("halt: nil cell")
	}
	if seq == nil {
		panic("halt: nil seq")
	}
	return func(yield func(T) bool) {
		// iter.Pull lets the gate run before each element is produced;
		// gating inside a plain range would consume one element past a stop.
		next, stop := iter.Pull(seq)
		defer stop()
		for {
			if !h.Proceed() {
				return
			}
			v, ok := next()
			if !ok {
				return
			}
			if !yield(v) {
				return
			}
		}
	}
}

// NewSeq wraps seq with a fresh cell and returns the gated sequence along
// with its control handle.
func NewSeq[T any](seq iter.Seq[T]) (iter.Seq[T], Remote) {
	h := New()
	return WrapSeq(h, seq), h.Remote()
}
