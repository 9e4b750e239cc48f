package halt

// Remote is the controller-side handle of a Halt cell. It carries no
// ownership of the wrapped object; it only drives state transitions and
// answers state queries. A Remote is a small value: copy it freely, every
// copy addresses the same cell and all methods are safe for concurrent use
// from any number of goroutines.
//
// Two controllers racing conflicting transitions resolve by plain
// last-write-wins of the cell's atomic transitions; no ordering between
// the racers is promised beyond that, except that Stopped always wins
// permanently.
//
// The zero Remote is not usable; obtain one from Halt.Remote or a
// wrapper's Remote method.
type Remote struct {
	h *Halt
}

// Pause moves Running to Paused, which parks the worker at its next call
// boundary. It reports false when the call had no effect: already Paused,
// or the cell has stopped.
func (r Remote) Pause() bool { return r.h.pause() }

// Resume moves Paused back to Running and wakes the parked worker. It
// reports false when the call had no effect: already Running, or stopped.
func (r Remote) Resume() bool { return r.h.resume() }

// Stop moves any state to Stopped and wakes the parked worker. Stopped is
// terminal: every later Pause, Resume, or Stop is a no-op. Only the call
// that actually performed the transition reports true.
func (r Remote) Stop() bool { return r.h.stop() }

// StopIfPaused stops the cell only if it is currently Paused, as a single
// atomic step. Use it when abandoning a worker that might otherwise sleep
// in the pause wait forever.
func (r Remote) StopIfPaused() bool { return r.h.stopIfPaused() }

// State reads the current state without blocking.
func (r Remote) State() State { return r.h.State() }

// IsRunning reports whether the state is Running.
func (r Remote) IsRunning() bool { return r.h.State() == Running }

// IsPaused reports whether the state is Paused.
func (r Remote) IsPaused() bool { return r.h.State() == Paused }

// IsStopped reports whether the state is Stopped.
func (r Remote) IsStopped() bool { return r.h.State() == Stopped }
