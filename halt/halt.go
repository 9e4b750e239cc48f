package halt

import (
	"fmt"
	"sync"
)

// State is the control state of a Halt cell. Exactly one of the three
// values holds at any instant.
type State int32

const (
	Running State = iota
	Paused
	Stopped
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Paused:
		return "paused"
	case Stopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// ParseState is the inverse of State.String. Unknown input returns an error,
// the state value is Stopped in that case and must be ignored.
func ParseState(s string) (State, error) {
	switch s {
	case "running":
		return Running, nil
	case "paused":
		return Paused, nil
	case "stopped":
		return Stopped, nil
	default:
		return Stopped, fmt.Errorf("halt: unknown state %q", s)
	}
}

// Halt is the shared cell a wrapper and its remotes coordinate through:
// a three-valued state machine plus the condition variable that parks the
// worker goroutine while the state is Paused.
//
// The state lives under a single mutex and the condition variable shares
// that mutex, so a transition can never slip between a worker's state check
// and its entry into the wait: Resume and Stop broadcast under the same
// lock the worker holds until sync.Cond.Wait suspends it.
//
// Transitions run only through Remote handles. Running and Paused flip
// back and forth; Stopped is terminal and wins against any later Pause or
// Resume.
type Halt struct {
	mu    sync.Mutex
	cond  *sync.Cond
	state State
}

// New returns a cell in the Running state.
func New() *Halt {
	h := &Halt{state: Running}
	h.cond = sync.NewCond(&h.mu)
	return h
}

// Remote returns a handle for driving this cell. Take it before the
// wrapped object is handed to the worker goroutine; copies are cheap and
// may be spread across any number of controller goroutines.
func (h *Halt) Remote() Remote {
	return Remote{h: h}
}

// State reads the current state without blocking.
func (h *Halt) State() State {
	h.mu.Lock()
	s := h.state
	h.mu.Unlock()
	return s
}

// WaitWhilePaused suspends the calling goroutine for as long as the state
// is Paused and returns as soon as it becomes Running or Stopped. The wait
// parks the OS thread through the condition variable, it does not spin.
// Only the worker side should call this.
func (h *Halt) WaitWhilePaused() {
	h.mu.Lock()
	for h.state == Paused {
		h.cond.Wait()
	}
	h.mu.Unlock()
}

// Proceed is the worker-side gate: it waits out a pause and then reports
// whether the caller may forward one call to the inner object. false means
// the cell is stopped and the caller must return its no-progress sentinel
// without touching the inner object. The wait and the verdict happen in
// one critical section, so a Stop racing a Resume is never missed.
//
// The shipped wrappers call Proceed before every forwarded operation;
// custom adapters gating other capabilities should do the same.
func (h *Halt) Proceed() bool {
	h.mu.Lock()
	for h.state == Paused {
		h.cond.Wait()
	}
	ok := h.state == Running
	h.mu.Unlock()
	return ok
}

func (h *Halt) pause() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state != Running {
		return false
	}
	h.state = Paused
	// nobody waits on a transition into Paused, no broadcast needed
	return true
}

func (h *Halt) resume() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state != Paused {
		return false
	}
	h.state = Running
	h.cond.Broadcast()
	return true
}

func (h *Halt) stop() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state == Stopped {
		return false
	}
	h.state = Stopped
	h.cond.Broadcast()
	return true
}

func (h *Halt) stopIfPaused() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state != Paused {
		return false
	}
	h.state = Stopped
	h.cond.Broadcast()
	return true
}
