package halt

// Iterator is the pull-iteration capability the Iter wrapper forwards:
// Next returns the next element and true, or the zero value and false once
// the sequence is exhausted.
type Iterator[T any] interface {
	Next() (T, bool)
}

type (
	// Controller is the remote-control surface: everything a controller
	// goroutine may do to a worker. Remote implements it; components that
	// only need to drive transitions (registries, schedulers, bridges)
	// should accept this interface.
	Controller interface {
		Pause() bool
		Resume() bool
		Stop() bool
		StopIfPaused() bool
		State() State
		IsRunning() bool
		IsPaused() bool
		IsStopped() bool
	}
)

var _ Controller = Remote{}
