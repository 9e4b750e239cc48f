package halt

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewStartsRunning(t *testing.T) {
	h := New()
	require.Equal(t, Running, h.State())

	r := h.Remote()
	require.True(t, r.IsRunning())
	require.False(t, r.IsPaused())
	require.False(t, r.IsStopped())
}

func TestPauseResumeToggle(t *testing.T) {
	r := New().Remote()

	require.True(t, r.Pause())
	require.Equal(t, Paused, r.State())
	require.False(t, r.Pause(), "second pause must report no effect")
	require.Equal(t, Paused, r.State())

	require.True(t, r.Resume())
	require.Equal(t, Running, r.State())
	require.False(t, r.Resume(), "second resume must report no effect")
	require.Equal(t, Running, r.State())
}

func TestStopIsTerminal(t *testing.T) {
	r := New().Remote()

	require.True(t, r.Stop())
	require.False(t, r.Stop(), "repeated stop is a no-op")
	require.Equal(t, Stopped, r.State())

	// Neither pause nor resume may ever leave Stopped.
	require.False(t, r.Pause())
	require.False(t, r.Resume())
	require.Equal(t, Stopped, r.State())
	require.True(t, r.IsStopped())
}

func TestStopWinsFromPaused(t *testing.T) {
	r := New().Remote()

	require.True(t, r.Pause())
	require.True(t, r.Stop())
	require.Equal(t, Stopped, r.State())
	require.False(t, r.Resume())
	require.Equal(t, Stopped, r.State())
}

func TestStopIfPaused(t *testing.T) {
	r := New().Remote()

	require.False(t, r.StopIfPaused(), "running cell must be left alone")
	require.Equal(t, Running, r.State())

	r.Pause()
	require.True(t, r.StopIfPaused())
	require.Equal(t, Stopped, r.State())

	require.False(t, r.StopIfPaused())
}

func TestRemoteCopiesShareOneCell(t *testing.T) {
	h := New()
	a := h.Remote()
	b := h.Remote()
	c := a // plain value copy

	a.Pause()
	require.True(t, b.IsPaused())
	require.True(t, c.IsPaused())

	b.Stop()
	require.True(t, a.IsStopped())
	require.True(t, c.IsStopped())
}

func TestStateString(t *testing.T) {
	require.Equal(t, "running", Running.String())
	require.Equal(t, "paused", Paused.String())
	require.Equal(t, "stopped", Stopped.String())
	require.Equal(t, "state(7)", State(7).String())
}

func TestParseState(t *testing.T) {
	for _, s := range []State{Running, Paused, Stopped} {
		got, err := ParseState(s.String())
		require.NoError(t, err)
		require.Equal(t, s, got)
	}
	_, err := ParseState("limping")
	require.Error(t, err)
}

func TestWaitWhilePausedPassesThrough(t *testing.T) {
	h := New()

	// Running: returns immediately.
	done := make(chan struct{})
	go func() {
		h.WaitWhilePaused()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("WaitWhilePaused blocked on a running cell")
	}

	// Stopped: also returns immediately.
	h.Remote().Stop()
	done = make(chan struct{})
	go func() {
		h.WaitWhilePaused()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("WaitWhilePaused blocked on a stopped cell")
	}
}

func TestResumeUnblocksWaiter(t *testing.T) {
	h := New()
	r := h.Remote()
	r.Pause()

	entered := make(chan struct{})
	done := make(chan struct{})
	go func() {
		close(entered)
		h.WaitWhilePaused()
		close(done)
	}()

	<-entered
	select {
	case <-done:
		t.Fatal("waiter returned while still paused")
	case <-time.After(100 * time.Millisecond):
	}

	r.Resume()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("resume did not wake the waiter")
	}
}

func TestStopUnblocksWaiter(t *testing.T) {
	h := New()
	r := h.Remote()
	r.Pause()

	done := make(chan struct{})
	go func() {
		h.WaitWhilePaused()
		close(done)
	}()

	r.Stop()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stop did not wake the waiter")
	}
}

// TestNoMissedWakeup hammers the pause/wait/resume pairing: whatever the
// interleaving, a resume issued concurrently with the wait entry must not
// be lost.
func TestNoMissedWakeup(t *testing.T) {
	for i := 0; i < 200; i++ {
		h := New()
		r := h.Remote()
		r.Pause()

		done := make(chan struct{})
		go func() {
			h.WaitWhilePaused()
			close(done)
		}()
		go r.Resume()

		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatalf("iteration %d: waiter never woke", i)
		}
	}
}

func TestConcurrentControllers(t *testing.T) {
	h := New()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r := h.Remote()
			for j := 0; j < 500; j++ {
				r.Pause()
				r.Resume()
				s := r.State()
				if s != Running && s != Paused && s != Stopped {
					t.Errorf("invalid state observed: %v", s)
					return
				}
			}
		}()
	}
	wg.Wait()

	h.Remote().Stop()
	require.Equal(t, Stopped, h.State())

	// Terminal against one more storm of pause/resume.
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r := h.Remote()
			for j := 0; j < 200; j++ {
				r.Pause()
				r.Resume()
			}
		}()
	}
	wg.Wait()
	require.Equal(t, Stopped, h.State())
}
