package halt

import (
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// zeroReader produces zero bytes forever, an infinite source for copy loops.
type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0
	}
	return len(p), nil
}

func TestCopyLoopPauseResumeStop(t *testing.T) {
	h := New()
	src := WrapReader(h, zeroReader{})
	sink := &countingWriter{}
	r := h.Remote()

	done := make(chan error, 1)
	go func() {
		_, err := io.Copy(sink, src)
		done <- err
	}()

	require.Eventually(t, func() bool { return sink.bytes.Load() > 0 },
		2*time.Second, time.Millisecond, "copy loop never started moving bytes")

	require.True(t, r.Pause())
	time.Sleep(50 * time.Millisecond)
	frozen := sink.bytes.Load()
	time.Sleep(150 * time.Millisecond)
	require.Equal(t, frozen, sink.bytes.Load(), "bytes moved while paused")

	require.True(t, r.Resume())
	require.Eventually(t, func() bool { return sink.bytes.Load() > frozen },
		2*time.Second, time.Millisecond, "resume did not restart the copy loop")

	require.True(t, r.Stop())
	select {
	case err := <-done:
		require.NoError(t, err, "gated source must end the copy with a clean EOF")
	case <-time.After(2 * time.Second):
		t.Fatal("stop did not terminate the copy loop")
	}
	require.True(t, r.IsStopped())
}

func TestCopyLoopStopOnWriterSide(t *testing.T) {
	sink := NewWriter(io.Discard)
	r := sink.Remote()

	done := make(chan error, 1)
	go func() {
		_, err := io.Copy(sink, zeroReader{})
		done <- err
	}()

	require.Eventually(t, func() bool { return r.IsRunning() }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	r.Stop()

	select {
	case err := <-done:
		require.ErrorIs(t, err, ErrStopped, "writer-side stop must surface through io.Copy")
	case <-time.After(2 * time.Second):
		t.Fatal("stop did not terminate the copy loop")
	}
}

func TestPipelineSharedCellPausesBothEnds(t *testing.T) {
	h := New()
	src := WrapReader(h, zeroReader{})
	sink := &countingWriter{}
	dst := WrapWriter(h, sink)
	r := h.Remote()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = io.Copy(dst, src)
	}()

	require.Eventually(t, func() bool { return sink.bytes.Load() > 0 },
		2*time.Second, time.Millisecond)

	r.Pause()
	time.Sleep(50 * time.Millisecond)
	frozen := sink.bytes.Load()
	time.Sleep(100 * time.Millisecond)
	require.Equal(t, frozen, sink.bytes.Load())

	r.Stop()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stop did not terminate the pipeline")
	}
}

func TestStopRaceNeverDelegatesAfterSentinel(t *testing.T) {
	// Once a caller has seen the stop sentinel, no later call on the
	// same wrapper may reach the inner object.
	for i := 0; i < 100; i++ {
		inner := &countingReader{}
		hr := NewReader(inner)
		r := hr.Remote()

		stopped := make(chan struct{})
		go func() {
			r.Stop()
			close(stopped)
		}()

		buf := make([]byte, 4)
		for {
			n, err := hr.Read(buf)
			if err == io.EOF {
				require.Zero(t, n)
				break
			}
			require.NoError(t, err)
		}
		<-stopped

		before := inner.calls.Load()
		_, err := hr.Read(buf)
		require.Equal(t, io.EOF, err)
		require.Equal(t, before, inner.calls.Load())
	}
}
