package readiness_barrier

import (
	"context"
	"testing"
	"time"

	"github.com/PavelAgarkov/halt-pkg/halt"
	"github.com/PavelAgarkov/halt-pkg/registry"
	"github.com/stretchr/testify/require"
)

func testBarrier(t *testing.T, watch []string, reg registry.RemoteRegistry) *ReadinessBarrier {
	t.Helper()
	b := NewReadinessBarrier(context.Background(), ReadinessBarrierConfig{
		Name:           "test",
		Watch:          watch,
		SampleInterval: 10 * time.Millisecond,
	}, reg)
	t.Cleanup(b.Stop)
	return b
}

func TestBarrierTracksWatchedRemotes(t *testing.T) {
	reg := registry.NewRegistry()
	a, b := halt.New(), halt.New()
	require.NoError(t, reg.Register("a", a.Remote()))
	require.NoError(t, reg.Register("b", b.Remote()))

	barrier := testBarrier(t, nil, reg)
	require.False(t, barrier.IsReady(), "not ready before Start")

	barrier.Start()
	require.Eventually(t, barrier.IsReady, 2*time.Second, time.Millisecond)

	a.Remote().Pause()
	require.Eventually(t, func() bool { return !barrier.IsReady() }, 2*time.Second, time.Millisecond)

	a.Remote().Resume()
	require.Eventually(t, barrier.IsReady, 2*time.Second, time.Millisecond)

	b.Remote().Stop()
	require.Eventually(t, func() bool { return !barrier.IsReady() }, 2*time.Second, time.Millisecond)
}

func TestBarrierWatchesOnlyNamedRemotes(t *testing.T) {
	reg := registry.NewRegistry()
	a, b := halt.New(), halt.New()
	require.NoError(t, reg.Register("a", a.Remote()))
	require.NoError(t, reg.Register("b", b.Remote()))

	barrier := testBarrier(t, []string{"a"}, reg)
	barrier.Start()
	require.Eventually(t, barrier.IsReady, 2*time.Second, time.Millisecond)

	b.Remote().Pause()
	time.Sleep(50 * time.Millisecond)
	require.True(t, barrier.IsReady(), "unwatched remote must not block readiness")

	a.Remote().Pause()
	require.Eventually(t, func() bool { return !barrier.IsReady() }, 2*time.Second, time.Millisecond)
}

func TestBarrierUnregisteredWatchBlocks(t *testing.T) {
	reg := registry.NewRegistry()

	barrier := testBarrier(t, []string{"ghost"}, reg)
	barrier.Start()

	time.Sleep(50 * time.Millisecond)
	require.False(t, barrier.IsReady(), "watching an unregistered name must hold readiness down")
}

func TestManualSignalVetoesReadiness(t *testing.T) {
	reg := registry.NewRegistry()
	require.NoError(t, reg.Register("a", halt.New().Remote()))

	barrier := testBarrier(t, nil, reg)
	barrier.Start()
	require.Eventually(t, barrier.IsReady, 2*time.Second, time.Millisecond)

	require.NoError(t, barrier.SendSignalCtx(context.Background(), NotReadySignalToggle))
	require.Eventually(t, func() bool { return !barrier.IsReady() }, 2*time.Second, time.Millisecond)

	require.NoError(t, barrier.SendSignalCtx(context.Background(), ReadySignalToggle))
	require.Eventually(t, barrier.IsReady, 2*time.Second, time.Millisecond)
}

func TestBarrierStopTurnsNotReady(t *testing.T) {
	reg := registry.NewRegistry()
	require.NoError(t, reg.Register("a", halt.New().Remote()))

	barrier := testBarrier(t, nil, reg)
	barrier.Start()
	require.Eventually(t, barrier.IsReady, 2*time.Second, time.Millisecond)

	barrier.Stop()
	require.False(t, barrier.IsReady())

	require.Error(t, barrier.SendSignalCtx(context.Background(), ReadySignalToggle))
}
