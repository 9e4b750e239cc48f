package clickhouse

import (
	"context"
	"errors"
	"testing"
	"time"

	ch "github.com/ClickHouse/clickhouse-go/v2"
	"github.com/PavelAgarkov/halt-pkg/halt"
	"github.com/stretchr/testify/require"
)

func TestNeedWaitClassification(t *testing.T) {
	need, wait, exc := NeedWait(&ch.Exception{Code: 202})
	require.True(t, need)
	require.Equal(t, time.Second, wait)
	require.EqualValues(t, 202, exc.Code)

	need, wait, _ = NeedWait(&ch.Exception{Code: 252})
	require.True(t, need)
	require.Equal(t, 2*time.Second, wait)

	need, _, exc = NeedWait(errors.New("boring failure"))
	require.False(t, need)
	require.NotNil(t, exc, "classification must always hand back an exception to log")
}

func TestNeedReconnectClassification(t *testing.T) {
	need, _ := NeedReconnect(&ch.Exception{Code: 210})
	require.True(t, need)

	need, _ = NeedReconnect(context.DeadlineExceeded)
	require.True(t, need)

	need, _ = NeedReconnect(&ch.Exception{Code: 202})
	require.False(t, need, "backpressure codes are for waiting, not reconnecting")
}

func TestPauseForPausesAndAutoResumes(t *testing.T) {
	h := halt.New()
	r := h.Remote()

	require.True(t, PauseFor(context.Background(), r, 30*time.Millisecond))
	require.True(t, r.IsPaused())

	require.Eventually(t, r.IsRunning, 2*time.Second, time.Millisecond,
		"backoff pause must release itself")
}

func TestPauseForLeavesManualPauseAlone(t *testing.T) {
	h := halt.New()
	r := h.Remote()
	r.Pause()

	require.False(t, PauseFor(context.Background(), r, 10*time.Millisecond))

	time.Sleep(50 * time.Millisecond)
	require.True(t, r.IsPaused(), "operator pause must never be auto-released")
}

func TestPauseForSkipsStoppedRemote(t *testing.T) {
	h := halt.New()
	r := h.Remote()
	r.Stop()

	require.False(t, PauseFor(context.Background(), r, 10*time.Millisecond))
	require.True(t, r.IsStopped())
}

func TestPauseOnBackpressure(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := halt.New()
	r := h.Remote()

	require.False(t, PauseOnBackpressure(ctx, r, errors.New("not backpressure")))
	require.True(t, r.IsRunning())

	require.True(t, PauseOnBackpressure(ctx, r, &ch.Exception{Code: 201}))
	require.True(t, r.IsPaused())
}
