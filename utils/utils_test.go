package utils

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSortedDifference(t *testing.T) {
	require.Equal(t, []string{"a", "c"}, SortedDifference([]string{"a", "b", "c"}, []string{"b"}))
	require.Equal(t, []string{"a", "b"}, SortedDifference([]string{"a", "b"}, nil))
	require.Empty(t, SortedDifference([]string{"a", "b"}, []string{"a", "b"}))
	require.Empty(t, SortedDifference(nil, []string{"a"}))
	require.Equal(t, []string{"b"}, SortedDifference([]string{"b"}, []string{"a", "c"}))
}

func TestDistinct(t *testing.T) {
	require.Equal(t, []string{"a", "b", "c"}, Distinct([]string{"a", "b", "a", "c", "b"}))
	require.Empty(t, Distinct([]string{}))
	require.Equal(t, []int{1, 2}, Distinct([]int{1, 1, 2, 2, 1}))
}

func TestSortedKeys(t *testing.T) {
	require.Equal(t, []string{"a", "b", "c"}, SortedKeys(map[string]int{"b": 2, "a": 1, "c": 3}))
	require.Empty(t, SortedKeys(map[string]int{}))
}

func TestStringMap(t *testing.T) {
	m := map[string]time.Duration{"fast": time.Second, "slow": time.Minute}
	require.Equal(t, map[string]string{"fast": "1s", "slow": "1m0s"}, StringMap(m))
}

func TestWaitOrCtx(t *testing.T) {
	require.NoError(t, WaitOrCtx(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, WaitOrCtx(ctx, time.Hour), context.Canceled)
}

func TestTimeoutNoDeadlineHidesDeadline(t *testing.T) {
	ctx, cancel := TimeoutNoDeadline(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, ok := ctx.Deadline()
	require.False(t, ok)

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context did not expire")
	}
	require.ErrorIs(t, ctx.Err(), context.DeadlineExceeded)
}

func TestGoRecoverSwallowsPanic(t *testing.T) {
	entered := make(chan struct{})
	GoRecover(context.Background(), func(ctx context.Context) {
		close(entered)
		panic("boom")
	})

	select {
	case <-entered:
	case <-time.After(time.Second):
		t.Fatal("goroutine did not start")
	}
	// паника должна погаситься внутри GoRecover, иначе процесс упадет
	time.Sleep(10 * time.Millisecond)
}

func TestGoRecoverSkipsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ran := make(chan struct{})
	GoRecover(ctx, func(ctx context.Context) { close(ran) })

	select {
	case <-ran:
		t.Fatal("fn ran despite cancelled context")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestAsError(t *testing.T) {
	sentinel := errors.New("boom")
	require.Same(t, sentinel, asError(sentinel))
	require.EqualError(t, asError("text"), "text")
}
