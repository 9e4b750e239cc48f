package watchdog

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type memLocker struct {
	mu         sync.Mutex
	owners     map[string]string
	failExtend bool
}

func newMemLocker() *memLocker {
	return &memLocker{owners: make(map[string]string)}
}

func (m *memLocker) Lock(ctx context.Context, key, value string, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if owner, held := m.owners[key]; held && owner != value {
		return false, nil
	}
	m.owners[key] = value
	return true, nil
}

func (m *memLocker) Unlock(ctx context.Context, key, value string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.owners[key] != value {
		return false, nil
	}
	delete(m.owners, key)
	return true, nil
}

func (m *memLocker) ExtendLockTTL(ctx context.Context, key, value string, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failExtend {
		return false, nil
	}
	return m.owners[key] == value, nil
}

func (m *memLocker) setFailExtend(v bool) {
	m.mu.Lock()
	m.failExtend = v
	m.mu.Unlock()
}

func (m *memLocker) release(key string) {
	m.mu.Lock()
	delete(m.owners, key)
	m.mu.Unlock()
}

func waitEvent(t *testing.T, watcher <-chan int, want int) {
	t.Helper()
	select {
	case got, ok := <-watcher:
		require.True(t, ok, "watcher closed before event")
		require.Equal(t, want, got)
	case <-time.After(3 * time.Second):
		t.Fatalf("no event %d within timeout", want)
	}
}

func TestElectTakesFreeLeadershipImmediately(t *testing.T) {
	l := newMemLocker()
	wd := NewRedisWatchdogLeader(context.Background(), l)
	defer wd.Stop()

	watcher := wd.Elect(Config{ElectionName: PipelineControl, Expiration: 200 * time.Millisecond})
	waitEvent(t, watcher, TakenAcquire)
}

func TestElectLosesLeadershipWhenExtendFails(t *testing.T) {
	l := newMemLocker()
	wd := NewRedisWatchdogLeader(context.Background(), l)
	defer wd.Stop()

	watcher := wd.Elect(Config{ElectionName: PipelineControl, Expiration: 120 * time.Millisecond})
	waitEvent(t, watcher, TakenAcquire)

	l.setFailExtend(true)
	waitEvent(t, watcher, LostAcquire)
}

func TestElectFollowerTakesOverAfterRelease(t *testing.T) {
	l := newMemLocker()
	_, err := l.Lock(context.Background(), PipelineControl, "other-holder", time.Minute)
	require.NoError(t, err)

	wd := NewRedisWatchdogLeader(context.Background(), l)
	defer wd.Stop()

	watcher := wd.Elect(Config{ElectionName: PipelineControl, Expiration: 120 * time.Millisecond})

	select {
	case ev := <-watcher:
		t.Fatalf("follower got event %d while lock is held elsewhere", ev)
	case <-time.After(100 * time.Millisecond):
	}

	l.release(PipelineControl)
	waitEvent(t, watcher, TakenAcquire)
}

func TestElectPanicsOnEmptyName(t *testing.T) {
	wd := NewRedisWatchdogLeader(context.Background(), newMemLocker())
	defer wd.Stop()

	require.Panics(t, func() { wd.Elect(Config{}) })
}

func TestStopClosesWatcher(t *testing.T) {
	l := newMemLocker()
	wd := NewRedisWatchdogLeader(context.Background(), l)

	watcher := wd.Elect(Config{ElectionName: MaintenanceCron, Expiration: 120 * time.Millisecond})
	waitEvent(t, watcher, TakenAcquire)

	wd.Stop()

	deadline := time.After(3 * time.Second)
	for {
		select {
		case _, ok := <-watcher:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("watcher not closed after Stop")
		}
	}
}
