package readiness_barrier

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/PavelAgarkov/halt-pkg/logger"
	logger "github.com/PavelAgarkov/halt-pkg/logger/zap_engine"
	"github.com/PavelAgarkov/halt-pkg/registry"
	"github.com/PavelAgarkov/halt-pkg/utils"
	"golang.org/x/exp/slices"
)

type toggleSignal string

const (
	ReadySignalToggle    toggleSignal = "ready"
	NotReadySignalToggle toggleSignal = "not_ready"

	defaultSampleInterval = 500 * time.Millisecond
)

type ReadinessBarrierConfig struct {
	Name string

	// Watch перечисляет имена remote-ов, без которых сервис не готов.
	// Пустой список означает весь реестр.
	Watch          []string
	SampleInterval time.Duration
}

type ReadinessBarrier struct {
	config   ReadinessBarrierConfig
	remotes  registry.RemoteRegistry
	signals  chan toggleSignal // канал для сигналов готовности, явно не закрывается
	manualOK atomic.Bool
	watchOK  atomic.Bool
	parent   context.Context

	running   atomic.Bool
	mu        sync.Mutex
	runCancel context.CancelFunc
	wg        sync.WaitGroup
}

func NewReadinessBarrier(parent context.Context, cfg ReadinessBarrierConfig, remotes registry.RemoteRegistry) *ReadinessBarrier {
	if cfg.SampleInterval <= 0 {
		cfg.SampleInterval = defaultSampleInterval
	}
	r := &ReadinessBarrier{
		config:  cfg,
		remotes: remotes,
		signals: make(chan toggleSignal, 4),
		parent:  parent,
	}
	r.manualOK.Store(true)
	r.watchOK.Store(remotes == nil)
	return r
}

func (r *ReadinessBarrier) Start() {
	// не даём запустить второй раз, пока уже запущен
	if !r.running.CompareAndSwap(false, true) {
		return
	}

	ctx, cancel := context.WithCancel(r.parent)
	r.mu.Lock()
	r.runCancel = cancel
	r.mu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.listen(ctx)
	}()

	return
}

func (r *ReadinessBarrier) Stop() {
	if !r.running.CompareAndSwap(true, false) {
		return // уже остановлен
	}

	r.mu.Lock()
	if r.runCancel != nil {
		r.runCancel()
		r.runCancel = nil
	}
	r.mu.Unlock()
	r.wg.Wait()

drop:
	for {
		select {
		case <-r.signals:
		default:
			break drop
		}
	}
	r.manualOK.Store(true)
	r.watchOK.Store(r.remotes == nil)
}

func (r *ReadinessBarrier) IsReady() bool {
	return r.running.Load() && r.manualOK.Load() && r.watchOK.Load()
}

func (r *ReadinessBarrier) SendSignalCtx(ctx context.Context, sig toggleSignal) error {
	if !r.running.Load() {
		return fmt.Errorf("readiness barrier %s: not running", r.config.Name)
	}
	select {
	case r.signals <- sig:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("readiness barrier %s: context cancelled while sending signal", r.config.Name)
	}
}

func (r *ReadinessBarrier) listen(ctx context.Context) {
	if r.remotes == nil {
		for {
			select {
			case <-ctx.Done():
				return
			case sig := <-r.signals:
				r.manualOK.Store(sig == ReadySignalToggle)
			}
		}
	}

	ticker := time.NewTicker(r.config.SampleInterval)
	defer ticker.Stop()

	r.sample(ctx, true)
	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-r.signals:
			r.manualOK.Store(sig == ReadySignalToggle)
		case <-ticker.C:
			r.sample(ctx, false)
		}
	}
}

// sample пересчитывает готовность по наблюдаемым remote-ам.
func (r *ReadinessBarrier) sample(ctx context.Context, force bool) {
	watched := r.config.Watch
	if len(watched) == 0 {
		watched = r.remotes.Names()
	} else {
		watched = slices.Clone(watched)
		slices.Sort(watched)
	}

	running := make([]string, 0, len(watched))
	for _, name := range watched {
		remote, ok := r.remotes.Get(name)
		if ok && remote.IsRunning() {
			running = append(running, name)
		}
	}

	blocked := utils.SortedDifference(watched, running)
	ok := len(blocked) == 0
	prev := r.watchOK.Swap(ok)

	if (force || prev != ok) && !ok {
		logger.WriteInfoLog(ctx, &logger_wrapper.LogEntry{
			Msg:       "readiness blocked by remotes",
			Component: "readiness_barrier",
			Method:    "sample",
			Args:      fmt.Sprintf("name: %s, blocked: %v", r.config.Name, blocked),
		})
	}
}
